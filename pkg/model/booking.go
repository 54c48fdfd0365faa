package model

import (
	"time"
)

// Booking reserves one car for one whole calendar day. ApptDate is stored as
// UTC midnight of that day.
type Booking struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID    string      `json:"user" bson:"user_id" validate:"required,mongodb"`
	CarID     string      `json:"car" bson:"car_id" validate:"required,mongodb"`
	ApptDate  time.Time   `json:"appt_date" bson:"appt_date" validate:"required,calendar_day"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at" validate:"omitempty"`
	Car       *CarSummary `json:"car_details,omitempty" bson:"-"`
}

type BookingRequest struct {
	Car      string `json:"car" validate:"omitempty,mongodb"`
	ApptDate string `json:"apptDate" validate:"omitempty,max=40"`
}
