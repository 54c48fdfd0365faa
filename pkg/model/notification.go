package model

import "time"

type NotificationKind string

const (
	NotificationVerificationCode NotificationKind = "verification_code"
	NotificationPasswordReset    NotificationKind = "password_reset"
	NotificationBookingCreated   NotificationKind = "booking_created"
	NotificationBookingUpdated   NotificationKind = "booking_updated"
	NotificationBookingCancelled NotificationKind = "booking_cancelled"
)

// Notification is the event published for the notifier. Data carries the
// template fields of the given kind.
type Notification struct {
	ID        string            `json:"id" validate:"required"`
	Kind      NotificationKind  `json:"kind" validate:"required,oneof=verification_code password_reset booking_created booking_updated booking_cancelled"`
	To        string            `json:"to" validate:"required,email"`
	Name      string            `json:"name,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
