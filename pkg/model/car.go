package model

import "time"

type Car struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=50"`
	Address   string    `json:"address" bson:"address" validate:"required,max=200"`
	District  string    `json:"district" bson:"district" validate:"required,max=100"`
	Province  string    `json:"province" bson:"province" validate:"required,max=100"`
	Tel       string    `json:"tel" bson:"tel" validate:"required,e164"`
	Region    string    `json:"region" bson:"region" validate:"required,max=100"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type CarUpdate struct {
	Name     string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Address  string `json:"address,omitempty" validate:"omitempty,max=200"`
	District string `json:"district,omitempty" validate:"omitempty,max=100"`
	Province string `json:"province,omitempty" validate:"omitempty,max=100"`
	Tel      string `json:"tel,omitempty" validate:"omitempty,e164"`
	Region   string `json:"region,omitempty" validate:"omitempty,max=100"`
}

// CarSummary is the subset of a car embedded in booking listings.
type CarSummary struct {
	ID      string `json:"id" bson:"_id"`
	Name    string `json:"name" bson:"name"`
	Address string `json:"address" bson:"address"`
	Tel     string `json:"tel" bson:"tel"`
}

func (c *Car) Summary() *CarSummary {
	return &CarSummary{ID: c.ID, Name: c.Name, Address: c.Address, Tel: c.Tel}
}
