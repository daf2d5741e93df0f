package model

import "time"

// Site is a physical location objects belong to.
type Site struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name       string    `json:"name" bson:"name" validate:"required,min=1,max=255"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	ModifiedAt time.Time `json:"modified_at" bson:"modified_at" validate:"omitempty"`
}

// ObjectType groups objects and carries the per-type reservation policy.
// RequiresReturn gates unreturned tracking and the return action;
// RequiresLocation makes the reservation location mandatory when true and
// forces it empty when false.
type ObjectType struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name             string    `json:"name" bson:"name" validate:"required,min=1,max=255"`
	Color            string    `json:"color,omitempty" bson:"color" validate:"omitempty,hexcolor"`
	RequiresReturn   bool      `json:"requires_return" bson:"requires_return"`
	RequiresLocation bool      `json:"requires_location" bson:"requires_location"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	ModifiedAt       time.Time `json:"modified_at" bson:"modified_at" validate:"omitempty"`
}
