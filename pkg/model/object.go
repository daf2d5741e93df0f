package model

import (
	"time"

	"inventario/pkg/availability"
)

const (
	ObjectAvailable = "available"
	ObjectReserved  = "reserved"
	ObjectOffsite   = "offsite"
)

// Object is a physical item or room that can be reserved. Status is a cached
// projection recomputed after reservation mutations; it is a display hint and
// is never consulted for conflict decisions.
type Object struct {
	ID           string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name         string               `json:"name" bson:"name" validate:"required,min=1,max=255"`
	Description  string               `json:"description,omitempty" bson:"description"`
	SiteID       string               `json:"site_id" bson:"site_id" validate:"required,mongodb"`
	TypeID       string               `json:"type_id" bson:"type_id" validate:"required,mongodb"`
	Visible      bool                 `json:"visible" bson:"visible"`
	Status       string               `json:"status" bson:"status" validate:"omitempty,oneof=available reserved offsite"`
	Location     string               `json:"location,omitempty" bson:"location"`
	Availability *availability.Window `json:"availability,omitempty" bson:"availability,omitempty"`
	CreatedBy    string               `json:"created_by,omitempty" bson:"created_by"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at" validate:"omitempty"`
	ModifiedAt   time.Time            `json:"modified_at" bson:"modified_at" validate:"omitempty"`
}

type ObjectUpdate struct {
	Name         *string              `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description  *string              `json:"description,omitempty"`
	SiteID       *string              `json:"site_id,omitempty" validate:"omitempty,mongodb"`
	TypeID       *string              `json:"type_id,omitempty" validate:"omitempty,mongodb"`
	Status       *string              `json:"status,omitempty" validate:"omitempty,oneof=available reserved offsite"`
	Location     *string              `json:"location,omitempty"`
	Availability *availability.Window `json:"availability,omitempty"`
}
