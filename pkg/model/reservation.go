package model

import (
	"time"
)

const (
	ReservationActive   = "active"
	ReservationReturned = "returned"
)

type Reservation struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ObjectID        string    `json:"object_id" bson:"object_id" validate:"required,mongodb"`
	UserID          string    `json:"user_id" bson:"user_id" validate:"required"`
	SiteID          string    `json:"site_id" bson:"site_id" validate:"omitempty,mongodb"`
	TimeStart       time.Time `json:"time_start" bson:"time_start" validate:"required"`
	TimeEnd         time.Time `json:"time_end" bson:"time_end" validate:"required"`
	Location        string    `json:"location,omitempty" bson:"location"`
	Status          string    `json:"status" bson:"status" validate:"required,oneof=active returned"`
	ExpiredNotified bool      `json:"expired_notified" bson:"expired_notified"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	ModifiedAt      time.Time `json:"modified_at" bson:"modified_at" validate:"omitempty"`
}

// ReservationRequest is the scheduler input for both create and edit.
// A present ID signals an edit; Periodic is honored on create only.
type ReservationRequest struct {
	ID          string    `json:"id,omitempty" validate:"omitempty,mongodb"`
	ObjectID    string    `json:"object_id" validate:"required,mongodb"`
	UserID      string    `json:"user_id,omitempty"`
	SiteID      string    `json:"site_id,omitempty" validate:"omitempty,mongodb"`
	TimeStart   time.Time `json:"time_start" validate:"required"`
	TimeEnd     time.Time `json:"time_end" validate:"required"`
	Location    string    `json:"location,omitempty" validate:"omitempty,max=255"`
	Periodic    bool      `json:"periodic,omitempty"`
	RepeatCount int       `json:"repeat_count,omitempty" validate:"omitempty,min=0,max=1000"`
	RepeatDays  int       `json:"repeat_days,omitempty" validate:"omitempty,min=0,max=365"`
}

// Actor is the authenticated caller context. Capability checks happen at the
// gateway; Privileged mirrors the manage-all capability and CanManageReturns
// the explicit return-management right.
type Actor struct {
	UserID           string
	Privileged       bool
	CanManageReturns bool
}

// ActiveAt reports whether the reservation occupies the instant under
// half-open [TimeStart, TimeEnd) semantics.
func (r *Reservation) ActiveAt(at time.Time) bool {
	return r.Status == ReservationActive && !r.TimeStart.After(at) && r.TimeEnd.After(at)
}

// ExpiredAt reports whether the reservation's interval has fully passed.
func (r *Reservation) ExpiredAt(at time.Time) bool {
	return !r.TimeEnd.After(at)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
