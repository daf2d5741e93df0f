package model

import "time"

// ReservationLock is a per-object advisory lock. It is held from the overlap
// check through the commit of the reservation write so that two concurrent
// requests cannot both pass the check before either commits. The unique _id
// makes acquisition atomic; ExpiresAt backs a TTL index so a crashed holder
// cannot wedge an object.
type ReservationLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
