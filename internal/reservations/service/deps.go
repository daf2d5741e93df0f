package service

import (
	"context"

	"inventario/pkg/model"
)

// ObjectStore is the slice of the object repository the reservation core
// needs: lookups for policy decisions and the cached status write.
type ObjectStore interface {
	FindByID(ctx context.Context, id string) (*model.Object, error)
	SetStatus(ctx context.Context, id string, status string) error
}

// TypeStore resolves the owning type, which carries the return and location
// policies.
type TypeStore interface {
	FindByID(ctx context.Context, id string) (*model.ObjectType, error)
}
