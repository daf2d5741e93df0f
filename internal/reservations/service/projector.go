package service

import (
	"context"

	"inventario/internal/reservations/repository"
	"inventario/pkg/logger"
	"inventario/pkg/model"
)

// StatusProjector maintains the object's cached available/reserved field.
// The cache is a display hint only; it is never consulted for conflict
// decisions and is not recomputed on the passage of time. Projection failures
// are logged and swallowed so they cannot roll back a committed reservation.
type StatusProjector struct {
	objects      ObjectStore
	reservations repository.ReservationRepository
	log          *logger.Logger
}

func NewStatusProjector(objects ObjectStore, reservations repository.ReservationRepository, log *logger.Logger) *StatusProjector {
	return &StatusProjector{
		objects:      objects,
		reservations: reservations,
		log:          log,
	}
}

// MarkReserved sets the cached status to reserved unconditionally after a
// successful create or edit. Optimistic: not re-verified against current time.
func (p *StatusProjector) MarkReserved(ctx context.Context, objectID string) {
	if err := p.objects.SetStatus(ctx, objectID, model.ObjectReserved); err != nil {
		p.log.Warn("Failed to project reserved status", "object_id", objectID, "error", err)
	}
}

// MarkAvailable sets the cached status to available only if no active
// reservation remains for the object. Called after a return or cancel.
func (p *StatusProjector) MarkAvailable(ctx context.Context, objectID string) {
	count, err := p.reservations.CountByFilter(ctx, repository.Filter{
		ObjectID: objectID,
		Status:   model.ReservationActive,
	})
	if err != nil {
		p.log.Warn("Failed to count active reservations for projection", "object_id", objectID, "error", err)
		return
	}
	if count > 0 {
		return
	}

	if err := p.objects.SetStatus(ctx, objectID, model.ObjectAvailable); err != nil {
		p.log.Warn("Failed to project available status", "object_id", objectID, "error", err)
	}
}
