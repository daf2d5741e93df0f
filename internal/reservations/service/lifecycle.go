package service

import (
	"context"
	"errors"
	"time"

	objectserrors "inventario/internal/objects/errors"
	reservationserrors "inventario/internal/reservations/errors"
	"inventario/internal/reservations/repository"
	"inventario/pkg/config"
	apperrors "inventario/pkg/errors"
	"inventario/pkg/model"
)

// LifecycleService is the return/cancellation state machine. The only
// transition is active -> returned and it is terminal; reservations are never
// physically deleted, history is preserved.
type LifecycleService interface {
	IsActiveNow(ctx context.Context, objectID string) (bool, error)
	CountOpenReturns(ctx context.Context, objectID string) (int64, error)
	Return(ctx context.Context, actor model.Actor, id string) error
	Delete(ctx context.Context, actor model.Actor, id string) error
}

type lifecycleService struct {
	repo      repository.ReservationRepository
	objects   ObjectStore
	types     TypeStore
	projector *StatusProjector
	cfg       *config.Config
	now       func() time.Time
}

func NewLifecycleService(
	repo repository.ReservationRepository,
	objects ObjectStore,
	types TypeStore,
	projector *StatusProjector,
	cfg *config.Config,
) LifecycleService {
	return &lifecycleService{
		repo:      repo,
		objects:   objects,
		types:     types,
		projector: projector,
		cfg:       cfg,
		now:       time.Now,
	}
}

// IsActiveNow is the ground-truth "is this object in use right now" check,
// unlike the cached object status.
func (s *lifecycleService) IsActiveNow(ctx context.Context, objectID string) (bool, error) {
	if objectID == "" {
		return false, apperrors.InvalidInput("Object ID cannot be empty")
	}

	active, err := s.repo.HasActiveAt(ctx, objectID, s.now())
	if err != nil {
		return false, apperrors.Internal("Failed to check active reservations", err)
	}
	return active, nil
}

// CountOpenReturns counts active reservations whose interval has already
// passed, flagging objects awaiting physical return. Types that do not
// require a return always report zero.
func (s *lifecycleService) CountOpenReturns(ctx context.Context, objectID string) (int64, error) {
	if objectID == "" {
		return 0, apperrors.InvalidInput("Object ID cannot be empty")
	}

	object, err := s.objects.FindByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, objectserrors.ErrNotFound) {
			return 0, apperrors.NotFoundWithID("Object", objectID)
		}
		if errors.Is(err, objectserrors.ErrInvalidID) {
			return 0, apperrors.InvalidInput("Invalid object ID format")
		}
		return 0, apperrors.Internal("Failed to load object", err)
	}

	objectType, err := s.types.FindByID(ctx, object.TypeID)
	if err != nil {
		return 0, apperrors.Internal("Failed to load object type", err)
	}
	if !objectType.RequiresReturn {
		return 0, nil
	}

	count, err := s.repo.CountActiveEndedBefore(ctx, objectID, s.now())
	if err != nil {
		return 0, apperrors.Internal("Failed to count open returns", err)
	}
	return count, nil
}

func (s *lifecycleService) Return(ctx context.Context, actor model.Actor, id string) error {
	reservation, err := s.loadForTransition(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.close(ctx, reservation)
}

// Delete is a soft delete and behaves exactly like Return, except that an
// already-expired reservation is rejected: history of a completed loan must
// be closed through the return action.
func (s *lifecycleService) Delete(ctx context.Context, actor model.Actor, id string) error {
	reservation, err := s.loadForTransition(ctx, actor, id)
	if err != nil {
		return err
	}

	if reservation.ExpiredAt(s.now()) {
		return apperrors.State("Expired reservations cannot be deleted, return them instead")
	}

	return s.close(ctx, reservation)
}

func (s *lifecycleService) loadForTransition(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.State("Reservation does not exist")
		}
		return nil, apperrors.Internal("Failed to load reservation", err)
	}

	if reservation.Status != model.ReservationActive {
		return nil, apperrors.State("Reservation is already returned")
	}

	owner := reservation.UserID == actor.UserID
	manager := actor.Privileged && actor.CanManageReturns
	if !owner && !manager {
		return nil, apperrors.Forbidden("Only the owner or a return manager may close this reservation")
	}

	return reservation, nil
}

// close marks the reservation returned, clamps its end to the return instant,
// sweeps stale siblings, and re-derives the object's cached status. The row
// updates run in one transaction; the projection runs after commit.
func (s *lifecycleService) close(ctx context.Context, reservation *model.Reservation) error {
	now := s.now().UTC().Truncate(time.Millisecond)

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx context.Context) error {
		closed := *reservation
		closed.Status = model.ReservationReturned
		if closed.TimeEnd.After(now) {
			closed.TimeEnd = now
		}

		if _, err := s.repo.Update(sessCtx, reservation.ID, &closed); err != nil {
			return apperrors.Internal("Failed to return reservation", err)
		}

		// Any other active row starting at or before this one logically
		// should already have closed; collapse them in the same commit.
		swept, err := s.repo.SweepReturned(sessCtx, reservation.ObjectID, reservation.ID, reservation.TimeStart, now)
		if err != nil {
			return apperrors.Internal("Failed to sweep stale reservations", err)
		}
		if swept > 0 {
			s.cfg.Log.Info("Swept stale reservations on return",
				"object_id", reservation.ObjectID,
				"reservation_id", reservation.ID,
				"swept", swept,
			)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to close reservation", "id", reservation.ID, "error", err)
		return err
	}

	s.projector.MarkAvailable(ctx, reservation.ObjectID)

	s.cfg.Log.Info("Reservation returned", "id", reservation.ID, "object_id", reservation.ObjectID)
	return nil
}
