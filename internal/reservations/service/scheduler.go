package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"inventario/internal/entitlements"
	"inventario/internal/notifications"
	objectserrors "inventario/internal/objects/errors"
	reservationserrors "inventario/internal/reservations/errors"
	"inventario/internal/reservations/repository"
	"inventario/internal/reservations/validator"
	"inventario/pkg/config"
	apperrors "inventario/pkg/errors"
	"inventario/pkg/model"
)

const lockIDPrefix = "reservation_lock_"

type SchedulerService interface {
	// Save covers both create and edit (edit signalled by a present ID).
	// It returns the written reservation (the first occurrence for a
	// periodic series) and the number of occurrences written.
	Save(ctx context.Context, actor model.Actor, req *model.ReservationRequest) (*model.Reservation, int, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	List(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Reservation, int64, error)
}

type schedulerService struct {
	repo       repository.ReservationRepository
	lockRepo   repository.ReservationLockRepository
	objects    ObjectStore
	types      TypeStore
	gate       entitlements.Gate
	projector  *StatusProjector
	dispatcher notifications.Dispatcher
	validator  *validator.ReservationValidator
	cfg        *config.Config
	now        func() time.Time
}

func NewSchedulerService(
	repo repository.ReservationRepository,
	lockRepo repository.ReservationLockRepository,
	objects ObjectStore,
	types TypeStore,
	gate entitlements.Gate,
	projector *StatusProjector,
	dispatcher notifications.Dispatcher,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) SchedulerService {
	return &schedulerService{
		repo:       repo,
		lockRepo:   lockRepo,
		objects:    objects,
		types:      types,
		gate:       gate,
		projector:  projector,
		dispatcher: dispatcher,
		validator:  validator,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *schedulerService) Save(ctx context.Context, actor model.Actor, req *model.ReservationRequest) (*model.Reservation, int, error) {
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, 0, apperrors.Validation("Invalid reservation request", map[string]any{"error": err.Error()})
	}

	object, err := s.objects.FindByID(ctx, req.ObjectID)
	if err != nil {
		if errors.Is(err, objectserrors.ErrNotFound) {
			return nil, 0, apperrors.NotFoundWithID("Object", req.ObjectID)
		}
		if errors.Is(err, objectserrors.ErrInvalidID) {
			return nil, 0, apperrors.InvalidInput("Invalid object ID format")
		}
		return nil, 0, apperrors.Internal("Failed to load object", err)
	}

	if !object.Visible && !actor.Privileged {
		return nil, 0, apperrors.Forbidden("Hidden objects can only be reserved by privileged users")
	}

	objectType, err := s.types.FindByID(ctx, object.TypeID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to load object type", err)
	}

	location := strings.TrimSpace(req.Location)
	if objectType.RequiresLocation {
		if location == "" {
			return nil, 0, apperrors.Validation("Location is required for this object type", nil)
		}
	} else {
		// The type forbids a location; any supplied value is discarded.
		location = ""
	}

	if !req.TimeEnd.After(req.TimeStart) {
		return nil, 0, apperrors.Validation("time_end must be after time_start", nil)
	}

	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.Privileged {
		return nil, 0, apperrors.Forbidden("Only privileged users may reserve on behalf of another user")
	}

	if err := object.Availability.EnforceRange(req.TimeStart, req.TimeEnd); err != nil {
		return nil, 0, apperrors.Validation(err.Error(), map[string]any{
			"time_start": req.TimeStart,
			"time_end":   req.TimeEnd,
		})
	}

	siteID := req.SiteID
	if siteID == "" {
		siteID = object.SiteID
	}

	isEdit := req.ID != ""
	var existing *model.Reservation
	if isEdit {
		existing, err = s.loadForEdit(ctx, actor, req.ID)
		if err != nil {
			return nil, 0, err
		}
	}

	occurrences, err := s.buildOccurrences(ctx, isEdit, req, object, userID, siteID, location)
	if err != nil {
		return nil, 0, err
	}

	if err := s.acquireLock(ctx, req.ObjectID); err != nil {
		return nil, 0, err
	}
	defer s.releaseLock(ctx, req.ObjectID)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx context.Context) error {
		if isEdit {
			return s.writeEdit(sessCtx, existing, occurrences[0])
		}
		return s.writeCreate(sessCtx, object, occurrences)
	})
	if err != nil {
		s.cfg.Log.Error("Failed to save reservation",
			"object_id", req.ObjectID,
			"user_id", userID,
			"edit", isEdit,
			"error", err,
		)
		return nil, 0, err
	}

	first := occurrences[0]
	if isEdit {
		first.ID = existing.ID
		first.CreatedAt = existing.CreatedAt
	}

	s.projector.MarkReserved(ctx, req.ObjectID)
	if isEdit && existing.ObjectID != req.ObjectID {
		// The edit moved the reservation; the old object may have no
		// active rows left.
		s.projector.MarkAvailable(ctx, existing.ObjectID)
	}
	s.dispatcher.SendConfirmation(ctx, first, len(occurrences))

	s.cfg.Log.Info("Reservation saved",
		"id", first.ID,
		"object_id", first.ObjectID,
		"user_id", first.UserID,
		"occurrences", len(occurrences),
		"edit", isEdit,
	)
	return first, len(occurrences), nil
}

// loadForEdit fetches the reservation being edited and checks lifecycle and
// ownership. A missing row is a state failure rather than a lookup miss: the
// caller asserted the reservation exists by naming its id.
func (s *schedulerService) loadForEdit(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.State("Reservation does not exist")
		}
		return nil, apperrors.Internal("Failed to load reservation", err)
	}

	if existing.Status != model.ReservationActive {
		return nil, apperrors.State("Returned reservations cannot be edited")
	}
	if existing.ExpiredAt(s.now()) {
		return nil, apperrors.State("Expired reservations cannot be edited")
	}
	if existing.UserID != actor.UserID && !actor.Privileged {
		return nil, apperrors.Forbidden("Only the owner or a privileged user may edit this reservation")
	}

	return existing, nil
}

// buildOccurrences materializes the requested interval(s). For a plain save
// this is a single reservation; for a permitted periodic create it is the
// whole series spaced repeatDays apart, each occurrence already checked
// against the availability window.
func (s *schedulerService) buildOccurrences(ctx context.Context, isEdit bool, req *model.ReservationRequest, object *model.Object, userID, siteID, location string) ([]*model.Reservation, error) {
	repeatCount := 1
	repeatDays := 0

	// Periodic applies to creates only; the flag is ignored on edit.
	if req.Periodic && !isEdit {
		limits := s.gate.Limits(ctx)
		if !s.cfg.AllowPeriodic || !limits.PeriodicEnabled {
			return nil, apperrors.Entitlement("periodic reservations are not enabled")
		}

		repeatCount = max(req.RepeatCount, 1)
		repeatDays = max(req.RepeatDays, 1)
		if limits.PeriodicMax > 0 && repeatCount > limits.PeriodicMax {
			repeatCount = limits.PeriodicMax
		}
		if limits.PeriodicGapDays > 0 && repeatDays > limits.PeriodicGapDays {
			repeatDays = limits.PeriodicGapDays
		}
	}

	occurrences := make([]*model.Reservation, 0, repeatCount)
	for i := 0; i < repeatCount; i++ {
		offset := time.Duration(i*repeatDays) * 24 * time.Hour
		start := req.TimeStart.Add(offset)
		end := req.TimeEnd.Add(offset)

		if i > 0 {
			if err := object.Availability.EnforceRange(start, end); err != nil {
				return nil, apperrors.Validation(err.Error(), map[string]any{
					"occurrence": i,
					"time_start": start,
					"time_end":   end,
				})
			}
		}

		occurrences = append(occurrences, &model.Reservation{
			ObjectID:  req.ObjectID,
			UserID:    userID,
			SiteID:    siteID,
			TimeStart: start,
			TimeEnd:   end,
			Location:  location,
			Status:    model.ReservationActive,
		})
	}

	return occurrences, nil
}

// writeCreate re-checks overlap for every occurrence inside the transaction
// and inserts the batch. The first conflict aborts the whole batch with
// nothing persisted.
func (s *schedulerService) writeCreate(ctx context.Context, object *model.Object, occurrences []*model.Reservation) error {
	for i, occ := range occurrences {
		if err := s.checkConflict(ctx, occ.ObjectID, occ.TimeStart, occ.TimeEnd, "", i); err != nil {
			return err
		}
	}

	if len(occurrences) == 1 {
		if err := s.repo.Create(ctx, occurrences[0]); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	}

	if err := s.repo.CreateMany(ctx, occurrences); err != nil {
		return apperrors.Internal("Failed to create reservation series", err)
	}
	return nil
}

func (s *schedulerService) writeEdit(ctx context.Context, existing *model.Reservation, updated *model.Reservation) error {
	if err := s.checkConflict(ctx, updated.ObjectID, updated.TimeStart, updated.TimeEnd, existing.ID, 0); err != nil {
		return err
	}

	merged := *existing
	merged.ObjectID = updated.ObjectID
	merged.UserID = updated.UserID
	merged.SiteID = updated.SiteID
	merged.TimeStart = updated.TimeStart
	merged.TimeEnd = updated.TimeEnd
	merged.Location = updated.Location

	// An edit that pushes the end back into the future re-arms the expiry
	// notification for the external sweep.
	if merged.ExpiredNotified && merged.TimeEnd.After(s.now()) {
		merged.ExpiredNotified = false
	}

	if _, err := s.repo.Update(ctx, existing.ID, &merged); err != nil {
		return apperrors.Internal("Failed to update reservation", err)
	}
	return nil
}

func (s *schedulerService) checkConflict(ctx context.Context, objectID string, start, end time.Time, excludeID string, occurrence int) error {
	blocking, err := s.repo.FindActiveOverlap(ctx, objectID, start, end, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check for overlapping reservations", err)
	}
	if len(blocking) == 0 {
		return nil
	}

	details := map[string]any{
		"blocking_id":   blocking[0].ID,
		"blocking_from": blocking[0].TimeStart,
		"blocking_to":   blocking[0].TimeEnd,
	}
	if occurrence > 0 {
		details["occurrence"] = occurrence
	}
	return apperrors.Conflict("The requested interval overlaps an existing reservation").WithDetails(details)
}

// acquireLock takes the per-object advisory lock held from the overlap check
// through the commit. Contention surfaces as a duplicate key insert.
func (s *schedulerService) acquireLock(ctx context.Context, objectID string) error {
	lock := &model.ReservationLock{
		ID:        lockIDPrefix + objectID,
		ExpiresAt: s.now().Add(s.cfg.ReservationLockTTL),
	}

	if _, err := s.lockRepo.Create(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("The object is being reserved by a concurrent request, try again")
		}
		return apperrors.Internal("Failed to acquire reservation lock", err)
	}
	return nil
}

func (s *schedulerService) releaseLock(ctx context.Context, objectID string) {
	if err := s.lockRepo.Delete(ctx, lockIDPrefix+objectID); err != nil {
		s.cfg.Log.Warn("Failed to release reservation lock", "object_id", objectID, "error", err)
	}
}

func (s *schedulerService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	return reservation, nil
}

func (s *schedulerService) List(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Reservation, int64, error) {
	reservations, err := s.repo.FindByFilter(ctx, filter, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve reservations", err)
	}

	count, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to count reservations", "error", err)
		return nil, 0, apperrors.Internal("Failed to count reservations", err)
	}

	return reservations, count, nil
}
