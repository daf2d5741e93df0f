package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"inventario/internal/entitlements"
	objectserrors "inventario/internal/objects/errors"
	"inventario/internal/objects/repository"
	"inventario/pkg/config"
	apperrors "inventario/pkg/errors"
	"inventario/pkg/model"
)

type ObjectService interface {
	Create(ctx context.Context, actor model.Actor, object *model.Object) error
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Object, error)
	List(ctx context.Context, actor model.Actor, filter repository.Filter, limit int, offset int64) ([]*model.Object, int64, error)
	Update(ctx context.Context, actor model.Actor, id string, updates *model.ObjectUpdate) (*model.Object, error)
	SetVisibility(ctx context.Context, actor model.Actor, id string, visible bool) error
	Delete(ctx context.Context, actor model.Actor, id string) error
}

type objectService struct {
	repo     repository.ObjectRepository
	gate     entitlements.Gate
	validate *validator.Validate
	cfg      *config.Config
}

func NewObjectService(repo repository.ObjectRepository, gate entitlements.Gate, cfg *config.Config) ObjectService {
	return &objectService{
		repo:     repo,
		gate:     gate,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (s *objectService) Create(ctx context.Context, actor model.Actor, object *model.Object) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may create objects")
	}

	if object.Status == "" {
		object.Status = model.ObjectAvailable
	}
	object.CreatedBy = actor.UserID

	if err := s.validate.Struct(object); err != nil {
		return apperrors.Validation("Invalid object", map[string]any{"error": err.Error()})
	}
	if err := object.Availability.Normalize(); err != nil {
		return apperrors.Validation(err.Error(), nil)
	}

	limits := s.gate.Limits(ctx)
	count, err := s.repo.Count(ctx)
	if err != nil {
		return apperrors.Internal("Failed to count objects", err)
	}
	if limits.MaxObjects > 0 && count >= int64(limits.MaxObjects) {
		return apperrors.Entitlement(fmt.Sprintf("object limit of %d reached for the current plan", limits.MaxObjects))
	}

	// Hidden objects are a paid feature; the free tier publishes everything.
	if !limits.AllowHidden {
		object.Visible = true
	}

	if object.Availability != nil && object.Availability.Enabled {
		if err := s.gate.RequirePro(ctx, "availability windows"); err != nil {
			return err
		}
	}

	if err := s.repo.Create(ctx, object); err != nil {
		s.cfg.Log.Error("Failed to create object", "name", object.Name, "error", err)
		return apperrors.Internal("Failed to create object", err)
	}

	s.cfg.Log.Info("Object created", "id", object.ID, "name", object.Name, "site_id", object.SiteID)
	return nil
}

func (s *objectService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Object, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Object ID cannot be empty")
	}

	object, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, id)
	}

	// Hidden objects are indistinguishable from missing ones for
	// non-privileged callers.
	if !object.Visible && !actor.Privileged {
		return nil, apperrors.NotFoundWithID("Object", id)
	}

	return object, nil
}

func (s *objectService) List(ctx context.Context, actor model.Actor, filter repository.Filter, limit int, offset int64) ([]*model.Object, int64, error) {
	if !actor.Privileged {
		filter.VisibleOnly = true
	}

	objects, err := s.repo.FindByFilter(ctx, filter, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list objects", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve objects", err)
	}

	count, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to count objects", "error", err)
		return nil, 0, apperrors.Internal("Failed to count objects", err)
	}

	return objects, count, nil
}

func (s *objectService) Update(ctx context.Context, actor model.Actor, id string, updates *model.ObjectUpdate) (*model.Object, error) {
	if !actor.Privileged {
		return nil, apperrors.Forbidden("Only privileged users may edit objects")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Object ID cannot be empty")
	}
	if err := s.validate.Struct(updates); err != nil {
		return nil, apperrors.Validation("Invalid object update", map[string]any{"error": err.Error()})
	}
	if err := updates.Availability.Normalize(); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, id)
	}

	merged := s.mergeUpdates(existing, updates)
	if err := s.validate.Struct(merged); err != nil {
		return nil, apperrors.Validation("Invalid object", map[string]any{"error": err.Error()})
	}

	if updates.Availability != nil && updates.Availability.Enabled {
		if err := s.gate.RequirePro(ctx, "availability windows"); err != nil {
			return nil, err
		}
	}

	if _, err := s.repo.Update(ctx, id, merged); err != nil {
		s.cfg.Log.Error("Failed to update object", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update object", err)
	}

	s.cfg.Log.Info("Object updated", "id", id)
	return merged, nil
}

func (s *objectService) SetVisibility(ctx context.Context, actor model.Actor, id string, visible bool) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may change object visibility")
	}
	if id == "" {
		return apperrors.InvalidInput("Object ID cannot be empty")
	}

	if !visible && !s.gate.Limits(ctx).AllowHidden {
		return apperrors.Entitlement("hiding objects requires an upgraded plan")
	}

	if err := s.repo.SetVisibility(ctx, id, visible); err != nil {
		if errors.Is(err, objectserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Object", id)
		}
		if errors.Is(err, objectserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid object ID format")
		}
		s.cfg.Log.Error("Failed to set object visibility", "id", id, "error", err)
		return apperrors.Internal("Failed to set object visibility", err)
	}

	s.cfg.Log.Info("Object visibility changed", "id", id, "visible", visible)
	return nil
}

func (s *objectService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may delete objects")
	}
	if id == "" {
		return apperrors.InvalidInput("Object ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, objectserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Object", id)
		}
		if errors.Is(err, objectserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid object ID format")
		}
		s.cfg.Log.Error("Failed to delete object", "id", id, "error", err)
		return apperrors.Internal("Failed to delete object", err)
	}

	s.cfg.Log.Info("Object deleted", "id", id)
	return nil
}

func (s *objectService) mergeUpdates(existing *model.Object, updates *model.ObjectUpdate) *model.Object {
	merged := *existing

	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.SiteID != nil {
		merged.SiteID = *updates.SiteID
	}
	if updates.TypeID != nil {
		merged.TypeID = *updates.TypeID
	}
	if updates.Status != nil {
		merged.Status = *updates.Status
	}
	if updates.Location != nil {
		merged.Location = *updates.Location
	}
	if updates.Availability != nil {
		merged.Availability = updates.Availability
	}

	return &merged
}

func translateLookupError(err error, id string) error {
	if errors.Is(err, objectserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Object", id)
	}
	if errors.Is(err, objectserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid object ID format")
	}
	return apperrors.Internal("Failed to retrieve object", err)
}
