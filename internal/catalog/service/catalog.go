package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	catalogerrors "inventario/internal/catalog/errors"
	"inventario/internal/catalog/repository"
	"inventario/pkg/config"
	apperrors "inventario/pkg/errors"
	"inventario/pkg/model"
)

// ObjectCounter reports how many objects a site still owns. Satisfied by the
// objects repository; deleting a site with objects would orphan them.
type ObjectCounter interface {
	CountBySite(ctx context.Context, siteID string) (int64, error)
}

type CatalogService interface {
	CreateSite(ctx context.Context, actor model.Actor, site *model.Site) error
	GetSite(ctx context.Context, id string) (*model.Site, error)
	ListSites(ctx context.Context, limit int, offset int64) ([]*model.Site, int64, error)
	UpdateSite(ctx context.Context, actor model.Actor, id string, site *model.Site) error
	DeleteSite(ctx context.Context, actor model.Actor, id string) error

	CreateType(ctx context.Context, actor model.Actor, objectType *model.ObjectType) error
	GetType(ctx context.Context, id string) (*model.ObjectType, error)
	ListTypes(ctx context.Context, limit int, offset int64) ([]*model.ObjectType, int64, error)
	UpdateType(ctx context.Context, actor model.Actor, id string, objectType *model.ObjectType) error
	DeleteType(ctx context.Context, actor model.Actor, id string) error
}

type catalogService struct {
	sites    repository.SiteRepository
	types    repository.TypeRepository
	objects  ObjectCounter
	validate *validator.Validate
	cfg      *config.Config
}

func NewCatalogService(sites repository.SiteRepository, types repository.TypeRepository, objects ObjectCounter, cfg *config.Config) CatalogService {
	return &catalogService{
		sites:    sites,
		types:    types,
		objects:  objects,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (s *catalogService) CreateSite(ctx context.Context, actor model.Actor, site *model.Site) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may manage sites")
	}
	if err := s.validate.Struct(site); err != nil {
		return apperrors.Validation("Invalid site", map[string]any{"error": err.Error()})
	}

	if err := s.sites.Create(ctx, site); err != nil {
		s.cfg.Log.Error("Failed to create site", "name", site.Name, "error", err)
		return apperrors.Internal("Failed to create site", err)
	}

	s.cfg.Log.Info("Site created", "id", site.ID, "name", site.Name)
	return nil
}

func (s *catalogService) GetSite(ctx context.Context, id string) (*model.Site, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Site ID cannot be empty")
	}

	site, err := s.sites.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrSiteNotFound) {
			return nil, apperrors.NotFoundWithID("Site", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid site ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve site", err)
	}

	return site, nil
}

func (s *catalogService) ListSites(ctx context.Context, limit int, offset int64) ([]*model.Site, int64, error) {
	sites, err := s.sites.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve sites", err)
	}
	count, err := s.sites.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count sites", err)
	}
	return sites, count, nil
}

func (s *catalogService) UpdateSite(ctx context.Context, actor model.Actor, id string, site *model.Site) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may manage sites")
	}
	if err := s.validate.Struct(site); err != nil {
		return apperrors.Validation("Invalid site", map[string]any{"error": err.Error()})
	}

	if err := s.sites.Update(ctx, id, site); err != nil {
		if errors.Is(err, catalogerrors.ErrSiteNotFound) {
			return apperrors.NotFoundWithID("Site", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid site ID format")
		}
		return apperrors.Internal("Failed to update site", err)
	}

	s.cfg.Log.Info("Site updated", "id", id)
	return nil
}

func (s *catalogService) DeleteSite(ctx context.Context, actor model.Actor, id string) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may manage sites")
	}
	if id == "" {
		return apperrors.InvalidInput("Site ID cannot be empty")
	}

	count, err := s.objects.CountBySite(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to count site objects", err)
	}
	if count > 0 {
		return apperrors.State(fmt.Sprintf("site still owns %d object(s); move or delete them first", count))
	}

	if err := s.sites.Delete(ctx, id); err != nil {
		if errors.Is(err, catalogerrors.ErrSiteNotFound) {
			return apperrors.NotFoundWithID("Site", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid site ID format")
		}
		return apperrors.Internal("Failed to delete site", err)
	}

	s.cfg.Log.Info("Site deleted", "id", id)
	return nil
}

func (s *catalogService) CreateType(ctx context.Context, actor model.Actor, objectType *model.ObjectType) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may manage object types")
	}
	if err := s.validate.Struct(objectType); err != nil {
		return apperrors.Validation("Invalid object type", map[string]any{"error": err.Error()})
	}

	if err := s.types.Create(ctx, objectType); err != nil {
		s.cfg.Log.Error("Failed to create object type", "name", objectType.Name, "error", err)
		return apperrors.Internal("Failed to create object type", err)
	}

	s.cfg.Log.Info("Object type created", "id", objectType.ID, "name", objectType.Name)
	return nil
}

func (s *catalogService) GetType(ctx context.Context, id string) (*model.ObjectType, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Type ID cannot be empty")
	}

	objectType, err := s.types.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrTypeNotFound) {
			return nil, apperrors.NotFoundWithID("Type", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid type ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve object type", err)
	}

	return objectType, nil
}

func (s *catalogService) ListTypes(ctx context.Context, limit int, offset int64) ([]*model.ObjectType, int64, error) {
	types, err := s.types.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve object types", err)
	}
	count, err := s.types.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count object types", err)
	}
	return types, count, nil
}

func (s *catalogService) UpdateType(ctx context.Context, actor model.Actor, id string, objectType *model.ObjectType) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may manage object types")
	}
	if err := s.validate.Struct(objectType); err != nil {
		return apperrors.Validation("Invalid object type", map[string]any{"error": err.Error()})
	}

	if err := s.types.Update(ctx, id, objectType); err != nil {
		if errors.Is(err, catalogerrors.ErrTypeNotFound) {
			return apperrors.NotFoundWithID("Type", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid type ID format")
		}
		return apperrors.Internal("Failed to update object type", err)
	}

	s.cfg.Log.Info("Object type updated", "id", id)
	return nil
}

func (s *catalogService) DeleteType(ctx context.Context, actor model.Actor, id string) error {
	if !actor.Privileged {
		return apperrors.Forbidden("Only privileged users may manage object types")
	}
	if id == "" {
		return apperrors.InvalidInput("Type ID cannot be empty")
	}

	if err := s.types.Delete(ctx, id); err != nil {
		if errors.Is(err, catalogerrors.ErrTypeNotFound) {
			return apperrors.NotFoundWithID("Type", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid type ID format")
		}
		return apperrors.Internal("Failed to delete object type", err)
	}

	s.cfg.Log.Info("Object type deleted", "id", id)
	return nil
}
