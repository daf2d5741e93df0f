package service

import (
	"context"
	"fmt"
	"testing"

	catalogerrors "inventario/internal/catalog/errors"
	"inventario/pkg/config"
	apperrors "inventario/pkg/errors"
	"inventario/pkg/logger"
	"inventario/pkg/model"
)

var (
	member = model.Actor{UserID: "user-1"}
	admin  = model.Actor{UserID: "admin-1", Privileged: true}
)

type fakeSiteRepo struct {
	sites  map[string]*model.Site
	nextID int
}

func newFakeSiteRepo() *fakeSiteRepo {
	return &fakeSiteRepo{sites: make(map[string]*model.Site)}
}

func (r *fakeSiteRepo) Create(_ context.Context, site *model.Site) error {
	r.nextID++
	site.ID = fmt.Sprintf("%024x", r.nextID)
	clone := *site
	r.sites[site.ID] = &clone
	return nil
}

func (r *fakeSiteRepo) FindByID(_ context.Context, id string) (*model.Site, error) {
	site, ok := r.sites[id]
	if !ok {
		return nil, catalogerrors.ErrSiteNotFound
	}
	clone := *site
	return &clone, nil
}

func (r *fakeSiteRepo) FindAll(_ context.Context, _ int, _ int64) ([]*model.Site, error) {
	var out []*model.Site
	for _, site := range r.sites {
		clone := *site
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeSiteRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.sites)), nil
}

func (r *fakeSiteRepo) Update(_ context.Context, id string, site *model.Site) error {
	if _, ok := r.sites[id]; !ok {
		return catalogerrors.ErrSiteNotFound
	}
	clone := *site
	clone.ID = id
	r.sites[id] = &clone
	return nil
}

func (r *fakeSiteRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.sites[id]; !ok {
		return catalogerrors.ErrSiteNotFound
	}
	delete(r.sites, id)
	return nil
}

type fakeTypeRepo struct {
	types  map[string]*model.ObjectType
	nextID int
}

func newFakeTypeRepo() *fakeTypeRepo {
	return &fakeTypeRepo{types: make(map[string]*model.ObjectType)}
}

func (r *fakeTypeRepo) Create(_ context.Context, objectType *model.ObjectType) error {
	r.nextID++
	objectType.ID = fmt.Sprintf("%024x", r.nextID+1000)
	clone := *objectType
	r.types[objectType.ID] = &clone
	return nil
}

func (r *fakeTypeRepo) FindByID(_ context.Context, id string) (*model.ObjectType, error) {
	objectType, ok := r.types[id]
	if !ok {
		return nil, catalogerrors.ErrTypeNotFound
	}
	clone := *objectType
	return &clone, nil
}

func (r *fakeTypeRepo) FindAll(_ context.Context, _ int, _ int64) ([]*model.ObjectType, error) {
	var out []*model.ObjectType
	for _, objectType := range r.types {
		clone := *objectType
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeTypeRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.types)), nil
}

func (r *fakeTypeRepo) Update(_ context.Context, id string, objectType *model.ObjectType) error {
	if _, ok := r.types[id]; !ok {
		return catalogerrors.ErrTypeNotFound
	}
	clone := *objectType
	clone.ID = id
	r.types[id] = &clone
	return nil
}

func (r *fakeTypeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.types[id]; !ok {
		return catalogerrors.ErrTypeNotFound
	}
	delete(r.types, id)
	return nil
}

type fakeObjectCounter struct {
	counts map[string]int64
}

func (c *fakeObjectCounter) CountBySite(_ context.Context, siteID string) (int64, error) {
	return c.counts[siteID], nil
}

func newCatalogFixture() (CatalogService, *fakeSiteRepo, *fakeTypeRepo, *fakeObjectCounter) {
	sites := newFakeSiteRepo()
	types := newFakeTypeRepo()
	counter := &fakeObjectCounter{counts: make(map[string]int64)}
	cfg := &config.Config{Log: logger.New(logger.Config{Level: "error", Format: "text"})}
	return NewCatalogService(sites, types, counter, cfg), sites, types, counter
}

func TestCreateSite_RequiresPrivilege(t *testing.T) {
	svc, sites, _, _ := newCatalogFixture()

	err := svc.CreateSite(context.Background(), member, &model.Site{Name: "Main hall"})
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if len(sites.sites) != 0 {
		t.Fatal("site should not have been written")
	}
}

func TestDeleteSite_BlockedWhileObjectsRemain(t *testing.T) {
	svc, sites, _, counter := newCatalogFixture()

	site := &model.Site{Name: "Storage"}
	if err := svc.CreateSite(context.Background(), admin, site); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	counter.counts[site.ID] = 2

	err := svc.DeleteSite(context.Background(), admin, site.ID)
	if !apperrors.HasCode(err, apperrors.CodeState) {
		t.Fatalf("expected STATE_ERROR, got %v", err)
	}
	if _, ok := sites.sites[site.ID]; !ok {
		t.Fatal("site should survive a blocked delete")
	}

	counter.counts[site.ID] = 0
	if err := svc.DeleteSite(context.Background(), admin, site.ID); err != nil {
		t.Fatalf("delete of empty site failed: %v", err)
	}
	if _, ok := sites.sites[site.ID]; ok {
		t.Fatal("site should be gone")
	}
}

func TestDeleteSite_Missing(t *testing.T) {
	svc, _, _, _ := newCatalogFixture()

	err := svc.DeleteSite(context.Background(), admin, "507f1f77bcf86cd799439099")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCreateType_InvalidColorRejected(t *testing.T) {
	svc, _, types, _ := newCatalogFixture()

	err := svc.CreateType(context.Background(), admin, &model.ObjectType{Name: "Camera", Color: "blue-ish"})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if len(types.types) != 0 {
		t.Fatal("type should not have been written")
	}
}

func TestUpdateType_PolicyFlagsPersist(t *testing.T) {
	svc, _, types, _ := newCatalogFixture()

	objectType := &model.ObjectType{Name: "Camera", Color: "#336699"}
	if err := svc.CreateType(context.Background(), admin, objectType); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	objectType.RequiresReturn = true
	objectType.RequiresLocation = true
	if err := svc.UpdateType(context.Background(), admin, objectType.ID, objectType); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	stored := types.types[objectType.ID]
	if !stored.RequiresReturn || !stored.RequiresLocation {
		t.Fatalf("policy flags lost: %+v", stored)
	}
}
