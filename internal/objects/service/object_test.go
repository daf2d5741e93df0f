package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"inventario/internal/entitlements"
	objectserrors "inventario/internal/objects/errors"
	"inventario/internal/objects/repository"
	"inventario/pkg/availability"
	"inventario/pkg/config"
	apperrors "inventario/pkg/errors"
	"inventario/pkg/logger"
	"inventario/pkg/model"
)

const (
	testSiteID = "507f1f77bcf86cd799439021"
	testTypeID = "507f1f77bcf86cd799439031"
)

var (
	member = model.Actor{UserID: "user-1"}
	admin  = model.Actor{UserID: "admin-1", Privileged: true}
)

type fakeObjectRepo struct {
	objects map[string]*model.Object
	nextID  int
}

func newFakeObjectRepo() *fakeObjectRepo {
	return &fakeObjectRepo{objects: make(map[string]*model.Object)}
}

func (r *fakeObjectRepo) allocID() string {
	r.nextID++
	return fmt.Sprintf("%024x", r.nextID)
}

func (r *fakeObjectRepo) Create(_ context.Context, object *model.Object) error {
	object.ID = r.allocID()
	object.CreatedAt = time.Now().UTC()
	object.ModifiedAt = object.CreatedAt
	clone := *object
	r.objects[object.ID] = &clone
	return nil
}

func (r *fakeObjectRepo) FindByID(_ context.Context, id string) (*model.Object, error) {
	object, ok := r.objects[id]
	if !ok {
		return nil, objectserrors.ErrNotFound
	}
	clone := *object
	return &clone, nil
}

func (r *fakeObjectRepo) FindByFilter(_ context.Context, filter repository.Filter, _ int, _ int64) ([]*model.Object, error) {
	var out []*model.Object
	for _, object := range r.objects {
		if r.matches(object, filter) {
			clone := *object
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeObjectRepo) CountByFilter(_ context.Context, filter repository.Filter) (int64, error) {
	var n int64
	for _, object := range r.objects {
		if r.matches(object, filter) {
			n++
		}
	}
	return n, nil
}

func (r *fakeObjectRepo) matches(object *model.Object, filter repository.Filter) bool {
	if filter.SiteID != "" && object.SiteID != filter.SiteID {
		return false
	}
	if filter.TypeID != "" && object.TypeID != filter.TypeID {
		return false
	}
	if filter.Status != "" && object.Status != filter.Status {
		return false
	}
	if filter.VisibleOnly && !object.Visible {
		return false
	}
	return true
}

func (r *fakeObjectRepo) Update(_ context.Context, id string, object *model.Object) (*mongo.UpdateResult, error) {
	if _, ok := r.objects[id]; !ok {
		return nil, objectserrors.ErrNotFound
	}
	clone := *object
	clone.ID = id
	r.objects[id] = &clone
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *fakeObjectRepo) SetStatus(_ context.Context, id string, status string) error {
	object, ok := r.objects[id]
	if !ok {
		return objectserrors.ErrNotFound
	}
	object.Status = status
	return nil
}

func (r *fakeObjectRepo) SetVisibility(_ context.Context, id string, visible bool) error {
	object, ok := r.objects[id]
	if !ok {
		return objectserrors.ErrNotFound
	}
	object.Visible = visible
	return nil
}

func (r *fakeObjectRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.objects[id]; !ok {
		return objectserrors.ErrNotFound
	}
	delete(r.objects, id)
	return nil
}

func (r *fakeObjectRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.objects)), nil
}

func (r *fakeObjectRepo) CountBySite(_ context.Context, siteID string) (int64, error) {
	return r.CountByFilter(context.Background(), repository.Filter{SiteID: siteID})
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Level: "error", Format: "text"}),
	}
}

func newService(limits entitlements.Limits) (ObjectService, *fakeObjectRepo) {
	repo := newFakeObjectRepo()
	return NewObjectService(repo, entitlements.NewStaticGate(limits), testConfig()), repo
}

func validObject() *model.Object {
	return &model.Object{
		Name:    "Projector",
		SiteID:  testSiteID,
		TypeID:  testTypeID,
		Visible: true,
	}
}

func TestCreate_RequiresPrivilege(t *testing.T) {
	svc, repo := newService(entitlements.Limits{Pro: true})

	err := svc.Create(context.Background(), member, validObject())
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if len(repo.objects) != 0 {
		t.Fatalf("expected no objects written, got %d", len(repo.objects))
	}
}

func TestCreate_ObjectLimitReached(t *testing.T) {
	svc, repo := newService(entitlements.Limits{MaxObjects: 1})

	if err := svc.Create(context.Background(), admin, validObject()); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err := svc.Create(context.Background(), admin, validObject())
	if !apperrors.HasCode(err, apperrors.CodeEntitlement) {
		t.Fatalf("expected ENTITLEMENT_ERROR, got %v", err)
	}
	if len(repo.objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(repo.objects))
	}
}

func TestCreate_FreeTierForcesVisible(t *testing.T) {
	svc, repo := newService(entitlements.Limits{MaxObjects: 10})

	object := validObject()
	object.Visible = false
	if err := svc.Create(context.Background(), admin, object); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !repo.objects[object.ID].Visible {
		t.Fatal("expected hidden flag to be overridden on the free tier")
	}
}

func TestCreate_AvailabilityWindowNeedsPro(t *testing.T) {
	svc, _ := newService(entitlements.Limits{MaxObjects: 10, AllowHidden: true})

	object := validObject()
	object.Availability = &availability.Window{
		Enabled: true,
		Slots:   []availability.Slot{{StartMinute: 540, EndMinute: 1020}},
	}
	err := svc.Create(context.Background(), admin, object)
	if !apperrors.HasCode(err, apperrors.CodeEntitlement) {
		t.Fatalf("expected ENTITLEMENT_ERROR, got %v", err)
	}
}

func TestCreate_BackwardsSlotRejected(t *testing.T) {
	svc, repo := newService(entitlements.Limits{Pro: true, MaxObjects: 10})

	object := validObject()
	object.Availability = &availability.Window{
		Enabled: true,
		Slots:   []availability.Slot{{StartMinute: 700, EndMinute: 600}},
	}
	err := svc.Create(context.Background(), admin, object)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for backwards slot, got %v", err)
	}
	if len(repo.objects) != 0 {
		t.Fatalf("expected the whole save rejected, got %d objects", len(repo.objects))
	}
}

func TestCreate_SlotOutsideDayRejected(t *testing.T) {
	svc, _ := newService(entitlements.Limits{Pro: true, MaxObjects: 10})

	object := validObject()
	object.Availability = &availability.Window{
		Enabled: true,
		Slots:   []availability.Slot{{StartMinute: 540, EndMinute: 2000}},
	}
	err := svc.Create(context.Background(), admin, object)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for out-of-day slot, got %v", err)
	}
}

func TestCreate_SlotsTextParsedOnSave(t *testing.T) {
	svc, repo := newService(entitlements.Limits{Pro: true, MaxObjects: 10})

	object := validObject()
	object.Availability = &availability.Window{
		Enabled:   true,
		SlotsText: "09:00-12:00\n14:00-18:00",
	}
	if err := svc.Create(context.Background(), admin, object); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored := repo.objects[object.ID].Availability
	if len(stored.Slots) != 2 || stored.Slots[0].StartMinute != 540 || stored.Slots[1].EndMinute != 1080 {
		t.Fatalf("expected parsed slots persisted, got %+v", stored.Slots)
	}
	if stored.SlotsText != "" {
		t.Fatalf("slots text should not be stored, got %q", stored.SlotsText)
	}
}

func TestUpdate_MalformedSlotsTextRejected(t *testing.T) {
	svc, repo := newService(entitlements.Limits{Pro: true, MaxObjects: 10})

	object := validObject()
	if err := svc.Create(context.Background(), admin, object); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	window := &availability.Window{Enabled: true, SlotsText: "10:00-09:00"}
	_, err := svc.Update(context.Background(), admin, object.ID, &model.ObjectUpdate{Availability: window})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for backwards slot text, got %v", err)
	}
	if repo.objects[object.ID].Availability != nil {
		t.Fatal("malformed window should not be persisted")
	}
}

func TestUpdate_AvailabilityWindowNeedsPro(t *testing.T) {
	svc, _ := newService(entitlements.Limits{MaxObjects: 10})

	object := validObject()
	if err := svc.Create(context.Background(), admin, object); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	window := &availability.Window{Enabled: true}
	_, err := svc.Update(context.Background(), admin, object.ID, &model.ObjectUpdate{Availability: window})
	if !apperrors.HasCode(err, apperrors.CodeEntitlement) {
		t.Fatalf("expected ENTITLEMENT_ERROR, got %v", err)
	}
}

func TestGetByID_HiddenObjectInvisibleToMembers(t *testing.T) {
	svc, repo := newService(entitlements.Limits{Pro: true, MaxObjects: 10, AllowHidden: true})

	object := validObject()
	object.Visible = false
	if err := svc.Create(context.Background(), admin, object); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if repo.objects[object.ID].Visible {
		t.Fatal("fixture expected a hidden object")
	}

	if _, err := svc.GetByID(context.Background(), member, object.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for member, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), admin, object.ID); err != nil {
		t.Fatalf("privileged lookup failed: %v", err)
	}
}

func TestList_MembersOnlySeeVisible(t *testing.T) {
	svc, _ := newService(entitlements.Limits{Pro: true, MaxObjects: 10, AllowHidden: true})

	visible := validObject()
	hidden := validObject()
	hidden.Name = "Backstage rig"
	hidden.Visible = false
	for _, object := range []*model.Object{visible, hidden} {
		if err := svc.Create(context.Background(), admin, object); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	objects, count, err := svc.List(context.Background(), member, repository.Filter{}, 100, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if count != 1 || len(objects) != 1 || objects[0].ID != visible.ID {
		t.Fatalf("expected only the visible object, got %d rows (count %d)", len(objects), count)
	}

	_, count, err = svc.List(context.Background(), admin, repository.Filter{}, 100, 0)
	if err != nil {
		t.Fatalf("privileged list failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected privileged count 2, got %d", count)
	}
}

func TestSetVisibility_HidingNeedsEntitlement(t *testing.T) {
	svc, repo := newService(entitlements.Limits{MaxObjects: 10})

	object := validObject()
	if err := svc.Create(context.Background(), admin, object); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := svc.SetVisibility(context.Background(), admin, object.ID, false)
	if !apperrors.HasCode(err, apperrors.CodeEntitlement) {
		t.Fatalf("expected ENTITLEMENT_ERROR, got %v", err)
	}
	if !repo.objects[object.ID].Visible {
		t.Fatal("object should still be visible")
	}
}

func TestUpdate_MergesOnlyProvidedFields(t *testing.T) {
	svc, repo := newService(entitlements.Limits{Pro: true, MaxObjects: 10, AllowHidden: true})

	object := validObject()
	object.Location = "Shelf A"
	if err := svc.Create(context.Background(), admin, object); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	name := "Projector (4K)"
	updated, err := svc.Update(context.Background(), admin, object.ID, &model.ObjectUpdate{Name: &name})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("expected name %q, got %q", name, updated.Name)
	}
	if updated.Location != "Shelf A" {
		t.Fatalf("untouched field changed, location = %q", updated.Location)
	}
	if repo.objects[object.ID].Name != name {
		t.Fatal("update not persisted")
	}
}

func TestDelete_MissingObject(t *testing.T) {
	svc, _ := newService(entitlements.Limits{Pro: true, MaxObjects: 10})

	err := svc.Delete(context.Background(), admin, "507f1f77bcf86cd799439099")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
