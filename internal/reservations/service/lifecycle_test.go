package service

import (
	"context"
	"testing"
	"time"

	"inventario/pkg/model"
)

type lifecycleFixture struct {
	svc     *lifecycleService
	repo    *fakeReservationRepo
	objects *fakeObjectStore
	now     time.Time
}

func newLifecycleFixture(t *testing.T, objectType *model.ObjectType, seed ...*model.Reservation) *lifecycleFixture {
	t.Helper()

	cfg := testConfig()
	repo := newFakeReservationRepo(seed...)
	objects := newFakeObjectStore(plainObject())
	types := newFakeTypeStore(objectType)
	projector := NewStatusProjector(objects, repo, cfg.Log)

	svc := NewLifecycleService(repo, objects, types, projector, cfg).(*lifecycleService)

	now := at(12, 0)
	svc.now = func() time.Time { return now }

	return &lifecycleFixture{svc: svc, repo: repo, objects: objects, now: now}
}

func activeRow(userID string, start, end time.Time) *model.Reservation {
	return &model.Reservation{
		ObjectID:  testObjectID,
		UserID:    userID,
		SiteID:    testSiteID,
		TimeStart: start,
		TimeEnd:   end,
		Status:    model.ReservationActive,
	}
}

func TestReturn_ClampsEndAndDeactivates(t *testing.T) {
	// Running loan: started an hour ago, scheduled to end an hour from now.
	row := activeRow("user-1", at(11, 0), at(13, 0))
	f := newLifecycleFixture(t, plainType(), row)
	ctx := context.Background()

	if err := f.svc.Return(ctx, owner, row.ID); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	stored, err := f.repo.FindByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.Status != model.ReservationReturned {
		t.Fatalf("expected returned status, got %q", stored.Status)
	}
	if stored.TimeEnd.After(f.now) {
		t.Fatalf("expected time_end clamped to the return instant, got %v", stored.TimeEnd)
	}

	active, err := f.svc.IsActiveNow(ctx, testObjectID)
	if err != nil {
		t.Fatalf("IsActiveNow failed: %v", err)
	}
	if active {
		t.Fatal("expected the object to be inactive immediately after return")
	}
}

func TestReturn_PastEndIsNotExtended(t *testing.T) {
	// Already expired: the stored end must stay where it was, not move to now.
	row := activeRow("user-1", at(9, 0), at(10, 0))
	f := newLifecycleFixture(t, plainType(), row)

	if err := f.svc.Return(context.Background(), owner, row.ID); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	stored, _ := f.repo.FindByID(context.Background(), row.ID)
	if !stored.TimeEnd.Equal(at(10, 0)) {
		t.Fatalf("expected time_end untouched at %v, got %v", at(10, 0), stored.TimeEnd)
	}
}

func TestReturn_SweepsStaleSiblings(t *testing.T) {
	stale1 := activeRow("user-1", at(8, 0), at(9, 0))
	stale2 := activeRow("user-2", at(9, 0), at(10, 0))
	current := activeRow("user-1", at(11, 0), at(13, 0))
	future := activeRow("user-3", at(15, 0), at(16, 0))
	f := newLifecycleFixture(t, plainType(), stale1, stale2, current, future)
	ctx := context.Background()

	if err := f.svc.Return(ctx, owner, current.ID); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	for _, id := range []string{stale1.ID, stale2.ID} {
		stored, _ := f.repo.FindByID(ctx, id)
		if stored.Status != model.ReservationReturned {
			t.Fatalf("expected stale row %s swept, status=%q", id, stored.Status)
		}
	}

	stored, _ := f.repo.FindByID(ctx, future.ID)
	if stored.Status != model.ReservationActive {
		t.Fatalf("expected future row untouched, status=%q", stored.Status)
	}

	// A future active row remains, so the cached status must not flip.
	if got := f.objects.statusOf(testObjectID); got == model.ObjectAvailable {
		t.Fatal("expected cached status to stay non-available while an active row remains")
	}
}

func TestReturn_ProjectsAvailableWhenLastRowCloses(t *testing.T) {
	row := activeRow("user-1", at(11, 0), at(13, 0))
	f := newLifecycleFixture(t, plainType(), row)

	if err := f.svc.Return(context.Background(), owner, row.ID); err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if got := f.objects.statusOf(testObjectID); got != model.ObjectAvailable {
		t.Fatalf("expected cached status available, got %q", got)
	}
}

func TestReturn_Authorization(t *testing.T) {
	row := activeRow("user-1", at(11, 0), at(13, 0))
	f := newLifecycleFixture(t, plainType(), row)
	ctx := context.Background()

	stranger := model.Actor{UserID: "user-2"}
	if err := f.svc.Return(ctx, stranger, row.ID); err == nil {
		t.Fatal("expected FORBIDDEN for a non-owner without management rights")
	}

	// Privileged but without the explicit return-management right.
	halfManager := model.Actor{UserID: "admin-2", Privileged: true}
	if err := f.svc.Return(ctx, halfManager, row.ID); err == nil {
		t.Fatal("expected FORBIDDEN without the return-management right")
	}

	if err := f.svc.Return(ctx, privileged, row.ID); err != nil {
		t.Fatalf("return by a manager failed: %v", err)
	}
}

func TestReturn_AlreadyReturnedIsStateError(t *testing.T) {
	row := activeRow("user-1", at(11, 0), at(13, 0))
	f := newLifecycleFixture(t, plainType(), row)
	ctx := context.Background()

	if err := f.svc.Return(ctx, owner, row.ID); err != nil {
		t.Fatalf("first return failed: %v", err)
	}
	if err := f.svc.Return(ctx, owner, row.ID); err == nil {
		t.Fatal("expected STATE_ERROR on double return")
	}
}

func TestDelete_ExpiredRejectedButReturnSucceeds(t *testing.T) {
	row := activeRow("user-1", at(9, 0), at(10, 0))
	f := newLifecycleFixture(t, plainType(), row)
	ctx := context.Background()

	if err := f.svc.Delete(ctx, owner, row.ID); err == nil {
		t.Fatal("expected STATE_ERROR deleting an expired reservation")
	}

	if err := f.svc.Return(ctx, owner, row.ID); err != nil {
		t.Fatalf("return of the same reservation failed: %v", err)
	}
}

func TestDelete_FutureReservationIsSoftDeleted(t *testing.T) {
	row := activeRow("user-1", at(14, 0), at(15, 0))
	f := newLifecycleFixture(t, plainType(), row)
	ctx := context.Background()

	if err := f.svc.Delete(ctx, owner, row.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// Soft delete: the row survives as returned history.
	stored, err := f.repo.FindByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("expected the row to survive, lookup failed: %v", err)
	}
	if stored.Status != model.ReservationReturned {
		t.Fatalf("expected returned status, got %q", stored.Status)
	}
}

func TestIsActiveNow_HalfOpenBoundaries(t *testing.T) {
	row := activeRow("user-1", at(12, 0), at(13, 0))
	f := newLifecycleFixture(t, plainType(), row)
	ctx := context.Background()

	// Exactly at timeStart: active.
	active, err := f.svc.IsActiveNow(ctx, testObjectID)
	if err != nil {
		t.Fatalf("IsActiveNow failed: %v", err)
	}
	if !active {
		t.Fatal("expected active exactly at timeStart")
	}

	// Exactly at timeEnd: no longer active.
	f.svc.now = func() time.Time { return at(13, 0) }
	active, err = f.svc.IsActiveNow(ctx, testObjectID)
	if err != nil {
		t.Fatalf("IsActiveNow failed: %v", err)
	}
	if active {
		t.Fatal("expected inactive exactly at timeEnd")
	}
}

func TestCountOpenReturns_GatedByTypePolicy(t *testing.T) {
	expired := activeRow("user-1", at(9, 0), at(10, 0))
	running := activeRow("user-2", at(11, 0), at(13, 0))

	withReturns := newLifecycleFixture(t, plainType(), expired, running)
	count, err := withReturns.svc.CountOpenReturns(context.Background(), testObjectID)
	if err != nil {
		t.Fatalf("CountOpenReturns failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 open return, got %d", count)
	}

	noReturns := plainType()
	noReturns.RequiresReturn = false
	withoutReturns := newLifecycleFixture(t, noReturns, activeRow("user-1", at(9, 0), at(10, 0)))
	count, err = withoutReturns.svc.CountOpenReturns(context.Background(), testObjectID)
	if err != nil {
		t.Fatalf("CountOpenReturns failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 open returns for a no-return type, got %d", count)
	}
}
