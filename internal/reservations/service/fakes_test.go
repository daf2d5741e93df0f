package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	objectserrors "inventario/internal/objects/errors"
	reservationserrors "inventario/internal/reservations/errors"
	"inventario/internal/reservations/repository"
	mongotx "inventario/pkg/db/mongo"
	"inventario/pkg/model"
)

// fakeReservationRepo is an in-memory ReservationRepository. Transactions
// snapshot the rows and roll back on error, which lets the batch-atomicity
// behavior be exercised without a database.
type fakeReservationRepo struct {
	mu     sync.Mutex
	rows   []*model.Reservation
	nextID int
}

func newFakeReservationRepo(seed ...*model.Reservation) *fakeReservationRepo {
	repo := &fakeReservationRepo{nextID: 1}
	for _, row := range seed {
		if row.ID == "" {
			row.ID = repo.allocID()
		}
		repo.rows = append(repo.rows, row)
	}
	return repo
}

func (f *fakeReservationRepo) allocID() string {
	id := fmt.Sprintf("%024x", f.nextID)
	f.nextID++
	return id
}

func cloneReservation(r *model.Reservation) *model.Reservation {
	clone := *r
	return &clone
}

func (f *fakeReservationRepo) Create(_ context.Context, reservation *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	reservation.ID = f.allocID()
	reservation.CreatedAt = time.Now().UTC()
	reservation.ModifiedAt = reservation.CreatedAt
	f.rows = append(f.rows, cloneReservation(reservation))
	return nil
}

func (f *fakeReservationRepo) CreateMany(ctx context.Context, reservations []*model.Reservation) error {
	for _, reservation := range reservations {
		if err := f.Create(ctx, reservation); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeReservationRepo) FindByID(_ context.Context, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.ID == id {
			return cloneReservation(row), nil
		}
	}
	return nil, reservationserrors.ErrNotFound
}

func (f *fakeReservationRepo) Update(_ context.Context, id string, reservation *model.Reservation) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, row := range f.rows {
		if row.ID == id {
			updated := cloneReservation(reservation)
			updated.ID = id
			updated.ModifiedAt = time.Now().UTC()
			f.rows[i] = updated
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	return nil, reservationserrors.ErrNotFound
}

func (f *fakeReservationRepo) FindActiveOverlap(_ context.Context, objectID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []*model.Reservation
	for _, row := range f.rows {
		if row.ObjectID != objectID || row.Status != model.ReservationActive || row.ID == excludeID {
			continue
		}
		if model.Overlaps(start, end, row.TimeStart, row.TimeEnd) {
			matches = append(matches, cloneReservation(row))
		}
	}
	return matches, nil
}

func (f *fakeReservationRepo) HasActiveAt(_ context.Context, objectID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.ObjectID == objectID && row.ActiveAt(at) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReservationRepo) CountActiveEndedBefore(_ context.Context, objectID string, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, row := range f.rows {
		if row.ObjectID == objectID && row.Status == model.ReservationActive && row.TimeEnd.Before(before) {
			count++
		}
	}
	return count, nil
}

func (f *fakeReservationRepo) SweepReturned(_ context.Context, objectID, excludeID string, startCutoff, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var swept int64
	for _, row := range f.rows {
		if row.ObjectID != objectID || row.Status != model.ReservationActive || row.ID == excludeID {
			continue
		}
		if !row.TimeStart.After(startCutoff) {
			row.Status = model.ReservationReturned
			row.ModifiedAt = now
			swept++
		}
	}
	return swept, nil
}

func (f *fakeReservationRepo) FindByFilter(_ context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []*model.Reservation
	for _, row := range f.rows {
		if matchesFilter(row, filter) {
			matches = append(matches, cloneReservation(row))
		}
	}
	return matches, nil
}

func (f *fakeReservationRepo) CountByFilter(_ context.Context, filter repository.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, row := range f.rows {
		if matchesFilter(row, filter) {
			count++
		}
	}
	return count, nil
}

func matchesFilter(row *model.Reservation, filter repository.Filter) bool {
	if filter.ObjectID != "" && row.ObjectID != filter.ObjectID {
		return false
	}
	if filter.UserID != "" && row.UserID != filter.UserID {
		return false
	}
	if filter.SiteID != "" && row.SiteID != filter.SiteID {
		return false
	}
	if filter.Status != "" && row.Status != filter.Status {
		return false
	}
	if filter.From != nil && row.TimeStart.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !row.TimeStart.Before(*filter.To) {
		return false
	}
	return true
}

func (f *fakeReservationRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	f.mu.Lock()
	snapshot := make([]*model.Reservation, len(f.rows))
	for i, row := range f.rows {
		snapshot[i] = cloneReservation(row)
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.rows = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeReservationRepo) activeCount(objectID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, row := range f.rows {
		if row.ObjectID == objectID && row.Status == model.ReservationActive {
			count++
		}
	}
	return count
}

// fakeLockRepo reports contention the way the driver does, via a duplicate
// key write exception.
type fakeLockRepo struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{held: map[string]bool{}}
}

func (f *fakeLockRepo) Create(_ context.Context, lock *model.ReservationLock) (*model.ReservationLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.held[lock.ID] {
		return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{
			{Code: 11000, Message: "duplicate key"},
		}}
	}
	f.held[lock.ID] = true
	return lock, nil
}

func (f *fakeLockRepo) Delete(_ context.Context, lockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.held, lockID)
	return nil
}

type fakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string]*model.Object
	statuses map[string]string
}

func newFakeObjectStore(objects ...*model.Object) *fakeObjectStore {
	store := &fakeObjectStore{
		objects:  map[string]*model.Object{},
		statuses: map[string]string{},
	}
	for _, object := range objects {
		store.objects[object.ID] = object
	}
	return store
}

func (f *fakeObjectStore) FindByID(_ context.Context, id string) (*model.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	object, ok := f.objects[id]
	if !ok {
		return nil, objectserrors.ErrNotFound
	}
	clone := *object
	return &clone, nil
}

func (f *fakeObjectStore) SetStatus(_ context.Context, id string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.objects[id]; !ok {
		return objectserrors.ErrNotFound
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeObjectStore) statusOf(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

type fakeTypeStore struct {
	types map[string]*model.ObjectType
}

func newFakeTypeStore(types ...*model.ObjectType) *fakeTypeStore {
	store := &fakeTypeStore{types: map[string]*model.ObjectType{}}
	for _, objectType := range types {
		store.types[objectType.ID] = objectType
	}
	return store
}

func (f *fakeTypeStore) FindByID(_ context.Context, id string) (*model.ObjectType, error) {
	objectType, ok := f.types[id]
	if !ok {
		return nil, fmt.Errorf("type %s not found", id)
	}
	clone := *objectType
	return &clone, nil
}

type fakeDispatcher struct {
	mu          sync.Mutex
	calls       int
	last        *model.Reservation
	occurrences int
}

func (f *fakeDispatcher) SendConfirmation(_ context.Context, reservation *model.Reservation, occurrences int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.last = reservation
	f.occurrences = occurrences
}
