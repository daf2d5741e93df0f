package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reservationserrors "inventario/internal/reservations/errors"
	"inventario/pkg/config"
	mongotx "inventario/pkg/db/mongo"
	"inventario/pkg/model"
)

const (
	CollectionName = "Reservations"
)

// Filter narrows list queries. Zero values are ignored. From/To bound
// time_start, not the whole interval.
type Filter struct {
	ObjectID string
	UserID   string
	SiteID   string
	Status   string
	From     *time.Time
	To       *time.Time
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	CreateMany(ctx context.Context, reservations []*model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	Update(ctx context.Context, id string, reservation *model.Reservation) (*mongo.UpdateResult, error)
	FindActiveOverlap(ctx context.Context, objectID string, start, end time.Time, excludeID string) ([]*model.Reservation, error)
	HasActiveAt(ctx context.Context, objectID string, at time.Time) (bool, error)
	CountActiveEndedBefore(ctx context.Context, objectID string, before time.Time) (int64, error)
	SweepReturned(ctx context.Context, objectID, excludeID string, startCutoff, now time.Time) (int64, error)
	FindByFilter(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Reservation, error)
	CountByFilter(ctx context.Context, filter Filter) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless it already carries a
// session. Wrapping a SessionContext would break transaction semantics, so in
// that case the original context is returned with a no-op cancel.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	reservation.CreatedAt = now
	reservation.ModifiedAt = now

	result, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

// CreateMany inserts a periodic series in order. The caller is expected to
// run it inside a transaction so a partial insert never survives.
func (r *mongoReservationRepository) CreateMany(ctx context.Context, reservations []*model.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(reservations))
	for _, reservation := range reservations {
		reservation.CreatedAt = now
		reservation.ModifiedAt = now
		docs = append(docs, reservation)
	}

	result, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to create reservation series: %w", err)
	}

	for i, insertedID := range result.InsertedIDs {
		if oid, ok := insertedID.(primitive.ObjectID); ok && i < len(reservations) {
			reservations[i].ID = oid.Hex()
		}
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var reservation model.Reservation
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &reservation, nil
}

func (r *mongoReservationRepository) Update(ctx context.Context, id string, reservation *model.Reservation) (*mongo.UpdateResult, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	reservation.ModifiedAt = time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{"$set": bson.M{
		"object_id":        reservation.ObjectID,
		"user_id":          reservation.UserID,
		"site_id":          reservation.SiteID,
		"time_start":       reservation.TimeStart,
		"time_end":         reservation.TimeEnd,
		"location":         reservation.Location,
		"status":           reservation.Status,
		"expired_notified": reservation.ExpiredNotified,
		"modified_at":      reservation.ModifiedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, reservationserrors.ErrNotFound
	}

	return result, nil
}

// FindActiveOverlap returns active reservations for the object whose
// half-open interval intersects [start, end). Touching endpoints do not
// intersect. excludeID, when set, exempts the row being edited.
func (r *mongoReservationRepository) FindActiveOverlap(ctx context.Context, objectID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"object_id":  objectID,
		"status":     model.ReservationActive,
		"time_start": bson.M{"$lt": end},
		"time_end":   bson.M{"$gt": start},
	}
	if excludeID != "" {
		oid, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": oid}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "time_start", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) HasActiveAt(ctx context.Context, objectID string, at time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"object_id":  objectID,
		"status":     model.ReservationActive,
		"time_start": bson.M{"$lte": at},
		"time_end":   bson.M{"$gt": at},
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check active reservations: %w", err)
	}

	return count > 0, nil
}

func (r *mongoReservationRepository) CountActiveEndedBefore(ctx context.Context, objectID string, before time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"object_id": objectID,
		"status":    model.ReservationActive,
		"time_end":  bson.M{"$lt": before},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired reservations: %w", err)
	}

	return count, nil
}

// SweepReturned closes every other active reservation for the object whose
// time_start is at or before startCutoff. These rows logically should already
// have been returned; collapsing them keeps the active set consistent.
func (r *mongoReservationRepository) SweepReturned(ctx context.Context, objectID, excludeID string, startCutoff, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"object_id":  objectID,
		"status":     model.ReservationActive,
		"time_start": bson.M{"$lte": startCutoff},
	}
	if excludeID != "" {
		oid, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": oid}
	}

	update := bson.M{"$set": bson.M{
		"status":      model.ReservationReturned,
		"modified_at": now,
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale reservations: %w", err)
	}

	return result.ModifiedCount, nil
}

func buildFilter(filter Filter) bson.M {
	query := bson.M{}
	if filter.ObjectID != "" {
		query["object_id"] = filter.ObjectID
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.SiteID != "" {
		query["site_id"] = filter.SiteID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	timeRange := bson.M{}
	if filter.From != nil {
		timeRange["$gte"] = *filter.From
	}
	if filter.To != nil {
		timeRange["$lt"] = *filter.To
	}
	if len(timeRange) > 0 {
		query["time_start"] = timeRange
	}
	return query
}

func (r *mongoReservationRepository) FindByFilter(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "time_start", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) CountByFilter(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	return count, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
