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

	objectserrors "inventario/internal/objects/errors"
	"inventario/pkg/config"
	"inventario/pkg/model"
)

const (
	CollectionName = "Objects"
)

type Filter struct {
	SiteID      string
	TypeID      string
	Status      string
	VisibleOnly bool
}

type ObjectRepository interface {
	Create(ctx context.Context, object *model.Object) error
	FindByID(ctx context.Context, id string) (*model.Object, error)
	FindByFilter(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Object, error)
	CountByFilter(ctx context.Context, filter Filter) (int64, error)
	Update(ctx context.Context, id string, object *model.Object) (*mongo.UpdateResult, error)
	SetStatus(ctx context.Context, id string, status string) error
	SetVisibility(ctx context.Context, id string, visible bool) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountBySite(ctx context.Context, siteID string) (int64, error)
}

type mongoObjectRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoObjectRepository(cfg *config.Config) ObjectRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoObjectRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoObjectRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoObjectRepository) Create(ctx context.Context, object *model.Object) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	object.CreatedAt = now
	object.ModifiedAt = now

	result, err := r.collection.InsertOne(ctx, object)
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		object.ID = oid.Hex()
	}
	return nil
}

func (r *mongoObjectRepository) FindByID(ctx context.Context, id string) (*model.Object, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", objectserrors.ErrInvalidID, id)
	}

	var object model.Object
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&object)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, objectserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find object: %w", err)
	}

	return &object, nil
}

func buildFilter(filter Filter) bson.M {
	query := bson.M{}
	if filter.SiteID != "" {
		query["site_id"] = filter.SiteID
	}
	if filter.TypeID != "" {
		query["type_id"] = filter.TypeID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.VisibleOnly {
		query["visible"] = true
	}
	return query
}

func (r *mongoObjectRepository) FindByFilter(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Object, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer cursor.Close(ctx)

	var objects []*model.Object
	if err := cursor.All(ctx, &objects); err != nil {
		return nil, fmt.Errorf("failed to decode objects: %w", err)
	}

	return objects, nil
}

func (r *mongoObjectRepository) CountByFilter(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count objects: %w", err)
	}
	return count, nil
}

func (r *mongoObjectRepository) Update(ctx context.Context, id string, object *model.Object) (*mongo.UpdateResult, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", objectserrors.ErrInvalidID, id)
	}

	object.ModifiedAt = time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{"$set": bson.M{
		"name":         object.Name,
		"description":  object.Description,
		"site_id":      object.SiteID,
		"type_id":      object.TypeID,
		"visible":      object.Visible,
		"status":       object.Status,
		"location":     object.Location,
		"availability": object.Availability,
		"modified_at":  object.ModifiedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update object: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, objectserrors.ErrNotFound
	}

	return result, nil
}

func (r *mongoObjectRepository) SetStatus(ctx context.Context, id string, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", objectserrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{
		"status":      status,
		"modified_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to set object status: %w", err)
	}
	if result.MatchedCount == 0 {
		return objectserrors.ErrNotFound
	}
	return nil
}

func (r *mongoObjectRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", objectserrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{
		"visible":     visible,
		"modified_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to set object visibility: %w", err)
	}
	if result.MatchedCount == 0 {
		return objectserrors.ErrNotFound
	}
	return nil
}

func (r *mongoObjectRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", objectserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if result.DeletedCount == 0 {
		return objectserrors.ErrNotFound
	}
	return nil
}

func (r *mongoObjectRepository) Count(ctx context.Context) (int64, error) {
	return r.CountByFilter(ctx, Filter{})
}

func (r *mongoObjectRepository) CountBySite(ctx context.Context, siteID string) (int64, error) {
	return r.CountByFilter(ctx, Filter{SiteID: siteID})
}
