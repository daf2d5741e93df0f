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

	catalogerrors "inventario/internal/catalog/errors"
	"inventario/pkg/config"
	"inventario/pkg/model"
)

const TypeCollectionName = "Types"

type TypeRepository interface {
	Create(ctx context.Context, objectType *model.ObjectType) error
	FindByID(ctx context.Context, id string) (*model.ObjectType, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.ObjectType, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, objectType *model.ObjectType) error
	Delete(ctx context.Context, id string) error
}

type mongoTypeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTypeRepository(cfg *config.Config) TypeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTypeRepository{
		cfg:        cfg,
		collection: db.Collection(TypeCollectionName),
	}
}

func (r *mongoTypeRepository) Create(ctx context.Context, objectType *model.ObjectType) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	objectType.CreatedAt = now
	objectType.ModifiedAt = now

	result, err := r.collection.InsertOne(ctx, objectType)
	if err != nil {
		return fmt.Errorf("failed to create object type: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		objectType.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTypeRepository) FindByID(ctx context.Context, id string) (*model.ObjectType, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var objectType model.ObjectType
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&objectType)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrTypeNotFound
		}
		return nil, fmt.Errorf("failed to find object type: %w", err)
	}

	return &objectType, nil
}

func (r *mongoTypeRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.ObjectType, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list object types: %w", err)
	}
	defer cursor.Close(ctx)

	var types []*model.ObjectType
	if err := cursor.All(ctx, &types); err != nil {
		return nil, fmt.Errorf("failed to decode object types: %w", err)
	}

	return types, nil
}

func (r *mongoTypeRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count object types: %w", err)
	}
	return count, nil
}

func (r *mongoTypeRepository) Update(ctx context.Context, id string, objectType *model.ObjectType) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	objectType.ModifiedAt = time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{"$set": bson.M{
		"name":              objectType.Name,
		"color":             objectType.Color,
		"requires_return":   objectType.RequiresReturn,
		"requires_location": objectType.RequiresLocation,
		"modified_at":       objectType.ModifiedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update object type: %w", err)
	}
	if result.MatchedCount == 0 {
		return catalogerrors.ErrTypeNotFound
	}
	return nil
}

func (r *mongoTypeRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete object type: %w", err)
	}
	if result.DeletedCount == 0 {
		return catalogerrors.ErrTypeNotFound
	}
	return nil
}
