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

const SiteCollectionName = "Sites"

type SiteRepository interface {
	Create(ctx context.Context, site *model.Site) error
	FindByID(ctx context.Context, id string) (*model.Site, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Site, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, site *model.Site) error
	Delete(ctx context.Context, id string) error
}

type mongoSiteRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSiteRepository(cfg *config.Config) SiteRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSiteRepository{
		cfg:        cfg,
		collection: db.Collection(SiteCollectionName),
	}
}

func (r *mongoSiteRepository) Create(ctx context.Context, site *model.Site) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	site.CreatedAt = now
	site.ModifiedAt = now

	result, err := r.collection.InsertOne(ctx, site)
	if err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		site.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSiteRepository) FindByID(ctx context.Context, id string) (*model.Site, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var site model.Site
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&site)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to find site: %w", err)
	}

	return &site, nil
}

func (r *mongoSiteRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Site, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer cursor.Close(ctx)

	var sites []*model.Site
	if err := cursor.All(ctx, &sites); err != nil {
		return nil, fmt.Errorf("failed to decode sites: %w", err)
	}

	return sites, nil
}

func (r *mongoSiteRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count sites: %w", err)
	}
	return count, nil
}

func (r *mongoSiteRepository) Update(ctx context.Context, id string, site *model.Site) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	site.ModifiedAt = time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{"$set": bson.M{
		"name":        site.Name,
		"modified_at": site.ModifiedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}
	if result.MatchedCount == 0 {
		return catalogerrors.ErrSiteNotFound
	}
	return nil
}

func (r *mongoSiteRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	if result.DeletedCount == 0 {
		return catalogerrors.ErrSiteNotFound
	}
	return nil
}
