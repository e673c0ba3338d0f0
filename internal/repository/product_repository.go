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

	"okazje-ingest/internal/models"
)

type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(collection *mongo.Collection) *ProductRepository {
	return &ProductRepository{
		collection: collection,
	}
}

// Create inserts a product, assigning an ID when it has none.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if product.ID == "" {
		product.ID = primitive.NewObjectID().Hex()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = product.CreatedAt
	}

	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": id})
}

// FindBySource looks a product up by its vendor identity.
func (r *ProductRepository) FindBySource(ctx context.Context, source models.VendorID, originalID string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	filter := bson.M{
		"metadata.source":     source,
		"metadata.originalId": originalID,
	}
	return r.findOne(ctx, filter)
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	var product models.Product
	err := r.collection.FindOne(ctx, filter).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Update replaces the stored product.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return fmt.Errorf("update product %s: %w", product.ID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the dedup index on (metadata.source, metadata.originalId).
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "metadata.source", Value: 1},
			{Key: "metadata.originalId", Value: 1},
		},
		Options: options.Index().SetName("dedup_source_original"),
	})
	return err
}

type DealRepository struct {
	collection *mongo.Collection
}

func NewDealRepository(collection *mongo.Collection) *DealRepository {
	return &DealRepository{collection: collection}
}

func (r *DealRepository) Create(ctx context.Context, deal *models.Deal) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if deal.ID == "" {
		deal.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.collection.InsertOne(ctx, deal); err != nil {
		return fmt.Errorf("insert deal: %w", err)
	}
	return nil
}
