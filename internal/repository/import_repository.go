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

type ProfileRepository struct {
	collection *mongo.Collection
}

func NewProfileRepository(collection *mongo.Collection) *ProfileRepository {
	return &ProfileRepository{collection: collection}
}

func (r *ProfileRepository) Create(ctx context.Context, profile *models.ImportProfile) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if profile.ID == "" {
		profile.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, profile); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.ImportProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var profile models.ImportProfile
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) FindAll(ctx context.Context) ([]*models.ImportProfile, error) {
	return r.find(ctx, bson.M{})
}

func (r *ProfileRepository) FindEnabled(ctx context.Context) ([]*models.ImportProfile, error) {
	return r.find(ctx, bson.M{"enabled": true})
}

func (r *ProfileRepository) find(ctx context.Context, filter bson.M) ([]*models.ImportProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	profiles := []*models.ImportProfile{}
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update replaces the profile, keeping its creation metadata.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.ImportProfile) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	profile.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"vendorId":              profile.VendorID,
			"enabled":               profile.Enabled,
			"name":                  profile.Name,
			"filters":               profile.Filters,
			"mapping":               profile.Mapping,
			"maxItemsPerRun":        profile.MaxItemsPerRun,
			"deduplicationStrategy": profile.DeduplicationStrategy,
			"updatedAt":             profile.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": profile.ID}, update)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", profile.ID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type RunRepository struct {
	collection *mongo.Collection
}

func NewRunRepository(collection *mongo.Collection) *RunRepository {
	return &RunRepository{collection: collection}
}

func (r *RunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if run.ID == "" {
		run.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.collection.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Update writes the final state of a run.
func (r *RunRepository) Update(ctx context.Context, run *models.ImportRun) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id string) (*models.ImportRun, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var run models.ImportRun
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// List returns runs newest first.
func (r *RunRepository) List(ctx context.Context, f RunFilter) ([]*models.ImportRun, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if f.ProfileID != "" {
		filter["profileId"] = f.ProfileID
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "startedAt", Value: -1}}).
		SetLimit(int64(f.EffectiveLimit()))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := []*models.ImportRun{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

type TokenRepository struct {
	collection *mongo.Collection
}

func NewTokenRepository(collection *mongo.Collection) *TokenRepository {
	return &TokenRepository{collection: collection}
}

// FindActive returns the active token of a vendor account with the latest expiry.
func (r *TokenRepository) FindActive(ctx context.Context, vendor models.VendorID, account string) (*models.OAuthToken, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	filter := bson.M{
		"vendorId":    vendor,
		"accountName": account,
		"status":      models.TokenActive,
	}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "expiresAt", Value: -1}})

	var token models.OAuthToken
	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

// NewMongoStore wires every collection of db.
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Products: NewProductRepository(db.Collection(ProductsCollection)),
		Deals:    NewDealRepository(db.Collection(DealsCollection)),
		Profiles: NewProfileRepository(db.Collection(ProfilesCollection)),
		Runs:     NewRunRepository(db.Collection(RunsCollection)),
		Tokens:   NewTokenRepository(db.Collection(TokensCollection)),
	}
}
