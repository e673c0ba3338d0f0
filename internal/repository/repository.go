// Package repository defines the document-store contracts of the ingestion
// pipeline and their MongoDB implementation. Firestore and in-memory
// implementations live in sub-packages.
package repository

import (
	"context"
	"errors"

	"okazje-ingest/internal/models"
)

// Collection names.
const (
	ProductsCollection = "products"
	DealsCollection    = "deals"
	RunsCollection     = "import_runs"
	ProfilesCollection = "importProfiles"
	TokensCollection   = "oauthTokens"
)

var ErrNotFound = errors.New("not found")

// ProductStore persists catalog products. FindBySource is the deduplication
// lookup shared by every vendor.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindBySource(ctx context.Context, source models.VendorID, originalID string) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
}

type DealStore interface {
	Create(ctx context.Context, d *models.Deal) error
}

type ProfileStore interface {
	Create(ctx context.Context, p *models.ImportProfile) error
	FindByID(ctx context.Context, id string) (*models.ImportProfile, error)
	FindAll(ctx context.Context) ([]*models.ImportProfile, error)
	FindEnabled(ctx context.Context) ([]*models.ImportProfile, error)
	Update(ctx context.Context, p *models.ImportProfile) error
}

// RunFilter narrows run history. Zero values mean no restriction.
type RunFilter struct {
	ProfileID string
	Limit     int
}

// RunStore keeps the import audit trail. Create is called once when the run
// starts and Update once when it finishes.
type RunStore interface {
	Create(ctx context.Context, r *models.ImportRun) error
	Update(ctx context.Context, r *models.ImportRun) error
	FindByID(ctx context.Context, id string) (*models.ImportRun, error)
	List(ctx context.Context, f RunFilter) ([]*models.ImportRun, error)
}

// TokenStore is read-only from the pipeline's side.
type TokenStore interface {
	FindActive(ctx context.Context, vendor models.VendorID, account string) (*models.OAuthToken, error)
}

// Store bundles the collections used by the service.
type Store struct {
	Products ProductStore
	Deals    DealStore
	Profiles ProfileStore
	Runs     RunStore
	Tokens   TokenStore
}

// DefaultRunLimit caps run listings when no limit is given.
const DefaultRunLimit = 50

func (f RunFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return DefaultRunLimit
	}
	return f.Limit
}
