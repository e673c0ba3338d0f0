// Package firestoredb implements the repository contracts on Cloud Firestore.
package firestoredb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"okazje-ingest/internal/models"
	"okazje-ingest/internal/repository"
)

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// getDoc reads one document into dst, mapping NotFound to repository.ErrNotFound.
func getDoc(ctx context.Context, ref *firestore.DocumentRef, dst interface{}) error {
	snap, err := ref.Get(ctx)
	if err != nil {
		if notFound(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("get %s: %w", ref.Path, err)
	}
	if err := snap.DataTo(dst); err != nil {
		return fmt.Errorf("decode %s: %w", ref.Path, err)
	}
	return nil
}

// collect drains a query iterator. set copies the document ID onto each value.
func collect[T any](iter *firestore.DocumentIterator, set func(*T, string)) ([]*T, error) {
	defer iter.Stop()

	out := []*T{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		v := new(T)
		if err := doc.DataTo(v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
		}
		set(v, doc.Ref.ID)
		out = append(out, v)
	}
	return out, nil
}

type ProductStore struct {
	client *firestore.Client
}

func NewProductStore(client *firestore.Client) *ProductStore {
	return &ProductStore{client: client}
}

func (s *ProductStore) col() *firestore.CollectionRef {
	return s.client.Collection(repository.ProductsCollection)
}

func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	ref := s.col().NewDoc()
	if p.ID != "" {
		ref = s.col().Doc(p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if _, err := ref.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	p.ID = ref.ID
	return nil
}

func (s *ProductStore) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := getDoc(ctx, s.col().Doc(id), &p); err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

func (s *ProductStore) FindBySource(ctx context.Context, source models.VendorID, originalID string) (*models.Product, error) {
	iter := s.col().
		Where("metadata.originalId", "==", originalID).
		Where("metadata.source", "==", string(source)).
		Limit(1).
		Documents(ctx)

	found, err := collect(iter, func(p *models.Product, id string) { p.ID = id })
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return found[0], nil
}

func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	ref := s.col().Doc(p.ID)
	if _, err := ref.Get(ctx); err != nil {
		if notFound(err) {
			return repository.ErrNotFound
		}
		return err
	}
	if _, err := ref.Set(ctx, p); err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	return nil
}

type DealStore struct {
	client *firestore.Client
}

func NewDealStore(client *firestore.Client) *DealStore {
	return &DealStore{client: client}
}

func (s *DealStore) Create(ctx context.Context, d *models.Deal) error {
	ref := s.client.Collection(repository.DealsCollection).NewDoc()
	if _, err := ref.Create(ctx, d); err != nil {
		return fmt.Errorf("create deal: %w", err)
	}
	d.ID = ref.ID
	return nil
}

type ProfileStore struct {
	client *firestore.Client
}

func NewProfileStore(client *firestore.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) col() *firestore.CollectionRef {
	return s.client.Collection(repository.ProfilesCollection)
}

func (s *ProfileStore) Create(ctx context.Context, p *models.ImportProfile) error {
	ref := s.col().NewDoc()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := ref.Create(ctx, p); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	p.ID = ref.ID
	return nil
}

func (s *ProfileStore) FindByID(ctx context.Context, id string) (*models.ImportProfile, error) {
	var p models.ImportProfile
	if err := getDoc(ctx, s.col().Doc(id), &p); err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

func (s *ProfileStore) FindAll(ctx context.Context) ([]*models.ImportProfile, error) {
	return collect(s.col().OrderBy("name", firestore.Asc).Documents(ctx), setProfileID)
}

func (s *ProfileStore) FindEnabled(ctx context.Context) ([]*models.ImportProfile, error) {
	return collect(s.col().Where("enabled", "==", true).Documents(ctx), setProfileID)
}

func setProfileID(p *models.ImportProfile, id string) { p.ID = id }

func (s *ProfileStore) Update(ctx context.Context, p *models.ImportProfile) error {
	p.UpdatedAt = time.Now()
	_, err := s.col().Doc(p.ID).Update(ctx, []firestore.Update{
		{Path: "vendorId", Value: p.VendorID},
		{Path: "enabled", Value: p.Enabled},
		{Path: "name", Value: p.Name},
		{Path: "filters", Value: p.Filters},
		{Path: "mapping", Value: p.Mapping},
		{Path: "maxItemsPerRun", Value: p.MaxItemsPerRun},
		{Path: "deduplicationStrategy", Value: p.DeduplicationStrategy},
		{Path: "updatedAt", Value: p.UpdatedAt},
	})
	if err != nil {
		if notFound(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("update profile %s: %w", p.ID, err)
	}
	return nil
}

type RunStore struct {
	client *firestore.Client
}

func NewRunStore(client *firestore.Client) *RunStore {
	return &RunStore{client: client}
}

func (s *RunStore) col() *firestore.CollectionRef {
	return s.client.Collection(repository.RunsCollection)
}

func (s *RunStore) Create(ctx context.Context, r *models.ImportRun) error {
	ref := s.col().NewDoc()
	if r.ID != "" {
		ref = s.col().Doc(r.ID)
	}
	if _, err := ref.Create(ctx, r); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	r.ID = ref.ID
	return nil
}

func (s *RunStore) Update(ctx context.Context, r *models.ImportRun) error {
	_, err := s.col().Doc(r.ID).Set(ctx, r)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	return nil
}

func (s *RunStore) FindByID(ctx context.Context, id string) (*models.ImportRun, error) {
	var r models.ImportRun
	if err := getDoc(ctx, s.col().Doc(id), &r); err != nil {
		return nil, err
	}
	r.ID = id
	return &r, nil
}

func (s *RunStore) List(ctx context.Context, f repository.RunFilter) ([]*models.ImportRun, error) {
	q := s.col().Query
	if f.ProfileID != "" {
		q = q.Where("profileId", "==", f.ProfileID)
	}
	q = q.OrderBy("startedAt", firestore.Desc).Limit(f.EffectiveLimit())

	return collect(q.Documents(ctx), func(r *models.ImportRun, id string) { r.ID = id })
}

type TokenStore struct {
	client *firestore.Client
}

func NewTokenStore(client *firestore.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) FindActive(ctx context.Context, vendor models.VendorID, account string) (*models.OAuthToken, error) {
	iter := s.client.Collection(repository.TokensCollection).
		Where("vendorId", "==", string(vendor)).
		Where("accountName", "==", account).
		Where("status", "==", string(models.TokenActive)).
		OrderBy("expiresAt", firestore.Desc).
		Limit(1).
		Documents(ctx)

	tokens, err := collect(iter, func(t *models.OAuthToken, id string) { t.ID = id })
	if err != nil {
		return nil, fmt.Errorf("token lookup: %w", err)
	}
	if len(tokens) == 0 {
		return nil, repository.ErrNotFound
	}
	return tokens[0], nil
}

// NewStore wires every collection on one Firestore client.
func NewStore(client *firestore.Client) *repository.Store {
	return &repository.Store{
		Products: NewProductStore(client),
		Deals:    NewDealStore(client),
		Profiles: NewProfileStore(client),
		Runs:     NewRunStore(client),
		Tokens:   NewTokenStore(client),
	}
}
