// Package memory is a map-backed document store used by tests and by the
// memory STORE_BACKEND for local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"okazje-ingest/internal/models"
	"okazje-ingest/internal/repository"
)

var seq atomic.Int64

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, seq.Add(1))
}

// Products stores values, never the caller's pointers.
type Products struct {
	mu    sync.RWMutex
	items map[string]models.Product
}

func NewProducts() *Products {
	return &Products{items: make(map[string]models.Product)}
}

func (s *Products) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = nextID("product")
	}
	if _, exists := s.items[p.ID]; exists {
		return fmt.Errorf("product %s already exists", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.items[p.ID] = *p
	return nil
}

func (s *Products) FindByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Products) FindBySource(_ context.Context, source models.VendorID, originalID string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.items {
		if p.Metadata.Source == source && p.Metadata.OriginalID == originalID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Products) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[p.ID]; !ok {
		return repository.ErrNotFound
	}
	s.items[p.ID] = *p
	return nil
}

// All returns a snapshot, for tests.
func (s *Products) All() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type Deals struct {
	mu    sync.RWMutex
	items map[string]models.Deal
}

func NewDeals() *Deals {
	return &Deals{items: make(map[string]models.Deal)}
}

func (s *Deals) Create(_ context.Context, d *models.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = nextID("deal")
	}
	s.items[d.ID] = *d
	return nil
}

func (s *Deals) All() []models.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Deal, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type Profiles struct {
	mu    sync.RWMutex
	items map[string]models.ImportProfile
}

func NewProfiles() *Profiles {
	return &Profiles{items: make(map[string]models.ImportProfile)}
}

func (s *Profiles) Create(_ context.Context, p *models.ImportProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = nextID("profile")
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.items[p.ID] = *p
	return nil
}

func (s *Profiles) FindByID(_ context.Context, id string) (*models.ImportProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Profiles) FindAll(ctx context.Context) ([]*models.ImportProfile, error) {
	return s.filter(func(*models.ImportProfile) bool { return true }), nil
}

func (s *Profiles) FindEnabled(ctx context.Context) ([]*models.ImportProfile, error) {
	return s.filter(func(p *models.ImportProfile) bool { return p.Enabled }), nil
}

func (s *Profiles) filter(keep func(*models.ImportProfile) bool) []*models.ImportProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.ImportProfile{}
	for _, p := range s.items {
		p := p
		if keep(&p) {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Profiles) Update(_ context.Context, p *models.ImportProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.CreatedBy = existing.CreatedBy
	p.UpdatedAt = time.Now()
	s.items[p.ID] = *p
	return nil
}

type Runs struct {
	mu    sync.RWMutex
	items map[string]models.ImportRun
}

func NewRuns() *Runs {
	return &Runs{items: make(map[string]models.ImportRun)}
}

func (s *Runs) Create(_ context.Context, r *models.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = nextID("run")
	}
	s.items[r.ID] = cloneRun(r)
	return nil
}

func (s *Runs) Update(_ context.Context, r *models.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[r.ID]; !ok {
		return repository.ErrNotFound
	}
	s.items[r.ID] = cloneRun(r)
	return nil
}

func (s *Runs) FindByID(_ context.Context, id string) (*models.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneRun(&r)
	return &out, nil
}

func (s *Runs) List(_ context.Context, f repository.RunFilter) ([]*models.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.ImportRun{}
	for _, r := range s.items {
		if f.ProfileID != "" && r.ProfileID != f.ProfileID {
			continue
		}
		c := cloneRun(&r)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit := f.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRun(r *models.ImportRun) models.ImportRun {
	c := *r
	if r.ErrorSummary != nil {
		c.ErrorSummary = append([]models.ImportError(nil), r.ErrorSummary...)
	}
	return c
}

type Tokens struct {
	mu    sync.RWMutex
	items []models.OAuthToken
}

func NewTokens() *Tokens {
	return &Tokens{}
}

// Put adds a token. The OAuth module owns writes in production.
func (s *Tokens) Put(t models.OAuthToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
}

func (s *Tokens) FindActive(_ context.Context, vendor models.VendorID, account string) (*models.OAuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.OAuthToken
	for i := range s.items {
		t := s.items[i]
		if t.VendorID != vendor || t.AccountName != account || t.Status != models.TokenActive {
			continue
		}
		if best == nil || t.ExpiresAt.After(best.ExpiresAt) {
			best = &t
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

// Store is the memory backend with typed access to each collection.
type Store struct {
	Products *Products
	Deals    *Deals
	Profiles *Profiles
	Runs     *Runs
	Tokens   *Tokens
}

func NewStore() *Store {
	return &Store{
		Products: NewProducts(),
		Deals:    NewDeals(),
		Profiles: NewProfiles(),
		Runs:     NewRuns(),
		Tokens:   NewTokens(),
	}
}

func (s *Store) Repository() *repository.Store {
	return &repository.Store{
		Products: s.Products,
		Deals:    s.Deals,
		Profiles: s.Profiles,
		Runs:     s.Runs,
		Tokens:   s.Tokens,
	}
}
