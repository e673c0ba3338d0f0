package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okazje-ingest/internal/models"
	"okazje-ingest/internal/repository"
)

func TestProducts_FindBySource(t *testing.T) {
	ctx := context.Background()
	s := NewProducts()

	p := &models.Product{Name: "Kettle", Metadata: models.ProductMetadata{Source: models.VendorEbay, OriginalID: "v1|123|0"}}
	require.NoError(t, s.Create(ctx, p))
	assert.NotEmpty(t, p.ID)

	found, err := s.FindBySource(ctx, models.VendorEbay, "v1|123|0")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = s.FindBySource(ctx, models.VendorAllegro, "v1|123|0")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProducts_StoresCopies(t *testing.T) {
	ctx := context.Background()
	s := NewProducts()

	p := &models.Product{Name: "Kettle"}
	require.NoError(t, s.Create(ctx, p))
	p.Name = "changed"

	stored, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", stored.Name)

	assert.ErrorIs(t, s.Update(ctx, &models.Product{ID: "missing"}), repository.ErrNotFound)
}

func TestRuns_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewRuns()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, profile := range []string{"p1", "p2", "p1"} {
		r := &models.ImportRun{ProfileID: profile, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.Create(ctx, r))
	}

	runs, err := s.List(ctx, repository.RunFilter{ProfileID: "p1"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))

	runs, err = s.List(ctx, repository.RunFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, base.Add(2*time.Minute), runs[0].StartedAt)
}

func TestProfiles_UpdateKeepsCreationData(t *testing.T) {
	ctx := context.Background()
	s := NewProfiles()

	p := &models.ImportProfile{Name: "Headphones", CreatedBy: "admin-1", Enabled: true}
	require.NoError(t, s.Create(ctx, p))

	require.NoError(t, s.Update(ctx, &models.ImportProfile{ID: p.ID, Name: "Headphones PL"}))
	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", got.CreatedBy)
	assert.Equal(t, "Headphones PL", got.Name)

	enabled, err := s.FindEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestTokens_FindActivePicksLatestExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewTokens()
	now := time.Now()

	s.Put(models.OAuthToken{ID: "old", VendorID: models.VendorAllegro, AccountName: "default", Status: models.TokenActive, ExpiresAt: now.Add(time.Hour)})
	s.Put(models.OAuthToken{ID: "new", VendorID: models.VendorAllegro, AccountName: "default", Status: models.TokenActive, ExpiresAt: now.Add(2 * time.Hour)})
	s.Put(models.OAuthToken{ID: "revoked", VendorID: models.VendorAllegro, AccountName: "default", Status: models.TokenRevoked, ExpiresAt: now.Add(3 * time.Hour)})

	tok, err := s.FindActive(ctx, models.VendorAllegro, "default")
	require.NoError(t, err)
	assert.Equal(t, "new", tok.ID)

	_, err = s.FindActive(ctx, models.VendorEbay, "default")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
