package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okazje-ingest/internal/config"
	"okazje-ingest/internal/logger"
	"okazje-ingest/internal/models"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreBackend:         "memory",
		RateLimitBackend:     "local",
		CORSOrigins:          "*",
		SchedulerInterval:    time.Hour,
		SchedulerConcurrency: 1,
		HTTPTimeout:          time.Second,
		DealsPostedBy:        "system-import",
		Allegro:              config.VendorConfig{Enabled: true, BaseURL: "http://allegro.invalid", AccountName: "default", RateLimitPerMinute: 60},
		Ebay:                 config.VendorConfig{Enabled: true, BaseURL: "http://ebay.invalid", AccountName: "default", RateLimitPerMinute: 60},
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, memoryConfig(), logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []models.VendorID{models.VendorAllegro, models.VendorEbay}, a.Vendors.Vendors())
	require.NotNil(t, a.Orchestrator)
	require.NotNil(t, a.Scheduler)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/import-profiles", nil))
	assert.Equal(t, http.StatusOK, w.Code, "auth is off without firebase")
}

func TestNew_AllMarketplaces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := memoryConfig()
	cfg.AliExpress = config.VendorConfig{Enabled: true, BaseURL: "http://aliexpress.invalid", AppKey: "key", AppSecret: "secret", RateLimitPerMinute: 60}
	cfg.Amazon = config.VendorConfig{Enabled: true, BaseURL: "http://amazon.invalid", AppKey: "key", AppSecret: "secret", Region: "eu-west-1", RateLimitPerMinute: 60}

	a, err := New(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []models.VendorID{
		models.VendorAliExpress, models.VendorAllegro, models.VendorAmazon, models.VendorEbay,
	}, a.Vendors.Vendors())
	for _, id := range a.Vendors.Vendors() {
		adapter, ok := a.Vendors.Get(id)
		require.True(t, ok)
		assert.Equal(t, id, adapter.Vendor())
		assert.Positive(t, adapter.MaxPageSize())
	}
}

func TestNew_RunWithoutToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, memoryConfig(), logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	profile := &models.ImportProfile{
		VendorID:              models.VendorEbay,
		Name:                  "lego",
		Enabled:               true,
		Filters:               models.ProfileFilters{SearchQuery: "lego"},
		MaxItemsPerRun:        10,
		DeduplicationStrategy: models.DedupSkip,
	}
	require.NoError(t, a.Store.Profiles.Create(ctx, profile))

	summary := a.Scheduler.RunOnce(ctx)
	assert.Equal(t, 1, summary.Failed, "ebay needs an oauth token")
}
