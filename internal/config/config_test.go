package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "https://api-sg.aliexpress.com", cfg.AliExpress.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.AliExpress.MinDelay)
	assert.Equal(t, time.Second, cfg.Allegro.MinDelay)
	assert.Equal(t, "EBAY_PL", cfg.Ebay.Marketplace)
	assert.Equal(t, "eu-west-1", cfg.Amazon.Region)
	assert.Equal(t, 1, cfg.SchedulerConcurrency)
}

func TestLoadConfig_VendorPrefixAndLists(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("ALLEGRO_ENABLED", "true")
	t.Setenv("ALLEGRO_BASE_URL", "https://api.allegro.pl.allegrosandbox.pl/")
	t.Setenv("ALLEGRO_MIN_DELAY", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Allegro.Enabled)
	assert.Equal(t, "https://api.allegro.pl.allegrosandbox.pl", cfg.Allegro.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Allegro.MinDelay)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_MongoNeedsURI(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}
