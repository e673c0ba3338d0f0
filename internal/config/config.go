package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// VendorConfig is the per-marketplace block, read with a vendor prefix
// (ALIEXPRESS_, ALLEGRO_, AMAZON_, EBAY_).
type VendorConfig struct {
	Enabled            bool          `env:"ENABLED" envDefault:"false"`
	BaseURL            string        `env:"BASE_URL"`
	AppKey             string        `env:"APP_KEY"`
	AppSecret          string        `env:"APP_SECRET"`
	AccountName        string        `env:"ACCOUNT_NAME" envDefault:"default"`
	TrackingID         string        `env:"TRACKING_ID"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE"`
	MinDelay           time.Duration `env:"MIN_DELAY"`
	Marketplace        string        `env:"MARKETPLACE"`
	Region             string        `env:"REGION"`
	Currency           string        `env:"CURRENCY"`
	Language           string        `env:"LANGUAGE"`
}

type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"firestore"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"okazje"`

	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	AuthEnabled             bool   `env:"AUTH_ENABLED" envDefault:"true"`
	CORSOrigins             string `env:"CORS_ORIGINS" envDefault:"*"`

	RateLimitBackend string `env:"RATE_LIMIT_BACKEND" envDefault:"local"`
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`

	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaIndexTopic string   `env:"KAFKA_INDEX_TOPIC" envDefault:"search-indexing"`

	SchedulerEnabled     bool          `env:"SCHEDULER_ENABLED" envDefault:"false"`
	SchedulerInterval    time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1h"`
	SchedulerConcurrency int           `env:"SCHEDULER_CONCURRENCY" envDefault:"1"`

	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	StoreRawData  bool          `env:"STORE_RAW_DATA" envDefault:"false"`
	DealsPostedBy string        `env:"DEALS_POSTED_BY" envDefault:"system-import"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogPath   string `env:"LOG_PATH" envDefault:"logs"`

	AliExpress VendorConfig `envPrefix:"ALIEXPRESS_"`
	Allegro    VendorConfig `envPrefix:"ALLEGRO_"`
	Amazon     VendorConfig `envPrefix:"AMAZON_"`
	Ebay       VendorConfig `envPrefix:"EBAY_"`
}

// LoadConfig reads .env when present (local development) and then the process
// environment.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Println("Error loading .env file:", err)
		} else {
			log.Println(".env file loaded successfully")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyVendorDefaults(&cfg.AliExpress, "https://api-sg.aliexpress.com", 500*time.Millisecond, 60)
	applyVendorDefaults(&cfg.Allegro, "https://api.allegro.pl", time.Second, 60)
	applyVendorDefaults(&cfg.Amazon, "https://webservices.amazon.pl", time.Second, 60)
	applyVendorDefaults(&cfg.Ebay, "https://api.ebay.com", 500*time.Millisecond, 120)

	if cfg.Amazon.Region == "" {
		cfg.Amazon.Region = "eu-west-1"
	}
	if cfg.Amazon.Marketplace == "" {
		cfg.Amazon.Marketplace = "www.amazon.pl"
	}
	if cfg.Ebay.Marketplace == "" {
		cfg.Ebay.Marketplace = "EBAY_PL"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyVendorDefaults(v *VendorConfig, baseURL string, minDelay time.Duration, perMinute int) {
	if v.BaseURL == "" {
		v.BaseURL = baseURL
	}
	v.BaseURL = strings.TrimRight(v.BaseURL, "/")
	if v.MinDelay <= 0 {
		v.MinDelay = minDelay
	}
	if v.RateLimitPerMinute <= 0 {
		v.RateLimitPerMinute = perMinute
	}
	if v.Currency == "" {
		v.Currency = "PLN"
	}
	if v.Language == "" {
		v.Language = "PL"
	}
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case "firestore", "mongo", "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StoreBackend == "mongo" && c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required for the mongo store")
	}
	switch c.RateLimitBackend {
	case "local", "redis":
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	if c.SchedulerConcurrency < 1 {
		c.SchedulerConcurrency = 1
	}
	return nil
}
