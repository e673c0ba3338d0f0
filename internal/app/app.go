// Package app wires configuration into the running service: stores, rate
// limiters, marketplace clients, indexing, the orchestrator and the admin
// router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"okazje-ingest/internal/cache"
	"okazje-ingest/internal/config"
	"okazje-ingest/internal/database"
	"okazje-ingest/internal/handlers"
	"okazje-ingest/internal/indexing"
	"okazje-ingest/internal/ingest"
	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/marketplace/aliexpress"
	"okazje-ingest/internal/marketplace/allegro"
	"okazje-ingest/internal/marketplace/amazon"
	"okazje-ingest/internal/marketplace/ebay"
	"okazje-ingest/internal/middleware"
	"okazje-ingest/internal/models"
	"okazje-ingest/internal/oauth"
	"okazje-ingest/internal/ratelimit"
	"okazje-ingest/internal/repository"
	"okazje-ingest/internal/repository/firestoredb"
	"okazje-ingest/internal/repository/memory"
	"okazje-ingest/internal/routes"
	"okazje-ingest/internal/scheduler"
)

type App struct {
	Config       *config.Config
	Log          logrus.FieldLogger
	Store        *repository.Store
	Vendors      *marketplace.Registry
	Orchestrator *ingest.Orchestrator
	Scheduler    *scheduler.ImportScheduler
	Router       *gin.Engine

	verifier middleware.TokenVerifier
	closers  []func() error
}

// New builds every component. Close releases what New opened, also when New
// fails halfway.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, log := a.Config, a.Log

	if err := a.initStore(ctx); err != nil {
		return err
	}

	tokenCache := cache.New(ctx, 5*time.Minute, time.Minute)
	tokens := oauth.NewProvider(a.Store.Tokens, tokenCache, log.WithField("component", "oauth"))

	limiters, err := a.initLimiters(ctx)
	if err != nil {
		return err
	}
	a.Vendors = buildVendors(cfg, limiters, tokens, log)
	if len(a.Vendors.Vendors()) == 0 {
		log.Warn("no marketplace is enabled; runs will fail with an unsupported vendor")
	}

	indexer, err := a.initIndexer()
	if err != nil {
		return err
	}

	a.Orchestrator = ingest.NewOrchestrator(ingest.Options{
		Store:         a.Store,
		Vendors:       a.Vendors,
		Indexer:       indexer,
		Log:           log.WithField("component", "ingest"),
		DealsPostedBy: cfg.DealsPostedBy,
		StoreRawData:  cfg.StoreRawData,
	})
	a.Scheduler = scheduler.NewImportScheduler(a.Store.Profiles, a.Orchestrator, cfg.SchedulerInterval, cfg.SchedulerConcurrency, log.WithField("component", "scheduler"))

	responseCache := cache.New(ctx, 30*time.Second, time.Minute)
	h := handlers.NewImportHandler(a.Store.Profiles, a.Store.Runs, a.Orchestrator, a.Vendors, responseCache, log.WithField("component", "api"))
	a.Router = newRouter(cfg, h, a.verifier, log)
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.StoreBackend {
	case "memory":
		a.Log.Warn("using the in-memory store; data is lost on exit")
		a.Store = memory.NewStore().Repository()

	case "mongo":
		client, err := database.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		a.Store = repository.NewMongoStore(client.Database(cfg.MongoDB))
		if products, ok := a.Store.Products.(*repository.ProductRepository); ok {
			if err := products.EnsureIndexes(ctx); err != nil {
				return err
			}
		}

	default:
		fb, err := database.InitFirebase(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, fb.Close)
		a.Store = firestoredb.NewStore(fb.Firestore)
		if cfg.AuthEnabled {
			a.verifier = fb.Auth
		}
	}

	if cfg.AuthEnabled && a.verifier == nil {
		a.Log.Warn("AUTH_ENABLED is set but Firebase auth is only available with the firestore store; the admin API is unauthenticated")
	}
	return nil
}

func (a *App) initLimiters(ctx context.Context) (*ratelimit.Registry, error) {
	if a.Config.RateLimitBackend != "redis" {
		return ratelimit.NewRegistry(ratelimit.LocalFactory), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	a.closers = append(a.closers, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return ratelimit.NewRegistry(ratelimit.RedisFactory(rdb)), nil
}

func (a *App) initIndexer() (indexing.Indexer, error) {
	if len(a.Config.KafkaBrokers) == 0 {
		return indexing.Noop{}, nil
	}
	producer, err := indexing.NewKafkaProducer(a.Config.KafkaBrokers)
	if err != nil {
		return nil, err
	}
	k := indexing.NewKafka(producer, a.Config.KafkaIndexTopic, a.Log.WithField("component", "indexing"))
	a.closers = append(a.closers, k.Close)
	return k, nil
}

func buildVendors(cfg *config.Config, limiters *ratelimit.Registry, tokens marketplace.TokenProvider, log logrus.FieldLogger) *marketplace.Registry {
	httpClient := &http.Client{}
	opts := func(id models.VendorID, vc config.VendorConfig) marketplace.Options {
		return marketplace.Options{
			BaseURL:     vc.BaseURL,
			AppKey:      vc.AppKey,
			AppSecret:   vc.AppSecret,
			AccountName: vc.AccountName,
			TrackingID:  vc.TrackingID,
			Marketplace: vc.Marketplace,
			Region:      vc.Region,
			Currency:    vc.Currency,
			Language:    vc.Language,
			Timeout:     cfg.HTTPTimeout,
			HTTPClient:  httpClient,
			Limiter:     limiters.For(string(id), vc.AccountName, vc.RateLimitPerMinute, vc.MinDelay),
			Tokens:      tokens,
			Log:         log.WithField("vendor", id),
		}
	}

	reg := marketplace.NewRegistry()
	if cfg.AliExpress.Enabled {
		reg.Register(aliexpress.New(opts(models.VendorAliExpress, cfg.AliExpress)))
	}
	if cfg.Allegro.Enabled {
		reg.Register(allegro.New(opts(models.VendorAllegro, cfg.Allegro)))
	}
	if cfg.Amazon.Enabled {
		reg.Register(amazon.New(opts(models.VendorAmazon, cfg.Amazon)))
	}
	if cfg.Ebay.Enabled {
		reg.Register(ebay.New(opts(models.VendorEbay, cfg.Ebay)))
	}
	return reg
}

func newRouter(cfg *config.Config, h *handlers.ImportHandler, verifier middleware.TokenVerifier, log logrus.FieldLogger) *gin.Engine {
	router := gin.Default()

	corsCfg := cors.DefaultConfig()
	if cfg.CORSOrigins == "*" || cfg.CORSOrigins == "" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = strings.Split(cfg.CORSOrigins, ",")
	}
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))

	routes.RegisterRoutes(router, h, middleware.Auth(verifier, log.WithField("component", "auth")))
	return router
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
