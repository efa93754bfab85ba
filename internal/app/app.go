package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mamaereview/mamae-review/pkg/cache"
	"github.com/mamaereview/mamae-review/pkg/health"
	pkgkafka "github.com/mamaereview/mamae-review/pkg/kafka"
	"github.com/mamaereview/mamae-review/pkg/middleware"
	"github.com/mamaereview/mamae-review/pkg/tracing"

	"github.com/mamaereview/mamae-review/internal/auth"
	"github.com/mamaereview/mamae-review/internal/config"
	"github.com/mamaereview/mamae-review/internal/docstore"
	fsstore "github.com/mamaereview/mamae-review/internal/docstore/firestore"
	"github.com/mamaereview/mamae-review/internal/docstore/memory"
	"github.com/mamaereview/mamae-review/internal/event"
	handler "github.com/mamaereview/mamae-review/internal/handler/http"
	repodocstore "github.com/mamaereview/mamae-review/internal/repository/docstore"
	"github.com/mamaereview/mamae-review/internal/service"
)

const serviceVersion = "0.1.0"

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          docstore.Store
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "mamae-review",
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize the document store backend.
	var store docstore.Store
	switch cfg.StoreBackend {
	case config.StoreBackendFirestore:
		store, err = fsstore.New(ctx, fsstore.Config{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.FirestoreCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to firestore: %w", err)
		}
		logger.Info("connected to Firestore",
			slog.String("project_id", cfg.FirestoreProjectID),
		)
	default:
		store = memory.New()
		logger.Info("using in-memory document store")
	}

	// Optional Redis feed cache.
	var feedCache service.Cache
	var redisCache *cache.RedisCache
	if cfg.CacheEnabled {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		redisCache = cache.NewRedisCache(client)
		feedCache = redisCache
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr()))
	}

	// Optional Kafka producer for domain events.
	var producer *pkgkafka.Producer
	var publisher service.Publisher
	if cfg.EventsEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTExpiry)
	productRepo := repodocstore.NewProductRepository(store)
	reviewRepo := repodocstore.NewReviewRepository(store)

	ratingService := service.NewRatingService(productRepo, reviewRepo, feedCache, publisher, logger)
	productService := service.NewProductService(productRepo, feedCache, cfg.FeedCacheTTL, publisher, logger)
	reviewService := service.NewReviewService(reviewRepo, productRepo, ratingService, publisher, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("docstore", store.Ping)
	if redisCache != nil {
		healthHandler.Register("redis", redisCache.Ping)
	}
	if producer != nil {
		healthHandler.Register("kafka", producer.Ping)
	}

	authMiddleware := middleware.Auth(func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.Validate(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Name:   claims.Name,
			Email:  claims.Email,
		}, nil
	})

	corsConfig := middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	}

	router := handler.NewRouter(productService, reviewService, healthHandler, authMiddleware, corsConfig, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: review stream responses are long-lived.
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server drains
// in-flight requests first, then the tracer flushes their spans, then the
// Kafka producer and document store are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("document store close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
