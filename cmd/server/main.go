package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/venue-reservation/internal/booking"
	"github.com/iliyamo/venue-reservation/internal/config"
	"github.com/iliyamo/venue-reservation/internal/database"
	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
	"github.com/iliyamo/venue-reservation/internal/payment"
	"github.com/iliyamo/venue-reservation/internal/queue"
	"github.com/iliyamo/venue-reservation/internal/repository"
	"github.com/iliyamo/venue-reservation/internal/router"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := setupLogger(cfg.Env)
	logger.Info("starting venue reservation server", "env", cfg.Env, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		logger.Error("invalid VENUE_TIMEZONE", "timezone", cfg.Booking.Timezone, "error", err)
		os.Exit(1)
	}
	policy, err := booking.ParseCancellationTiers(cfg.Booking.CancellationTiers)
	if err != nil {
		logger.Error("invalid CANCELLATION_TIERS", "error", err)
		os.Exit(1)
	}

	// Stores
	var (
		store   repository.ReservationStore
		catalog repository.Catalog
	)
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; reservations are lost on restart")
		store = repository.NewMemoryStore()
		catalog = repository.NewSeededCatalog()
	case "mysql":
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			logger.Error("failed to connect to MySQL", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if cfg.DB.AutoMigrate {
			if err := database.EnsureSchema(ctx, db); err != nil {
				logger.Error("schema migration failed", "error", err)
				os.Exit(1)
			}
			if err := database.Seed(ctx, db, repository.SeedRooms(), repository.SeedServices(), repository.SeedEventTypes()); err != nil {
				logger.Error("catalog seed failed", "error", err)
				os.Exit(1)
			}
		}
		store = repository.NewReservationRepo(db)
		catalog = repository.NewCatalogRepo(db)
	default:
		logger.Error("unknown STORE_DRIVER", "driver", cfg.StoreDriver)
		os.Exit(1)
	}

	var shared *memcache.Client
	if cfg.Catalog.MemcachedHost != "" {
		shared = memcache.New(cfg.Catalog.MemcachedHost)
	}
	cached := repository.NewCachedCatalog(catalog, shared, cfg.Catalog.Size, cfg.Catalog.TTL, logger)
	defer cached.Stop()

	// Collaborators
	var notifier booking.Notifier = queue.LogNotifier{Log: logger}
	if cfg.Queue.URL != "" {
		notifier = queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, logger)
	}

	var (
		history     handler.EventHistory
		mongoClient *mongo.Client
		sinks       = []queue.Sink{queue.NewFileSink(cfg.Queue.LogDir)}
	)
	if cfg.Mongo.URI != "" {
		mongoClient, err = queue.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			logger.Warn("MongoDB unavailable, event history disabled", "error", err)
		} else {
			sink := queue.NewMongoSink(mongoClient, cfg.Mongo.Database)
			sinks = append(sinks, sink)
			history = sink
		}
	}
	if cfg.Queue.URL != "" && cfg.Queue.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.Name, logger, sinks...)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", "error", err)
			}
		}()
	}

	svc := booking.NewService(store, cached, payment.NewDeferred(), notifier, booking.Config{
		Pricing: booking.PricingConfig{
			TaxRateBP:        cfg.Booking.TaxRateBP,
			DepositRequired:  cfg.Booking.DepositRequired,
			DepositPercentBP: cfg.Booking.DepositPercentBP,
		},
		PaymentRequired: cfg.Booking.PaymentRequired,
		MassageDuration: cfg.Booking.MassageDuration,
		Cancellation:    policy,
	}, logger)

	// HTTP
	rdb := config.NewRedisClient(config.LoadRedisConfig(), logger)
	if rdb != nil {
		defer rdb.Close()
	}
	rl := config.LoadRateLimitConfig()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e)
	router.RegisterPublic(e,
		handler.NewPublicHandler(svc, logger),
		handler.NewPaymentHandler(svc, cfg.Booking.WebhookSecret, logger),
		router.Limits{
			Read:  middleware.NewTokenBucket(rl, rdb, "read", rl.Capacity, logger),
			Write: middleware.NewTokenBucket(rl, rdb, "write", rl.WriteCapacity, logger),
			Cache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		})
	admin := handler.NewAdminHandler(svc, history, logger)
	admin.Location = loc
	router.RegisterAdmin(e, admin, cfg.JWTSecret)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			logger.Error("error disconnecting from MongoDB", "error", err)
		}
	}
	logger.Info("server exited")
}

func setupLogger(env string) *slog.Logger {
	var h slog.Handler
	if env == "prod" || env == "production" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
