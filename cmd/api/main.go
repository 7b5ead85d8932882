package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	activitiesCharts "chart-engine-service/internal/activities/adapters/charts"
	activitiesHttp "chart-engine-service/internal/activities/adapters/http/fiber"
	activitiesRepoPg "chart-engine-service/internal/activities/adapters/postgres"
	activitiesPorts "chart-engine-service/internal/activities/core/ports"
	activitiesUsecase "chart-engine-service/internal/activities/core/usecase"

	"chart-engine-service/internal/charts/adapters/badgerstore"
	chartsHttp "chart-engine-service/internal/charts/adapters/http/fiber"
	"chart-engine-service/internal/charts/adapters/memory"
	chartsRepoPg "chart-engine-service/internal/charts/adapters/postgres"
	"chart-engine-service/internal/charts/adapters/redislock"
	"chart-engine-service/internal/charts/catalog"
	chartsPorts "chart-engine-service/internal/charts/core/ports"
	"chart-engine-service/internal/charts/core/engine"
	chartsUsecase "chart-engine-service/internal/charts/core/usecase"
	"chart-engine-service/internal/charts/scheduler"

	"chart-engine-service/internal/config"
	"chart-engine-service/internal/logging"
	sourcesPg "chart-engine-service/internal/sources/postgres"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	_ "chart-engine-service/docs"
)

// @title Chart Engine Service API
// @version 1.0
// @description Hour and day statistics for a federated social network backend.
// @BasePath /
func main() {
	// Config
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB connection (optional outside the postgres driver)
	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = openPostgres(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer db.Close()
	}

	// Chart storage
	var store chartsPorts.BucketStorePort
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		repo := chartsRepoPg.NewBucketRepository(chartsRepoPg.NewSQLDB(db))
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to create chart tables")
		}
		store = repo
	case config.DriverBadger:
		bs, err := badgerstore.Open(cfg.Storage.BadgerDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open badger store")
		}
		defer bs.Close()
		store = bs
	default:
		logger.Warn().Msg("memory chart storage: data is lost on restart")
		store = memory.NewStore()
	}

	// Chart locks
	var locks chartsPorts.LockProviderPort
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to ping redis")
		}
		locks = redislock.New(rdb, redislock.WithRetryDelay(cfg.Charts.LockRetryDelay))
	} else {
		logger.Warn().Msg("no redis configured: chart locks are process-local")
		locks = memory.NewLocker()
	}

	// Charts
	deps := catalog.Deps{
		Store:   store,
		Locks:   locks,
		Logger:  logger,
		Options: []engine.Option{engine.WithLockTimeout(cfg.Charts.LockTimeout)},
	}
	if db != nil {
		sources := sourcesPg.NewSourceRepository(sourcesPg.NewSQLDB(db), cfg.Sources.BlockedHosts...)
		deps.Users = sources
		deps.Notes = sources
		deps.Instances = sources
		deps.Drive = sources
		deps.Follows = sources
	}
	charts := catalog.New(deps)

	registry := engine.NewRegistry()
	if err := charts.Register(registry); err != nil {
		logger.Fatal().Err(err).Msg("failed to register charts")
	}

	// Activity log (dedupe by id)
	var activityLog activitiesPorts.ActivityLogPort
	if db != nil {
		repo := activitiesRepoPg.NewActivityLogRepository(activitiesRepoPg.NewSQLDB(db))
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to create activity log table")
		}
		activityLog = repo
	}

	// Usecases
	getChartUC := chartsUsecase.NewGetChartUseCase(registry)
	resyncUC := chartsUsecase.NewResyncChartsUseCase(registry, logger)
	recordActivityUC := activitiesUsecase.NewRecordActivityUseCase(activityLog, activitiesCharts.NewRecorder(charts), nil)

	// Scheduler
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(logger, registry, scheduler.Config{
			MinorSpec:     cfg.Scheduler.MinorSpec,
			MajorSpec:     cfg.Scheduler.MajorSpec,
			Concurrency:   cfg.Scheduler.Concurrency,
			ResyncOnStart: cfg.Scheduler.ResyncOnStart,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create scheduler")
		}
		sched.Start(ctx)
		defer sched.Close()
	}

	// HTTP (Fiber) app + handlers
	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})

	// chart endpoints
	chartsHandler := chartsHttp.NewChartHandler(getChartUC, resyncUC)
	app.Get("/charts/:chart", chartsHandler.GetChart)
	app.Post("/admin/charts/resync", chartsHandler.Resync)

	// activity endpoints
	activitiesHandler := activitiesHttp.NewActivityHandler(recordActivityUC)
	app.Post("/activities", activitiesHandler.RecordActivity)
	app.Post("/activities/bulk", activitiesHandler.BulkRecordActivities)

	// Prometheus
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger
	app.Get("/docs/*", fiberSwagger.WrapHandler)

	// Graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := app.Listen(addr); err != nil {
			logger.Error().Err(err).Msg("fiber stopped")
			stop()
		}
	}()

	logger.Info().
		Str("addr", addr).
		Str("storage", cfg.Storage.Driver).
		Int("charts", len(registry.Names())).
		Msg("server started")

	<-ctx.Done()

	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("fiber shutdown error")
	}

	logger.Info().Msg("server exiting")
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
