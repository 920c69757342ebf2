package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/partstrack-backend/api/routes"
	"github.com/angelmondragon/partstrack-backend/internal/allocation"
	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/internal/ledger"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/internal/projects"
	"github.com/angelmondragon/partstrack-backend/internal/templates"
	"github.com/angelmondragon/partstrack-backend/internal/users"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/migrate"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox"
	pkgredis "github.com/angelmondragon/partstrack-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := pkgredis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	balances := inventory.NewBalanceRepository(conn)
	checker := inventory.NewChecker(balances)

	writer, err := ledger.NewWriter(ledger.NewRepository(conn), inventory.NewProjector(), emitter, logg)
	requireService(ctx, logg, "ledger writer", err)
	activities, err := ledger.NewService(ledger.NewRepository(conn), writer, checker, dbClient)
	requireService(ctx, logg, "ledger", err)

	templateRepo := templates.NewRepository(conn)
	engine, err := allocation.NewEngine(dbClient, allocation.NewRepository(conn), checker, writer, emitter, templateRepo, allocation.Options{
		Retry: db.RetryPolicy{
			MaxRetries: cfg.Allocation.TxRetries,
			Base:       cfg.Allocation.TxRetryBase,
		},
		StrictTemplateLocking: cfg.Allocation.StrictTemplateLocking,
		Metrics:               metrics.NewAllocationMetrics(registry),
		Logger:                logg,
	})
	requireService(ctx, logg, "allocation engine", err)

	projectSvc, err := projects.NewService(projects.NewRepository(conn), writer, dbClient, logg)
	requireService(ctx, logg, "projects", err)
	partSvc, err := parts.NewService(parts.NewRepository(conn), writer, dbClient)
	requireService(ctx, logg, "parts", err)
	categorySvc, err := categories.NewService(categories.NewRepository(conn), dbClient)
	requireService(ctx, logg, "categories", err)
	templateSvc, err := templates.NewService(templateRepo, checker, dbClient)
	requireService(ctx, logg, "templates", err)
	userSvc, err := users.NewService(users.NewRepository(conn), dbClient)
	requireService(ctx, logg, "users", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Redis:            redisClient,
			IdempotencyStore: redisClient,
			Metrics:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Engine:           engine,
			Projects:         projectSvc,
			Parts:            partSvc,
			Categories:       categorySvc,
			Templates:        templateSvc,
			Users:            userSvc,
			Activities:       activities,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to build service", err)
	os.Exit(1)
}
