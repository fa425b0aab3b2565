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
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/tradeinz-backend/api/controllers"
	"github.com/angelmondragon/tradeinz-backend/api/routes"
	"github.com/angelmondragon/tradeinz-backend/internal/jobs"
	"github.com/angelmondragon/tradeinz-backend/internal/matching"
	"github.com/angelmondragon/tradeinz-backend/internal/orders"
	"github.com/angelmondragon/tradeinz-backend/internal/partners"
	"github.com/angelmondragon/tradeinz-backend/pkg/config"
	"github.com/angelmondragon/tradeinz-backend/pkg/db"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
	"github.com/angelmondragon/tradeinz-backend/pkg/metrics"
	"github.com/angelmondragon/tradeinz-backend/pkg/migrate"
	"github.com/angelmondragon/tradeinz-backend/pkg/outbox"
	"github.com/angelmondragon/tradeinz-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	matchingMetrics := metrics.NewMatchingMetrics(registry)

	orderRepo := orders.NewRepository(dbClient.DB())
	partnerRepo := partners.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	orderService, err := orders.NewService(orderRepo, partnerRepo, dbClient, outboxService, matchingMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	matchingService, err := matching.NewService(orderRepo, partnerRepo, cfg.Matching, matchingMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create matching service", err)
		os.Exit(1)
	}

	watcher, err := jobs.NewStaleClaimWatcher(orderRepo, matchingMetrics, logg, cfg.Jobs.StaleClaimAge)
	if err != nil {
		logg.Error(context.Background(), "failed to create stale claim watcher", err)
		os.Exit(1)
	}
	scheduler, err := jobs.NewScheduler(cfg.Jobs, watcher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create job scheduler", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		Redis:    redisClient,
		Orders:   orderService,
		Matching: matchingService,
		HealthDeps: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		MetricsReg: registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	scheduler.Start(ctx)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		scheduler.Stop(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
	}

	if err := closeAll(dbClient.Close, redisClient.Close); err != nil {
		logg.Error(ctx, "error releasing resources", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}

func closeAll(closers ...func() error) error {
	var err error
	for _, closeFn := range closers {
		err = multierr.Append(err, closeFn())
	}
	return err
}
