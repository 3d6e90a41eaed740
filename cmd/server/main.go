// Command server runs the Pactum activity log service: the ingestion and
// feed HTTP API plus the scheduled retention sweeper. Business logic lives in
// the internal services; main only wires dependencies and the lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"pactum/internal/activity"
	"pactum/internal/activity/feed"
	"pactum/internal/activity/handler"
	"pactum/internal/activity/metrics"
	"pactum/internal/activity/recorder"
	"pactum/internal/activity/retention"
	memstore "pactum/internal/activity/store/memory"
	pgstore "pactum/internal/activity/store/postgres"
	redisstore "pactum/internal/activity/store/redis"
	"pactum/internal/platform/config"
	"pactum/internal/platform/httpserver"
	"pactum/internal/platform/logger"
	"pactum/internal/platform/middleware"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	store, closeStore, err := buildStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()

	rec, err := recorder.New(store, log, m)
	if err != nil {
		return err
	}
	feedSvc, err := feed.New(store, cfg.RetentionWindow, log, m)
	if err != nil {
		return err
	}
	sweeper, err := retention.New(store, cfg.RetentionWindow, log, m,
		retention.WithBatchSize(cfg.SweepBatchSize))
	if err != nil {
		return err
	}

	h := handler.New(rec, feedSvc, sweeper, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ContentTypeJSON)
	if cfg.JWTSigningKey != "" {
		r.Use(middleware.ActorFromToken([]byte(cfg.JWTSigningKey), log))
	}
	r.Route("/api", func(api chi.Router) {
		h.Register(api)
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := sweeper.Sweep(ctx); err != nil {
			// Already logged and reflected in health; never fatal.
			return
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, sweep); err != nil {
		return fmt.Errorf("schedule retention sweep %q: %w", cfg.SweepSchedule, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting activity log service",
			"addr", cfg.Addr,
			"store", cfg.StoreBackend,
			"retention_window", cfg.RetentionWindow.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		// Catch up on anything that expired while the process was down,
		// then hand off to the schedule.
		sweep()
		scheduler.Start()
		<-ctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStore selects the log store backend from configuration.
func buildStore(cfg config.Config, log *slog.Logger) (activity.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		store := pgstore.New(db)
		if err := store.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	case config.BackendRedis:
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis URL: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return redisstore.New(client), func() { client.Close() }, nil

	case config.BackendMemory:
		log.Warn("using in-memory store; events are lost on restart")
		return memstore.NewInMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
