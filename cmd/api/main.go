package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/autocabinet/internal/auth"
	"github.com/geocoder89/autocabinet/internal/cache"
	"github.com/geocoder89/autocabinet/internal/config"
	"github.com/geocoder89/autocabinet/internal/contacts"
	"github.com/geocoder89/autocabinet/internal/crm"
	"github.com/geocoder89/autocabinet/internal/db"
	httpx "github.com/geocoder89/autocabinet/internal/http"
	"github.com/geocoder89/autocabinet/internal/http/handlers"
	"github.com/geocoder89/autocabinet/internal/observability"
	"github.com/geocoder89/autocabinet/internal/orders"
	"github.com/geocoder89/autocabinet/internal/payments"
	"github.com/geocoder89/autocabinet/internal/repo/memory"
	"github.com/geocoder89/autocabinet/internal/repo/postgres"
	"github.com/geocoder89/autocabinet/internal/repo/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type pingableStore interface {
	httpx.UserStore
	Ping(ctx context.Context) error
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	shutdownTracer, err := observability.InitTracer(context.Background(), cfg.OtelEnabled, cfg.OtelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// storage
	store, closeStore, err := openStore(cfg, prom)
	if err != nil {
		log.Error("store init failed", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// CRM
	client := crm.New(cfg.CRMWebhookURL, cfg.CRMTimeout,
		crm.WithObserver(prom),
		crm.WithContactPages(cfg.CRMContactPages),
	)

	var syncer contacts.Syncer = contacts.NewLogSyncer(log)
	if cfg.CRMWebhookURL != "" {
		syncer = contacts.NewCRMSyncer(client)
	} else {
		log.Warn("CRM_WEBHOOK_URL not set; contacts will not be synced and payments will fail")
	}
	protected := contacts.NewProtectedSyncer(syncer, contacts.ProtectedConfig{Timeout: cfg.CRMTimeout})

	stageCache, closeCache := openStageCache(cfg, log)
	defer closeCache()

	paymentsSvc := payments.NewService(client, stageCache, log, payments.Config{
		Limit:         cfg.PaymentsLimit,
		FallbackStage: cfg.CRMWorkStageFallback,
		Metrics:       prom,
	})

	catalog, err := orders.Load()
	if err != nil {
		log.Error("orders catalog invalid", "err", err)
		os.Exit(1)
	}

	handlers.RegisterValidators()

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Log:      log,
		Prom:     prom,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Users:    store,
		Ping:     store.Ping,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.AccessTTL()),
		Contacts: protected,
		Payments: paymentsSvc,
		Orders:   catalog,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.CRMTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "db_driver", cfg.DBDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func openStore(cfg config.Config, prom *observability.Prom) (pingableStore, func(), error) {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := db.NewPool(cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return postgres.NewUsersRepo(pool, prom), pool.Close, nil

	case "memory":
		return memory.NewUsersRepo(), func() {}, nil

	case "sqlite", "":
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return sqlite.NewUsersRepo(conn, prom), func() { _ = conn.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}

// openStageCache prefers redis so replicas share stage metadata, and falls back to
// process memory when redis is not configured or not reachable.
func openStageCache(cfg config.Config, log *slog.Logger) (cache.Store, func()) {
	if cfg.RedisAddr == "" {
		return cache.New(cfg.StageCacheTTL), func() {}
	}

	r := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.StageCacheTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		log.Warn("redis unreachable, using in-memory stage cache", "addr", cfg.RedisAddr, "err", err)
		_ = r.Close()
		return cache.New(cfg.StageCacheTTL), func() {}
	}

	return r, func() { _ = r.Close() }
}
