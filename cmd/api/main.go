package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/bootstrap"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/events"
	apphttp "github.com/Ruben-boon/CPM-crm-system-sub001/internal/http"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/http/router"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/invalidation"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/scheduler"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.DocumentStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	st, closeStore, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open document store", "error", err)
		panic("failed to open document store: " + err.Error())
	}
	defer closeStore()

	rdb, err := bootstrap.OpenRedis(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	origin := uuid.NewString()

	refreshClient, closeClient := initRefreshClient(cfg, log)
	if closeClient != nil {
		defer closeClient()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	core, err := bootstrap.NewCore(cfg, st, rdb, invalidation.NewBusInvalidator(eventBus, origin), log)
	if err != nil {
		log.Error("failed to initialize entities", "error", err)
		panic("failed to initialize entities: " + err.Error())
	}
	log.Info("entity registry loaded", "entities", core.Registry.Names())

	opts := invalidation.Options{
		Origin:   origin,
		Cache:    core.Cache,
		Registry: core.Registry,
	}
	if refreshClient != nil {
		opts.Enqueuer = refreshClient
	}
	if rdb != nil {
		opts.Redis = rdb
	}
	eventsModule := invalidation.NewModule(opts, log)
	eventsModule.RegisterHandlers(eventBus)
	go eventsModule.Run(ctx)

	entitiesModule := entities.NewModule(core.Registry, core.CRUD, core.Cache, bootstrap.ServiceOptions(cfg), val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: core.CRUD,
		Modules: []apphttp.Module{
			entitiesModule,
			eventsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		// SSE streams only end once their clients are gone.
		eventsModule.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRefreshClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; searchable fields refresh lazily on read")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize refresh task client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}
