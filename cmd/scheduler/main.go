package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/bootstrap"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/events"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/scheduler"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "store", cfg.DocumentStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	if rdb == nil {
		panic("scheduler requires REDIS_URL")
	}
	defer rdb.Close()

	eventBus := events.NewInMemoryBus(log)
	eventBus.Subscribe(events.SearchableFieldsRefreshed{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		refreshed := e.(events.SearchableFieldsRefreshed)
		log.Debug("searchable fields published", "collection", refreshed.Collection, "fields", refreshed.Fields)
		return nil
	}))

	// The worker only reads, so changes are not announced.
	core, err := bootstrap.NewCore(cfg, st, rdb, nil, log)
	if err != nil {
		log.Error("failed to initialize entities", "error", err)
		panic("failed to initialize entities: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, core.Registry.Introspected(), log)
	if err != nil {
		log.Error("failed to initialize periodic refresh", "error", err)
		panic("failed to initialize periodic refresh: " + err.Error())
	}
	go periodic.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, core.Cache, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}
