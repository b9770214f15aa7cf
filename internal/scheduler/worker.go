package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/events"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// Refresher recomputes and stores the searchable fields of a collection.
// *schemacache.Cache implements it.
type Refresher interface {
	Refresh(ctx context.Context, collection string) ([]string, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	refresher Refresher
	bus       events.Publisher
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, refresher Refresher, bus events.Publisher, log *logger.Logger) (*Worker, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(refresher, bus, log)
	w.server = server
	return w, nil
}

func newWorker(refresher Refresher, bus events.Publisher, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard()
	}
	w := &Worker{
		mux:       asynq.NewServeMux(),
		refresher: refresher,
		bus:       bus,
		log:       log,
	}
	w.mux.HandleFunc(TaskRefreshSearchableFields, w.handleRefreshSearchableFields)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return
	}
	<-ctx.Done()
	w.server.Shutdown()
}

func (w *Worker) handleRefreshSearchableFields(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRefreshSearchableFieldsPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	fields, err := w.refresher.Refresh(ctx, payload.Collection)
	if err != nil {
		return err
	}
	w.log.Info("searchable fields refreshed", "collection", payload.Collection, "count", len(fields))

	if w.bus == nil {
		return nil
	}
	return w.bus.PublishSync(ctx, events.SearchableFieldsRefreshed{
		BaseEvent:  events.NewBaseEvent(),
		Collection: payload.Collection,
		Fields:     fields,
	})
}
