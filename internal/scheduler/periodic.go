package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// Periodic enqueues a searchable-fields refresh for every introspected
// collection on a fixed interval.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, collections []string, log *logger.Logger) (*Periodic, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.Discard()
	}

	interval := cfg.GetSearchableFieldsRefresh()
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	cronspec := "@every " + interval.String()
	for _, collection := range collections {
		task, err := NewRefreshSearchableFieldsTask(RefreshSearchableFieldsPayload{Collection: collection})
		if err != nil {
			return nil, err
		}
		if _, err := s.Register(cronspec, task, asynq.Queue(queueName(cfg)), asynq.Unique(interval)); err != nil {
			return nil, fmt.Errorf("register refresh for %s: %w", collection, err)
		}
		log.Info("periodic refresh registered", "collection", collection, "every", interval.String())
	}

	return &Periodic{scheduler: s, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}
