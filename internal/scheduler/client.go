package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/db"
)

// refreshUniqueTTL collapses bursts of writes to one collection into a
// single pending refresh.
const refreshUniqueTTL = 30 * time.Second

// Client enqueues refresh tasks. A nil *Client is a no-op.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient connects the enqueue side of the refresh task.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt), queue: queueName(cfg)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueRefresh schedules a refresh of collection. A refresh already
// pending for the same collection is not duplicated.
func (c *Client) EnqueueRefresh(ctx context.Context, collection string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewRefreshSearchableFieldsTask(RefreshSearchableFieldsPayload{Collection: collection})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(refreshUniqueTTL), asynq.MaxRetry(3))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

// connOpt shares the Redis connection settings of the rest of the service.
func connOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opt, err := db.RedisOptions(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
