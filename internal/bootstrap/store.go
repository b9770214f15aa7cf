package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store/memory"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store/mongostore"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store/pgstore"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/db"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

const (
	retryAttempts = 5
	retryDelay    = 2 * time.Second
)

// OpenStore connects the configured document store backend. The returned
// close function releases the connection.
func OpenStore(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (store.Store, func(), error) {
	switch cfg.GetDocumentStore() {
	case config.StoreMongo:
		var database *mongo.Database
		if err := WithRetry(ctx, log, "mongo connection", retryAttempts, retryDelay, func() error {
			d, err := db.ConnectMongo(ctx, cfg)
			if err != nil {
				return err
			}
			database = d
			return nil
		}); err != nil {
			return nil, nil, err
		}
		log.Info("mongo connection established", "database", cfg.GetMongoDatabase())
		return mongostore.New(database), func() {
			_ = database.Client().Disconnect(context.Background())
		}, nil

	case config.StorePostgres:
		if err := WithRetry(ctx, log, "database migrations", retryAttempts, retryDelay, func() error {
			return db.RunMigrations(ctx, cfg)
		}); err != nil {
			return nil, nil, err
		}
		log.Info("database migrations complete")

		var pool *pgxpool.Pool
		if err := WithRetry(ctx, log, "database connection", retryAttempts, retryDelay, func() error {
			p, err := db.NewPool(ctx, cfg)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}); err != nil {
			return nil, nil, err
		}
		log.Info("database connection established")
		return pgstore.New(pool), pool.Close, nil

	case config.StoreMemory:
		log.Warn("using in-memory document store; records are lost on exit")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported document store %q", cfg.GetDocumentStore())
	}
}

// OpenRedis connects to Redis when a URL is configured. A nil client means
// Redis is disabled.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; searchable-field cache and change relay are process-local")
		return nil, nil
	}
	var client *redis.Client
	if err := WithRetry(ctx, log, "redis connection", retryAttempts, retryDelay, func() error {
		c, err := db.NewRedis(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}); err != nil {
		return nil, err
	}
	return client, nil
}
