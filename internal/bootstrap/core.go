package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/crud"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities/service"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entity"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/schemacache"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// Core is the domain graph every binary shares: the entity registry, the
// CRUD orchestrator and the searchable-field cache.
type Core struct {
	Registry *entity.Registry
	CRUD     *crud.Service
	Cache    *schemacache.Cache
}

// NewCore builds the shared domain graph on top of st. rdb may be nil; inv
// may be nil when changes need not be announced.
func NewCore(cfg config.EntityConfig, st store.Store, rdb *redis.Client, inv crud.Invalidator, log *logger.Logger) (*Core, error) {
	registry, err := entity.LoadRegistry(cfg.GetEntityConfigDir())
	if err != nil {
		return nil, fmt.Errorf("load entity configs: %w", err)
	}

	crudSvc := crud.New(st, inv, log).WithDefaultLimit(cfg.GetSearchResultLimit())

	// A typed nil client must not reach the cache as a non-nil interface.
	var shared redis.UniversalClient
	if rdb != nil {
		shared = rdb
	}
	cache := schemacache.New(shared, cfg.GetSearchableFieldsTTL(), service.IntrospectLoader(crudSvc), log)

	return &Core{Registry: registry, CRUD: crudSvc, Cache: cache}, nil
}

// ServiceOptions maps configuration onto the entities service options.
func ServiceOptions(cfg config.EntityConfig) service.Options {
	return service.Options{
		PhoneRegion: cfg.GetPhoneDefaultRegion(),
		SearchLimit: cfg.GetSearchResultLimit(),
	}
}
