// Command crmctl is the admin CLI for the CRM entity records. It runs the
// same entity service as the API directly against the configured store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/bootstrap"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities/service"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

func main() {
	root := newRootCmd(openFromConfig)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openFromConfig builds the entity service from the environment. Changes made
// here are not announced to running API instances; their caches expire on
// their own.
func openFromConfig(ctx context.Context, verbose bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.Discard()
	if verbose {
		log = logger.NewWithWriter(cfg.Env, os.Stderr)
	}

	st, closeStore, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rdb, err := bootstrap.OpenRedis(ctx, cfg, log)
	if err != nil {
		closeStore()
		return nil, err
	}

	core, err := bootstrap.NewCore(cfg, st, rdb, nil, log)
	if err != nil {
		closeStore()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	return &session{
		svc: service.New(core.Registry, core.CRUD, core.Cache, bootstrap.ServiceOptions(cfg), log),
		close: func() {
			if rdb != nil {
				_ = rdb.Close()
			}
			closeStore()
		},
	}, nil
}
