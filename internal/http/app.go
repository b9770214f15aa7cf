// Package http is the contract between the composition root, the router and
// the HTTP-facing modules.
package http

import (
	"context"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/health. The CRUD service implements it by pinging
// the document store.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled in cmd/api and handed to router.New. A nil Health always
// reports ok.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
