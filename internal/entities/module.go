// Package entities provides the generic entity bounded context module. It
// serves forms, search and CRUD for every entity in the registry.
package entities

import (
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/crud"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities/handler"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities/service"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entity"
	apphttp "github.com/Ruben-boon/CPM-crm-system-sub001/internal/http"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/validator"
)

// Module is the entities module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the entities module.
func NewModule(registry *entity.Registry, crudSvc *crud.Service, fields service.FieldSource, opts service.Options, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(registry, crudSvc, fields, opts, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "entities"
}

// Service returns the service layer for the CLI and background worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the entity routes on the protected group and the
// refresh trigger on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	g := ctx.Protected.Group("/entities")
	g.GET("", m.handler.List)
	g.GET("/:collection", m.handler.Describe)
	g.GET("/:collection/fields", m.handler.SearchableFields)
	g.GET("/:collection/search", m.handler.Search)
	g.POST("/:collection/records", m.handler.Create)
	g.PUT("/:collection/records", m.handler.Update)
	g.GET("/:collection/records/:id", m.handler.Get)
	g.DELETE("/:collection/records/:id", m.handler.Delete)

	ctx.Admin.POST("/entities/:collection/fields/refresh", m.handler.RefreshSearchableFields)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
