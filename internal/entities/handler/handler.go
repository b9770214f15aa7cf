package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities/service"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities/transport"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/httpkit"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/validator"
)

// Handler handles HTTP requests for entity records.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New creates a new entities handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List returns the registered entities.
// GET /api/v1/entities
func (h *Handler) List(c *gin.Context) {
	configs := h.svc.Entities()
	out := make([]transport.EntitySummary, len(configs))
	for i, cfg := range configs {
		out[i] = transport.EntitySummary{Name: cfg.Name, DisplayName: cfg.DisplayName}
	}
	httpkit.OK(c, transport.ListEntitiesResponse{Success: true, Entities: out})
}

// Describe returns an entity config and its blank form.
// GET /api/v1/entities/:collection
func (h *Handler) Describe(c *gin.Context) {
	cfg, err := h.svc.Entity(c.Param("collection"))
	if httpkit.HandleError(c, err) {
		return
	}
	fields, err := h.svc.BlankForm(cfg.Name)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.EntityResponse{Success: true, Entity: cfg, Fields: fields})
}

// SearchableFields lists the fields an entity can be searched on.
// GET /api/v1/entities/:collection/fields
func (h *Handler) SearchableFields(c *gin.Context) {
	fields, err := h.svc.SearchableFields(c.Request.Context(), c.Param("collection"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SearchableFieldsResponse{Success: true, SearchableFields: fields})
}

// RefreshSearchableFields re-introspects an entity's searchable fields.
// POST /api/v1/admin/entities/:collection/fields/refresh
func (h *Handler) RefreshSearchableFields(c *gin.Context) {
	fields, err := h.svc.RefreshSearchableFields(c.Request.Context(), c.Param("collection"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SearchableFieldsResponse{Success: true, SearchableFields: fields})
}

// Search finds records.
// GET /api/v1/entities/:collection/search?field=&term=&limit=
func (h *Handler) Search(c *gin.Context) {
	var req transport.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgValidationFailed, err.Error())
		return
	}

	res, err := h.svc.Search(c.Request.Context(), c.Param("collection"), req.Field, req.Term, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	keys := make([]string, len(res.SearchableFields))
	for i, f := range res.SearchableFields {
		keys[i] = f.Value
	}
	results := res.Results
	if results == nil {
		results = []document.Document{}
	}
	httpkit.OK(c, transport.SearchResponse{
		Success:          true,
		Total:            res.Total,
		SearchableFields: keys,
		Results:          results,
	})
}

// Create stores a new record.
// POST /api/v1/entities/:collection/records
func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bindRecord(c)
	if !ok {
		return
	}
	doc, err := h.svc.Create(c.Request.Context(), c.Param("collection"), req.Fields)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.RecordResponse{Success: true, Data: doc})
}

// Update merges a form into an existing record.
// PUT /api/v1/entities/:collection/records
func (h *Handler) Update(c *gin.Context) {
	req, ok := h.bindRecord(c)
	if !ok {
		return
	}
	doc, err := h.svc.Update(c.Request.Context(), c.Param("collection"), req.Fields)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RecordResponse{Success: true, Data: doc})
}

// Get returns a record with its filled form.
// GET /api/v1/entities/:collection/records/:id
func (h *Handler) Get(c *gin.Context) {
	doc, fields, err := h.svc.Detail(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RecordResponse{Success: true, Data: doc, Fields: fields})
}

// Delete removes a record.
// DELETE /api/v1/entities/:collection/records/:id
func (h *Handler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SuccessResponse{Success: true})
}

func (h *Handler) bindRecord(c *gin.Context) (transport.RecordRequest, bool) {
	var req transport.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgValidationFailed, err.Error())
		return req, false
	}
	return req, true
}
