// Package transport holds the request and response shapes of the entities API.
package transport

import (
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entity"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/formfield"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
)

// RecordRequest carries a submitted form. On update it must contain the
// objectId field.
type RecordRequest struct {
	Fields []formfield.FormField `json:"fields" validate:"required,min=1,dive"`
}

// SearchRequest is bound from the query string.
type SearchRequest struct {
	Field string `form:"field"`
	Term  string `form:"term"`
	Limit int    `form:"limit" validate:"gte=0,lte=100"`
}

type EntitySummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type ListEntitiesResponse struct {
	Success  bool            `json:"success"`
	Entities []EntitySummary `json:"entities"`
}

// EntityResponse describes one entity and carries its blank create form.
type EntityResponse struct {
	Success bool                  `json:"success"`
	Entity  entity.Config         `json:"entity"`
	Fields  []formfield.FormField `json:"fields"`
}

// SearchResponse lists the searchable field keys; the labelled form is
// served by the fields endpoint.
type SearchResponse struct {
	Success          bool                `json:"success"`
	Total            int64               `json:"total"`
	SearchableFields []string            `json:"searchableFields"`
	Results          []document.Document `json:"results"`
}

type SearchableFieldsResponse struct {
	Success          bool                    `json:"success"`
	SearchableFields []query.SearchableField `json:"searchableFields"`
}

// RecordResponse returns a stored record. Fields is set on the detail view.
type RecordResponse struct {
	Success bool                  `json:"success"`
	Data    document.Document     `json:"data"`
	Fields  []formfield.FormField `json:"fields,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
