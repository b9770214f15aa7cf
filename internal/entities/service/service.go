// Package service is the generic entity service. One instance serves every
// registered entity: the entity config decides layout, search behaviour and
// relations, the CRUD orchestrator does the storage work.
package service

import (
	"context"
	"slices"
	"strings"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/crud"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entity"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/formfield"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/schemacache"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/phone"
)

// FieldSource returns the introspected searchable fields of a collection.
// *schemacache.Cache implements it.
type FieldSource interface {
	Get(ctx context.Context, collection string) ([]string, error)
	Refresh(ctx context.Context, collection string) ([]string, error)
}

// Options tunes the service.
type Options struct {
	// PhoneRegion is used for numbers without a country prefix.
	PhoneRegion string
	// SearchLimit caps results when neither the request nor the entity does.
	SearchLimit int
}

// SearchResult is a page of matches with the fields the entity can be
// searched on.
type SearchResult struct {
	Total            int64
	SearchableFields []query.SearchableField
	Results          []document.Document
}

// Service is safe for concurrent use.
type Service struct {
	registry *entity.Registry
	crud     *crud.Service
	fields   FieldSource
	opts     Options
	log      *logger.Logger
}

// New creates the service.
func New(registry *entity.Registry, crudSvc *crud.Service, fields FieldSource, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = phone.DefaultRegion
	}
	return &Service{registry: registry, crud: crudSvc, fields: fields, opts: opts, log: log}
}

// IntrospectLoader returns the schemacache loader that samples one document
// of a collection and lists its string leaves. Timestamps are never
// searchable even when a backend stores them as strings.
func IntrospectLoader(crudSvc *crud.Service) schemacache.Loader {
	return func(ctx context.Context, collection string) ([]string, error) {
		doc, ok, err := crudSvc.Sample(ctx, collection)
		if err != nil || !ok {
			return nil, err
		}
		fields := document.SearchableFields(doc, "")
		return slices.DeleteFunc(fields, func(p string) bool {
			return p == document.CreatedAtField || p == document.UpdatedAtField
		}), nil
	}
}

// Entities lists the registered entity configs sorted by name.
func (s *Service) Entities() []entity.Config {
	return s.registry.All()
}

// Entity returns one entity config.
func (s *Service) Entity(collection string) (entity.Config, error) {
	return s.registry.Get(collection)
}

// BlankForm returns the create-mode form of collection.
func (s *Service) BlankForm(collection string) ([]formfield.FormField, error) {
	cfg, err := s.registry.Get(collection)
	if err != nil {
		return nil, err
	}
	return formfield.Blank(cfg.Layout()), nil
}

// SearchableFields returns the declared search fields of collection, or the
// introspected ones when none are declared.
func (s *Service) SearchableFields(ctx context.Context, collection string) ([]query.SearchableField, error) {
	cfg, err := s.registry.Get(collection)
	if err != nil {
		return nil, err
	}
	return s.searchableFields(ctx, cfg)
}

func (s *Service) searchableFields(ctx context.Context, cfg entity.Config) ([]query.SearchableField, error) {
	if cfg.HasDeclaredSearchFields() {
		return slices.Clone(cfg.SearchFields), nil
	}
	if s.fields == nil {
		return []query.SearchableField{}, nil
	}
	paths, err := s.fields.Get(ctx, cfg.Name)
	if err != nil {
		return nil, err
	}
	return labelPaths(cfg, paths), nil
}

// RefreshSearchableFields re-introspects collection and returns the fresh
// list. Entities with declared search fields are returned unchanged.
func (s *Service) RefreshSearchableFields(ctx context.Context, collection string) ([]query.SearchableField, error) {
	cfg, err := s.registry.Get(collection)
	if err != nil {
		return nil, err
	}
	if cfg.HasDeclaredSearchFields() || s.fields == nil {
		return s.searchableFields(ctx, cfg)
	}
	paths, err := s.fields.Refresh(ctx, cfg.Name)
	if err != nil {
		return nil, err
	}
	s.log.Info("searchable fields refreshed", "collection", cfg.Name, "count", len(paths))
	return labelPaths(cfg, paths), nil
}

func labelPaths(cfg entity.Config, paths []string) []query.SearchableField {
	out := make([]query.SearchableField, len(paths))
	for i, p := range paths {
		label := p
		if f, ok := cfg.Field(p); ok {
			label = f.Label
		}
		out[i] = query.SearchableField{Label: label, Value: p}
	}
	return out
}

// Search finds records of collection whose field contains term. An empty
// term matches everything. limit <= 0 uses the entity's own cap.
func (s *Service) Search(ctx context.Context, collection, field, term string, limit int) (SearchResult, error) {
	cfg, err := s.registry.Get(collection)
	if err != nil {
		return SearchResult{}, err
	}
	searchable, err := s.searchableFields(ctx, cfg)
	if err != nil {
		return SearchResult{}, err
	}

	filter := query.MatchAll()
	if strings.TrimSpace(term) != "" {
		qc := cfg.SearchConfig()
		if !cfg.HasDeclaredSearchFields() {
			qc.SearchFields = searchable
			if qc.DefaultSearchField == "" && len(searchable) > 0 {
				qc.DefaultSearchField = searchable[0].Value
			}
		}
		filter, err = query.Build(qc, field, strings.TrimSpace(term))
		if err != nil {
			return SearchResult{}, err
		}
	}

	res, err := s.crud.Search(ctx, cfg.Name, filter, crud.SearchOptions{
		Projection: cfg.ListFields,
		Limit:      cfg.Limit(limit, s.opts.SearchLimit),
	})
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Total: res.Total, SearchableFields: searchable, Results: res.Results}, nil
}

// Create stores a new record from a submitted form. Empty fields are left out.
func (s *Service) Create(ctx context.Context, collection string, fields []formfield.FormField) (document.Document, error) {
	cfg, err := s.registry.Get(collection)
	if err != nil {
		return nil, err
	}
	prepared, err := s.prepare(cfg, fields, true)
	if err != nil {
		return nil, err
	}
	doc, err := formfield.ToDocument(prepared, formfield.OmitEmpty)
	if err != nil {
		return nil, err
	}
	return s.crud.Create(ctx, cfg.Name, doc)
}

// Update merges a submitted form into the record named by its objectId
// field. Empty fields clear the stored value; fields not submitted are kept.
func (s *Service) Update(ctx context.Context, collection string, fields []formfield.FormField) (document.Document, error) {
	cfg, err := s.registry.Get(collection)
	if err != nil {
		return nil, err
	}
	idField, ok := formfield.Find(fields, formfield.ObjectIDField)
	if !ok || strings.TrimSpace(idField.Value) == "" {
		return nil, apperr.MissingIdentifier().WithOp("entities.Update")
	}
	prepared, err := s.prepare(cfg, fields, false)
	if err != nil {
		return nil, err
	}
	doc, err := formfield.ToDocument(prepared, formfield.WriteEmpty)
	if err != nil {
		return nil, err
	}
	return s.crud.Update(ctx, cfg.Name, strings.TrimSpace(idField.Value), doc)
}

// Detail returns a record together with its filled form. Reference fields
// carry the display labels of the records they point to.
func (s *Service) Detail(ctx context.Context, collection, id string) (document.Document, []formfield.FormField, error) {
	cfg, err := s.registry.Get(collection)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.crud.Get(ctx, cfg.Name, id)
	if err != nil {
		return nil, nil, err
	}
	fields := formfield.FromDocument(doc, cfg.Layout())
	if err := s.populate(ctx, cfg, fields); err != nil {
		return nil, nil, err
	}
	return doc, fields, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	cfg, err := s.registry.Get(collection)
	if err != nil {
		return err
	}
	return s.crud.Delete(ctx, cfg.Name, id)
}

// prepare takes field types from the entity config, normalizes phone numbers
// and checks required and dropdown values. On update only submitted fields
// are checked.
func (s *Service) prepare(cfg entity.Config, fields []formfield.FormField, creating bool) ([]formfield.FormField, error) {
	problems := map[string]string{}
	out := make([]formfield.FormField, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		if f.ID == formfield.ObjectIDField {
			continue
		}
		seen[f.ID] = struct{}{}
		if !formfield.IsKnownType(f.Type) {
			problems[f.ID] = "unknown field type " + string(f.Type)
			continue
		}

		fc, declared := cfg.Field(f.ID)
		if declared {
			f.Type = fc.Type
			if fc.Normalize == entity.NormalizeE164 {
				normalized, err := phone.ParseE164(f.Value, s.opts.PhoneRegion)
				if err != nil {
					problems[f.ID] = err.Error()
					continue
				}
				f.Value = normalized
			}
			value := strings.TrimSpace(f.Value)
			if fc.Required && value == "" {
				problems[f.ID] = "is required"
				continue
			}
			if fc.Type == formfield.TypeDropdown && value != "" && !slices.Contains(fc.DropdownFields, value) {
				problems[f.ID] = "is not one of the allowed options"
				continue
			}
		}
		out = append(out, f)
	}

	if creating {
		for _, fc := range cfg.Fields {
			if _, ok := seen[fc.ID]; !ok && fc.Required {
				problems[fc.ID] = "is required"
			}
		}
	}

	if len(problems) > 0 {
		return nil, apperr.Validation("invalid form fields").
			WithOp("entities.prepare").
			WithDetails(problems)
	}
	return out, nil
}
