// Package query translates a (search field, search term) pair into a
// store-neutral filter, honoring per-entity field-to-path configuration.
package query

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/validator"
)

// SearchableField maps a short UI key onto a storage path.
type SearchableField struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
}

// StoragePath returns Path, defaulting to Value.
func (f SearchableField) StoragePath() string {
	if f.Path != "" {
		return f.Path
	}
	return f.Value
}

// Config is the search-related part of an entity configuration.
type Config struct {
	SearchFields       []SearchableField
	DefaultSearchField string
	// DefaultGroup is the nested group unqualified names are looked up in,
	// e.g. "general" turns "firstName" into "general.firstName".
	DefaultGroup string
	// KnownPaths restricts default-group prefixing to declared field paths.
	// Empty means any prefixed name is accepted.
	KnownPaths []string
}

// Match is a case-insensitive, unanchored substring match. Pattern is taken
// literally; no character has special meaning.
type Match struct {
	Pattern         string
	CaseInsensitive bool
}

func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Matches         string `json:"matches"`
		CaseInsensitive bool   `json:"caseInsensitive"`
	}{m.Pattern, m.CaseInsensitive})
}

// Filter is a conjunction of path matches. The empty filter matches every
// document.
type Filter map[string]Match

// MatchAll returns the filter that selects every document.
func MatchAll() Filter { return Filter{} }

// IsMatchAll reports whether f places no constraint.
func (f Filter) IsMatchAll() bool { return len(f) == 0 }

// Paths returns the constrained paths in sorted order.
func (f Filter) Paths() []string {
	paths := make([]string, 0, len(f))
	for p := range f {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Build returns the filter matching documents whose value at the resolved
// path contains term, ignoring case. The term is lower-cased so that two
// terms differing only in case produce the same filter.
//
// An empty term is not special here: callers wanting "no filter" for an
// empty search box use MatchAll.
func Build(cfg Config, searchField, term string) (Filter, error) {
	path, err := ResolvePath(cfg, searchField)
	if err != nil {
		return nil, err
	}
	return Filter{path: {Pattern: strings.ToLower(term), CaseInsensitive: true}}, nil
}

// ResolvePath maps a UI search field to a storage path. Resolution order:
// exact match on a configured searchable field, a name already containing a
// dot (taken literally), a declared top-level path, then the default group.
// An empty name means the default search field.
func ResolvePath(cfg Config, searchField string) (string, error) {
	name := strings.TrimSpace(searchField)
	if name == "" {
		name = cfg.DefaultSearchField
	}
	if name == "" {
		return "", unknownField(searchField)
	}

	path, ok := resolve(cfg, name)
	if !ok {
		return "", unknownField(name)
	}
	if !validator.IsFieldPath(path) {
		return "", apperr.New(apperr.KindValidation, apperr.CodeUnknownSearchField, "invalid search field path: "+path).
			WithOp("query.ResolvePath")
	}
	return path, nil
}

func resolve(cfg Config, name string) (string, bool) {
	for _, f := range cfg.SearchFields {
		if f.Value == name {
			return f.StoragePath(), true
		}
	}
	if strings.Contains(name, ".") {
		return name, true
	}
	if slices.Contains(cfg.KnownPaths, name) {
		return name, true
	}
	if cfg.DefaultGroup == "" {
		return "", false
	}
	prefixed := cfg.DefaultGroup + "." + name
	if len(cfg.KnownPaths) > 0 && !slices.Contains(cfg.KnownPaths, prefixed) {
		return "", false
	}
	return prefixed, true
}

func unknownField(name string) error {
	return apperr.New(apperr.KindValidation, apperr.CodeUnknownSearchField, "unknown search field: "+name).
		WithOp("query.ResolvePath").
		WithDetails(map[string]string{"field": name})
}
