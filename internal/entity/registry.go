package entity

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/formfield"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/validator"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// Registry is the immutable set of entity configurations, keyed by
// collection name.
type Registry struct {
	byName map[string]Config
	names  []string
}

// LoadRegistry reads the built-in configurations and, when dir is set,
// every *.yaml / *.yml file in it. A file in dir replaces the built-in entity
// of the same name or adds a new one.
func LoadRegistry(dir string) (*Registry, error) {
	configs, err := readConfigs(defaultsFS, "defaults")
	if err != nil {
		return nil, fmt.Errorf("load built-in entity configs: %w", err)
	}

	if dir != "" {
		overrides, err := readConfigs(os.DirFS(dir), ".")
		if err != nil {
			return nil, fmt.Errorf("load entity configs from %s: %w", dir, err)
		}
		for _, o := range overrides {
			replaced := false
			for i := range configs {
				if configs[i].Name == o.Name {
					configs[i] = o
					replaced = true
					break
				}
			}
			if !replaced {
				configs = append(configs, o)
			}
		}
	}

	return NewRegistry(configs...)
}

// NewRegistry validates configs and builds a registry from them.
func NewRegistry(configs ...Config) (*Registry, error) {
	v := validator.New()
	r := &Registry{byName: make(map[string]Config, len(configs))}

	var errs []error
	for _, c := range configs {
		if _, dup := r.byName[c.Name]; dup {
			errs = append(errs, fmt.Errorf("entity %q declared twice", c.Name))
			continue
		}
		if err := validateConfig(v, c); err != nil {
			errs = append(errs, fmt.Errorf("entity %q: %w", c.Name, err))
			continue
		}
		r.byName[c.Name] = c
		r.names = append(r.names, c.Name)
	}
	for _, name := range r.names {
		for _, rel := range r.byName[name].RelationFields {
			if _, ok := r.byName[rel.Collection]; !ok {
				errs = append(errs, fmt.Errorf("entity %q: relation %s targets unknown collection %q", name, rel.Field, rel.Collection))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sort.Strings(r.names)
	return r, nil
}

// Get returns the configuration of collection.
func (r *Registry) Get(collection string) (Config, error) {
	c, ok := r.byName[collection]
	if !ok {
		return Config{}, apperr.New(apperr.KindNotFound, apperr.CodeUnknownCollection, "unknown collection: "+collection).
			WithDetails(map[string]string{"collection": collection})
	}
	return c, nil
}

// Names returns the registered collection names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns every configuration, sorted by name.
func (r *Registry) All() []Config {
	out := make([]Config, len(r.names))
	for i, name := range r.names {
		out[i] = r.byName[name]
	}
	return out
}

// Introspected returns the names of entities without declared search fields.
func (r *Registry) Introspected() []string {
	var out []string
	for _, name := range r.names {
		if !r.byName[name].HasDeclaredSearchFields() {
			out = append(out, name)
		}
	}
	return out
}

func readConfigs(fsys fs.FS, dir string) ([]Config, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var configs []Config
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, e.Name())))
		if err != nil {
			return nil, err
		}
		c, err := parseConfig(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		configs = append(configs, c)
	}
	return configs, nil
}

func parseConfig(raw []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func validateConfig(v *validator.Validator, c Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}

	var errs []error
	seen := map[string]bool{}
	for _, f := range c.Fields {
		if seen[f.ID] {
			errs = append(errs, fmt.Errorf("field %q declared twice", f.ID))
		}
		seen[f.ID] = true
		if strings.Count(f.ID, ".") > 1 {
			errs = append(errs, fmt.Errorf("field %q nests deeper than parent.child", f.ID))
		}
		if !formfield.IsKnownType(f.Type) {
			errs = append(errs, fmt.Errorf("field %q has unknown type %q", f.ID, f.Type))
		}
		if f.Normalize == NormalizeE164 && f.Type != formfield.TypeTel {
			errs = append(errs, fmt.Errorf("field %q: e164 normalization needs type tel", f.ID))
		}
		if f.Type == formfield.TypeDropdown && len(f.DropdownFields) == 0 {
			errs = append(errs, fmt.Errorf("dropdown field %q has no options", f.ID))
		}
	}

	for _, a := range c.Fields {
		for _, b := range c.Fields {
			if strings.HasPrefix(b.ID, a.ID+".") {
				errs = append(errs, fmt.Errorf("field %q is both a value and the group of %q", a.ID, b.ID))
			}
		}
	}

	for _, sf := range c.SearchFields {
		if sf.Value == "" || !validator.IsFieldPath(sf.StoragePath()) {
			errs = append(errs, fmt.Errorf("search field %q has an invalid path", sf.Value))
		}
	}
	if c.DefaultSearchField != "" {
		if _, err := query.ResolvePath(c.SearchConfig(), c.DefaultSearchField); err != nil {
			errs = append(errs, fmt.Errorf("default search field %q does not resolve", c.DefaultSearchField))
		}
	}

	for _, rel := range c.RelationFields {
		f, ok := c.Field(rel.Field)
		if !ok {
			errs = append(errs, fmt.Errorf("relation field %q is not a declared field", rel.Field))
			continue
		}
		if f.Type != formfield.TypeReference && f.Type != formfield.TypeReferenceArray {
			errs = append(errs, fmt.Errorf("relation field %q must be a reference", rel.Field))
		}
	}

	return errors.Join(errs...)
}
