package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entity"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/formfield"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

const populateConcurrency = 4

// populate fills PopulatedData of reference fields in place. References to
// records that no longer exist, or ids the target store cannot parse, are
// left out.
func (s *Service) populate(ctx context.Context, cfg entity.Config, fields []formfield.FormField) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(populateConcurrency)

	for i := range fields {
		f := &fields[i]
		if f.Type != formfield.TypeReference && f.Type != formfield.TypeReferenceArray {
			continue
		}
		rel, ok := cfg.Relation(f.ID)
		if !ok || strings.TrimSpace(f.Value) == "" {
			continue
		}

		g.Go(func() error {
			var options []formfield.Option
			for _, id := range strings.Split(f.Value, ",") {
				id = strings.TrimSpace(id)
				if id == "" {
					continue
				}
				opt, found, err := s.resolve(gctx, rel, id)
				if err != nil {
					return err
				}
				if found {
					options = append(options, opt)
				}
			}

			if f.Type == formfield.TypeReferenceArray {
				if options == nil {
					options = []formfield.Option{}
				}
				f.PopulatedData = &formfield.Populated{Many: options}
			} else if len(options) > 0 {
				f.PopulatedData = &formfield.Populated{One: &options[0]}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) resolve(ctx context.Context, rel entity.RelationField, id string) (formfield.Option, bool, error) {
	doc, err := s.crud.Get(ctx, rel.Collection, id)
	switch {
	case apperr.Is(err, apperr.KindNotFound), apperr.HasCode(err, apperr.CodeInvalidIdentifierFormat):
		s.log.Debug("dangling reference", "collection", rel.Collection, "id", id)
		return formfield.Option{}, false, nil
	case err != nil:
		return formfield.Option{}, false, err
	}

	label := id
	if v, ok := document.GetNestedValue(doc, rel.DisplayField); ok && v != nil {
		label = fmt.Sprint(v)
	}
	return formfield.Option{Label: label, Value: id}, true, nil
}
