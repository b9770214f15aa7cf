// Package pending guards a detail form against leaving with unsaved edits.
// Leaving a dirty form requires an explicit decision: save and proceed,
// discard and proceed, or stay.
package pending

import (
	"context"
	"errors"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/formfield"
)

// Decision is the user's answer to the leave prompt.
type Decision int

const (
	Cancel Decision = iota
	SaveAndProceed
	DiscardAndProceed
)

func (d Decision) String() string {
	switch d {
	case SaveAndProceed:
		return "save"
	case DiscardAndProceed:
		return "discard"
	default:
		return "cancel"
	}
}

// Outcome says whether navigation may continue.
type Outcome int

const (
	Stay Outcome = iota
	Proceed
)

// ErrUnknownField is returned by Set for ids not on the form.
var ErrUnknownField = errors.New("unknown form field")

// SaveFunc persists the current fields and returns the form as stored.
type SaveFunc func(ctx context.Context, fields []formfield.FormField) ([]formfield.FormField, error)

// Change is one edited field.
type Change struct {
	ID   string
	From string
	To   string
}

// Guard tracks one form. It is not safe for concurrent use; a form belongs
// to a single view.
type Guard struct {
	original []formfield.FormField
	current  []formfield.FormField
}

// NewGuard starts tracking fields as loaded.
func NewGuard(fields []formfield.FormField) *Guard {
	g := &Guard{}
	g.Reset(fields)
	return g
}

// Reset makes fields the new baseline, e.g. after a save.
func (g *Guard) Reset(fields []formfield.FormField) {
	g.original = cloneFields(fields)
	g.current = cloneFields(fields)
}

// Set edits the value of field id.
func (g *Guard) Set(id, value string) error {
	for i := range g.current {
		if g.current[i].ID == id {
			g.current[i].Value = value
			return nil
		}
	}
	return ErrUnknownField
}

// Fields returns a copy of the current form.
func (g *Guard) Fields() []formfield.FormField {
	return cloneFields(g.current)
}

// Changes lists the edited fields in form order.
func (g *Guard) Changes() []Change {
	var out []Change
	for i := range g.current {
		if g.current[i].Value != g.original[i].Value {
			out = append(out, Change{ID: g.current[i].ID, From: g.original[i].Value, To: g.current[i].Value})
		}
	}
	return out
}

// Dirty reports whether leaving needs a decision.
func (g *Guard) Dirty() bool {
	return len(g.Changes()) > 0
}

// Leave applies decision. A clean form always proceeds. A failed save keeps
// the edits and stays.
func (g *Guard) Leave(ctx context.Context, decision Decision, save SaveFunc) (Outcome, error) {
	if !g.Dirty() {
		return Proceed, nil
	}

	switch decision {
	case DiscardAndProceed:
		g.current = cloneFields(g.original)
		return Proceed, nil
	case SaveAndProceed:
		if save == nil {
			return Stay, errors.New("pending: no save function")
		}
		stored, err := save(ctx, g.Fields())
		if err != nil {
			return Stay, err
		}
		if stored == nil {
			stored = g.current
		}
		g.Reset(stored)
		return Proceed, nil
	default:
		return Stay, nil
	}
}

func cloneFields(fields []formfield.FormField) []formfield.FormField {
	out := make([]formfield.FormField, len(fields))
	copy(out, fields)
	return out
}
