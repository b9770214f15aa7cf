package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities/service"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/formfield"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/pending"
)

// session is one opened connection to the entity service.
type session struct {
	svc   *service.Service
	close func()
}

type openFunc func(ctx context.Context, verbose bool) (*session, error)

type cli struct {
	open    openFunc
	sess    *session
	verbose bool
}

func newRootCmd(open openFunc) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "crmctl",
		Short: "Manage CRM entity records",
		Long: `crmctl reads and writes CRM records through the same entity service the
API uses, so form mapping, validation and phone normalization apply.

Examples:
  crmctl entities
  crmctl search contacts --field lastName --term smith
  crmctl create contacts --set general.firstName=Ann --set general.lastName=Smith
  crmctl edit contacts 65f1c0... --set general.lastName=Jones --dry-run`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.open(cmd.Context(), c.verbose)
			if err != nil {
				return err
			}
			c.sess = sess
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.sess != nil && c.sess.close != nil {
				c.sess.close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		c.entitiesCmd(),
		c.fieldsCmd(),
		c.searchCmd(),
		c.getCmd(),
		c.createCmd(),
		c.editCmd(),
		c.deleteCmd(),
	)
	return root
}

func (c *cli) entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the configured entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDISPLAY NAME\tSEARCH")
			for _, cfg := range c.sess.svc.Entities() {
				mode := "declared"
				if !cfg.HasDeclaredSearchFields() {
					mode = "introspected"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", cfg.Name, cfg.DisplayName, mode)
			}
			return w.Flush()
		},
	}
}

func (c *cli) fieldsCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "fields <collection>",
		Short: "List the searchable fields of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lookup := c.sess.svc.SearchableFields
			if refresh {
				lookup = c.sess.svc.RefreshSearchableFields
			}
			fields, err := lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tLABEL")
			for _, f := range fields {
				fmt.Fprintf(w, "%s\t%s\n", f.Value, f.Label)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-introspect before listing")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	var (
		field string
		term  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search <collection>",
		Short: "Search records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.sess.svc.Search(cmd.Context(), args[0], field, term, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d matching records\n", len(res.Results), res.Total)
			return writeJSON(cmd.OutOrStdout(), res.Results)
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "Search field key; empty searches all")
	cmd.Flags().StringVar(&term, "term", "", "Case-insensitive substring; empty matches all")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	var form bool
	cmd := &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, fields, err := c.sess.svc.Detail(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if form {
				return writeJSON(cmd.OutOrStdout(), fields)
			}
			return writeJSON(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().BoolVar(&form, "form", false, "Print the filled form instead of the record")
	return cmd
}

func (c *cli) createCmd() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "create <collection>",
		Short: "Create a record from field assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			doc, err := c.sess.svc.Create(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment path=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var (
		sets    []string
		discard bool
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "edit <collection> <id>",
		Short: "Edit a record's form and save the changed fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			collection, id := args[0], args[1]

			_, fields, err := c.sess.svc.Detail(ctx, collection, id)
			if err != nil {
				return err
			}
			guard := pending.NewGuard(fields)
			edits, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			for _, e := range edits {
				if err := guard.Set(e.ID, e.Value); err != nil {
					return fmt.Errorf("%s: %w", e.ID, err)
				}
			}

			changes := guard.Changes()
			out := cmd.OutOrStdout()
			for _, ch := range changes {
				fmt.Fprintf(out, "%s: %q -> %q\n", ch.ID, ch.From, ch.To)
			}

			decision := pending.SaveAndProceed
			switch {
			case dryRun:
				decision = pending.Cancel
			case discard:
				decision = pending.DiscardAndProceed
			}

			save := func(ctx context.Context, _ []formfield.FormField) ([]formfield.FormField, error) {
				submit := []formfield.FormField{{ID: formfield.ObjectIDField, Value: id}}
				for _, ch := range changes {
					submit = append(submit, formfield.FormField{ID: ch.ID, Value: ch.To})
				}
				if _, err := c.sess.svc.Update(ctx, collection, submit); err != nil {
					return nil, err
				}
				_, stored, err := c.sess.svc.Detail(ctx, collection, id)
				return stored, err
			}

			outcome, err := guard.Leave(ctx, decision, save)
			if err != nil {
				return err
			}
			switch {
			case len(changes) == 0:
				fmt.Fprintln(out, "no changes")
			case outcome == pending.Stay:
				fmt.Fprintf(out, "%d unsaved change(s) kept\n", len(changes))
			default:
				fmt.Fprintf(out, "%d change(s) %s\n", len(changes), pastTense(decision))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment path=value (repeatable)")
	cmd.Flags().BoolVar(&discard, "discard", false, "Drop the edits instead of saving")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the edits without saving")
	cmd.MarkFlagsMutuallyExclusive("discard", "dry-run")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.sess.svc.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}
}

func parseAssignments(sets []string) ([]formfield.FormField, error) {
	out := make([]formfield.FormField, 0, len(sets))
	for _, s := range sets {
		id, value, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid assignment %q, want path=value", s)
		}
		out = append(out, formfield.FormField{ID: strings.TrimSpace(id), Value: value})
	}
	return out, nil
}

func pastTense(d pending.Decision) string {
	if d == pending.DiscardAndProceed {
		return "discarded"
	}
	return "saved"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
