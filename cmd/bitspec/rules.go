package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bitspec/internal/directive"
	"bitspec/internal/rules"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List known directives and the conflict rules between them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderRules(cmd.OutOrStdout())
			return nil
		},
	}
}

// renderRules prints the directive catalog and the rule table in evaluation order.
func renderRules(w io.Writer) {
	fmt.Fprintln(w, "directives:")
	for _, spec := range directive.Specs() {
		fmt.Fprintf(w, "  %-12s %-16s %-10s %s\n", spec.Name, spec.Scopes, spec.Value, spec.Summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "rules:")
	for _, r := range rules.Table() {
		if r.Kind == rules.KindScope {
			continue
		}
		keys := strings.Join(directive.Names(r.Keys), ", ")
		if r.Trigger != directive.KeyNone {
			keys = directive.SpecFor(r.Trigger).Name + " -> " + keys
		}
		fmt.Fprintf(w, "  %-28s %s %-12s %-16s %-20s %s\n", r.Name, r.Code.ID(), r.Kind, r.Scopes, keys, r.Summary)
	}
}
