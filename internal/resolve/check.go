package resolve

import (
	"fmt"

	"bitspec/internal/diag"
	"bitspec/internal/directive"
	"bitspec/internal/rules"
	"bitspec/internal/schema"
)

// checked is a node after the per-node passes: directives that survived the
// scope and duplicate filter, and their parsed values.
type checked struct {
	node    *schema.Node
	scope   directive.Scope
	path    string
	kept    []schema.Directive
	present directive.Set
	vals    values
}

func (c *checked) find(k directive.Key) (schema.Directive, bool) {
	for _, d := range c.kept {
		if d.Key == k {
			return d, true
		}
	}
	return schema.Directive{}, false
}

// check runs the scope and duplicate filter, the per-node rules and the value
// parsers on one node, in that order.
func (rs *resolver) check(n *schema.Node, scope directive.Scope, path string) *checked {
	c := &checked{node: n, scope: scope, path: path}
	rs.filter(c)
	rs.nodeRules(c)
	rs.parseValues(c)
	return c
}

// filter drops directives that are illegal in scope or repeat an earlier one.
// Each (key, node) pair is reported once; later rules never see dropped keys.
func (rs *resolver) filter(c *checked) {
	var illegal, duplicate directive.Set
	first := make(map[directive.Key]schema.Directive, len(c.node.Directives))
	for _, d := range c.node.Directives {
		if d.Key == directive.KeyNone {
			// directives built in code may carry only a name
			spec, ok := directive.Lookup(d.Name)
			if !ok {
				diag.ReportError(rs.rep, diag.SchUnknownDirective, d.Span, c.path,
					fmt.Sprintf("unknown directive %q", d.Name)).
					WithDirectives(d.Name).
					Emit()
				continue
			}
			d.Key = spec.Key
		}
		if illegal.Has(d.Key) {
			continue
		}
		if v, bad := rules.ScopeRule(d.Key).Eval(c.scope, directive.NewSet(d.Key)); bad {
			illegal = illegal.With(d.Key)
			diag.ReportError(rs.rep, v.Rule.Code, d.Span, c.path, v.Message).
				WithDirectives(d.Name).
				Emit()
			continue
		}
		if prev, seen := first[d.Key]; seen {
			if !directive.SpecFor(d.Key).Repeatable && !duplicate.Has(d.Key) {
				duplicate = duplicate.With(d.Key)
				diag.ReportError(rs.rep, diag.ResDuplicateDirective, d.Span, c.path,
					fmt.Sprintf("directive '%s' is repeated", d.Name)).
					WithNote(prev.Span, "first declared here").
					WithDirectives(d.Name).
					Emit()
			}
			continue
		}
		first[d.Key] = d
		c.kept = append(c.kept, d)
		c.present = c.present.With(d.Key)
	}
}

// nodeRules evaluates the exclusive and requires rules of the node's scope.
func (rs *resolver) nodeRules(c *checked) {
	for _, r := range rules.NodeRules(c.scope) {
		v, bad := r.Eval(c.scope, c.present)
		if !bad {
			continue
		}
		switch r.Kind {
		case rules.KindExclusive:
			rs.reportConflict(c, v)
		case rules.KindRequires:
			primary := c.node.Span
			if d, ok := c.find(r.Trigger); ok {
				primary = d.Span
			}
			diag.ReportError(rs.rep, r.Code, primary, c.path, v.Message).
				WithDirectives(directive.Names(v.Keys)...).
				Emit()
		}
	}
}

// reportConflict points at the directive declared last and notes the others,
// whatever order the rule names them in.
func (rs *resolver) reportConflict(c *checked, v rules.Violation) {
	var hits []schema.Directive
	for _, d := range c.kept {
		for _, k := range v.Keys {
			if d.Key == k {
				hits = append(hits, d)
			}
		}
	}
	last := hits[len(hits)-1]
	b := diag.ReportError(rs.rep, v.Rule.Code, last.Span, c.path, v.Message).
		WithDirectives(directive.Names(v.Keys)...)
	for _, d := range hits[:len(hits)-1] {
		b.WithNote(d.Span, fmt.Sprintf("'%s' declared here", d.Name))
	}
	b.Emit()
}
