package resolve

import (
	"bitspec/internal/diag"
	"bitspec/internal/layout"
	"bitspec/internal/schema"
)

// Options tune plan assembly. The zero value uses layout.DefaultTarget.
type Options struct {
	Target layout.Target
}

// Result is the outcome of one pass over a schema.
type Result struct {
	Plan *layout.Plan
	Bag  *diag.Bag
}

// Resolve validates s and builds plans for every container that produced no
// diagnostics. It never stops early: every problem of the schema ends up in Bag.
func Resolve(s *schema.Schema, opts Options) *Result {
	bag := diag.NewBag(16)
	plan := ResolveWith(s, opts, diag.BagReporter{Bag: bag})
	return &Result{Plan: plan, Bag: bag}
}

// ResolveWith is Resolve for callers that own the diagnostic sink.
func ResolveWith(s *schema.Schema, opts Options, r diag.Reporter) *layout.Plan {
	if opts.Target.Endian == layout.EndianUnset {
		opts.Target = layout.DefaultTarget()
	}
	if r == nil {
		r = diag.NopReporter{}
	}
	rs := &resolver{
		opts: opts,
		rep:  &countingReporter{inner: r},
		plan: layout.NewPlan(opts.Target),
	}
	if s == nil {
		return rs.plan
	}
	for _, c := range s.Containers {
		rs.container(c)
	}
	return rs.plan
}

// countingReporter lets the resolver tell whether a subtree was clean.
type countingReporter struct {
	inner diag.Reporter
	n     int
}

func (c *countingReporter) Report(d diag.Diagnostic) {
	c.n++
	c.inner.Report(d)
}

type resolver struct {
	opts Options
	rep  *countingReporter
	plan *layout.Plan
}

// container walks one top-level declaration in pre-order: the container,
// then each member followed by its own fields and variant-level cross rules,
// then the container's cross-member rules.
func (rs *resolver) container(n *schema.Node) {
	before := rs.rep.n
	c := rs.check(n, schema.Classify(n, nil), n.Name)
	headClean := rs.rep.n == before

	members := make([]*checked, 0, len(n.Children))
	fields := make([][]*checked, 0, len(n.Children))
	for _, child := range n.Children {
		memberStart := rs.rep.n
		m := rs.check(child, schema.Classify(child, n), schema.Path(n.Name, child.Name))
		var sub []*checked
		for _, f := range child.Children {
			sub = append(sub, rs.check(f, schema.Classify(f, child), schema.Path(m.path, f.Name)))
		}
		if n.Kind == schema.KindEnum && headClean && rs.rep.n == memberStart {
			rs.patternStorage(c, m, sub)
		}
		members = append(members, m)
		fields = append(fields, sub)
	}

	if rs.rep.n != before {
		return
	}
	rs.crossMember(c, members)
	if rs.rep.n != before {
		return
	}
	switch n.Kind {
	case schema.KindEnum:
		rs.plan.AddEnum(rs.enumPlan(c, members, fields))
	case schema.KindStruct:
		rs.plan.AddStruct(rs.structPlan(c, members))
	}
}
