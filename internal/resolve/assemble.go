package resolve

import (
	"fmt"

	"fortio.org/safecast"

	"bitspec/internal/diag"
	"bitspec/internal/directive"
	"bitspec/internal/layout"
	"bitspec/internal/rules"
	"bitspec/internal/source"
)

// discriminant resolves the enum tag. The type source follows type > bits >
// bytes; bits or bytes narrow the width read from the stream.
func (rs *resolver) discriminant(c *checked) (layout.Discriminant, directive.Key) {
	v := &c.vals
	order := v.order.Or(layout.ByteOrder{Endian: rs.opts.Target.Endian})
	d := layout.Discriminant{
		External:   v.idExpr,
		Endian:     order.Endian,
		EndianExpr: order.Expr,
	}
	widthKey := directive.KeyNone
	switch {
	case v.hasBits:
		d.Bits = mustBits(v.bits)
		widthKey = directive.KeyBits
	case v.hasSize:
		d.Bits = mustBits(v.bytes * 8)
		widthKey = directive.KeyBytes
	}
	switch {
	case v.hasType:
		d.Type, d.Source = v.typ, directive.KeyType
		if widthKey == directive.KeyNone {
			d.Bits, widthKey = v.typ.Bits, directive.KeyType
		}
	case v.hasBits:
		d.Type, d.Source = smallestUnsigned(d.Bits), directive.KeyBits
	case v.hasSize:
		d.Type, d.Source = smallestUnsigned(d.Bits), directive.KeyBytes
	default:
		d.Source = directive.KeyID
	}
	return d, widthKey
}

func mustBits(n uint64) uint32 {
	b, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("discriminant width out of range: %w", err))
	}
	return b
}

func smallestUnsigned(bits uint32) layout.IntType {
	for _, name := range []string{"u8", "u16", "u32", "u64", "u128"} {
		t, _ := layout.LookupIntType(name)
		if bits <= t.Bits {
			return t
		}
	}
	return layout.IntType{}
}

// declaredSize returns a struct's declared width in bits and the directive giving it.
func declaredSize(c *checked) (uint64, directive.Key) {
	switch {
	case c.vals.hasBits:
		return c.vals.bits, directive.KeyBits
	case c.vals.hasSize:
		return c.vals.bytes * 8, directive.KeyBytes
	}
	return 0, directive.KeyNone
}

// crossMember runs the container's cross-member rules once every member is clean.
func (rs *resolver) crossMember(c *checked, members []*checked) {
	for _, r := range rules.CrossRules(c.scope) {
		var in rules.CrossInput
		switch r.Check {
		case rules.CheckDiscriminantCapacity:
			disc, widthKey := rs.discriminant(c)
			in = rules.CrossInput{Capacity: uint64(disc.Bits), Source: widthKey, Signed: disc.Signed(), Members: variantBounds(members)}
		case rules.CheckDeclaredSize:
			capacity, src := declaredSize(c)
			in = rules.CrossInput{Capacity: capacity, Source: src, Members: fieldWidths(members)}
		}
		v, bad := r.EvalCross(in)
		if !bad {
			continue
		}
		primary := c.node.Span
		if d, ok := c.find(in.Source); ok {
			primary = d.Span
		}
		rs.reportCross(c, r, v, primary)
	}
}

// patternStorage checks that an id_pat variant has a field to hold the
// matched id. Enums whose id comes from outside read no tag and are exempt.
func (rs *resolver) patternStorage(enum, variant *checked, fields []*checked) {
	if !variant.vals.hasPat || enum.vals.idExpr != "" {
		return
	}
	disc, _ := rs.discriminant(enum)
	in := rules.CrossInput{Source: directive.KeyIDPat, Members: fieldTypes(fields)}
	if disc.Source == directive.KeyType {
		in.Type = disc.Type.Name
	}
	for _, r := range rules.CrossRules(variant.scope) {
		v, bad := r.EvalCross(in)
		if !bad {
			continue
		}
		primary := variant.node.Span
		if d, ok := variant.find(directive.KeyIDPat); ok {
			primary = d.Span
		}
		rs.reportCross(variant, r, v, primary)
	}
}

func (rs *resolver) reportCross(c *checked, r *rules.Rule, v rules.Violation, primary source.Span) {
	b := diag.ReportError(rs.rep, r.Code, primary, c.path, v.Message).
		WithDirectives(directive.Names(v.Keys)...)
	for _, o := range v.Offenders {
		b.WithNote(o.Span, o.Member+": "+o.Detail)
	}
	b.Emit()
}

// variantBounds reports the largest fixed value each variant can match.
func variantBounds(members []*checked) []rules.Member {
	out := make([]rules.Member, 0, len(members))
	for _, m := range members {
		rm := rules.Member{Name: m.node.Name, Span: m.node.Span}
		switch {
		case m.vals.hasID:
			rm.Value, rm.Negative, rm.Known = m.vals.id, m.vals.idNeg, true
			if d, ok := m.find(directive.KeyID); ok {
				rm.Span = d.ValueSpan
			}
		case m.vals.hasPat && !(m.vals.pat.openLo && m.vals.pat.openHi):
			rm.Value, rm.Known = m.vals.pat.hi, true
			if m.vals.pat.openHi {
				rm.Value = m.vals.pat.lo
			}
			if d, ok := m.find(directive.KeyIDPat); ok {
				rm.Span = d.ValueSpan
			}
		}
		out = append(out, rm)
	}
	return out
}

// fieldTypes names the primitive integer type of each field, if any.
func fieldTypes(fields []*checked) []rules.Member {
	out := make([]rules.Member, 0, len(fields))
	for _, f := range fields {
		rm := rules.Member{Name: f.node.Name, Span: f.node.Span}
		if t, ok := layout.LookupIntType(f.node.Type); ok {
			rm.Type = t.Name
		}
		out = append(out, rm)
	}
	return out
}

func fieldWidths(members []*checked) []rules.Member {
	out := make([]rules.Member, 0, len(members))
	for _, m := range members {
		w, ok := layout.FieldWidth(m.node.Type)
		out = append(out, rules.Member{Name: m.node.Name, Span: m.node.Span, Value: uint64(w), Known: ok})
	}
	return out
}

func (rs *resolver) enumPlan(c *checked, members []*checked, fields [][]*checked) *layout.EnumPlan {
	disc, _ := rs.discriminant(c)
	maxValue := layout.MaxValue(disc.Bits)
	// открытый верх у знакового тега заканчивается на максимуме без знака
	patMax := maxValue
	if disc.Signed() {
		patMax = layout.MaxSigned(disc.Bits)
	}
	e := &layout.EnumPlan{
		Name:         c.node.Name,
		Discriminant: disc,
		Variants:     make([]layout.VariantPlan, 0, len(members)),
		Ctx:          c.vals.exprs[directive.KeyCtx],
		CtxDefault:   c.vals.exprs[directive.KeyCtxDefault],
		Span:         c.node.Span,
	}
	for i, m := range members {
		var pred layout.Predicate
		catchAll := false
		switch {
		case m.vals.hasID && m.vals.idNeg:
			pred = layout.Exact(layout.TwosComplement(m.vals.id, idBits(disc)))
		case m.vals.hasID:
			pred = layout.Exact(m.vals.id)
		case m.vals.hasPat:
			lo, hi := m.vals.pat.bounds(patMax)
			pred = layout.Range(lo, hi)
			catchAll = m.vals.pat.openLo && m.vals.pat.openHi
		default:
			pred = layout.Range(0, maxValue)
			catchAll = true
		}
		vp := layout.NewVariant(m.node.Name, pred, rs.fieldPlans(fields[i], layout.ByteOrder{Endian: disc.Endian, Expr: disc.EndianExpr}))
		vp.CatchAll = catchAll
		vp.Reader = m.vals.exprs[directive.KeyReader]
		vp.Writer = m.vals.exprs[directive.KeyWriter]
		vp.Span = m.node.Span
		e.Variants = append(e.Variants, vp)
	}
	return e
}

func (rs *resolver) structPlan(c *checked, members []*checked) *layout.StructPlan {
	order := c.vals.order.Or(layout.ByteOrder{Endian: rs.opts.Target.Endian})
	size, src := declaredSize(c)
	s := layout.NewStruct(c.node.Name, size, rs.fieldPlans(members, order))
	s.SizeSource = src
	s.Endian, s.EndianExpr = order.Endian, order.Expr
	s.Ctx = c.vals.exprs[directive.KeyCtx]
	s.CtxDefault = c.vals.exprs[directive.KeyCtxDefault]
	s.Span = c.node.Span
	return s
}

// fieldPlans resolves field byte order as field > container > target.
func (rs *resolver) fieldPlans(fields []*checked, container layout.ByteOrder) []layout.FieldPlan {
	if len(fields) == 0 {
		return nil
	}
	out := make([]layout.FieldPlan, 0, len(fields))
	for _, f := range fields {
		w, _ := layout.FieldWidth(f.node.Type)
		ex := f.vals.exprs
		order := f.vals.order.Or(container)
		out = append(out, layout.FieldPlan{
			Name:       f.node.Name,
			Type:       f.node.Type,
			Bits:       w,
			Endian:     order.Endian,
			EndianExpr: order.Expr,
			Skip:       f.vals.skip,
			Cond:       ex[directive.KeyCond],
			Default:    ex[directive.KeyDefault],
			Count:      ex[directive.KeyCount],
			Update:     ex[directive.KeyUpdate],
			Map:        ex[directive.KeyMap],
			Reader:     ex[directive.KeyReader],
			Writer:     ex[directive.KeyWriter],
			Ctx:        ex[directive.KeyCtx],
			CtxDefault: ex[directive.KeyCtxDefault],
			Span:       f.node.Span,
		})
	}
	return out
}

// idBits is the width a negative id is encoded in. An external id with no
// declared width is a 64-bit value.
func idBits(d layout.Discriminant) uint32 {
	if d.Bits == 0 {
		return 64
	}
	return d.Bits
}
