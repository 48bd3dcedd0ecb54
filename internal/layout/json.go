package layout

import (
	json "github.com/goccy/go-json"
)

type planJSON struct {
	Target     string          `json:"target"`
	Endian     string          `json:"endian"`
	Containers []containerJSON `json:"containers"`
}

type containerJSON struct {
	Kind         string            `json:"kind"`
	Name         string            `json:"name"`
	Discriminant *discriminantJSON `json:"discriminant,omitempty"`
	Variants     []variantJSON     `json:"variants,omitempty"`
	DeclaredBits uint64            `json:"declared_bits,omitempty"`
	SizeSource   string            `json:"size_source,omitempty"`
	KnownBits    uint64            `json:"known_bits,omitempty"`
	Complete     bool              `json:"complete,omitempty"`
	Endian       string            `json:"endian,omitempty"`
	EndianExpr   string            `json:"endian_expr,omitempty"`
	Fields       []fieldJSON       `json:"fields,omitempty"`
	Ctx          string            `json:"ctx,omitempty"`
	CtxDefault   string            `json:"ctx_default,omitempty"`
}

type discriminantJSON struct {
	Type       string `json:"type,omitempty"`
	Bits       uint32 `json:"bits"`
	Source     string `json:"source"`
	External   string `json:"external,omitempty"`
	Endian     string `json:"endian,omitempty"`
	EndianExpr string `json:"endian_expr,omitempty"`
	Signed     bool   `json:"signed,omitempty"`
}

type variantJSON struct {
	Name     string      `json:"name"`
	Match    string      `json:"match"`
	Lo       uint64      `json:"lo"`
	Hi       uint64      `json:"hi"`
	CatchAll bool        `json:"catch_all,omitempty"`
	Reader   string      `json:"reader,omitempty"`
	Writer   string      `json:"writer,omitempty"`
	Fields   []fieldJSON `json:"fields,omitempty"`
}

type fieldJSON struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Bits       uint32  `json:"bits,omitempty"`
	Offset     *uint64 `json:"offset,omitempty"`
	Endian     string  `json:"endian,omitempty"`
	EndianExpr string  `json:"endian_expr,omitempty"`
	Skip       bool    `json:"skip,omitempty"`
	Cond       string  `json:"cond,omitempty"`
	Default    string  `json:"default,omitempty"`
	Count      string  `json:"count,omitempty"`
	Update     string  `json:"update,omitempty"`
	Map        string  `json:"map,omitempty"`
	Reader     string  `json:"reader,omitempty"`
	Writer     string  `json:"writer,omitempty"`
	Ctx        string  `json:"ctx,omitempty"`
	CtxDefault string  `json:"ctx_default,omitempty"`
}

// MarshalJSON renders the plan for code generators written outside Go.
func (p *Plan) MarshalJSON() ([]byte, error) {
	out := planJSON{Containers: make([]containerJSON, 0, p.Len())}
	if p != nil {
		out.Target = p.Target.Name
		out.Endian = p.Target.Endian.String()
	}
	for _, c := range p.Containers() {
		switch {
		case c.Enum != nil:
			out.Containers = append(out.Containers, enumJSON(c.Enum))
		case c.Struct != nil:
			out.Containers = append(out.Containers, structJSON(c.Struct))
		}
	}
	return json.Marshal(out)
}

func enumJSON(e *EnumPlan) containerJSON {
	disc := e.Discriminant
	c := containerJSON{
		Kind: "enum",
		Name: e.Name,
		Discriminant: &discriminantJSON{
			Type:       disc.Type.Name,
			Bits:       disc.Bits,
			Source:     disc.Source.String(),
			External:   disc.External,
			Endian:     endianJSON(disc.Endian),
			EndianExpr: disc.EndianExpr,
			Signed:     disc.Signed(),
		},
		Variants:   make([]variantJSON, 0, len(e.Variants)),
		Ctx:        e.Ctx,
		CtxDefault: e.CtxDefault,
	}
	for i := range e.Variants {
		v := &e.Variants[i]
		match := "exact"
		if v.Predicate.Kind == PredRange {
			match = "range"
		}
		c.Variants = append(c.Variants, variantJSON{
			Name:     v.Name,
			Match:    match,
			Lo:       v.Predicate.Lo,
			Hi:       v.Predicate.Hi,
			CatchAll: v.CatchAll,
			Reader:   v.Reader,
			Writer:   v.Writer,
			Fields:   fieldsJSON(v.Fields),
		})
	}
	return c
}

func structJSON(s *StructPlan) containerJSON {
	c := containerJSON{
		Kind:         "struct",
		Name:         s.Name,
		DeclaredBits: s.DeclaredBits,
		KnownBits:    s.KnownBits,
		Complete:     s.Complete,
		Endian:       endianJSON(s.Endian),
		EndianExpr:   s.EndianExpr,
		Fields:       fieldsJSON(s.Fields),
		Ctx:          s.Ctx,
		CtxDefault:   s.CtxDefault,
	}
	if s.DeclaredBits != 0 {
		c.SizeSource = s.SizeSource.String()
	}
	return c
}

// endianJSON leaves the constant out when the byte order is an expression.
func endianJSON(e Endian) string {
	if e == EndianUnset {
		return ""
	}
	return e.String()
}

func fieldsJSON(fields []FieldPlan) []fieldJSON {
	if len(fields) == 0 {
		return nil
	}
	out := make([]fieldJSON, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		fj := fieldJSON{
			Name: f.Name, Type: f.Type, Bits: f.Bits, Endian: endianJSON(f.Endian), EndianExpr: f.EndianExpr,
			Skip: f.Skip, Cond: f.Cond, Default: f.Default, Count: f.Count,
			Update: f.Update, Map: f.Map, Reader: f.Reader, Writer: f.Writer, Ctx: f.Ctx,
			CtxDefault: f.CtxDefault,
		}
		if f.OffsetKnown {
			off := f.Offset
			fj.Offset = &off
		}
		out = append(out, fj)
	}
	return out
}
