package layout

import (
	"fmt"

	"bitspec/internal/directive"
	"bitspec/internal/source"
)

// PredicateKind distinguishes exact-value and range predicates.
type PredicateKind uint8

const (
	PredExact PredicateKind = iota + 1
	PredRange
)

// Predicate selects a variant from a decoded discriminant. Bounds are inclusive.
type Predicate struct {
	Kind PredicateKind
	Lo   uint64
	Hi   uint64
}

// Exact matches one value.
func Exact(v uint64) Predicate {
	return Predicate{Kind: PredExact, Lo: v, Hi: v}
}

// Range matches lo..=hi. Callers pass validated bounds; lo > hi panics.
func Range(lo, hi uint64) Predicate {
	if lo > hi {
		panic(fmt.Sprintf("layout: inverted range %d..=%d", lo, hi))
	}
	return Predicate{Kind: PredRange, Lo: lo, Hi: hi}
}

func (p Predicate) Matches(v uint64) bool {
	return p.Kind != 0 && v >= p.Lo && v <= p.Hi
}

func (p Predicate) String() string {
	switch p.Kind {
	case PredExact:
		return fmt.Sprintf("== %d", p.Lo)
	case PredRange:
		return fmt.Sprintf("%d..=%d", p.Lo, p.Hi)
	}
	return "<none>"
}

// Discriminant describes how an enum finds its variant tag.
// External is set when the tag comes from an expression instead of the stream;
// Bits is then the declared width, or zero when nothing is read.
// For a signed Type, negative ids are stored in predicates as their
// two's-complement bit pattern within Bits.
type Discriminant struct {
	Type     IntType
	Bits     uint32
	Source   directive.Key
	External string
	Endian   Endian
	// EndianExpr is a byte order computed at runtime; Endian is then unset.
	EndianExpr string
}

// Signed reports whether the tag is read as a signed integer.
func (d Discriminant) Signed() bool {
	return d.External == "" && d.Type.Signed
}

// FieldPlan is a resolved field. Bits is zero for types with their own codec.
type FieldPlan struct {
	Name        string
	Type        string
	Bits        uint32
	Offset      uint64 // bit offset inside the container or variant body
	OffsetKnown bool
	Endian      Endian
	EndianExpr  string
	Skip        bool
	Cond        string
	Default     string
	Count       string
	Update      string
	Map         string
	Reader      string
	Writer      string
	Ctx         string
	CtxDefault  string
	Span        source.Span
}

// VariantPlan is one enum variant with exactly one predicate.
type VariantPlan struct {
	Name      string
	Predicate Predicate
	CatchAll  bool
	Reader    string
	Writer    string
	Fields    []FieldPlan
	Span      source.Span
}

// EnumPlan keeps variants in declaration order; the first matching predicate wins.
type EnumPlan struct {
	Name         string
	Discriminant Discriminant
	Variants     []VariantPlan
	Ctx          string
	CtxDefault   string
	Span         source.Span
}

// Select returns the first variant whose predicate matches v.
func (e *EnumPlan) Select(v uint64) (*VariantPlan, bool) {
	for i := range e.Variants {
		if e.Variants[i].Predicate.Matches(v) {
			return &e.Variants[i], true
		}
	}
	return nil, false
}

// StructPlan is a resolved struct. DeclaredBits is zero when no size was declared.
type StructPlan struct {
	Name         string
	DeclaredBits uint64
	SizeSource   directive.Key
	Endian       Endian
	EndianExpr   string
	Fields       []FieldPlan
	KnownBits    uint64
	Complete     bool // every field width known
	Ctx          string
	CtxDefault   string
	Span         source.Span
}

// NewVariant builds a variant plan and places its fields.
func NewVariant(name string, pred Predicate, fields []FieldPlan) VariantPlan {
	placeFields(fields)
	return VariantPlan{Name: name, Predicate: pred, Fields: fields}
}

// NewStruct builds a struct plan and places its fields.
func NewStruct(name string, declaredBits uint64, fields []FieldPlan) *StructPlan {
	known, complete := placeFields(fields)
	return &StructPlan{
		Name:         name,
		DeclaredBits: declaredBits,
		Fields:       fields,
		KnownBits:    known,
		Complete:     complete,
	}
}

// ContainerPlan holds exactly one of Enum or Struct.
type ContainerPlan struct {
	Enum   *EnumPlan
	Struct *StructPlan
}

func (c ContainerPlan) Name() string {
	if c.Enum != nil {
		return c.Enum.Name
	}
	if c.Struct != nil {
		return c.Struct.Name
	}
	return ""
}

func (c ContainerPlan) Kind() string {
	if c.Enum != nil {
		return "enum"
	}
	return "struct"
}

// Plan is the set of container plans of one schema, in declaration order.
type Plan struct {
	Target     Target
	containers []ContainerPlan
	index      map[string]int
}

func NewPlan(target Target) *Plan {
	return &Plan{Target: target, index: make(map[string]int, 8)}
}

func (p *Plan) AddEnum(e *EnumPlan) {
	p.add(ContainerPlan{Enum: e})
}

func (p *Plan) AddStruct(s *StructPlan) {
	p.add(ContainerPlan{Struct: s})
}

// add keeps the first container of a name reachable through Lookup.
func (p *Plan) add(c ContainerPlan) {
	if _, ok := p.index[c.Name()]; !ok {
		p.index[c.Name()] = len(p.containers)
	}
	p.containers = append(p.containers, c)
}

func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.containers)
}

// Containers returns every plan in declaration order.
func (p *Plan) Containers() []ContainerPlan {
	if p == nil {
		return nil
	}
	return p.containers
}

func (p *Plan) Lookup(name string) (ContainerPlan, bool) {
	if p == nil {
		return ContainerPlan{}, false
	}
	i, ok := p.index[name]
	if !ok {
		return ContainerPlan{}, false
	}
	return p.containers[i], true
}

func (p *Plan) Enums() []*EnumPlan {
	var out []*EnumPlan
	for _, c := range p.Containers() {
		if c.Enum != nil {
			out = append(out, c.Enum)
		}
	}
	return out
}

func (p *Plan) Structs() []*StructPlan {
	var out []*StructPlan
	for _, c := range p.Containers() {
		if c.Struct != nil {
			out = append(out, c.Struct)
		}
	}
	return out
}

// Enum returns the enum plan called name or a *PlanError.
func (p *Plan) Enum(name string) (*EnumPlan, error) {
	c, ok := p.Lookup(name)
	if !ok {
		return nil, &PlanError{Kind: PlanErrMissing, Name: name, Want: "enum"}
	}
	if c.Enum == nil {
		return nil, &PlanError{Kind: PlanErrWrongKind, Name: name, Want: "enum", Got: c.Kind()}
	}
	return c.Enum, nil
}

// Struct returns the struct plan called name or a *PlanError.
func (p *Plan) Struct(name string) (*StructPlan, error) {
	c, ok := p.Lookup(name)
	if !ok {
		return nil, &PlanError{Kind: PlanErrMissing, Name: name, Want: "struct"}
	}
	if c.Struct == nil {
		return nil, &PlanError{Kind: PlanErrWrongKind, Name: name, Want: "struct", Got: c.Kind()}
	}
	return c.Struct, nil
}
