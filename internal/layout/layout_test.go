package layout

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"bitspec/internal/directive"
)

func samplePlan() *Plan {
	p := NewPlan(DefaultTarget())
	p.AddEnum(&EnumPlan{
		Name: "Packet",
		Discriminant: Discriminant{
			Type: IntType{Name: "u8", Bits: 8}, Bits: 8, Source: directive.KeyType, Endian: EndianLittle,
		},
		Variants: []VariantPlan{
			NewVariant("Ping", Exact(1), []FieldPlan{{Name: "seq", Type: "u16", Bits: 16, Endian: EndianBig}}),
			NewVariant("Data", Range(2, 9), nil),
			NewVariant("Wide", Range(1, 255), nil),
		},
	})
	s := NewStruct("Header", 16, []FieldPlan{
		{Name: "version", Type: "u8", Bits: 8, Endian: EndianLittle},
		{Name: "body", Type: "Body", Endian: EndianLittle},
		{Name: "crc", Type: "u8", Bits: 8, Endian: EndianLittle, Skip: true, Default: "0"},
	})
	s.SizeSource = directive.KeyBits
	s.Endian = EndianLittle
	p.AddStruct(s)
	return p
}

func TestPredicateMatches(t *testing.T) {
	tests := []struct {
		p    Predicate
		v    uint64
		want bool
	}{
		{Exact(3), 3, true},
		{Exact(3), 4, false},
		{Range(2, 9), 2, true},
		{Range(2, 9), 9, true},
		{Range(2, 9), 10, false},
		{Range(0, MaxValue(64)), ^uint64(0), true},
		{Predicate{}, 0, false},
	}
	for _, tt := range tests {
		if got := tt.p.Matches(tt.v); got != tt.want {
			t.Errorf("%s.Matches(%d) = %v, want %v", tt.p, tt.v, got, tt.want)
		}
	}
}

func TestRangePanicsWhenInverted(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Range(5, 4)
}

func TestSelectFirstMatchWins(t *testing.T) {
	e, err := samplePlan().Enum("Packet")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		v    uint64
		want string
	}{
		{1, "Ping"}, // Wide also matches; declaration order decides
		{5, "Data"},
		{200, "Wide"},
	}
	for _, tt := range tests {
		v, ok := e.Select(tt.v)
		if !ok || v.Name != tt.want {
			t.Errorf("Select(%d) = %v, want %s", tt.v, v, tt.want)
		}
	}
	if _, ok := e.Select(0); ok {
		t.Errorf("Select(0) should miss")
	}
}

func TestFieldPlacement(t *testing.T) {
	s, err := samplePlan().Struct("Header")
	if err != nil {
		t.Fatal(err)
	}
	if s.KnownBits != 16 || s.Complete {
		t.Fatalf("known = %d complete = %v", s.KnownBits, s.Complete)
	}
	f := s.Fields
	if !f[0].OffsetKnown || f[0].Offset != 0 || !f[1].OffsetKnown || f[1].Offset != 8 {
		t.Fatalf("leading offsets = %+v", f[:2])
	}
	if f[2].OffsetKnown {
		t.Fatalf("offset after a delegated field must be unknown")
	}
}

func TestPlanLookupErrors(t *testing.T) {
	p := samplePlan()
	var pe *PlanError
	if _, err := p.Enum("Missing"); !errors.As(err, &pe) || pe.Kind != PlanErrMissing {
		t.Fatalf("missing: %v", err)
	}
	if _, err := p.Struct("Packet"); !errors.As(err, &pe) || pe.Kind != PlanErrWrongKind {
		t.Fatalf("wrong kind: %v", err)
	}
	if pe.Error() != `layout plan "Packet" is a enum, not a struct` {
		t.Fatalf("message = %q", pe.Error())
	}
	if len(p.Enums()) != 1 || len(p.Structs()) != 1 || p.Len() != 2 {
		t.Fatalf("counts: enums=%d structs=%d len=%d", len(p.Enums()), len(p.Structs()), p.Len())
	}
	var nilPlan *Plan
	if nilPlan.Len() != 0 || len(nilPlan.Enums()) != 0 {
		t.Fatal("nil plan must be empty")
	}
}

func TestLookupKeepsFirstOfName(t *testing.T) {
	p := NewPlan(DefaultTarget())
	p.AddStruct(NewStruct("Dup", 8, nil))
	p.AddStruct(NewStruct("Dup", 16, nil))
	c, _ := p.Lookup("Dup")
	if c.Struct.DeclaredBits != 8 {
		t.Fatalf("Lookup returned the later container")
	}
	if p.Len() != 2 {
		t.Fatalf("both containers must be kept")
	}
}

func TestDumpString(t *testing.T) {
	want := strings.Join([]string{
		"target little-endian",
		"enum Packet: u8 (8 bits, type, little)",
		"  Ping: == 1",
		"    seq: u16, 16 bits @0, big",
		"  Data: 2..=9",
		"  Wide: 1..=255",
		"struct Header: declared 16 bits from bits, at least 16 bits, little",
		"  version: u8, 8 bits @0, little",
		"  body: Body, delegated @8, little",
		"  crc: u8, 8 bits @?, little skip default=0",
		"",
	}, "\n")
	if got := DumpString(samplePlan()); got != want {
		t.Fatalf("dump mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(samplePlan())
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Target     string `json:"target"`
		Containers []struct {
			Kind     string `json:"kind"`
			Name     string `json:"name"`
			Variants []struct {
				Name  string `json:"name"`
				Match string `json:"match"`
			} `json:"variants"`
			Fields []struct {
				Name   string  `json:"name"`
				Offset *uint64 `json:"offset"`
			} `json:"fields"`
		} `json:"containers"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, data)
	}
	if decoded.Target != "little-endian" || len(decoded.Containers) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	enum := decoded.Containers[0]
	if enum.Kind != "enum" || enum.Variants[1].Match != "range" {
		t.Fatalf("enum = %+v", enum)
	}
	st := decoded.Containers[1]
	if st.Fields[2].Offset != nil || st.Fields[1].Offset == nil || *st.Fields[1].Offset != 8 {
		t.Fatalf("offsets = %+v", st.Fields)
	}
}

func TestFieldWidthAndIntTypes(t *testing.T) {
	if w, ok := FieldWidth("bool"); !ok || w != 8 {
		t.Fatalf("bool width = %d, %v", w, ok)
	}
	if w, ok := FieldWidth("i128"); !ok || w != 128 {
		t.Fatalf("i128 width = %d", w)
	}
	if _, ok := FieldWidth("Vec<u8>"); ok {
		t.Fatal("non-primitive types are delegated")
	}
	if _, ok := LookupIntType("bool"); ok {
		t.Fatal("bool is not a discriminant type")
	}
	if MaxValue(8) != 255 || MaxValue(0) != ^uint64(0) || MaxValue(128) != ^uint64(0) {
		t.Fatal("MaxValue")
	}
	if e, ok := ParseEndian(" big "); !ok || e != EndianBig {
		t.Fatal("ParseEndian big")
	}
	if _, ok := ParseEndian("network"); ok {
		t.Fatal("only big and little are accepted")
	}
	if EndianUnset.Or(EndianBig) != EndianBig || EndianLittle.Or(EndianBig) != EndianLittle {
		t.Fatal("Or")
	}
}

func TestByteOrder(t *testing.T) {
	constant := ByteOrder{Endian: EndianBig}
	expr := ByteOrder{Expr: "order"}
	if got := (ByteOrder{}).Or(expr); got != expr {
		t.Fatalf("unset falls back: %+v", got)
	}
	if got := expr.Or(constant); got != expr {
		t.Fatalf("an expression counts as set: %+v", got)
	}
	if constant.String() != "big" || expr.String() != "endian=order" {
		t.Fatalf("String = %s / %s", constant, expr)
	}

	s := NewStruct("S", 0, []FieldPlan{{Name: "a", Type: "u16", Bits: 16, EndianExpr: "order", Ctx: "n", CtxDefault: "n = 1"}})
	s.EndianExpr = "order"
	p := NewPlan(DefaultTarget())
	p.AddStruct(s)
	want := "target little-endian\n" +
		"struct S: size not declared, known 16 bits, endian=order\n" +
		"  a: u16, 16 bits @0, endian=order ctx=n ctx_default=n = 1\n"
	if got := DumpString(p); got != want {
		t.Fatalf("dump mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSignedWidths(t *testing.T) {
	tests := []struct {
		width     uint32
		magnitude uint64
		pattern   uint64
		maxSigned uint64
	}{
		{8, 1, 0xFF, 127},
		{8, 128, 0x80, 127},
		{4, 3, 0xD, 7},
		{64, 2, ^uint64(0) - 1, 1<<63 - 1},
	}
	for _, tt := range tests {
		if got := TwosComplement(tt.magnitude, tt.width); got != tt.pattern {
			t.Errorf("TwosComplement(%d, %d) = %#x, want %#x", tt.magnitude, tt.width, got, tt.pattern)
		}
		if got := MaxSigned(tt.width); got != tt.maxSigned {
			t.Errorf("MaxSigned(%d) = %d, want %d", tt.width, got, tt.maxSigned)
		}
	}
	d := Discriminant{Type: IntType{Name: "i8", Bits: 8, Signed: true}, Bits: 8}
	if !d.Signed() {
		t.Fatal("i8 tag is signed")
	}
	d.External = "kind"
	if d.Signed() {
		t.Fatal("an external tag has no stream type")
	}
}
