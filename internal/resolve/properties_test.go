package resolve

import (
	"fmt"
	"strings"
	"testing"

	"bitspec/internal/diag"
	"bitspec/internal/directive"
	"bitspec/internal/layout"
	"bitspec/internal/schema"
	"bitspec/internal/source"
)

func TestDiagnosticOrderIsPreOrder(t *testing.T) {
	src := `containers:
  - enum: E
    deku:
      type: u8
      type: u16
      bits: 4
      bytes: 1
      endian: ""
    variants:
      - name: V
        deku:
          id: 1
          id_pat: "1..=2"
        fields:
          - name: f
            type: u8
            deku:
              default: "0"
              bits: 1
      - name: W
        deku:
          id: zero
  - struct: S
    deku:
      ctx_default: "a = 1"
`
	res, _ := resolveYAML(t, src)
	want := "RES3006@E\n" + // duplicate type
		"RES3002@E\n" + // bits and bytes
		"RES3004@E\n" + // endian value
		"RES3002@E::V\n" +
		"RES3003@E::V::f\n" + // bits on a field, before its rules
		"RES3001@E::V::f\n" + // default without skip or cond
		"RES3004@E::W\n" +
		"RES3001@S"
	if got := summary(res.Bag); got != want {
		t.Fatalf("order:\n%s\nwant:\n%s", got, want)
	}
	if res.Plan.Len() != 0 {
		t.Fatal("no plans expected")
	}
}

func TestDuplicateReportedOncePerKey(t *testing.T) {
	src := `containers:
  - struct: S
    fields:
      - name: f
        type: u8
        deku:
          cond: a
          cond: b
          cond: c
          type: u8
          type: u8
`
	res, fs := resolveYAML(t, src)
	want := "error RES3006 schema.yaml:8:11 directive 'cond' is repeated\n" +
		"note RES3006 schema.yaml:7:11 first declared here\n" +
		"error RES3003 schema.yaml:10:11 directive 'type' is not allowed on a field (allowed on enum)"
	if got := golden(res, fs); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if d := res.Bag.Items()[0]; d.Kind != diag.ConflictingDirectives {
		t.Fatalf("duplicate kind = %s", d.Kind)
	}
}

func TestMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		deku  string // enum container directives
		vdeku string // variant directives
		msg   string
	}{
		{"inverted range", "type: u8", `id_pat: "3..=1"`, "malformed value for 'id_pat': lower bound 3 is above upper bound 1"},
		{"not a range", "type: u8", `id_pat: "7"`, `malformed value for 'id_pat': "7" is not a range (lo..=hi)`},
		{"empty half-open", "type: u8", `id_pat: "4..4"`, "malformed value for 'id_pat': range is empty"},
		{"negative id", "type: u8", `id: "-x"`, `malformed value for 'id': "-x" is not an integer`},
		{"huge id", "type: u8", `id: "0x1_0000_0000_0000_0000"`, `malformed value for 'id': "0x1_0000_0000_0000_0000" does not fit in 64 bits`},
		{"bad type", "type: u7", `id: 1`, `malformed value for 'type': "u7" is not an integer type (u8..u128, i8..i128)`},
		{"bits wider than type", "{type: u8, bits: 9}", `id: 1`, "malformed value for 'bits': 9 bits do not fit in u8"},
		{"zero bits", "{type: u8, bits: 0}", `id: 1`, "malformed value for 'bits': size must be positive"},
		{"endian", `{type: u8, endian: ""}`, `id: 1`, "malformed value for 'endian': a value is required"},
		{"missing value", "type: ", `id: 1`, "malformed value for 'type': a value is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "containers:\n  - enum: E\n    deku: " + braces(tt.deku) + "\n    variants:\n      - name: V\n        deku: " + braces(tt.vdeku) + "\n"
			res, _ := resolveYAML(t, src)
			if res.Bag.Len() != 1 {
				t.Fatalf("want one diagnostic, got:\n%s", summary(res.Bag))
			}
			d := res.Bag.Items()[0]
			if d.Kind != diag.MalformedDirectiveValue || d.Message != tt.msg {
				t.Fatalf("got %s %q, want %q", d.Kind, d.Message, tt.msg)
			}
			if res.Plan.Len() != 0 {
				t.Fatal("no plan expected")
			}
		})
	}
}

func braces(s string) string {
	if len(s) > 0 && s[0] == '{' {
		return s
	}
	return "{" + s + "}"
}

func TestIntegerLiterals(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0x1F", 31},
		{"0o17", 15},
		{"0b101", 5},
		{"1_000", 1000},
		{"010", 10},
		{"0_10", 10},
		{" 7 ", 7},
	}
	for _, tt := range tests {
		got, err := parseUint(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseUint(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestRangeForms(t *testing.T) {
	tests := []struct {
		in     string
		lo, hi uint64
	}{
		{"2..=9", 2, 9},
		{"2..10", 2, 9},
		{"0x10..=0x1f", 16, 31},
		{"..=5", 0, 5},
		{"200..", 200, 255},
		{"_", 0, 255},
	}
	for _, tt := range tests {
		p, err := parseRange(tt.in)
		if err != nil {
			t.Errorf("parseRange(%q): %v", tt.in, err)
			continue
		}
		lo, hi := p.bounds(255)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("parseRange(%q) = %d..=%d, want %d..=%d", tt.in, lo, hi, tt.lo, tt.hi)
		}
	}
	for _, bad := range []string{"9..=", "a..=b", "1..=2..=3", "5..0"} {
		if _, err := parseRange(bad); err == nil {
			t.Errorf("parseRange(%q) should fail", bad)
		}
	}
}

func TestDiscriminantCapacity(t *testing.T) {
	src := `containers:
  - enum: E
    deku:
      type: u16
      bits: 4
    variants:
      - name: A
        deku: { id: 15 }
      - name: B
        deku: { id: 16 }
      - name: C
        deku: { id_pat: "10..=40" }
        fields: [{ name: tag, type: u16 }]
`
	res, fs := resolveYAML(t, src)
	want := "error RES3005 schema.yaml:5:7 variant ids do not fit the 4-bit discriminant set by 'bits'\n" +
		"note RES3005 schema.yaml:10:21 B: value 16 needs 5 bits\n" +
		"note RES3005 schema.yaml:12:25 C: value 40 needs 6 bits"
	if got := golden(res, fs); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if d := res.Bag.Items()[0]; d.Kind != diag.CrossMemberIncompatibility || d.Node != "E" {
		t.Fatalf("diagnostic = %+v", d)
	}
	if res.Plan.Len() != 0 {
		t.Fatal("no plan expected")
	}
}

func TestCrossMemberSkippedWhenMembersFail(t *testing.T) {
	src := `containers:
  - enum: E
    deku: { type: u8 }
    variants:
      - name: Big
        deku: { id: 300 }
      - name: Broken
        deku: { id: x }
`
	res, _ := resolveYAML(t, src)
	if got := summary(res.Bag); got != "RES3004@E::Broken" {
		t.Fatalf("got %s; cross-member rules only run on clean subtrees", got)
	}
}

func TestStructDeclaredSize(t *testing.T) {
	src := `containers:
  - struct: Fits
    deku: { bytes: 2 }
    fields:
      - { name: a, type: u8 }
      - { name: body, type: Body }
      - { name: b, type: bool }
  - struct: Overflows
    deku: { bits: 12 }
    fields:
      - { name: a, type: u8 }
      - { name: b, type: u8 }
`
	res, _ := resolveYAML(t, src)
	if got := summary(res.Bag); got != "RES3005@Overflows" {
		t.Fatalf("got %s", got)
	}
	d := res.Bag.Items()[0]
	if d.Message != "fields need 16 bits but 'bits' declares 12" || len(d.Notes) != 1 || d.Notes[0].Msg != "b: ends at bit 16" {
		t.Fatalf("diagnostic = %+v", d)
	}
	s, err := res.Plan.Struct("Fits")
	if err != nil {
		t.Fatal(err)
	}
	if s.DeclaredBits != 16 || s.SizeSource != directive.KeyBytes || s.KnownBits != 16 || s.Complete {
		t.Fatalf("struct plan = %+v", s)
	}
}

func TestCatchAllAndPatterns(t *testing.T) {
	src := `containers:
  - enum: E
    deku: { type: u8 }
    variants:
      - name: Zero
        deku: { id: 0 }
      - name: Low
        deku: { id_pat: "1..16" }
        fields: [{ name: tag, type: u8 }]
      - name: High
        deku: { id_pat: "200.." }
        fields: [{ name: tag, type: u8 }]
      - name: Other
`
	res, _ := resolveYAML(t, src)
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", summary(res.Bag))
	}
	e, _ := res.Plan.Enum("E")
	wantPreds := []layout.Predicate{layout.Exact(0), layout.Range(1, 15), layout.Range(200, 255), layout.Range(0, 255)}
	for i, p := range wantPreds {
		if e.Variants[i].Predicate != p {
			t.Fatalf("variant %d predicate = %s, want %s", i, e.Variants[i].Predicate, p)
		}
	}
	if !e.Variants[3].CatchAll || e.Variants[2].CatchAll {
		t.Fatal("only the variant without id or id_pat is the catch-all")
	}
	if v, _ := e.Select(0); v.Name != "Zero" {
		t.Fatalf("Select(0) = %s; the catch-all must not shadow earlier variants", v.Name)
	}
	if v, _ := e.Select(100); v.Name != "Other" {
		t.Fatalf("Select(100) = %s", v.Name)
	}
}

func TestExternalDiscriminant(t *testing.T) {
	src := `containers:
  - enum: Tagged
    deku: { id: "kind" }
    variants:
      - name: A
        deku: { id: 1 }
      - name: Rest
  - enum: Narrow
    deku: { id: "kind", bits: 3 }
    variants:
      - name: A
        deku: { id: 7 }
`
	res, _ := resolveYAML(t, src)
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", summary(res.Bag))
	}
	tagged, _ := res.Plan.Enum("Tagged")
	d := tagged.Discriminant
	if d.External != "kind" || d.Bits != 0 || d.Source != directive.KeyID {
		t.Fatalf("discriminant = %+v", d)
	}
	if tagged.Variants[1].Predicate != layout.Range(0, ^uint64(0)) {
		t.Fatalf("catch-all without width = %s", tagged.Variants[1].Predicate)
	}
	narrow, _ := res.Plan.Enum("Narrow")
	if nd := narrow.Discriminant; nd.Bits != 3 || nd.Type.Name != "u8" || nd.Source != directive.KeyBits {
		t.Fatalf("narrow discriminant = %+v", nd)
	}
}

func TestEndianPrecedence(t *testing.T) {
	src := `containers:
  - struct: S
    deku: { endian: big }
    fields:
      - { name: a, type: u16 }
      - { name: b, type: u16, deku: { endian: little } }
  - struct: T
    fields:
      - { name: c, type: u16 }
`
	fs := source.NewFileSet()
	id := fs.AddVirtual("schema.yaml", []byte(src))
	s, err := schema.Load(fs, id, nil)
	if err != nil {
		t.Fatal(err)
	}
	res := Resolve(s, Options{Target: layout.TargetFor(layout.EndianBig)})
	sp, _ := res.Plan.Struct("S")
	if sp.Fields[0].Endian != layout.EndianBig || sp.Fields[1].Endian != layout.EndianLittle {
		t.Fatalf("S fields = %+v", sp.Fields)
	}
	res = Resolve(s, Options{Target: layout.TargetFor(layout.EndianLittle)})
	tp, _ := res.Plan.Struct("T")
	if tp.Endian != layout.EndianLittle || tp.Fields[0].Endian != layout.EndianLittle {
		t.Fatalf("T falls back to the target: %+v", tp)
	}
}

func TestRequiresRules(t *testing.T) {
	src := `containers:
  - struct: S
    deku: { ctx: "a: u8", ctx_default: "a = 1" }
    fields:
      - name: skipped
        type: u8
        deku: { skip: true, default: "5" }
      - name: conditional
        type: u8
        deku: { cond: "a > 0", default: "0" }
`
	res, _ := resolveYAML(t, src)
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", summary(res.Bag))
	}
	sp, _ := res.Plan.Struct("S")
	if !sp.Fields[0].Skip || sp.Fields[0].Default != "5" || sp.Fields[1].Cond != "a > 0" {
		t.Fatalf("fields = %+v", sp.Fields)
	}
	if sp.Ctx != "a: u8" || sp.CtxDefault != "a = 1" {
		t.Fatalf("ctx = %q / %q", sp.Ctx, sp.CtxDefault)
	}
}

func TestResolveWithCustomReporter(t *testing.T) {
	var got []diag.Diagnostic
	rep := reporterFunc(func(d diag.Diagnostic) { got = append(got, d) })
	s := &schema.Schema{Containers: []*schema.Node{
		{Kind: schema.KindEnum, Name: "E", Span: source.Span{Start: 1, End: 2}},
	}}
	plan := ResolveWith(s, Options{}, rep)
	if len(got) != 1 || got[0].Code != diag.ResMissingDirective || got[0].Primary.Start != 1 {
		t.Fatalf("reported = %+v", got)
	}
	if plan.Len() != 0 {
		t.Fatal("no plan expected")
	}
}

type reporterFunc func(diag.Diagnostic)

func (f reporterFunc) Report(d diag.Diagnostic) { f(d) }

func TestSignedDiscriminant(t *testing.T) {
	src := `containers:
  - enum: E
    deku: { type: i8 }
    variants:
      - name: MinusOne
        deku: { id: "-1" }
      - name: Min
        deku: { id: "-128" }
      - name: Max
        deku: { id: 127 }
      - name: High
        deku: { id_pat: "100.." }
        fields: [{ name: tag, type: i8 }]
      - name: Zero
        deku: { id: "-0" }
`
	res, _ := resolveYAML(t, src)
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", summary(res.Bag))
	}
	e, _ := res.Plan.Enum("E")
	if !e.Discriminant.Signed() {
		t.Fatalf("discriminant = %+v", e.Discriminant)
	}
	wantPreds := []layout.Predicate{layout.Exact(0xFF), layout.Exact(0x80), layout.Exact(127), layout.Range(100, 127), layout.Exact(0)}
	for i, p := range wantPreds {
		if e.Variants[i].Predicate != p {
			t.Fatalf("variant %d predicate = %s, want %s", i, e.Variants[i].Predicate, p)
		}
	}
}

func TestSignedDiscriminantCapacity(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		ids   string
		msg   string
		notes []string
	}{
		{
			name:  "positive above signed max",
			typ:   "i8",
			ids:   `"127", "200"`,
			msg:   "variant ids do not fit the 8-bit signed discriminant set by 'type'",
			notes: []string{"V1: value 200 needs 9 bits"},
		},
		{
			name:  "negative below signed min",
			typ:   "i8",
			ids:   `"-128", "-129"`,
			msg:   "variant ids do not fit the 8-bit signed discriminant set by 'type'",
			notes: []string{"V1: value -129 needs 9 bits"},
		},
		{
			name:  "negative on unsigned",
			typ:   "u8",
			ids:   `"1", "-1"`,
			msg:   "variant ids do not fit the 8-bit discriminant set by 'type'",
			notes: []string{"V1: negative value -1 needs a signed type"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			b.WriteString("containers:\n  - enum: E\n    deku: { type: " + tt.typ + " }\n    variants:\n")
			for i, id := range strings.Split(tt.ids, ", ") {
				fmt.Fprintf(&b, "      - name: V%d\n        deku: { id: %s }\n", i, id)
			}
			res, _ := resolveYAML(t, b.String())
			if got := summary(res.Bag); got != "RES3005@E" {
				t.Fatalf("got %s", got)
			}
			d := res.Bag.Items()[0]
			if d.Message != tt.msg || len(d.Notes) != len(tt.notes) {
				t.Fatalf("diagnostic = %+v", d)
			}
			for i, n := range tt.notes {
				if d.Notes[i].Msg != n {
					t.Errorf("note %d = %q, want %q", i, d.Notes[i].Msg, n)
				}
			}
		})
	}
}

func TestNegativeIDWithExternalDiscriminant(t *testing.T) {
	src := `containers:
  - enum: E
    deku: { id: "kind" }
    variants:
      - name: A
        deku: { id: "-2" }
`
	res, _ := resolveYAML(t, src)
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", summary(res.Bag))
	}
	e, _ := res.Plan.Enum("E")
	if got := e.Variants[0].Predicate; got != layout.Exact(^uint64(0)-1) {
		t.Fatalf("predicate = %s", got)
	}
}

func TestPatternVariantStoresID(t *testing.T) {
	tests := []struct {
		name string
		deku string
		body string // variant fields
		msg  string
		note string
	}{
		{"no fields", "{type: u8}", "", "variant matched by 'id_pat' has no field to store its id", ""},
		{
			"first field of another type", "{type: u8}", "        fields: [{ name: tag, type: u16 }]\n",
			"first field of a variant matched by 'id_pat' must have the discriminant type", "tag: is u16, discriminant is u8",
		},
		{"matching first field", "{type: u8}", "        fields: [{ name: tag, type: u8 }, { name: rest, type: u16 }]\n", "", ""},
		{"first field not an integer", "{type: u8}", "        fields: [{ name: tag, type: Tag }]\n", "", ""},
		{"external id", "{id: kind}", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "containers:\n  - enum: E\n    deku: " + tt.deku + "\n    variants:\n      - name: V\n        deku: { id_pat: \"1..=3\" }\n" + tt.body
			res, _ := resolveYAML(t, src)
			if tt.msg == "" {
				if res.Bag.Len() != 0 || res.Plan.Len() != 1 {
					t.Fatalf("want a clean plan, got:\n%s", summary(res.Bag))
				}
				return
			}
			if got := summary(res.Bag); got != "RES3005@E::V" {
				t.Fatalf("got %s", got)
			}
			d := res.Bag.Items()[0]
			if d.Message != tt.msg || d.Code != diag.ResCrossMember {
				t.Fatalf("diagnostic = %+v", d)
			}
			if tt.note == "" && len(d.Notes) != 0 || tt.note != "" && (len(d.Notes) != 1 || d.Notes[0].Msg != tt.note) {
				t.Fatalf("notes = %+v", d.Notes)
			}
			if res.Plan.Len() != 0 {
				t.Fatal("no plan expected")
			}
		})
	}
}

func TestEndianExpression(t *testing.T) {
	src := `containers:
  - struct: S
    deku: { ctx: "order: deku::ctx::Endian", endian: order }
    fields:
      - { name: a, type: u16 }
      - { name: b, type: u16, deku: { endian: little } }
  - enum: E
    deku: { type: u16, endian: "self.order" }
    variants:
      - name: A
        deku: { id: 1 }
        fields:
          - { name: c, type: u32 }
          - { name: d, type: u32, deku: { endian: "flip(self.order)" } }
`
	res, _ := resolveYAML(t, src)
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", summary(res.Bag))
	}
	sp, _ := res.Plan.Struct("S")
	if sp.EndianExpr != "order" || sp.Endian != layout.EndianUnset {
		t.Fatalf("S byte order = %s / %q", sp.Endian, sp.EndianExpr)
	}
	if f := sp.Fields[0]; f.EndianExpr != "order" || f.Endian != layout.EndianUnset {
		t.Fatalf("a inherits the expression: %+v", f)
	}
	if f := sp.Fields[1]; f.EndianExpr != "" || f.Endian != layout.EndianLittle {
		t.Fatalf("b keeps its constant: %+v", f)
	}
	e, _ := res.Plan.Enum("E")
	if d := e.Discriminant; d.EndianExpr != "self.order" || d.Endian != layout.EndianUnset {
		t.Fatalf("discriminant = %+v", d)
	}
	fields := e.Variants[0].Fields
	if fields[0].EndianExpr != "self.order" || fields[1].EndianExpr != "flip(self.order)" {
		t.Fatalf("variant fields = %+v", fields)
	}
}

func TestFieldCtxDefault(t *testing.T) {
	src := `containers:
  - struct: S
    fields:
      - name: inner
        type: Inner
        deku: { ctx: "n", ctx_default: "n = 4" }
      - name: loose
        type: Inner
        deku: { ctx_default: "n = 4" }
`
	res, _ := resolveYAML(t, src)
	if got := summary(res.Bag); got != "RES3001@S::loose" {
		t.Fatalf("got %s", got)
	}
	if d := res.Bag.Items()[0]; d.Message != "directive 'ctx_default' requires 'ctx'" {
		t.Fatalf("message = %q", d.Message)
	}

	src = `containers:
  - struct: S
    fields:
      - name: inner
        type: Inner
        deku: { ctx: "n", ctx_default: "n = 4" }
`
	res, _ = resolveYAML(t, src)
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", summary(res.Bag))
	}
	sp, _ := res.Plan.Struct("S")
	if f := sp.Fields[0]; f.Ctx != "n" || f.CtxDefault != "n = 4" {
		t.Fatalf("field = %+v", f)
	}
}

func TestDirectivesBuiltInCode(t *testing.T) {
	s := &schema.Schema{Containers: []*schema.Node{
		{
			Kind: schema.KindStruct,
			Name: "S",
			Directives: []schema.Directive{
				{Name: "endian", Value: "big", HasValue: true},
			},
			Children: []*schema.Node{{Kind: schema.KindField, Name: "a", Type: "u8"}},
		},
		{
			Kind: schema.KindStruct,
			Name: "T",
			Directives: []schema.Directive{
				{Name: "magic", Value: "1", HasValue: true},
			},
		},
	}}
	res := Resolve(s, Options{})
	if got := summary(res.Bag); got != "SCH1001@T" {
		t.Fatalf("got %s", got)
	}
	if d := res.Bag.Items()[0]; d.Message != `unknown directive "magic"` {
		t.Fatalf("message = %q", d.Message)
	}
	sp, err := res.Plan.Struct("S")
	if err != nil {
		t.Fatal(err)
	}
	if sp.Endian != layout.EndianBig {
		t.Fatalf("a directive named in code is looked up: %+v", sp)
	}
}
