package rules

import (
	"strings"
	"testing"

	"bitspec/internal/diag"
	"bitspec/internal/directive"
)

func TestTableOrder(t *testing.T) {
	tab := Table()
	seenKinds := []Kind{}
	for _, r := range tab {
		if len(seenKinds) == 0 || seenKinds[len(seenKinds)-1] != r.Kind {
			seenKinds = append(seenKinds, r.Kind)
		}
	}
	want := []Kind{KindScope, KindExclusive, KindRequires, KindCrossMember}
	if len(seenKinds) != len(want) {
		t.Fatalf("kind runs = %v, want %v", seenKinds, want)
	}
	for i := range want {
		if seenKinds[i] != want[i] {
			t.Fatalf("kind runs = %v, want %v", seenKinds, want)
		}
	}
	if n := len(directive.Specs()); tab[n-1].Kind != KindScope || tab[n].Kind == KindScope {
		t.Fatalf("expected one scope rule per directive")
	}
}

func TestTableIsACopy(t *testing.T) {
	tab := Table()
	tab[0].Name = "mutated"
	if Table()[0].Name == "mutated" {
		t.Fatalf("Table must not expose the shared table")
	}
}

func TestScopeRule(t *testing.T) {
	r := ScopeRule(directive.KeyType)
	if r == nil {
		t.Fatal("no scope rule for type")
	}
	present := directive.NewSet(directive.KeyType)
	if _, bad := r.Eval(directive.EnumContainer, present); bad {
		t.Fatalf("type is legal on an enum")
	}
	v, bad := r.Eval(directive.StructContainer, present)
	if !bad {
		t.Fatalf("type must be illegal on a struct")
	}
	if v.Rule.Code != diag.ResIllegalInScope {
		t.Fatalf("code = %v", v.Rule.Code)
	}
	if want := "directive 'type' is not allowed on a struct (allowed on enum)"; v.Message != want {
		t.Fatalf("message = %q, want %q", v.Message, want)
	}
	if _, bad := r.Eval(directive.StructContainer, directive.NewSet(directive.KeyEndian)); bad {
		t.Fatalf("absent key must pass")
	}
}

func TestSizingIsIllegalOnMembers(t *testing.T) {
	for _, k := range []directive.Key{directive.KeyBits, directive.KeyBytes} {
		r := ScopeRule(k)
		for _, scope := range []directive.Scope{directive.FieldMember, directive.VariantMember} {
			if _, bad := r.Eval(scope, directive.NewSet(k)); !bad {
				t.Fatalf("%s on %s should be illegal", k, scope)
			}
		}
	}
}

func TestExclusiveNamesPairInTableOrder(t *testing.T) {
	r := findRule(t, "enum-discriminant-style")
	// Set membership has no order; the message follows the rule.
	v, bad := r.Eval(directive.EnumContainer, directive.NewSet(directive.KeyID, directive.KeyType))
	if !bad {
		t.Fatal("expected conflict")
	}
	if v.Message != "conflicting directives 'type' and 'id'" {
		t.Fatalf("message = %q", v.Message)
	}
	if _, bad := r.Eval(directive.EnumContainer, directive.NewSet(directive.KeyType)); bad {
		t.Fatal("one key alone must pass")
	}
	if _, bad := r.Eval(directive.VariantMember, directive.NewSet(directive.KeyID, directive.KeyType)); bad {
		t.Fatal("rule must not apply outside its scope")
	}
}

func TestExclusiveWithMoreThanTwoKeysNamesAllOnce(t *testing.T) {
	r := &Rule{
		Name:   "three-way",
		Kind:   KindExclusive,
		Scopes: directive.FieldMember,
		Keys:   []directive.Key{directive.KeyCount, directive.KeyUpdate, directive.KeyMap},
		Code:   diag.ResConflictingDirectives,
	}
	v, bad := r.Eval(directive.FieldMember, directive.NewSet(directive.KeyMap, directive.KeyUpdate, directive.KeyCount))
	if !bad {
		t.Fatal("expected conflict")
	}
	if got := directive.Names(v.Keys); strings.Join(got, ",") != "count,update,map" {
		t.Fatalf("keys = %v", got)
	}
	if v.Message != "conflicting directives 'count', 'update' and 'map'" {
		t.Fatalf("message = %q", v.Message)
	}

	v, _ = r.Eval(directive.FieldMember, directive.NewSet(directive.KeyMap, directive.KeyCount))
	if v.Message != "conflicting directives 'count' and 'map'" {
		t.Fatalf("two of three: %q", v.Message)
	}
}

func TestRequires(t *testing.T) {
	tests := []struct {
		rule    string
		scope   directive.Scope
		present directive.Set
		want    string
	}{
		{"enum-discriminant-required", directive.EnumContainer, 0, "enum requires 'type' or 'id'"},
		{"enum-discriminant-required", directive.EnumContainer, directive.NewSet(directive.KeyID), ""},
		{"ctx-default-needs-ctx", directive.StructContainer, directive.NewSet(directive.KeyCtxDefault), "directive 'ctx_default' requires 'ctx'"},
		{"ctx-default-needs-ctx", directive.StructContainer, 0, ""},
		{"ctx-default-needs-ctx", directive.EnumContainer, directive.NewSet(directive.KeyCtxDefault, directive.KeyCtx), ""},
		{"default-needs-skip-or-cond", directive.FieldMember, directive.NewSet(directive.KeyDefault), "directive 'default' requires 'skip' or 'cond'"},
		{"default-needs-skip-or-cond", directive.FieldMember, directive.NewSet(directive.KeyDefault, directive.KeyCond), ""},
	}
	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.present.String(), func(t *testing.T) {
			v, bad := findRule(t, tt.rule).Eval(tt.scope, tt.present)
			if tt.want == "" {
				if bad {
					t.Fatalf("unexpected violation %q", v.Message)
				}
				return
			}
			if !bad || v.Message != tt.want {
				t.Fatalf("got (%v, %q), want %q", bad, v.Message, tt.want)
			}
			if v.Rule.Code != diag.ResMissingDirective {
				t.Fatalf("code = %v", v.Rule.Code)
			}
		})
	}
}

func TestDiscriminantCapacity(t *testing.T) {
	r := findRule(t, "enum-discriminant-capacity")
	in := CrossInput{
		Capacity: 8,
		Source:   directive.KeyType,
		Members: []Member{
			{Name: "A", Value: 255, Known: true},
			{Name: "B", Value: 256, Known: true},
			{Name: "C", Value: 1 << 20, Known: true},
			{Name: "D"},
		},
	}
	v, bad := r.EvalCross(in)
	if !bad {
		t.Fatal("expected violation")
	}
	if len(v.Offenders) != 2 || v.Offenders[0].Member != "B" || v.Offenders[1].Member != "C" {
		t.Fatalf("offenders = %+v", v.Offenders)
	}
	if v.Offenders[0].Detail != "value 256 needs 9 bits" {
		t.Fatalf("detail = %q", v.Offenders[0].Detail)
	}
	if v.Message != "variant ids do not fit the 8-bit discriminant set by 'type'" {
		t.Fatalf("message = %q", v.Message)
	}

	in.Capacity = 64
	if _, bad := r.EvalCross(in); bad {
		t.Fatal("64-bit discriminant holds every value")
	}
	in.Capacity = 0
	if _, bad := r.EvalCross(in); bad {
		t.Fatal("no capacity means nothing to check")
	}
}

func TestDeclaredSize(t *testing.T) {
	r := findRule(t, "struct-declared-size")
	in := CrossInput{
		Capacity: 16,
		Source:   directive.KeyBits,
		Members: []Member{
			{Name: "a", Value: 8, Known: true},
			{Name: "payload"},
			{Name: "b", Value: 8, Known: true},
		},
	}
	if _, bad := r.EvalCross(in); bad {
		t.Fatal("exact fit must pass")
	}
	in.Members = append(in.Members, Member{Name: "c", Value: 1, Known: true})
	v, bad := r.EvalCross(in)
	if !bad {
		t.Fatal("expected violation")
	}
	if v.Message != "fields need 17 bits but 'bits' declares 16" {
		t.Fatalf("message = %q", v.Message)
	}
	if len(v.Offenders) != 1 || v.Offenders[0].Member != "c" || v.Offenders[0].Detail != "ends at bit 17" {
		t.Fatalf("offenders = %+v", v.Offenders)
	}
}

func TestNodeAndCrossRulesByScope(t *testing.T) {
	names := func(rs []*Rule) string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Name
		}
		return strings.Join(out, ",")
	}
	if got := names(NodeRules(directive.EnumContainer)); got != "enum-discriminant-style,enum-size-style,enum-discriminant-required,ctx-default-needs-ctx" {
		t.Fatalf("enum rules = %s", got)
	}
	if got := names(NodeRules(directive.VariantMember)); got != "variant-id-style" {
		t.Fatalf("variant rules = %s", got)
	}
	if got := names(CrossRules(directive.StructContainer)); got != "struct-declared-size" {
		t.Fatalf("struct cross rules = %s", got)
	}
	if got := names(NodeRules(directive.FieldMember)); got != "ctx-default-needs-ctx,default-needs-skip-or-cond" {
		t.Fatalf("field rules = %s", got)
	}
	if got := names(CrossRules(directive.VariantMember)); got != "variant-pattern-storage" {
		t.Fatalf("variant cross rules = %s", got)
	}
	if got := CrossRules(directive.FieldMember); len(got) != 0 {
		t.Fatalf("fields have no cross rules: %v", names(got))
	}
}

func TestSignedDiscriminantCapacity(t *testing.T) {
	r := findRule(t, "enum-discriminant-capacity")
	tests := []struct {
		name   string
		signed bool
		m      Member
		detail string // empty when the value fits
	}{
		{"signed max", true, Member{Value: 127}, ""},
		{"signed min", true, Member{Value: 128, Negative: true}, ""},
		{"signed above max", true, Member{Value: 128}, "value 128 needs 9 bits"},
		{"signed below min", true, Member{Value: 129, Negative: true}, "value -129 needs 9 bits"},
		{"unsigned negative", false, Member{Value: 1, Negative: true}, "negative value -1 needs a signed type"},
		{"unsigned max", false, Member{Value: 255}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.m.Name, tt.m.Known = "V", true
			v, bad := r.EvalCross(CrossInput{Capacity: 8, Source: directive.KeyType, Signed: tt.signed, Members: []Member{tt.m}})
			if bad != (tt.detail != "") {
				t.Fatalf("violation = %v, want %v", bad, tt.detail != "")
			}
			if bad && v.Offenders[0].Detail != tt.detail {
				t.Fatalf("detail = %q, want %q", v.Offenders[0].Detail, tt.detail)
			}
			if bad && tt.signed && v.Message != "variant ids do not fit the 8-bit signed discriminant set by 'type'" {
				t.Fatalf("message = %q", v.Message)
			}
		})
	}
}

func TestPatternStorage(t *testing.T) {
	r := findRule(t, "variant-pattern-storage")
	v, bad := r.EvalCross(CrossInput{Source: directive.KeyIDPat})
	if !bad || v.Message != "variant matched by 'id_pat' has no field to store its id" || len(v.Offenders) != 0 {
		t.Fatalf("no fields: %v %+v", bad, v)
	}
	if len(v.Keys) != 1 || v.Keys[0] != directive.KeyIDPat {
		t.Fatalf("keys = %v", v.Keys)
	}

	in := CrossInput{Source: directive.KeyIDPat, Type: "u8", Members: []Member{{Name: "tag", Type: "u16"}, {Name: "rest", Type: "u8"}}}
	v, bad = r.EvalCross(in)
	if !bad || len(v.Offenders) != 1 || v.Offenders[0].Detail != "is u16, discriminant is u8" {
		t.Fatalf("mismatch: %v %+v", bad, v)
	}
	in.Members[0].Type = "u8"
	if _, bad := r.EvalCross(in); bad {
		t.Fatal("first field of the discriminant type must pass")
	}
	in.Members[0].Type = ""
	if _, bad := r.EvalCross(in); bad {
		t.Fatal("a non-integer first field is not checked")
	}
	in.Type = ""
	in.Members[0].Type = "u16"
	if _, bad := r.EvalCross(in); bad {
		t.Fatal("without an explicit type only the field count is checked")
	}
}

func findRule(t *testing.T, name string) *Rule {
	t.Helper()
	for i := range table {
		if table[i].Name == name {
			return &table[i]
		}
	}
	t.Fatalf("rule %q not found", name)
	return nil
}
