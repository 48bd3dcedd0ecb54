package rules

import (
	"slices"

	"bitspec/internal/diag"
	"bitspec/internal/directive"
)

// table is built once at init and never written again.
var table = buildTable()

func buildTable() []Rule {
	specs := directive.Specs()
	out := make([]Rule, 0, len(specs)+len(nodeRules)+len(crossRules))
	for _, spec := range specs {
		out = append(out, Rule{
			Name:    "scope:" + spec.Name,
			Kind:    KindScope,
			Scopes:  spec.Scopes,
			Keys:    []directive.Key{spec.Key},
			Code:    diag.ResIllegalInScope,
			Summary: "'" + spec.Name + "' only on " + spec.Scopes.String(),
		})
	}
	out = append(out, nodeRules...)
	out = append(out, crossRules...)
	return out
}

var nodeRules = []Rule{
	{
		Name:    "variant-id-style",
		Kind:    KindExclusive,
		Scopes:  directive.VariantMember,
		Keys:    []directive.Key{directive.KeyID, directive.KeyIDPat},
		Code:    diag.ResConflictingDirectives,
		Summary: "a variant matches by id or by id_pat, not both",
	},
	{
		Name:    "enum-discriminant-style",
		Kind:    KindExclusive,
		Scopes:  directive.EnumContainer,
		Keys:    []directive.Key{directive.KeyType, directive.KeyID},
		Code:    diag.ResConflictingDirectives,
		Summary: "an enum reads its discriminant by type or takes it from id, not both",
	},
	{
		Name:    "enum-size-style",
		Kind:    KindExclusive,
		Scopes:  directive.EnumContainer,
		Keys:    []directive.Key{directive.KeyBits, directive.KeyBytes},
		Code:    diag.ResConflictingDirectives,
		Summary: "discriminant size is given in bits or bytes, not both",
	},
	{
		Name:    "struct-size-style",
		Kind:    KindExclusive,
		Scopes:  directive.StructContainer,
		Keys:    []directive.Key{directive.KeyBits, directive.KeyBytes},
		Code:    diag.ResConflictingDirectives,
		Summary: "struct size is given in bits or bytes, not both",
	},
	{
		Name:    "enum-discriminant-required",
		Kind:    KindRequires,
		Scopes:  directive.EnumContainer,
		Keys:    []directive.Key{directive.KeyType, directive.KeyID},
		Code:    diag.ResMissingDirective,
		Summary: "an enum declares its discriminant with type or id",
	},
	{
		Name:    "ctx-default-needs-ctx",
		Kind:    KindRequires,
		Scopes:  directive.AnyContainer | directive.FieldMember,
		Trigger: directive.KeyCtxDefault,
		Keys:    []directive.Key{directive.KeyCtx},
		Code:    diag.ResMissingDirective,
		Summary: "ctx_default gives values for a declared ctx",
	},
	{
		Name:    "default-needs-skip-or-cond",
		Kind:    KindRequires,
		Scopes:  directive.FieldMember,
		Trigger: directive.KeyDefault,
		Keys:    []directive.Key{directive.KeySkip, directive.KeyCond},
		Code:    diag.ResMissingDirective,
		Summary: "default is only used when the field is skipped or its cond fails",
	},
}

var crossRules = []Rule{
	{
		Name:    "enum-discriminant-capacity",
		Kind:    KindCrossMember,
		Scopes:  directive.EnumContainer,
		Keys:    []directive.Key{directive.KeyType, directive.KeyBits, directive.KeyBytes},
		Check:   CheckDiscriminantCapacity,
		Code:    diag.ResCrossMember,
		Summary: "every variant id and id_pat bound fits the discriminant width",
	},
	{
		Name:    "struct-declared-size",
		Kind:    KindCrossMember,
		Scopes:  directive.StructContainer,
		Keys:    []directive.Key{directive.KeyBits, directive.KeyBytes},
		Check:   CheckDeclaredSize,
		Code:    diag.ResCrossMember,
		Summary: "fields of known width fit the declared struct size",
	},
	{
		Name:    "variant-pattern-storage",
		Kind:    KindCrossMember,
		Scopes:  directive.VariantMember,
		Keys:    []directive.Key{directive.KeyIDPat},
		Check:   CheckPatternStorage,
		Code:    diag.ResCrossMember,
		Summary: "a variant matched by id_pat stores the id in its first field",
	},
}

// Table returns the whole rule table in evaluation order: scope rules,
// then per-node rules, then cross-member rules.
func Table() []Rule {
	return slices.Clone(table)
}

// NodeRules returns the exclusive and requires rules that apply to scope, in table order.
func NodeRules(scope directive.Scope) []*Rule {
	return selectRules(scope, func(r *Rule) bool {
		return r.Kind == KindExclusive || r.Kind == KindRequires
	})
}

// CrossRules returns the cross-member rules of a scope, in table order.
func CrossRules(scope directive.Scope) []*Rule {
	return selectRules(scope, func(r *Rule) bool { return r.Kind == KindCrossMember })
}

// ScopeRule returns the scope rule of key k.
func ScopeRule(k directive.Key) *Rule {
	for i := range table {
		if table[i].Kind == KindScope && table[i].Keys[0] == k {
			return &table[i]
		}
	}
	return nil
}

func selectRules(scope directive.Scope, keep func(*Rule) bool) []*Rule {
	var out []*Rule
	for i := range table {
		r := &table[i]
		if keep(r) && r.Applies(scope) {
			out = append(out, r)
		}
	}
	return out
}
