package rules

import (
	"bitspec/internal/diag"
	"bitspec/internal/directive"
)

// Kind tags a rule with the check it performs.
type Kind uint8

const (
	KindScope       Kind = iota + 1 // directive illegal outside Rule.Scopes
	KindExclusive                   // at most one of Rule.Keys
	KindRequires                    // Trigger (or the node itself) needs one of Rule.Keys
	KindCrossMember                 // container directive vs member choices
)

func (k Kind) String() string {
	switch k {
	case KindScope:
		return "scope"
	case KindExclusive:
		return "exclusive"
	case KindRequires:
		return "requires"
	case KindCrossMember:
		return "cross-member"
	}
	return "unknown"
}

// Check selects the cross-member computation of a KindCrossMember rule.
type Check uint8

const (
	CheckNone Check = iota
	CheckDiscriminantCapacity
	CheckDeclaredSize
	CheckPatternStorage
)

// Rule is one row of the rule table. Rules are plain data; Eval and
// EvalCross interpret them.
type Rule struct {
	Name    string
	Kind    Kind
	Scopes  directive.Scope
	Keys    []directive.Key
	Trigger directive.Key
	Check   Check
	Code    diag.Code
	Summary string
}

// Applies reports whether the rule is evaluated on nodes of scope.
// Scope rules apply everywhere; their Scopes field lists where the key is legal.
func (r *Rule) Applies(scope directive.Scope) bool {
	if r.Kind == KindScope {
		return true
	}
	return r.Scopes.Has(scope)
}
