package rules

import (
	"fmt"
	"math/bits"
	"strings"

	"bitspec/internal/directive"
	"bitspec/internal/source"
)

// Offender is a member named by a cross-member violation.
type Offender struct {
	Member string
	Span   source.Span
	Detail string
}

// Violation is the single failure of one rule on one node.
type Violation struct {
	Rule      *Rule
	Keys      []directive.Key // offending or missing keys, in rule order
	Offenders []Offender
	Message   string
}

// Eval checks a scope, exclusive or requires rule against the keys present on
// one node. Cross-member rules always pass here; see EvalCross.
func (r *Rule) Eval(scope directive.Scope, present directive.Set) (Violation, bool) {
	if !r.Applies(scope) {
		return Violation{}, false
	}
	switch r.Kind {
	case KindScope:
		k := r.Keys[0]
		if !present.Has(k) || r.Scopes.Has(scope) {
			return Violation{}, false
		}
		return Violation{
			Rule:    r,
			Keys:    []directive.Key{k},
			Message: fmt.Sprintf("directive '%s' is not allowed on a %s (allowed on %s)", k, scope, r.Scopes),
		}, true

	case KindExclusive:
		hits := present.Intersect(r.Keys)
		if len(hits) < 2 {
			return Violation{}, false
		}
		return Violation{
			Rule:    r,
			Keys:    hits,
			Message: "conflicting directives " + quoteList(hits, "and"),
		}, true

	case KindRequires:
		if r.Trigger != directive.KeyNone && !present.Has(r.Trigger) {
			return Violation{}, false
		}
		if len(present.Intersect(r.Keys)) > 0 {
			return Violation{}, false
		}
		v := Violation{Rule: r, Keys: r.Keys}
		if r.Trigger != directive.KeyNone {
			v.Message = fmt.Sprintf("directive '%s' requires %s", r.Trigger, quoteList(r.Keys, "or"))
		} else {
			v.Message = fmt.Sprintf("%s requires %s", scope, quoteList(r.Keys, "or"))
		}
		return v, true
	}
	return Violation{}, false
}

// Member is one member's contribution to a cross-member check: the largest
// discriminant value a variant matches, or the width in bits of a field.
// Negative marks a variant id written with a minus sign; Value is then its
// magnitude. Type names a field's primitive integer type, if it has one.
type Member struct {
	Name     string
	Span     source.Span
	Value    uint64
	Negative bool
	Known    bool
	Type     string
}

// CrossInput is what a node offers to its cross-member rules.
// Capacity is the declared width in bits; zero means nothing was declared.
// Signed and Type describe the discriminant when it was set by 'type'.
type CrossInput struct {
	Capacity uint64
	Source   directive.Key
	Signed   bool
	Type     string
	Members  []Member
}

// EvalCross checks a cross-member rule once all members of the node passed.
// Every offending member becomes a note of the one violation.
func (r *Rule) EvalCross(in CrossInput) (Violation, bool) {
	if r.Kind != KindCrossMember {
		return Violation{}, false
	}
	var offenders []Offender
	var msg string
	switch r.Check {
	case CheckDiscriminantCapacity:
		if in.Capacity == 0 {
			return Violation{}, false
		}
		for _, m := range in.Members {
			if !m.Known || fits(m, in.Capacity, in.Signed) {
				continue
			}
			offenders = append(offenders, Offender{
				Member: m.Name,
				Span:   m.Span,
				Detail: overflow(m, in.Signed),
			})
		}
		kind := ""
		if in.Signed {
			kind = "signed "
		}
		msg = fmt.Sprintf("variant ids do not fit the %d-bit %sdiscriminant set by '%s'", in.Capacity, kind, in.Source)

	case CheckDeclaredSize:
		if in.Capacity == 0 {
			return Violation{}, false
		}
		var used uint64
		for _, m := range in.Members {
			if !m.Known {
				continue
			}
			used += m.Value
			if used > in.Capacity {
				offenders = append(offenders, Offender{
					Member: m.Name,
					Span:   m.Span,
					Detail: fmt.Sprintf("ends at bit %d", used),
				})
			}
		}
		msg = fmt.Sprintf("fields need %d bits but '%s' declares %d", used, in.Source, in.Capacity)

	case CheckPatternStorage:
		// the matched id is written back from the first field
		if len(in.Members) == 0 {
			return Violation{
				Rule:    r,
				Keys:    []directive.Key{in.Source},
				Message: fmt.Sprintf("variant matched by '%s' has no field to store its id", in.Source),
			}, true
		}
		first := in.Members[0]
		if in.Type == "" || first.Type == "" || first.Type == in.Type {
			return Violation{}, false
		}
		offenders = append(offenders, Offender{
			Member: first.Name,
			Span:   first.Span,
			Detail: fmt.Sprintf("is %s, discriminant is %s", first.Type, in.Type),
		})
		msg = fmt.Sprintf("first field of a variant matched by '%s' must have the discriminant type", in.Source)

	default:
		return Violation{}, false
	}
	if len(offenders) == 0 {
		return Violation{}, false
	}
	return Violation{
		Rule:      r,
		Keys:      []directive.Key{in.Source},
		Offenders: offenders,
		Message:   msg,
	}, true
}

// fits reports whether m's value is representable in width bits. Signed
// widths hold -2^(w-1) through 2^(w-1)-1; unsigned ones hold no negatives.
func fits(m Member, width uint64, signed bool) bool {
	if !signed {
		return !m.Negative && (width >= 64 || m.Value < 1<<width)
	}
	if width > 64 {
		return true
	}
	limit := uint64(1) << (width - 1)
	if m.Negative {
		return m.Value <= limit
	}
	return m.Value < limit
}

func overflow(m Member, signed bool) string {
	switch {
	case m.Negative && !signed:
		return fmt.Sprintf("negative value -%d needs a signed type", m.Value)
	case m.Negative:
		return fmt.Sprintf("value -%d needs %d bits", m.Value, bits.Len64(m.Value-1)+1)
	case signed:
		return fmt.Sprintf("value %d needs %d bits", m.Value, bits.Len64(m.Value)+1)
	}
	return fmt.Sprintf("value %d needs %d bits", m.Value, bits.Len64(m.Value))
}

// quoteList renders keys as 'a', 'b' and 'c'.
func quoteList(keys []directive.Key, conj string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = "'" + k.String() + "'"
	}
	if len(quoted) <= 1 {
		return strings.Join(quoted, "")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " " + conj + " " + quoted[len(quoted)-1]
}
