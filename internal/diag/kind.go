package diag

// Kind is the user-facing class of a diagnostic. Every diagnostic is an error;
// there are no warnings.
type Kind uint8

const (
	KindUnknown Kind = iota
	// MissingRequiredDirective: a scope mandates a directive and none of the
	// accepted alternatives is present.
	MissingRequiredDirective
	// ConflictingDirectives: mutually exclusive (or repeated) directives on one node.
	ConflictingDirectives
	// DirectiveIllegalInScope: the node's scope does not accept the directive.
	DirectiveIllegalInScope
	// MalformedDirectiveValue: the value fails its grammar.
	MalformedDirectiveValue
	// CrossMemberIncompatibility: container sizing disagrees with member choices.
	CrossMemberIncompatibility
)

func (k Kind) String() string {
	switch k {
	case MissingRequiredDirective:
		return "MissingRequiredDirective"
	case ConflictingDirectives:
		return "ConflictingDirectives"
	case DirectiveIllegalInScope:
		return "DirectiveIllegalInScope"
	case MalformedDirectiveValue:
		return "MalformedDirectiveValue"
	case CrossMemberIncompatibility:
		return "CrossMemberIncompatibility"
	}
	return "Unknown"
}
