package directive

import "strings"

// Scope is the structural class of a schema node. Scopes are bits so a
// directive can list every scope that accepts it in one mask.
type Scope uint8

const (
	ScopeNone     Scope = 0
	EnumContainer Scope = 1 << (iota - 1)
	VariantMember
	StructContainer
	FieldMember
)

// AnyContainer and AnyMember are convenience masks.
const (
	AnyContainer = EnumContainer | StructContainer
	AnyMember    = VariantMember | FieldMember
)

// Has reports whether every bit of s is in mask.
func (mask Scope) Has(s Scope) bool {
	return s != ScopeNone && mask&s == s
}

// IsContainer reports whether s is a container scope.
func (s Scope) IsContainer() bool {
	return s == EnumContainer || s == StructContainer
}

func (s Scope) String() string {
	switch s {
	case ScopeNone:
		return "none"
	case EnumContainer:
		return "enum"
	case VariantMember:
		return "variant"
	case StructContainer:
		return "struct"
	case FieldMember:
		return "field"
	}
	// маска из нескольких областей
	parts := make([]string, 0, 4)
	for _, single := range []Scope{EnumContainer, VariantMember, StructContainer, FieldMember} {
		if s&single != 0 {
			parts = append(parts, single.String())
		}
	}
	return strings.Join(parts, "|")
}
