package schema

import (
	"fmt"

	"bitspec/internal/directive"
)

// Classify derives the scope of n from its kind and its parent's kind.
// parent is nil for top-level containers. Nesting the loader can never produce
// is an internal invariant violation and panics.
func Classify(n, parent *Node) directive.Scope {
	if n == nil {
		panic("schema: classify nil node")
	}
	var parentKind NodeKind
	if parent != nil {
		parentKind = parent.Kind
	}
	switch {
	case n.Kind == KindEnum && parent == nil:
		return directive.EnumContainer
	case n.Kind == KindStruct && parent == nil:
		return directive.StructContainer
	case n.Kind == KindVariant && parentKind == KindEnum:
		return directive.VariantMember
	case n.Kind == KindField && (parentKind == KindStruct || parentKind == KindVariant):
		return directive.FieldMember
	}
	panic(fmt.Sprintf("schema: cannot classify %s %q under %s", n.Kind, n.Name, parentKind))
}
