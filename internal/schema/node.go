package schema

import (
	"bitspec/internal/directive"
	"bitspec/internal/source"
)

// NodeKind is the declaration kind of a schema node.
type NodeKind uint8

const (
	KindInvalid NodeKind = iota
	KindStruct
	KindEnum
	KindVariant
	KindField
)

func (k NodeKind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindVariant:
		return "variant"
	case KindField:
		return "field"
	}
	return "invalid"
}

// Directive is one annotation on a node. Value is opaque until the resolver
// parses it against the directive's grammar.
type Directive struct {
	Key       directive.Key
	Name      string
	Value     string
	HasValue  bool
	Span      source.Span // directive name
	ValueSpan source.Span // value, or Span when there is none
}

// Node is a container (struct, enum) or member (variant, field).
// Nodes are built once by a loader and never mutated afterwards.
type Node struct {
	Kind       NodeKind
	Name       string
	Type       string // declared host type, fields only
	Span       source.Span
	Directives []Directive
	Children   []*Node
}

// Schema is the root of one schema file: its top-level containers in declaration order.
type Schema struct {
	File       source.FileID
	Path       string
	Containers []*Node
}

// Present returns the set of keys carried by n, duplicates collapsed.
func (n *Node) Present() directive.Set {
	var s directive.Set
	for i := range n.Directives {
		s = s.With(n.Directives[i].Key)
	}
	return s
}

// Find returns the first directive with key k.
func (n *Node) Find(k directive.Key) (Directive, bool) {
	for i := range n.Directives {
		if n.Directives[i].Key == k {
			return n.Directives[i], true
		}
	}
	return Directive{}, false
}

// Path joins a container and member name the way diagnostics address nodes.
func Path(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "::" + name
}
