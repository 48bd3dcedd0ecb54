package layout

import "strings"

// Endian is a byte order. The zero value means "not set here".
type Endian uint8

const (
	EndianUnset Endian = iota
	EndianLittle
	EndianBig
)

func (e Endian) String() string {
	switch e {
	case EndianLittle:
		return "little"
	case EndianBig:
		return "big"
	}
	return "unset"
}

// ParseEndian accepts "big" and "little". Anything else in an endian
// directive is an expression; see ByteOrder.
func ParseEndian(s string) (Endian, bool) {
	switch strings.TrimSpace(s) {
	case "little":
		return EndianLittle, true
	case "big":
		return EndianBig, true
	}
	return EndianUnset, false
}

// Or returns e, or fallback when e is unset.
func (e Endian) Or(fallback Endian) Endian {
	if e == EndianUnset {
		return fallback
	}
	return e
}

// ByteOrder is either a constant Endian or an expression the generated
// codec evaluates. At most one of the two is set.
type ByteOrder struct {
	Endian Endian
	Expr   string
}

// IsSet reports whether either form is present.
func (o ByteOrder) IsSet() bool {
	return o.Endian != EndianUnset || o.Expr != ""
}

// Or returns o, or fallback when o is not set.
func (o ByteOrder) Or(fallback ByteOrder) ByteOrder {
	if o.IsSet() {
		return o
	}
	return fallback
}

func (o ByteOrder) String() string {
	if o.Expr != "" {
		return "endian=" + o.Expr
	}
	return o.Endian.String()
}

// Target describes the machine the generated codec is built for.
// Only the default byte order matters to plans.
type Target struct {
	Name   string
	Endian Endian
}

// DefaultTarget is little-endian, like most hosts.
func DefaultTarget() Target {
	return Target{Name: "little-endian", Endian: EndianLittle}
}

// TargetFor names a target by its byte order.
func TargetFor(e Endian) Target {
	if e == EndianUnset {
		return DefaultTarget()
	}
	return Target{Name: e.String() + "-endian", Endian: e}
}
