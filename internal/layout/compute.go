package layout

import "strings"

// IntType is a primitive integer type usable as a discriminant.
type IntType struct {
	Name   string
	Bits   uint32
	Signed bool
}

var primitives = map[string]IntType{
	"u8":   {Name: "u8", Bits: 8},
	"u16":  {Name: "u16", Bits: 16},
	"u32":  {Name: "u32", Bits: 32},
	"u64":  {Name: "u64", Bits: 64},
	"u128": {Name: "u128", Bits: 128},
	"i8":   {Name: "i8", Bits: 8, Signed: true},
	"i16":  {Name: "i16", Bits: 16, Signed: true},
	"i32":  {Name: "i32", Bits: 32, Signed: true},
	"i64":  {Name: "i64", Bits: 64, Signed: true},
	"i128": {Name: "i128", Bits: 128, Signed: true},
}

// LookupIntType resolves u8..u128 and i8..i128.
func LookupIntType(name string) (IntType, bool) {
	t, ok := primitives[strings.TrimSpace(name)]
	return t, ok
}

// FieldWidth returns the encoded width of a declared field type in bits.
// Types outside the primitive table are delegated to their own codec and
// report false.
func FieldWidth(typeName string) (uint32, bool) {
	name := strings.TrimSpace(typeName)
	if name == "bool" {
		return 8, true
	}
	if t, ok := primitives[name]; ok {
		return t.Bits, true
	}
	return 0, false
}

// MaxValue is the largest unsigned value that fits in width bits, saturated at 64 bits.
func MaxValue(width uint32) uint64 {
	if width == 0 || width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

// MaxSigned is the largest non-negative value of a signed width-bit
// integer, saturated at 64 bits.
func MaxSigned(width uint32) uint64 {
	if width == 0 || width > 64 {
		return ^uint64(0)
	}
	return 1<<(width-1) - 1
}

// TwosComplement encodes -magnitude as a width-bit pattern.
func TwosComplement(magnitude uint64, width uint32) uint64 {
	return -magnitude & MaxValue(width)
}

// placeFields assigns bit offsets while every earlier width is known.
// It returns the total width and whether all widths were known.
func placeFields(fields []FieldPlan) (uint64, bool) {
	var off uint64
	known := true
	for i := range fields {
		f := &fields[i]
		f.OffsetKnown = known
		if known {
			f.Offset = off
		}
		if f.Bits == 0 {
			known = false
			continue
		}
		off += uint64(f.Bits)
	}
	return off, known
}
