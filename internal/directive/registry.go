package directive

import (
	"strings"
)

// ValueKind is the grammar a directive value must satisfy.
type ValueKind uint8

const (
	ValueNone    ValueKind = iota // flag, value ignored
	ValueInt                      // unsigned integer literal
	ValueIntType                  // u8..u128, i8..i128
	ValueRange                    // lo..=hi or lo..hi
	ValueEndian                   // big | little
	ValueExpr                     // opaque host expression, must be non-empty
	ValueID                       // enum: expr; variant: integer literal
)

func (v ValueKind) String() string {
	switch v {
	case ValueNone:
		return "flag"
	case ValueInt:
		return "integer"
	case ValueIntType:
		return "integer type"
	case ValueRange:
		return "range"
	case ValueEndian:
		return "endian"
	case ValueExpr:
		return "expression"
	case ValueID:
		return "id"
	}
	return "unknown"
}

// Spec describes one directive: where it may appear and what its value looks like.
type Spec struct {
	Key        Key
	Name       string
	Scopes     Scope
	Value      ValueKind
	Repeatable bool
	Summary    string
}

// Allows reports whether the directive is legal in scope.
func (spec Spec) Allows(scope Scope) bool {
	return spec.Scopes.Has(scope)
}

// catalog is indexed by Key. Read-only after init, safe to share between goroutines.
var catalog = [keyLimit]Spec{
	KeyType:       {Key: KeyType, Name: "type", Scopes: EnumContainer, Value: ValueIntType, Summary: "type of the variant id"},
	KeyID:         {Key: KeyID, Name: "id", Scopes: EnumContainer | VariantMember, Value: ValueID, Summary: "enum id expression or variant id value"},
	KeyIDPat:      {Key: KeyIDPat, Name: "id_pat", Scopes: VariantMember, Value: ValueRange, Summary: "variant id match pattern"},
	KeyBits:       {Key: KeyBits, Name: "bits", Scopes: AnyContainer, Value: ValueInt, Summary: "bit size of the id or container"},
	KeyBytes:      {Key: KeyBytes, Name: "bytes", Scopes: AnyContainer, Value: ValueInt, Summary: "byte size of the id or container"},
	KeyEndian:     {Key: KeyEndian, Name: "endian", Scopes: AnyContainer | FieldMember, Value: ValueEndian, Summary: "byte order"},
	KeyCount:      {Key: KeyCount, Name: "count", Scopes: FieldMember, Value: ValueExpr, Summary: "field holding the element count"},
	KeyUpdate:     {Key: KeyUpdate, Name: "update", Scopes: FieldMember, Value: ValueExpr, Summary: "expression applied on update"},
	KeySkip:       {Key: KeySkip, Name: "skip", Scopes: FieldMember, Value: ValueNone, Summary: "skip reading/writing"},
	KeyCond:       {Key: KeyCond, Name: "cond", Scopes: FieldMember, Value: ValueExpr, Summary: "condition to read the field"},
	KeyDefault:    {Key: KeyDefault, Name: "default", Scopes: FieldMember, Value: ValueExpr, Summary: "value used when skipped"},
	KeyMap:        {Key: KeyMap, Name: "map", Scopes: FieldMember, Value: ValueExpr, Summary: "function applied after reading"},
	KeyReader:     {Key: KeyReader, Name: "reader", Scopes: AnyMember, Value: ValueExpr, Summary: "custom reader"},
	KeyWriter:     {Key: KeyWriter, Name: "writer", Scopes: AnyMember, Value: ValueExpr, Summary: "custom writer"},
	KeyCtx:        {Key: KeyCtx, Name: "ctx", Scopes: AnyContainer | FieldMember, Value: ValueExpr, Summary: "context parameters or arguments"},
	KeyCtxDefault: {Key: KeyCtxDefault, Name: "ctx_default", Scopes: AnyContainer | FieldMember, Value: ValueExpr, Summary: "default context values"},
}

var byName = func() map[string]Key {
	m := make(map[string]Key, len(catalog))
	for k := KeyNone + 1; k < keyLimit; k++ {
		m[catalog[k].Name] = k
	}
	return m
}()

// Lookup returns the spec for a directive name. Names are case-sensitive.
func Lookup(name string) (Spec, bool) {
	k, ok := byName[strings.TrimSpace(name)]
	if !ok {
		return Spec{}, false
	}
	return catalog[k], true
}

// SpecFor returns the spec of k. It panics on KeyNone or an out-of-range key.
func SpecFor(k Key) Spec {
	if k == KeyNone || k >= keyLimit {
		panic("directive: no spec for key " + k.String())
	}
	return catalog[k]
}

// Specs returns every spec in Key order.
func Specs() []Spec {
	out := make([]Spec, 0, len(catalog)-1)
	for k := KeyNone + 1; k < keyLimit; k++ {
		out = append(out, catalog[k])
	}
	return out
}

// AllKeys returns every key in declaration order.
func AllKeys() []Key {
	out := make([]Key, 0, keyLimit-1)
	for k := KeyNone + 1; k < keyLimit; k++ {
		out = append(out, k)
	}
	return out
}
