package directive

import "strings"

// Key identifies a recognised directive.
type Key uint8

const (
	KeyNone Key = iota
	KeyType
	KeyID
	KeyIDPat
	KeyBits
	KeyBytes
	KeyEndian
	KeyCount
	KeyUpdate
	KeySkip
	KeyCond
	KeyDefault
	KeyMap
	KeyReader
	KeyWriter
	KeyCtx
	KeyCtxDefault

	keyLimit
)

func (k Key) String() string {
	if k == KeyNone || k >= keyLimit {
		return "<none>"
	}
	return catalog[k].Name
}

// Set is a bit set of keys present on one node.
type Set uint32

func NewSet(keys ...Key) Set {
	var s Set
	for _, k := range keys {
		s = s.With(k)
	}
	return s
}

func (s Set) Has(k Key) bool {
	return k != KeyNone && s&(1<<k) != 0
}

func (s Set) With(k Key) Set {
	if k == KeyNone || k >= keyLimit {
		return s
	}
	return s | 1<<k
}

func (s Set) Without(k Key) Set {
	return s &^ (1 << k)
}

// Intersect returns the keys of ks present in s, in the order of ks.
func (s Set) Intersect(ks []Key) []Key {
	var out []Key
	for _, k := range ks {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Keys returns the members in declaration order of the Key enumeration.
func (s Set) Keys() []Key {
	var out []Key
	for k := KeyNone + 1; k < keyLimit; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s Set) String() string {
	keys := s.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Names renders keys as their directive names.
func Names(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
