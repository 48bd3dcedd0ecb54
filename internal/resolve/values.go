package resolve

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bitspec/internal/diag"
	"bitspec/internal/directive"
	"bitspec/internal/layout"
	"bitspec/internal/schema"
)

// maxDiscriminantBits is the widest integer type a discriminant can use.
const maxDiscriminantBits = 128

// values holds the parsed directive values of one node. Only fields of
// directives that parsed cleanly are set.
type values struct {
	typ     layout.IntType
	hasType bool
	bits    uint64
	hasBits bool
	bytes   uint64
	hasSize bool   // bytes parsed
	id      uint64 // magnitude when idNeg
	idNeg   bool
	hasID   bool
	idExpr  string
	pat     idPattern
	hasPat  bool
	order   layout.ByteOrder
	skip    bool
	exprs   map[directive.Key]string
}

// idPattern is an id_pat value. Open ends are filled in from the discriminant
// width when the plan is assembled.
type idPattern struct {
	lo, hi         uint64
	openLo, openHi bool
}

var (
	errNoValue    = errors.New("a value is required")
	errEmptyRange = errors.New("range is empty")
)

// parseValues checks every kept directive against its grammar in declaration
// order, then the widths that depend on more than one directive.
func (rs *resolver) parseValues(c *checked) {
	for _, d := range c.kept {
		if err := c.vals.parse(d, c.scope); err != nil {
			rs.malformed(c, d, err)
		}
	}
	if c.scope == directive.EnumContainer {
		rs.checkDiscriminantWidth(c)
	}
}

func (rs *resolver) malformed(c *checked, d schema.Directive, err error) {
	diag.ReportError(rs.rep, diag.ResMalformedValue, d.ValueSpan, c.path,
		fmt.Sprintf("malformed value for '%s': %v", d.Name, err)).
		WithDirectives(d.Name).
		Emit()
}

func (v *values) parse(d schema.Directive, scope directive.Scope) error {
	spec := directive.SpecFor(d.Key)
	raw := strings.TrimSpace(d.Value)
	if spec.Value == directive.ValueNone {
		if d.HasValue && raw != "" && raw != "true" {
			return fmt.Errorf("'%s' is a flag, got %q", d.Name, raw)
		}
		v.skip = v.skip || d.Key == directive.KeySkip
		return nil
	}
	if !d.HasValue || raw == "" {
		return errNoValue
	}

	switch spec.Value {
	case directive.ValueIntType:
		t, ok := layout.LookupIntType(raw)
		if !ok {
			return fmt.Errorf("%q is not an integer type (u8..u128, i8..i128)", raw)
		}
		v.typ, v.hasType = t, true

	case directive.ValueInt:
		n, err := parseUint(raw)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("size must be positive")
		}
		switch d.Key {
		case directive.KeyBits:
			if scope == directive.EnumContainer && n > maxDiscriminantBits {
				return fmt.Errorf("%d bits is wider than %d", n, maxDiscriminantBits)
			}
			v.bits, v.hasBits = n, true
		case directive.KeyBytes:
			if n > math.MaxUint64/8 || (scope == directive.EnumContainer && n*8 > maxDiscriminantBits) {
				return fmt.Errorf("%d bytes is too wide", n)
			}
			v.bytes, v.hasSize = n, true
		}

	case directive.ValueRange:
		p, err := parseRange(raw)
		if err != nil {
			return err
		}
		v.pat, v.hasPat = p, true

	case directive.ValueEndian:
		// всё, кроме big/little, вычисляется сгенерированным кодом
		if e, ok := layout.ParseEndian(raw); ok {
			v.order = layout.ByteOrder{Endian: e}
		} else {
			v.order = layout.ByteOrder{Expr: raw}
		}

	case directive.ValueID:
		if scope == directive.EnumContainer {
			v.idExpr = raw
			return nil
		}
		n, neg, err := parseID(raw)
		if err != nil {
			return err
		}
		v.id, v.idNeg, v.hasID = n, neg, true

	case directive.ValueExpr:
		if v.exprs == nil {
			v.exprs = make(map[directive.Key]string, 4)
		}
		v.exprs[d.Key] = raw
	}
	return nil
}

// checkDiscriminantWidth rejects bits or bytes wider than the declared type.
func (rs *resolver) checkDiscriminantWidth(c *checked) {
	if !c.vals.hasType {
		return
	}
	limit := uint64(c.vals.typ.Bits)
	if c.vals.hasBits && c.vals.bits > limit {
		d, _ := c.find(directive.KeyBits)
		rs.malformed(c, d, fmt.Errorf("%d bits do not fit in %s", c.vals.bits, c.vals.typ.Name))
	}
	if c.vals.hasSize && c.vals.bytes*8 > limit {
		d, _ := c.find(directive.KeyBytes)
		rs.malformed(c, d, fmt.Errorf("%d bytes do not fit in %s", c.vals.bytes, c.vals.typ.Name))
	}
}

// parseID reads a variant id. A leading '-' is allowed; whether the
// discriminant can hold a negative value is a cross-member question.
// It returns the magnitude and the sign; "-0" is plain zero.
func parseID(s string) (uint64, bool, error) {
	s = strings.TrimSpace(s)
	rest, neg := strings.CutPrefix(s, "-")
	if !neg {
		n, err := parseUint(s)
		return n, false, err
	}
	n, err := parseUint(rest)
	if err != nil {
		return 0, false, fmt.Errorf("%q is not an integer", s)
	}
	return n, n != 0, nil
}

// parseUint reads an unsigned literal: decimal, 0x, 0o or 0b, with optional
// '_' separators. A leading zero does not switch to octal, separators
// included ("0_10" is ten).
func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errNoValue
	}
	if s[0] == '-' || s[0] == '+' {
		return 0, fmt.Errorf("%q is not an unsigned integer", s)
	}
	base := 0
	if digits := strings.ReplaceAll(s, "_", ""); len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' {
		base = 10
		s = digits
	}
	n, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%q does not fit in 64 bits", s)
		}
		return 0, fmt.Errorf("%q is not an unsigned integer", s)
	}
	return n, nil
}

// parseRange accepts lo..=hi, lo..hi, lo.., ..=hi, ..hi and _.
func parseRange(s string) (idPattern, error) {
	s = strings.TrimSpace(s)
	if s == "_" || s == ".." {
		return idPattern{openLo: true, openHi: true}, nil
	}
	inclusive := true
	idx := strings.Index(s, "..=")
	sepLen := 3
	if idx < 0 {
		idx = strings.Index(s, "..")
		sepLen = 2
		inclusive = false
	}
	if idx < 0 {
		return idPattern{}, fmt.Errorf("%q is not a range (lo..=hi)", s)
	}
	loText := strings.TrimSpace(s[:idx])
	hiText := strings.TrimSpace(s[idx+sepLen:])

	var p idPattern
	var err error
	if loText == "" {
		p.openLo = true
	} else if p.lo, err = parseUint(loText); err != nil {
		return idPattern{}, err
	}
	switch {
	case hiText == "" && inclusive:
		return idPattern{}, fmt.Errorf("%q has no upper bound", s)
	case hiText == "":
		p.openHi = true
		return p, nil
	}
	if p.hi, err = parseUint(hiText); err != nil {
		return idPattern{}, err
	}
	if !inclusive {
		if p.hi == 0 || p.hi <= p.lo {
			return idPattern{}, errEmptyRange
		}
		p.hi--
	}
	if p.lo > p.hi {
		return idPattern{}, fmt.Errorf("lower bound %d is above upper bound %d", p.lo, p.hi)
	}
	return p, nil
}

// bounds closes open ends against the largest discriminant value.
func (p idPattern) bounds(maxValue uint64) (lo, hi uint64) {
	lo, hi = p.lo, p.hi
	if p.openLo {
		lo = 0
	}
	if p.openHi {
		hi = maxValue
	}
	return lo, hi
}
