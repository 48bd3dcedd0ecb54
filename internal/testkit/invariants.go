package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"bitspec/internal/diag"
	"bitspec/internal/layout"
	"bitspec/internal/source"
)

// CheckPlanInvariants runs the structural invariants every resolved plan
// must satisfy:
// 1) every span points into sf and lies within its content
// 2) every byte order is a constant or an expression, never neither
// 3) enum predicates are non-empty and fit the discriminant width
// 4) field offsets are the running sum of earlier widths, up to the first unknown one
// 5) a complete struct with a declared size fits inside it
// 6) Lookup finds every container by name
func CheckPlanInvariants(p *layout.Plan, sf *source.File) error {
	if p == nil || sf == nil {
		return fmt.Errorf("nil plan or file")
	}
	if p.Target.Endian == layout.EndianUnset {
		return fmt.Errorf("plan target has no byte order")
	}
	end, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	inFile := func(what string, sp source.Span) error {
		if sp.File != sf.ID {
			return fmt.Errorf("%s span points to file %d, want %d", what, sp.File, sf.ID)
		}
		if sp.Start > sp.End || sp.End > end {
			return fmt.Errorf("%s span %v outside content of %d bytes", what, sp, end)
		}
		return nil
	}

	for _, c := range p.Containers() {
		got, ok := p.Lookup(c.Name())
		if !ok || got.Name() != c.Name() {
			return fmt.Errorf("container %q not found by Lookup", c.Name())
		}
		switch {
		case c.Enum != nil:
			if err := checkEnum(c.Enum, inFile); err != nil {
				return err
			}
		case c.Struct != nil:
			if err := checkStruct(c.Struct, inFile); err != nil {
				return err
			}
		default:
			return fmt.Errorf("empty container plan")
		}
	}
	return nil
}

func checkEnum(e *layout.EnumPlan, inFile func(string, source.Span) error) error {
	if err := inFile("enum "+e.Name, e.Span); err != nil {
		return err
	}
	d := e.Discriminant
	if err := checkOrder("enum "+e.Name+": discriminant", d.Endian, d.EndianExpr); err != nil {
		return err
	}
	if d.External == "" && d.Bits == 0 {
		return fmt.Errorf("enum %s: discriminant read from the stream has zero width", e.Name)
	}
	if d.Type.Bits != 0 && d.Bits > d.Type.Bits {
		return fmt.Errorf("enum %s: %d bits wider than %s", e.Name, d.Bits, d.Type.Name)
	}
	maxValue := layout.MaxValue(d.Bits)
	for i := range e.Variants {
		v := &e.Variants[i]
		what := e.Name + "::" + v.Name
		if err := inFile(what, v.Span); err != nil {
			return err
		}
		pred := v.Predicate
		if pred.Kind == 0 || pred.Lo > pred.Hi {
			return fmt.Errorf("%s: invalid predicate %s", what, pred)
		}
		if pred.Kind == layout.PredExact && pred.Lo != pred.Hi {
			return fmt.Errorf("%s: exact predicate with two bounds", what)
		}
		if pred.Hi > maxValue {
			return fmt.Errorf("%s: predicate %s exceeds %d-bit discriminant", what, pred, d.Bits)
		}
		if v.CatchAll && (pred.Lo != 0 || pred.Hi != maxValue) {
			return fmt.Errorf("%s: catch-all predicate %s does not cover 0..=%d", what, pred, maxValue)
		}
		if _, _, err := checkFields(what, v.Fields, inFile); err != nil {
			return err
		}
	}
	return nil
}

func checkStruct(s *layout.StructPlan, inFile func(string, source.Span) error) error {
	if err := inFile("struct "+s.Name, s.Span); err != nil {
		return err
	}
	if err := checkOrder("struct "+s.Name, s.Endian, s.EndianExpr); err != nil {
		return err
	}
	known, complete, err := checkFields(s.Name, s.Fields, inFile)
	if err != nil {
		return err
	}
	if known != s.KnownBits || complete != s.Complete {
		return fmt.Errorf("struct %s: KnownBits=%d Complete=%v, fields say %d %v", s.Name, s.KnownBits, s.Complete, known, complete)
	}
	if s.DeclaredBits > 0 && s.Complete && s.KnownBits > s.DeclaredBits {
		return fmt.Errorf("struct %s: fields need %d bits, %d declared", s.Name, s.KnownBits, s.DeclaredBits)
	}
	return nil
}

// checkFields verifies offsets and returns the summed known width and
// whether every width was known.
func checkFields(owner string, fields []layout.FieldPlan, inFile func(string, source.Span) error) (uint64, bool, error) {
	var off uint64
	placed := true
	for i := range fields {
		f := &fields[i]
		what := owner + "." + f.Name
		if err := inFile(what, f.Span); err != nil {
			return 0, false, err
		}
		if err := checkOrder(what, f.Endian, f.EndianExpr); err != nil {
			return 0, false, err
		}
		if f.OffsetKnown != placed {
			return 0, false, fmt.Errorf("%s: OffsetKnown=%v, want %v", what, f.OffsetKnown, placed)
		}
		if placed && f.Offset != off {
			return 0, false, fmt.Errorf("%s: offset %d, want %d", what, f.Offset, off)
		}
		if f.Bits == 0 {
			placed = false
			continue
		}
		off += uint64(f.Bits)
	}
	return off, placed, nil
}

// CheckDiagnosticInvariants verifies that every diagnostic in bag is well
// formed: kind matches code, the node path is set, spans lie within sf.
func CheckDiagnosticInvariants(bag *diag.Bag, sf *source.File) error {
	if sf == nil {
		return fmt.Errorf("nil file")
	}
	end, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	for i, d := range bag.Items() {
		if d.Kind != d.Code.Kind() {
			return fmt.Errorf("diagnostic %d: kind %v does not match code %s", i, d.Kind, d.Code.ID())
		}
		if d.Node == "" {
			return fmt.Errorf("diagnostic %d (%s): empty node path", i, d.Code.ID())
		}
		spans := []source.Span{d.Primary}
		for _, n := range d.Notes {
			spans = append(spans, n.Span)
		}
		for _, sp := range spans {
			if sp.File != sf.ID || sp.Start > sp.End || sp.End > end {
				return fmt.Errorf("diagnostic %d (%s): span %v outside file", i, d.Code.ID(), sp)
			}
		}
	}
	return nil
}

// checkOrder wants exactly one of a constant byte order and an expression.
func checkOrder(what string, e layout.Endian, expr string) error {
	switch {
	case e == layout.EndianUnset && expr == "":
		return fmt.Errorf("%s: no byte order", what)
	case e != layout.EndianUnset && expr != "":
		return fmt.Errorf("%s: byte order is both %s and %q", what, e, expr)
	}
	return nil
}
