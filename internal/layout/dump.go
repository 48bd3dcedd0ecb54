package layout

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DumpOptions controls the text rendering of a plan.
type DumpOptions struct {
	Color bool
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	memberStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Dump writes a stable, line-oriented rendering of p. Without Color the
// output is plain text and suitable for golden tests.
func Dump(w io.Writer, p *Plan, opts DumpOptions) error {
	d := dumper{opts: opts}
	if p != nil {
		d.line(0, d.heading("target "+p.Target.Name))
	}
	for _, c := range p.Containers() {
		switch {
		case c.Enum != nil:
			d.enum(c.Enum)
		case c.Struct != nil:
			d.structPlan(c.Struct)
		}
	}
	_, err := io.WriteString(w, d.b.String())
	return err
}

// DumpString is Dump into a string, without colour.
func DumpString(p *Plan) string {
	var b strings.Builder
	_ = Dump(&b, p, DumpOptions{})
	return b.String()
}

type dumper struct {
	b    strings.Builder
	opts DumpOptions
}

func (d *dumper) line(indent int, s string) {
	d.b.WriteString(strings.Repeat("  ", indent))
	d.b.WriteString(s)
	d.b.WriteByte('\n')
}

func (d *dumper) heading(s string) string {
	if !d.opts.Color {
		return s
	}
	return headingStyle.Render(s)
}

func (d *dumper) member(s string) string {
	if !d.opts.Color {
		return s
	}
	return memberStyle.Render(s)
}

func (d *dumper) enum(e *EnumPlan) {
	disc := e.Discriminant
	var desc string
	switch {
	case disc.External != "" && disc.Bits == 0:
		desc = fmt.Sprintf("id %q (not read)", disc.External)
	case disc.External != "":
		desc = fmt.Sprintf("id %q (%d bits, %s, %s)", disc.External, disc.Bits, disc.Source, ByteOrder{disc.Endian, disc.EndianExpr})
	default:
		desc = fmt.Sprintf("%s (%d bits, %s, %s)", disc.Type.Name, disc.Bits, disc.Source, ByteOrder{disc.Endian, disc.EndianExpr})
	}
	d.line(0, d.heading("enum "+e.Name)+": "+desc+containerExtras(e.Ctx, e.CtxDefault))
	for i := range e.Variants {
		v := &e.Variants[i]
		s := d.member(v.Name) + ": " + v.Predicate.String()
		if v.CatchAll {
			s += " (catch-all)"
		}
		if v.Reader != "" {
			s += " reader=" + v.Reader
		}
		if v.Writer != "" {
			s += " writer=" + v.Writer
		}
		d.line(1, s)
		d.fields(2, v.Fields)
	}
}

func (d *dumper) structPlan(s *StructPlan) {
	size := "size not declared"
	if s.DeclaredBits != 0 {
		size = fmt.Sprintf("declared %d bits from %s", s.DeclaredBits, s.SizeSource)
	}
	known := fmt.Sprintf("known %d bits", s.KnownBits)
	if !s.Complete {
		known = fmt.Sprintf("at least %d bits", s.KnownBits)
	}
	order := ByteOrder{s.Endian, s.EndianExpr}
	d.line(0, d.heading("struct "+s.Name)+": "+size+", "+known+", "+order.String()+containerExtras(s.Ctx, s.CtxDefault))
	d.fields(1, s.Fields)
}

func (d *dumper) fields(indent int, fields []FieldPlan) {
	for i := range fields {
		f := &fields[i]
		var b strings.Builder
		b.WriteString(d.member(f.Name))
		b.WriteString(": ")
		b.WriteString(f.Type)
		if f.Bits != 0 {
			fmt.Fprintf(&b, ", %d bits", f.Bits)
		} else {
			b.WriteString(", delegated")
		}
		if f.OffsetKnown {
			fmt.Fprintf(&b, " @%d", f.Offset)
		} else {
			b.WriteString(" @?")
		}
		b.WriteString(", ")
		b.WriteString(ByteOrder{f.Endian, f.EndianExpr}.String())
		if f.Skip {
			b.WriteString(" skip")
		}
		for _, kv := range [][2]string{
			{"cond", f.Cond}, {"default", f.Default}, {"count", f.Count}, {"update", f.Update},
			{"map", f.Map}, {"reader", f.Reader}, {"writer", f.Writer}, {"ctx", f.Ctx},
			{"ctx_default", f.CtxDefault},
		} {
			if kv[1] != "" {
				fmt.Fprintf(&b, " %s=%s", kv[0], kv[1])
			}
		}
		d.line(indent, b.String())
	}
}

func containerExtras(ctx, ctxDefault string) string {
	var s string
	if ctx != "" {
		s += " ctx=" + ctx
	}
	if ctxDefault != "" {
		s += " ctx_default=" + ctxDefault
	}
	return s
}
