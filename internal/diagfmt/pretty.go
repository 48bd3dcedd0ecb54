package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"bitspec/internal/diag"
	"bitspec/internal/source"
)

type palette struct {
	err, note, code, msg, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		note:   color.New(color.FgCyan, color.Bold),
		code:   color.New(color.FgYellow),
		msg:    color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.note, p.code, p.msg, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty форматирует диагностики в человекочитаемый вид, в порядке Bag:
//
//	<path>:<line>:<col>: ERROR <CODE>: <Message> [node]
//	   5 |       type: u8
//	     |       ^~~~
//	  note: <path>:<line>:<col>: <Msg>
//
// Цвет включается опцией.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	items := bag.Items()
	n := limit(len(items), opts.Max)
	for i := 0; i < n; i++ {
		d := &items[i]
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, pal)
	}
	if n < len(items) {
		fmt.Fprintf(w, "\n... %d more diagnostic(s) not shown\n", len(items)-n)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	file := fs.Get(d.Primary.File)
	node := ""
	if d.Node != "" {
		node = " [" + d.Node + "]"
	}
	if file == nil {
		fmt.Fprintf(w, "%s %s: %s%s\n", pal.err.Sprint("ERROR"), pal.code.Sprint(d.Code.ID()), pal.msg.Sprint(d.Message), node)
		return
	}
	start, end := fs.Resolve(d.Primary)
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s%s\n",
		FormatPath(file, fs, opts.PathMode), start.Line, start.Col,
		pal.err.Sprint("ERROR"), pal.code.Sprint(d.Code.ID()), pal.msg.Sprint(d.Message), node)

	gutterWidth := len(fmt.Sprint(start.Line))
	first := uint32(1)
	if opts.Context > 0 && start.Line > uint32(opts.Context) {
		first = start.Line - uint32(opts.Context)
	}
	for ln := first; ln <= start.Line; ln++ {
		text := clip(file.GetLine(ln), opts.Width)
		fmt.Fprintf(w, " %s %s %s\n", pal.gutter.Sprintf("%*d", gutterWidth, ln), pal.gutter.Sprint("|"), text)
	}

	line := file.GetLine(start.Line)
	endCol := end.Col
	if end.Line != start.Line || endCol <= start.Col {
		endCol = start.Col + 1
	}
	fmt.Fprintf(w, " %s %s %s\n", strings.Repeat(" ", gutterWidth), pal.gutter.Sprint("|"),
		pal.caret.Sprint(caretLine(line, int(start.Col), int(endCol))))

	if !opts.ShowNotes {
		return
	}
	for _, note := range d.Notes {
		nf := fs.Get(note.Span.File)
		if nf == nil {
			fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("note:"), note.Msg)
			continue
		}
		ns, _ := fs.Resolve(note.Span)
		fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", pal.note.Sprint("note:"), FormatPath(nf, fs, opts.PathMode), ns.Line, ns.Col, note.Msg)
	}
}

// caretLine underlines byte columns [startCol, endCol) of line with ^~~~,
// measuring display width so wide runes and tabs stay aligned.
func caretLine(line string, startCol, endCol int) string {
	startCol = max(startCol, 1)
	prefixEnd := min(startCol-1, len(line))
	spanEnd := min(max(endCol-1, prefixEnd), len(line))

	var b strings.Builder
	for _, r := range line[:prefixEnd] {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	width := runewidth.StringWidth(line[prefixEnd:spanEnd])
	b.WriteByte('^')
	if width > 1 {
		b.WriteString(strings.Repeat("~", width-1))
	}
	return b.String()
}

func clip(s string, width uint8) string {
	if width == 0 || runewidth.StringWidth(s) <= int(width) {
		return s
	}
	return runewidth.Truncate(s, int(width), "…")
}
