package diagfmt

import (
	"fmt"
	"io"

	"bitspec/internal/diag"
	"bitspec/internal/source"
)

// Short prints one line per diagnostic: <path>:<line>:<col>: <CODE> <message>.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts ShortOpts) {
	items := bag.Items()
	n := limit(len(items), opts.Max)
	for i := 0; i < n; i++ {
		d := &items[i]
		file := fs.Get(d.Primary.File)
		if file == nil {
			fmt.Fprintf(w, "%s %s\n", d.Code.ID(), d.Message)
			continue
		}
		start, _ := fs.Resolve(d.Primary)
		fmt.Fprintf(w, "%s:%d:%d: %s %s\n", FormatPath(file, fs, opts.PathMode), start.Line, start.Col, d.Code.ID(), d.Message)
	}
}
