// Package layout is the resolver's output: per-enum discriminants with
// ordered variant predicates and per-struct field widths. Plans are built
// from validated values only and are not checked again here.
package layout
