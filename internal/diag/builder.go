package diag

import "bitspec/internal/source"

// New creates a diagnostic whose kind is derived from code.
func New(code Code, primary source.Span, node, msg string) Diagnostic {
	return Diagnostic{
		Kind:    code.Kind(),
		Code:    code,
		Primary: primary,
		Node:    node,
		Message: msg,
	}
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithDirectives(names ...string) Diagnostic {
	d.Directives = append(d.Directives, names...)
	return d
}
