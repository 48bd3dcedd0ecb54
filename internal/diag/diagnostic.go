package diag

import (
	"bitspec/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Kind    Kind
	Code    Code
	Message string
	Primary source.Span
	// Node is the path of the smallest offending declaration, e.g. "Packet::Ping".
	Node string
	// Directives lists the directive names the message refers to, in rule order.
	Directives []string
	Notes      []Note
}
