package schema

import "fmt"

// LoadError is a structural problem that makes a schema file unusable.
// Line and Column are 1-based; zero means the position is unknown.
type LoadError struct {
	Path   string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *LoadError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Path, msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DuplicateKeyError reports a repeated structural key in one mapping.
// Repeated directives are not load errors.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}
