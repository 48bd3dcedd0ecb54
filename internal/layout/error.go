package layout

import "fmt"

// PlanErrorKind enumerates plan lookup failures.
type PlanErrorKind uint8

const (
	// PlanErrMissing means no plan exists for the name, usually because the
	// container had diagnostics.
	PlanErrMissing PlanErrorKind = iota + 1
	PlanErrWrongKind
)

// PlanError is returned by typed plan lookups.
type PlanError struct {
	Kind PlanErrorKind
	Name string
	Want string // "enum" or "struct"
	Got  string
}

func (e *PlanError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case PlanErrMissing:
		return fmt.Sprintf("no layout plan for %q", e.Name)
	case PlanErrWrongKind:
		return fmt.Sprintf("layout plan %q is a %s, not a %s", e.Name, e.Got, e.Want)
	default:
		return fmt.Sprintf("plan error kind=%d for %q", e.Kind, e.Name)
	}
}
