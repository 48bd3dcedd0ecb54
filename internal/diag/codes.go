package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Загрузка схемы
	SchInfo             Code = 1000
	SchUnknownDirective Code = 1001

	// Разрешение директив
	ResInfo                  Code = 3000
	ResMissingDirective      Code = 3001
	ResConflictingDirectives Code = 3002
	ResIllegalInScope        Code = 3003
	ResMalformedValue        Code = 3004
	ResCrossMember           Code = 3005
	ResDuplicateDirective    Code = 3006
)

var (
	codeDescription = map[Code]string{
		UnknownCode:              "Unknown error",
		SchInfo:                  "Schema information",
		SchUnknownDirective:      "Unknown directive",
		ResInfo:                  "Resolver information",
		ResMissingDirective:      "Missing required directive",
		ResConflictingDirectives: "Conflicting directives",
		ResIllegalInScope:        "Directive not allowed in this scope",
		ResMalformedValue:        "Malformed directive value",
		ResCrossMember:           "Container and member directives are incompatible",
		ResDuplicateDirective:    "Directive repeated on one declaration",
	}

	codeKind = map[Code]Kind{
		SchUnknownDirective:      DirectiveIllegalInScope,
		ResMissingDirective:      MissingRequiredDirective,
		ResConflictingDirectives: ConflictingDirectives,
		ResIllegalInScope:        DirectiveIllegalInScope,
		ResMalformedValue:        MalformedDirectiveValue,
		ResCrossMember:           CrossMemberIncompatibility,
		ResDuplicateDirective:    ConflictingDirectives,
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SCH%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RES%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

// Kind maps the code onto the diagnostic taxonomy.
func (c Code) Kind() Kind {
	return codeKind[c]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
