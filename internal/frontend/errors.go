package frontend

import (
	"fmt"
	"go/token"
)

// ErrorKind enumerates the ways a kernel definition can fall outside the
// supported sub-language (§4.1, §7).
type ErrorKind string

const (
	// UnsupportedConstruct means a syntax node outside the recognized
	// sub-language appeared: a loop, a call other than Pow, a boolean
	// operator, an unrecognized scope name, and so on.
	UnsupportedConstruct ErrorKind = "UnsupportedConstruct"
	// MalformedExtent means a slice bound didn't reduce to level±constant.
	MalformedExtent ErrorKind = "MalformedExtent"
	// UnknownField means an identifier outside the parameter list was read
	// from or assigned to.
	UnknownField ErrorKind = "UnknownField"
)

// Error reports a single sub-language violation with its source location.
type Error struct {
	Kind   ErrorKind
	At     token.Position
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.At, e.Detail)
}

// Pos satisfies diagnostic.Positioned, letting cmd/dslgen render this
// error with a caret under the offending source column.
func (e *Error) Pos() token.Position { return e.At }

func (b *builder) errorf(kind ErrorKind, pos token.Pos, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		At:     b.fset.Position(pos),
		Detail: fmt.Sprintf(format, args...),
	}
}
