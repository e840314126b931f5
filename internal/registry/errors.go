package registry

import (
	"errors"
	"fmt"

	"github.com/lhaig/axiom/internal/decl"
)

// ErrorKind classifies registry failures
type ErrorKind int

const (
	DuplicateOperation ErrorKind = iota
	MissingOperation
	DuplicateStructure
	UnknownStructure
	AlreadyLoaded
	UnboundAxiomVariable
	ArityMismatch
	UnknownMember
	DuplicateDefinition
	InvalidPattern
)

var kindNames = map[ErrorKind]string{
	DuplicateOperation:   "duplicate operation",
	MissingOperation:     "missing operation",
	DuplicateStructure:   "duplicate structure",
	UnknownStructure:     "unknown structure",
	AlreadyLoaded:        "already loaded",
	UnboundAxiomVariable: "unbound axiom variable",
	ArityMismatch:        "arity mismatch",
	UnknownMember:        "unknown member",
	DuplicateDefinition:  "duplicate definition",
	InvalidPattern:       "invalid pattern",
}

// String returns a readable name for the kind
func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "registry error"
}

// Error is returned by every registry mutation that is rejected
type Error struct {
	Kind      ErrorKind
	Structure string
	Name      string
	Detail    string
	Pos       decl.Pos
	Err       error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Structure != "" {
		msg += " in " + e.Structure
	}
	if e.Name != "" {
		msg += fmt.Sprintf(": '%s'", e.Name)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if !e.Pos.IsZero() {
		msg = e.Pos.String() + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a registry error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == kind
}
