package infer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lhaig/axiom/internal/types"
)

// ErrorKind classifies inference failures
type ErrorKind int

const (
	UnboundSymbol ErrorKind = iota
	IncompatibleTypes
	DimensionMismatch
	NoMatchingOverload
	AmbiguousType
	CyclicType
)

// String returns the name of the kind
func (k ErrorKind) String() string {
	switch k {
	case UnboundSymbol:
		return "unbound symbol"
	case IncompatibleTypes:
		return "incompatible types"
	case DimensionMismatch:
		return "dimension mismatch"
	case NoMatchingOverload:
		return "no matching overload"
	case AmbiguousType:
		return "ambiguous type"
	case CyclicType:
		return "cyclic type"
	default:
		return "type error"
	}
}

// TypeError describes why an expression has no type
type TypeError struct {
	Kind       ErrorKind
	Symbol     string
	Expected   []types.Type
	Actual     []types.Type
	Candidates []string
	Detail     string
}

func joinTypes(ts []types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func (e *TypeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Symbol != "" {
		fmt.Fprintf(&sb, " in '%s'", e.Symbol)
	}
	if len(e.Expected) > 0 || len(e.Actual) > 0 {
		fmt.Fprintf(&sb, ": expected (%s), got (%s)", joinTypes(e.Expected), joinTypes(e.Actual))
	}
	if e.Detail != "" {
		sb.WriteString(": " + e.Detail)
	}
	if len(e.Candidates) > 0 {
		sb.WriteString("\n  candidates:\n    " + strings.Join(e.Candidates, "\n    "))
	}
	return sb.String()
}

// IsKind reports whether err is a TypeError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var te *TypeError
	return errors.As(err, &te) && te.Kind == kind
}
