package infer

import (
	"github.com/lhaig/axiom/internal/registry"
	"github.com/lhaig/axiom/internal/types"
)

// prelude holds the builtin scalar and boolean operations every program
// can use without declaring them.
var prelude = map[string][]*registry.Overload{}

func init() {
	s, b := types.Scalar(), types.Bool()
	add := func(op string, result types.Type, params ...types.Type) {
		prelude[op] = append(prelude[op], &registry.Overload{Op: op, Params: params, Result: result, Owner: "prelude"})
	}
	for _, op := range []string{"plus", "minus", "times", "divide", "power"} {
		add(op, s, s, s)
	}
	add("negate", s, s)
	for _, op := range []string{"less_than", "greater_than", "leq", "geq"} {
		add(op, b, s, s)
	}
	for _, op := range []string{"and", "or", "implies", "iff"} {
		add(op, b, b, b)
	}
	add("not", b, b)
}

// IsBuiltin reports whether op is a prelude operation or equality
func IsBuiltin(op string) bool {
	if op == "equals" || op == "neq" {
		return true
	}
	_, ok := prelude[op]
	return ok
}
