package adt

import (
	"math/big"

	"github.com/lhaig/axiom/internal/ast"
)

// Bindings maps pattern variables to the values they captured
type Bindings map[string]ast.Expr

// Match tests a ground value against p. Values are numeric and boolean
// literals, nullary constructor identifiers, and constructor calls whose
// arguments are values.
func (r *Registry) Match(value ast.Expr, p ast.Pattern) (Bindings, bool) {
	b := Bindings{}
	if !r.match(value, p, b) {
		return nil, false
	}
	return b, true
}

func (r *Registry) match(value ast.Expr, p ast.Pattern, b Bindings) bool {
	switch n := p.(type) {
	case *ast.Wildcard:
		return true
	case *ast.PVar:
		if c, ok := r.ctors[n.Name]; ok && c.Nullary() {
			return isCtor(value, n.Name, 0)
		}
		b[n.Name] = value
		return true
	case *ast.PAs:
		if !r.match(value, n.Pattern, b) {
			return false
		}
		b[n.Name] = value
		return true
	case *ast.PLit:
		return literalEqual(value, n.Value)
	case *ast.PCtor:
		if !isCtor(value, n.Name, len(n.Args)) {
			return false
		}
		call, ok := value.(*ast.Call)
		if !ok {
			return len(n.Args) == 0
		}
		for i, a := range n.Args {
			if !r.match(call.Args[i], a, b) {
				return false
			}
		}
		return true
	}
	return false
}

func isCtor(value ast.Expr, name string, arity int) bool {
	switch v := value.(type) {
	case *ast.Ident:
		return arity == 0 && v.Name == name
	case *ast.Call:
		return v.Op == name && len(v.Args) == arity
	}
	return false
}

func literalEqual(value, lit ast.Expr) bool {
	switch l := lit.(type) {
	case *ast.BoolLit:
		v, ok := value.(*ast.BoolLit)
		return ok && v.Value == l.Value
	case *ast.NumLit:
		v, ok := value.(*ast.NumLit)
		if !ok {
			return false
		}
		a, okA := new(big.Rat).SetString(v.Text)
		b, okB := new(big.Rat).SetString(l.Text)
		return okA && okB && a.Cmp(b) == 0
	}
	return false
}

// GuardFunc decides a case guard under the case's bindings
type GuardFunc func(guard ast.Expr, b Bindings) (bool, error)

// Select returns the first case whose pattern matches value and whose
// guard (if any) holds. ErrNoMatch is returned when none applies; a
// pattern that names an unknown constructor or has the wrong arity is a
// *PatternError even when an earlier case would have matched.
func (r *Registry) Select(value ast.Expr, cases []ast.Case, guard GuardFunc) (int, Bindings, error) {
	pats := make([]ast.Pattern, len(cases))
	for i, c := range cases {
		p, err := r.ResolvePattern(c.Pattern)
		if err != nil {
			return -1, nil, err
		}
		pats[i] = p
	}
	for i, c := range cases {
		b, ok := r.Match(value, pats[i])
		if !ok {
			continue
		}
		if c.Guard != nil {
			if guard == nil {
				continue
			}
			holds, err := guard(c.Guard, b)
			if err != nil {
				return -1, nil, err
			}
			if !holds {
				continue
			}
		}
		return i, b, nil
	}
	return -1, nil, ErrNoMatch
}
