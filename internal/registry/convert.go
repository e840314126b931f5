package registry

import (
	"unicode"
	"unicode/utf8"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/types"
)

// Scope binds structure parameters while converting signatures
type Scope struct {
	Types map[string]types.Type
	Dims  map[string]types.Dim
}

// ParamScope binds every parameter of a structure to a variable of the
// same name: dimension parameters to symbolic dims, others to type vars.
func ParamScope(params []string, dims map[string]bool) *Scope {
	sc := &Scope{Types: map[string]types.Type{}, Dims: map[string]types.Dim{}}
	for _, p := range params {
		if dims[p] {
			sc.Dims[p] = types.DimVar(p)
		} else {
			sc.Types[p] = types.Var(p)
		}
	}
	return sc
}

var scalarNames = map[string]bool{
	"ℝ": true, "Real": true, "Scalar": true, "ℚ": true, "Rational": true, "Float": true,
	"ℤ": true, "Int": true, "Integer": true, "ℕ": true, "Nat": true, "Natural": true,
}

var boolNames = map[string]bool{"Bool": true, "Boolean": true, "𝔹": true}

// IsScalarName reports whether a type name denotes a number type
func IsScalarName(name string) bool { return scalarNames[name] }

// isTypeVarName accepts single-letter names with optional digits or
// primes: T, G, a, T1, M'.
func isTypeVarName(name string) bool {
	r, size := utf8.DecodeRuneInString(name)
	if !unicode.IsLetter(r) {
		return false
	}
	for _, c := range name[size:] {
		if !unicode.IsDigit(c) && c != '\'' {
			return false
		}
	}
	return true
}

// ToType converts a type annotation. Names bound in sc take their bound
// value; registered data types and structures become named types; other
// single-letter names become type variables.
func (r *Registry) ToType(te ast.TypeExpr, sc *Scope) types.Type {
	switch n := te.(type) {
	case nil:
		return types.Unknown()
	case *ast.TypeNat:
		return types.Errorf("dimension %d used as a type", n.Value)
	case *ast.TypeFunc:
		return types.Errorf("function type %s used as a value type", n)
	case *ast.TypeName:
		if sc != nil && len(n.Args) == 0 {
			if t, ok := sc.Types[n.Name]; ok {
				return t
			}
		}
		switch {
		case scalarNames[n.Name] && len(n.Args) == 0:
			return types.Scalar()
		case boolNames[n.Name] && len(n.Args) == 0:
			return types.Bool()
		case n.Name == "Vector" && (len(n.Args) == 1 || len(n.Args) == 2):
			return types.Vector(r.toDim(n.Args[0], sc))
		case n.Name == "Matrix" && (len(n.Args) == 2 || len(n.Args) == 3):
			return types.Matrix(r.toDim(n.Args[0], sc), r.toDim(n.Args[1], sc))
		}
		_, isData := r.data.Data(n.Name)
		_, isStruct := r.structures[n.Name]
		if !isData && !isStruct && len(n.Args) == 0 && isTypeVarName(n.Name) {
			return types.Var(n.Name)
		}
		if len(n.Args) == 0 {
			return types.Named(n.Name)
		}
		args := make([]types.Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = r.ToType(a, sc)
		}
		return types.Named(n.Name, args...)
	}
	return types.Unknown()
}

func (r *Registry) toDim(te ast.TypeExpr, sc *Scope) types.Dim {
	switch n := te.(type) {
	case *ast.TypeNat:
		return types.N(n.Value)
	case *ast.TypeName:
		if sc != nil {
			if d, ok := sc.Dims[n.Name]; ok {
				return d
			}
		}
		return types.DimVar(n.Name)
	}
	return types.DimVar("?")
}

// SignatureTypes converts an operation signature to parameter and result
// types under sc.
func (r *Registry) SignatureTypes(sig *ast.TypeFunc, sc *Scope) ([]types.Type, types.Type) {
	params := make([]types.Type, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = r.ToType(p, sc)
	}
	return params, r.ToType(sig.Result, sc)
}
