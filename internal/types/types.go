// Package types is the type language of inference: scalars, vectors and
// matrices with symbolic dimensions, named types, and type variables.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the Type union
type Kind int

const (
	KindScalar Kind = iota
	KindVector
	KindMatrix
	KindNamed
	KindVar
	KindUnknown
	KindError
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "Scalar"
	case KindVector:
		return "Vector"
	case KindMatrix:
		return "Matrix"
	case KindNamed:
		return "Named"
	case KindVar:
		return "Var"
	case KindUnknown:
		return "Unknown"
	case KindError:
		return "Error"
	default:
		return "?"
	}
}

// Dim is a vector or matrix dimension: a natural number or a symbol
type Dim struct {
	Value int
	Sym   string // non-empty for symbolic dimensions
}

// N is a concrete dimension
func N(v int) Dim { return Dim{Value: v} }

// DimVar is a symbolic dimension
func DimVar(name string) Dim { return Dim{Sym: name} }

// IsVar reports whether the dimension is symbolic
func (d Dim) IsVar() bool { return d.Sym != "" }

// String renders the dimension
func (d Dim) String() string {
	if d.Sym != "" {
		return d.Sym
	}
	return strconv.Itoa(d.Value)
}

// Type is a value of the type union. Dims is populated for vectors (one)
// and matrices (rows, cols). Name holds the named type, the variable name
// or the error reason depending on Kind.
type Type struct {
	Kind Kind
	Dims []Dim
	Name string
	Args []Type
}

// Scalar is the type of real, integer and rational numbers
func Scalar() Type { return Type{Kind: KindScalar} }

// Vector builds a vector type of length n
func Vector(n Dim) Type { return Type{Kind: KindVector, Dims: []Dim{n}} }

// Matrix builds a rows×cols matrix type
func Matrix(rows, cols Dim) Type { return Type{Kind: KindMatrix, Dims: []Dim{rows, cols}} }

// Named builds a named type such as Bool, Protocol or Option(Scalar)
func Named(name string, args ...Type) Type { return Type{Kind: KindNamed, Name: name, Args: args} }

// Var builds a type variable
func Var(name string) Type { return Type{Kind: KindVar, Name: name} }

// Unknown is the type of an expression that has not been constrained
func Unknown() Type { return Type{Kind: KindUnknown} }

// Errorf builds an error type carrying a reason
func Errorf(format string, args ...interface{}) Type {
	return Type{Kind: KindError, Name: fmt.Sprintf(format, args...)}
}

// Bool is the type of propositions
func Bool() Type { return Named("Bool") }

// IsBool reports whether t is Bool
func (t Type) IsBool() bool { return t.Kind == KindNamed && t.Name == "Bool" && len(t.Args) == 0 }

// Equal reports structural equality
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Name != o.Name || len(t.Dims) != len(o.Dims) || len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Dims {
		if t.Dims[i] != o.Dims[i] {
			return false
		}
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Head identifies the shape of a type, ignoring dimensions and arguments
func (t Type) Head() string {
	if t.Kind == KindNamed {
		return t.Name
	}
	return t.Kind.String()
}

// String renders the type
func (t Type) String() string {
	switch t.Kind {
	case KindScalar:
		return "Scalar"
	case KindVector:
		return "Vector(" + t.Dims[0].String() + ")"
	case KindMatrix:
		return "Matrix(" + t.Dims[0].String() + ", " + t.Dims[1].String() + ")"
	case KindNamed:
		if len(t.Args) == 0 {
			return t.Name
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return t.Name + "(" + strings.Join(parts, ", ") + ")"
	case KindVar:
		return "?" + t.Name
	case KindUnknown:
		return "Unknown"
	case KindError:
		return "Error(" + t.Name + ")"
	default:
		return "?"
	}
}

// FreeVars returns the type variables and symbolic dimensions of t
func (t Type) FreeVars() (typeVars, dimVars []string) {
	var visit func(Type)
	visit = func(t Type) {
		if t.Kind == KindVar {
			typeVars = append(typeVars, t.Name)
		}
		for _, d := range t.Dims {
			if d.IsVar() {
				dimVars = append(dimVars, d.Sym)
			}
		}
		for _, a := range t.Args {
			visit(a)
		}
	}
	visit(t)
	return typeVars, dimVars
}

// IsGround reports whether t has no type variables and no symbolic dims
func (t Type) IsGround() bool {
	tv, dv := t.FreeVars()
	return len(tv) == 0 && len(dv) == 0 && t.Kind != KindUnknown
}

// Gen hands out fresh variable names. The zero value is ready to use.
type Gen struct {
	next int
}

// Fresh returns a new type variable
func (g *Gen) Fresh() Type {
	g.next++
	return Var("t" + strconv.Itoa(g.next))
}

// FreshDim returns a new symbolic dimension
func (g *Gen) FreshDim() Dim {
	g.next++
	return DimVar("d" + strconv.Itoa(g.next))
}

// Instantiate renames every variable of the given types consistently,
// so that a signature can be used without clashing with caller variables.
func (g *Gen) Instantiate(ts ...Type) []Type {
	tmap := map[string]Type{}
	dmap := map[string]Dim{}
	var inst func(Type) Type
	inst = func(t Type) Type {
		switch t.Kind {
		case KindVar:
			if r, ok := tmap[t.Name]; ok {
				return r
			}
			r := g.Fresh()
			tmap[t.Name] = r
			return r
		case KindVector, KindMatrix:
			dims := make([]Dim, len(t.Dims))
			for i, d := range t.Dims {
				if !d.IsVar() {
					dims[i] = d
					continue
				}
				if r, ok := dmap[d.Sym]; ok {
					dims[i] = r
					continue
				}
				r := g.FreshDim()
				dmap[d.Sym] = r
				dims[i] = r
			}
			return Type{Kind: t.Kind, Dims: dims}
		case KindNamed:
			args := make([]Type, len(t.Args))
			for i, a := range t.Args {
				args[i] = inst(a)
			}
			return Type{Kind: KindNamed, Name: t.Name, Args: args}
		default:
			return t
		}
	}
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = inst(t)
	}
	return out
}
