// Package adt registers algebraic data types, matches patterns against
// ground values and encodes both into solver terms.
package adt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
)

var (
	// ErrDuplicateType is returned when a data type name is registered twice
	ErrDuplicateType = errors.New("duplicate data type")
	// ErrDuplicateConstructor is returned when two variants share a name
	ErrDuplicateConstructor = errors.New("duplicate constructor")
	// ErrNoMatch is returned when no case of a match applies to a value
	ErrNoMatch = errors.New("no case matches")
	// ErrNoConstructors is returned for a data type without variants
	ErrNoConstructors = errors.New("data type has no constructors")
)

// PatternError reports a pattern naming an unknown constructor or using
// the wrong number of arguments.
type PatternError struct {
	Constructor string
	Expected    int
	Actual      int
	Unknown     bool
}

func (e *PatternError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("pattern uses unknown constructor '%s'", e.Constructor)
	}
	return fmt.Sprintf("constructor '%s' expects %d arguments, pattern has %d", e.Constructor, e.Expected, e.Actual)
}

// Constructor is one registered variant
type Constructor struct {
	Name    string
	Data    *decl.Data
	Variant *decl.Variant
	Tag     int
}

// Arity returns the number of fields
func (c *Constructor) Arity() int { return len(c.Variant.Fields) }

// Nullary reports whether the constructor takes no arguments. Nullary
// constructors are identity elements: pairwise distinct constants.
func (c *Constructor) Nullary() bool { return len(c.Variant.Fields) == 0 }

// FieldName returns the declared name of field i, or its index
func (c *Constructor) FieldName(i int) string {
	if n := c.Variant.Fields[i].Name; n != "" {
		return n
	}
	return strconv.Itoa(i)
}

// Registry holds data types in registration order
type Registry struct {
	types map[string]*decl.Data
	order []string
	ctors map[string]*Constructor
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{types: map[string]*decl.Data{}, ctors: map[string]*Constructor{}}
}

// Clone returns a registry that can be extended without affecting r
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	c.order = append(c.order, r.order...)
	for k, v := range r.types {
		c.types[k] = v
	}
	for k, v := range r.ctors {
		c.ctors[k] = v
	}
	return c
}

// Register adds a data type and its constructors. Nothing is added when
// an error is returned.
func (r *Registry) Register(d *decl.Data) error {
	if _, ok := r.types[d.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, d.Name)
	}
	if len(d.Variants) == 0 {
		return fmt.Errorf("%w: %s", ErrNoConstructors, d.Name)
	}
	seen := map[string]bool{}
	for _, v := range d.Variants {
		if _, ok := r.ctors[v.Name]; ok || seen[v.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateConstructor, v.Name)
		}
		seen[v.Name] = true
	}
	r.types[d.Name] = d
	r.order = append(r.order, d.Name)
	for i, v := range d.Variants {
		r.ctors[v.Name] = &Constructor{Name: v.Name, Data: d, Variant: v, Tag: i}
	}
	return nil
}

// Data looks up a data type by name
func (r *Registry) Data(name string) (*decl.Data, bool) {
	d, ok := r.types[name]
	return d, ok
}

// Constructor looks up a constructor by name
func (r *Registry) Constructor(name string) (*Constructor, bool) {
	c, ok := r.ctors[name]
	return c, ok
}

// Types returns the data types in registration order
func (r *Registry) Types() []*decl.Data {
	out := make([]*decl.Data, len(r.order))
	for i, n := range r.order {
		out[i] = r.types[n]
	}
	return out
}

// Constructors returns the constructors of a data type in declaration order
func (r *Registry) Constructors(data string) []*Constructor {
	d, ok := r.types[data]
	if !ok {
		return nil
	}
	out := make([]*Constructor, len(d.Variants))
	for i, v := range d.Variants {
		out[i] = r.ctors[v.Name]
	}
	return out
}

// Identities returns every nullary constructor in registration order
func (r *Registry) Identities() []*Constructor {
	var out []*Constructor
	for _, n := range r.order {
		for _, c := range r.Constructors(n) {
			if c.Nullary() {
				out = append(out, c)
			}
		}
	}
	return out
}

// ResolvePatterns rewrites bare identifiers in patterns that name nullary
// constructors into constructor patterns, and validates constructor
// patterns against their declarations.
func (r *Registry) ResolvePatterns(e ast.Expr) (ast.Expr, error) {
	keep := func(x ast.Expr) (ast.Expr, error) { return x, nil }
	return ast.Transform(e, keep, r.ResolvePattern)
}

// ResolvePattern resolves a single pattern
func (r *Registry) ResolvePattern(p ast.Pattern) (ast.Pattern, error) {
	switch n := p.(type) {
	case *ast.PVar:
		if c, ok := r.ctors[n.Name]; ok {
			if !c.Nullary() {
				return nil, &PatternError{Constructor: n.Name, Expected: c.Arity(), Actual: 0}
			}
			return &ast.PCtor{Name: n.Name}, nil
		}
		return n, nil
	case *ast.PCtor:
		c, ok := r.ctors[n.Name]
		if !ok {
			return nil, &PatternError{Constructor: n.Name, Unknown: true}
		}
		if c.Arity() != len(n.Args) {
			return nil, &PatternError{Constructor: n.Name, Expected: c.Arity(), Actual: len(n.Args)}
		}
		args := make([]ast.Pattern, len(n.Args))
		for i, a := range n.Args {
			ra, err := r.ResolvePattern(a)
			if err != nil {
				return nil, err
			}
			args[i] = ra
		}
		return &ast.PCtor{Name: n.Name, Args: args}, nil
	case *ast.PAs:
		inner, err := r.ResolvePattern(n.Pattern)
		if err != nil {
			return nil, err
		}
		return &ast.PAs{Pattern: inner, Name: n.Name}, nil
	default:
		return p, nil
	}
}
