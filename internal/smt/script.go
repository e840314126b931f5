package smt

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of a check-sat call
type Status int

const (
	Unknown Status = iota
	Sat
	Unsat
)

// String returns the SMT-LIB spelling of the status
func (s Status) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Binding is one constant of a model, rendered as text
type Binding struct {
	Name  string
	Value string
}

// Result is what the solver answered
type Result struct {
	Status Status
	Model  []Binding
	Reason string // why the answer is unknown, when it is
	Output string // raw solver output
}

// Solver accumulates declarations and assertions and decides
// satisfiability of their conjunction.
type Solver interface {
	DeclareSort(name string) error
	DeclareFun(name string, domain []Sort, rng Sort) error
	DeclareDatatypes(ds ...Datatype) error
	Declared(name string) bool
	Assert(t Term) error
	AssertDistinct(ts ...Term) error
	CheckSat(ctx context.Context, timeout time.Duration) (*Result, error)
	// Clone returns an independent copy; assertions added to the copy never
	// reach the original.
	Clone() Solver
	Text() string
}

// Script is the declaration and assertion state shared by solver
// backends. It renders as SMT-LIB text.
type Script struct {
	lines []string
	sigs  map[string]string
	sorts map[string]bool
}

// NewScript returns an empty script
func NewScript() *Script {
	return &Script{sigs: map[string]string{}, sorts: map[string]bool{}}
}

// DeclareSort introduces an uninterpreted sort. Redeclaring is a no-op.
func (s *Script) DeclareSort(name string) error {
	if s.sorts[name] {
		return nil
	}
	if _, ok := s.sigs[name]; ok {
		return fmt.Errorf("sort %s clashes with a declared function", name)
	}
	s.sorts[name] = true
	s.lines = append(s.lines, "(declare-sort "+Symbol(name)+" 0)")
	return nil
}

func signature(domain []Sort, rng Sort) string {
	parts := make([]string, len(domain))
	for i, d := range domain {
		parts[i] = d.String()
	}
	return "(" + strings.Join(parts, " ") + ") " + rng.String()
}

// DeclareFun introduces a function or, with an empty domain, a constant.
// Redeclaring with the same signature is a no-op.
func (s *Script) DeclareFun(name string, domain []Sort, rng Sort) error {
	sig := signature(domain, rng)
	if prev, ok := s.sigs[name]; ok {
		if prev == sig {
			return nil
		}
		return fmt.Errorf("function %s already declared as %s, not %s", name, prev, sig)
	}
	s.sigs[name] = sig
	s.lines = append(s.lines, "(declare-fun "+Symbol(name)+" "+sig+")")
	return nil
}

// Selector is one field of a datatype constructor
type Selector struct {
	Name string
	Sort Sort
}

// Constructor is one alternative of a datatype
type Constructor struct {
	Name      string
	Selectors []Selector
}

// Datatype is an algebraic sort: every value is built by exactly one of
// its constructors, constructors are injective, and selectors project
// their arguments.
type Datatype struct {
	Name         string
	Constructors []Constructor
}

// DeclareDatatypes introduces ds as one mutually recursive group.
// Datatypes whose sort is already declared are skipped.
func (s *Script) DeclareDatatypes(ds ...Datatype) error {
	var fresh []Datatype
	for _, d := range ds {
		if !s.sorts[d.Name] {
			fresh = append(fresh, d)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	sigs := map[string]string{}
	add := func(name, sig string) error {
		if _, ok := s.sigs[name]; ok {
			return fmt.Errorf("datatype symbol %s already declared", name)
		}
		if _, ok := sigs[name]; ok {
			return fmt.Errorf("datatype symbol %s declared twice", name)
		}
		sigs[name] = sig
		return nil
	}

	heads := make([]string, len(fresh))
	bodies := make([]string, len(fresh))
	for i, d := range fresh {
		if _, ok := s.sigs[d.Name]; ok {
			return fmt.Errorf("sort %s clashes with a declared function", d.Name)
		}
		if len(d.Constructors) == 0 {
			return fmt.Errorf("datatype %s has no constructors", d.Name)
		}
		sort := Uninterpreted(d.Name)
		heads[i] = "(" + Symbol(d.Name) + " 0)"
		ctors := make([]string, len(d.Constructors))
		for j, c := range d.Constructors {
			domain := make([]Sort, len(c.Selectors))
			parts := []string{Symbol(c.Name)}
			for k, sel := range c.Selectors {
				domain[k] = sel.Sort
				parts = append(parts, "("+Symbol(sel.Name)+" "+sel.Sort.String()+")")
				if err := add(sel.Name, signature([]Sort{sort}, sel.Sort)); err != nil {
					return err
				}
			}
			if err := add(c.Name, signature(domain, sort)); err != nil {
				return err
			}
			ctors[j] = "(" + strings.Join(parts, " ") + ")"
		}
		bodies[i] = "(" + strings.Join(ctors, " ") + ")"
	}

	for _, d := range fresh {
		s.sorts[d.Name] = true
	}
	for name, sig := range sigs {
		s.sigs[name] = sig
	}
	s.lines = append(s.lines, "(declare-datatypes ("+strings.Join(heads, " ")+") ("+strings.Join(bodies, " ")+"))")
	return nil
}

// Declared reports whether a function or constant name is declared
func (s *Script) Declared(name string) bool {
	_, ok := s.sigs[name]
	return ok
}

// Assert adds a boolean term
func (s *Script) Assert(t Term) error {
	if t.Sort() != Bool {
		return fmt.Errorf("cannot assert term of sort %s: %s", t.Sort().Name, t)
	}
	s.lines = append(s.lines, "(assert "+t.String()+")")
	return nil
}

// AssertDistinct asserts the terms are pairwise different
func (s *Script) AssertDistinct(ts ...Term) error {
	if len(ts) < 2 {
		return nil
	}
	return s.Assert(Distinct(ts...))
}

// Comment adds an SMT-LIB comment line
func (s *Script) Comment(text string) {
	s.lines = append(s.lines, "; "+strings.ReplaceAll(text, "\n", " "))
}

// Text returns the SMT-LIB text
func (s *Script) Text() string {
	if len(s.lines) == 0 {
		return ""
	}
	return strings.Join(s.lines, "\n") + "\n"
}

// Len returns the number of commands
func (s *Script) Len() int { return len(s.lines) }

// Copy returns an independent copy of the script
func (s *Script) Copy() *Script {
	c := &Script{
		lines: make([]string, len(s.lines)),
		sigs:  make(map[string]string, len(s.sigs)),
		sorts: make(map[string]bool, len(s.sorts)),
	}
	copy(c.lines, s.lines)
	for k, v := range s.sigs {
		c.sigs[k] = v
	}
	for k, v := range s.sorts {
		c.sorts[k] = v
	}
	return c
}
