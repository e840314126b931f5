package types

import "fmt"

// MismatchKind classifies a unification failure
type MismatchKind int

const (
	// ShapeMismatch means the type heads differ (Scalar vs Matrix)
	ShapeMismatch MismatchKind = iota
	// DimMismatch means the heads agree but a dimension differs
	DimMismatch
	// OccursMismatch means a variable would have to contain itself
	OccursMismatch
)

// Mismatch is returned when two types cannot be unified
type Mismatch struct {
	Kind     MismatchKind
	Expected Type
	Actual   Type
	Detail   string
}

func (m *Mismatch) Error() string {
	switch m.Kind {
	case DimMismatch:
		return fmt.Sprintf("dimension mismatch: %s vs %s (%s)", m.Expected, m.Actual, m.Detail)
	case OccursMismatch:
		return fmt.Sprintf("cyclic type: %s occurs in %s", m.Expected, m.Actual)
	default:
		return fmt.Sprintf("cannot unify %s with %s", m.Expected, m.Actual)
	}
}

// Subst maps type variables to types and dimension symbols to dimensions
type Subst struct {
	types map[string]Type
	dims  map[string]Dim
}

// NewSubst returns an empty substitution
func NewSubst() *Subst {
	return &Subst{types: map[string]Type{}, dims: map[string]Dim{}}
}

// Clone copies the substitution so trial unifications can be discarded
func (s *Subst) Clone() *Subst {
	c := NewSubst()
	for k, v := range s.types {
		c.types[k] = v
	}
	for k, v := range s.dims {
		c.dims[k] = v
	}
	return c
}

// Len returns the number of bindings
func (s *Subst) Len() int { return len(s.types) + len(s.dims) }

// BindDim records a dimension binding without checking
func (s *Subst) BindDim(name string, d Dim) { s.dims[name] = d }

// BindType records a type binding without checking
func (s *Subst) BindType(name string, t Type) { s.types[name] = t }

// ApplyDim resolves a dimension through the substitution
func (s *Subst) ApplyDim(d Dim) Dim {
	for i := 0; d.IsVar() && i <= len(s.dims); i++ {
		r, ok := s.dims[d.Sym]
		if !ok {
			break
		}
		d = r
	}
	return d
}

// Apply resolves t through the substitution
func (s *Subst) Apply(t Type) Type {
	switch t.Kind {
	case KindVar:
		if r, ok := s.types[t.Name]; ok {
			return s.Apply(r)
		}
		return t
	case KindVector, KindMatrix:
		dims := make([]Dim, len(t.Dims))
		for i, d := range t.Dims {
			dims[i] = s.ApplyDim(d)
		}
		return Type{Kind: t.Kind, Dims: dims}
	case KindNamed:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = s.Apply(a)
		}
		return Type{Kind: KindNamed, Name: t.Name, Args: args}
	default:
		return t
	}
}

// Unify makes a and b equal by extending s. On failure s may hold partial
// bindings; callers that need to back out unify against a clone.
func (s *Subst) Unify(a, b Type) error {
	a, b = s.Apply(a), s.Apply(b)
	if a.Equal(b) {
		return nil
	}
	if a.Kind == KindUnknown || b.Kind == KindUnknown {
		return nil
	}
	if a.Kind == KindVar {
		return s.bindVar(a, b)
	}
	if b.Kind == KindVar {
		return s.bindVar(b, a)
	}
	if a.Kind == KindError || b.Kind == KindError || a.Kind != b.Kind {
		return &Mismatch{Kind: ShapeMismatch, Expected: a, Actual: b}
	}
	switch a.Kind {
	case KindVector, KindMatrix:
		for i := range a.Dims {
			if err := s.unifyDim(a.Dims[i], b.Dims[i]); err != nil {
				return &Mismatch{Kind: DimMismatch, Expected: s.Apply(a), Actual: s.Apply(b), Detail: err.Error()}
			}
		}
		return nil
	case KindNamed:
		if a.Name != b.Name || len(a.Args) != len(b.Args) {
			return &Mismatch{Kind: ShapeMismatch, Expected: a, Actual: b}
		}
		for i := range a.Args {
			if err := s.Unify(a.Args[i], b.Args[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return &Mismatch{Kind: ShapeMismatch, Expected: a, Actual: b}
}

func (s *Subst) bindVar(v, t Type) error {
	if t.Kind == KindVar && t.Name == v.Name {
		return nil
	}
	if occurs(v.Name, t) {
		return &Mismatch{Kind: OccursMismatch, Expected: v, Actual: t}
	}
	s.types[v.Name] = t
	return nil
}

func occurs(name string, t Type) bool {
	switch t.Kind {
	case KindVar:
		return t.Name == name
	case KindNamed:
		for _, a := range t.Args {
			if occurs(name, a) {
				return true
			}
		}
	}
	return false
}

func (s *Subst) unifyDim(a, b Dim) error {
	a, b = s.ApplyDim(a), s.ApplyDim(b)
	switch {
	case a == b:
		return nil
	case a.IsVar():
		s.dims[a.Sym] = b
		return nil
	case b.IsVar():
		s.dims[b.Sym] = a
		return nil
	default:
		return fmt.Errorf("%d ≠ %d", a.Value, b.Value)
	}
}
