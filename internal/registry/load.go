package registry

import (
	"fmt"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
)

// Load registers every declaration of a program atomically: either all of
// them become visible or, on error, none do. Loading a program whose
// declarations were already loaded fails with AlreadyLoaded and leaves
// the registry unchanged.
func (r *Registry) Load(p *decl.Program) error {
	fp := p.Fingerprint()
	if r.loaded[fp] {
		return &Error{Kind: AlreadyLoaded, Name: p.File}
	}
	next := r.Clone()
	if err := next.load(p); err != nil {
		return err
	}
	next.loaded[fp] = true
	*r = *next
	return nil
}

func (r *Registry) load(p *decl.Program) error {
	for _, d := range p.Data {
		if err := r.RegisterData(d); err != nil {
			return err
		}
	}
	p, err := r.resolveProgram(p)
	if err != nil {
		return err
	}
	for _, op := range p.Operations {
		if err := r.RegisterOperation(op); err != nil {
			return err
		}
	}
	structures, err := r.orderStructures(p.Structures)
	if err != nil {
		return err
	}
	for _, s := range structures {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	for _, f := range p.Functions {
		if err := r.RegisterFunction(f); err != nil {
			return err
		}
	}
	for _, w := range p.Witnesses {
		if err := r.RegisterWitness(w); err != nil {
			return err
		}
	}
	return nil
}

// orderStructures sorts the program's structures so that every structure
// follows the ones it extends, is over, or requires in a where clause.
// References to already registered structures impose no order.
func (r *Registry) orderStructures(in []*decl.Structure) ([]*decl.Structure, error) {
	local := map[string]*decl.Structure{}
	for _, s := range in {
		if _, dup := local[s.Name]; dup {
			return nil, &Error{Kind: DuplicateStructure, Name: s.Name, Pos: s.Pos}
		}
		local[s.Name] = s
	}
	deps := func(s *decl.Structure) []string {
		var out []string
		if s.Extends != nil {
			out = append(out, s.Extends.Name)
		}
		if s.Over != nil {
			out = append(out, s.Over.Name)
		}
		for _, w := range s.Where {
			switch n := w.(type) {
			case *ast.Ident:
				out = append(out, n.Name)
			case *ast.Call:
				out = append(out, n.Op)
			}
		}
		return out
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}
	var out []*decl.Structure
	var visit func(*decl.Structure) error
	visit = func(s *decl.Structure) error {
		switch state[s.Name] {
		case visiting:
			return &Error{Kind: UnknownStructure, Name: s.Name, Pos: s.Pos, Detail: "cyclic structure dependency"}
		case done:
			return nil
		}
		state[s.Name] = visiting
		for _, d := range deps(s) {
			if dep, ok := local[d]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[s.Name] = done
		out = append(out, s)
		return nil
	}
	for _, s := range in {
		if err := visit(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolveProgram returns a copy of p whose patterns name constructors
// explicitly. The caller's declarations are not modified.
func (r *Registry) resolveProgram(p *decl.Program) (*decl.Program, error) {
	res := func(e ast.Expr, where string) (ast.Expr, error) {
		if e == nil {
			return nil, nil
		}
		out, err := r.data.ResolvePatterns(e)
		if err != nil {
			return nil, &Error{Kind: InvalidPattern, Name: where, Detail: err.Error(), Err: err}
		}
		return out, nil
	}
	resFn := func(f *decl.Function) (*decl.Function, error) {
		body, err := res(f.Body, f.Name)
		if err != nil {
			return nil, err
		}
		c := *f
		c.Body = body
		return &c, nil
	}

	out := *p
	out.Functions = nil
	for _, f := range p.Functions {
		c, err := resFn(f)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, c)
	}

	out.Structures = nil
	for _, s := range p.Structures {
		c := *s
		c.Axioms = nil
		for _, ax := range s.Axioms {
			prop, err := res(ax.Prop, s.Name+"."+ax.Name)
			if err != nil {
				return nil, err
			}
			c.Axioms = append(c.Axioms, &decl.Axiom{Name: ax.Name, Prop: prop, Pos: ax.Pos})
		}
		c.Functions = nil
		for _, f := range s.Functions {
			fc, err := resFn(f)
			if err != nil {
				return nil, err
			}
			c.Functions = append(c.Functions, fc)
		}
		out.Structures = append(out.Structures, &c)
	}

	out.Witnesses = nil
	for _, w := range p.Witnesses {
		c := *w
		c.Operations = nil
		for _, impl := range w.Operations {
			b := *impl.Body
			e, err := res(b.Expr, fmt.Sprintf("%s.%s", w.Structure, impl.Name))
			if err != nil {
				return nil, err
			}
			b.Expr = e
			c.Operations = append(c.Operations, &decl.OpImpl{Name: impl.Name, Body: &b, Pos: impl.Pos})
		}
		out.Witnesses = append(out.Witnesses, &c)
	}
	return &out, nil
}
