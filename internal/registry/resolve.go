package registry

import (
	"strings"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
)

// ResolvedAxiom is an axiom ready to assert: parameters renamed to the
// requesting structure's view and hypotheses folded in as an implication.
type ResolvedAxiom struct {
	Structure string
	Name      string
	Prop      ast.Expr
	Pos       decl.Pos
}

// ResolveAxioms returns the axioms that hold in a structure: those of its
// where-structures, then its parent, then its carrier, then its own. Each
// instance of a structure contributes once even when reachable along
// several paths; Monoid(A) and Monoid(B) are different instances.
func (r *Registry) ResolveAxioms(name string) ([]ResolvedAxiom, error) {
	s, ok := r.structures[name]
	if !ok {
		return nil, &Error{Kind: UnknownStructure, Name: name}
	}
	var out []ResolvedAxiom
	r.resolve(s, identity(s), map[string]bool{}, &out)
	return out, nil
}

func identity(s *decl.Structure) map[string]ast.TypeExpr {
	m := map[string]ast.TypeExpr{}
	for _, p := range s.Params {
		m[p.Name] = ast.Named(p.Name)
	}
	return m
}

// applied maps the parameters of target to args rewritten under m
func applied(target *decl.Structure, args []ast.TypeExpr, m map[string]ast.TypeExpr) map[string]ast.TypeExpr {
	next := map[string]ast.TypeExpr{}
	for i, p := range target.Params {
		if i < len(args) {
			next[p.Name] = ast.SubstituteType(args[i], m)
		} else {
			next[p.Name] = ast.Named(p.Name)
		}
	}
	return next
}

// instance names a structure applied to its substituted parameters
func instance(s *decl.Structure, m map[string]ast.TypeExpr) string {
	args := make([]string, len(s.Params))
	for i, p := range s.Params {
		args[i] = m[p.Name].String()
	}
	return s.Name + "(" + strings.Join(args, ", ") + ")"
}

func (r *Registry) resolve(s *decl.Structure, m map[string]ast.TypeExpr, visited map[string]bool, out *[]ResolvedAxiom) {
	key := instance(s, m)
	if visited[key] {
		return
	}
	visited[key] = true

	var hypotheses []ast.Expr
	for _, w := range s.Where {
		if name, args, ok := r.structureConstraint(w); ok {
			target := r.structures[name]
			r.resolve(target, applied(target, args, m), visited, out)
			continue
		}
		hypotheses = append(hypotheses, ast.SubstituteTypes(w, m))
	}
	if s.Extends != nil {
		parent := r.structures[s.Extends.Name]
		r.resolve(parent, applied(parent, s.Extends.Args, m), visited, out)
	}
	if s.Over != nil {
		carrier := r.structures[s.Over.Name]
		r.resolve(carrier, applied(carrier, s.Over.Args, m), visited, out)
	}

	for _, ax := range s.Axioms {
		prop := ast.SubstituteTypes(ax.Prop, m)
		if len(hypotheses) > 0 {
			prop = ast.Apply("implies", conjoin(hypotheses), prop)
		}
		*out = append(*out, ResolvedAxiom{Structure: s.Name, Name: ax.Name, Prop: prop, Pos: ax.Pos})
	}
}

func conjoin(es []ast.Expr) ast.Expr {
	acc := es[0]
	for _, e := range es[1:] {
		acc = ast.Apply("and", acc, e)
	}
	return acc
}

// Dependencies returns the structures whose axioms a structure relies on,
// including itself, in resolution order.
func (r *Registry) Dependencies(name string) []string {
	var out []string
	seen := map[string]bool{}
	var visit func(string)
	visit = func(n string) {
		s, ok := r.structures[n]
		if !ok || seen[n] {
			return
		}
		seen[n] = true
		for _, ref := range r.referencedStructures(s) {
			visit(ref)
		}
		out = append(out, n)
	}
	visit(name)
	return out
}
