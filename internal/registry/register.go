package registry

import (
	"errors"
	"strconv"

	"github.com/lhaig/axiom/internal/adt"
	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/types"
)

// Register adds a structure. Its parent, carrier and where-structures must
// already be registered.
func (r *Registry) Register(s *decl.Structure) error {
	if _, ok := r.structures[s.Name]; ok {
		return &Error{Kind: DuplicateStructure, Name: s.Name, Pos: s.Pos}
	}
	for _, ref := range []*ast.TypeName{s.Extends, s.Over} {
		if ref == nil {
			continue
		}
		target, ok := r.structures[ref.Name]
		if !ok {
			return &Error{Kind: UnknownStructure, Structure: s.Name, Name: ref.Name, Pos: s.Pos}
		}
		if len(ref.Args) != len(target.Params) {
			return &Error{Kind: ArityMismatch, Structure: s.Name, Name: ref.Name, Pos: s.Pos,
				Detail: arity(len(target.Params), len(ref.Args))}
		}
	}

	seen := map[string]*decl.OpSig{}
	var ops []*decl.OpSig
	for _, op := range s.Operations {
		if prev, ok := seen[op.Name]; ok {
			if prev.Signature.String() == op.Signature.String() {
				continue
			}
			return &Error{Kind: DuplicateOperation, Structure: s.Name, Name: op.Name, Pos: op.Pos,
				Detail: "declared as " + prev.Signature.String() + " and " + op.Signature.String()}
		}
		if s.Extends != nil {
			if inherited, owner := r.Signature(s.Extends.Name, op.Name); inherited != nil && inherited.Arity() != op.Arity() {
				return &Error{Kind: DuplicateOperation, Structure: s.Name, Name: op.Name, Pos: op.Pos,
					Detail: "conflicts with " + owner.Name + "." + op.Name + " : " + inherited.Signature.String()}
			}
		}
		seen[op.Name] = op
		ops = append(ops, op)
	}

	stored := *s
	stored.Operations = ops
	if err := r.validateAxioms(&stored); err != nil {
		return err
	}
	for _, f := range s.Functions {
		if err := r.RegisterFunction(f); err != nil {
			return err
		}
	}

	r.structures[s.Name] = &stored
	r.order = append(r.order, s.Name)
	sc := r.paramScope(&stored)
	for _, op := range ops {
		params, result := r.SignatureTypes(op.Signature, sc)
		r.overloads[op.Name] = append(r.overloads[op.Name], &Overload{
			Op: op.Name, Params: params, Result: result, Owner: s.Name,
		})
		r.owners[op.Name] = append(r.owners[op.Name], s.Name)
	}
	for _, e := range s.Elements {
		r.elements[e.Name] = append(r.elements[e.Name], s.Name)
	}
	return nil
}

// validateAxioms rejects axioms mentioning names that are neither bound
// by a quantifier nor declared.
func (r *Registry) validateAxioms(s *decl.Structure) error {
	known := r.visibleNames(s)
	for _, ax := range s.Axioms {
		for _, v := range ast.FreeVars(ax.Prop) {
			if !known[v] {
				return &Error{Kind: UnboundAxiomVariable, Structure: s.Name, Name: v, Pos: ax.Pos,
					Detail: "in axiom " + ax.Name}
			}
		}
	}
	return nil
}

// visibleNames collects the identifiers an axiom of s may use freely:
// parameters, elements and operations along its extends/over/where
// structures, constructors, functions and free operations.
func (r *Registry) visibleNames(s *decl.Structure) map[string]bool {
	known := map[string]bool{}
	var visit func(*decl.Structure)
	visited := map[string]bool{}
	visit = func(s *decl.Structure) {
		if visited[s.Name] {
			return
		}
		visited[s.Name] = true
		for _, p := range s.Params {
			known[p.Name] = true
		}
		for _, e := range s.Elements {
			known[e.Name] = true
		}
		for _, op := range s.Operations {
			known[op.Name] = true
		}
		for _, f := range s.Functions {
			known[f.Name] = true
		}
		for _, ref := range r.referencedStructures(s) {
			if parent, ok := r.structures[ref]; ok {
				visit(parent)
			}
		}
	}
	visit(s)
	for _, d := range r.data.Types() {
		for _, v := range d.Variants {
			known[v.Name] = true
		}
	}
	for name := range r.functions {
		known[name] = true
	}
	for name := range r.operations {
		known[name] = true
	}
	return known
}

// referencedStructures lists extends, over and where-structure names
func (r *Registry) referencedStructures(s *decl.Structure) []string {
	var out []string
	if s.Extends != nil {
		out = append(out, s.Extends.Name)
	}
	if s.Over != nil {
		out = append(out, s.Over.Name)
	}
	for _, w := range s.Where {
		if name, _, ok := r.structureConstraint(w); ok {
			out = append(out, name)
		}
	}
	return out
}

// structureConstraint recognises a where clause that names a registered
// structure, either bare (Field) or applied (Field(F)).
func (r *Registry) structureConstraint(e ast.Expr) (string, []ast.TypeExpr, bool) {
	switch n := e.(type) {
	case *ast.Ident:
		if _, ok := r.structures[n.Name]; ok {
			return n.Name, nil, true
		}
	case *ast.Call:
		if _, ok := r.structures[n.Op]; !ok {
			return "", nil, false
		}
		args := make([]ast.TypeExpr, len(n.Args))
		for i, a := range n.Args {
			switch v := a.(type) {
			case *ast.Ident:
				args[i] = ast.Named(v.Name)
			case *ast.NumLit:
				args[i] = ast.Named(v.Text)
			default:
				return "", nil, false
			}
		}
		return n.Op, args, true
	}
	return "", nil, false
}

// RegisterWitness adds an implementation of a registered structure. Every
// operation the structure itself declares must have a body.
func (r *Registry) RegisterWitness(w *decl.Witness) error {
	s, ok := r.structures[w.Structure]
	if !ok {
		return &Error{Kind: UnknownStructure, Name: w.Structure, Pos: w.Pos}
	}
	if len(w.Args) != len(s.Params) {
		return &Error{Kind: ArityMismatch, Structure: s.Name, Name: "implements " + s.Name, Pos: w.Pos,
			Detail: arity(len(s.Params), len(w.Args))}
	}
	for _, op := range s.Operations {
		if w.Operation(op.Name) == nil {
			return &Error{Kind: MissingOperation, Structure: s.Name, Name: op.Name, Pos: w.Pos}
		}
	}
	for _, impl := range w.Operations {
		sig, _ := r.Signature(s.Name, impl.Name)
		if sig == nil {
			return &Error{Kind: UnknownMember, Structure: s.Name, Name: impl.Name, Pos: impl.Pos,
				Detail: "not an operation of the structure"}
		}
		if n := len(impl.Body.Params); n > 0 && n != sig.Arity() {
			return &Error{Kind: ArityMismatch, Structure: s.Name, Name: impl.Name, Pos: impl.Pos,
				Detail: arity(sig.Arity(), n)}
		}
	}
	for _, el := range w.Elements {
		if !r.hasElement(s, el.Name) {
			return &Error{Kind: UnknownMember, Structure: s.Name, Name: el.Name, Pos: el.Pos,
				Detail: "not an element of the structure"}
		}
	}

	args := make([]types.Type, len(w.Args))
	for i, a := range w.Args {
		args[i] = r.ToType(a, nil)
	}
	rw := &Witness{Decl: w, Structure: s, Args: args}

	// Walk the extends chain, rewriting each ancestor's parameters in
	// terms of the witness arguments.
	mapping := map[string]ast.TypeExpr{}
	for i, p := range s.Params {
		mapping[p.Name] = w.Args[i]
	}
	for cur := s; cur != nil; {
		for _, op := range cur.Operations {
			sig := ast.SubstituteType(op.Signature, mapping).(*ast.TypeFunc)
			params, result := r.SignatureTypes(sig, nil)
			r.overloads[op.Name] = append(r.overloads[op.Name], &Overload{
				Op: op.Name, Params: params, Result: result, Owner: cur.Name,
				Witness: rw, Body: rw.Body(op.Name),
			})
		}
		if cur.Extends == nil {
			break
		}
		parent := r.structures[cur.Extends.Name]
		next := map[string]ast.TypeExpr{}
		for i, p := range parent.Params {
			next[p.Name] = ast.SubstituteType(cur.Extends.Args[i], mapping)
		}
		cur, mapping = parent, next
	}
	r.witnesses = append(r.witnesses, rw)
	return nil
}

func (r *Registry) hasElement(s *decl.Structure, name string) bool {
	for _, c := range r.Chain(s.Name) {
		for _, e := range c.Elements {
			if e.Name == name {
				return true
			}
		}
	}
	return false
}

// RegisterData adds an algebraic data type
func (r *Registry) RegisterData(d *decl.Data) error {
	if _, ok := r.structures[d.Name]; ok {
		return &Error{Kind: DuplicateDefinition, Name: d.Name, Pos: d.Pos, Detail: "already a structure"}
	}
	if err := r.data.Register(d); err != nil {
		name := d.Name
		if errors.Is(err, adt.ErrDuplicateConstructor) {
			name = ""
		}
		return &Error{Kind: DuplicateDefinition, Name: name, Pos: d.Pos, Detail: err.Error(), Err: err}
	}
	return nil
}

// RegisterFunction adds a named definition
func (r *Registry) RegisterFunction(f *decl.Function) error {
	if _, ok := r.functions[f.Name]; ok {
		return &Error{Kind: DuplicateDefinition, Name: f.Name, Pos: f.Pos, Detail: "function already defined"}
	}
	if _, ok := r.data.Constructor(f.Name); ok {
		return &Error{Kind: DuplicateDefinition, Name: f.Name, Pos: f.Pos, Detail: "already a constructor"}
	}
	r.functions[f.Name] = f
	r.fnOrder = append(r.fnOrder, f.Name)
	return nil
}

// RegisterOperation adds a free operation signature. A name may be
// overloaded with different signatures but not redeclared identically.
func (r *Registry) RegisterOperation(op *decl.OpSig) error {
	for _, prev := range r.operations[op.Name] {
		if prev.Signature.String() == op.Signature.String() {
			return &Error{Kind: DuplicateOperation, Name: op.Name, Pos: op.Pos,
				Detail: "already declared as " + prev.Signature.String()}
		}
	}
	if _, ok := r.operations[op.Name]; !ok {
		r.opOrder = append(r.opOrder, op.Name)
	}
	r.operations[op.Name] = append(r.operations[op.Name], op)
	params, result := r.SignatureTypes(op.Signature, nil)
	r.overloads[op.Name] = append(r.overloads[op.Name], &Overload{Op: op.Name, Params: params, Result: result})
	return nil
}

func arity(want, got int) string {
	return "expected " + strconv.Itoa(want) + " arguments, got " + strconv.Itoa(got)
}
