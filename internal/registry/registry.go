// Package registry is the in-memory catalogue of structures, witnesses,
// data types, functions and free operations. It answers dispatch,
// signature and axiom-resolution queries for inference, evaluation and
// verification.
package registry

import (
	"fmt"
	"strings"

	"github.com/lhaig/axiom/internal/adt"
	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/types"
)

// Witness is a registered implementation of a structure for concrete
// type arguments.
type Witness struct {
	Decl      *decl.Witness
	Structure *decl.Structure
	Args      []types.Type
}

// Body returns the implementation of op, or nil when the witness inherits
// it without a body.
func (w *Witness) Body(op string) *decl.Body {
	if impl := w.Decl.Operation(op); impl != nil {
		return impl.Body
	}
	return nil
}

// Element returns the value the witness gives to a structure element
func (w *Witness) Element(name string) ast.Expr {
	for _, e := range w.Decl.Elements {
		if e.Name == name {
			return e.Value
		}
	}
	return nil
}

// String renders the witness head: Group(Scalar)
func (w *Witness) String() string {
	parts := make([]string, len(w.Args))
	for i, a := range w.Args {
		parts[i] = a.String()
	}
	return w.Structure.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Overload is one typed candidate for an operation name. Abstract
// overloads come from structure signatures with their parameters left as
// variables; witness overloads have the parameters fixed.
type Overload struct {
	Op      string
	Params  []types.Type
	Result  types.Type
	Owner   string   // declaring structure, empty for free operations
	Witness *Witness // nil for abstract and free overloads
	Body    *decl.Body
}

// Abstract reports whether the overload comes from a bare signature
func (o *Overload) Abstract() bool { return o.Witness == nil }

// String renders op : A × B → C [source]
func (o *Overload) String() string {
	parts := make([]string, len(o.Params))
	for i, p := range o.Params {
		parts[i] = p.String()
	}
	src := o.Owner
	if o.Witness != nil {
		src = o.Witness.String()
	}
	if src == "" {
		src = "operation"
	}
	return fmt.Sprintf("%s : %s → %s [%s]", o.Op, strings.Join(parts, " × "), o.Result, src)
}

// ElementInfo describes a structure element visible to inference
type ElementInfo struct {
	Owner string
	Decl  *decl.Element
	Type  types.Type
}

// Registry holds every registered declaration. It is not safe for
// concurrent mutation; sessions serialise loads against queries.
type Registry struct {
	structures map[string]*decl.Structure
	order      []string
	witnesses  []*Witness
	operations map[string][]*decl.OpSig
	opOrder    []string
	functions  map[string]*decl.Function
	fnOrder    []string
	data       *adt.Registry
	overloads  map[string][]*Overload
	owners     map[string][]string
	elements   map[string][]string
	loaded     map[string]bool
}

// New returns an empty registry
func New() *Registry {
	return &Registry{
		structures: map[string]*decl.Structure{},
		operations: map[string][]*decl.OpSig{},
		functions:  map[string]*decl.Function{},
		data:       adt.NewRegistry(),
		overloads:  map[string][]*Overload{},
		owners:     map[string][]string{},
		elements:   map[string][]string{},
		loaded:     map[string]bool{},
	}
}

// Clone returns a registry that can be extended without affecting r
func (r *Registry) Clone() *Registry {
	c := New()
	for k, v := range r.structures {
		c.structures[k] = v
	}
	c.order = append(c.order, r.order...)
	c.witnesses = append(c.witnesses, r.witnesses...)
	for k, v := range r.operations {
		c.operations[k] = append([]*decl.OpSig(nil), v...)
	}
	c.opOrder = append(c.opOrder, r.opOrder...)
	for k, v := range r.functions {
		c.functions[k] = v
	}
	c.fnOrder = append(c.fnOrder, r.fnOrder...)
	c.data = r.data.Clone()
	for k, v := range r.overloads {
		c.overloads[k] = append([]*Overload(nil), v...)
	}
	for k, v := range r.owners {
		c.owners[k] = append([]string(nil), v...)
	}
	for k, v := range r.elements {
		c.elements[k] = append([]string(nil), v...)
	}
	for k, v := range r.loaded {
		c.loaded[k] = v
	}
	return c
}

// Data returns the data type registry
func (r *Registry) Data() *adt.Registry { return r.data }

// Structure looks up a structure by name
func (r *Registry) Structure(name string) (*decl.Structure, bool) {
	s, ok := r.structures[name]
	return s, ok
}

// Structures returns all structures in registration order
func (r *Registry) Structures() []*decl.Structure {
	out := make([]*decl.Structure, len(r.order))
	for i, n := range r.order {
		out[i] = r.structures[n]
	}
	return out
}

// Witnesses returns every witness in registration order
func (r *Registry) Witnesses() []*Witness { return r.witnesses }

// WitnessesOf returns the witnesses of one structure
func (r *Registry) WitnessesOf(structure string) []*Witness {
	var out []*Witness
	for _, w := range r.witnesses {
		if w.Structure.Name == structure {
			out = append(out, w)
		}
	}
	return out
}

// Function looks up a defined function
func (r *Registry) Function(name string) (*decl.Function, bool) {
	f, ok := r.functions[name]
	return f, ok
}

// Functions returns the defined functions in registration order
func (r *Registry) Functions() []*decl.Function {
	out := make([]*decl.Function, len(r.fnOrder))
	for i, n := range r.fnOrder {
		out[i] = r.functions[n]
	}
	return out
}

// Operations returns the free (top-level) operation signatures named op
func (r *Registry) Operations(op string) []*decl.OpSig { return r.operations[op] }

// FreeOperations returns every free operation in registration order
func (r *Registry) FreeOperations() []*decl.OpSig {
	var out []*decl.OpSig
	for _, n := range r.opOrder {
		out = append(out, r.operations[n]...)
	}
	return out
}

// Overloads returns every candidate for an operation name
func (r *Registry) Overloads(op string) []*Overload { return r.overloads[op] }

// OperationOwners returns the structures that declare op themselves
func (r *Registry) OperationOwners(op string) []string { return r.owners[op] }

// ElementOwners returns the structures that declare an element
func (r *Registry) ElementOwners(name string) []string { return r.elements[name] }

// Elements returns every declaration of an element name, typed with the
// owner's parameters as variables.
func (r *Registry) Elements(name string) []ElementInfo {
	var out []ElementInfo
	for _, owner := range r.elements[name] {
		s := r.structures[owner]
		for _, e := range s.Elements {
			if e.Name == name {
				out = append(out, ElementInfo{Owner: owner, Decl: e, Type: r.ToType(e.Type, r.paramScope(s))})
			}
		}
	}
	return out
}

// Chain returns the structure followed by its extends ancestors
func (r *Registry) Chain(name string) []*decl.Structure {
	var out []*decl.Structure
	seen := map[string]bool{}
	for s, ok := r.structures[name]; ok && !seen[s.Name]; {
		seen[s.Name] = true
		out = append(out, s)
		if s.Extends == nil {
			break
		}
		s, ok = r.structures[s.Extends.Name]
	}
	return out
}

// Signature returns the declaration of op as seen from structure,
// searching its extends chain.
func (r *Registry) Signature(structure, op string) (*decl.OpSig, *decl.Structure) {
	for _, s := range r.Chain(structure) {
		if sig := s.Operation(op); sig != nil {
			return sig, s
		}
	}
	return nil, nil
}

func (r *Registry) paramScope(s *decl.Structure) *Scope {
	names := make([]string, len(s.Params))
	dims := map[string]bool{}
	for i, p := range s.Params {
		names[i] = p.Name
		if p.IsDim() {
			dims[p.Name] = true
		}
	}
	return ParamScope(names, dims)
}

// IsLoaded reports whether a program fingerprint was loaded
func (r *Registry) IsLoaded(fingerprint string) bool { return r.loaded[fingerprint] }
