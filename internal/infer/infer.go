// Package infer computes types of expressions against a registry of
// structures, witnesses and data types. Operations are resolved by
// overload dispatch with unification over scalar, vector, matrix and
// named types, including symbolic dimensions.
package infer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lhaig/axiom/internal/adt"
	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/registry"
	"github.com/lhaig/axiom/internal/types"
)

// Engine infers types. It only reads the registry, so one engine may
// serve concurrent queries as long as the registry is not mutated.
type Engine struct {
	reg *registry.Registry
}

// New creates an engine over reg
func New(reg *registry.Registry) *Engine {
	return &Engine{reg: reg}
}

// Result is the outcome of annotating an expression
type Result struct {
	Type  types.Type
	Types map[ast.Expr]types.Type
}

// TypeOf returns the inferred type of a sub-expression
func (r *Result) TypeOf(e ast.Expr) (types.Type, bool) {
	t, ok := r.Types[e]
	return t, ok
}

// state is the per-query inference state
type state struct {
	reg    *registry.Registry
	gen    types.Gen
	subst  *types.Subst
	record map[ast.Expr]types.Type
	active map[string]bool
}

func (e *Engine) newState() *state {
	return &state{
		reg:    e.reg,
		subst:  types.NewSubst(),
		record: map[ast.Expr]types.Type{},
		active: map[string]bool{},
	}
}

// Infer returns the most specific type of expr under ctx
func (e *Engine) Infer(expr ast.Expr, ctx *Context) (types.Type, error) {
	res, err := e.Annotate(expr, ctx)
	if err != nil {
		return types.Unknown(), err
	}
	return res.Type, nil
}

// Annotate infers expr and records the type of every sub-expression
func (e *Engine) Annotate(expr ast.Expr, ctx *Context) (*Result, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	st := e.newState()
	t, err := st.infer(expr, ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Type: st.subst.Apply(t), Types: make(map[ast.Expr]types.Type, len(st.record))}
	for n, nt := range st.record {
		res.Types[n] = st.subst.Apply(nt)
	}
	return res, nil
}

// ResolveOverload picks the overload of op that applies to the given
// argument types, with the same rules as inference of a call.
func (e *Engine) ResolveOverload(op string, args []types.Type) (*registry.Overload, types.Type, error) {
	st := e.newState()
	o, t, err := st.dispatch(op, args)
	if err != nil {
		return nil, types.Unknown(), err
	}
	return o, st.subst.Apply(t), nil
}

// Check reports whether expr is a proposition
func (e *Engine) Check(expr ast.Expr, ctx *Context) error {
	t, err := e.Infer(expr, ctx)
	if err != nil {
		return err
	}
	if !t.IsBool() && t.Kind != types.KindVar && t.Kind != types.KindUnknown {
		return &TypeError{Kind: IncompatibleTypes, Expected: []types.Type{types.Bool()}, Actual: []types.Type{t}, Detail: "expression is not a proposition"}
	}
	return nil
}

func (st *state) infer(e ast.Expr, ctx *Context) (types.Type, error) {
	t, err := st.inferNode(e, ctx)
	if err != nil {
		return t, err
	}
	st.record[e] = t
	return t, nil
}

func (st *state) inferNode(e ast.Expr, ctx *Context) (types.Type, error) {
	switch n := e.(type) {
	case *ast.NumLit:
		return types.Scalar(), nil
	case *ast.BoolLit:
		return types.Bool(), nil
	case *ast.Ident:
		return st.inferIdent(n, ctx)
	case *ast.Call:
		return st.inferCall(n, ctx)
	case *ast.Quantifier:
		inner := ctx
		for _, b := range n.Vars {
			var bt types.Type
			if b.Type != nil {
				bt = st.reg.ToType(b.Type, nil)
			} else {
				bt = st.gen.Fresh()
			}
			inner = inner.With(b.Name, bt)
		}
		if n.Where != nil {
			if err := st.expectBool(n.Where, inner, "where clause"); err != nil {
				return types.Unknown(), err
			}
		}
		if err := st.expectBool(n.Body, inner, "quantifier body"); err != nil {
			return types.Unknown(), err
		}
		return types.Bool(), nil
	case *ast.IfExpr:
		if err := st.expectBool(n.Cond, ctx, "if condition"); err != nil {
			return types.Unknown(), err
		}
		tt, err := st.infer(n.Then, ctx)
		if err != nil {
			return tt, err
		}
		et, err := st.infer(n.Else, ctx)
		if err != nil {
			return et, err
		}
		if err := st.subst.Unify(tt, et); err != nil {
			return types.Unknown(), st.mismatch(err, "if", tt, et)
		}
		return tt, nil
	case *ast.LetExpr:
		vt, err := st.infer(n.Value, ctx)
		if err != nil {
			return vt, err
		}
		if n.Type != nil {
			at := st.reg.ToType(n.Type, nil)
			if err := st.subst.Unify(at, vt); err != nil {
				return types.Unknown(), st.mismatch(err, n.Name, at, vt)
			}
		}
		return st.infer(n.Body, ctx.WithValue(n.Name, vt, n.Value))
	case *ast.MatchExpr:
		return st.inferMatch(n, ctx)
	}
	return types.Unknown(), fmt.Errorf("cannot infer type of %T", e)
}

func (st *state) expectBool(e ast.Expr, ctx *Context, what string) error {
	t, err := st.infer(e, ctx)
	if err != nil {
		return err
	}
	if err := st.subst.Unify(types.Bool(), t); err != nil {
		te := st.mismatch(err, "", types.Bool(), t)
		te.Detail = what + " must be Bool"
		return te
	}
	return nil
}

func (st *state) inferIdent(n *ast.Ident, ctx *Context) (types.Type, error) {
	if entry, ok := ctx.Lookup(n.Name); ok {
		return entry.Type, nil
	}
	if c, ok := st.reg.Data().Constructor(n.Name); ok && c.Nullary() {
		return st.dataType(c.Data), nil
	}
	if els := st.reg.Elements(n.Name); len(els) > 0 {
		return st.element(els), nil
	}
	if f, ok := st.reg.Function(n.Name); ok && len(f.Params) == 0 {
		return st.inferFunction(f, nil, ctx)
	}
	return types.Unknown(), &TypeError{Kind: UnboundSymbol, Symbol: n.Name, Detail: st.suggest(n.Name, ctx)}
}

// element types a structure element. An element declared by several
// structures gets the common type when all declarations agree, else a
// fresh variable.
func (st *state) element(els []registry.ElementInfo) types.Type {
	first := st.gen.Instantiate(els[0].Type)[0]
	trial := st.subst.Clone()
	for _, el := range els[1:] {
		if err := trial.Unify(first, st.gen.Instantiate(el.Type)[0]); err != nil {
			return st.gen.Fresh()
		}
	}
	return first
}

// dataType returns the named type of d with fresh variables for its
// parameters, and the scope binding those parameters.
func (st *state) dataType(d *decl.Data) types.Type {
	t, _ := st.dataScope(d)
	return t
}

func (st *state) dataScope(d *decl.Data) (types.Type, *registry.Scope) {
	sc := &registry.Scope{Types: map[string]types.Type{}, Dims: map[string]types.Dim{}}
	if len(d.Params) == 0 {
		return types.Named(d.Name), sc
	}
	args := make([]types.Type, 0, len(d.Params))
	for _, p := range d.Params {
		if p.IsDim() {
			sc.Dims[p.Name] = st.gen.FreshDim()
			continue
		}
		v := st.gen.Fresh()
		sc.Types[p.Name] = v
		args = append(args, v)
	}
	return types.Named(d.Name, args...), sc
}

func (st *state) inferArgs(args []ast.Expr, ctx *Context) ([]types.Type, error) {
	out := make([]types.Type, len(args))
	for i, a := range args {
		t, err := st.infer(a, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (st *state) inferCall(n *ast.Call, ctx *Context) (types.Type, error) {
	if c, ok := st.reg.Data().Constructor(n.Op); ok {
		return st.inferConstructor(c, n, ctx)
	}
	args, err := st.inferArgs(n.Args, ctx)
	if err != nil {
		return types.Unknown(), err
	}
	switch n.Op {
	case "equals", "neq":
		if len(args) != 2 {
			return types.Unknown(), &TypeError{Kind: NoMatchingOverload, Symbol: n.Op, Actual: st.applyAll(args), Detail: "expects 2 arguments"}
		}
		if err := st.subst.Unify(args[0], args[1]); err != nil {
			return types.Unknown(), st.mismatch(err, n.Op, args[0], args[1])
		}
		return types.Bool(), nil
	}
	if f, ok := st.reg.Function(n.Op); ok {
		return st.inferFunction(f, args, ctx)
	}
	if entry, ok := ctx.Lookup(n.Op); ok {
		return types.Unknown(), &TypeError{Kind: IncompatibleTypes, Symbol: n.Op, Actual: []types.Type{st.subst.Apply(entry.Type)}, Detail: "not an operation"}
	}
	_, t, err := st.dispatch(n.Op, args)
	return t, err
}

func (st *state) inferConstructor(c *adt.Constructor, n *ast.Call, ctx *Context) (types.Type, error) {
	if len(n.Args) != c.Arity() {
		return types.Unknown(), &TypeError{Kind: IncompatibleTypes, Symbol: c.Name,
			Detail: fmt.Sprintf("constructor expects %d arguments, got %d", c.Arity(), len(n.Args))}
	}
	dt, sc := st.dataScope(c.Data)
	for i, a := range n.Args {
		at, err := st.infer(a, ctx)
		if err != nil {
			return at, err
		}
		ft := st.reg.ToType(c.Variant.Fields[i].Type, sc)
		if err := st.subst.Unify(ft, at); err != nil {
			te := st.mismatch(err, c.Name, ft, at)
			te.Detail = "field " + c.FieldName(i)
			return types.Unknown(), te
		}
	}
	return dt, nil
}

// inferFunction types a call of a defined function by checking its body
// with the parameters bound to the argument types. A recursive call
// inside the body takes the declared result type, or a fresh variable
// that the enclosing inference then constrains.
func (st *state) inferFunction(f *decl.Function, args []types.Type, ctx *Context) (types.Type, error) {
	if len(args) != len(f.Params) {
		return types.Unknown(), &TypeError{Kind: NoMatchingOverload, Symbol: f.Name, Actual: st.applyAll(args),
			Detail: fmt.Sprintf("expects %d arguments, got %d", len(f.Params), len(args))}
	}
	for i, p := range f.Params {
		if p.Type == nil {
			continue
		}
		pt := st.reg.ToType(p.Type, nil)
		if err := st.subst.Unify(pt, args[i]); err != nil {
			te := st.mismatch(err, f.Name, pt, args[i])
			te.Detail = "parameter " + p.Name
			return types.Unknown(), te
		}
	}
	var declared types.Type
	if f.Result != nil {
		declared = st.reg.ToType(f.Result, nil)
	}
	if st.active[f.Name] {
		if f.Result != nil {
			return declared, nil
		}
		return st.gen.Fresh(), nil
	}
	st.active[f.Name] = true
	defer delete(st.active, f.Name)

	inner := NewContext()
	for i, p := range f.Params {
		inner = inner.With(p.Name, args[i])
	}
	bt, err := st.infer(f.Body, inner)
	if err != nil {
		return bt, err
	}
	if f.Result != nil {
		if err := st.subst.Unify(declared, bt); err != nil {
			te := st.mismatch(err, f.Name, declared, bt)
			te.Detail = "result"
			return types.Unknown(), te
		}
	}
	return bt, nil
}

func (st *state) inferMatch(n *ast.MatchExpr, ctx *Context) (types.Type, error) {
	scrut, err := st.infer(n.Scrutinee, ctx)
	if err != nil {
		return scrut, err
	}
	result := st.gen.Fresh()
	for _, c := range n.Cases {
		inner, err := st.bindPattern(c.Pattern, scrut, ctx)
		if err != nil {
			return types.Unknown(), err
		}
		if c.Guard != nil {
			if err := st.expectBool(c.Guard, inner, "match guard"); err != nil {
				return types.Unknown(), err
			}
		}
		bt, err := st.infer(c.Body, inner)
		if err != nil {
			return bt, err
		}
		if err := st.subst.Unify(result, bt); err != nil {
			te := st.mismatch(err, "match", result, bt)
			te.Detail = "match arms disagree"
			return types.Unknown(), te
		}
	}
	return result, nil
}

func (st *state) bindPattern(p ast.Pattern, t types.Type, ctx *Context) (*Context, error) {
	switch n := p.(type) {
	case *ast.Wildcard:
		return ctx, nil
	case *ast.PVar:
		if c, ok := st.reg.Data().Constructor(n.Name); ok && c.Nullary() {
			return st.bindPattern(&ast.PCtor{Name: n.Name}, t, ctx)
		}
		return ctx.With(n.Name, t), nil
	case *ast.PAs:
		inner, err := st.bindPattern(n.Pattern, t, ctx)
		if err != nil {
			return nil, err
		}
		return inner.With(n.Name, t), nil
	case *ast.PLit:
		lt, err := st.infer(n.Value, ctx)
		if err != nil {
			return nil, err
		}
		if err := st.subst.Unify(t, lt); err != nil {
			return nil, st.mismatch(err, n.String(), t, lt)
		}
		return ctx, nil
	case *ast.PCtor:
		c, ok := st.reg.Data().Constructor(n.Name)
		if !ok {
			return nil, &TypeError{Kind: UnboundSymbol, Symbol: n.Name, Detail: "unknown constructor in pattern"}
		}
		if len(n.Args) != c.Arity() {
			return nil, &TypeError{Kind: IncompatibleTypes, Symbol: n.Name,
				Detail: fmt.Sprintf("constructor expects %d arguments, pattern has %d", c.Arity(), len(n.Args))}
		}
		dt, sc := st.dataScope(c.Data)
		if err := st.subst.Unify(t, dt); err != nil {
			return nil, st.mismatch(err, n.Name, t, dt)
		}
		inner := ctx
		for i, a := range n.Args {
			ft := st.reg.ToType(c.Variant.Fields[i].Type, sc)
			next, err := st.bindPattern(a, ft, inner)
			if err != nil {
				return nil, err
			}
			inner = next
		}
		return inner, nil
	}
	return nil, fmt.Errorf("unsupported pattern %T", p)
}

// candidate is an overload that unified with the arguments
type candidate struct {
	overload *registry.Overload
	subst    *types.Subst
	result   types.Type
}

// dispatch resolves op against the argument types. Each overload is
// instantiated fresh and tried on a copy of the substitution. When
// several apply, concrete overloads win over abstract ones; if the
// remaining results still disagree the call is ambiguous.
func (st *state) dispatch(op string, args []types.Type) (*registry.Overload, types.Type, error) {
	cands := append(append([]*registry.Overload{}, prelude[op]...), st.reg.Overloads(op)...)
	if len(cands) == 0 {
		return nil, types.Unknown(), &TypeError{Kind: UnboundSymbol, Symbol: op, Detail: "unknown operation"}
	}
	var matches []candidate
	var dimFail, cycFail *types.Mismatch
	var dimExpected []types.Type
	for _, o := range cands {
		if len(o.Params) != len(args) {
			continue
		}
		inst := st.gen.Instantiate(append(append([]types.Type{}, o.Params...), o.Result)...)
		s := st.subst.Clone()
		var failed error
		for i := range args {
			if err := s.Unify(inst[i], args[i]); err != nil {
				failed = err
				break
			}
		}
		if failed == nil {
			matches = append(matches, candidate{overload: o, subst: s, result: inst[len(inst)-1]})
			continue
		}
		var mm *types.Mismatch
		if errors.As(failed, &mm) {
			switch mm.Kind {
			case types.DimMismatch:
				if dimFail == nil {
					dimFail = mm
					dimExpected = make([]types.Type, len(args))
					for i := range args {
						dimExpected[i] = s.Apply(inst[i])
					}
				}
			case types.OccursMismatch:
				cycFail = mm
			}
		}
	}

	switch len(matches) {
	case 0:
		switch {
		case dimFail != nil:
			return nil, types.Unknown(), &TypeError{Kind: DimensionMismatch, Symbol: op, Expected: dimExpected, Actual: st.applyAll(args), Detail: dimFail.Detail}
		case cycFail != nil:
			return nil, types.Unknown(), &TypeError{Kind: CyclicType, Symbol: op, Detail: cycFail.Error()}
		}
		return nil, types.Unknown(), &TypeError{Kind: NoMatchingOverload, Symbol: op, Actual: st.applyAll(args), Candidates: describe(cands)}
	case 1:
		st.subst = matches[0].subst
		return matches[0].overload, matches[0].result, nil
	}

	chosen := concrete(matches)
	trial := chosen[0].subst.Clone()
	for _, m := range chosen[1:] {
		if err := trial.Unify(chosen[0].result, m.subst.Apply(m.result)); err != nil {
			applicable := make([]*registry.Overload, len(chosen))
			for i, c := range chosen {
				applicable[i] = c.overload
			}
			return nil, types.Unknown(), &TypeError{Kind: AmbiguousType, Symbol: op, Actual: st.applyAll(args), Candidates: describe(applicable),
				Detail: "several overloads apply with different result types"}
		}
	}
	st.subst = chosen[0].subst
	return chosen[0].overload, chosen[0].result, nil
}

// concrete drops abstract overloads when a concrete one also matched
func concrete(ms []candidate) []candidate {
	var out []candidate
	for _, m := range ms {
		if !m.overload.Abstract() || m.overload.Owner == "prelude" || m.overload.Owner == "" {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return ms
	}
	return out
}

func describe(overloads []*registry.Overload) []string {
	out := make([]string, len(overloads))
	for i, o := range overloads {
		out[i] = o.String()
	}
	return out
}

func (st *state) applyAll(ts []types.Type) []types.Type {
	out := make([]types.Type, len(ts))
	for i, t := range ts {
		out[i] = st.subst.Apply(t)
	}
	return out
}

// mismatch converts a unification failure into a TypeError
func (st *state) mismatch(err error, symbol string, expected, actual types.Type) *TypeError {
	te := &TypeError{Kind: IncompatibleTypes, Symbol: symbol,
		Expected: []types.Type{st.subst.Apply(expected)}, Actual: []types.Type{st.subst.Apply(actual)}}
	var mm *types.Mismatch
	if errors.As(err, &mm) {
		switch mm.Kind {
		case types.DimMismatch:
			te.Kind = DimensionMismatch
			te.Detail = mm.Detail
		case types.OccursMismatch:
			te.Kind = CyclicType
			te.Detail = mm.Error()
		}
	}
	return te
}

// suggest names visible symbols close to an unbound name
func (st *state) suggest(name string, ctx *Context) string {
	var close []string
	for _, n := range ctx.Names() {
		if strings.EqualFold(n, name) || (len(n) > 2 && strings.HasPrefix(name, n[:len(n)-1])) {
			close = append(close, n)
		}
	}
	if len(close) == 0 {
		return ""
	}
	return "did you mean " + strings.Join(close, " or ") + "?"
}
