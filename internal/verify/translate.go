package verify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lhaig/axiom/internal/adt"
	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/registry"
	"github.com/lhaig/axiom/internal/smt"
)

// ErrNonExhaustive is returned when non-exhaustive matches are rejected
var ErrNonExhaustive = errors.New("non-exhaustive match")

// MatchError reports the cases a rejected match does not cover
type MatchError struct {
	Match   string
	Missing []string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("non-exhaustive match %s: missing %s", e.Match, strings.Join(e.Missing, ", "))
}

func (e *MatchError) Unwrap() error { return ErrNonExhaustive }

var arithmetic = map[string]string{
	"plus":   "+",
	"minus":  "-",
	"times":  "*",
	"divide": "/",
}

var comparison = map[string]string{
	"less_than":    "<",
	"greater_than": ">",
	"leq":          "<=",
	"geq":          ">=",
}

// maxUnrolledPower bounds the literal exponents expanded into products
const maxUnrolledPower = 16

// env maps bound names to solver terms
type env map[string]smt.Term

func (e env) with(name string, t smt.Term) env {
	next := make(env, len(e)+1)
	for k, v := range e {
		next[k] = v
	}
	next[name] = t
	return next
}

// translator turns expressions into solver terms, declaring the
// constants and functions they need in out.
type translator struct {
	reg      *registry.Registry
	data     *adt.Registry
	out      smt.Solver
	sym      *symbols
	reject   bool
	free     []string
	inlining map[string]bool
}

func newTranslator(reg *registry.Registry, out smt.Solver, sym *symbols, reject bool) *translator {
	return &translator{
		reg:      reg,
		data:     reg.Data(),
		out:      out,
		sym:      sym,
		reject:   reject,
		inlining: map[string]bool{},
	}
}

// formula translates a proposition
func (t *translator) formula(e ast.Expr) (smt.Term, error) {
	bt := smt.Bool
	term, err := t.expr(e, env{}, &bt)
	if err != nil {
		return nil, err
	}
	if term.Sort() != smt.Bool {
		return nil, fmt.Errorf("%s is not a proposition (sort %s)", e, term.Sort().Name)
	}
	return term, nil
}

// expr translates e. want, when set, is the sort the context expects;
// it guides free constants and Int operands are coerced to Real.
func (t *translator) expr(e ast.Expr, en env, want *smt.Sort) (smt.Term, error) {
	term, err := t.translate(e, en, want)
	if err != nil {
		return nil, err
	}
	if want != nil && *want == smt.Real && term.Sort() == smt.Int {
		term = smt.ToReal(term)
	}
	return term, nil
}

func (t *translator) translate(e ast.Expr, en env, want *smt.Sort) (smt.Term, error) {
	switch n := e.(type) {
	case *ast.NumLit, *ast.BoolLit:
		return adt.LiteralTerm(n)
	case *ast.Ident:
		return t.ident(n.Name, en, want)
	case *ast.Call:
		return t.call(n, en, want)
	case *ast.Quantifier:
		return t.quantifier(n, en)
	case *ast.IfExpr:
		bt := smt.Bool
		c, err := t.expr(n.Cond, en, &bt)
		if err != nil {
			return nil, err
		}
		if want == nil {
			if s, ok := t.hint(n.Then, en); ok {
				want = &s
			} else if s, ok := t.hint(n.Else, en); ok {
				want = &s
			}
		}
		th, err := t.expr(n.Then, en, want)
		if err != nil {
			return nil, err
		}
		el, err := t.expr(n.Else, en, want)
		if err != nil {
			return nil, err
		}
		th, el = numericJoin(th, el)
		if th.Sort() != el.Sort() {
			return nil, fmt.Errorf("branches of %s have sorts %s and %s", n, th.Sort().Name, el.Sort().Name)
		}
		return smt.IteT(c, th, el), nil
	case *ast.LetExpr:
		var vw *smt.Sort
		if n.Type != nil {
			s := t.data.SortOf(n.Type)
			vw = &s
		}
		v, err := t.expr(n.Value, en, vw)
		if err != nil {
			return nil, err
		}
		return t.expr(n.Body, en.with(n.Name, v), want)
	case *ast.MatchExpr:
		return t.match(n, en, want)
	}
	return nil, fmt.Errorf("cannot translate %T", e)
}

func (t *translator) ident(name string, en env, want *smt.Sort) (smt.Term, error) {
	if term, ok := en[name]; ok {
		return term, nil
	}
	if c, ok := t.data.Constructor(name); ok && c.Nullary() {
		return c.Term(), nil
	}
	if f, ok := t.reg.Function(name); ok && len(f.Params) == 0 {
		return t.function(f, nil, en, want)
	}
	sort := smt.Int
	if els := t.reg.Elements(name); len(els) > 0 {
		if s, ok := t.concreteSort(els[0].Decl.Type); ok {
			sort = s
		} else if want != nil {
			sort = *want
		}
		got, _, err := t.sym.constant(t.out, name, sort)
		if err != nil {
			return nil, fmt.Errorf("declaring element %s: %w", name, err)
		}
		return smt.Var(name, got), nil
	}
	if want != nil {
		sort = *want
	}
	got, fresh, err := t.sym.constant(t.out, name, sort)
	if err != nil {
		return nil, fmt.Errorf("declaring %s: %w", name, err)
	}
	if fresh {
		t.free = append(t.free, name)
	}
	return smt.Var(name, got), nil
}

func (t *translator) call(n *ast.Call, en env, want *smt.Sort) (smt.Term, error) {
	if c, ok := t.data.Constructor(n.Op); ok {
		return t.constructor(c, n, en)
	}
	switch n.Op {
	case "and", "or":
		args, err := t.propositions(n.Args, en)
		if err != nil {
			return nil, err
		}
		if n.Op == "and" {
			return smt.And(args...), nil
		}
		return smt.Or(args...), nil
	case "not":
		args, err := t.propositions(n.Args, en)
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("not expects one argument")
		}
		return smt.Not(args[0]), nil
	case "implies", "iff":
		args, err := t.propositions(n.Args, en)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("%s expects two arguments", n.Op)
		}
		if n.Op == "implies" {
			return smt.Implies(args[0], args[1]), nil
		}
		return smt.Eq(args[0], args[1]), nil
	case "equals", "neq":
		eq, err := t.equality(n, en)
		if err != nil {
			return nil, err
		}
		if n.Op == "neq" {
			return smt.Not(eq), nil
		}
		return eq, nil
	}
	if f, ok := t.reg.Function(n.Op); ok {
		return t.function(f, n.Args, en, want)
	}
	if _, ok := arithmetic[n.Op]; ok && t.numeric(n.Args, en) {
		return t.arithmetic(n, en, want)
	}
	if _, ok := comparison[n.Op]; ok && t.numeric(n.Args, en) {
		return t.compare(n, en)
	}
	if (n.Op == "negate" || n.Op == "power") && t.numeric(n.Args, en) {
		return t.arithmetic(n, en, want)
	}
	return t.operation(n, en, want)
}

func (t *translator) propositions(args []ast.Expr, en env) ([]smt.Term, error) {
	bt := smt.Bool
	out := make([]smt.Term, len(args))
	for i, a := range args {
		term, err := t.expr(a, en, &bt)
		if err != nil {
			return nil, err
		}
		if term.Sort() != smt.Bool {
			return nil, fmt.Errorf("%s is not a proposition", a)
		}
		out[i] = term
	}
	return out, nil
}

// numeric reports whether no argument is known to be non-numeric
func (t *translator) numeric(args []ast.Expr, en env) bool {
	for _, a := range args {
		if s, ok := t.hint(a, en); ok && !s.IsNumeric() {
			return false
		}
	}
	return true
}

// numericSort is Real when the context or any operand is Real
func (t *translator) numericSort(args []ast.Expr, en env, want *smt.Sort) smt.Sort {
	if want != nil && *want == smt.Real {
		return smt.Real
	}
	for _, a := range args {
		if s, ok := t.hint(a, en); ok && s == smt.Real {
			return smt.Real
		}
	}
	return smt.Int
}

func (t *translator) numericArgs(args []ast.Expr, en env, sort smt.Sort) ([]smt.Term, smt.Sort, error) {
	out := make([]smt.Term, len(args))
	anyReal := sort == smt.Real
	for i, a := range args {
		term, err := t.expr(a, en, &sort)
		if err != nil {
			return nil, sort, err
		}
		if !term.Sort().IsNumeric() {
			return nil, sort, fmt.Errorf("%s is not numeric", a)
		}
		if term.Sort() == smt.Real {
			anyReal = true
		}
		out[i] = term
	}
	if anyReal {
		for i := range out {
			out[i] = smt.ToReal(out[i])
		}
		return out, smt.Real, nil
	}
	return out, smt.Int, nil
}

func (t *translator) arithmetic(n *ast.Call, en env, want *smt.Sort) (smt.Term, error) {
	sort := t.numericSort(n.Args, en, want)
	if n.Op == "divide" {
		sort = smt.Real
	}
	args, sort, err := t.numericArgs(n.Args, en, sort)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "negate":
		if len(args) != 1 {
			return nil, fmt.Errorf("negate expects one argument")
		}
		return smt.Call("-", sort, args[0]), nil
	case "power":
		if len(args) != 2 {
			return nil, fmt.Errorf("power expects two arguments")
		}
		return power(n.Args[1], args[0], args[1], sort), nil
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("%s expects two arguments", n.Op)
	}
	return smt.Call(arithmetic[n.Op], sort, args...), nil
}

// power expands small literal exponents into products and leaves the
// rest to the solver's nonlinear ^.
func power(exp ast.Expr, base, expTerm smt.Term, sort smt.Sort) smt.Term {
	if lit, ok := exp.(*ast.NumLit); ok {
		if k, err := strconv.Atoi(lit.Text); err == nil && k >= 0 && k <= maxUnrolledPower {
			if k == 0 {
				if sort == smt.Real {
					return smt.ToReal(smt.Int64(1))
				}
				return smt.Int64(1)
			}
			if k == 1 {
				return base
			}
			factors := make([]smt.Term, k)
			for i := range factors {
				factors[i] = base
			}
			return smt.Call("*", sort, factors...)
		}
	}
	return smt.Call("^", smt.Real, smt.ToReal(base), smt.ToReal(expTerm))
}

func (t *translator) compare(n *ast.Call, en env) (smt.Term, error) {
	if len(n.Args) != 2 {
		return nil, fmt.Errorf("%s expects two arguments", n.Op)
	}
	args, _, err := t.numericArgs(n.Args, en, t.numericSort(n.Args, en, nil))
	if err != nil {
		return nil, err
	}
	return smt.Call(comparison[n.Op], smt.Bool, args...), nil
}

func (t *translator) equality(n *ast.Call, en env) (smt.Term, error) {
	if len(n.Args) != 2 {
		return nil, fmt.Errorf("%s expects two arguments", n.Op)
	}
	var want *smt.Sort
	for _, a := range n.Args {
		if s, ok := t.hint(a, en); ok {
			if want == nil || s == smt.Real && *want == smt.Int {
				s := s
				want = &s
			}
		}
	}
	l, err := t.expr(n.Args[0], en, want)
	if err != nil {
		return nil, err
	}
	if want == nil {
		s := l.Sort()
		want = &s
	}
	r, err := t.expr(n.Args[1], en, want)
	if err != nil {
		return nil, err
	}
	l, r = numericJoin(l, r)
	if l.Sort() != r.Sort() {
		return nil, fmt.Errorf("cannot compare %s (sort %s) with %s (sort %s)", n.Args[0], l.Sort().Name, n.Args[1], r.Sort().Name)
	}
	if t.distinctIdentities(l, r) {
		return smt.False, nil
	}
	return smt.Eq(l, r), nil
}

// distinctIdentities reports whether a and b are different nullary
// constructors, which are distinct by construction.
func (t *translator) distinctIdentities(a, b smt.Term) bool {
	x, ok1 := a.(*smt.App)
	y, ok2 := b.(*smt.App)
	if !ok1 || !ok2 || len(x.Args) != 0 || len(y.Args) != 0 || x.Fn == y.Fn {
		return false
	}
	cx, okx := t.data.Constructor(x.Fn)
	cy, oky := t.data.Constructor(y.Fn)
	return okx && oky && cx.Nullary() && cy.Nullary()
}

// numericJoin coerces an Int/Real pair to Real
func numericJoin(a, b smt.Term) (smt.Term, smt.Term) {
	if a.Sort() == smt.Real && b.Sort() == smt.Int {
		return a, smt.ToReal(b)
	}
	if a.Sort() == smt.Int && b.Sort() == smt.Real {
		return smt.ToReal(a), b
	}
	return a, b
}

func (t *translator) constructor(c *adt.Constructor, n *ast.Call, en env) (smt.Term, error) {
	if len(n.Args) != c.Arity() {
		return nil, fmt.Errorf("constructor %s expects %d arguments, got %d", c.Name, c.Arity(), len(n.Args))
	}
	args := make([]smt.Term, len(n.Args))
	for i, a := range n.Args {
		fs := t.data.SortOf(c.Variant.Fields[i].Type)
		term, err := t.expr(a, en, &fs)
		if err != nil {
			return nil, err
		}
		if term.Sort() != fs {
			return nil, fmt.Errorf("field %s of %s expects sort %s, got %s", c.FieldName(i), c.Name, fs.Name, term.Sort().Name)
		}
		args[i] = term
	}
	return c.Term(args...), nil
}

// signature finds the declared signature of an operation name
func (t *translator) signature(op string) *ast.TypeFunc {
	if sigs := t.reg.Operations(op); len(sigs) == 1 {
		return sigs[0].Signature
	}
	for _, owner := range t.reg.OperationOwners(op) {
		if sig, _ := t.reg.Signature(owner, op); sig != nil {
			return sig.Signature
		}
	}
	return nil
}

// concreteSort returns the sort of a type annotation when it names a
// number, boolean or data type rather than a type variable.
func (t *translator) concreteSort(te ast.TypeExpr) (smt.Sort, bool) {
	tn, ok := te.(*ast.TypeName)
	if !ok {
		return smt.Sort{}, false
	}
	s := t.data.SortOf(tn)
	if s != smt.Int || registry.IsScalarName(tn.Name) {
		return s, true
	}
	return smt.Sort{}, false
}

// operation translates a structure or free operation to an
// uninterpreted function. Sorts of type-variable parameters are taken
// from the arguments bound to them.
func (t *translator) operation(n *ast.Call, en env, want *smt.Sort) (smt.Term, error) {
	sig := t.signature(n.Op)
	if sig == nil && t.reg.Overloads(n.Op) == nil {
		return nil, fmt.Errorf("unknown operation %s", n.Op)
	}
	bound := map[string]smt.Sort{}
	args := make([]smt.Term, len(n.Args))
	domain := make([]smt.Sort, len(n.Args))
	for i, a := range n.Args {
		var aw *smt.Sort
		var varName string
		if sig != nil && i < len(sig.Params) {
			if s, ok := t.concreteSort(sig.Params[i]); ok {
				aw = &s
			} else if tn, ok := sig.Params[i].(*ast.TypeName); ok {
				varName = tn.Name
				if s, ok := bound[varName]; ok {
					aw = &s
				}
			}
		}
		if aw == nil && varName != "" {
			if s, ok := t.hint(a, en); ok {
				aw = &s
			}
		}
		term, err := t.expr(a, en, aw)
		if err != nil {
			return nil, err
		}
		if varName != "" {
			if _, ok := bound[varName]; !ok {
				bound[varName] = term.Sort()
			}
		}
		args[i] = term
		domain[i] = term.Sort()
	}
	rng := smt.Int
	switch {
	case sig == nil && want != nil:
		rng = *want
	case sig != nil:
		if s, ok := t.concreteSort(sig.Result); ok {
			rng = s
		} else if tn, ok := sig.Result.(*ast.TypeName); ok {
			if s, ok := bound[tn.Name]; ok {
				rng = s
			} else if want != nil {
				rng = *want
			}
		}
	}
	sym, err := t.sym.op(t.out, n.Op, domain, rng)
	if err != nil {
		return nil, fmt.Errorf("declaring operation %s: %w", n.Op, err)
	}
	return smt.Call(sym, rng, args...), nil
}

// function inlines non-recursive definitions and declares recursive ones
// as uninterpreted functions constrained by a definitional axiom.
func (t *translator) function(f *decl.Function, argExprs []ast.Expr, en env, want *smt.Sort) (smt.Term, error) {
	if len(argExprs) != len(f.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", f.Name, len(f.Params), len(argExprs))
	}
	args := make([]smt.Term, len(argExprs))
	for i, a := range argExprs {
		var aw *smt.Sort
		if f.Params[i].Type != nil {
			s := t.data.SortOf(f.Params[i].Type)
			aw = &s
		}
		term, err := t.expr(a, en, aw)
		if err != nil {
			return nil, err
		}
		args[i] = term
	}
	if !f.IsRecursive() && !t.inlining[f.Name] {
		t.inlining[f.Name] = true
		defer delete(t.inlining, f.Name)
		inner := env{}
		for i, p := range f.Params {
			inner = inner.with(p.Name, args[i])
		}
		if want == nil && f.Result != nil {
			s := t.data.SortOf(f.Result)
			want = &s
		}
		return t.expr(f.Body, inner, want)
	}
	fn, err := t.recursive(f, args, want)
	if err != nil {
		return nil, err
	}
	for i := range args {
		if fn.domain[i] == smt.Real {
			args[i] = smt.ToReal(args[i])
		}
	}
	return smt.Call(fn.symbol, fn.rng, args...), nil
}

func (t *translator) recursive(f *decl.Function, args []smt.Term, want *smt.Sort) (*function, error) {
	if fn, ok := t.sym.fns[f.Name]; ok {
		return fn, nil
	}
	fn := &function{symbol: f.Name, domain: make([]smt.Sort, len(f.Params)), rng: smt.Int}
	vars := make([]*smt.Const, len(f.Params))
	inner := env{}
	for i, p := range f.Params {
		fn.domain[i] = args[i].Sort()
		if p.Type != nil {
			fn.domain[i] = t.data.SortOf(p.Type)
		}
		vars[i] = smt.Var(p.Name, fn.domain[i])
		inner = inner.with(p.Name, vars[i])
	}
	switch {
	case f.Result != nil:
		fn.rng = t.data.SortOf(f.Result)
	case want != nil:
		fn.rng = *want
	default:
		if s, ok := t.hint(f.Body, inner); ok {
			fn.rng = s
		}
	}
	if t.out.Declared(fn.symbol) {
		fn.symbol = "fn." + f.Name
	}
	if err := t.out.DeclareFun(fn.symbol, fn.domain, fn.rng); err != nil {
		return nil, fmt.Errorf("declaring function %s: %w", f.Name, err)
	}
	t.sym.fns[f.Name] = fn

	body, err := t.expr(f.Body, inner, &fn.rng)
	if err != nil {
		return nil, fmt.Errorf("translating %s: %w", f.Name, err)
	}
	if body.Sort() != fn.rng {
		return nil, fmt.Errorf("body of %s has sort %s, expected %s", f.Name, body.Sort().Name, fn.rng.Name)
	}
	app := smt.Call(fn.symbol, fn.rng, constTerms(vars)...)
	if err := t.out.Assert(smt.Forall(vars, smt.Eq(app, body))); err != nil {
		return nil, err
	}
	return fn, nil
}

func constTerms(vs []*smt.Const) []smt.Term {
	out := make([]smt.Term, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func (t *translator) quantifier(q *ast.Quantifier, en env) (smt.Term, error) {
	vars := make([]*smt.Const, len(q.Vars))
	inner := en
	for i, b := range q.Vars {
		var sort smt.Sort
		if b.Type != nil {
			sort = t.data.SortOf(b.Type)
		} else {
			sort = t.usage(b.Name, q, inner)
		}
		vars[i] = smt.Var(b.Name, sort)
		inner = inner.with(b.Name, vars[i])
	}
	bt := smt.Bool
	body, err := t.expr(q.Body, inner, &bt)
	if err != nil {
		return nil, err
	}
	if q.Where != nil {
		cond, err := t.expr(q.Where, inner, &bt)
		if err != nil {
			return nil, err
		}
		if q.Kind == ast.ForAll {
			body = smt.Implies(cond, body)
		} else {
			body = smt.And(cond, body)
		}
	}
	if q.Kind == ast.Exists {
		return smt.Exists(vars, body), nil
	}
	return smt.Forall(vars, body), nil
}

// usage guesses the sort of an unannotated binder from the places it is
// used: constructor fields, typed operation parameters and comparisons
// with terms of known sort. Int is the default.
func (t *translator) usage(name string, q *ast.Quantifier, en env) smt.Sort {
	found := smt.Int
	done := false
	ast.Walk(q, func(e ast.Expr) bool {
		c, ok := e.(*ast.Call)
		if done || !ok {
			return !done
		}
		for i, a := range c.Args {
			id, ok := a.(*ast.Ident)
			if !ok || id.Name != name {
				continue
			}
			if ctor, ok := t.data.Constructor(c.Op); ok && i < ctor.Arity() {
				found, done = t.data.SortOf(ctor.Variant.Fields[i].Type), true
				return false
			}
			if sig := t.signature(c.Op); sig != nil && i < len(sig.Params) {
				if s, ok := t.concreteSort(sig.Params[i]); ok {
					found, done = s, true
					return false
				}
			}
			if c.Op == "equals" || c.Op == "neq" || comparison[c.Op] != "" {
				for j, other := range c.Args {
					if j == i {
						continue
					}
					if s, ok := t.hint(other, en); ok {
						found, done = s, true
						return false
					}
				}
			}
		}
		return true
	})
	return found
}

// hint guesses the sort of e without declaring anything
func (t *translator) hint(e ast.Expr, en env) (smt.Sort, bool) {
	switch n := e.(type) {
	case *ast.NumLit, *ast.BoolLit:
		lit, err := adt.LiteralTerm(n)
		if err != nil {
			return smt.Sort{}, false
		}
		return lit.Sort(), true
	case *ast.Ident:
		if term, ok := en[n.Name]; ok {
			return term.Sort(), true
		}
		if c, ok := t.data.Constructor(n.Name); ok && c.Nullary() {
			return adt.Sort(c.Data.Name), true
		}
		if s, ok := t.sym.consts[n.Name]; ok {
			return s, true
		}
		if els := t.reg.Elements(n.Name); len(els) > 0 {
			return t.concreteSort(els[0].Decl.Type)
		}
	case *ast.Call:
		if c, ok := t.data.Constructor(n.Op); ok {
			return adt.Sort(c.Data.Name), true
		}
		switch n.Op {
		case "and", "or", "not", "implies", "iff", "equals", "neq":
			return smt.Bool, true
		case "divide":
			return smt.Real, true
		}
		if comparison[n.Op] != "" {
			return smt.Bool, true
		}
		if arithmetic[n.Op] != "" || n.Op == "negate" || n.Op == "power" {
			if !t.numeric(n.Args, en) {
				break
			}
			return t.numericSort(n.Args, en, nil), true
		}
		if f, ok := t.reg.Function(n.Op); ok && f.Result != nil {
			return t.data.SortOf(f.Result), true
		}
		if sig := t.signature(n.Op); sig != nil {
			return t.concreteSort(sig.Result)
		}
	case *ast.Quantifier:
		return smt.Bool, true
	case *ast.IfExpr:
		if s, ok := t.hint(n.Then, en); ok {
			return s, true
		}
		return t.hint(n.Else, en)
	case *ast.MatchExpr:
		for _, c := range n.Cases {
			if s, ok := t.hint(c.Body, en); ok {
				return s, true
			}
		}
	}
	return smt.Sort{}, false
}

// scrutineeSort infers the sort of a match scrutinee from its patterns
func (t *translator) scrutineeSort(cases []ast.Case) (smt.Sort, bool) {
	for _, c := range cases {
		p := c.Pattern
		for {
			as, ok := p.(*ast.PAs)
			if !ok {
				break
			}
			p = as.Pattern
		}
		switch n := p.(type) {
		case *ast.PCtor:
			if ctor, ok := t.data.Constructor(n.Name); ok {
				return adt.Sort(ctor.Data.Name), true
			}
		case *ast.PVar:
			if ctor, ok := t.data.Constructor(n.Name); ok && ctor.Nullary() {
				return adt.Sort(ctor.Data.Name), true
			}
		case *ast.PLit:
			if lit, err := adt.LiteralTerm(n.Value); err == nil {
				return lit.Sort(), true
			}
		}
	}
	return smt.Sort{}, false
}

func (t *translator) match(m *ast.MatchExpr, en env, want *smt.Sort) (smt.Term, error) {
	var sw *smt.Sort
	if s, ok := t.scrutineeSort(m.Cases); ok {
		sw = &s
	}
	scrut, err := t.expr(m.Scrutinee, en, sw)
	if err != nil {
		return nil, err
	}
	if want == nil {
		for _, c := range m.Cases {
			if s, ok := t.hint(c.Body, en); ok {
				want = &s
				break
			}
		}
	}
	bt := smt.Bool
	term, exhaustive, err := t.data.TranslateMatch(scrut, m.Cases, func(i int, b adt.TermBindings) (smt.Term, smt.Term, error) {
		inner := en
		for name, v := range b {
			inner = inner.with(name, v)
		}
		body, err := t.expr(m.Cases[i].Body, inner, want)
		if err != nil {
			return nil, nil, err
		}
		if m.Cases[i].Guard == nil {
			return body, nil, nil
		}
		guard, err := t.expr(m.Cases[i].Guard, inner, &bt)
		if err != nil {
			return nil, nil, err
		}
		return body, guard, nil
	})
	if err != nil {
		return nil, fmt.Errorf("translating %s: %w", m, err)
	}
	if exhaustive {
		return term, nil
	}
	if t.reject {
		if missing := t.data.Missing(m.Cases); len(missing) > 0 {
			return nil, &MatchError{Match: m.String(), Missing: missing}
		}
	}
	var declErr error
	smt.Walk(term, func(x smt.Term) {
		if u, ok := x.(*smt.Unmatched); ok && declErr == nil {
			declErr = t.out.DeclareFun(u.Name(), nil, u.Of)
		}
	})
	if declErr != nil {
		return nil, declErr
	}
	return term, nil
}
