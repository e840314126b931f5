// Package eval computes ground expressions to values without the solver.
// Values are expressions in normal form: numbers, booleans, nullary
// constructors and constructors applied to values.
package eval

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/lhaig/axiom/internal/adt"
	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/infer"
	"github.com/lhaig/axiom/internal/registry"
	"github.com/lhaig/axiom/internal/types"
)

var (
	// ErrNotGround is returned for free variables and quantifiers
	ErrNotGround = errors.New("expression is not ground")
	// ErrDepthExceeded stops runaway recursion
	ErrDepthExceeded = errors.New("evaluation depth exceeded")
	// ErrDivisionByZero is returned by divide with a zero divisor
	ErrDivisionByZero = errors.New("division by zero")
)

// Error locates an evaluation failure
type Error struct {
	Expr string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("evaluating %s: %v", e.Expr, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// DefaultMaxDepth bounds nested function calls
const DefaultMaxDepth = 1000

// Option configures an Evaluator
type Option func(*Evaluator)

// WithMaxDepth sets the maximum call depth
func WithMaxDepth(n int) Option {
	return func(ev *Evaluator) { ev.maxDepth = n }
}

// Evaluator reduces ground expressions. It never consults axioms.
type Evaluator struct {
	reg      *registry.Registry
	engine   *infer.Engine
	maxDepth int
	builtins *programs
}

// New creates an evaluator over a loaded registry
func New(reg *registry.Registry, opts ...Option) *Evaluator {
	ev := &Evaluator{
		reg:      reg,
		engine:   infer.New(reg),
		maxDepth: DefaultMaxDepth,
		builtins: &programs{},
	}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// Env binds names to values
type Env map[string]ast.Expr

func (env Env) with(names []string, values []ast.Expr) Env {
	next := make(Env, len(env)+len(names))
	for k, v := range env {
		next[k] = v
	}
	for i, n := range names {
		next[n] = values[i]
	}
	return next
}

// Eval reduces e to a value
func (ev *Evaluator) Eval(e ast.Expr, env Env) (ast.Expr, error) {
	return ev.eval(e, env, 0)
}

// IsValue reports whether e is already in normal form
func (ev *Evaluator) IsValue(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.NumLit, *ast.BoolLit:
		return true
	case *ast.Ident:
		c, ok := ev.reg.Data().Constructor(n.Name)
		return ok && c.Nullary()
	case *ast.Call:
		c, ok := ev.reg.Data().Constructor(n.Op)
		if !ok || c.Arity() != len(n.Args) {
			return false
		}
		for _, a := range n.Args {
			if !ev.IsValue(a) {
				return false
			}
		}
		return true
	}
	return false
}

func fail(e ast.Expr, err error) error {
	var ee *Error
	if errors.As(err, &ee) {
		return err
	}
	return &Error{Expr: e.String(), Err: err}
}

func (ev *Evaluator) eval(e ast.Expr, env Env, depth int) (ast.Expr, error) {
	if depth > ev.maxDepth {
		return nil, fail(e, ErrDepthExceeded)
	}
	switch n := e.(type) {
	case *ast.NumLit:
		v, err := parseNumber(n.Text)
		if err != nil {
			return nil, fail(e, err)
		}
		return ast.Num(formatNumber(v)), nil
	case *ast.BoolLit:
		return n, nil
	case *ast.Ident:
		return ev.evalIdent(n, env, depth)
	case *ast.Call:
		return ev.evalCall(n, env, depth)
	case *ast.Quantifier:
		return nil, fail(e, fmt.Errorf("%w: quantifiers need the verifier", ErrNotGround))
	case *ast.IfExpr:
		c, err := ev.evalBool(n.Cond, env, depth)
		if err != nil {
			return nil, err
		}
		if c {
			return ev.eval(n.Then, env, depth)
		}
		return ev.eval(n.Else, env, depth)
	case *ast.LetExpr:
		v, err := ev.eval(n.Value, env, depth)
		if err != nil {
			return nil, err
		}
		return ev.eval(n.Body, env.with([]string{n.Name}, []ast.Expr{v}), depth)
	case *ast.MatchExpr:
		scrut, err := ev.eval(n.Scrutinee, env, depth)
		if err != nil {
			return nil, err
		}
		guard := func(g ast.Expr, b adt.Bindings) (bool, error) {
			return ev.evalBool(g, extend(env, b), depth)
		}
		i, b, err := ev.reg.Data().Select(scrut, n.Cases, guard)
		if errors.Is(err, adt.ErrNoMatch) {
			return nil, fail(e, fmt.Errorf("no case matches %s: %w", scrut, err))
		}
		if err != nil {
			return nil, fail(e, err)
		}
		return ev.eval(n.Cases[i].Body, extend(env, b), depth)
	}
	return nil, fail(e, fmt.Errorf("cannot evaluate %T", e))
}

func extend(env Env, b adt.Bindings) Env {
	names := make([]string, 0, len(b))
	values := make([]ast.Expr, 0, len(b))
	for k, v := range b {
		names = append(names, k)
		values = append(values, v)
	}
	return env.with(names, values)
}

func (ev *Evaluator) evalIdent(n *ast.Ident, env Env, depth int) (ast.Expr, error) {
	if v, ok := env[n.Name]; ok {
		return v, nil
	}
	if c, ok := ev.reg.Data().Constructor(n.Name); ok && c.Nullary() {
		return n, nil
	}
	if f, ok := ev.reg.Function(n.Name); ok && len(f.Params) == 0 {
		return ev.eval(f.Body, Env{}, depth+1)
	}
	if len(ev.reg.ElementOwners(n.Name)) > 0 {
		var values []ast.Expr
		for _, w := range ev.reg.Witnesses() {
			if v := w.Element(n.Name); v != nil {
				values = append(values, v)
			}
		}
		if len(values) != 1 {
			return nil, fail(n, fmt.Errorf("element %s has %d witness values", n.Name, len(values)))
		}
		return ev.eval(values[0], Env{}, depth+1)
	}
	return nil, fail(n, fmt.Errorf("%w: %s is unbound", ErrNotGround, n.Name))
}

func (ev *Evaluator) evalBool(e ast.Expr, env Env, depth int) (bool, error) {
	v, err := ev.eval(e, env, depth)
	if err != nil {
		return false, err
	}
	b, ok := v.(*ast.BoolLit)
	if !ok {
		return false, fail(e, fmt.Errorf("expected a boolean, got %s", v))
	}
	return b.Value, nil
}

func (ev *Evaluator) evalArgs(args []ast.Expr, env Env, depth int) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(args))
	for i, a := range args {
		v, err := ev.eval(a, env, depth)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (ev *Evaluator) evalCall(n *ast.Call, env Env, depth int) (ast.Expr, error) {
	switch n.Op {
	case "and", "or", "implies":
		if len(n.Args) != 2 {
			break
		}
		l, err := ev.evalBool(n.Args[0], env, depth)
		if err != nil {
			return nil, err
		}
		switch {
		case n.Op == "and" && !l:
			return ast.False, nil
		case n.Op == "or" && l:
			return ast.True, nil
		case n.Op == "implies" && !l:
			return ast.True, nil
		}
		r, err := ev.evalBool(n.Args[1], env, depth)
		if err != nil {
			return nil, err
		}
		return boolValue(r), nil
	}

	args, err := ev.evalArgs(n.Args, env, depth)
	if err != nil {
		return nil, err
	}
	if c, ok := ev.reg.Data().Constructor(n.Op); ok {
		if c.Arity() != len(args) {
			return nil, fail(n, fmt.Errorf("constructor %s expects %d arguments, got %d", c.Name, c.Arity(), len(args)))
		}
		return &ast.Call{Op: n.Op, Args: args}, nil
	}
	switch n.Op {
	case "not":
		if b, ok := single(args).(*ast.BoolLit); ok {
			return boolValue(!b.Value), nil
		}
		return nil, fail(n, errors.New("not expects one boolean"))
	case "iff":
		l, lok := first(args).(*ast.BoolLit)
		r, rok := second(args).(*ast.BoolLit)
		if !lok || !rok {
			return nil, fail(n, errors.New("iff expects two booleans"))
		}
		return boolValue(l.Value == r.Value), nil
	case "equals", "neq":
		if len(args) != 2 {
			return nil, fail(n, fmt.Errorf("%s expects 2 arguments", n.Op))
		}
		eq := valuesEqual(args[0], args[1])
		return boolValue(eq == (n.Op == "equals")), nil
	}
	if f, ok := ev.reg.Function(n.Op); ok {
		if len(f.Params) != len(args) {
			return nil, fail(n, fmt.Errorf("%s expects %d arguments, got %d", f.Name, len(f.Params), len(args)))
		}
		return ev.eval(f.Body, Env{}.with(f.ParamNames(), args), depth+1)
	}
	if infer.IsBuiltin(n.Op) && ev.allNumbers(args) {
		v, err := ev.builtin(n.Op, args)
		if err != nil {
			return nil, fail(n, err)
		}
		return v, nil
	}
	return ev.dispatch(n, args, depth)
}

// dispatch evaluates a structure operation by the body of the witness
// the argument types select.
func (ev *Evaluator) dispatch(n *ast.Call, args []ast.Expr, depth int) (ast.Expr, error) {
	argTypes := make([]types.Type, len(args))
	for i, a := range args {
		argTypes[i] = ev.typeOf(a)
	}
	o, _, err := ev.engine.ResolveOverload(n.Op, argTypes)
	if err != nil {
		return nil, fail(n, err)
	}
	return ev.apply(n, o.Body, args, depth)
}

func (ev *Evaluator) apply(n *ast.Call, body *decl.Body, args []ast.Expr, depth int) (ast.Expr, error) {
	switch {
	case body == nil:
		return nil, fail(n, fmt.Errorf("operation %s has no implementation for these arguments", n.Op))
	case body.Builtin != "":
		name, ok := canonicalBuiltin(body.Builtin)
		if !ok {
			return nil, fail(n, fmt.Errorf("unsupported builtin %s", body.Builtin))
		}
		v, err := ev.builtin(name, args)
		if err != nil {
			return nil, fail(n, err)
		}
		return v, nil
	case len(body.Params) != len(args):
		return nil, fail(n, fmt.Errorf("implementation of %s takes %d arguments, got %d", n.Op, len(body.Params), len(args)))
	}
	return ev.eval(body.Expr, Env{}.with(body.Params, args), depth+1)
}

func (ev *Evaluator) builtin(name string, args []ast.Expr) (ast.Expr, error) {
	nums := make([]*big.Rat, len(args))
	for i, a := range args {
		lit, ok := a.(*ast.NumLit)
		if !ok {
			return nil, fmt.Errorf("%s expects numbers, got %s", name, a)
		}
		v, err := parseNumber(lit.Text)
		if err != nil {
			return nil, err
		}
		nums[i] = v
	}
	out, err := ev.builtins.run(name, nums)
	if err != nil {
		return nil, err
	}
	switch v := out.(type) {
	case bool:
		return boolValue(v), nil
	case *big.Rat:
		return ast.Num(formatNumber(v)), nil
	}
	return nil, fmt.Errorf("builtin %s produced %T", name, out)
}

func (ev *Evaluator) allNumbers(args []ast.Expr) bool {
	for _, a := range args {
		if _, ok := a.(*ast.NumLit); !ok {
			return false
		}
	}
	return true
}

// typeOf gives the dispatch type of a value. Parameters of data types
// are left Unknown, which unifies with any argument.
func (ev *Evaluator) typeOf(v ast.Expr) types.Type {
	switch n := v.(type) {
	case *ast.NumLit:
		return types.Scalar()
	case *ast.BoolLit:
		return types.Bool()
	case *ast.Ident:
		if c, ok := ev.reg.Data().Constructor(n.Name); ok {
			return dataType(c.Data)
		}
	case *ast.Call:
		if c, ok := ev.reg.Data().Constructor(n.Op); ok {
			return dataType(c.Data)
		}
	}
	return types.Unknown()
}

func dataType(d *decl.Data) types.Type {
	var args []types.Type
	for _, p := range d.Params {
		if !p.IsDim() {
			args = append(args, types.Unknown())
		}
	}
	return types.Named(d.Name, args...)
}

func valuesEqual(a, b ast.Expr) bool {
	la, aok := a.(*ast.NumLit)
	lb, bok := b.(*ast.NumLit)
	if aok && bok {
		x, errx := parseNumber(la.Text)
		y, erry := parseNumber(lb.Text)
		return errx == nil && erry == nil && x.Cmp(y) == 0
	}
	return ast.Equal(a, b)
}

func boolValue(b bool) ast.Expr {
	if b {
		return ast.True
	}
	return ast.False
}

func single(args []ast.Expr) ast.Expr {
	if len(args) != 1 {
		return nil
	}
	return args[0]
}

func first(args []ast.Expr) ast.Expr {
	if len(args) != 2 {
		return nil
	}
	return args[0]
}

func second(args []ast.Expr) ast.Expr {
	if len(args) != 2 {
		return nil
	}
	return args[1]
}
