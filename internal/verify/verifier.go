// Package verify checks propositions against structure axioms with an
// SMT solver. Axioms are asserted once into a base solver state; every
// query runs on its own clone of that state, so concurrent queries never
// share mutable solver state.
package verify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/infer"
	"github.com/lhaig/axiom/internal/registry"
	"github.com/lhaig/axiom/internal/smt"
	"github.com/lhaig/axiom/internal/types"
)

// DefaultTimeout bounds a single solver call
const DefaultTimeout = 30 * time.Second

// ReasonInconsistent is reported when the asserted axioms contradict
// each other and every goal would be vacuously valid.
const ReasonInconsistent = "inconsistent axioms"

// Option configures a Verifier
type Option func(*Verifier)

// WithTimeout sets the per-query solver timeout
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(v *Verifier) {
		if log != nil {
			v.log = log
		}
	}
}

// WithRejectNonExhaustive makes non-exhaustive matches a translation
// error instead of falling through to the unmatched sentinel.
func WithRejectNonExhaustive(reject bool) Option {
	return func(v *Verifier) { v.reject = reject }
}

// WithConsistencyCheck controls whether a Valid verdict is confirmed by
// checking that the asserted axioms are satisfiable.
func WithConsistencyCheck(check bool) Option {
	return func(v *Verifier) { v.consistency = check }
}

// Verifier answers validity and satisfiability queries over a loaded
// registry. The registry must not be mutated while the verifier is in
// use.
type Verifier struct {
	reg         *registry.Registry
	engine      *infer.Engine
	log         *zap.Logger
	timeout     time.Duration
	reject      bool
	consistency bool

	mu       sync.Mutex
	base     smt.Solver
	sym      *symbols
	asserted map[string]bool
	axioms   map[string]bool
	version  int
	checked  map[int]smt.Status
}

// New declares the registry's data types into solver and returns a
// verifier using it as the base state.
func New(reg *registry.Registry, solver smt.Solver, opts ...Option) (*Verifier, error) {
	v := &Verifier{
		reg:         reg,
		engine:      infer.New(reg),
		log:         zap.NewNop(),
		timeout:     DefaultTimeout,
		consistency: true,
		base:        solver,
		sym:         newSymbols(),
		asserted:    map[string]bool{},
		axioms:      map[string]bool{},
		checked:     map[int]smt.Status{},
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := reg.Data().Declare(v.base); err != nil {
		return nil, fmt.Errorf("declaring data types: %w", err)
	}
	return v, nil
}

// Timeout returns the per-query solver timeout
func (v *Verifier) Timeout() time.Duration { return v.timeout }

// commenter is implemented by solvers that can annotate their script
type commenter interface {
	Comment(text string)
}

// AssertAxioms loads the axioms of a structure, including those reached
// through where, extends and over, into the base solver state. Asserting
// a structure twice is a no-op, and an axiom shared by several
// structures is asserted once.
func (v *Verifier) AssertAxioms(structure string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.assertAxioms(structure)
}

// AssertAll asserts the axioms of every registered structure
func (v *Verifier) AssertAll() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.reg.Structures() {
		if err := v.assertAxioms(s.Name); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) assertAxioms(structure string) error {
	if v.asserted[structure] {
		return nil
	}
	axioms, err := v.reg.ResolveAxioms(structure)
	if err != nil {
		return fmt.Errorf("resolving axioms of %s: %w", structure, err)
	}

	// Work on copies so a failing axiom leaves the base untouched.
	next := v.base.Clone()
	sym := v.sym.clone()
	seen := map[string]bool{}
	tr := newTranslator(v.reg, next, sym, v.reject)
	added := 0
	for _, ax := range axioms {
		key := ax.Structure + "." + ax.Name + ":" + ax.Prop.String()
		if v.axioms[key] || seen[key] {
			continue
		}
		term, err := tr.formula(ax.Prop)
		if err != nil {
			return fmt.Errorf("axiom %s.%s: %w", ax.Structure, ax.Name, err)
		}
		if c, ok := next.(commenter); ok {
			c.Comment(ax.Structure + "." + ax.Name)
		}
		if err := next.Assert(term); err != nil {
			return fmt.Errorf("axiom %s.%s: %w", ax.Structure, ax.Name, err)
		}
		seen[key] = true
		added++
	}

	v.base, v.sym = next, sym
	for k := range seen {
		v.axioms[k] = true
	}
	v.asserted[structure] = true
	if added > 0 {
		v.version++
	}
	v.log.Debug("asserted axioms",
		zap.String("structure", structure),
		zap.Int("axioms", added))
	return nil
}

// Verify reports whether goal follows from the axioms of the structures
// it mentions. The goal is negated and checked for satisfiability:
// unsat means Valid, sat means Invalid with a counterexample, anything
// else is Unknown.
func (v *Verifier) Verify(ctx context.Context, goal ast.Expr) (*Result, error) {
	res, err := v.query(ctx, goal, true)
	if err != nil {
		return nil, err
	}
	if res.Status == Valid && v.consistency {
		st, err := v.consistent(ctx)
		if err != nil {
			return nil, err
		}
		if st == smt.Unsat {
			res.Status = Unknown
			res.Reason = ReasonInconsistent
			res.Counterexample = nil
		}
	}
	v.log.Info("verified goal",
		zap.String("goal", res.Goal),
		zap.String("status", res.Status.String()),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// CheckSat reports whether goal can hold together with the axioms
func (v *Verifier) CheckSat(ctx context.Context, goal ast.Expr) (*Result, error) {
	res, err := v.query(ctx, goal, false)
	if err != nil {
		return nil, err
	}
	v.log.Info("checked satisfiability",
		zap.String("goal", res.Goal),
		zap.String("status", res.Status.String()),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// CheckConsistency checks the asserted axioms alone: Satisfiable means
// consistent, Unsatisfiable means contradictory.
func (v *Verifier) CheckConsistency(ctx context.Context) (*Result, error) {
	start := time.Now()
	v.mu.Lock()
	solver := v.base.Clone()
	v.mu.Unlock()

	res, err := solver.CheckSat(ctx, v.timeout)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	out := &Result{Goal: "axioms", Elapsed: time.Since(start), Script: solver.Text(), Reason: res.Reason}
	switch res.Status {
	case smt.Sat:
		out.Status = Satisfiable
	case smt.Unsat:
		out.Status = Unsatisfiable
		out.Reason = ReasonInconsistent
	default:
		out.Status = Unknown
	}
	return out, nil
}

// consistent returns the cached consistency status of the current
// axiom set. Without structure axioms there is nothing to contradict.
func (v *Verifier) consistent(ctx context.Context) (smt.Status, error) {
	v.mu.Lock()
	version := v.version
	st, ok := v.checked[version]
	v.mu.Unlock()
	if version == 0 {
		return smt.Sat, nil
	}
	if ok {
		return st, nil
	}
	res, err := v.CheckConsistency(ctx)
	if err != nil {
		return smt.Unknown, err
	}
	switch res.Status {
	case Satisfiable:
		st = smt.Sat
	case Unsatisfiable:
		st = smt.Unsat
		v.log.Warn("asserted axioms are inconsistent")
	default:
		st = smt.Unknown
	}
	if st != smt.Unknown {
		v.mu.Lock()
		v.checked[version] = st
		v.mu.Unlock()
	}
	return st, nil
}

func (v *Verifier) query(ctx context.Context, goal ast.Expr, negate bool) (*Result, error) {
	start := time.Now()
	if err := v.typecheck(goal); err != nil {
		return nil, err
	}
	solver, sym, err := v.prepare(goal)
	if err != nil {
		return nil, err
	}

	tr := newTranslator(v.reg, solver, sym, v.reject)
	term, err := tr.formula(goal)
	if err != nil {
		return nil, fmt.Errorf("translating %s: %w", goal, err)
	}
	if c, ok := solver.(commenter); ok {
		c.Comment("goal: " + goal.String())
	}
	if negate {
		term = smt.Not(term)
	}
	if err := solver.Assert(term); err != nil {
		return nil, err
	}

	res, err := solver.CheckSat(ctx, v.timeout)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	out := &Result{
		Goal:    goal.String(),
		Elapsed: time.Since(start),
		Script:  solver.Text(),
		Reason:  res.Reason,
	}
	switch {
	case res.Status == smt.Unsat && negate:
		out.Status = Valid
	case res.Status == smt.Sat && negate:
		out.Status = Invalid
		out.Counterexample = counterexample(res.Model, tr.free)
	case res.Status == smt.Sat:
		out.Status = Satisfiable
		out.Counterexample = counterexample(res.Model, tr.free)
	case res.Status == smt.Unsat:
		out.Status = Unsatisfiable
	default:
		out.Status = Unknown
		if out.Reason == "" {
			out.Reason = "solver gave up"
		}
		if out.Reason == "timeout" {
			v.log.Warn("solver timed out",
				zap.String("goal", out.Goal),
				zap.Duration("timeout", v.timeout))
		}
	}
	return out, nil
}

// typecheck rejects goals that are ill-typed. Free variables are
// implicitly universal and get fresh types; ambiguity is tolerated
// because the solver works on abstract operations.
func (v *Verifier) typecheck(goal ast.Expr) error {
	ctx := infer.NewContext()
	for i, name := range ast.FreeVars(goal) {
		if v.known(name) {
			continue
		}
		ctx = ctx.With(name, types.Var(fmt.Sprintf("free%d", i)))
	}
	err := v.engine.Check(goal, ctx)
	if err == nil || infer.IsKind(err, infer.AmbiguousType) {
		return nil
	}
	return fmt.Errorf("type error in goal: %w", err)
}

func (v *Verifier) known(name string) bool {
	if _, ok := v.reg.Data().Constructor(name); ok {
		return true
	}
	if _, ok := v.reg.Function(name); ok {
		return true
	}
	return len(v.reg.ElementOwners(name)) > 0
}

// prepare asserts the axioms the goal depends on and returns an isolated
// copy of the base state for the query.
func (v *Verifier) prepare(goal ast.Expr) (smt.Solver, *symbols, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.structuresFor(goal) {
		if err := v.assertAxioms(s); err != nil {
			return nil, nil, err
		}
	}
	return v.base.Clone(), v.sym.clone(), nil
}

// structuresFor lists the structures whose operations or elements the
// goal mentions, directly or through defined functions.
func (v *Verifier) structuresFor(goal ast.Expr) []string {
	var out []string
	seen := map[string]bool{}
	add := func(owners []string) {
		for _, o := range owners {
			if !seen[o] {
				seen[o] = true
				out = append(out, o)
			}
		}
	}
	visited := map[string]bool{}
	var visit func(e ast.Expr)
	visit = func(e ast.Expr) {
		for _, name := range ast.CallNames(e) {
			add(v.reg.OperationOwners(name))
			if f, ok := v.reg.Function(name); ok && !visited[name] {
				visited[name] = true
				visit(f.Body)
			}
		}
		for _, name := range ast.FreeVars(e) {
			add(v.reg.ElementOwners(name))
		}
	}
	visit(goal)
	return out
}

// counterexample keeps the model entries for the goal's free constants,
// or the whole model minus internal symbols when the goal has none.
func counterexample(model []smt.Binding, free []string) []smt.Binding {
	if len(free) > 0 {
		want := map[string]bool{}
		for _, f := range free {
			want[f] = true
		}
		var out []smt.Binding
		for _, b := range model {
			if want[b.Name] {
				out = append(out, b)
			}
		}
		return out
	}
	var out []smt.Binding
	for _, b := range model {
		if !strings.HasPrefix(b.Name, "unmatched.") {
			out = append(out, b)
		}
	}
	return out
}

// Script returns the SMT-LIB text of the base state
func (v *Verifier) Script() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.base.Text()
}
