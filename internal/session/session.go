// Package session is the query interface over a registry: it loads
// declarations atomically and answers infer, eval, verify and sat
// queries. Concrete evaluation never goes through the solver.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/diagnostic"
	"github.com/lhaig/axiom/internal/eval"
	"github.com/lhaig/axiom/internal/infer"
	"github.com/lhaig/axiom/internal/lint"
	"github.com/lhaig/axiom/internal/parser"
	"github.com/lhaig/axiom/internal/registry"
	"github.com/lhaig/axiom/internal/smt"
	"github.com/lhaig/axiom/internal/types"
	"github.com/lhaig/axiom/internal/verify"
)

// Kind selects what a query computes
type Kind int

const (
	KindInfer Kind = iota
	KindEval
	KindVerify
	KindSat
)

func (k Kind) String() string {
	switch k {
	case KindInfer:
		return "infer"
	case KindEval:
		return "eval"
	case KindVerify:
		return "verify"
	case KindSat:
		return "sat"
	}
	return "unknown"
}

// Answer is the outcome of a query; exactly one of Type, Value and Result
// is set, according to Kind.
type Answer struct {
	Kind   Kind
	Type   types.Type
	Value  ast.Expr
	Result *verify.Result
}

func (a *Answer) String() string {
	switch a.Kind {
	case KindInfer:
		return a.Type.String()
	case KindEval:
		return a.Value.String()
	default:
		return a.Result.Format()
	}
}

// Options configures a session
type Options struct {
	// NewSolver returns the empty base solver state for each rebuild
	NewSolver           func() smt.Solver
	Timeout             time.Duration
	MaxParallel         int
	RejectNonExhaustive bool
	Logger              *zap.Logger
	Metrics             *Metrics
}

// Session owns one registry and the engines built over it. Queries may
// run concurrently; loads are exclusive.
type Session struct {
	ID string

	opts    Options
	log     *zap.Logger
	metrics *Metrics

	mu       sync.RWMutex
	reg      *registry.Registry
	engine   *infer.Engine
	eval     *eval.Evaluator
	verifier *verify.Verifier
}

// New returns an empty session
func New(opts Options) (*Session, error) {
	if opts.NewSolver == nil {
		return nil, errors.New("session needs a solver factory")
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{ID: uuid.NewString(), opts: opts, metrics: opts.Metrics}
	s.log = log.With(zap.String("session_id", s.ID))
	if err := s.install(registry.New()); err != nil {
		return nil, err
	}
	return s, nil
}

// install builds the engines for reg and makes it current. The caller
// holds the write lock, or owns s exclusively.
func (s *Session) install(reg *registry.Registry) error {
	v, err := verify.New(reg, s.opts.NewSolver(),
		verify.WithTimeout(s.opts.Timeout),
		verify.WithLogger(s.log),
		verify.WithRejectNonExhaustive(s.opts.RejectNonExhaustive))
	if err != nil {
		return err
	}
	s.reg = reg
	s.engine = infer.New(reg)
	s.eval = eval.New(reg)
	s.verifier = v
	return nil
}

// Registry returns the current registry. It must be treated as read-only.
func (s *Session) Registry() *registry.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg
}

// Load registers p. Either every declaration becomes visible or none
// does; loading the same declarations twice fails with AlreadyLoaded.
func (s *Session) Load(p *decl.Program) error {
	err := s.LoadAll([]*decl.Program{p})
	if err == nil {
		s.log.Info("loaded declarations",
			zap.String("file", p.File),
			zap.Int("structures", len(p.Structures)),
			zap.Int("witnesses", len(p.Witnesses)),
			zap.Int("data", len(p.Data)))
	}
	return err
}

// LoadAll registers programs in order as a single atomic load
func (s *Session) LoadAll(programs []*decl.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.reg.Clone()
	for _, p := range programs {
		if err := next.Load(p); err != nil {
			s.metrics.load(err)
			return err
		}
	}
	err := s.install(next)
	s.metrics.load(err)
	return err
}

// LoadSource parses and loads src
func (s *Session) LoadSource(filename, src string) error {
	p, err := parser.ParseString(filename, src)
	if err != nil {
		s.metrics.load(err)
		return err
	}
	return s.Load(p)
}

// LoadFile loads path and everything it imports, imports first. Files
// already present in the session are skipped; the load fails with
// AlreadyLoaded only when nothing new remains.
func (s *Session) LoadFile(path string) error {
	srcs, err := DiscoverSources(path)
	if err != nil {
		s.metrics.load(err)
		return err
	}
	programs, err := srcs.Ordered()
	if err != nil {
		s.metrics.load(err)
		return err
	}

	s.mu.RLock()
	var fresh []*decl.Program
	for _, p := range programs {
		if !s.reg.IsLoaded(p.Fingerprint()) {
			fresh = append(fresh, p)
		}
	}
	s.mu.RUnlock()
	if len(fresh) == 0 {
		err := &registry.Error{Kind: registry.AlreadyLoaded, Name: path}
		s.metrics.load(err)
		return err
	}

	if err := s.LoadAll(fresh); err != nil {
		return err
	}
	s.log.Info("loaded files",
		zap.String("entry", srcs.Entry),
		zap.Int("files", len(fresh)))
	return nil
}

// snapshot returns the registry and engines current at call time
func (s *Session) snapshot() (*registry.Registry, *infer.Engine, *eval.Evaluator, *verify.Verifier) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg, s.engine, s.eval, s.verifier
}

// resolve turns bare constructor names in the patterns of e into
// constructor patterns and rejects patterns of the wrong arity, as loading
// does for declarations.
func resolve(reg *registry.Registry, e ast.Expr) (ast.Expr, error) {
	out, err := reg.Data().ResolvePatterns(e)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", e, err)
	}
	return out, nil
}

// Infer returns the type of e. Free variables are unbound symbols.
func (s *Session) Infer(e ast.Expr) (types.Type, error) {
	reg, engine, _, _ := s.snapshot()
	start := time.Now()
	e, err := resolve(reg, e)
	if err != nil {
		s.metrics.query(KindInfer, outcome(err), time.Since(start))
		return types.Unknown(), err
	}
	t, err := engine.Infer(e, infer.NewContext())
	s.metrics.query(KindInfer, outcome(err), time.Since(start))
	return t, err
}

// Eval reduces a ground expression to a value with the concrete
// evaluator.
func (s *Session) Eval(e ast.Expr) (ast.Expr, error) {
	reg, _, ev, _ := s.snapshot()
	start := time.Now()
	e, err := resolve(reg, e)
	if err != nil {
		s.metrics.query(KindEval, outcome(err), time.Since(start))
		return nil, err
	}
	v, err := ev.Eval(e, nil)
	s.metrics.query(KindEval, outcome(err), time.Since(start))
	return v, err
}

// Verify checks that goal follows from the axioms
func (s *Session) Verify(ctx context.Context, goal ast.Expr) (*verify.Result, error) {
	reg, _, _, v := s.snapshot()
	goal, err := resolve(reg, goal)
	if err != nil {
		s.record(KindVerify, nil, err)
		return nil, err
	}
	res, err := v.Verify(ctx, goal)
	s.record(KindVerify, res, err)
	return res, err
}

// CheckSat checks that goal is consistent with the axioms
func (s *Session) CheckSat(ctx context.Context, goal ast.Expr) (*verify.Result, error) {
	reg, _, _, v := s.snapshot()
	goal, err := resolve(reg, goal)
	if err != nil {
		s.record(KindSat, nil, err)
		return nil, err
	}
	res, err := v.CheckSat(ctx, goal)
	s.record(KindSat, res, err)
	return res, err
}

// CheckConsistency asserts every loaded axiom and checks them alone
func (s *Session) CheckConsistency(ctx context.Context) (*verify.Result, error) {
	_, _, _, v := s.snapshot()
	if err := v.AssertAll(); err != nil {
		return nil, err
	}
	res, err := v.CheckConsistency(ctx)
	s.record(KindSat, res, err)
	return res, err
}

// VerifyAll verifies goals with at most MaxParallel solver calls in
// flight. Results are in goal order. The first translation or solver
// error cancels the remaining goals.
func (s *Session) VerifyAll(ctx context.Context, goals []ast.Expr) (*verify.Report, error) {
	results := make([]*verify.Result, len(goals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxParallel)
	for i, goal := range goals {
		i, goal := i, goal
		g.Go(func() error {
			res, err := s.Verify(gctx, goal)
			if err != nil {
				return fmt.Errorf("goal %d (%s): %w", i+1, goal, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &verify.Report{Results: results}, nil
}

// Query parses src and answers it according to kind
func (s *Session) Query(ctx context.Context, kind Kind, src string) (*Answer, error) {
	e, err := parser.ParseExpr(src)
	if err != nil {
		return nil, err
	}
	ans := &Answer{Kind: kind}
	switch kind {
	case KindInfer:
		ans.Type, err = s.Infer(e)
	case KindEval:
		ans.Value, err = s.Eval(e)
	case KindVerify:
		ans.Result, err = s.Verify(ctx, e)
	case KindSat:
		ans.Result, err = s.CheckSat(ctx, e)
	default:
		return nil, fmt.Errorf("unknown query kind %d", kind)
	}
	if err != nil {
		return nil, err
	}
	return ans, nil
}

// Lint runs the static checks on p, resolving constructors against the
// data types already loaded as well as p's own.
func (s *Session) Lint(p *decl.Program) *diagnostic.Diagnostics {
	s.mu.RLock()
	data := s.reg.Data().Clone()
	s.mu.RUnlock()
	for _, d := range p.Data {
		if _, ok := data.Data(d.Name); !ok {
			_ = data.Register(d)
		}
	}
	return lint.Lint(p, data)
}

func (s *Session) record(kind Kind, res *verify.Result, err error) {
	status := "error"
	var elapsed time.Duration
	if err == nil {
		status = res.Status.String()
		elapsed = res.Elapsed
	}
	s.metrics.query(kind, status, elapsed)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
