package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lhaig/axiom/internal/adt"
	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/infer"
	"github.com/lhaig/axiom/internal/lint"
	"github.com/lhaig/axiom/internal/parser"
	"github.com/lhaig/axiom/internal/registry"
	"github.com/lhaig/axiom/internal/smt"
	"github.com/lhaig/axiom/internal/verify"
)

// countingSolver answers sat for everything except a script that asserts
// false, and counts calls across all of its clones.
type countingSolver struct {
	*smt.Script
	calls    *int64
	inflight *int64
	peak     *int64
	delay    time.Duration
}

func newCounting(delay time.Duration) *countingSolver {
	return &countingSolver{Script: smt.NewScript(), calls: new(int64), inflight: new(int64), peak: new(int64), delay: delay}
}

func (c *countingSolver) Clone() smt.Solver {
	return &countingSolver{Script: c.Copy(), calls: c.calls, inflight: c.inflight, peak: c.peak, delay: c.delay}
}

func (c *countingSolver) CheckSat(ctx context.Context, _ time.Duration) (*smt.Result, error) {
	atomic.AddInt64(c.calls, 1)
	n := atomic.AddInt64(c.inflight, 1)
	defer atomic.AddInt64(c.inflight, -1)
	for {
		peak := atomic.LoadInt64(c.peak)
		if n <= peak || atomic.CompareAndSwapInt64(c.peak, peak, n) {
			break
		}
	}
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if strings.Contains(c.Text(), "(assert false)") {
		return &smt.Result{Status: smt.Unsat}, nil
	}
	return &smt.Result{Status: smt.Sat}, nil
}

const network = `
data Protocol = ICMP | TCP | UDP
data Address = A1 | A2
data Packet = Packet(version : ℕ, headerLen : ℕ, len : ℕ, ttl : ℕ, protocol : Protocol, src : Address, dst : Address)

define get_ttl(p : Packet) : ℕ = match p { Packet(_, _, _, t, _, _, _) => t }
`

func newSession(t *testing.T, solver *countingSolver, opts ...func(*Options)) *Session {
	t.Helper()
	o := Options{
		NewSolver: func() smt.Solver { return solver.Clone() },
		Timeout:   time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	s, err := New(o)
	require.NoError(t, err)
	return s
}

func TestNewNeedsSolver(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestLoadAndQuery(t *testing.T) {
	s := newSession(t, newCounting(0))
	require.NoError(t, s.LoadSource("network.ax", network))
	ctx := context.Background()

	ans, err := s.Query(ctx, KindEval, "get_ttl(Packet(4, 5, 100, 64, TCP, A1, A2))")
	require.NoError(t, err)
	assert.Equal(t, "64", ans.String())

	ans, err = s.Query(ctx, KindInfer, "1 + 2")
	require.NoError(t, err)
	assert.Equal(t, "Scalar", ans.String())

	ans, err = s.Query(ctx, KindVerify, "get_ttl(Packet(4, 5, 100, 64, TCP, A1, A2)) = 64")
	require.NoError(t, err)
	assert.Equal(t, verify.Valid, ans.Result.Status, ans.Result.Script)

	ans, err = s.Query(ctx, KindVerify, "TCP = UDP")
	require.NoError(t, err)
	assert.Equal(t, verify.Invalid, ans.Result.Status)
}

func TestQueryErrorsLeaveSessionUsable(t *testing.T) {
	s := newSession(t, newCounting(0))
	require.NoError(t, s.LoadSource("network.ax", network))
	ctx := context.Background()

	_, err := s.Query(ctx, KindInfer, "undefined_thing + 1")
	require.Error(t, err)
	assert.True(t, infer.IsKind(err, infer.UnboundSymbol), err.Error())

	_, err = s.Query(ctx, KindEval, "get_ttl(")
	var perr *parser.Error
	assert.ErrorAs(t, err, &perr)

	ans, err := s.Query(ctx, KindEval, "get_ttl(Packet(4, 5, 100, 32, UDP, A2, A1))")
	require.NoError(t, err)
	assert.Equal(t, "32", ans.String())
}

func TestQueryPatternsAreResolved(t *testing.T) {
	strict := newSession(t, newCounting(0), func(o *Options) { o.RejectNonExhaustive = true })
	require.NoError(t, strict.LoadSource("network.ax", network))
	ctx := context.Background()

	_, err := strict.Query(ctx, KindVerify, "∀(p : Protocol). match p { TCP => 1 } = 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, verify.ErrNonExhaustive)
	var me *verify.MatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{"ICMP", "UDP"}, me.Missing)

	ans, err := strict.Query(ctx, KindVerify, "∀(p : Protocol). match p { ICMP => 1 | TCP => 2 | UDP => 3 } > 0")
	require.NoError(t, err)
	assert.NotContains(t, ans.Result.Script, "unmatched")
	assert.Contains(t, ans.Result.Script, "(declare-datatypes (")

	_, err = strict.Query(ctx, KindEval, "match Packet(4, 5, 100, 64, TCP, A1, A2) { Packet(v, h) => v | _ => 0 }")
	require.Error(t, err)
	var pe *adt.PatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 7, pe.Expected)
	assert.Equal(t, 2, pe.Actual)

	ans, err = strict.Query(ctx, KindEval, "match UDP { TCP => 1 | UDP => 2 | ICMP => 3 }")
	require.NoError(t, err)
	assert.Equal(t, "2", ans.String())
}

func TestEvalNeverCallsSolver(t *testing.T) {
	solver := newCounting(0)
	s := newSession(t, solver)
	require.NoError(t, s.LoadSource("network.ax", network))

	v, err := s.Eval(parser.MustParseExpr("get_ttl(Packet(4, 5, 100, 64, TCP, A1, A2))"))
	require.NoError(t, err)
	assert.Equal(t, "64", v.String())
	assert.Zero(t, atomic.LoadInt64(solver.calls))
}

func TestLoadIsAtomic(t *testing.T) {
	s := newSession(t, newCounting(0))
	err := s.LoadSource("broken.ax", `
data Color = Red | Green
implements Missing(ℝ) {
    operation f = builtin_add
}
`)
	require.Error(t, err)
	_, ok := s.Registry().Data().Data("Color")
	assert.False(t, ok, "a failed load registers nothing")

	require.NoError(t, s.LoadSource("colors.ax", "data Color = Red | Green\n"))
	_, ok = s.Registry().Data().Data("Color")
	assert.True(t, ok)
}

func TestLoadTwice(t *testing.T) {
	s := newSession(t, newCounting(0))
	require.NoError(t, s.LoadSource("network.ax", network))
	before := s.Registry()

	err := s.LoadSource("again.ax", network)
	require.Error(t, err)
	assert.True(t, registry.IsKind(err, registry.AlreadyLoaded))
	assert.Same(t, before, s.Registry(), "registry unchanged")
}

func TestVerifyAllKeepsOrderAndBound(t *testing.T) {
	solver := newCounting(20 * time.Millisecond)
	s := newSession(t, solver, func(o *Options) { o.MaxParallel = 2 })
	require.NoError(t, s.LoadSource("network.ax", network))

	sources := []string{"TCP ≠ UDP", "x = 3", "ICMP = ICMP", "A1 = A2", "y = y"}
	var goals []ast.Expr
	for _, src := range sources {
		goals = append(goals, parser.MustParseExpr(src))
	}

	report, err := s.VerifyAll(context.Background(), goals)
	require.NoError(t, err)
	require.Len(t, report.Results, len(goals))
	assert.Equal(t, verify.Valid, report.Results[0].Status)
	assert.Equal(t, verify.Invalid, report.Results[1].Status)
	assert.Equal(t, verify.Valid, report.Results[2].Status)
	assert.Equal(t, verify.Invalid, report.Results[3].Status)
	assert.LessOrEqual(t, atomic.LoadInt64(solver.peak), int64(2))
}

func TestVerifyAllStopsOnError(t *testing.T) {
	s := newSession(t, newCounting(0))
	require.NoError(t, s.LoadSource("network.ax", network))

	_, err := s.VerifyAll(context.Background(), []ast.Expr{
		parser.MustParseExpr("TCP ≠ UDP"),
		parser.MustParseExpr("TCP = 3"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goal 2")
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	s := newSession(t, newCounting(0), func(o *Options) { o.Metrics = m })
	require.NoError(t, s.LoadSource("network.ax", network))
	require.Error(t, s.LoadSource("network.ax", network))
	ctx := context.Background()

	_, err := s.Query(ctx, KindEval, "get_ttl(Packet(4, 5, 100, 64, TCP, A1, A2))")
	require.NoError(t, err)
	_, err = s.Query(ctx, KindVerify, "TCP ≠ UDP")
	require.NoError(t, err)
	_, err = s.Query(ctx, KindSat, "x = 3")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("eval", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("verify", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("sat", "satisfiable")))

	var buf strings.Builder
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), "axiom_queries_total")
	assert.Contains(t, buf.String(), "axiom_query_latency_seconds")
}

func TestLogsCarrySessionID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := newSession(t, newCounting(0), func(o *Options) { o.Logger = zap.New(core) })
	require.NoError(t, s.LoadSource("network.ax", network))

	entries := logs.FilterMessage("loaded declarations").All()
	require.Len(t, entries, 1)
	assert.Equal(t, s.ID, entries[0].ContextMap()["session_id"])
	assert.Equal(t, "network.ax", entries[0].ContextMap()["file"])
}

func TestLintUsesLoadedData(t *testing.T) {
	s := newSession(t, newCounting(0))
	require.NoError(t, s.LoadSource("network.ax", network))

	p, err := parser.ParseString("port.ax", "define port(p) = match p { TCP => 80 | UDP => 53 }\n")
	require.NoError(t, err)
	var found bool
	for _, d := range s.Lint(p).All() {
		if d.Rule == lint.RuleExhaustive {
			found = true
			assert.Contains(t, d.Message, "missing ICMP")
		}
	}
	assert.True(t, found)
}

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadFileWithImports(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "lib/protocol.ax", "data Protocol = ICMP | TCP | UDP\n")
	writeSource(t, dir, "lib/port.ax", `
import "protocol.ax"
define port(p : Protocol) : ℕ = match p { TCP => 80 | UDP => 53 | ICMP => 0 }
`)
	main := writeSource(t, dir, "main.ax", `
import "lib/port.ax"
import "lib/protocol.ax"
define web = port(TCP)
`)

	srcs, err := DiscoverSources(main)
	require.NoError(t, err)
	files, err := srcs.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "protocol.ax", filepath.Base(files[0]))
	assert.Equal(t, "port.ax", filepath.Base(files[1]))
	assert.Equal(t, "main.ax", filepath.Base(files[2]))

	s := newSession(t, newCounting(0))
	require.NoError(t, s.LoadFile(main))
	v, err := s.Eval(parser.MustParseExpr("port(UDP)"))
	require.NoError(t, err)
	assert.Equal(t, "53", v.String())

	err = s.LoadFile(main)
	assert.True(t, registry.IsKind(err, registry.AlreadyLoaded))
}

func TestDiscoverCycle(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.ax", "import \"b.ax\"\ndata A = A1\n")
	writeSource(t, dir, "b.ax", "import \"a.ax\"\ndata B = B1\n")

	srcs, err := DiscoverSources(filepath.Join(dir, "a.ax"))
	require.NoError(t, err)
	_, err = srcs.Ordered()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import cycle detected: a.ax -> b.ax -> a.ax")
}

func TestDiscoverErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing import", `import "absent.ax"`, "imported file not found"},
		{"wrong extension", `import "notes.txt"`, "must have .ax extension"},
		{"parse error", "data = ", "entry.ax"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := writeSource(t, dir, "entry.ax", tt.src)
			_, err := DiscoverSources(entry)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
