package smt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Z3 runs queries through a z3 binary reading SMT-LIB on stdin.
type Z3 struct {
	*Script
	path string
	log  *zap.Logger
}

// NewZ3 returns a solver backed by the z3 binary at path ("z3" searches
// PATH).
func NewZ3(path string, log *zap.Logger) *Z3 {
	if path == "" {
		path = "z3"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Z3{Script: NewScript(), path: path, log: log}
}

// Clone copies the accumulated script
func (z *Z3) Clone() Solver {
	return &Z3{Script: z.Copy(), path: z.path, log: z.log}
}

// grace is how long the process may outlive the solver's own timeout
// before it is killed.
const grace = 2 * time.Second

// z3Args builds the z3 command line. The per-query timeout goes to z3 in
// milliseconds; the whole-process limit is the next whole second after it.
func z3Args(timeout time.Duration) []string {
	ms := timeout.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	hard := int64(math.Ceil(float64(ms)/1000)) + 1
	return []string{"-in", fmt.Sprintf("-t:%d", ms), fmt.Sprintf("-T:%d", hard)}
}

// CheckSat runs check-sat over the script. A timeout is reported as an
// Unknown result, not as an error.
func (z *Z3) CheckSat(ctx context.Context, timeout time.Duration) (*Result, error) {
	input := "(set-option :produce-models true)\n" + z.Text() + "(check-sat)\n(get-model)\n"

	argv := z3Args(timeout)
	limit := time.Duration(math.Ceil(timeout.Seconds())+1) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, limit+grace)
	defer cancel()

	cmd := exec.CommandContext(runCtx, z.path, argv...)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	z.log.Debug("z3 finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("commands", z.Script.Len()),
		zap.Error(err))

	if runCtx.Err() != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		return &Result{Status: Unknown, Reason: "timeout", Output: stdout.String()}, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running %s: %w", z.path, err)
		}
		// z3 exits non-zero when get-model follows unsat; the answer is
		// still on stdout.
	}

	elapsed := time.Since(start)
	res, perr := ParseOutput(stdout.String())
	if perr != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w\n%s", perr, stderr.String())
		}
		return nil, perr
	}
	if res.Status == Unknown && elapsed >= timeout {
		res.Reason = "timeout"
	}
	return res, nil
}

// ParseOutput reads the answer of check-sat followed by get-model
func ParseOutput(out string) (*Result, error) {
	exprs, err := ParseSexps(out)
	if err != nil {
		return nil, fmt.Errorf("reading solver output: %w", err)
	}
	res := &Result{Output: out}
	for i, e := range exprs {
		if e.IsList() {
			if e.Head() == "error" {
				return nil, fmt.Errorf("solver error: %s", e.ErrorText())
			}
			continue
		}
		switch e.Atom {
		case "sat":
			res.Status = Sat
			if i+1 < len(exprs) {
				res.Model = modelBindings(exprs[i+1])
			}
			return res, nil
		case "unsat":
			res.Status = Unsat
			return res, nil
		case "unknown":
			res.Status = Unknown
			res.Reason = "solver returned unknown"
			return res, nil
		case "timeout":
			res.Status = Unknown
			res.Reason = "timeout"
			return res, nil
		}
	}
	return nil, fmt.Errorf("unexpected solver output: %q", strings.TrimSpace(out))
}

func modelBindings(m Sexp) []Binding {
	if !m.IsList() || m.Head() == "error" {
		return nil
	}
	items := m.List
	if len(items) > 0 && !items[0].IsList() && items[0].Atom == "model" {
		items = items[1:]
	}
	var out []Binding
	for _, def := range items {
		// (define-fun name () Sort value)
		if def.Head() != "define-fun" || len(def.List) != 5 {
			continue
		}
		if params := def.List[2]; !params.IsList() || len(params.List) != 0 {
			continue
		}
		out = append(out, Binding{Name: unquote(def.List[1].Atom), Value: renderValue(def.List[4])})
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '|' && s[len(s)-1] == '|' {
		return s[1 : len(s)-1]
	}
	return s
}

// renderValue prints model values readably: (- 3) as -3, (/ 1.0 2.0) as
// 1.0/2.0.
func renderValue(v Sexp) string {
	if !v.IsList() {
		return unquote(v.Atom)
	}
	if v.Head() == "-" && len(v.List) == 2 {
		return "-" + renderValue(v.List[1])
	}
	if v.Head() == "/" && len(v.List) == 3 {
		return renderValue(v.List[1]) + "/" + renderValue(v.List[2])
	}
	return v.String()
}
