package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/diagnostic"
	"github.com/lhaig/axiom/internal/parser"
	"github.com/lhaig/axiom/internal/session"
	"github.com/lhaig/axiom/internal/smt"
	"github.com/lhaig/axiom/internal/verify"
)

// probe is replaced in tests
var probe = smt.Probe

// scriptOnly builds a solver for sessions that never query it
func scriptOnly() smt.Solver { return smt.NewZ3("z3", nil) }

// errFailed makes the command exit non-zero after it has already printed
// its own report.
var errFailed = errors.New("check failed")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.ax>",
		Short: "Parse and load a file with its imports, then report lint warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s, err := a.newSession(nil)
			if err != nil {
				return err
			}
			if err := s.LoadFile(args[0]); err != nil {
				return err
			}
			diags, err := lintEntry(args[0])
			if err != nil {
				return err
			}
			if diags.HasErrors() {
				fmt.Fprintln(out, diags.Format())
				return errFailed
			}
			for _, d := range diags.Warnings() {
				fmt.Fprintf(out, "%s[%s]: %s [%s]\n", d.Severity, d.Pos, d.Message, d.Rule)
			}
			fmt.Fprintln(out, "No errors found.")
			return nil
		},
	}
}

func newLintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file.ax>",
		Short: "Report non-exhaustive matches, unreachable cases and style issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			diags, err := lintEntry(args[0])
			if err != nil {
				return err
			}
			if diags.Count() == 0 {
				fmt.Fprintln(out, "No lint warnings.")
				return nil
			}
			fmt.Fprint(out, diags.Format())
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%d error(s), %d warning(s) found.\n", diags.ErrorCount(), diags.WarningCount())
			if diags.HasErrors() {
				return errFailed
			}
			return nil
		},
	}
}

// lintEntry lints the entry file with the data types of its imports in
// scope.
func lintEntry(path string) (*diagnostic.Diagnostics, error) {
	srcs, err := session.DiscoverSources(path)
	if err != nil {
		return nil, err
	}
	programs, err := srcs.Ordered()
	if err != nil {
		return nil, err
	}
	s, err := session.New(session.Options{NewSolver: scriptOnly})
	if err != nil {
		return nil, err
	}
	entry := programs[len(programs)-1]
	if len(programs) > 1 {
		if err := s.LoadAll(programs[:len(programs)-1]); err != nil {
			return nil, err
		}
	}
	return s.Lint(entry), nil
}

func parseExprs(args []string) ([]ast.Expr, error) {
	exprs := make([]ast.Expr, len(args))
	for i, src := range args {
		e, err := parser.ParseExpr(src)
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return exprs, nil
}

func newInferCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer <expr>...",
		Short: "Print the inferred type of each expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd, session.KindInfer, args)
		},
	}
	a.addFileFlag(cmd)
	return cmd
}

func newEvalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expr>...",
		Short: "Evaluate ground expressions without the solver",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd, session.KindEval, args)
		},
	}
	a.addFileFlag(cmd)
	return cmd
}

func newSatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sat <expr>...",
		Short: "Check whether each proposition can hold together with the axioms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd, session.KindSat, args)
		},
	}
	a.addFileFlag(cmd)
	return cmd
}

// query answers each argument in turn. A failing query is reported and
// the rest still run.
func (a *app) query(cmd *cobra.Command, kind session.Kind, args []string) error {
	s, err := a.newSession(nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed := false
	for _, src := range args {
		ans, err := s.Query(cmd.Context(), kind, src)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", src, err)
			failed = true
			continue
		}
		switch kind {
		case session.KindInfer:
			fmt.Fprintf(out, "%s : %s\n", src, ans)
		case session.KindEval:
			fmt.Fprintf(out, "%s = %s\n", src, ans)
		default:
			fmt.Fprintln(out, ans)
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		metricsDump bool
		consistency bool
		showScript  bool
	)
	cmd := &cobra.Command{
		Use:   "verify <goal>...",
		Short: "Verify that each goal follows from the axioms",
		Long: `Verify negates each goal and asks the solver whether the negation is
satisfiable: unsat means VALID, sat means INVALID with a counterexample, and
a timeout or solver give-up is UNKNOWN. Goals run in parallel up to
solver.max_parallel.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var metrics *session.Metrics
			dump := metricsDump || a.cfg.Metrics.Enabled
			if dump {
				metrics = session.NewMetrics()
			}
			s, err := a.newSession(metrics)
			if err != nil {
				return err
			}
			goals, err := parseExprs(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if consistency {
				res, err := s.CheckConsistency(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "axioms: %s\n", res.Format())
			}

			report, err := s.VerifyAll(cmd.Context(), goals)
			if err != nil {
				return err
			}
			fmt.Fprint(out, verify.FormatReport(report))
			if showScript {
				for _, res := range report.Results {
					fmt.Fprintf(out, "\n; %s\n%s\n", res.Goal, res.Script)
				}
			}
			if dump {
				fmt.Fprintln(out)
				if err := metrics.WriteText(out); err != nil {
					return err
				}
			}
			if !report.AllValid() {
				return errFailed
			}
			return nil
		},
	}
	a.addFileFlag(cmd)
	cmd.Flags().BoolVar(&metricsDump, "metrics-dump", false, "print query metrics in prometheus text format")
	cmd.Flags().BoolVar(&consistency, "consistency", false, "check the loaded axioms for consistency first")
	cmd.Flags().BoolVar(&showScript, "script", false, "print the SMT-LIB script sent for each goal")
	return cmd
}

func newSolverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "solver",
		Short: "Report the configured solver and check its version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := probe(cmd.Context(), a.cfg.Solver.Path, a.cfg.Solver.MinVersion)
			if err != nil {
				return err
			}
			printSolver(cmd.OutOrStdout(), a, v.String())
			return nil
		},
	}
}

func printSolver(w io.Writer, a *app, version string) {
	fmt.Fprintf(w, "solver:      %s\n", a.cfg.Solver.Path)
	fmt.Fprintf(w, "version:     %s (requires %s)\n", version, a.cfg.Solver.MinVersion)
	fmt.Fprintf(w, "timeout:     %s\n", a.cfg.Solver.Timeout)
	fmt.Fprintf(w, "parallelism: %d\n", a.cfg.Solver.MaxParallel)
}
