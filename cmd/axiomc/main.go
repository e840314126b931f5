package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lhaig/axiom/internal/config"
	"github.com/lhaig/axiom/internal/logging"
	"github.com/lhaig/axiom/internal/registry"
	"github.com/lhaig/axiom/internal/session"
	"github.com/lhaig/axiom/internal/smt"
)

// app holds the global flags and what PersistentPreRunE builds from them
type app struct {
	configPath string
	timeout    string
	solverPath string
	logLevel   string
	logFormat  string
	reject     bool
	files      []string

	cfg *config.Config
	log *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "axiomc",
		Short: "Check, evaluate and verify algebraic structure declarations",
		Long: `axiomc loads structure, data and implements declarations and answers
queries about them: type inference, concrete evaluation, and validity or
satisfiability of propositions against the declared axioms using Z3.

Examples:
  axiomc check groups.ax
  axiomc infer -f groups.ax 'mul(e, 1)'
  axiomc eval -f network.ax 'get_ttl(Packet(4, 5, 100, 64, TCP, A1, A2))'
  axiomc verify -f groups.ax '∀(x y : ℤ). mul(x, y) = mul(y, x)'
  axiomc watch -f groups.ax 'mul(e, e) = e'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: $AXIOM_CONFIG, ~/.config/axiom/config.yaml, ./axiom.yaml)")
	flags.StringVar(&a.timeout, "timeout", "", "solver timeout per query, e.g. 10s or 5000 (ms)")
	flags.StringVar(&a.solverPath, "solver", "", "path to the z3 binary")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")
	flags.BoolVar(&a.reject, "reject-non-exhaustive", false, "fail verification on non-exhaustive matches")

	root.AddCommand(
		newCheckCmd(a),
		newInferCmd(a),
		newEvalCmd(a),
		newVerifyCmd(a),
		newSatCmd(a),
		newLintCmd(a),
		newWatchCmd(a),
		newSolverCmd(a),
	)
	return root
}

// setup loads the configuration, applies flags that were set explicitly
// and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		d, err := config.ParseDuration(a.timeout)
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		cfg.Solver.Timeout = config.Duration(d)
	}
	if flags.Changed("solver") {
		cfg.Solver.Path = a.solverPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("reject-non-exhaustive") {
		cfg.Solver.RejectNonExhaustive = a.reject
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	if cfg.Source != "" {
		log.Debug("loaded config", zap.String("path", cfg.Source))
	}
	return nil
}

// newSession builds a session over the configured solver and loads the
// files named with --file.
func (a *app) newSession(metrics *session.Metrics) (*session.Session, error) {
	s, err := session.New(session.Options{
		NewSolver:           func() smt.Solver { return smt.NewZ3(a.cfg.Solver.Path, a.log) },
		Timeout:             a.cfg.Solver.Timeout.Std(),
		MaxParallel:         a.cfg.Solver.MaxParallel,
		RejectNonExhaustive: a.cfg.Solver.RejectNonExhaustive,
		Logger:              a.log,
		Metrics:             metrics,
	})
	if err != nil {
		return nil, err
	}
	for _, f := range a.files {
		start := time.Now()
		if err := s.LoadFile(f); err != nil {
			if registry.IsKind(err, registry.AlreadyLoaded) {
				continue
			}
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
		a.log.Debug("loaded", zap.String("file", f), zap.Duration("elapsed", time.Since(start)))
	}
	return s, nil
}

// addFileFlag registers --file on query commands
func (a *app) addFileFlag(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&a.files, "file", "f", nil, "declaration files to load before the query (repeatable)")
}
