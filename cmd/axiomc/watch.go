package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/session"
	"github.com/lhaig/axiom/internal/verify"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <goal>...",
		Short: "Reload the files on every change and re-verify the goals",
		Long: `Watch loads the --file declarations into a fresh session whenever one of
them, or anything they import, changes, then verifies the goals again. A
failed reload is reported and the previous result stays on screen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.files) == 0 {
				return errors.New("watch needs at least one --file")
			}
			goals, err := parseExprs(args)
			if err != nil {
				return err
			}
			metrics := session.NewMetrics()
			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error("metrics server failed", zap.Error(err))
					}
				}()
				defer srv.Close()
				a.log.Info("serving metrics", zap.String("addr", metricsAddr))
			}
			w := &watcher{app: a, out: cmd.OutOrStdout(), goals: goals, metrics: metrics, debounce: debounce}
			return w.run(cmd.Context())
		},
	}
	a.addFileFlag(cmd)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "wait this long after a change before reloading")
	return cmd
}

type watcher struct {
	app      *app
	out      io.Writer
	goals    []ast.Expr
	metrics  *session.Metrics
	debounce time.Duration
}

// reload builds a new session from the files, verifies the goals and
// returns every source file the session depends on.
func (w *watcher) reload(ctx context.Context) ([]string, error) {
	var files []string
	for _, f := range w.app.files {
		srcs, err := session.DiscoverSources(f)
		if err != nil {
			return nil, err
		}
		paths, err := srcs.Files()
		if err != nil {
			return nil, err
		}
		files = append(files, paths...)
	}

	s, err := w.app.newSession(w.metrics)
	if err != nil {
		return files, err
	}
	fmt.Fprintf(w.out, "[%s] loaded %d file(s)\n", time.Now().Format(time.TimeOnly), len(files))
	if len(w.goals) == 0 {
		return files, nil
	}
	report, err := s.VerifyAll(ctx, w.goals)
	if err != nil {
		return files, err
	}
	fmt.Fprint(w.out, verify.FormatReport(report))
	return files, nil
}

func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	watched := map[string]bool{}
	watch := func(files []string) {
		for _, f := range files {
			dir := filepath.Dir(f)
			if watched[dir] {
				continue
			}
			if err := fw.Add(dir); err != nil {
				w.app.log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
				continue
			}
			watched[dir] = true
		}
	}
	reload := func() {
		files, err := w.reload(ctx)
		if err != nil {
			fmt.Fprintf(w.out, "reload failed: %v\n", err)
		}
		watch(files)
	}

	reload()
	if len(watched) == 0 {
		for _, f := range w.app.files {
			abs, err := filepath.Abs(f)
			if err == nil {
				watch([]string{abs})
			}
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Ext(event.Name) != session.SourceExt {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.app.log.Debug("source changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.app.log.Warn("file watcher error", zap.Error(err))
		}
	}
}
