package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "z3", cfg.Solver.Path)
	assert.Equal(t, 30*time.Second, cfg.Solver.Timeout.Std())
	assert.Equal(t, ">=4.8.0", cfg.Solver.MinVersion)
	assert.Equal(t, 4, cfg.Solver.MaxParallel)
	assert.False(t, cfg.Solver.RejectNonExhaustive)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "axiom.yaml", `
solver:
  path: /opt/z3/bin/z3
  timeout: 45s
  reject_non_exhaustive: true
log:
  level: debug
  format: json
  file: /tmp/axiom.log
metrics:
  enabled: true
`)
	t.Setenv(EnvSolverTimeout, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "/opt/z3/bin/z3", cfg.Solver.Path)
	assert.Equal(t, 45*time.Second, cfg.Solver.Timeout.Std())
	assert.True(t, cfg.Solver.RejectNonExhaustive)
	assert.Equal(t, 4, cfg.Solver.MaxParallel, "unset keys keep their defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "axiom.json", `{"solver": {"timeout": 1500, "max_parallel": 2}}`)
	t.Setenv(EnvSolverTimeout, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Solver.Timeout.Std())
	assert.Equal(t, 2, cfg.Solver.MaxParallel)
}

func TestTimeoutMilliseconds(t *testing.T) {
	path := writeFile(t, "axiom.yaml", "solver:\n  timeout: 250\n")
	t.Setenv(EnvSolverTimeout, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Solver.Timeout.Std())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "axiom.yaml", "solver:\n  timeout: 45s\n  path: z3-file\n")
	t.Setenv(EnvSolverTimeout, "5000")
	t.Setenv(EnvSolverPath, "/usr/local/bin/z3")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Solver.Timeout.Std())
	assert.Equal(t, "/usr/local/bin/z3", cfg.Solver.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(env(map[string]string{EnvSolverTimeout: "2m"})))
	assert.Equal(t, 2*time.Minute, cfg.Solver.Timeout.Std())

	err := cfg.ApplyEnv(env(map[string]string{EnvSolverTimeout: "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvSolverTimeout)
}

func TestSearchOrder(t *testing.T) {
	first := writeFile(t, "first.yaml", "solver:\n  path: from-env-file\n")
	t.Setenv(EnvConfig, first)
	t.Setenv(EnvSolverPath, "")
	t.Setenv(EnvSolverTimeout, "")

	paths := SearchPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, first, paths[0])
	assert.Equal(t, "axiom.yaml", paths[len(paths)-1])

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env-file", cfg.Solver.Path)
	assert.Equal(t, first, cfg.Source)
}

func TestMissingFiles(t *testing.T) {
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvSolverTimeout, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err, "missing files in the search path are skipped")
	assert.Empty(t, cfg.Source)

	_, err = Load(filepath.Join(t.TempDir(), "explicit.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist, "an explicit path must exist")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv(EnvSolverTimeout, "")
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed yaml", "solver: [", "parsing config yaml"},
		{"bad duration", "solver:\n  timeout: later\n", "line 2"},
		{"negative duration", "solver:\n  timeout: -5s\n", "negative"},
		{"zero parallel", "solver:\n  max_parallel: 0\n", "max_parallel"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "axiom.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
