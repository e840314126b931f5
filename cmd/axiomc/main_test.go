package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lhaig/axiom/internal/config"
)

const network = `
data Protocol = ICMP | TCP | UDP
data Address = A1 | A2
data Packet = Packet(version : ℕ, headerLen : ℕ, len : ℕ, ttl : ℕ, protocol : Protocol, src : Address, dst : Address)

define get_ttl(p : Packet) : ℕ = match p { Packet(_, _, _, t, _, _, _) => t }
define port(p : Protocol) : ℕ = match p { TCP => 80 | UDP => 53 }
`

// isolate keeps user and working directory config files out of the test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvSolverTimeout, "")
	t.Setenv(config.EnvSolverPath, "")
	t.Setenv(config.EnvLogLevel, "")
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	isolate(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheck(t *testing.T) {
	path := writeSource(t, "network.ax", network)
	out, err := run(t, "check", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "missing ICMP")
	assert.Contains(t, out, "No errors found.")
}

func TestCheckLoadError(t *testing.T) {
	path := writeSource(t, "broken.ax", "implements Missing(ℝ) {\n    operation f = builtin_add\n}\n")
	_, err := run(t, "check", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing")
}

func TestLint(t *testing.T) {
	path := writeSource(t, "network.ax", network)
	out, err := run(t, "lint", path)
	require.NoError(t, err)
	assert.Contains(t, out, "non-exhaustive match")
	assert.Contains(t, out, "0 error(s), 1 warning(s) found.")
}

func TestEvalAndInfer(t *testing.T) {
	path := writeSource(t, "network.ax", network)

	out, err := run(t, "eval", "-f", path, "get_ttl(Packet(4, 5, 100, 64, TCP, A1, A2))", "port(UDP)")
	require.NoError(t, err, out)
	assert.Contains(t, out, "get_ttl(Packet(4, 5, 100, 64, TCP, A1, A2)) = 64")
	assert.Contains(t, out, "port(UDP) = 53")

	out, err = run(t, "infer", "-f", path, "1 + 2")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 + 2 : Scalar")
}

func TestEvalReportsEachFailure(t *testing.T) {
	path := writeSource(t, "network.ax", network)
	out, err := run(t, "eval", "-f", path, "port(ICMP)", "port(TCP)")
	require.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "port(ICMP):")
	assert.Contains(t, out, "port(TCP) = 80")
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfgPath := writeSource(t, "axiom.yaml", "solver:\n  timeout: 45s\n  path: /opt/z3\n")
	orig := probe
	t.Cleanup(func() { probe = orig })
	var gotPath string
	probe = func(_ context.Context, path, _ string) (*semver.Version, error) {
		gotPath = path
		return semver.MustParse("4.12.2"), nil
	}

	out, err := run(t, "--config", cfgPath, "--timeout", "5s", "solver")
	require.NoError(t, err)
	assert.Equal(t, "/opt/z3", gotPath, "file value kept when the flag is not set")
	assert.Contains(t, out, "version:     4.12.2")
	assert.Contains(t, out, "timeout:     5s")

	_, err = run(t, "--config", cfgPath, "--solver", "/usr/bin/z3", "solver")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/z3", gotPath)
}

func TestInvalidTimeoutFlag(t *testing.T) {
	_, err := run(t, "--timeout", "soon", "solver")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--timeout")
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "protocol.ax"), []byte("data Protocol = ICMP | TCP | UDP\n"), 0o644))
	main := filepath.Join(dir, "main.ax")
	require.NoError(t, os.WriteFile(main, []byte("import \"protocol.ax\"\ndefine web = TCP\n"), 0o644))

	var out bytes.Buffer
	w := &watcher{
		app: &app{cfg: config.Default(), log: zap.NewNop(), files: []string{main}},
		out: &out,
	}
	files, err := w.reload(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, out.String(), "loaded 2 file(s)")

	require.NoError(t, os.WriteFile(main, []byte("import \"protocol.ax\"\ndefine web = \n"), 0o644))
	_, err = w.reload(context.Background())
	assert.Error(t, err)
}

func TestVerifyWithZ3(t *testing.T) {
	if _, err := exec.LookPath("z3"); err != nil {
		t.Skip("z3 not found in PATH, skipping integration test")
	}
	path := writeSource(t, "network.ax", network)

	out, err := run(t, "verify", "--metrics-dump", "-f", path,
		"get_ttl(Packet(4, 5, 100, 64, TCP, A1, A2)) = 64",
		"∀(ttl : ℕ). get_ttl(Packet(4, 5, 100, ttl, TCP, A1, A2)) = ttl",
		"TCP ≠ UDP")
	require.NoError(t, err, out)
	assert.Contains(t, out, "all 3 goals valid")
	assert.Contains(t, out, `axiom_queries_total{kind="verify",status="valid"} 3`)

	out, err = run(t, "verify", "-f", path, "TCP = UDP")
	require.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "INVALID")
}
