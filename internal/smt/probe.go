package smt

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/Masterminds/semver/v3"
)

var versionPattern = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// Probe runs the solver binary for its version and checks it against a
// semver constraint such as ">= 4.8.0". An empty constraint accepts any
// version.
func Probe(ctx context.Context, path, constraint string) (*semver.Version, error) {
	if path == "" {
		path = "z3"
	}
	if _, err := exec.LookPath(path); err != nil {
		return nil, fmt.Errorf("solver not found: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return nil, fmt.Errorf("querying %s version: %w", path, err)
	}
	return CheckVersion(string(out), constraint)
}

// CheckVersion extracts a version from solver banner text and validates it
func CheckVersion(banner, constraint string) (*semver.Version, error) {
	m := versionPattern.FindString(banner)
	if m == "" {
		return nil, fmt.Errorf("no version in solver output %q", banner)
	}
	v, err := semver.NewVersion(m)
	if err != nil {
		return nil, fmt.Errorf("parsing solver version: %w", err)
	}
	if constraint == "" {
		return v, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	if !c.Check(v) {
		return v, fmt.Errorf("solver version %s does not satisfy %s", v, constraint)
	}
	return v, nil
}
