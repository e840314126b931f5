package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/parser"
)

// SourceExt is the extension every imported file must carry
const SourceExt = ".ax"

// Sources is the parsed import graph reachable from an entry file
type Sources struct {
	Entry    string
	programs map[string]*decl.Program // absolute path -> program
	deps     map[string][]string      // absolute path -> imported absolute paths
}

// DiscoverSources parses entry and, breadth first, every file it
// transitively imports. Imports resolve relative to the importing file.
// The first parse error aborts discovery.
func DiscoverSources(entry string) (*Sources, error) {
	abs, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entry path: %w", err)
	}
	s := &Sources{
		Entry:    abs,
		programs: map[string]*decl.Program{},
		deps:     map[string][]string{},
	}

	queue := []string{abs}
	visited := map[string]bool{}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if visited[path] {
			continue
		}
		visited[path] = true

		prog, err := parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		s.programs[path] = prog

		var deps []string
		for _, imp := range prog.Imports {
			resolved := filepath.Clean(filepath.Join(filepath.Dir(path), imp.Path))
			if !strings.HasSuffix(resolved, SourceExt) {
				return nil, fmt.Errorf("%s: import path must have %s extension: %s", imp.Pos, SourceExt, imp.Path)
			}
			if _, err := os.Stat(resolved); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%s: imported file not found: %s (resolved from %q)", imp.Pos, resolved, imp.Path)
			}
			deps = append(deps, resolved)
			if !visited[resolved] {
				queue = append(queue, resolved)
			}
		}
		s.deps[path] = deps
	}
	return s, nil
}

// Program returns the parsed program of an absolute path
func (s *Sources) Program(path string) *decl.Program { return s.programs[path] }

// Files returns every discovered absolute path in dependency order
func (s *Sources) Files() ([]string, error) { return s.sort() }

// Ordered returns the programs with every import before its importer and
// the entry file last.
func (s *Sources) Ordered() ([]*decl.Program, error) {
	paths, err := s.sort()
	if err != nil {
		return nil, err
	}
	out := make([]*decl.Program, len(paths))
	for i, p := range paths {
		out[i] = s.programs[p]
	}
	return out, nil
}

func (s *Sources) sort() ([]string, error) {
	var sorted []string
	visiting := map[string]bool{}
	visited := map[string]bool{}

	var visit func(path string, stack []string) error
	visit = func(path string, stack []string) error {
		if visiting[path] {
			start := 0
			for i, p := range stack {
				if p == path {
					start = i
					break
				}
			}
			var names []string
			for _, p := range append(stack[start:], path) {
				names = append(names, filepath.Base(p))
			}
			return fmt.Errorf("import cycle detected: %s", strings.Join(names, " -> "))
		}
		if visited[path] {
			return nil
		}
		visiting[path] = true
		stack = append(stack, path)
		for _, dep := range s.deps[path] {
			if err := visit(dep, stack); err != nil {
				return err
			}
		}
		visiting[path] = false
		visited[path] = true
		sorted = append(sorted, path)
		return nil
	}

	if err := visit(s.Entry, nil); err != nil {
		return nil, err
	}
	return sorted, nil
}
