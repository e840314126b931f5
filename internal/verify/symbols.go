package verify

import (
	"strings"

	"github.com/lhaig/axiom/internal/smt"
)

// function is a recursive definition declared as an uninterpreted
// function with a definitional axiom.
type function struct {
	symbol string
	domain []smt.Sort
	rng    smt.Sort
}

// symbols tracks which solver names stand for which operations,
// constants and functions. A query works on a clone so that goal
// declarations never leak into the shared base state.
type symbols struct {
	ops    map[string]map[string]string
	consts map[string]smt.Sort
	fns    map[string]*function
}

func newSymbols() *symbols {
	return &symbols{
		ops:    map[string]map[string]string{},
		consts: map[string]smt.Sort{},
		fns:    map[string]*function{},
	}
}

func (s *symbols) clone() *symbols {
	c := newSymbols()
	for op, m := range s.ops {
		cm := make(map[string]string, len(m))
		for k, v := range m {
			cm[k] = v
		}
		c.ops[op] = cm
	}
	for k, v := range s.consts {
		c.consts[k] = v
	}
	for k, v := range s.fns {
		c.fns[k] = v
	}
	return c
}

func signatureKey(domain []smt.Sort, rng smt.Sort) string {
	parts := make([]string, len(domain)+1)
	for i, d := range domain {
		parts[i] = d.Name
	}
	parts[len(domain)] = rng.Name
	return strings.Join(parts, " ")
}

// op returns the symbol for an operation at the given signature,
// declaring it on first use. The first signature of a name keeps the
// plain name; later ones are mangled with their sorts.
func (s *symbols) op(out smt.Solver, name string, domain []smt.Sort, rng smt.Sort) (string, error) {
	key := signatureKey(domain, rng)
	if sym, ok := s.ops[name][key]; ok {
		return sym, nil
	}
	sym := name
	if len(s.ops[name]) > 0 || out.Declared(name) {
		parts := []string{name}
		for _, d := range domain {
			parts = append(parts, d.Name)
		}
		sym = strings.Join(parts, ".")
	}
	if err := out.DeclareFun(sym, domain, rng); err != nil {
		return "", err
	}
	if s.ops[name] == nil {
		s.ops[name] = map[string]string{}
	}
	s.ops[name][key] = sym
	return sym, nil
}

// constant declares a named constant, or returns the sort it was
// declared with before.
func (s *symbols) constant(out smt.Solver, name string, sort smt.Sort) (smt.Sort, bool, error) {
	if prev, ok := s.consts[name]; ok {
		return prev, false, nil
	}
	if err := out.DeclareFun(name, nil, sort); err != nil {
		return sort, false, err
	}
	s.consts[name] = sort
	return sort, true, nil
}
