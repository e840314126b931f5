package eval

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// builtinSource maps builtin operation names to the expression that
// computes them over float operands a and b. Builtins are computed
// exactly over rationals; a compiled program is only run when no exact
// result exists.
var builtinSource = map[string]string{
	"plus":         "a + b",
	"minus":        "a - b",
	"times":        "a * b",
	"divide":       "a / b",
	"power":        "a ** b",
	"negate":       "-a",
	"less_than":    "a < b",
	"greater_than": "a > b",
	"leq":          "a <= b",
	"geq":          "a >= b",
	"min":          "a < b ? a : b",
	"max":          "a > b ? a : b",
	"abs":          "a < 0 ? -a : a",
}

// builtinAliases lets witnesses name builtins the conventional way:
// builtin_add, builtin_mul, builtin_sub and so on.
var builtinAliases = map[string]string{
	"add": "plus", "sub": "minus", "mul": "times", "div": "divide",
	"pow": "power", "neg": "negate", "lt": "less_than", "gt": "greater_than",
	"le": "leq", "ge": "geq",
}

// canonicalBuiltin strips the builtin_ prefix and resolves aliases
func canonicalBuiltin(name string) (string, bool) {
	name = strings.TrimPrefix(name, "builtin_")
	if alias, ok := builtinAliases[name]; ok {
		name = alias
	}
	_, ok := builtinSource[name]
	return name, ok
}

func arity(name string) int {
	if strings.Contains(builtinSource[name], "b") {
		return 2
	}
	return 1
}

// errInexact makes run fall back to the float program
var errInexact = errors.New("no exact result")

// maxExactExponent bounds the integer powers computed exactly
const maxExactExponent = 4096

type exactFunc func(a, b *big.Rat) (interface{}, error)

func rat(f func(z, a, b *big.Rat) *big.Rat) exactFunc {
	return func(a, b *big.Rat) (interface{}, error) { return f(new(big.Rat), a, b), nil }
}

func cmp(ok func(c int) bool) exactFunc {
	return func(a, b *big.Rat) (interface{}, error) { return ok(a.Cmp(b)), nil }
}

var exact = map[string]exactFunc{
	"plus":  rat(func(z, a, b *big.Rat) *big.Rat { return z.Add(a, b) }),
	"minus": rat(func(z, a, b *big.Rat) *big.Rat { return z.Sub(a, b) }),
	"times": rat(func(z, a, b *big.Rat) *big.Rat { return z.Mul(a, b) }),
	"divide": func(a, b *big.Rat) (interface{}, error) {
		if b.Sign() == 0 {
			return nil, ErrDivisionByZero
		}
		return new(big.Rat).Quo(a, b), nil
	},
	"power":        power,
	"negate":       rat(func(z, a, _ *big.Rat) *big.Rat { return z.Neg(a) }),
	"abs":          rat(func(z, a, _ *big.Rat) *big.Rat { return z.Abs(a) }),
	"less_than":    cmp(func(c int) bool { return c < 0 }),
	"greater_than": cmp(func(c int) bool { return c > 0 }),
	"leq":          cmp(func(c int) bool { return c <= 0 }),
	"geq":          cmp(func(c int) bool { return c >= 0 }),
	"min": func(a, b *big.Rat) (interface{}, error) {
		if a.Cmp(b) < 0 {
			return a, nil
		}
		return b, nil
	},
	"max": func(a, b *big.Rat) (interface{}, error) {
		if a.Cmp(b) > 0 {
			return a, nil
		}
		return b, nil
	},
}

// power is exact for integral exponents up to maxExactExponent
func power(a, b *big.Rat) (interface{}, error) {
	if !b.IsInt() || !b.Num().IsInt64() {
		return nil, errInexact
	}
	n := b.Num().Int64()
	if n > maxExactExponent || n < -maxExactExponent {
		return nil, errInexact
	}
	base := a
	if n < 0 {
		if a.Sign() == 0 {
			return nil, ErrDivisionByZero
		}
		base = new(big.Rat).Inv(a)
		n = -n
	}
	e := big.NewInt(n)
	num := new(big.Int).Exp(base.Num(), e, nil)
	den := new(big.Int).Exp(base.Denom(), e, nil)
	return new(big.Rat).SetFrac(num, den), nil
}

// programs caches compiled builtin programs
type programs struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

func (p *programs) get(name string) (*vm.Program, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prog, ok := p.cache[name]; ok {
		return prog, nil
	}
	src, ok := builtinSource[name]
	if !ok {
		return nil, fmt.Errorf("unknown builtin %q", name)
	}
	prog, err := expr.Compile(src, expr.Env(map[string]interface{}{"a": 0.0, "b": 0.0}))
	if err != nil {
		return nil, fmt.Errorf("compiling builtin %s: %w", name, err)
	}
	if p.cache == nil {
		p.cache = map[string]*vm.Program{}
	}
	p.cache[name] = prog
	return prog, nil
}

// run applies a builtin to numeric operands. The result is a *big.Rat
// or a bool.
func (p *programs) run(name string, args []*big.Rat) (interface{}, error) {
	if len(args) != arity(name) {
		return nil, fmt.Errorf("builtin %s expects %d arguments, got %d", name, arity(name), len(args))
	}
	b := new(big.Rat)
	if len(args) > 1 {
		b = args[1]
	}
	if f, ok := exact[name]; ok {
		out, err := f(args[0], b)
		if !errors.Is(err, errInexact) {
			return out, err
		}
	}
	return p.float(name, args[0], b)
}

// float runs the compiled program over float64 approximations
func (p *programs) float(name string, a, b *big.Rat) (interface{}, error) {
	prog, err := p.get(name)
	if err != nil {
		return nil, err
	}
	fa, _ := a.Float64()
	fb, _ := b.Float64()
	out, err := expr.Run(prog, map[string]interface{}{"a": fa, "b": fb})
	if err != nil {
		return nil, fmt.Errorf("builtin %s: %w", name, err)
	}
	switch v := out.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("builtin %s: result is not a finite number", name)
		}
		return new(big.Rat).SetFloat64(v), nil
	case int:
		return new(big.Rat).SetInt64(int64(v)), nil
	case bool:
		return v, nil
	}
	return nil, fmt.Errorf("builtin %s returned %T", name, out)
}

// parseNumber reads a numeric literal exactly
func parseNumber(text string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", text)
	}
	return r, nil
}

// formatNumber renders integers without a fractional part, terminating
// fractions as decimals and anything else as p/q.
func formatNumber(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	den := new(big.Int).Set(r.Denom())
	digits := 0
	for _, f := range []int64{2, 5} {
		m := big.NewInt(f)
		q, rem := new(big.Int), new(big.Int)
		for {
			q.QuoRem(den, m, rem)
			if rem.Sign() != 0 {
				break
			}
			den.Set(q)
			digits++
		}
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return r.RatString()
	}
	s := r.FloatString(digits)
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}
