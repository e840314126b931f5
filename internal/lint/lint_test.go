package lint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhaig/axiom/internal/diagnostic"
	"github.com/lhaig/axiom/internal/parser"
)

func parseAndLint(t *testing.T, source string) []diagnostic.Diagnostic {
	t.Helper()
	prog, err := parser.ParseString("test.ax", source)
	require.NoError(t, err)
	return Lint(prog, nil).All()
}

func withRule(diags []diagnostic.Diagnostic, rule string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range diags {
		if d.Rule == rule {
			out = append(out, d)
		}
	}
	return out
}

const protocol = `
data Protocol = ICMP | TCP | UDP
data Option(T) = None | Some(value : T)
`

func TestNonExhaustiveMatch(t *testing.T) {
	diags := parseAndLint(t, protocol+`
define port(p) = match p { TCP => 80 | UDP => 53 }
`)
	found := withRule(diags, RuleExhaustive)
	require.Len(t, found, 1)
	assert.Equal(t, diagnostic.Warning, found[0].Severity)
	assert.Contains(t, found[0].Message, "missing ICMP")
	assert.Equal(t, 5, found[0].Pos.Line)
	assert.Equal(t, "test.ax", found[0].Pos.File)
}

func TestExhaustiveMatchNoWarning(t *testing.T) {
	diags := parseAndLint(t, protocol+`
define port(p) = match p { TCP => 80 | UDP => 53 | ICMP => 0 }
define get(o) = match o { Some(v) => v | None => 0 }
define any(o) = match o { Some(_) => 1 | _ => 0 }
`)
	assert.Empty(t, withRule(diags, RuleExhaustive))
	assert.Empty(t, withRule(diags, RuleUnreachable))
}

func TestGuardedCaseDoesNotCover(t *testing.T) {
	diags := parseAndLint(t, protocol+`
define get(o) = match o { Some(v) if v > 0 => v | None => 0 }
`)
	found := withRule(diags, RuleExhaustive)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "Some(_)")
}

func TestUnreachableCase(t *testing.T) {
	diags := parseAndLint(t, protocol+`
define port(p) = match p { _ => 0 | TCP => 80 }
`)
	found := withRule(diags, RuleUnreachable)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "case 2 (TCP)")
}

func TestMatchInsideAxiom(t *testing.T) {
	diags := parseAndLint(t, protocol+`
structure Tagged(T) {
    operation tag : T → Protocol
    axiom tcp_first : ∀(x : T). match tag(x) { TCP => true } = true
}
`)
	assert.Len(t, withRule(diags, RuleExhaustive), 1)
}

func TestBadConstructorPattern(t *testing.T) {
	diags := parseAndLint(t, protocol+`
define f(o) = match o { Some(a, b) => a | _ => 0 }
`)
	found := withRule(diags, RulePattern)
	require.Len(t, found, 1)
	assert.Equal(t, diagnostic.Error, found[0].Severity)
	assert.Contains(t, found[0].Message, "expects 1 arguments")
}

func TestNamingConventions(t *testing.T) {
	diags := parseAndLint(t, `
data shape = point | Circle(r : ℝ)
structure my_monoid(M) {
    operation Mul : M × M → M
    axiom unit : ∀(x : M). Mul(x, x) = x
}
define Double(x) = x + x
`)
	found := withRule(diags, RuleNaming)
	var messages []string
	for _, d := range found {
		messages = append(messages, d.Message)
	}
	joined := strings.Join(messages, "\n")
	assert.Contains(t, joined, "data type 'shape'")
	assert.Contains(t, joined, "constructor 'point'")
	assert.Contains(t, joined, "structure 'my_monoid'")
	assert.Contains(t, joined, "'Mul' should use snake_case")
	assert.Contains(t, joined, "'Double' should use snake_case")
	assert.NotContains(t, joined, "Circle")
}

func TestSymbolicNamesPass(t *testing.T) {
	assert.True(t, isSnakeCase("mul"))
	assert.True(t, isSnakeCase("left_inv2"))
	assert.True(t, isSnakeCase("⊕"))
	assert.True(t, isSnakeCase("x'"))
	assert.False(t, isSnakeCase("2x"))
	assert.False(t, isSnakeCase("Mul"))
	assert.True(t, isPascalCase("ℝ"))
	assert.False(t, isPascalCase("My_Type"))
}

func TestUnusedParams(t *testing.T) {
	diags := parseAndLint(t, `
define first(a, b) = a
define second(_a, b) = b
`)
	found := withRule(diags, RuleUnusedParam)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "parameter 'b' in 'first'")
	assert.Contains(t, found[0].Hint, "'_b'")
}

func TestUnusedBinder(t *testing.T) {
	diags := parseAndLint(t, `
structure S(T) {
    operation f : T → T
    axiom a : ∀(x y : T). f(x) = x
}
`)
	found := withRule(diags, RuleUnusedBound)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "'y'")
}

func TestStructureWithoutAxioms(t *testing.T) {
	diags := parseAndLint(t, `
structure Magma(M) {
    operation op : M × M → M
}
structure Semigroup(M) extends Magma(M) {
    operation other : M → M
}
`)
	found := withRule(diags, RuleNoAxioms)
	require.Len(t, found, 1)
	assert.Equal(t, diagnostic.Info, found[0].Severity)
	assert.Contains(t, found[0].Message, "Magma")
}

func TestGroundAxiom(t *testing.T) {
	diags := parseAndLint(t, `
structure Pointed(P) {
    element zero : P
    element one : P
    axiom distinct : zero ≠ one
}
`)
	found := withRule(diags, RuleGroundAxiom)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "axiom 'distinct'")
}

func TestDiagnosticsSortedByPosition(t *testing.T) {
	diags := parseAndLint(t, protocol+`
define Late(p) = match p { TCP => 1 }
define Early(q) = 1
`)
	require.NotEmpty(t, diags)
	for i := 1; i < len(diags); i++ {
		assert.LessOrEqual(t, diags[i-1].Pos.Line, diags[i].Pos.Line)
	}
}
