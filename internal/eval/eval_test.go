package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/registry"
)

func shapes() *decl.Program {
	return &decl.Program{
		File: "shapes.ax",
		Data: []*decl.Data{{
			Name: "Shape",
			Variants: []*decl.Variant{
				{Name: "Point"},
				{Name: "Circle", Fields: []decl.Field{{Name: "radius", Type: ast.Named("ℝ")}}},
				{Name: "Rect", Fields: []decl.Field{{Name: "w", Type: ast.Named("ℝ")}, {Name: "h", Type: ast.Named("ℝ")}}},
			},
		}},
		Structures: []*decl.Structure{{
			Name:       "Monoid",
			Params:     []decl.TypeParam{{Name: "M"}},
			Operations: []*decl.OpSig{{Name: "mul", Signature: ast.Func(ast.Named("M"), ast.Named("M"), ast.Named("M"))}},
			Elements:   []*decl.Element{{Name: "unit", Type: ast.Named("M")}},
		}},
		Witnesses: []*decl.Witness{{
			Structure:  "Monoid",
			Args:       []ast.TypeExpr{ast.Named("ℝ")},
			Operations: []*decl.OpImpl{{Name: "mul", Body: &decl.Body{Builtin: "builtin_mul"}}},
			Elements:   []*decl.ElementImpl{{Name: "unit", Value: ast.Num("1")}},
		}, {
			Structure: "Monoid",
			Args:      []ast.TypeExpr{ast.Named("Shape")},
			Operations: []*decl.OpImpl{{Name: "mul", Body: &decl.Body{
				Params: []string{"a", "b"},
				Expr:   ast.Var("b"),
			}}},
		}},
		Functions: []*decl.Function{{
			Name:   "area",
			Params: []decl.Param{{Name: "s"}},
			Body: &ast.MatchExpr{
				Scrutinee: ast.Var("s"),
				Cases: []ast.Case{
					{Pattern: &ast.PVar{Name: "Point"}, Body: ast.Num("0")},
					{Pattern: &ast.PCtor{Name: "Circle", Args: []ast.Pattern{&ast.PVar{Name: "r"}}},
						Body: ast.Apply("times", ast.Num("3"), ast.Apply("power", ast.Var("r"), ast.Num("2")))},
					{Pattern: &ast.PCtor{Name: "Rect", Args: []ast.Pattern{&ast.PVar{Name: "w"}, &ast.PVar{Name: "h"}}},
						Guard: ast.Apply("equals", ast.Var("w"), ast.Var("h")), Body: ast.Apply("power", ast.Var("w"), ast.Num("2"))},
					{Pattern: &ast.PCtor{Name: "Rect", Args: []ast.Pattern{&ast.PVar{Name: "w"}, &ast.PVar{Name: "h"}}},
						Body: ast.Apply("times", ast.Var("w"), ast.Var("h"))},
				},
			},
		}, {
			Name:   "fact",
			Params: []decl.Param{{Name: "n"}},
			Body: &ast.IfExpr{
				Cond: ast.Apply("leq", ast.Var("n"), ast.Num("0")),
				Then: ast.Num("1"),
				Else: ast.Apply("times", ast.Var("n"), ast.Apply("fact", ast.Apply("minus", ast.Var("n"), ast.Num("1")))),
			},
		}, {
			Name:   "loop",
			Params: []decl.Param{{Name: "n"}},
			Body:   ast.Apply("loop", ast.Var("n")),
		}},
	}
}

func newEvaluator(t *testing.T, opts ...Option) *Evaluator {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Load(shapes()))
	return New(reg, opts...)
}

func evalString(t *testing.T, ev *Evaluator, e ast.Expr) string {
	t.Helper()
	v, err := ev.Eval(e, nil)
	require.NoError(t, err)
	require.True(t, ev.IsValue(v), "not a value: %s", v)
	return v.String()
}

func TestEvalArithmetic(t *testing.T) {
	ev := newEvaluator(t)

	assert.Equal(t, "7", evalString(t, ev, ast.Apply("plus", ast.Num("3"), ast.Num("4"))))
	assert.Equal(t, "2.5", evalString(t, ev, ast.Apply("divide", ast.Num("5"), ast.Num("2"))))
	assert.Equal(t, "1024", evalString(t, ev, ast.Apply("power", ast.Num("2"), ast.Num("10"))))
	assert.Equal(t, "-3", evalString(t, ev, ast.Apply("negate", ast.Num("3"))))
	assert.Equal(t, "true", evalString(t, ev, ast.Apply("leq", ast.Num("2"), ast.Num("2.0"))))
	assert.Equal(t, "5", evalString(t, ev, ast.Num("5.0")))
}

func TestEvalArithmeticIsExact(t *testing.T) {
	ev := newEvaluator(t)
	huge := "9007199254740993"

	assert.Equal(t, huge, evalString(t, ev, ast.Apply("plus", ast.Num(huge), ast.Num("0"))))
	assert.Equal(t, "false", evalString(t, ev, ast.Apply("equals", ast.Num(huge), ast.Num("9007199254740992"))))
	assert.Equal(t, "1267650600228229401496703205376", evalString(t, ev, ast.Apply("power", ast.Num("2"), ast.Num("100"))))
	assert.Equal(t, "1/3", evalString(t, ev, ast.Apply("divide", ast.Num("1"), ast.Num("3"))))
	assert.Equal(t, "1", evalString(t, ev, ast.Apply("times", ast.Apply("divide", ast.Num("1"), ast.Num("3")), ast.Num("3"))))
	assert.Equal(t, "0.25", evalString(t, ev, ast.Apply("power", ast.Num("2"), ast.Num("-2"))))
	assert.Equal(t, "0.3", evalString(t, ev, ast.Apply("plus", ast.Num("0.1"), ast.Num("0.2"))))
	assert.Equal(t, "2", evalString(t, ev, ast.Apply("power", ast.Num("4"), ast.Num("0.5"))), "fractional exponents fall back to floats")

	_, err := ev.Eval(ast.Apply("power", ast.Num("0"), ast.Num("-1")), nil)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestEvalDivisionByZero(t *testing.T) {
	ev := newEvaluator(t)
	_, err := ev.Eval(ast.Apply("divide", ast.Num("1"), ast.Num("0")), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDivisionByZero))
}

func TestEvalLogicShortCircuits(t *testing.T) {
	ev := newEvaluator(t)
	boom := ast.Apply("divide", ast.Num("1"), ast.Num("0"))
	guarded := ast.Apply("and", ast.False, ast.Apply("equals", boom, ast.Num("1")))
	assert.Equal(t, "false", evalString(t, ev, guarded))
	assert.Equal(t, "true", evalString(t, ev, ast.Apply("implies", ast.False, ast.Var("undefined"))))
	assert.Equal(t, "false", evalString(t, ev, ast.Apply("iff", ast.True, ast.Apply("not", ast.True))))
}

func TestEvalMatchAndFunctions(t *testing.T) {
	ev := newEvaluator(t)

	assert.Equal(t, "0", evalString(t, ev, ast.Apply("area", ast.Var("Point"))))
	assert.Equal(t, "12", evalString(t, ev, ast.Apply("area", ast.Apply("Circle", ast.Num("2")))))
	assert.Equal(t, "9", evalString(t, ev, ast.Apply("area", ast.Apply("Rect", ast.Num("3"), ast.Num("3")))))
	assert.Equal(t, "6", evalString(t, ev, ast.Apply("area", ast.Apply("Rect", ast.Num("2"), ast.Num("3")))))
	assert.Equal(t, "120", evalString(t, ev, ast.Apply("fact", ast.Num("5"))))
}

func TestEvalConstructorsAndEquality(t *testing.T) {
	ev := newEvaluator(t)

	assert.Equal(t, "Circle(3)", evalString(t, ev, ast.Apply("Circle", ast.Apply("plus", ast.Num("1"), ast.Num("2")))))
	assert.Equal(t, "false", evalString(t, ev, ast.Apply("equals", ast.Var("Point"), ast.Apply("Circle", ast.Num("0")))))
	assert.Equal(t, "true", evalString(t, ev, ast.Apply("equals", ast.Apply("Circle", ast.Num("1")), ast.Apply("Circle", ast.Num("1.0")))))
}

func TestEvalDispatchesToWitness(t *testing.T) {
	ev := newEvaluator(t)

	assert.Equal(t, "12", evalString(t, ev, ast.Apply("mul", ast.Num("3"), ast.Num("4"))))
	assert.Equal(t, "Point", evalString(t, ev, ast.Apply("mul", ast.Apply("Circle", ast.Num("1")), ast.Var("Point"))))
	assert.Equal(t, "5", evalString(t, ev, ast.Apply("mul", ast.Var("unit"), ast.Num("5"))))
}

func TestEvalLetAndIf(t *testing.T) {
	ev := newEvaluator(t)
	e := &ast.LetExpr{Name: "x", Value: ast.Num("4"), Body: &ast.IfExpr{
		Cond: ast.Apply("greater_than", ast.Var("x"), ast.Num("3")),
		Then: ast.Apply("times", ast.Var("x"), ast.Num("2")),
		Else: ast.Num("0"),
	}}
	assert.Equal(t, "8", evalString(t, ev, e))

	v, err := ev.Eval(ast.Apply("plus", ast.Var("y"), ast.Num("1")), Env{"y": ast.Num("2")})
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())
}

func TestEvalRejectsNonGround(t *testing.T) {
	ev := newEvaluator(t)

	_, err := ev.Eval(ast.Apply("plus", ast.Var("x"), ast.Num("1")), nil)
	assert.True(t, errors.Is(err, ErrNotGround))

	q := &ast.Quantifier{Kind: ast.ForAll, Vars: []ast.Binder{{Name: "x"}}, Body: ast.True}
	_, err = ev.Eval(q, nil)
	assert.True(t, errors.Is(err, ErrNotGround))
}

func TestEvalDepthLimit(t *testing.T) {
	ev := newEvaluator(t, WithMaxDepth(50))
	_, err := ev.Eval(ast.Apply("loop", ast.Num("1")), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDepthExceeded))

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Expr, "loop")
}

func TestEvalNoMatchingCase(t *testing.T) {
	ev := newEvaluator(t)
	m := &ast.MatchExpr{
		Scrutinee: ast.Var("Point"),
		Cases:     []ast.Case{{Pattern: &ast.PCtor{Name: "Circle", Args: []ast.Pattern{&ast.Wildcard{}}}, Body: ast.Num("1")}},
	}
	_, err := ev.Eval(m, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no case matches")
}
