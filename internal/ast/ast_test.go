package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallPrintsInfix(t *testing.T) {
	e := Apply("equals",
		Apply("plus", Var("x"), Apply("times", Var("y"), Num("2"))),
		Apply("times", Apply("plus", Var("x"), Var("y")), Num("2")))
	assert.Equal(t, "x + y * 2 = (x + y) * 2", e.String())

	sub := Apply("minus", Var("a"), Apply("minus", Var("b"), Var("c")))
	assert.Equal(t, "a - (b - c)", sub.String())

	assert.Equal(t, "¬(p ∧ q)", Apply("not", Apply("and", Var("p"), Var("q"))).String())
	assert.Equal(t, "mul(e, x)", Apply("mul", Var("e"), Var("x")).String())
}

func TestQuantifierAndMatchPrinting(t *testing.T) {
	q := &Quantifier{
		Kind: ForAll,
		Vars: []Binder{{Name: "x", Type: Named("ℕ")}, {Name: "y"}},
		Body: Apply("equals", Var("x"), Var("y")),
	}
	assert.Equal(t, "∀(x : ℕ, y). x = y", q.String())

	m := &MatchExpr{
		Scrutinee: Var("p"),
		Cases: []Case{
			{Pattern: &PCtor{Name: "Some", Args: []Pattern{&PVar{Name: "v"}}}, Body: Var("v")},
			{Pattern: &Wildcard{}, Body: Num("0")},
		},
	}
	assert.Equal(t, "match p { Some(v) => v | _ => 0 }", m.String())
}

func TestFreeVars(t *testing.T) {
	e := &Quantifier{
		Vars: []Binder{{Name: "x"}},
		Body: Apply("equals", Apply("mul", Var("e"), Var("x")), Var("x")),
	}
	assert.Equal(t, []string{"e"}, FreeVars(e))

	m := &MatchExpr{
		Scrutinee: Var("p"),
		Cases: []Case{{
			Pattern: &PAs{Pattern: &PCtor{Name: "Pair", Args: []Pattern{&PVar{Name: "a"}, &Wildcard{}}}, Name: "whole"},
			Body:    Apply("f", Var("a"), Var("whole"), Var("z")),
		}},
	}
	assert.Equal(t, []string{"p", "z"}, FreeVars(m))
}

func TestSubstituteAvoidsCapture(t *testing.T) {
	// ∀y. x = y  with x := y must not capture.
	e := &Quantifier{Vars: []Binder{{Name: "y"}}, Body: Apply("equals", Var("x"), Var("y"))}
	got := Substitute(e, map[string]Expr{"x": Var("y")})
	assert.Equal(t, "∀(y_1). y = y_1", got.String())

	// bound occurrences are untouched
	got = Substitute(e, map[string]Expr{"y": Num("3")})
	assert.Equal(t, e.String(), got.String())
}

func TestSubstituteTypes(t *testing.T) {
	e := &Quantifier{Vars: []Binder{{Name: "x", Type: Named("M")}}, Body: Apply("equals", Var("x"), Var("x"))}
	got := SubstituteTypes(e, map[string]TypeExpr{"M": Named("G")})
	assert.Equal(t, "∀(x : G). x = x", got.String())

	ft := Func(Named("M"), Named("M"), Named("Matrix", tn("n"), &TypeNat{Value: 2}))
	assert.Equal(t, "G × Matrix(k, 2) → G",
		SubstituteType(ft, map[string]TypeExpr{"M": Named("G"), "n": Named("k")}).String())
}

func tn(name string) TypeExpr { return Named(name) }

func TestCallNamesAndEqual(t *testing.T) {
	e := Apply("plus", Apply("mul", Var("a"), Var("b")), Apply("mul", Var("b"), Var("a")))
	assert.Equal(t, []string{"plus", "mul"}, CallNames(e))
	assert.True(t, Equal(e, Apply("plus", Apply("mul", Var("a"), Var("b")), Apply("mul", Var("b"), Var("a")))))
	assert.False(t, Equal(e, nil))
}
