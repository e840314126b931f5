package adt

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/smt"
)

func protocol() *decl.Data {
	return &decl.Data{Name: "Protocol", Variants: []*decl.Variant{{Name: "ICMP"}, {Name: "TCP"}, {Name: "UDP"}}}
}

func tree() *decl.Data {
	return &decl.Data{Name: "Tree", Variants: []*decl.Variant{
		{Name: "Leaf"},
		{Name: "Node", Fields: []decl.Field{
			{Name: "left", Type: ast.Named("Tree")},
			{Name: "proto", Type: ast.Named("Protocol")},
			{Name: "right", Type: ast.Named("Tree")},
		}},
	}}
}

func newRegistry(t *testing.T) *Registry {
	r := NewRegistry()
	require.NoError(t, r.Register(protocol()))
	require.NoError(t, r.Register(tree()))
	return r
}

func TestRegister(t *testing.T) {
	r := newRegistry(t)
	c, ok := r.Constructor("Node")
	require.True(t, ok)
	assert.Equal(t, 3, c.Arity())
	assert.Equal(t, 1, c.Tag)
	assert.Equal(t, "proto", c.FieldName(1))

	assert.ErrorIs(t, r.Register(protocol()), ErrDuplicateType)
	assert.ErrorIs(t, r.Register(&decl.Data{Name: "Other", Variants: []*decl.Variant{{Name: "TCP"}}}), ErrDuplicateConstructor)
	_, ok = r.Data("Other")
	assert.False(t, ok)
	assert.ErrorIs(t, r.Register(&decl.Data{Name: "Void"}), ErrNoConstructors)

	var names []string
	for _, c := range r.Identities() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"ICMP", "TCP", "UDP", "Leaf"}, names)
}

func TestCloneIsolation(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(protocol()))
	c := r.Clone()
	require.NoError(t, c.Register(tree()))
	_, ok := r.Data("Tree")
	assert.False(t, ok)
	assert.Len(t, c.Types(), 2)
}

func TestResolvePatterns(t *testing.T) {
	r := newRegistry(t)
	m := &ast.MatchExpr{Scrutinee: ast.Var("p"), Cases: []ast.Case{
		{Pattern: &ast.PVar{Name: "TCP"}, Body: ast.Num("1")},
		{Pattern: &ast.PVar{Name: "other"}, Body: ast.Num("2")},
	}}
	out, err := r.ResolvePatterns(m)
	require.NoError(t, err)
	cases := out.(*ast.MatchExpr).Cases
	assert.IsType(t, &ast.PCtor{}, cases[0].Pattern)
	assert.IsType(t, &ast.PVar{}, cases[1].Pattern)

	bad := &ast.MatchExpr{Scrutinee: ast.Var("p"), Cases: []ast.Case{
		{Pattern: &ast.PCtor{Name: "Node", Args: []ast.Pattern{&ast.Wildcard{}}}, Body: ast.Num("1")},
	}}
	_, err = r.ResolvePatterns(bad)
	var pe *PatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Expected)

	_, err = r.ResolvePatterns(&ast.MatchExpr{Scrutinee: ast.Var("p"), Cases: []ast.Case{
		{Pattern: &ast.PCtor{Name: "Nope"}, Body: ast.Num("1")},
	}})
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Unknown)
}

func node(l ast.Expr, p string, r ast.Expr) ast.Expr { return ast.Apply("Node", l, ast.Var(p), r) }

var leaf = ast.Var("Leaf")

func sampleCases() []ast.Case {
	w := &ast.Wildcard{}
	return []ast.Case{
		{Pattern: &ast.PCtor{Name: "Node", Args: []ast.Pattern{
			&ast.PCtor{Name: "Node", Args: []ast.Pattern{w, &ast.PVar{Name: "p"}, w}},
			&ast.PCtor{Name: "TCP"}, w}}, Body: ast.Num("1")},
		{Pattern: &ast.PCtor{Name: "Node", Args: []ast.Pattern{w, &ast.PVar{Name: "q"}, &ast.PCtor{Name: "Leaf"}}}, Body: ast.Num("2")},
		{Pattern: &ast.PCtor{Name: "Leaf"}, Body: ast.Num("3")},
		{Pattern: w, Body: ast.Num("4")},
	}
}

func TestSelect(t *testing.T) {
	r := newRegistry(t)
	i, b, err := r.Select(node(node(leaf, "UDP", leaf), "TCP", leaf), sampleCases(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, "UDP", b["p"].String())

	i, b, err = r.Select(node(leaf, "ICMP", leaf), sampleCases(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, "ICMP", b["q"].String())

	guarded := []ast.Case{{Pattern: &ast.PVar{Name: "x"}, Guard: ast.False, Body: ast.Num("0")}}
	_, _, err = r.Select(leaf, guarded, func(ast.Expr, Bindings) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, ErrNoMatch)

	_, ok := r.Match(ast.Num("64.0"), &ast.PLit{Value: ast.Num("64")})
	assert.True(t, ok)
}

func TestMissingAndUnreachable(t *testing.T) {
	r := newRegistry(t)
	partial := []ast.Case{
		{Pattern: &ast.PCtor{Name: "ICMP"}, Body: ast.Num("1")},
		{Pattern: &ast.PCtor{Name: "TCP"}, Body: ast.Num("2")},
	}
	assert.Equal(t, []string{"UDP"}, r.Missing(partial))

	full := append(partial, ast.Case{Pattern: &ast.PCtor{Name: "UDP"}, Body: ast.Num("3")})
	assert.Empty(t, r.Missing(full))

	bare := []ast.Case{{Pattern: &ast.PVar{Name: "TCP"}, Body: ast.Num("1")}}
	assert.Equal(t, []string{"ICMP", "UDP"}, r.Missing(bare), "a constructor name is not a catch-all")
	bare = append(bare, ast.Case{Pattern: &ast.PAs{Pattern: &ast.PVar{Name: "TCP"}, Name: "again"}, Body: ast.Num("2")})
	assert.Equal(t, []int{1}, r.Unreachable(bare))
	assert.Empty(t, r.Unreachable([]ast.Case{
		{Pattern: &ast.PVar{Name: "TCP"}, Body: ast.Num("1")},
		{Pattern: &ast.PVar{Name: "UDP"}, Body: ast.Num("2")},
	}))

	guarded := []ast.Case{{Pattern: &ast.Wildcard{}, Guard: ast.Var("g"), Body: ast.Num("1")}}
	assert.Equal(t, []string{"_"}, r.Missing(guarded))

	nested := []ast.Case{
		{Pattern: &ast.PCtor{Name: "Leaf"}, Body: ast.Num("1")},
		{Pattern: &ast.PCtor{Name: "Node", Args: []ast.Pattern{&ast.Wildcard{}, &ast.PCtor{Name: "TCP"}, &ast.Wildcard{}}}, Body: ast.Num("2")},
	}
	assert.Equal(t, []string{"Node(_, _, _)"}, r.Missing(nested))

	assert.Empty(t, r.Unreachable(sampleCases()))
	shadowed := append(sampleCases(), ast.Case{Pattern: &ast.PCtor{Name: "Leaf"}, Body: ast.Num("5")})
	assert.Equal(t, []int{4}, r.Unreachable(shadowed))
}

func TestDeclareEmitsDatatypes(t *testing.T) {
	r := newRegistry(t)
	s := smt.NewZ3("z3", nil)
	require.NoError(t, r.Declare(s))
	text := s.Text()

	assert.Contains(t, text, "(declare-datatypes ((Protocol 0) (Tree 0)) (((ICMP) (TCP) (UDP)) ((Leaf) (Node (Node.left Tree) (Node.proto Protocol) (Node.right Tree)))))")
	assert.NotContains(t, text, "declare-sort")
	assert.Contains(t, text, "(assert (distinct ICMP TCP UDP))")
	assert.NotContains(t, text, "Leaf ICMP")
	assert.Contains(t, text, "(assert (forall ((x0 Tree) (x1 Protocol) (x2 Tree)) (= (Tree.tag (Node x0 x1 x2)) 1)))")
	assert.Contains(t, text, "(assert (= (Protocol.tag UDP) 2))")

	assert.True(t, s.Declared("Node.proto"))
	assert.True(t, s.Declared("Leaf"))
	require.NoError(t, s.DeclareFun("TCP", nil, Sort("Protocol")), "constructor signature matches")

	require.NoError(t, r.Declare(s.Clone()), "declaring into a state that has the types is a no-op for the group")
}

func TestConditionIsStaticOnConstructorTerms(t *testing.T) {
	r := newRegistry(t)
	tcp, _ := r.Constructor("TCP")
	udp, _ := r.Constructor("UDP")

	cond, _, err := r.Condition(&ast.PCtor{Name: "TCP"}, tcp.Term())
	require.NoError(t, err)
	assert.Equal(t, "true", cond.String())

	cond, _, err = r.Condition(&ast.PCtor{Name: "TCP"}, udp.Term())
	require.NoError(t, err)
	assert.Equal(t, "false", cond.String())

	x := smt.Var("x", Sort("Tree"))
	cond, b, err := r.Condition(&ast.PCtor{Name: "Node", Args: []ast.Pattern{&ast.Wildcard{}, &ast.PVar{Name: "p"}, &ast.Wildcard{}}}, x)
	require.NoError(t, err)
	assert.Equal(t, "(= (Tree.tag x) 1)", cond.String())
	assert.Equal(t, "(Node.proto x)", b["p"].String())
}

func TestTranslateMatchSentinel(t *testing.T) {
	r := newRegistry(t)
	p := smt.Var("p", Sort("Protocol"))
	cases := []ast.Case{
		{Pattern: &ast.PCtor{Name: "ICMP"}, Body: ast.Num("1")},
		{Pattern: &ast.PCtor{Name: "TCP"}, Body: ast.Num("2")},
	}
	term, exhaustive, err := r.TranslateMatch(p, cases, literalBodies(cases))
	require.NoError(t, err)
	assert.False(t, exhaustive)
	assert.Equal(t, "(ite (= p ICMP) 1 (ite (= p TCP) 2 unmatched.Int))", term.String())

	cases = append(cases, ast.Case{Pattern: &ast.Wildcard{}, Body: ast.Num("3")})
	term, exhaustive, err = r.TranslateMatch(p, cases, literalBodies(cases))
	require.NoError(t, err)
	assert.True(t, exhaustive)
	assert.Equal(t, "(ite (= p ICMP) 1 (ite (= p TCP) 2 3))", term.String())

	covering := []ast.Case{cases[0], cases[1], {Pattern: &ast.PVar{Name: "UDP"}, Body: ast.Num("3")}}
	term, exhaustive, err = r.TranslateMatch(p, covering, literalBodies(covering))
	require.NoError(t, err)
	assert.True(t, exhaustive)
	assert.Equal(t, "(ite (= p ICMP) 1 (ite (= p TCP) 2 3))", term.String())

	guardedLast := []ast.Case{cases[0], cases[1], {Pattern: &ast.PCtor{Name: "UDP"}, Guard: ast.True, Body: ast.Num("3")}}
	_, exhaustive, err = r.TranslateMatch(p, guardedLast, func(i int, _ TermBindings) (smt.Term, smt.Term, error) {
		body, err := LiteralTerm(guardedLast[i].Body)
		if guardedLast[i].Guard != nil {
			return body, smt.Var("g", smt.Bool), err
		}
		return body, nil, err
	})
	require.NoError(t, err)
	assert.False(t, exhaustive)
}

func literalBodies(cases []ast.Case) BodyFunc {
	return func(i int, _ TermBindings) (smt.Term, smt.Term, error) {
		body, err := LiteralTerm(cases[i].Body)
		return body, nil, err
	}
}

// toValue converts a ground expression to the solver's value form
func toValue(t *testing.T, e ast.Expr) smt.Value {
	switch n := e.(type) {
	case *ast.Ident:
		return smt.CtorValue(n.Name)
	case *ast.Call:
		args := make([]smt.Value, len(n.Args))
		for i, a := range n.Args {
			args[i] = toValue(t, a)
		}
		return smt.CtorValue(n.Op, args...)
	case *ast.NumLit:
		v, err := strconv.ParseInt(n.Text, 10, 64)
		require.NoError(t, err)
		return smt.NumValue(v)
	}
	t.Fatalf("not a value: %s", e)
	return smt.Value{}
}

func TestMatchTranslationAgreesWithSelection(t *testing.T) {
	r := newRegistry(t)
	cases := sampleCases()
	x := smt.Var("x", Sort("Tree"))
	term, exhaustive, err := r.TranslateMatch(x, cases, literalBodies(cases))
	require.NoError(t, err)
	assert.True(t, exhaustive)

	values := []ast.Expr{leaf}
	for depth := 1; depth <= 3; depth++ {
		var next []ast.Expr
		for _, l := range values {
			for _, p := range []string{"ICMP", "TCP", "UDP"} {
				next = append(next, node(l, p, leaf), node(leaf, p, l))
			}
		}
		values = append(values, next...)
	}
	require.Greater(t, len(values), 50)

	for _, v := range values {
		i, _, err := r.Select(v, cases, nil)
		require.NoError(t, err)
		got, err := smt.Evaluate(term, map[string]smt.Value{"x": toValue(t, v)}, r.Interp())
		require.NoError(t, err, v.String())
		assert.Equal(t, fmt.Sprint(i+1), got.String(), v.String())
	}
}
