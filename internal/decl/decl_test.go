package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lhaig/axiom/internal/ast"
)

func monoid() *Structure {
	return &Structure{
		Name:   "Monoid",
		Params: []TypeParam{{Name: "M"}},
		Operations: []*OpSig{{
			Name:      "mul",
			Signature: ast.Func(ast.Named("M"), ast.Named("M"), ast.Named("M")),
		}},
		Elements: []*Element{{Name: "e", Type: ast.Named("M")}},
		Axioms: []*Axiom{{
			Name: "left_identity",
			Prop: &ast.Quantifier{
				Vars: []ast.Binder{{Name: "x", Type: ast.Named("M")}},
				Body: ast.Apply("equals", ast.Apply("mul", ast.Var("e"), ast.Var("x")), ast.Var("x")),
			},
		}},
	}
}

func TestStructureString(t *testing.T) {
	want := "structure Monoid(M) {\n" +
		"  operation mul : M × M → M\n" +
		"  element e : M\n" +
		"  axiom left_identity : ∀(x : M). mul(e, x) = x\n" +
		"}"
	assert.Equal(t, want, monoid().String())
	assert.Equal(t, 2, monoid().Operation("mul").Arity())
	assert.Nil(t, monoid().Operation("inv"))
}

func TestFingerprintIgnoresFileName(t *testing.T) {
	a := &Program{File: "a.ax", Structures: []*Structure{monoid()}}
	b := &Program{File: "b.ax", Structures: []*Structure{monoid()}}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := &Program{Structures: []*Structure{monoid()}, Data: []*Data{{
		Name:     "Protocol",
		Variants: []*Variant{{Name: "ICMP"}, {Name: "TCP"}, {Name: "UDP"}},
	}}}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Contains(t, c.String(), "data Protocol = ICMP | TCP | UDP")
}

func TestFunctionRecursion(t *testing.T) {
	fact := &Function{
		Name:   "fact",
		Params: []Param{{Name: "n"}},
		Body: &ast.IfExpr{
			Cond: ast.Apply("equals", ast.Var("n"), ast.Num("0")),
			Then: ast.Num("1"),
			Else: ast.Apply("times", ast.Var("n"), ast.Apply("fact", ast.Apply("minus", ast.Var("n"), ast.Num("1")))),
		},
	}
	assert.True(t, fact.IsRecursive())
	assert.Equal(t, []string{"n"}, fact.ParamNames())

	id := &Function{Name: "id", Params: []Param{{Name: "x"}}, Body: ast.Var("x")}
	assert.False(t, id.IsRecursive())
	assert.Equal(t, "define id(x) = x", id.String())
}

func TestWitnessString(t *testing.T) {
	w := &Witness{
		Structure: "Monoid",
		Args:      []ast.TypeExpr{ast.Named("ℤ")},
		Operations: []*OpImpl{
			{Name: "mul", Body: &Body{Builtin: "builtin_add"}},
		},
		Elements: []*ElementImpl{{Name: "e", Value: ast.Num("0")}},
	}
	assert.Equal(t, "implements Monoid(ℤ) {\n  operation mul = builtin_add\n  element e = 0\n}", w.String())
	assert.NotNil(t, w.Operation("mul"))
	assert.True(t, TypeParam{Name: "n", Kind: "Nat"}.IsDim())
}
