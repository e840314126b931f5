package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	assert.Equal(t, "Matrix(m, 2)", Matrix(DimVar("m"), N(2)).String())
	assert.Equal(t, "Vector(3)", Vector(N(3)).String())
	assert.Equal(t, "Option(Scalar)", Named("Option", Scalar()).String())
	assert.Equal(t, "?a", Var("a").String())
	assert.True(t, Bool().IsBool())
}

func TestUnifyDimensions(t *testing.T) {
	s := NewSubst()
	require.NoError(t, s.Unify(Matrix(DimVar("m"), DimVar("n")), Matrix(N(2), N(3))))
	assert.Equal(t, "Matrix(2, 3)", s.Apply(Matrix(DimVar("m"), DimVar("n"))).String())

	// n is now 3, so a 2-column matrix cannot follow
	err := s.Unify(Matrix(DimVar("n"), DimVar("p")), Matrix(N(2), N(4)))
	var mm *Mismatch
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, DimMismatch, mm.Kind)
}

func TestUnifyShapes(t *testing.T) {
	s := NewSubst()
	err := s.Unify(Scalar(), Matrix(N(2), N(2)))
	var mm *Mismatch
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, ShapeMismatch, mm.Kind)

	assert.NoError(t, s.Unify(Unknown(), Matrix(N(2), N(2))))
	assert.Error(t, s.Unify(Named("Protocol"), Named("Address")))
}

func TestUnifyVariables(t *testing.T) {
	s := NewSubst()
	require.NoError(t, s.Unify(Var("a"), Named("Option", Var("b"))))
	require.NoError(t, s.Unify(Var("b"), Scalar()))
	assert.Equal(t, "Option(Scalar)", s.Apply(Var("a")).String())

	err := s.Unify(Var("c"), Named("List", Var("c")))
	var mm *Mismatch
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, OccursMismatch, mm.Kind)
}

func TestInstantiateIsConsistent(t *testing.T) {
	var g Gen
	out := g.Instantiate(Matrix(DimVar("m"), DimVar("n")), Matrix(DimVar("n"), DimVar("p")), Var("T"), Var("T"))
	require.Len(t, out, 4)
	assert.Equal(t, out[0].Dims[1], out[1].Dims[0])
	assert.NotEqual(t, "n", out[0].Dims[1].Sym)
	assert.True(t, out[2].Equal(out[3]))

	s := NewSubst()
	c := s.Clone()
	require.NoError(t, c.Unify(out[2], Scalar()))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, c.Len())
}

func TestIsGround(t *testing.T) {
	assert.True(t, Matrix(N(2), N(2)).IsGround())
	assert.False(t, Matrix(DimVar("n"), N(2)).IsGround())
	assert.False(t, Named("Option", Var("a")).IsGround())
}
