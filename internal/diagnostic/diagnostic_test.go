package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounts(t *testing.T) {
	d := New()
	d.Errorf(Position{File: "a.ax", Line: 1, Column: 1}, "bad %s", "thing")
	d.Warningf(Position{File: "a.ax", Line: 2, Column: 1}, "meh")
	d.Infof(Position{}, "fyi")

	assert.Equal(t, 3, d.Count())
	assert.Equal(t, 1, d.ErrorCount())
	assert.Equal(t, 1, d.WarningCount())
	assert.True(t, d.HasErrors())
	require.Len(t, d.Errors(), 1)
	assert.Equal(t, "bad thing", d.Errors()[0].Message)
}

func TestFormat(t *testing.T) {
	d := New()
	d.Report(Warning, Position{File: "p.ax", Line: 5, Column: 3}, "exhaustive", "non-exhaustive match", "add a case for UDP")
	d.Errorf(Position{File: "p.ax", Line: 2, Column: 1}, "unknown structure 'Ring'")
	d.Sort()

	want := "error[p.ax:2:1]: unknown structure 'Ring'\n" +
		"warning[p.ax:5:3]: non-exhaustive match [exhaustive]\n" +
		"  hint: add a case for UDP"
	assert.Equal(t, want, d.Format())
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "<input>", Position{}.String())
	assert.Equal(t, "x.ax", Position{File: "x.ax"}.String())
	assert.Equal(t, "x.ax:4:2", Position{File: "x.ax", Line: 4, Column: 2}.String())
	assert.True(t, Position{}.IsZero())
}

func TestMergeAndClear(t *testing.T) {
	a, b := New(), New()
	b.Warningf(Position{}, "w")
	a.Merge(b)
	a.Merge(nil)
	assert.Equal(t, 1, a.Count())
	a.Clear()
	assert.Equal(t, 0, a.Count())
}
