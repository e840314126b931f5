package adt

import (
	"strings"

	"github.com/lhaig/axiom/internal/ast"
)

// irrefutable reports whether p matches every value. A bare name that
// is a nullary constructor is a constructor pattern, not a binder.
func (r *Registry) irrefutable(p ast.Pattern) bool {
	switch n := p.(type) {
	case *ast.Wildcard:
		return true
	case *ast.PVar:
		_, ctor := r.ctors[n.Name]
		return !ctor
	case *ast.PAs:
		return r.irrefutable(n.Pattern)
	}
	return false
}

// strip removes as-bindings and turns constructor names into
// constructor patterns.
func (r *Registry) strip(p ast.Pattern) ast.Pattern {
	switch n := p.(type) {
	case *ast.PAs:
		return r.strip(n.Pattern)
	case *ast.PVar:
		if _, ok := r.ctors[n.Name]; ok {
			return &ast.PCtor{Name: n.Name}
		}
	}
	return p
}

// Missing lists the shapes not covered by the unguarded cases. An empty
// result means the match is exhaustive. Guarded cases never count toward
// coverage.
func (r *Registry) Missing(cases []ast.Case) []string {
	var pats []ast.Pattern
	for _, c := range cases {
		if c.Guard == nil {
			pats = append(pats, c.Pattern)
		}
	}
	return r.missing(pats)
}

func (r *Registry) missing(pats []ast.Pattern) []string {
	var ctorName string
	bools := map[bool]bool{}
	for _, p := range pats {
		if r.irrefutable(p) {
			return nil
		}
		switch n := r.strip(p).(type) {
		case *ast.PCtor:
			if ctorName == "" {
				ctorName = n.Name
			}
		case *ast.PLit:
			if b, ok := n.Value.(*ast.BoolLit); ok {
				bools[b.Value] = true
			}
		}
	}
	if bools[true] && bools[false] {
		return nil
	}
	if ctorName == "" {
		return []string{"_"}
	}
	c, ok := r.ctors[ctorName]
	if !ok {
		return []string{"_"}
	}

	var out []string
	for _, v := range r.Constructors(c.Data.Name) {
		var rows [][]ast.Pattern
		for _, p := range pats {
			if pc, ok := r.strip(p).(*ast.PCtor); ok && pc.Name == v.Name && len(pc.Args) == v.Arity() {
				rows = append(rows, pc.Args)
			}
		}
		if !r.rowsCover(rows, v.Arity()) {
			out = append(out, shape(v))
		}
	}
	return out
}

// rowsCover reports whether argument rows cover every value of a
// constructor. It is exact when at most one column is refutable and
// conservative otherwise.
func (r *Registry) rowsCover(rows [][]ast.Pattern, arity int) bool {
	if len(rows) == 0 {
		return false
	}
	if arity == 0 {
		return true
	}
	for _, row := range rows {
		all := true
		for _, p := range row {
			if !r.irrefutable(p) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	col := -1
	for _, row := range rows {
		for i, p := range row {
			if r.irrefutable(p) {
				continue
			}
			if col != -1 && col != i {
				return false
			}
			col = i
		}
	}
	column := make([]ast.Pattern, len(rows))
	for i, row := range rows {
		column[i] = row[col]
	}
	return len(r.missing(column)) == 0
}

func shape(c *Constructor) string {
	if c.Nullary() {
		return c.Name
	}
	return c.Name + "(" + strings.TrimSuffix(strings.Repeat("_, ", c.Arity()), ", ") + ")"
}

// Unreachable returns the indices of cases that an earlier unguarded case
// always shadows.
func (r *Registry) Unreachable(cases []ast.Case) []int {
	var out []int
	for j := 1; j < len(cases); j++ {
		for i := 0; i < j; i++ {
			if cases[i].Guard == nil && r.subsumes(cases[i].Pattern, cases[j].Pattern) {
				out = append(out, j)
				break
			}
		}
	}
	return out
}

func (r *Registry) subsumes(p, q ast.Pattern) bool {
	if r.irrefutable(p) {
		return true
	}
	p, q = r.strip(p), r.strip(q)
	switch pn := p.(type) {
	case *ast.PCtor:
		qn, ok := q.(*ast.PCtor)
		if !ok || qn.Name != pn.Name || len(qn.Args) != len(pn.Args) {
			return false
		}
		for i := range pn.Args {
			if !r.subsumes(pn.Args[i], qn.Args[i]) {
				return false
			}
		}
		return true
	case *ast.PLit:
		ql, ok := q.(*ast.PLit)
		return ok && literalEqual(ql.Value, pn.Value)
	}
	return false
}
