// Package lint runs static checks over parsed declarations. Match
// expressions are checked for exhaustiveness and unreachable cases; the
// remaining rules are style warnings.
package lint

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lhaig/axiom/internal/adt"
	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/diagnostic"
)

// Rule names attached to the diagnostics
const (
	RuleExhaustive  = "exhaustive"
	RuleUnreachable = "unreachable"
	RulePattern     = "pattern"
	RuleNaming      = "naming"
	RuleUnusedParam = "unused-param"
	RuleUnusedBound = "unused-binder"
	RuleNoAxioms    = "no-axioms"
	RuleGroundAxiom = "ground-axiom"
)

// Linter checks one program against the data types visible to it
type Linter struct {
	prog *decl.Program
	data *adt.Registry
	diag *diagnostic.Diagnostics
}

// Lint runs all rules on p and returns the diagnostics sorted by
// position. data resolves constructors named in patterns; when nil, the
// program's own data declarations are registered into a fresh registry.
func Lint(p *decl.Program, data *adt.Registry) *diagnostic.Diagnostics {
	l := &Linter{prog: p, data: data, diag: diagnostic.New()}
	if l.data == nil {
		l.data = adt.NewRegistry()
		for _, d := range p.Data {
			if err := l.data.Register(d); err != nil {
				l.diag.Report(diagnostic.Error, d.Pos, RulePattern, err.Error(), "")
			}
		}
	}

	l.lintData()
	l.lintStructures()
	l.lintWitnesses()
	l.lintFunctions(p.Functions)
	for _, op := range p.Operations {
		l.checkOperationNaming(op.Name, op.Pos)
	}

	l.diag.Sort()
	return l.diag
}

func (l *Linter) lintData() {
	for _, d := range l.prog.Data {
		if !isPascalCase(d.Name) {
			l.report(diagnostic.Warning, d.Pos, RuleNaming,
				fmt.Sprintf("data type '%s' should use PascalCase naming", d.Name), "")
		}
		for _, v := range d.Variants {
			if !isPascalCase(v.Name) {
				pos := v.Pos
				if pos.IsZero() {
					pos = d.Pos
				}
				l.report(diagnostic.Warning, pos, RuleNaming,
					fmt.Sprintf("constructor '%s' in '%s' should use PascalCase naming", v.Name, d.Name), "")
			}
		}
	}
}

func (l *Linter) lintStructures() {
	for _, s := range l.prog.Structures {
		if !isPascalCase(s.Name) {
			l.report(diagnostic.Warning, s.Pos, RuleNaming,
				fmt.Sprintf("structure '%s' should use PascalCase naming", s.Name), "")
		}
		if len(s.Operations) > 0 && len(s.Axioms) == 0 && s.Extends == nil {
			l.report(diagnostic.Info, s.Pos, RuleNoAxioms,
				fmt.Sprintf("structure '%s' declares operations but no axioms", s.Name),
				"without axioms the verifier treats every operation as unconstrained")
		}
		for _, op := range s.Operations {
			l.checkOperationNaming(op.Name, op.Pos)
		}
		for _, e := range s.Elements {
			l.checkOperationNaming(e.Name, e.Pos)
		}
		for _, w := range s.Where {
			l.lintExpr(w, s.Pos)
		}
		for _, ax := range s.Axioms {
			l.checkGroundAxiom(s, ax)
			l.lintExpr(ax.Prop, ax.Pos)
		}
		l.lintFunctions(s.Functions)
	}
}

func (l *Linter) lintWitnesses() {
	for _, w := range l.prog.Witnesses {
		for _, op := range w.Operations {
			if op.Body != nil && op.Body.Expr != nil {
				l.lintExpr(op.Body.Expr, op.Pos)
			}
		}
		for _, e := range w.Elements {
			l.lintExpr(e.Value, e.Pos)
		}
		for _, c := range w.Where {
			l.lintExpr(c, w.Pos)
		}
	}
}

func (l *Linter) lintFunctions(fns []*decl.Function) {
	for _, fn := range fns {
		l.checkOperationNaming(fn.Name, fn.Pos)
		l.checkUnusedParams(fn)
		l.lintExpr(fn.Body, fn.Pos)
	}
}

// --- Lint rules ---

// checkOperationNaming warns if an operation, element or function name
// contains upper-case letters. Symbolic names are left alone.
func (l *Linter) checkOperationNaming(name string, pos decl.Pos) {
	if !isSnakeCase(name) {
		l.report(diagnostic.Warning, pos, RuleNaming,
			fmt.Sprintf("'%s' should use snake_case naming", name), "")
	}
}

// checkUnusedParams warns about function parameters the body never reads
func (l *Linter) checkUnusedParams(fn *decl.Function) {
	used := map[string]bool{}
	for _, n := range ast.FreeVars(fn.Body) {
		used[n] = true
	}
	for _, p := range fn.Params {
		if !used[p.Name] && !strings.HasPrefix(p.Name, "_") {
			l.report(diagnostic.Warning, fn.Pos, RuleUnusedParam,
				fmt.Sprintf("parameter '%s' in '%s' is never used", p.Name, fn.Name),
				fmt.Sprintf("rename it to '_%s' if it is intentionally ignored", p.Name))
		}
	}
}

// checkGroundAxiom notes axioms without any quantifier. They only relate
// elements and are easy to write by mistake when a binder was forgotten.
func (l *Linter) checkGroundAxiom(s *decl.Structure, ax *decl.Axiom) {
	quantified := false
	ast.Walk(ax.Prop, func(e ast.Expr) bool {
		if _, ok := e.(*ast.Quantifier); ok {
			quantified = true
		}
		return !quantified
	})
	if !quantified {
		l.report(diagnostic.Info, ax.Pos, RuleGroundAxiom,
			fmt.Sprintf("axiom '%s' in '%s' has no quantifier", ax.Name, s.Name), "")
	}
}

// lintExpr checks every match and quantifier nested in e
func (l *Linter) lintExpr(e ast.Expr, at decl.Pos) {
	ast.Walk(e, func(x ast.Expr) bool {
		switch n := x.(type) {
		case *ast.MatchExpr:
			l.checkMatch(n, at)
		case *ast.Quantifier:
			l.checkBinders(n, at)
		}
		return true
	})
}

// checkMatch reports invalid patterns, missing constructors and cases
// shadowed by an earlier one
func (l *Linter) checkMatch(m *ast.MatchExpr, at decl.Pos) {
	pos := at
	if m.Line > 0 {
		pos = decl.Pos{File: at.File, Line: m.Line, Column: m.Column}
	}

	cases := make([]ast.Case, len(m.Cases))
	for i, c := range m.Cases {
		p, err := l.data.ResolvePattern(c.Pattern)
		if err != nil {
			l.report(diagnostic.Error, pos, RulePattern, err.Error(), "")
			return
		}
		cases[i] = ast.Case{Pattern: p, Guard: c.Guard, Body: c.Body}
	}

	if missing := l.data.Missing(cases); len(missing) > 0 {
		l.report(diagnostic.Warning, pos, RuleExhaustive,
			fmt.Sprintf("non-exhaustive match on '%s': missing %s", m.Scrutinee, strings.Join(missing, ", ")),
			"add the missing cases or a final '_' case")
	}
	for _, i := range l.data.Unreachable(cases) {
		l.report(diagnostic.Warning, pos, RuleUnreachable,
			fmt.Sprintf("match case %d (%s) is unreachable", i+1, cases[i].Pattern),
			"an earlier case without a guard already covers it")
	}
}

// checkBinders warns about quantified variables that occur nowhere
func (l *Linter) checkBinders(q *ast.Quantifier, at decl.Pos) {
	used := map[string]bool{}
	for _, part := range []ast.Expr{q.Where, q.Body} {
		if part == nil {
			continue
		}
		for _, n := range ast.FreeVars(part) {
			used[n] = true
		}
	}
	for _, b := range q.Vars {
		if !used[b.Name] {
			l.report(diagnostic.Warning, at, RuleUnusedBound,
				fmt.Sprintf("quantified variable '%s' is never used", b.Name), "")
		}
	}
}

func (l *Linter) report(sev diagnostic.Severity, pos decl.Pos, rule, msg, hint string) {
	l.diag.Report(sev, pos, rule, msg, hint)
}

// --- Naming convention helpers ---

// isSnakeCase reports whether name has no upper-case letters and does not
// start with a digit. Operator symbols such as ⊕ pass.
func isSnakeCase(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// isPascalCase returns true if the name starts with an uppercase letter
// and contains no underscores.
func isPascalCase(name string) bool {
	if name == "" {
		return false
	}
	runes := []rune(name)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	return !strings.ContainsRune(name, '_')
}
