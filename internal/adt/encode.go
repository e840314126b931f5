package adt

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/smt"
)

// TagSymbol names the function that returns a value's constructor index
func TagSymbol(data string) string { return data + ".tag" }

// AccessorSymbol names the projection of field i of a constructor
func AccessorSymbol(c *Constructor, i int) string { return c.Name + "." + c.FieldName(i) }

// Sort returns the solver sort of a data type
func Sort(data string) smt.Sort { return smt.Uninterpreted(data) }

// Term builds the solver term of a constructor application
func (c *Constructor) Term(args ...smt.Term) smt.Term {
	return &smt.App{Fn: c.Name, Args: args, Of: Sort(c.Data.Name)}
}

// Declare introduces every registered data type into s as one datatype
// group, so every value of a data sort is built by one of its
// constructors. It also declares a tag function per type with its
// defining axioms, and asserts the identity elements of each type
// distinct.
func (r *Registry) Declare(s smt.Solver) error {
	types := r.Types()
	if len(types) == 0 {
		return nil
	}
	group := make([]smt.Datatype, len(types))
	for i, d := range types {
		dt := smt.Datatype{Name: d.Name}
		for _, c := range r.Constructors(d.Name) {
			sc := smt.Constructor{Name: c.Name}
			for j, f := range c.Variant.Fields {
				sc.Selectors = append(sc.Selectors, smt.Selector{Name: AccessorSymbol(c, j), Sort: r.SortOf(f.Type)})
			}
			dt.Constructors = append(dt.Constructors, sc)
		}
		group[i] = dt
	}
	if err := s.DeclareDatatypes(group...); err != nil {
		return fmt.Errorf("declaring data types: %w", err)
	}

	for _, d := range types {
		sort := Sort(d.Name)
		tag := TagSymbol(d.Name)
		if err := s.DeclareFun(tag, []smt.Sort{sort}, smt.Int); err != nil {
			return err
		}
		var identities []smt.Term
		for _, c := range r.Constructors(d.Name) {
			if c.Nullary() {
				self := c.Term()
				if err := s.Assert(smt.Eq(smt.Call(tag, smt.Int, self), smt.Int64(int64(c.Tag)))); err != nil {
					return err
				}
				identities = append(identities, self)
				continue
			}
			vars := make([]*smt.Const, c.Arity())
			args := make([]smt.Term, c.Arity())
			for i, f := range c.Variant.Fields {
				vars[i] = smt.Var(fmt.Sprintf("x%d", i), r.SortOf(f.Type))
				args[i] = vars[i]
			}
			app := c.Term(args...)
			if err := s.Assert(smt.Forall(vars, smt.Eq(smt.Call(tag, smt.Int, app), smt.Int64(int64(c.Tag))))); err != nil {
				return err
			}
		}
		if err := s.AssertDistinct(identities...); err != nil {
			return err
		}
	}
	return nil
}

// ctorOf recognises a syntactic constructor application in a term
func (r *Registry) ctorOf(t smt.Term) (*Constructor, []smt.Term, bool) {
	app, ok := t.(*smt.App)
	if !ok {
		return nil, nil, false
	}
	c, ok := r.ctors[app.Fn]
	if !ok || c.Arity() != len(app.Args) {
		return nil, nil, false
	}
	return c, app.Args, true
}

// TermBindings maps pattern variables to solver terms
type TermBindings map[string]smt.Term

// Condition translates a pattern into the boolean condition under which
// scrutinee matches it, together with the terms its variables bind to.
// When the scrutinee is a syntactic constructor application the condition
// is decided statically.
func (r *Registry) Condition(p ast.Pattern, scrutinee smt.Term) (smt.Term, TermBindings, error) {
	b := TermBindings{}
	cond, err := r.condition(p, scrutinee, b)
	if err != nil {
		return nil, nil, err
	}
	return cond, b, nil
}

func (r *Registry) condition(p ast.Pattern, s smt.Term, b TermBindings) (smt.Term, error) {
	switch n := p.(type) {
	case *ast.Wildcard:
		return smt.True, nil
	case *ast.PVar:
		if c, ok := r.ctors[n.Name]; ok && c.Nullary() {
			return r.condition(&ast.PCtor{Name: n.Name}, s, b)
		}
		b[n.Name] = s
		return smt.True, nil
	case *ast.PAs:
		cond, err := r.condition(n.Pattern, s, b)
		if err != nil {
			return nil, err
		}
		b[n.Name] = s
		return cond, nil
	case *ast.PLit:
		lit, err := LiteralTerm(n.Value)
		if err != nil {
			return nil, err
		}
		if lit.Sort() == smt.Bool {
			if lit.(*smt.BoolLit).Value {
				return s, nil
			}
			return smt.Not(s), nil
		}
		if s.Sort() == smt.Real || lit.Sort() == smt.Real {
			return smt.Eq(smt.ToReal(s), smt.ToReal(lit)), nil
		}
		return smt.Eq(s, lit), nil
	case *ast.PCtor:
		c, ok := r.ctors[n.Name]
		if !ok {
			return nil, &PatternError{Constructor: n.Name, Unknown: true}
		}
		if c.Arity() != len(n.Args) {
			return nil, &PatternError{Constructor: n.Name, Expected: c.Arity(), Actual: len(n.Args)}
		}
		if sc, args, ok := r.ctorOf(s); ok {
			if sc.Name != c.Name {
				return smt.False, nil
			}
			conds := make([]smt.Term, len(args))
			for i, a := range n.Args {
				cond, err := r.condition(a, args[i], b)
				if err != nil {
					return nil, err
				}
				conds[i] = cond
			}
			return smt.And(conds...), nil
		}
		if c.Nullary() {
			return smt.Eq(s, c.Term()), nil
		}
		conds := []smt.Term{smt.Eq(smt.Call(TagSymbol(c.Data.Name), smt.Int, s), smt.Int64(int64(c.Tag)))}
		for i, a := range n.Args {
			field := r.SortOf(c.Variant.Fields[i].Type)
			cond, err := r.condition(a, smt.Call(AccessorSymbol(c, i), field, s), b)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
		return smt.And(conds...), nil
	}
	return nil, fmt.Errorf("unsupported pattern %T", p)
}

// SortOf maps a type annotation to a solver sort. Real-valued names map to
// Real, integral names to Int, Bool to Bool, registered data types to
// their own sort; everything else (type variables, abstract carriers)
// defaults to Int.
func (r *Registry) SortOf(t ast.TypeExpr) smt.Sort {
	tn, ok := t.(*ast.TypeName)
	if !ok {
		return smt.Int
	}
	switch tn.Name {
	case "ℝ", "Real", "Scalar", "ℚ", "Rational", "Float":
		return smt.Real
	case "ℤ", "Int", "Integer", "ℕ", "Nat", "Natural":
		return smt.Int
	case "Bool", "Boolean", "𝔹":
		return smt.Bool
	}
	if _, ok := r.types[tn.Name]; ok {
		return Sort(tn.Name)
	}
	return smt.Int
}

// LiteralTerm converts a numeric or boolean literal. Integral text is an
// Int numeral, anything with a fractional part a Real.
func LiteralTerm(e ast.Expr) (smt.Term, error) {
	switch n := e.(type) {
	case *ast.BoolLit:
		if n.Value {
			return smt.True, nil
		}
		return smt.False, nil
	case *ast.NumLit:
		if !strings.ContainsAny(n.Text, ".eE") {
			v, ok := new(big.Int).SetString(n.Text, 10)
			if ok && v.IsInt64() {
				return smt.Int64(v.Int64()), nil
			}
		}
		r, ok := new(big.Rat).SetString(n.Text)
		if !ok {
			return nil, fmt.Errorf("invalid numeric literal %q", n.Text)
		}
		return smt.Rat(r), nil
	}
	return nil, fmt.Errorf("%s is not a literal", e)
}

// Arm is one translated match case
type Arm struct {
	Cond smt.Term
	Body smt.Term
}

// BodyFunc translates the body (and guard, when present) of case i under
// the bindings its pattern produced. guard is nil when the case has none.
type BodyFunc func(i int, b TermBindings) (body, guard smt.Term, err error)

// TranslateMatch folds the cases right-to-left into nested ite terms. The
// innermost else branch is the per-sort unmatched sentinel, unless the
// cases cover every value and the last one is unguarded, in which case
// the last body is the innermost branch. exhaustive reports whether the
// sentinel was folded away.
func (r *Registry) TranslateMatch(scrutinee smt.Term, cases []ast.Case, body BodyFunc) (term smt.Term, exhaustive bool, err error) {
	if len(cases) == 0 {
		return nil, false, fmt.Errorf("match has no cases")
	}
	arms := make([]Arm, len(cases))
	anyReal := false
	for i, c := range cases {
		cond, b, err := r.Condition(c.Pattern, scrutinee)
		if err != nil {
			return nil, false, err
		}
		bt, gt, err := body(i, b)
		if err != nil {
			return nil, false, err
		}
		if gt != nil {
			cond = smt.And(cond, gt)
		}
		arms[i] = Arm{Cond: cond, Body: bt}
		if bt.Sort() == smt.Real {
			anyReal = true
		}
	}
	sort := arms[0].Body.Sort()
	if anyReal {
		sort = smt.Real
	}
	armBody := func(i int) (smt.Term, error) {
		b := arms[i].Body
		if anyReal {
			b = smt.ToReal(b)
		}
		if b.Sort() != sort {
			return nil, fmt.Errorf("match arms have different sorts: %s and %s", sort.Name, b.Sort().Name)
		}
		return b, nil
	}

	var acc smt.Term = &smt.Unmatched{Of: sort}
	next := len(arms) - 1
	if cases[next].Guard == nil && len(r.Missing(cases)) == 0 {
		if acc, err = armBody(next); err != nil {
			return nil, false, err
		}
		next--
	}
	for i := next; i >= 0; i-- {
		b, err := armBody(i)
		if err != nil {
			return nil, false, err
		}
		acc = smt.IteT(arms[i].Cond, b, acc)
	}
	exhaustive = true
	smt.Walk(acc, func(t smt.Term) {
		if _, ok := t.(*smt.Unmatched); ok {
			exhaustive = false
		}
	})
	return acc, exhaustive, nil
}

// Interp evaluates constructor, accessor and tag symbols over ground
// values, giving solver terms the same meaning the evaluator gives them.
func (r *Registry) Interp() smt.Interp { return interp{r} }

type interp struct{ r *Registry }

func (in interp) Apply(fn string, args []smt.Value) (smt.Value, error) {
	if c, ok := in.r.ctors[fn]; ok && c.Arity() == len(args) {
		return smt.CtorValue(fn, args...), nil
	}
	if len(args) != 1 {
		return smt.Value{}, fmt.Errorf("no interpretation for %s/%d", fn, len(args))
	}
	v := args[0]
	if strings.HasSuffix(fn, ".tag") {
		if c, ok := in.r.ctors[v.Ctor]; ok && v.Kind == smt.ValCtor {
			return smt.NumValue(int64(c.Tag)), nil
		}
	}
	if dot := strings.LastIndex(fn, "."); dot > 0 && v.Kind == smt.ValCtor {
		c, ok := in.r.ctors[fn[:dot]]
		if ok && c.Name == v.Ctor {
			for i := 0; i < c.Arity(); i++ {
				if AccessorSymbol(c, i) == fn {
					return v.Args[i], nil
				}
			}
		}
	}
	return smt.Value{}, fmt.Errorf("no interpretation for %s applied to %s", fn, v)
}
