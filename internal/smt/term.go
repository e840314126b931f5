// Package smt builds SMT-LIB terms and scripts and runs them through an
// external solver.
package smt

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Sort is an SMT-LIB sort
type Sort struct {
	Name string
}

// Builtin sorts
var (
	Int  = Sort{Name: "Int"}
	Real = Sort{Name: "Real"}
	Bool = Sort{Name: "Bool"}
)

// Uninterpreted names a sort introduced with declare-sort or
// declare-datatypes
func Uninterpreted(name string) Sort { return Sort{Name: name} }

// IsNumeric reports whether the sort is Int or Real
func (s Sort) IsNumeric() bool { return s == Int || s == Real }

// String renders the sort as an SMT-LIB symbol
func (s Sort) String() string { return Symbol(s.Name) }

// Term is an SMT-LIB expression with a known sort
type Term interface {
	Sort() Sort
	String() string
}

// Const is a declared constant or a quantifier-bound variable
type Const struct {
	Name string
	Of   Sort
}

// IntLit is an integer numeral
type IntLit struct {
	Value int64
}

// RealLit is a rational numeral
type RealLit struct {
	Value *big.Rat
}

// BoolLit is true or false
type BoolLit struct {
	Value bool
}

// App applies a builtin or declared function
type App struct {
	Fn   string
	Args []Term
	Of   Sort
}

// Ite is if-then-else
type Ite struct {
	Cond, Then, Else Term
}

// Quant is a forall or exists over bound constants
type Quant struct {
	Exists bool
	Vars   []*Const
	Body   Term
}

// Unmatched is the per-sort sentinel a match evaluates to when no case
// applies.
type Unmatched struct {
	Of Sort
}

func (c *Const) Sort() Sort     { return c.Of }
func (*IntLit) Sort() Sort      { return Int }
func (*RealLit) Sort() Sort     { return Real }
func (*BoolLit) Sort() Sort     { return Bool }
func (a *App) Sort() Sort       { return a.Of }
func (i *Ite) Sort() Sort       { return i.Then.Sort() }
func (*Quant) Sort() Sort       { return Bool }
func (u *Unmatched) Sort() Sort { return u.Of }

// Name returns the symbol the sentinel is declared under
func (u *Unmatched) Name() string { return "unmatched." + u.Of.Name }

var simpleSymbol = regexp.MustCompile(`^[A-Za-z~!@$%^&*_+=<>.?/-][A-Za-z0-9~!@$%^&*_+=<>.?/-]*$`)

// Symbol renders name as an SMT-LIB symbol, quoting it when it contains
// characters outside the simple-symbol alphabet.
func Symbol(name string) string {
	if simpleSymbol.MatchString(name) {
		return name
	}
	name = strings.NewReplacer("|", "_", "\\", "_").Replace(name)
	return "|" + name + "|"
}

func (c *Const) String() string { return Symbol(c.Name) }

func (l *IntLit) String() string {
	if l.Value < 0 {
		return "(- " + strconv.FormatInt(-l.Value, 10) + ")"
	}
	return strconv.FormatInt(l.Value, 10)
}

func (l *RealLit) String() string {
	r := l.Value
	neg := r.Sign() < 0
	if neg {
		r = new(big.Rat).Neg(r)
	}
	var s string
	if r.IsInt() {
		s = r.Num().String() + ".0"
	} else {
		s = "(/ " + r.Num().String() + ".0 " + r.Denom().String() + ".0)"
	}
	if neg {
		return "(- " + s + ")"
	}
	return s
}

func (l *BoolLit) String() string { return strconv.FormatBool(l.Value) }

func (a *App) String() string {
	if len(a.Args) == 0 {
		return Symbol(a.Fn)
	}
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(Symbol(a.Fn))
	for _, arg := range a.Args {
		sb.WriteString(" ")
		sb.WriteString(arg.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (i *Ite) String() string {
	return "(ite " + i.Cond.String() + " " + i.Then.String() + " " + i.Else.String() + ")"
}

func (q *Quant) String() string {
	var sb strings.Builder
	if q.Exists {
		sb.WriteString("(exists (")
	} else {
		sb.WriteString("(forall (")
	}
	for i, v := range q.Vars {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("(" + Symbol(v.Name) + " " + v.Of.String() + ")")
	}
	sb.WriteString(") ")
	sb.WriteString(q.Body.String())
	sb.WriteString(")")
	return sb.String()
}

func (u *Unmatched) String() string { return Symbol(u.Name()) }

// Builders. They fold literal booleans so that matches over syntactic
// constructor applications collapse before reaching the solver.

var (
	True  Term = &BoolLit{Value: true}
	False Term = &BoolLit{Value: false}
)

// Var returns a constant reference
func Var(name string, sort Sort) *Const { return &Const{Name: name, Of: sort} }

// Int64 returns an integer numeral
func Int64(v int64) Term { return &IntLit{Value: v} }

// Rat returns a real numeral
func Rat(r *big.Rat) Term { return &RealLit{Value: r} }

// Call applies fn with result sort rng
func Call(fn string, rng Sort, args ...Term) Term { return &App{Fn: fn, Args: args, Of: rng} }

func isLit(t Term, v bool) bool {
	b, ok := t.(*BoolLit)
	return ok && b.Value == v
}

// And conjoins terms, folding literal booleans
func And(ts ...Term) Term {
	var out []Term
	for _, t := range ts {
		if isLit(t, false) {
			return False
		}
		if !isLit(t, true) {
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return True
	case 1:
		return out[0]
	}
	return &App{Fn: "and", Args: out, Of: Bool}
}

// Or disjoins terms, folding literal booleans
func Or(ts ...Term) Term {
	var out []Term
	for _, t := range ts {
		if isLit(t, true) {
			return True
		}
		if !isLit(t, false) {
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return False
	case 1:
		return out[0]
	}
	return &App{Fn: "or", Args: out, Of: Bool}
}

// Not negates t
func Not(t Term) Term {
	if b, ok := t.(*BoolLit); ok {
		return &BoolLit{Value: !b.Value}
	}
	if a, ok := t.(*App); ok && a.Fn == "not" && len(a.Args) == 1 {
		return a.Args[0]
	}
	return &App{Fn: "not", Args: []Term{t}, Of: Bool}
}

// Implies builds a ⟹ b
func Implies(a, b Term) Term {
	switch {
	case isLit(a, true):
		return b
	case isLit(a, false), isLit(b, true):
		return True
	}
	return &App{Fn: "=>", Args: []Term{a, b}, Of: Bool}
}

// Eq builds a = b. Syntactically identical terms fold to true.
func Eq(a, b Term) Term {
	if a.String() == b.String() {
		return True
	}
	if isGroundLit(a) && isGroundLit(b) && a.Sort() == b.Sort() {
		return False
	}
	return &App{Fn: "=", Args: []Term{a, b}, Of: Bool}
}

func isGroundLit(t Term) bool {
	switch t.(type) {
	case *IntLit, *RealLit, *BoolLit:
		return true
	}
	return false
}

// Distinct asserts pairwise difference
func Distinct(ts ...Term) Term {
	if len(ts) < 2 {
		return True
	}
	return &App{Fn: "distinct", Args: ts, Of: Bool}
}

// IteT builds if-then-else, folding literal conditions
func IteT(c, t, e Term) Term {
	switch {
	case isLit(c, true):
		return t
	case isLit(c, false):
		return e
	}
	return &Ite{Cond: c, Then: t, Else: e}
}

// Forall quantifies body over vars; with no vars or a literal body it
// returns body
func Forall(vars []*Const, body Term) Term {
	if _, lit := body.(*BoolLit); len(vars) == 0 || lit {
		return body
	}
	return &Quant{Vars: vars, Body: body}
}

// Exists is the existential counterpart of Forall
func Exists(vars []*Const, body Term) Term {
	if _, lit := body.(*BoolLit); len(vars) == 0 || lit {
		return body
	}
	return &Quant{Exists: true, Vars: vars, Body: body}
}

// ToReal coerces an Int term to Real
func ToReal(t Term) Term {
	if t.Sort() != Int {
		return t
	}
	if l, ok := t.(*IntLit); ok {
		return &RealLit{Value: new(big.Rat).SetInt64(l.Value)}
	}
	return &App{Fn: "to_real", Args: []Term{t}, Of: Real}
}

// Walk calls fn on t and every sub-term
func Walk(t Term, fn func(Term)) {
	fn(t)
	switch n := t.(type) {
	case *App:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Ite:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *Quant:
		Walk(n.Body, fn)
	}
}
