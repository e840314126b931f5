package parser

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
)

// binaryOps maps surface operators to the canonical operation names
var binaryOps = map[string]string{
	"+": "plus",
	"-": "minus",
	"*": "times",
	"×": "times",
	"/": "divide",
	"^": "power",

	"=":  "equals",
	"==": "equals",
	"≠":  "neq",
	"!=": "neq",
	"<":  "less_than",
	">":  "greater_than",
	"≤":  "leq",
	"<=": "leq",
	"≥":  "geq",
	">=": "geq",
}

const builtinPrefix = "builtin_"

// lowerer turns the parse tree of one file into declarations
type lowerer struct {
	file string
}

func (l *lowerer) pos(p lexer.Position) decl.Pos {
	return decl.Pos{File: l.file, Line: p.Line, Column: p.Column}
}

func (l *lowerer) errorf(p lexer.Position, format string, args ...interface{}) *Error {
	return newError(l.file, p, format, args...)
}

func (l *lowerer) program(f *File) (*decl.Program, error) {
	prog := &decl.Program{File: l.file}
	for _, item := range f.Items {
		switch {
		case item.Import != nil:
			prog.Imports = append(prog.Imports, &decl.Import{Path: item.Import.Path, Pos: l.pos(item.Import.Pos)})
		case item.Structure != nil:
			s, err := l.structure(item.Structure)
			if err != nil {
				return nil, err
			}
			prog.Structures = append(prog.Structures, s)
		case item.Implements != nil:
			w, err := l.witness(item.Implements)
			if err != nil {
				return nil, err
			}
			prog.Witnesses = append(prog.Witnesses, w)
		case item.Data != nil:
			d, err := l.data(item.Data)
			if err != nil {
				return nil, err
			}
			prog.Data = append(prog.Data, d)
		case item.Define != nil:
			fn, err := l.function(item.Define)
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, fn)
		case item.Operation != nil:
			op, err := l.operation(item.Operation)
			if err != nil {
				return nil, err
			}
			prog.Operations = append(prog.Operations, op)
		}
	}
	return prog, nil
}

func typeParams(ps []*TypeParam) []decl.TypeParam {
	out := make([]decl.TypeParam, len(ps))
	for i, p := range ps {
		out[i] = decl.TypeParam{Name: p.Name, Kind: p.Kind}
	}
	return out
}

func (l *lowerer) structure(s *Structure) (*decl.Structure, error) {
	out := &decl.Structure{Name: s.Name, Params: typeParams(s.Params), Pos: l.pos(s.Pos)}
	var err error
	if s.Extends != nil {
		if out.Extends, err = l.typeName(s.Extends); err != nil {
			return nil, err
		}
	}
	if s.Over != nil {
		if out.Over, err = l.typeName(s.Over); err != nil {
			return nil, err
		}
	}
	if out.Where, err = l.exprs(s.Where); err != nil {
		return nil, err
	}

	for _, m := range s.Members {
		switch {
		case m.Operation != nil:
			op, err := l.operation(m.Operation)
			if err != nil {
				return nil, err
			}
			out.Operations = append(out.Operations, op)
		case m.Element != nil:
			t, err := l.typeExpr(m.Element.Type)
			if err != nil {
				return nil, err
			}
			out.Elements = append(out.Elements, &decl.Element{Name: m.Element.Name, Type: t, Pos: l.pos(m.Element.Pos)})
		case m.Axiom != nil:
			prop, err := l.expr(m.Axiom.Prop)
			if err != nil {
				return nil, err
			}
			out.Axioms = append(out.Axioms, &decl.Axiom{Name: m.Axiom.Name, Prop: prop, Pos: l.pos(m.Axiom.Pos)})
		case m.Define != nil:
			fn, err := l.function(m.Define)
			if err != nil {
				return nil, err
			}
			out.Functions = append(out.Functions, fn)
		}
	}
	return out, nil
}

func (l *lowerer) operation(o *Operation) (*decl.OpSig, error) {
	sig, err := l.signature(o.Sig)
	if err != nil {
		return nil, err
	}
	if o.Nullary {
		if len(sig.Params) > 0 {
			return nil, l.errorf(o.Pos, "operation '%s': a nullary signature cannot have parameters", o.Name)
		}
	}
	return &decl.OpSig{Name: o.Name, Signature: sig, Pos: l.pos(o.Pos)}, nil
}

func (l *lowerer) function(d *Define) (*decl.Function, error) {
	fn := &decl.Function{Name: d.Name, Pos: l.pos(d.Pos)}
	for _, p := range d.Params {
		param := decl.Param{Name: p.Name}
		if p.Type != nil {
			t, err := l.typeExpr(p.Type)
			if err != nil {
				return nil, err
			}
			param.Type = t
		}
		fn.Params = append(fn.Params, param)
	}
	if d.Result != nil {
		t, err := l.typeExpr(d.Result)
		if err != nil {
			return nil, err
		}
		fn.Result = t
	}
	body, err := l.expr(d.Body)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (l *lowerer) witness(im *Implements) (*decl.Witness, error) {
	w := &decl.Witness{Structure: im.Structure, Pos: l.pos(im.Pos)}
	for _, a := range im.Args {
		t, err := l.typeExpr(a)
		if err != nil {
			return nil, err
		}
		w.Args = append(w.Args, t)
	}
	var err error
	if im.Over != nil {
		if w.Over, err = l.typeName(im.Over); err != nil {
			return nil, err
		}
	}
	if w.Where, err = l.exprs(im.Where); err != nil {
		return nil, err
	}

	for _, m := range im.Members {
		switch {
		case m.Operation != nil:
			body, err := l.body(m.Operation)
			if err != nil {
				return nil, err
			}
			w.Operations = append(w.Operations, &decl.OpImpl{Name: m.Operation.Name, Body: body, Pos: l.pos(m.Operation.Pos)})
		case m.Element != nil:
			v, err := l.expr(m.Element.Value)
			if err != nil {
				return nil, err
			}
			w.Elements = append(w.Elements, &decl.ElementImpl{Name: m.Element.Name, Value: v, Pos: l.pos(m.Element.Pos)})
		}
	}
	return w, nil
}

// body recognises `= builtin_x` as a primitive; anything else is an
// expression over the listed parameters
func (l *lowerer) body(o *ImplOperation) (*decl.Body, error) {
	e, err := l.expr(o.Body)
	if err != nil {
		return nil, err
	}
	if id, ok := e.(*ast.Ident); ok && len(o.Params) == 0 && strings.HasPrefix(id.Name, builtinPrefix) {
		return &decl.Body{Builtin: id.Name}, nil
	}
	return &decl.Body{Params: o.Params, Expr: e}, nil
}

func (l *lowerer) data(d *Data) (*decl.Data, error) {
	out := &decl.Data{Name: d.Name, Params: typeParams(d.Params), Pos: l.pos(d.Pos)}
	for _, v := range d.Variants {
		variant := &decl.Variant{Name: v.Name, Pos: l.pos(v.Pos)}
		for _, f := range v.Fields {
			t, err := l.typeExpr(f.Type)
			if err != nil {
				return nil, err
			}
			variant.Fields = append(variant.Fields, decl.Field{Name: f.Name, Type: t})
		}
		out.Variants = append(out.Variants, variant)
	}
	return out, nil
}

// --- Types ---

func (l *lowerer) typeName(t *TypeTerm) (*ast.TypeName, error) {
	if t.Name == "" {
		return nil, l.errorf(t.Pos, "expected a structure name")
	}
	out, err := l.typeTerm(t)
	if err != nil {
		return nil, err
	}
	return out.(*ast.TypeName), nil
}

func (l *lowerer) typeTerm(t *TypeTerm) (ast.TypeExpr, error) {
	switch {
	case t.Nat != nil:
		n, err := strconv.Atoi(*t.Nat)
		if err != nil || n < 0 {
			return nil, l.errorf(t.Pos, "dimension %s is not a natural number", *t.Nat)
		}
		return &ast.TypeNat{Value: n}, nil
	case t.Paren != nil:
		return l.typeExpr(t.Paren)
	}
	out := &ast.TypeName{Name: t.Name}
	for _, a := range t.Args {
		at, err := l.typeExpr(a)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, at)
	}
	return out, nil
}

func (l *lowerer) terms(ts []*TypeTerm) ([]ast.TypeExpr, error) {
	out := make([]ast.TypeExpr, len(ts))
	for i, t := range ts {
		lt, err := l.typeTerm(t)
		if err != nil {
			return nil, err
		}
		out[i] = lt
	}
	return out, nil
}

func (l *lowerer) typeExpr(t *TypeExpr) (ast.TypeExpr, error) {
	terms, err := l.terms(t.Terms)
	if err != nil {
		return nil, err
	}
	if t.Result == nil {
		if len(terms) > 1 {
			return nil, l.errorf(t.Pos, "product type needs a result type")
		}
		return terms[0], nil
	}
	result, err := l.typeExpr(t.Result)
	if err != nil {
		return nil, err
	}
	return &ast.TypeFunc{Params: terms, Result: result}, nil
}

// signature lowers an operation type, flattening curried arrows
// (A → B → C) into a two-parameter signature. A bare type is a nullary
// operation.
func (l *lowerer) signature(t *TypeExpr) (*ast.TypeFunc, error) {
	if t.Result == nil {
		res, err := l.typeExpr(t)
		if err != nil {
			return nil, err
		}
		return &ast.TypeFunc{Result: res}, nil
	}
	params, err := l.terms(t.Terms)
	if err != nil {
		return nil, err
	}
	r := t.Result
	for r.Result != nil && len(r.Terms) == 1 {
		p, err := l.typeTerm(r.Terms[0])
		if err != nil {
			return nil, err
		}
		params = append(params, p)
		r = r.Result
	}
	result, err := l.typeExpr(r)
	if err != nil {
		return nil, err
	}
	return &ast.TypeFunc{Params: params, Result: result}, nil
}

// --- Expressions ---

func (l *lowerer) exprs(es []*Expr) ([]ast.Expr, error) {
	if len(es) == 0 {
		return nil, nil
	}
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		le, err := l.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = le
	}
	return out, nil
}

func (l *lowerer) expr(e *Expr) (ast.Expr, error) {
	switch {
	case e.Quant != nil:
		return l.quantifier(e.Quant)
	case e.If != nil:
		cond, err := l.expr(e.If.Cond)
		if err != nil {
			return nil, err
		}
		then, err := l.expr(e.If.Then)
		if err != nil {
			return nil, err
		}
		els, err := l.expr(e.If.Else)
		if err != nil {
			return nil, err
		}
		return &ast.IfExpr{Cond: cond, Then: then, Else: els}, nil
	case e.Let != nil:
		return l.let(e.Let)
	default:
		return l.iff(e.Iff)
	}
}

func (l *lowerer) quantifier(q *Quant) (ast.Expr, error) {
	out := &ast.Quantifier{Kind: ast.ForAll}
	if q.Kind == "∃" || q.Kind == "exists" {
		out.Kind = ast.Exists
	}
	for _, g := range q.Groups {
		var t ast.TypeExpr
		if g.Type != nil {
			var err error
			if t, err = l.typeExpr(g.Type); err != nil {
				return nil, err
			}
		}
		for _, n := range g.Names {
			out.Vars = append(out.Vars, ast.Binder{Name: n, Type: t})
		}
	}
	var err error
	if q.Where != nil {
		if out.Where, err = l.expr(q.Where); err != nil {
			return nil, err
		}
	}
	if out.Body, err = l.expr(q.Body); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *lowerer) let(le *Let) (ast.Expr, error) {
	out := &ast.LetExpr{Name: le.Name}
	var err error
	if le.Type != nil {
		if out.Type, err = l.typeExpr(le.Type); err != nil {
			return nil, err
		}
	}
	if out.Value, err = l.expr(le.Value); err != nil {
		return nil, err
	}
	if out.Body, err = l.expr(le.Body); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *lowerer) iff(e *Iff) (ast.Expr, error) {
	left, err := l.implies(e.Left)
	if err != nil || e.Right == nil {
		return left, err
	}
	right, err := l.iff(e.Right)
	if err != nil {
		return nil, err
	}
	return ast.Apply("iff", left, right), nil
}

func (l *lowerer) implies(e *Implies) (ast.Expr, error) {
	left, err := l.or(e.Left)
	if err != nil || e.Right == nil {
		return left, err
	}
	right, err := l.implies(e.Right)
	if err != nil {
		return nil, err
	}
	return ast.Apply("implies", left, right), nil
}

func (l *lowerer) or(e *Or) (ast.Expr, error) {
	out, err := l.and(e.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Rest {
		right, err := l.and(r)
		if err != nil {
			return nil, err
		}
		out = ast.Apply("or", out, right)
	}
	return out, nil
}

func (l *lowerer) and(e *And) (ast.Expr, error) {
	out, err := l.not(e.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Rest {
		right, err := l.not(r)
		if err != nil {
			return nil, err
		}
		out = ast.Apply("and", out, right)
	}
	return out, nil
}

func (l *lowerer) not(e *Not) (ast.Expr, error) {
	if e.Not != nil {
		inner, err := l.not(e.Not)
		if err != nil {
			return nil, err
		}
		return ast.Apply("not", inner), nil
	}
	return l.cmp(e.Cmp)
}

func (l *lowerer) cmp(e *Cmp) (ast.Expr, error) {
	left, err := l.add(e.Left)
	if err != nil || e.Right == nil {
		return left, err
	}
	right, err := l.add(e.Right)
	if err != nil {
		return nil, err
	}
	return ast.Apply(binaryOps[e.Op], left, right), nil
}

func (l *lowerer) add(e *Add) (ast.Expr, error) {
	out, err := l.mul(e.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Rest {
		right, err := l.mul(r.Right)
		if err != nil {
			return nil, err
		}
		out = ast.Apply(binaryOps[r.Op], out, right)
	}
	return out, nil
}

func (l *lowerer) mul(e *Mul) (ast.Expr, error) {
	out, err := l.unary(e.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Rest {
		right, err := l.unary(r.Right)
		if err != nil {
			return nil, err
		}
		out = ast.Apply(binaryOps[r.Op], out, right)
	}
	return out, nil
}

func (l *lowerer) unary(e *Unary) (ast.Expr, error) {
	inner, err := l.pow(e.Pow)
	if err != nil || !e.Neg {
		return inner, err
	}
	if n, ok := inner.(*ast.NumLit); ok && !strings.HasPrefix(n.Text, "-") {
		return ast.Num("-" + n.Text), nil
	}
	return ast.Apply("negate", inner), nil
}

func (l *lowerer) pow(e *Pow) (ast.Expr, error) {
	base, err := l.primary(e.Base)
	if err != nil || e.Exp == nil {
		return base, err
	}
	exp, err := l.unary(e.Exp)
	if err != nil {
		return nil, err
	}
	return ast.Apply("power", base, exp), nil
}

func (l *lowerer) primary(p *Primary) (ast.Expr, error) {
	switch {
	case p.Number != nil:
		return ast.Num(*p.Number), nil
	case p.Bool != nil:
		if *p.Bool == "true" {
			return ast.True, nil
		}
		return ast.False, nil
	case p.Match != nil:
		return l.match(p.Match)
	case p.Paren != nil:
		return l.expr(p.Paren)
	}
	ref := p.Ref
	if ref.Name == "_" {
		return nil, l.errorf(p.Pos, "'_' is only allowed in patterns")
	}
	if ref.Args == nil {
		return ast.Var(ref.Name), nil
	}
	args, err := l.exprs(ref.Args.List)
	if err != nil {
		return nil, err
	}
	return ast.Apply(ref.Name, args...), nil
}

func (l *lowerer) match(m *Match) (ast.Expr, error) {
	scrut, err := l.expr(m.Scrutinee)
	if err != nil {
		return nil, err
	}
	out := &ast.MatchExpr{Scrutinee: scrut, Line: m.Pos.Line, Column: m.Pos.Column}
	for _, c := range m.Cases {
		pat, err := l.pattern(c.Pattern)
		if err != nil {
			return nil, err
		}
		arm := ast.Case{Pattern: pat}
		if c.Guard != nil {
			if arm.Guard, err = l.expr(c.Guard); err != nil {
				return nil, err
			}
		}
		if arm.Body, err = l.expr(c.Body); err != nil {
			return nil, err
		}
		out.Cases = append(out.Cases, arm)
	}
	return out, nil
}

func (l *lowerer) pattern(p *Pattern) (ast.Pattern, error) {
	base, err := l.patternBase(p.Base)
	if err != nil || p.As == "" {
		return base, err
	}
	return &ast.PAs{Pattern: base, Name: p.As}, nil
}

func (l *lowerer) patternBase(b *PatternBase) (ast.Pattern, error) {
	switch {
	case b.Number != nil:
		return &ast.PLit{Value: ast.Num(*b.Number)}, nil
	case b.Bool != nil:
		return &ast.PLit{Value: &ast.BoolLit{Value: *b.Bool == "true"}}, nil
	case b.Paren != nil:
		return l.pattern(b.Paren)
	}
	if b.Args == nil {
		if b.Name == "_" {
			return &ast.Wildcard{}, nil
		}
		return &ast.PVar{Name: b.Name}, nil
	}
	out := &ast.PCtor{Name: b.Name}
	for _, a := range b.Args.List {
		sub, err := l.pattern(a)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, sub)
	}
	return out, nil
}
