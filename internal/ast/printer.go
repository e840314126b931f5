package ast

import (
	"strconv"
	"strings"
)

type infixOp struct {
	symbol string
	prec   int
	right  bool
}

// infixOps maps canonical operation names to the surface syntax they were
// lowered from. Higher precedence binds tighter.
var infixOps = map[string]infixOp{
	"iff":          {"⟺", 1, true},
	"implies":      {"⟹", 2, true},
	"or":           {"∨", 3, false},
	"and":          {"∧", 4, false},
	"equals":       {"=", 6, false},
	"neq":          {"≠", 6, false},
	"less_than":    {"<", 6, false},
	"greater_than": {">", 6, false},
	"leq":          {"≤", 6, false},
	"geq":          {"≥", 6, false},
	"plus":         {"+", 7, false},
	"minus":        {"-", 7, false},
	"times":        {"*", 8, false},
	"divide":       {"/", 8, false},
	"power":        {"^", 10, true},
}

const (
	precLowest = 0
	precNot    = 5
	precNeg    = 9
	precAtom   = 11
)

// InfixSymbol returns the surface operator for a canonical operation name
func InfixSymbol(op string) (string, bool) {
	o, ok := infixOps[op]
	return o.symbol, ok
}

func precedence(e Expr) int {
	switch n := e.(type) {
	case *Call:
		if o, ok := infixOps[n.Op]; ok && len(n.Args) == 2 {
			return o.prec
		}
		if n.Op == "not" && len(n.Args) == 1 {
			return precNot
		}
		if n.Op == "negate" && len(n.Args) == 1 {
			return precNeg
		}
		return precAtom
	case *Quantifier, *IfExpr, *LetExpr:
		return precLowest
	default:
		return precAtom
	}
}

func wrap(e Expr, min int) string {
	if precedence(e) < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func (n *NumLit) String() string { return n.Text }

func (b *BoolLit) String() string { return strconv.FormatBool(b.Value) }

func (i *Ident) String() string { return i.Name }

func (c *Call) String() string {
	if o, ok := infixOps[c.Op]; ok && len(c.Args) == 2 {
		left, right := o.prec+1, o.prec+1
		if o.right {
			left = o.prec + 1
			right = o.prec
		} else {
			left = o.prec
		}
		return wrap(c.Args[0], left) + " " + o.symbol + " " + wrap(c.Args[1], right)
	}
	if c.Op == "not" && len(c.Args) == 1 {
		return "¬" + wrap(c.Args[0], precNot)
	}
	if c.Op == "negate" && len(c.Args) == 1 {
		return "-" + wrap(c.Args[0], precNeg+1)
	}
	var sb strings.Builder
	sb.WriteString(c.Op)
	sb.WriteString("(")
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (q *Quantifier) String() string {
	var sb strings.Builder
	if q.Kind == Exists {
		sb.WriteString("∃(")
	} else {
		sb.WriteString("∀(")
	}
	for i, v := range q.Vars {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.Name)
		if v.Type != nil {
			sb.WriteString(" : ")
			sb.WriteString(v.Type.String())
		}
	}
	sb.WriteString(")")
	if q.Where != nil {
		sb.WriteString(" where ")
		sb.WriteString(q.Where.String())
	}
	sb.WriteString(". ")
	sb.WriteString(q.Body.String())
	return sb.String()
}

func (i *IfExpr) String() string {
	return "if " + i.Cond.String() + " then " + i.Then.String() + " else " + i.Else.String()
}

func (l *LetExpr) String() string {
	head := "let " + l.Name
	if l.Type != nil {
		head += " : " + l.Type.String()
	}
	return head + " = " + l.Value.String() + " in " + l.Body.String()
}

func (m *MatchExpr) String() string {
	var sb strings.Builder
	sb.WriteString("match ")
	sb.WriteString(m.Scrutinee.String())
	sb.WriteString(" { ")
	for i, c := range m.Cases {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(c.Pattern.String())
		if c.Guard != nil {
			sb.WriteString(" if ")
			sb.WriteString(c.Guard.String())
		}
		sb.WriteString(" => ")
		sb.WriteString(wrap(c.Body, precNot))
	}
	sb.WriteString(" }")
	return sb.String()
}

func (*Wildcard) String() string { return "_" }

func (p *PVar) String() string { return p.Name }

func (p *PLit) String() string { return p.Value.String() }

func (p *PCtor) String() string {
	if len(p.Args) == 0 {
		return p.Name
	}
	parts := make([]string, len(p.Args))
	for i, a := range p.Args {
		parts[i] = a.String()
	}
	return p.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (p *PAs) String() string { return p.Pattern.String() + " as " + p.Name }

func (t *TypeName) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return t.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (t *TypeNat) String() string { return strconv.Itoa(t.Value) }

func (t *TypeFunc) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		if _, ok := p.(*TypeFunc); ok {
			parts[i] = "(" + p.String() + ")"
		} else {
			parts[i] = p.String()
		}
	}
	if len(parts) == 0 {
		return "→ " + t.Result.String()
	}
	return strings.Join(parts, " × ") + " → " + t.Result.String()
}
