package decl

import (
	"strings"

	"github.com/lhaig/axiom/internal/ast"
)

func (o *OpSig) String() string {
	return "operation " + o.Name + " : " + o.Signature.String()
}

func (e *Element) String() string { return "element " + e.Name + " : " + e.Type.String() }

func (a *Axiom) String() string { return "axiom " + a.Name + " : " + a.Prop.String() }

func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString("define ")
	sb.WriteString(f.Name)
	if len(f.Params) > 0 {
		parts := make([]string, len(f.Params))
		for i, p := range f.Params {
			parts[i] = p.Name
			if p.Type != nil {
				parts[i] += " : " + p.Type.String()
			}
		}
		sb.WriteString("(" + strings.Join(parts, ", ") + ")")
	}
	if f.Result != nil {
		sb.WriteString(" : " + f.Result.String())
	}
	sb.WriteString(" = ")
	sb.WriteString(f.Body.String())
	return sb.String()
}

func params(ps []TypeParam) string {
	if len(ps) == 0 {
		return ""
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name
		if p.Kind != "" {
			parts[i] += " : " + p.Kind
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func exprs(es []ast.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func (s *Structure) String() string {
	var sb strings.Builder
	sb.WriteString("structure " + s.Name + params(s.Params))
	if s.Extends != nil {
		sb.WriteString(" extends " + s.Extends.String())
	}
	if s.Over != nil {
		sb.WriteString(" over " + s.Over.String())
	}
	if len(s.Where) > 0 {
		sb.WriteString(" where " + exprs(s.Where))
	}
	sb.WriteString(" {\n")
	for _, op := range s.Operations {
		sb.WriteString("  " + op.String() + "\n")
	}
	for _, e := range s.Elements {
		sb.WriteString("  " + e.String() + "\n")
	}
	for _, f := range s.Functions {
		sb.WriteString("  " + f.String() + "\n")
	}
	for _, a := range s.Axioms {
		sb.WriteString("  " + a.String() + "\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func (b *Body) String() string {
	if b.Builtin != "" {
		return b.Builtin
	}
	return b.Expr.String()
}

func (w *Witness) String() string {
	var sb strings.Builder
	args := make([]string, len(w.Args))
	for i, a := range w.Args {
		args[i] = a.String()
	}
	sb.WriteString("implements " + w.Structure + "(" + strings.Join(args, ", ") + ")")
	if w.Over != nil {
		sb.WriteString(" over " + w.Over.String())
	}
	if len(w.Where) > 0 {
		sb.WriteString(" where " + exprs(w.Where))
	}
	sb.WriteString(" {\n")
	for _, op := range w.Operations {
		sb.WriteString("  operation " + op.Name)
		if len(op.Body.Params) > 0 {
			sb.WriteString("(" + strings.Join(op.Body.Params, ", ") + ")")
		}
		sb.WriteString(" = " + op.Body.String() + "\n")
	}
	for _, e := range w.Elements {
		sb.WriteString("  element " + e.Name + " = " + e.Value.String() + "\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func (v *Variant) String() string {
	if len(v.Fields) == 0 {
		return v.Name
	}
	parts := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		if f.Name != "" {
			parts[i] = f.Name + " : " + f.Type.String()
		} else {
			parts[i] = f.Type.String()
		}
	}
	return v.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (d *Data) String() string {
	parts := make([]string, len(d.Variants))
	for i, v := range d.Variants {
		parts[i] = v.String()
	}
	return "data " + d.Name + params(d.Params) + " = " + strings.Join(parts, " | ")
}
