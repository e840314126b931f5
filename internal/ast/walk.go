package ast

import "fmt"

// Walk visits e and its sub-expressions in depth-first order. Returning
// false from fn skips the children of the visited node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Quantifier:
		Walk(n.Where, fn)
		Walk(n.Body, fn)
	case *IfExpr:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *LetExpr:
		Walk(n.Value, fn)
		Walk(n.Body, fn)
	case *MatchExpr:
		Walk(n.Scrutinee, fn)
		for _, c := range n.Cases {
			Walk(c.Guard, fn)
			Walk(c.Body, fn)
		}
	}
}

// PatternVars returns the names bound by p, in left-to-right order
func PatternVars(p Pattern) []string {
	var out []string
	var visit func(Pattern)
	visit = func(p Pattern) {
		switch n := p.(type) {
		case *PVar:
			out = append(out, n.Name)
		case *PCtor:
			for _, a := range n.Args {
				visit(a)
			}
		case *PAs:
			visit(n.Pattern)
			out = append(out, n.Name)
		}
	}
	visit(p)
	return out
}

// FreeVars returns identifiers of e that are not bound by a quantifier,
// let or match case, in first-occurrence order. Call heads are not
// variables and are never reported.
func FreeVars(e Expr) []string {
	seen := map[string]bool{}
	var out []string
	var visit func(Expr, map[string]bool)
	visit = func(e Expr, bound map[string]bool) {
		switch n := e.(type) {
		case nil:
		case *Ident:
			if !bound[n.Name] && !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n.Name)
			}
		case *Call:
			for _, a := range n.Args {
				visit(a, bound)
			}
		case *Quantifier:
			inner := extend(bound, binderNames(n.Vars)...)
			visit(n.Where, inner)
			visit(n.Body, inner)
		case *IfExpr:
			visit(n.Cond, bound)
			visit(n.Then, bound)
			visit(n.Else, bound)
		case *LetExpr:
			visit(n.Value, bound)
			visit(n.Body, extend(bound, n.Name))
		case *MatchExpr:
			visit(n.Scrutinee, bound)
			for _, c := range n.Cases {
				inner := extend(bound, PatternVars(c.Pattern)...)
				visit(c.Guard, inner)
				visit(c.Body, inner)
			}
		}
	}
	visit(e, map[string]bool{})
	return out
}

// CallNames returns the distinct call heads of e in first-occurrence order
func CallNames(e Expr) []string {
	seen := map[string]bool{}
	var out []string
	Walk(e, func(n Expr) bool {
		if c, ok := n.(*Call); ok && !seen[c.Op] {
			seen[c.Op] = true
			out = append(out, c.Op)
		}
		return true
	})
	return out
}

func binderNames(vs []Binder) []string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name
	}
	return names
}

func extend(bound map[string]bool, names ...string) map[string]bool {
	out := make(map[string]bool, len(bound)+len(names))
	for k := range bound {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

// Substitute replaces free occurrences of the identifiers in bindings.
// Binders that would capture a free variable of a replacement are renamed.
func Substitute(e Expr, bindings map[string]Expr) Expr {
	if len(bindings) == 0 || e == nil {
		return e
	}
	switch n := e.(type) {
	case *Ident:
		if r, ok := bindings[n.Name]; ok {
			return r
		}
		return n
	case *NumLit, *BoolLit:
		return n
	case *Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = Substitute(a, bindings)
		}
		return &Call{Op: n.Op, Args: args}
	case *Quantifier:
		vars := make([]Binder, len(n.Vars))
		copy(vars, n.Vars)
		inner := without(bindings, binderNames(vars)...)
		renames := captureRenames(binderNames(vars), inner)
		for i, v := range vars {
			if nn, ok := renames[v.Name]; ok {
				vars[i].Name = nn
			}
		}
		inner = withRenames(inner, renames)
		return &Quantifier{Kind: n.Kind, Vars: vars, Where: Substitute(n.Where, inner), Body: Substitute(n.Body, inner)}
	case *IfExpr:
		return &IfExpr{Cond: Substitute(n.Cond, bindings), Then: Substitute(n.Then, bindings), Else: Substitute(n.Else, bindings)}
	case *LetExpr:
		inner := without(bindings, n.Name)
		name := n.Name
		renames := captureRenames([]string{name}, inner)
		if nn, ok := renames[name]; ok {
			name = nn
		}
		inner = withRenames(inner, renames)
		return &LetExpr{Name: name, Type: n.Type, Value: Substitute(n.Value, bindings), Body: Substitute(n.Body, inner)}
	case *MatchExpr:
		cases := make([]Case, len(n.Cases))
		for i, c := range n.Cases {
			vars := PatternVars(c.Pattern)
			inner := without(bindings, vars...)
			renames := captureRenames(vars, inner)
			pat := c.Pattern
			if len(renames) > 0 {
				pat = renamePattern(pat, renames)
			}
			inner = withRenames(inner, renames)
			cases[i] = Case{Pattern: pat, Guard: Substitute(c.Guard, inner), Body: Substitute(c.Body, inner)}
		}
		return &MatchExpr{Scrutinee: Substitute(n.Scrutinee, bindings), Cases: cases, Line: n.Line, Column: n.Column}
	default:
		return e
	}
}

func without(bindings map[string]Expr, names ...string) map[string]Expr {
	out := make(map[string]Expr, len(bindings))
	for k, v := range bindings {
		out[k] = v
	}
	for _, n := range names {
		delete(out, n)
	}
	return out
}

// captureRenames picks fresh names for binders that occur free in any
// replacement of bindings.
func captureRenames(binders []string, bindings map[string]Expr) map[string]string {
	if len(bindings) == 0 {
		return nil
	}
	free := map[string]bool{}
	for _, r := range bindings {
		for _, v := range FreeVars(r) {
			free[v] = true
		}
	}
	renames := map[string]string{}
	for _, b := range binders {
		if !free[b] {
			continue
		}
		for i := 1; ; i++ {
			cand := fmt.Sprintf("%s_%d", b, i)
			if !free[cand] {
				renames[b] = cand
				free[cand] = true
				break
			}
		}
	}
	return renames
}

func withRenames(bindings map[string]Expr, renames map[string]string) map[string]Expr {
	if len(renames) == 0 {
		return bindings
	}
	out := make(map[string]Expr, len(bindings)+len(renames))
	for k, v := range bindings {
		out[k] = v
	}
	for from, to := range renames {
		out[from] = Var(to)
	}
	return out
}

func renamePattern(p Pattern, renames map[string]string) Pattern {
	switch n := p.(type) {
	case *PVar:
		if nn, ok := renames[n.Name]; ok {
			return &PVar{Name: nn}
		}
		return n
	case *PCtor:
		args := make([]Pattern, len(n.Args))
		for i, a := range n.Args {
			args[i] = renamePattern(a, renames)
		}
		return &PCtor{Name: n.Name, Args: args}
	case *PAs:
		name := n.Name
		if nn, ok := renames[name]; ok {
			name = nn
		}
		return &PAs{Pattern: renamePattern(n.Pattern, renames), Name: name}
	default:
		return p
	}
}

// SubstituteTypes rewrites type names inside quantifier and let
// annotations. It is used when an axiom of a parameterised structure is
// inherited under concrete or renamed parameters.
func SubstituteTypes(e Expr, m map[string]TypeExpr) Expr {
	if len(m) == 0 || e == nil {
		return e
	}
	switch n := e.(type) {
	case *Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = SubstituteTypes(a, m)
		}
		return &Call{Op: n.Op, Args: args}
	case *Quantifier:
		vars := make([]Binder, len(n.Vars))
		for i, v := range n.Vars {
			vars[i] = Binder{Name: v.Name, Type: SubstituteType(v.Type, m)}
		}
		return &Quantifier{Kind: n.Kind, Vars: vars, Where: SubstituteTypes(n.Where, m), Body: SubstituteTypes(n.Body, m)}
	case *IfExpr:
		return &IfExpr{Cond: SubstituteTypes(n.Cond, m), Then: SubstituteTypes(n.Then, m), Else: SubstituteTypes(n.Else, m)}
	case *LetExpr:
		return &LetExpr{Name: n.Name, Type: SubstituteType(n.Type, m), Value: SubstituteTypes(n.Value, m), Body: SubstituteTypes(n.Body, m)}
	case *MatchExpr:
		cases := make([]Case, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = Case{Pattern: c.Pattern, Guard: SubstituteTypes(c.Guard, m), Body: SubstituteTypes(c.Body, m)}
		}
		return &MatchExpr{Scrutinee: SubstituteTypes(n.Scrutinee, m), Cases: cases, Line: n.Line, Column: n.Column}
	default:
		return e
	}
}

// SubstituteType replaces type names found in m
func SubstituteType(t TypeExpr, m map[string]TypeExpr) TypeExpr {
	switch n := t.(type) {
	case nil:
		return nil
	case *TypeName:
		if len(n.Args) == 0 {
			if r, ok := m[n.Name]; ok {
				return r
			}
			return n
		}
		args := make([]TypeExpr, len(n.Args))
		for i, a := range n.Args {
			args[i] = SubstituteType(a, m)
		}
		return &TypeName{Name: n.Name, Args: args}
	case *TypeFunc:
		params := make([]TypeExpr, len(n.Params))
		for i, p := range n.Params {
			params[i] = SubstituteType(p, m)
		}
		return &TypeFunc{Params: params, Result: SubstituteType(n.Result, m)}
	default:
		return t
	}
}

// TypeNames returns every type name mentioned by t, outermost first
func TypeNames(t TypeExpr) []string {
	var out []string
	var visit func(TypeExpr)
	visit = func(t TypeExpr) {
		switch n := t.(type) {
		case *TypeName:
			out = append(out, n.Name)
			for _, a := range n.Args {
				visit(a)
			}
		case *TypeFunc:
			for _, p := range n.Params {
				visit(p)
			}
			visit(n.Result)
		}
	}
	visit(t)
	return out
}

// Transform rebuilds e bottom-up, replacing every node by fn's result.
// Patterns are rewritten by pfn when it is non-nil.
func Transform(e Expr, fn func(Expr) (Expr, error), pfn func(Pattern) (Pattern, error)) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	rec := func(x Expr) (Expr, error) { return Transform(x, fn, pfn) }
	var out Expr
	switch n := e.(type) {
	case *Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			r, err := rec(a)
			if err != nil {
				return nil, err
			}
			args[i] = r
		}
		out = &Call{Op: n.Op, Args: args}
	case *Quantifier:
		where, err := rec(n.Where)
		if err != nil {
			return nil, err
		}
		body, err := rec(n.Body)
		if err != nil {
			return nil, err
		}
		out = &Quantifier{Kind: n.Kind, Vars: n.Vars, Where: where, Body: body}
	case *IfExpr:
		c, err := rec(n.Cond)
		if err != nil {
			return nil, err
		}
		t, err := rec(n.Then)
		if err != nil {
			return nil, err
		}
		f, err := rec(n.Else)
		if err != nil {
			return nil, err
		}
		out = &IfExpr{Cond: c, Then: t, Else: f}
	case *LetExpr:
		v, err := rec(n.Value)
		if err != nil {
			return nil, err
		}
		b, err := rec(n.Body)
		if err != nil {
			return nil, err
		}
		out = &LetExpr{Name: n.Name, Type: n.Type, Value: v, Body: b}
	case *MatchExpr:
		s, err := rec(n.Scrutinee)
		if err != nil {
			return nil, err
		}
		cases := make([]Case, len(n.Cases))
		for i, c := range n.Cases {
			pat := c.Pattern
			if pfn != nil {
				if pat, err = pfn(pat); err != nil {
					return nil, err
				}
			}
			g, err := rec(c.Guard)
			if err != nil {
				return nil, err
			}
			b, err := rec(c.Body)
			if err != nil {
				return nil, err
			}
			cases[i] = Case{Pattern: pat, Guard: g, Body: b}
		}
		out = &MatchExpr{Scrutinee: s, Cases: cases, Line: n.Line, Column: n.Column}
	default:
		out = e
	}
	return fn(out)
}
