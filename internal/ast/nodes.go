package ast

// Node is the base interface for all expression, pattern and type nodes
type Node interface {
	String() string
}

// Expr is a node of an expression tree
type Expr interface {
	Node
	exprNode()
}

// Pattern is the left-hand side of a match case
type Pattern interface {
	Node
	patternNode()
}

// TypeExpr is a type annotation as written in a declaration
type TypeExpr interface {
	Node
	typeNode()
}

// NumLit is a numeric literal. Text keeps the literal as written.
type NumLit struct {
	Text string
}

// BoolLit is true or false
type BoolLit struct {
	Value bool
}

// Ident references a variable, constant, element or nullary constructor
type Ident struct {
	Name string
}

// Call applies an operation, function or constructor to arguments.
// Infix operators are lowered to calls of their canonical names
// (plus, times, equals, ...).
type Call struct {
	Op   string
	Args []Expr
}

// QuantKind distinguishes universal from existential quantifiers
type QuantKind int

const (
	ForAll QuantKind = iota
	Exists
)

// Binder is a quantified variable with an optional type annotation
type Binder struct {
	Name string
	Type TypeExpr // nil when unannotated
}

// Quantifier is ∀ or ∃ over one or more binders, with an optional where
// clause restricting the domain.
type Quantifier struct {
	Kind  QuantKind
	Vars  []Binder
	Where Expr
	Body  Expr
}

// IfExpr is a conditional expression
type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

// LetExpr binds Name to Value within Body
type LetExpr struct {
	Name  string
	Type  TypeExpr
	Value Expr
	Body  Expr
}

// Case is one arm of a match expression
type Case struct {
	Pattern Pattern
	Guard   Expr // nil when the arm has no guard
	Body    Expr
}

// MatchExpr selects the first case whose pattern (and guard) matches
type MatchExpr struct {
	Scrutinee Expr
	Cases     []Case
	Line      int
	Column    int
}

// Pos returns the source location of the match keyword
func (m *MatchExpr) Pos() (int, int) { return m.Line, m.Column }

func (*NumLit) exprNode()     {}
func (*BoolLit) exprNode()    {}
func (*Ident) exprNode()      {}
func (*Call) exprNode()       {}
func (*Quantifier) exprNode() {}
func (*IfExpr) exprNode()     {}
func (*LetExpr) exprNode()    {}
func (*MatchExpr) exprNode()  {}

// Wildcard matches anything and binds nothing
type Wildcard struct{}

// PVar matches anything and binds the value to Name
type PVar struct {
	Name string
}

// PLit matches a numeric or boolean literal
type PLit struct {
	Value Expr
}

// PCtor matches a constructor application with sub-patterns per field
type PCtor struct {
	Name string
	Args []Pattern
}

// PAs matches Pattern and additionally binds the whole value to Name
type PAs struct {
	Pattern Pattern
	Name    string
}

func (*Wildcard) patternNode() {}
func (*PVar) patternNode()     {}
func (*PLit) patternNode()     {}
func (*PCtor) patternNode()    {}
func (*PAs) patternNode()      {}

// TypeName is a named type with optional arguments: ℝ, G, Matrix(m, n)
type TypeName struct {
	Name string
	Args []TypeExpr
}

// TypeNat is a literal dimension such as the 2 in Matrix(2, 2)
type TypeNat struct {
	Value int
}

// TypeFunc is an operation signature: A × B → C
type TypeFunc struct {
	Params []TypeExpr
	Result TypeExpr
}

func (*TypeName) typeNode() {}
func (*TypeNat) typeNode()  {}
func (*TypeFunc) typeNode() {}

// Shorthand constructors used by the parser, the registry and tests.

// Num builds a numeric literal
func Num(text string) *NumLit { return &NumLit{Text: text} }

// Var builds an identifier reference
func Var(name string) *Ident { return &Ident{Name: name} }

// Apply builds a call
func Apply(op string, args ...Expr) *Call { return &Call{Op: op, Args: args} }

// True and False are the boolean literals
var (
	True  = &BoolLit{Value: true}
	False = &BoolLit{Value: false}
)

// Named builds a type name
func Named(name string, args ...TypeExpr) *TypeName { return &TypeName{Name: name, Args: args} }

// Func builds a function type
func Func(result TypeExpr, params ...TypeExpr) *TypeFunc {
	return &TypeFunc{Params: params, Result: result}
}

// Equal reports structural equality of two expressions
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
