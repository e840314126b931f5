package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	axiomLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `//[^\n]*`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
		{Name: "Keyword", Pattern: `\b(?:structure|implements|data|define|operation|element|axiom|import|extends|over|where|if|then|else|let|in|match|as|true|false|forall|exists)\b`},
		{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_']*`},
		{Name: "Op", Pattern: `==>|<=>|==|=>|->|<=|>=|!=|&&|\|\||[⟹⟺⇔⇒→≤≥≠¬∧∨×∀∃]|[-+*/^=<>!|:.,(){}]`},
	})

	options = []participle.Option{
		participle.Lexer(axiomLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(8),
	}

	fileParser = participle.MustBuild[File](options...)
	exprParser = participle.MustBuild[Expr](options...)
)

// File is the parse tree of one source file
type File struct {
	Pos   lexer.Position
	Items []*Item `parser:"@@*"`
}

// Item is one top-level declaration
type Item struct {
	Import     *Import     `parser:"  @@"`
	Structure  *Structure  `parser:"| @@"`
	Implements *Implements `parser:"| @@"`
	Data       *Data       `parser:"| @@"`
	Define     *Define     `parser:"| @@"`
	Operation  *Operation  `parser:"| @@"`
}

// Import names another file to load first
type Import struct {
	Pos  lexer.Position
	Path string `parser:"'import' @String"`
}

// TypeParam is a structure or data type parameter with an optional kind
type TypeParam struct {
	Name string `parser:"@Ident"`
	Kind string `parser:"( ':' @Ident )?"`
}

// Structure declares operations, elements, axioms and local definitions
type Structure struct {
	Pos     lexer.Position
	Name    string       `parser:"'structure' @Ident"`
	Params  []*TypeParam `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
	Extends *TypeTerm    `parser:"( 'extends' @@ )?"`
	Over    *TypeTerm    `parser:"( 'over' @@ )?"`
	Where   []*Expr      `parser:"( 'where' @@ ( ',' @@ )* )?"`
	Members []*Member    `parser:"'{' @@* '}'"`
}

// Member is one entry of a structure body
type Member struct {
	Operation *Operation `parser:"  @@"`
	Element   *Element   `parser:"| @@"`
	Axiom     *Axiom     `parser:"| @@"`
	Define    *Define    `parser:"| @@"`
}

// Operation is a signature: `operation mul : G × G → G`
type Operation struct {
	Pos     lexer.Position
	Name    string    `parser:"'operation' @Ident ':'"`
	Nullary bool      `parser:"@( '→' | '->' )?"`
	Sig     *TypeExpr `parser:"@@"`
}

// Element is a distinguished constant: `element e : G`
type Element struct {
	Pos  lexer.Position
	Name string    `parser:"'element' @Ident ':'"`
	Type *TypeExpr `parser:"@@"`
}

// Axiom is a named proposition: `axiom assoc : ∀(a b c : G). ...`
type Axiom struct {
	Pos  lexer.Position
	Name string `parser:"'axiom' @Ident ':'"`
	Prop *Expr  `parser:"@@"`
}

// Param is a parameter with an optional annotation
type Param struct {
	Name string    `parser:"@Ident"`
	Type *TypeExpr `parser:"( ':' @@ )?"`
}

// Define is a named function: `define f(x : ℝ) : ℝ = x * x`
type Define struct {
	Pos    lexer.Position
	Name   string    `parser:"'define' @Ident"`
	Params []*Param  `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
	Result *TypeExpr `parser:"( ':' @@ )?"`
	Body   *Expr     `parser:"'=' @@"`
}

// Implements is a witness block
type Implements struct {
	Pos       lexer.Position
	Structure string       `parser:"'implements' @Ident"`
	Args      []*TypeExpr  `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
	Over      *TypeTerm    `parser:"( 'over' @@ )?"`
	Where     []*Expr      `parser:"( 'where' @@ ( ',' @@ )* )?"`
	Members   []*ImplEntry `parser:"'{' @@* '}'"`
}

// ImplEntry is an operation body or an element value inside a witness
type ImplEntry struct {
	Operation *ImplOperation `parser:"  @@"`
	Element   *ImplElement   `parser:"| @@"`
}

// ImplOperation is `operation op = builtin_x` or `operation op(a, b) = expr`
type ImplOperation struct {
	Pos    lexer.Position
	Name   string   `parser:"'operation' @Ident"`
	Params []string `parser:"( '(' ( @Ident ( ',' @Ident )* )? ')' )?"`
	Body   *Expr    `parser:"'=' @@"`
}

// ImplElement is `element zero = 0`
type ImplElement struct {
	Pos   lexer.Position
	Name  string `parser:"'element' @Ident '='"`
	Value *Expr  `parser:"@@"`
}

// Data declares an algebraic data type
type Data struct {
	Pos      lexer.Position
	Name     string       `parser:"'data' @Ident"`
	Params   []*TypeParam `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
	Variants []*Variant   `parser:"'=' '|'? @@ ( '|' @@ )*"`
}

// Variant is one constructor
type Variant struct {
	Pos    lexer.Position
	Name   string   `parser:"@Ident"`
	Fields []*Field `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
}

// Field is a constructor argument, optionally named
type Field struct {
	Name string    `parser:"( @Ident ':' )?"`
	Type *TypeExpr `parser:"@@"`
}

// TypeExpr is a product of terms with an optional result: A × B → C
type TypeExpr struct {
	Pos    lexer.Position
	Terms  []*TypeTerm `parser:"@@ ( '×' @@ )*"`
	Result *TypeExpr   `parser:"( ( '→' | '->' ) @@ )?"`
}

// TypeTerm is a dimension literal, a parenthesised type or a named type
// with optional arguments
type TypeTerm struct {
	Pos   lexer.Position
	Nat   *string     `parser:"  @Number"`
	Paren *TypeExpr   `parser:"| '(' @@ ')'"`
	Name  string      `parser:"| @Ident"`
	Args  []*TypeExpr `parser:"  ( '(' ( @@ ( ',' @@ )* )? ')' )?"`
}

// Expr is the lowest precedence level
type Expr struct {
	Pos   lexer.Position
	Quant *Quant `parser:"  @@"`
	If    *If    `parser:"| @@"`
	Let   *Let   `parser:"| @@"`
	Iff   *Iff   `parser:"| @@"`
}

// Quant is a quantifier over binder groups
type Quant struct {
	Pos    lexer.Position
	Kind   string         `parser:"@( '∀' | 'forall' | '∃' | 'exists' )"`
	Groups []*BinderGroup `parser:"( '(' @@ ( ','? @@ )* ')' | @@ )"`
	Where  *Expr          `parser:"( 'where' @@ )?"`
	Body   *Expr          `parser:"'.' @@"`
}

// BinderGroup is `a b c : T` or a single untyped name list
type BinderGroup struct {
	Names []string  `parser:"@Ident+"`
	Type  *TypeExpr `parser:"( ':' @@ )?"`
}

// If is a conditional expression
type If struct {
	Cond *Expr `parser:"'if' @@"`
	Then *Expr `parser:"'then' @@"`
	Else *Expr `parser:"'else' @@"`
}

// Let binds a name within a body
type Let struct {
	Name  string    `parser:"'let' @Ident"`
	Type  *TypeExpr `parser:"( ':' @@ )?"`
	Value *Expr     `parser:"'=' @@"`
	Body  *Expr     `parser:"'in' @@"`
}

// Iff is right associative
type Iff struct {
	Left  *Implies `parser:"@@"`
	Right *Iff     `parser:"( ( '⟺' | '<=>' | '⇔' ) @@ )?"`
}

// Implies is right associative
type Implies struct {
	Left  *Or      `parser:"@@"`
	Right *Implies `parser:"( ( '⟹' | '==>' | '⇒' ) @@ )?"`
}

// Or is a left-associative chain of disjunctions
type Or struct {
	Left *And   `parser:"@@"`
	Rest []*And `parser:"( ( '∨' | '||' ) @@ )*"`
}

// And is a left-associative chain of conjunctions
type And struct {
	Left *Not   `parser:"@@"`
	Rest []*Not `parser:"( ( '∧' | '&&' ) @@ )*"`
}

// Not is a negation or a comparison
type Not struct {
	Not *Not `parser:"  ( '¬' | '!' ) @@"`
	Cmp *Cmp `parser:"| @@"`
}

// Cmp is a single, non-associative comparison
type Cmp struct {
	Left  *Add   `parser:"@@"`
	Op    string `parser:"( @( '=' | '==' | '≠' | '!=' | '<' | '>' | '≤' | '<=' | '≥' | '>=' )"`
	Right *Add   `parser:"  @@ )?"`
}

// Add is a left-associative chain of + and -
type Add struct {
	Left *Mul    `parser:"@@"`
	Rest []*AddOp `parser:"@@*"`
}

// AddOp is one step of an Add chain
type AddOp struct {
	Op    string `parser:"@( '+' | '-' )"`
	Right *Mul   `parser:"@@"`
}

// Mul is a left-associative chain of *, × and /
type Mul struct {
	Left *Unary   `parser:"@@"`
	Rest []*MulOp `parser:"@@*"`
}

// MulOp is one step of a Mul chain
type MulOp struct {
	Op    string `parser:"@( '*' | '×' | '/' )"`
	Right *Unary `parser:"@@"`
}

// Unary is an optional arithmetic negation
type Unary struct {
	Neg bool `parser:"@'-'?"`
	Pow *Pow `parser:"@@"`
}

// Pow is right associative through its Unary exponent
type Pow struct {
	Base *Primary `parser:"@@"`
	Exp  *Unary   `parser:"( '^' @@ )?"`
}

// Primary is an atom
type Primary struct {
	Pos    lexer.Position
	Number *string `parser:"  @Number"`
	Bool   *string `parser:"| @( 'true' | 'false' )"`
	Match  *Match  `parser:"| @@"`
	Paren  *Expr   `parser:"| '(' @@ ')'"`
	Ref    *Ref    `parser:"| @@"`
}

// Ref is an identifier, optionally applied to arguments
type Ref struct {
	Name string `parser:"@Ident"`
	Args *Args  `parser:"@@?"`
}

// Args is a parenthesised, possibly empty argument list
type Args struct {
	List []*Expr `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}

// Match is `match e { p => body | ... }`
type Match struct {
	Pos       lexer.Position
	Scrutinee *Expr   `parser:"'match' @@ '{'"`
	Cases     []*Case `parser:"'|'? @@ ( ( '|' | ',' )? @@ )* '}'"`
}

// Case is one match arm with an optional guard
type Case struct {
	Pattern *Pattern `parser:"@@"`
	Guard   *Expr    `parser:"( 'if' @@ )?"`
	Body    *Expr    `parser:"( '=>' | '→' | '->' ) @@"`
}

// Pattern is a base pattern with an optional `as` binding
type Pattern struct {
	Base *PatternBase `parser:"@@"`
	As   string       `parser:"( 'as' @Ident )?"`
}

// PatternBase is a literal, a variable, a wildcard or a constructor
type PatternBase struct {
	Number *string      `parser:"  @( '-'? Number )"`
	Bool   *string      `parser:"| @( 'true' | 'false' )"`
	Paren  *Pattern     `parser:"| '(' @@ ')'"`
	Name   string       `parser:"| @Ident"`
	Args   *PatternArgs `parser:"  @@?"`
}

// PatternArgs is the sub-pattern list of a constructor pattern
type PatternArgs struct {
	List []*Pattern `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}
