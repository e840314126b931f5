// Package decl holds the declarations a program is made of: structures,
// their witnesses, algebraic data types, functions and free operations.
package decl

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/diagnostic"
)

// Pos is the source location of a declaration
type Pos = diagnostic.Position

// TypeParam is a structure or data type parameter. Kind is "Nat" for
// dimension parameters and empty for type parameters.
type TypeParam struct {
	Name string
	Kind string
}

// IsDim reports whether the parameter ranges over dimensions
func (p TypeParam) IsDim() bool {
	switch p.Kind {
	case "Nat", "ℕ", "Dim":
		return true
	}
	return false
}

// OpSig declares an operation: its name and its signature
type OpSig struct {
	Name      string
	Signature *ast.TypeFunc
	Pos       Pos
}

// Arity returns the number of parameters of the operation
func (o *OpSig) Arity() int {
	if o.Signature == nil {
		return 0
	}
	return len(o.Signature.Params)
}

// Element declares a distinguished constant of a structure
type Element struct {
	Name string
	Type ast.TypeExpr
	Pos  Pos
}

// Axiom is a named proposition a structure asserts
type Axiom struct {
	Name string
	Prop ast.Expr
	Pos  Pos
}

// Param is a function parameter with an optional annotation
type Param struct {
	Name string
	Type ast.TypeExpr
}

// Function is a named definition with a body expression
type Function struct {
	Name   string
	Params []Param
	Result ast.TypeExpr
	Body   ast.Expr
	Pos    Pos
}

// ParamNames returns the parameter names in order
func (f *Function) ParamNames() []string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Name
	}
	return names
}

// IsRecursive reports whether the body calls the function itself
func (f *Function) IsRecursive() bool {
	for _, n := range ast.CallNames(f.Body) {
		if n == f.Name {
			return true
		}
	}
	return false
}

// Structure is an algebraic interface: typed operations, distinguished
// elements and axioms, optionally refining a parent structure.
type Structure struct {
	Name       string
	Params     []TypeParam
	Operations []*OpSig
	Elements   []*Element
	Axioms     []*Axiom
	Functions  []*Function
	Extends    *ast.TypeName // parent structure applied to arguments
	Over       *ast.TypeName // carrier structure
	Where      []ast.Expr    // structure constraints or hypotheses
	Pos        Pos
}

// Operation looks up an operation declared directly on the structure
func (s *Structure) Operation(name string) *OpSig {
	for _, op := range s.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

// Body is the implementation of one witness operation: either a builtin
// primitive or an inline expression over Params.
type Body struct {
	Builtin string
	Params  []string
	Expr    ast.Expr
}

// OpImpl binds an operation name to its witness body
type OpImpl struct {
	Name string
	Body *Body
	Pos  Pos
}

// ElementImpl gives the concrete value of a structure element
type ElementImpl struct {
	Name  string
	Value ast.Expr
	Pos   Pos
}

// Witness asserts that concrete types implement a structure
type Witness struct {
	Structure  string
	Args       []ast.TypeExpr
	Operations []*OpImpl
	Elements   []*ElementImpl
	Over       *ast.TypeName
	Where      []ast.Expr
	Pos        Pos
}

// Operation returns the implementation of op, or nil
func (w *Witness) Operation(op string) *OpImpl {
	for _, o := range w.Operations {
		if o.Name == op {
			return o
		}
	}
	return nil
}

// Field is one argument slot of a data constructor. Name may be empty.
type Field struct {
	Name string
	Type ast.TypeExpr
}

// Variant is one constructor of a data type
type Variant struct {
	Name   string
	Fields []Field
	Pos    Pos
}

// Data declares a closed sum of constructors
type Data struct {
	Name     string
	Params   []TypeParam
	Variants []*Variant
	Pos      Pos
}

// Import names another source file to load first
type Import struct {
	Path string
	Pos  Pos
}

// Program is the parsed content of one source file
type Program struct {
	File       string
	Imports    []*Import
	Structures []*Structure
	Witnesses  []*Witness
	Data       []*Data
	Functions  []*Function
	Operations []*OpSig
}

// Empty reports whether the program declares nothing
func (p *Program) Empty() bool {
	return len(p.Structures) == 0 && len(p.Witnesses) == 0 && len(p.Data) == 0 &&
		len(p.Functions) == 0 && len(p.Operations) == 0
}

// Fingerprint identifies the declarations of p independent of file name,
// layout and comments. Loading the same fingerprint twice is a no-op.
func (p *Program) Fingerprint() string {
	sum := sha256.Sum256([]byte(p.String()))
	return hex.EncodeToString(sum[:])
}

// String renders the program in canonical source form
func (p *Program) String() string {
	var sb strings.Builder
	for _, d := range p.Data {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	for _, s := range p.Structures {
		sb.WriteString(s.String())
		sb.WriteString("\n")
	}
	for _, w := range p.Witnesses {
		sb.WriteString(w.String())
		sb.WriteString("\n")
	}
	for _, o := range p.Operations {
		sb.WriteString(o.String())
		sb.WriteString("\n")
	}
	for _, f := range p.Functions {
		sb.WriteString(f.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
