// Package parser reads the declaration format into decl programs and
// standalone expressions.
package parser

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/decl"
	"github.com/lhaig/axiom/internal/diagnostic"
)

// Error is a syntax error. A file with an error loads nothing.
type Error struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos(), e.Msg)
}

// Pos returns the location of the error
func (e *Error) Pos() diagnostic.Position {
	return diagnostic.Position{File: e.File, Line: e.Line, Column: e.Column}
}

func newError(file string, p lexer.Position, format string, args ...interface{}) *Error {
	if p.Filename != "" {
		file = p.Filename
	}
	return &Error{File: file, Line: p.Line, Column: p.Column, Msg: fmt.Sprintf(format, args...)}
}

// syntaxError converts a participle error into an *Error
func syntaxError(file string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return newError(file, perr.Position(), "%s", perr.Message())
	}
	return &Error{File: file, Msg: err.Error()}
}

// ParseFile reads and parses the source file at path
func ParseFile(path string) (*decl.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseString(path, string(src))
}

// ParseString parses src as the content of filename
func ParseString(filename, src string) (*decl.Program, error) {
	f, err := fileParser.ParseString(filename, src)
	if err != nil {
		return nil, syntaxError(filename, err)
	}
	l := &lowerer{file: filename}
	return l.program(f)
}

// ParseExpr parses a single expression
func ParseExpr(src string) (ast.Expr, error) {
	e, err := exprParser.ParseString("<expr>", src)
	if err != nil {
		return nil, syntaxError("<expr>", err)
	}
	l := &lowerer{file: "<expr>"}
	return l.expr(e)
}

// MustParseExpr is ParseExpr for known-good input such as test fixtures
func MustParseExpr(src string) ast.Expr {
	e, err := ParseExpr(src)
	if err != nil {
		panic(err)
	}
	return e
}
