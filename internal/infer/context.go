package infer

import (
	"github.com/lhaig/axiom/internal/ast"
	"github.com/lhaig/axiom/internal/types"
)

// Entry is a name bound in a context, optionally with a known value
type Entry struct {
	Name  string
	Type  types.Type
	Value ast.Expr
}

// Context is an immutable chain of bindings. Extending a context returns
// a child; the parent is never modified.
type Context struct {
	parent *Context
	entry  *Entry
}

// NewContext returns an empty context
func NewContext() *Context { return &Context{} }

// With returns a child context binding name to t
func (c *Context) With(name string, t types.Type) *Context {
	return &Context{parent: c, entry: &Entry{Name: name, Type: t}}
}

// WithValue binds a name to a type and a known value
func (c *Context) WithValue(name string, t types.Type, v ast.Expr) *Context {
	return &Context{parent: c, entry: &Entry{Name: name, Type: t, Value: v}}
}

// Lookup finds the innermost binding of name
func (c *Context) Lookup(name string) (Entry, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.entry != nil && cur.entry.Name == name {
			return *cur.entry, true
		}
	}
	return Entry{}, false
}

// Names returns the visible names, outermost first, without shadowed
// duplicates.
func (c *Context) Names() []string {
	var rev []string
	seen := map[string]bool{}
	for cur := c; cur != nil; cur = cur.parent {
		if cur.entry != nil && !seen[cur.entry.Name] {
			seen[cur.entry.Name] = true
			rev = append(rev, cur.entry.Name)
		}
	}
	out := make([]string, len(rev))
	for i, n := range rev {
		out[len(rev)-1-i] = n
	}
	return out
}
