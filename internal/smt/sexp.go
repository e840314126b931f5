package smt

import (
	"fmt"
	"strings"
)

// Sexp is an atom or a list read from solver output
type Sexp struct {
	Atom string
	List []Sexp
	list bool
}

// IsList reports whether the expression is a parenthesised list
func (s Sexp) IsList() bool { return s.list }

// Head returns the leading atom of a list, or ""
func (s Sexp) Head() string {
	if !s.list || len(s.List) == 0 || s.List[0].list {
		return ""
	}
	return s.List[0].Atom
}

// ErrorText extracts the message of an (error "...") form
func (s Sexp) ErrorText() string {
	if len(s.List) == 2 && !s.List[1].list {
		return strings.Trim(s.List[1].Atom, `"`)
	}
	return s.String()
}

// String renders the expression back to text
func (s Sexp) String() string {
	if !s.list {
		return s.Atom
	}
	parts := make([]string, len(s.List))
	for i, e := range s.List {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// ParseSexps reads every top-level expression of src, skipping comments
func ParseSexps(src string) ([]Sexp, error) {
	r := &sexpReader{src: src}
	var out []Sexp
	for {
		r.skip()
		if r.pos >= len(r.src) {
			return out, nil
		}
		e, err := r.read()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

type sexpReader struct {
	src string
	pos int
}

func (r *sexpReader) skip() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			r.pos++
		default:
			return
		}
	}
}

func (r *sexpReader) read() (Sexp, error) {
	r.skip()
	if r.pos >= len(r.src) {
		return Sexp{}, fmt.Errorf("unexpected end of input")
	}
	switch c := r.src[r.pos]; c {
	case '(':
		r.pos++
		list := Sexp{list: true}
		for {
			r.skip()
			if r.pos >= len(r.src) {
				return Sexp{}, fmt.Errorf("unbalanced parenthesis")
			}
			if r.src[r.pos] == ')' {
				r.pos++
				return list, nil
			}
			e, err := r.read()
			if err != nil {
				return Sexp{}, err
			}
			list.List = append(list.List, e)
		}
	case ')':
		return Sexp{}, fmt.Errorf("unexpected ')' at offset %d", r.pos)
	case '"':
		return r.delimited('"')
	case '|':
		return r.delimited('|')
	default:
		start := r.pos
		for r.pos < len(r.src) && !strings.ContainsRune("() \t\n\r;", rune(r.src[r.pos])) {
			r.pos++
		}
		return Sexp{Atom: r.src[start:r.pos]}, nil
	}
}

func (r *sexpReader) delimited(quote byte) (Sexp, error) {
	start := r.pos
	r.pos++
	for r.pos < len(r.src) {
		if r.src[r.pos] == quote {
			// "" inside a string literal is an escaped quote
			if quote == '"' && r.pos+1 < len(r.src) && r.src[r.pos+1] == '"' {
				r.pos += 2
				continue
			}
			r.pos++
			return Sexp{Atom: r.src[start:r.pos]}, nil
		}
		r.pos++
	}
	return Sexp{}, fmt.Errorf("unterminated %c", quote)
}
