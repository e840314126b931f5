package diagnostic

import (
	"fmt"
	"sort"
	"strings"
)

// Severity represents the severity level of a diagnostic message
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Position locates a declaration or expression in a source file.
type Position struct {
	File   string
	Line   int
	Column int
}

// String renders the position as file:line:col, omitting unknown parts.
func (p Position) String() string {
	file := p.File
	if file == "" {
		file = "<input>"
	}
	if p.Line == 0 {
		return file
	}
	return fmt.Sprintf("%s:%d:%d", file, p.Line, p.Column)
}

// IsZero reports whether the position carries no location.
func (p Position) IsZero() bool {
	return p.File == "" && p.Line == 0
}

// Diagnostic is a single error, warning or info message about a declaration
type Diagnostic struct {
	Severity Severity
	Message  string
	Pos      Position
	Hint     string // optional suggestion
	Rule     string // lint rule or check that produced it
}

// Diagnostics manages a collection of diagnostic messages
type Diagnostics struct {
	items []Diagnostic
}

// New creates a new empty Diagnostics collection
func New() *Diagnostics {
	return &Diagnostics{items: make([]Diagnostic, 0)}
}

func (d *Diagnostics) add(sev Severity, pos Position, rule, msg, hint string) {
	d.items = append(d.items, Diagnostic{
		Severity: sev,
		Message:  msg,
		Pos:      pos,
		Hint:     hint,
		Rule:     rule,
	})
}

// Errorf adds an error diagnostic with formatted message
func (d *Diagnostics) Errorf(pos Position, format string, args ...interface{}) {
	d.add(Error, pos, "", fmt.Sprintf(format, args...), "")
}

// Warningf adds a warning diagnostic with formatted message
func (d *Diagnostics) Warningf(pos Position, format string, args ...interface{}) {
	d.add(Warning, pos, "", fmt.Sprintf(format, args...), "")
}

// Infof adds an info diagnostic with formatted message
func (d *Diagnostics) Infof(pos Position, format string, args ...interface{}) {
	d.add(Info, pos, "", fmt.Sprintf(format, args...), "")
}

// Report adds a diagnostic produced by a named rule, with an optional hint.
func (d *Diagnostics) Report(sev Severity, pos Position, rule, msg, hint string) {
	d.add(sev, pos, rule, msg, hint)
}

// Merge appends every diagnostic of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// HasErrors returns true if there are any error-level diagnostics
func (d *Diagnostics) HasErrors() bool {
	return d.ErrorCount() > 0
}

// Errors returns only the error-level diagnostics
func (d *Diagnostics) Errors() []Diagnostic {
	return d.filter(Error)
}

// Warnings returns only the warning-level diagnostics
func (d *Diagnostics) Warnings() []Diagnostic {
	return d.filter(Warning)
}

func (d *Diagnostics) filter(sev Severity) []Diagnostic {
	out := make([]Diagnostic, 0)
	for _, item := range d.items {
		if item.Severity == sev {
			out = append(out, item)
		}
	}
	return out
}

// All returns all diagnostics regardless of severity
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// Count returns the total number of diagnostics
func (d *Diagnostics) Count() int {
	return len(d.items)
}

// ErrorCount returns the number of error-level diagnostics
func (d *Diagnostics) ErrorCount() int {
	return len(d.filter(Error))
}

// WarningCount returns the number of warning-level diagnostics
func (d *Diagnostics) WarningCount() int {
	return len(d.filter(Warning))
}

// Sort orders diagnostics by file, line and column. Equal positions keep
// insertion order.
func (d *Diagnostics) Sort() {
	sort.SliceStable(d.items, func(i, j int) bool {
		a, b := d.items[i].Pos, d.items[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// Format returns human-readable messages, one per line:
//
//	error[groups.ax:3:10]: structure Group: missing operation 'inv'
//	  hint: add 'operation inv = ...' to the implements block
//	warning[packet.ax:5:1]: non-exhaustive match [exhaustive]
func (d *Diagnostics) Format() string {
	if len(d.items) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, item := range d.items {
		fmt.Fprintf(&builder, "%s[%s]: %s", item.Severity, item.Pos, item.Message)
		if item.Rule != "" {
			fmt.Fprintf(&builder, " [%s]", item.Rule)
		}
		if item.Hint != "" {
			fmt.Fprintf(&builder, "\n  hint: %s", item.Hint)
		}
		if i < len(d.items)-1 {
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

// Clear removes all diagnostics from the collection
func (d *Diagnostics) Clear() {
	d.items = make([]Diagnostic, 0)
}
