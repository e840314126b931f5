package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/lhaig/axiom/internal/smt"
)

// Status is the verdict of a query
type Status int

const (
	Unknown Status = iota
	Valid
	Invalid
	Satisfiable
	Unsatisfiable
)

// String returns the lower-case name of the status
func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Satisfiable:
		return "satisfiable"
	case Unsatisfiable:
		return "unsatisfiable"
	default:
		return "unknown"
	}
}

// Result holds the answer to a single query
type Result struct {
	Goal           string
	Status         Status
	Counterexample []smt.Binding // model for Invalid, example for Satisfiable
	Reason         string        // why the answer is Unknown
	Elapsed        time.Duration
	Script         string // SMT-LIB sent to the solver, for debugging
}

// Format renders the result for a terminal
func (r *Result) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", strings.ToUpper(r.Status.String()), r.Goal)
	if r.Reason != "" {
		fmt.Fprintf(&sb, " (%s)", r.Reason)
	}
	sb.WriteString("\n")
	if len(r.Counterexample) > 0 {
		label := "counterexample"
		if r.Status == Satisfiable {
			label = "example"
		}
		fmt.Fprintf(&sb, "  %s:\n", label)
		for _, b := range r.Counterexample {
			fmt.Fprintf(&sb, "    %s = %s\n", b.Name, b.Value)
		}
	}
	return sb.String()
}

// Report aggregates the results of a batch of goals
type Report struct {
	Results []*Result
}

// AllValid returns true if every goal was proved
func (r *Report) AllValid() bool {
	for _, res := range r.Results {
		if res.Status != Valid {
			return false
		}
	}
	return len(r.Results) > 0
}

// Worst returns the least favourable status in the report
func (r *Report) Worst() Status {
	worst := Valid
	for _, res := range r.Results {
		if statusWorse(res.Status, worst) {
			worst = res.Status
		}
	}
	return worst
}

// Counts returns how many results have each status
func (r *Report) Counts() map[Status]int {
	out := map[Status]int{}
	for _, res := range r.Results {
		out[res.Status]++
	}
	return out
}

// statusWorse returns true if a is worse than b in the ordering:
// valid < satisfiable < unsatisfiable < unknown < invalid
func statusWorse(a, b Status) bool {
	return statusRank(a) > statusRank(b)
}

func statusRank(s Status) int {
	switch s {
	case Valid:
		return 0
	case Satisfiable:
		return 1
	case Unsatisfiable:
		return 2
	case Unknown:
		return 3
	case Invalid:
		return 4
	default:
		return 5
	}
}

// FormatReport produces human-readable output for a batch of results
func FormatReport(r *Report) string {
	if len(r.Results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Verification Report\n")
	sb.WriteString("===================\n\n")

	valid := 0
	for _, res := range r.Results {
		fmt.Fprintf(&sb, "  %-50s %s\n", res.Goal, strings.ToUpper(res.Status.String()))
		if res.Reason != "" {
			fmt.Fprintf(&sb, "    reason: %s\n", res.Reason)
		}
		for _, b := range res.Counterexample {
			fmt.Fprintf(&sb, "    %s = %s\n", b.Name, b.Value)
		}
		if res.Status == Valid {
			valid++
		}
	}

	total := len(r.Results)
	if valid == total {
		fmt.Fprintf(&sb, "\nStatus: all %d goals valid\n", total)
	} else {
		fmt.Fprintf(&sb, "\nStatus: %d of %d goals valid\n", valid, total)
	}
	return sb.String()
}
