// Package diag provides position-aware diagnostics for the rewrite pass.
//
// Diagnostics are collected with add-and-continue semantics: an anomaly in
// one action never aborts processing of the rest of the batch.
package diag

import (
	"fmt"
	"strings"

	"github.com/osoco/staleguard/core/ast"
)

// Severity classifies a diagnostic
type Severity int

const (
	// Warning reports something suspicious that does not change the outcome
	Warning Severity = iota
	// Error reports input the tool cannot process
	Error
	// Internal reports a shape that should be unreachable given well-formed
	// input. It exists as a defensive check, not a user-facing error path.
	Internal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Internal:
		return "internal error"
	default:
		return "diagnostic"
	}
}

// Diagnostic represents a single reported finding tied to a source position
type Diagnostic struct {
	Severity    Severity
	Message     string
	Pos         ast.Position
	Input       string   // Source text, when available, for snippet rendering
	Suggestions []string // Possible fixes
}

// Error returns the formatted message with location and code snippet
func (d Diagnostic) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", d.Severity, d.Message))
	if snippet := d.createCodeSnippet(); snippet != "" {
		sb.WriteString("\n")
		sb.WriteString(snippet)
	}
	for _, s := range d.Suggestions {
		sb.WriteString(fmt.Sprintf("\n  hint: %s", s))
	}
	return sb.String()
}

// createCodeSnippet renders the offending line with a caret pointer
func (d Diagnostic) createCodeSnippet() string {
	if d.Input == "" || d.Pos.Line == 0 {
		return ""
	}

	lines := strings.Split(d.Input, "\n")
	if d.Pos.Line > len(lines) {
		return ""
	}

	lineContent := lines[d.Pos.Line-1]

	var snippet strings.Builder
	snippet.WriteString(fmt.Sprintf("  --> %d:%d\n", d.Pos.Line, d.Pos.Column))
	snippet.WriteString("   |\n")
	snippet.WriteString(fmt.Sprintf("%2d | %s\n", d.Pos.Line, lineContent))
	snippet.WriteString("   | ")
	if d.Pos.Column > 0 && d.Pos.Column <= len(lineContent)+1 {
		snippet.WriteString(strings.Repeat(" ", d.Pos.Column-1) + "^")
	}

	return snippet.String()
}

// Collector accumulates diagnostics across a run
type Collector struct {
	diags []Diagnostic
}

// NewCollector creates an empty diagnostics collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add records a diagnostic and continues
func (c *Collector) Add(d Diagnostic) {
	c.diags = append(c.diags, d)
}

// Warningf records a warning-severity diagnostic
func (c *Collector) Warningf(pos ast.Position, format string, args ...interface{}) {
	c.Add(Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Pos: pos})
}

// Errorf records an error-severity diagnostic
func (c *Collector) Errorf(pos ast.Position, format string, args ...interface{}) {
	c.Add(Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), Pos: pos})
}

// Internalf records an internal-severity diagnostic
func (c *Collector) Internalf(pos ast.Position, format string, args ...interface{}) {
	c.Add(Diagnostic{Severity: Internal, Message: fmt.Sprintf(format, args...), Pos: pos})
}

// All returns the collected diagnostics in the order they were added
func (c *Collector) All() []Diagnostic {
	return c.diags
}

// HasErrors reports whether any Error or Internal diagnostic was collected
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == Error || d.Severity == Internal {
			return true
		}
	}
	return false
}

// Len returns the number of collected diagnostics
func (c *Collector) Len() int {
	return len(c.diags)
}
