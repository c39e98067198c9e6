// Package diag collects the human-readable problems reported while
// compiling a source unit.
package diag

import (
	"fmt"
	"strings"

	"github.com/quailc/quail/token"
)

// Stage names the pipeline step that found a problem.
type Stage string

const (
	Parse    Stage = "parse"
	Semantic Stage = "semantic"
)

type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one reported problem. Token is the index of the offending
// token in the stream, or -1 when the problem was found after parsing.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Pos      token.Pos
	Token    int
	Msg      string
}

func (d Diagnostic) String() string {
	loc := "?"
	if d.Pos.IsValid() {
		loc = d.Pos.String()
	}
	return fmt.Sprintf("%s: %s %s: %s", loc, d.Stage, d.Severity, d.Msg)
}

// List is an ordered collection of diagnostics. The zero value is ready
// to use.
type List struct {
	items []Diagnostic
}

func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
}

// Errorf records an error at pos.
func (l *List) Errorf(stage Stage, pos token.Pos, tokIndex int, format string, args ...any) {
	l.Add(Diagnostic{Stage: stage, Severity: Error, Pos: pos, Token: tokIndex, Msg: fmt.Sprintf(format, args...)})
}

// Warnf records a warning at pos.
func (l *List) Warnf(stage Stage, pos token.Pos, tokIndex int, format string, args ...any) {
	l.Add(Diagnostic{Stage: stage, Severity: Warning, Pos: pos, Token: tokIndex, Msg: fmt.Sprintf(format, args...)})
}

// Append adds every diagnostic of other, in order.
func (l *List) Append(other *List) {
	if other == nil {
		return
	}
	l.items = append(l.items, other.items...)
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Items returns the diagnostics in report order.
func (l *List) Items() []Diagnostic {
	if l == nil {
		return nil
	}
	return l.items
}

// HasErrors reports whether any diagnostic has Error severity.
func (l *List) HasErrors() bool {
	for _, d := range l.Items() {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Errors returns the error-severity diagnostics.
func (l *List) Errors() []Diagnostic {
	return l.filter(Error)
}

// Warnings returns the warning-severity diagnostics.
func (l *List) Warnings() []Diagnostic {
	return l.filter(Warning)
}

func (l *List) filter(s Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.Items() {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// String renders one diagnostic per line.
func (l *List) String() string {
	var b strings.Builder
	for _, d := range l.Items() {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}
