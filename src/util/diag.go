// Package util provides small cross-cutting facilities shared by every compiler stage:
// positioned diagnostics, source/TAC I/O, and the structured logger.
package util

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Position identifies a single point in source: a 1-indexed line and column.
type Position struct {
	Line int
	Col  int
}

// String returns a print friendly "line:col" representation of p.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Diagnostic is a single positioned compiler message. It implements error so that
// stages may return the first diagnostic of a region directly where that is convenient,
// while the Reporter accumulates every diagnostic raised during a region.
type Diagnostic struct {
	Section string
	Message string
	At      *Position // nil if the diagnostic has no associated source range.
}

// Error implements the error interface for Diagnostic.
func (d *Diagnostic) Error() string {
	sb := strings.Builder{}
	if d.Section != "" {
		sb.WriteString("[")
		sb.WriteString(d.Section)
		sb.WriteString("] ")
	}
	sb.WriteString(d.Message)
	if d.At != nil {
		sb.WriteString(" at ")
		sb.WriteString(d.At.String())
	}
	return sb.String()
}

// Reporter collects positioned diagnostics raised while walking the AST or IR.
// Reports are non-fatal: a stage keeps reporting every diagnostic it finds so the
// user sees everything wrong with a single stage rather than one error at a time.
// Checkpoint is the barrier the driver uses between stages: the pipeline only
// advances past a stage whose checkpoint region added zero diagnostics.
//
// Grounded on the teacher's util/perror.go (a buffered error collector with Len/Flush)
// and the original source's bx/reporter.py (section labels + checkpoint barrier). The
// teacher's version is goroutine/channel based to support its parallel validation
// workers; spec.md mandates a single-threaded compiler, so this is the same shape
// without the channel plumbing.
type Reporter struct {
	section string
	diags   []*Diagnostic
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Section sets the label attached to subsequently reported diagnostics, returning
// a func that restores the previous label, for callers to defer (mirrors a lexical scope).
func (r *Reporter) Section(name string) (restore func()) {
	prev := r.section
	r.section = name
	return func() { r.section = prev }
}

// Report appends a diagnostic with an optional position.
func (r *Reporter) Report(msg string, at *Position) {
	r.diags = append(r.diags, &Diagnostic{Section: r.section, Message: msg, At: at})
}

// Reportf appends a formatted diagnostic with an optional position.
func (r *Reporter) Reportf(at *Position, format string, args ...interface{}) {
	r.Report(fmt.Sprintf(format, args...), at)
}

// Len returns the number of diagnostics accumulated so far.
func (r *Reporter) Len() int {
	return len(r.diags)
}

// All returns every diagnostic reported so far, in report order.
func (r *Reporter) All() []*Diagnostic {
	return r.diags
}

// Checkpoint marks a stage boundary: it returns a handle whose Ok() reports
// whether any diagnostic was added since the checkpoint was taken. Parse takes
// a Checkpoint on entry and returns Ok() as its success flag; the driver in
// main.go gates the later stages on Reporter.Len() instead.
type Checkpoint struct {
	r      *Reporter
	before int
}

// Checkpoint begins a new checkpoint region.
func (r *Reporter) Checkpoint() *Checkpoint {
	return &Checkpoint{r: r, before: len(r.diags)}
}

// Ok reports whether no diagnostics were added in this checkpoint's region.
func (c *Checkpoint) Ok() bool {
	return len(c.r.diags) == c.before
}

// Added returns the diagnostics reported since the checkpoint was taken.
func (c *Checkpoint) Added() []*Diagnostic {
	return c.r.diags[c.before:]
}
