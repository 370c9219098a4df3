// Package status provides the styled status reporter used by every
// orchestration entry point. It is passed in explicitly rather than shared
// as a global so tests and concurrent callers don't race on hidden state.
package status

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

// Reporter prints start/success/fail lines for long-running operations.
type Reporter struct {
	w io.Writer
}

// New returns a reporter writing to stdout.
func New() *Reporter {
	return NewWriter(os.Stdout)
}

// NewWriter returns a reporter writing to w.
func NewWriter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Start announces the beginning of a long operation.
func (r *Reporter) Start(format string, args ...interface{}) {
	fmt.Fprintln(r.w, subtleStyle.Render("... "+fmt.Sprintf(format, args...)))
}

// Update reports progress within an operation already started.
func (r *Reporter) Update(format string, args ...interface{}) {
	fmt.Fprintln(r.w, subtleStyle.Render("    "+fmt.Sprintf(format, args...)))
}

// Success reports a completed operation.
func (r *Reporter) Success(format string, args ...interface{}) {
	fmt.Fprintln(r.w, successStyle.Render("✓ ")+fmt.Sprintf(format, args...))
}

// Fail reports a failed operation.
func (r *Reporter) Fail(format string, args ...interface{}) {
	fmt.Fprintln(r.w, errorStyle.Render("✗ ")+fmt.Sprintf(format, args...))
}

// Warn reports a non-fatal problem.
func (r *Reporter) Warn(format string, args ...interface{}) {
	fmt.Fprintln(r.w, warningStyle.Render("Warning: ")+fmt.Sprintf(format, args...))
}

// Info prints a plain informational line.
func (r *Reporter) Info(format string, args ...interface{}) {
	fmt.Fprintln(r.w, fmt.Sprintf(format, args...))
}

// Accent styles a value for emphasis inside a message (org names, URLs,
// ids).
func Accent(s string) string {
	return accentStyle.Render(s)
}
