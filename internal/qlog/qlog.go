// Package qlog is qscope's injected logging sink, spec.md §5 ("No global
// mutable state. Logging and metrics sinks are injected."). Grounded on
// the teacher's cmd/ailang/main.go, which has no logging library and
// instead writes severity-tinted lines to stderr via fatih/color; qscope
// generalizes that into a small injectable interface instead of bare
// package-level color vars, since an analyzer library (unlike a CLI
// main package) cannot own global state.
package qlog

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Logger is the sink the static-analysis pipeline writes progress and
// warnings to. Analysis never logs errors that are also returned — those
// go through qerrors.Report — Logger is for cooperative-cancellation and
// solver-timeout progress notes (spec.md §5).
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Std is the default Logger, writing to a configurable writer with
// fatih/color severity prefixes, matching the coloring scheme of the
// teacher's main.go (green/yellow/red/cyan SprintFuncs). Every Std tags its
// lines with a short run ID so that log lines from concurrent qscope
// invocations (e.g. a CI job fanning out across questionnaires) can be
// told apart in aggregated output.
type Std struct {
	Out   io.Writer
	RunID string

	info  func(a ...any) string
	warn  func(a ...any) string
	error func(a ...any) string
}

// NewStd creates a Std logger writing to out (os.Stderr if nil), tagged
// with a freshly generated run ID.
func NewStd(out io.Writer) *Std {
	if out == nil {
		out = os.Stderr
	}
	return &Std{
		Out:   out,
		RunID: uuid.NewString()[:8],
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		error: color.New(color.FgRed, color.Bold).SprintFunc(),
	}
}

func (s *Std) Infof(format string, args ...any) {
	fmt.Fprintf(s.Out, "%s %s %s\n", s.info("info:"), s.tag(), fmt.Sprintf(format, args...))
}

func (s *Std) Warnf(format string, args ...any) {
	fmt.Fprintf(s.Out, "%s %s %s\n", s.warn("warn:"), s.tag(), fmt.Sprintf(format, args...))
}

func (s *Std) Errorf(format string, args ...any) {
	fmt.Fprintf(s.Out, "%s %s %s\n", s.error("error:"), s.tag(), fmt.Sprintf(format, args...))
}

func (s *Std) tag() string {
	return "[" + s.RunID + "]"
}

// Nop discards everything; used by tests and by library callers that don't
// want terminal output.
type Nop struct{}

func (Nop) Infof(string, ...any)  {}
func (Nop) Warnf(string, ...any)  {}
func (Nop) Errorf(string, ...any) {}
