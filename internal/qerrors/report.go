// Package qerrors is qscope's structured error taxonomy, the Go
// realization of spec.md §7. Grounded on the teacher's internal/errors
// package: a single JSON-able Report wrapped as a Go error via
// ReportError so errors.As still recovers the structured payload, plus a
// taxonomy of error codes (the teacher's TC###/LNK###/RT### families
// become the named Kinds below).
package qerrors

import (
	"encoding/json"
	"errors"
)

// Kind is one of the error kinds named in spec.md §7.
type Kind string

const (
	// Structural — abort the whole analysis.
	SchemaError          Kind = "SchemaError"
	DuplicateItemId       Kind = "DuplicateItemId"
	EmptyQuestionnaire    Kind = "EmptyQuestionnaire"
	CycleDetected         Kind = "CycleDetected"
	UnresolvedIdentifier  Kind = "UnresolvedIdentifier"
	UnsupportedExpression Kind = "UnsupportedExpression"
	EmptyDomain           Kind = "EmptyDomain"

	// Per-item — continue, attach to the item record.
	ParseError      Kind = "ParseError"
	UnknownFunction Kind = "UnknownFunction"
	UnknownIdentifier Kind = "UnknownIdentifier"
	TypeMismatch    Kind = "TypeMismatch"
	SolverUndecided Kind = "SolverUndecided"

	// Cooperative cancellation, spec.md §5.
	Cancelled Kind = "Cancelled"
)

// Report is the canonical structured error for qscope: every diagnostic
// that crosses a package boundary is a *Report, JSON-encodable for the
// report output of spec.md §6's "errors" array.
type Report struct {
	Kind    Kind   `json:"kind"`
	ItemID  string `json:"itemId,omitempty"`
	Message string `json:"message"`
	Offset  int    `json:"offset,omitempty"`
}

// ReportError wraps a Report as a Go error.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown qscope error"
	}
	if e.Rep.ItemID != "" {
		return string(e.Rep.Kind) + " (" + e.Rep.ItemID + "): " + e.Rep.Message
	}
	return string(e.Rep.Kind) + ": " + e.Rep.Message
}

// New builds a Report-backed error.
func New(kind Kind, itemID, message string, offset int) *ReportError {
	return &ReportError{Rep: &Report{Kind: kind, ItemID: itemID, Message: message, Offset: offset}}
}

// AsReport extracts the Report carried by err, if any, unwrapping through
// any number of fmt.Errorf("%w", ...) layers via errors.As.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if !errors.As(err, &re) {
		return nil, false
	}
	return re.Rep, true
}

// ToJSON renders the report deterministically.
func (r *Report) ToJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsStructural reports whether kind aborts the whole analysis (spec.md §7)
// rather than being recorded per item.
func IsStructural(kind Kind) bool {
	switch kind {
	case SchemaError, DuplicateItemId, EmptyQuestionnaire, CycleDetected,
		UnresolvedIdentifier, UnsupportedExpression, EmptyDomain:
		return true
	default:
		return false
	}
}
