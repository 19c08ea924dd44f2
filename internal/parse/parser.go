// Package parse defines the narrow Parser capability every shape-specific
// parser implements (design note §9): parse(stream) -> ParseOutcome.
// Parsers never know about the Stager or the Store.
package parse

import "github.com/oilfield/sgmfm/internal/domain"

// ParseOutcome is what every parser returns: the typed records it managed
// to extract, plus non-fatal warnings and errors that never abort sibling
// records (spec §4.B, §7).
type ParseOutcome struct {
	Records  []domain.ParserRecord
	Warnings []string
	Errors   []string
	Success  bool
}

// AddWarning appends a record-level warning without failing the outcome.
func (o *ParseOutcome) AddWarning(msg string) {
	o.Warnings = append(o.Warnings, msg)
}

// AddError appends a record-level error without failing the outcome; use
// Fail for the rare structural failure that voids the whole file.
func (o *ParseOutcome) AddError(msg string) {
	o.Errors = append(o.Errors, msg)
}

// Fail marks the outcome as a structural parse failure (spec §7: "missing
// anchor, unreadable header — file marked FAILED, batch continues").
func (o *ParseOutcome) Fail(msg string) {
	o.Errors = append(o.Errors, msg)
	o.Success = false
}

// Parser turns file bytes into a ParseOutcome. filename is supplied for
// diagnostics and filename-derived hints only; the file itself arrives as
// content.
type Parser interface {
	Parse(filename string, content []byte) ParseOutcome
}
