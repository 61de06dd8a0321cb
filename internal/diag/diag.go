// Package diag implements the frontend's error-kind taxonomy: typed
// diagnostics carrying source position, accumulated across a run so one
// mistake never hides the rest, formatted through github.com/dekarrin/rosed
// for column-aligned, wrapped output.
package diag

import (
	"fmt"

	"github.com/dekarrin/rosed"
	"github.com/google/uuid"
)

// Kind names one of the frontend's error categories.
type Kind string

const (
	KindLex           Kind = "LexError"
	KindParse         Kind = "ParseError"
	KindUnknownEntity Kind = "UnknownEntity"
	KindMissingChild  Kind = "MissingChild"
	KindIO            Kind = "IOError"
)

// Diagnostic is a single reported problem, always attributable to a file
// and (except for IOError) a source line; a premature-EOF ParseError
// carries the line of the end of input.
type Diagnostic struct {
	Kind    Kind
	File    string
	Line    int // 1-based; 0 means "no specific line"
	Message string

	// SourceLine is the offending line's text, used only for FullMessage's
	// cursor display. Empty when not available (e.g. unexpected EOF).
	SourceLine string
	Col        int
}

func (d Diagnostic) Error() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s:%s", d.File, d.Message)
	}
	return fmt.Sprintf("%s:%d:%s", d.File, d.Line, d.Message)
}

// FullMessage renders the diagnostic with full source context:
// the offending source line, a cursor under the column, then the message,
// word-wrapped to termWidth with rosed so long messages don't run off a
// narrow terminal.
func (d Diagnostic) FullMessage(termWidth int) string {
	msg := d.Error()
	if termWidth > 0 {
		msg = rosed.Edit(msg).Wrap(termWidth).String()
	}
	if d.SourceLine == "" {
		return msg
	}
	cursor := ""
	for i := 0; i < d.Col-1; i++ {
		cursor += " "
	}
	cursor += "^"
	return d.SourceLine + "\n" + cursor + "\n" + msg
}

// Bag accumulates diagnostics across a compilation run, the way the parser
// accumulates LexError/ParseError entries so the run can continue past the
// first problem and report all of them at the end.
type Bag struct {
	RunID       uuid.UUID
	Diagnostics []Diagnostic
}

// NewBag starts a fresh diagnostic bag tagged with a random correlation id,
// which appears only in VerboseTrailer output, never in the primary
// file:line:message stderr lines.
func NewBag() *Bag {
	return &Bag{RunID: uuid.New()}
}

func (b *Bag) Add(d Diagnostic) {
	b.Diagnostics = append(b.Diagnostics, d)
}

func (b *Bag) Lex(file string, line int, message string) {
	b.Add(Diagnostic{Kind: KindLex, File: file, Line: line, Message: message})
}

func (b *Bag) Parse(file string, line int, message string) {
	b.Add(Diagnostic{Kind: KindParse, File: file, Line: line, Message: message})
}

func (b *Bag) HasErrors() bool {
	return len(b.Diagnostics) > 0
}

// Lines returns the primary single-line-per-diagnostic form:
// "<filename>:<line>:<message>".
func (b *Bag) Lines() []string {
	lines := make([]string, len(b.Diagnostics))
	for i, d := range b.Diagnostics {
		lines[i] = d.Error()
	}
	return lines
}

// VerboseTrailer returns a correlation-id footer identifying this run's
// diagnostics across aggregated logs. None of the commands prints it.
func (b *Bag) VerboseTrailer() string {
	return fmt.Sprintf("run %s: %d diagnostic(s)", b.RunID, len(b.Diagnostics))
}
