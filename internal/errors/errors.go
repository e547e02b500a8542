package errors

import (
	"fmt"

	"sable/internal/ast"
)

// AnalysisError is a structured, positioned fault with optional notes and
// help text, shaped for the caret reporter and for LSP diagnostics.
type AnalysisError struct {
	Code     string
	Message  string
	Position ast.Position
	Length   int // length of the problematic region, 0 means one column
	Notes    []string
	HelpText string
}

func (e AnalysisError) Error() string {
	return fmt.Sprintf("%s: [%s] %s", e.Position, e.Code, e.Message)
}

// Builder assembles an AnalysisError fluently.
type Builder struct {
	err AnalysisError
}

func New(code, message string, pos ast.Position) *Builder {
	return &Builder{err: AnalysisError{Code: code, Message: message, Position: pos}}
}

func (b *Builder) WithNote(note string) *Builder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *Builder) WithHelp(help string) *Builder {
	b.err.HelpText = help
	return b
}

func (b *Builder) WithLength(n int) *Builder {
	b.err.Length = n
	return b
}

func (b *Builder) Build() AnalysisError {
	return b.err
}
