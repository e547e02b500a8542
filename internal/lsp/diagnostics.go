package lsp

import (
	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"sable/internal/analysis"
	"sable/internal/ast"
	"sable/internal/errors"
)

const diagnosticSource = "sable"

// ConvertReport turns the reachable abstract faults of a report into LSP
// diagnostics.
func ConvertReport(report *analysis.Report) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(report.Errors))
	for _, err := range report.Errors {
		diagnostics = append(diagnostics, convertError(err))
	}
	return diagnostics
}

// ConvertSyntaxError turns a parse or compile failure into a single
// diagnostic at the offending position.
func ConvertSyntaxError(err error) []protocol.Diagnostic {
	switch e := err.(type) {
	case participle.Error:
		pos := e.Position()
		return []protocol.Diagnostic{makeDiagnostic(
			errors.ErrorParse, e.Message(),
			pos.Line, pos.Column, 1,
		)}
	case *ast.CompileError:
		return []protocol.Diagnostic{makeDiagnostic(
			errors.ErrorMalformedForm, e.Message,
			e.Position.Line, e.Position.Column, 1,
		)}
	}
	return []protocol.Diagnostic{makeDiagnostic(errors.ErrorParse, err.Error(), 1, 1, 1)}
}

func convertError(err errors.AnalysisError) protocol.Diagnostic {
	length := err.Length
	if length <= 0 {
		length = 1
	}
	message := err.Message
	for _, note := range err.Notes {
		message += "\nnote: " + note
	}
	if err.HelpText != "" {
		message += "\nhelp: " + err.HelpText
	}
	d := makeDiagnostic(err.Code, message, err.Position.Line, err.Position.Column, length)
	return d
}

func makeDiagnostic(code, message string, line, column, length int) protocol.Diagnostic {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}
	severity := protocol.DiagnosticSeverityError
	source := diagnosticSource
	codeValue := protocol.IntegerOrString{Value: code}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line - 1), Character: uint32(column - 1)},
			End:   protocol.Position{Line: uint32(line - 1), Character: uint32(column - 1 + length)},
		},
		Severity: &severity,
		Code:     &codeValue,
		Source:   &source,
		Message:  message,
	}
}
