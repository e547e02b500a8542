package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter renders analysis errors with source context, Rust-style.
type Reporter struct {
	filename string
	lines    []string
}

func NewReporter(filename, source string) *Reporter {
	return &Reporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// Format renders one error: a colored header, the offending line with a
// caret marker, and any notes and help text.
func (r *Reporter) Format(err AnalysisError) string {
	var result strings.Builder

	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	// Header: error[A0001]: message
	result.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor("error"), err.Code, err.Message))

	width := lineNumberWidth(err.Position.Line)
	indent := strings.Repeat(" ", width)

	// Location line: --> filename:line:column
	result.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n",
		indent, dim("-->"), r.filename, err.Position.Line, err.Position.Column))
	result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("|")))

	if err.Position.Line > 0 && err.Position.Line <= len(r.lines) {
		line := r.lines[err.Position.Line-1]
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			bold(fmt.Sprintf("%*d", width, err.Position.Line)), dim("|"), line))
		result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("|"), r.marker(err)))
	}

	noteColor := color.New(color.FgBlue).SprintFunc()
	for _, note := range err.Notes {
		result.WriteString(fmt.Sprintf("%s %s %s %s\n", indent, dim("|"), noteColor("note:"), note))
	}

	if err.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		result.WriteString(fmt.Sprintf("%s %s %s %s\n", indent, dim("|"), helpColor("help:"), err.HelpText))
	}

	result.WriteString("\n")
	return result.String()
}

func (r *Reporter) marker(err AnalysisError) string {
	length := err.Length
	if length <= 0 {
		length = 1
	}
	spaces := strings.Repeat(" ", maxOf(0, err.Position.Column-1))
	markerColor := color.New(color.FgRed, color.Bold).SprintFunc()
	return spaces + markerColor(strings.Repeat("^", length))
}

func lineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3
	}
	return width
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
