// Package repl SPDX-License-Identifier: Apache-2.0
package repl

import (
	"bufio"
	"fmt"
	"io"

	"sable/internal/analysis"
)

const PROMPT = ">> "

// Start reads expressions line by line, analyzes each one and prints the
// abstract value it may halt with.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	analyzer := analysis.NewAnalyzer()

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			return
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		report, err := analyzer.AnalyzeSource("repl", line)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}

		if len(report.FinalValues) > 0 {
			fmt.Fprintf(out, "%s\n", report.FinalValue)
		}
		for _, e := range report.Errors {
			fmt.Fprintf(out, "error[%s]: %s\n", e.Code, e.Message)
		}
		if len(report.FinalValues) == 0 && len(report.Errors) == 0 {
			fmt.Fprintln(out, "no halting value")
		}
	}
}
