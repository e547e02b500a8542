// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"sable/internal/analysis"
	"sable/internal/ast"
	"sable/internal/errors"
	"sable/internal/fixpoint"
)

func main() {
	var (
		kDepth        = flag.Int("k", 1, "context sensitivity depth of the timestamps")
		intBound      = flag.Int("ibound", 1, "widening cardinality of the number domain")
		timeout       = flag.Duration("timeout", 0, "exploration timeout, 0 means unbounded")
		graphOut      = flag.String("graph", "", "write the transition graph to this DOT file")
		order         = flag.String("order", "lifo", "worklist order: lifo or fifo")
		noSubsumption = flag.Bool("no-subsumption", false, "disable subsumption pruning")
		noGC          = flag.Bool("no-gc", false, "disable continuation store reclamation")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: sable-cli [flags] <file.scm>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("Failed to read file: %s", err)
		os.Exit(1)
	}

	analyzer := analysis.NewAnalyzer()
	analyzer.K = *kDepth
	analyzer.IntBound = *intBound
	analyzer.Timeout = *timeout
	analyzer.Graph = *graphOut != ""
	analyzer.Subsumption = !*noSubsumption
	analyzer.CollectKonts = !*noGC
	switch strings.ToLower(*order) {
	case "lifo":
		analyzer.Order = fixpoint.LIFO
	case "fifo":
		analyzer.Order = fixpoint.FIFO
	default:
		color.Red("Unknown worklist order: %s", *order)
		os.Exit(1)
	}

	report, err := analyzer.AnalyzeSource(path, string(source))
	if err != nil {
		reportSyntaxError(string(source), err)
		os.Exit(1)
	}

	printReport(path, string(source), report)

	if *graphOut != "" {
		f, err := os.Create(*graphOut)
		if err != nil {
			color.Red("Failed to write graph: %s", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := report.Graph.WriteDOT(f); err != nil {
			color.Red("Failed to write graph: %s", err)
			os.Exit(1)
		}
		fmt.Printf("Transition graph written to %s (%d states, %d transitions)\n",
			*graphOut, report.Graph.NumNodes(), report.Graph.NumEdges())
	}

	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}

func printReport(path, source string, report *analysis.Report) {
	if len(report.FinalValues) > 0 {
		fmt.Printf("Final value: %s\n", report.FinalValue)
	} else if len(report.Errors) == 0 {
		fmt.Println("No halting value found")
	}

	if len(report.Errors) > 0 {
		reporter := errors.NewReporter(path, source)
		fmt.Printf("\n%d reachable error(s):\n\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Print(reporter.Format(e))
		}
	}

	fmt.Printf("States explored: %d in %s\n", report.States, report.Elapsed.Round(time.Microsecond))
	if report.TimedOut {
		color.Yellow("⚠ Exploration timed out; the result is a sound partial answer")
	} else if len(report.Errors) == 0 {
		color.Green("✅ No reachable errors in %s", path)
	}
}

// reportSyntaxError prints a friendly caret-style message for parse and
// compile failures.
func reportSyntaxError(src string, err error) {
	switch e := err.(type) {
	case participle.Error:
		printCaret(src, e.Position().Filename, e.Position().Line, e.Position().Column, e.Message())
	case *ast.CompileError:
		printCaret(src, e.Position.Filename, e.Position.Line, e.Position.Column, e.Message)
	default:
		color.Red("Unexpected error: %s", err)
	}
}

func printCaret(src, filename string, line, column int, message string) {
	lines := strings.Split(src, "\n")
	if line <= 0 || line > len(lines) {
		color.Red("Syntax error at unknown location: %s", message)
		return
	}

	caret := strings.Repeat(" ", column-1) + "^"

	color.Red("❌ Syntax error in %s at line %d, column %d:", filename, line, column)
	fmt.Println(lines[line-1])
	color.HiRed(caret)
	fmt.Printf("→ %s\n", message)
}
