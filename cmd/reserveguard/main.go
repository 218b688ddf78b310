// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"reserveguard/internal/rules"
)

const usage = `Usage: reserveguard <command> [flags] [args]

Commands:
  scan     analyze .rg contract models for unguarded transfers
  bench    score the analyzer against a labeled dataset
  history  list stored scans and compare two of them
  rules    print or check a rule set

Run 'reserveguard <command> -h' for command flags.
`

// exit codes
const (
	exitOK       = 0
	exitFindings = 1
	exitError    = 2
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(exitError)
	}

	var code int
	switch os.Args[1] {
	case "scan":
		code = runScan(os.Args[2:])
	case "bench":
		code = runBench(os.Args[2:])
	case "history":
		code = runHistory(os.Args[2:])
	case "rules":
		code = runRules(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		code = exitError
	}
	os.Exit(code)
}

func configureLogging(verbose int) {
	commonlog.Configure(verbose, nil)
}

// loadRules returns the rule set at path, or the embedded default
func loadRules(path string, workers int) (*rules.RuleSet, string, error) {
	rs, name := rules.Default(), "default"
	if path != "" {
		var err error
		if rs, err = rules.Load(path); err != nil {
			return nil, "", err
		}
		name = path
	}
	if workers > 0 {
		rs.Workers = workers
	}
	return rs, name, nil
}

func fail(format string, args ...any) int {
	fmt.Fprintln(os.Stderr, color.RedString("error: "+format, args...))
	return exitError
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
