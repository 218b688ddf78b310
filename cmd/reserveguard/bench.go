// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"reserveguard/internal/analysis"
	"reserveguard/internal/benchmark"
)

func runBench(args []string) int {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	rulesPath := fs.String("rules", "", "rule set file; default rules when empty")
	concurrency := fs.Int("concurrency", 1, "cases analyzed in parallel")
	jsonOut := fs.Bool("json", false, "print the summary as JSON")
	verbose := fs.Int("v", 0, "log verbosity (0-2)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: reserveguard bench [flags] <dataset.yaml>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitError
	}
	configureLogging(*verbose)

	rs, _, err := loadRules(*rulesPath, 0)
	if err != nil {
		return fail("%v", err)
	}
	engine, err := analysis.New(rs)
	if err != nil {
		return fail("%v", err)
	}
	ds, err := benchmark.LoadDataset(fs.Arg(0))
	if err != nil {
		return fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := benchmark.Run(ctx, engine, ds, *concurrency)
	if err != nil {
		return fail("%v", err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fail("%v", err)
		}
		return exitOK
	}

	for _, c := range summary.Cases {
		if c.Error != "" {
			fmt.Printf("%s %s: %s\n", color.RedString("FAIL"), c.Name, c.Error)
			continue
		}
		for _, o := range c.Outcomes {
			if o.Verdict == benchmark.FalsePositive || o.Verdict == benchmark.FalseNegative {
				fmt.Printf("%s %s %s\n", color.YellowString(string(o.Verdict)), c.Name, o.Label)
			}
		}
	}

	s := summary.Stats
	fmt.Println("\nMetric          | Count")
	fmt.Println("----------------|-------")
	fmt.Printf("True Positives  | %-5d\n", s.TP)
	fmt.Printf("True Negatives  | %-5d\n", s.TN)
	fmt.Printf("False Positives | %-5d\n", s.FP)
	fmt.Printf("False Negatives | %-5d\n", s.FN)
	fmt.Println("----------------|-------")
	fmt.Printf("Accuracy        | %.2f%%\n", s.Accuracy()*100)
	fmt.Printf("Precision       | %.2f%%\n", s.Precision()*100)
	fmt.Printf("Recall          | %.2f%%\n", s.Recall()*100)
	fmt.Printf("F1              | %.3f\n", s.F1())
	fmt.Printf("\n%d case(s), %d failed, %s\n", len(summary.Cases), summary.Failed, formatDuration(summary.Duration))

	if summary.Failed > 0 {
		return exitError
	}
	return exitOK
}
