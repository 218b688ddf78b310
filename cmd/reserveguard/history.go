// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"reserveguard/internal/store"
)

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	dbPath := fs.String("db", "reserveguard.db", "SQLite history database")
	limit := fs.Int("n", 10, "number of runs to list")
	runID := fs.String("run", "", "print the findings of one run")
	diff := fs.String("diff", "", "compare two runs, given as <old>,<new>")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: reserveguard history [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	configureLogging(0)

	db, err := store.Open(*dbPath)
	if err != nil {
		return fail("%v", err)
	}
	defer func() { _ = db.Close() }()

	switch {
	case *diff != "":
		ids := strings.Split(*diff, ",")
		if len(ids) != 2 {
			return fail("-diff expects <old>,<new>")
		}
		d, err := db.Diff(strings.TrimSpace(ids[0]), strings.TrimSpace(ids[1]))
		if err != nil {
			return fail("%v", err)
		}
		for _, f := range d.Introduced {
			fmt.Printf("%s %s.%s:%d %s\n", color.RedString("+"), f.Contract, f.Function, f.Line, f.Call)
		}
		for _, f := range d.Resolved {
			fmt.Printf("%s %s.%s:%d %s\n", color.GreenString("-"), f.Contract, f.Function, f.Line, f.Call)
		}
		fmt.Printf("%d introduced, %d resolved\n", len(d.Introduced), len(d.Resolved))

	case *runID != "":
		run, err := db.Run(*runID)
		if err != nil {
			return fail("%v", err)
		}
		fmt.Printf("run %s at %s (%s)\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.Sources)
		for _, f := range run.Findings {
			fmt.Printf("  %-10s %-8s %s.%s:%d %s\n", f.Classification, f.Severity, f.Contract, f.Function, f.Line, f.Evidence)
		}

	default:
		runs, err := db.Runs(*limit)
		if err != nil {
			return fail("%v", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tFUNCTIONS\tSITES\tVULNERABLE\tSOURCES")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), formatDuration(r.Duration()),
				r.Functions, r.Sites, r.Vulnerable, r.Sources)
		}
		_ = w.Flush()
	}
	return exitOK
}
