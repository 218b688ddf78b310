// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"reserveguard/internal/analysis"
	"reserveguard/internal/ir"
	"reserveguard/internal/observability"
	"reserveguard/internal/report"
	"reserveguard/internal/store"
)

type scanConfig struct {
	rules       string
	workers     int
	format      string
	outDir      string
	json        bool
	database    string
	metrics     string
	showSafe    bool
	verbose     int
	failOnFound bool
}

func runScan(args []string) int {
	var cfg scanConfig
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.StringVar(&cfg.rules, "rules", "", "rule set file (.yaml, .yml or .toml); default rules when empty")
	fs.IntVar(&cfg.workers, "workers", 0, "functions analyzed in parallel (overrides the rule set)")
	fs.StringVar(&cfg.format, "format", "md", "report file format: json or md")
	fs.StringVar(&cfg.outDir, "out", "", "directory to write the report file to")
	fs.BoolVar(&cfg.json, "json", false, "print findings as JSON instead of the console report")
	fs.StringVar(&cfg.database, "db", "", "SQLite history database to record the run in")
	fs.StringVar(&cfg.metrics, "metrics", "", "write Prometheus metrics to this textfile")
	fs.BoolVar(&cfg.showSafe, "safe", false, "also print transfers bounded by a reserve check")
	fs.IntVar(&cfg.verbose, "v", 0, "log verbosity (0-2)")
	fs.BoolVar(&cfg.failOnFound, "fail", true, "exit with status 1 when vulnerable transfers are found")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: reserveguard scan [flags] <file.rg>...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitError
	}
	configureLogging(cfg.verbose)

	rs, rulesName, err := loadRules(cfg.rules, cfg.workers)
	if err != nil {
		return fail("%v", err)
	}
	engine, err := analysis.New(rs)
	if err != nil {
		return fail("%v", err)
	}

	startTime := time.Now()
	console := report.NewConsole(os.Stdout)
	console.ShowSafe = cfg.showSafe
	stderrConsole := report.NewConsole(os.Stderr)

	var contracts []*ir.Contract
	parseFailed := false
	for _, path := range fs.Args() {
		source, err := os.ReadFile(path)
		if err != nil {
			return fail("failed to read file: %v", err)
		}
		cs, err := ir.ParseModel(path, string(source))
		if err != nil {
			stderrConsole.ParseError(path, string(source), err)
			parseFailed = true
			continue
		}
		console.AddSource(path, string(source), cs)
		contracts = append(contracts, cs...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := engine.Analyze(ctx, contracts)
	if err != nil {
		return fail("%v", err)
	}
	elapsed := time.Since(startTime)

	r := report.NewReport(store.NewRunID(), fs.Args(), rulesName, res)
	r.Duration = elapsed

	if cfg.json {
		if err := report.WriteJSON(os.Stdout, r.Findings); err != nil {
			return fail("%v", err)
		}
	} else {
		console.Findings(r.Findings)
		console.Errors(res.Errors)
		console.Summary(res)
	}

	if cfg.outDir != "" {
		gen, err := report.GeneratorFor(cfg.format)
		if err != nil {
			return fail("%v", err)
		}
		path, err := report.NewReporter(gen, report.NewFileStorage(cfg.outDir)).GenerateAndSave(r)
		if err != nil {
			return fail("%v", err)
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", path)
	}

	if cfg.database != "" {
		db, err := store.Open(cfg.database)
		if err != nil {
			return fail("%v", err)
		}
		_, err = db.SaveRun(r)
		_ = db.Close()
		if err != nil {
			return fail("%v", err)
		}
		fmt.Fprintf(os.Stderr, "run %s recorded in %s\n", r.RunID, cfg.database)
	}

	if cfg.metrics != "" {
		m := observability.NewMetrics()
		m.ObserveRun(res, elapsed)
		if err := m.WriteTextfile(cfg.metrics); err != nil {
			return fail("%v", err)
		}
	}

	if !cfg.json {
		fmt.Fprintln(os.Stderr, color.HiBlackString("scanned %d file(s) in %s", fs.NArg(), formatDuration(elapsed)))
	}

	switch {
	case parseFailed:
		return exitError
	case cfg.failOnFound && r.Vulnerable() > 0:
		return exitFindings
	}
	return exitOK
}
