package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"reserveguard/internal/analysis"
	"reserveguard/internal/ir"
)

var log = commonlog.GetLogger("reserveguard.benchmark")

type CaseResult struct {
	Name     string        `json:"name"`
	Model    string        `json:"model"`
	Outcomes []Outcome     `json:"outcomes"`
	Stats    Stats         `json:"stats"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Summary is the outcome of a benchmark run. Cases keep dataset order.
type Summary struct {
	Cases    []CaseResult  `json:"cases"`
	Stats    Stats         `json:"stats"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Run analyzes every case of ds with engine and scores it against its labels.
// A case whose model cannot be loaded is recorded as failed and does not
// contribute to the totals.
func Run(ctx context.Context, engine *analysis.Engine, ds *Dataset, concurrency int) (*Summary, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	start := time.Now()
	results := make([]CaseResult, len(ds.Cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range ds.Cases {
		i, c := i, c
		g.Go(func() error {
			res, err := runCase(gctx, engine, c)
			if err != nil && gctx.Err() != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("benchmark interrupted: %w", err)
	}

	summary := &Summary{Cases: results, Duration: time.Since(start)}
	for _, r := range results {
		if r.Error != "" {
			summary.Failed++
			continue
		}
		summary.Stats.Add(r.Stats)
	}
	log.Infof("benchmark: %d cases, TP=%d TN=%d FP=%d FN=%d",
		len(results), summary.Stats.TP, summary.Stats.TN, summary.Stats.FP, summary.Stats.FN)
	return summary, nil
}

func runCase(ctx context.Context, engine *analysis.Engine, c Case) (CaseResult, error) {
	start := time.Now()
	res := CaseResult{Name: c.Name, Model: c.Model}

	contracts, err := ir.LoadModel(c.Model)
	if err != nil {
		log.Warningf("case %s: %s", c.Name, err)
		res.Error = err.Error()
		return res, nil
	}
	out, err := engine.Analyze(ctx, contracts)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	res.Outcomes, res.Stats = Evaluate(c.Expect, out.Findings.Findings())
	res.Duration = time.Since(start)
	return res, nil
}
