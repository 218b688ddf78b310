package report

import (
	"sort"
	"time"

	"reserveguard/internal/analysis"
)

// Report is the serializable summary of one scan
type Report struct {
	RunID     string
	Rules     string
	Sources   []string
	ScanTime  time.Time
	Duration  time.Duration
	Contracts int
	Functions int
	Sites     int

	Findings             []*analysis.Finding
	Errors               []string
	Skipped              map[string]int
	SeverityDistribution map[analysis.Severity]int
}

// NewReport captures an analysis result
func NewReport(runID string, sources []string, rules string, res *analysis.Result) *Report {
	r := &Report{
		RunID:                runID,
		Rules:                rules,
		Sources:              sources,
		ScanTime:             time.Now(),
		Contracts:            res.Contracts,
		Functions:            res.Functions,
		Sites:                res.Sites,
		Findings:             res.Findings.Findings(),
		Skipped:              res.Skipped,
		SeverityDistribution: res.Findings.CountBySeverity(),
	}
	for _, err := range res.Errors {
		r.Errors = append(r.Errors, err.Error())
	}
	return r
}

// Vulnerable counts VULNERABLE findings
func (r *Report) Vulnerable() int {
	n := 0
	for _, f := range r.Findings {
		if f.Classification == analysis.Vulnerable {
			n++
		}
	}
	return n
}

var severityOrder = []analysis.Severity{analysis.Critical, analysis.High, analysis.Info}

// severities returns the distribution keys in a fixed order
func (r *Report) severities() []analysis.Severity {
	var out []analysis.Severity
	for _, s := range severityOrder {
		if r.SeverityDistribution[s] > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (r *Report) skipReasons() []string {
	reasons := make([]string, 0, len(r.Skipped))
	for reason := range r.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
