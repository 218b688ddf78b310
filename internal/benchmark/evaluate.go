package benchmark

import (
	"reserveguard/internal/analysis"
)

type Verdict string

const (
	TruePositive  Verdict = "TP"
	TrueNegative  Verdict = "TN"
	FalsePositive Verdict = "FP"
	FalseNegative Verdict = "FN"
)

// Outcome is the verdict for one label, or for a VULNERABLE finding no label covers
type Outcome struct {
	Label     Label    `json:"label"`
	Verdict   Verdict  `json:"verdict"`
	Findings  []string `json:"findings,omitempty"`
	Unlabeled bool     `json:"unlabeled,omitempty"`
}

type Stats struct {
	TP int `json:"tp"`
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

func (s *Stats) record(v Verdict) {
	switch v {
	case TruePositive:
		s.TP++
	case TrueNegative:
		s.TN++
	case FalsePositive:
		s.FP++
	case FalseNegative:
		s.FN++
	}
}

func (s *Stats) Add(o Stats) {
	s.TP += o.TP
	s.TN += o.TN
	s.FP += o.FP
	s.FN += o.FN
}

func (s Stats) Total() int {
	return s.TP + s.TN + s.FP + s.FN
}

// Precision returns TP/(TP+FP), or 0 when nothing was predicted
func (s Stats) Precision() float64 {
	if s.TP+s.FP == 0 {
		return 0
	}
	return float64(s.TP) / float64(s.TP+s.FP)
}

// Recall returns TP/(TP+FN), or 0 when nothing was expected
func (s Stats) Recall() float64 {
	if s.TP+s.FN == 0 {
		return 0
	}
	return float64(s.TP) / float64(s.TP+s.FN)
}

func (s Stats) F1() float64 {
	p, r := s.Precision(), s.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func (s Stats) Accuracy() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.TP+s.TN) / float64(s.Total())
}

func (l Label) matches(f *analysis.Finding) bool {
	if l.Contract != f.Contract || l.Function != f.Function {
		return false
	}
	return l.Line == 0 || l.Line == f.Line
}

// Evaluate scores findings against labels. A label is predicted vulnerable
// when any VULNERABLE finding matches it. VULNERABLE findings that match no
// label count as false positives.
func Evaluate(labels []Label, findings []*analysis.Finding) ([]Outcome, Stats) {
	var (
		outcomes []Outcome
		stats    Stats
		covered  = make(map[*analysis.Finding]bool)
	)

	for _, l := range labels {
		o := Outcome{Label: l}
		for _, f := range findings {
			if !l.matches(f) {
				continue
			}
			covered[f] = true
			if f.Classification == analysis.Vulnerable {
				o.Findings = append(o.Findings, f.Location())
			}
		}
		predicted := len(o.Findings) > 0
		switch {
		case l.Vulnerable && predicted:
			o.Verdict = TruePositive
		case l.Vulnerable:
			o.Verdict = FalseNegative
		case predicted:
			o.Verdict = FalsePositive
		default:
			o.Verdict = TrueNegative
		}
		stats.record(o.Verdict)
		outcomes = append(outcomes, o)
	}

	for _, f := range findings {
		if covered[f] || f.Classification != analysis.Vulnerable {
			continue
		}
		o := Outcome{
			Label:     Label{Contract: f.Contract, Function: f.Function, Line: f.Line},
			Verdict:   FalsePositive,
			Findings:  []string{f.Location()},
			Unlabeled: true,
		}
		stats.record(o.Verdict)
		outcomes = append(outcomes, o)
	}
	return outcomes, stats
}
