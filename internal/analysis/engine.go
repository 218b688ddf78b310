package analysis

import (
	"context"
	"fmt"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"reserveguard/internal/errors"
	"reserveguard/internal/ir"
	"reserveguard/internal/rules"
)

var log = commonlog.GetLogger("reserveguard.analysis")

// Engine is a pure function from (functions, rule set) to findings.
// It holds no mutable state and may be shared between goroutines.
type Engine struct {
	matcher    *rules.Matcher
	locator    *Locator
	classifier *Classifier
	workers    int
}

// New compiles rs and returns an engine using it
func New(rs *rules.RuleSet) (*Engine, error) {
	m, err := rules.Compile(rs)
	if err != nil {
		return nil, err
	}
	return NewWithMatcher(m), nil
}

func NewWithMatcher(m *rules.Matcher) *Engine {
	workers := m.Rules().Workers
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		matcher:    m,
		locator:    NewLocator(m),
		classifier: NewClassifier(m),
		workers:    workers,
	}
}

// FunctionResult is the outcome of analyzing one function
type FunctionResult struct {
	Findings []*Finding
	Sites    int
	Skipped  map[string]int
}

// AnalyzeFunction classifies every transfer site of fn.
// A malformed function yields an InvalidInputError and no findings.
func (e *Engine) AnalyzeFunction(c *ir.Contract, fn *ir.Function) (*FunctionResult, error) {
	if err := fn.Validate(); err != nil {
		return nil, err
	}

	res := &FunctionResult{Skipped: make(map[string]int)}
	sites := e.locator.Locate(c, fn)
	res.Sites = len(sites)
	if len(sites) == 0 {
		return res, nil
	}

	dom := ir.Dominators(fn)
	for _, site := range sites {
		guards, reachable := dom[site.Call.Index]
		site.Unreachable = !reachable
		d := e.classifier.Classify(site, guards)
		if d.Classification == Skip {
			res.Skipped[d.Reason]++
			log.Debugf("%s: skip %s at line %d (%s)", fn.QualifiedName(), site.Signature(), site.Call.Line, d.Reason)
			continue
		}
		res.Findings = append(res.Findings, newFinding(site, d))
	}
	return res, nil
}

func newFinding(site *Site, d Decision) *Finding {
	f := &Finding{
		Function:       site.Function.Name,
		Overload:       site.Function.Signature(),
		Index:          site.Call.Index,
		Line:           site.Call.Line,
		Signature:      site.Signature(),
		Call:           site.Call.String(),
		Amount:         site.Amount.String(),
		Classification: d.Classification,
		Severity:       d.Severity,
		Evidence:       d.Evidence,
		CheckedReturn:  site.CheckedReturn,
	}
	if site.Contract != nil {
		f.Contract = site.Contract.Name
		f.Address = site.Contract.Address
	} else {
		f.Contract = site.Function.Contract
	}
	if site.Recipient != nil {
		f.Recipient = site.Recipient.String()
	}
	return f
}

// Result aggregates an analysis run
type Result struct {
	Findings  *Collection
	Errors    []error
	Contracts int
	Functions int
	Sites     int
	Skipped   map[string]int
}

type job struct {
	contract *ir.Contract
	fn       *ir.Function
}

type slot struct {
	res *FunctionResult
	err error
}

// Analyze runs the engine over every function of contracts. Functions are
// analyzed in parallel; results are merged in input order so the finding
// order never depends on scheduling. Invalid functions are reported in
// Result.Errors without affecting the others. Only cancellation of ctx
// fails the run.
func (e *Engine) Analyze(ctx context.Context, contracts []*ir.Contract) (*Result, error) {
	var jobs []job
	for _, c := range contracts {
		for _, fn := range c.Functions {
			jobs = append(jobs, job{contract: c, fn: fn})
		}
	}

	slots := make([]slot, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.AnalyzeFunction(j.contract, j.fn)
			slots[i] = slot{res: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	result := &Result{
		Findings:  NewCollection(),
		Contracts: len(contracts),
		Functions: len(jobs),
		Skipped:   make(map[string]int),
	}
	for i, s := range slots {
		if s.err != nil {
			if !errors.IsInvalidInput(s.err) {
				s.err = fmt.Errorf("%s: %w", jobs[i].fn.QualifiedName(), s.err)
			}
			log.Warningf("%s", s.err)
			result.Errors = append(result.Errors, s.err)
			continue
		}
		result.Sites += s.res.Sites
		for reason, n := range s.res.Skipped {
			result.Skipped[reason] += n
		}
		result.Findings.Merge(s.res.Findings)
	}

	log.Infof("analyzed %d functions in %d contracts: %d sites, %d findings, %d errors",
		result.Functions, result.Contracts, result.Sites, result.Findings.Len(), len(result.Errors))
	return result, nil
}
