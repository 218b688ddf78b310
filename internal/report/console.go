package report

import (
	stderrors "errors"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"reserveguard/grammar"
	"reserveguard/internal/analysis"
	"reserveguard/internal/errors"
	"reserveguard/internal/ir"
)

// Console prints findings with source context, one model file per contract
type Console struct {
	w         io.Writer
	reporters map[string]*errors.ErrorReporter
	functions map[string]int
	ShowSafe  bool
}

func NewConsole(w io.Writer) *Console {
	return &Console{
		w:         w,
		reporters: make(map[string]*errors.ErrorReporter),
		functions: make(map[string]int),
	}
}

// AddSource registers the model text the given contracts were built from
func (c *Console) AddSource(filename, source string, contracts []*ir.Contract) {
	er := errors.NewErrorReporter(filename, source)
	for _, ct := range contracts {
		c.reporters[ct.Name] = er
		for _, fn := range ct.Functions {
			if fn != nil {
				c.functions[ct.Name+"."+fn.Name] = fn.Line
			}
		}
	}
}

// Findings prints VULNERABLE findings, and SAFE ones when ShowSafe is set
func (c *Console) Findings(findings []*analysis.Finding) {
	for _, f := range findings {
		var d errors.Diagnostic
		switch f.Classification {
		case analysis.Vulnerable:
			d = errors.UnguardedTransfer(f.Call, f.Amount, f.Severity == analysis.Critical, errors.Position{Line: f.Line})
			d.Notes = append(d.Notes, f.Evidence)
		case analysis.Safe:
			if !c.ShowSafe {
				continue
			}
			d = errors.GuardedTransfer(f.Call, f.Evidence, errors.Position{Line: f.Line})
		default:
			continue
		}
		c.print(f.Contract, d)
	}
}

// Errors prints the functions the engine refused to analyze
func (c *Console) Errors(errs []error) {
	for _, err := range errs {
		var ie *errors.InvalidInputError
		if !stderrors.As(err, &ie) {
			fmt.Fprintf(c.w, "%s %v\n", color.YellowString("warning:"), err)
			continue
		}
		pos := errors.Position{Line: c.functions[ie.Contract+"."+ie.Function]}
		c.print(ie.Contract, errors.InvalidFunction(ie, pos))
	}
}

// ParseError prints a model syntax error against its source
func (c *Console) ParseError(filename, source string, err error) {
	var pe *grammar.ParseError
	if !stderrors.As(err, &pe) {
		fmt.Fprint(c.w, grammar.FormatParseError(source, err))
		return
	}
	d := errors.SyntaxError(pe.Message, errors.Position{Line: pe.Line, Column: pe.Column})
	fmt.Fprint(c.w, errors.NewErrorReporter(filename, source).FormatError(d))
}

func (c *Console) print(contract string, d errors.Diagnostic) {
	er, ok := c.reporters[contract]
	if !ok || d.Position.Line <= 0 {
		fmt.Fprintf(c.w, "%s[%s]: %s (%s)\n", d.Level, d.Code, d.Message, contract)
		return
	}
	fmt.Fprint(c.w, er.FormatError(d))
}

// Summary prints the totals of a run
func (c *Console) Summary(res *analysis.Result) {
	counts := res.Findings.CountBySeverity()
	vulnerable := len(res.Findings.Vulnerable())

	headline := color.GreenString("no unguarded transfers")
	if vulnerable > 0 {
		headline = color.New(color.FgRed, color.Bold).Sprintf("%d unguarded transfer(s)", vulnerable)
	}
	fmt.Fprintf(c.w, "%s in %d functions (%d transfer sites)\n", headline, res.Functions, res.Sites)

	for _, s := range severityOrder {
		if counts[s] > 0 {
			fmt.Fprintf(c.w, "  %-8s %d\n", s, counts[s])
		}
	}

	reasons := make([]string, 0, len(res.Skipped))
	for r := range res.Skipped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(c.w, "  skipped %-16s %d\n", r, res.Skipped[r])
	}
	if len(res.Errors) > 0 {
		fmt.Fprintf(c.w, "  %s %d function(s) could not be analyzed\n", color.YellowString("warning:"), len(res.Errors))
	}
}
