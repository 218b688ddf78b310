package report

import (
	"fmt"
	"strings"

	"reserveguard/internal/analysis"
)

// Generator renders a report into file content
type Generator interface {
	Generate(report *Report) (string, error)
	Extension() string
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (g *MarkdownGenerator) Extension() string { return "md" }

// Generate renders the markdown report
func (g *MarkdownGenerator) Generate(report *Report) (string, error) {
	var b strings.Builder

	b.WriteString("# Reserveguard Scan Report\n\n")
	if report.RunID != "" {
		fmt.Fprintf(&b, "**Run**: %s\n", report.RunID)
	}
	fmt.Fprintf(&b, "**Scan Time**: %s\n", report.ScanTime.Format("2006-01-02 15:04:05"))
	if report.Rules != "" {
		fmt.Fprintf(&b, "**Rules**: %s\n", report.Rules)
	}
	if len(report.Sources) > 0 {
		fmt.Fprintf(&b, "**Sources**: %s\n", strings.Join(report.Sources, ", "))
	}
	b.WriteString("\n")

	b.WriteString("## Scan Statistics\n\n")
	fmt.Fprintf(&b, "- **Contracts**: %d\n", report.Contracts)
	fmt.Fprintf(&b, "- **Functions**: %d\n", report.Functions)
	fmt.Fprintf(&b, "- **Transfer Sites**: %d\n", report.Sites)
	fmt.Fprintf(&b, "- **Vulnerable**: %d\n\n", report.Vulnerable())

	if sev := report.severities(); len(sev) > 0 {
		b.WriteString("## Severity Distribution\n\n")
		for _, s := range sev {
			fmt.Fprintf(&b, "- **%s**: %d\n", s, report.SeverityDistribution[s])
		}
		b.WriteString("\n")
	}

	if reasons := report.skipReasons(); len(reasons) > 0 {
		b.WriteString("## Skipped Sites\n\n")
		for _, r := range reasons {
			fmt.Fprintf(&b, "- `%s`: %d\n", r, report.Skipped[r])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Findings\n\n")
	if len(report.Findings) == 0 {
		b.WriteString("No unguarded transfers found.\n\n")
	} else {
		b.WriteString("| # | Classification | Severity | Location | Call | Amount |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for i, f := range report.Findings {
			fmt.Fprintf(&b, "| %d | %s | %s | `%s` | `%s` | `%s` |\n",
				i+1, f.Classification, f.Severity, f.Location(), escapeCell(f.Call), escapeCell(f.Amount))
		}
		b.WriteString("\n")

		for i, f := range report.Findings {
			if f.Classification != analysis.Vulnerable {
				continue
			}
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, f.Location())
			if f.Address != "" {
				fmt.Fprintf(&b, "**Contract Address**: %s\n", f.Address)
			}
			fmt.Fprintf(&b, "**Signature**: `%s`\n", f.Signature)
			if f.Recipient != "" {
				fmt.Fprintf(&b, "**Recipient**: `%s`\n", f.Recipient)
			}
			fmt.Fprintf(&b, "**Evidence**: %s\n\n", f.Evidence)
		}
	}

	if len(report.Errors) > 0 {
		b.WriteString("## Skipped Functions\n\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
