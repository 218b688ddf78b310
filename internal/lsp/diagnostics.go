package lsp

import (
	stderrors "errors"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"reserveguard/grammar"
	"reserveguard/internal/analysis"
	"reserveguard/internal/errors"
)

const diagnosticSource = "reserveguard"

// ConvertParseError turns a model syntax error into a single diagnostic
func ConvertParseError(err error) []protocol.Diagnostic {
	line, col, msg := 1, 1, err.Error()
	var pe *grammar.ParseError
	if stderrors.As(err, &pe) {
		line, col, msg = pe.Line, pe.Column, pe.Message
	}
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line - 1), Character: uint32(col - 1)},
			End:   protocol.Position{Line: uint32(line - 1), Character: uint32(col + 5)},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Code:     ptrCode(errors.ErrorSyntax),
		Source:   ptrString(diagnosticSource),
		Message:  msg,
	}}
}

// ConvertFindings maps findings onto the lines of source. SAFE findings
// become hints; VULNERABLE ones are errors in callable functions and
// warnings otherwise.
func ConvertFindings(source string, findings []*analysis.Finding) []protocol.Diagnostic {
	lines := strings.Split(source, "\n")
	var diagnostics []protocol.Diagnostic

	for _, f := range findings {
		var severity protocol.DiagnosticSeverity
		var code, message string
		switch f.Classification {
		case analysis.Vulnerable:
			severity, code = protocol.DiagnosticSeverityWarning, errors.FindingUnguardedInternalTransfer
			if f.Severity == analysis.Critical {
				severity, code = protocol.DiagnosticSeverityError, errors.FindingUnguardedTransfer
			}
			message = "unguarded transfer: " + f.Evidence
		case analysis.Safe:
			severity, code = protocol.DiagnosticSeverityHint, errors.FindingGuardedTransfer
			message = "transfer " + f.Evidence
		default:
			continue
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(lines, f.Line),
			Severity: ptrSeverity(severity),
			Code:     ptrCode(code),
			Source:   ptrString(diagnosticSource),
			Message:  message,
		})
	}
	return diagnostics
}

// ConvertErrors reports functions the engine refused to analyze at their declaration
func ConvertErrors(source string, errs []error, functionLines map[string]int) []protocol.Diagnostic {
	lines := strings.Split(source, "\n")
	var diagnostics []protocol.Diagnostic

	for _, err := range errs {
		line, code := 0, ""
		var ie *errors.InvalidInputError
		if stderrors.As(err, &ie) {
			line, code = functionLines[ie.Contract+"."+ie.Function], ie.Code
		}
		d := protocol.Diagnostic{
			Range:    lineRange(lines, line),
			Severity: ptrSeverity(protocol.DiagnosticSeverityWarning),
			Source:   ptrString(diagnosticSource),
			Message:  err.Error(),
		}
		if code != "" {
			d.Code = ptrCode(code)
		}
		diagnostics = append(diagnostics, d)
	}
	return diagnostics
}

// lineRange spans the text of a 1-based line without its indentation
func lineRange(lines []string, line int) protocol.Range {
	if line < 1 || line > len(lines) {
		return protocol.Range{}
	}
	text := strings.TrimRight(lines[line-1], " \t\r")
	start := len(text) - len(strings.TrimLeft(text, " \t"))
	return protocol.Range{
		Start: protocol.Position{Line: uint32(line - 1), Character: uint32(start)},
		End:   protocol.Position{Line: uint32(line - 1), Character: uint32(len(text))},
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}

func ptrCode(code string) *protocol.IntegerOrString {
	return &protocol.IntegerOrString{Value: code}
}
