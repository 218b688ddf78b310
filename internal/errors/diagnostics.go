package errors

import (
	"fmt"
)

// UnguardedTransfer reports a transfer whose amount no reserve guard bounds
func UnguardedTransfer(call, amount string, callable bool, pos Position) Diagnostic {
	b := NewDiagnostic(FindingUnguardedTransfer, fmt.Sprintf("unguarded transfer `%s`", call), pos).
		WithNote(fmt.Sprintf("amount `%s` is not compared against a balance or reserve before the call", amount)).
		WithHelp(fmt.Sprintf("add `require(%s <= <asset>.balanceOf(address(this)))` before the transfer", amount))
	if !callable {
		b.d.Code = FindingUnguardedInternalTransfer
		b.WithNote("function is internal; exposure depends on its callers")
	}
	return b.Build()
}

// GuardedTransfer reports a transfer bounded by the given guard
func GuardedTransfer(call, evidence string, pos Position) Diagnostic {
	return NewDiagnostic(FindingGuardedTransfer, fmt.Sprintf("transfer `%s` is bounded by a reserve check", call), pos).
		WithLevel(Note).
		WithNote("guard: " + evidence).
		Build()
}

// InvalidFunction reports a function the engine refused to analyze
func InvalidFunction(err *InvalidInputError, pos Position) Diagnostic {
	return NewDiagnostic(err.Code, fmt.Sprintf("%s skipped: %s", err.Function, err.Message), pos).
		WithLevel(Warning).
		WithHelp(GetErrorDescription(err.Code)).
		Build()
}

// SyntaxError reports a model that could not be parsed
func SyntaxError(message string, pos Position) Diagnostic {
	return NewDiagnostic(ErrorSyntax, message, pos).
		WithLength(1).
		Build()
}
