package errors

// Error codes for the reserveguard toolchain
// These codes are used in console output, LSP diagnostics and reports
// to provide consistent identification across the tools.
//
// Error code ranges:
// RG0001-RG0099: Invalid input model
// RG0100-RG0199: Model parser errors
// RG0200-RG0299: Rule set errors
// RG0300-RG0399: Findings
// RG0900-RG0999: Tooling errors (storage, metrics, reports)

const (
	// RG0001: Function value is nil
	ErrorMissingFunction = "RG0001"

	// RG0002: Function has no name
	ErrorMissingName = "RG0002"

	// RG0003: Function has no statement list
	ErrorMissingBody = "RG0003"

	// RG0004: Visibility outside public/external/internal/private
	ErrorInvalidVisibility = "RG0004"

	// RG0005: Statement missing a required operand or duplicated
	ErrorMalformedStatement = "RG0005"

	// RG0006: Value graph contains a cycle
	ErrorCyclicDefinition = "RG0006"

	// RG0100: Model syntax error
	ErrorSyntax = "RG0100"

	// RG0101: Duplicate contract, function or state declaration
	ErrorDuplicateDeclaration = "RG0101"

	// RG0200: Rule set could not be decoded
	ErrorRuleDecode = "RG0200"

	// RG0201: Rule set failed validation
	ErrorRuleInvalid = "RG0201"

	// RG0300: Unguarded transfer in an externally callable function
	FindingUnguardedTransfer = "RG0300"

	// RG0301: Unguarded transfer in an internal function
	FindingUnguardedInternalTransfer = "RG0301"

	// RG0302: Transfer bounded by a reserve guard
	FindingGuardedTransfer = "RG0302"

	// RG0900: Report or history storage failure
	ErrorStorage = "RG0900"
)

// ErrorDescriptions provides human-readable descriptions for error codes
var ErrorDescriptions = map[string]string{
	ErrorMissingFunction:             "Function is missing",
	ErrorMissingName:                 "Function has no name",
	ErrorMissingBody:                 "Function has no statement list",
	ErrorInvalidVisibility:           "Invalid function visibility",
	ErrorMalformedStatement:          "Malformed statement",
	ErrorCyclicDefinition:            "Cyclic value definition",
	ErrorSyntax:                      "Syntax error in contract model",
	ErrorDuplicateDeclaration:        "Duplicate declaration",
	ErrorRuleDecode:                  "Rule set could not be decoded",
	ErrorRuleInvalid:                 "Invalid rule set",
	FindingUnguardedTransfer:         "Transfer amount is not bounded by a reserve check",
	FindingUnguardedInternalTransfer: "Transfer amount in internal function is not bounded by a reserve check",
	FindingGuardedTransfer:           "Transfer amount is bounded by a reserve check",
	ErrorStorage:                     "Storage failure",
}

// GetErrorDescription returns a human-readable description for an error code
func GetErrorDescription(code string) string {
	if desc, exists := ErrorDescriptions[code]; exists {
		return desc
	}
	return "Unknown error"
}

// GetErrorCategory returns the category of an error based on its code
func GetErrorCategory(code string) string {
	switch {
	case len(code) != 6 || code[:2] != "RG":
		return "Unknown"
	case code < "RG0100":
		return "Input Model"
	case code < "RG0200":
		return "Parser"
	case code < "RG0300":
		return "Rule Set"
	case code < "RG0400":
		return "Finding"
	case code >= "RG0900":
		return "Tooling"
	default:
		return "Unknown"
	}
}
