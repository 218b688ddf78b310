package analysis

import "fmt"

type Classification string

const (
	Vulnerable Classification = "VULNERABLE"
	Safe       Classification = "SAFE"
	Skip       Classification = "SKIP"
)

type Severity string

const (
	Critical Severity = "CRITICAL"
	High     Severity = "HIGH"
	Info     Severity = "INFO"
)

// Finding is one reported transfer site. Findings are immutable once emitted.
type Finding struct {
	Contract       string         `json:"contract"`
	Address        string         `json:"address,omitempty"`
	Function       string         `json:"function"`
	Overload       string         `json:"function_signature,omitempty"`
	Index          int            `json:"index"`
	Line           int            `json:"line"`
	Signature      string         `json:"signature"`
	Call           string         `json:"call"`
	Recipient      string         `json:"recipient,omitempty"`
	Amount         string         `json:"amount"`
	Classification Classification `json:"classification"`
	Severity       Severity       `json:"severity"`
	Evidence       string         `json:"evidence"`
	CheckedReturn  bool           `json:"checked_return"`
}

// Key identifies a finding by contract, function and statement index.
// Function is the full signature when known, so overloads stay distinct.
type Key struct {
	Contract string
	Function string
	Index    int
}

func (f *Finding) Key() Key {
	fn := f.Function
	if f.Overload != "" {
		fn = f.Overload
	}
	return Key{Contract: f.Contract, Function: fn, Index: f.Index}
}

// Location renders the statement location as Contract.function:line
func (f *Finding) Location() string {
	name := f.Function
	if f.Contract != "" {
		name = f.Contract + "." + f.Function
	}
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", name, f.Line)
	}
	return fmt.Sprintf("%s#%d", name, f.Index)
}

func (f *Finding) String() string {
	return fmt.Sprintf("%s %s %s amount=%s: %s", f.Classification, f.Location(), f.Signature, f.Amount, f.Evidence)
}
