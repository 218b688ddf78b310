package analysis

import (
	"fmt"

	"reserveguard/internal/ir"
	"reserveguard/internal/rules"
)

// SiteState tracks a transfer site through Located -> (Skipped | Resolved) -> Classified
type SiteState int

const (
	Located SiteState = iota
	Skipped
	Resolved
	Classified
)

func (s SiteState) String() string {
	switch s {
	case Located:
		return "located"
	case Skipped:
		return "skipped"
	case Resolved:
		return "resolved"
	case Classified:
		return "classified"
	}
	return fmt.Sprintf("SiteState(%d)", int(s))
}

// Skip reasons
const (
	ReasonSafeWrapper    = "safe_wrapper"
	ReasonConstantZero   = "constant_zero"
	ReasonConstantMax    = "constant_max"
	ReasonInbound        = "inbound"
	ReasonPrivileged     = "privileged"
	ReasonReadOnly       = "read_only"
	ReasonNotCandidate   = "not_candidate"
	ReasonCheckedReturn  = "checked_return"
	ReasonConstantAmount = "constant_amount"
	ReasonUnreachable    = "unreachable"
)

// Site is one located transfer call and the tags the locator attached to it
type Site struct {
	Contract  *ir.Contract
	Function  *ir.Function
	Call      *ir.Call
	Rule      *rules.Rule
	Amount    ir.Value
	Recipient ir.Value

	SafeWrapper   bool
	ConstantZero  bool
	ConstantMax   bool
	CheckedReturn bool
	Unreachable   bool // follows a revert on every path

	state SiteState
}

func (s *Site) State() SiteState { return s.state }

// advance moves the site forward. Any other transition is a programming error.
func (s *Site) advance(to SiteState) {
	legal := false
	switch s.state {
	case Located:
		legal = to == Skipped || to == Resolved
	case Skipped, Resolved:
		legal = to == Classified
	}
	if !legal {
		panic(fmt.Sprintf("transfer site %s#%d: illegal transition %s -> %s",
			s.Function.QualifiedName(), s.Call.Index, s.state, to))
	}
	s.state = to
}

// Signature returns the matched rule signature, the callee when no rule is attached
func (s *Site) Signature() string {
	if s.Rule != nil {
		return s.Rule.Signature
	}
	return s.Call.Callee()
}
