package rules

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleSet is the data-only configuration of the analysis engine.
// It is loaded from YAML or TOML and compiled into a Matcher.
type RuleSet struct {
	Version int `yaml:"version" toml:"version"`

	// Transfers are the asset-movement signatures reported as transfer sites
	Transfers []Signature `yaml:"transfers" toml:"transfers"`
	// SafeWrappers are signatures whose callee enforces correctness itself
	SafeWrappers []Signature `yaml:"safe_wrappers" toml:"safe_wrappers"`
	// SafeWrapperFunctions are globs on the enclosing function name
	SafeWrapperFunctions []string `yaml:"safe_wrapper_functions" toml:"safe_wrapper_functions"`

	Reserves   Reserves   `yaml:"reserves" toml:"reserves"`
	Privileged Privileged `yaml:"privileged" toml:"privileged"`

	// CandidateFunctions restricts analysis to matching function names; empty means all
	CandidateFunctions []string `yaml:"candidate_functions" toml:"candidate_functions"`

	SkipCheckedReturns  bool `yaml:"skip_checked_returns" toml:"skip_checked_returns"`
	SkipConstantAmounts bool `yaml:"skip_constant_amounts" toml:"skip_constant_amounts"`

	Workers int `yaml:"workers" toml:"workers"`
}

// Reserves lists what the resolver accepts as a reserve quantity
type Reserves struct {
	BalanceCalls  []string `yaml:"balance_calls" toml:"balance_calls"`
	Getters       []string `yaml:"getters" toml:"getters"`
	StateVars     []string `yaml:"state_vars" toml:"state_vars"`
	NativeBalance *bool    `yaml:"native_balance" toml:"native_balance"`
	GuardHelpers  []string `yaml:"guard_helpers" toml:"guard_helpers"`
	MinFunctions  []string `yaml:"min_functions" toml:"min_functions"`
}

// Privileged describes access control that restricts a function to trusted callers
type Privileged struct {
	Modifiers []string `yaml:"modifiers" toml:"modifiers"`
	Callers   []string `yaml:"callers" toml:"callers"`
	Checks    []string `yaml:"checks" toml:"checks"`
}

// Argument positions with a special meaning
const (
	RecipientNone   = -2
	RecipientTarget = -1
)

// Signature is one entry of the transfer or safe-wrapper tables.
// Amount and Recipient are argument positions; nil selects the default.
type Signature struct {
	Signature string `yaml:"signature" toml:"signature"`
	Amount    *int   `yaml:"amount,omitempty" toml:"amount,omitempty"`
	Recipient *int   `yaml:"recipient,omitempty" toml:"recipient,omitempty"`
}

var signaturePattern = regexp.MustCompile(`^([A-Za-z_$][A-Za-z0-9_$]*)\(([^()]*)\)$`)

// ParseSignature splits name(type,...) into its name and canonical parameter types
func ParseSignature(sig string) (string, []string, error) {
	m := signaturePattern.FindStringSubmatch(strings.ReplaceAll(sig, " ", ""))
	if m == nil {
		return "", nil, fmt.Errorf("malformed signature %q", sig)
	}
	var params []string
	if m[2] != "" {
		for _, p := range strings.Split(m[2], ",") {
			if p == "" {
				return "", nil, fmt.Errorf("malformed signature %q: empty parameter", sig)
			}
			params = append(params, canonicalType(p))
		}
	}
	return m[1], params, nil
}

// Canonical returns the signature with canonical ABI types, as hashed for selectors
func Canonical(name string, params []string) string {
	return name + "(" + strings.Join(params, ",") + ")"
}

func canonicalType(t string) string {
	switch t {
	case "uint":
		return "uint256"
	case "int":
		return "int256"
	}
	return t
}

// UnmarshalYAML accepts either a bare signature string or a mapping
func (s *Signature) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Signature = value.Value
		return nil
	}
	type plain Signature
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Signature(p)
	return nil
}

// UnmarshalTOML accepts either a bare signature string or a table
func (s *Signature) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		s.Signature = v
		return nil
	case map[string]interface{}:
		sig, ok := v["signature"].(string)
		if !ok {
			return fmt.Errorf("signature table without a signature string")
		}
		s.Signature = sig
		for key, dst := range map[string]**int{"amount": &s.Amount, "recipient": &s.Recipient} {
			raw, present := v[key]
			if !present {
				continue
			}
			n, ok := raw.(int64)
			if !ok {
				return fmt.Errorf("%s of %s must be an integer", key, sig)
			}
			i := int(n)
			*dst = &i
		}
		return nil
	}
	return fmt.Errorf("unexpected signature value %T", data)
}
