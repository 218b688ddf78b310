package rules

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gobwas/glob"

	"reserveguard/internal/errors"
	"reserveguard/internal/ir"
)

// CallKind is the closed set of call variants the engine distinguishes
type CallKind int

const (
	KindOther CallKind = iota
	KindTransfer
	KindSafeWrapper
)

func (k CallKind) String() string {
	switch k {
	case KindTransfer:
		return "transfer"
	case KindSafeWrapper:
		return "safe_wrapper"
	default:
		return "other"
	}
}

// Rule is a compiled transfer or safe-wrapper signature
type Rule struct {
	Kind      CallKind
	Name      string
	Params    []string
	Signature string
	Selector  string
	Amount    int
	Recipient int
}

// Matcher is the compiled lookup table built from a RuleSet.
// It is read-only after Compile and safe for concurrent use.
type Matcher struct {
	rules      *RuleSet
	byName     map[string][]*Rule
	bySelector map[string][]*Rule
	table      []*Rule

	safeFunctions patterns
	balanceCalls  patterns
	getters       patterns
	reserveStates patterns
	guardHelpers  patterns
	minFunctions  patterns
	modifiers     patterns
	callers       patterns
	checks        patterns
	candidates    patterns
}

// Compile validates the patterns of rs and builds the lookup tables
func Compile(rs *RuleSet) (*Matcher, error) {
	m := &Matcher{
		rules:      rs,
		byName:     make(map[string][]*Rule),
		bySelector: make(map[string][]*Rule),
	}

	// Safe wrappers are registered first so they win over a transfer rule
	// with the same name and shape.
	for _, s := range rs.SafeWrappers {
		if err := m.add(KindSafeWrapper, s); err != nil {
			return nil, err
		}
	}
	for _, s := range rs.Transfers {
		if err := m.add(KindTransfer, s); err != nil {
			return nil, err
		}
	}

	lists := []struct {
		section string
		src     []string
		dst     *patterns
		fold    bool
	}{
		{"safe_wrapper_functions", rs.SafeWrapperFunctions, &m.safeFunctions, true},
		{"reserves.balance_calls", rs.Reserves.BalanceCalls, &m.balanceCalls, false},
		{"reserves.getters", rs.Reserves.Getters, &m.getters, false},
		{"reserves.state_vars", rs.Reserves.StateVars, &m.reserveStates, false},
		{"reserves.guard_helpers", rs.Reserves.GuardHelpers, &m.guardHelpers, false},
		{"reserves.min_functions", rs.Reserves.MinFunctions, &m.minFunctions, false},
		{"privileged.modifiers", rs.Privileged.Modifiers, &m.modifiers, false},
		{"privileged.callers", rs.Privileged.Callers, &m.callers, false},
		{"privileged.checks", rs.Privileged.Checks, &m.checks, false},
		{"candidate_functions", rs.CandidateFunctions, &m.candidates, false},
	}
	for _, l := range lists {
		p, err := compilePatterns(l.src, l.fold)
		if err != nil {
			return nil, fmt.Errorf("[%s] %s: %w", errors.ErrorRuleInvalid, l.section, err)
		}
		*l.dst = p
	}
	return m, nil
}

// MustCompile is Compile for rule sets known to be valid
func MustCompile(rs *RuleSet) *Matcher {
	m, err := Compile(rs)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matcher) add(kind CallKind, s Signature) error {
	name, params, err := ParseSignature(s.Signature)
	if err != nil {
		return fmt.Errorf("[%s] %w", errors.ErrorRuleInvalid, err)
	}
	canonical := Canonical(name, params)
	r := &Rule{
		Kind:      kind,
		Name:      name,
		Params:    params,
		Signature: canonical,
		Selector:  Selector(canonical),
		Amount:    len(params) - 1,
		Recipient: defaultRecipient(len(params)),
	}
	if s.Amount != nil {
		r.Amount = *s.Amount
	}
	if s.Recipient != nil {
		r.Recipient = *s.Recipient
	}
	m.byName[name] = append(m.byName[name], r)
	m.bySelector[r.Selector] = append(m.bySelector[r.Selector], r)
	m.table = append(m.table, r)
	return nil
}

// Table returns every signature rule in registration order
func (m *Matcher) Table() []*Rule {
	out := make([]*Rule, len(m.table))
	copy(out, m.table)
	return out
}

func defaultRecipient(arity int) int {
	switch arity {
	case 2:
		return 0
	case 3:
		return 1
	}
	return RecipientNone
}

// Selector returns the 4-byte function selector of a canonical signature
func Selector(canonical string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(canonical))[:4])
}

// Rules returns the rule set the matcher was compiled from
func (m *Matcher) Rules() *RuleSet {
	return m.rules
}

// Match looks up the transfer or safe-wrapper rule for a call.
// A rule matches when the names (or selectors) and arities are equal and
// every argument type known at the call site equals the declared type.
func (m *Matcher) Match(c *ir.Call) (*Rule, bool) {
	var candidates []*Rule
	if c.Name != "" {
		candidates = m.byName[c.Name]
	} else {
		candidates = m.bySelector[strings.ToLower(c.Selector)]
	}
	for _, r := range candidates {
		if r.accepts(c) {
			return r, true
		}
	}
	return nil, false
}

func (r *Rule) accepts(c *ir.Call) bool {
	if len(c.Args) != len(r.Params) {
		return false
	}
	for i, t := range c.ArgTypes {
		if i < len(r.Params) && t != "" && t != r.Params[i] {
			return false
		}
	}
	return true
}

// SafeWrapperFunction reports whether the enclosing function name marks a safe wrapper.
// Matching ignores case.
func (m *Matcher) SafeWrapperFunction(name string) bool {
	return m.safeFunctions.match(name)
}

// BalanceCall reports whether name is a balance query such as balanceOf
func (m *Matcher) BalanceCall(name string) bool { return m.balanceCalls.match(name) }

// ReserveGetter reports whether name is a reserve getter such as totalAssets
func (m *Matcher) ReserveGetter(name string) bool { return m.getters.match(name) }

// ReserveState reports whether a state variable tracks a reserve.
// Member and index suffixes are ignored.
func (m *Matcher) ReserveState(name string) bool {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	return m.reserveStates.match(name)
}

func (m *Matcher) NativeBalance() bool {
	return m.rules.Reserves.NativeBalance == nil || *m.rules.Reserves.NativeBalance
}

func (m *Matcher) GuardHelper(name string) bool { return m.guardHelpers.match(name) }

func (m *Matcher) MinFunction(name string) bool { return m.minFunctions.match(name) }

func (m *Matcher) PrivilegedModifier(name string) bool { return m.modifiers.match(name) }

// PrivilegedCaller reports whether name is a state variable or getter holding a trusted account
func (m *Matcher) PrivilegedCaller(name string) bool { return m.callers.match(name) }

func (m *Matcher) PrivilegeCheck(name string) bool { return m.checks.match(name) }

// Candidate reports whether a function name is in scope; an empty list admits all
func (m *Matcher) Candidate(name string) bool {
	return len(m.candidates.globs) == 0 || m.candidates.match(name)
}

type patterns struct {
	globs []glob.Glob
	fold  bool
}

func compilePatterns(src []string, fold bool) (patterns, error) {
	p := patterns{fold: fold}
	for _, s := range src {
		if fold {
			s = strings.ToLower(s)
		}
		g, err := glob.Compile(s)
		if err != nil {
			return p, fmt.Errorf("invalid pattern %q: %w", s, err)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

func (p patterns) match(name string) bool {
	if name == "" {
		return false
	}
	if p.fold {
		name = strings.ToLower(name)
	}
	for _, g := range p.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
