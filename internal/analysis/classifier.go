package analysis

import (
	"fmt"
	"strings"

	"reserveguard/internal/ir"
	"reserveguard/internal/rules"
)

// Decision is the classifier's verdict for one site
type Decision struct {
	Classification Classification
	Severity       Severity
	Reason         string // skip reason
	Evidence       string
	Fact           *GuardFact
}

type Classifier struct {
	matcher  *rules.Matcher
	resolver *Resolver
}

func NewClassifier(m *rules.Matcher) *Classifier {
	return &Classifier{matcher: m, resolver: NewResolver(m)}
}

// Classify decides SKIP, SAFE or VULNERABLE for a located site given the
// guards that dominate it, and advances the site to Classified.
func (c *Classifier) Classify(site *Site, guards []*ir.Guard) Decision {
	if reason := c.skipReason(site, guards); reason != "" {
		site.advance(Skipped)
		site.advance(Classified)
		return Decision{Classification: Skip, Reason: reason}
	}

	fact := c.resolver.Resolve(site, guards)
	site.advance(Resolved)
	defer site.advance(Classified)

	if fact != nil {
		return Decision{
			Classification: Safe,
			Severity:       Info,
			Evidence:       fmt.Sprintf("bounded by %s at line %d", fact.Evidence, fact.Guard.GetLine()),
			Fact:           fact,
		}
	}

	severity := High
	if site.Function.Visibility.Callable() {
		severity = Critical
	}
	return Decision{
		Classification: Vulnerable,
		Severity:       severity,
		Evidence:       c.missingEvidence(site, guards),
	}
}

func (c *Classifier) skipReason(site *Site, guards []*ir.Guard) string {
	fn := site.Function
	switch {
	case site.Unreachable:
		return ReasonUnreachable
	case site.SafeWrapper:
		return ReasonSafeWrapper
	case site.ConstantZero:
		return ReasonConstantZero
	case site.ConstantMax:
		return ReasonConstantMax
	case site.Recipient != nil && ir.IsSelf(site.Recipient):
		return ReasonInbound
	case fn.Mutability.ReadOnly():
		return ReasonReadOnly
	case !c.matcher.Candidate(fn.Name):
		return ReasonNotCandidate
	case c.Privileged(fn, guards):
		return ReasonPrivileged
	case c.matcher.Rules().SkipCheckedReturns && site.CheckedReturn:
		return ReasonCheckedReturn
	case c.matcher.Rules().SkipConstantAmounts && ir.ConstantOnly(site.Amount):
		return ReasonConstantAmount
	}
	return ""
}

// Privileged reports whether fn is restricted to a trusted caller class:
// an access-control modifier, a dominating msg.sender comparison against a
// privileged account, or a dominating privilege-check call.
func (c *Classifier) Privileged(fn *ir.Function, guards []*ir.Guard) bool {
	for _, m := range fn.Modifiers {
		if c.matcher.PrivilegedModifier(m) {
			return true
		}
	}
	for _, g := range guards {
		if g.Condition == nil {
			if call, ok := g.Source.(*ir.Call); ok && c.matcher.PrivilegeCheck(call.Callee()) {
				return true
			}
			continue
		}
		for _, cmp := range facts(g.Condition) {
			if cmp.Op != "==" {
				continue
			}
			if ir.IsSender(cmp.Left) && c.privilegedAccount(cmp.Right) ||
				ir.IsSender(cmp.Right) && c.privilegedAccount(cmp.Left) {
				return true
			}
		}
	}
	return false
}

func (c *Classifier) privilegedAccount(v ir.Value) bool {
	switch x := v.(type) {
	case *ir.StateRead:
		return c.matcher.PrivilegedCaller(x.Name)
	case *ir.CallResult:
		return c.matcher.PrivilegedCaller(x.Call.Callee())
	case *ir.Unresolved:
		return len(x.Operands) == 0 && c.matcher.PrivilegedCaller(x.Text)
	}
	return false
}

// missingEvidence explains an unguarded site, naming the dominating
// comparisons that mention the amount but not a reserve.
func (c *Classifier) missingEvidence(site *Site, guards []*ir.Guard) string {
	if unresolved(site.Amount) {
		return fmt.Sprintf("amount %s could not be resolved; no reserve guard found", site.Amount)
	}

	origins := ir.Origins(site.Amount)
	var unrelated []string
	for _, g := range guards {
		if g.Condition == nil {
			continue
		}
		for _, o := range ir.Origins(g.Condition) {
			if _, isConst := o.(*ir.Constant); !isConst && contains(origins, o) {
				unrelated = append(unrelated, g.Condition.String())
				break
			}
		}
	}

	msg := fmt.Sprintf("no dominating guard bounds %s by a reserve", site.Amount)
	if len(unrelated) > 0 {
		msg += "; guards on other quantities: " + strings.Join(unrelated, ", ")
	}
	return msg
}
