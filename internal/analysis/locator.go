package analysis

import (
	"reserveguard/internal/ir"
	"reserveguard/internal/rules"
)

// Locator finds the asset-movement calls of a function
type Locator struct {
	matcher *rules.Matcher
}

func NewLocator(m *rules.Matcher) *Locator {
	return &Locator{matcher: m}
}

// Locate returns the transfer sites of fn in statement order.
// Calls that match no configured signature are ignored.
func (l *Locator) Locate(c *ir.Contract, fn *ir.Function) []*Site {
	var sites []*Site
	safeFunction := l.matcher.SafeWrapperFunction(fn.Name)

	for _, call := range ir.Calls(fn) {
		rule, ok := l.matcher.Match(call)
		if !ok || rule.Amount < 0 || rule.Amount >= len(call.Args) {
			continue
		}

		site := &Site{
			Contract:      c,
			Function:      fn,
			Call:          call,
			Rule:          rule,
			Amount:        call.Args[rule.Amount],
			Recipient:     recipientOf(call, rule),
			SafeWrapper:   rule.Kind == rules.KindSafeWrapper || safeFunction,
			CheckedReturn: call.Checked,
		}
		if k, ok := site.Amount.(*ir.Constant); ok {
			site.ConstantZero = k.IsZero()
			site.ConstantMax = k.IsMax()
		}
		sites = append(sites, site)
	}
	return sites
}

func recipientOf(call *ir.Call, rule *rules.Rule) ir.Value {
	switch {
	case rule.Recipient == rules.RecipientTarget:
		return call.Target
	case rule.Recipient >= 0 && rule.Recipient < len(call.Args):
		return call.Args[rule.Recipient]
	}
	return nil
}
