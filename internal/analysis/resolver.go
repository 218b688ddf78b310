package analysis

import (
	"fmt"

	"reserveguard/internal/ir"
	"reserveguard/internal/rules"
)

// GuardFact records that a value is bounded by a reserve quantity
type GuardFact struct {
	Bounded  ir.Value
	Reserve  ir.Value
	Guard    ir.Statement
	Evidence string
}

// Resolver decides whether the amount of a transfer site is bounded by a
// reserve check among the guards that dominate the site.
type Resolver struct {
	matcher *rules.Matcher
}

func NewResolver(m *rules.Matcher) *Resolver {
	return &Resolver{matcher: m}
}

// Resolve returns the first dominating guard, in program order, that bounds
// the site's amount by a reserve, or nil when the amount is unguarded.
// An amount computed from an unresolved expression is never guarded.
func (r *Resolver) Resolve(site *Site, guards []*ir.Guard) *GuardFact {
	if unresolved(site.Amount) {
		return nil
	}
	upper := r.upperSet(site.Amount)

	for _, g := range guards {
		if g.Condition == nil {
			if fact := r.helperGuard(g, upper); fact != nil {
				return fact
			}
			continue
		}
		for _, cmp := range facts(g.Condition) {
			for _, pair := range cmp.upperBounds() {
				small, large := pair[0], pair[1]
				if !contains(upper, small) || !r.IsReserve(large) {
					continue
				}
				return &GuardFact{
					Bounded:  small,
					Reserve:  large,
					Guard:    g.Source,
					Evidence: render(small, cmp.Op, large),
				}
			}
		}
	}
	return nil
}

// helperGuard accepts a call to a configured guard helper that receives the amount
func (r *Resolver) helperGuard(g *ir.Guard, upper []ir.Value) *GuardFact {
	call, ok := g.Source.(*ir.Call)
	if !ok || !r.matcher.GuardHelper(call.Callee()) {
		return nil
	}
	for _, a := range call.Args {
		if contains(upper, a) {
			return &GuardFact{
				Bounded:  a,
				Guard:    call,
				Evidence: fmt.Sprintf("%s checked by %s", a, call),
			}
		}
	}
	return nil
}

// upperSet returns the values whose bound also bounds v: v itself, the
// left operand of subtraction, division and modulo, and the arguments of
// min-style calls.
func (r *Resolver) upperSet(v ir.Value) []ir.Value {
	var out []ir.Value
	var visit func(ir.Value)
	visit = func(v ir.Value) {
		if v == nil || contains(out, v) {
			return
		}
		out = append(out, v)
		switch x := v.(type) {
		case *ir.BinaryOp:
			switch x.Op {
			case "-", "/", "%":
				visit(x.Left)
			}
		case *ir.CallResult:
			if r.matcher.MinFunction(x.Call.Callee()) {
				for _, a := range x.Call.Args {
					visit(a)
				}
			}
		}
	}
	visit(v)
	return out
}

// IsReserve reports whether v is a reserve quantity of the analyzed contract
// or a monotonic function of one. Sums and products qualify only when every
// operand is a reserve or a constant.
func (r *Resolver) IsReserve(v ir.Value) bool {
	switch x := v.(type) {
	case *ir.CallResult:
		return r.reserveCall(x.Call)
	case *ir.Environment:
		return x.Name == ir.EnvSelfBalance && r.matcher.NativeBalance()
	case *ir.StateRead:
		return r.matcher.ReserveState(x.Name)
	case *ir.BinaryOp:
		switch x.Op {
		case "+", "*":
			return r.reserveOrConstant(x.Left) && r.reserveOrConstant(x.Right) &&
				(r.IsReserve(x.Left) || r.IsReserve(x.Right))
		case "-", "/":
			return r.IsReserve(x.Left)
		}
	case *ir.Phi:
		for _, in := range x.Incoming {
			if !r.IsReserve(in) {
				return false
			}
		}
		return len(x.Incoming) > 0
	}
	return false
}

func (r *Resolver) reserveOrConstant(v ir.Value) bool {
	if _, ok := v.(*ir.Constant); ok {
		return true
	}
	return r.IsReserve(v)
}

func (r *Resolver) reserveCall(c *ir.Call) bool {
	name := c.Callee()
	onSelf := c.Target == nil || ir.IsSelf(c.Target)

	switch {
	case r.matcher.BalanceCall(name):
		if len(c.Args) == 0 {
			return onSelf
		}
		for _, a := range c.Args {
			if ir.IsSelf(a) {
				return true
			}
		}
		return false
	case r.matcher.ReserveGetter(name):
		return onSelf
	case r.matcher.MinFunction(name):
		for _, a := range c.Args {
			if r.IsReserve(a) {
				return true
			}
		}
	}
	return false
}

func unresolved(v ir.Value) bool {
	for _, o := range ir.Origins(v) {
		if _, ok := o.(*ir.Unresolved); ok {
			return true
		}
	}
	return false
}

func contains(set []ir.Value, v ir.Value) bool {
	for _, s := range set {
		if ir.Same(s, v) {
			return true
		}
	}
	return false
}
