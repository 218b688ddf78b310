package ir

// Guard is a condition known to hold whenever a statement executes.
// Calls whose result is discarded or checked are recorded as guards with
// a nil Condition so that helper functions that revert internally can be
// recognized downstream. A call whose result is only stored or branched
// on enforces nothing.
type Guard struct {
	Source    Statement
	Condition Value
}

func (g *Guard) String() string {
	if g.Condition == nil {
		return g.Source.String()
	}
	return g.Condition.String()
}

// AlwaysExits reports whether every path through stmts ends in a return or revert
func AlwaysExits(stmts []Statement) bool {
	if len(stmts) == 0 {
		return false
	}
	for _, s := range stmts {
		switch x := s.(type) {
		case *Return:
			return true
		case *Require:
			if alwaysFails(x) {
				return true
			}
		case *Branch:
			if AlwaysExits(x.Then) && AlwaysExits(x.Else) {
				return true
			}
		}
	}
	return false
}

// Dominators maps each statement index to the guards that dominate it.
//
// The function body is structured, so dominance follows the nesting:
// a require guards the statements after it in its block, a branch
// condition guards its then arm and its negation guards the else arm,
// and an arm that always exits contributes the opposite condition to
// the statements following the branch. Statements that can never execute,
// such as those after a revert, have no entry in the map.
func Dominators(fn *Function) map[int][]*Guard {
	d := &dominance{out: make(map[int][]*Guard), used: usedResults(fn)}
	d.walk(fn.Statements, nil)
	return d.out
}

type dominance struct {
	out  map[int][]*Guard
	used map[*Call]bool
}

func (d *dominance) walk(stmts []Statement, active []*Guard) bool {
	cur := active
	for _, s := range stmts {
		d.out[s.GetIndex()] = cur

		switch x := s.(type) {
		case *Require:
			if alwaysFails(x) {
				return true
			}
			cur = with(cur, &Guard{Source: x, Condition: x.Condition})
		case *Call:
			if x.Checked || !d.used[x] {
				cur = with(cur, &Guard{Source: x})
			}
		case *Return:
			return true
		case *Branch:
			thenExits := d.walk(x.Then, with(cur, &Guard{Source: x, Condition: x.Condition}))
			elseExits := d.walk(x.Else, with(cur, &Guard{Source: x, Condition: negate(x.Condition)}))
			switch {
			case thenExits && elseExits:
				return true
			case thenExits:
				cur = with(cur, &Guard{Source: x, Condition: negate(x.Condition)})
			case elseExits:
				cur = with(cur, &Guard{Source: x, Condition: x.Condition})
			}
		}
	}
	return false
}

// usedResults returns the calls whose result feeds another statement
func usedResults(fn *Function) map[*Call]bool {
	used := make(map[*Call]bool)
	seen := make(map[Value]bool)
	var visit func(Value)
	visit = func(v Value) {
		if v == nil || seen[v] {
			return
		}
		seen[v] = true
		if r, ok := v.(*CallResult); ok {
			used[r.Call] = true
			return
		}
		for _, dep := range v.Deps() {
			visit(dep)
		}
	}
	Walk(fn.Statements, func(s Statement) bool {
		for _, op := range s.GetOperands() {
			visit(op)
		}
		return true
	})
	return used
}

func alwaysFails(r *Require) bool {
	c, ok := r.Condition.(*Constant)
	return ok && c.IsZero()
}

func with(guards []*Guard, g *Guard) []*Guard {
	out := make([]*Guard, len(guards)+1)
	copy(out, guards)
	out[len(guards)] = g
	return out
}

func negate(v Value) Value {
	if n, ok := v.(*Not); ok {
		return n.Operand
	}
	return &Not{Operand: v}
}
