package analysis

import "reserveguard/internal/ir"

// comparison is an atomic relational fact with negation already applied
type comparison struct {
	Op    string
	Left  ir.Value
	Right ir.Value
}

var negated = map[string]string{
	"<":  ">=",
	"<=": ">",
	">":  "<=",
	">=": "<",
	"==": "!=",
	"!=": "==",
}

// facts splits a condition known to hold into its atomic comparisons.
// Conjunctions are split; a negated disjunction becomes a conjunction of
// negated operands. Disjunctions establish nothing individually.
func facts(v ir.Value) []comparison {
	var out []comparison
	var visit func(v ir.Value, neg bool)
	visit = func(v ir.Value, neg bool) {
		switch x := v.(type) {
		case *ir.Not:
			visit(x.Operand, !neg)
		case *ir.BinaryOp:
			switch {
			case x.Op == "&&" && !neg, x.Op == "||" && neg:
				visit(x.Left, neg)
				visit(x.Right, neg)
			default:
				op, ok := negated[x.Op]
				if !ok {
					return
				}
				if !neg {
					op = x.Op
				}
				out = append(out, comparison{Op: op, Left: x.Left, Right: x.Right})
			}
		}
	}
	visit(v, false)
	return out
}

// upperBounds returns (small, large) pairs such that small <= large holds
func (c comparison) upperBounds() [][2]ir.Value {
	switch c.Op {
	case "<", "<=":
		return [][2]ir.Value{{c.Left, c.Right}}
	case ">", ">=":
		return [][2]ir.Value{{c.Right, c.Left}}
	case "==":
		return [][2]ir.Value{{c.Left, c.Right}, {c.Right, c.Left}}
	}
	return nil
}

// render prints the comparison oriented with small on the left
func render(small ir.Value, op string, large ir.Value) string {
	switch op {
	case ">":
		op = "<"
	case ">=":
		op = "<="
	}
	return small.String() + " " + op + " " + large.String()
}
