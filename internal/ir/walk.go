package ir

import (
	"fmt"

	"reserveguard/internal/errors"
)

// Walk visits statements in pre-order, descending into branch arms.
// Returning false from visit stops the walk.
func Walk(stmts []Statement, visit func(Statement) bool) bool {
	for _, s := range stmts {
		if !visit(s) {
			return false
		}
		if b, ok := s.(*Branch); ok {
			if !Walk(b.Then, visit) || !Walk(b.Else, visit) {
				return false
			}
		}
	}
	return true
}

// Calls returns the call statements of fn in pre-order
func Calls(fn *Function) []*Call {
	var calls []*Call
	Walk(fn.Statements, func(s Statement) bool {
		if c, ok := s.(*Call); ok {
			calls = append(calls, c)
		}
		return true
	})
	return calls
}

// Origins returns the leaves reachable from v: parameters, state reads,
// constants, environment values, call results and unresolved expressions.
func Origins(v Value) []Value {
	var out []Value
	seen := make(map[Value]bool)
	var visit func(Value)
	visit = func(v Value) {
		if v == nil || seen[v] {
			return
		}
		seen[v] = true
		switch x := v.(type) {
		case *Parameter, *Constant, *Environment, *CallResult, *Unresolved:
			out = append(out, v)
		case *StateRead:
			out = append(out, v)
			for _, k := range x.Keys {
				visit(k)
			}
		default:
			for _, d := range v.Deps() {
				visit(d)
			}
		}
	}
	visit(v)
	return out
}

// ConstantOnly reports whether every origin of v is a constant
func ConstantOnly(v Value) bool {
	origins := Origins(v)
	if len(origins) == 0 {
		return false
	}
	for _, o := range origins {
		if _, ok := o.(*Constant); !ok {
			return false
		}
	}
	return true
}

// Validate checks that fn is well formed: it has a body, a known
// visibility, unique statement indices and an acyclic value graph.
func (f *Function) Validate() error {
	if f == nil {
		return errors.NewInvalidInput(errors.ErrorMissingFunction, "", "", "nil function")
	}
	if f.Name == "" {
		return errors.NewInvalidInput(errors.ErrorMissingName, f.Contract, f.Name, "function has no name")
	}
	if f.Statements == nil {
		return errors.NewInvalidInput(errors.ErrorMissingBody, f.Contract, f.Name, "function has no statement list")
	}
	if !f.Visibility.Valid() {
		return errors.NewInvalidInput(errors.ErrorInvalidVisibility, f.Contract, f.Name,
			fmt.Sprintf("unknown visibility %q", f.Visibility))
	}

	indices := make(map[int]bool)
	var err error
	Walk(f.Statements, func(s Statement) bool {
		if s == nil {
			err = errors.NewInvalidInput(errors.ErrorMalformedStatement, f.Contract, f.Name, "nil statement")
			return false
		}
		if indices[s.GetIndex()] {
			err = errors.NewInvalidInput(errors.ErrorMalformedStatement, f.Contract, f.Name,
				fmt.Sprintf("duplicate statement index %d", s.GetIndex()))
			return false
		}
		indices[s.GetIndex()] = true
		if msg := checkOperands(s); msg != "" {
			err = errors.NewInvalidInput(errors.ErrorMalformedStatement, f.Contract, f.Name,
				fmt.Sprintf("statement %d: %s", s.GetIndex(), msg))
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	state := make(map[Value]int)
	var cycle bool
	Walk(f.Statements, func(s Statement) bool {
		for _, op := range s.GetOperands() {
			if hasCycle(op, state) {
				cycle = true
				return false
			}
		}
		return true
	})
	if cycle {
		return errors.NewInvalidInput(errors.ErrorCyclicDefinition, f.Contract, f.Name, "cyclic value definition")
	}
	return nil
}

func checkOperands(s Statement) string {
	switch x := s.(type) {
	case *Assignment:
		if x.Value == nil {
			return "assignment without value"
		}
	case *Require:
		if x.Condition == nil {
			return "guard without condition"
		}
	case *Branch:
		if x.Condition == nil {
			return "branch without condition"
		}
	case *Call:
		if x.Name == "" && x.Selector == "" {
			return "call without callee"
		}
		for _, a := range x.Args {
			if a == nil {
				return "call with missing argument"
			}
		}
	}
	return ""
}

const (
	unvisited = iota
	visiting
	done
)

func hasCycle(v Value, state map[Value]int) bool {
	if v == nil {
		return false
	}
	switch state[v] {
	case visiting:
		return true
	case done:
		return false
	}
	state[v] = visiting
	for _, d := range v.Deps() {
		if hasCycle(d, state) {
			return true
		}
	}
	state[v] = done
	return false
}
