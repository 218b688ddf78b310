package ir

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Value is a node of the def-use graph. Deps returns the values it was computed from.
type Value interface {
	Deps() []Value
	String() string
}

type Parameter struct {
	Position int
	Name     string
	Type     string
}

// StateRead loads a storage variable; Keys index mappings and arrays.
// Version counts the writes to the variable that precede the read.
type StateRead struct {
	Name    string
	Type    string
	Keys    []Value
	Version int
}

type Constant struct {
	Value *uint256.Int
	Text  string
}

type BinaryOp struct {
	Op    string
	Left  Value
	Right Value
}

// CallResult is the value returned by Call
type CallResult struct {
	Call *Call
}

// Environment values provided by the execution context
type Environment struct {
	Name string
}

const (
	EnvSender      = "msg.sender"
	EnvOrigin      = "tx.origin"
	EnvValue       = "msg.value"
	EnvSelf        = "self"
	EnvSelfBalance = "self.balance"
	EnvTimestamp   = "block.timestamp"
)

type Not struct {
	Operand Value
}

// Phi merges the bindings of a local that differ across branch arms
type Phi struct {
	Name     string
	Incoming []Value
}

// Unresolved marks an expression whose origin the builder could not model
type Unresolved struct {
	Text     string
	Operands []Value
}

func (p *Parameter) Deps() []Value   { return nil }
func (c *Constant) Deps() []Value    { return nil }
func (e *Environment) Deps() []Value { return nil }
func (b *BinaryOp) Deps() []Value    { return []Value{b.Left, b.Right} }
func (n *Not) Deps() []Value         { return []Value{n.Operand} }
func (p *Phi) Deps() []Value         { return p.Incoming }
func (u *Unresolved) Deps() []Value  { return u.Operands }

func (s *StateRead) Deps() []Value { return s.Keys }

func (c *CallResult) Deps() []Value { return c.Call.GetOperands() }

func (p *Parameter) String() string   { return p.Name }
func (e *Environment) String() string { return e.Name }
func (u *Unresolved) String() string  { return "?" + u.Text }

func (s *StateRead) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	for _, k := range s.Keys {
		b.WriteString("[" + k.String() + "]")
	}
	return b.String()
}

func (c *Constant) String() string {
	if c.Text != "" {
		return c.Text
	}
	return c.Value.Dec()
}

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (c *CallResult) String() string { return c.Call.String() }

func (n *Not) String() string { return "!" + n.Operand.String() }

func (p *Phi) String() string {
	parts := make([]string, len(p.Incoming))
	for i, v := range p.Incoming {
		parts[i] = v.String()
	}
	return fmt.Sprintf("phi(%s)", strings.Join(parts, ", "))
}

func NewConstant(v uint64) *Constant {
	return &Constant{Value: uint256.NewInt(v)}
}

// MaxConstant is type(uint256).max
func MaxConstant() *Constant {
	return &Constant{Value: new(uint256.Int).SetAllOne(), Text: "type(uint256).max"}
}

func (c *Constant) IsZero() bool { return c.Value.IsZero() }

func (c *Constant) IsMax() bool {
	return c.Value.Eq(new(uint256.Int).SetAllOne())
}

// IsSelf reports whether v denotes the analyzed contract's own address
func IsSelf(v Value) bool {
	e, ok := v.(*Environment)
	return ok && e.Name == EnvSelf
}

func IsSender(v Value) bool {
	e, ok := v.(*Environment)
	return ok && (e.Name == EnvSender || e.Name == EnvOrigin)
}

// Same reports whether two values denote the same quantity where they are used.
// Storage reads match when they load the same slot with no write in
// between. Call results and phis match only themselves; unresolved
// values match nothing.
func Same(a, b Value) bool {
	if a == nil || b == nil {
		return false
	}
	if _, ok := a.(*Unresolved); ok {
		return false
	}
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *StateRead:
		y, ok := b.(*StateRead)
		if !ok || x.Name != y.Name || x.Version != y.Version || len(x.Keys) != len(y.Keys) {
			return false
		}
		for i := range x.Keys {
			if !Same(x.Keys[i], y.Keys[i]) {
				return false
			}
		}
		return true
	case *Environment:
		y, ok := b.(*Environment)
		return ok && x.Name == y.Name
	case *Constant:
		y, ok := b.(*Constant)
		return ok && x.Value.Eq(y.Value)
	case *BinaryOp:
		y, ok := b.(*BinaryOp)
		return ok && x.Op == y.Op && Same(x.Left, y.Left) && Same(x.Right, y.Right)
	case *Not:
		y, ok := b.(*Not)
		return ok && Same(x.Operand, y.Operand)
	}
	return false
}
