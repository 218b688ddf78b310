package ir

import (
	"fmt"
	"strings"
)

// Function-level model consumed by the analysis engine.
// Statements are kept in source order; values form a def-use DAG through Deps.

// Contract groups the functions of one analyzed contract
type Contract struct {
	Name      string
	Address   string
	StateVars []*StateVar
	Functions []*Function
	Line      int
}

// StateVar is a storage declaration
type StateVar struct {
	Name string
	Type string
}

type Visibility string

const (
	Public   Visibility = "public"
	External Visibility = "external"
	Internal Visibility = "internal"
	Private  Visibility = "private"
)

// Callable reports whether any account can invoke a function with this visibility.
func (v Visibility) Callable() bool { return v == Public || v == External }

func (v Visibility) Valid() bool {
	switch v {
	case Public, External, Internal, Private:
		return true
	}
	return false
}

type Mutability string

const (
	Mutating Mutability = "nonpayable"
	View     Mutability = "view"
	Pure     Mutability = "pure"
	Payable  Mutability = "payable"
)

// ReadOnly reports whether the function cannot modify state
func (m Mutability) ReadOnly() bool { return m == View || m == Pure }

// Function represents one contract function; immutable once built
type Function struct {
	Contract   string
	Name       string
	Visibility Visibility
	Mutability Mutability
	Params     []*Parameter
	Modifiers  []string
	Statements []Statement
	Line       int
}

// QualifiedName returns Contract.Name
func (f *Function) QualifiedName() string {
	if f.Contract == "" {
		return f.Name
	}
	return f.Contract + "." + f.Name
}

// Signature returns name(type,...) with parameter types in call form
func (f *Function) Signature() string {
	types := make([]string, len(f.Params))
	for i, p := range f.Params {
		types[i] = abiType(p.Type)
	}
	return f.Name + "(" + strings.Join(types, ",") + ")"
}

// Statements

type Statement interface {
	GetIndex() int
	GetLine() int
	GetOperands() []Value
	String() string
}

// Assignment writes a local or a state variable
type Assignment struct {
	Index  int
	Line   int
	Target string
	State  bool
	Value  Value
}

// Call invokes another function or contract. Selector is set for raw selector calls.
type Call struct {
	Index    int
	Line     int
	Target   Value
	Name     string
	Selector string
	Args     []Value
	ArgTypes []string
	Result   *CallResult
	Checked  bool
}

// Require aborts execution when Condition is false
type Require struct {
	Index     int
	Line      int
	Kind      string // "require" or "assert"
	Condition Value
	Message   string
}

// Return ends execution; Revert marks an aborting exit
type Return struct {
	Index  int
	Line   int
	Value  Value
	Revert bool
}

type Branch struct {
	Index     int
	Line      int
	Condition Value
	Then      []Statement
	Else      []Statement
}

func (a *Assignment) GetIndex() int         { return a.Index }
func (a *Assignment) GetLine() int          { return a.Line }
func (a *Assignment) GetOperands() []Value  { return []Value{a.Value} }
func (c *Call) GetIndex() int               { return c.Index }
func (c *Call) GetLine() int                { return c.Line }
func (r *Require) GetIndex() int            { return r.Index }
func (r *Require) GetLine() int             { return r.Line }
func (r *Require) GetOperands() []Value     { return []Value{r.Condition} }
func (r *Return) GetIndex() int             { return r.Index }
func (r *Return) GetLine() int              { return r.Line }
func (b *Branch) GetIndex() int             { return b.Index }
func (b *Branch) GetLine() int              { return b.Line }
func (b *Branch) GetOperands() []Value      { return []Value{b.Condition} }

func (c *Call) GetOperands() []Value {
	ops := make([]Value, 0, len(c.Args)+1)
	if c.Target != nil {
		ops = append(ops, c.Target)
	}
	return append(ops, c.Args...)
}

func (r *Return) GetOperands() []Value {
	if r.Value == nil {
		return nil
	}
	return []Value{r.Value}
}

// Callee returns the name used to match the call, the selector for raw calls
func (c *Call) Callee() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Selector
}

// Signature returns name(type,...) when every argument type is known
func (c *Call) Signature() (string, bool) {
	if c.Name == "" {
		return "", false
	}
	for _, t := range c.ArgTypes {
		if t == "" {
			return "", false
		}
	}
	return c.Name + "(" + strings.Join(c.ArgTypes, ",") + ")", true
}

func (a *Assignment) String() string {
	return fmt.Sprintf("%s = %s", a.Target, a.Value)
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	callee := c.Callee()
	if c.Target != nil {
		callee = c.Target.String() + "." + callee
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", "))
}

func (r *Require) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.Condition)
}

func (r *Return) String() string {
	switch {
	case r.Revert:
		return "revert"
	case r.Value != nil:
		return "return " + r.Value.String()
	default:
		return "return"
	}
}

func (b *Branch) String() string {
	return fmt.Sprintf("if (%s)", b.Condition)
}
