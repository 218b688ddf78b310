package ir

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reserveguard/grammar"
	"reserveguard/internal/errors"
)

// Builder lowers a parsed contract model into the function-level IR.
// Calls nested in expressions are hoisted into Call statements placed
// before the statement that consumes their result.
type Builder struct {
	contract  *Contract
	states    map[string]*StateVar
	mappings  map[string]string // state name -> mapping value type
	fn        *Function
	nextIndex int
	out       *[]Statement
	vars      map[string]Value
	hints     map[Value]string
	versions  map[string]int // state name -> writes so far
}

// Build converts every contract of program
func Build(program *grammar.Program) ([]*Contract, error) {
	var contracts []*Contract
	seen := make(map[string]bool)
	for _, c := range program.Contracts {
		if seen[c.Name] {
			return nil, errors.NewInvalidInput(errors.ErrorDuplicateDeclaration, c.Name, "",
				fmt.Sprintf("contract %s declared twice (line %d)", c.Name, c.Pos.Line))
		}
		seen[c.Name] = true
		contract, err := NewBuilder().BuildContract(c)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	return contracts, nil
}

func NewBuilder() *Builder {
	return &Builder{
		states:   make(map[string]*StateVar),
		mappings: make(map[string]string),
	}
}

func (b *Builder) BuildContract(c *grammar.Contract) (*Contract, error) {
	address := c.Address
	if common.IsHexAddress(address) {
		address = common.HexToAddress(address).Hex()
	}
	b.contract = &Contract{Name: c.Name, Address: address, Line: c.Pos.Line}

	for _, m := range c.Members {
		if m.State == nil {
			continue
		}
		if _, dup := b.states[m.State.Name]; dup {
			return nil, errors.NewInvalidInput(errors.ErrorDuplicateDeclaration, c.Name, "",
				fmt.Sprintf("state variable %s declared twice (line %d)", m.State.Name, m.State.Pos.Line))
		}
		sv := &StateVar{Name: m.State.Name, Type: typeText(m.State.Type)}
		b.states[sv.Name] = sv
		if m.State.Type.Mapping != nil {
			b.mappings[sv.Name] = mappingValueType(m.State.Type)
		}
		b.contract.StateVars = append(b.contract.StateVars, sv)
	}

	for _, m := range c.Members {
		if m.Function != nil {
			b.contract.Functions = append(b.contract.Functions, b.buildFunction(m.Function))
		}
	}
	return b.contract, nil
}

func (b *Builder) buildFunction(f *grammar.Function) *Function {
	fn := &Function{
		Contract:   b.contract.Name,
		Name:       f.Name,
		Visibility: Public,
		Mutability: Mutating,
		Line:       f.Pos.Line,
	}
	for _, attr := range f.Attributes {
		if attr.Modifier == nil {
			continue
		}
		switch name := attr.Modifier.Name; name {
		case "public", "external", "internal", "private":
			fn.Visibility = Visibility(name)
		case "view", "pure", "payable", "nonpayable":
			fn.Mutability = Mutability(name)
		case "virtual", "override":
		default:
			fn.Modifiers = append(fn.Modifiers, name)
		}
	}

	b.fn = fn
	b.nextIndex = 0
	b.vars = make(map[string]Value)
	b.hints = make(map[Value]string)
	b.versions = make(map[string]int)

	for i, p := range f.Params {
		param := &Parameter{Position: i, Name: p.Name, Type: typeText(p.Type)}
		fn.Params = append(fn.Params, param)
		if p.Name != "" {
			b.vars[p.Name] = param
		}
	}

	if f.Body == nil {
		return fn
	}
	stmts := make([]Statement, 0, len(f.Body.Statements))
	b.out = &stmts
	b.block(f.Body.Statements)
	fn.Statements = stmts
	return fn
}

func (b *Builder) index() int {
	i := b.nextIndex
	b.nextIndex++
	return i
}

func (b *Builder) emit(s Statement) {
	*b.out = append(*b.out, s)
}

// block builds statements in a nested scope; locals declared inside are dropped
func (b *Builder) block(stmts []*grammar.Statement) {
	outer := make(map[string]bool, len(b.vars))
	for name := range b.vars {
		outer[name] = true
	}
	for _, s := range stmts {
		b.statement(s)
	}
	for name := range b.vars {
		if !outer[name] {
			delete(b.vars, name)
		}
	}
}

func (b *Builder) statement(s *grammar.Statement) {
	line := s.Pos.Line
	switch {
	case s.Require != nil:
		cond := b.expr(s.Require.Cond, line)
		markChecked(cond)
		req := &Require{Index: b.index(), Line: line, Kind: s.Require.Kind, Condition: cond}
		if s.Require.Message != nil {
			req.Message = *s.Require.Message
		}
		b.emit(req)

	case s.If != nil:
		b.branch(s.If, line)

	case s.Return != nil:
		ret := &Return{Line: line}
		if s.Return.Value != nil {
			ret.Value = b.expr(s.Return.Value, line)
		}
		ret.Index = b.index()
		b.emit(ret)

	case s.Revert != nil:
		for _, a := range s.Revert.Args {
			b.expr(a, line)
		}
		b.emit(&Return{Index: b.index(), Line: line, Revert: true})

	case s.Emit != nil:
		b.eventArgs(s.Emit.Event, line)

	case s.Unchecked != nil:
		b.block(s.Unchecked.Statements)

	case s.Block != nil:
		b.block(s.Block.Statements)

	case s.Decl != nil:
		b.declare(s.Decl, line)

	case s.Expr != nil:
		b.exprStatement(s.Expr, line)
	}
}

func (b *Builder) declare(d *grammar.VarDecl, line int) {
	var value Value
	if d.Value != nil {
		value = b.expr(d.Value, line)
	} else {
		value = NewConstant(0)
	}
	if t := abiType(typeText(d.Type)); t != "" && b.typeOf(value) == "" {
		b.hints[value] = t
	}
	b.vars[d.Name] = value
	b.emit(&Assignment{Index: b.index(), Line: line, Target: d.Name, Value: value})
}

func (b *Builder) exprStatement(e *grammar.ExprStmt, line int) {
	if e.Op == "" {
		b.expr(e.Target, line)
		return
	}

	rhs := b.expr(e.Value, line)

	if name, ok := simpleIdent(e.Target); ok {
		if old, local := b.vars[name]; local {
			value := compound(e.Op, old, rhs)
			b.vars[name] = value
			b.emit(&Assignment{Index: b.index(), Line: line, Target: name, Value: value})
			return
		}
	}

	target := b.expr(e.Target, line)
	sr, state := target.(*StateRead)
	b.emit(&Assignment{
		Index:  b.index(),
		Line:   line,
		Target: target.String(),
		State:  state,
		Value:  compound(e.Op, target, rhs),
	})
	if state {
		root, _, _ := strings.Cut(sr.Name, ".")
		b.versions[root]++
	}
}

func compound(op string, old, rhs Value) Value {
	if op == "=" {
		return rhs
	}
	return &BinaryOp{Op: strings.TrimSuffix(op, "="), Left: old, Right: rhs}
}

func (b *Builder) eventArgs(e *grammar.Expr, line int) {
	p := soleOperand(e)
	if p == nil || len(p.Suffix) == 0 || p.Suffix[len(p.Suffix)-1].Call == nil {
		b.expr(e, line)
		return
	}
	for _, a := range p.Suffix[len(p.Suffix)-1].Call.Args {
		b.expr(a, line)
	}
}

func (b *Builder) branch(s *grammar.IfStmt, line int) {
	cond := b.expr(s.Cond, line)
	br := &Branch{Index: b.index(), Line: line, Condition: cond}
	b.emit(br)

	saved := b.out
	before := cloneVars(b.vars)

	b.out = &br.Then
	b.block([]*grammar.Statement{s.Then})
	thenVars := b.vars

	b.vars = cloneVars(before)
	if s.Else != nil {
		b.out = &br.Else
		b.block([]*grammar.Statement{s.Else})
	}
	elseVars := b.vars
	b.out = saved

	thenExits, elseExits := AlwaysExits(br.Then), AlwaysExits(br.Else)
	if thenExits || elseExits {
		markChecked(cond)
	}

	merged := make(map[string]Value, len(before))
	for name, prior := range before {
		tv, ev := thenVars[name], elseVars[name]
		switch {
		case thenExits && elseExits:
			merged[name] = prior
		case thenExits:
			merged[name] = ev
		case elseExits:
			merged[name] = tv
		case tv == ev:
			merged[name] = tv
		default:
			merged[name] = &Phi{Name: name, Incoming: []Value{tv, ev}}
		}
	}
	b.vars = merged
}

func cloneVars(vars map[string]Value) map[string]Value {
	out := make(map[string]Value, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// markChecked flags calls whose boolean result decides whether execution continues
func markChecked(v Value) {
	switch x := v.(type) {
	case *CallResult:
		x.Call.Checked = true
	case *Not:
		markChecked(x.Operand)
	case *BinaryOp:
		switch x.Op {
		case "&&", "||":
			markChecked(x.Left)
			markChecked(x.Right)
		case "==", "!=":
			if isBoolConstant(x.Right) {
				markChecked(x.Left)
			} else if isBoolConstant(x.Left) {
				markChecked(x.Right)
			}
		}
	}
}

func isBoolConstant(v Value) bool {
	c, ok := v.(*Constant)
	return ok && (c.Text == "true" || c.Text == "false")
}

// Expressions

func (b *Builder) expr(e *grammar.Expr, line int) Value {
	v := b.and(e.Left, line)
	for _, r := range e.Rest {
		v = &BinaryOp{Op: "||", Left: v, Right: b.and(r, line)}
	}
	return v
}

func (b *Builder) and(e *grammar.AndExpr, line int) Value {
	v := b.cmp(e.Left, line)
	for _, r := range e.Rest {
		v = &BinaryOp{Op: "&&", Left: v, Right: b.cmp(r, line)}
	}
	return v
}

func (b *Builder) cmp(e *grammar.CmpExpr, line int) Value {
	v := b.add(e.Left, line)
	if e.Op != "" {
		v = &BinaryOp{Op: e.Op, Left: v, Right: b.add(e.Right, line)}
	}
	return v
}

func (b *Builder) add(e *grammar.AddExpr, line int) Value {
	v := b.mul(e.Left, line)
	for _, t := range e.Rest {
		v = &BinaryOp{Op: t.Op, Left: v, Right: b.mul(t.Right, line)}
	}
	return v
}

func (b *Builder) mul(e *grammar.MulExpr, line int) Value {
	v := b.unary(e.Left, line)
	for _, f := range e.Rest {
		v = &BinaryOp{Op: f.Op, Left: v, Right: b.unary(f.Right, line)}
	}
	return v
}

func (b *Builder) unary(e *grammar.UnaryExpr, line int) Value {
	v := b.postfix(e.Value, line)
	switch e.Op {
	case "!":
		return &Not{Operand: v}
	case "-":
		return &Unresolved{Text: "-" + v.String(), Operands: []Value{v}}
	}
	return v
}

func (b *Builder) postfix(p *grammar.PostfixExpr, line int) Value {
	suffix := p.Suffix
	var cur Value

	switch prim := p.Primary; {
	case prim.Ident != nil && len(suffix) > 0 && suffix[0].Call != nil:
		cur, suffix = b.freeCall(*prim.Ident, suffix, line)
	case prim.Ident != nil && isEnvRoot(*prim.Ident) && len(suffix) > 0 && suffix[0].Member != nil:
		cur = &Environment{Name: *prim.Ident + "." + *suffix[0].Member}
		suffix = suffix[1:]
	default:
		cur = b.primary(prim, line)
	}

	for len(suffix) > 0 {
		op := suffix[0]
		switch {
		case op.Member != nil && len(suffix) > 1 && suffix[1].Call != nil:
			cur = b.call(cur, *op.Member, suffix[1].Call.Args, line)
			suffix = suffix[2:]
		case op.Member != nil:
			cur = member(cur, *op.Member)
			suffix = suffix[1:]
		case op.Index != nil:
			key := b.expr(op.Index, line)
			if sr, ok := cur.(*StateRead); ok {
				keys := append(append([]Value{}, sr.Keys...), key)
				cur = &StateRead{Name: sr.Name, Type: b.indexedType(sr), Keys: keys, Version: sr.Version}
			} else {
				cur = &Unresolved{Text: fmt.Sprintf("%s[%s]", cur, key), Operands: []Value{cur, key}}
			}
			suffix = suffix[1:]
		default:
			args := b.values(op.Call.Args, line)
			cur = &Unresolved{Text: cur.String() + "(...)", Operands: append([]Value{cur}, args...)}
			suffix = suffix[1:]
		}
	}
	return cur
}

// freeCall handles `name(args)`: casts, type(T).max and internal calls
func (b *Builder) freeCall(name string, suffix []*grammar.PostfixOp, line int) (Value, []*grammar.PostfixOp) {
	args := suffix[0].Call.Args
	rest := suffix[1:]

	if name == "type" && len(args) == 1 && len(rest) > 0 && rest[0].Member != nil {
		switch *rest[0].Member {
		case "max":
			return MaxConstant(), rest[1:]
		case "min":
			return &Constant{Value: new(uint256.Int), Text: "0"}, rest[1:]
		}
	}

	if len(args) == 1 && isCast(name) {
		v := b.expr(args[0], line)
		if t := abiType(name); t != "" && b.typeOf(v) == "" {
			b.hints[v] = t
		}
		return v, rest
	}

	return b.call(nil, name, args, line), rest
}

func (b *Builder) call(target Value, name string, args []*grammar.Expr, line int) Value {
	vals := b.values(args, line)
	c := &Call{Line: line, Target: target, Args: vals}
	if isSelector(name) {
		c.Selector = strings.ToLower(name)
	} else {
		c.Name = name
	}
	c.ArgTypes = make([]string, len(vals))
	for i, v := range vals {
		c.ArgTypes[i] = b.typeOf(v)
	}
	c.Index = b.index()
	c.Result = &CallResult{Call: c}
	b.emit(c)
	return c.Result
}

func (b *Builder) values(args []*grammar.Expr, line int) []Value {
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = b.expr(a, line)
	}
	return vals
}

func (b *Builder) primary(p *grammar.PrimaryExpr, line int) Value {
	switch {
	case p.Number != nil:
		return parseNumber(*p.Number)
	case p.String != nil:
		return &Unresolved{Text: fmt.Sprintf("%q", *p.String)}
	case p.Parens != nil:
		return b.expr(p.Parens, line)
	case p.Ident != nil:
		return b.resolve(*p.Ident)
	}
	return &Unresolved{Text: "expr"}
}

func (b *Builder) resolve(name string) Value {
	if v, ok := b.vars[name]; ok {
		return v
	}
	switch name {
	case "this", "self":
		return &Environment{Name: EnvSelf}
	case "true":
		return &Constant{Value: uint256.NewInt(1), Text: "true"}
	case "false":
		return &Constant{Value: new(uint256.Int), Text: "false"}
	}
	if sv, ok := b.states[name]; ok {
		return &StateRead{Name: sv.Name, Type: abiType(sv.Type), Version: b.versions[sv.Name]}
	}
	return &Unresolved{Text: name}
}

func member(base Value, name string) Value {
	switch x := base.(type) {
	case *Environment:
		if x.Name == EnvSelf && name == "balance" {
			return &Environment{Name: EnvSelfBalance}
		}
	case *StateRead:
		return &StateRead{Name: x.Name + "." + name, Keys: x.Keys, Version: x.Version}
	}
	return &Unresolved{Text: base.String() + "." + name, Operands: []Value{base}}
}

func (b *Builder) indexedType(sr *StateRead) string {
	if len(sr.Keys) == 0 {
		if vt, ok := b.mappings[sr.Name]; ok {
			return abiType(vt)
		}
		return abiType(strings.TrimSuffix(b.stateType(sr.Name), "[]"))
	}
	return ""
}

func (b *Builder) stateType(name string) string {
	if sv, ok := b.states[name]; ok {
		return sv.Type
	}
	return ""
}

// typeOf infers the ABI type of v, or "" when unknown
func (b *Builder) typeOf(v Value) string {
	if t, ok := b.hints[v]; ok {
		return t
	}
	switch x := v.(type) {
	case *Parameter:
		return abiType(x.Type)
	case *StateRead:
		return x.Type
	case *Constant:
		if x.Text == "true" || x.Text == "false" {
			return "bool"
		}
		return "uint256"
	case *Environment:
		switch x.Name {
		case EnvSender, EnvOrigin, EnvSelf:
			return "address"
		case EnvValue, EnvSelfBalance, EnvTimestamp:
			return "uint256"
		}
	case *BinaryOp:
		switch x.Op {
		case "+", "-", "*", "/", "%":
			return "uint256"
		default:
			return "bool"
		}
	case *Not:
		return "bool"
	}
	return ""
}

func parseNumber(text string) Value {
	clean := strings.ReplaceAll(text, "_", "")
	n := new(big.Int)
	if mant, exp, ok := strings.Cut(clean, "e"); ok && !strings.HasPrefix(clean, "0x") {
		m, ok1 := new(big.Int).SetString(mant, 10)
		e, ok2 := new(big.Int).SetString(exp, 10)
		if !ok1 || !ok2 {
			return &Unresolved{Text: text}
		}
		n.Mul(m, new(big.Int).Exp(big.NewInt(10), e, nil))
	} else if _, ok := n.SetString(clean, 0); !ok {
		return &Unresolved{Text: text}
	}
	v, overflow := uint256.FromBig(n)
	if overflow {
		return &Unresolved{Text: text}
	}
	return &Constant{Value: v, Text: text}
}

func typeText(t *grammar.TypeName) string {
	if t == nil {
		return ""
	}
	var s string
	if t.Mapping != nil {
		s = fmt.Sprintf("mapping(%s => %s)", typeText(t.Mapping.Key), typeText(t.Mapping.Value))
	} else {
		s = t.Name
	}
	if t.Array {
		s += "[]"
	}
	return s
}

func mappingValueType(t *grammar.TypeName) string {
	for t.Mapping != nil && !t.Array {
		t = t.Mapping.Value
	}
	return typeText(t)
}

// abiType maps a declared type to the type used in call signatures
func abiType(t string) string {
	switch {
	case t == "":
		return ""
	case t == "uint":
		return "uint256"
	case t == "int":
		return "int256"
	case strings.HasPrefix(t, "mapping("):
		return ""
	case unicode.IsUpper(rune(t[0])):
		return "address"
	}
	return t
}

var elementaryType = regexp.MustCompile(`^(u?int|bytes)[0-9]*$`)

func isCast(name string) bool {
	switch name {
	case "address", "payable", "bool":
		return true
	}
	return elementaryType.MatchString(name) || unicode.IsUpper(rune(name[0]))
}

func isSelector(name string) bool {
	return len(name) == 10 && strings.HasPrefix(name, "0x")
}

func isEnvRoot(name string) bool {
	return name == "msg" || name == "tx" || name == "block"
}

func simpleIdent(e *grammar.Expr) (string, bool) {
	p := soleOperand(e)
	if p == nil || len(p.Suffix) > 0 || p.Primary.Ident == nil {
		return "", false
	}
	return *p.Primary.Ident, true
}

// soleOperand returns the postfix expression when e has no operators
func soleOperand(e *grammar.Expr) *grammar.PostfixExpr {
	if len(e.Rest) > 0 || len(e.Left.Rest) > 0 {
		return nil
	}
	c := e.Left.Left
	if c.Op != "" || len(c.Left.Rest) > 0 || len(c.Left.Left.Rest) > 0 {
		return nil
	}
	u := c.Left.Left.Left
	if u.Op != "" {
		return nil
	}
	return u.Value
}
