package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserveguard/grammar"
)

func TestLendingPool(t *testing.T) {
	program, err := grammar.ParseFile(`../examples/lending.rg`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	require.Len(t, program.Contracts, 1)
	contract := program.Contracts[0]
	assert.Equal(t, "contract", contract.Kind)
	assert.Equal(t, "LendingPool", contract.Name)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", contract.Address)

	var states []*grammar.StateVar
	var functions []*grammar.Function
	for _, m := range contract.Members {
		if m.State != nil {
			states = append(states, m.State)
		}
		if m.Function != nil {
			functions = append(functions, m.Function)
		}
	}

	assert.Equal(t, 6, len(states))
	assert.Equal(t, "owner", states[0].Name)
	assert.Equal(t, "address", states[0].Type.Name)
	assert.NotNil(t, states[5].Type.Mapping)
	assert.Equal(t, "address", states[5].Type.Mapping.Key.Name)
	assert.Equal(t, "uint256", states[5].Type.Mapping.Value.Name)

	require.Equal(t, 6, len(functions))
	checkFunction(t, functions[1], "borrow", []string{"amount", "maxRate", "tokenId"}, []string{"external"}, 4)
	checkFunction(t, functions[3], "sweep", []string{"to", "amount"}, []string{"external", "onlyOwner"}, 1)
	checkFunction(t, functions[5], "quote", []string{"amount"}, []string{"public", "view"}, 1)

	returns := functions[5].Attributes[2].Returns
	require.Len(t, returns, 1)
	assert.Equal(t, "uint256", returns[0].Type.Name)
}

func checkFunction(t *testing.T, fn *grammar.Function, name string, params []string, modifiers []string, statements int) {
	t.Helper()

	assert.Equal(t, name, fn.Name)

	var gotParams []string
	for _, p := range fn.Params {
		gotParams = append(gotParams, p.Name)
	}
	assert.Equal(t, params, gotParams, "params of %s", name)

	var gotModifiers []string
	for _, a := range fn.Attributes {
		if a.Modifier != nil {
			gotModifiers = append(gotModifiers, a.Modifier.Name)
		}
	}
	assert.Equal(t, modifiers, gotModifiers, "modifiers of %s", name)

	require.NotNil(t, fn.Body)
	assert.Equal(t, statements, len(fn.Body.Statements), "statements of %s", name)
}

func TestStatementForms(t *testing.T) {
	src := `
contract C {
    function f(uint256 amount) external {
        uint256 bal = token.balanceOf(address(this));
        balances[msg.sender] -= amount;
        x = amount * 2 + 1;
        if (!(amount <= bal) || paused) revert("no");
        else { emit Sent(amount); }
        unchecked { total += amount; }
        assert(amount != 0);
        token.0xa9059cbb(msg.sender, amount);
        return;
    }
}`
	program, err := grammar.ParseString("forms.rg", src)
	require.NoError(t, err)

	stmts := program.Contracts[0].Members[0].Function.Body.Statements
	require.Len(t, stmts, 8)

	assert.NotNil(t, stmts[0].Decl)
	assert.Equal(t, "bal", stmts[0].Decl.Name)
	assert.Equal(t, 4, stmts[0].Pos.Line)

	assert.NotNil(t, stmts[1].Expr)
	assert.Equal(t, "-=", stmts[1].Expr.Op)

	assert.NotNil(t, stmts[2].Expr)
	assert.Equal(t, "=", stmts[2].Expr.Op)

	require.NotNil(t, stmts[3].If)
	assert.Len(t, stmts[3].If.Cond.Rest, 1)
	assert.NotNil(t, stmts[3].If.Then.Revert)
	require.NotNil(t, stmts[3].If.Else)
	assert.NotNil(t, stmts[3].If.Else.Block)

	assert.NotNil(t, stmts[4].Unchecked)
	assert.Equal(t, "assert", stmts[5].Require.Kind)

	call := stmts[6].Expr.Target.Left.Left.Left.Left.Left.Value
	require.Len(t, call.Suffix, 2)
	assert.Equal(t, "0xa9059cbb", *call.Suffix[0].Member)
	assert.NotNil(t, call.Suffix[1].Call)

	assert.NotNil(t, stmts[7].Return)
	assert.Nil(t, stmts[7].Return.Value)
}

func TestDeclarationWithoutBody(t *testing.T) {
	program, err := grammar.ParseString("decl.rg", `contract C { function f(uint256) external; }`)
	require.NoError(t, err)
	fn := program.Contracts[0].Members[0].Function
	assert.Nil(t, fn.Body)
	assert.Equal(t, "", fn.Params[0].Name)
}

func TestParseErrorPosition(t *testing.T) {
	src := "contract C {\n    function f( external {}\n}"
	_, err := grammar.ParseString("bad.rg", src)
	require.Error(t, err)

	var pe *grammar.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.rg", pe.Filename)
	assert.Equal(t, 2, pe.Line)

	out := grammar.FormatParseError(src, err)
	assert.Contains(t, out, "function f( external {}")
	assert.Contains(t, out, "^")
}
