package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reserveguard/internal/errors"
)

func TestValidate(t *testing.T) {
	amount := &Parameter{Name: "amount", Type: "uint256"}

	tests := []struct {
		name string
		fn   *Function
		code string
	}{
		{"nil function", nil, errors.ErrorMissingFunction},
		{"no name", &Function{Visibility: Public, Statements: []Statement{}}, errors.ErrorMissingName},
		{"no body", &Function{Name: "f", Visibility: Public}, errors.ErrorMissingBody},
		{"bad visibility", &Function{Name: "f", Visibility: "everyone", Statements: []Statement{}}, errors.ErrorInvalidVisibility},
		{"nil guard", &Function{Name: "f", Visibility: Public, Statements: []Statement{
			&Require{Index: 0},
		}}, errors.ErrorMalformedStatement},
		{"duplicate index", &Function{Name: "f", Visibility: Public, Statements: []Statement{
			&Return{Index: 1}, &Return{Index: 1},
		}}, errors.ErrorMalformedStatement},
		{"anonymous call", &Function{Name: "f", Visibility: Public, Statements: []Statement{
			&Call{Index: 0, Args: []Value{amount}},
		}}, errors.ErrorMalformedStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.fn == nil {
				var fn *Function
				err = fn.Validate()
			} else {
				err = tt.fn.Validate()
			}
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestValidateDetectsCycles(t *testing.T) {
	loop := &BinaryOp{Op: "+", Right: NewConstant(1)}
	loop.Left = loop

	fn := &Function{Name: "f", Visibility: External, Statements: []Statement{
		&Assignment{Index: 0, Target: "x", Value: loop},
	}}
	err := fn.Validate()
	assert.True(t, errors.IsCode(err, errors.ErrorCyclicDefinition))

	shared := &Parameter{Name: "a"}
	dag := &BinaryOp{Op: "+", Left: shared, Right: shared}
	fn.Statements = []Statement{&Assignment{Index: 0, Target: "x", Value: dag}}
	assert.NoError(t, fn.Validate())
}

func TestConstantOnly(t *testing.T) {
	assert.True(t, ConstantOnly(&BinaryOp{Op: "*", Left: NewConstant(2), Right: NewConstant(3)}))
	assert.False(t, ConstantOnly(&BinaryOp{Op: "*", Left: NewConstant(2), Right: &Parameter{Name: "a"}}))
	assert.False(t, ConstantOnly(&Unresolved{Text: "x"}))
}

func TestSameAndSelf(t *testing.T) {
	a := &StateRead{Name: "reserve"}
	b := &StateRead{Name: "reserve"}
	assert.True(t, Same(a, b))
	assert.False(t, Same(a, &StateRead{Name: "cash"}))
	assert.False(t, Same(a, nil))
	assert.False(t, Same(a, &StateRead{Name: "reserve", Version: 1}), "a write separates the reads")

	sender := func() Value { return &Environment{Name: EnvSender} }
	assert.True(t, Same(
		&StateRead{Name: "pending", Keys: []Value{sender()}},
		&StateRead{Name: "pending", Keys: []Value{sender()}}))
	a1 := &Parameter{Name: "a"}
	assert.True(t, Same(
		&BinaryOp{Op: "-", Left: a1, Right: NewConstant(1)},
		&BinaryOp{Op: "-", Left: a1, Right: NewConstant(1)}))
	assert.False(t, Same(a1, &Parameter{Name: "a"}), "parameters match by identity")

	u := &Unresolved{Text: "amounts[i]"}
	assert.False(t, Same(u, u))
	c := &Call{Name: "quote"}
	assert.False(t, Same(&CallResult{Call: c}, &CallResult{Call: &Call{Name: "quote"}}))

	assert.True(t, IsSelf(&Environment{Name: EnvSelf}))
	assert.False(t, IsSelf(&Environment{Name: EnvSender}))
	assert.True(t, IsSender(&Environment{Name: EnvOrigin}))
}

func TestVisibilityAndMutability(t *testing.T) {
	assert.True(t, Public.Callable())
	assert.True(t, External.Callable())
	assert.False(t, Internal.Callable())
	assert.False(t, Private.Callable())
	assert.True(t, View.ReadOnly())
	assert.False(t, Payable.ReadOnly())
}

func TestCallSignature(t *testing.T) {
	c := &Call{Name: "transfer", ArgTypes: []string{"address", "uint256"}}
	sig, ok := c.Signature()
	assert.True(t, ok)
	assert.Equal(t, "transfer(address,uint256)", sig)

	c.ArgTypes[0] = ""
	_, ok = c.Signature()
	assert.False(t, ok)

	raw := &Call{Selector: "0xa9059cbb"}
	assert.Equal(t, "0xa9059cbb", raw.Callee())
	_, ok = raw.Signature()
	assert.False(t, ok)
}

func TestFunctionSignature(t *testing.T) {
	fn := &Function{Name: "withdraw", Params: []*Parameter{
		{Name: "amount", Type: "uint"},
		{Name: "to", Type: "IERC20"},
	}}
	assert.Equal(t, "withdraw(uint256,address)", fn.Signature())
	assert.Equal(t, "ping()", (&Function{Name: "ping"}).Signature())
}
