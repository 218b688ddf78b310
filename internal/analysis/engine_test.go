package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserveguard/internal/errors"
	"reserveguard/internal/ir"
	"reserveguard/internal/rules"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(rules.Default())
	require.NoError(t, err)
	return e
}

func model(t *testing.T, src string) []*ir.Contract {
	t.Helper()
	contracts, err := ir.ParseModel("test.rg", src)
	require.NoError(t, err)
	return contracts
}

func analyze(t *testing.T, src string) *Result {
	t.Helper()
	res, err := newEngine(t).Analyze(context.Background(), model(t, src))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	return res
}

const borrowUnguarded = `
contract LendingPool {
    state IERC20 token;
    state IERC721 collateral;
    state uint256 poolBorrowed;
    function borrow(uint256 amount, uint256 maxRate, uint256 tokenId) external {
        require(maxRate <= 5000);
        collateral.safeTransferFrom(msg.sender, address(this), tokenId);
        poolBorrowed += amount;
        token.transfer(msg.sender, amount);
    }
}`

const borrowGuarded = `
contract LendingPool {
    state IERC20 token;
    state IERC721 collateral;
    state uint256 poolBorrowed;
    function borrow(uint256 amount, uint256 maxRate, uint256 tokenId) external {
        require(maxRate <= 5000);
        collateral.safeTransferFrom(msg.sender, address(this), tokenId);
        poolBorrowed += amount;
        require(token.balanceOf(address(this)) >= amount);
        token.transfer(msg.sender, amount);
    }
}`

func TestBorrowWithoutReserveCheck(t *testing.T) {
	res := analyze(t, borrowUnguarded)

	findings := res.Findings.Findings()
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, Vulnerable, f.Classification)
	assert.Equal(t, Critical, f.Severity)
	assert.Equal(t, "transfer(address,uint256)", f.Signature)
	assert.Equal(t, "amount", f.Amount)
	assert.Equal(t, "msg.sender", f.Recipient)
	assert.Equal(t, 10, f.Line)
	assert.Equal(t, "LendingPool", f.Contract)
	assert.Equal(t, "borrow", f.Function)
	assert.Contains(t, f.Evidence, "no dominating guard bounds amount")

	assert.Equal(t, 2, res.Sites)
	assert.Equal(t, 1, res.Skipped[ReasonSafeWrapper])
}

func TestBorrowWithReserveCheck(t *testing.T) {
	res := analyze(t, borrowGuarded)

	assert.Empty(t, res.Findings.Vulnerable())
	safe := res.Findings.Safe()
	require.Len(t, safe, 1)
	assert.Equal(t, Info, safe[0].Severity)
	assert.Equal(t, 11, safe[0].Line)
	assert.Equal(t, "bounded by amount <= token.balanceOf(self) at line 10", safe[0].Evidence)
}

func TestNoTransferNoFindings(t *testing.T) {
	res := analyze(t, `
contract Pool {
    state uint256 total;
    function account(uint256 amount) external {
        total += amount;
        emit Accounted(msg.sender, amount);
        token.approve(msg.sender, amount);
    }
}`)
	assert.Equal(t, 0, res.Findings.Len())
	assert.Equal(t, 0, res.Sites)
}

func TestConstantAmountsAreSkipped(t *testing.T) {
	res := analyze(t, `
contract Pool {
    function f(address to) external {
        token.transfer(to, 0);
        uint256 none = 0;
        token.transfer(to, none);
        token.transfer(to, type(uint256).max);
    }
}`)
	assert.Equal(t, 0, res.Findings.Len())
	assert.Equal(t, 2, res.Skipped[ReasonConstantZero])
	assert.Equal(t, 1, res.Skipped[ReasonConstantMax])
}

func TestSafeWrapperSkippedRegardlessOfGuard(t *testing.T) {
	for _, guard := range []string{"", "require(nft.balanceOf(address(this)) >= id);"} {
		res := analyze(t, fmt.Sprintf(`
contract Pool {
    function f(address to, uint256 id) external {
        %s
        nft.safeTransferFrom(address(this), to, id);
    }
}`, guard))
		assert.Equal(t, 0, res.Findings.Len())
		assert.Equal(t, 1, res.Skipped[ReasonSafeWrapper])
	}

	res := analyze(t, `
contract Pool {
    function safeTransferOut(address to, uint256 amount) external {
        token.transfer(to, amount);
    }
}`)
	assert.Equal(t, 0, res.Findings.Len())
	assert.Equal(t, 1, res.Skipped[ReasonSafeWrapper])
}

func TestEarlyExitReserveCheck(t *testing.T) {
	res := analyze(t, `
contract Pool {
    function withdraw(uint256 amount) external {
        uint256 available = token.balanceOf(address(this));
        if (amount > available) {
            revert InsufficientLiquidity();
        }
        require(token.transfer(msg.sender, amount));
    }
}`)
	findings := res.Findings.Findings()
	require.Len(t, findings, 1)
	assert.Equal(t, Safe, findings[0].Classification)
	assert.True(t, findings[0].CheckedReturn)
}

func TestGuardOnOtherQuantityDoesNotCount(t *testing.T) {
	res := analyze(t, `
contract Pool {
    state uint256 interestRate;
    state mapping(address => uint256) collateralOf;
    function borrow(uint256 amount) external {
        require(amount <= collateralOf[msg.sender] * 2);
        require(amount * interestRate <= 1000);
        require(token.balanceOf(msg.sender) >= amount);
        token.transfer(msg.sender, amount);
    }
}`)
	v := res.Findings.Vulnerable()
	require.Len(t, v, 1)
	assert.Contains(t, v[0].Evidence, "guards on other quantities")
	assert.Contains(t, v[0].Evidence, "((amount * interestRate) <= 1000)")
}

func TestGuardInOneArmDoesNotDominate(t *testing.T) {
	res := analyze(t, `
contract Pool {
    function f(uint256 amount, bool fast) external {
        if (fast) {
            require(amount <= address(this).balance);
        }
        payable(msg.sender).transfer(amount);
    }
}`)
	v := res.Findings.Vulnerable()
	require.Len(t, v, 1)
	assert.Equal(t, "transfer(uint256)", v[0].Signature)
	assert.Equal(t, "msg.sender", v[0].Recipient)
}

func TestNativeBalanceGuard(t *testing.T) {
	res := analyze(t, `
contract Pool {
    function f(uint256 amount) external {
        require(address(this).balance >= amount);
        payable(msg.sender).transfer(amount);
    }
}`)
	require.Len(t, res.Findings.Safe(), 1)

	rs := rules.Default()
	off := false
	rs.Reserves.NativeBalance = &off
	e, err := New(rs)
	require.NoError(t, err)
	out, err := e.Analyze(context.Background(), model(t, `
contract Pool {
    function f(uint256 amount) external {
        require(address(this).balance >= amount);
        payable(msg.sender).transfer(amount);
    }
}`))
	require.NoError(t, err)
	assert.Len(t, out.Findings.Vulnerable(), 1)
}

func TestPrivilegedFunctionsAreSkipped(t *testing.T) {
	res := analyze(t, `
contract Pool {
    state address owner;
    function a(address to, uint256 amount) external onlyOwner {
        token.transfer(to, amount);
    }
    function b(address to, uint256 amount) external {
        require(msg.sender == owner, "auth");
        token.transfer(to, amount);
    }
    function c(address to, uint256 amount) external {
        if (msg.sender != owner()) { revert(); }
        token.transfer(to, amount);
    }
    function d(address to, uint256 amount) external {
        _checkRole(ADMIN);
        token.transfer(to, amount);
    }
    function e(address to, uint256 amount) external {
        require(msg.sender == beneficiary);
        token.transfer(to, amount);
    }
}`)
	v := res.Findings.Vulnerable()
	require.Len(t, v, 1)
	assert.Equal(t, "e", v[0].Function)
	assert.Equal(t, 4, res.Skipped[ReasonPrivileged])
}

func TestUnenforcedPrivilegeChecksDoNotSkip(t *testing.T) {
	res := analyze(t, `
contract Pool {
    state uint256 fee;
    function a(uint256 amount) external {
        bool admin = hasRole(0x00, msg.sender);
        token.transfer(msg.sender, amount);
    }
    function b(uint256 amount) external {
        if (isOwner(msg.sender)) {
            fee = 0;
        }
        token.transfer(msg.sender, amount);
    }
    function c(uint256 amount) external {
        require(hasRole(0x00, msg.sender));
        token.transfer(msg.sender, amount);
    }
    function d(uint256 amount) external {
        if (!isOwner(msg.sender)) {
            revert();
        }
        token.transfer(msg.sender, amount);
    }
}`)
	v := res.Findings.Vulnerable()
	require.Len(t, v, 2)
	assert.Equal(t, "a", v[0].Function)
	assert.Equal(t, Critical, v[0].Severity)
	assert.Equal(t, "b", v[1].Function)
	assert.Equal(t, 2, res.Skipped[ReasonPrivileged])
}

func TestStateWriteBetweenGuardAndTransfer(t *testing.T) {
	res := analyze(t, `
contract Pool {
    state mapping(address => uint256) pending;
    function claim(uint256 amount) external {
        require(pending[msg.sender] <= token.balanceOf(address(this)));
        pending[msg.sender] = amount;
        token.transfer(msg.sender, pending[msg.sender]);
    }
    function settle() external {
        require(pending[msg.sender] <= token.balanceOf(address(this)));
        token.transfer(msg.sender, pending[msg.sender]);
    }
}`)
	v := res.Findings.Vulnerable()
	require.Len(t, v, 1)
	assert.Equal(t, "claim", v[0].Function)
	assert.Equal(t, Critical, v[0].Severity)

	safe := res.Findings.Safe()
	require.Len(t, safe, 1)
	assert.Equal(t, "settle", safe[0].Function)
}

func TestOverloadsAreReportedSeparately(t *testing.T) {
	res := analyze(t, `
contract Pool {
    function withdraw(uint256 amount) external {
        token.transfer(msg.sender, amount);
    }
    function withdraw(uint256 amount, address to) external {
        token.transfer(to, amount);
    }
}`)
	v := res.Findings.Vulnerable()
	require.Len(t, v, 2)
	assert.Equal(t, "withdraw(uint256)", v[0].Overload)
	assert.Equal(t, "withdraw(uint256,address)", v[1].Overload)
	assert.Equal(t, v[0].Index, v[1].Index)
}

func TestUnreachableTransfersAreSkipped(t *testing.T) {
	res := analyze(t, `
contract Pool {
    function a(uint256 amount) external {
        revert("disabled");
        token.transfer(msg.sender, amount);
    }
    function b(uint256 amount) external {
        require(false);
        token.transfer(msg.sender, amount);
    }
    function c(uint256 amount, bool open) external {
        if (open) {
            return;
        } else {
            revert();
        }
        token.transfer(msg.sender, amount);
    }
}`)
	assert.Equal(t, 0, res.Findings.Len())
	assert.Equal(t, 3, res.Skipped[ReasonUnreachable])
}

func TestInternalTransferIsHigh(t *testing.T) {
	res := analyze(t, `
contract Pool {
    function _payout(address to, uint256 amount) internal {
        token.transfer(to, amount);
    }
}`)
	v := res.Findings.Vulnerable()
	require.Len(t, v, 1)
	assert.Equal(t, High, v[0].Severity)
}

func TestInboundAndReadOnlySkipped(t *testing.T) {
	res := analyze(t, `
contract Pool {
    function deposit(uint256 amount) external {
        token.transferFrom(msg.sender, address(this), amount);
    }
    function preview(address to, uint256 amount) external view {
        token.transfer(to, amount);
    }
}`)
	assert.Equal(t, 0, res.Findings.Len())
	assert.Equal(t, 1, res.Skipped[ReasonInbound])
	assert.Equal(t, 1, res.Skipped[ReasonReadOnly])
}

func TestOptionalSkips(t *testing.T) {
	src := `
contract Pool {
    function f(address to, uint256 amount) external {
        require(token.transfer(to, amount));
        token.transfer(to, 10 * 1e18);
    }
}`
	assert.Len(t, analyze(t, src).Findings.Vulnerable(), 2)

	rs := rules.Default()
	rs.SkipCheckedReturns = true
	rs.SkipConstantAmounts = true
	e, err := New(rs)
	require.NoError(t, err)
	res, err := e.Analyze(context.Background(), model(t, src))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Findings.Len())
	assert.Equal(t, 1, res.Skipped[ReasonCheckedReturn])
	assert.Equal(t, 1, res.Skipped[ReasonConstantAmount])
}

func TestCandidateFunctions(t *testing.T) {
	rs := rules.Default()
	rs.CandidateFunctions = []string{"withdraw*"}
	e, err := New(rs)
	require.NoError(t, err)

	res, err := e.Analyze(context.Background(), model(t, `
contract Pool {
    function withdrawAll(address to, uint256 amount) external { token.transfer(to, amount); }
    function pay(address to, uint256 amount) external { token.transfer(to, amount); }
}`))
	require.NoError(t, err)
	v := res.Findings.Vulnerable()
	require.Len(t, v, 1)
	assert.Equal(t, "withdrawAll", v[0].Function)
	assert.Equal(t, 1, res.Skipped[ReasonNotCandidate])
}

func TestInvalidFunctionIsIsolated(t *testing.T) {
	contracts := model(t, `
contract Pool {
    function a(address to, uint256 amount) external { token.transfer(to, amount); }
    function b(address to, uint256 amount) external;
    function c(address to, uint256 amount) external { token.transfer(to, amount); }
}`)
	contracts[0].Functions = append(contracts[0].Functions, nil)

	res, err := newEngine(t).Analyze(context.Background(), contracts)
	require.NoError(t, err)

	require.Len(t, res.Errors, 2)
	assert.True(t, errors.IsCode(res.Errors[0], errors.ErrorMissingBody))
	assert.True(t, errors.IsCode(res.Errors[1], errors.ErrorMissingFunction))

	v := res.Findings.Vulnerable()
	require.Len(t, v, 2)
	assert.Equal(t, "a", v[0].Function)
	assert.Equal(t, "c", v[1].Function)
}

func TestEmptyInputIsNotAnError(t *testing.T) {
	res, err := newEngine(t).Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Findings.Len())
	assert.Empty(t, res.Errors)

	out, err := json.Marshal(res.Findings)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestAnalysisIsDeterministic(t *testing.T) {
	var b strings.Builder
	b.WriteString("contract Pool {\n")
	for i := 0; i < 64; i++ {
		guard := ""
		if i%3 == 0 {
			guard = "require(amount <= reserveBalance);"
		}
		fmt.Fprintf(&b, "    function f%d(address to, uint256 amount) external { %s token.transfer(to, amount); }\n", i, guard)
	}
	b.WriteString("    state uint256 reserveBalance;\n}\n")
	src := b.String()

	rs := rules.Default()
	rs.Workers = 8
	e, err := New(rs)
	require.NoError(t, err)

	run := func() []byte {
		res, err := e.Analyze(context.Background(), model(t, src))
		require.NoError(t, err)
		out, err := json.Marshal(res.Findings)
		require.NoError(t, err)
		return out
	}

	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, string(first), string(run()))
	}

	var findings []*Finding
	require.NoError(t, json.Unmarshal(first, &findings))
	require.Len(t, findings, 64)
	for i, f := range findings {
		assert.Equal(t, fmt.Sprintf("f%d", i), f.Function)
		if i%3 == 0 {
			assert.Equal(t, Safe, f.Classification)
		} else {
			assert.Equal(t, Vulnerable, f.Classification)
		}
	}
}

func TestAnalyzeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(t).Analyze(ctx, model(t, borrowUnguarded))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLendingExample(t *testing.T) {
	contracts, err := ir.LoadModel("../../examples/lending.rg")
	require.NoError(t, err)

	res, err := newEngine(t).Analyze(context.Background(), contracts)
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	findings := res.Findings.Findings()
	require.Len(t, findings, 2)

	assert.Equal(t, "borrow", findings[0].Function)
	assert.Equal(t, Vulnerable, findings[0].Classification)
	assert.Equal(t, Critical, findings[0].Severity)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", findings[0].Address)
	assert.Equal(t, 19, findings[0].Line)

	assert.Equal(t, "withdraw", findings[1].Function)
	assert.Equal(t, Safe, findings[1].Classification)
	assert.Equal(t, "bounded by amount <= token.balanceOf(self) at line 24", findings[1].Evidence)

	assert.Equal(t, 1, res.Skipped[ReasonInbound])
	assert.Equal(t, 1, res.Skipped[ReasonPrivileged])
	assert.Equal(t, 1, res.Skipped[ReasonConstantZero])
	assert.Equal(t, 1, res.Skipped[ReasonSafeWrapper])
}
