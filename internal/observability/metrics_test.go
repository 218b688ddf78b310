package observability

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserveguard/internal/analysis"
	"reserveguard/internal/ir"
	"reserveguard/internal/rules"
)

const model = `contract Pool {
    state IERC20 token;
    function borrow(uint256 amount) external {
        token.transfer(msg.sender, amount);
        token.transfer(msg.sender, 0);
    }
    function withdraw(uint256 amount) external {
        require(amount <= token.balanceOf(address(this)));
        token.transfer(msg.sender, amount);
    }
    function broken() external;
}`

func TestObserveRun(t *testing.T) {
	contracts, err := ir.ParseModel("pool.rg", model)
	require.NoError(t, err)
	e, err := analysis.New(rules.Default())
	require.NoError(t, err)
	res, err := e.Analyze(context.Background(), contracts)
	require.NoError(t, err)

	m := NewMetrics()
	m.ObserveRun(res, 250*time.Millisecond)
	m.ObserveRun(res, 250*time.Millisecond)

	path := filepath.Join(t.TempDir(), "reserveguard.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "reserveguard_functions_analyzed_total 6")
	assert.Contains(t, out, "reserveguard_invalid_functions_total 2")
	assert.Contains(t, out, "reserveguard_transfer_sites_total 6")
	assert.Contains(t, out, `reserveguard_findings_total{classification="VULNERABLE",severity="CRITICAL"} 2`)
	assert.Contains(t, out, `reserveguard_findings_total{classification="SAFE",severity="INFO"} 2`)
	assert.Contains(t, out, `reserveguard_skipped_sites_total{reason="constant_zero"} 2`)
	assert.Contains(t, out, "reserveguard_scan_seconds_count 2")
	assert.Contains(t, out, "reserveguard_scan_seconds_sum 0.5")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.TransferSites.Add(3)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "reserveguard_transfer_sites_total" {
			assert.Zero(t, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestWriteTextfileError(t *testing.T) {
	m := NewMetrics()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "out.prom"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RG0900")
}
