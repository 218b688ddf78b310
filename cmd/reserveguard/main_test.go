// SPDX-License-Identifier: Apache-2.0
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lendingModel = "../../examples/lending.rg"

func TestScanExitCodes(t *testing.T) {
	color.NoColor = true

	assert.Equal(t, exitFindings, runScan([]string{"-json", lendingModel}))
	assert.Equal(t, exitOK, runScan([]string{"-json", "-fail=false", lendingModel}))
	assert.Equal(t, exitError, runScan(nil))
	assert.Equal(t, exitError, runScan([]string{filepath.Join(t.TempDir(), "missing.rg")}))

	broken := filepath.Join(t.TempDir(), "broken.rg")
	require.NoError(t, os.WriteFile(broken, []byte("contract Pool {\n    state IERC20 token\n}"), 0644))
	assert.Equal(t, exitError, runScan([]string{broken}))

	clean := filepath.Join(t.TempDir(), "clean.rg")
	require.NoError(t, os.WriteFile(clean, []byte(`
contract Vault {
    function withdraw(uint256 amount) external {
        require(amount <= token.balanceOf(address(this)));
        token.transfer(msg.sender, amount);
    }
}`), 0644))
	assert.Equal(t, exitOK, runScan([]string{clean}))
}

func TestScanWritesArtifacts(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	metrics := filepath.Join(dir, "scan.prom")
	reports := filepath.Join(dir, "reports")

	code := runScan([]string{"-db", db, "-metrics", metrics, "-out", reports, "-format", "json", lendingModel})
	assert.Equal(t, exitFindings, code)

	assert.FileExists(t, db)
	assert.FileExists(t, metrics)
	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))

	assert.Equal(t, exitOK, runHistory([]string{"-db", db}))
	assert.Equal(t, exitError, runHistory([]string{"-db", db, "-diff", "only-one"}))
}

func TestBenchAndRulesCommands(t *testing.T) {
	color.NoColor = true
	assert.Equal(t, exitOK, runBench([]string{"../../examples/benchmark.yaml"}))
	assert.Equal(t, exitError, runBench(nil))

	assert.Equal(t, exitOK, runRules(nil))
	assert.Equal(t, exitOK, runRules([]string{"-table"}))
	assert.Equal(t, exitError, runRules([]string{"-rules", filepath.Join(t.TempDir(), "none.yaml")}))
}
