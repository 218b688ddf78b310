package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserveguard/internal/analysis"
	"reserveguard/internal/ir"
	"reserveguard/internal/rules"
)

const poolSource = `contract Pool at 0x01 {
    state IERC20 token;
    function borrow(uint256 amount) external {
        token.transfer(msg.sender, amount);
    }
    function withdraw(uint256 amount) external {
        require(token.balanceOf(address(this)) >= amount);
        token.transfer(msg.sender, amount);
    }
    function ping() external {
        token.transfer(msg.sender, 0);
    }
    function broken() external;
}`

func scan(t *testing.T) ([]*ir.Contract, *analysis.Result) {
	t.Helper()
	contracts, err := ir.ParseModel("pool.rg", poolSource)
	require.NoError(t, err)
	e, err := analysis.New(rules.Default())
	require.NoError(t, err)
	res, err := e.Analyze(context.Background(), contracts)
	require.NoError(t, err)
	return contracts, res
}

func TestWriteJSONRecords(t *testing.T) {
	_, res := scan(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res.Findings.Findings()))

	records, err := ReadJSON(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		Contract:       "Pool",
		Address:        "0x01",
		Function:       "borrow",
		Line:           4,
		Location:       "Pool.borrow:4",
		Signature:      "transfer(address,uint256)",
		Amount:         "amount",
		Classification: "VULNERABLE",
		Severity:       "CRITICAL",
		Evidence:       "no dominating guard bounds amount by a reserve",
	}, records[0])
	assert.Equal(t, "SAFE", records[1].Classification)
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestMarkdownReport(t *testing.T) {
	_, res := scan(t)
	r := NewReport("run-1", []string{"pool.rg"}, "default", res)

	out, err := NewMarkdownGenerator().Generate(r)
	require.NoError(t, err)

	assert.Contains(t, out, "# Reserveguard Scan Report")
	assert.Contains(t, out, "**Run**: run-1")
	assert.Contains(t, out, "- **Functions**: 4")
	assert.Contains(t, out, "- **Vulnerable**: 1")
	assert.Contains(t, out, "- **CRITICAL**: 1")
	assert.Contains(t, out, "- `constant_zero`: 1")
	assert.Contains(t, out, "| 1 | VULNERABLE | CRITICAL | `Pool.borrow:4` | `token.transfer(msg.sender, amount)` | `amount` |")
	assert.Contains(t, out, "### 1. Pool.borrow:4")
	assert.Contains(t, out, "## Skipped Functions")
	assert.Less(t, strings.Index(out, "CRITICAL"), strings.Index(out, "INFO"))
}

func TestReporterSavesAtomically(t *testing.T) {
	_, res := scan(t)
	r := NewReport("run/../2", nil, "", res)
	dir := filepath.Join(t.TempDir(), "reports")

	gen, err := GeneratorFor("json")
	require.NoError(t, err)
	path, err := NewReporter(gen, NewFileStorage(dir)).GenerateAndSave(r)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "reserveguard_run_.._2.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	_, err = GeneratorFor("pdf")
	assert.Error(t, err)
}

func TestSanitizeFilenameComponent(t *testing.T) {
	assert.Equal(t, "unknown", sanitizeFilenameComponent("  "))
	assert.Equal(t, "a_b", sanitizeFilenameComponent("a b"))
	assert.Equal(t, "unknown", sanitizeFilenameComponent("..."))
}

func TestConsoleFindings(t *testing.T) {
	color.NoColor = true
	contracts, res := scan(t)

	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.AddSource("pool.rg", poolSource, contracts)
	c.Findings(res.Findings.Findings())
	c.Errors(res.Errors)
	c.Summary(res)
	out := buf.String()

	assert.Contains(t, out, "error[RG0300]")
	assert.Contains(t, out, "pool.rg:4")
	assert.Contains(t, out, "token.transfer(msg.sender, amount);")
	assert.NotContains(t, out, "RG0302", "safe findings are hidden by default")
	assert.Contains(t, out, "warning[RG0003]")
	assert.Contains(t, out, "1 unguarded transfer(s) in 4 functions (3 transfer sites)")
	assert.Contains(t, out, "skipped constant_zero")

	buf.Reset()
	c.ShowSafe = true
	c.Findings(res.Findings.Findings())
	assert.Contains(t, buf.String(), "note[RG0302]")
}

func TestConsoleParseError(t *testing.T) {
	color.NoColor = true
	src := "contract Pool {\n    state IERC20 token\n}"
	_, err := ir.ParseModel("pool.rg", src)
	require.Error(t, err)

	var buf bytes.Buffer
	NewConsole(&buf).ParseError("pool.rg", src, err)
	out := buf.String()
	assert.Contains(t, out, "error[RG0100]")
	assert.Contains(t, out, "pool.rg:3:1")
	assert.Contains(t, out, "}")

	buf.Reset()
	NewConsole(&buf).ParseError("pool.rg", src, assert.AnError)
	assert.Contains(t, buf.String(), "Unexpected error")
}
