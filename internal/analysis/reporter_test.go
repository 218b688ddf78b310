package analysis

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserveguard/internal/ir"
)

func TestCollectionKeepsFirstDiscovery(t *testing.T) {
	c := NewCollection()

	first := &Finding{Contract: "Pool", Function: "withdraw", Index: 3, Classification: Vulnerable, Severity: Critical}
	dup := &Finding{Contract: "Pool", Function: "withdraw", Index: 3, Classification: Safe, Severity: Info}
	other := &Finding{Contract: "Pool", Function: "withdraw", Index: 5, Classification: Safe, Severity: Info}

	assert.True(t, c.Add(first))
	assert.False(t, c.Add(dup))
	assert.False(t, c.Add(&Finding{Contract: "Pool", Function: "x", Classification: Skip}))
	assert.False(t, c.Add(nil))
	c.Merge([]*Finding{other})

	require.Equal(t, 2, c.Len())
	assert.Same(t, first, c.Findings()[0])
	assert.Same(t, other, c.Findings()[1])
	assert.Equal(t, []*Finding{first}, c.Vulnerable())
	assert.Equal(t, []*Finding{other}, c.Safe())
	assert.Equal(t, map[Severity]int{Critical: 1, Info: 1}, c.CountBySeverity())
}

func TestCollectionConcurrentAdd(t *testing.T) {
	c := NewCollection()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(&Finding{Contract: "Pool", Function: fmt.Sprintf("f%d", i%10), Index: i % 10, Classification: Vulnerable})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}

func TestCollectionJSON(t *testing.T) {
	c := NewCollection()
	c.Add(&Finding{
		Contract:       "Pool",
		Address:        "0x01",
		Function:       "borrow",
		Index:          4,
		Line:           12,
		Signature:      "transfer(address,uint256)",
		Amount:         "amount",
		Classification: Vulnerable,
		Severity:       Critical,
		Evidence:       "no dominating guard bounds amount by a reserve",
	})

	out, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Pool", decoded[0]["contract"])
	assert.Equal(t, "0x01", decoded[0]["address"])
	assert.Equal(t, "borrow", decoded[0]["function"])
	assert.Equal(t, float64(12), decoded[0]["line"])
	assert.Equal(t, "VULNERABLE", decoded[0]["classification"])
	assert.Equal(t, "CRITICAL", decoded[0]["severity"])
	assert.NotContains(t, decoded[0], "recipient")
}

func TestFindingLocation(t *testing.T) {
	f := &Finding{Contract: "Pool", Function: "borrow", Index: 2, Line: 19}
	assert.Equal(t, "Pool.borrow:19", f.Location())
	assert.Equal(t, Key{Contract: "Pool", Function: "borrow", Index: 2}, f.Key())

	f.Line = 0
	assert.Equal(t, "Pool.borrow#2", f.Location())

	f.Overload = "borrow(uint256)"
	assert.Equal(t, Key{Contract: "Pool", Function: "borrow(uint256)", Index: 2}, f.Key())
}

func TestSiteTransitions(t *testing.T) {
	newSite := func() *Site {
		return &Site{Function: &ir.Function{Contract: "Pool", Name: "f"}, Call: &ir.Call{Index: 1, Name: "transfer"}}
	}

	s := newSite()
	assert.Equal(t, Located, s.State())
	s.advance(Resolved)
	s.advance(Classified)
	assert.Equal(t, Classified, s.State())
	assert.Panics(t, func() { s.advance(Located) })

	s = newSite()
	s.advance(Skipped)
	assert.Panics(t, func() { s.advance(Resolved) })

	s = newSite()
	assert.Panics(t, func() { s.advance(Classified) }, "a located site must be skipped or resolved first")
	assert.Equal(t, "transfer", s.Signature())
}

func TestClassifyAdvancesSites(t *testing.T) {
	contracts := model(t, `
contract Pool {
    function f(address to, uint256 amount) external {
        token.transfer(to, 0);
        token.transfer(to, amount);
    }
}`)
	fn := contracts[0].Functions[0]
	e := newEngine(t)
	sites := e.locator.Locate(contracts[0], fn)
	require.Len(t, sites, 2)

	dom := ir.Dominators(fn)
	d := e.classifier.Classify(sites[0], dom[sites[0].Call.Index])
	assert.Equal(t, Skip, d.Classification)
	assert.Equal(t, ReasonConstantZero, d.Reason)

	d = e.classifier.Classify(sites[1], dom[sites[1].Call.Index])
	assert.Equal(t, Vulnerable, d.Classification)

	for _, s := range sites {
		assert.Equal(t, Classified, s.State())
		assert.Panics(t, func() { e.classifier.Classify(s, nil) }, "sites are classified once")
	}
}
