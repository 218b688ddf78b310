package analysis

import (
	"encoding/json"
	"sync"
)

// Collection is the ordered, deduplicated sink for findings.
// The first finding recorded for a key wins; SKIP decisions are never stored.
type Collection struct {
	mu       sync.Mutex
	findings []*Finding
	seen     map[Key]bool
}

func NewCollection() *Collection {
	return &Collection{seen: make(map[Key]bool)}
}

// Add records f and reports whether it was new
func (c *Collection) Add(f *Finding) bool {
	if f == nil || f.Classification == Skip {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := f.Key()
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	c.findings = append(c.findings, f)
	return true
}

// Merge adds findings in order
func (c *Collection) Merge(findings []*Finding) {
	for _, f := range findings {
		c.Add(f)
	}
}

// Findings returns the findings in first-discovery order
func (c *Collection) Findings() []*Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Finding, len(c.findings))
	copy(out, c.findings)
	return out
}

func (c *Collection) Vulnerable() []*Finding {
	return c.filter(Vulnerable)
}

func (c *Collection) Safe() []*Finding {
	return c.filter(Safe)
}

func (c *Collection) filter(class Classification) []*Finding {
	var out []*Finding
	for _, f := range c.Findings() {
		if f.Classification == class {
			out = append(out, f)
		}
	}
	return out
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.findings)
}

// CountBySeverity counts findings per severity
func (c *Collection) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range c.Findings() {
		counts[f.Severity]++
	}
	return counts
}

// MarshalJSON encodes the findings as an ordered list; an empty collection is []
func (c *Collection) MarshalJSON() ([]byte, error) {
	findings := c.Findings()
	if findings == nil {
		findings = []*Finding{}
	}
	return json.Marshal(findings)
}
