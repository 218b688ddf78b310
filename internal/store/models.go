package store

import (
	"time"
)

// Run is one persisted scan
type Run struct {
	ID         string          `gorm:"column:id;primaryKey"`
	StartedAt  time.Time       `gorm:"column:started_at;index"`
	DurationMS int64           `gorm:"column:duration_ms"`
	Sources    string          `gorm:"column:sources"`
	Rules      string          `gorm:"column:rules"`
	Contracts  int             `gorm:"column:contracts"`
	Functions  int             `gorm:"column:functions"`
	Sites      int             `gorm:"column:sites"`
	Vulnerable int             `gorm:"column:vulnerable"`
	Errors     int             `gorm:"column:errors"`
	Findings   []FindingRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (Run) TableName() string { return "runs" }

func (r Run) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// FindingRecord is a finding as stored for a run
type FindingRecord struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID          string `gorm:"column:run_id;index"`
	Position       int    `gorm:"column:position"`
	Contract       string `gorm:"column:contract"`
	Address        string `gorm:"column:address"`
	Function       string `gorm:"column:function"`
	StatementIndex int    `gorm:"column:statement_index"`
	Line           int    `gorm:"column:line"`
	Signature      string `gorm:"column:signature"`
	Call           string `gorm:"column:call"`
	Amount         string `gorm:"column:amount"`
	Classification string `gorm:"column:classification"`
	Severity       string `gorm:"column:severity"`
	Evidence       string `gorm:"column:evidence"`
}

func (FindingRecord) TableName() string { return "findings" }

// fingerprint identifies a site across runs; statement indexes shift when a
// model is edited, so the call text stands in for them
func (f FindingRecord) fingerprint() string {
	return f.Contract + "." + f.Function + "|" + f.Signature + "|" + f.Call + "|" + f.Amount
}
