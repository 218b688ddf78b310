package store

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reserveguard/internal/analysis"
	"reserveguard/internal/errors"
	"reserveguard/internal/report"
)

var log = commonlog.GetLogger("reserveguard.store")

var vulnerableClass = string(analysis.Vulnerable)

// ErrRunNotFound is returned when a run id has no record
var ErrRunNotFound = stderrors.New("run not found")

// Store keeps scan history in a SQLite database
type Store struct {
	db *gorm.DB
}

// NewRunID returns a fresh identifier for a scan
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("[%s] failed to create database directory: %w", errors.ErrorStorage, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] failed to open SQLite database: %w", errors.ErrorStorage, err)
	}
	if err := db.AutoMigrate(&Run{}, &FindingRecord{}); err != nil {
		return nil, fmt.Errorf("[%s] failed to migrate history tables: %w", errors.ErrorStorage, err)
	}
	log.Debugf("opened history database %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun persists a report and its findings in one transaction.
// A report without a run id is assigned one.
func (s *Store) SaveRun(r *report.Report) (*Run, error) {
	if r.RunID == "" {
		r.RunID = NewRunID()
	}
	run := &Run{
		ID:         r.RunID,
		StartedAt:  r.ScanTime,
		DurationMS: r.Duration.Milliseconds(),
		Sources:    strings.Join(r.Sources, ","),
		Rules:      r.Rules,
		Contracts:  r.Contracts,
		Functions:  r.Functions,
		Sites:      r.Sites,
		Vulnerable: r.Vulnerable(),
		Errors:     len(r.Errors),
	}
	for i, f := range r.Findings {
		run.Findings = append(run.Findings, FindingRecord{
			RunID:          r.RunID,
			Position:       i,
			Contract:       f.Contract,
			Address:        f.Address,
			Function:       f.Function,
			StatementIndex: f.Index,
			Line:           f.Line,
			Signature:      f.Signature,
			Call:           f.Call,
			Amount:         f.Amount,
			Classification: string(f.Classification),
			Severity:       string(f.Severity),
			Evidence:       f.Evidence,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] failed to save run %s: %w", errors.ErrorStorage, r.RunID, err)
	}
	log.Infof("saved run %s with %d findings", run.ID, len(run.Findings))
	return run, nil
}

// Runs returns the most recent runs first, without their findings
func (s *Store) Runs(limit int) ([]Run, error) {
	var runs []Run
	q := s.db.Order("started_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("[%s] failed to list runs: %w", errors.ErrorStorage, err)
	}
	return runs, nil
}

// Run loads one run with its findings in report order
func (s *Store) Run(id string) (*Run, error) {
	var run Run
	err := s.db.Preload("Findings", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).First(&run, "id = ?", id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("[%s] %w: %s", errors.ErrorStorage, ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("[%s] failed to load run %s: %w", errors.ErrorStorage, id, err)
	}
	return &run, nil
}

// Diff lists the VULNERABLE findings that appeared and disappeared between two runs
type Diff struct {
	Introduced []FindingRecord
	Resolved   []FindingRecord
}

func (s *Store) Diff(fromID, toID string) (*Diff, error) {
	from, err := s.Run(fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.Run(toID)
	if err != nil {
		return nil, err
	}

	before := vulnerable(from.Findings)
	after := vulnerable(to.Findings)
	d := &Diff{}
	for _, f := range to.Findings {
		if _, ok := before[f.fingerprint()]; !ok && f.Classification == vulnerableClass {
			d.Introduced = append(d.Introduced, f)
		}
	}
	for _, f := range from.Findings {
		if _, ok := after[f.fingerprint()]; !ok && f.Classification == vulnerableClass {
			d.Resolved = append(d.Resolved, f)
		}
	}
	return d, nil
}

func vulnerable(findings []FindingRecord) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range findings {
		if f.Classification == vulnerableClass {
			out[f.fingerprint()] = struct{}{}
		}
	}
	return out
}
