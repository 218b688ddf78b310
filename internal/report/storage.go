package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Storage interface {
	Save(report *Report, ext, content string) (string, error)
}

// FileStorage writes reports into a directory, atomically per file
type FileStorage struct {
	OutputDir string
}

func NewFileStorage(outputDir string) *FileStorage {
	return &FileStorage{
		OutputDir: outputDir,
	}
}

func sanitizeFilenameComponent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := strings.Trim(b.String(), "._-")
	if out == "" {
		return "unknown"
	}
	return out
}

// Save writes content to reserveguard_<run>.<ext> and returns its path
func (s *FileStorage) Save(report *Report, ext, content string) (string, error) {
	if s.OutputDir == "" {
		s.OutputDir = "reports"
	}
	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	id := report.RunID
	if id == "" {
		id = report.ScanTime.Format("20060102T150405")
	}
	filename := fmt.Sprintf("reserveguard_%s.%s", sanitizeFilenameComponent(id), sanitizeFilenameComponent(ext))
	reportPath := filepath.Join(s.OutputDir, filename)
	if err := WriteFileAtomic(reportPath, []byte(content)); err != nil {
		return "", err
	}
	return reportPath, nil
}

// WriteFileAtomic writes data to a temporary file and renames it over path
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}
