package report

import (
	"fmt"
)

type Reporter struct {
	generator Generator
	storage   Storage
}

func NewReporter(generator Generator, storage Storage) *Reporter {
	return &Reporter{
		generator: generator,
		storage:   storage,
	}
}

// GenerateAndSave renders the report and stores it, returning the file path
func (r *Reporter) GenerateAndSave(report *Report) (string, error) {
	content, err := r.generator.Generate(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	path, err := r.storage.Save(report, r.generator.Extension(), content)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}

// GeneratorFor returns the generator for an output format name
func GeneratorFor(format string) (Generator, error) {
	switch format {
	case "json":
		return NewJSONGenerator(), nil
	case "md", "markdown":
		return NewMarkdownGenerator(), nil
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}
