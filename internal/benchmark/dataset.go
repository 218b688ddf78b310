package benchmark

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Label is the expected verdict for one transfer site. Line is optional;
// without it the label covers every site of the function.
type Label struct {
	Contract   string `yaml:"contract" json:"contract"`
	Function   string `yaml:"function" json:"function"`
	Line       int    `yaml:"line,omitempty" json:"line,omitempty"`
	Vulnerable bool   `yaml:"vulnerable" json:"vulnerable"`
}

func (l Label) String() string {
	if l.Line > 0 {
		return fmt.Sprintf("%s.%s:%d", l.Contract, l.Function, l.Line)
	}
	return fmt.Sprintf("%s.%s", l.Contract, l.Function)
}

// Case is one model file with its labels
type Case struct {
	Name   string  `yaml:"name"`
	Model  string  `yaml:"model"`
	Expect []Label `yaml:"expect"`
}

type Dataset struct {
	Cases []Case `yaml:"cases"`
}

// LoadDataset reads a dataset file. Model paths are resolved relative to it.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range ds.Cases {
		if !filepath.IsAbs(ds.Cases[i].Model) {
			ds.Cases[i].Model = filepath.Join(base, ds.Cases[i].Model)
		}
	}
	return ds, nil
}

func ParseDataset(data []byte) (*Dataset, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	for i, c := range ds.Cases {
		if c.Model == "" {
			return nil, fmt.Errorf("case %d has no model", i)
		}
		if ds.Cases[i].Name == "" {
			ds.Cases[i].Name = filepath.Base(c.Model)
		}
		for _, l := range c.Expect {
			if l.Contract == "" || l.Function == "" {
				return nil, fmt.Errorf("case %s: label needs contract and function", ds.Cases[i].Name)
			}
		}
	}
	return &ds, nil
}
