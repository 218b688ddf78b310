package report

import (
	"encoding/json"
	"io"

	"reserveguard/internal/analysis"
)

// Record is one entry of the JSON finding list consumed by accuracy tooling
type Record struct {
	Contract       string `json:"contract"`
	Address        string `json:"address"`
	Function       string `json:"function"`
	Line           int    `json:"line"`
	Location       string `json:"location"`
	Signature      string `json:"signature"`
	Amount         string `json:"amount"`
	Classification string `json:"classification"`
	Severity       string `json:"severity"`
	Evidence       string `json:"evidence"`
}

// Records converts findings into the ordered record list
func Records(findings []*analysis.Finding) []Record {
	out := make([]Record, 0, len(findings))
	for _, f := range findings {
		out = append(out, Record{
			Contract:       f.Contract,
			Address:        f.Address,
			Function:       f.Function,
			Line:           f.Line,
			Location:       f.Location(),
			Signature:      f.Signature,
			Amount:         f.Amount,
			Classification: string(f.Classification),
			Severity:       string(f.Severity),
			Evidence:       f.Evidence,
		})
	}
	return out
}

// WriteJSON writes the findings as an indented JSON list
func WriteJSON(w io.Writer, findings []*analysis.Finding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Records(findings))
}

// ReadJSON reads a finding list written by WriteJSON
func ReadJSON(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

type JSONGenerator struct{}

func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

func (g *JSONGenerator) Extension() string { return "json" }

func (g *JSONGenerator) Generate(report *Report) (string, error) {
	out, err := json.MarshalIndent(Records(report.Findings), "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}
