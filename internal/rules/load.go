package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"reserveguard/internal/errors"
)

//go:embed default.yaml
var defaultRules []byte

// Default returns a fresh copy of the built-in rule set
func Default() *RuleSet {
	rs, err := Decode(defaultRules, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rule set is invalid: %v", err))
	}
	return rs
}

// DefaultSource returns the embedded rule set as YAML text
func DefaultSource() string {
	return string(defaultRules)
}

type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the decoder for a rule file by extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("[%s] unsupported rule file %q: expected .yaml, .yml or .toml", errors.ErrorRuleDecode, path)
}

// Load reads, defaults and validates a rule file
func Load(path string) (*RuleSet, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rs, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Decode parses rule-set text in the given format
func Decode(data []byte, format Format) (*RuleSet, error) {
	var rs RuleSet
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rs); err != nil {
			return nil, fmt.Errorf("[%s] decoding yaml rule set: %w", errors.ErrorRuleDecode, err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &rs)
		if err != nil {
			return nil, fmt.Errorf("[%s] decoding toml rule set: %w", errors.ErrorRuleDecode, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("[%s] unknown rule set key %q", errors.ErrorRuleDecode, undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("[%s] unknown rule format %q", errors.ErrorRuleDecode, format)
	}

	applyDefaults(&rs)

	if err := validateVersion(&rs); err != nil {
		return nil, err
	}
	if err := validateSignatures("transfers", rs.Transfers); err != nil {
		return nil, err
	}
	if err := validateSignatures("safe_wrappers", rs.SafeWrappers); err != nil {
		return nil, err
	}
	if err := validateWorkers(&rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

func applyDefaults(rs *RuleSet) {
	if rs.Version == 0 {
		rs.Version = 1
	}
	if rs.Reserves.NativeBalance == nil {
		enabled := true
		rs.Reserves.NativeBalance = &enabled
	}
	if rs.Workers == 0 {
		rs.Workers = runtime.GOMAXPROCS(0)
	}
}

func validateVersion(rs *RuleSet) error {
	if rs.Version != 1 {
		return fmt.Errorf("[%s] unsupported rule set version %d", errors.ErrorRuleInvalid, rs.Version)
	}
	return nil
}

func validateSignatures(section string, sigs []Signature) error {
	seen := make(map[string]bool, len(sigs))
	for i, s := range sigs {
		name, params, err := ParseSignature(s.Signature)
		if err != nil {
			return fmt.Errorf("[%s] %s[%d]: %w", errors.ErrorRuleInvalid, section, i, err)
		}
		canonical := Canonical(name, params)
		if seen[canonical] {
			return fmt.Errorf("[%s] %s[%d]: duplicate signature %s", errors.ErrorRuleInvalid, section, i, canonical)
		}
		seen[canonical] = true

		if s.Amount != nil && (*s.Amount < 0 || *s.Amount >= len(params)) {
			return fmt.Errorf("[%s] %s[%d]: amount position %d out of range for %s",
				errors.ErrorRuleInvalid, section, i, *s.Amount, canonical)
		}
		if len(params) == 0 && s.Amount == nil {
			return fmt.Errorf("[%s] %s[%d]: %s has no amount argument", errors.ErrorRuleInvalid, section, i, canonical)
		}
		if s.Recipient != nil && (*s.Recipient < RecipientNone || *s.Recipient >= len(params)) {
			return fmt.Errorf("[%s] %s[%d]: recipient position %d out of range for %s",
				errors.ErrorRuleInvalid, section, i, *s.Recipient, canonical)
		}
	}
	return nil
}

func validateWorkers(rs *RuleSet) error {
	if rs.Workers < 0 {
		return fmt.Errorf("[%s] workers must not be negative, got %d", errors.ErrorRuleInvalid, rs.Workers)
	}
	return nil
}
