package ir

// This file provides the main entry points for loading contract models

import (
	"os"

	"reserveguard/grammar"
)

// ParseModel parses model source and lowers it into contracts
func ParseModel(filename, source string) ([]*Contract, error) {
	program, err := grammar.ParseString(filename, source)
	if err != nil {
		return nil, err
	}
	return Build(program)
}

// LoadModel reads and lowers a model file
func LoadModel(path string) ([]*Contract, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModel(path, string(source))
}
