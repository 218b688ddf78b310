package grammar

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
)

var modelParser = participle.MustBuild[Program](
	participle.Lexer(ModelLexer),
	participle.Elide("Whitespace", "Comment", "BlockComment"),
	participle.Unquote("String"),
	participle.UseLookahead(6),
)

// ParseError is a syntax error with its location in the model source.
type ParseError struct {
	Filename string
	Line     int
	Column   int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Message)
}

func ParseFile(path string) (*Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseString(path, string(source))
}

func ParseString(filename, source string) (*Program, error) {
	program, err := modelParser.ParseString(filename, source)
	if err != nil {
		return nil, toParseError(filename, err)
	}
	return program, nil
}

func toParseError(filename string, err error) error {
	pe, ok := err.(participle.Error)
	if !ok {
		return &ParseError{Filename: filename, Line: 1, Column: 1, Message: err.Error()}
	}
	pos := pe.Position()
	if pos.Filename != "" {
		filename = pos.Filename
	}
	return &ParseError{
		Filename: filename,
		Line:     pos.Line,
		Column:   pos.Column,
		Message:  pe.Message(),
	}
}

// FormatParseError renders a caret-style parse error message.
func FormatParseError(src string, err error) string {
	pe, ok := err.(*ParseError)
	if !ok {
		return color.RedString("Unexpected error: %s", err) + "\n"
	}

	lines := strings.Split(src, "\n")
	if pe.Line <= 0 || pe.Line > len(lines) {
		return color.RedString("Syntax error at unknown location: %s", pe.Message) + "\n"
	}

	var b strings.Builder
	line := lines[pe.Line-1]
	caret := strings.Repeat(" ", max(0, pe.Column-1)) + "^"

	b.WriteString(color.RedString("Syntax error in %s at line %d, column %d:", pe.Filename, pe.Line, pe.Column))
	b.WriteString("\n")
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString(color.HiRedString(caret))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("→ %s\n", pe.Message))
	return b.String()
}
