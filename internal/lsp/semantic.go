package lsp

import (
	"github.com/alecthomas/participle/v2/lexer"

	"reserveguard/grammar"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into SemanticTokenTypes
// TokenModifiers is a bitmask based on SemanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

var keywords = map[string]bool{
	"contract": true, "library": true, "at": true, "state": true,
	"function": true, "returns": true, "mapping": true, "require": true,
	"assert": true, "if": true, "else": true, "return": true, "revert": true,
	"emit": true, "unchecked": true,
}

var attributeKeywords = map[string]bool{
	"public": true, "external": true, "internal": true, "private": true,
	"view": true, "pure": true, "payable": true, "nonpayable": true,
}

var environmentRoots = map[string]bool{
	"msg": true, "tx": true, "block": true, "this": true,
}

func isTypeName(name string) bool {
	switch name {
	case "address", "bool", "string", "bytes", "uint", "int":
		return true
	}
	for _, prefix := range []string{"uint", "int", "bytes"} {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix && name[len(prefix)] >= '0' && name[len(prefix)] <= '9' {
			return true
		}
	}
	return len(name) > 1 && name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z'
}

// collectSemanticTokens classifies the lexical tokens of a model source.
// It works from the lexer alone so highlighting survives syntax errors.
func collectSemanticTokens(filename, source string) ([]SemanticToken, error) {
	lex, err := grammar.ModelLexer.LexString(filename, source)
	if err != nil {
		return nil, err
	}
	symbols := grammar.ModelLexer.Symbols()

	var toks []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			// keep what was classified before the bad character
			break
		}
		if tok.EOF() {
			break
		}
		if tok.Type == symbols["Whitespace"] {
			continue
		}
		toks = append(toks, tok)
	}

	var tokens []SemanticToken
	for i, tok := range toks {
		var prev, next string
		if i > 0 {
			prev = toks[i-1].Value
		}
		if i+1 < len(toks) {
			next = toks[i+1].Value
		}

		typ, mods := "", 0
		switch tok.Type {
		case symbols["Comment"], symbols["BlockComment"]:
			typ = "comment"
		case symbols["String"]:
			typ = "string"
		case symbols["Integer"]:
			typ = "number"
		case symbols["Operator"]:
			typ = "operator"
		case symbols["Ident"]:
			switch {
			case keywords[tok.Value]:
				typ = "keyword"
			case attributeKeywords[tok.Value]:
				typ = "modifier"
			case prev == "contract" || prev == "library":
				typ, mods = "namespace", modifierMask("declaration")
			case prev == "function":
				typ, mods = "function", modifierMask("declaration")
			case isTypeName(tok.Value):
				typ = "type"
			case environmentRoots[tok.Value]:
				typ, mods = "variable", modifierMask("readonly")
			case next == "(":
				typ = "function"
			case prev == ".":
				typ = "property"
			default:
				typ = "variable"
			}
		}
		if typ == "" {
			continue
		}
		tokens = append(tokens, makeToken(tok.Pos, tok.Value, typ, mods)...)
	}
	return tokens, nil
}

// makeToken emits one token per source line the value spans
func makeToken(pos lexer.Position, value, tokenType string, mods int) []SemanticToken {
	idx := indexOf(tokenType, SemanticTokenTypes)
	if idx < 0 || pos.Line <= 0 {
		return nil
	}

	var tokens []SemanticToken
	line, col, start := pos.Line-1, pos.Column-1, 0
	for i := 0; i <= len(value); i++ {
		if i < len(value) && value[i] != '\n' {
			continue
		}
		if i > start {
			tokens = append(tokens, SemanticToken{
				Line:           uint32(line),
				StartChar:      uint32(col),
				Length:         uint32(i - start),
				TokenType:      idx,
				TokenModifiers: mods,
			})
		}
		line, col, start = line+1, 0, i+1
	}
	return tokens
}

func modifierMask(names ...string) int {
	mask := 0
	for _, n := range names {
		if i := indexOf(n, SemanticTokenModifiers); i >= 0 {
			mask |= 1 << i
		}
	}
	return mask
}

func indexOf(target string, list []string) int {
	for i, s := range list {
		if s == target {
			return i
		}
	}
	return -1
}
