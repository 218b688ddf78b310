package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var ModelLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"Comment", `//[^\n]*`, nil},
		{"BlockComment", `/\*([^*]|\*+[^*/])*\*+/`, nil},

		// String literals (revert reasons, require messages)
		{"String", `"(\\.|[^"\\])*"`, nil},

		// Identifiers; $ is legal in contract identifiers
		{"Ident", `[a-zA-Z_$][a-zA-Z0-9_$]*`, nil},

		// Integer literals: hex, decimal with separators, scientific
		{"Integer", `0x[0-9a-fA-F]+|[0-9][0-9_]*(e[0-9]+)?`, nil},

		// Operators (longest first)
		{"Operator", `(=>|\|\||&&|==|!=|<=|>=|\+=|-=|\*=|/=|[-+*/%<>=!])`, nil},

		// Punctuation (must come after operators)
		{"Punctuation", `[{}[\]();,.]`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
