package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var SchemeLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments run to end of line
		{"Comment", `;[^\n]*`, nil},

		// String literals with escapes
		{"String", `"(\\.|[^"\\])*"`, nil},

		// Booleans (must come before Symbol so '#' is not misread)
		{"Bool", `#t|#f`, nil},

		// Integer literals; a leading '-' binds to the digits
		{"Number", `-?[0-9]+`, nil},

		// Symbols cover identifiers and operator names alike
		{"Symbol", `[a-zA-Z+\-*/<>=!?._][a-zA-Z0-9+\-*/<>=!?._]*`, nil},

		// Quote shorthand
		{"Quote", `'`, nil},

		{"LParen", `\(`, nil},
		{"RParen", `\)`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
