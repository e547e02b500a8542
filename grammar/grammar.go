package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Program is a sequence of datums. The reader stays deliberately dumb:
// special forms are recognized later, when datums are compiled into core
// expressions, so the grammar never has to disambiguate `(let ...)` from an
// ordinary application.
type Program struct {
	Datums []*Datum `@@*`
}

type Datum struct {
	Pos lexer.Position

	Quoted *Datum  `  Quote @@`
	List   *List   `| @@`
	Number *string `| @Number`
	Bool   *string `| @Bool`
	Str    *string `| @String`
	Symbol *string `| @Symbol`
}

type List struct {
	Pos lexer.Position

	Items []*Datum `LParen @@* RParen`
}
