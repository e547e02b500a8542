package grammar

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
)

var parser = participle.MustBuild[Program](
	participle.Lexer(SchemeLexer),
	participle.Elide("Whitespace", "Comment"),
)

// ParseString parses source text into a datum sequence. The path is used
// only for positions in error messages.
func ParseString(path, source string) (*Program, error) {
	return parser.ParseString(path, source)
}

func ParseFile(path string) (*Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return parser.ParseString(path, string(source))
}
