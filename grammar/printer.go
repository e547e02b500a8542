package grammar

import (
	"strings"
)

// String renders the datum back as surface syntax.
func (d *Datum) String() string {
	switch {
	case d.Quoted != nil:
		return "'" + d.Quoted.String()
	case d.List != nil:
		return d.List.String()
	case d.Number != nil:
		return *d.Number
	case d.Bool != nil:
		return *d.Bool
	case d.Str != nil:
		return *d.Str
	case d.Symbol != nil:
		return *d.Symbol
	}
	return ""
}

func (l *List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (p *Program) String() string {
	var sb strings.Builder
	for i, d := range p.Datums {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.String())
	}
	return sb.String()
}
