package tables

import (
	"strings"

	"github.com/rooney/tree-sitter/grammar"
)

// ItemFormatter renders items with the names of a grammar
type ItemFormatter struct {
	Syntax  *grammar.SyntaxGrammar
	Lexical *grammar.LexicalGrammar
	Inlines *InlinedProductionMap
}

// FormatItem renders an item as `name -> a • b c`
func (f *ItemFormatter) FormatItem(item ParseItem) string {
	sb := strings.Builder{}
	sb.WriteString(f.Syntax.Variables[item.Variable].Name)
	sb.WriteString(" ->")

	prod := f.Inlines.Production(item, f.Syntax)
	for i, step := range prod.Steps {
		if i == item.Step {
			sb.WriteString(" •")
		}

		sb.WriteRune(' ')
		sb.WriteString(grammar.SymbolName(step.Symbol, f.Syntax, f.Lexical))
	}

	if item.Step == len(prod.Steps) {
		sb.WriteString(" •")
	}

	return sb.String()
}

// FormatLookaheads renders a lookahead set as a list of token names
func (f *ItemFormatter) FormatLookaheads(ls *LookaheadSet) string {
	names := make([]string, 0, ls.Len())
	for _, sym := range ls.Symbols() {
		names = append(names, grammar.SymbolName(sym, f.Syntax, f.Lexical))
	}

	return strings.Join(names, " ")
}

// FormatItemSet renders every entry of an item set on its own line
func (f *ItemFormatter) FormatItemSet(set *ParseItemSet) string {
	sb := strings.Builder{}
	for _, item := range set.Items() {
		sb.WriteString(f.FormatItem(item))
		sb.WriteString(", [")
		sb.WriteString(f.FormatLookaheads(set.Entries[item]))
		sb.WriteString("]\n")
	}

	return sb.String()
}
