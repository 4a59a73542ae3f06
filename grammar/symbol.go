package grammar

import "fmt"

// SymbolKind says which alphabet a symbol's index refers to
type SymbolKind int

// The different kinds of grammar symbols
const (
	SymbolTerminal    SymbolKind = iota // token from the lexical grammar
	SymbolNonTerminal                   // variable of the syntax grammar
	SymbolExternal                      // token scanned by an external scanner
	SymbolEnd                           // the end of the input ($end)
)

// Symbol is a grammar symbol: a kind plus a dense index into the alphabet of
// that kind.  Symbols are comparable and can be used as map keys.
type Symbol struct {
	Kind  SymbolKind
	Index int
}

// Terminal returns the symbol for the lexical variable at index i
func Terminal(i int) Symbol {
	return Symbol{Kind: SymbolTerminal, Index: i}
}

// NonTerminal returns the symbol for the syntax variable at index i
func NonTerminal(i int) Symbol {
	return Symbol{Kind: SymbolNonTerminal, Index: i}
}

// External returns the symbol for the external token at index i
func External(i int) Symbol {
	return Symbol{Kind: SymbolExternal, Index: i}
}

// End returns the end-of-input symbol
func End() Symbol {
	return Symbol{Kind: SymbolEnd}
}

func (s Symbol) IsTerminal() bool {
	return s.Kind == SymbolTerminal
}

func (s Symbol) IsNonTerminal() bool {
	return s.Kind == SymbolNonTerminal
}

func (s Symbol) IsExternal() bool {
	return s.Kind == SymbolExternal
}

func (s Symbol) IsEnd() bool {
	return s.Kind == SymbolEnd
}

// IsToken reports whether the symbol is atomic: it can appear in a lookahead
// set and never expands into productions
func (s Symbol) IsToken() bool {
	return s.Kind != SymbolNonTerminal
}

// String gives a short, grammar-independent rendering of the symbol
func (s Symbol) String() string {
	switch s.Kind {
	case SymbolTerminal:
		return fmt.Sprintf("t%d", s.Index)
	case SymbolNonTerminal:
		return fmt.Sprintf("n%d", s.Index)
	case SymbolExternal:
		return fmt.Sprintf("e%d", s.Index)
	default:
		return "$end"
	}
}

// Less orders symbols by kind and then by index
func (s Symbol) Less(other Symbol) bool {
	if s.Kind != other.Kind {
		return s.Kind < other.Kind
	}

	return s.Index < other.Index
}
