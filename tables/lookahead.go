package tables

import (
	"math/bits"
	"strings"

	"github.com/rooney/tree-sitter/grammar"
	"github.com/rooney/tree-sitter/logging"
)

// LookaheadSet is a set of tokens: terminals, external tokens and the end of
// input.  Terminals and externals are stored as bitsets indexed by symbol
// index.  The zero value is an empty set.
type LookaheadSet struct {
	terminals []uint64
	externals []uint64
	eof       bool
}

// NewLookaheadSet creates a lookahead set holding the given tokens
func NewLookaheadSet(symbols ...grammar.Symbol) *LookaheadSet {
	ls := &LookaheadSet{}
	for _, sym := range symbols {
		ls.Insert(sym)
	}

	return ls
}

// Insert adds a token to the set and reports whether it was not already
// present.  Non-terminals can never be lookaheads.
func (ls *LookaheadSet) Insert(sym grammar.Symbol) bool {
	switch sym.Kind {
	case grammar.SymbolTerminal:
		return insertBit(&ls.terminals, sym.Index)
	case grammar.SymbolExternal:
		return insertBit(&ls.externals, sym.Index)
	case grammar.SymbolEnd:
		if ls.eof {
			return false
		}

		ls.eof = true
		return true
	}

	logging.LogFatal("cannot insert non-terminal " + sym.String() + " into a lookahead set")
	return false
}

// InsertAll unions other into the set and reports whether the set grew
func (ls *LookaheadSet) InsertAll(other *LookaheadSet) bool {
	changed := unionBits(&ls.terminals, other.terminals)
	if unionBits(&ls.externals, other.externals) {
		changed = true
	}

	if other.eof && !ls.eof {
		ls.eof = true
		changed = true
	}

	return changed
}

// Contains checks whether a symbol is in the set
func (ls *LookaheadSet) Contains(sym grammar.Symbol) bool {
	switch sym.Kind {
	case grammar.SymbolTerminal:
		return hasBit(ls.terminals, sym.Index)
	case grammar.SymbolExternal:
		return hasBit(ls.externals, sym.Index)
	case grammar.SymbolEnd:
		return ls.eof
	default:
		return false
	}
}

// Len returns the number of tokens in the set
func (ls *LookaheadSet) Len() int {
	n := 0
	for _, word := range ls.terminals {
		n += bits.OnesCount64(word)
	}

	for _, word := range ls.externals {
		n += bits.OnesCount64(word)
	}

	if ls.eof {
		n++
	}

	return n
}

func (ls *LookaheadSet) IsEmpty() bool {
	return ls.Len() == 0
}

func (ls *LookaheadSet) Clone() *LookaheadSet {
	return &LookaheadSet{
		terminals: append([]uint64(nil), ls.terminals...),
		externals: append([]uint64(nil), ls.externals...),
		eof:       ls.eof,
	}
}

// Equal checks whether two sets hold exactly the same tokens
func (ls *LookaheadSet) Equal(other *LookaheadSet) bool {
	return ls.IsSubsetOf(other) && other.IsSubsetOf(ls)
}

// IsSubsetOf checks whether every token of ls is also in other
func (ls *LookaheadSet) IsSubsetOf(other *LookaheadSet) bool {
	if ls.eof && !other.eof {
		return false
	}

	return subsetBits(ls.terminals, other.terminals) && subsetBits(ls.externals, other.externals)
}

// Symbols lists the tokens of the set: the end of input first, then
// terminals and then externals, each in ascending index order
func (ls *LookaheadSet) Symbols() []grammar.Symbol {
	var symbols []grammar.Symbol
	if ls.eof {
		symbols = append(symbols, grammar.End())
	}

	for _, i := range bitIndices(ls.terminals) {
		symbols = append(symbols, grammar.Terminal(i))
	}

	for _, i := range bitIndices(ls.externals) {
		symbols = append(symbols, grammar.External(i))
	}

	return symbols
}

func (ls *LookaheadSet) String() string {
	sb := strings.Builder{}
	sb.WriteRune('{')

	for i, sym := range ls.Symbols() {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(sym.String())
	}

	sb.WriteRune('}')
	return sb.String()
}

// -----------------------------------------------------------------------------

func insertBit(words *[]uint64, i int) bool {
	if i < 0 {
		logging.LogFatal("negative token index in lookahead set")
	}

	w, mask := i/64, uint64(1)<<(uint(i)%64)
	for len(*words) <= w {
		*words = append(*words, 0)
	}

	if (*words)[w]&mask != 0 {
		return false
	}

	(*words)[w] |= mask
	return true
}

func hasBit(words []uint64, i int) bool {
	w := i / 64
	if i < 0 || w >= len(words) {
		return false
	}

	return words[w]&(uint64(1)<<(uint(i)%64)) != 0
}

func unionBits(dst *[]uint64, src []uint64) bool {
	for len(*dst) < len(src) {
		*dst = append(*dst, 0)
	}

	changed := false
	for w, word := range src {
		if merged := (*dst)[w] | word; merged != (*dst)[w] {
			(*dst)[w] = merged
			changed = true
		}
	}

	return changed
}

func subsetBits(a, b []uint64) bool {
	for w, word := range a {
		var other uint64
		if w < len(b) {
			other = b[w]
		}

		if word&^other != 0 {
			return false
		}
	}

	return true
}

func bitIndices(words []uint64) []int {
	var indices []int
	for w, word := range words {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			indices = append(indices, w*64+bit)
			word &= word - 1
		}
	}

	return indices
}
