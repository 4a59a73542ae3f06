package tables

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rooney/tree-sitter/grammar"
)

func loadGrammar(t *testing.T, text string, inline ...string) *grammar.Grammar {
	t.Helper()

	rs, err := grammar.LoadGrammar(strings.NewReader(text))
	require.NoError(t, err)

	g, err := grammar.ExpandGrammar(rs, grammar.Options{Inline: inline})
	require.NoError(t, err)
	return g
}

func tok(t *testing.T, g *grammar.Grammar, name string) grammar.Symbol {
	t.Helper()

	for i, lv := range g.Lexical.Variables {
		if lv.Name == name {
			return grammar.Terminal(i)
		}
	}

	t.Fatalf("no token named %q", name)
	return grammar.Symbol{}
}

func variable(t *testing.T, g *grammar.Grammar, name string) int {
	t.Helper()

	sym, err := g.Syntax.Lookup(name)
	require.NoError(t, err)
	return sym.Index
}

func newBuilder(g *grammar.Grammar) *ItemSetBuilder {
	return NewItemSetBuilder(context.Background(), g.Syntax, g.Lexical, NewInlinedProductionMap(g.Syntax))
}

func TestAtomicSymbolSets(t *testing.T) {
	rs, err := grammar.LoadGrammar(strings.NewReader("s = 'x' indent ;"))
	require.NoError(t, err)
	g, err := grammar.ExpandGrammar(rs, grammar.Options{Externals: []string{"indent"}})
	require.NoError(t, err)

	isb := newBuilder(g)
	for _, sym := range []grammar.Symbol{grammar.Terminal(0), grammar.External(0), grammar.End()} {
		assert.Equal(t, []grammar.Symbol{sym}, isb.FirstSet(sym).Symbols(), sym.String())
		assert.Equal(t, []grammar.Symbol{sym}, isb.LastSet(sym).Symbols(), sym.String())
	}

	assert.Equal(t, []grammar.Symbol{grammar.Terminal(0)}, isb.FirstSet(grammar.NonTerminal(0)).Symbols())
	assert.Equal(t, []grammar.Symbol{grammar.External(0)}, isb.LastSet(grammar.NonTerminal(0)).Symbols())
}

func TestFirstSets(t *testing.T) {
	t.Run("alternatives", func(t *testing.T) {
		g := loadGrammar(t, "A = 'x' B | 'y' ;\nB = 'z' ;")
		isb := newBuilder(g)

		first := isb.FirstSet(grammar.NonTerminal(variable(t, g, "A")))
		assert.True(t, first.Equal(NewLookaheadSet(tok(t, g, "x"), tok(t, g, "y"))), first.String())

		last := isb.LastSet(grammar.NonTerminal(variable(t, g, "A")))
		assert.True(t, last.Equal(NewLookaheadSet(tok(t, g, "z"), tok(t, g, "y"))), last.String())
	})

	t.Run("leading non-terminal", func(t *testing.T) {
		g := loadGrammar(t, "A = B C ;\nB = 'b' ;\nC = 'c' ;")
		isb := newBuilder(g)

		a, b := grammar.NonTerminal(variable(t, g, "A")), grammar.NonTerminal(variable(t, g, "B"))
		assert.True(t, isb.FirstSet(a).Equal(NewLookaheadSet(tok(t, g, "b"))))
		assert.True(t, isb.FirstSet(a).Equal(isb.FirstSet(b)))
		assert.True(t, isb.LastSet(a).Equal(NewLookaheadSet(tok(t, g, "c"))))
	})

	t.Run("left recursion", func(t *testing.T) {
		g := loadGrammar(t, "A = A 'x' | 'y' ;")
		isb := newBuilder(g)

		a := grammar.NonTerminal(0)
		assert.True(t, isb.FirstSet(a).Equal(NewLookaheadSet(tok(t, g, "y"))))
		assert.True(t, isb.LastSet(a).Equal(NewLookaheadSet(tok(t, g, "x"), tok(t, g, "y"))))
	})

	t.Run("mutual recursion", func(t *testing.T) {
		g := loadGrammar(t, "A = B 'a' | 'p' ;\nB = A 'b' | 'q' ;")
		isb := newBuilder(g)

		want := NewLookaheadSet(tok(t, g, "p"), tok(t, g, "q"))
		assert.True(t, isb.FirstSet(grammar.NonTerminal(0)).Equal(want))
		assert.True(t, isb.FirstSet(grammar.NonTerminal(1)).Equal(want))
	})
}

func TestSymbolSetsOutOfRange(t *testing.T) {
	g := loadGrammar(t, "A = 'x' ;")
	isb := newBuilder(g)

	assert.Panics(t, func() { isb.FirstSet(grammar.Terminal(5)) })
	assert.Panics(t, func() { isb.LastSet(grammar.NonTerminal(3)) })
	assert.Panics(t, func() { isb.FirstSet(grammar.External(0)) })
}

func TestClosureAdditionsLeftRecursive(t *testing.T) {
	g := loadGrammar(t, "A = A 'x' | 'y' ;")
	isb := newBuilder(g)
	x := tok(t, g, "x")

	additions := isb.Additions(grammar.NonTerminal(0))
	require.Len(t, additions, 2)

	for i, addition := range additions {
		assert.Equal(t, ParseItem{Variable: 0, Production: i}, addition.Item)
		assert.True(t, addition.Info.PropagatesLookaheads)
		assert.True(t, addition.Info.Lookaheads.Equal(NewLookaheadSet(x)))
	}
}

func TestClosureAdditionsEmptyFollow(t *testing.T) {
	// A -> B C with FIRST(C) empty: B is reached with nothing to add, so it
	// is recorded but the D it starts with is not
	a, b, c, d := grammar.NonTerminal(0), grammar.NonTerminal(1), grammar.NonTerminal(2), grammar.NonTerminal(3)
	sg := &grammar.SyntaxGrammar{Variables: []grammar.Variable{
		{Name: "A", Productions: []grammar.Production{grammar.NewProduction(b, c)}},
		{Name: "B", Productions: []grammar.Production{grammar.NewProduction(d, grammar.Terminal(0))}},
		{Name: "C"},
		{Name: "D", Productions: []grammar.Production{grammar.NewProduction(grammar.Terminal(0))}},
	}}
	lg := &grammar.LexicalGrammar{Variables: []grammar.LexicalVariable{{Name: "d"}}}

	isb := NewItemSetBuilder(context.Background(), sg, lg, NewInlinedProductionMap(sg))
	assert.True(t, isb.FirstSet(c).IsEmpty())

	var variables []int
	for _, addition := range isb.Additions(a) {
		variables = append(variables, addition.Item.Variable)
	}

	assert.Equal(t, []int{0, 1}, variables)
}

func TestClosureAdditionsStayInAlphabet(t *testing.T) {
	g := loadGrammar(t, `
E = E '+' T | T ;
T = T '*' F | F ;
F = '(' E ')' | 'id' | F '!' ;
`)
	isb := newBuilder(g)

	alphabet := NewLookaheadSet(grammar.End())
	for i := range g.Lexical.Variables {
		alphabet.Insert(grammar.Terminal(i))
	}

	for i := range g.Syntax.Variables {
		seen := make(map[ParseItem][]FollowSetInfo)
		for _, addition := range isb.Additions(grammar.NonTerminal(i)) {
			assert.True(t, addition.Info.Lookaheads.IsSubsetOf(alphabet))

			// additions are deduplicated
			for _, info := range seen[addition.Item] {
				assert.False(t, info.equal(addition.Info))
			}
			seen[addition.Item] = append(seen[addition.Item], addition.Info)
		}
	}

	// E expects T which expects F: additions for E reach all three variables
	reached := make(map[int]bool)
	for _, addition := range isb.Additions(grammar.NonTerminal(variable(t, g, "E"))) {
		reached[addition.Item.Variable] = true
	}

	assert.Len(t, reached, 3)
}

func TestTransitiveClosureEndToEnd(t *testing.T) {
	g := loadGrammar(t, "S = A ;\nA = 'a' A | 'b' ;")
	isb := newBuilder(g)
	end := NewLookaheadSet(grammar.End())

	kernel := NewParseItemSet()
	kernel.Insert(ParseItem{Variable: 0}, end)

	closure := isb.TransitiveClosure(kernel, g.Syntax)
	require.Len(t, closure.Entries, 3)

	a := variable(t, g, "A")
	for _, item := range []ParseItem{{Variable: 0}, {Variable: a, Production: 0}, {Variable: a, Production: 1}} {
		lookaheads, ok := closure.Entries[item]
		require.True(t, ok, item.String())
		assert.True(t, lookaheads.Equal(end), item.String())
	}
}

func TestTransitiveClosureFollowingTokens(t *testing.T) {
	g := loadGrammar(t, "S = A 'c' ;\nA = B | 'a' ;\nB = 'b' ;")
	isb := newBuilder(g)

	kernel := NewParseItemSet()
	kernel.Insert(ParseItem{Variable: 0}, NewLookaheadSet(grammar.End()))

	closure := isb.TransitiveClosure(kernel, g.Syntax)
	c := NewLookaheadSet(tok(t, g, "c"))

	b := variable(t, g, "B")
	assert.True(t, closure.Entries[ParseItem{Variable: b}].Equal(c))
	assert.True(t, closure.Entries[ParseItem{Variable: variable(t, g, "A"), Production: 1}].Equal(c))
	assert.True(t, closure.Entries[ParseItem{Variable: 0}].Equal(NewLookaheadSet(grammar.End())))
}

const exprGrammar = `
E = E '+' T | T ;
T = T '*' F | F ;
F = '(' E ')' | 'id' ;
`

func exprKernel(t *testing.T, g *grammar.Grammar) *ParseItemSet {
	kernel := NewParseItemSet()
	kernel.Insert(ParseItem{Variable: variable(t, g, "E"), Production: 0, Step: 2}, NewLookaheadSet(grammar.End(), tok(t, g, "+")))
	kernel.Insert(ParseItem{Variable: variable(t, g, "F"), Production: 0, Step: 1}, NewLookaheadSet(tok(t, g, ")")))
	kernel.Insert(ParseItem{Variable: variable(t, g, "T"), Production: 0, Step: 2}, NewLookaheadSet(tok(t, g, "*")))
	return kernel
}

func TestTransitiveClosureIdempotent(t *testing.T) {
	g := loadGrammar(t, exprGrammar)
	isb := newBuilder(g)

	once := isb.TransitiveClosure(exprKernel(t, g), g.Syntax)
	twice := isb.TransitiveClosure(once, g.Syntax)
	assert.True(t, once.Equal(twice))
}

func TestTransitiveClosureMonotone(t *testing.T) {
	g := loadGrammar(t, exprGrammar)
	isb := newBuilder(g)

	small := exprKernel(t, g)
	large := small.Clone()
	for _, lookaheads := range large.Entries {
		lookaheads.Insert(tok(t, g, "id"))
		lookaheads.Insert(grammar.End())
	}

	smallClosure := isb.TransitiveClosure(small, g.Syntax)
	largeClosure := isb.TransitiveClosure(large, g.Syntax)

	require.Len(t, largeClosure.Entries, len(smallClosure.Entries))
	for item, lookaheads := range smallClosure.Entries {
		require.Contains(t, largeClosure.Entries, item)
		assert.True(t, lookaheads.IsSubsetOf(largeClosure.Entries[item]), item.String())
	}
}

func TestTransitiveClosureOrderIndependent(t *testing.T) {
	g := loadGrammar(t, exprGrammar)
	isb := newBuilder(g)

	kernel := exprKernel(t, g)
	want := isb.TransitiveClosure(kernel, g.Syntax)

	items := kernel.Items()
	require.Len(t, items, 3)

	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, order := range orders {
		permuted := make([]ParseItem, len(order))
		for i, ndx := range order {
			permuted[i] = items[ndx]
		}

		assert.True(t, want.Equal(isb.closeInOrder(kernel, permuted, g.Syntax)), "order %v", order)
	}
}

func TestTransitiveClosureKernelOverwrites(t *testing.T) {
	// the kernel's own entry for F -> • 'id' wins over what the additions of
	// T -> • F would give it
	g := loadGrammar(t, "S = T ;\nT = F ;\nF = 'id' ;")
	isb := newBuilder(g)

	f := ParseItem{Variable: variable(t, g, "F")}
	kernel := NewParseItemSet()
	kernel.Insert(ParseItem{Variable: variable(t, g, "T")}, NewLookaheadSet(grammar.End()))
	kernel.Insert(f, NewLookaheadSet(tok(t, g, "id")))

	closure := isb.TransitiveClosure(kernel, g.Syntax)
	assert.True(t, closure.Entries[f].Equal(NewLookaheadSet(tok(t, g, "id"))))
}

func TestTransitiveClosureDoesNotModifyKernel(t *testing.T) {
	g := loadGrammar(t, exprGrammar)
	isb := newBuilder(g)

	kernel := exprKernel(t, g)
	before := kernel.Clone()

	closure := isb.TransitiveClosure(kernel, g.Syntax)
	for _, lookaheads := range closure.Entries {
		lookaheads.Insert(tok(t, g, "id"))
	}

	assert.True(t, before.Equal(kernel))
}
