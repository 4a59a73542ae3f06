package tables

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rooney/tree-sitter/grammar"
)

// the classic grammar that is LALR(1) but not SLR(1)
const lalrGrammar = `
S = L '=' R | R ;
L = '*' R | 'id' ;
R = L ;
`

func TestBuildParseTableLALR(t *testing.T) {
	g := loadGrammar(t, lalrGrammar)

	ptb, err := BuildParseTable(context.Background(), g, TableOptions{Policy: ConflictError, Workers: 2})
	require.NoError(t, err)
	assert.Empty(t, ptb.Conflicts)
	assert.Len(t, ptb.States, 10)

	table := ptb.Table
	require.Len(t, table.Rows, 10)
	assert.Equal(t, []TokenInfo{{Name: "$end"}, {Name: "="}, {Name: "*"}, {Name: "id"}}, table.Tokens)
	assert.Equal(t, []string{"S", "L", "R"}, table.NonTerminals)

	// state 0 shifts `*` and `id` and has gotos for every variable
	row := table.Rows[0]
	assert.Equal(t, AKShift, row.Actions[2].Kind)
	assert.Equal(t, AKShift, row.Actions[3].Kind)
	assert.Len(t, row.Gotos, 3)

	// the goto on S accepts at the end of input
	accept := table.Rows[row.Gotos[0]].Actions[EndTokenID]
	require.NotNil(t, accept)
	assert.Equal(t, AKAccept, accept.Kind)

	// after L the parser shifts `=` and reduces R -> L only at the end of input
	afterL := table.Rows[row.Gotos[1]]
	assert.Equal(t, AKShift, afterL.Actions[1].Kind)
	require.Contains(t, afterL.Actions, EndTokenID)
	reduce := afterL.Actions[EndTokenID]
	assert.Equal(t, AKReduce, reduce.Kind)
	assert.Equal(t, "R", table.Rules[reduce.Operand].Name)
	assert.Equal(t, 1, table.Rules[reduce.Operand].Count)
	assert.Len(t, afterL.Actions, 2)
}

func TestBuildParseTableDeterministic(t *testing.T) {
	g := loadGrammar(t, exprGrammar)

	first, err := BuildParseTable(context.Background(), g, TableOptions{Workers: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := BuildParseTable(context.Background(), g, TableOptions{Workers: 4})
		require.NoError(t, err)
		require.Len(t, again.States, len(first.States))

		for s, st := range first.States {
			assert.True(t, st.Kernel.Equal(again.States[s].Kernel), "state %d", s)
			assert.Equal(t, st.Transitions, again.States[s].Transitions, "state %d", s)
		}

		assert.Equal(t, first.Table.Rules, again.Table.Rules)
	}
}

func TestBuildParseTableConflicts(t *testing.T) {
	t.Run("shift/reduce resolved", func(t *testing.T) {
		g := loadGrammar(t, "E = E '+' E | 'n' ;")

		ptb, err := BuildParseTable(context.Background(), g, TableOptions{Policy: ConflictWarn})
		require.NoError(t, err)
		require.NotEmpty(t, ptb.Conflicts)

		for _, c := range ptb.Conflicts {
			assert.Equal(t, ShiftReduce, c.Kind)
			assert.True(t, c.Resolved)
			assert.Equal(t, grammar.Terminal(0), c.Lookahead)
			assert.Contains(t, c.Describe(ptb.Formatter()), "shift/reduce conflict")
			assert.Equal(t, AKShift, ptb.Table.Rows[c.State].Actions[1].Kind)
		}
	})

	t.Run("shift/reduce as error", func(t *testing.T) {
		g := loadGrammar(t, "E = E '+' E | 'n' ;")

		ptb, err := BuildParseTable(context.Background(), g, TableOptions{Policy: ConflictError})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "E -> E '+' E •")
		assert.False(t, ptb.Conflicts[0].Resolved)
	})

	t.Run("reduce/reduce", func(t *testing.T) {
		g := loadGrammar(t, "S = A | B ;\nA = 'x' ;\nB = 'x' ;")

		ptb, err := BuildParseTable(context.Background(), g, TableOptions{Policy: ConflictWarn})
		require.Error(t, err)
		require.Len(t, ptb.Conflicts, 1)
		assert.Equal(t, ReduceReduce, ptb.Conflicts[0].Kind)
		assert.Len(t, ptb.Conflicts[0].Items, 2)
		assert.Contains(t, err.Error(), "reduce/reduce conflict")
	})
}

func TestBuildParseTableInlined(t *testing.T) {
	g := loadGrammar(t, "S = _op 'x' | 'y' _op ;\n_op = 'a' | B ;\nB = 'b' ;", "_op")

	ptb, err := BuildParseTable(context.Background(), g, TableOptions{Policy: ConflictError})
	require.NoError(t, err)

	// no state ever refers to the inlined variable
	op := variable(t, g, "_op")
	for _, st := range ptb.States {
		for item := range st.Items.Entries {
			assert.NotEqual(t, op, item.Variable)
		}

		_, ok := st.Transitions[grammar.NonTerminal(op)]
		assert.False(t, ok)
	}

	// spliced productions reduce to the variable that owns them
	for _, rule := range ptb.Table.Rules {
		assert.NotEqual(t, "_op", rule.Name)
	}
}

func TestBuildStatesCancelled(t *testing.T) {
	g := loadGrammar(t, exprGrammar)
	sg := g.Syntax.Augmented()
	isb := NewItemSetBuilder(context.Background(), sg, g.Lexical, NewInlinedProductionMap(sg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, NewPTableBuilder(isb, TableOptions{}).BuildStates(ctx))
}

func TestNewPTableBuilderRequiresAugmentedGrammar(t *testing.T) {
	g := loadGrammar(t, exprGrammar)
	assert.Panics(t, func() { NewPTableBuilder(newBuilder(g), TableOptions{}) })
}

func TestParseConflictPolicy(t *testing.T) {
	policy, err := ParseConflictPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ConflictWarn, policy)

	policy, err = ParseConflictPolicy("error")
	require.NoError(t, err)
	assert.Equal(t, ConflictError, policy)

	_, err = ParseConflictPolicy("ignore")
	assert.Error(t, err)
}

func TestParsingTableRoundTrip(t *testing.T) {
	g := loadGrammar(t, lalrGrammar)

	ptb, err := BuildParseTable(context.Background(), g, TableOptions{Fingerprint: 42})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "lalr.ptable")
	require.NoError(t, SaveParsingTable(ptb.Table, path))

	loaded, err := LoadParsingTable(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), loaded.Fingerprint)
	assert.Equal(t, ptb.Table.Tokens, loaded.Tokens)
	assert.Equal(t, ptb.Table.NonTerminals, loaded.NonTerminals)
	assert.Equal(t, ptb.Table.Rules, loaded.Rules)

	// empty maps do not survive gob encoding so rows are compared by content
	require.Len(t, loaded.Rows, len(ptb.Table.Rows))
	for i, row := range ptb.Table.Rows {
		assert.Len(t, loaded.Rows[i].Actions, len(row.Actions))
		for tok, action := range row.Actions {
			assert.Equal(t, *action, *loaded.Rows[i].Actions[tok])
		}

		assert.Len(t, loaded.Rows[i].Gotos, len(row.Gotos))
		for nt, state := range row.Gotos {
			assert.Equal(t, state, loaded.Rows[i].Gotos[nt])
		}
	}

	id, ok := loaded.TokenID("id")
	assert.True(t, ok)
	assert.Equal(t, 3, id)

	_, ok = loaded.TokenID("nope")
	assert.False(t, ok)
}

func TestLoadParsingTableMissing(t *testing.T) {
	_, err := LoadParsingTable(filepath.Join(t.TempDir(), "missing.ptable"))
	assert.Error(t, err)
}
