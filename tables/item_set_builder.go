package tables

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rooney/tree-sitter/grammar"
	"github.com/rooney/tree-sitter/logging"
)

// FollowSetInfo describes what may follow an item added by closure: a
// concrete set of tokens, plus (if PropagatesLookaheads is set) whatever
// lookaheads apply at the site that expects the non-terminal
type FollowSetInfo struct {
	Lookaheads           *LookaheadSet
	PropagatesLookaheads bool
}

func (fsi FollowSetInfo) equal(other FollowSetInfo) bool {
	return fsi.PropagatesLookaheads == other.PropagatesLookaheads && fsi.Lookaheads.Equal(other.Lookaheads)
}

// TransitiveClosureAddition is an item that must be added to any item set in
// which some item expects a given non-terminal
type TransitiveClosureAddition struct {
	Item ParseItem
	Info FollowSetInfo
}

// symbolSets holds one lookahead set per grammar symbol, indexed densely by
// symbol kind and index
type symbolSets struct {
	terminals    []*LookaheadSet
	externals    []*LookaheadSet
	nonTerminals []*LookaheadSet
	end          *LookaheadSet
}

func (ss *symbolSets) get(sym grammar.Symbol) *LookaheadSet {
	var sets []*LookaheadSet

	switch sym.Kind {
	case grammar.SymbolTerminal:
		sets = ss.terminals
	case grammar.SymbolExternal:
		sets = ss.externals
	case grammar.SymbolNonTerminal:
		sets = ss.nonTerminals
	case grammar.SymbolEnd:
		return ss.end
	}

	if sym.Index < 0 || sym.Index >= len(sets) {
		logging.LogFatal(fmt.Sprintf("no symbol set registered for %s", sym))
	}

	return sets[sym.Index]
}

// ItemSetBuilder computes the FIRST and LAST sets of every symbol of a
// grammar and the closure additions of every non-terminal.  It is read-only
// once constructed so TransitiveClosure can be called concurrently.
type ItemSetBuilder struct {
	sg      *grammar.SyntaxGrammar
	lg      *grammar.LexicalGrammar
	inlines *InlinedProductionMap

	first, last symbolSets

	// additions are indexed by non-terminal
	additions [][]TransitiveClosureAddition
}

// NewItemSetBuilder builds the symbol sets and the closure-addition table for
// a grammar.  The grammar is assumed to have been validated: malformed input
// is a fatal error.
func NewItemSetBuilder(ctx context.Context, sg *grammar.SyntaxGrammar, lg *grammar.LexicalGrammar, inlines *InlinedProductionMap) *ItemSetBuilder {
	isb := &ItemSetBuilder{sg: sg, lg: lg, inlines: inlines}
	log := zerolog.Ctx(ctx)

	for _, sets := range []*symbolSets{&isb.first, &isb.last} {
		sets.terminals = make([]*LookaheadSet, len(lg.Variables))
		for i := range lg.Variables {
			sets.terminals[i] = NewLookaheadSet(grammar.Terminal(i))
		}

		sets.externals = make([]*LookaheadSet, len(sg.ExternalTokens))
		for i := range sg.ExternalTokens {
			sets.externals[i] = NewLookaheadSet(grammar.External(i))
		}

		sets.end = NewLookaheadSet(grammar.End())
		sets.nonTerminals = make([]*LookaheadSet, len(sg.Variables))
	}

	for i := range sg.Variables {
		isb.first.nonTerminals[i] = isb.symbolSet(i, firstStep)
		isb.last.nonTerminals[i] = isb.symbolSet(i, lastStep)

		log.Debug().
			Str("variable", sg.Variables[i].Name).
			Stringer("first", isb.first.nonTerminals[i]).
			Stringer("last", isb.last.nonTerminals[i]).
			Msg("computed symbol sets")
	}

	isb.additions = make([][]TransitiveClosureAddition, len(sg.Variables))
	total := 0
	for i := range sg.Variables {
		isb.additions[i] = isb.closureAdditions(i)
		total += len(isb.additions[i])
	}

	log.Debug().
		Int("variables", len(sg.Variables)).
		Int("additions", total).
		Int("spliced", len(inlines.Productions)).
		Msg("built closure-addition table")

	return isb
}

// FirstSet returns the tokens that can begin a derivation of sym
func (isb *ItemSetBuilder) FirstSet(sym grammar.Symbol) *LookaheadSet {
	return isb.first.get(sym)
}

// LastSet returns the tokens that can end a derivation of sym
func (isb *ItemSetBuilder) LastSet(sym grammar.Symbol) *LookaheadSet {
	return isb.last.get(sym)
}

// Additions returns the closure additions of a non-terminal
func (isb *ItemSetBuilder) Additions(sym grammar.Symbol) []TransitiveClosureAddition {
	if !sym.IsNonTerminal() || sym.Index < 0 || sym.Index >= len(isb.additions) {
		logging.LogFatal(fmt.Sprintf("no closure additions registered for %s", sym))
	}

	return isb.additions[sym.Index]
}

func firstStep(prod *grammar.Production) grammar.Symbol {
	return prod.Steps[0].Symbol
}

func lastStep(prod *grammar.Production) grammar.Symbol {
	return prod.Steps[len(prod.Steps)-1].Symbol
}

// symbolSet collects every token reachable from variable i by repeatedly
// taking the symbol picked from each production.  An explicit stack and a
// visited set are used so deep and recursive grammars terminate.
func (isb *ItemSetBuilder) symbolSet(i int, pick func(*grammar.Production) grammar.Symbol) *LookaheadSet {
	result := NewLookaheadSet()
	visited := make([]bool, len(isb.sg.Variables))

	stack := []grammar.Symbol{grammar.NonTerminal(i)}
	for len(stack) > 0 {
		sym := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !sym.IsNonTerminal() {
			result.Insert(sym)
			continue
		}

		if sym.Index < 0 || sym.Index >= len(isb.sg.Variables) {
			logging.LogFatal(fmt.Sprintf("production refers to unknown variable %s", sym))
		}

		if visited[sym.Index] {
			continue
		}
		visited[sym.Index] = true

		for pi := range isb.sg.Variables[sym.Index].Productions {
			prod := &isb.sg.Variables[sym.Index].Productions[pi]
			if len(prod.Steps) > 0 {
				stack = append(stack, pick(prod))
			}
		}
	}

	return result
}

// closureAdditions computes the items (and how their lookaheads are derived)
// that closure adds whenever an item expects variable i.  The follow info of
// every variable reachable through first steps is grown to a fixed point
// before any additions are emitted.
func (isb *ItemSetBuilder) closureAdditions(i int) []TransitiveClosureAddition {
	type entry struct {
		nonTerminal int
		lookaheads  *LookaheadSet
		propagates  bool
	}

	infos := make([]*FollowSetInfo, len(isb.sg.Variables))
	stack := []entry{{nonTerminal: i, lookaheads: NewLookaheadSet(), propagates: true}}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// a first visit that brings no lookaheads and does not propagate
		// records the variable but does not expand it
		changed := false
		info := infos[e.nonTerminal]
		if info == nil {
			info = &FollowSetInfo{Lookaheads: NewLookaheadSet()}
			infos[e.nonTerminal] = info
		}

		if e.propagates && !info.PropagatesLookaheads {
			info.PropagatesLookaheads = true
			changed = true
		}

		if info.Lookaheads.InsertAll(e.lookaheads) {
			changed = true
		}

		if !changed {
			continue
		}

		for _, prod := range isb.sg.Variables[e.nonTerminal].Productions {
			if len(prod.Steps) == 0 || !prod.Steps[0].Symbol.IsNonTerminal() {
				continue
			}

			next := prod.Steps[0].Symbol.Index
			if len(prod.Steps) == 1 {
				stack = append(stack, entry{nonTerminal: next, lookaheads: e.lookaheads, propagates: e.propagates})
			} else {
				stack = append(stack, entry{nonTerminal: next, lookaheads: isb.FirstSet(prod.Steps[1].Symbol)})
			}
		}
	}

	var additions []TransitiveClosureAddition
	for j, info := range infos {
		if info == nil || isb.sg.ShouldInline(grammar.NonTerminal(j)) {
			continue
		}

		for pi := range isb.sg.Variables[j].Productions {
			item := ParseItem{Variable: j, Production: pi}

			if substitutes, ok := isb.inlines.InlinedItems(item); ok {
				for _, sub := range substitutes {
					additions = appendAddition(additions, sub, info)
				}
			} else {
				additions = appendAddition(additions, item, info)
			}
		}
	}

	return additions
}

func appendAddition(additions []TransitiveClosureAddition, item ParseItem, info *FollowSetInfo) []TransitiveClosureAddition {
	addition := TransitiveClosureAddition{
		Item: item,
		Info: FollowSetInfo{Lookaheads: info.Lookaheads.Clone(), PropagatesLookaheads: info.PropagatesLookaheads},
	}

	for _, other := range additions {
		if other.Item == addition.Item && other.Info.equal(addition.Info) {
			return additions
		}
	}

	return append(additions, addition)
}

// TransitiveClosure computes the closure of a kernel item set: every item
// reachable by expanding the non-terminals at the dots, each with the union
// of the lookaheads valid for it.  The result does not depend on the order
// the kernel entries are visited in.
func (isb *ItemSetBuilder) TransitiveClosure(set *ParseItemSet, sg *grammar.SyntaxGrammar) *ParseItemSet {
	// items needing inlining are replaced by their substitutes, which share
	// the original's lookaheads
	kernel := NewParseItemSet()
	for item, lookaheads := range set.Entries {
		if substitutes, ok := isb.inlines.InlinedItems(item); ok {
			for _, sub := range substitutes {
				kernel.Insert(sub, lookaheads)
			}
		} else {
			kernel.Insert(item, lookaheads)
		}
	}

	return isb.closeInOrder(kernel, kernel.Items(), sg)
}

// closeInOrder applies the additions of the kernel entries in the given order
// and then inserts the kernel entries themselves
func (isb *ItemSetBuilder) closeInOrder(kernel *ParseItemSet, order []ParseItem, sg *grammar.SyntaxGrammar) *ParseItemSet {
	result := NewParseItemSet()
	for _, item := range order {
		isb.addClosureItems(result, item, kernel.Entries[item], sg)
	}

	// kernel items go in last, replacing anything the additions put there
	for _, item := range order {
		result.Entries[item] = kernel.Entries[item]
	}

	return result
}

// addClosureItems applies the additions of the non-terminal at item's dot
func (isb *ItemSetBuilder) addClosureItems(result *ParseItemSet, item ParseItem, lookaheads *LookaheadSet, sg *grammar.SyntaxGrammar) {
	prod := isb.inlines.Production(item, sg)
	if item.Step >= len(prod.Steps) {
		return
	}

	sym := prod.Steps[item.Step].Symbol
	if !sym.IsNonTerminal() {
		return
	}

	// whatever follows the non-terminal in this production; if nothing does
	// then the tokens that follow the item follow it too
	following := lookaheads
	if item.Step+1 < len(prod.Steps) {
		following = isb.FirstSet(prod.Steps[item.Step+1].Symbol)
	}

	for _, addition := range isb.Additions(sym) {
		entry, ok := result.Entries[addition.Item]
		if !ok {
			entry = NewLookaheadSet()
			result.Entries[addition.Item] = entry
		}

		entry.InsertAll(addition.Info.Lookaheads)
		if addition.Info.PropagatesLookaheads {
			entry.InsertAll(following)
		}
	}
}
