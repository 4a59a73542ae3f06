package tables

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/rooney/tree-sitter/grammar"
	"github.com/rooney/tree-sitter/logging"
)

// ConflictPolicy decides how shift/reduce conflicts are handled
type ConflictPolicy int

const (
	// ConflictWarn resolves shift/reduce conflicts in favor of SHIFT
	ConflictWarn ConflictPolicy = iota

	// ConflictError fails on any conflict
	ConflictError
)

// ParseConflictPolicy converts a policy name from the project file
func ParseConflictPolicy(name string) (ConflictPolicy, error) {
	switch name {
	case "", "warn":
		return ConflictWarn, nil
	case "error":
		return ConflictError, nil
	default:
		return ConflictWarn, errors.Errorf("unknown conflict policy `%s`", name)
	}
}

// TableOptions configure the construction of a parsing table
type TableOptions struct {
	Policy ConflictPolicy

	// Workers bounds how many closures are computed at once.  Zero or less
	// means one per CPU.
	Workers int

	// Fingerprint is copied into the table
	Fingerprint uint64
}

// ConflictKind enumerates the kinds of LR conflicts
type ConflictKind int

const (
	ShiftReduce ConflictKind = iota
	ReduceReduce
)

// Conflict is a state and lookahead for which more than one action applies
type Conflict struct {
	Kind      ConflictKind
	State     int
	Lookahead grammar.Symbol

	// Items are the items that shift the lookahead (if any) followed by the
	// completed items that reduce on it
	Items []ParseItem

	// Resolved conflicts were settled in favor of shifting
	Resolved bool
}

// Describe renders the conflict with the names of the grammar
func (c *Conflict) Describe(f *ItemFormatter) string {
	sb := strings.Builder{}
	if c.Kind == ShiftReduce {
		sb.WriteString("shift/reduce")
	} else {
		sb.WriteString("reduce/reduce")
	}

	sb.WriteString(fmt.Sprintf(" conflict in state %d on %s", c.State, grammar.SymbolName(c.Lookahead, f.Syntax, f.Lexical)))
	if c.Resolved {
		sb.WriteString(" (resolved as shift)")
	}

	for _, item := range c.Items {
		sb.WriteString("\n    ")
		sb.WriteString(f.FormatItem(item))
	}

	return sb.String()
}

// LRState is a single state of the LALR(1) automaton
type LRState struct {
	Kernel *ParseItemSet

	// Items is the closure of the kernel
	Items *ParseItemSet

	Transitions map[grammar.Symbol]int
}

// PTableBuilder holds the state used to construct the parsing table
type PTableBuilder struct {
	builder   *ItemSetBuilder
	formatter *ItemFormatter
	opts      TableOptions

	// startVariable is the index of the augmented start variable
	startVariable int

	States []*LRState
	Table  *ParsingTable

	Conflicts []*Conflict

	// cores maps the core of a kernel to the state it belongs to
	cores map[string]int
}

// BuildParseTable runs every stage of table construction for a grammar
func BuildParseTable(ctx context.Context, g *grammar.Grammar, opts TableOptions) (*PTableBuilder, error) {
	sg := g.Syntax.Augmented()
	isb := NewItemSetBuilder(ctx, sg, g.Lexical, NewInlinedProductionMap(sg))

	return BuildParseTableFrom(ctx, isb, opts)
}

// BuildParseTableFrom builds the states and table with an existing item set
// builder for an augmented grammar
func BuildParseTableFrom(ctx context.Context, isb *ItemSetBuilder, opts TableOptions) (*PTableBuilder, error) {
	ptb := NewPTableBuilder(isb, opts)
	if err := ptb.BuildStates(ctx); err != nil {
		return ptb, err
	}

	return ptb, ptb.BuildTable(ctx)
}

// NewPTableBuilder creates a table builder driven by an item set builder
// for an augmented grammar (see grammar.SyntaxGrammar.Augmented)
func NewPTableBuilder(isb *ItemSetBuilder, opts TableOptions) *PTableBuilder {
	startVariable := len(isb.sg.Variables) - 1
	if startVariable < 0 || isb.sg.Variables[startVariable].Name != grammar.AugmentedStartName {
		logging.LogFatal("table builder requires an augmented grammar")
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	return &PTableBuilder{
		builder:       isb,
		formatter:     &ItemFormatter{Syntax: isb.sg, Lexical: isb.lg, Inlines: isb.inlines},
		opts:          opts,
		startVariable: startVariable,
		cores:         make(map[string]int),
	}
}

// ItemSetBuilder returns the engine the automaton is built with
func (ptb *PTableBuilder) ItemSetBuilder() *ItemSetBuilder {
	return ptb.builder
}

// Formatter returns an item formatter for the builder's grammar
func (ptb *PTableBuilder) Formatter() *ItemFormatter {
	return ptb.formatter
}

// BuildStates computes the LALR(1) states.  Kernels with the same core share
// a state whose lookaheads are the union of theirs; whenever a state's
// lookaheads grow it is closed again so the growth reaches its successors.
// The states pending in a round are closed concurrently.
func (ptb *PTableBuilder) BuildStates(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	sg := ptb.builder.sg

	start := NewParseItemSet()
	start.Insert(ParseItem{Variable: ptb.startVariable}, NewLookaheadSet(grammar.End()))
	ptb.mergeKernel(start)

	pending := []int{0}
	for round := 1; len(pending) > 0; round++ {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("building states: %w", err)
		}

		closures := make([]*ParseItemSet, len(pending))

		var eg errgroup.Group
		eg.SetLimit(ptb.opts.Workers)
		for i, state := range pending {
			i, kernel := i, ptb.States[state].Kernel
			eg.Go(func() error {
				closures[i] = ptb.builder.TransitiveClosure(kernel, sg)
				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			return err
		}

		// merging happens on this goroutine in pending order so that state
		// numbering is deterministic
		queued := make(map[int]bool)
		var next []int
		for i, state := range pending {
			st := ptb.States[state]
			st.Items = closures[i]

			for _, succ := range ptb.successors(closures[i]) {
				target, changed := ptb.mergeKernel(succ.kernel)
				st.Transitions[succ.symbol] = target

				if changed && !queued[target] {
					queued[target] = true
					next = append(next, target)
				}
			}
		}

		log.Debug().Int("round", round).Int("closed", len(pending)).Int("states", len(ptb.States)).Msg("closed states")
		pending = next
	}

	return nil
}

type successor struct {
	symbol grammar.Symbol
	kernel *ParseItemSet
}

// successors computes the goto kernels of a closed item set ordered by the
// symbol that leads to them
func (ptb *PTableBuilder) successors(closure *ParseItemSet) []successor {
	sg := ptb.builder.sg
	kernels := make(map[grammar.Symbol]*ParseItemSet)

	for _, item := range closure.Items() {
		prod := ptb.builder.inlines.Production(item, sg)
		if item.Step >= len(prod.Steps) {
			continue
		}

		sym := prod.Steps[item.Step].Symbol
		kernel, ok := kernels[sym]
		if !ok {
			kernel = NewParseItemSet()
			kernels[sym] = kernel
		}

		kernel.Insert(item.Successor(), closure.Entries[item])
	}

	succs := make([]successor, 0, len(kernels))
	for sym, kernel := range kernels {
		succs = append(succs, successor{symbol: sym, kernel: kernel})
	}

	sort.Slice(succs, func(i, j int) bool {
		return succs[i].symbol.Less(succs[j].symbol)
	})

	return succs
}

// mergeKernel finds or creates the state for a kernel and reports whether
// the state is new or its lookaheads grew
func (ptb *PTableBuilder) mergeKernel(kernel *ParseItemSet) (int, bool) {
	core := kernel.core()

	if state, ok := ptb.cores[core]; ok {
		changed := false
		for item, lookaheads := range kernel.Entries {
			if ptb.States[state].Kernel.Insert(item, lookaheads) {
				changed = true
			}
		}

		return state, changed
	}

	state := len(ptb.States)
	ptb.States = append(ptb.States, &LRState{Kernel: kernel, Transitions: make(map[grammar.Symbol]int)})
	ptb.cores[core] = state
	return state, true
}

// BuildTable converts the states into a parsing table.  Shift/reduce
// conflicts are resolved in favor of SHIFT when the policy allows it; every
// other conflict is an error.  All conflicts are recorded in Conflicts.
func (ptb *PTableBuilder) BuildTable(ctx context.Context) error {
	sg, lg := ptb.builder.sg, ptb.builder.lg

	table := &ParsingTable{Fingerprint: ptb.opts.Fingerprint}
	table.Tokens = append(table.Tokens, TokenInfo{Name: grammar.SymbolName(grammar.End(), sg, lg)})
	for _, lv := range lg.Variables {
		table.Tokens = append(table.Tokens, TokenInfo{Name: lv.Name})
	}

	for _, ext := range sg.ExternalTokens {
		table.Tokens = append(table.Tokens, TokenInfo{Name: ext.Name, External: true})
	}

	for _, v := range sg.Variables[:ptb.startVariable] {
		table.NonTerminals = append(table.NonTerminals, v.Name)
	}

	// used to keep track of which rules have already been generated so that
	// productions of the same variable and length share a rule
	ruleIDs := make(map[[2]int]int)

	var errs error
	for i, st := range ptb.States {
		row := &PTableRow{Actions: make(map[int]*Action), Gotos: make(map[int]int)}
		table.Rows = append(table.Rows, row)

		for sym, target := range st.Transitions {
			if sym.IsNonTerminal() {
				row.Gotos[sym.Index] = target
			} else {
				row.Actions[ptb.tokenID(sym)] = &Action{Kind: AKShift, Operand: target}
			}
		}

		// the completed items reducing on each token
		reducers := make(map[int][]ParseItem)

		for _, item := range st.Items.Items() {
			prod := ptb.builder.inlines.Production(item, sg)
			if item.Step < len(prod.Steps) {
				continue
			}

			for _, la := range st.Items.Entries[item].Symbols() {
				tok := ptb.tokenID(la)

				newAction := &Action{Kind: AKAccept}
				if item.Variable != ptb.startVariable {
					newAction = &Action{Kind: AKReduce, Operand: ptb.ruleFor(table, ruleIDs, item.Variable, len(prod.Steps))}
				}

				action, ok := row.Actions[tok]
				if !ok {
					row.Actions[tok] = newAction
					reducers[tok] = append(reducers[tok], item)
					continue
				}

				conflict := &Conflict{State: i, Lookahead: la}
				switch action.Kind {
				case AKShift:
					conflict.Kind = ShiftReduce
					conflict.Items = append(ptb.shiftingItems(st, la), item)
					conflict.Resolved = ptb.opts.Policy == ConflictWarn
				default:
					// productions of the same variable and length reduce to
					// the same tree so they do not really conflict
					if *action == *newAction {
						reducers[tok] = append(reducers[tok], item)
						continue
					}

					conflict.Kind = ReduceReduce
					conflict.Items = append(append([]ParseItem(nil), reducers[tok]...), item)
				}

				ptb.Conflicts = append(ptb.Conflicts, conflict)
				if !conflict.Resolved {
					errs = multierr.Append(errs, errors.New(conflict.Describe(ptb.formatter)))
				}
			}
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("states", len(table.Rows)).
		Int("rules", len(table.Rules)).
		Int("conflicts", len(ptb.Conflicts)).
		Msg("built parsing table")

	ptb.Table = table
	return errs
}

// shiftingItems returns the items of a state that shift a token
func (ptb *PTableBuilder) shiftingItems(st *LRState, tok grammar.Symbol) []ParseItem {
	var items []ParseItem
	for _, item := range st.Items.Items() {
		prod := ptb.builder.inlines.Production(item, ptb.builder.sg)
		if item.Step < len(prod.Steps) && prod.Steps[item.Step].Symbol == tok {
			items = append(items, item)
		}
	}

	return items
}

// ruleFor finds or adds the rule reducing count symbols to a variable
func (ptb *PTableBuilder) ruleFor(table *ParsingTable, ruleIDs map[[2]int]int, variable, count int) int {
	key := [2]int{variable, count}
	if id, ok := ruleIDs[key]; ok {
		return id
	}

	v := ptb.builder.sg.Variables[variable]
	id := len(table.Rules)
	table.Rules = append(table.Rules, &PTableRule{Name: v.Name, Count: count, Variable: variable, Hidden: v.Hidden})
	ruleIDs[key] = id
	return id
}

// tokenID converts a token symbol into its id in the parsing table
func (ptb *PTableBuilder) tokenID(sym grammar.Symbol) int {
	switch sym.Kind {
	case grammar.SymbolEnd:
		return EndTokenID
	case grammar.SymbolTerminal:
		return 1 + sym.Index
	case grammar.SymbolExternal:
		return 1 + len(ptb.builder.lg.Variables) + sym.Index
	}

	logging.LogFatal("non-terminal " + sym.String() + " has no token id")
	return -1
}
