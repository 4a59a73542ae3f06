package tables

import (
	"strconv"
	"strings"

	"github.com/rooney/tree-sitter/grammar"
	"github.com/rooney/tree-sitter/logging"
)

// InlinedProductionMap answers which items replace an item whose dot is
// before a non-terminal marked to inline.  Every replacement is built up
// front by splicing the inlined variable's productions into the production
// at the dot; the map is read-only afterward.
type InlinedProductionMap struct {
	// Productions are the spliced productions referred to by items with
	// Inlined set
	Productions []grammar.Production

	// items maps an item to its substitutes
	items map[ParseItem][]ParseItem

	// interned maps an owner variable and a step sequence to its index in
	// Productions
	interned map[string]int
}

// NewInlinedProductionMap precomputes the substitutes of every item of the
// grammar that has a to-inline non-terminal at its dot
func NewInlinedProductionMap(sg *grammar.SyntaxGrammar) *InlinedProductionMap {
	ipm := &InlinedProductionMap{
		items:    make(map[ParseItem][]ParseItem),
		interned: make(map[string]int),
	}

	if len(sg.VariablesToInline) == 0 {
		return ipm
	}

	// each pending entry is a production (identified by an item at step 0)
	// and the first step to look for inlined symbols at
	type pending struct {
		prod     ParseItem
		scanFrom int
	}

	var queue []pending
	for vi, v := range sg.Variables {
		if sg.ShouldInline(grammar.NonTerminal(vi)) {
			continue
		}

		for pi := range v.Productions {
			queue = append(queue, pending{prod: ParseItem{Variable: vi, Production: pi}})
		}
	}

	// lowest step each spliced production has been queued to scan from
	scanned := make(map[int]int)

	for len(queue) > 0 {
		next := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		steps := ipm.Production(next.prod, sg).Steps
		for s := next.scanFrom; s < len(steps); s++ {
			if !sg.ShouldInline(steps[s].Symbol) {
				continue
			}

			item := next.prod
			item.Step = s
			if _, ok := ipm.items[item]; ok {
				continue
			}

			var substitutes []ParseItem
			for _, spliced := range splice(steps, s, sg) {
				ndx := ipm.intern(item.Variable, spliced)
				sub := ParseItem{Variable: item.Variable, Production: ndx, Step: s, Inlined: true}

				if !containsItem(substitutes, sub) {
					substitutes = append(substitutes, sub)
				}

				if from, ok := scanned[ndx]; !ok || s < from {
					scanned[ndx] = s
					queue = append(queue, pending{prod: ParseItem{Variable: item.Variable, Production: ndx, Inlined: true}, scanFrom: s})
				}
			}

			ipm.items[item] = substitutes
		}
	}

	return ipm
}

// InlinedItems returns the items that replace item if the symbol at its dot
// is to be inlined
func (ipm *InlinedProductionMap) InlinedItems(item ParseItem) ([]ParseItem, bool) {
	items, ok := ipm.items[item]
	return items, ok
}

// Production resolves the production an item refers to
func (ipm *InlinedProductionMap) Production(item ParseItem, sg *grammar.SyntaxGrammar) *grammar.Production {
	if item.Inlined {
		if item.Production >= len(ipm.Productions) {
			logging.LogFatal("item refers to unknown spliced production " + item.String())
		}

		return &ipm.Productions[item.Production]
	}

	if item.Variable >= len(sg.Variables) || item.Production >= len(sg.Variables[item.Variable].Productions) {
		logging.LogFatal("item refers to unknown production " + item.String())
	}

	return &sg.Variables[item.Variable].Productions[item.Production]
}

// intern stores a spliced production for an owner variable once
func (ipm *InlinedProductionMap) intern(owner int, steps []grammar.ProductionStep) int {
	sb := strings.Builder{}
	sb.WriteString(strconv.Itoa(owner))
	for _, step := range steps {
		sb.WriteRune(' ')
		sb.WriteString(step.Symbol.String())
	}

	key := sb.String()
	if ndx, ok := ipm.interned[key]; ok {
		return ndx
	}

	ndx := len(ipm.Productions)
	ipm.Productions = append(ipm.Productions, grammar.Production{Steps: steps})
	ipm.interned[key] = ndx
	return ndx
}

// splice replaces the to-inline symbol at position s with each production of
// its variable, repeating while the symbol now at s is itself to be inlined.
// A splice that would re-enter a variable already inlined at s is dropped.
func splice(steps []grammar.ProductionStep, s int, sg *grammar.SyntaxGrammar) [][]grammar.ProductionStep {
	type partial struct {
		steps []grammar.ProductionStep
		chain []int
	}

	var result [][]grammar.ProductionStep
	stack := []partial{{steps: steps}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s >= len(p.steps) {
			logging.LogFatal("inlined variable has an empty production")
		}

		sym := p.steps[s].Symbol
		if !sg.ShouldInline(sym) {
			result = append(result, p.steps)
			continue
		}

		if containsInt(p.chain, sym.Index) {
			continue
		}

		chain := append(append([]int(nil), p.chain...), sym.Index)

		// push in reverse so that substitutes come out in production order
		prods := sg.Variables[sym.Index].Productions
		for i := len(prods) - 1; i >= 0; i-- {
			spliced := make([]grammar.ProductionStep, 0, len(p.steps)-1+len(prods[i].Steps))
			spliced = append(spliced, p.steps[:s]...)
			spliced = append(spliced, prods[i].Steps...)
			spliced = append(spliced, p.steps[s+1:]...)

			stack = append(stack, partial{steps: spliced, chain: chain})
		}
	}

	return result
}

func containsItem(items []ParseItem, item ParseItem) bool {
	for _, other := range items {
		if other == item {
			return true
		}
	}

	return false
}

func containsInt(ints []int, n int) bool {
	for _, other := range ints {
		if other == n {
			return true
		}
	}

	return false
}
