package tables

import (
	"fmt"
	"sort"
	"strings"
)

// ParseItem represents an LR(0) item: a production and a dot position.
type ParseItem struct {
	// Variable is the non-terminal the production reduces to
	Variable int

	// Production indexes the variable's productions in the syntax grammar
	// or, if Inlined is set, the spliced productions of the inline map
	Production int

	// Step is the index of the step the dot is placed BEFORE (so a dot at
	// the end of the item has Step == the length of the production)
	Step int

	Inlined bool
}

// Successor returns the item with the dot advanced by one step
func (pi ParseItem) Successor() ParseItem {
	pi.Step++
	return pi
}

// Less orders items by variable, then grammar productions before spliced
// ones, then production and step
func (pi ParseItem) Less(other ParseItem) bool {
	if pi.Variable != other.Variable {
		return pi.Variable < other.Variable
	}

	if pi.Inlined != other.Inlined {
		return !pi.Inlined
	}

	if pi.Production != other.Production {
		return pi.Production < other.Production
	}

	return pi.Step < other.Step
}

func (pi ParseItem) String() string {
	if pi.Inlined {
		return fmt.Sprintf("%d/i%d@%d", pi.Variable, pi.Production, pi.Step)
	}

	return fmt.Sprintf("%d/%d@%d", pi.Variable, pi.Production, pi.Step)
}

// ParseItemSet represents an LR(1) item set: each item is matched with its
// lookaheads.  Item sets are transient: one is built per candidate state.
type ParseItemSet struct {
	Entries map[ParseItem]*LookaheadSet
}

// NewParseItemSet creates an empty item set
func NewParseItemSet() *ParseItemSet {
	return &ParseItemSet{Entries: make(map[ParseItem]*LookaheadSet)}
}

// Insert unions lookaheads into the entry for item (creating it if need be)
// and reports whether the set changed
func (pis *ParseItemSet) Insert(item ParseItem, lookaheads *LookaheadSet) bool {
	if entry, ok := pis.Entries[item]; ok {
		return entry.InsertAll(lookaheads)
	}

	pis.Entries[item] = lookaheads.Clone()
	return true
}

// Items returns the items of the set in a stable order
func (pis *ParseItemSet) Items() []ParseItem {
	items := make([]ParseItem, 0, len(pis.Entries))
	for item := range pis.Entries {
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Less(items[j])
	})

	return items
}

// Equal checks whether two sets have the same items with the same lookaheads
func (pis *ParseItemSet) Equal(other *ParseItemSet) bool {
	if len(pis.Entries) != len(other.Entries) {
		return false
	}

	for item, lookaheads := range pis.Entries {
		otherLookaheads, ok := other.Entries[item]
		if !ok || !lookaheads.Equal(otherLookaheads) {
			return false
		}
	}

	return true
}

func (pis *ParseItemSet) Clone() *ParseItemSet {
	clone := NewParseItemSet()
	for item, lookaheads := range pis.Entries {
		clone.Entries[item] = lookaheads.Clone()
	}

	return clone
}

// core is a key identifying the items of the set without their lookaheads.
// Two kernels with the same core become the same LALR(1) state.
func (pis *ParseItemSet) core() string {
	sb := strings.Builder{}
	for _, item := range pis.Items() {
		sb.WriteString(item.String())
		sb.WriteRune(';')
	}

	return sb.String()
}
