package grammar

// RuleSet is a grammar as it is read from a grammar file: an ordered list of
// named EBNF rules
type RuleSet struct {
	Rules []*Rule

	// Terminals holds every literal token in order of first appearance
	Terminals []string

	byName map[string]*Rule
}

// Rule is a single named production of the EBNF grammar
type Rule struct {
	Name string

	// Body is the content of the rule.  If the rule alternates, the body is a
	// single AlternatorElement.
	Body []GrammaticalElement

	// Line is the line the rule's name appears on
	Line int
}

// Lookup finds a rule by name
func (rs *RuleSet) Lookup(name string) (*Rule, bool) {
	r, ok := rs.byName[name]
	return r, ok
}

func (rs *RuleSet) addRule(r *Rule) {
	if rs.byName == nil {
		rs.byName = make(map[string]*Rule)
	}

	rs.byName[r.Name] = r
	rs.Rules = append(rs.Rules, r)
}

func (rs *RuleSet) addTerminal(lit string) {
	for _, t := range rs.Terminals {
		if t == lit {
			return
		}
	}

	rs.Terminals = append(rs.Terminals, lit)
}

// Used to designate the different kinds of grammatical constructs
const (
	GKindAlternator = iota
	GKindRepeat
	GKindGroup
	GKindOptional
	GKindTerminal
	GKindNonterminal
)

// GrammaticalElement represents a piece of the grammar once it is serialized
// into an object
type GrammaticalElement interface {
	Kind() int
}

// Literal grammatical element (the literal text of a terminal token)
type Literal string

// Reference grammatical element: a reference to a rule or external token by
// name along with where the reference appears
type Reference struct {
	Name      string
	Line, Col int
}

// GroupingElement represents all of the other grouping grammatical elements
// (eg. groups, optionals, repeats, etc.)
type GroupingElement struct {
	kind     int
	elements []GrammaticalElement
}

// NewGroupingElement creates a new grouping element
func NewGroupingElement(kind int, elems []GrammaticalElement) *GroupingElement {
	return &GroupingElement{kind: kind, elements: elems}
}

// Kind of a literal is GKindTerminal
func (Literal) Kind() int {
	return GKindTerminal
}

// Kind of a reference is GKindNonterminal
func (Reference) Kind() int {
	return GKindNonterminal
}

// Kind returns the kind of grouping elements based on the stored kind member
// variable
func (g *GroupingElement) Kind() int {
	return g.kind
}

// Elements returns the content of the group
func (g *GroupingElement) Elements() []GrammaticalElement {
	return g.elements
}

// AlternatorElement represents a grammatical alternator storing a slice of the
// subgroups it alternates between
type AlternatorElement struct {
	groups [][]GrammaticalElement
}

// NewAlternatorElement create a new alternator element from some number of
// groups efficiently
func NewAlternatorElement(groups ...[]GrammaticalElement) *AlternatorElement {
	return &AlternatorElement{groups: groups}
}

// Kind of alternator is GKindAlternator
func (AlternatorElement) Kind() int {
	return GKindAlternator
}

// Groups returns the branches of the alternator
func (ae *AlternatorElement) Groups() [][]GrammaticalElement {
	return ae.groups
}

// PushFront pushes a group onto the front of alternator element
func (ae *AlternatorElement) PushFront(group []GrammaticalElement) {
	ae.groups = append([][]GrammaticalElement{group}, ae.groups...)
}
