package grammar

import (
	"fmt"
	"strings"

	"github.com/rooney/tree-sitter/logging"
)

// Options are the project settings that shape how a rule set is expanded
type Options struct {
	// Start is the name of the start rule.  Empty means the first rule.
	Start string

	// Externals are the names of tokens scanned outside of the generator
	Externals []string

	// Inline are the names of the rules to elide from the automaton
	Inline []string
}

// Expander is a struct used to hold the shared state used as the EBNF grammar
// is expanded into flat productions (growing variable list and repeat counter)
type Expander struct {
	syntax *SyntaxGrammar

	indices   map[string]int
	externals map[string]int
	terminals map[string]int

	// used to generate unique helper rule names
	repeatCounter int

	// used to add the prefix to helper rule names
	currentRuleName string
}

// ExpandGrammar validates a rule set and expands it into a syntax grammar and a
// lexical grammar.  The result contains no epsilon productions except possibly
// in the start variable: alternation and optional elements multiply out the
// sequence that contains them, and repetition introduces a hidden,
// left-recursive helper variable.
func ExpandGrammar(rs *RuleSet, opts Options) (*Grammar, error) {
	if err := Validate(rs, opts); err != nil {
		return nil, err
	}

	e := &Expander{
		syntax:    &SyntaxGrammar{},
		indices:   make(map[string]int),
		externals: make(map[string]int),
		terminals: make(map[string]int),
	}

	for i, name := range opts.Externals {
		e.externals[name] = i
		e.syntax.ExternalTokens = append(e.syntax.ExternalTokens, ExternalToken{Name: name})
	}

	lexical := &LexicalGrammar{}
	for i, lit := range rs.Terminals {
		e.terminals[lit] = i
		lexical.Variables = append(lexical.Variables, LexicalVariable{Name: lit})
	}

	// the start rule always becomes variable 0; the others keep file order
	ordered := orderRules(rs, opts.Start)
	for i, r := range ordered {
		e.indices[r.Name] = i
		e.syntax.Variables = append(e.syntax.Variables, Variable{
			Name:   r.Name,
			Hidden: strings.HasPrefix(r.Name, "_"),
		})
	}

	for i, r := range ordered {
		e.currentRuleName = r.Name
		e.repeatCounter = 0
		e.syntax.Variables[i].Productions = toProductions(e.expandGroup(r.Body))
	}

	for _, name := range opts.Inline {
		e.syntax.VariablesToInline = append(e.syntax.VariablesToInline, NonTerminal(e.indices[name]))
	}

	g := &Grammar{Syntax: e.syntax, Lexical: lexical}
	if err := checkProductions(g, rs); err != nil {
		return nil, err
	}

	return g, nil
}

// orderRules moves the start rule to the front
func orderRules(rs *RuleSet, start string) []*Rule {
	if start == "" || rs.Rules[0].Name == start {
		return rs.Rules
	}

	ordered := make([]*Rule, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		if r.Name == start {
			ordered = append(ordered, r)
		}
	}

	for _, r := range rs.Rules {
		if r.Name != start {
			ordered = append(ordered, r)
		}
	}

	return ordered
}

// expandGroup converts a group into every flat sequence it can match
func (e *Expander) expandGroup(group []GrammaticalElement) [][]Symbol {
	seqs := [][]Symbol{nil}

	for _, item := range group {
		alts := e.expandElement(item)

		next := make([][]Symbol, 0, len(seqs)*len(alts))
		for _, seq := range seqs {
			for _, alt := range alts {
				joined := make([]Symbol, 0, len(seq)+len(alt))
				joined = append(joined, seq...)
				joined = append(joined, alt...)
				next = append(next, joined)
			}
		}

		seqs = next
	}

	return seqs
}

// expandElement converts a single element into the sequences it can match
func (e *Expander) expandElement(item GrammaticalElement) [][]Symbol {
	switch v := item.(type) {
	case Literal:
		return [][]Symbol{{Terminal(e.terminals[string(v)])}}
	case Reference:
		if ndx, ok := e.externals[v.Name]; ok {
			return [][]Symbol{{External(ndx)}}
		}

		return [][]Symbol{{NonTerminal(e.indices[v.Name])}}
	case *AlternatorElement:
		var seqs [][]Symbol
		for _, group := range v.groups {
			seqs = append(seqs, e.expandGroup(group)...)
		}

		return seqs
	case *GroupingElement:
		switch v.kind {
		case GKindGroup:
			return e.expandGroup(v.elements)
		// an optional matches its content or nothing
		case GKindOptional:
			return append(e.expandGroup(v.elements), nil)
		// a repeat becomes a helper rule `R -> X | R X` which is either present
		// or absent in the containing sequence
		case GKindRepeat:
			return [][]Symbol{{e.repeatRule(v.elements)}, nil}
		}
	}

	// all other kinds cannot be produced by the loader
	logging.LogFatal(fmt.Sprintf("unexpected grammatical element %T", item))
	return nil
}

// repeatRule adds a helper variable matching one or more of group
func (e *Expander) repeatRule(group []GrammaticalElement) Symbol {
	e.repeatCounter++
	name := fmt.Sprintf("_%s_repeat%d", e.currentRuleName, e.repeatCounter)

	// reserve the index first so nested repeats get later indices
	ndx := len(e.syntax.Variables)
	e.syntax.Variables = append(e.syntax.Variables, Variable{Name: name, Hidden: true})
	e.indices[name] = ndx
	self := NonTerminal(ndx)

	// {[X]} repeats the same as {X}: drop empty bodies so that the helper never
	// has an empty or self-only production
	var body [][]Symbol
	for _, seq := range e.expandGroup(group) {
		if len(seq) > 0 {
			body = append(body, seq)
		}
	}

	seqs := make([][]Symbol, 0, 2*len(body))
	seqs = append(seqs, body...)
	for _, seq := range body {
		seqs = append(seqs, append([]Symbol{self}, seq...))
	}

	e.syntax.Variables[ndx].Productions = toProductions(seqs)
	return self
}

// toProductions converts flat sequences to productions, dropping duplicates
func toProductions(seqs [][]Symbol) []Production {
	prods := make([]Production, 0, len(seqs))

outer:
	for _, seq := range seqs {
		prod := NewProduction(seq...)
		for i := range prods {
			if prods[i].Equal(&prod) {
				continue outer
			}
		}

		prods = append(prods, prod)
	}

	return prods
}
