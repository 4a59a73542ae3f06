package grammar

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// ProductionStep is a single symbol on the right-hand side of a production
type ProductionStep struct {
	Symbol Symbol
}

// Production is one alternative right-hand side of a variable
type Production struct {
	Steps []ProductionStep
}

// NewProduction builds a production from a list of symbols
func NewProduction(symbols ...Symbol) Production {
	steps := make([]ProductionStep, len(symbols))
	for i, sym := range symbols {
		steps[i] = ProductionStep{Symbol: sym}
	}

	return Production{Steps: steps}
}

// FirstSymbol returns the symbol of the first step if there is one
func (p *Production) FirstSymbol() (Symbol, bool) {
	if len(p.Steps) == 0 {
		return Symbol{}, false
	}

	return p.Steps[0].Symbol, true
}

// Equal checks whether two productions have the same steps
func (p *Production) Equal(other *Production) bool {
	if len(p.Steps) != len(other.Steps) {
		return false
	}

	for i, step := range p.Steps {
		if step != other.Steps[i] {
			return false
		}
	}

	return true
}

// Variable is a named non-terminal and its ordered productions
type Variable struct {
	Name string

	// Hidden variables are spliced into their parent in parse trees.  Rules
	// whose name starts with `_` and generated helper rules are hidden.
	Hidden bool

	Productions []Production
}

// ExternalToken is a token produced by a scanner outside of the generator
type ExternalToken struct {
	Name string
}

// SyntaxGrammar is the non-terminal half of a grammar.  It is immutable once
// it has been handed to the table builder.
type SyntaxGrammar struct {
	// Variables are indexed by non-terminal symbol index.  The start variable
	// is always at index 0.
	Variables []Variable

	ExternalTokens []ExternalToken

	// VariablesToInline are the non-terminals that are elided from the
	// automaton by splicing their productions into each use site
	VariablesToInline []Symbol
}

// ShouldInline reports whether the given non-terminal is marked to inline
func (sg *SyntaxGrammar) ShouldInline(sym Symbol) bool {
	if !sym.IsNonTerminal() {
		return false
	}

	for _, v := range sg.VariablesToInline {
		if v == sym {
			return true
		}
	}

	return false
}

// Lookup finds a non-terminal by name
func (sg *SyntaxGrammar) Lookup(name string) (Symbol, error) {
	for i, v := range sg.Variables {
		if v.Name == name {
			return NonTerminal(i), nil
		}
	}

	return Symbol{}, errors.Errorf("no rule named `%s`", name)
}

// AugmentedStartName is the name of the variable added by Augmented.  It
// cannot collide with a rule name since rule names are identifiers.
const AugmentedStartName = "$start"

// Augmented returns a copy of the grammar with one extra variable appended:
// `$start -> S` where S is the start variable.  The new variable's index is
// len(sg.Variables).
func (sg *SyntaxGrammar) Augmented() *SyntaxGrammar {
	variables := make([]Variable, len(sg.Variables), len(sg.Variables)+1)
	copy(variables, sg.Variables)
	variables = append(variables, Variable{
		Name:        AugmentedStartName,
		Hidden:      true,
		Productions: []Production{NewProduction(NonTerminal(0))},
	})

	return &SyntaxGrammar{
		Variables:         variables,
		ExternalTokens:    sg.ExternalTokens,
		VariablesToInline: sg.VariablesToInline,
	}
}

// LexicalVariable is a terminal token.  Tokens in grammar files are literal
// strings so the name doubles as the text the token matches.
type LexicalVariable struct {
	Name string
}

// LexicalGrammar is the terminal half of a grammar
type LexicalGrammar struct {
	Variables []LexicalVariable
}

// Grammar bundles the syntactic and lexical halves of an expanded grammar
type Grammar struct {
	Syntax  *SyntaxGrammar
	Lexical *LexicalGrammar

	// Warnings are non-fatal problems found while expanding (eg. unreachable
	// rules)
	Warnings []string
}

// SymbolName gives the user-facing name of a symbol: terminals are quoted,
// everything else uses its declared name
func SymbolName(sym Symbol, sg *SyntaxGrammar, lg *LexicalGrammar) string {
	switch sym.Kind {
	case SymbolTerminal:
		if lg != nil && sym.Index < len(lg.Variables) {
			return "'" + lg.Variables[sym.Index].Name + "'"
		}
	case SymbolNonTerminal:
		if sg != nil && sym.Index < len(sg.Variables) {
			return sg.Variables[sym.Index].Name
		}
	case SymbolExternal:
		if sg != nil && sym.Index < len(sg.ExternalTokens) {
			return sg.ExternalTokens[sym.Index].Name
		}
	case SymbolEnd:
		return "$end"
	}

	return fmt.Sprintf("<%s>", sym)
}
