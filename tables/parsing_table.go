package tables

import (
	"encoding/gob"
	"os"

	"gitlab.com/tozd/go/errors"
)

// ParsingTable represents an LALR(1) Action-Goto table as well as all of the
// rules it can reduce by
type ParsingTable struct {
	// Fingerprint identifies the grammar and settings the table was built
	// from
	Fingerprint uint64

	// Tokens are indexed by token id: id 0 is the end of input, then come
	// the terminals and then the external tokens
	Tokens []TokenInfo

	// NonTerminals are the names of the variables, indexed the same as the
	// keys of the goto tables
	NonTerminals []string

	Rows  []*PTableRow
	Rules []*PTableRule
}

// TokenInfo names a token of the table
type TokenInfo struct {
	Name     string
	External bool
}

// PTableRow is a particular row in the parsing table.  Any token for which
// there is no key in the action table is unexpected.
type PTableRow struct {
	// Actions are keyed by token id
	Actions map[int]*Action

	// Gotos are keyed by non-terminal index
	Gotos map[int]int
}

// Action contains two items: a kind and an operand.  The kind indicates what
// type of action to perform (Shift, Reduce, Accept) and the operand is used to
// store any data affiliated with the action (state to shift to for shift
// actions, rule to reduce by for reduce actions, nothing for accept actions)
type Action struct {
	// Kind should one of the action kinds enumerated below (prefix AK)
	Kind int

	Operand int
}

// Three different kinds of valid actions (that can be explicitly included)
const (
	AKReduce = iota
	AKShift
	AKAccept
)

// PTableRule is a reduction pattern.  Since the actual elements of a rule are
// not useful at run time, only the number of items to take into the new tree
// and the variable to reduce to are stored.  Productions of the same variable
// and length share a rule.
type PTableRule struct {
	Name     string
	Count    int
	Variable int

	// Hidden rules are spliced into their parent's tree
	Hidden bool
}

// EndTokenID is the token id of the end of input
const EndTokenID = 0

// TokenID finds the id of a token by name
func (pt *ParsingTable) TokenID(name string) (int, bool) {
	for i, tok := range pt.Tokens {
		if tok.Name == name {
			return i, true
		}
	}

	return 0, false
}

// LoadParsingTable loads a parsing table saved by SaveParsingTable
func LoadParsingTable(path string) (*ParsingTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening parsing table: %w", err)
	}
	defer f.Close()

	ptable := &ParsingTable{}
	if err := gob.NewDecoder(f).Decode(ptable); err != nil {
		return nil, errors.Errorf("decoding parsing table %s: %w", path, err)
	}

	return ptable, nil
}

// SaveParsingTable dumps a parsing table into a file (truncating it if it
// already exists)
func SaveParsingTable(ptable *ParsingTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("creating parsing table: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(ptable); err != nil {
		f.Close()
		return errors.Errorf("encoding parsing table: %w", err)
	}

	if err := f.Close(); err != nil {
		return errors.Errorf("writing parsing table: %w", err)
	}

	return nil
}
