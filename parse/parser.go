package parse

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/rooney/tree-sitter/logging"
	"github.com/rooney/tree-sitter/tables"
)

// Error is an unexpected token (or end of input) met while parsing
type Error struct {
	// Token is nil when the input ended early
	Token *Token

	// Expected are the names of the tokens the parser could have accepted,
	// sorted
	Expected []string

	// Line and Col locate the error
	Line, Col int
}

func (e *Error) Error() string {
	var msg string
	if e.Token == nil {
		msg = "unexpected end of input"
	} else {
		msg = fmt.Sprintf("unexpected token `%s`", e.Token.Name)
	}

	if len(e.Expected) > 0 {
		msg += "; expected one of: " + strings.Join(e.Expected, ", ")
	}

	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Col, msg)
}

// Position returns the text position of the error
func (e *Error) Position() *logging.TextPosition {
	if e.Token == nil {
		return &logging.TextPosition{StartLn: e.Line, StartCol: e.Col, EndLn: e.Line, EndCol: e.Col}
	}

	return TextPositionOfToken(e.Token)
}

// Parser is an LALR(1) parser driven by a parsing table
type Parser struct {
	ptable *tables.ParsingTable

	// token source and the token currently being looked at; lookaheadID is
	// tables.EndTokenID at the end of input
	src         TokenSource
	lookahead   *Token
	lookaheadID int

	// position just past the last token read, used to place errors at the
	// end of input
	endLine, endCol int

	stateStack []int

	// semantic stack is used to build the tree
	semanticStack []ASTNode
}

// NewParser creates a new parser for the given parsing table and token source
func NewParser(ptable *tables.ParsingTable, src TokenSource) *Parser {
	return &Parser{
		ptable: ptable,
		src:    src,
		// set the state stack to the starting/initial state
		stateStack: []int{0},
		endLine:    1,
	}
}

// Parse runs the main parsing algorithm over the token source and returns
// the tree of the start rule.  A syntax error is returned as *Error.
func (p *Parser) Parse(ctx context.Context) (*ASTBranch, error) {
	log := zerolog.Ctx(ctx)

	// initialize the lookahead
	if err := p.consume(); err != nil {
		return nil, err
	}

	for {
		state := p.stateStack[len(p.stateStack)-1]
		if state >= len(p.ptable.Rows) {
			return nil, errors.Errorf("parsing table has no state %d", state)
		}

		row := p.ptable.Rows[state]

		action, ok := row.Actions[p.lookaheadID]
		if !ok {
			return nil, p.unexpected(row)
		}

		switch action.Kind {
		case tables.AKShift:
			log.Debug().Int("state", state).Str("token", p.tokenName(p.lookaheadID)).Int("target", action.Operand).Msg("shift")

			p.stateStack = append(p.stateStack, action.Operand)
			p.semanticStack = append(p.semanticStack, (*ASTLeaf)(p.lookahead))

			if err := p.consume(); err != nil {
				return nil, err
			}
		case tables.AKReduce:
			if err := p.reduce(action.Operand); err != nil {
				return nil, err
			}

			log.Debug().Int("state", state).Str("rule", p.ptable.Rules[action.Operand].Name).Msg("reduce")
		case tables.AKAccept:
			root, ok := p.semanticStack[0].(*ASTBranch)
			if !ok || len(p.semanticStack) != 1 {
				return nil, errors.New("parse accepted without a single root tree")
			}

			return root, nil
		default:
			return nil, errors.Errorf("unknown action kind %d in state %d", action.Kind, state)
		}
	}
}

// consume reads the next token from the source into the lookahead
func (p *Parser) consume() error {
	tok, err := p.src.Next()
	if errors.Is(err, io.EOF) {
		p.lookahead = nil
		p.lookaheadID = tables.EndTokenID
		return nil
	} else if err != nil {
		return errors.Errorf("reading token: %w", err)
	}

	id, ok := p.ptable.TokenID(tok.Name)
	if !ok || id == tables.EndTokenID {
		return &Error{Token: tok, Line: tok.Line, Col: tok.Col}
	}

	p.lookahead = tok
	p.lookaheadID = id
	p.endLine, p.endCol = tok.Line, TextPositionOfToken(tok).EndCol
	return nil
}

// reduce performs a reduction and splices any hidden branches it reduces
// into the new branch
func (p *Parser) reduce(ruleRef int) error {
	if ruleRef >= len(p.ptable.Rules) {
		return errors.Errorf("parsing table has no rule %d", ruleRef)
	}

	rule := p.ptable.Rules[ruleRef]
	if rule.Count > len(p.semanticStack) {
		return errors.Errorf("rule `%s` reduces more nodes than are on the stack", rule.Name)
	}

	branch := &ASTBranch{Name: rule.Name, hidden: rule.Hidden}
	popped := p.semanticStack[len(p.semanticStack)-rule.Count:]

	for _, item := range popped {
		if subbranch, ok := item.(*ASTBranch); ok && subbranch.hidden {
			branch.Content = append(branch.Content, subbranch.Content...)
		} else {
			branch.Content = append(branch.Content, item)
		}
	}

	p.semanticStack = append(p.semanticStack[:len(p.semanticStack)-rule.Count], branch)
	p.stateStack = p.stateStack[:len(p.stateStack)-rule.Count]

	// goto the next state
	currState := p.stateStack[len(p.stateStack)-1]
	next, ok := p.ptable.Rows[currState].Gotos[rule.Variable]
	if !ok {
		return errors.Errorf("parsing table has no goto on `%s` from state %d", rule.Name, currState)
	}

	p.stateStack = append(p.stateStack, next)
	return nil
}

// unexpected builds the error for a lookahead the row has no action for
func (p *Parser) unexpected(row *tables.PTableRow) *Error {
	var expected []string
	for id := range row.Actions {
		expected = append(expected, p.tokenName(id))
	}

	sort.Strings(expected)

	if p.lookahead == nil {
		return &Error{Expected: expected, Line: p.endLine, Col: p.endCol}
	}

	return &Error{Token: p.lookahead, Expected: expected, Line: p.lookahead.Line, Col: p.lookahead.Col}
}

func (p *Parser) tokenName(id int) string {
	if id < len(p.ptable.Tokens) {
		return p.ptable.Tokens[id].Name
	}

	return fmt.Sprintf("#%d", id)
}
