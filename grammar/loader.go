package grammar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"gitlab.com/tozd/go/errors"
)

// SyntaxError is an error in the text of a grammar file
type SyntaxError struct {
	// Line is numbered from 1, Col from 0
	Line, Col int

	Message string
}

func (se *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", se.Line, se.Col, se.Message)
}

// simple scanner/parser to read in and create grammar
type gramLoader struct {
	file  *bufio.Reader
	rules *RuleSet
	curr  rune

	// position of curr
	line, col int
	lastWasNewline bool

	// err is the first read error that was not io.EOF
	err error
}

// LoadGrammarFile loads the grammar file at the given path
func LoadGrammarFile(path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening grammar file: %w", err)
	}
	defer f.Close()

	return LoadGrammar(f)
}

// LoadGrammar reads a grammar in the tsgen EBNF dialect.  It fails with a
// *SyntaxError if the grammar is syntactically invalid.
func LoadGrammar(r io.Reader) (*RuleSet, error) {
	gl := &gramLoader{file: bufio.NewReader(r), rules: &RuleSet{}, line: 1, col: -1}

	if err := gl.load(); err != nil {
		return nil, err
	}

	if gl.err != nil {
		return nil, errors.Errorf("reading grammar: %w", gl.err)
	}

	return gl.rules, nil
}

// load the grammar into the rule set
func (gl *gramLoader) load() error {
	for gl.next() {
		switch gl.curr {
		// skip whitespace and byte order marks, lines counted in next()
		case ' ', '\t', '\n', '\r', 65279:
			// break
		// read comments (starting with `(*`)
		case '(':
			if b, ok := gl.peek(); ok && b == '*' {
				if err := gl.skipComment(); err != nil {
					return err
				}
				break
			}

			return gl.unexpectedToken()
		// outer loading algorithm only expects whitespace, comments and
		// rules, so we only look to see if we have a valid beginning to a
		// rule here instead of checking more generally
		default:
			if isIdentStart(gl.curr) {
				if err := gl.readRule(); err != nil {
					return err
				}
			} else {
				return gl.unexpectedToken()
			}
		}
	}

	return nil
}

// read a rune from the stream and store it
func (gl *gramLoader) next() bool {
	r, _, err := gl.file.ReadRune()
	if err != nil {
		if err != io.EOF {
			gl.err = err
		}

		return false
	}

	if gl.lastWasNewline {
		gl.line++
		gl.col = 0
	} else {
		gl.col++
	}

	gl.lastWasNewline = r == '\n'
	gl.curr = r
	return true
}

// peek the next rune without consuming it
func (gl *gramLoader) peek() (rune, bool) {
	r, _, err := gl.file.ReadRune()
	if err != nil {
		return 0, false
	}

	gl.file.UnreadRune()
	return r, true
}

// read a comment to conclusion
func (gl *gramLoader) skipComment() error {
	line, col := gl.line, gl.col

	// skip opening '*'
	gl.next()

	for gl.next() {
		if gl.curr == '*' {
			if ahead, ok := gl.peek(); ok && ahead == ')' {
				gl.next()
				return nil
			}
		}
	}

	return &SyntaxError{Line: line, Col: col, Message: "comment not closed before end of file"}
}

// returns an unexpected token error
func (gl *gramLoader) unexpectedToken() error {
	return gl.errorf("unexpected character `%c`", gl.curr)
}

func (gl *gramLoader) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Line: gl.line, Col: gl.col, Message: fmt.Sprintf(format, args...)}
}

// load and parse a rule
func (gl *gramLoader) readRule() error {
	line, col := gl.line, gl.col
	name := gl.readIdentifier()

	if _, ok := gl.rules.Lookup(name); ok {
		return &SyntaxError{Line: line, Col: col, Message: fmt.Sprintf("rule `%s` is defined more than once", name)}
	}

	for gl.next() {
		switch gl.curr {
		case ' ', '\t', '\n', '\r':
			// ignore whitespace between the name and the `=`
			continue
		case '=':
			// rule is just group ending in ';'
			gelems, err := gl.parseGroupContent(';')
			if err != nil {
				return err
			}

			gl.rules.addRule(&Rule{Name: name, Body: gelems, Line: line})
			return nil
		default:
			return gl.unexpectedToken()
		}
	}

	// if we reach here, the loop did not exit properly (ran out of runes)
	return gl.errorf("unexpected end of file in rule `%s`", name)
}

// parse a group or rule body up to a closer
func (gl *gramLoader) parseGroupContent(expectedCloser rune) ([]GrammaticalElement, error) {
	var groupContent []GrammaticalElement

	for gl.next() {
		switch gl.curr {
		case ' ', '\t', '\n', '\r':
			// ignore whitespace
			continue
		// for all grouping elements, parse their content up until the provided closer
		// and the collect the elements into a group of the desired kind and push it
		// onto the groupContent stack
		case '(':
			if b, ok := gl.peek(); ok && b == '*' {
				if err := gl.skipComment(); err != nil {
					return nil, err
				}
				continue
			}

			gelems, err := gl.parseGroupContent(')')
			if err != nil {
				return nil, err
			}

			groupContent = append(groupContent, NewGroupingElement(GKindGroup, gelems))
		case '[':
			gelems, err := gl.parseGroupContent(']')
			if err != nil {
				return nil, err
			}

			groupContent = append(groupContent, NewGroupingElement(GKindOptional, gelems))
		case '{':
			gelems, err := gl.parseGroupContent('}')
			if err != nil {
				return nil, err
			}

			groupContent = append(groupContent, NewGroupingElement(GKindRepeat, gelems))
		// alternators interrupt the current parsing group and create a new one
		// to the same closer so that they can combine the tailing elements with
		// the elements before them. if the tail is itself an alternator, then
		// we combine them into a single alternator over multiple values, if it
		// is not, then we simply combine the two sets of group elements across
		// a single alternator.  because alternators interrupt parsing and
		// bubble upward, alternators will only ever return as the only element
		// in their group
		case '|':
			if len(groupContent) == 0 {
				return nil, gl.errorf("empty alternative before `|`")
			}

			tailContent, err := gl.parseGroupContent(expectedCloser)
			if err != nil {
				return nil, err
			}

			if alternator, ok := tailContent[0].(*AlternatorElement); ok {
				alternator.PushFront(groupContent)
				return []GrammaticalElement{alternator}, nil
			}

			return []GrammaticalElement{NewAlternatorElement(groupContent, tailContent)}, nil
		case '\'':
			terminal, err := gl.readTerminal()
			if err != nil {
				return nil, err
			}

			gl.rules.addTerminal(terminal)
			groupContent = append(groupContent, Literal(terminal))
		case expectedCloser:
			// if we encounter an empty rule or group than we cannot close on it
			if len(groupContent) == 0 {
				return nil, gl.errorf("empty grammatical group")
			}

			return groupContent, nil
		default:
			if isIdentStart(gl.curr) {
				line, col := gl.line, gl.col
				name := gl.readIdentifier()
				groupContent = append(groupContent, Reference{Name: name, Line: line, Col: col})
			} else {
				// if nothing else matched, then we have an unexpected token
				// (some kind of rogue particle or perhaps the residue of a
				// malformed rule or group)
				return nil, gl.unexpectedToken()
			}
		}
	}

	return nil, gl.errorf("expected `%c` before end of file", expectedCloser)
}

// readTerminal reads a quoted token literal; the opening quote is current
func (gl *gramLoader) readTerminal() (string, error) {
	line, col := gl.line, gl.col
	terminalBuilder := strings.Builder{}

	for gl.next() {
		switch gl.curr {
		case '\\':
			if !gl.next() {
				break
			}

			terminalBuilder.WriteRune(gl.curr)
		case '\n':
			return "", &SyntaxError{Line: line, Col: col, Message: "token literal not closed before end of line"}
		case '\'':
			if terminalBuilder.Len() == 0 {
				return "", &SyntaxError{Line: line, Col: col, Message: "empty token literal"}
			}

			return terminalBuilder.String(), nil
		default:
			terminalBuilder.WriteRune(gl.curr)
		}
	}

	return "", &SyntaxError{Line: line, Col: col, Message: "token literal not closed before end of file"}
}

// readIdentifier reads a rule or token name; the first rune is current
func (gl *gramLoader) readIdentifier() string {
	identBuilder := strings.Builder{}

	// to read an identifier, we assume the current character is valid
	// (guaranteed be caller) and add it.  Then, we peek the next character:
	// if it is valid, we continue looping. If it is not, we exit and avoid
	// adding it.
	for {
		identBuilder.WriteRune(gl.curr)

		c, ok := gl.peek()
		if ok && isIdentPart(c) {
			gl.next()
		} else {
			break
		}
	}

	return identBuilder.String()
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
