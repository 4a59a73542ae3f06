package parse

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token represents a token handed to the parser.  The token is identified by
// name: the text of a terminal or the name of an external token.
type Token struct {
	Name string

	// Line is line number starting at 1
	Line int

	// Col is the column number of the first character starting at 0
	Col int
}

// TokenSource is a stream of tokens.  Next returns io.EOF once the stream is
// exhausted.
type TokenSource interface {
	Next() (*Token, error)
}

// SliceSource reads tokens from a slice
type SliceSource struct {
	tokens []*Token
	ndx    int
}

// NewSliceSource creates a token source over the given tokens
func NewSliceSource(tokens []*Token) *SliceSource {
	return &SliceSource{tokens: tokens}
}

func (ss *SliceSource) Next() (*Token, error) {
	if ss.ndx >= len(ss.tokens) {
		return nil, io.EOF
	}

	tok := ss.tokens[ss.ndx]
	ss.ndx++
	return tok, nil
}

// Tokenize splits text at whitespace and treats each word as the name of a
// token.  Positions are recorded so errors can point into the text.
func Tokenize(text string) []*Token {
	var tokens []*Token
	line, col := 1, 0

	sb := strings.Builder{}
	startCol := 0

	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, &Token{Name: sb.String(), Line: line, Col: startCol})
			sb.Reset()
		}
	}

	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]

		switch {
		case r == '\n':
			flush()
			line++
			col = 0
			continue
		case unicode.IsSpace(r):
			flush()
		default:
			if sb.Len() == 0 {
				startCol = col
			}

			sb.WriteRune(r)
		}

		col++
	}

	flush()
	return tokens
}
