package parse

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rooney/tree-sitter/logging"
)

// ASTNode represents a piece of the syntax tree
type ASTNode interface {
	// Position should span the entire ASTNode (meaningfully)
	Position() *logging.TextPosition
}

// ASTLeaf is simply a token in the tree (at the end of branch)
type ASTLeaf Token

// Position of a leaf is just the position of the token it contains
func (a *ASTLeaf) Position() *logging.TextPosition {
	return TextPositionOfToken((*Token)(a))
}

// TextPositionOfToken takes in a token and returns its text position
func TextPositionOfToken(tok *Token) *logging.TextPosition {
	return &logging.TextPosition{
		StartLn:  tok.Line,
		StartCol: tok.Col,
		EndLn:    tok.Line,
		EndCol:   tok.Col + utf8.RuneCountInString(tok.Name),
	}
}

// ASTBranch is a named set of leaves and branches
type ASTBranch struct {
	Name    string
	Content []ASTNode

	// hidden branches are spliced into their parent
	hidden bool
}

// Position of a branch is the starting position of its first node and the
// ending position of its last node.  Empty branches (an empty start rule)
// have no position.
func (a *ASTBranch) Position() *logging.TextPosition {
	switch len(a.Content) {
	case 0:
		return nil
	case 1:
		return a.Content[0].Position()
	default:
		first, last := a.Content[0].Position(), a.Content[len(a.Content)-1].Position()

		return &logging.TextPosition{StartLn: first.StartLn, StartCol: first.StartCol, EndLn: last.EndLn, EndCol: last.EndCol}
	}
}

// BranchAt gets and casts the specified element to an AST branch
func (a *ASTBranch) BranchAt(ndx int) *ASTBranch {
	return a.Content[ndx].(*ASTBranch)
}

// LeafAt gets and casts the specified element to an AST leaf
func (a *ASTBranch) LeafAt(ndx int) *ASTLeaf {
	return a.Content[ndx].(*ASTLeaf)
}

// Len returns the length of the branch's content
func (a *ASTBranch) Len() int {
	return len(a.Content)
}

// Dump renders a tree one node per line, children indented under their
// parent.  Leaves are printed as their token name and position.
func Dump(node ASTNode) string {
	sb := strings.Builder{}

	type frame struct {
		node  ASTNode
		depth int
	}

	stack := []frame{{node: node}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sb.WriteString(strings.Repeat("  ", top.depth))

		switch v := top.node.(type) {
		case *ASTBranch:
			sb.WriteString(v.Name)
			sb.WriteRune('\n')

			for i := len(v.Content) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: v.Content[i], depth: top.depth + 1})
			}
		case *ASTLeaf:
			sb.WriteString(fmt.Sprintf("'%s' %d:%d\n", v.Name, v.Line, v.Col))
		}
	}

	return sb.String()
}
