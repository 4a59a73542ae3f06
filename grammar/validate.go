package grammar

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/rooney/tree-sitter/common"
)

// RuleError is a problem with a rule or a reference to one.  Line and Col
// locate the problem in the grammar file; Line is 0 when the problem comes
// from the project configuration rather than the file.
type RuleError struct {
	Rule      string
	Line, Col int
	Message   string
}

func (re *RuleError) Error() string {
	if re.Line == 0 {
		return re.Message
	}

	return fmt.Sprintf("line %d, col %d: %s", re.Line, re.Col, re.Message)
}

// Validate checks that a rule set and its options describe a usable grammar:
// every reference resolves, the start rule exists, external token names are
// unique and distinct from rules, and the inline list only names rules other
// than the start rule.  All problems are combined into the returned error.
func Validate(rs *RuleSet, opts Options) error {
	if len(rs.Rules) == 0 {
		return errors.New("grammar defines no rules")
	}

	var errs error

	externals := make(map[string]struct{})
	for _, name := range opts.Externals {
		if !common.IsValidIdentifier(name) {
			errs = multierr.Append(errs, &RuleError{Message: fmt.Sprintf("external token name `%s` is not a valid identifier", name)})
		}

		if _, ok := externals[name]; ok {
			errs = multierr.Append(errs, &RuleError{Message: fmt.Sprintf("external token `%s` is listed more than once", name)})
		}

		if r, ok := rs.Lookup(name); ok {
			errs = multierr.Append(errs, &RuleError{Rule: name, Line: r.Line, Message: fmt.Sprintf("external token `%s` has the same name as a rule", name)})
		}

		externals[name] = struct{}{}
	}

	start := rs.Rules[0].Name
	if opts.Start != "" {
		if _, ok := rs.Lookup(opts.Start); !ok {
			errs = multierr.Append(errs, &RuleError{Message: fmt.Sprintf("start rule `%s` is not defined", opts.Start)})
		}

		start = opts.Start
	}

	inlined := make(map[string]struct{})
	for _, name := range opts.Inline {
		if _, ok := inlined[name]; ok {
			errs = multierr.Append(errs, &RuleError{Message: fmt.Sprintf("rule `%s` is listed to inline more than once", name)})
		}
		inlined[name] = struct{}{}

		if _, ok := externals[name]; ok {
			errs = multierr.Append(errs, &RuleError{Message: fmt.Sprintf("cannot inline external token `%s`", name)})
		} else if _, ok := rs.Lookup(name); !ok {
			errs = multierr.Append(errs, &RuleError{Message: fmt.Sprintf("cannot inline undefined rule `%s`", name)})
		} else if name == start {
			errs = multierr.Append(errs, &RuleError{Message: fmt.Sprintf("cannot inline the start rule `%s`", name)})
		}
	}

	// walk every element of every rule with an explicit stack looking for
	// references that do not resolve
	for _, r := range rs.Rules {
		stack := append([]GrammaticalElement(nil), r.Body...)
		for len(stack) > 0 {
			elem := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch v := elem.(type) {
			case Reference:
				_, isExternal := externals[v.Name]
				if _, isRule := rs.Lookup(v.Name); !isRule && !isExternal {
					errs = multierr.Append(errs, &RuleError{
						Rule:    r.Name,
						Line:    v.Line,
						Col:     v.Col,
						Message: fmt.Sprintf("undefined rule `%s` referenced in `%s`", v.Name, r.Name),
					})
				}
			case *GroupingElement:
				stack = append(stack, v.elements...)
			case *AlternatorElement:
				for _, group := range v.groups {
					stack = append(stack, group...)
				}
			}
		}
	}

	return errs
}

// checkProductions validates the expanded grammar: only the start variable
// may match the empty string (and then nothing may refer to it) and the
// inlined variables may not be recursive among themselves.  Unreachable
// variables are recorded as warnings.
func checkProductions(g *Grammar, rs *RuleSet) error {
	sg := g.Syntax
	var errs error

	lineOf := func(name string) int {
		if r, ok := rs.Lookup(name); ok {
			return r.Line
		}

		return 0
	}

	for i, v := range sg.Variables {
		if i == 0 {
			continue
		}

		for _, prod := range v.Productions {
			if len(prod.Steps) == 0 {
				errs = multierr.Append(errs, &RuleError{
					Rule:    v.Name,
					Line:    lineOf(v.Name),
					Message: fmt.Sprintf("rule `%s` can match the empty string; only the start rule may", v.Name),
				})
				break
			}
		}
	}

	// an empty start variable is only sound while nothing refers to it
	startNullable := false
	for _, prod := range sg.Variables[0].Productions {
		if len(prod.Steps) == 0 {
			startNullable = true
		}
	}

	if startNullable {
		for _, v := range sg.Variables {
			if refersTo(v, 0) {
				errs = multierr.Append(errs, &RuleError{
					Rule:    v.Name,
					Line:    lineOf(v.Name),
					Message: fmt.Sprintf("rule `%s` refers to the start rule `%s`, which can match the empty string", v.Name, sg.Variables[0].Name),
				})
			}
		}
	}

	for _, sym := range inlineCycle(sg) {
		name := sg.Variables[sym.Index].Name
		errs = multierr.Append(errs, &RuleError{
			Rule:    name,
			Line:    lineOf(name),
			Message: fmt.Sprintf("inlined rule `%s` is recursive", name),
		})
	}

	// everything reachable from the start variable
	reached := make([]bool, len(sg.Variables))
	reached[0] = true
	stack := []int{0}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, prod := range sg.Variables[v].Productions {
			for _, step := range prod.Steps {
				if step.Symbol.IsNonTerminal() && !reached[step.Symbol.Index] {
					reached[step.Symbol.Index] = true
					stack = append(stack, step.Symbol.Index)
				}
			}
		}
	}

	for i, ok := range reached {
		if !ok {
			g.Warnings = append(g.Warnings, fmt.Sprintf("rule `%s` is unreachable from `%s`", sg.Variables[i].Name, sg.Variables[0].Name))
		}
	}

	return errs
}

func refersTo(v Variable, index int) bool {
	for _, prod := range v.Productions {
		for _, step := range prod.Steps {
			if step.Symbol.IsNonTerminal() && step.Symbol.Index == index {
				return true
			}
		}
	}

	return false
}

// inlineCycle returns the inlined variables that take part in a cycle of
// inlined variables referring to each other.  It repeatedly removes inlined
// variables that refer to no remaining inlined variable; whatever cannot be
// removed is on (or leads into) a cycle.
func inlineCycle(sg *SyntaxGrammar) []Symbol {
	refs := make(map[Symbol]map[Symbol]struct{})
	for _, sym := range sg.VariablesToInline {
		refs[sym] = make(map[Symbol]struct{})
		for _, prod := range sg.Variables[sym.Index].Productions {
			for _, step := range prod.Steps {
				if sg.ShouldInline(step.Symbol) {
					refs[sym][step.Symbol] = struct{}{}
				}
			}
		}
	}

	for removed := true; removed; {
		removed = false

		for sym, out := range refs {
			live := 0
			for target := range out {
				if _, ok := refs[target]; ok {
					live++
				}
			}

			if live == 0 {
				delete(refs, sym)
				removed = true
			}
		}
	}

	var cycle []Symbol
	for _, sym := range sg.VariablesToInline {
		if _, ok := refs[sym]; ok {
			cycle = append(cycle, sym)
		}
	}

	return cycle
}
