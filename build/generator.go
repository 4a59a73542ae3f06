package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/rooney/tree-sitter/grammar"
	"github.com/rooney/tree-sitter/logging"
	"github.com/rooney/tree-sitter/project"
	"github.com/rooney/tree-sitter/tables"
)

// Generator is the data structure responsible for maintaining all high-level
// state of a parsing table build
type Generator struct {
	// proj is the project being built
	proj *project.Project

	// force disables the table cache
	force bool

	// lctx identifies the grammar file in grammar messages
	lctx *logging.LogContext

	// source is the text of the grammar file
	source []byte

	rules   *grammar.RuleSet
	grammar *grammar.Grammar

	// analysis holds the symbol sets and closure additions computed by the
	// Analyzing phase; the automaton is built on top of it
	analysis *tables.ItemSetBuilder

	// builder holds the automaton once the Constructing phase has run
	builder *tables.PTableBuilder

	// Cached indicates that the saved table was current and nothing was
	// rebuilt
	Cached bool
}

// NewGenerator creates a new generator for a given project
func NewGenerator(proj *project.Project, force bool) *Generator {
	return &Generator{
		proj:  proj,
		force: force,
		lctx:  &logging.LogContext{FilePath: proj.GrammarPath},
	}
}

// Generate runs the full pipeline: it loads and validates the grammar,
// constructs the LALR(1) automaton and writes the parsing table.  It handles
// all errors appropriately and returns whether the build succeeded.
func (g *Generator) Generate(ctx context.Context) bool {
	logging.DisplayHeader(g.proj.Name)

	if !g.phase("Loading", g.load) {
		return logging.Finish()
	}

	if g.Cached {
		logging.PrintInfoMessage("Cache", "parsing table is up to date")
		return logging.Finish()
	}

	phases := []struct {
		name string
		step func() bool
	}{
		{"Validating", g.validate},
		{"Preparing", g.prepare},
		{"Analyzing", func() bool { return g.analyze(ctx) }},
		{"Constructing", func() bool { return g.construct(ctx) }},
		{"Writing", g.write},
	}

	for _, p := range phases {
		if !g.phase(p.name, p.step) {
			break
		}
	}

	return logging.Finish()
}

// Prepare runs just the front half of the pipeline (up to the expanded
// grammar) without phases or caching.  This is exported for the CLI commands
// that inspect a grammar.
func (g *Generator) Prepare() (*grammar.Grammar, bool) {
	g.force = true
	if g.load() && g.validate() && g.prepare() {
		return g.grammar, true
	}

	return nil, false
}

// Construct runs the pipeline up to the automaton without writing the table
func (g *Generator) Construct(ctx context.Context) (*tables.PTableBuilder, bool) {
	if _, ok := g.Prepare(); !ok {
		return nil, false
	}

	if !g.analyze(ctx) || !g.construct(ctx) {
		return g.builder, false
	}

	return g.builder, true
}

// phase runs a step of the pipeline between phase markers
func (g *Generator) phase(name string, step func() bool) bool {
	logging.BeginPhase(name)
	ok := step() && logging.ShouldProceed()
	logging.EndPhase(ok)
	return ok
}

// load reads the grammar file and checks the table cache
func (g *Generator) load() bool {
	source, err := os.ReadFile(g.proj.GrammarPath)
	if err != nil {
		logging.LogConfigError("Grammar", "error reading grammar file: "+err.Error())
		return false
	}

	g.source = source

	if !g.force && g.proj.Cache {
		if ptable, err := tables.LoadParsingTable(g.proj.TablePath); err == nil {
			g.Cached = ptable.Fingerprint == g.proj.Fingerprint(source)
		}
	}

	return true
}

// validate parses the grammar file and checks the rules
func (g *Generator) validate() bool {
	rs, err := grammar.LoadGrammar(bytes.NewReader(g.source))
	if err != nil {
		g.logGrammarErrors(err)
		return false
	}

	if err := grammar.Validate(rs, g.proj.GrammarOptions()); err != nil {
		g.logGrammarErrors(err)
		return false
	}

	g.rules = rs
	return true
}

// prepare expands the rules into productions
func (g *Generator) prepare() bool {
	gr, err := grammar.ExpandGrammar(g.rules, g.proj.GrammarOptions())
	if err != nil {
		g.logGrammarErrors(err)
		return false
	}

	for _, w := range gr.Warnings {
		logging.LogGrammarWarning(g.lctx, w, logging.LMKReach, nil)
	}

	g.grammar = gr
	return true
}

// analyze computes the symbol sets and closure additions of the augmented
// grammar that the Constructing phase builds the automaton with
func (g *Generator) analyze(ctx context.Context) bool {
	sg := g.grammar.Syntax.Augmented()
	isb := tables.NewItemSetBuilder(ctx, sg, g.grammar.Lexical, tables.NewInlinedProductionMap(sg))

	log := zerolog.Ctx(ctx)

	// the augmented start variable comes last
	for i, v := range sg.Variables[:len(sg.Variables)-1] {
		sym := grammar.NonTerminal(i)
		log.Debug().
			Str("variable", v.Name).
			Int("first", isb.FirstSet(sym).Len()).
			Int("last", isb.LastSet(sym).Len()).
			Int("additions", len(isb.Additions(sym))).
			Msg("analyzed variable")
	}

	g.analysis = isb
	return true
}

// construct builds the automaton and reports its conflicts
func (g *Generator) construct(ctx context.Context) bool {
	ptb, err := tables.BuildParseTableFrom(ctx, g.analysis, g.proj.TableOptions(g.source))
	g.builder = ptb

	for _, msg := range resolvedConflicts(ptb) {
		logging.LogBuildWarning("Conflict", msg)
	}

	if err != nil {
		for _, e := range multierr.Errors(err) {
			logging.LogGrammarError(g.lctx, e.Error(), logging.LMKConflict, nil)
		}

		return false
	}

	return true
}

// resolvedConflicts describes the conflicts that were settled by shifting
func resolvedConflicts(ptb *tables.PTableBuilder) []string {
	var msgs []string
	for _, c := range ptb.Conflicts {
		if c.Resolved {
			msgs = append(msgs, c.Describe(ptb.Formatter()))
		}
	}

	return msgs
}

// write saves the parsing table
func (g *Generator) write() bool {
	if err := os.MkdirAll(filepath.Dir(g.proj.TablePath), 0o755); err != nil {
		logging.LogConfigError("Output", "error creating output directory: "+err.Error())
		return false
	}

	if err := tables.SaveParsingTable(g.builder.Table, g.proj.TablePath); err != nil {
		logging.LogConfigError("Output", err.Error())
		return false
	}

	return true
}

// logGrammarErrors logs each error of a (possibly combined) grammar error
// at its position in the grammar file when it has one
func (g *Generator) logGrammarErrors(err error) {
	for _, e := range multierr.Errors(err) {
		var serr *grammar.SyntaxError
		var rerr *grammar.RuleError

		switch {
		case errors.As(e, &serr):
			pos := &logging.TextPosition{StartLn: serr.Line, StartCol: serr.Col, EndLn: serr.Line, EndCol: serr.Col + 1}
			logging.LogGrammarError(g.lctx, serr.Message, logging.LMKSyntax, pos)
		case errors.As(e, &rerr) && rerr.Line > 0:
			pos := &logging.TextPosition{StartLn: rerr.Line, StartCol: rerr.Col, EndLn: rerr.Line, EndCol: rerr.Col + 1}
			logging.LogGrammarError(g.lctx, rerr.Message, logging.LMKRule, pos)
		default:
			logging.LogGrammarError(g.lctx, e.Error(), logging.LMKRule, nil)
		}
	}
}
