package project

import (
	"strings"

	"github.com/rooney/tree-sitter/common"
	"github.com/rooney/tree-sitter/grammar"
	"github.com/rooney/tree-sitter/tables"
)

// Project represents a generator project -- specifically, the project
// configuration loaded from its project file
type Project struct {
	// Name is the name of the grammar
	Name string

	// Root is the absolute path to the directory containing the project file
	Root string

	// GrammarPath is the absolute path to the grammar file
	GrammarPath string

	// Start names the start rule.  Empty means the first rule of the file.
	Start string

	// Externals are the tokens scanned outside of the generator
	Externals []string

	// Inline are the rules to elide from the automaton
	Inline []string

	// TablePath is the absolute path the parsing table is written to
	TablePath string

	// Cache indicates whether a saved table whose fingerprint still matches
	// may be reused instead of being rebuilt
	Cache bool

	// LogLevel is the log level name configured for builds of the project
	LogLevel string

	Conflicts tables.ConflictPolicy

	// Workers bounds the closure worker pool (0 means one per CPU)
	Workers int

	// Version is the version of the tool that wrote the project file
	Version string
}

// GrammarOptions returns the settings that shape how the grammar is expanded
func (p *Project) GrammarOptions() grammar.Options {
	return grammar.Options{Start: p.Start, Externals: p.Externals, Inline: p.Inline}
}

// TableOptions returns the settings used to build the parsing table for the
// given grammar source
func (p *Project) TableOptions(source []byte) tables.TableOptions {
	return tables.TableOptions{
		Policy:      p.Conflicts,
		Workers:     p.Workers,
		Fingerprint: p.Fingerprint(source),
	}
}

// Fingerprint identifies a build of the project: the grammar source plus every
// setting that changes the table built from it
func (p *Project) Fingerprint(source []byte) uint64 {
	return common.GenerateFingerprint(
		string(source),
		p.Start,
		strings.Join(p.Externals, ","),
		strings.Join(p.Inline, ","),
		common.Version,
	)
}
