package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ComedicChimera/olive"

	"github.com/rooney/tree-sitter/build"
	"github.com/rooney/tree-sitter/common"
	"github.com/rooney/tree-sitter/grammar"
	"github.com/rooney/tree-sitter/logging"
	"github.com/rooney/tree-sitter/parse"
	"github.com/rooney/tree-sitter/project"
	"github.com/rooney/tree-sitter/tables"
)

// Execute runs the main `tsgen` application and returns its exit code
func Execute() int {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("tsgen", "tsgen builds LALR(1) parsing tables from grammar files", true)
	cli.AddSelectorArg("loglevel", "ll", "the generator log level (overrides the project file)", false, []string{"silent", "error", "warning", "verbose"})
	cli.AddFlag("trace", "t", "write a structured trace of table construction to stderr")

	buildCmd := cli.AddSubcommand("build", "build the parsing table of a project", true)
	buildCmd.AddPrimaryArg("project-dir", "a directory in the project (defaults to the working directory)", false)
	buildCmd.AddFlag("force", "f", "rebuild the table even if the saved one is current")

	firstCmd := cli.AddSubcommand("first", "print the FIRST and LAST sets of every rule", true)
	firstCmd.AddPrimaryArg("project-dir", "a directory in the project", false)

	statesCmd := cli.AddSubcommand("states", "print the item sets of the LALR(1) states", true)
	statesCmd.AddPrimaryArg("project-dir", "a directory in the project", false)

	parseCmd := cli.AddSubcommand("parse", "parse a sequence of token names with the saved table", true)
	parseCmd.AddPrimaryArg("project-dir", "a directory in the project", false)
	parseCmd.AddStringArg("tokens", "tk", "the token names separated by whitespace", true)

	initCmd := cli.AddSubcommand("init", "create a project in the working directory", true)
	initCmd.AddPrimaryArg("name", "the name of the grammar", true)

	cli.AddSubcommand("version", "print the tsgen version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		logging.PrintErrorMessage("CLI Usage Error", err)
		return 2
	}

	loglevel := ""
	if arg, ok := result.Arguments["loglevel"]; ok {
		loglevel = arg.(string)
	}

	ctx := logging.NewTraceContext(context.Background(), result.HasFlag("trace"))

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	ok := true
	switch subcmdName {
	case "build":
		ok = execBuildCommand(ctx, subResult, loglevel)
	case "first":
		ok = execFirstCommand(ctx, subResult, loglevel)
	case "states":
		ok = execStatesCommand(ctx, subResult, loglevel)
	case "parse":
		ok = execParseCommand(ctx, subResult, loglevel)
	case "init":
		ok = execInitCommand(subResult)
	case "version":
		logging.PrintInfoMessage("tsgen Version", common.Version)
	}

	if !ok {
		return 1
	}

	return 0
}

// loadProject finds and loads the project containing the primary argument of
// a subcommand and initializes the logger for it.  The log level given on the
// command line wins over the one in the project file.
func loadProject(result *olive.ArgParseResult, loglevel string) (*project.Project, bool) {
	dir, ok := result.PrimaryArg()
	if !ok || dir == "" {
		dir = "."
	}

	root, err := project.FindProject(dir)
	if err != nil {
		logging.PrintErrorMessage("Project Error", err)
		return nil, false
	}

	proj, err := project.LoadProject(root)
	if err != nil {
		logging.PrintErrorMessage("Project Load Error", err)
		return nil, false
	}

	if loglevel == "" {
		loglevel = proj.LogLevel
	}

	logging.Initialize(loglevel)
	return proj, true
}

// execBuildCommand executes the build subcommand and handles all errors
func execBuildCommand(ctx context.Context, result *olive.ArgParseResult, loglevel string) bool {
	proj, ok := loadProject(result, loglevel)
	if !ok {
		return false
	}

	return build.NewGenerator(proj, result.HasFlag("force")).Generate(ctx)
}

// execFirstCommand prints the symbol sets of each rule as a table
func execFirstCommand(ctx context.Context, result *olive.ArgParseResult, loglevel string) bool {
	proj, ok := loadProject(result, loglevel)
	if !ok {
		return false
	}

	g, ok := build.NewGenerator(proj, false).Prepare()
	if !ok {
		return logging.Finish()
	}

	sg := g.Syntax
	isb := tables.NewItemSetBuilder(ctx, sg, g.Lexical, tables.NewInlinedProductionMap(sg))
	f := &tables.ItemFormatter{Syntax: sg, Lexical: g.Lexical}

	rows := [][]string{{"Rule", "FIRST", "LAST"}}
	for i, v := range sg.Variables {
		sym := grammar.NonTerminal(i)
		rows = append(rows, []string{v.Name, f.FormatLookaheads(isb.FirstSet(sym)), f.FormatLookaheads(isb.LastSet(sym))})
	}

	if err := logging.PrintTable(rows); err != nil {
		logging.PrintErrorMessage("Display Error", err)
		return false
	}

	return logging.Finish()
}

// execStatesCommand prints the closed item set of every state
func execStatesCommand(ctx context.Context, result *olive.ArgParseResult, loglevel string) bool {
	proj, ok := loadProject(result, loglevel)
	if !ok {
		return false
	}

	// states are printed even when the table has conflicts
	ptb, _ := build.NewGenerator(proj, false).Construct(ctx)
	if ptb == nil {
		return logging.Finish()
	}

	for i, st := range ptb.States {
		fmt.Printf("State %d:\n%s\n", i, ptb.Formatter().FormatItemSet(st.Items))
	}

	for _, c := range ptb.Conflicts {
		fmt.Println(c.Describe(ptb.Formatter()))
	}

	return logging.Finish()
}

// execParseCommand parses the tokens given on the command line and prints the
// resulting tree
func execParseCommand(ctx context.Context, result *olive.ArgParseResult, loglevel string) bool {
	proj, ok := loadProject(result, loglevel)
	if !ok {
		return false
	}

	ptable, err := tables.LoadParsingTable(proj.TablePath)
	if err != nil {
		logging.PrintErrorMessage("Table Error", err)
		return false
	}

	if source, err := os.ReadFile(proj.GrammarPath); err == nil && proj.Fingerprint(source) != ptable.Fingerprint {
		logging.PrintWarningMessage("Table Warning", "the parsing table is out of date: run `tsgen build`")
	}

	text, _ := result.Arguments["tokens"].(string)

	tree, err := parse.NewParser(ptable, parse.NewSliceSource(parse.Tokenize(text))).Parse(ctx)
	if err != nil {
		logging.PrintErrorMessage("Parse Error", err)
		return false
	}

	fmt.Print(parse.Dump(tree))
	return true
}

// execInitCommand creates a new project in the working directory
func execInitCommand(result *olive.ArgParseResult) bool {
	workDir, err := os.Getwd()
	if err != nil {
		logging.PrintErrorMessage("Path Error", err)
		return false
	}

	name, _ := result.PrimaryArg()
	if err := project.InitProject(name, workDir); err != nil {
		logging.PrintErrorMessage("Project Init Error", err)
		return false
	}

	logging.PrintInfoMessage("Project", fmt.Sprintf("created project `%s`", name))
	return true
}
