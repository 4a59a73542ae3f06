package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"gitlab.com/tozd/go/errors"

	"github.com/rooney/tree-sitter/common"
)

// starterGrammar is written to the grammar file of a new project
const starterGrammar = `(* grammar for %s *)
program = { statement } ;
statement = 'id' '=' expr ';' ;
expr = expr '+' term | term ;
term = 'id' | 'num' | '(' expr ')' ;
`

// InitProject creates a new project with the given name in the given
// directory: a project file and a starter grammar.  Existing files are never
// overwritten.
func InitProject(name, dir string) error {
	if !common.IsValidIdentifier(name) {
		return errors.New("project name must be a valid identifier")
	}

	projFilePath := filepath.Join(dir, common.ProjectFileName)
	grammarFileName := name + common.GrammarFileExtension
	grammarPath := filepath.Join(dir, grammarFileName)

	// check to see if a project or grammar already exists
	for _, path := range []string{projFilePath, grammarPath} {
		_, err := os.Stat(path)
		if err == nil {
			return errors.Errorf("%s already exists", path)
		}

		if !os.IsNotExist(err) {
			return errors.Errorf("checking %s: %w", path, err)
		}
	}

	cache := true
	tpf := &tomlProjectFile{
		Grammar: &tomlGrammar{Name: name, Path: grammarFileName},
		Output:  &tomlOutput{Table: name + common.TableFileExtension, Cache: &cache},
		Build:   &tomlBuild{LogLevel: "verbose", Conflicts: "warn", Version: common.Version},
	}

	// encode and save project to file
	f, err := os.Create(projFilePath)
	if err != nil {
		return errors.Errorf("creating project file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(tpf); err != nil {
		return errors.Errorf("encoding TOML: %w", err)
	}

	if err := os.WriteFile(grammarPath, []byte(fmt.Sprintf(starterGrammar, name)), 0o644); err != nil {
		return errors.Errorf("writing grammar file: %w", err)
	}

	return nil
}
