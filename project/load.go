package project

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/rooney/tree-sitter/common"
	"github.com/rooney/tree-sitter/logging"
	"github.com/rooney/tree-sitter/tables"
)

// tomlProjectFile represents the project file as it is encoded in TOML
type tomlProjectFile struct {
	Grammar *tomlGrammar `toml:"grammar"`
	Output  *tomlOutput  `toml:"output"`
	Build   *tomlBuild   `toml:"build"`
}

// tomlGrammar represents the grammar section of the project file
type tomlGrammar struct {
	Name      string   `toml:"name"`
	Path      string   `toml:"path"`
	Start     string   `toml:"start,omitempty"`
	Externals []string `toml:"externals,omitempty"`
	Inline    []string `toml:"inline,omitempty"`
}

// tomlOutput represents the output section of the project file
type tomlOutput struct {
	Table string `toml:"table,omitempty"`
	Cache *bool  `toml:"cache"`
}

// tomlBuild represents the build section of the project file
type tomlBuild struct {
	LogLevel  string `toml:"log-level,omitempty"`
	Conflicts string `toml:"conflicts,omitempty"`
	Workers   int    `toml:"workers"`
	Version   string `toml:"version"`
}

// LoadProject loads and validates the project in the given directory.  All
// paths of the returned project are absolute.
func LoadProject(dir string) (*Project, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Errorf("resolving project directory: %w", err)
	}

	buff, err := ioutil.ReadFile(filepath.Join(root, common.ProjectFileName))
	if err != nil {
		return nil, errors.Errorf("reading project file: %w", err)
	}

	tpf := &tomlProjectFile{}
	if err := toml.Unmarshal(buff, tpf); err != nil {
		return nil, errors.Errorf("parsing project file: %w", err)
	}

	return convertProject(root, tpf)
}

// convertProject validates a decoded project file and converts it into a
// project rooted at root
func convertProject(root string, tpf *tomlProjectFile) (*Project, error) {
	if tpf.Grammar == nil {
		return nil, errors.Errorf("project file in %s has no [grammar] section", root)
	}

	if tpf.Output == nil {
		tpf.Output = &tomlOutput{}
	}

	if tpf.Build == nil {
		tpf.Build = &tomlBuild{}
	}

	proj := &Project{
		Name:      tpf.Grammar.Name,
		Root:      root,
		Start:     tpf.Grammar.Start,
		Externals: tpf.Grammar.Externals,
		Inline:    tpf.Grammar.Inline,
		Cache:     tpf.Output.Cache == nil || *tpf.Output.Cache,
		LogLevel:  tpf.Build.LogLevel,
		Workers:   tpf.Build.Workers,
		Version:   tpf.Build.Version,
	}

	var errs error

	if proj.Name == "" {
		errs = multierr.Append(errs, errors.New("missing grammar name"))
	} else if !common.IsValidIdentifier(proj.Name) {
		errs = multierr.Append(errs, errors.Errorf("grammar name `%s` must be a valid identifier", proj.Name))
	}

	if tpf.Grammar.Path == "" {
		errs = multierr.Append(errs, errors.New("missing grammar path"))
	} else {
		proj.GrammarPath = resolvePath(root, tpf.Grammar.Path)
	}

	if proj.Start != "" && !common.IsValidIdentifier(proj.Start) {
		errs = multierr.Append(errs, errors.Errorf("start rule `%s` must be a valid identifier", proj.Start))
	}

	errs = multierr.Append(errs, checkNames("externals", proj.Externals))
	errs = multierr.Append(errs, checkNames("inline", proj.Inline))

	policy, err := tables.ParseConflictPolicy(tpf.Build.Conflicts)
	errs = multierr.Append(errs, err)
	proj.Conflicts = policy

	switch proj.LogLevel {
	case "", "silent", "error", "warning", "warn", "verbose":
	default:
		errs = multierr.Append(errs, errors.Errorf("unknown log level `%s`", proj.LogLevel))
	}

	if proj.Workers < 0 {
		errs = multierr.Append(errs, errors.New("workers cannot be negative"))
	}

	if errs != nil {
		return nil, errs
	}

	if tpf.Output.Table == "" {
		proj.TablePath = filepath.Join(root, proj.Name+common.TableFileExtension)
	} else {
		proj.TablePath = resolvePath(root, tpf.Output.Table)
	}

	if proj.Version != common.Version {
		logging.LogBuildWarning(
			"Project",
			fmt.Sprintf("version of project `%s` (v%s) does not match current tsgen version (v%s)", proj.Name, proj.Version, common.Version),
		)
	}

	return proj, nil
}

// checkNames checks that a list of rule or token names holds valid,
// distinct identifiers
func checkNames(field string, names []string) error {
	var errs error
	seen := make(map[string]struct{})

	for _, name := range names {
		if !common.IsValidIdentifier(name) {
			errs = multierr.Append(errs, errors.Errorf("%s: `%s` must be a valid identifier", field, name))
		}

		if _, ok := seen[name]; ok {
			errs = multierr.Append(errs, errors.Errorf("%s: `%s` is listed more than once", field, name))
		}

		seen[name] = struct{}{}
	}

	return errs
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(root, path)
}
