package project

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"gitlab.com/tozd/go/errors"

	"github.com/rooney/tree-sitter/common"
)

// FindProject searches dir and then each of its parents for a project file
// and returns the directory containing the nearest one
func FindProject(dir string) (string, error) {
	abspath, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Errorf("resolving directory: %w", err)
	}

	for {
		if checkPath(abspath) {
			return abspath, nil
		}

		parent := filepath.Dir(abspath)
		if parent == abspath {
			return "", errors.Errorf("no %s found in %s or any of its parents", common.ProjectFileName, dir)
		}

		abspath = parent
	}
}

// checkPath checks to see if a directory holds a project file -- accepts the
// path to the project root not the path to the project file
func checkPath(abspath string) bool {
	pfPath := filepath.Join(abspath, common.ProjectFileName)

	finfo, err := os.Stat(pfPath)
	if err != nil || finfo.IsDir() {
		return false
	}

	// only really want to check that there is a grammar section here so we
	// don't do the full unmarshal.  Also, this may not be a project file of
	// ours at all in which case we shouldn't error since the user didn't
	// explicitly specify that this path was a project.
	tree, err := toml.LoadFile(pfPath)
	if err != nil {
		return false
	}

	return tree.Has("grammar")
}
