package build

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rooney/tree-sitter/logging"
	"github.com/rooney/tree-sitter/project"
	"github.com/rooney/tree-sitter/tables"
)

// newProject creates a project in a temp dir, optionally replacing the
// starter grammar
func newProject(t *testing.T, grammarText string) *project.Project {
	t.Helper()
	logging.Initialize("silent")

	dir := t.TempDir()
	require.NoError(t, project.InitProject("demo", dir))

	proj, err := project.LoadProject(dir)
	require.NoError(t, err)

	if grammarText != "" {
		require.NoError(t, os.WriteFile(proj.GrammarPath, []byte(grammarText), 0o644))
	}

	return proj
}

func TestGenerate(t *testing.T) {
	proj := newProject(t, "")
	ctx := logging.NewTraceContext(context.Background(), false)

	gen := NewGenerator(proj, false)
	require.True(t, gen.Generate(ctx))
	assert.False(t, gen.Cached)

	ptable, err := tables.LoadParsingTable(proj.TablePath)
	require.NoError(t, err)
	assert.Equal(t, proj.Fingerprint(mustRead(t, proj.GrammarPath)), ptable.Fingerprint)
	assert.Equal(t, []string{"program", "statement", "expr", "term", "_program_repeat1"}, ptable.NonTerminals)

	// nothing changed so the saved table is reused
	again := NewGenerator(proj, false)
	require.True(t, again.Generate(ctx))
	assert.True(t, again.Cached)

	// unless the build is forced
	forced := NewGenerator(proj, true)
	require.True(t, forced.Generate(ctx))
	assert.False(t, forced.Cached)

	// or the grammar changed
	require.NoError(t, os.WriteFile(proj.GrammarPath, []byte("program = 'x' ;"), 0o644))
	changed := NewGenerator(proj, false)
	require.True(t, changed.Generate(ctx))
	assert.False(t, changed.Cached)
}

func TestGenerateCacheDisabled(t *testing.T) {
	proj := newProject(t, "")
	proj.Cache = false

	require.True(t, NewGenerator(proj, false).Generate(context.Background()))

	gen := NewGenerator(proj, false)
	require.True(t, gen.Generate(context.Background()))
	assert.False(t, gen.Cached)
}

func TestGenerateFailures(t *testing.T) {
	testCases := []struct {
		name    string
		grammar string
	}{
		{"syntax error", "program = 'x' "},
		{"undefined rule", "program = stmt ;"},
		{"empty production", "program = 'x' a ;\na = [ 'y' ] ;"},
		{"conflict", "e = e '+' e | 'x' ;"},
		{"empty start referenced", "program = [ 'a' program 'b' ] ;"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			proj := newProject(t, tc.grammar)
			proj.Conflicts = tables.ConflictError

			assert.False(t, NewGenerator(proj, false).Generate(context.Background()))

			_, err := os.Stat(proj.TablePath)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestGenerateResolvedConflict(t *testing.T) {
	proj := newProject(t, "e = e '+' e | 'x' ;")

	// shift wins under the default policy
	require.True(t, NewGenerator(proj, false).Generate(context.Background()))

	gen := NewGenerator(proj, true)
	ptb, ok := gen.Construct(context.Background())
	require.True(t, ok)
	require.NotEmpty(t, ptb.Conflicts)
	assert.True(t, ptb.Conflicts[0].Resolved)

	msgs := resolvedConflicts(ptb)
	require.Len(t, msgs, len(ptb.Conflicts))
	for _, msg := range msgs {
		assert.Equal(t, 1, strings.Count(msg, "(resolved as shift)"), msg)
	}
}

func TestGenerateBuildsOnAnalysis(t *testing.T) {
	proj := newProject(t, "")

	gen := NewGenerator(proj, true)
	require.True(t, gen.Generate(context.Background()))
	require.NotNil(t, gen.analysis)
	assert.Same(t, gen.analysis, gen.builder.ItemSetBuilder())

	constructed := NewGenerator(proj, true)
	ptb, ok := constructed.Construct(context.Background())
	require.True(t, ok)
	assert.Same(t, constructed.analysis, ptb.ItemSetBuilder())
}

func TestPrepare(t *testing.T) {
	proj := newProject(t, "")

	g, ok := NewGenerator(proj, false).Prepare()
	require.True(t, ok)
	assert.Equal(t, "program", g.Syntax.Variables[0].Name)
	assert.Empty(t, g.Warnings)

	missing := newProject(t, "")
	require.NoError(t, os.Remove(missing.GrammarPath))

	_, ok = NewGenerator(missing, false).Prepare()
	assert.False(t, ok)
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()

	buff, err := os.ReadFile(path)
	require.NoError(t, err)
	return buff
}
