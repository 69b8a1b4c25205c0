package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScanner_IsHackFile(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"yaml", "svelte.hack.yaml", true},
		{"yml", "svelte.hack.yml", true},
		{"json", "svelte.hack.json", true},
		{"uppercase", "SVELTE.HACK.YAML", true},
		{"plain yaml", "svelte.yaml", false},
		{"partial", "svelte.hack", false},
		{"nested", "dir/sub/x.hack.json", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHackFile(tt.path))
		})
	}
}

func TestScanner_Scan(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"b.hack.yaml", "a.hack.json", "nested/c.hack.yml", "node_modules/x.hack.yaml", ".cache/y.hack.yaml", "notes.md"} {
		writeFile(t, dir, f, "x")
	}

	files, err := NewScanner(dir).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.hack.json"),
		filepath.Join(dir, "b.hack.yaml"),
		filepath.Join(dir, "nested/c.hack.yml"),
	}, files)
}

func TestScanner_MissingDirectory(t *testing.T) {
	files, err := NewScanner(filepath.Join(t.TempDir(), "absent")).Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = NewScanner("").Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestParser_Layouts(t *testing.T) {
	p := NewParser()

	multi := "hacks:\n  - specifier: svelte/internal/disclose-version\n    package: svelte\n    path: src/internal/disclose-version.js\n  - specifier: legacy\n    package: legacy\n    path: dist/index.mjs\n"
	entries, err := p.ParseContent([]byte(multi), "yaml")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "svelte", entries[0].Package)

	single := `{"specifier": "legacy", "package": "legacy", "path": "dist/index.mjs", "description": "ships cjs as main"}`
	entries, err = p.ParseContent([]byte(single), "json")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ships cjs as main", entries[0].Description)

	list := "- specifier: a\n  package: a\n  path: a.js\n"
	entries, err = p.ParseContent([]byte(list), "yaml")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParser_Errors(t *testing.T) {
	p := NewParser()

	_, err := p.ParseContent([]byte("hacks:\n  - specifier: a\n    package: a\n"), "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")

	_, err = p.ParseContent([]byte("hacks: []\n"), "yaml")
	assert.Error(t, err)

	_, err = p.ParseContent([]byte("x"), "toml")
	assert.Error(t, err)

	dir := t.TempDir()
	path := writeFile(t, dir, "broken.hack.yaml", "hacks:\n  - specifier: a\n   package: [\n")
	_, loadErr := p.ParseFile(path)
	require.NotNil(t, loadErr)
	assert.Equal(t, path, loadErr.FilePath)
	assert.Greater(t, loadErr.Line, 0)

	_, loadErr = p.ParseFile(filepath.Join(dir, "missing.hack.yaml"))
	require.NotNil(t, loadErr)
}

func TestHackLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hack.yaml", "specifier: legacy\npackage: legacy\npath: dist/esm.js\n")
	writeFile(t, dir, "b.hack.json", `[{"specifier": "legacy", "package": "other", "path": "x.js"}, {"specifier": "svelte", "package": "svelte", "path": "y.js"}]`)
	writeFile(t, dir, "c.hack.yaml", "not: [valid\n")

	l := NewHackLoader(dir)
	entries, loadErrors, err := l.LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "legacy", entries[0].Specifier)
	assert.Equal(t, "legacy", entries[0].Package)
	assert.Equal(t, filepath.Join(dir, "a.hack.yaml"), entries[0].FilePath)
	assert.Equal(t, "svelte", entries[1].Specifier)

	assert.Len(t, loadErrors, 2)
	assert.Equal(t, entries, l.Entries())
	assert.Equal(t, loadErrors, l.LoadErrors())
}

func TestHackLoader_LocalTableWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hack.yaml", "specifier: legacy\npackage: legacy\npath: dist/cjs.js\n")
	local := writeFile(t, dir, LocalHackFile, "specifier: legacy\npackage: legacy\npath: dist/esm.js\n")

	l := NewHackLoader(dir)
	entries, loadErrors, err := l.LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "dist/esm.js", entries[0].Path)
	require.Len(t, loadErrors, 1)
	assert.Equal(t, filepath.Join(dir, "a.hack.yaml"), loadErrors[0].FilePath)
	assert.Contains(t, loadErrors[0].Error, "shadowed by "+local)

	conflicts := l.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, local, conflicts[0].Active)
}

func TestHackLoader_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hack.yaml", "specifier: a\npackage: a\npath: a.js\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewHackLoader(dir).LoadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) RegisterEntry(entry domain.HackEntry) error {
	return m.Called(entry).Error(0)
}

func TestHackLoader_LoadInto(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hack.yaml", "hacks:\n  - {specifier: ok, package: ok, path: ok.js}\n  - {specifier: rejected, package: r, path: r.js}\n")

	r := new(MockRegistrar)
	r.On("RegisterEntry", mock.MatchedBy(func(e domain.HackEntry) bool { return e.Specifier == "ok" })).Return(nil)
	r.On("RegisterEntry", mock.MatchedBy(func(e domain.HackEntry) bool { return e.Specifier == "rejected" })).
		Return(domain.NewAppError(domain.ErrValidationFailed, "Hack already registered", 422, nil))

	loadErrors, err := NewHackLoader(dir).LoadInto(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, loadErrors, 1)
	assert.Contains(t, loadErrors[0].Error, "Hack already registered")
	r.AssertNumberOfCalls(t, "RegisterEntry", 2)
}

func TestWriter_AddHack(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	require.NoError(t, w.AddHack(domain.HackEntry{Specifier: "a", Package: "a", Path: "a.js"}))
	require.NoError(t, w.AddHack(domain.HackEntry{Specifier: "b", Package: "b", Path: "b.js", Description: "esm entry"}))

	err := w.AddHack(domain.HackEntry{Specifier: "a", Package: "a", Path: "other.js"})
	assert.True(t, domain.IsValidationError(err))

	err = w.AddHack(domain.HackEntry{Specifier: "c"})
	assert.True(t, domain.IsValidationError(err))

	entries, loadErrors, err := NewHackLoader(dir).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loadErrors)
	require.Len(t, entries, 2)
	assert.Equal(t, "esm entry", entries[1].Description)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".hack-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
