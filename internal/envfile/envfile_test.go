package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{".env.development.local", ".env.local", ".env.development", ".env"}, Names("development"))
	assert.Equal(t, []string{".env.test.local", ".env.test", ".env"}, Names("test"))
}

func TestPaths(t *testing.T) {
	paths := Paths("/project", "production")
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join("/project", ".env.production.local"), paths[0])
	assert.Equal(t, filepath.Join("/project", ".env"), paths[3])
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("A=base\nB=base\nC=base\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.development"), []byte("B=dev\nC=dev\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.development.local"), []byte("C=local\n"), 0644))

	vars, err := Load(dir, "development")
	require.NoError(t, err)
	assert.Equal(t, "base", vars["A"])
	assert.Equal(t, "dev", vars["B"])
	assert.Equal(t, "local", vars["C"])
}

func TestLoad_TestSkipsSharedLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("SECRET=shared\n"), 0644))

	vars, err := Load(dir, "test")
	require.NoError(t, err)
	assert.NotContains(t, vars, "SECRET")
}

func TestLoad_NoFiles(t *testing.T) {
	vars, err := Load(t.TempDir(), "development")
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestPublic(t *testing.T) {
	t.Setenv("CRXKIT_PUBLIC_FROM_PROCESS", "proc")
	t.Setenv("CRXKIT_PUBLIC_API", "override")

	out := Public(map[string]string{
		"CRXKIT_PUBLIC_API": "file",
		"CRXKIT_PUBLIC_KEY": "k",
		"PRIVATE":           "hidden",
	}, "CRXKIT_PUBLIC_")

	assert.Equal(t, "override", out["CRXKIT_PUBLIC_API"])
	assert.Equal(t, "k", out["CRXKIT_PUBLIC_KEY"])
	assert.Equal(t, "proc", out["CRXKIT_PUBLIC_FROM_PROCESS"])
	assert.NotContains(t, out, "PRIVATE")
	assert.Empty(t, Public(map[string]string{"A": "b"}, ""))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, SortedKeys(map[string]string{"C": "", "A": "", "B": ""}))
}
