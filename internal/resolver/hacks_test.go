package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(path string) RewriteFunc {
	return func(context.Context, Request) (string, error) { return path, nil }
}

func TestHackRegistry_Register(t *testing.T) {
	r := NewHackRegistry()

	require.NoError(t, r.Register("svelte/internal/disclose-version", fixed("/x/disclose-version.js")))
	assert.Error(t, r.Register("svelte/internal/disclose-version", fixed("/y")))
	assert.Error(t, r.Register("", fixed("/y")))
	assert.Error(t, r.Register("pkg", nil))

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"svelte/internal/disclose-version"}, r.Specifiers())
}

func TestHackRegistry_ExactMatchOnly(t *testing.T) {
	r := NewHackRegistry()
	require.NoError(t, r.Register("broken-pkg", fixed("/fixed/index.js")))

	res, handled, err := r.Resolve(context.Background(), Request{Specifier: "broken-pkg"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "/fixed/index.js", res.Path)
	assert.Equal(t, "hacks", res.Strategy)

	for _, spec := range []string{"broken-pkg/sub", "broken", "Broken-pkg", " broken-pkg"} {
		_, handled, err := r.Resolve(context.Background(), Request{Specifier: spec})
		require.NoError(t, err)
		assert.False(t, handled, spec)
	}
}

func TestHackRegistry_RewriteErrorIsHardFailure(t *testing.T) {
	r := NewHackRegistry()
	require.NoError(t, r.Register("pkg", func(context.Context, Request) (string, error) {
		return "", errors.New("boom")
	}))

	_, handled, err := r.Resolve(context.Background(), Request{Specifier: "pkg"})
	assert.False(t, handled)
	assert.True(t, domain.IsResolutionFailure(err))
}

func TestPackageFileRewrite(t *testing.T) {
	project := t.TempDir()
	writeSource(t, project, "node_modules/svelte/package.json", "node_modules/svelte/src/internal/disclose-version.js")
	nested := filepath.Join(project, "src", "popup")

	rewrite := PackageFileRewrite("svelte", "src/internal/disclose-version.js")
	got, err := rewrite(context.Background(), Request{ResolveDir: nested})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, "node_modules/svelte/src/internal/disclose-version.js"), got)

	got, err = rewrite(context.Background(), Request{Importer: filepath.Join(project, "src", "popup.ts")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, "node_modules/svelte/src/internal/disclose-version.js"), got)

	_, err = PackageFileRewrite("absent", "index.js")(context.Background(), Request{ResolveDir: nested})
	assert.True(t, domain.IsNotFound(err))

	_, err = rewrite(context.Background(), Request{})
	assert.Error(t, err)
}

func TestHackRegistry_RegisterEntry(t *testing.T) {
	project := t.TempDir()
	writeSource(t, project, "node_modules/legacy/package.json")

	r := NewHackRegistry()
	require.NoError(t, r.RegisterEntry(domain.HackEntry{Specifier: "legacy", Package: "legacy", Path: "dist/esm.js"}))

	res, handled, err := r.Resolve(context.Background(), Request{Specifier: "legacy", ResolveDir: project})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, filepath.Join(project, "node_modules/legacy/dist/esm.js"), res.Path)
}

func TestProperty_HackPrefixesDecline(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a registered specifier never matches a strict prefix or extension of itself", prop.ForAll(
		func(spec, suffix string) bool {
			r := NewHackRegistry()
			if err := r.Register(spec, fixed("/hit")); err != nil {
				return false
			}
			_, longer, err1 := r.Resolve(context.Background(), Request{Specifier: spec + suffix})
			_, shorter, err2 := r.Resolve(context.Background(), Request{Specifier: spec[:len(spec)-1]})
			_, exact, err3 := r.Resolve(context.Background(), Request{Specifier: spec})
			return err1 == nil && err2 == nil && err3 == nil && !longer && !shorter && exact
		},
		gen.Identifier().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
