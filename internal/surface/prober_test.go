package surface

import (
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_PopupScenarioOrder(t *testing.T) {
	root := "/project/src"
	got := Probe("popup", []string{".ts", ".tsx", ".js"}, ProbeOptions{
		SourceRoot:    root,
		BrowserTarget: "chrome",
		RuntimeEnv:    "development",
		IndexFallback: true,
	})

	want := []string{
		"popup.chrome.ts", "popup/index.chrome.ts",
		"popup.development.ts", "popup/index.development.ts",
		"popup.ts", "popup/index.ts",
		"popup.chrome.tsx", "popup/index.chrome.tsx",
		"popup.development.tsx", "popup/index.development.tsx",
		"popup.tsx", "popup/index.tsx",
		"popup.chrome.js", "popup/index.chrome.js",
		"popup.development.js", "popup/index.development.js",
		"popup.js", "popup/index.js",
	}
	require.Len(t, got, len(want))
	for i, rel := range want {
		assert.Equal(t, filepath.Join(root, rel), got[i], "candidate %d", i)
	}

	// With popup.tsx and popup/index.tsx on disk the flat file is reached first.
	existing := map[string]bool{
		filepath.Join(root, "popup.tsx"):       true,
		filepath.Join(root, "popup/index.tsx"): true,
	}
	var selected string
	for _, p := range got {
		if existing[p] {
			selected = p
			break
		}
	}
	assert.Equal(t, filepath.Join(root, "popup.tsx"), selected)
}

func TestProbe_FlatOnly(t *testing.T) {
	got := Probe("background", []string{".ts", ".js"}, ProbeOptions{
		SourceRoot:    "/p/src",
		BrowserTarget: "firefox",
		RuntimeEnv:    "production",
	})
	assert.Equal(t, []string{
		"/p/src/background.firefox.ts",
		"/p/src/background.production.ts",
		"/p/src/background.ts",
		"/p/src/background.firefox.js",
		"/p/src/background.production.js",
		"/p/src/background.js",
	}, got)
}

func TestProbe_NoExtensions(t *testing.T) {
	assert.Empty(t, Probe("popup", nil, ProbeOptions{SourceRoot: "/p", BrowserTarget: "chrome", RuntimeEnv: "test", IndexFallback: true}))
}

func TestScriptExtensions(t *testing.T) {
	assert.Equal(t, []string{".ts", ".tsx", ".js"}, ScriptExtensions([]string{".ts", ".tsx"}))
	assert.Equal(t, []string{".ts", ".svelte", ".js"}, ScriptExtensions([]string{".svelte", ".js"}))
	assert.Equal(t, []string{".ts", ".js"}, ScriptExtensions(nil))
}

func TestProperty_ProbeCandidateCount(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("probe emits six candidates per extension with index fallback and three without", prop.ForAll(
		func(name string, n int, fallback bool) bool {
			exts := make([]string, n)
			for i := range exts {
				exts[i] = "." + string(rune('a'+i)) + "x"
			}
			got := Probe(name, exts, ProbeOptions{
				SourceRoot:    "/root/src",
				BrowserTarget: "chrome",
				RuntimeEnv:    "development",
				IndexFallback: fallback,
			})
			per := 3
			if fallback {
				per = 6
			}
			return len(got) == n*per
		},
		gen.Identifier(),
		gen.IntRange(0, 10),
		gen.Bool(),
	))

	properties.Property("every candidate of one extension precedes every candidate of the next", prop.ForAll(
		func(n int) bool {
			exts := make([]string, n)
			for i := range exts {
				exts[i] = "." + string(rune('a'+i)) + "q"
			}
			got := Probe("popup", exts, ProbeOptions{SourceRoot: "/s", BrowserTarget: "edge", RuntimeEnv: "production", IndexFallback: true})
			for i, p := range got {
				if filepath.Ext(p) != exts[i/6] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func BenchmarkProbe(b *testing.B) {
	exts := []string{".ts", ".tsx", ".svelte", ".vue", ".js"}
	opts := ProbeOptions{SourceRoot: "/project/src", BrowserTarget: "chrome", RuntimeEnv: "development", IndexFallback: true}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Probe("popup", exts, opts)
	}
}
