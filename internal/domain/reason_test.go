package domain

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllWatchReasons_ClosedSet(t *testing.T) {
	reasons := AllWatchReasons()
	require.Len(t, reasons, 21)
	assert.Equal(t, ReasonNone, reasons[0])
	assert.Equal(t, ReasonSandboxesDirectory, reasons[len(reasons)-1])

	seen := make(map[string]bool)
	for _, r := range reasons {
		name := r.String()
		assert.False(t, strings.HasPrefix(name, "WatchReason("), "reason %d has no name", int(r))
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
		assert.True(t, r.Valid())
	}
}

func TestWatchReason_Categories(t *testing.T) {
	directories := 0
	for _, r := range AllWatchReasons() {
		if r.IsDirectory() {
			directories++
			assert.False(t, r.IsIndex())
			assert.False(t, r.IsHTML())
		}
		if r.IsIndex() {
			assert.False(t, r.IsHTML())
		}
	}
	assert.Equal(t, 5, directories)
	assert.False(t, ReasonNone.IsDirectory())
	assert.False(t, ReasonEnvFile.IsIndex())
	assert.True(t, ReasonPopupHTML.IsHTML())
}

func TestWatchReason_MarshalText(t *testing.T) {
	text, err := ReasonPopupIndex.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "PopupIndex", string(text))

	_, err = WatchReason(99).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "WatchReason(99)", WatchReason(99).String())
}

func TestProperty_OutOfRangeReasonsInvalid(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("values outside the declared range are never valid", prop.ForAll(
		func(n int) bool {
			r := WatchReason(n)
			return !r.Valid() && !r.IsDirectory() && !r.IsIndex() && !r.IsHTML()
		},
		gen.OneGenOf(gen.IntRange(-1000, -1), gen.IntRange(21, 1000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSurfaces_Descriptors(t *testing.T) {
	for _, d := range Surfaces() {
		assert.True(t, d.IndexReason.IsIndex(), "surface %s", d.Surface)
		if d.UI {
			assert.True(t, d.HasHTML)
			assert.True(t, d.IndexFallback)
			assert.True(t, d.HTMLReason.IsHTML())
			assert.Empty(t, d.DirectoryName)
		} else {
			assert.False(t, d.HasHTML)
			assert.False(t, d.IndexFallback)
			assert.True(t, d.DirectoryScope.IsDirectory())
			assert.NotEmpty(t, d.DirectoryName)
		}
		owner, ok := SurfaceForReason(d.IndexReason)
		require.True(t, ok)
		assert.Equal(t, d.Surface, owner)
	}
	assert.Len(t, UISurfaces(), 5)

	_, err := Describe("toolbar")
	assert.Error(t, err)

	owner, ok := SurfaceForReason(ReasonTabsDirectory)
	assert.True(t, ok)
	assert.Equal(t, SurfaceTab, owner)
	_, ok = SurfaceForReason(ReasonEnvFile)
	assert.False(t, ok)
}

func TestErrorPredicates(t *testing.T) {
	err := NewCollisionError("/p/src/popup.html", ReasonPopupIndex, ReasonPopupHTML)
	assert.True(t, IsConfigError(err))
	assert.False(t, IsResolutionFailure(err))
	assert.Contains(t, err.Error(), ErrPathCollision)

	res := NewResolutionError("~/missing.ts", "/p/src/missing.ts", nil)
	assert.True(t, IsResolutionFailure(res))
	assert.False(t, IsConfigError(res))
	assert.False(t, IsNotFound(nil))
}

func TestInputValidator(t *testing.T) {
	v := NewInputValidator()

	assert.NoError(t, v.ValidatePath("/project/src/popup.tsx"))
	assert.True(t, IsValidationError(v.ValidatePath("")))
	assert.True(t, IsValidationError(v.ValidatePath("src/popup.tsx")))
	assert.True(t, IsValidationError(v.ValidatePath("/a\x00b")))

	assert.NoError(t, v.ValidateSpecifier("~/lib/util"))
	assert.Error(t, v.ValidateSpecifier(" ~/lib"))
	assert.Error(t, v.ValidateSpecifier(strings.Repeat("a", maxSpecifierLength+1)))

	assert.NoError(t, v.ValidateEvent("build_ready"))
	assert.NoError(t, v.ValidateEvent("cs_changed"))
	assert.Error(t, v.ValidateEvent("Build-Ready"))
	assert.Error(t, v.ValidateEvent(""))
}
