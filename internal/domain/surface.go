package domain

import (
	"fmt"
	"slices"
)

var browserTargets = []string{"chrome", "firefox", "edge", "safari", "brave", "opera", "gecko"}

var runtimeEnvs = []string{"development", "production", "test"}

// BrowserTargets lists the browser targets a build can select.
func BrowserTargets() []string { return slices.Clone(browserTargets) }

// IsVariantName reports whether name is a browser target or a well-known
// runtime env, i.e. a segment that marks a file as a variant.
func IsVariantName(name string) bool {
	return slices.Contains(browserTargets, name) || slices.Contains(runtimeEnvs, name)
}

// Surface is one of the fixed extension contexts a project can contribute to.
type Surface string

const (
	SurfacePopup      Surface = "popup"
	SurfaceOptions    Surface = "options"
	SurfaceDevtools   Surface = "devtools"
	SurfaceNewtab     Surface = "newtab"
	SurfaceSidePanel  Surface = "sidepanel"
	SurfaceBackground Surface = "background"
	SurfaceContent    Surface = "content"
	SurfaceSandbox    Surface = "sandbox"
	// SurfaceTab is not probed; it only names entries found under tabs/.
	SurfaceTab Surface = "tab"
)

// SurfaceDescriptor records how a surface is laid out in the source tree.
type SurfaceDescriptor struct {
	Surface        Surface
	IndexReason    WatchReason
	HTMLReason     WatchReason
	IndexFallback  bool
	HasHTML        bool
	UI             bool
	DirectoryName  string
	DirectoryScope WatchReason
}

var surfaceTable = []SurfaceDescriptor{
	{Surface: SurfacePopup, IndexReason: ReasonPopupIndex, HTMLReason: ReasonPopupHTML, IndexFallback: true, HasHTML: true, UI: true},
	{Surface: SurfaceOptions, IndexReason: ReasonOptionsIndex, HTMLReason: ReasonOptionsHTML, IndexFallback: true, HasHTML: true, UI: true},
	{Surface: SurfaceDevtools, IndexReason: ReasonDevtoolsIndex, HTMLReason: ReasonDevtoolsHTML, IndexFallback: true, HasHTML: true, UI: true},
	{Surface: SurfaceNewtab, IndexReason: ReasonNewtabIndex, HTMLReason: ReasonNewtabHTML, IndexFallback: true, HasHTML: true, UI: true},
	{Surface: SurfaceSidePanel, IndexReason: ReasonSidePanelIndex, HTMLReason: ReasonSidePanelHTML, IndexFallback: true, HasHTML: true, UI: true},
	{Surface: SurfaceBackground, IndexReason: ReasonBackgroundIndex, DirectoryName: "background", DirectoryScope: ReasonBackgroundDirectory},
	{Surface: SurfaceContent, IndexReason: ReasonContentScriptIndex, DirectoryName: "contents", DirectoryScope: ReasonContentScriptsDirectory},
	{Surface: SurfaceSandbox, IndexReason: ReasonSandboxIndex, DirectoryName: "sandboxes", DirectoryScope: ReasonSandboxesDirectory},
}

// TabsDirectoryName is the directory-only root for extension pages.
const TabsDirectoryName = "tabs"

// Surfaces returns the descriptor table in declaration order.
func Surfaces() []SurfaceDescriptor {
	out := make([]SurfaceDescriptor, len(surfaceTable))
	copy(out, surfaceTable)
	return out
}

// UISurfaces returns the descriptors of surfaces that carry an HTML page.
func UISurfaces() []SurfaceDescriptor {
	var out []SurfaceDescriptor
	for _, d := range surfaceTable {
		if d.UI {
			out = append(out, d)
		}
	}
	return out
}

// Describe looks up the descriptor for s.
func Describe(s Surface) (SurfaceDescriptor, error) {
	for _, d := range surfaceTable {
		if d.Surface == s {
			return d, nil
		}
	}
	return SurfaceDescriptor{}, NewAppError(ErrInvalidInput, fmt.Sprintf("unknown surface %q", s), 400, nil)
}

// SurfaceForReason returns the surface that owns an index or HTML reason.
func SurfaceForReason(r WatchReason) (Surface, bool) {
	for _, d := range surfaceTable {
		if d.IndexReason == r || (d.HasHTML && d.HTMLReason == r) || (d.DirectoryScope != ReasonNone && d.DirectoryScope == r) {
			return d.Surface, true
		}
	}
	if r == ReasonTabsDirectory {
		return SurfaceTab, true
	}
	return "", false
}
