package domain

import "fmt"

// WatchReason classifies why a path is being watched and therefore which
// rebuild a change to it requires.
type WatchReason int

const (
	ReasonNone WatchReason = iota

	ReasonEnvFile

	ReasonPackageJSON
	ReasonAssetsDirectory

	ReasonTabsDirectory

	ReasonBackgroundIndex
	ReasonBackgroundDirectory

	ReasonContentScriptIndex
	ReasonContentScriptsDirectory

	ReasonNewtabIndex
	ReasonNewtabHTML

	ReasonSidePanelIndex
	ReasonSidePanelHTML

	ReasonDevtoolsIndex
	ReasonDevtoolsHTML

	ReasonPopupIndex
	ReasonPopupHTML

	ReasonOptionsIndex
	ReasonOptionsHTML

	ReasonSandboxIndex
	ReasonSandboxesDirectory
)

// AllWatchReasons returns every defined reason in declaration order.
// Consumers that switch on WatchReason are tested against this list.
func AllWatchReasons() []WatchReason {
	reasons := make([]WatchReason, 0, int(ReasonSandboxesDirectory)+1)
	for r := ReasonNone; r <= ReasonSandboxesDirectory; r++ {
		reasons = append(reasons, r)
	}
	return reasons
}

func (r WatchReason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonEnvFile:
		return "EnvFile"
	case ReasonPackageJSON:
		return "PackageJson"
	case ReasonAssetsDirectory:
		return "AssetsDirectory"
	case ReasonTabsDirectory:
		return "TabsDirectory"
	case ReasonBackgroundIndex:
		return "BackgroundIndex"
	case ReasonBackgroundDirectory:
		return "BackgroundDirectory"
	case ReasonContentScriptIndex:
		return "ContentScriptIndex"
	case ReasonContentScriptsDirectory:
		return "ContentScriptsDirectory"
	case ReasonNewtabIndex:
		return "NewtabIndex"
	case ReasonNewtabHTML:
		return "NewtabHtml"
	case ReasonSidePanelIndex:
		return "SidePanelIndex"
	case ReasonSidePanelHTML:
		return "SidePanelHtml"
	case ReasonDevtoolsIndex:
		return "DevtoolsIndex"
	case ReasonDevtoolsHTML:
		return "DevtoolsHtml"
	case ReasonPopupIndex:
		return "PopupIndex"
	case ReasonPopupHTML:
		return "PopupHtml"
	case ReasonOptionsIndex:
		return "OptionsIndex"
	case ReasonOptionsHTML:
		return "OptionsHtml"
	case ReasonSandboxIndex:
		return "SandboxIndex"
	case ReasonSandboxesDirectory:
		return "SandboxesDirectory"
	default:
		return fmt.Sprintf("WatchReason(%d)", int(r))
	}
}

// MarshalText renders the reason by name so JSON maps stay readable.
func (r WatchReason) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid watch reason %d", int(r))
	}
	return []byte(r.String()), nil
}

// Valid reports whether r is one of the declared reasons.
func (r WatchReason) Valid() bool {
	return r >= ReasonNone && r <= ReasonSandboxesDirectory
}

// IsDirectory reports whether the reason is attached to a directory root
// rather than a single file.
func (r WatchReason) IsDirectory() bool {
	switch r {
	case ReasonAssetsDirectory, ReasonTabsDirectory, ReasonBackgroundDirectory,
		ReasonContentScriptsDirectory, ReasonSandboxesDirectory:
		return true
	default:
		return false
	}
}

// IsIndex reports whether the reason marks a script or UI entry candidate.
func (r WatchReason) IsIndex() bool {
	switch r {
	case ReasonBackgroundIndex, ReasonContentScriptIndex, ReasonNewtabIndex,
		ReasonSidePanelIndex, ReasonDevtoolsIndex, ReasonPopupIndex,
		ReasonOptionsIndex, ReasonSandboxIndex:
		return true
	default:
		return false
	}
}

// IsHTML reports whether the reason marks an HTML companion candidate.
func (r WatchReason) IsHTML() bool {
	switch r {
	case ReasonNewtabHTML, ReasonSidePanelHTML, ReasonDevtoolsHTML, ReasonPopupHTML, ReasonOptionsHTML:
		return true
	default:
		return false
	}
}
