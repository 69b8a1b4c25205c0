// Package watcher turns filesystem changes into rebuild decisions.
//
// Classify maps a single change onto the surface catalog. Watcher feeds
// fsnotify events through Classify after a short debounce window so bursts of
// editor writes collapse into one decision per path.
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/surface"
)

// Action is the rebuild step a change requires.
type Action int

const (
	ActionIgnore Action = iota
	ActionRebuildAssets
	ActionReprocessEntry
	ActionRescanDirectory
	ActionRebuildManifest
	ActionReloadEnv
)

func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionRebuildAssets:
		return "rebuild_assets"
	case ActionReprocessEntry:
		return "reprocess_entry"
	case ActionRescanDirectory:
		return "rescan_directory"
	case ActionRebuildManifest:
		return "rebuild_manifest"
	case ActionReloadEnv:
		return "reload_env"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// MarshalText renders the action by name.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// FileEvent is one observed change.
type FileEvent struct {
	Path string            `json:"path"`
	Op   domain.ChangeType `json:"op"`
}

// Decision is the classification of a FileEvent.
type Decision struct {
	Path            string             `json:"path"`
	Op              domain.ChangeType  `json:"op"`
	Reason          domain.WatchReason `json:"reason"`
	Action          Action             `json:"action"`
	ManifestChanged bool               `json:"manifest_changed"`
}

// Classify resolves the watch reason of ev.Path and the action it triggers.
// Exact file candidates take precedence over containing directories.
func Classify(cat *surface.Catalog, ev FileEvent) Decision {
	path := filepath.Clean(ev.Path)
	reason := cat.Reason(path)
	if reason == domain.ReasonNone {
		if dir, ok := cat.DirectoryReason(path); ok {
			reason = dir.Reason
		}
	}

	d := Decision{Path: path, Op: ev.Op, Reason: reason, Action: actionFor(cat, reason, path)}
	if ev.Op.Structural() {
		d.ManifestChanged = cat.IsEntryPath(path) || reason.IsDirectory() || reason == domain.ReasonPackageJSON
	}
	return d
}

func actionFor(cat *surface.Catalog, reason domain.WatchReason, path string) Action {
	switch reason {
	case domain.ReasonNone:
		if within(cat.Paths().SourceDirectory, path) {
			return ActionRebuildAssets
		}
		return ActionIgnore
	case domain.ReasonEnvFile:
		return ActionReloadEnv
	case domain.ReasonPackageJSON, domain.ReasonAssetsDirectory:
		return ActionRebuildManifest
	case domain.ReasonTabsDirectory, domain.ReasonBackgroundDirectory,
		domain.ReasonContentScriptsDirectory, domain.ReasonSandboxesDirectory:
		return ActionRescanDirectory
	case domain.ReasonBackgroundIndex, domain.ReasonContentScriptIndex, domain.ReasonSandboxIndex,
		domain.ReasonNewtabIndex, domain.ReasonNewtabHTML,
		domain.ReasonSidePanelIndex, domain.ReasonSidePanelHTML,
		domain.ReasonDevtoolsIndex, domain.ReasonDevtoolsHTML,
		domain.ReasonPopupIndex, domain.ReasonPopupHTML,
		domain.ReasonOptionsIndex, domain.ReasonOptionsHTML:
		return ActionReprocessEntry
	default:
		return ActionIgnore
	}
}

func within(dir, path string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// Summary folds a batch of decisions into the work a rebuild must do.
type Summary struct {
	Decisions       []Decision
	Rebuild         bool
	Rescan          bool
	ReloadEnv       bool
	ManifestChanged bool
}

// Summarize drops ignored decisions and reports which steps the remaining
// ones need.
func Summarize(decisions []Decision) Summary {
	var s Summary
	for _, d := range decisions {
		if d.Action == ActionIgnore {
			continue
		}
		s.Decisions = append(s.Decisions, d)
		s.Rebuild = true
		switch d.Action {
		case ActionRescanDirectory:
			s.Rescan = true
		case ActionReloadEnv:
			s.ReloadEnv = true
		case ActionRebuildManifest:
			s.ManifestChanged = true
		}
		if d.ManifestChanged {
			s.ManifestChanged = true
			s.Rescan = true
		}
	}
	return s
}
