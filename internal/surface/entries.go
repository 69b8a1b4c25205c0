package surface

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/domain"
)

// Entry is a source file that becomes a bundler input.
type Entry struct {
	Surface    domain.Surface `json:"surface"`
	Path       string         `json:"path"`
	HTML       string         `json:"html,omitempty"`
	OutputName string         `json:"output_name"`
}

type scannedDirectory struct {
	reason  domain.WatchReason
	surface domain.Surface
	ui      bool
}

var scannedDirectories = []scannedDirectory{
	{reason: domain.ReasonContentScriptsDirectory, surface: domain.SurfaceContent},
	{reason: domain.ReasonSandboxesDirectory, surface: domain.SurfaceSandbox},
	{reason: domain.ReasonTabsDirectory, surface: domain.SurfaceTab, ui: true},
}

// DiscoverEntries selects the first existing candidate of every surface and
// adds the files found directly under the contents, sandboxes and tabs
// directories. Directory entries follow the same variant priority as the
// surface candidates.
func DiscoverEntries(cat *Catalog, checker domain.FileChecker) ([]Entry, error) {
	var entries []Entry

	for _, d := range domain.Surfaces() {
		p, ok := firstExisting(cat.IndexList(d.Surface), checker)
		if !ok {
			continue
		}
		entry := Entry{Surface: d.Surface, Path: p, OutputName: string(d.Surface)}
		if d.HasHTML {
			entry.HTML, _ = firstExisting(cat.HTMLList(d.Surface), checker)
		}
		entries = append(entries, entry)
	}

	for _, sd := range scannedDirectories {
		dir, ok := cat.Directory(sd.reason)
		if !ok {
			continue
		}
		exts := cat.UIExtensions()
		if !sd.ui {
			exts = ScriptExtensions(exts)
		}
		found, err := scanDirectory(cat, dir, exts, sd.ui, checker)
		if err != nil {
			return nil, err
		}
		for i := range found {
			found[i].Surface = sd.surface
			found[i].OutputName = filepath.Base(dir) + "/" + found[i].OutputName
		}
		entries = append(entries, found...)
	}

	return entries, nil
}

func firstExisting(candidates []string, checker domain.FileChecker) (string, bool) {
	for _, p := range candidates {
		if checker.Stat(p).Regular() {
			return p, true
		}
	}
	return "", false
}

func scanDirectory(cat *Catalog, dir string, exts []string, ui bool, checker domain.FileChecker) ([]Entry, error) {
	if !checker.Stat(dir).IsDir {
		return nil, nil
	}

	alternatives := strings.Join(exts, ",")
	pattern := "{*,*/index*}{" + alternatives + "}"
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, domain.NewAppErrorWithCause(domain.ErrInternal, "Failed to scan entry directory", 500, err, map[string]any{"directory": dir})
	}

	active := []string{cat.BrowserTarget(), cat.RuntimeEnv()}
	names := make(map[string]struct{})
	for _, m := range matches {
		name, ok := logicalName(m, exts, active)
		if !ok {
			log.Debug().Str("file", filepath.Join(dir, m)).Msg("Skipping variant of another target")
			continue
		}
		names[name] = struct{}{}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var entries []Entry
	for _, name := range sorted {
		opts := cat.probeOptions(true)
		opts.SourceRoot = dir
		p, ok := firstExisting(Probe(name, exts, opts), checker)
		if !ok {
			continue
		}
		entry := Entry{Path: p, OutputName: name}
		if ui {
			entry.HTML, _ = firstExisting(Probe(name, []string{".html"}, opts), checker)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// logicalName strips the directory-index suffix, the extension and a
// trailing variant segment naming an active target or env from a match
// relative to the scanned directory. Files that carry the variant segment of
// an inactive target or env report false.
func logicalName(match string, exts []string, active []string) (string, bool) {
	if first, _, nested := strings.Cut(match, "/"); nested {
		return first, true
	}
	base := match
	for _, ext := range exts {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	variant := path.Ext(base)
	if variant == "" || variant == base {
		return base, true
	}
	seg := strings.TrimPrefix(variant, ".")
	switch {
	case slices.Contains(active, seg):
		return strings.TrimSuffix(base, variant), true
	case domain.IsVariantName(seg):
		return "", false
	default:
		return base, true
	}
}
