package surface

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/envfile"
)

// CommonPaths are the absolute project locations a catalog is built from.
type CommonPaths struct {
	ProjectDirectory string `json:"project_directory"`
	SourceDirectory  string `json:"source_directory"`
	PackageFilePath  string `json:"package_file_path"`
	AssetsDirectory  string `json:"assets_directory"`
}

// BuildOptions select the variant and extension policy of a catalog.
type BuildOptions struct {
	BrowserTarget string   `json:"browser_target"`
	RuntimeEnv    string   `json:"runtime_env"`
	UIExtensions  []string `json:"ui_extensions"`
}

// DirectoryEntry is a directory watched as a whole.
type DirectoryEntry struct {
	Reason domain.WatchReason `json:"reason"`
	Path   string             `json:"path"`
}

// Catalog is an immutable snapshot of every candidate path of a project for
// one build configuration. It is safe for concurrent readers.
type Catalog struct {
	paths CommonPaths
	opts  BuildOptions

	reasons     map[string]domain.WatchReason
	indexLists  map[domain.Surface][]string
	htmlLists   map[domain.Surface][]string
	directories []DirectoryEntry
	entries     map[string]struct{}
	envFiles    []string

	builtAt time.Time
}

// Build probes every surface and merges the candidates into a catalog.
func Build(paths CommonPaths, opts BuildOptions) (*Catalog, error) {
	if err := validate(paths, opts); err != nil {
		return nil, err
	}

	c := &Catalog{
		paths:      paths,
		opts:       opts,
		reasons:    make(map[string]domain.WatchReason),
		indexLists: make(map[domain.Surface][]string),
		htmlLists:  make(map[domain.Surface][]string),
		entries:    make(map[string]struct{}),
		builtAt:    time.Now(),
	}
	c.opts.UIExtensions = dedupeExtensions(opts.UIExtensions)

	if err := c.merge(domain.ReasonPackageJSON, paths.PackageFilePath); err != nil {
		return nil, err
	}

	c.envFiles = envfile.Paths(paths.ProjectDirectory, opts.RuntimeEnv)
	if err := c.merge(domain.ReasonEnvFile, c.envFiles...); err != nil {
		return nil, err
	}

	scriptExts := ScriptExtensions(c.opts.UIExtensions)
	order := []domain.Surface{domain.SurfaceContent, domain.SurfaceSandbox, domain.SurfaceBackground}
	for _, d := range domain.UISurfaces() {
		order = append(order, d.Surface)
	}

	for _, s := range order {
		d, err := domain.Describe(s)
		if err != nil {
			return nil, err
		}
		exts := c.opts.UIExtensions
		if !d.UI {
			exts = scriptExts
		}
		list := Probe(string(s), exts, c.probeOptions(d.IndexFallback))
		if err := c.merge(d.IndexReason, list...); err != nil {
			return nil, err
		}
		c.indexLists[s] = list
		for _, p := range list {
			c.entries[p] = struct{}{}
		}
	}

	for _, d := range domain.UISurfaces() {
		list := Probe(string(d.Surface), []string{".html"}, c.probeOptions(true))
		if err := c.merge(d.HTMLReason, list...); err != nil {
			return nil, err
		}
		c.htmlLists[d.Surface] = list
	}

	src := paths.SourceDirectory
	dirs := []DirectoryEntry{
		{Reason: domain.ReasonSandboxesDirectory, Path: filepath.Join(src, "sandboxes")},
		{Reason: domain.ReasonTabsDirectory, Path: filepath.Join(src, domain.TabsDirectoryName)},
		{Reason: domain.ReasonContentScriptsDirectory, Path: filepath.Join(src, "contents")},
		{Reason: domain.ReasonBackgroundDirectory, Path: filepath.Join(src, "background")},
		{Reason: domain.ReasonAssetsDirectory, Path: filepath.Clean(paths.AssetsDirectory)},
	}
	for _, dir := range dirs {
		if existing, ok := c.reasons[dir.Path]; ok {
			return nil, domain.NewCollisionError(dir.Path, existing, dir.Reason)
		}
		for _, prev := range c.directories {
			if prev.Path == dir.Path {
				return nil, domain.NewCollisionError(dir.Path, prev.Reason, dir.Reason)
			}
		}
		c.directories = append(c.directories, dir)
	}

	return c, nil
}

func (c *Catalog) probeOptions(indexFallback bool) ProbeOptions {
	return ProbeOptions{
		SourceRoot:    c.paths.SourceDirectory,
		BrowserTarget: c.opts.BrowserTarget,
		RuntimeEnv:    c.opts.RuntimeEnv,
		IndexFallback: indexFallback,
	}
}

// merge registers paths under reason. Re-registering a path with the same
// reason is a no-op; a different reason is a collision.
func (c *Catalog) merge(reason domain.WatchReason, paths ...string) error {
	for _, p := range paths {
		p = filepath.Clean(p)
		if existing, ok := c.reasons[p]; ok {
			if existing == reason {
				continue
			}
			return domain.NewCollisionError(p, existing, reason)
		}
		c.reasons[p] = reason
	}
	return nil
}

func validate(paths CommonPaths, opts BuildOptions) error {
	for name, value := range map[string]string{"browser target": opts.BrowserTarget, "runtime env": opts.RuntimeEnv} {
		if value == "" {
			return domain.NewConfigError(name+" is required", nil)
		}
		if strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, filepath.Separator) {
			return domain.NewConfigError(name+" must not contain a path separator", map[string]any{"value": value})
		}
	}
	if len(opts.UIExtensions) == 0 {
		return domain.NewConfigError("at least one UI extension is required", nil)
	}
	for _, ext := range opts.UIExtensions {
		if len(ext) < 2 || ext[0] != '.' || strings.ContainsAny(ext, `/\`) {
			return domain.NewConfigError(fmt.Sprintf("invalid UI extension %q", ext), map[string]any{"extension": ext})
		}
	}
	for name, value := range map[string]string{
		"project directory": paths.ProjectDirectory,
		"source directory":  paths.SourceDirectory,
		"package file":      paths.PackageFilePath,
		"assets directory":  paths.AssetsDirectory,
	} {
		if !filepath.IsAbs(value) {
			return domain.NewConfigError(name+" must be an absolute path", map[string]any{"value": value})
		}
	}
	return nil
}

// Reason returns the watch reason of an exact file path, or ReasonNone.
func (c *Catalog) Reason(path string) domain.WatchReason {
	return c.reasons[filepath.Clean(path)]
}

// IsKnownPath reports whether path is a registered file candidate.
func (c *Catalog) IsKnownPath(path string) bool {
	_, ok := c.reasons[filepath.Clean(path)]
	return ok
}

// DirectoryReason returns the most specific watched directory that equals
// or contains path.
func (c *Catalog) DirectoryReason(path string) (DirectoryEntry, bool) {
	path = filepath.Clean(path)
	var best DirectoryEntry
	found := false
	for _, dir := range c.directories {
		if path != dir.Path && !strings.HasPrefix(path, dir.Path+string(filepath.Separator)) {
			continue
		}
		if !found || len(dir.Path) > len(best.Path) {
			best = dir
			found = true
		}
	}
	return best, found
}

// IsEntryPath reports whether path is an index-capable candidate of any
// surface. HTML candidates and directories are never entry paths.
func (c *Catalog) IsEntryPath(path string) bool {
	_, ok := c.entries[filepath.Clean(path)]
	return ok
}

// IndexList returns the ordered script or UI candidates of a surface.
func (c *Catalog) IndexList(s domain.Surface) []string {
	return append([]string(nil), c.indexLists[s]...)
}

// HTMLList returns the ordered HTML candidates of a UI surface.
func (c *Catalog) HTMLList(s domain.Surface) []string {
	return append([]string(nil), c.htmlLists[s]...)
}

// Directory returns the path registered for a directory-scope reason.
func (c *Catalog) Directory(reason domain.WatchReason) (string, bool) {
	for _, dir := range c.directories {
		if dir.Reason == reason {
			return dir.Path, true
		}
	}
	return "", false
}

// Directories returns the directory entries in registration order.
func (c *Catalog) Directories() []DirectoryEntry {
	return append([]DirectoryEntry(nil), c.directories...)
}

// WatchPaths returns a copy of the path to reason mapping.
func (c *Catalog) WatchPaths() map[string]domain.WatchReason {
	out := make(map[string]domain.WatchReason, len(c.reasons))
	for p, r := range c.reasons {
		out[p] = r
	}
	return out
}

// EntryCandidates returns every entry path in lexical order.
func (c *Catalog) EntryCandidates() []string {
	out := make([]string, 0, len(c.entries))
	for p := range c.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// EnvFiles returns the dotenv candidates, highest precedence first.
func (c *Catalog) EnvFiles() []string {
	return append([]string(nil), c.envFiles...)
}

func (c *Catalog) BrowserTarget() string { return c.opts.BrowserTarget }
func (c *Catalog) RuntimeEnv() string    { return c.opts.RuntimeEnv }
func (c *Catalog) Paths() CommonPaths    { return c.paths }

// UIExtensions returns the de-duplicated UI extension list.
func (c *Catalog) UIExtensions() []string {
	return append([]string(nil), c.opts.UIExtensions...)
}

// Options returns a copy of the options the catalog was built with.
func (c *Catalog) Options() BuildOptions {
	opts := c.opts
	opts.UIExtensions = c.UIExtensions()
	return opts
}

// Snapshot is the serializable view of a catalog.
type Snapshot struct {
	Options     BuildOptions                  `json:"options"`
	Paths       CommonPaths                   `json:"paths"`
	Files       map[string]domain.WatchReason `json:"files"`
	Directories []DirectoryEntry              `json:"directories"`
	Entries     []string                      `json:"entries"`
	BuiltAt     time.Time                     `json:"built_at"`
}

// Snapshot returns a serializable copy of the catalog.
func (c *Catalog) Snapshot() Snapshot {
	return Snapshot{
		Options:     c.Options(),
		Paths:       c.paths,
		Files:       c.WatchPaths(),
		Directories: c.Directories(),
		Entries:     c.EntryCandidates(),
		BuiltAt:     c.builtAt,
	}
}

// HealthCheck reports the catalog as a health component.
func (c *Catalog) HealthCheck(ctx context.Context) domain.HealthStatus {
	return domain.HealthStatus{
		Status:  domain.HealthStatusHealthy,
		Message: "Surface catalog built",
		Details: map[string]any{
			"browser_target": c.opts.BrowserTarget,
			"runtime_env":    c.opts.RuntimeEnv,
			"files":          len(c.reasons),
			"directories":    len(c.directories),
			"entries":        len(c.entries),
			"built_at":       c.builtAt,
		},
		Timestamp: time.Now(),
	}
}
