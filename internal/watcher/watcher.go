package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/surface"
)

// DefaultDebounce is the quiet period before a batch of changes is delivered.
const DefaultDebounce = 100 * time.Millisecond

var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

// CatalogSource yields the catalog changes are classified against. The
// catalog may be replaced between batches.
type CatalogSource interface {
	Catalog() *surface.Catalog
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Root is the project directory watched recursively.
	Root string
	// BuildDir is excluded together with everything below it.
	BuildDir string
	// Ignore are extra doublestar patterns relative to Root.
	Ignore   []string
	Debounce time.Duration
	Catalog  CatalogSource
	// OnChange receives the de-duplicated decisions of one debounce window,
	// ordered by path. Ignored decisions are included.
	OnChange func(ctx context.Context, decisions []Decision) error
}

// Watcher classifies filesystem events under a project directory.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	root     string
	ignores  []string
	debounce time.Duration
	started  atomic.Bool
}

// New registers every non-ignored directory under cfg.Root.
func New(cfg Config) (*Watcher, error) {
	if cfg.Catalog == nil {
		return nil, domain.NewConfigError("watcher requires a catalog source", nil)
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, domain.NewAppErrorWithCause(domain.ErrConfigInvalid, "Failed to resolve watch root", 500, err, map[string]any{"root": cfg.Root})
	}

	ignores := append([]string(nil), defaultIgnores...)
	if cfg.BuildDir != "" {
		if rel, err := filepath.Rel(root, cfg.BuildDir); err == nil && rel != "." && !filepath.IsAbs(rel) {
			rel = filepath.ToSlash(rel)
			ignores = append(ignores, rel, rel+"/**")
		}
	}
	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, domain.NewConfigError(fmt.Sprintf("invalid ignore pattern %q", pat), map[string]any{"pattern": pat})
		}
		ignores = append(ignores, pat)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, domain.NewAppErrorWithCause(domain.ErrInternal, "Failed to create file watcher", 500, err, nil)
	}

	w := &Watcher{cfg: cfg, fsw: fsw, root: root, ignores: ignores, debounce: debounce}
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close watcher after init failure")
		}
		return nil, err
	}
	return w, nil
}

// WatchList returns the directories currently registered with fsnotify.
func (w *Watcher) WatchList() []string {
	list := w.fsw.WatchList()
	sort.Strings(list)
	return list
}

// Run processes events until ctx is cancelled. It may only be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watcher: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]domain.ChangeType)
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		events := make([]FileEvent, 0, len(pending))
		for p, op := range pending {
			events = append(events, FileEvent{Path: p, Op: op})
		}
		clear(pending)
		mu.Unlock()

		sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
		cat := w.cfg.Catalog.Catalog()
		decisions := make([]Decision, 0, len(events))
		for _, ev := range events {
			d := Classify(cat, ev)
			log.Debug().Str("path", d.Path).Str("reason", d.Reason.String()).Str("action", d.Action.String()).Msg("Classified change")
			decisions = append(decisions, d)
		}

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, decisions); err != nil {
				log.Error().Err(err).Int("changes", len(decisions)).Msg("Change handler failed")
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close file watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher: event channel closed unexpectedly")
			}
			op, ok := changeType(evt.Op)
			if !ok || w.isIgnored(evt.Name) {
				continue
			}
			var nested []string
			if evt.Has(fsnotify.Create) {
				nested = w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			record := func(path string, op domain.ChangeType) {
				path = filepath.Clean(path)
				if prev, seen := pending[path]; seen {
					op = mergeChange(prev, op)
				}
				pending[path] = op
			}
			record(evt.Name, op)
			for _, f := range nested {
				record(f, domain.ChangeCreated)
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher: error channel closed unexpectedly")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn().Err(err).Msg("File watcher queue overflowed, changes may be missed")
				continue
			}
			log.Error().Err(err).Msg("File watcher error")
		}
	}
}

func changeType(op fsnotify.Op) (domain.ChangeType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return domain.ChangeCreated, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return domain.ChangeDeleted, true
	case op.Has(fsnotify.Write):
		return domain.ChangeModified, true
	default:
		return "", false
	}
}

// mergeChange collapses two changes to the same path within one window.
func mergeChange(prev, next domain.ChangeType) domain.ChangeType {
	switch {
	case prev == next:
		return next
	case prev == domain.ChangeCreated && next == domain.ChangeModified:
		return domain.ChangeCreated
	case prev == domain.ChangeDeleted && next == domain.ChangeCreated:
		return domain.ChangeModified
	default:
		return next
	}
}

func (w *Watcher) addDirectories() error {
	if _, err := w.addTree(w.root); err != nil {
		return err
	}
	log.Debug().Str("root", w.root).Int("directories", len(w.fsw.WatchList())).Msg("File watcher registered")
	return nil
}

// addTree registers every non-ignored directory under dir and returns the
// non-ignored files found below it.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			log.Warn().Err(walkErr).Str("path", path).Msg("Skipping inaccessible path")
			return nil
		}
		if path != w.root && w.isIgnored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return domain.NewAppErrorWithCause(domain.ErrInternal, "Failed to watch directory", 500, err, map[string]any{"path": path})
		}
		return nil
	})
	return files, err
}

// maybeAddDir registers a newly created directory with its whole subtree.
// Files already inside it are returned so they are reported as created.
func (w *Watcher) maybeAddDir(path string) []string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.isIgnored(path) {
		return nil
	}
	files, err := w.addTree(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to watch new directory")
	}
	return files
}

func (w *Watcher) isIgnored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, _ := doublestar.Match(pat, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pat, rel+"/"); matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return append([]string(nil), defaultIgnores...)
}
