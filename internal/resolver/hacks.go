package resolver

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/crxkit/crxkit/internal/domain"
)

// RewriteFunc produces the corrected path for a matched specifier.
type RewriteFunc func(ctx context.Context, req Request) (string, error)

// HackRegistry is the table of packages whose published layout needs a
// hand-written correction. Only exact specifiers match.
type HackRegistry struct {
	mu    sync.RWMutex
	table map[string]RewriteFunc
}

// NewHackRegistry creates an empty registry.
func NewHackRegistry() *HackRegistry {
	return &HackRegistry{table: make(map[string]RewriteFunc)}
}

func (r *HackRegistry) Name() string { return "hacks" }

// Register adds a rewrite for specifier.
func (r *HackRegistry) Register(specifier string, fn RewriteFunc) error {
	if specifier == "" {
		return domain.NewAppError(domain.ErrInvalidInput, "Hack specifier is required", 400, nil)
	}
	if fn == nil {
		return domain.NewAppError(domain.ErrInvalidInput, "Hack rewrite is required", 400, map[string]any{"specifier": specifier})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.table[specifier]; exists {
		return domain.NewAppError(domain.ErrValidationFailed, "Hack already registered", 422, map[string]any{"specifier": specifier})
	}
	r.table[specifier] = fn
	return nil
}

// RegisterEntry registers a package file rewrite loaded from a table file.
func (r *HackRegistry) RegisterEntry(e domain.HackEntry) error {
	return r.Register(e.Specifier, PackageFileRewrite(e.Package, e.Path))
}

// Specifiers returns the registered specifiers in lexical order.
func (r *HackRegistry) Specifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.table))
	for s := range r.table {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered hacks.
func (r *HackRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.table)
}

// Resolve applies the rewrite registered for the exact specifier.
func (r *HackRegistry) Resolve(ctx context.Context, req Request) (Result, bool, error) {
	r.mu.RLock()
	fn, ok := r.table[req.Specifier]
	r.mu.RUnlock()
	if !ok {
		return Result{}, false, nil
	}

	path, err := fn(ctx, req)
	if err != nil {
		return Result{}, false, domain.NewResolutionError(req.Specifier, path, err).WithContext(ctx, "hacks.resolve")
	}
	return Result{Path: path, Strategy: r.Name()}, true, nil
}

// PackageFileRewrite points a specifier at relPath inside an installed
// package, found by walking up from the request directory to the nearest
// node_modules/<pkg>/package.json.
func PackageFileRewrite(pkg, relPath string) RewriteFunc {
	return func(ctx context.Context, req Request) (string, error) {
		dir := req.ResolveDir
		if dir == "" && req.Importer != "" {
			dir = filepath.Dir(req.Importer)
		}
		if dir == "" {
			return "", domain.NewAppError(domain.ErrInvalidInput, "No directory to search for package", 400, map[string]any{"package": pkg})
		}

		for {
			manifest := filepath.Join(dir, "node_modules", pkg, "package.json")
			if info, err := os.Stat(manifest); err == nil && !info.IsDir() {
				return filepath.Join(filepath.Dir(manifest), relPath), nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				return "", domain.NewAppError(domain.ErrNotFound, "Package not installed", 404, map[string]any{
					"package":     pkg,
					"resolve_dir": req.ResolveDir,
				})
			}
			dir = parent
		}
	}
}
