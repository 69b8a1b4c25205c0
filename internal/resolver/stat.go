package resolver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/crxkit/crxkit/internal/cache"
	"github.com/crxkit/crxkit/internal/domain"
)

// FS is the filesystem surface the stat checker needs.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
}

type osFS struct{}

func (osFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// StatChecker answers existence checks through an LRU. Both hits and misses
// are cached; watch events drop stale entries through Invalidate.
type StatChecker struct {
	fs    FS
	cache *cache.StatCache
}

// NewStatChecker creates a checker. A nil fsys uses the OS filesystem.
func NewStatChecker(c *cache.StatCache, fsys FS) *StatChecker {
	if fsys == nil {
		fsys = osFS{}
	}
	if c == nil {
		c = cache.NewStatCache(0)
	}
	return &StatChecker{fs: fsys, cache: c}
}

var _ domain.FileChecker = (*StatChecker)(nil)

// Stat returns the cached or freshly computed stat for path.
func (s *StatChecker) Stat(path string) domain.FileStat {
	path = filepath.Clean(path)
	if stat, ok := s.cache.Get(path); ok {
		return stat
	}

	var stat domain.FileStat
	if info, err := s.fs.Stat(path); err == nil {
		stat = domain.FileStat{Exists: true, IsDir: info.IsDir(), ModTime: info.ModTime()}
	}
	s.cache.Set(path, stat)
	return stat
}

// Invalidate drops path, anything cached beneath it and the entries of its
// parent directories, which may have been created along with it.
func (s *StatChecker) Invalidate(path string) {
	path = filepath.Clean(path)
	s.cache.InvalidatePrefix(path)
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		s.cache.Invalidate(dir)
		if parent := filepath.Dir(dir); parent == dir {
			return
		}
	}
}

// Reset drops every cached entry.
func (s *StatChecker) Reset() {
	s.cache.Clear()
}

// Stats exposes the cache counters.
func (s *StatChecker) Stats() domain.CacheStats {
	return s.cache.Stats()
}

// HealthCheck reports the health of the backing cache.
func (s *StatChecker) HealthCheck(ctx context.Context) domain.HealthStatus {
	return s.cache.HealthCheck(ctx)
}
