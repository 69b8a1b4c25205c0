// Package loader reads escape-hatch resolution tables from YAML and JSON
// files in a project directory.
package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ValidHackExtensions defines the file suffixes recognized as hack tables
var ValidHackExtensions = []string{".hack.yaml", ".hack.yml", ".hack.json"}

// Scanner walks a directory tree for hack table files
type Scanner struct {
	dir string
}

// NewScanner creates a Scanner rooted at dir
func NewScanner(dir string) *Scanner {
	return &Scanner{dir: dir}
}

// Scan returns every hack table below the root in lexical order. A missing
// root yields no files.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	if s.dir == "" {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if path == s.dir {
				return err
			}
			// unreadable subtrees are skipped
			return nil
		}
		if d.IsDir() {
			if d.Name() == "node_modules" || (strings.HasPrefix(d.Name(), ".") && path != s.dir) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHackFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func isHackFile(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range ValidHackExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
