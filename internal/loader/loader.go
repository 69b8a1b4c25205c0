package loader

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/conflict"
	"github.com/crxkit/crxkit/internal/domain"
)

// Registrar receives loaded hack entries
type Registrar interface {
	RegisterEntry(entry domain.HackEntry) error
}

// HackLoader loads every table file under a directory
type HackLoader struct {
	scanner    *Scanner
	parser     *Parser
	detector   *conflict.Detector
	mu         sync.RWMutex
	entries    []domain.HackEntry
	conflicts  []conflict.Info
	loadErrors []domain.LoadError
}

// NewHackLoader creates a loader rooted at dir
func NewHackLoader(dir string) *HackLoader {
	return &HackLoader{
		scanner:  NewScanner(dir),
		parser:   NewParser(),
		detector: conflict.NewDetector(LocalHackFile),
	}
}

// LoadAll scans and parses every table. Per-file failures are collected
// and loading continues; only a scan failure is returned as an error.
// A specifier defined in several files is taken from the local table, else
// from the first file, and each shadowed definition is a load error.
func (l *HackLoader) LoadAll(ctx context.Context) ([]domain.HackEntry, []domain.LoadError, error) {
	files, err := l.scanner.Scan(ctx)
	if err != nil {
		return nil, nil, err
	}

	var all []domain.HackEntry
	var loadErrors []domain.LoadError

	for _, path := range files {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		fileEntries, loadErr := l.parser.ParseFile(path)
		if loadErr != nil {
			loadErrors = append(loadErrors, *loadErr)
			continue
		}
		all = append(all, fileEntries...)
	}

	entries, conflicts := l.detector.Resolve(all)
	for _, c := range conflicts {
		for _, f := range c.Files {
			if f == c.Active {
				continue
			}
			loadErrors = append(loadErrors, domain.LoadError{
				FilePath: f,
				Error:    "duplicate specifier " + c.Specifier + " shadowed by " + c.Active,
			})
		}
	}

	l.mu.Lock()
	l.entries = entries
	l.conflicts = conflicts
	l.loadErrors = loadErrors
	l.mu.Unlock()

	for _, le := range loadErrors {
		log.Warn().Str("file", le.FilePath).Int("line", le.Line).Msg(le.Error)
	}
	log.Debug().Int("entries", len(entries)).Int("files", len(files)).Msg("Loaded hack tables")

	return entries, loadErrors, nil
}

// LoadInto loads every table and registers the entries with r. Entries the
// registrar rejects are reported as load errors.
func (l *HackLoader) LoadInto(ctx context.Context, r Registrar) ([]domain.LoadError, error) {
	entries, loadErrors, err := l.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := r.RegisterEntry(e); err != nil {
			le := domain.LoadError{FilePath: e.FilePath, Error: err.Error()}
			log.Warn().Str("file", le.FilePath).Str("specifier", e.Specifier).Err(err).Msg("Hack entry rejected")
			loadErrors = append(loadErrors, le)
		}
	}
	return loadErrors, nil
}

// Entries returns the entries from the last load
func (l *HackLoader) Entries() []domain.HackEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.HackEntry(nil), l.entries...)
}

// Conflicts returns the specifiers defined by more than one table in the last load
func (l *HackLoader) Conflicts() []conflict.Info {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]conflict.Info(nil), l.conflicts...)
}

// LoadErrors returns errors from the last load operation
func (l *HackLoader) LoadErrors() []domain.LoadError {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.LoadError(nil), l.loadErrors...)
}
