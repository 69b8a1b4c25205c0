package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/crxkit/crxkit/internal/domain"
)

// LocalHackFile is the table AddHack appends to
const LocalHackFile = "local.hack.yaml"

// Writer persists hack tables in YAML format
type Writer struct {
	baseDir string
	parser  *Parser
}

// NewWriter creates a new Writer with the specified base directory
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir, parser: NewParser()}
}

type hackYAML struct {
	Specifier   string `yaml:"specifier"`
	Package     string `yaml:"package"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// WriteHacks replaces filename with the given entries
func (w *Writer) WriteHacks(entries []domain.HackEntry, filename string) error {
	target := filepath.Join(w.baseDir, filename)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	file := struct {
		Hacks []hackYAML `yaml:"hacks"`
	}{Hacks: make([]hackYAML, len(entries))}
	for i, e := range entries {
		file.Hacks[i] = hackYAML{Specifier: e.Specifier, Package: e.Package, Path: e.Path, Description: e.Description}
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal hacks to YAML: %w", err)
	}
	return atomicWrite(target, data)
}

// AddHack validates entry and appends it to the local table
func (w *Writer) AddHack(entry domain.HackEntry) error {
	if err := w.parser.validate.Struct(entry); err != nil {
		return domain.NewAppErrorWithCause(domain.ErrValidationFailed, "Invalid hack entry", 422, err, map[string]any{
			"error": formatValidationError(err),
		})
	}

	path := filepath.Join(w.baseDir, LocalHackFile)
	var existing []domain.HackEntry
	if _, err := os.Stat(path); err == nil {
		entries, loadErr := w.parser.ParseFile(path)
		if loadErr != nil {
			return domain.NewAppError(domain.ErrValidationFailed, "Existing hack table is invalid", 422, loadErr)
		}
		existing = entries
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	for _, e := range existing {
		if e.Specifier == entry.Specifier {
			return domain.NewAppError(domain.ErrValidationFailed, "Hack already registered", 422, map[string]any{
				"specifier": entry.Specifier,
				"file":      path,
			})
		}
	}
	return w.WriteHacks(append(existing, entry), LocalHackFile)
}

// atomicWrite performs an atomic file write using temp file → sync → rename pattern
func atomicWrite(targetPath string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(targetPath), ".hack-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return fmt.Errorf("failed to rename temp file to target: %w", err)
	}

	success = true
	return nil
}
