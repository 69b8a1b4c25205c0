package domain

// ChangeType represents the type of file system change
type ChangeType string

const (
	// ChangeCreated indicates a new file or directory appeared
	ChangeCreated ChangeType = "created"
	// ChangeModified indicates an existing file was written
	ChangeModified ChangeType = "modified"
	// ChangeDeleted indicates a file was removed or renamed away
	ChangeDeleted ChangeType = "deleted"
)

// Structural reports whether the change can add or remove build entries
func (c ChangeType) Structural() bool {
	return c == ChangeCreated || c == ChangeDeleted
}

// ParseChangeType maps a change name to its ChangeType
func ParseChangeType(s string) (ChangeType, bool) {
	switch c := ChangeType(s); c {
	case ChangeCreated, ChangeModified, ChangeDeleted:
		return c, true
	}
	return "", false
}

// LoadError represents an error loading a specific hack table file
type LoadError struct {
	FilePath string `json:"file_path"`      // Path to the file that failed to load
	Error    string `json:"error"`          // Error message describing the failure
	Line     int    `json:"line,omitempty"` // Line number where the error occurred (if applicable)
}

// HackEntry maps one bare import specifier onto a file inside an installed package
type HackEntry struct {
	Specifier   string `json:"specifier" yaml:"specifier" validate:"required"`
	Package     string `json:"package" yaml:"package" validate:"required"`
	Path        string `json:"path" yaml:"path" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	FilePath string `json:"file_path,omitempty" yaml:"-"` // Path to the table file on disk
}

// HackFile represents a table file that can contain one or more entries
type HackFile struct {
	Hacks []HackEntry `json:"hacks" yaml:"hacks"`
}
