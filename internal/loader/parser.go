package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/crxkit/crxkit/internal/domain"
)

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// Parser decodes and validates hack table files
type Parser struct {
	validate *validator.Validate
}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{validate: validator.New()}
}

// ParseFile reads a table file. Accepted layouts are {hacks: [...]}, a
// single entry, or a bare list of entries.
func (p *Parser) ParseFile(path string) ([]domain.HackEntry, *domain.LoadError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.LoadError{FilePath: path, Error: fmt.Sprintf("failed to read file: %v", err)}
	}

	entries, loadErr := p.parse(data, formatOf(path), path)
	if loadErr != nil {
		return nil, loadErr
	}
	for i := range entries {
		entries[i].FilePath = path
	}
	return entries, nil
}

// ParseContent parses table content from bytes without file context
func (p *Parser) ParseContent(data []byte, format string) ([]domain.HackEntry, error) {
	entries, loadErr := p.parse(data, strings.ToLower(format), "content."+format)
	if loadErr != nil {
		return nil, fmt.Errorf("%s", loadErr.Error)
	}
	return entries, nil
}

func formatOf(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return "json"
	}
	return "yaml"
}

func (p *Parser) parse(data []byte, format, path string) ([]domain.HackEntry, *domain.LoadError) {
	var unmarshal func([]byte, any) error
	switch format {
	case "yaml", "yml":
		unmarshal = yaml.Unmarshal
	case "json":
		unmarshal = json.Unmarshal
	default:
		return nil, &domain.LoadError{FilePath: path, Error: fmt.Sprintf("unsupported format: %s", format)}
	}

	entries, err := decode(data, unmarshal)
	if err != nil {
		return nil, &domain.LoadError{
			FilePath: path,
			Error:    fmt.Sprintf("failed to parse %s: %v", strings.ToUpper(format), err),
			Line:     errorLine(err),
		}
	}

	for i, e := range entries {
		if err := p.validate.Struct(e); err != nil {
			return nil, &domain.LoadError{
				FilePath: path,
				Error:    fmt.Sprintf("entry %d: %s", i, formatValidationError(err)),
			}
		}
	}
	return entries, nil
}

func decode(data []byte, unmarshal func([]byte, any) error) ([]domain.HackEntry, error) {
	var file domain.HackFile
	if err := unmarshal(data, &file); err == nil && len(file.Hacks) > 0 {
		return file.Hacks, nil
	}

	var single domain.HackEntry
	if err := unmarshal(data, &single); err == nil && single.Specifier != "" {
		return []domain.HackEntry{single}, nil
	}

	var list []domain.HackEntry
	if err := unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}

	if err := unmarshal(data, &file); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no hack entries found")
}

func errorLine(err error) int {
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		return line
	}
	return 0
}

func formatValidationError(err error) string {
	var msgs []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}
