// Package conflict detects escape-hatch specifiers defined by more than one
// hack table and picks the entry that stays active.
package conflict

import (
	"path/filepath"
	"sort"

	"github.com/crxkit/crxkit/internal/domain"
)

// Info describes one specifier claimed by several tables
type Info struct {
	Specifier string   `json:"specifier"`
	Files     []string `json:"files"`
	Active    string   `json:"active"`
}

// Detector resolves specifier conflicts between hack tables. Entries from
// the preferred table win; otherwise the table loaded first wins.
type Detector struct {
	preferred string
}

// NewDetector creates a detector that favours tables named preferred
func NewDetector(preferred string) *Detector {
	return &Detector{preferred: preferred}
}

// Resolve deduplicates entries by specifier. The result keeps the load
// order of the winning entries and the conflicts are sorted by specifier.
func (d *Detector) Resolve(entries []domain.HackEntry) ([]domain.HackEntry, []Info) {
	if len(entries) == 0 {
		return nil, nil
	}
	bySpecifier := make(map[string][]int, len(entries))
	for i, e := range entries {
		bySpecifier[e.Specifier] = append(bySpecifier[e.Specifier], i)
	}

	keep := make(map[int]bool, len(bySpecifier))
	var conflicts []Info
	for specifier, idx := range bySpecifier {
		winner := d.winner(entries, idx)
		keep[winner] = true
		if len(idx) == 1 {
			continue
		}
		files := make([]string, len(idx))
		for i, j := range idx {
			files[i] = entries[j].FilePath
		}
		conflicts = append(conflicts, Info{
			Specifier: specifier,
			Files:     files,
			Active:    entries[winner].FilePath,
		})
	}

	resolved := make([]domain.HackEntry, 0, len(keep))
	for i, e := range entries {
		if keep[i] {
			resolved = append(resolved, e)
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Specifier < conflicts[j].Specifier })
	return resolved, conflicts
}

// HasConflict reports whether specifier is defined more than once
func (d *Detector) HasConflict(specifier string, entries []domain.HackEntry) bool {
	count := 0
	for _, e := range entries {
		if e.Specifier == specifier {
			count++
			if count > 1 {
				return true
			}
		}
	}
	return false
}

// winner picks the highest-priority entry among idx, which is in load order
func (d *Detector) winner(entries []domain.HackEntry, idx []int) int {
	best, bestPriority := idx[0], -1
	for _, i := range idx {
		if p := d.priority(entries[i].FilePath); p > bestPriority {
			best, bestPriority = i, p
		}
	}
	return best
}

func (d *Detector) priority(path string) int {
	if d.preferred != "" && filepath.Base(path) == d.preferred {
		return 1
	}
	return 0
}
