// Package outline turns heading candidates into offset-bounded sections and
// folds sections into a nested table of contents.
package outline

import (
	"sort"
	"strings"

	"github.com/dgallion1/docspeak/internal/document"
	"github.com/dgallion1/docspeak/internal/layout"
	"github.com/google/uuid"
)

const (
	// MaxLevel is the deepest section level.
	MaxLevel = 6

	// DefaultLevel is assigned to candidates with no font or markup signal.
	DefaultLevel = 2
)

// Segment locates each candidate's title in text and slices the text into
// sections running from one located title to the next. Titles that cannot be
// found after the previous match are dropped.
func Segment(text string, cands []layout.Candidate) []document.Section {
	if len(cands) == 0 {
		return []document.Section{}
	}
	levels := fontLevels(cands)

	type located struct {
		cand  layout.Candidate
		start int
	}
	var found []located
	cursor := 0
	for _, c := range cands {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}
		idx := strings.Index(text[cursor:], title)
		if idx == -1 {
			continue
		}
		start := cursor + idx
		c.Title = title
		found = append(found, located{cand: c, start: start})
		cursor = start + len(title)
	}

	sections := make([]document.Section, 0, len(found))
	for i, f := range found {
		end := len(text)
		if i+1 < len(found) {
			end = found[i+1].start
		}
		sections = append(sections, document.Section{
			ID:          uuid.NewString(),
			Title:       f.cand.Title,
			Content:     strings.TrimSpace(text[f.start:end]),
			Level:       levelFor(f.cand, levels),
			PageNumber:  f.cand.Page,
			StartOffset: f.start,
			EndOffset:   end,
		})
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].StartOffset < sections[j].StartOffset
	})
	return sections
}

// fontLevels maps each distinct font size among font-signal candidates to a
// level, largest size first.
func fontLevels(cands []layout.Candidate) map[float64]int {
	seen := make(map[float64]bool)
	var sizes []float64
	for _, c := range cands {
		if c.Level > 0 || c.FontSize <= 0 || seen[c.FontSize] {
			continue
		}
		seen[c.FontSize] = true
		sizes = append(sizes, c.FontSize)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))

	levels := make(map[float64]int, len(sizes))
	for i, s := range sizes {
		levels[s] = min(i+1, MaxLevel)
	}
	return levels
}

func levelFor(c layout.Candidate, fontLevels map[float64]int) int {
	switch {
	case c.Level > 0:
		return min(c.Level, MaxLevel)
	case c.FontSize > 0:
		if l, ok := fontLevels[c.FontSize]; ok {
			return l
		}
	}
	return DefaultLevel
}
