package outline

import (
	"github.com/dgallion1/docspeak/internal/document"
	"github.com/google/uuid"
)

// BuildTOC folds an ordered section list into an outline forest. A section
// becomes a child of the nearest preceding section with a lower level, or a
// root when there is none.
func BuildTOC(sections []document.Section) []document.TOCEntry {
	type node struct {
		entry    document.TOCEntry
		children []*node
	}
	type stackEntry struct {
		node  *node
		level int
	}

	var roots []*node
	var stack []stackEntry

	for _, s := range sections {
		n := &node{entry: document.TOCEntry{
			ID:         uuid.NewString(),
			Title:      s.Title,
			Level:      s.Level,
			SectionID:  s.ID,
			PageNumber: s.PageNumber,
		}}

		for len(stack) > 0 && stack[len(stack)-1].level >= s.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1].node
			parent.children = append(parent.children, n)
		}
		stack = append(stack, stackEntry{node: n, level: s.Level})
	}

	// Entries are built through pointers and materialized once the forest is
	// complete, since TOCEntry holds its children by value.
	var materialize func(nodes []*node) []document.TOCEntry
	materialize = func(nodes []*node) []document.TOCEntry {
		if len(nodes) == 0 {
			return nil
		}
		out := make([]document.TOCEntry, len(nodes))
		for i, n := range nodes {
			out[i] = n.entry
			out[i].Children = materialize(n.children)
		}
		return out
	}

	toc := materialize(roots)
	if toc == nil {
		toc = []document.TOCEntry{}
	}
	return toc
}

// Flatten returns every entry of the forest in document order with its depth
// (0 for roots).
func Flatten(toc []document.TOCEntry) []FlatEntry {
	var out []FlatEntry
	var walk func(entries []document.TOCEntry, depth int)
	walk = func(entries []document.TOCEntry, depth int) {
		for _, e := range entries {
			out = append(out, FlatEntry{Entry: e, Depth: depth})
			walk(e.Children, depth+1)
		}
	}
	walk(toc, 0)
	return out
}

// FlatEntry is a TOC entry paired with its nesting depth.
type FlatEntry struct {
	Entry document.TOCEntry
	Depth int
}
