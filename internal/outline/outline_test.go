package outline

import (
	"testing"

	"github.com/dgallion1/docspeak/internal/document"
	"github.com/dgallion1/docspeak/internal/layout"
)

func TestSegment_PlainTextExample(t *testing.T) {
	text := "Title\n\nBody text.\n\nSubtitle\n\nMore body."
	cands := layout.NewDetector(layout.DefaultDetectorConfig()).DetectIsolated(text)

	sections := Segment(text, cands)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}

	first, second := sections[0], sections[1]
	if first.Title != "Title" || second.Title != "Subtitle" {
		t.Errorf("expected titles [Title Subtitle], got [%s %s]", first.Title, second.Title)
	}
	if first.StartOffset != 0 {
		t.Errorf("expected first start 0, got %d", first.StartOffset)
	}
	if first.EndOffset != second.StartOffset {
		t.Errorf("expected first to end at %d, got %d", second.StartOffset, first.EndOffset)
	}
	if second.EndOffset != len(text) {
		t.Errorf("expected last section to end at %d, got %d", len(text), second.EndOffset)
	}
	if first.Content != "Title\n\nBody text." {
		t.Errorf("unexpected first content %q", first.Content)
	}
	if second.Content != "Subtitle\n\nMore body." {
		t.Errorf("unexpected second content %q", second.Content)
	}
	if first.Level != DefaultLevel || second.Level != DefaultLevel {
		t.Errorf("expected default level %d, got %d and %d", DefaultLevel, first.Level, second.Level)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", first.ID, second.ID)
	}

	toc := BuildTOC(sections)
	if len(toc) != 2 {
		t.Fatalf("expected 2 root entries, got %d", len(toc))
	}
	if len(toc[0].Children) != 0 || len(toc[1].Children) != 0 {
		t.Errorf("expected flat toc, got %+v", toc)
	}
	if toc[0].SectionID != first.ID {
		t.Errorf("expected toc entry to reference section %q, got %q", first.ID, toc[0].SectionID)
	}
}

func TestSegment_NoCandidates(t *testing.T) {
	got := Segment("just some text", nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSegment_FontSizeLevels(t *testing.T) {
	text := "Book\nintro\nPart\nbody\nChapter\nmore\nPart Two\nend"
	cands := []layout.Candidate{
		{Title: "Book", FontSize: 24},
		{Title: "Part", FontSize: 18},
		{Title: "Chapter", FontSize: 14},
		{Title: "Part Two", FontSize: 18},
	}
	sections := Segment(text, cands)
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(sections))
	}
	want := []int{1, 2, 3, 2}
	for i, s := range sections {
		if s.Level != want[i] {
			t.Errorf("section %q: expected level %d, got %d", s.Title, want[i], s.Level)
		}
	}
}

func TestSegment_SingleFontSizeIsLevelOne(t *testing.T) {
	text := "A\nx\nB\ny"
	sections := Segment(text, []layout.Candidate{
		{Title: "A", FontSize: 16},
		{Title: "B", FontSize: 16},
	})
	for _, s := range sections {
		if s.Level != 1 {
			t.Errorf("expected level 1 for %q, got %d", s.Title, s.Level)
		}
	}
}

func TestSegment_ExplicitLevelsClamped(t *testing.T) {
	text := "Top\nDeep\n"
	sections := Segment(text, []layout.Candidate{
		{Title: "Top", Level: 1},
		{Title: "Deep", Level: 9},
	})
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[1].Level != MaxLevel {
		t.Errorf("expected level clamped to %d, got %d", MaxLevel, sections[1].Level)
	}
}

func TestSegment_OffsetsIncreaseAndRepeatedTitles(t *testing.T) {
	text := "Notes\nfirst\nNotes\nsecond\nMissing?"
	sections := Segment(text, []layout.Candidate{
		{Title: "Notes"},
		{Title: "Notes"},
		{Title: "Not present"},
	})
	if len(sections) != 2 {
		t.Fatalf("expected unlocatable title dropped, got %d sections", len(sections))
	}
	if sections[0].StartOffset >= sections[1].StartOffset {
		t.Errorf("expected increasing offsets, got %d then %d", sections[0].StartOffset, sections[1].StartOffset)
	}
	if sections[1].StartOffset != 12 {
		t.Errorf("expected second Notes at 12, got %d", sections[1].StartOffset)
	}
	for _, s := range sections {
		if s.StartOffset > s.EndOffset {
			t.Errorf("section %q has start %d after end %d", s.Title, s.StartOffset, s.EndOffset)
		}
	}
}

func TestBuildTOC_Nesting(t *testing.T) {
	sections := []document.Section{
		{ID: "a", Title: "A", Level: 1},
		{ID: "b", Title: "B", Level: 2},
		{ID: "c", Title: "C", Level: 2},
		{ID: "d", Title: "D", Level: 1},
		{ID: "e", Title: "E", Level: 3},
	}
	toc := BuildTOC(sections)
	if len(toc) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(toc))
	}
	if toc[0].Title != "A" || len(toc[0].Children) != 2 {
		t.Fatalf("expected A with 2 children, got %+v", toc[0])
	}
	if toc[0].Children[0].Title != "B" || toc[0].Children[1].Title != "C" {
		t.Errorf("expected children [B C], got %+v", toc[0].Children)
	}
	if toc[1].Title != "D" || len(toc[1].Children) != 1 || toc[1].Children[0].Title != "E" {
		t.Errorf("expected D with child E, got %+v", toc[1])
	}

	flat := Flatten(toc)
	order := ""
	for _, f := range flat {
		order += f.Entry.Title
	}
	if order != "ABCDE" {
		t.Errorf("expected document order ABCDE, got %s", order)
	}
	if flat[4].Depth != 1 {
		t.Errorf("expected E at depth 1, got %d", flat[4].Depth)
	}
}

func TestBuildTOC_Empty(t *testing.T) {
	if toc := BuildTOC(nil); toc == nil || len(toc) != 0 {
		t.Errorf("expected empty toc, got %#v", toc)
	}
}
