package layout

import "testing"

func TestDetectPages_FontRatio(t *testing.T) {
	pages := []PageLines{
		{
			Number: 1,
			Lines: []Line{
				{Y: 750, FontSize: 24, Text: "Chapter One"},
				{Y: 700, FontSize: 12, Text: "Body line one."},
				{Y: 688, FontSize: 12, Text: "Body line two."},
				{Y: 676, FontSize: 12, Text: "Body line three."},
				{Y: 650, FontSize: 20, Text: "A Subsection"},
				{Y: 630, FontSize: 12, Text: "More body."},
			},
		},
		{
			Number: 2,
			Lines: []Line{
				{Y: 700, FontSize: 12, Text: "Uniform page."},
				{Y: 688, FontSize: 12, Text: "Nothing stands out."},
			},
		},
	}
	d := NewDetector(DefaultDetectorConfig())
	got := d.DetectPages(pages)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Chapter One" || got[0].Page != 1 || got[0].FontSize != 24 || got[0].Y != 750 {
		t.Errorf("unexpected first candidate %+v", got[0])
	}
	if got[1].Title != "A Subsection" {
		t.Errorf("expected %q, got %q", "A Subsection", got[1].Title)
	}
}

func TestDetectPages_EmptyPage(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	if got := d.DetectPages([]PageLines{{Number: 1}}); len(got) != 0 {
		t.Errorf("expected no candidates, got %+v", got)
	}
}

func TestDetectIsolated(t *testing.T) {
	text := "Title\n\nBody text.\n\nSubtitle\n\nMore body."
	d := NewDetector(DefaultDetectorConfig())
	got := d.DetectIsolated(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Title" || got[1].Title != "Subtitle" {
		t.Errorf("expected [Title Subtitle], got [%s %s]", got[0].Title, got[1].Title)
	}
	if got[0].FontSize != 0 || got[0].Level != 0 {
		t.Errorf("expected no font or level signal, got %+v", got[0])
	}
}

func TestDetectIsolated_RequiresIsolationAndShortLines(t *testing.T) {
	long := "This heading is far too long to be considered a heading by the isolation heuristic at all"
	text := "Not isolated\nbecause a line follows\n\n" + long + "\n\n   Indented Heading   \n"
	d := NewDetector(DefaultDetectorConfig())
	got := d.DetectIsolated(text)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Indented Heading" {
		t.Errorf("expected trimmed title %q, got %q", "Indented Heading", got[0].Title)
	}
}
