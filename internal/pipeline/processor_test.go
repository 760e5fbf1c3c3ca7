package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/dgallion1/docspeak/internal/config"
	"github.com/dgallion1/docspeak/internal/document"
	"github.com/dgallion1/docspeak/internal/layout"
	"github.com/dgallion1/docspeak/internal/source"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProcessor() *Processor {
	return NewProcessor(DefaultProcessorConfig(), quietLogger())
}

func TestProcess_PlainTextEndToEnd(t *testing.T) {
	input := "Title\n\nBody text.\n\nSubtitle\n\nMore body."
	doc, err := newTestProcessor().Process(context.Background(), []byte(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "notes" || doc.Type != document.TypeText {
		t.Errorf("unexpected title/type %q/%q", doc.Title, doc.Type)
	}
	if doc.Content != input {
		t.Errorf("expected content preserved, got %q", doc.Content)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Title != "Title" || doc.Sections[1].Title != "Subtitle" {
		t.Errorf("unexpected section titles %q, %q", doc.Sections[0].Title, doc.Sections[1].Title)
	}
	if len(doc.TableOfContents) != 2 {
		t.Fatalf("expected 2 toc entries, got %d", len(doc.TableOfContents))
	}
	for _, e := range doc.TableOfContents {
		if len(e.Children) != 0 {
			t.Errorf("expected flat toc, %q has children", e.Title)
		}
	}
	if doc.Metadata.Pages != 1 {
		t.Errorf("expected 1 estimated page, got %d", doc.Metadata.Pages)
	}
	if doc.ID == "" || doc.Metadata.CreatedAt.IsZero() {
		t.Errorf("expected id and timestamps, got %+v", doc)
	}
}

func TestProcess_UnsupportedType(t *testing.T) {
	_, err := newTestProcessor().Process(context.Background(), []byte("a,b"), "sheet.xls")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestProcessReader_ReadFailure(t *testing.T) {
	r := iotest.ErrReader(errors.New("disk on fire"))
	_, err := newTestProcessor().ProcessReader(context.Background(), r, "notes.txt")
	if !errors.Is(err, ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("expected cause in error, got %v", err)
	}
}

func TestProcess_UnreadablePDFFallsBack(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 2048)
	doc, err := newTestProcessor().Process(context.Background(), data, "scan.pdf")
	if err != nil {
		t.Fatalf("expected placeholder, got error %v", err)
	}
	if !doc.Metadata.Fallback {
		t.Error("expected fallback metadata")
	}
	if !strings.Contains(doc.Content, "2KB") || !strings.Contains(doc.Content, "scan.pdf") {
		t.Errorf("expected size and name in placeholder, got %q", doc.Content)
	}
	if doc.Sections == nil || len(doc.Sections) != 0 || len(doc.TableOfContents) != 0 {
		t.Errorf("expected empty structure, got %+v", doc.Sections)
	}
	if doc.Metadata.Pages != 1 {
		t.Errorf("expected 1 page, got %d", doc.Metadata.Pages)
	}
}

func TestProcess_MarkdownHeadings(t *testing.T) {
	input := "# Guide\n\nIntro.\n\n## Install\n\nRun it.\n\n## Use\n\nEnjoy."
	doc, err := newTestProcessor().Process(context.Background(), []byte(input), "guide.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Level != 1 || doc.Sections[1].Level != 2 {
		t.Errorf("expected levels from markup, got %d and %d", doc.Sections[0].Level, doc.Sections[1].Level)
	}
	if len(doc.TableOfContents) != 1 || len(doc.TableOfContents[0].Children) != 2 {
		t.Errorf("expected Guide with two children, got %+v", doc.TableOfContents)
	}
	if doc.Sections[1].Content != "Install\n\nRun it." {
		t.Errorf("unexpected section content %q", doc.Sections[1].Content)
	}
}

func TestProcess_EstimatesPages(t *testing.T) {
	input := strings.Repeat("word ", 900)
	doc, err := newTestProcessor().Process(context.Background(), []byte(input), "long.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Metadata.Pages != 3 {
		t.Errorf("expected 3 estimated pages, got %d", doc.Metadata.Pages)
	}
}

type stubPages struct {
	pages []layout.Page
	fail  int
}

func (s *stubPages) NumPages() int { return len(s.pages) }

func (s *stubPages) Page(_ context.Context, n int) (layout.Page, error) {
	if n == s.fail {
		return layout.Page{}, errors.New("broken page")
	}
	return s.pages[n-1], nil
}

func TestBuild_PagesUseFontHeadings(t *testing.T) {
	frag := func(text string, y, size float64) layout.Fragment {
		return layout.Fragment{Text: text, X: 10, Y: y, FontSize: size}
	}
	pages := &stubPages{
		fail: 2,
		pages: []layout.Page{
			{Number: 1, Fragments: []layout.Fragment{
				frag("Introduction", 750, 24),
				frag("Body one.", 700, 12),
				frag("Body two.", 688, 12),
				frag("Body three.", 676, 12),
			}},
			{Number: 2},
			{Number: 3, Fragments: []layout.Fragment{
				frag("Details", 750, 18),
				frag("More body.", 700, 12),
				frag("Even more.", 688, 12),
				frag("Last line.", 676, 12),
			}},
		},
	}
	ex := &source.Extraction{Pages: pages, PageCount: 3, Author: "A. Writer"}
	doc, err := newTestProcessor().build(context.Background(), document.TypePDF, "report.pdf", ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(doc.Sections), doc.Sections)
	}
	intro, details := doc.Sections[0], doc.Sections[1]
	if intro.Title != "Introduction" || intro.Level != 1 || intro.PageNumber != 1 {
		t.Errorf("unexpected first section %+v", intro)
	}
	if details.Title != "Details" || details.Level != 2 || details.PageNumber != 3 {
		t.Errorf("unexpected second section %+v", details)
	}
	if len(doc.TableOfContents) != 1 || len(doc.TableOfContents[0].Children) != 1 {
		t.Errorf("expected nested toc, got %+v", doc.TableOfContents)
	}
	if len(doc.Warnings) != 1 || !strings.Contains(doc.Warnings[0], "page 2") {
		t.Errorf("expected warning for page 2, got %v", doc.Warnings)
	}
	if doc.Metadata.Pages != 3 || doc.Metadata.Author != "A. Writer" {
		t.Errorf("unexpected metadata %+v", doc.Metadata)
	}
}

func TestBuild_EmptyPDFText(t *testing.T) {
	ex := &source.Extraction{Pages: &stubPages{pages: []layout.Page{{Number: 1}}}, PageCount: 1}
	doc, err := newTestProcessor().build(context.Background(), document.TypePDF, "blank.pdf", ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != "No text content found in PDF" {
		t.Errorf("unexpected content %q", doc.Content)
	}
}

func TestProcessorConfigFrom(t *testing.T) {
	cfg := config.Config{
		LineTolerance: 4,
		ParagraphGap:  20,
		MaxPages:      50,
		MaxTextBytes:  1000,
		YieldEvery:    2,
		HeadingRatio:  1.5,
		MaxHeadingLen: 60,
	}
	pc := ProcessorConfigFrom(cfg)
	if pc.Layout.MaxPages != 50 || pc.Layout.LineTolerance != 4 || pc.Layout.YieldEvery != 2 {
		t.Errorf("unexpected layout config %+v", pc.Layout)
	}
	if pc.Detector.HeadingRatio != 1.5 || pc.Detector.MaxHeadingLen != 60 {
		t.Errorf("unexpected detector config %+v", pc.Detector)
	}
}
