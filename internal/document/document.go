package document

import (
	"path/filepath"
	"strings"
	"time"
)

// Type is the declared source type of a document, derived from its extension.
type Type string

const (
	TypeText     Type = "txt"
	TypeMarkdown Type = "md"
	TypePDF      Type = "pdf"
	TypeEPUB     Type = "epub"
	TypeHTML     Type = "html"
	TypeDOCX     Type = "docx"
)

// TypeForFile maps a filename to its declared type. ok is false for unknown extensions.
func TypeForFile(filename string) (Type, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text":
		return TypeText, true
	case ".md", ".markdown":
		return TypeMarkdown, true
	case ".pdf":
		return TypePDF, true
	case ".epub":
		return TypeEPUB, true
	case ".html", ".htm", ".xhtml":
		return TypeHTML, true
	case ".docx":
		return TypeDOCX, true
	}
	return "", false
}

// TitleFromFilename strips directories and the final extension.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Document is the structured result of one successful ingestion.
type Document struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Type            Type       `json:"type"`
	Metadata        Metadata   `json:"metadata"`
	Sections        []Section  `json:"sections"`
	TableOfContents []TOCEntry `json:"table_of_contents"`
	Warnings        []string   `json:"warnings,omitempty"`
}

// Metadata carries optional source information.
type Metadata struct {
	Author     string    `json:"author,omitempty"`
	Pages      int       `json:"pages,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Truncated  bool      `json:"truncated,omitempty"`
	Fallback   bool      `json:"fallback,omitempty"`
}

// Section is a titled slice of Content. StartOffset and EndOffset are byte
// offsets into Document.Content; sections never overlap and EndOffset > StartOffset.
type Section struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Level       int    `json:"level"`
	PageNumber  int    `json:"page_number,omitempty"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// TOCEntry is a node of the outline. Children are in document order and
// always have a higher Level than their parent.
type TOCEntry struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Level      int        `json:"level"`
	SectionID  string     `json:"section_id"`
	PageNumber int        `json:"page_number,omitempty"`
	Children   []TOCEntry `json:"children,omitempty"`
}

// Section returns the section with the given id.
func (d *Document) Section(id string) (Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// SectionByTitle returns the first section whose title matches, ignoring case.
func (d *Document) SectionByTitle(title string) (Section, bool) {
	for _, s := range d.Sections {
		if strings.EqualFold(s.Title, title) {
			return s, true
		}
	}
	return Section{}, false
}

// Slice returns Content[start:end] clamped to valid bounds.
func (d *Document) Slice(start, end int) string {
	if end <= 0 || end > len(d.Content) {
		end = len(d.Content)
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return ""
	}
	return d.Content[start:end]
}

// ReadingProgress is derived bookkeeping about where a reader left off.
type ReadingProgress struct {
	DocumentID string    `json:"document_id"`
	Position   int       `json:"position"`
	Percentage float64   `json:"percentage"`
	LastRead   time.Time `json:"last_read"`
}
