package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dgallion1/docspeak/internal/chunker"
	"github.com/dgallion1/docspeak/internal/config"
	"github.com/dgallion1/docspeak/internal/document"
	"github.com/dgallion1/docspeak/internal/layout"
	"github.com/dgallion1/docspeak/internal/outline"
	"github.com/dgallion1/docspeak/internal/source"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for files with an unrecognized extension.
	ErrUnsupportedType = source.ErrUnsupportedType

	// ErrReadFailure is returned when the byte source cannot be read.
	ErrReadFailure = errors.New("read failure")
)

// ProcessorConfig holds the structuring thresholds.
type ProcessorConfig struct {
	Layout   layout.Config
	Detector layout.DetectorConfig
}

// DefaultProcessorConfig returns the standard thresholds.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		Layout:   layout.DefaultConfig(),
		Detector: layout.DefaultDetectorConfig(),
	}
}

// ProcessorConfigFrom maps service configuration onto processor thresholds.
func ProcessorConfigFrom(cfg config.Config) ProcessorConfig {
	return ProcessorConfig{
		Layout: layout.Config{
			LineTolerance: cfg.LineTolerance,
			ParagraphGap:  cfg.ParagraphGap,
			MaxPages:      cfg.MaxPages,
			MaxTextBytes:  cfg.MaxTextBytes,
			YieldEvery:    cfg.YieldEvery,
		},
		Detector: layout.DetectorConfig{
			HeadingRatio:  cfg.HeadingRatio,
			MaxHeadingLen: cfg.MaxHeadingLen,
		},
	}
}

// Processor turns raw document bytes into a structured Document.
type Processor struct {
	recon    *layout.Reconstructor
	detector *layout.Detector
	log      *slog.Logger
}

func NewProcessor(cfg ProcessorConfig, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		recon:    layout.NewReconstructor(cfg.Layout, log),
		detector: layout.NewDetector(cfg.Detector),
		log:      log,
	}
}

// ProcessReader reads r fully and processes it.
func (p *Processor) ProcessReader(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailure, filename, err)
	}
	return p.Process(ctx, data, filename)
}

// Process structures data according to the type implied by filename. When the
// container cannot be opened a placeholder Document is returned instead of an
// error.
func (p *Processor) Process(ctx context.Context, data []byte, filename string) (*document.Document, error) {
	typ, ok := document.TypeForFile(filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
	ext, err := source.ForType(typ)
	if err != nil {
		return nil, err
	}

	log := p.log.With("filename", filename, "type", typ)
	start := time.Now()

	ex, err := ext.Extract(ctx, data)
	if errors.Is(err, source.ErrStructure) {
		log.Warn("structure unreadable, using placeholder", "error", err)
		return placeholder(typ, filename, len(data)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	doc, err := p.build(ctx, typ, filename, ex)
	if err != nil {
		return nil, err
	}
	log.Info("document structured",
		"doc_id", doc.ID,
		"sections", len(doc.Sections),
		"pages", doc.Metadata.Pages,
		"warnings", len(doc.Warnings),
		"duration", time.Since(start),
	)
	return doc, nil
}

// build lays out, segments and outlines an extraction.
func (p *Processor) build(ctx context.Context, typ document.Type, filename string, ex *source.Extraction) (*document.Document, error) {
	doc := &document.Document{
		ID:       uuid.NewString(),
		Title:    document.TitleFromFilename(filename),
		Type:     typ,
		Warnings: ex.Warnings,
	}
	if t := strings.TrimSpace(ex.Title); t != "" {
		doc.Title = t
	}

	var cands []layout.Candidate
	if ex.Pages != nil {
		res, err := p.recon.Reconstruct(ctx, ex.Pages)
		if err != nil {
			return nil, fmt.Errorf("reconstruct %s: %w", filename, err)
		}
		for _, w := range res.Warnings {
			doc.Warnings = append(doc.Warnings, w.Error())
		}
		doc.Content = strings.TrimSpace(res.Text)
		doc.Metadata.Truncated = res.Truncated
		cands = p.detector.DetectPages(res.Pages)
	} else {
		doc.Content = strings.TrimSpace(ex.Text)
		cands = ex.Headings
		if cands == nil {
			cands = p.detector.DetectIsolated(doc.Content)
		}
	}

	if doc.Content == "" {
		switch typ {
		case document.TypePDF:
			doc.Content = "No text content found in PDF"
		case document.TypeEPUB:
			doc.Content = "No text content found in EPUB"
		}
	}

	doc.Sections = outline.Segment(doc.Content, cands)
	doc.TableOfContents = outline.BuildTOC(doc.Sections)

	now := time.Now().UTC()
	doc.Metadata.Author = ex.Author
	doc.Metadata.CreatedAt = now
	doc.Metadata.ModifiedAt = now
	doc.Metadata.Pages = ex.PageCount
	if doc.Metadata.Pages <= 1 {
		doc.Metadata.Pages = chunker.EstimatePages(doc.Content)
	}
	return doc, nil
}

// placeholder describes a document whose structure could not be read.
func placeholder(typ document.Type, filename string, size int) *document.Document {
	name := strings.ToUpper(string(typ))
	kb := int(math.Ceil(float64(size) / 1024))
	content := fmt.Sprintf("%s file uploaded: %s\n\n%s text extraction is unavailable for this file. "+
		"It is a %s file with %dKB of content.\n\n"+
		"Please try uploading a text file (.txt) or markdown file (.md) for full text-to-speech functionality.",
		name, filename, name, name, kb)

	now := time.Now().UTC()
	return &document.Document{
		ID:      uuid.NewString(),
		Title:   document.TitleFromFilename(filename),
		Content: content,
		Type:    typ,
		Metadata: document.Metadata{
			Pages:      1,
			CreatedAt:  now,
			ModifiedAt: now,
			Fallback:   true,
		},
		Sections:        []document.Section{},
		TableOfContents: []document.TOCEntry{},
	}
}
