// Package layout rebuilds lines, paragraphs and heading candidates from
// positioned text fragments of page-oriented sources.
package layout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"
)

// TruncationMarker is appended when the accumulated text reaches MaxTextBytes.
const TruncationMarker = "[Document truncated for performance...]"

// defaultFontSize is used for fragments that carry no size.
const defaultFontSize = 12

// Fragment is a run of text placed on a page. Y grows toward the top of the page.
type Fragment struct {
	Text     string
	X        float64
	Y        float64
	FontSize float64
}

// Page is one unit of a page-oriented source. Number is 1-based.
type Page struct {
	Number    int
	Fragments []Fragment
}

// PageSource yields pages lazily so a broken page can fail on its own.
type PageSource interface {
	NumPages() int
	Page(ctx context.Context, n int) (Page, error)
}

// Line is a reconstructed line of text.
type Line struct {
	Y         float64
	Fragments []Fragment // left to right
	FontSize  float64    // dominant (largest) fragment size
	Text      string
}

// PageLines holds the ordered lines of one page, top to bottom.
type PageLines struct {
	Number int
	Lines  []Line
}

// PageError records a page that could not be processed.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Config controls line reconstruction.
type Config struct {
	LineTolerance float64 // max Y distance for fragments on the same line
	ParagraphGap  float64 // Y gap above which a blank line separates paragraphs
	MaxPages      int
	MaxTextBytes  int
	YieldEvery    int // pages between cancellation checks / yields
}

// DefaultConfig returns the thresholds used for typical PDF output.
func DefaultConfig() Config {
	return Config{
		LineTolerance: 3,
		ParagraphGap:  15,
		MaxPages:      100,
		MaxTextBytes:  500000,
		YieldEvery:    5,
	}
}

// Result is the output of Reconstruct.
type Result struct {
	Text           string
	Pages          []PageLines
	Warnings       []*PageError
	Truncated      bool
	PagesProcessed int
}

// Reconstructor turns page fragments into lines and paragraph-structured text.
type Reconstructor struct {
	cfg Config
	log *slog.Logger
}

// NewReconstructor creates a Reconstructor. Zero config fields take defaults.
func NewReconstructor(cfg Config, log *slog.Logger) *Reconstructor {
	def := DefaultConfig()
	if cfg.LineTolerance <= 0 {
		cfg.LineTolerance = def.LineTolerance
	}
	if cfg.ParagraphGap <= 0 {
		cfg.ParagraphGap = def.ParagraphGap
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.MaxTextBytes <= 0 {
		cfg.MaxTextBytes = def.MaxTextBytes
	}
	if cfg.YieldEvery <= 0 {
		cfg.YieldEvery = def.YieldEvery
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconstructor{cfg: cfg, log: log}
}

// Reconstruct processes up to MaxPages pages of src. Failing pages are skipped
// and reported in Result.Warnings. The only error returned is ctx's.
func (r *Reconstructor) Reconstruct(ctx context.Context, src PageSource) (*Result, error) {
	res := &Result{}
	var full strings.Builder

	n := min(src.NumPages(), r.cfg.MaxPages)
	for num := 1; num <= n; num++ {
		if num%r.cfg.YieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runtime.Gosched()
		}

		page, err := src.Page(ctx, num)
		if err != nil {
			pe := &PageError{Page: num, Err: err}
			r.log.Warn("skipping page", "page", num, "error", err)
			res.Warnings = append(res.Warnings, pe)
			continue
		}
		res.PagesProcessed++

		lines := r.GroupLines(page.Fragments)
		res.Pages = append(res.Pages, PageLines{Number: num, Lines: lines})

		text := strings.TrimSpace(r.PageText(lines))
		if text == "" {
			continue
		}
		full.WriteString(text)
		full.WriteString("\n\n")

		if full.Len() > r.cfg.MaxTextBytes {
			r.log.Warn("document too large, truncating", "page", num, "bytes", full.Len())
			full.WriteString("\n\n" + TruncationMarker)
			res.Truncated = true
			break
		}
	}

	res.Text = full.String()
	return res, nil
}

// GroupLines assigns fragments to lines by vertical position and orders them
// top to bottom, left to right.
func (r *Reconstructor) GroupLines(frags []Fragment) []Line {
	var lines []Line
	for _, f := range frags {
		y := math.Round(f.Y)
		size := f.FontSize
		if size <= 0 {
			size = defaultFontSize
		}

		idx := -1
		for i := range lines {
			if math.Abs(lines[i].Y-y) < r.cfg.LineTolerance {
				idx = i
				break
			}
		}
		if idx == -1 {
			lines = append(lines, Line{Y: y, FontSize: size})
			idx = len(lines) - 1
		}
		lines[idx].Fragments = append(lines[idx].Fragments, f)
		if size > lines[idx].FontSize {
			lines[idx].FontSize = size
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Y > lines[j].Y })
	for i := range lines {
		sort.SliceStable(lines[i].Fragments, func(a, b int) bool {
			return lines[i].Fragments[a].X < lines[i].Fragments[b].X
		})
		lines[i].Text = joinFragments(lines[i].Fragments)
	}
	return lines
}

// PageText joins ordered lines, inserting a blank line where the vertical gap
// marks a paragraph break.
func (r *Reconstructor) PageText(lines []Line) string {
	var sb strings.Builder
	lastY := math.NaN()
	for _, l := range lines {
		if l.Text == "" {
			continue
		}
		if !math.IsNaN(lastY) && lastY-l.Y > r.cfg.ParagraphGap {
			sb.WriteString("\n\n")
		} else if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString(l.Text)
		lastY = l.Y
	}
	return sb.String()
}

func joinFragments(frags []Fragment) string {
	var sb strings.Builder
	for _, f := range frags {
		if f.Text == "" {
			continue
		}
		sb.WriteString(f.Text)
		if !endsWithSeparator(f.Text) {
			sb.WriteByte(' ')
		}
	}
	return strings.TrimSpace(sb.String())
}

// endsWithSeparator reports whether s already ends in whitespace or
// punctuation that needs no space appended after it.
func endsWithSeparator(s string) bool {
	last := s[len(s)-1]
	switch last {
	case ' ', '\t', '\n', '\r', '-', '.', ',', ';', ':', '!', '?':
		return true
	}
	return false
}
