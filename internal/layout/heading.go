package layout

import (
	"strings"
	"unicode/utf8"
)

// Candidate is a line flagged as a likely section title.
type Candidate struct {
	Title    string
	Page     int     // 1-based source page, 0 when unknown
	FontSize float64 // 0 when the source has no font signal
	Y        float64
	Level    int // explicit level from markup, 0 to derive
}

// DetectorConfig holds heading detection thresholds.
type DetectorConfig struct {
	// HeadingRatio is how much larger than the page average a line's font
	// must be to count as a heading.
	HeadingRatio float64

	// MaxHeadingLen bounds isolated plain-text headings, in runes.
	MaxHeadingLen int
}

// DefaultDetectorConfig returns the standard thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		HeadingRatio:  1.2,
		MaxHeadingLen: 80,
	}
}

// Detector flags heading candidates.
type Detector struct {
	cfg DetectorConfig
}

// NewDetector creates a Detector. Zero config fields take defaults.
func NewDetector(cfg DetectorConfig) *Detector {
	def := DefaultDetectorConfig()
	if cfg.HeadingRatio <= 0 {
		cfg.HeadingRatio = def.HeadingRatio
	}
	if cfg.MaxHeadingLen <= 0 {
		cfg.MaxHeadingLen = def.MaxHeadingLen
	}
	return &Detector{cfg: cfg}
}

// DetectPages returns lines whose dominant font size exceeds the page average
// by HeadingRatio, in page and line order.
func (d *Detector) DetectPages(pages []PageLines) []Candidate {
	var out []Candidate
	for _, p := range pages {
		var sum float64
		var n int
		for _, l := range p.Lines {
			if l.Text == "" {
				continue
			}
			sum += l.FontSize
			n++
		}
		if n == 0 {
			continue
		}
		avg := sum / float64(n)

		for _, l := range p.Lines {
			if l.Text == "" || l.FontSize <= avg*d.cfg.HeadingRatio {
				continue
			}
			out = append(out, Candidate{
				Title:    l.Text,
				Page:     p.Number,
				FontSize: l.FontSize,
				Y:        l.Y,
			})
		}
	}
	return out
}

// DetectIsolated finds short lines standing alone between blank lines, for
// sources with no font metadata. Lines ending in sentence punctuation are
// treated as body text.
func (d *Detector) DetectIsolated(text string) []Candidate {
	lines := strings.Split(text, "\n")
	blank := func(i int) bool {
		return i < 0 || i >= len(lines) || strings.TrimSpace(lines[i]) == ""
	}

	var out []Candidate
	for i, line := range lines {
		title := strings.TrimSpace(line)
		if title == "" || utf8.RuneCountInString(title) >= d.cfg.MaxHeadingLen {
			continue
		}
		if !blank(i-1) || !blank(i+1) {
			continue
		}
		if endsSentence(title) {
			continue
		}
		out = append(out, Candidate{Title: title})
	}
	return out
}

func endsSentence(s string) bool {
	switch s[len(s)-1] {
	case '.', ',', ';', ':', '!', '?':
		return true
	}
	return false
}
