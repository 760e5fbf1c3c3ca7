package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/docspeak/internal/config"
	"github.com/dgallion1/docspeak/internal/document"
	"github.com/dgallion1/docspeak/internal/pipeline"
	"github.com/dgallion1/docspeak/internal/playback"
	"github.com/dgallion1/docspeak/internal/speech"
)

// app holds what every subcommand shares.
type app struct {
	cfg config.Config
	log *slog.Logger
}

func newApp() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	// Logs go to stderr so command output stays clean.
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return &app{cfg: cfg, log: log}, nil
}

// load structures the file at path.
func (a *app) load(ctx context.Context, path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := pipeline.NewProcessor(pipeline.ProcessorConfigFrom(a.cfg), a.log)
	doc, err := p.ProcessReader(ctx, f, path)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", path, err)
	}
	return doc, nil
}

// engine creates the process's playback engine around the configured synthesizer.
func (a *app) engine() *playback.Engine {
	synth := speech.NewCommand(a.cfg.SpeechBinary, a.log)
	return playback.NewEngine(synth, playback.Config{
		ChunkBudget: a.cfg.ChunkBudget,
		QueueDepth:  a.cfg.QueueDepth,
	}, a.log)
}

// pickText returns the whole document, or the section titled title.
func pickText(doc *document.Document, title string) (string, error) {
	if title == "" {
		return doc.Content, nil
	}
	sec, ok := doc.SectionByTitle(title)
	if !ok {
		return "", fmt.Errorf("no section titled %q", title)
	}
	return sec.Content, nil
}
