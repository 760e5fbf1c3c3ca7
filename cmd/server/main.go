package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docspeak/internal/api"
	"github.com/dgallion1/docspeak/internal/config"
	"github.com/dgallion1/docspeak/internal/pipeline"
	"github.com/dgallion1/docspeak/internal/playback"
	"github.com/dgallion1/docspeak/internal/speech"
)

func main() {
	cfg := config.Load()
	level, _ := config.ParseLevel(cfg.LogLevel)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Speech capability and the single playback engine.
	synth := speech.NewCommand(cfg.SpeechBinary, log)
	if !synth.Available() {
		log.Warn("speech synthesizer not found, playback disabled", "binary", cfg.SpeechBinary)
	}
	engine := playback.NewEngine(synth, playback.Config{
		ChunkBudget: cfg.ChunkBudget,
		QueueDepth:  cfg.QueueDepth,
	}, log)

	// Initialize pipeline.
	processor := pipeline.NewProcessor(pipeline.ProcessorConfigFrom(cfg), log)
	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, processor, pipeline.NewLibrary(), log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(ctx, orch, engine, log, cfg)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		if err := engine.Stop(); err != nil {
			log.Warn("stop playback", "error", err)
		}
		orch.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docspeak", "port", cfg.Port, "speech", synth.Available())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
