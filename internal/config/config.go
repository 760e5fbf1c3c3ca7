package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	LogLevel string

	// Ingest worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Layout reconstruction
	MaxPages      int
	MaxTextBytes  int
	YieldEvery    int
	LineTolerance float64
	ParagraphGap  float64

	// Heading detection
	HeadingRatio  float64
	MaxHeadingLen int

	// Playback
	ChunkBudget int
	QueueDepth  int

	// Speech synthesizer
	SpeechBinary  string
	DefaultVoice  string
	DefaultRate   float64
	DefaultPitch  float64
	DefaultVolume float64
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists. Variables already set win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config: ignoring .env: %v\n", err)
	}

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCSPEAK_API_KEY"),

		LogLevel: envOr("LOG_LEVEL", "info"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		MaxPages:      envInt("MAX_PAGES", 100),
		MaxTextBytes:  envInt("MAX_TEXT_BYTES", 500000),
		YieldEvery:    envInt("YIELD_EVERY_PAGES", 5),
		LineTolerance: envFloat("LINE_TOLERANCE", 3),
		ParagraphGap:  envFloat("PARAGRAPH_GAP", 15),

		HeadingRatio:  envFloat("HEADING_RATIO", 1.2),
		MaxHeadingLen: envInt("MAX_HEADING_LEN", 80),

		ChunkBudget: envInt("CHUNK_BUDGET", 300),
		QueueDepth:  envInt("PLAYBACK_QUEUE_DEPTH", 8),

		SpeechBinary:  envOr("SPEECH_BINARY", "espeak-ng"),
		DefaultVoice:  os.Getenv("SPEECH_VOICE"),
		DefaultRate:   envFloat("SPEECH_RATE", 1),
		DefaultPitch:  envFloat("SPEECH_PITCH", 1),
		DefaultVolume: envFloat("SPEECH_VOLUME", 1),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ChunkBudget <= 0 {
		cfg.ChunkBudget = 300
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 8
	}

	return cfg
}

func (c Config) Validate() error {
	if c.HeadingRatio <= 1 {
		return fmt.Errorf("HEADING_RATIO must be greater than 1, got %v", c.HeadingRatio)
	}
	if c.MaxPages <= 0 || c.MaxTextBytes <= 0 || c.YieldEvery <= 0 {
		return fmt.Errorf("MAX_PAGES, MAX_TEXT_BYTES and YIELD_EVERY_PAGES must be positive")
	}
	if c.DefaultRate < 0.1 || c.DefaultRate > 10 {
		return fmt.Errorf("SPEECH_RATE must be within 0.1-10, got %v", c.DefaultRate)
	}
	if c.DefaultPitch < 0 || c.DefaultPitch > 2 {
		return fmt.Errorf("SPEECH_PITCH must be within 0-2, got %v", c.DefaultPitch)
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		return fmt.Errorf("SPEECH_VOLUME must be within 0-1, got %v", c.DefaultVolume)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
