package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultBinary is the synthesizer executable used when none is configured.
const DefaultBinary = "espeak-ng"

const (
	baseWordsPerMinute = 175
	basePitch          = 50
	maxPitch           = 99
	baseAmplitude      = 100

	// waitDelay bounds how long Wait drains output after the process exits.
	waitDelay = 2 * time.Second
)

// Command speaks through an external synthesizer process. One utterance may
// be in flight at a time.
type Command struct {
	binary string
	log    *slog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	exited   chan struct{} // closed once cmd has been reaped
	canceled bool
}

// NewCommand creates a Command for binary (DefaultBinary when empty).
func NewCommand(binary string, log *slog.Logger) *Command {
	if binary == "" {
		binary = DefaultBinary
	}
	if log == nil {
		log = slog.Default()
	}
	return &Command{binary: binary, log: log.With("component", "speech")}
}

// Available reports whether the synthesizer binary can be found.
func (c *Command) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// Speak starts synthesizing u. The returned channel receives exactly one
// value when the utterance ends: nil, or an *Error.
func (c *Command) Speak(u Utterance) <-chan error {
	done := make(chan error, 1)
	if err := u.Validate(); err != nil {
		done <- err
		return done
	}

	c.mu.Lock()
	if c.cmd != nil {
		c.mu.Unlock()
		done <- &Error{Code: CodeAudioBusy, Err: errors.New("utterance already in progress")}
		return done
	}

	cmd := exec.Command(c.binary, Args(u)...)
	cmd.Stdin = strings.NewReader(u.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		c.mu.Unlock()
		done <- startError(err)
		return done
	}
	exited := make(chan struct{})
	c.cmd = cmd
	c.exited = exited
	c.canceled = false
	c.mu.Unlock()

	c.log.Debug("utterance started", "pid", cmd.Process.Pid, "chars", len(u.Text), "voice", u.Voice)

	go func() {
		err := cmd.Wait()

		c.mu.Lock()
		canceled := c.canceled
		c.cmd = nil
		c.exited = nil
		c.canceled = false
		c.mu.Unlock()
		close(exited)

		switch {
		case canceled:
			done <- &Error{Code: CodeInterrupted}
		case err != nil:
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				err = fmt.Errorf("%w: %s", err, msg)
			}
			done <- &Error{Code: classifyStderr(msg), Err: err}
		default:
			done <- nil
		}
	}()
	return done
}

// Pause suspends the in-flight utterance, if any.
func (c *Command) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil {
		return nil
	}
	if err := suspend(c.cmd.Process); err != nil {
		return &Error{Code: CodeNotAllowed, Err: err}
	}
	return nil
}

// Resume continues a suspended utterance, if any.
func (c *Command) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil {
		return nil
	}
	if err := resume(c.cmd.Process); err != nil {
		return &Error{Code: CodeNotAllowed, Err: err}
	}
	return nil
}

// Cancel stops the in-flight utterance and returns once the process has
// exited, so a following Speak is accepted. Its completion reports
// CodeInterrupted.
func (c *Command) Cancel() error {
	c.mu.Lock()
	if c.cmd == nil {
		c.mu.Unlock()
		return nil
	}
	c.canceled = true
	proc, exited := c.cmd.Process, c.exited
	c.mu.Unlock()

	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill synthesizer: %w", err)
	}
	<-exited
	return nil
}

// Voices lists the synthesizer's installed voices.
func (c *Command) Voices(ctx context.Context) ([]Voice, error) {
	out, err := exec.CommandContext(ctx, c.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	return ParseVoices(out), nil
}

// Args builds the synthesizer command line for u. Text is read from stdin.
func Args(u Utterance) []string {
	var args []string
	if u.Voice != "" {
		args = append(args, "-v", u.Voice)
	}
	if u.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(int(baseWordsPerMinute*u.Rate)))
	}
	if u.Pitch > 0 {
		args = append(args, "-p", strconv.Itoa(min(int(basePitch*u.Pitch), maxPitch)))
	}
	if u.Volume > 0 {
		args = append(args, "-a", strconv.Itoa(int(baseAmplitude*u.Volume)))
	}
	return append(args, "--stdin")
}

// ParseVoices reads the table printed by `espeak-ng --voices`.
func ParseVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, Voice{
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		})
	}
	return voices
}

func startError(err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return &Error{Code: CodeSynthesisFailed, Err: fmt.Errorf("synthesizer not installed: %w", err)}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Code: CodeNotAllowed, Err: err}
	}
	return &Error{Code: CodeSynthesisFailed, Err: err}
}

func classifyStderr(msg string) Code {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "voice") && (strings.Contains(lower, "not") || strings.Contains(lower, "unknown")):
		return CodeVoiceUnavailable
	case strings.Contains(lower, "audio") && strings.Contains(lower, "busy"):
		return CodeAudioBusy
	}
	return CodeSynthesisFailed
}
