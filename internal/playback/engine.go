// Package playback sequences text chunks through a speech capability with
// pause, resume and stop control.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docspeak/internal/chunker"
	"github.com/dgallion1/docspeak/internal/speech"
)

// Speaker is the speech capability driven by the engine. Speak must not block
// and must deliver exactly one value on the returned channel.
type Speaker interface {
	Speak(u speech.Utterance) <-chan error
	Pause() error
	Resume() error
	Cancel() error
	Voices(ctx context.Context) ([]speech.Voice, error)
	Available() bool
}

// Config controls chunking and queueing.
type Config struct {
	ChunkBudget int // characters per chunk
	QueueDepth  int // chunks buffered ahead of the speaker
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		ChunkBudget: chunker.DefaultBudget,
		QueueDepth:  8,
	}
}

// Engine owns the speech capability. At most one session is active; starting
// a new one stops the previous one first.
type Engine struct {
	speaker Speaker
	cfg     Config
	log     *slog.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	session *session
	subs    map[int]chan Event
	nextSub int
}

type session struct {
	gen    uint64
	opts   Options
	cancel context.CancelFunc
	index  int
	queued int
	total  int

	// unpaused is non-nil while paused and closed on resume.
	unpaused chan struct{}

	done chan error
	once sync.Once
}

func (s *session) finish(err error) {
	s.once.Do(func() {
		s.done <- err
		close(s.done)
	})
}

// NewEngine creates an Engine around speaker. Zero config fields take defaults.
func NewEngine(speaker Speaker, cfg Config, log *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.ChunkBudget <= 0 {
		cfg.ChunkBudget = def.ChunkBudget
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = def.QueueDepth
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		speaker: speaker,
		cfg:     cfg,
		log:     log.With("component", "playback"),
		subs:    make(map[int]chan Event),
	}
}

// Start begins speaking text. Any active session is stopped first. The
// returned channel receives one value when the session ends: nil when it
// completed or was stopped, a *SpeechError when synthesis failed.
func (e *Engine) Start(ctx context.Context, text string, opts Options) (<-chan error, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	sctx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	prev := e.session
	if prev != nil {
		if err := e.speaker.Cancel(); err != nil {
			e.log.Warn("cancel previous utterance", "error", err)
		}
		e.end(Idle, nil)
	}
	e.gen++
	s := &session{
		gen:    e.gen,
		opts:   opts,
		cancel: cancel,
		total:  -1,
		done:   make(chan error, 1),
	}
	e.session = s
	e.transition(Speaking, nil)
	e.mu.Unlock()

	if prev != nil {
		prev.finish(nil)
		e.log.Info("playback replaced", "previous", prev.gen)
	}
	e.log.Info("playback started", "generation", s.gen, "chars", len(text))

	queue := make(chan chunker.Chunk, e.cfg.QueueDepth)
	go e.produce(sctx, s, text, queue)
	go e.consume(sctx, s, queue)

	return s.done, nil
}

// produce chunks text into queue, closing it when done or canceled.
func (e *Engine) produce(ctx context.Context, s *session, text string, queue chan<- chunker.Chunk) {
	defer close(queue)
	n := 0
	for c := range chunker.Stream(text, e.cfg.ChunkBudget) {
		select {
		case queue <- c:
		case <-ctx.Done():
			return
		}
		n++
		e.mu.Lock()
		if e.current(s) {
			s.queued = n
		}
		e.mu.Unlock()
	}

	e.mu.Lock()
	if e.current(s) {
		s.total = n
	}
	e.mu.Unlock()
}

// consume submits chunks in order, waiting for each completion.
func (e *Engine) consume(ctx context.Context, s *session, queue <-chan chunker.Chunk) {
	for c := range queue {
		errc, ok := e.begin(ctx, s, c)
		if !ok {
			return
		}

		var err error
		select {
		case err = <-errc:
		case <-ctx.Done():
			e.abandon(s)
			return
		}
		if err != nil {
			e.fail(s, c.Index, err)
			return
		}
	}

	if ctx.Err() != nil {
		e.abandon(s)
		return
	}
	e.complete(s)
}

// begin submits c once the session is not paused. Submission happens under
// the lock so a concurrent Pause always sees the utterance in flight.
func (e *Engine) begin(ctx context.Context, s *session, c chunker.Chunk) (<-chan error, bool) {
	for {
		e.mu.Lock()
		if !e.current(s) {
			e.mu.Unlock()
			return nil, false
		}
		wait := s.unpaused
		if wait == nil {
			s.index = c.Index
			e.emit(Event{State: e.state, Index: c.Index, Total: s.total, Text: c.Text})
			errc := e.speaker.Speak(s.opts.utterance(c.Text))
			e.mu.Unlock()
			return errc, true
		}
		e.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			e.abandon(s)
			return nil, false
		}
	}
}

func (e *Engine) complete(s *session) {
	e.mu.Lock()
	if !e.current(s) {
		e.mu.Unlock()
		return
	}
	e.log.Info("playback finished", "generation", s.gen, "chunks", s.total)
	e.end(Finished, nil)
	e.mu.Unlock()
	s.finish(nil)
}

func (e *Engine) fail(s *session, index int, err error) {
	e.mu.Lock()
	if !e.current(s) {
		e.mu.Unlock()
		return
	}
	if speech.IsCancellation(err) {
		e.log.Info("playback interrupted", "generation", s.gen, "chunk", index)
		e.end(Finished, nil)
		e.mu.Unlock()
		s.finish(nil)
		return
	}

	serr := &SpeechError{Index: index, Err: err}
	e.log.Error("speech synthesis failed", "generation", s.gen, "chunk", index, "error", err)
	e.end(Errored, serr)
	e.mu.Unlock()
	s.finish(serr)
}

// abandon ends a session whose context was canceled by the caller.
func (e *Engine) abandon(s *session) {
	e.mu.Lock()
	if !e.current(s) {
		e.mu.Unlock()
		return
	}
	if err := e.speaker.Cancel(); err != nil {
		e.log.Warn("cancel utterance", "error", err)
	}
	e.end(Idle, nil)
	e.mu.Unlock()
	s.finish(nil)
}

// end passes through the terminal state to Idle and drops the session.
// Callers hold e.mu.
func (e *Engine) end(terminal State, err error) {
	s := e.session
	e.session = nil
	e.gen++
	s.cancel()
	if terminal != Idle {
		e.transition(terminal, err)
	}
	e.transition(Idle, nil)
}

// Pause suspends the in-flight utterance. It is a no-op unless speaking.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Speaking || e.session == nil {
		return nil
	}
	if err := e.speaker.Pause(); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	e.session.unpaused = make(chan struct{})
	e.transition(Paused, nil)
	return nil
}

// Resume continues a paused session. It is a no-op unless paused.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Paused || e.session == nil {
		return nil
	}
	if err := e.speaker.Resume(); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	close(e.session.unpaused)
	e.session.unpaused = nil
	e.transition(Speaking, nil)
	return nil
}

// Stop cancels the active session and returns to Idle. Calling it with no
// active session does nothing.
func (e *Engine) Stop() error {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return nil
	}
	err := e.speaker.Cancel()
	e.end(Idle, nil)
	e.mu.Unlock()

	s.finish(nil)
	e.log.Info("playback stopped", "generation", s.gen)
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		State:      e.state,
		Playing:    e.state == Speaking || e.state == Paused,
		Paused:     e.state == Paused,
		Generation: e.gen,
	}
	if s := e.session; s != nil {
		st.Index = s.index
		st.Queued = s.queued
		st.Total = s.total
		st.Options = s.opts
	}
	return st
}

// Supported reports whether the speech capability is usable.
func (e *Engine) Supported() bool { return e.speaker.Available() }

// Voices lists the voices of the speech capability.
func (e *Engine) Voices(ctx context.Context) ([]speech.Voice, error) {
	voices, err := e.speaker.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("voices: %w", err)
	}
	return voices, nil
}

// Subscribe registers an observer. Events are delivered in order without
// blocking the engine; a subscriber whose buffer is full misses events.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			close(ch)
		})
	}
}

func (e *Engine) current(s *session) bool {
	return e.session == s && s.gen == e.gen
}

// transition sets the state and notifies subscribers. Callers hold e.mu.
func (e *Engine) transition(st State, err error) {
	e.state = st
	ev := Event{State: st, Total: -1, Err: err}
	if s := e.session; s != nil {
		ev.Index = s.index
		ev.Total = s.total
	}
	e.emit(ev)
}

// emit delivers ev to every subscriber that has room. Callers hold e.mu.
func (e *Engine) emit(ev Event) {
	ev.At = time.Now()
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.log.Debug("dropping event for slow subscriber", "subscriber", id, "state", ev.State)
		}
	}
}
