package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docspeak/internal/speech"
)

type fakeSpeaker struct {
	mu      sync.Mutex
	pending chan error
	spoken  []speech.Utterance
	pauses  int
	resumes int
	cancels int
	calls   chan string
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{calls: make(chan string, 64)}
}

func (f *fakeSpeaker) Speak(u speech.Utterance) <-chan error {
	ch := make(chan error, 1)
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.pending = ch
	f.mu.Unlock()
	f.calls <- u.Text
	return ch
}

func (f *fakeSpeaker) Pause() error {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
	return nil
}

func (f *fakeSpeaker) Resume() error {
	f.mu.Lock()
	f.resumes++
	f.mu.Unlock()
	return nil
}

func (f *fakeSpeaker) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	if f.pending != nil {
		f.pending <- &speech.Error{Code: speech.CodeInterrupted}
		f.pending = nil
	}
	return nil
}

func (f *fakeSpeaker) Voices(context.Context) ([]speech.Voice, error) {
	return []speech.Voice{{Name: "Test", Language: "en"}}, nil
}

func (f *fakeSpeaker) Available() bool { return true }

// finish completes the in-flight utterance with err.
func (f *fakeSpeaker) finish(err error) {
	f.mu.Lock()
	ch := f.pending
	f.pending = nil
	f.mu.Unlock()
	if ch != nil {
		ch <- err
	}
}

func (f *fakeSpeaker) counts() (pauses, resumes, cancels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauses, f.resumes, f.cancels
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine() (*Engine, *fakeSpeaker) {
	f := newFakeSpeaker()
	return NewEngine(f, DefaultConfig(), quietLogger()), f
}

func waitCall(t *testing.T, f *fakeSpeaker) string {
	t.Helper()
	select {
	case text := <-f.calls:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Speak")
		return ""
	}
}

func expectNoCall(t *testing.T, f *fakeSpeaker) {
	t.Helper()
	select {
	case text := <-f.calls:
		t.Fatalf("expected no utterance, got %q", text)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session to end")
		return nil
	}
}

// statesUntilIdle reads events until an Idle event arrives.
func statesUntilIdle(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case ev := <-events:
			out = append(out, ev)
			if ev.State == Idle {
				return out
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for idle, got %+v", out)
			return out
		}
	}
}

func TestStart_EmptyText(t *testing.T) {
	e, _ := newTestEngine()
	if _, err := e.Start(context.Background(), "  \n\t", Options{}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if st := e.Status().State; st != Idle {
		t.Errorf("expected idle, got %s", st)
	}
}

func TestStop_FromIdleIsNoop(t *testing.T) {
	e, f := newTestEngine()
	events, unsubscribe := e.Subscribe(4)
	defer unsubscribe()

	if err := e.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("unexpected error on second stop: %v", err)
	}
	if st := e.Status().State; st != Idle {
		t.Errorf("expected idle, got %s", st)
	}
	if _, _, cancels := f.counts(); cancels != 0 {
		t.Errorf("expected no cancel calls, got %d", cancels)
	}
	select {
	case ev := <-events:
		t.Errorf("expected no events, got %+v", ev)
	default:
	}
}

func TestStart_SpeaksChunksInOrder(t *testing.T) {
	e, f := newTestEngine()
	opts := Options{Voice: "en", Rate: 1.5, Pitch: 1, Volume: 0.8}
	done, err := e.Start(context.Background(), "One.\n\nTwo.\n\nThree.", opts)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, want := range []string{"One.", "Two.", "Three."} {
		if got := waitCall(t, f); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
		st := e.Status()
		if !st.Playing || st.State != Speaking {
			t.Errorf("expected speaking status, got %+v", st)
		}
		expectNoCall(t, f)
		f.finish(nil)
	}

	if err := waitDone(t, done); err != nil {
		t.Fatalf("expected clean completion, got %v", err)
	}
	if st := e.Status(); st.State != Idle || st.Playing {
		t.Errorf("expected idle after completion, got %+v", st)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spoken[0].Voice != "en" || f.spoken[0].Rate != 1.5 || f.spoken[0].Volume != 0.8 {
		t.Errorf("expected options on utterance, got %+v", f.spoken[0])
	}
}

func TestInterruptedErrorFinishesWithoutError(t *testing.T) {
	e, f := newTestEngine()
	events, unsubscribe := e.Subscribe(16)
	defer unsubscribe()

	done, err := e.Start(context.Background(), "Hello.\n\nWorld.", Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCall(t, f)
	f.finish(&speech.Error{Code: speech.CodeInterrupted})

	if err := waitDone(t, done); err != nil {
		t.Fatalf("expected no error for interruption, got %v", err)
	}
	evs := statesUntilIdle(t, events)
	var sawFinished bool
	for _, ev := range evs {
		if ev.State == Errored {
			t.Errorf("unexpected errored event %+v", ev)
		}
		if ev.State == Finished {
			sawFinished = true
		}
	}
	if !sawFinished {
		t.Errorf("expected finished before idle, got %+v", evs)
	}
}

func TestSpeechErrorSurfacesAndResets(t *testing.T) {
	e, f := newTestEngine()
	events, unsubscribe := e.Subscribe(16)
	defer unsubscribe()

	done, err := e.Start(context.Background(), "Hello.", Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCall(t, f)
	f.finish(&speech.Error{Code: speech.CodeSynthesisFailed})

	err = waitDone(t, done)
	var serr *SpeechError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SpeechError, got %v", err)
	}
	if serr.Code() != speech.CodeSynthesisFailed || serr.Index != 0 {
		t.Errorf("unexpected speech error %+v", serr)
	}

	evs := statesUntilIdle(t, events)
	if len(evs) < 2 || evs[len(evs)-2].State != Errored || evs[len(evs)-2].Err == nil {
		t.Errorf("expected errored event with error before idle, got %+v", evs)
	}

	done, err = e.Start(context.Background(), "Again.", Options{})
	if err != nil {
		t.Fatalf("expected engine usable after error, got %v", err)
	}
	waitCall(t, f)
	f.finish(nil)
	if err := waitDone(t, done); err != nil {
		t.Errorf("expected clean completion, got %v", err)
	}
}

func TestPauseResume(t *testing.T) {
	e, f := newTestEngine()

	if err := e.Pause(); err != nil {
		t.Fatalf("pause from idle: %v", err)
	}
	if err := e.Resume(); err != nil {
		t.Fatalf("resume from idle: %v", err)
	}
	if p, r, _ := f.counts(); p != 0 || r != 0 {
		t.Fatalf("expected idle pause/resume to be no-ops, got %d/%d", p, r)
	}

	done, err := e.Start(context.Background(), "First.\n\nSecond.", Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCall(t, f)

	if err := e.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := e.Pause(); err != nil {
		t.Fatalf("second pause: %v", err)
	}
	st := e.Status()
	if st.State != Paused || !st.Paused || !st.Playing {
		t.Errorf("expected paused status, got %+v", st)
	}
	if p, _, _ := f.counts(); p != 1 {
		t.Errorf("expected 1 pause call, got %d", p)
	}

	// The in-flight chunk ends while paused; the next one must wait.
	f.finish(nil)
	expectNoCall(t, f)

	if err := e.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := waitCall(t, f); got != "Second." {
		t.Fatalf("expected %q after resume, got %q", "Second.", got)
	}
	if _, r, _ := f.counts(); r != 1 {
		t.Errorf("expected 1 resume call, got %d", r)
	}
	f.finish(nil)
	if err := waitDone(t, done); err != nil {
		t.Errorf("expected clean completion, got %v", err)
	}
}

func TestStop_DuringPlayback(t *testing.T) {
	e, f := newTestEngine()
	done, err := e.Start(context.Background(), "One.\n\nTwo.", Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCall(t, f)

	events, unsubscribe := e.Subscribe(16)
	defer unsubscribe()

	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := waitDone(t, done); err != nil {
		t.Errorf("expected stop to complete without error, got %v", err)
	}
	st := e.Status()
	if st.State != Idle || st.Index != 0 {
		t.Errorf("expected reset idle status, got %+v", st)
	}

	// The interrupted completion of the canceled chunk must not produce
	// further transitions or utterances.
	ev := <-events
	if ev.State != Idle {
		t.Errorf("expected idle event, got %+v", ev)
	}
	expectNoCall(t, f)
	select {
	case ev := <-events:
		t.Errorf("expected no late events, got %+v", ev)
	default:
	}
}

func TestStart_ReplacesActiveSession(t *testing.T) {
	e, f := newTestEngine()
	first, err := e.Start(context.Background(), "Old text.", Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCall(t, f)

	second, err := e.Start(context.Background(), "New text.", Options{})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if err := waitDone(t, first); err != nil {
		t.Errorf("expected replaced session to end cleanly, got %v", err)
	}
	if got := waitCall(t, f); got != "New text." {
		t.Fatalf("expected new session to speak, got %q", got)
	}
	if _, _, cancels := f.counts(); cancels != 1 {
		t.Errorf("expected 1 cancel, got %d", cancels)
	}
	if st := e.Status().State; st != Speaking {
		t.Errorf("expected speaking, got %s", st)
	}

	f.finish(nil)
	if err := waitDone(t, second); err != nil {
		t.Errorf("expected clean completion, got %v", err)
	}
}

func TestStart_ParentContextCancel(t *testing.T) {
	e, f := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	done, err := e.Start(ctx, "Hello.\n\nWorld.", Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCall(t, f)
	cancel()

	if err := waitDone(t, done); err != nil {
		t.Errorf("expected nil on cancellation, got %v", err)
	}
	if st := e.Status().State; st != Idle {
		t.Errorf("expected idle, got %s", st)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	e, _ := newTestEngine()
	events, unsubscribe := e.Subscribe(1)
	unsubscribe()
	unsubscribe()
	if _, ok := <-events; ok {
		t.Error("expected closed channel")
	}
}

func TestSupportedAndVoices(t *testing.T) {
	e, _ := newTestEngine()
	if !e.Supported() {
		t.Error("expected supported")
	}
	voices, err := e.Voices(context.Background())
	if err != nil || len(voices) != 1 || voices[0].Name != "Test" {
		t.Errorf("unexpected voices %v, %v", voices, err)
	}
}

func TestStart_ReplacesRunningSynthesizer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "synth")
	body := "#!/bin/sh\nread line\ncase \"$line\" in Old*) exec sleep 5;; esac\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	e := NewEngine(speech.NewCommand(script, quietLogger()), DefaultConfig(), quietLogger())
	ctx := context.Background()

	for i := range 10 {
		old, err := e.Start(ctx, "Old text.", Options{})
		if err != nil {
			t.Fatalf("round %d: start: %v", i, err)
		}
		time.Sleep(20 * time.Millisecond)

		if i%2 == 1 {
			if err := e.Stop(); err != nil {
				t.Fatalf("round %d: stop: %v", i, err)
			}
		}
		next, err := e.Start(ctx, "New text.", Options{})
		if err != nil {
			t.Fatalf("round %d: start replacement: %v", i, err)
		}
		if err := waitDone(t, old); err != nil {
			t.Errorf("round %d: expected replaced session to end cleanly, got %v", i, err)
		}
		if err := waitDone(t, next); err != nil {
			t.Fatalf("round %d: expected replacing session to complete, got %v", i, err)
		}
	}
	if st := e.Status(); st.State != Idle {
		t.Errorf("expected idle, got %s", st.State)
	}
}
