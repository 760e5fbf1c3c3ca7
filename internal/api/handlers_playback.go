package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docspeak/internal/playback"
	"github.com/dgallion1/docspeak/internal/speech"
)

type startRequest struct {
	DocumentID  string `json:"document_id"`
	SectionID   string `json:"section_id"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`

	// Absent options take the configured defaults.
	Voice  *string  `json:"voice"`
	Rate   *float64 `json:"rate"`
	Pitch  *float64 `json:"pitch"`
	Volume *float64 `json:"volume"`
}

func (req startRequest) options(def playback.Options) playback.Options {
	opts := def
	if req.Voice != nil {
		opts.Voice = *req.Voice
	}
	if req.Rate != nil {
		opts.Rate = *req.Rate
	}
	if req.Pitch != nil {
		opts.Pitch = *req.Pitch
	}
	if req.Volume != nil {
		opts.Volume = *req.Volume
	}
	return opts
}

func (s *Server) defaultOptions() playback.Options {
	return playback.Options{
		Voice:  s.cfg.DefaultVoice,
		Rate:   s.cfg.DefaultRate,
		Pitch:  s.cfg.DefaultPitch,
		Volume: s.cfg.DefaultVolume,
	}
}

// resolveText picks what to read: raw text wins, then a section, then a
// byte range of the document content.
func (s *Server) resolveText(req startRequest) (string, int, error) {
	if req.Text != "" {
		return req.Text, 0, nil
	}
	if req.DocumentID == "" {
		return "", http.StatusBadRequest, errors.New("document_id or text is required")
	}
	doc, ok := s.library.Get(req.DocumentID)
	if !ok {
		return "", http.StatusNotFound, errors.New("document not found")
	}
	if req.SectionID != "" {
		sec, ok := doc.Section(req.SectionID)
		if !ok {
			return "", http.StatusNotFound, errors.New("section not found")
		}
		return sec.Content, 0, nil
	}
	return doc.Slice(req.StartOffset, req.EndOffset), 0, nil
}

func (s *Server) handlePlaybackStart(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Supported() {
		jsonError(w, "speech synthesis is not available", http.StatusServiceUnavailable)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	text, code, err := s.resolveText(req)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	opts := req.options(s.defaultOptions())
	if err := opts.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	done, err := s.engine.Start(s.ctx, text, opts)
	if err != nil {
		if errors.Is(err, playback.ErrEmptyText) {
			jsonError(w, "nothing to read", http.StatusBadRequest)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	status := s.engine.Status()

	go func() {
		if err := <-done; err != nil {
			s.log.Warn("playback ended with error", "generation", status.Generation, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, status)
}

func (s *Server) handlePlaybackStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handlePlaybackPause(w http.ResponseWriter, r *http.Request) {
	s.control(w, s.engine.Pause)
}

func (s *Server) handlePlaybackResume(w http.ResponseWriter, r *http.Request) {
	s.control(w, s.engine.Resume)
}

func (s *Server) handlePlaybackStop(w http.ResponseWriter, r *http.Request) {
	s.control(w, s.engine.Stop)
}

func (s *Server) control(w http.ResponseWriter, op func() error) {
	if err := op(); err != nil {
		s.log.Error("playback control failed", "error", err)
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.engine.Voices(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if voices == nil {
		voices = []speech.Voice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}
