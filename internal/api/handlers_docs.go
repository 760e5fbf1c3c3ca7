package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docspeak/internal/document"
	"github.com/dgallion1/docspeak/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.library.List()})
}

// lookup resolves the {docID} URL parameter, writing a 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*document.Document, bool) {
	doc, ok := s.library.Get(chi.URLParam(r, "docID"))
	if !ok {
		jsonError(w, "document not found", http.StatusNotFound)
	}
	return doc, ok
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if doc, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, doc)
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !s.library.Delete(chi.URLParam(r, "docID")) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTOC(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":       doc.ID,
		"table_of_contents": doc.TableOfContents,
	})
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sec, ok := doc.Section(chi.URLParam(r, "sectionID"))
	if !ok {
		jsonError(w, "section not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.library.Progress(chi.URLParam(r, "docID"))
	if err != nil {
		progressError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position *int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Position == nil {
		jsonError(w, "position is required", http.StatusBadRequest)
		return
	}
	p, err := s.library.SetProgress(chi.URLParam(r, "docID"), *req.Position)
	if err != nil {
		progressError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func progressError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrNotFound) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}
