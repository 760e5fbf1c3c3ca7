package pipeline

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/docspeak/internal/document"
)

// ErrNotFound is returned for unknown document ids.
var ErrNotFound = errors.New("document not found")

// Library is a thread-safe in-memory registry of ingested documents and their
// reading progress.
type Library struct {
	mu       sync.RWMutex
	docs     map[string]*document.Document
	byHash   map[string]string
	hashes   map[string]string
	progress map[string]document.ReadingProgress
}

func NewLibrary() *Library {
	return &Library{
		docs:     make(map[string]*document.Document),
		byHash:   make(map[string]string),
		hashes:   make(map[string]string),
		progress: make(map[string]document.ReadingProgress),
	}
}

// Summary is the list view of a document.
type Summary struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Type     document.Type     `json:"type"`
	Metadata document.Metadata `json:"metadata"`
	Sections int               `json:"sections"`
}

// PutIfAbsent stores doc unless a document with the same content hash is
// already present, in which case it returns that document's id. The check and
// the insert happen under one lock.
func (l *Library) PutIfAbsent(doc *document.Document, hash string) (existingID string, stored bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hash != "" {
		if id, ok := l.byHash[hash]; ok {
			return id, false
		}
		l.byHash[hash] = doc.ID
		l.hashes[doc.ID] = hash
	}
	l.docs[doc.ID] = doc
	return "", true
}

// Get returns a document by id.
func (l *Library) Get(id string) (*document.Document, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.docs[id]
	return doc, ok
}

// FindByHash returns the id of a stored document with the same content hash.
func (l *Library) FindByHash(hash string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byHash[hash]
	return id, ok
}

// List returns summaries ordered by creation time, newest first.
func (l *Library) List() []Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Summary, 0, len(l.docs))
	for _, d := range l.docs {
		out = append(out, Summary{
			ID:       d.ID,
			Title:    d.Title,
			Type:     d.Type,
			Metadata: d.Metadata,
			Sections: len(d.Sections),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Metadata.CreatedAt.Equal(out[j].Metadata.CreatedAt) {
			return out[i].Metadata.CreatedAt.After(out[j].Metadata.CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete removes a document and its progress.
func (l *Library) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.docs[id]; !ok {
		return false
	}
	delete(l.docs, id)
	delete(l.progress, id)
	if h, ok := l.hashes[id]; ok {
		delete(l.byHash, h)
		delete(l.hashes, id)
	}
	return true
}

// SetProgress records the reader's byte position in a document. Position is
// clamped to the content length.
func (l *Library) SetProgress(id string, position int) (document.ReadingProgress, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.docs[id]
	if !ok {
		return document.ReadingProgress{}, ErrNotFound
	}
	position = max(0, min(position, len(doc.Content)))

	var pct float64
	if len(doc.Content) > 0 {
		pct = float64(position) / float64(len(doc.Content)) * 100
	}
	p := document.ReadingProgress{
		DocumentID: id,
		Position:   position,
		Percentage: pct,
		LastRead:   time.Now().UTC(),
	}
	l.progress[id] = p
	return p, nil
}

// Progress returns the recorded progress. A document never read reports zero.
func (l *Library) Progress(id string) (document.ReadingProgress, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.docs[id]; !ok {
		return document.ReadingProgress{}, ErrNotFound
	}
	if p, ok := l.progress[id]; ok {
		return p, nil
	}
	return document.ReadingProgress{DocumentID: id}, nil
}

// Len returns the number of stored documents.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}
