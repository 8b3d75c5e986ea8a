package library

import (
	"errors"
	"sort"
	"sync"
	"unicode/utf8"
)

// ErrDocumentNotFound is returned when a document id is not loaded.
var ErrDocumentNotFound = errors.New("document not found")

type entry struct {
	doc    *Document
	chunks []Chunk
	byID   map[string]int
}

// Registry is the process-wide set of loaded documents and their chunks.
// Documents are published and removed as a whole, so readers never observe a
// partially chunked document.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	generation uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Put publishes doc with its chunks, replacing any previous version.
func (r *Registry) Put(doc *Document, chunks []Chunk) {
	e := &entry{
		doc:    doc,
		chunks: append([]Chunk(nil), chunks...),
		byID:   make(map[string]int, len(chunks)),
	}
	for i, c := range e.chunks {
		e.byID[c.ID] = i
	}

	r.mu.Lock()
	r.entries[doc.ID] = e
	r.generation++
	r.mu.Unlock()
}

// Remove unloads a document. It reports whether the document was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	r.generation++
	return true
}

// Generation changes every time a document is published or removed.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Len returns the number of loaded documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Has reports whether id is loaded.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Document returns a loaded document by id.
func (r *Registry) Document(id string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return e.doc, nil
}

// Documents returns every loaded document ordered by id.
func (r *Registry) Documents() []*Document {
	r.mu.RLock()
	docs := make([]*Document, 0, len(r.entries))
	for _, e := range r.entries {
		docs = append(docs, e.doc)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// IDs returns the ids of every loaded document, sorted.
func (r *Registry) IDs() []string {
	docs := r.Documents()
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

// Chunks returns the chunk snapshot of one document. The returned slice is
// shared and must not be modified.
func (r *Registry) Chunks(id string) ([]Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return e.chunks, nil
}

// ChunkByID finds a chunk and its owning document.
func (r *Registry) ChunkByID(chunkID string) (*Chunk, *Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if i, ok := e.byID[chunkID]; ok {
			c := e.chunks[i]
			return &c, e.doc, nil
		}
	}
	return nil, nil, ErrDocumentNotFound
}

// Stats returns line, chunk and character counts for a document.
func (r *Registry) Stats(id string) (DocumentStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return DocumentStats{}, ErrDocumentNotFound
	}
	return DocumentStats{
		Lines:      len(e.doc.Lines),
		Chunks:     len(e.chunks),
		Characters: utf8.RuneCountInString(e.doc.Text),
	}, nil
}
