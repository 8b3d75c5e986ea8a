package handlers

import (
	"net/http"
	"strings"

	"breslov-ai/internal/storage"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// SearchHandler runs plain substring search over the persisted chunks.
type SearchHandler struct {
	chunkStore storage.ChunkStore
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(chunkStore storage.ChunkStore) *SearchHandler {
	return &SearchHandler{chunkStore: chunkStore}
}

// SearchHit is one search result.
//
// swagger:model SearchHit
type SearchHit struct {
	ChunkID string  `json:"chunk_id"`
	BookID  string  `json:"book_id"`
	Book    string  `json:"book"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResponse lists search results, best first.
//
// swagger:model SearchResponse
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// ServeHTTP handles GET /api/v1/search?q=&limit=.
//
// swagger:route GET /api/v1/search searchChunks
//
// # Substring search
//
// Case-insensitive match over chunk content, keywords and book titles. Content
// matches rank above title matches.
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/SearchResponse"
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := intParam(r, "limit", defaultSearchLimit)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxSearchLimit)

	hits, err := h.chunkStore.Search(ctx, q, limit)
	if err != nil {
		handleError(ctx, w, err, "Failed to search")
		return
	}

	resp := SearchResponse{Query: q, Results: make([]SearchHit, 0, len(hits))}
	for _, hit := range hits {
		resp.Results = append(resp.Results, SearchHit{
			ChunkID: hit.Chunk.ID,
			BookID:  hit.Chunk.BookID,
			Book:    hit.BookTitle,
			Content: hit.Chunk.Content,
			Score:   hit.Score,
		})
	}
	writeJSON(ctx, w, resp)
}
