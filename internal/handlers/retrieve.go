package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/rag"
)

// RetrieveHandler handles HTTP requests for ranked passages.
type RetrieveHandler struct {
	ragEngine rag.Engine
}

// NewRetrieveHandler creates a new RetrieveHandler.
func NewRetrieveHandler(ragEngine rag.Engine) *RetrieveHandler {
	return &RetrieveHandler{ragEngine: ragEngine}
}

// RetrieveRequest represents the HTTP request payload for retrieval.
//
// swagger:model RetrieveRequest
type RetrieveRequest struct {
	Query      string   `json:"query"`
	Books      []string `json:"books,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	MinScore   float64  `json:"min_score,omitempty"`
	Language   string   `json:"language,omitempty"`
	// Fallback returns the opening chunks of every book when nothing matches
	// an unscoped query.
	Fallback bool `json:"fallback,omitempty"`
}

// RetrieveResponse represents the HTTP response payload for retrieval.
//
// swagger:model RetrieveResponse
type RetrieveResponse struct {
	Passages  []rag.Passage `json:"passages"`
	FromCache bool          `json:"from_cache"`
	CachedAt  time.Time     `json:"cached_at"`
	Fallback  bool          `json:"fallback,omitempty"`
}

// ServeHTTP handles HTTP requests for retrieval.
//
// swagger:route POST /api/v1/retrieve retrievePassages
//
// # Retrieve ranked passages
//
// Scores every chunk of the requested books against the query and returns the
// best ones, highest score first. No match is an empty list.
//
// responses:
//
//	'200':
//	  description: Ranked passages
//	  schema:
//	    "$ref": "#/definitions/RetrieveResponse"
//	'400':
//	  description: Empty query or unsupported language
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Unknown book in scope
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *RetrieveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.MaxResults < 0 || req.MaxResults > rag.MaxResultsLimit {
		writeError(w, http.StatusBadRequest, "max_results must be between 0 and 50")
		return
	}

	result, err := h.ragEngine.Retrieve(ctx, rag.RetrieveRequest{
		Query:      req.Query,
		Books:      req.Books,
		MaxResults: req.MaxResults,
		MinScore:   req.MinScore,
		Language:   req.Language,
		Fallback:   req.Fallback,
	})
	if err != nil {
		handleError(ctx, w, err, "Failed to retrieve passages")
		return
	}

	passages := result.Passages
	if passages == nil {
		passages = []rag.Passage{}
	}
	writeJSON(ctx, w, RetrieveResponse{
		Passages:  passages,
		FromCache: result.FromCache,
		CachedAt:  result.CachedAt,
		Fallback:  result.Fallback,
	})
}
