package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/indexer"
	"breslov-ai/internal/library"
	"breslov-ai/internal/rag"
)

// AskHandler handles HTTP requests for questions about the library.
type AskHandler struct {
	ragEngine    rag.Engine
	registry     *library.Registry
	chunkOptions indexer.ChunkOptions
}

// NewAskHandler creates a new AskHandler. registry is only used for corpus
// statistics in debug mode and may be nil.
func NewAskHandler(ragEngine rag.Engine, registry *library.Registry, chunkOptions indexer.ChunkOptions) *AskHandler {
	return &AskHandler{
		ragEngine:    ragEngine,
		registry:     registry,
		chunkOptions: chunkOptions,
	}
}

// AskRequest represents the HTTP request payload for questions.
// This mirrors the rag.AskRequest but is defined here for HTTP layer separation.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string   `json:"question"`
	Books    []string `json:"books,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
	Language string   `json:"language,omitempty"`
}

// AskResponse represents the HTTP response payload for questions.
// This mirrors the rag.AskResponse but is defined here for HTTP layer separation.
//
// swagger:model AskResponse
type AskResponse struct {
	// The validated answer
	Answer string `json:"answer"`

	// Passages the answer was built from
	Sources []SourceResponse `json:"sources"`

	// Strategy used: force_retrieval, try_then_fallback or general
	Strategy string `json:"strategy"`

	// Grounded is true when the answer is built from retrieved passages.
	Grounded bool `json:"grounded"`

	// Abstained indicates whether the system declined to answer.
	Abstained bool `json:"abstained,omitempty"`

	// AbstainReason is one of no_passage_found, generation_failed, model_abstained or ungrounded.
	AbstainReason string `json:"abstain_reason,omitempty"`

	// Language of the answer
	Language string `json:"language"`

	// Debug contains debug information when debug mode is enabled (via ?debug=true query parameter).
	Debug *DebugInfo `json:"debug,omitempty"`
}

// SourceResponse represents a cited passage in the HTTP response.
//
// swagger:model SourceResponse
type SourceResponse struct {
	// Display title of the book
	Book string `json:"book"`

	// Book identifier
	BookID string `json:"book_id"`

	// Chunk identifier, usable with the translate endpoint
	ChunkID string `json:"chunk_id"`

	// Line range within the book, 1-based (e.g. "26-50")
	Section string `json:"section"`

	// Citation string used in the answer (e.g. "Chayei Moharan, 26-50")
	Reference string `json:"reference"`
}

// DebugInfo contains debug information when debug mode is enabled.
//
// swagger:model DebugInfo
type DebugInfo struct {
	// Classified is the strategy chosen by the router before any override.
	Classified string `json:"classified"`
	// Template is the prompt template used: strict, fallback or none.
	Template string `json:"template"`
	// MinScore and MaxResults are the retrieval parameters used.
	MinScore   float64 `json:"min_score"`
	MaxResults int     `json:"max_results"`
	// FromCache reports whether the passages came from the retrieval cache.
	FromCache bool `json:"from_cache"`
	// PromptChars is the length of the assembled prompt.
	PromptChars int `json:"prompt_chars"`
	// RetrievedChunks contains all retrieved chunks with scores and ranks.
	RetrievedChunks []DebugRetrievedChunk `json:"retrieved_chunks"`
	// Latency contains timing breakdown for each phase of the pipeline.
	Latency *LatencyBreakdown `json:"latency,omitempty"`
	// Corpus contains statistics about the loaded library.
	Corpus *indexer.CorpusStats `json:"corpus,omitempty"`
}

// LatencyBreakdown contains timing information for each phase of the pipeline.
//
// swagger:model LatencyBreakdown
type LatencyBreakdown struct {
	// RetrievalMs is the time spent scoring and ranking chunks (milliseconds).
	RetrievalMs int64 `json:"retrieval_ms"`
	// GenerationMs is the time spent in LLM generation (milliseconds).
	GenerationMs int64 `json:"generation_ms"`
	// TotalMs is the total time for the query (milliseconds).
	TotalMs int64 `json:"total_ms"`
}

// DebugRetrievedChunk represents a retrieved chunk with scoring information.
//
// swagger:model DebugRetrievedChunk
type DebugRetrievedChunk struct {
	// ChunkID is the stable chunk identifier.
	ChunkID string `json:"chunk_id"`
	// BookID is the book the chunk belongs to.
	BookID string `json:"book_id"`
	// Reference is the citation string of the chunk.
	Reference string `json:"reference"`
	// Score is the lexical relevance score.
	Score float64 `json:"score"`
	// Text is the chunk text (full or truncated).
	Text string `json:"text"`
	// Rank is the rank of this chunk in the retrieval results (1-based).
	Rank int `json:"rank"`
}

// ServeHTTP handles HTTP requests for questions.
//
// Ask a question about the Breslov library and get an answer grounded in its passages.
//
// swagger:route POST /api/v1/ask askQuestion
//
// # Ask a question
//
// Routes the question to a strategy, retrieves passages from the requested books
// (all books when none are given) and returns a validated answer with its sources.
// Refusals and generation failures are reported in the body, not as errors.
//
// Use the `debug=true` query parameter to include retrieved chunks with scores
// and a latency breakdown in the response.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/AskRequest"
//   - in: query
//     name: debug
//     type: boolean
//     description: Enable debug mode to include detailed retrieval information
//     required: false
//
// responses:
//
//	'200':
//	  description: Answer with sources
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Bad request (empty question, unknown strategy or language)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Unknown book in scope
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	ragResp, err := h.ragEngine.Ask(ctx, rag.AskRequest{
		Question: req.Question,
		Books:    req.Books,
		Strategy: req.Strategy,
		Language: req.Language,
		Debug:    debugRequested(r),
	})
	if err != nil {
		handleError(ctx, w, err, "Failed to answer question")
		return
	}

	sources := make([]SourceResponse, len(ragResp.Sources))
	for i, src := range ragResp.Sources {
		sources[i] = SourceResponse{
			Book:      src.Book,
			BookID:    src.BookID,
			ChunkID:   src.ChunkID,
			Section:   src.Section,
			Reference: src.Reference,
		}
	}

	resp := AskResponse{
		Answer:        ragResp.Answer,
		Sources:       sources,
		Strategy:      string(ragResp.Strategy),
		Grounded:      ragResp.Grounded,
		Abstained:     ragResp.Abstained,
		AbstainReason: ragResp.AbstainReason,
		Language:      ragResp.Language,
	}

	if d := ragResp.Debug; d != nil {
		chunks := make([]DebugRetrievedChunk, 0, len(d.RetrievedChunks))
		for _, c := range d.RetrievedChunks {
			chunks = append(chunks, DebugRetrievedChunk{
				ChunkID:   c.ChunkID,
				BookID:    c.BookID,
				Reference: c.Reference,
				Score:     c.Score,
				Text:      c.Text,
				Rank:      c.Rank,
			})
		}

		var corpus *indexer.CorpusStats
		if h.registry != nil {
			stats := indexer.ComputeCorpusStats(h.registry, h.chunkOptions)
			corpus = &stats
		}

		resp.Debug = &DebugInfo{
			Classified:      string(d.Classified),
			Template:        d.Template,
			MinScore:        d.MinScore,
			MaxResults:      d.MaxResults,
			FromCache:       d.FromCache,
			PromptChars:     d.PromptChars,
			RetrievedChunks: chunks,
			Latency: &LatencyBreakdown{
				RetrievalMs:  d.RetrievalMS,
				GenerationMs: d.GenerationMS,
				TotalMs:      d.TotalMS,
			},
			Corpus: corpus,
		}
	}

	writeJSON(ctx, w, resp)
}

// debugRequested parses the debug query parameter.
func debugRequested(r *http.Request) bool {
	debugParam := r.URL.Query().Get("debug")
	return strings.ToLower(debugParam) == "true" || debugParam == "1"
}
