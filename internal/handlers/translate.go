package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/service"
)

// TranslateHandler handles chunk translation requests.
type TranslateHandler struct {
	translationService service.TranslationService
}

// NewTranslateHandler creates a new TranslateHandler.
func NewTranslateHandler(translationService service.TranslationService) *TranslateHandler {
	return &TranslateHandler{translationService: translationService}
}

// TranslateRequest represents the HTTP request payload for translation.
//
// swagger:model TranslateRequest
type TranslateRequest struct {
	Language string `json:"language"`
}

// TranslateResponse represents the HTTP response payload for translation.
//
// swagger:model TranslateResponse
type TranslateResponse struct {
	ChunkID  string `json:"chunk_id"`
	Language string `json:"language"`
	Text     string `json:"text"`
	// Translated is false when the original text is returned.
	Translated bool `json:"translated"`
	FromCache  bool `json:"from_cache"`
}

// ServeHTTP handles POST /api/v1/chunks/{chunkID}/translate.
//
// swagger:route POST /api/v1/chunks/{chunkID}/translate translateChunk
//
// # Translate a chunk
//
// Returns the chunk in the requested language. A chunk already in that script
// is returned unchanged, and so is one whose translation failed.
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/TranslateResponse"
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *TranslateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.translationService.Translate(ctx, service.TranslateRequest{
		ChunkID:  chi.URLParam(r, "chunkID"),
		Language: req.Language,
	})
	if err != nil {
		handleError(ctx, w, err, "Failed to translate chunk")
		return
	}

	writeJSON(ctx, w, TranslateResponse{
		ChunkID:    resp.ChunkID,
		Language:   resp.Language,
		Text:       resp.Text,
		Translated: resp.Translated,
		FromCache:  resp.FromCache,
	})
}
