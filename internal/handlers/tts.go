package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/speech"
	"breslov-ai/internal/storage"
)

// SpeechSynthesizer turns text into an audio reference and serves stored audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, language string) (*speech.AudioRef, error)
	Audio(ctx context.Context, id string) (*storage.AudioRecord, error)
}

// TTSHandler handles text-to-speech requests.
type TTSHandler struct {
	synthesizer     SpeechSynthesizer
	defaultLanguage string
}

// NewTTSHandler creates a new TTSHandler.
func NewTTSHandler(synthesizer SpeechSynthesizer, defaultLanguage string) *TTSHandler {
	return &TTSHandler{synthesizer: synthesizer, defaultLanguage: defaultLanguage}
}

// TTSRequest represents the HTTP request payload for speech synthesis.
//
// swagger:model TTSRequest
type TTSRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Synthesize handles POST /api/v1/tts.
//
// swagger:route POST /api/v1/tts synthesizeSpeech
//
// # Text to speech
//
// Returns where to get audio for the text: a server URL when synthesis
// succeeded, or a browser voice to use client-side.
//
// responses:
//
//	'200':
//	  description: Audio reference
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Language == "" {
		req.Language = h.defaultLanguage
	}

	ref, err := h.synthesizer.Synthesize(ctx, req.Text, req.Language)
	if err != nil {
		handleError(ctx, w, err, "Failed to synthesize speech")
		return
	}
	writeJSON(ctx, w, ref)
}

// Audio handles GET /api/v1/tts/audio/{audioID}.
//
// swagger:route GET /api/v1/tts/audio/{audioID} getAudio
//
// produces:
// - audio/mpeg
// responses:
//
//	'200':
//	  description: Audio bytes
//	'404':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *TTSHandler) Audio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	rec, err := h.synthesizer.Audio(ctx, chi.URLParam(r, "audioID"))
	if err != nil {
		handleError(ctx, w, err, "Failed to load audio")
		return
	}

	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.Audio)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(rec.Audio); err != nil {
		logger.WarnContext(ctx, "failed to write audio", "error", err)
	}
}
