package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/library"
	"breslov-ai/internal/llm"
	"breslov-ai/internal/rag"
	"breslov-ai/internal/service"
	"breslov-ai/internal/speech"
	"breslov-ai/internal/storage"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps domain errors to HTTP status codes. Client errors keep
// their message; server errors get defaultMsg.
func statusForError(err error, defaultMsg string) (int, string) {
	var validationErr *service.ValidationError
	var statusErr *llm.StatusError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, rag.ErrEmptyQuery),
		errors.Is(err, rag.ErrInvalidStrategy),
		errors.Is(err, rag.ErrUnsupportedLanguage),
		errors.Is(err, speech.ErrEmptyText),
		errors.Is(err, speech.ErrUnsupportedLanguage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, rag.ErrScopeNotFound),
		errors.Is(err, library.ErrDocumentNotFound),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, "External service error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, defaultMsg
	}
}

// handleError logs err and writes the mapped error response.
func handleError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	status, msg := statusForError(err, defaultMsg)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "error", err)
	} else {
		logger.WarnContext(ctx, "request rejected", "status", status, "error", err)
	}
	writeError(w, status, msg)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// writeJSON writes v with status 200.
func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
