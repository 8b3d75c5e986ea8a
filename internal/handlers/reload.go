package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/indexer"
)

// LibraryLoader reloads the library from disk.
type LibraryLoader interface {
	LoadAll(ctx context.Context) (*indexer.LoadReport, error)
}

// ReloadHandler handles HTTP requests for reloading the library.
type ReloadHandler struct {
	loader LibraryLoader
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(loader LibraryLoader) *ReloadHandler {
	return &ReloadHandler{loader: loader}
}

// ReloadResponse represents the response from the reload endpoint.
//
// swagger:model ReloadResponse
type ReloadResponse struct {
	Message string              `json:"message"`
	Status  string              `json:"status"`
	Report  *indexer.LoadReport `json:"report,omitempty"`
}

// ServeHTTP handles POST /api/v1/reload.
//
// swagger:route POST /api/v1/reload reloadLibrary
//
// # Reload the library
//
// Re-reads every book of the catalog and every new file of the library
// directory. Unchanged books are not persisted again. Runs in the background
// unless `wait=true` is given, in which case the load report is returned.
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/ReloadResponse"
//	'202':
//	  schema:
//	    "$ref": "#/definitions/ReloadResponse"
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		logger.InfoContext(ctx, "library reload triggered via API")
		report, err := h.loader.LoadAll(ctx)
		if err != nil {
			handleError(ctx, w, err, "Failed to reload library")
			return
		}
		writeJSON(ctx, w, ReloadResponse{Message: "Library reloaded.", Status: "completed", Report: report})
		return
	}

	logger.InfoContext(ctx, "background library reload triggered via API")

	// Use background context so loading continues after HTTP request completes
	go func() {
		loadCtx := contextutil.WithLogger(context.Background(), logger)
		report, err := h.loader.LoadAll(loadCtx)
		if err != nil {
			logger.ErrorContext(loadCtx, "library reload failed", "error", err)
			return
		}
		logger.InfoContext(loadCtx, "library reload completed", "loaded", report.Loaded, "chunks", report.Chunks, "failed", len(report.Failed))
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(ReloadResponse{
		Message: "Reload started. Check server logs for progress.",
		Status:  "accepted",
	})
}
