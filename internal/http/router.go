package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"breslov-ai/internal/handlers"
	"breslov-ai/internal/indexer"
	"breslov-ai/internal/library"
	"breslov-ai/internal/metrics"
	"breslov-ai/internal/rag"
	"breslov-ai/internal/service"
	"breslov-ai/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RAGEngine          rag.Engine
	Registry           *library.Registry
	ChunkOptions       indexer.ChunkOptions
	ChunkStore         storage.ChunkStore
	TranslationService service.TranslationService
	Synthesizer        handlers.SpeechSynthesizer
	Loader             handlers.LibraryLoader
	DB                 handlers.Pinger
	Metrics            *metrics.Metrics
	DefaultLanguage    string
	IndexHTML          string // Embedded HTML content
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics(deps.Metrics))

	// Add CORS middleware
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.RAGEngine, deps.Registry, deps.ChunkOptions)
	retrieveHandler := handlers.NewRetrieveHandler(deps.RAGEngine)
	booksHandler := handlers.NewBooksHandler(deps.Registry, deps.DefaultLanguage)
	searchHandler := handlers.NewSearchHandler(deps.ChunkStore)
	translateHandler := handlers.NewTranslateHandler(deps.TranslationService)
	ttsHandler := handlers.NewTTSHandler(deps.Synthesizer, deps.DefaultLanguage)
	reloadHandler := handlers.NewReloadHandler(deps.Loader)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Registry)
	viewHandler := handlers.NewBookViewHandler(deps.Registry, deps.DefaultLanguage)

	r.Method(http.MethodGet, "/api/health", healthHandler)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Register API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodPost, "/retrieve", retrieveHandler)
		r.Get("/books", booksHandler.List)
		r.Get("/books/{bookID}", booksHandler.Get)
		r.Get("/books/{bookID}/chunks", booksHandler.Chunks)
		r.Method(http.MethodGet, "/search", searchHandler)
		r.Method(http.MethodPost, "/chunks/{chunkID}/translate", translateHandler)
		r.Post("/tts", ttsHandler.Synthesize)
		r.Get("/tts/audio/{audioID}", ttsHandler.Audio)
		r.Method(http.MethodPost, "/reload", reloadHandler)
	})

	r.Method(http.MethodGet, "/books/{bookID}", viewHandler)

	// Serve HTML page at root
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(deps.IndexHTML))
	})

	return r
}
