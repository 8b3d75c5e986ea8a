// Package app wires configuration, storage, the library and the answering
// engine together for the API server and the command-line tool.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"breslov-ai/internal/cache"
	"breslov-ai/internal/config"
	apihttp "breslov-ai/internal/http"
	"breslov-ai/internal/indexer"
	"breslov-ai/internal/library"
	"breslov-ai/internal/llm"
	"breslov-ai/internal/metrics"
	"breslov-ai/internal/rag"
	"breslov-ai/internal/service"
	"breslov-ai/internal/speech"
	"breslov-ai/internal/storage"
)

// Cache sizes bound memory when many distinct queries arrive within a TTL.
const (
	retrievalCacheEntries   = 1024
	translationCacheEntries = 2048
)

// App holds the long-lived components.
type App struct {
	Config       *config.Config
	Library      *config.LibraryConfig
	DB           *sql.DB
	Metrics      *metrics.Metrics
	Registry     *library.Registry
	ChunkOptions indexer.ChunkOptions
	Pipeline     *indexer.Pipeline
	ChunkRepo    *storage.ChunkRepo
	LLMClient    *llm.Client
	Engine       rag.Engine
	Translation  service.TranslationService
	Synthesizer  *speech.Synthesizer
}

// New opens the database, runs migrations and builds every component. The
// library is not loaded yet; call Load.
func New(cfg *config.Config) (*App, error) {
	lib, err := config.LoadLibrary(cfg.LibraryConfig)
	if err != nil {
		return nil, err
	}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	m := metrics.New()
	registry := library.NewRegistry()

	opts := indexer.ChunkOptions{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap, MinContent: cfg.ChunkMinContent}
	chunker, err := indexer.NewLineChunker(opts, lib.Vocabulary)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	bookRepo := storage.NewBookRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	translationRepo := storage.NewTranslationRepo(db)
	audioRepo := storage.NewAudioRepo(db)

	pipeline := indexer.NewPipeline(cfg.LibraryDir, lib.Books, chunker, registry, bookRepo, chunkRepo, m)

	// Generation and speech share one limiter: they usually hit the same provider.
	limiter := llm.NewRateLimiter(cfg.LLMRequestsPerSecond, 1)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName,
		llm.WithRateLimiter(limiter),
		llm.WithMaxRetries(cfg.LLMMaxRetries),
		llm.WithMetrics(m),
	)

	scorer := rag.NewScorer(lib.Weights, lib.Associations)
	retrievalCache := cache.New[rag.Result](cfg.RetrievalCacheTTL, cache.WithMaxEntries(retrievalCacheEntries))
	retriever := rag.NewRetriever(registry, scorer, retrievalCache, rag.RetrieverOptions{
		MaxResults:    cfg.MaxResults,
		LeadingChunks: cfg.FallbackLeadingChunks,
		Language:      cfg.DefaultLanguage,
	}, m)
	engine := rag.NewEngine(retriever, rag.NewRouter(lib.RoutingHints), llmClient, rag.Config{
		ForceMinScore:     cfg.ForceMinScore,
		TryMinScore:       cfg.TryMinScore,
		GeneralMinScore:   cfg.GeneralMinScore,
		MaxResults:        cfg.MaxResults,
		GeneralMaxResults: cfg.GeneralMaxResults,
		DefaultLanguage:   cfg.DefaultLanguage,
		Temperature:       cfg.LLMTemperature,
		MaxTokens:         cfg.LLMMaxTokens,
	}, m)
	slog.Info("RAG engine initialized", "books", len(lib.Books), "vocabulary", len(lib.Vocabulary))

	translationCache := cache.New[string](cfg.TranslationCacheTTL, cache.WithMaxEntries(translationCacheEntries))
	translation := service.NewTranslationService(registry, translationRepo, llmClient, translationCache, m)

	var provider speech.Provider
	if cfg.TTSBaseURL != "" {
		provider = speech.NewClient(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSModel, limiter, m)
		slog.Info("Speech provider configured", "base_url", cfg.TTSBaseURL, "model", cfg.TTSModel)
	}
	synthesizer := speech.NewSynthesizer(provider, audioRepo, "/api/v1/tts/audio", m)

	return &App{
		Config:       cfg,
		Library:      lib,
		DB:           db,
		Metrics:      m,
		Registry:     registry,
		ChunkOptions: opts,
		Pipeline:     pipeline,
		ChunkRepo:    chunkRepo,
		LLMClient:    llmClient,
		Engine:       engine,
		Translation:  translation,
		Synthesizer:  synthesizer,
	}, nil
}

// Load loads every book of the library into the registry.
func (a *App) Load(ctx context.Context) (*indexer.LoadReport, error) {
	report, err := a.Pipeline.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	return report, nil
}

// Watch reloads books as their files change until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	w, err := indexer.NewWatcher(a.Pipeline, indexer.DefaultDebounce)
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()
	return w.Run(ctx)
}

// Router returns the HTTP handler serving the API.
func (a *App) Router(indexHTML string) http.Handler {
	return apihttp.NewRouter(&apihttp.Deps{
		RAGEngine:          a.Engine,
		Registry:           a.Registry,
		ChunkOptions:       a.ChunkOptions,
		ChunkStore:         a.ChunkRepo,
		TranslationService: a.Translation,
		Synthesizer:        a.Synthesizer,
		Loader:             a.Pipeline,
		DB:                 a.DB,
		Metrics:            a.Metrics,
		DefaultLanguage:    a.Config.DefaultLanguage,
		IndexHTML:          indexHTML,
	})
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}
