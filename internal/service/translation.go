package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks breslov-ai/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_translation_service.go -package=mocks breslov-ai/internal/service TranslationService

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"breslov-ai/internal/cache"
	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/library"
	"breslov-ai/internal/llm"
	"breslov-ai/internal/metrics"
	"breslov-ai/internal/rag"
	"breslov-ai/internal/storage"
)

// LLMClient is the generation capability used for translation.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// Generate returns the model's reply to a system prompt and user input.
	Generate(ctx context.Context, system, user string, params llm.ChatParams) (string, error)
}

// TranslateRequest asks for a chunk in another language.
type TranslateRequest struct {
	ChunkID  string
	Language string
}

// TranslateResponse carries the translated chunk. When Translated is false,
// Text is the original content: the chunk was already in the target script or
// translation failed.
type TranslateResponse struct {
	ChunkID    string
	Language   string
	Text       string
	Translated bool
	FromCache  bool
}

// TranslationService translates chunks on demand.
type TranslationService interface {
	// Translate returns the chunk's text in the requested language.
	Translate(ctx context.Context, req TranslateRequest) (TranslateResponse, error)
}

const (
	translationTemperature = 0.2
	translationMaxTokens   = 2048
)

// translationService implements TranslationService.
type translationService struct {
	registry  *library.Registry
	store     storage.TranslationStore
	llmClient LLMClient
	cache     *cache.TTLCache[string]
	metrics   *metrics.Metrics
}

// NewTranslationService creates a new TranslationService. store, c and m may
// be nil.
func NewTranslationService(registry *library.Registry, store storage.TranslationStore, llmClient LLMClient, c *cache.TTLCache[string], m *metrics.Metrics) TranslationService {
	if c == nil {
		c = cache.New[string](0)
	}
	return &translationService{
		registry:  registry,
		store:     store,
		llmClient: llmClient,
		cache:     c,
		metrics:   m,
	}
}

// Translate looks the translation up in memory, then in the store, and only
// then asks the model. Model failures return the original text, uncached.
func (s *translationService) Translate(ctx context.Context, req TranslateRequest) (TranslateResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.ChunkID) == "" {
		return TranslateResponse{}, &ValidationError{Field: "chunk_id", Message: "cannot be empty"}
	}
	ph, ok := rag.PhrasesFor(req.Language)
	if !ok {
		return TranslateResponse{}, &ValidationError{Field: "language", Message: fmt.Sprintf("unsupported language %q", req.Language)}
	}

	chunk, doc, err := s.registry.ChunkByID(req.ChunkID)
	if err != nil {
		logger.WarnContext(ctx, "chunk not found for translation", "chunk_id", req.ChunkID)
		return TranslateResponse{}, WrapError(ErrNotFound, "chunk "+req.ChunkID)
	}

	resp := TranslateResponse{ChunkID: chunk.ID, Language: req.Language, Text: chunk.Content}
	if inTargetScript(chunk, doc, req.Language) {
		return resp, nil
	}

	sourceHash := contentHash(chunk.Content)
	key := chunk.ID + "|" + req.Language + "|" + sourceHash
	if text, ok := s.cache.Get(key); ok {
		s.metrics.RecordCacheLookup("translation", true)
		resp.Text, resp.Translated, resp.FromCache = text, true, true
		return resp, nil
	}
	s.metrics.RecordCacheLookup("translation", false)

	if s.store != nil {
		rec, err := s.store.Get(ctx, chunk.ID, req.Language, sourceHash)
		switch {
		case err == nil:
			s.cache.Set(key, rec.Text)
			resp.Text, resp.Translated, resp.FromCache = rec.Text, true, true
			return resp, nil
		case !errors.Is(err, storage.ErrNotFound):
			logger.WarnContext(ctx, "failed to read stored translation", "chunk_id", chunk.ID, "error", err)
		}
	}

	text, err := s.llmClient.Generate(ctx, translationPrompt(ph), chunk.Content, llm.ChatParams{
		Temperature: translationTemperature,
		MaxTokens:   translationMaxTokens,
	})
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return TranslateResponse{}, WrapError(ctxErr, "failed to translate chunk "+chunk.ID)
		}
		logger.ErrorContext(ctx, "translation failed, returning original text", "chunk_id", chunk.ID, "language", req.Language, "error", err)
		return resp, nil
	}

	if s.store != nil {
		if err := s.store.Put(ctx, &storage.TranslationRecord{
			ChunkID:    chunk.ID,
			Language:   req.Language,
			SourceHash: sourceHash,
			Text:       text,
		}); err != nil {
			logger.WarnContext(ctx, "failed to store translation", "chunk_id", chunk.ID, "error", err)
		}
	}
	s.cache.Set(key, text)

	logger.InfoContext(ctx, "chunk translated", "chunk_id", chunk.ID, "language", req.Language, "length", len(text))
	resp.Text, resp.Translated = text, true
	return resp, nil
}

// inTargetScript reports whether the chunk can be shown as is.
func inTargetScript(chunk *library.Chunk, doc *library.Document, lang string) bool {
	if lang == "he" {
		return chunk.RTL
	}
	return !chunk.RTL && doc.Language.Code() == lang
}

func translationPrompt(ph rag.Phrases) string {
	return "You translate passages of Rabbi Nachman of Breslov's writings. " +
		"Translate the user's passage into " + ph.LanguageName + ". " +
		"Keep names, book titles and Hebrew terms recognizable, keep the line structure, " +
		"and reply with the translation only."
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
