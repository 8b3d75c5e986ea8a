package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks breslov-ai/internal/rag Engine,Generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/llm"
	"breslov-ai/internal/metrics"
)

// Engine answers questions over the loaded library.
type Engine interface {
	// Ask answers a question, routing it to a strategy, retrieving passages and
	// generating a validated answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
	// Retrieve returns ranked passages for a query.
	Retrieve(ctx context.Context, req RetrieveRequest) (*Result, error)
}

// Generator is the external text-generation capability.
type Generator interface {
	Generate(ctx context.Context, system, user string, params llm.ChatParams) (string, error)
}

// Config holds the strategy thresholds and generation parameters.
type Config struct {
	ForceMinScore     float64
	TryMinScore       float64
	GeneralMinScore   float64
	MaxResults        int
	GeneralMaxResults int
	DefaultLanguage   string
	Temperature       float32
	MaxTokens         int
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		ForceMinScore:     0,
		TryMinScore:       30,
		GeneralMinScore:   0,
		MaxResults:        8,
		GeneralMaxResults: 3,
		DefaultLanguage:   "fr",
		Temperature:       0.3,
		MaxTokens:         1024,
	}
}

// Answer outcomes recorded in metrics.
const (
	outcomeGrounded         = "grounded"
	outcomeFallback         = "fallback"
	outcomeNoPassage        = "no_passage"
	outcomeAbstained        = "abstained"
	outcomeGenerationFailed = "generation_failed"
)

// ragEngine implements the Engine interface.
type ragEngine struct {
	retriever *Retriever
	router    *Router
	generator Generator
	cfg       Config
	metrics   *metrics.Metrics
}

// NewEngine creates a new engine. m may be nil.
func NewEngine(retriever *Retriever, router *Router, generator Generator, cfg Config, m *metrics.Metrics) Engine {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "fr"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if cfg.GeneralMaxResults <= 0 {
		cfg.GeneralMaxResults = DefaultConfig().GeneralMaxResults
	}
	return &ragEngine{
		retriever: retriever,
		router:    router,
		generator: generator,
		cfg:       cfg,
		metrics:   m,
	}
}

// Retrieve returns ranked passages for a query.
func (e *ragEngine) Retrieve(ctx context.Context, req RetrieveRequest) (*Result, error) {
	if req.Language != "" && !SupportedLanguage(req.Language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Language)
	}
	if req.Language == "" {
		req.Language = e.cfg.DefaultLanguage
	}
	if req.MaxResults <= 0 {
		req.MaxResults = e.cfg.MaxResults
	}
	return e.retriever.Retrieve(ctx, req)
}

// plan is the retrieval and prompt decision for one question.
type plan struct {
	strategy   Strategy
	classified Strategy
	minScore   float64
	maxResults int
}

func (e *ragEngine) plan(req AskRequest) (plan, error) {
	p := plan{classified: e.router.Classify(req.Question)}
	p.strategy = p.classified
	if req.Strategy != "" {
		s, err := ParseStrategy(req.Strategy)
		if err != nil {
			return plan{}, err
		}
		p.strategy = s
	}

	switch p.strategy {
	case StrategyGeneral:
		p.minScore, p.maxResults = e.cfg.GeneralMinScore, e.cfg.GeneralMaxResults
	default:
		// try_then_fallback retrieves permissively and gates on the top score.
		p.minScore, p.maxResults = e.cfg.ForceMinScore, e.cfg.MaxResults
	}
	return p, nil
}

// Ask answers a question. Every outcome short of an invalid request, an
// unknown scope or a cancelled context is a complete AskResponse.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return AskResponse{}, ErrEmptyQuery
	}
	lang := req.Language
	if lang == "" {
		lang = e.cfg.DefaultLanguage
	}
	ph, ok := PhrasesFor(lang)
	if !ok {
		return AskResponse{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	p, err := e.plan(req)
	if err != nil {
		return AskResponse{}, err
	}

	logger.InfoContext(ctx, "query started",
		"question", req.Question,
		"books", req.Books,
		"strategy", p.strategy,
		"classified", p.classified,
		"language", lang,
	)

	result, err := e.retriever.Retrieve(ctx, RetrieveRequest{
		Query:      req.Question,
		Books:      req.Books,
		MaxResults: p.maxResults,
		MinScore:   p.minScore,
		Language:   lang,
	})
	if err != nil {
		if !errors.Is(err, ErrScopeNotFound) && ctx.Err() == nil {
			logger.ErrorContext(ctx, "retrieval failed", "error", err)
		}
		return AskResponse{}, err
	}
	retrievalDone := time.Now()
	passages := result.Passages

	resp := AskResponse{
		Strategy: p.strategy,
		Language: lang,
		Sources:  []Source{},
	}
	var debug *DebugInfo
	if req.Debug {
		debug = &DebugInfo{
			Classified:      p.classified,
			Template:        TemplateNone,
			MinScore:        p.minScore,
			MaxResults:      p.maxResults,
			FromCache:       result.FromCache,
			RetrievedChunks: retrievedChunks(passages),
			RetrievalMS:     retrievalDone.Sub(start).Milliseconds(),
		}
	}
	finish := func(outcome string) (AskResponse, error) {
		e.metrics.RecordAnswer(string(p.strategy), outcome)
		if debug != nil {
			debug.TotalMS = time.Since(start).Milliseconds()
			resp.Debug = debug
		}
		logger.InfoContext(ctx, "query completed",
			"strategy", p.strategy,
			"outcome", outcome,
			"grounded", resp.Grounded,
			"sources", len(resp.Sources),
			"answer_length", len(resp.Answer),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, nil
	}

	grounded := false
	switch p.strategy {
	case StrategyForceRetrieval:
		if len(passages) == 0 {
			resp.Answer = ph.Refusal
			resp.Abstained = true
			resp.AbstainReason = ReasonNoPassageFound
			return finish(outcomeNoPassage)
		}
		grounded = true
	case StrategyTryThenFallback:
		grounded = len(passages) > 0 && passages[0].Score >= e.cfg.TryMinScore
		logger.DebugContext(ctx, "try threshold checked", "passages", len(passages), "threshold", e.cfg.TryMinScore, "grounded", grounded)
	}

	prompt := AssemblePrompt(req.Question, passages, grounded, ph)
	if debug != nil {
		debug.Template = prompt.Template
		debug.PromptChars = prompt.Len()
	}
	resp.Sources = sourcesFrom(passages)

	if err := ctx.Err(); err != nil {
		return AskResponse{}, err
	}

	logger.InfoContext(ctx, "sending request to LLM",
		"template", prompt.Template,
		"passages", len(passages),
		"prompt_length", prompt.Len(),
	)

	genStart := time.Now()
	raw, err := e.generator.Generate(ctx, prompt.System, prompt.User, llm.ChatParams{
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if debug != nil {
		debug.GenerationMS = time.Since(genStart).Milliseconds()
	}
	if err == nil && strings.TrimSpace(raw) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AskResponse{}, ctxErr
		}
		logger.ErrorContext(ctx, "generation failed", "error", err)
		e.metrics.RecordGenerationFailure()
		resp.Answer = generationFailedAnswer(passages, ph)
		resp.Abstained = true
		resp.AbstainReason = ReasonGenerationFailed
		return finish(outcomeGenerationFailed)
	}

	logger.DebugContext(ctx, "LLM answer", "answer", raw)

	resp.Answer = Validate(raw, passages, ph)

	switch {
	case len(passages) == 0 && resp.Answer == ph.Refusal && !HasAdmission(StripNoise(raw)):
		resp.Abstained = true
		resp.AbstainReason = ReasonUngrounded
		return finish(outcomeAbstained)
	case grounded && HasAdmission(raw) && !HasCitation(raw, passages):
		resp.Abstained = true
		resp.AbstainReason = ReasonModelAbstained
		return finish(outcomeAbstained)
	case grounded:
		resp.Grounded = true
		return finish(outcomeGrounded)
	default:
		return finish(outcomeFallback)
	}
}

func sourcesFrom(passages []Passage) []Source {
	sources := make([]Source, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, Source{
			Book:      p.BookTitle,
			BookID:    p.BookID,
			ChunkID:   p.ChunkID,
			Section:   fmt.Sprintf("%d-%d", p.StartLine+1, p.EndLine),
			Reference: p.Reference,
		})
	}
	return sources
}

const (
	debugTextLimit  = 300
	excerptLimit    = 200
	failurePassages = 3
)

func retrievedChunks(passages []Passage) []RetrievedChunk {
	out := make([]RetrievedChunk, len(passages))
	for i, p := range passages {
		out[i] = RetrievedChunk{
			ChunkID:   p.ChunkID,
			BookID:    p.BookID,
			Reference: p.Reference,
			Score:     p.Score,
			Rank:      i + 1,
			Text:      truncate(p.Content, debugTextLimit),
		}
	}
	return out
}

// generationFailedAnswer is the answer given when generation fails: the
// failure notice followed by excerpts of the best passages, if any.
func generationFailedAnswer(passages []Passage, ph Phrases) string {
	if len(passages) == 0 {
		return ph.GenerationFailed
	}
	var b strings.Builder
	b.WriteString(ph.GenerationFailed)
	b.WriteString("\n\n")
	b.WriteString(ph.PassagesFound)
	for i, p := range passages {
		if i == failurePassages {
			break
		}
		excerpt := strings.Join(strings.Fields(p.Content), " ")
		fmt.Fprintf(&b, "\n\n> %s\n[%s]", truncate(excerpt, excerptLimit), p.Reference)
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
