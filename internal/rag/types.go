package rag

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyQuery is returned when the query is blank.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrScopeNotFound is returned when a requested book is not loaded.
	ErrScopeNotFound = errors.New("unknown document")
	// ErrInvalidStrategy is returned for an unknown strategy name.
	ErrInvalidStrategy = errors.New("invalid strategy")
	// ErrUnsupportedLanguage is returned for languages other than fr, en and he.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Strategy is how a question is answered.
type Strategy string

const (
	// StrategyForceRetrieval answers only from retrieved passages, or refuses.
	StrategyForceRetrieval Strategy = "force_retrieval"
	// StrategyTryThenFallback answers from passages when the best one clears
	// the try threshold, otherwise from general knowledge with a disclosure.
	StrategyTryThenFallback Strategy = "try_then_fallback"
	// StrategyGeneral answers from general knowledge, enriched by whatever a
	// light retrieval pass finds.
	StrategyGeneral Strategy = "general"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyForceRetrieval, StrategyTryThenFallback, StrategyGeneral:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

// Passage is a retrieved chunk with its relevance score.
type Passage struct {
	ChunkID   string  `json:"chunk_id"`
	BookID    string  `json:"book_id"`
	BookTitle string  `json:"book"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Content   string  `json:"content"`
	Reference string  `json:"reference"`
	Score     float64 `json:"score"`
	RTL       bool    `json:"rtl"`
}

// Source is a passage cited by an answer.
type Source struct {
	Book      string `json:"book"`
	BookID    string `json:"book_id"`
	ChunkID   string `json:"chunk_id"`
	Section   string `json:"section"`
	Reference string `json:"reference"`
}

// RetrieveRequest is a ranked-passage query.
type RetrieveRequest struct {
	// Query is the free-text query.
	Query string `json:"query"`
	// Books restricts the search. If empty, searches all books.
	Books []string `json:"books,omitempty"`
	// MaxResults caps the result list. 0 uses the configured default.
	MaxResults int `json:"max_results,omitempty"`
	// MinScore drops passages scoring below it.
	MinScore float64 `json:"min_score,omitempty"`
	// Language selects book titles in references. Empty uses the default.
	Language string `json:"language,omitempty"`
	// Fallback returns the leading chunks of every book when an unscoped
	// query matches nothing.
	Fallback bool `json:"fallback,omitempty"`
}

// Result is the outcome of one retrieval.
type Result struct {
	Passages  []Passage `json:"passages"`
	FromCache bool      `json:"from_cache"`
	CachedAt  time.Time `json:"cached_at"`
	Fallback  bool      `json:"fallback"`
}

// AskRequest represents a question to answer.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// Books specifies which books to search. If empty, searches all books.
	Books []string `json:"books,omitempty"`
	// Strategy forces a strategy instead of classifying the question.
	Strategy string `json:"strategy,omitempty"`
	// Language is the answer language (fr, en, he). Empty uses the default.
	Language string `json:"language,omitempty"`
	// Debug enables debug mode, returning detailed retrieval information.
	Debug bool `json:"debug,omitempty"`
}

// AskResponse is always a complete answer: abstentions and generation
// failures are reported in its fields, not as errors.
type AskResponse struct {
	Answer        string     `json:"answer"`
	Sources       []Source   `json:"sources"`
	Strategy      Strategy   `json:"strategy"`
	Grounded      bool       `json:"grounded"`
	Abstained     bool       `json:"abstained"`
	AbstainReason string     `json:"abstain_reason,omitempty"`
	Language      string     `json:"language"`
	Debug         *DebugInfo `json:"debug,omitempty"`
}

// Abstain reasons.
const (
	ReasonNoPassageFound   = "no_passage_found"
	ReasonGenerationFailed = "generation_failed"
	ReasonModelAbstained   = "model_abstained"
	ReasonUngrounded       = "ungrounded"
)

// DebugInfo contains detailed retrieval information for debugging and evaluation.
type DebugInfo struct {
	// Classified is the strategy picked by the router, even when the request forced another.
	Classified Strategy `json:"classified"`
	// Template is the prompt template used: strict, fallback or none.
	Template string `json:"template"`
	// MinScore and MaxResults are the retrieval parameters used.
	MinScore   float64 `json:"min_score"`
	MaxResults int     `json:"max_results"`
	// FromCache reports a retrieval cache hit.
	FromCache bool `json:"from_cache"`
	// RetrievedChunks contains all retrieved chunks with scores and ranks.
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	// PromptChars is the size of the prompt sent for generation.
	PromptChars int `json:"prompt_chars"`
	// Latency breakdown in milliseconds.
	RetrievalMS  int64 `json:"retrieval_ms"`
	GenerationMS int64 `json:"generation_ms"`
	TotalMS      int64 `json:"total_ms"`
}

// RetrievedChunk represents a retrieved chunk with scoring information.
type RetrievedChunk struct {
	ChunkID   string  `json:"chunk_id"`
	BookID    string  `json:"book_id"`
	Reference string  `json:"reference"`
	Score     float64 `json:"score"`
	// Rank is the rank of this chunk in the retrieval results (1-based).
	Rank int `json:"rank"`
	// Text is the chunk text, truncated.
	Text string `json:"text"`
}
