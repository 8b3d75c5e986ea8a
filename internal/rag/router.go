package rag

import "strings"

// Router classifies questions from a fixed list of book-title and domain
// hints. It holds no per-request state.
type Router struct {
	hints []string
}

// NewRouter creates a router over hints, matched case-insensitively as
// substrings.
func NewRouter(hints []string) *Router {
	return &Router{hints: lowerAll(hints)}
}

// Classify returns StrategyForceRetrieval when the question mentions any hint
// and StrategyGeneral otherwise. StrategyTryThenFallback is only reached when a
// caller asks for it.
func (r *Router) Classify(question string) Strategy {
	q := strings.ToLower(question)
	if containsAny(q, r.hints) {
		return StrategyForceRetrieval
	}
	return StrategyGeneral
}
