package rag

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"breslov-ai/internal/cache"
	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/library"
	"breslov-ai/internal/metrics"
)

// MaxResultsLimit caps any retrieval.
const MaxResultsLimit = 50

// RetrieverOptions are the retrieval defaults.
type RetrieverOptions struct {
	// MaxResults applies when a request leaves it at 0.
	MaxResults int
	// LeadingChunks is how many chunks per book the all-corpus fallback returns.
	LeadingChunks int
	// Language selects book titles when a request leaves it empty.
	Language string
}

// Retriever ranks chunks of the registry for a query. Results are memoized in
// a TTL cache keyed by the normalized query, the scope, the options and the
// registry generation, so a reloaded book never serves stale passages.
type Retriever struct {
	registry *library.Registry
	scorer   *Scorer
	cache    *cache.TTLCache[Result]
	opts     RetrieverOptions
	metrics  *metrics.Metrics
}

// NewRetriever creates a retriever. c and m may be nil.
func NewRetriever(registry *library.Registry, scorer *Scorer, c *cache.TTLCache[Result], opts RetrieverOptions, m *metrics.Metrics) *Retriever {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 8
	}
	if opts.LeadingChunks <= 0 {
		opts.LeadingChunks = 2
	}
	if opts.Language == "" {
		opts.Language = "fr"
	}
	if c == nil {
		c = cache.New[Result](0)
	}
	return &Retriever{registry: registry, scorer: scorer, cache: c, opts: opts, metrics: m}
}

// Cache exposes the result cache, mainly for stats.
func (r *Retriever) Cache() *cache.TTLCache[Result] {
	return r.cache
}

type scoredChunk struct {
	chunk library.Chunk
	doc   *library.Document
	score float64
}

// Retrieve returns at most MaxResults passages scoring above 0 and at least
// MinScore, best first, ties in book then chunk order. No match is an empty
// result, not an error; an unknown book in the scope is ErrScopeNotFound.
func (r *Retriever) Retrieve(ctx context.Context, req RetrieveRequest) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	q := NewQuery(req.Query)
	if q.Text == "" {
		return nil, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := r.resolveScope(req.Books)
	if err != nil {
		return nil, err
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = r.opts.MaxResults
	}
	maxResults = min(maxResults, MaxResultsLimit)
	lang := req.Language
	if lang == "" {
		lang = r.opts.Language
	}
	allowFallback := req.Fallback && len(req.Books) == 0

	key := r.cacheKey(q.Text, req.Books, maxResults, req.MinScore, lang, allowFallback)
	if cached, ok := r.cache.Get(key); ok {
		r.metrics.RecordCacheLookup("retrieval", true)
		logger.DebugContext(ctx, "retrieval cache hit", "query", q.Text, "results", len(cached.Passages))
		cached.Passages = slices.Clone(cached.Passages)
		cached.FromCache = true
		return &cached, nil
	}
	r.metrics.RecordCacheLookup("retrieval", false)

	var candidates []scoredChunk
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, chunks, ok := r.snapshot(id)
		if !ok {
			// Unloaded between scope resolution and scoring.
			continue
		}
		for _, c := range chunks {
			score := r.scorer.Score(&c, q)
			if score <= 0 || score < req.MinScore {
				continue
			}
			candidates = append(candidates, scoredChunk{chunk: c, doc: doc, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	fallback := false
	if len(candidates) == 0 && allowFallback {
		candidates = r.leadingChunks(ids, maxResults)
		fallback = len(candidates) > 0
	}

	passages := make([]Passage, len(candidates))
	for i, sc := range candidates {
		passages[i] = newPassage(sc, lang)
	}

	result := Result{Passages: passages, CachedAt: r.cache.Now(), Fallback: fallback}
	r.cache.Set(key, result)
	r.metrics.RecordRetrieval(time.Since(start), len(passages))

	logger.InfoContext(ctx, "retrieval completed",
		"query", q.Text,
		"terms", len(q.Terms),
		"books", len(ids),
		"results", len(passages),
		"fallback", fallback,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result.Passages = slices.Clone(passages)
	return &result, nil
}

// resolveScope returns the sorted, deduplicated book ids to search. An empty
// scope is the whole library.
func (r *Retriever) resolveScope(books []string) ([]string, error) {
	if len(books) == 0 {
		return r.registry.IDs(), nil
	}
	ids := make([]string, 0, len(books))
	for _, id := range books {
		id = strings.TrimSpace(id)
		if !r.registry.Has(id) {
			return nil, fmt.Errorf("%w: %s", ErrScopeNotFound, id)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (r *Retriever) snapshot(id string) (*library.Document, []library.Chunk, bool) {
	doc, err := r.registry.Document(id)
	if err != nil {
		return nil, nil, false
	}
	chunks, err := r.registry.Chunks(id)
	if err != nil {
		return nil, nil, false
	}
	return doc, chunks, true
}

// leadingChunks returns the first LeadingChunks chunks of every book, the
// i-th weighted LeadingChunks-i so earlier chunks rank higher.
func (r *Retriever) leadingChunks(ids []string, maxResults int) []scoredChunk {
	n := r.opts.LeadingChunks
	var out []scoredChunk
	for _, id := range ids {
		doc, chunks, ok := r.snapshot(id)
		if !ok {
			continue
		}
		for i := 0; i < n && i < len(chunks); i++ {
			out = append(out, scoredChunk{chunk: chunks[i], doc: doc, score: float64(n - i)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func (r *Retriever) cacheKey(query string, books []string, maxResults int, minScore float64, lang string, fallback bool) string {
	scope := slices.Clone(books)
	for i := range scope {
		scope[i] = strings.TrimSpace(scope[i])
	}
	slices.Sort(scope)
	scope = slices.Compact(scope)

	return strings.Join([]string{
		strconv.FormatUint(r.registry.Generation(), 10),
		query,
		strings.Join(scope, ","),
		strconv.Itoa(maxResults),
		strconv.FormatFloat(minScore, 'g', -1, 64),
		lang,
		strconv.FormatBool(fallback),
	}, "\x1f")
}

func newPassage(sc scoredChunk, lang string) Passage {
	title := sc.doc.Title(lang)
	return Passage{
		ChunkID:   sc.chunk.ID,
		BookID:    sc.chunk.DocumentID,
		BookTitle: title,
		StartLine: sc.chunk.StartLine,
		EndLine:   sc.chunk.EndLine,
		Content:   sc.chunk.Content,
		Reference: sc.chunk.Reference(title),
		Score:     sc.score,
		RTL:       sc.chunk.RTL,
	}
}
