package rag

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"breslov-ai/internal/config"
	"breslov-ai/internal/library"
)

// Query is a normalized query: the lowercased text and its scoring terms.
type Query struct {
	Text  string
	Terms []string
}

// NewQuery lowercases and trims q and extracts its terms.
func NewQuery(q string) Query {
	text := strings.ToLower(strings.TrimSpace(q))
	return Query{Text: text, Terms: QueryTerms(text)}
}

// QueryTerms splits q on whitespace, strips leading and trailing punctuation
// and keeps tokens longer than two characters, lowercased, in query order.
func QueryTerms(q string) []string {
	var terms []string
	for _, field := range strings.Fields(strings.ToLower(q)) {
		term := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if utf8.RuneCountInString(term) > 2 {
			terms = append(terms, term)
		}
	}
	return terms
}

type association struct {
	name         string
	queryTerms   []string
	passageTerms []string
	bonus        float64
	rtlOnly      bool
}

// Scorer computes additive lexical relevance. It holds only configuration and
// is safe for concurrent use.
type Scorer struct {
	weights      config.WeightsConfig
	associations []association
}

// NewScorer creates a scorer. New domain associations are a data change in
// the library config.
func NewScorer(weights config.WeightsConfig, associations []config.AssociationConfig) *Scorer {
	s := &Scorer{weights: weights}
	for _, a := range associations {
		s.associations = append(s.associations, association{
			name:         a.Name,
			queryTerms:   lowerAll(a.QueryTerms),
			passageTerms: lowerAll(a.PassageTerms),
			bonus:        a.Bonus,
			rtlOnly:      a.RTLOnly,
		})
	}
	return s
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Score returns the relevance of chunk for q. A query without terms scores 0.
//
//   - each term found in the content: TermHit + occurrences*Occurrence
//   - each chunk keyword equal to a query term: Keyword (multi-word
//     vocabulary keywords match as a phrase in the query)
//   - each association whose query side matches: Bonus per passage term found
//   - the whole query found verbatim: ExactPhrase
func (s *Scorer) Score(chunk *library.Chunk, q Query) float64 {
	if len(q.Terms) == 0 {
		return 0
	}

	content := strings.ToLower(chunk.Content)
	var score float64

	for _, term := range q.Terms {
		if n := strings.Count(content, term); n > 0 {
			score += s.weights.TermHit + float64(n)*s.weights.Occurrence
		}
	}

	for _, kw := range chunk.Keywords {
		if matchesKeyword(q, kw) {
			score += s.weights.Keyword
		}
	}

	for _, a := range s.associations {
		if a.rtlOnly && !chunk.RTL {
			continue
		}
		if !containsAny(q.Text, a.queryTerms) {
			continue
		}
		for _, term := range a.passageTerms {
			if strings.Contains(content, term) {
				score += a.bonus
			}
		}
	}

	if strings.Contains(content, q.Text) {
		score += s.weights.ExactPhrase
	}

	return score
}

func matchesKeyword(q Query, kw string) bool {
	if strings.ContainsAny(kw, " -'’") {
		return strings.Contains(q.Text, kw)
	}
	for _, term := range q.Terms {
		if term == kw {
			return true
		}
	}
	return false
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
