package rag

import (
	"reflect"
	"strings"
	"testing"

	"breslov-ai/internal/config"
	"breslov-ai/internal/library"
)

func defaultScorer() *Scorer {
	lib := config.DefaultLibrary()
	return NewScorer(lib.Weights, lib.Associations)
}

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"Lemberg", []string{"lemberg"}},
		{"Pourquoi Rabbi Nahman est-il allé à Lemberg ?", []string{"pourquoi", "rabbi", "nahman", "est-il", "allé", "lemberg"}},
		{"  de la  ", nil},
		{"«Ouman», 1810.", []string{"ouman", "1810"}},
		{"רבי נחמן", []string{"רבי", "נחמן"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := QueryTerms(tt.query); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("QueryTerms(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestScorer_Score(t *testing.T) {
	tests := []struct {
		name  string
		chunk library.Chunk
		query string
		want  float64
	}{
		{
			name:  "no terms",
			chunk: library.Chunk{Content: "de la joie"},
			query: "de",
			want:  0,
		},
		{
			name:  "single hit with exact phrase",
			chunk: library.Chunk{Content: "Il partit pour lemberg."},
			query: "lemberg",
			want:  10 + 5 + 20,
		},
		{
			name:  "repeated occurrences",
			chunk: library.Chunk{Content: "lemberg, lemberg et encore lemberg"},
			query: "lemberg",
			want:  10 + 3*5 + 20,
		},
		{
			name:  "keyword bonus",
			chunk: library.Chunk{Content: "Lemberg", Keywords: []string{"lemberg"}},
			query: "Lemberg",
			want:  10 + 5 + 15 + 20,
		},
		{
			name:  "keyword inside a longer query word earns nothing",
			chunk: library.Chunk{Content: "Rabbi Nahman", Keywords: []string{"nahman"}},
			query: "Nahmanides",
			want:  0,
		},
		{
			name:  "multi-word vocabulary keyword matches as phrase",
			chunk: library.Chunk{Content: "un enseignement", Keywords: []string{"likoutey moharan"}},
			query: "que dit Likoutey Moharan",
			want:  15,
		},
		{
			name:  "punctuation breaks exact phrase only",
			chunk: library.Chunk{Content: "Il partit pour lemberg."},
			query: "Lemberg ?",
			want:  10 + 5,
		},
		{
			name:  "association on any script",
			chunk: library.Chunk{Content: "le voyage vers lemberg"},
			query: "lemberg",
			want:  10 + 5 + 20 + 50,
		},
		{
			name:  "hebrew association on rtl chunk",
			chunk: library.Chunk{Content: "רבנו נסע ללמברג", RTL: true},
			query: "lemberg",
			want:  25,
		},
		{
			name:  "rtl-only association skipped on ltr chunk",
			chunk: library.Chunk{Content: "רבנו נסע ללמברג", RTL: false},
			query: "lemberg",
			want:  0,
		},
		{
			name:  "two terms and phrase",
			chunk: library.Chunk{Content: "Rabbi Nahman enseigne la joie"},
			query: "Rabbi Nahman",
			want:  15 + 15 + 20,
		},
	}

	scorer := defaultScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scorer.Score(&tt.chunk, NewQuery(tt.query)); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorer_Deterministic(t *testing.T) {
	scorer := defaultScorer()
	chunk := library.Chunk{Content: "Rabbi Nahman partit en voyage pour Lemberg après Souccot.", Keywords: []string{"rabbi", "nahman", "lemberg"}}
	q := NewQuery("voyage de Rabbi Nahman à Lemberg")

	first := scorer.Score(&chunk, q)
	for i := 0; i < 10; i++ {
		if got := scorer.Score(&chunk, q); got != first {
			t.Fatalf("Score() call %d = %v, want %v", i, got, first)
		}
	}
}

func TestScorer_Monotonic(t *testing.T) {
	scorer := defaultScorer()
	base := "La prière du matin. "

	t.Run("more occurrences", func(t *testing.T) {
		q := NewQuery("prière")
		prev := 0.0
		for n := 1; n <= 5; n++ {
			chunk := library.Chunk{Content: strings.Repeat(base, n)}
			score := scorer.Score(&chunk, q)
			if score < prev {
				t.Fatalf("score decreased from %v to %v at %d occurrences", prev, score, n)
			}
			prev = score
		}
	})

	t.Run("second distinct term", func(t *testing.T) {
		chunk := library.Chunk{Content: base + "La joie aussi."}
		one := scorer.Score(&chunk, NewQuery("prière"))
		two := scorer.Score(&chunk, NewQuery("prière joie"))
		if two < one {
			t.Errorf("adding a matching term decreased score: %v -> %v", one, two)
		}
	})
}

func TestScorer_CustomAssociation(t *testing.T) {
	scorer := NewScorer(config.WeightsConfig{TermHit: 1}, []config.AssociationConfig{
		{Name: "uman", QueryTerms: []string{"Ouman"}, PassageTerms: []string{"Rosh Hashana"}, Bonus: 100},
	})
	chunk := library.Chunk{Content: "Le kibboutz de Rosh Hashana"}

	if got := scorer.Score(&chunk, NewQuery("ouman kibboutz")); got != 1+100 {
		t.Errorf("Score() = %v, want 101", got)
	}
}
