package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"breslov-ai/internal/library"
	"breslov-ai/internal/rag"
	rag_mocks "breslov-ai/internal/rag/mocks"
	"breslov-ai/internal/service"
	service_mocks "breslov-ai/internal/service/mocks"
	"breslov-ai/internal/storage"
	storage_mocks "breslov-ai/internal/storage/mocks"
)

func testRegistry() *library.Registry {
	reg := library.NewRegistry()
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = fmt.Sprintf("Ligne %d.", i+1)
	}
	reg.Put(&library.Document{
		ID:       "chayei-moharan",
		Titles:   map[string]string{"fr": "Chayei Moharan", "en": "Life of Rabbi Nachman"},
		Language: library.LanguageFrench,
		Lines:    lines,
		Text:     strings.Join(lines, "\n"),
	}, []library.Chunk{
		{ID: "chayei-moharan_chunk_0", DocumentID: "chayei-moharan", StartLine: 0, EndLine: 30, Content: strings.Join(lines, "\n")},
	})
	return reg
}

// run executes the root command with s installed and returns its output.
func run(t *testing.T, s *Services, args ...string) (string, error) {
	t.Helper()

	booksJSON, booksLang = false, ""
	searchLimit, searchJSON = 10, false
	askBooks, askStrategy, askLang, askDebug, askJSON = nil, "", "", false, false
	translateLang = ""

	services = s
	t.Cleanup(func() {
		services = nil
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestBooksCmd(t *testing.T) {
	s := &Services{Registry: testRegistry(), DefaultLanguage: "fr"}

	t.Run("text", func(t *testing.T) {
		out, err := run(t, s, "books", "--lang", "en")
		if err != nil {
			t.Fatalf("books error = %v", err)
		}
		if !strings.Contains(out, "chayei-moharan") || !strings.Contains(out, "Life of Rabbi Nachman") {
			t.Errorf("output = %q", out)
		}
		if !strings.Contains(out, "30 lines, 1 chunks") {
			t.Errorf("stats missing: %q", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, s, "books", "--json")
		if err != nil {
			t.Fatalf("books error = %v", err)
		}
		var rows []bookRow
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(rows) != 1 || rows[0].Title != "Chayei Moharan" || rows[0].Language != "french" {
			t.Errorf("rows = %+v", rows)
		}
	})

	t.Run("empty library", func(t *testing.T) {
		out, err := run(t, &Services{Registry: library.NewRegistry()}, "books")
		if err != nil {
			t.Fatalf("books error = %v", err)
		}
		if !strings.Contains(out, "No books loaded.") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestSearchCmd(t *testing.T) {
	t.Run("results", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := storage_mocks.NewMockChunkStore(ctrl)
		store.EXPECT().Search(gomock.Any(), "Lemberg", 5).Return([]storage.SearchHit{{
			Chunk: storage.ChunkRecord{
				ID:        "chayei-moharan_chunk_0",
				StartLine: 0,
				EndLine:   30,
				Content:   "Ligne 1.\nRabbi Nahman partit pour Lemberg.\nLigne 3.",
			},
			BookTitle: "Chayei Moharan",
			Score:     1.0,
		}}, nil)

		out, err := run(t, &Services{ChunkStore: store}, "search", "-n", "5", "Lemberg")
		if err != nil {
			t.Fatalf("search error = %v", err)
		}
		if !strings.Contains(out, "[1] Chayei Moharan, 1-30 (1.0)") {
			t.Errorf("output = %q", out)
		}
		if !strings.Contains(out, "Rabbi Nahman partit pour Lemberg.") {
			t.Errorf("snippet missing: %q", out)
		}
	})

	t.Run("no results", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := storage_mocks.NewMockChunkStore(ctrl)
		store.EXPECT().Search(gomock.Any(), "xyzxyz", 10).Return([]storage.SearchHit{}, nil)

		out, err := run(t, &Services{ChunkStore: store}, "search", "xyzxyz")
		if err != nil {
			t.Fatalf("search error = %v", err)
		}
		if !strings.Contains(out, "No results found.") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("requires a query", func(t *testing.T) {
		_, err := run(t, &Services{}, "search")
		if err == nil || !strings.Contains(err.Error(), "accepts 1 arg(s)") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestAskCmd(t *testing.T) {
	t.Run("answer with sources", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		engine := rag_mocks.NewMockEngine(ctrl)
		engine.EXPECT().Ask(gomock.Any(), rag.AskRequest{
			Question: "Quand est-il allé à Lemberg ?",
			Books:    []string{"chayei-moharan"},
			Strategy: "force_retrieval",
			Language: "fr",
		}).Return(rag.AskResponse{
			Answer:   "Il partit pour Lemberg [Chayei Moharan, 1-30].",
			Sources:  []rag.Source{{BookID: "chayei-moharan", ChunkID: "chayei-moharan_chunk_0", Reference: "Chayei Moharan, 1-30"}},
			Strategy: rag.StrategyForceRetrieval,
			Grounded: true,
			Language: "fr",
		}, nil)

		out, err := run(t, &Services{Engine: engine, DefaultLanguage: "fr"},
			"ask", "-b", "chayei-moharan", "-s", "force_retrieval", "Quand", "est-il", "allé", "à", "Lemberg", "?")
		if err != nil {
			t.Fatalf("ask error = %v", err)
		}
		if !strings.Contains(out, "Il partit pour Lemberg") {
			t.Errorf("answer missing: %q", out)
		}
		if !strings.Contains(out, "- Chayei Moharan, 1-30 (chayei-moharan_chunk_0)") {
			t.Errorf("sources missing: %q", out)
		}
	})

	t.Run("debug output", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		engine := rag_mocks.NewMockEngine(ctrl)
		engine.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(rag.AskResponse{
			Answer:        "Je ne trouve pas cette information.",
			Strategy:      rag.StrategyForceRetrieval,
			Abstained:     true,
			AbstainReason: rag.ReasonNoPassageFound,
			Debug: &rag.DebugInfo{
				RetrievedChunks: []rag.RetrievedChunk{{Rank: 1, Score: 12, Reference: "Chayei Moharan, 1-30"}},
			},
		}, nil)

		out, err := run(t, &Services{Engine: engine}, "ask", "--debug", "xyzxyz")
		if err != nil {
			t.Fatalf("ask error = %v", err)
		}
		if !strings.Contains(out, "reason=no_passage_found") || !strings.Contains(out, "#1 12.0 Chayei Moharan, 1-30") {
			t.Errorf("debug output = %q", out)
		}
	})

	t.Run("engine error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		engine := rag_mocks.NewMockEngine(ctrl)
		engine.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(rag.AskResponse{}, rag.ErrScopeNotFound)

		_, err := run(t, &Services{Engine: engine}, "ask", "-b", "zohar", "Lemberg")
		if err == nil || !strings.Contains(err.Error(), "ask failed") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestTranslateCmd(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := service_mocks.NewMockTranslationService(ctrl)
	svc.EXPECT().Translate(gomock.Any(), service.TranslateRequest{ChunkID: "likutei-etzot_chunk_0", Language: "en"}).
		Return(service.TranslateResponse{ChunkID: "likutei-etzot_chunk_0", Language: "en", Text: "Joy is a great mitzvah.", Translated: true}, nil)

	out, err := run(t, &Services{Translation: svc, DefaultLanguage: "fr"}, "translate", "-l", "en", "likutei-etzot_chunk_0")
	if err != nil {
		t.Fatalf("translate error = %v", err)
	}
	if strings.TrimSpace(out) != "Joy is a great mitzvah." {
		t.Errorf("output = %q", out)
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name    string
		content string
		query   string
		want    string
	}{
		{name: "matching line", content: "a\n  Vers LEMBERG  \nc", query: "lemberg", want: "Vers LEMBERG"},
		{name: "no match uses first line", content: "first\nsecond", query: "zzz", want: "first"},
		{name: "long line shortened", content: strings.Repeat("é", 200), query: "é", want: strings.Repeat("é", snippetLength) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snippet(tt.content, tt.query); got != tt.want {
				t.Errorf("snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}
