package rag_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"breslov-ai/internal/config"
	"breslov-ai/internal/indexer"
	"breslov-ai/internal/library"
	"breslov-ai/internal/llm"
	"breslov-ai/internal/metrics"
	"breslov-ai/internal/rag"
	rag_mocks "breslov-ai/internal/rag/mocks"
)

func chayeiMoharan() *library.Document {
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = fmt.Sprintf("Ligne %d du récit, avec assez de texte pour compter.", i+1)
	}
	lines[10] = "Rabbi Nahman partit alors pour Lemberg."
	lines[40] = "Il revint de Lemberg avant Pessah."
	return &library.Document{
		ID:       "chayei-moharan",
		Titles:   map[string]string{"fr": "Chayei Moharan"},
		Language: library.LanguageFrench,
		Lines:    lines,
		Text:     strings.Join(lines, "\n"),
	}
}

func newTestEngine(t *testing.T, gen rag.Generator, cfg rag.Config, m *metrics.Metrics) rag.Engine {
	t.Helper()
	lib := config.DefaultLibrary()
	chunker, err := indexer.NewLineChunker(indexer.DefaultChunkOptions(), lib.Vocabulary)
	if err != nil {
		t.Fatalf("NewLineChunker() error = %v", err)
	}
	reg := library.NewRegistry()
	doc := chayeiMoharan()
	reg.Put(doc, chunker.Chunk(doc))

	retriever := rag.NewRetriever(reg, rag.NewScorer(lib.Weights, lib.Associations), nil, rag.RetrieverOptions{}, m)
	return rag.NewEngine(retriever, rag.NewRouter(lib.RoutingHints), gen, cfg, m)
}

const lembergQuestion = "Pourquoi Rabbi Nahman est-il allé à Lemberg ?"

func TestEngine_Ask_ForceRetrieval(t *testing.T) {
	fr, _ := rag.PhrasesFor("fr")

	t.Run("no passage refuses without generating", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gen := rag_mocks.NewMockGenerator(ctrl)
		m := metrics.New()
		engine := newTestEngine(t, gen, rag.DefaultConfig(), m)

		resp, err := engine.Ask(context.Background(), rag.AskRequest{
			Question: "xyzxyz",
			Books:    []string{"chayei-moharan"},
			Strategy: string(rag.StrategyForceRetrieval),
		})
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if resp.Answer != fr.Refusal {
			t.Errorf("Answer = %q, want refusal", resp.Answer)
		}
		if resp.Grounded || len(resp.Sources) != 0 {
			t.Errorf("Grounded = %v, Sources = %v", resp.Grounded, resp.Sources)
		}
		if !resp.Abstained || resp.AbstainReason != rag.ReasonNoPassageFound {
			t.Errorf("Abstained = %v (%s)", resp.Abstained, resp.AbstainReason)
		}
	})

	t.Run("cited answer kept", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gen := rag_mocks.NewMockGenerator(ctrl)
		engine := newTestEngine(t, gen, rag.DefaultConfig(), nil)

		answer := "Il partit pour consulter des médecins [Chayei Moharan, 1-30]."
		gen.EXPECT().
			Generate(gomock.Any(), gomock.Any(), gomock.Any(), llm.ChatParams{Temperature: 0.3, MaxTokens: 1024}).
			DoAndReturn(func(_ context.Context, system, user string, _ llm.ChatParams) (string, error) {
				if !strings.Contains(system, fr.Refusal) {
					t.Error("strict instructions should carry the refusal sentence")
				}
				if !strings.Contains(user, "[Source: Chayei Moharan, 1-30]") {
					t.Error("prompt should carry the passages")
				}
				return answer, nil
			})

		resp, err := engine.Ask(context.Background(), rag.AskRequest{Question: lembergQuestion})
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if resp.Strategy != rag.StrategyForceRetrieval {
			t.Errorf("Strategy = %s, want force_retrieval", resp.Strategy)
		}
		if resp.Answer != answer || !resp.Grounded || resp.Abstained {
			t.Errorf("unexpected response %+v", resp)
		}
		if len(resp.Sources) != 2 || resp.Sources[0].Section != "1-30" || resp.Sources[0].BookID != "chayei-moharan" {
			t.Errorf("Sources = %+v", resp.Sources)
		}
	})

	t.Run("uncited answer gets sources line", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gen := rag_mocks.NewMockGenerator(ctrl)
		engine := newTestEngine(t, gen, rag.DefaultConfig(), nil)

		gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("**Contexte** : voyage.\n\nIl partit se soigner.", nil)

		resp, err := engine.Ask(context.Background(), rag.AskRequest{Question: lembergQuestion})
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if strings.Contains(resp.Answer, "Contexte") {
			t.Errorf("noise not stripped: %q", resp.Answer)
		}
		if !strings.HasSuffix(resp.Answer, "**Sources consultées:** [Chayei Moharan, 1-30], [Chayei Moharan, 26-50]") {
			t.Errorf("Answer = %q, want sources line", resp.Answer)
		}
		if !resp.Grounded {
			t.Error("Grounded = false, want true")
		}
	})

	t.Run("model admission", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gen := rag_mocks.NewMockGenerator(ctrl)
		engine := newTestEngine(t, gen, rag.DefaultConfig(), nil)

		gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(fr.Refusal, nil)

		resp, err := engine.Ask(context.Background(), rag.AskRequest{Question: lembergQuestion})
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if resp.Grounded || !resp.Abstained || resp.AbstainReason != rag.ReasonModelAbstained {
			t.Errorf("unexpected response %+v", resp)
		}
	})
}

func TestEngine_Ask_GenerationFailure(t *testing.T) {
	fr, _ := rag.PhrasesFor("fr")
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{name: "provider error", err: &llm.StatusError{StatusCode: 503, Body: "overloaded"}},
		{name: "empty output", out: "  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gen := rag_mocks.NewMockGenerator(ctrl)
			engine := newTestEngine(t, gen, rag.DefaultConfig(), metrics.New())

			gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.out, tt.err)

			resp, err := engine.Ask(context.Background(), rag.AskRequest{Question: lembergQuestion})
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if !resp.Abstained || resp.AbstainReason != rag.ReasonGenerationFailed {
				t.Errorf("Abstained = %v (%s)", resp.Abstained, resp.AbstainReason)
			}
			if !strings.HasPrefix(resp.Answer, fr.GenerationFailed) || !strings.Contains(resp.Answer, "[Chayei Moharan, 1-30]") {
				t.Errorf("Answer = %q", resp.Answer)
			}
			if len(resp.Sources) != 2 {
				t.Errorf("Sources = %d, want 2", len(resp.Sources))
			}
		})
	}
}

func TestEngine_Ask_General(t *testing.T) {
	fr, _ := rag.PhrasesFor("fr")
	tests := []struct {
		name       string
		out        string
		wantAnswer string
		wantReason string
	}{
		{
			name:       "disclosed general answer",
			out:        fr.FallbackDisclosure + "\n\nLa vie a un sens.",
			wantAnswer: fr.FallbackDisclosure + "\n\nLa vie a un sens.",
		},
		{
			name:       "undisclosed answer refused",
			out:        "La vie a un sens.",
			wantAnswer: fr.Refusal,
			wantReason: rag.ReasonUngrounded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gen := rag_mocks.NewMockGenerator(ctrl)
			engine := newTestEngine(t, gen, rag.DefaultConfig(), nil)

			gen.EXPECT().
				Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, system, user string, _ llm.ChatParams) (string, error) {
					if !strings.Contains(system, fr.FallbackDisclosure) {
						t.Error("fallback instructions should quote the disclosure")
					}
					if !strings.Contains(user, fr.NoPartialContext) {
						t.Error("empty partial context should be stated")
					}
					return tt.out, nil
				})

			resp, err := engine.Ask(context.Background(), rag.AskRequest{Question: "Quelle est la signification de la vie ?", Debug: true})
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if resp.Strategy != rag.StrategyGeneral {
				t.Errorf("Strategy = %s, want general", resp.Strategy)
			}
			if resp.Answer != tt.wantAnswer {
				t.Errorf("Answer = %q, want %q", resp.Answer, tt.wantAnswer)
			}
			if resp.Grounded {
				t.Error("general answer reported as grounded")
			}
			if resp.AbstainReason != tt.wantReason {
				t.Errorf("AbstainReason = %q, want %q", resp.AbstainReason, tt.wantReason)
			}
			if resp.Debug == nil || resp.Debug.Template != rag.TemplateFallback || resp.Debug.MaxResults != 3 {
				t.Errorf("Debug = %+v", resp.Debug)
			}
		})
	}
}

func TestEngine_Ask_TryThenFallback(t *testing.T) {
	tests := []struct {
		name         string
		tryMinScore  float64
		wantTemplate string
		wantGrounded bool
	}{
		{name: "top passage clears threshold", tryMinScore: 30, wantTemplate: rag.TemplateStrict, wantGrounded: true},
		{name: "top passage below threshold", tryMinScore: 1000, wantTemplate: rag.TemplateFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gen := rag_mocks.NewMockGenerator(ctrl)
			cfg := rag.DefaultConfig()
			cfg.TryMinScore = tt.tryMinScore
			engine := newTestEngine(t, gen, cfg, nil)

			gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("Il partit pour Lemberg.", nil)

			resp, err := engine.Ask(context.Background(), rag.AskRequest{
				Question: "Lemberg",
				Strategy: string(rag.StrategyTryThenFallback),
				Debug:    true,
			})
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if resp.Debug.Template != tt.wantTemplate {
				t.Errorf("Template = %s, want %s", resp.Debug.Template, tt.wantTemplate)
			}
			if resp.Debug.Classified != rag.StrategyForceRetrieval || resp.Strategy != rag.StrategyTryThenFallback {
				t.Errorf("Classified = %s, Strategy = %s", resp.Debug.Classified, resp.Strategy)
			}
			if resp.Grounded != tt.wantGrounded {
				t.Errorf("Grounded = %v, want %v", resp.Grounded, tt.wantGrounded)
			}
			if !strings.Contains(resp.Answer, "[Chayei Moharan, 1-30]") {
				t.Errorf("passages used but answer uncited: %q", resp.Answer)
			}
			if got := resp.Debug.RetrievedChunks; len(got) != 2 || got[0].Rank != 1 || got[0].Score < got[1].Score {
				t.Errorf("RetrievedChunks = %+v", got)
			}
		})
	}
}

func TestEngine_Ask_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     rag.AskRequest
		wantErr error
	}{
		{name: "empty question", req: rag.AskRequest{Question: "  "}, wantErr: rag.ErrEmptyQuery},
		{name: "unsupported language", req: rag.AskRequest{Question: "Lemberg", Language: "de"}, wantErr: rag.ErrUnsupportedLanguage},
		{name: "invalid strategy", req: rag.AskRequest{Question: "Lemberg", Strategy: "vector"}, wantErr: rag.ErrInvalidStrategy},
		{name: "unknown scope", req: rag.AskRequest{Question: "Lemberg", Books: []string{"zohar"}}, wantErr: rag.ErrScopeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			engine := newTestEngine(t, rag_mocks.NewMockGenerator(ctrl), rag.DefaultConfig(), nil)

			if _, err := engine.Ask(context.Background(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Ask() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngine_Ask_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := rag_mocks.NewMockGenerator(ctrl)
	engine := newTestEngine(t, gen, rag.DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, _ llm.ChatParams) (string, error) {
			cancel()
			return "", ctx.Err()
		})

	if _, err := engine.Ask(ctx, rag.AskRequest{Question: lembergQuestion}); !errors.Is(err, context.Canceled) {
		t.Errorf("Ask() error = %v, want context.Canceled", err)
	}
}

func TestEngine_Ask_English(t *testing.T) {
	en, _ := rag.PhrasesFor("en")
	ctrl := gomock.NewController(t)
	engine := newTestEngine(t, rag_mocks.NewMockGenerator(ctrl), rag.DefaultConfig(), nil)

	resp, err := engine.Ask(context.Background(), rag.AskRequest{
		Question: "xyzxyz",
		Strategy: string(rag.StrategyForceRetrieval),
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != en.Refusal || resp.Language != "en" {
		t.Errorf("Answer = %q, Language = %s", resp.Answer, resp.Language)
	}
}

func TestEngine_Retrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := newTestEngine(t, rag_mocks.NewMockGenerator(ctrl), rag.DefaultConfig(), nil)

	res, err := engine.Retrieve(context.Background(), rag.RetrieveRequest{Query: "Lemberg", MaxResults: 1})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(res.Passages) != 1 || res.Passages[0].Reference == "" {
		t.Errorf("Passages = %+v", res.Passages)
	}

	if _, err := engine.Retrieve(context.Background(), rag.RetrieveRequest{Query: "Lemberg", Language: "de"}); !errors.Is(err, rag.ErrUnsupportedLanguage) {
		t.Errorf("Retrieve() error = %v, want ErrUnsupportedLanguage", err)
	}
}
