package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"breslov-ai/internal/cache"
	"breslov-ai/internal/library"
	"breslov-ai/internal/llm"
	"breslov-ai/internal/service"
	service_mocks "breslov-ai/internal/service/mocks"
	"breslov-ai/internal/storage"
	storage_mocks "breslov-ai/internal/storage/mocks"
)

const frenchText = "Rabbi Nahman partit pour Lemberg afin de consulter les médecins."

func testRegistry() *library.Registry {
	reg := library.NewRegistry()
	reg.Put(&library.Document{ID: "chayei", Language: library.LanguageFrench}, []library.Chunk{
		{ID: "chayei_chunk_0", DocumentID: "chayei", Content: frenchText},
	})
	reg.Put(&library.Document{ID: "etzot", Language: library.LanguageHebrew}, []library.Chunk{
		{ID: "etzot_chunk_0", DocumentID: "etzot", Content: "שמחה היא מצוה גדולה", RTL: true},
	})
	return reg
}

func TestTranslationService_AlreadyInTargetScript(t *testing.T) {
	tests := []struct {
		name    string
		chunkID string
		lang    string
	}{
		{name: "french chunk to french", chunkID: "chayei_chunk_0", lang: "fr"},
		{name: "hebrew chunk to hebrew", chunkID: "etzot_chunk_0", lang: "he"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			llmClient := service_mocks.NewMockLLMClient(ctrl)
			store := storage_mocks.NewMockTranslationStore(ctrl)
			svc := service.NewTranslationService(testRegistry(), store, llmClient, nil, nil)

			resp, err := svc.Translate(context.Background(), service.TranslateRequest{ChunkID: tt.chunkID, Language: tt.lang})
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if resp.Translated || resp.FromCache {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestTranslationService_Translate(t *testing.T) {
	ctx := context.Background()
	req := service.TranslateRequest{ChunkID: "chayei_chunk_0", Language: "en"}
	const english = "Rabbi Nachman left for Lemberg to consult the doctors."

	t.Run("generated then memoized", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llmClient := service_mocks.NewMockLLMClient(ctrl)
		store := storage_mocks.NewMockTranslationStore(ctrl)
		svc := service.NewTranslationService(testRegistry(), store, llmClient, cache.New[string](time.Minute), nil)

		gomock.InOrder(
			store.EXPECT().Get(gomock.Any(), "chayei_chunk_0", "en", gomock.Any()).Return(nil, storage.ErrNotFound),
			llmClient.EXPECT().
				Generate(gomock.Any(), gomock.Any(), frenchText, llm.ChatParams{Temperature: 0.2, MaxTokens: 2048}).
				Return("  "+english+"\n", nil),
			store.EXPECT().Put(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, rec *storage.TranslationRecord) error {
					if rec.Text != english || rec.SourceHash == "" {
						t.Errorf("stored record = %+v", rec)
					}
					return nil
				}),
		)

		first, err := svc.Translate(ctx, req)
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if first.Text != english || !first.Translated || first.FromCache {
			t.Errorf("first = %+v", first)
		}

		second, err := svc.Translate(ctx, req)
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if second.Text != english || !second.FromCache {
			t.Errorf("second = %+v", second)
		}
	})

	t.Run("stored translation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llmClient := service_mocks.NewMockLLMClient(ctrl)
		store := storage_mocks.NewMockTranslationStore(ctrl)
		svc := service.NewTranslationService(testRegistry(), store, llmClient, nil, nil)

		store.EXPECT().Get(gomock.Any(), "chayei_chunk_0", "en", gomock.Any()).
			Return(&storage.TranslationRecord{Text: english}, nil)

		resp, err := svc.Translate(ctx, req)
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if resp.Text != english || !resp.FromCache {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("store read failure falls through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llmClient := service_mocks.NewMockLLMClient(ctrl)
		store := storage_mocks.NewMockTranslationStore(ctrl)
		svc := service.NewTranslationService(testRegistry(), store, llmClient, nil, nil)

		store.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("database is locked"))
		llmClient.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(english, nil)
		store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("database is locked"))

		resp, err := svc.Translate(ctx, req)
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if resp.Text != english {
			t.Errorf("Text = %q", resp.Text)
		}
	})

	t.Run("generation failure returns original uncached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llmClient := service_mocks.NewMockLLMClient(ctrl)
		svc := service.NewTranslationService(testRegistry(), nil, llmClient, cache.New[string](time.Minute), nil)

		llmClient.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", &llm.StatusError{StatusCode: 502, Body: "bad gateway"}).Times(2)

		for i := 0; i < 2; i++ {
			resp, err := svc.Translate(ctx, req)
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if resp.Text != frenchText || resp.Translated {
				t.Errorf("resp = %+v", resp)
			}
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llmClient := service_mocks.NewMockLLMClient(ctrl)
		svc := service.NewTranslationService(testRegistry(), nil, llmClient, nil, nil)

		cctx, cancel := context.WithCancel(ctx)
		llmClient.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _, _ string, _ llm.ChatParams) (string, error) {
				cancel()
				return "", ctx.Err()
			})

		if _, err := svc.Translate(cctx, req); !errors.Is(err, context.Canceled) {
			t.Errorf("Translate() error = %v, want context.Canceled", err)
		}
	})
}

func TestTranslationService_InvalidRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := service.NewTranslationService(testRegistry(), nil, service_mocks.NewMockLLMClient(ctrl), nil, nil)

	tests := []struct {
		name      string
		req       service.TranslateRequest
		wantField string
		wantErr   error
	}{
		{name: "empty chunk id", req: service.TranslateRequest{Language: "en"}, wantField: "chunk_id"},
		{name: "unsupported language", req: service.TranslateRequest{ChunkID: "chayei_chunk_0", Language: "de"}, wantField: "language"},
		{name: "unknown chunk", req: service.TranslateRequest{ChunkID: "zohar_chunk_0", Language: "en"}, wantErr: service.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Translate(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Translate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			var verr *service.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Errorf("Translate() error = %v, want validation error on %s", err, tt.wantField)
			}
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Errorf("Translate() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
