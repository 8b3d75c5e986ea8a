package storage

import (
	"context"
	"errors"
	"testing"
)

func TestTranslationRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewTranslationRepo(newTestDB(t))

	if _, err := repo.Get(ctx, "c1", "fr", "h1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := repo.Put(ctx, &TranslationRecord{ChunkID: "c1", Language: "fr", SourceHash: "h1", Text: "bonjour"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := repo.Get(ctx, "c1", "fr", "h1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Text != "bonjour" || got.CreatedAt.IsZero() {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := repo.Get(ctx, "c1", "fr", "h2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() with stale hash error = %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(ctx, "c1", "en", "h1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() other language error = %v, want ErrNotFound", err)
	}

	if err := repo.Put(ctx, &TranslationRecord{ChunkID: "c1", Language: "fr", SourceHash: "h2", Text: "salut"}); err != nil {
		t.Fatalf("Put() replace error = %v", err)
	}
	got, err = repo.Get(ctx, "c1", "fr", "h2")
	if err != nil || got.Text != "salut" {
		t.Errorf("Get() after replace = %+v, %v", got, err)
	}
}
