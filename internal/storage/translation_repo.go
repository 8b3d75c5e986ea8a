package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_translation_store.go -package=mocks breslov-ai/internal/storage TranslationStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TranslationStore persists chunk translations across restarts.
type TranslationStore interface {
	// Get returns the translation of chunkID into language made from content
	// hashing to sourceHash. Returns ErrNotFound if absent or stale.
	Get(ctx context.Context, chunkID, language, sourceHash string) (*TranslationRecord, error)
	// Put stores or replaces a translation.
	Put(ctx context.Context, rec *TranslationRecord) error
}

// TranslationRepo implements TranslationStore on SQLite.
type TranslationRepo struct {
	db *sql.DB
}

// NewTranslationRepo creates a new TranslationRepo.
func NewTranslationRepo(db *sql.DB) *TranslationRepo {
	return &TranslationRepo{db: db}
}

// Get returns a stored translation. A translation made from different source
// content is treated as absent.
func (r *TranslationRepo) Get(ctx context.Context, chunkID, language, sourceHash string) (*TranslationRecord, error) {
	var rec TranslationRecord
	var createdAtStr string
	err := r.db.QueryRowContext(ctx,
		"SELECT chunk_id, language, source_hash, text, created_at FROM translations WHERE chunk_id = ? AND language = ?",
		chunkID, language,
	).Scan(&rec.ChunkID, &rec.Language, &rec.SourceHash, &rec.Text, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query translation: %w", err)
	}
	if rec.SourceHash != sourceHash {
		return nil, ErrNotFound
	}
	if rec.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	return &rec, nil
}

// Put stores or replaces a translation.
func (r *TranslationRepo) Put(ctx context.Context, rec *TranslationRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO translations (chunk_id, language, source_hash, text, created_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (chunk_id, language) DO UPDATE SET
		 source_hash = excluded.source_hash, text = excluded.text, created_at = CURRENT_TIMESTAMP`,
		rec.ChunkID, rec.Language, rec.SourceHash, rec.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to store translation: %w", err)
	}
	return nil
}
