package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_audio_store.go -package=mocks breslov-ai/internal/storage AudioStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// AudioStore caches synthesized speech.
type AudioStore interface {
	// GetByKey returns cached audio for (language, textHash). Returns ErrNotFound if absent.
	GetByKey(ctx context.Context, language, textHash string) (*AudioRecord, error)
	// GetByID returns cached audio by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*AudioRecord, error)
	// Insert stores audio, assigning an id when rec.ID is empty.
	Insert(ctx context.Context, rec *AudioRecord) error
}

// AudioRepo implements AudioStore on SQLite.
type AudioRepo struct {
	db *sql.DB
}

// NewAudioRepo creates a new AudioRepo.
func NewAudioRepo(db *sql.DB) *AudioRepo {
	return &AudioRepo{db: db}
}

const audioColumns = "id, language, text_hash, voice, content_type, audio, created_at"

func scanAudio(row *sql.Row) (*AudioRecord, error) {
	var rec AudioRecord
	var createdAtStr string
	err := row.Scan(&rec.ID, &rec.Language, &rec.TextHash, &rec.Voice, &rec.ContentType, &rec.Audio, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audio: %w", err)
	}
	if rec.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	return &rec, nil
}

// GetByKey returns cached audio for (language, textHash).
func (r *AudioRepo) GetByKey(ctx context.Context, language, textHash string) (*AudioRecord, error) {
	return scanAudio(r.db.QueryRowContext(ctx,
		"SELECT "+audioColumns+" FROM audio_cache WHERE language = ? AND text_hash = ?", language, textHash))
}

// GetByID returns cached audio by id.
func (r *AudioRepo) GetByID(ctx context.Context, id string) (*AudioRecord, error) {
	return scanAudio(r.db.QueryRowContext(ctx,
		"SELECT "+audioColumns+" FROM audio_cache WHERE id = ?", id))
}

// Insert stores audio. An existing entry for the same (language, textHash) is replaced.
func (r *AudioRepo) Insert(ctx context.Context, rec *AudioRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audio_cache (id, language, text_hash, voice, content_type, audio, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (language, text_hash) DO UPDATE SET
		 id = excluded.id, voice = excluded.voice, content_type = excluded.content_type,
		 audio = excluded.audio, created_at = CURRENT_TIMESTAMP`,
		rec.ID, rec.Language, rec.TextHash, rec.Voice, rec.ContentType, rec.Audio,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audio: %w", err)
	}
	return nil
}
