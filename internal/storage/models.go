package storage

import "time"

// BookRecord is the persisted form of a loaded document.
type BookRecord struct {
	ID        string
	File      string
	Language  string
	TitleFR   string
	TitleEN   string
	TitleHE   string
	Hash      string // SHA256 hex string of file content
	LineCount int
	CharCount int
	UpdatedAt time.Time
}

// ChunkRecord is the persisted form of a chunk.
type ChunkRecord struct {
	ID         string
	BookID     string
	ChunkIndex int
	StartLine  int
	EndLine    int // exclusive
	Content    string
	Keywords   []string
	RTL        bool
}

// SearchHit is a chunk matched by ChunkStore.Search.
type SearchHit struct {
	Chunk     ChunkRecord
	BookTitle string
	Score     float64
}

// TranslationRecord caches the translation of a chunk into one language.
type TranslationRecord struct {
	ChunkID    string
	Language   string
	SourceHash string // hash of the chunk content the translation was made from
	Text       string
	CreatedAt  time.Time
}

// AudioRecord caches synthesized speech.
type AudioRecord struct {
	ID          string
	Language    string
	TextHash    string
	Voice       string
	ContentType string
	Audio       []byte
	CreatedAt   time.Time
}
