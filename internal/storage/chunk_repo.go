package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks breslov-ai/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// ReplaceForBook atomically replaces every chunk of a book.
	ReplaceForBook(ctx context.Context, bookID string, chunks []*ChunkRecord) error
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// ListByBook pages through the chunks of a book in chunk order.
	ListByBook(ctx context.Context, bookID string, offset, limit int) ([]*ChunkRecord, error)
	// CountByBook returns the number of chunks stored for a book.
	CountByBook(ctx context.Context, bookID string) (int, error)
	// Search runs a case-insensitive substring match over chunk content,
	// book titles and keywords.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// DB returns the underlying database handle.
func (r *ChunkRepo) DB() *sql.DB {
	return r.db
}

// ReplaceForBook deletes the existing chunks of bookID and inserts chunks in a
// single transaction.
func (r *ChunkRepo) ReplaceForBook(ctx context.Context, bookID string, chunks []*ChunkRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE book_id = ?", bookID); err != nil {
		return fmt.Errorf("failed to delete chunks by book: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, book_id, chunk_index, start_line, end_line, content, keywords, rtl)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, c := range chunks {
		if c.BookID != bookID {
			return fmt.Errorf("chunk %s belongs to book %s, not %s", c.ID, c.BookID, bookID)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.BookID, c.ChunkIndex, c.StartLine, c.EndLine,
			c.Content, strings.Join(c.Keywords, " "), c.RTL); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

const chunkColumns = "c.id, c.book_id, c.chunk_index, c.start_line, c.end_line, c.content, c.keywords, c.rtl"

func scanChunk(row interface{ Scan(...any) error }, extra ...any) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var keywords string
	dest := append([]any{&chunk.ID, &chunk.BookID, &chunk.ChunkIndex, &chunk.StartLine, &chunk.EndLine,
		&chunk.Content, &keywords, &chunk.RTL}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	chunk.Keywords = strings.Fields(keywords)
	return &chunk, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	chunk, err := scanChunk(r.db.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks c WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	return chunk, nil
}

// ListByBook returns up to limit chunks of a book starting at offset, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListByBook(ctx context.Context, bookID string, offset, limit int) ([]*ChunkRecord, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks c WHERE c.book_id = ? ORDER BY c.chunk_index LIMIT ? OFFSET ?",
		bookID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := []*ChunkRecord{}
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return chunks, nil
}

// CountByBook returns the number of chunks stored for a book.
func (r *ChunkRepo) CountByBook(ctx context.Context, bookID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE book_id = ?", bookID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Search matches query as a substring of chunk content (score 1.0), book
// title (0.8) or chunk keywords (0.6). Results are ordered by score then
// chunk position.
func (r *ChunkRepo) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(query) + "%"

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkColumns+`, COALESCE(NULLIF(b.title_fr, ''), NULLIF(b.title_en, ''), NULLIF(b.title_he, ''), b.id),
		 CASE
		   WHEN c.content LIKE ? ESCAPE '\' THEN 1.0
		   WHEN b.title_fr LIKE ? ESCAPE '\' OR b.title_en LIKE ? ESCAPE '\' OR b.title_he LIKE ? ESCAPE '\' THEN 0.8
		   WHEN c.keywords LIKE ? ESCAPE '\' THEN 0.6
		   ELSE 0.0
		 END AS score
		 FROM chunks c JOIN books b ON b.id = c.book_id
		 WHERE score > 0
		 ORDER BY score DESC, c.book_id, c.chunk_index
		 LIMIT ?`,
		pattern, pattern, pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	hits := []SearchHit{}
	for rows.Next() {
		var hit SearchHit
		chunk, err := scanChunk(rows, &hit.BookTitle, &hit.Score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hit.Chunk = *chunk
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return hits, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
