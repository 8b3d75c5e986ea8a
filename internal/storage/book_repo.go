package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_book_store.go -package=mocks breslov-ai/internal/storage BookStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// BookStore defines the interface for book storage operations.
type BookStore interface {
	// GetByID gets a book by id. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*BookRecord, error)
	// Upsert inserts a new book or updates an existing one.
	Upsert(ctx context.Context, book *BookRecord) error
	// List returns all books ordered by id.
	List(ctx context.Context) ([]*BookRecord, error)
	// Delete removes a book and, through the foreign key, its chunks.
	Delete(ctx context.Context, id string) error
}

// BookRepo provides methods for book operations.
// It implements the BookStore interface.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo creates a new BookRepo.
func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db}
}

// DB returns the underlying database handle.
func (r *BookRepo) DB() *sql.DB {
	return r.db
}

const bookColumns = "id, file, language, title_fr, title_en, title_he, hash, line_count, char_count, updated_at"

func scanBook(row interface{ Scan(...any) error }) (*BookRecord, error) {
	var book BookRecord
	var updatedAtStr string
	if err := row.Scan(&book.ID, &book.File, &book.Language, &book.TitleFR, &book.TitleEN, &book.TitleHE,
		&book.Hash, &book.LineCount, &book.CharCount, &updatedAtStr); err != nil {
		return nil, err
	}
	updatedAt, err := parseTimestamp(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}
	book.UpdatedAt = updatedAt
	return &book, nil
}

// GetByID gets a book by id. Returns ErrNotFound if not found.
func (r *BookRepo) GetByID(ctx context.Context, id string) (*BookRecord, error) {
	book, err := scanBook(r.db.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query book: %w", err)
	}
	return book, nil
}

// Upsert inserts a new book or updates an existing one, keyed by id.
func (r *BookRepo) Upsert(ctx context.Context, book *BookRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, file, language, title_fr, title_en, title_he, hash, line_count, char_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET
		 file = excluded.file, language = excluded.language,
		 title_fr = excluded.title_fr, title_en = excluded.title_en, title_he = excluded.title_he,
		 hash = excluded.hash, line_count = excluded.line_count, char_count = excluded.char_count,
		 updated_at = CURRENT_TIMESTAMP`,
		book.ID, book.File, book.Language, book.TitleFR, book.TitleEN, book.TitleHE,
		book.Hash, book.LineCount, book.CharCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert book: %w", err)
	}
	return nil
}

// List returns all books ordered by id.
func (r *BookRepo) List(ctx context.Context) ([]*BookRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+bookColumns+" FROM books ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var books []*BookRecord
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return books, nil
}

// Delete removes a book and its chunks. Deleting an absent book is not an error.
func (r *BookRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}
