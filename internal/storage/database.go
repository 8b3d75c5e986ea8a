package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			file TEXT NOT NULL,
			language TEXT NOT NULL,
			title_fr TEXT NOT NULL DEFAULT '',
			title_en TEXT NOT NULL DEFAULT '',
			title_he TEXT NOT NULL DEFAULT '',
			hash TEXT NOT NULL,
			line_count INTEGER NOT NULL DEFAULT 0,
			char_count INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			content TEXT NOT NULL,
			keywords TEXT NOT NULL DEFAULT '',
			rtl INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_book ON chunks (book_id, chunk_index);`,
		`CREATE TABLE IF NOT EXISTS translations (
			chunk_id TEXT NOT NULL,
			language TEXT NOT NULL,
			source_hash TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (chunk_id, language)
		);`,
		`CREATE TABLE IF NOT EXISTS audio_cache (
			id TEXT PRIMARY KEY,
			language TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			voice TEXT NOT NULL,
			content_type TEXT NOT NULL,
			audio BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (language, text_hash)
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func parseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", raw)
	if err == nil {
		return t, nil
	}
	// SQLite might return RFC3339 depending on driver settings
	return time.Parse(time.RFC3339, raw)
}
