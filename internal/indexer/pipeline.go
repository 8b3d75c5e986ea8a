package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"breslov-ai/internal/config"
	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/library"
	"breslov-ai/internal/metrics"
	"breslov-ai/internal/storage"
)

// LoadReport summarizes a LoadAll run.
type LoadReport struct {
	Loaded     int      `json:"loaded"`
	Missing    []string `json:"missing,omitempty"`
	Failed     []string `json:"failed,omitempty"`
	Discovered []string `json:"discovered,omitempty"`
	Chunks     int      `json:"chunks"`
}

// Pipeline loads book files, chunks them, publishes them to the registry and
// mirrors them into SQLite.
type Pipeline struct {
	dir       string
	books     []config.BookConfig
	chunker   *LineChunker
	markdown  *MarkdownFlattener
	registry  *library.Registry
	bookRepo  storage.BookStore
	chunkRepo storage.ChunkStore
	metrics   *metrics.Metrics

	// mu serializes loads so a watcher event and a startup load of the same
	// book cannot interleave their persistence.
	mu sync.Mutex
}

// NewPipeline creates a new loading pipeline. bookRepo and chunkRepo may be nil,
// in which case documents are only held in memory.
func NewPipeline(
	dir string,
	books []config.BookConfig,
	chunker *LineChunker,
	registry *library.Registry,
	bookRepo storage.BookStore,
	chunkRepo storage.ChunkStore,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		dir:       dir,
		books:     books,
		chunker:   chunker,
		markdown:  NewMarkdownFlattener(),
		registry:  registry,
		bookRepo:  bookRepo,
		chunkRepo: chunkRepo,
		metrics:   m,
	}
}

// Dir returns the library directory.
func (p *Pipeline) Dir() string {
	return p.dir
}

// getLogger extracts logger from context or returns default logger.
func (p *Pipeline) getLogger(ctx context.Context) *slog.Logger {
	return contextutil.LoggerFromContext(ctx)
}

// LoadBook reads, chunks and publishes one book. The registry only ever sees
// the complete chunk set. Persistence is skipped when the stored index hash is
// unchanged.
func (p *Pipeline) LoadBook(ctx context.Context, book config.BookConfig) (*library.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadBook(ctx, book)
}

func (p *Pipeline) loadBook(ctx context.Context, book config.BookConfig) (*library.Document, error) {
	logger := p.getLogger(ctx)
	start := time.Now()

	path := filepath.Join(p.dir, filepath.FromSlash(book.File))
	doc, err := readDocument(path, book, p.markdown)
	if err != nil {
		return nil, err
	}

	chunks := p.chunker.Chunk(doc)
	p.registry.Put(doc, chunks)
	p.updateLibraryGauges()

	if len(chunks) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "book_id", doc.ID, "lines", len(doc.Lines))
	}

	if err := p.persist(ctx, doc, chunks); err != nil {
		return doc, fmt.Errorf("failed to persist book %s: %w", doc.ID, err)
	}

	logger.InfoContext(ctx, "loaded book",
		"book_id", doc.ID,
		"title", doc.Title("fr"),
		"lines", len(doc.Lines),
		"chunks", len(chunks),
		"language", doc.Language,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// indexHash identifies a document version together with the chunking policy,
// so a change to either forces the SQLite mirror to be rebuilt.
func (p *Pipeline) indexHash(doc *library.Document) string {
	opts := p.chunker.Options()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|size=%d|overlap=%d|min=%d",
		doc.Hash, ChunkerVersion, opts.Size, opts.Overlap, opts.MinContent)))
	return hex.EncodeToString(sum[:])
}

func (p *Pipeline) persist(ctx context.Context, doc *library.Document, chunks []library.Chunk) error {
	if p.bookRepo == nil || p.chunkRepo == nil {
		return nil
	}
	logger := p.getLogger(ctx)
	hash := p.indexHash(doc)

	existing, err := p.bookRepo.GetByID(ctx, doc.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to check existing book: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		logger.DebugContext(ctx, "skipping unchanged book", "book_id", doc.ID, "hash", hash)
		return nil
	}

	record := &storage.BookRecord{
		ID:        doc.ID,
		File:      doc.File,
		Language:  string(doc.Language),
		TitleFR:   doc.Titles["fr"],
		TitleEN:   doc.Titles["en"],
		TitleHE:   doc.Titles["he"],
		Hash:      hash,
		LineCount: len(doc.Lines),
		CharCount: len([]rune(doc.Text)),
	}
	if err := p.bookRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert book: %w", err)
	}

	records := make([]*storage.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = &storage.ChunkRecord{
			ID:         c.ID,
			BookID:     c.DocumentID,
			ChunkIndex: c.Index,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			Content:    c.Content,
			Keywords:   c.Keywords,
			RTL:        c.RTL,
		}
	}
	if err := p.chunkRepo.ReplaceForBook(ctx, doc.ID, records); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

// LoadAll loads every catalog book, then every supported file in the library
// directory that the catalog does not name. Missing and unreadable files are
// logged and skipped; an error is returned only when some books failed for
// another reason or ctx was cancelled.
func (p *Pipeline) LoadAll(ctx context.Context) (*LoadReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger := p.getLogger(ctx)
	report := &LoadReport{}
	logger.InfoContext(ctx, "starting library load", "dir", p.dir, "catalog_books", len(p.books))

	known := make(map[string]struct{}, len(p.books))
	ids := make(map[string]struct{}, len(p.books))

	load := func(book config.BookConfig) {
		doc, err := p.loadBook(ctx, book)
		switch {
		case err == nil:
			report.Loaded++
			p.metrics.RecordBookLoad("loaded")
		case errors.Is(err, fs.ErrNotExist):
			report.Missing = append(report.Missing, book.ID)
			p.metrics.RecordBookLoad("missing")
			logger.WarnContext(ctx, "book file not found", "book_id", book.ID, "file", book.File)
		case doc != nil:
			// Published but not persisted: still usable for retrieval.
			report.Loaded++
			report.Failed = append(report.Failed, book.ID)
			p.metrics.RecordBookLoad("failed")
			logger.ErrorContext(ctx, "failed to persist book", "book_id", book.ID, "error", err)
		default:
			report.Failed = append(report.Failed, book.ID)
			p.metrics.RecordBookLoad("failed")
			logger.ErrorContext(ctx, "failed to load book", "book_id", book.ID, "error", err)
		}
	}

	for _, book := range p.books {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		known[filepath.ToSlash(book.File)] = struct{}{}
		ids[book.ID] = struct{}{}
		load(book)
	}

	files, err := scanLibrary(ctx, p.dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		logger.WarnContext(ctx, "failed to scan library directory", "dir", p.dir, "error", err)
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, ok := known[f.RelPath]; ok {
			continue
		}
		book := config.BookConfig{ID: BookIDFromFile(f.RelPath), File: f.RelPath}
		if _, taken := ids[book.ID]; taken {
			logger.WarnContext(ctx, "skipping file with conflicting book id", "file", f.RelPath, "book_id", book.ID)
			continue
		}
		ids[book.ID] = struct{}{}
		report.Discovered = append(report.Discovered, book.ID)
		load(book)
	}

	for _, id := range p.registry.IDs() {
		if c, err := p.registry.Chunks(id); err == nil {
			report.Chunks += len(c)
		}
	}

	logger.InfoContext(ctx, "library load completed",
		"loaded", report.Loaded,
		"missing", len(report.Missing),
		"failed", len(report.Failed),
		"discovered", len(report.Discovered),
		"chunks", report.Chunks,
	)

	if len(report.Failed) > 0 {
		return report, fmt.Errorf("library load completed with %d errors", len(report.Failed))
	}
	return report, nil
}

// bookForFile resolves the catalog entry for a path inside the library
// directory, deriving one from the file name when the catalog has none.
func (p *Pipeline) bookForFile(path string) (config.BookConfig, error) {
	rel, err := filepath.Rel(p.dir, path)
	if err != nil {
		return config.BookConfig{}, fmt.Errorf("failed to compute relative path for %s: %w", path, err)
	}
	rel = filepath.ToSlash(rel)
	for _, b := range p.books {
		if filepath.ToSlash(b.File) == rel {
			return b, nil
		}
	}
	return config.BookConfig{ID: BookIDFromFile(rel), File: rel}, nil
}

// LoadFile (re)loads the book stored at path.
func (p *Pipeline) LoadFile(ctx context.Context, path string) (*library.Document, error) {
	book, err := p.bookForFile(path)
	if err != nil {
		return nil, err
	}
	return p.LoadBook(ctx, book)
}

// RemoveFile unloads the book stored at path and deletes its SQLite mirror.
func (p *Pipeline) RemoveFile(ctx context.Context, path string) error {
	book, err := p.bookForFile(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.registry.Remove(book.ID) {
		return nil
	}
	p.updateLibraryGauges()
	p.getLogger(ctx).InfoContext(ctx, "unloaded book", "book_id", book.ID)

	if p.bookRepo != nil {
		if err := p.bookRepo.Delete(ctx, book.ID); err != nil {
			return fmt.Errorf("failed to delete book %s: %w", book.ID, err)
		}
	}
	return nil
}

func (p *Pipeline) updateLibraryGauges() {
	if p.metrics == nil {
		return
	}
	ids := p.registry.IDs()
	chunks := 0
	for _, id := range ids {
		if c, err := p.registry.Chunks(id); err == nil {
			chunks += len(c)
		}
	}
	p.metrics.SetLibrarySize(len(ids), chunks)
}
