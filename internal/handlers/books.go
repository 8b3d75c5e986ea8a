package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/library"
)

const (
	defaultChunkPage = 20
	maxChunkPage     = 100
)

// BooksHandler serves the loaded library.
type BooksHandler struct {
	registry        *library.Registry
	defaultLanguage string
}

// NewBooksHandler creates a new BooksHandler.
func NewBooksHandler(registry *library.Registry, defaultLanguage string) *BooksHandler {
	return &BooksHandler{registry: registry, defaultLanguage: defaultLanguage}
}

// BookResponse describes one loaded book.
//
// swagger:model BookResponse
type BookResponse struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Titles   map[string]string     `json:"titles"`
	Language string                `json:"language"`
	File     string                `json:"file"`
	Stats    library.DocumentStats `json:"stats"`
}

// BooksResponse lists the loaded books.
//
// swagger:model BooksResponse
type BooksResponse struct {
	Books []BookResponse `json:"books"`
}

// ChunkResponse is one chunk of a book.
//
// swagger:model ChunkResponse
type ChunkResponse struct {
	ID        string   `json:"id"`
	Index     int      `json:"index"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Reference string   `json:"reference"`
	Content   string   `json:"content"`
	Keywords  []string `json:"keywords"`
	RTL       bool     `json:"rtl"`
}

// ChunksResponse is a page of chunks.
//
// swagger:model ChunksResponse
type ChunksResponse struct {
	BookID string          `json:"book_id"`
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Limit  int             `json:"limit"`
	Chunks []ChunkResponse `json:"chunks"`
}

func (h *BooksHandler) language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return h.defaultLanguage
}

func (h *BooksHandler) bookResponse(doc *library.Document, lang string) BookResponse {
	stats, _ := h.registry.Stats(doc.ID)
	return BookResponse{
		ID:       doc.ID,
		Title:    doc.Title(lang),
		Titles:   doc.Titles,
		Language: string(doc.Language),
		File:     doc.File,
		Stats:    stats,
	}
}

// List handles GET /api/v1/books.
//
// swagger:route GET /api/v1/books listBooks
//
// Lists the loaded books with titles, language and line, chunk and character counts.
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/BooksResponse"
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	lang := h.language(r)
	docs := h.registry.Documents()
	books := make([]BookResponse, 0, len(docs))
	for _, doc := range docs {
		books = append(books, h.bookResponse(doc, lang))
	}
	writeJSON(r.Context(), w, BooksResponse{Books: books})
}

// Get handles GET /api/v1/books/{bookID}.
//
// swagger:route GET /api/v1/books/{bookID} getBook
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/BookResponse"
//	'404':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := h.registry.Document(chi.URLParam(r, "bookID"))
	if err != nil {
		handleError(ctx, w, err, "Failed to get book")
		return
	}
	writeJSON(ctx, w, h.bookResponse(doc, h.language(r)))
}

// Chunks handles GET /api/v1/books/{bookID}/chunks?offset=&limit=.
//
// swagger:route GET /api/v1/books/{bookID}/chunks listChunks
//
// Pages through the chunks of a book in reading order.
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/ChunksResponse"
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *BooksHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	bookID := chi.URLParam(r, "bookID")

	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		logger.WarnContext(ctx, "invalid offset", "offset", r.URL.Query().Get("offset"))
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := intParam(r, "limit", defaultChunkPage)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxChunkPage)

	doc, err := h.registry.Document(bookID)
	if err != nil {
		handleError(ctx, w, err, "Failed to get book")
		return
	}
	chunks, err := h.registry.Chunks(bookID)
	if err != nil {
		handleError(ctx, w, err, "Failed to list chunks")
		return
	}

	title := doc.Title(h.language(r))
	resp := ChunksResponse{
		BookID: bookID,
		Total:  len(chunks),
		Offset: offset,
		Limit:  limit,
		Chunks: []ChunkResponse{},
	}
	for i := offset; i < len(chunks) && i < offset+limit; i++ {
		c := chunks[i]
		resp.Chunks = append(resp.Chunks, ChunkResponse{
			ID:        c.ID,
			Index:     c.Index,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Reference: c.Reference(title),
			Content:   c.Content,
			Keywords:  c.Keywords,
			RTL:       c.RTL,
		})
	}
	writeJSON(ctx, w, resp)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
