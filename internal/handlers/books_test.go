package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func booksRouter() http.Handler {
	h := NewBooksHandler(testLibrary(), "fr")
	view := NewBookViewHandler(testLibrary(), "fr")
	r := chi.NewRouter()
	r.Get("/api/v1/books", h.List)
	r.Get("/api/v1/books/{bookID}", h.Get)
	r.Get("/api/v1/books/{bookID}/chunks", h.Chunks)
	r.Method(http.MethodGet, "/books/{bookID}", view)
	return r
}

func TestBooksHandler_List(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/books?lang=he", nil)
	w := httptest.NewRecorder()
	booksRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp BooksResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(resp.Books))
	}

	first := resp.Books[0]
	if first.ID != "chayei-moharan" || first.Title != "חיי מוהר\"ן" {
		t.Errorf("first book = %s %q", first.ID, first.Title)
	}
	if first.Stats.Lines != 50 || first.Stats.Chunks != 2 {
		t.Errorf("stats = %+v", first.Stats)
	}
	// No Hebrew title: falls back to French.
	if resp.Books[1].Title != "Likoutey Etsot" {
		t.Errorf("second title = %q", resp.Books[1].Title)
	}
}

func TestBooksHandler_Get(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantTitle  string
	}{
		{name: "existing book", path: "/api/v1/books/chayei-moharan", wantStatus: http.StatusOK, wantTitle: "Chayei Moharan"},
		{name: "unknown book", path: "/api/v1/books/zohar", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			booksRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantTitle != "" {
				var resp BookResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Title != tt.wantTitle || resp.Language != "french" {
					t.Errorf("resp = %+v", resp)
				}
			}
		})
	}
}

func TestBooksHandler_Chunks(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantIDs    []string
	}{
		{name: "default page", query: "", wantStatus: http.StatusOK, wantIDs: []string{"chayei-moharan_chunk_0", "chayei-moharan_chunk_25"}},
		{name: "offset", query: "?offset=1", wantStatus: http.StatusOK, wantIDs: []string{"chayei-moharan_chunk_25"}},
		{name: "limit", query: "?limit=1", wantStatus: http.StatusOK, wantIDs: []string{"chayei-moharan_chunk_0"}},
		{name: "past the end", query: "?offset=5", wantStatus: http.StatusOK, wantIDs: []string{}},
		{name: "negative offset", query: "?offset=-1", wantStatus: http.StatusBadRequest},
		{name: "invalid limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			booksRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/books/chayei-moharan/chunks"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp ChunksResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Total != 2 {
				t.Errorf("Total = %d, want 2", resp.Total)
			}
			var ids []string
			for _, c := range resp.Chunks {
				ids = append(ids, c.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("chunks = %v, want %v", ids, tt.wantIDs)
			}
		})
	}

	t.Run("reference uses title", func(t *testing.T) {
		w := httptest.NewRecorder()
		booksRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/books/chayei-moharan/chunks?offset=1", nil))
		var resp ChunksResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Chunks[0].Reference != "Chayei Moharan, 26-50" {
			t.Errorf("Reference = %q", resp.Chunks[0].Reference)
		}
	})
}

func TestBookViewHandler(t *testing.T) {
	t.Run("french book", func(t *testing.T) {
		w := httptest.NewRecorder()
		booksRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/chayei-moharan", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("Content-Type = %q", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, "<title>Chayei Moharan</title>") {
			t.Error("title missing")
		}
		if got := strings.Count(body, "Ligne 27 du récit"); got != 1 {
			t.Errorf("overlapping line rendered %d times, want 1", got)
		}
		if !strings.Contains(body, `id="chayei-moharan_chunk_25"`) || !strings.Contains(body, "Chayei Moharan, 26-50") {
			t.Error("section anchors missing")
		}
		if strings.Contains(body, "<b>Lemberg</b>") {
			t.Error("raw HTML from the source was not escaped")
		}
	})

	t.Run("hebrew book is right to left", func(t *testing.T) {
		w := httptest.NewRecorder()
		booksRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/likutei-etzot", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `dir="rtl"`) {
			t.Error("expected rtl sections")
		}
	})

	t.Run("unknown book", func(t *testing.T) {
		w := httptest.NewRecorder()
		booksRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/zohar", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
}
