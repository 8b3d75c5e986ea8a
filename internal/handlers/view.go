package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghhtml "github.com/yuin/goldmark/renderer/html"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/library"
)

// BookViewHandler renders a book as a readable HTML page.
type BookViewHandler struct {
	registry        *library.Registry
	defaultLanguage string
	parser          goldmark.Markdown
	template        *template.Template
}

type bookPageData struct {
	Title    string
	BookID   string
	Lang     string
	Dir      string
	Sections []bookSection
}

type bookSection struct {
	ID        string
	Reference string
	Content   template.HTML
}

// NewBookViewHandler creates a new BookViewHandler.
func NewBookViewHandler(registry *library.Registry, defaultLanguage string) *BookViewHandler {
	tmpl := template.Must(template.New("book").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body {
      font-family: Georgia, 'Times New Roman', serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 860px;
      line-height: 1.8;
      background: #fbf8f1;
      color: #2b2418;
    }
    header {
      margin-bottom: 2rem;
      border-bottom: 1px solid #d8cfbd;
      padding-bottom: 1rem;
    }
    h1 {
      margin-top: 0;
      font-size: 2rem;
    }
    section {
      margin-bottom: 2rem;
    }
    .ref {
      color: #8a7a5c;
      font-size: 0.85rem;
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    }
    [dir="rtl"] {
      font-family: 'SBL Hebrew', 'Ezra SIL', 'David', serif;
      font-size: 1.15rem;
    }
    @media (max-width: 640px) {
      body {
        padding: 1rem;
      }
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <p class="ref">{{.BookID}}</p>
  </header>
  {{range .Sections}}
  <section id="{{.ID}}" dir="{{$.Dir}}">
    <p class="ref">{{.Reference}}</p>
    {{.Content}}
  </section>
  {{end}}
</body>
</html>`))

	return &BookViewHandler{
		registry:        registry,
		defaultLanguage: defaultLanguage,
		parser: goldmark.New(
			goldmark.WithExtensions(
				extension.Linkify,
			),
			goldmark.WithRendererOptions(
				ghhtml.WithHardWraps(),
			),
		),
		template: tmpl,
	}
}

// ServeHTTP renders GET /books/{bookID}. Sections follow chunk boundaries
// without the overlap, so every line appears once and anchors match chunk ids.
func (h *BookViewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	bookID := strings.TrimSpace(chi.URLParam(r, "bookID"))
	doc, err := h.registry.Document(bookID)
	if err != nil {
		http.Error(w, "book not found", http.StatusNotFound)
		return
	}
	chunks, err := h.registry.Chunks(bookID)
	if err != nil {
		http.Error(w, "book not found", http.StatusNotFound)
		return
	}

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = h.defaultLanguage
	}
	title := doc.Title(lang)

	dir := "ltr"
	if doc.Language == library.LanguageHebrew {
		dir = "rtl"
	}
	data := bookPageData{Title: title, BookID: doc.ID, Lang: doc.Language.Code(), Dir: dir}

	shown := 0
	for _, c := range chunks {
		start := max(c.StartLine, shown)
		if start >= c.EndLine || c.EndLine > len(doc.Lines) {
			continue
		}
		rendered, err := h.renderLines(doc.Lines[start:c.EndLine])
		if err != nil {
			logger.ErrorContext(ctx, "failed to render book section", "book_id", doc.ID, "chunk_id", c.ID, "error", err)
			http.Error(w, "failed to render book", http.StatusInternalServerError)
			return
		}
		data.Sections = append(data.Sections, bookSection{
			ID:        c.ID,
			Reference: c.Reference(title),
			Content:   template.HTML(rendered),
		})
		shown = c.EndLine
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, data); err != nil {
		logger.ErrorContext(ctx, "failed to execute book template", "book_id", doc.ID, "error", err)
	}
}

// renderLines renders source lines as paragraphs. Raw HTML in the source is
// escaped.
func (h *BookViewHandler) renderLines(lines []string) (string, error) {
	var buf bytes.Buffer
	if err := h.parser.Convert([]byte(strings.Join(lines, "\n\n")), &buf); err != nil {
		return "", fmt.Errorf("convert text: %w", err)
	}
	return buf.String(), nil
}
