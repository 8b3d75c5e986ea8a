package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"breslov-ai/internal/library"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testLibrary holds a 50-line French book and a short Hebrew one.
func testLibrary() *library.Registry {
	reg := library.NewRegistry()

	lines := make([]string, 50)
	for i := range lines {
		lines[i] = fmt.Sprintf("Ligne %d du récit, avec assez de texte pour compter.", i+1)
	}
	lines[10] = "Rabbi Nahman partit alors pour <b>Lemberg</b>."
	chayei := &library.Document{
		ID:       "chayei-moharan",
		Titles:   map[string]string{"fr": "Chayei Moharan", "he": "חיי מוהר\"ן"},
		Language: library.LanguageFrench,
		File:     "chayei_moharan_fr.txt",
		Lines:    lines,
		Text:     strings.Join(lines, "\n"),
	}
	reg.Put(chayei, []library.Chunk{
		{ID: "chayei-moharan_chunk_0", DocumentID: "chayei-moharan", Index: 0, StartLine: 0, EndLine: 30, Content: strings.Join(lines[0:30], "\n")},
		{ID: "chayei-moharan_chunk_25", DocumentID: "chayei-moharan", Index: 1, StartLine: 25, EndLine: 50, Content: strings.Join(lines[25:50], "\n")},
	})

	etzotLines := []string{"שמחה היא מצוה גדולה", "ותפילה בכל יום"}
	etzot := &library.Document{
		ID:       "likutei-etzot",
		Titles:   map[string]string{"fr": "Likoutey Etsot"},
		Language: library.LanguageHebrew,
		File:     "likutei_etzot.txt",
		Lines:    etzotLines,
		Text:     strings.Join(etzotLines, "\n"),
	}
	reg.Put(etzot, []library.Chunk{
		{ID: "likutei-etzot_chunk_0", DocumentID: "likutei-etzot", StartLine: 0, EndLine: 2, Content: strings.Join(etzotLines, "\n"), RTL: true},
	})
	return reg
}
