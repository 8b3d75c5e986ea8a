package library

import (
	"fmt"
	"strings"
	"time"
)

// Language is the source script tag of a document.
type Language string

const (
	LanguageFrench  Language = "french"
	LanguageEnglish Language = "english"
	LanguageHebrew  Language = "hebrew"
	LanguageMixed   Language = "mixed"
)

// Code returns the two-letter language code used for phrases and voices.
func (l Language) Code() string {
	switch l {
	case LanguageHebrew:
		return "he"
	case LanguageEnglish:
		return "en"
	default:
		return "fr"
	}
}

// Document is a loaded book. It is never mutated after it is published to a Registry.
type Document struct {
	ID       string
	Titles   map[string]string // keyed by fr, en, he
	Language Language
	File     string
	Text     string
	Lines    []string
	Hash     string
	LoadedAt time.Time
}

// Title returns the display title for lang, falling back to French, English,
// Hebrew and finally the document id.
func (d *Document) Title(lang string) string {
	for _, l := range []string{lang, "fr", "en", "he"} {
		if t := strings.TrimSpace(d.Titles[l]); t != "" {
			return t
		}
	}
	return d.ID
}

// Chunk is a window of consecutive lines of a document. EndLine is exclusive.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	StartLine  int
	EndLine    int
	Content    string
	Keywords   []string
	RTL        bool
}

// HasKeyword reports whether term is one of the chunk's extracted keywords.
func (c *Chunk) HasKeyword(term string) bool {
	for _, k := range c.Keywords {
		if k == term {
			return true
		}
	}
	return false
}

// Reference formats the human readable source of the chunk, e.g. "Chayei Moharan, 1-30".
func (c *Chunk) Reference(title string) string {
	return fmt.Sprintf("%s, %d-%d", title, c.StartLine+1, c.EndLine)
}

// ChunkID derives the stable id of the chunk starting at startLine.
func ChunkID(documentID string, startLine int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, startLine)
}

// DocumentStats summarizes a loaded document.
type DocumentStats struct {
	Lines      int `json:"lines"`
	Chunks     int `json:"chunks"`
	Characters int `json:"characters"`
}
