package indexer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"breslov-ai/internal/library"
)

const (
	// ChunkerVersion identifies the chunking policy. Bump it when boundaries change.
	ChunkerVersion = "lines-v1"
	// rtlThreshold is the share of Hebrew characters above which text is right-to-left.
	rtlThreshold = 0.3
	// minKeywordRunes is the length a capitalized word must exceed to count as a keyword.
	minKeywordRunes = 3
)

var (
	capitalizedWordPattern = regexp.MustCompile(`\p{Lu}\p{Ll}+`)
	hebrewWordPattern      = regexp.MustCompile(`[\x{0590}-\x{05FF}]{3,}`)
)

// ChunkOptions controls line windowing.
type ChunkOptions struct {
	Size       int // lines per window
	Overlap    int // lines shared by consecutive windows
	MinContent int // windows whose trimmed text is not longer than this are dropped
}

// DefaultChunkOptions returns 30-line windows overlapping by 5 lines.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{Size: 30, Overlap: 5, MinContent: 50}
}

// Stride is the number of lines between the starts of consecutive windows.
func (o ChunkOptions) Stride() int {
	return o.Size - o.Overlap
}

// Validate checks that the window advances.
func (o ChunkOptions) Validate() error {
	if o.Size <= 0 {
		return fmt.Errorf("chunk size must be greater than 0, got %d", o.Size)
	}
	if o.Overlap < 0 || o.Overlap >= o.Size {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", o.Size, o.Overlap)
	}
	if o.MinContent < 0 {
		return fmt.Errorf("minimum chunk content must not be negative, got %d", o.MinContent)
	}
	return nil
}

// LineChunker splits documents into overlapping windows of lines.
type LineChunker struct {
	opts       ChunkOptions
	vocabulary []string
}

// NewLineChunker creates a chunker. vocabulary terms found in a window, case-insensitively,
// are added to its keywords.
func NewLineChunker(opts ChunkOptions, vocabulary []string) (*LineChunker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	vocab := make([]string, 0, len(vocabulary))
	for _, term := range vocabulary {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			vocab = append(vocab, term)
		}
	}
	return &LineChunker{opts: opts, vocabulary: vocab}, nil
}

// Options returns the windowing options.
func (c *LineChunker) Options() ChunkOptions {
	return c.opts
}

// Chunk splits doc.Lines into windows of Size lines advancing by Size-Overlap.
// An empty document yields no chunks. The result depends only on the document
// id and lines.
func (c *LineChunker) Chunk(doc *library.Document) []library.Chunk {
	lines := doc.Lines
	chunks := []library.Chunk{}
	stride := c.opts.Stride()

	for start := 0; start < len(lines); start += stride {
		end := start + c.opts.Size
		if end > len(lines) {
			end = len(lines)
		}
		content := strings.Join(lines[start:end], "\n")
		if utf8.RuneCountInString(strings.TrimSpace(content)) <= c.opts.MinContent {
			continue
		}

		chunks = append(chunks, library.Chunk{
			ID:         library.ChunkID(doc.ID, start),
			DocumentID: doc.ID,
			Index:      len(chunks),
			StartLine:  start,
			EndLine:    end,
			Content:    content,
			Keywords:   ExtractKeywords(content, c.vocabulary),
			RTL:        IsRTL(content),
		})
	}

	return chunks
}

// ExtractKeywords returns, in order of first appearance and without duplicates:
// capitalized words longer than 3 letters (lowercased), Hebrew words of at
// least 3 letters, and the vocabulary terms contained in text.
func ExtractKeywords(text string, vocabulary []string) []string {
	seen := make(map[string]struct{})
	keywords := []string{}
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}

	for _, word := range capitalizedWordPattern.FindAllString(text, -1) {
		if utf8.RuneCountInString(word) > minKeywordRunes {
			add(strings.ToLower(word))
		}
	}
	for _, word := range hebrewWordPattern.FindAllString(text, -1) {
		add(word)
	}

	lower := strings.ToLower(text)
	for _, term := range vocabulary {
		if strings.Contains(lower, term) {
			add(term)
		}
	}

	return keywords
}

// HebrewRatio returns the share of runes of text in the Hebrew block.
func HebrewRatio(text string) float64 {
	total := 0
	hebrew := 0
	for _, r := range text {
		total++
		if r >= 0x0590 && r <= 0x05FF {
			hebrew++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hebrew) / float64(total)
}

// IsRTL reports whether more than 30% of text is Hebrew.
func IsRTL(text string) bool {
	return HebrewRatio(text) > rtlThreshold
}

// extractTitleFromFilename extracts title from filename by removing extension and capitalizing words.
func extractTitleFromFilename(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}
