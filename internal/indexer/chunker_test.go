package indexer

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"breslov-ai/internal/library"
)

func newDocument(id string, lines []string) *library.Document {
	return &library.Document{
		ID:    id,
		Lines: lines,
		Text:  strings.Join(lines, "\n"),
	}
}

func repeatLines(line string, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line
	}
	return lines
}

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("Ligne %d du récit, avec assez de texte pour compter.", i)
	}
	return lines
}

func TestNewLineChunker(t *testing.T) {
	tests := []struct {
		name    string
		opts    ChunkOptions
		wantErr bool
	}{
		{name: "defaults", opts: DefaultChunkOptions()},
		{name: "no overlap", opts: ChunkOptions{Size: 10, Overlap: 0, MinContent: 0}},
		{name: "zero size", opts: ChunkOptions{Size: 0}, wantErr: true},
		{name: "overlap equals size", opts: ChunkOptions{Size: 5, Overlap: 5}, wantErr: true},
		{name: "negative overlap", opts: ChunkOptions{Size: 5, Overlap: -1}, wantErr: true},
		{name: "negative min content", opts: ChunkOptions{Size: 5, Overlap: 1, MinContent: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewLineChunker(tt.opts, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLineChunker() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c == nil {
				t.Fatal("NewLineChunker() returned nil")
			}
		})
	}
}

func TestLineChunker_FiftyLineDocument(t *testing.T) {
	chunker, err := NewLineChunker(DefaultChunkOptions(), nil)
	if err != nil {
		t.Fatalf("NewLineChunker() error = %v", err)
	}

	chunks := chunker.Chunk(newDocument("chayei-moharan", numberedLines(50)))
	if len(chunks) != 2 {
		t.Fatalf("Chunk() produced %d chunks, want 2", len(chunks))
	}

	want := []struct {
		id         string
		start, end int
	}{
		{"chayei-moharan_chunk_0", 0, 30},
		{"chayei-moharan_chunk_25", 25, 50},
	}
	for i, w := range want {
		c := chunks[i]
		if c.ID != w.id || c.StartLine != w.start || c.EndLine != w.end {
			t.Errorf("chunk %d = {%s %d %d}, want {%s %d %d}", i, c.ID, c.StartLine, c.EndLine, w.id, w.start, w.end)
		}
		if c.Index != i || c.DocumentID != "chayei-moharan" {
			t.Errorf("chunk %d Index = %d DocumentID = %s", i, c.Index, c.DocumentID)
		}
	}
	if !strings.HasPrefix(chunks[1].Content, "Ligne 25 ") {
		t.Errorf("second chunk should start with the overlapping line 25, got %q", chunks[1].Content[:20])
	}
}

func TestLineChunker_Coverage(t *testing.T) {
	opts := DefaultChunkOptions()
	chunker, err := NewLineChunker(opts, nil)
	if err != nil {
		t.Fatalf("NewLineChunker() error = %v", err)
	}

	for _, total := range []int{1, 29, 30, 31, 50, 55, 77, 200} {
		t.Run(fmt.Sprintf("%d lines", total), func(t *testing.T) {
			chunks := chunker.Chunk(newDocument("doc", numberedLines(total)))
			if len(chunks) == 0 {
				t.Fatal("expected chunks")
			}

			covered := 0
			prevStart := -1
			for _, c := range chunks {
				if !(c.StartLine < c.EndLine && c.EndLine <= total) {
					t.Fatalf("invalid bounds [%d,%d) for %d lines", c.StartLine, c.EndLine, total)
				}
				if c.EndLine-c.StartLine > opts.Size {
					t.Errorf("chunk [%d,%d) longer than %d lines", c.StartLine, c.EndLine, opts.Size)
				}
				if prevStart >= 0 && c.StartLine-prevStart != opts.Stride() {
					t.Errorf("stride %d, want %d", c.StartLine-prevStart, opts.Stride())
				}
				if c.StartLine > covered {
					t.Errorf("gap [%d,%d) not covered", covered, c.StartLine)
				}
				if c.EndLine > covered {
					covered = c.EndLine
				}
				prevStart = c.StartLine
			}
			if covered != total {
				t.Errorf("covered up to %d, want %d", covered, total)
			}
		})
	}
}

func TestLineChunker_DropsShortWindows(t *testing.T) {
	chunker, err := NewLineChunker(ChunkOptions{Size: 2, Overlap: 0, MinContent: 50}, nil)
	if err != nil {
		t.Fatalf("NewLineChunker() error = %v", err)
	}
	lines := []string{
		strings.Repeat("a", 30), strings.Repeat("b", 30), // kept: 61 chars
		"", "   ", // dropped: blank
		strings.Repeat("c", 25), strings.Repeat("d", 24), // dropped: exactly 50 chars
	}
	chunks := chunker.Chunk(newDocument("doc", lines))
	if len(chunks) != 1 || chunks[0].StartLine != 0 {
		t.Fatalf("Chunk() = %+v, want only the first window", chunks)
	}
}

func TestLineChunker_EmptyDocument(t *testing.T) {
	chunker, _ := NewLineChunker(DefaultChunkOptions(), nil)
	chunks := chunker.Chunk(newDocument("empty", nil))
	if chunks == nil || len(chunks) != 0 {
		t.Errorf("Chunk() on empty document = %v, want empty slice", chunks)
	}
}

func TestLineChunker_Deterministic(t *testing.T) {
	chunker, _ := NewLineChunker(DefaultChunkOptions(), []string{"breslov"})
	doc := newDocument("doc", numberedLines(120))
	first := chunker.Chunk(doc)
	second := chunker.Chunk(doc)
	if !reflect.DeepEqual(first, second) {
		t.Error("Chunk() is not deterministic")
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		vocabulary []string
		want       []string
	}{
		{
			name: "capitalized words longer than three letters",
			text: "Rabbi Nahman alla à Lemberg avec Reb Noson. Le Ciel",
			want: []string{"rabbi", "nahman", "lemberg", "noson", "ciel"},
		},
		{
			name: "accented capitals",
			text: "Éternel Élie",
			want: []string{"éternel", "élie"},
		},
		{
			name: "hebrew words of three letters or more",
			text: "רבי נחמן אמר לו",
			want: []string{"רבי", "נחמן", "אמר"},
		},
		{
			name:       "vocabulary substring match",
			text:       "la pratique du hitbodedut à breslov",
			vocabulary: []string{"hitbodedut", "breslov", "ouman"},
			want:       []string{"hitbodedut", "breslov"},
		},
		{
			name:       "duplicates removed",
			text:       "Lemberg Lemberg lemberg",
			vocabulary: []string{"lemberg"},
			want:       []string{"lemberg"},
		},
		{
			name: "nothing salient",
			text: "le la les un",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.text, tt.vocabulary)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractKeywords() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRTL(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", false},
		{"Bonjour le monde", false},
		{"שלום עולם", true},
		{"Le mot תורה dans une longue phrase française", false},
		{"תורה ותפילה - Torah", true},
	}
	for _, tt := range tests {
		if got := IsRTL(tt.text); got != tt.want {
			t.Errorf("IsRTL(%q) = %v, want %v (ratio %.2f)", tt.text, got, tt.want, HebrewRatio(tt.text))
		}
	}
}

func TestExtractTitleFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"chayei_moharan_fr.txt", "Chayei Moharan Fr"},
		{"books/likutei-etzot.md", "Likutei Etzot"},
		{"simple", "Simple"},
	}
	for _, tt := range tests {
		if got := extractTitleFromFilename(tt.filename); got != tt.want {
			t.Errorf("extractTitleFromFilename(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
