package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"breslov-ai/internal/library"
)

// TokensPerRune is an approximation for token counting (4 chars per token).
const TokensPerRune = 4.0

// CorpusStats describes the loaded library.
type CorpusStats struct {
	// Documents is the number of loaded documents.
	Documents int `json:"documents"`
	// DocsWith0Chunks is the number of documents too short to produce a chunk.
	DocsWith0Chunks int `json:"docs_with_0_chunks"`
	// Chunks is the total number of chunks.
	Chunks int `json:"chunks"`
	// RTLChunks is the number of chunks flagged right-to-left.
	RTLChunks int `json:"rtl_chunks"`
	// Lines is the total number of source lines.
	Lines int `json:"lines"`
	// Characters is the total number of characters.
	Characters int `json:"characters"`
	// ChunkTokenStats contains statistics about estimated tokens per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the chunking parameters.
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	// Min is the minimum token count across all chunks.
	Min int `json:"min"`
	// Max is the maximum token count across all chunks.
	Max int `json:"max"`
	// Mean is the mean token count across all chunks.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile token count.
	P95 int `json:"p95"`
}

// ComputeCorpusStats computes statistics over every document in the registry.
func ComputeCorpusStats(registry *library.Registry, opts ChunkOptions) CorpusStats {
	stats := CorpusStats{ChunkerVersion: ChunkerVersion}

	var tokenCounts []int
	for _, doc := range registry.Documents() {
		chunks, err := registry.Chunks(doc.ID)
		if err != nil {
			// Removed between listing and reading.
			continue
		}
		stats.Documents++
		stats.Lines += len(doc.Lines)
		stats.Characters += utf8.RuneCountInString(doc.Text)
		if len(chunks) == 0 {
			stats.DocsWith0Chunks++
		}
		for _, c := range chunks {
			stats.Chunks++
			if c.RTL {
				stats.RTLChunks++
			}
			tokenCounts = append(tokenCounts, estimateTokens(c.Content))
		}
	}

	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	indexVersionInput := fmt.Sprintf("%s|size=%d|overlap=%d|min=%d",
		ChunkerVersion, opts.Size, opts.Overlap, opts.MinContent)
	hash := sha256.Sum256([]byte(indexVersionInput))
	stats.IndexVersion = hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits

	return stats
}

// estimateTokens estimates tokens from rune count, with a minimum of 1.
func estimateTokens(text string) int {
	tokens := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	if tokens < 1 {
		return 1
	}
	return tokens
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
