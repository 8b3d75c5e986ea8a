package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

const snippetLength = 160

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the text of the library",
	Long: `Finds passages containing the query as written, ignoring case.
Unlike ask, no ranking by relevance is applied beyond title matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if services == nil || services.ChunkStore == nil {
		return errNoServices
	}

	hits, err := services.ChunkStore.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(hits, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, hit := range hits {
		cmd.Printf("  [%d] %s, %d-%d (%.1f)\n", i+1, hit.BookTitle, hit.Chunk.StartLine+1, hit.Chunk.EndLine, hit.Score)
		cmd.Printf("      %s\n", snippet(hit.Chunk.Content, args[0]))
		cmd.Println()
	}
	return nil
}

// snippet returns the line of content containing query, shortened.
func snippet(content, query string) string {
	lower := strings.ToLower(query)
	line := strings.SplitN(content, "\n", 2)[0]
	for _, l := range strings.Split(content, "\n") {
		if strings.Contains(strings.ToLower(l), lower) {
			line = l
			break
		}
	}
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) > snippetLength {
		line = string([]rune(line)[:snippetLength]) + "…"
	}
	return line
}
