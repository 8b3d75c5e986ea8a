package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	booksJSON bool
	booksLang string
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List the loaded books",
	Args:  cobra.NoArgs,
	RunE:  runBooks,
}

func init() {
	booksCmd.Flags().BoolVar(&booksJSON, "json", false, "output books as JSON")
	booksCmd.Flags().StringVarP(&booksLang, "lang", "l", "", "language of the titles (fr, en, he)")
	rootCmd.AddCommand(booksCmd)
}

type bookRow struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Lines    int    `json:"lines"`
	Chunks   int    `json:"chunks"`
}

func runBooks(cmd *cobra.Command, args []string) error {
	if services == nil {
		return errNoServices
	}

	lang := language(booksLang)
	var rows []bookRow
	for _, doc := range services.Registry.Documents() {
		stats, err := services.Registry.Stats(doc.ID)
		if err != nil {
			return fmt.Errorf("failed to get stats for %s: %w", doc.ID, err)
		}
		rows = append(rows, bookRow{
			ID:       doc.ID,
			Title:    doc.Title(lang),
			Language: string(doc.Language),
			Lines:    stats.Lines,
			Chunks:   stats.Chunks,
		})
	}

	if booksJSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal books: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(rows) == 0 {
		cmd.Println("No books loaded.")
		return nil
	}
	for _, r := range rows {
		cmd.Printf("  %-28s %s (%s, %d lines, %d chunks)\n", r.ID, r.Title, r.Language, r.Lines, r.Chunks)
	}
	return nil
}
