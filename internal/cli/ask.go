package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"breslov-ai/internal/rag"
)

var (
	askBooks    []string
	askStrategy string
	askLang     string
	askDebug    bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the library",
	Long: `Retrieves the passages most relevant to the question and answers from them,
citing their references. When nothing relevant is found the answer says so.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askBooks, "book", "b", nil, "restrict the search to these book ids")
	askCmd.Flags().StringVarP(&askStrategy, "strategy", "s", "", "force_retrieval, try_then_fallback or general (default: classified)")
	askCmd.Flags().StringVarP(&askLang, "lang", "l", "", "answer language (fr, en, he)")
	askCmd.Flags().BoolVar(&askDebug, "debug", false, "show retrieved passages and timings")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if services == nil || services.Engine == nil {
		return errNoServices
	}

	resp, err := services.Engine.Ask(cmd.Context(), rag.AskRequest{
		Question: strings.Join(args, " "),
		Books:    askBooks,
		Strategy: askStrategy,
		Language: language(askLang),
		Debug:    askDebug,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, s := range resp.Sources {
			cmd.Printf("  - %s (%s)\n", s.Reference, s.ChunkID)
		}
	}

	if askDebug && resp.Debug != nil {
		d := resp.Debug
		cmd.Println()
		cmd.Printf("strategy=%s grounded=%v abstained=%v", resp.Strategy, resp.Grounded, resp.Abstained)
		if resp.AbstainReason != "" {
			cmd.Printf(" reason=%s", resp.AbstainReason)
		}
		cmd.Println()
		cmd.Printf("retrieval=%dms generation=%dms total=%dms cache=%v\n", d.RetrievalMS, d.GenerationMS, d.TotalMS, d.FromCache)
		for _, c := range d.RetrievedChunks {
			cmd.Printf("  #%d %.1f %s\n", c.Rank, c.Score, c.Reference)
		}
	}
	return nil
}
