package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"breslov-ai/internal/service"
)

var translateLang string

var translateCmd = &cobra.Command{
	Use:   "translate [chunk-id]",
	Short: "Translate a passage",
	Long: `Translates one chunk of a book, as listed by search or ask, into the
requested language. Translations are cached in the database.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVarP(&translateLang, "lang", "l", "", "target language (fr, en, he)")
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if services == nil || services.Translation == nil {
		return errNoServices
	}

	resp, err := services.Translation.Translate(cmd.Context(), service.TranslateRequest{
		ChunkID:  args[0],
		Language: language(translateLang),
	})
	if err != nil {
		return fmt.Errorf("translate failed: %w", err)
	}

	cmd.Println(resp.Text)
	if !resp.Translated {
		cmd.PrintErrln("(not translated)")
	}
	return nil
}
