// Package cli implements the breslov command-line tool.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"breslov-ai/internal/app"
	"breslov-ai/internal/config"
	"breslov-ai/internal/library"
	"breslov-ai/internal/rag"
	"breslov-ai/internal/service"
	"breslov-ai/internal/storage"
)

// Services are the components the commands run against.
type Services struct {
	Registry        *library.Registry
	ChunkStore      storage.ChunkStore
	Engine          rag.Engine
	Translation     service.TranslationService
	DefaultLanguage string
}

var (
	services      *Services
	closeServices func() error
)

var rootCmd = &cobra.Command{
	Use:   "breslov",
	Short: "Ask questions about the Breslov library",
	Long: `breslov loads the books of the library directory and answers questions
about them from the command line, citing the passages it used.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// setupServices loads the configuration and the library unless services were
// already provided.
func setupServices(cmd *cobra.Command, args []string) error {
	if services != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	if _, err := a.Load(cmd.Context()); err != nil {
		_ = a.Close()
		return err
	}

	services = &Services{
		Registry:        a.Registry,
		ChunkStore:      a.ChunkRepo,
		Engine:          a.Engine,
		Translation:     a.Translation,
		DefaultLanguage: cfg.DefaultLanguage,
	}
	closeServices = a.Close
	return nil
}

func teardownServices(cmd *cobra.Command, args []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	services = nil
	return err
}

var errNoServices = errors.New("services not configured")

func language(flag string) string {
	if flag != "" {
		return flag
	}
	if services != nil && services.DefaultLanguage != "" {
		return services.DefaultLanguage
	}
	return "fr"
}
