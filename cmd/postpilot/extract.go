package main

import (
	"context"
	"fmt"

	"github.com/postpilot-bot/postpilot/internal/app"
	"github.com/postpilot-bot/postpilot/internal/config"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract URL [URL...]",
	Short: "Extract readable content from web pages",
	Long: `Fetch one or more URLs concurrently and extract readable text,
outbound links, and candidate images. URLs that fail are reported
separately without failing the batch.

Examples:
  postpilot extract https://example.com/article
  postpilot extract https://a.example.com https://b.example.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	batch := app.New(cfg).Extractor().ExtractBatch(ctx, args)
	return printJSON(batch)
}
