package main

import (
	"context"
	"fmt"

	"github.com/postpilot-bot/postpilot/internal/app"
	"github.com/postpilot-bot/postpilot/internal/config"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent publish attempts",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of records to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	st, err := app.New(cfg).OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer st.Close()

	records, err := st.ListRecent(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No publish history yet.")
		return nil
	}

	for _, rec := range records {
		status := "ok"
		if !rec.Success {
			status = "failed"
		}
		fmt.Printf("%s  %-8s  %-6s  %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Platform, status, summary(rec.Content))
		if rec.PostURL != "" {
			fmt.Printf("    %s\n", rec.PostURL)
		}
		if rec.Error != "" {
			fmt.Printf("    error: %s\n", rec.Error)
		}
	}

	counts, err := st.CountByPlatform(ctx)
	if err != nil {
		return fmt.Errorf("count history: %w", err)
	}
	fmt.Println()
	for platform, n := range counts {
		fmt.Printf("%s: %d published\n", platform, n)
	}

	return nil
}

// summary trims post content to one short line.
func summary(content string) string {
	runes := []rune(content)
	if len(runes) > 60 {
		return string(runes[:57]) + "..."
	}
	return content
}
