package main

import (
	"context"
	"fmt"

	"github.com/postpilot-bot/postpilot/internal/app"
	"github.com/postpilot-bot/postpilot/internal/config"
	"github.com/spf13/cobra"
)

var (
	generatePrompt string
	generateOutput string
	generateModel  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an image from a prompt",
	Long: `Submit a text-to-image generation job, poll it to completion, and
download the rendered image.

Examples:
  postpilot generate --prompt "a lighthouse at dusk" --output out/lighthouse.png
  postpilot generate --prompt "..." --output img.png --model pf-turbo-1`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generatePrompt, "prompt", "", "Text prompt describing the image")
	generateCmd.Flags().StringVar(&generateOutput, "output", "", "Path to write the generated image to")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "Model override (defaults to IMAGEGEN_MODEL)")
	generateCmd.MarkFlagRequired("prompt")
	generateCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForImageGen(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if generateModel != "" {
		cfg.ImageGenModel = generateModel
	}

	client, err := app.New(cfg).ImageGen()
	if err != nil {
		return fmt.Errorf("create image client: %w", err)
	}

	result := client.Generate(ctx, generatePrompt, generateOutput)
	return printJSON(result)
}
