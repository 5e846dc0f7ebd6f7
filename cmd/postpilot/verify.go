package main

import (
	"context"
	"fmt"

	"github.com/postpilot-bot/postpilot/internal/app"
	"github.com/postpilot-bot/postpilot/internal/config"
	"github.com/postpilot-bot/postpilot/internal/publisher"
	"github.com/spf13/cobra"
)

var verifyPlatform string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify platform credentials",
	Long: `Check that the configured credentials can act as a real account. In
broker mode a pending authorization is reported together with the URL
to visit.

Examples:
  postpilot verify                      # all platforms
  postpilot verify --platform twitter`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyPlatform, "platform", "", "Limit the check to one platform")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	platforms := []string{"twitter", "linkedin"}
	if verifyPlatform != "" {
		platforms = []string{verifyPlatform}
	}

	a := app.New(cfg)
	results := make([]publisher.VerifyResult, 0, len(platforms))
	for _, platform := range platforms {
		pub, err := a.Publisher(platform)
		if err != nil {
			results = append(results, publisher.VerifyResult{
				Platform:   platform,
				Authorized: false,
				Error:      err.Error(),
			})
			continue
		}
		results = append(results, pub.VerifyCredentials(ctx))
	}

	return printJSON(results)
}
