package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/postpilot-bot/postpilot/internal/app"
	"github.com/postpilot-bot/postpilot/internal/config"
	"github.com/postpilot-bot/postpilot/internal/publisher"
	"github.com/postpilot-bot/postpilot/internal/store"
	"github.com/spf13/cobra"
)

var (
	publishPlatform string
	publishContent  string
	publishImage    string
	publishImageAlt string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a post to a social platform",
	Long: `Publish text with an optional image to Twitter or LinkedIn. The auth
mode is chosen from configuration: direct platform credentials first,
the delegated auth broker second.

Missing credentials and network failures are reported in the result
record, not as command errors, so callers can branch on the output.

Examples:
  postpilot publish --platform twitter --content "Hello world"
  postpilot publish --platform linkedin --content "..." --image out/img.png`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishPlatform, "platform", "", "Target platform: twitter or linkedin")
	publishCmd.Flags().StringVar(&publishContent, "content", "", "Post text")
	publishCmd.Flags().StringVar(&publishImage, "image", "", "Path to an image to attach (optional)")
	publishCmd.Flags().StringVar(&publishImageAlt, "image-alt", "", "Alt text for the attached image")
	publishCmd.MarkFlagRequired("platform")
	publishCmd.MarkFlagRequired("content")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a := app.New(cfg)

	var result publisher.Result
	pub, err := a.Publisher(publishPlatform)
	if err != nil {
		// Missing credentials surface in the result record, never as a
		// thrown error to the caller.
		result = publisher.Result{Platform: publishPlatform, Success: false, Error: err.Error()}
	} else {
		var image *publisher.Image
		if publishImage != "" {
			image = &publisher.Image{Path: publishImage, Alt: publishImageAlt}
		}
		result = pub.Publish(ctx, publishContent, image)
	}

	recordPublish(ctx, a, result)
	return printJSON(result)
}

// recordPublish appends the attempt to the local history database.
// History is best-effort: a store failure is logged, not surfaced.
func recordPublish(ctx context.Context, a *app.App, result publisher.Result) {
	st, err := a.OpenStore(ctx)
	if err != nil {
		slog.Warn("failed to open history store", "error", err)
		return
	}
	defer st.Close()

	_, err = st.RecordPublish(ctx, store.Record{
		Platform:  result.Platform,
		PostID:    result.PostID,
		PostURL:   result.PostURL,
		Content:   publishContent,
		ImagePath: publishImage,
		Success:   result.Success,
		Error:     result.Error,
	})
	if err != nil {
		slog.Warn("failed to record publish", "error", err)
	}
}
