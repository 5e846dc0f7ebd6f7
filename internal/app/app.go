// Package app wires configuration into concrete clients. Everything is
// constructed explicitly at the call site that needs it; there is no
// process-wide client state.
package app

import (
	"context"
	"fmt"

	"github.com/postpilot-bot/postpilot/internal/config"
	"github.com/postpilot-bot/postpilot/internal/extract"
	"github.com/postpilot-bot/postpilot/internal/httpx"
	"github.com/postpilot-bot/postpilot/internal/imagegen"
	"github.com/postpilot-bot/postpilot/internal/publisher"
	"github.com/postpilot-bot/postpilot/internal/store"
)

// App builds the application's components from one Config.
type App struct {
	Config *config.Config
}

// New creates an App around the given configuration.
func New(cfg *config.Config) *App {
	return &App{Config: cfg}
}

// FetchOptions translates config into fetcher options.
func (a *App) FetchOptions() httpx.Options {
	opts := httpx.Default()
	opts.AttemptTimeout = a.Config.FetchTimeout
	opts.MaxRetries = a.Config.FetchMaxRetries
	return opts
}

// ImageGen constructs the image-generation client.
func (a *App) ImageGen() (*imagegen.Client, error) {
	return imagegen.New(imagegen.Config{
		APIKey:       a.Config.ImageGenAPIKey,
		BaseURL:      a.Config.ImageGenBaseURL,
		Model:        a.Config.ImageGenModel,
		PollInterval: a.Config.ImageGenPollInterval,
		MaxAttempts:  a.Config.ImageGenMaxAttempts,
	})
}

// Extractor constructs the page-content extractor.
func (a *App) Extractor() *extract.Extractor {
	return extract.New(extract.Config{
		Concurrency: a.Config.ExtractConcurrency,
		Fetch:       a.FetchOptions(),
	})
}

// Publisher constructs the client for one platform. The auth mode is
// decided inside the constructor: direct credentials first, broker
// second.
func (a *App) Publisher(platform string) (publisher.Publisher, error) {
	broker := publisher.BrokerConfig{
		BaseURL: a.Config.BrokerBaseURL,
		APIKey:  a.Config.BrokerAPIKey,
		UserID:  a.Config.BrokerUserID,
	}

	switch platform {
	case "twitter":
		return publisher.NewTwitter(publisher.TwitterConfig{
			APIKey:       a.Config.TwitterAPIKey,
			APISecret:    a.Config.TwitterAPISecret,
			AccessToken:  a.Config.TwitterAccessToken,
			AccessSecret: a.Config.TwitterAccessSecret,
			Broker:       broker,
		})
	case "linkedin":
		return publisher.NewLinkedIn(publisher.LinkedInConfig{
			AccessToken: a.Config.LinkedInAccessToken,
			AuthorURN:   a.Config.LinkedInAuthorURN,
			Broker:      broker,
		})
	}
	return nil, fmt.Errorf("unknown platform %q (must be 'twitter' or 'linkedin')", platform)
}

// OpenStore opens the publish-history database.
func (a *App) OpenStore(ctx context.Context) (*store.Store, error) {
	return store.New(ctx, a.Config.DatabasePath)
}
