// Package imagegen generates images through an asynchronous
// text-to-image API: submit a generation job, poll it to completion,
// then download the rendered image.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/postpilot-bot/postpilot/internal/httpx"
	"github.com/postpilot-bot/postpilot/internal/taskpoll"
)

const (
	defaultBaseURL = "https://api.pixelforge.dev"
	defaultModel   = "pf-turbo-1"
)

// Config holds the image-generation service settings. APIKey is
// required; everything else has defaults.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	PollInterval time.Duration
	MaxAttempts  int
}

// Client talks to the image-generation service. Immutable after
// construction and safe for concurrent use.
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	pollOpts  taskpoll.Options
	fetchOpts httpx.Options
}

// New constructs a Client. A missing API key is a configuration
// mistake and fails construction.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("image generation API key is required (IMAGEGEN_API_KEY)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		pollOpts: taskpoll.Options{
			Interval:    cfg.PollInterval,
			MaxAttempts: cfg.MaxAttempts,
		},
		fetchOpts: httpx.Default(),
	}, nil
}

// Result is the outcome of one generation, shaped for direct display.
type Result struct {
	Success    bool   `json:"success"`
	Prompt     string `json:"prompt"`
	OutputPath string `json:"outputPath"`
	ImageURL   string `json:"imageUrl,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Generate renders an image for prompt and writes it to outputPath.
// Expected failures (provider rejection, poll timeout, download
// failure) are folded into the Result.
func (c *Client) Generate(ctx context.Context, prompt, outputPath string) Result {
	imageURL, err := c.GenerateURL(ctx, prompt)
	if err != nil {
		return Result{Prompt: prompt, OutputPath: outputPath, Error: err.Error()}
	}

	data, err := httpx.Fetch(ctx, imageURL, c.fetchOpts)
	if err != nil {
		return Result{Prompt: prompt, OutputPath: outputPath, ImageURL: imageURL,
			Error: fmt.Sprintf("download image: %v", err)}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{Prompt: prompt, OutputPath: outputPath, ImageURL: imageURL,
				Error: fmt.Sprintf("create output directory: %v", err)}
		}
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return Result{Prompt: prompt, OutputPath: outputPath, ImageURL: imageURL,
			Error: fmt.Sprintf("write image: %v", err)}
	}

	slog.Info("image generated", "output", outputPath, "bytes", len(data))
	return Result{Success: true, Prompt: prompt, OutputPath: outputPath, ImageURL: imageURL}
}

// GenerateURL runs the submit-and-poll cycle and returns the rendered
// image's URL. Errors are typed: *taskpoll.TaskError for a provider
// failure, *taskpoll.TimeoutError when the poll budget runs out.
func (c *Client) GenerateURL(ctx context.Context, prompt string) (string, error) {
	return taskpoll.Run(ctx,
		func(ctx context.Context) (string, error) { return c.submit(ctx, prompt) },
		c.pollOnce,
		c.pollOpts,
	)
}

type generationRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type generationResponse struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) submit(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generationRequest{Prompt: prompt, Model: c.model})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/v1/images/generations"
	body, err := httpx.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	}, c.fetchOpts)
	if err != nil {
		return "", err
	}

	var resp generationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("generation rejected: %s", resp.Error)
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("response missing task_id")
	}

	return resp.TaskID, nil
}

type taskResponse struct {
	Status string `json:"status"`
	Result struct {
		URL string `json:"url"`
	} `json:"result"`
	Error string `json:"error,omitempty"`
}

func (c *Client) pollOnce(ctx context.Context, taskID string) (taskpoll.Snapshot, error) {
	endpoint := c.baseURL + "/v1/tasks/" + taskID
	body, err := httpx.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	}, c.fetchOpts)
	if err != nil {
		return taskpoll.Snapshot{}, err
	}

	var resp taskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return taskpoll.Snapshot{}, fmt.Errorf("parse response: %w", err)
	}

	return mapStatus(resp)
}

// mapStatus normalizes the provider's status vocabulary.
func mapStatus(resp taskResponse) (taskpoll.Snapshot, error) {
	switch resp.Status {
	case "pending", "queued":
		return taskpoll.Snapshot{Status: taskpoll.StatusPending}, nil
	case "running", "processing":
		return taskpoll.Snapshot{Status: taskpoll.StatusRunning}, nil
	case "succeeded", "completed":
		if resp.Result.URL == "" {
			return taskpoll.Snapshot{}, fmt.Errorf("task succeeded but response has no result url")
		}
		return taskpoll.Snapshot{Status: taskpoll.StatusSucceeded, ResultURL: resp.Result.URL}, nil
	case "failed", "error":
		return taskpoll.Snapshot{Status: taskpoll.StatusFailed, Message: resp.Error}, nil
	}
	return taskpoll.Snapshot{}, fmt.Errorf("unknown task status %q", resp.Status)
}
