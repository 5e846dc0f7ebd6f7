package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/postpilot-bot/postpilot/internal/httpx"
)

// BrokerConfig holds the delegated-broker credential set. APIKey and
// UserID together form a complete set.
type BrokerConfig struct {
	BaseURL string
	APIKey  string
	UserID  string
}

// Complete reports whether the broker credential set is usable.
func (c BrokerConfig) Complete() bool {
	return c.APIKey != "" && c.UserID != ""
}

const defaultBrokerBaseURL = "https://api.authbroker.dev"

// brokerClient forwards platform-neutral action descriptors to the
// auth-broker service, which holds the platform credentials and makes
// the actual call.
type brokerClient struct {
	baseURL   string
	apiKey    string
	userID    string
	fetchOpts httpx.Options
}

func newBrokerClient(cfg BrokerConfig) *brokerClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBrokerBaseURL
	}
	opts := httpx.Default()
	opts.Client = &http.Client{Timeout: 60 * time.Second}
	return &brokerClient{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		userID:    cfg.UserID,
		fetchOpts: opts,
	}
}

type brokerActionRequest struct {
	Platform string `json:"platform"`
	Action   string `json:"action"`
	Text     string `json:"text"`
	User     string `json:"user"`
}

type brokerActionResponse struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id"`
	PostURL string `json:"post_url"`
	Error   string `json:"error"`
}

// execute runs one platform action through the broker and returns the
// created post's id and url.
func (b *brokerClient) execute(ctx context.Context, platform, action, text string) (string, string, error) {
	payload, err := json.Marshal(brokerActionRequest{
		Platform: platform,
		Action:   action,
		Text:     text,
		User:     b.userID,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := b.baseURL + "/v1/actions"
	body, err := httpx.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", b.apiKey)
		return req, nil
	}, b.fetchOpts)
	if err != nil {
		return "", "", fmt.Errorf("broker action: %w", err)
	}

	var resp brokerActionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("parse broker response: %w", err)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "broker reported failure"
		}
		return "", "", fmt.Errorf("broker action rejected: %s", msg)
	}
	if resp.PostID == "" {
		return "", "", fmt.Errorf("broker action succeeded but returned no post id")
	}

	return resp.PostID, resp.PostURL, nil
}

type brokerAuthStatusResponse struct {
	Authorized bool   `json:"authorized"`
	Identity   string `json:"identity"`
	AuthURL    string `json:"auth_url"`
	Error      string `json:"error"`
}

// authStatus checks whether the broker holds a valid authorization for
// the given platform. When authorization is pending it returns the URL
// the human must visit.
func (b *brokerClient) authStatus(ctx context.Context, platform string) (authorized bool, identity, authURL string, err error) {
	endpoint := fmt.Sprintf("%s/v1/auth/status?platform=%s&user=%s",
		b.baseURL, url.QueryEscape(platform), url.QueryEscape(b.userID))

	body, err := httpx.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-API-Key", b.apiKey)
		return req, nil
	}, b.fetchOpts)
	if err != nil {
		return false, "", "", fmt.Errorf("broker auth status: %w", err)
	}

	var resp brokerAuthStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, "", "", fmt.Errorf("parse broker response: %w", err)
	}
	if resp.Error != "" {
		return false, "", "", fmt.Errorf("broker auth status: %s", resp.Error)
	}

	return resp.Authorized, resp.Identity, resp.AuthURL, nil
}

// verifyViaBroker translates a broker auth-status check into a
// VerifyResult shared by all broker-mode clients.
func verifyViaBroker(ctx context.Context, b *brokerClient, platform string) VerifyResult {
	authorized, identity, authURL, err := b.authStatus(ctx, platform)
	if err != nil {
		return VerifyResult{Platform: platform, Authorized: false, Error: err.Error()}
	}
	if !authorized {
		msg := "authorization pending"
		if authURL != "" {
			msg = fmt.Sprintf("authorization pending: visit %s", authURL)
		}
		return VerifyResult{Platform: platform, Authorized: false, Error: msg}
	}
	return VerifyResult{Platform: platform, Authorized: true, Identity: identity}
}
