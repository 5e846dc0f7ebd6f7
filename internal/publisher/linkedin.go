package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/postpilot-bot/postpilot/internal/httpx"
)

const (
	linkedinPlatform       = "linkedin"
	defaultLinkedInBaseURL = "https://api.linkedin.com"
	linkedinVersion        = "202501"
)

// LinkedInConfig carries both credential sets for LinkedIn. An access
// token plus the author URN form the direct set; Broker is the
// fallback. BaseURL is overridable for tests.
type LinkedInConfig struct {
	AccessToken string
	AuthorURN   string
	BaseURL     string

	Broker BrokerConfig
}

func (c LinkedInConfig) directComplete() bool {
	return c.AccessToken != "" && c.AuthorURN != ""
}

// LinkedIn publishes to LinkedIn in exactly one auth mode chosen at
// construction. Instances are immutable and safe for concurrent use.
type LinkedIn struct {
	mode        AuthMode
	baseURL     string
	accessToken string
	authorURN   string
	httpClient  *http.Client
	fetchOpts   httpx.Options
	broker      *brokerClient
}

// NewLinkedIn selects an auth mode from whichever credential set is
// complete, direct first.
func NewLinkedIn(cfg LinkedInConfig) (*LinkedIn, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLinkedInBaseURL
	}

	switch {
	case cfg.directComplete():
		return &LinkedIn{
			mode:        ModeDirect,
			baseURL:     baseURL,
			accessToken: cfg.AccessToken,
			authorURN:   cfg.AuthorURN,
			httpClient:  &http.Client{Timeout: 30 * time.Second},
			fetchOpts:   httpx.Default(),
		}, nil

	case cfg.Broker.Complete():
		return &LinkedIn{mode: ModeBroker, broker: newBrokerClient(cfg.Broker)}, nil

	default:
		return nil, MissingEnvError{
			Provider: linkedinPlatform,
			Variables: []string{
				"LINKEDIN_ACCESS_TOKEN", "LINKEDIN_AUTHOR_URN",
				"BROKER_API_KEY", "BROKER_USER_ID",
			},
		}
	}
}

// Platform returns the platform identifier.
func (l *LinkedIn) Platform() string { return linkedinPlatform }

// Mode returns the auth mode selected at construction.
func (l *LinkedIn) Mode() AuthMode { return l.mode }

// Publish posts text with an optional image. All failures are folded
// into the Result.
func (l *LinkedIn) Publish(ctx context.Context, text string, image *Image) Result {
	if l.mode == ModeBroker {
		if image != nil {
			slog.Warn("image attachment not supported via broker, posting text only", "platform", linkedinPlatform)
		}
		postID, postURL, err := l.broker.execute(ctx, linkedinPlatform, "create_post", text)
		if err != nil {
			return failed(linkedinPlatform, err)
		}
		return succeeded(linkedinPlatform, postID, postURL)
	}

	var imageURN string
	if image != nil {
		urn, err := l.uploadImage(ctx, image)
		if err != nil {
			return failed(linkedinPlatform, fmt.Errorf("upload image: %w", err))
		}
		imageURN = urn
	}

	postID, err := l.createPost(ctx, text, imageURN)
	if err != nil {
		return failed(linkedinPlatform, err)
	}

	slog.Info("published linkedin post", "post_id", postID, "has_image", imageURN != "")
	return succeeded(linkedinPlatform, postID, "https://www.linkedin.com/feed/update/"+postID)
}

type initializeUploadRequest struct {
	InitializeUploadRequest struct {
		Owner string `json:"owner"`
	} `json:"initializeUploadRequest"`
}

type initializeUploadResponse struct {
	Value struct {
		UploadURL string `json:"uploadUrl"`
		Image     string `json:"image"`
	} `json:"value"`
}

// uploadImage runs LinkedIn's two-step upload: register the upload to
// get a one-time URL plus image URN, then PUT the raw bytes.
func (l *LinkedIn) uploadImage(ctx context.Context, image *Image) (string, error) {
	data, mimeType, err := loadImage(image)
	if err != nil {
		return "", err
	}

	var reqBody initializeUploadRequest
	reqBody.InitializeUploadRequest.Owner = l.authorURN
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := l.baseURL + "/rest/images?action=initializeUpload"
	body, err := httpx.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		l.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, l.fetchOpts)
	if err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}

	var initResp initializeUploadResponse
	if err := json.Unmarshal(body, &initResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if initResp.Value.UploadURL == "" || initResp.Value.Image == "" {
		return "", fmt.Errorf("initialize upload: incomplete response")
	}

	_, err = httpx.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, initResp.Value.UploadURL, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+l.accessToken)
		req.Header.Set("Content-Type", mimeType)
		return req, nil
	}, l.fetchOpts)
	if err != nil {
		return "", fmt.Errorf("put image bytes: %w", err)
	}

	return initResp.Value.Image, nil
}

type createPostRequest struct {
	Author       string `json:"author"`
	Commentary   string `json:"commentary"`
	Visibility   string `json:"visibility"`
	Distribution struct {
		FeedDistribution string `json:"feedDistribution"`
	} `json:"distribution"`
	Content        *postContent `json:"content,omitempty"`
	LifecycleState string       `json:"lifecycleState"`
}

type postContent struct {
	Media struct {
		ID      string `json:"id"`
		AltText string `json:"altText,omitempty"`
	} `json:"media"`
}

// createPost submits the post itself. The created post's URN comes
// back in the x-restli-id response header, so this call reads the raw
// response instead of going through the fetcher.
func (l *LinkedIn) createPost(ctx context.Context, text, imageURN string) (string, error) {
	reqBody := createPostRequest{
		Author:         l.authorURN,
		Commentary:     text,
		Visibility:     "PUBLIC",
		LifecycleState: "PUBLISHED",
	}
	reqBody.Distribution.FeedDistribution = "MAIN_FEED"
	if imageURN != "" {
		content := &postContent{}
		content.Media.ID = imageURN
		reqBody.Content = content
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/rest/posts", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	l.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("create post failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	postID := resp.Header.Get("x-restli-id")
	if postID == "" {
		return "", fmt.Errorf("create post: response missing x-restli-id header")
	}
	return postID, nil
}

type userinfoResponse struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// VerifyCredentials checks that the selected auth mode can act as a
// real account.
func (l *LinkedIn) VerifyCredentials(ctx context.Context) VerifyResult {
	if l.mode == ModeBroker {
		return verifyViaBroker(ctx, l.broker, linkedinPlatform)
	}

	body, err := httpx.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v2/userinfo", nil)
		if err != nil {
			return nil, err
		}
		l.setHeaders(req)
		return req, nil
	}, l.fetchOpts)
	if err != nil {
		return VerifyResult{Platform: linkedinPlatform, Authorized: false, Error: err.Error()}
	}

	var info userinfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return VerifyResult{Platform: linkedinPlatform, Authorized: false, Error: fmt.Sprintf("parse userinfo: %v", err)}
	}

	identity := info.Name
	if identity == "" {
		identity = info.Sub
	}
	return VerifyResult{Platform: linkedinPlatform, Authorized: true, Identity: identity}
}

func (l *LinkedIn) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+l.accessToken)
	req.Header.Set("LinkedIn-Version", linkedinVersion)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}
