// Package publisher posts text-and-image content to social platforms.
// Each platform client is bound to exactly one auth mode at
// construction: direct credentials against the platform's own API, or
// a delegated auth broker that holds the credentials on our behalf.
package publisher

import (
	"context"
	"fmt"
	"strings"
)

// AuthMode selects how a client authenticates. It is fixed when the
// client is constructed and never changes afterwards.
type AuthMode int

const (
	ModeDirect AuthMode = iota
	ModeBroker
)

func (m AuthMode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeBroker:
		return "broker"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Image is an attachment for a post. Data takes precedence over Path.
type Image struct {
	Path     string
	Data     []byte
	MimeType string
	Alt      string
}

// Result is the uniform outcome of a publish call. Exactly one of
// PostID or Error is set once the operation has terminated, and
// Success mirrors that: Success == (PostID != "") == (Error == "").
type Result struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	PostID   string `json:"postId,omitempty"`
	PostURL  string `json:"postUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

// VerifyResult is the outcome of a credential check. A broker that is
// still waiting on human authorization reports Authorized=false with
// the authorization URL embedded in Error.
type VerifyResult struct {
	Platform   string `json:"platform"`
	Authorized bool   `json:"authorized"`
	Identity   string `json:"identity,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Publisher posts content to one social platform. Publish never
// returns an error: every failure, network included, is folded into
// the Result.
type Publisher interface {
	Platform() string
	Mode() AuthMode
	Publish(ctx context.Context, text string, image *Image) Result
	VerifyCredentials(ctx context.Context) VerifyResult
}

// succeeded builds a Result for a published post.
func succeeded(platform, postID, postURL string) Result {
	return Result{
		Platform: platform,
		Success:  true,
		PostID:   postID,
		PostURL:  postURL,
	}
}

// failed builds a Result for a publish that did not happen.
func failed(platform string, err error) Result {
	msg := "publish failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		Platform: platform,
		Success:  false,
		Error:    msg,
	}
}

// MissingEnvError is returned at construction when neither credential
// set is complete. It names every environment key that would have
// completed a set.
type MissingEnvError struct {
	Provider  string
	Variables []string
}

func (e MissingEnvError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Provider)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Provider, strings.Join(e.Variables, ", "))
}
