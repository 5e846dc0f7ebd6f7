package publisher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/media/upload"
	uploadtypes "github.com/michimani/gotwi/media/upload/types"
	"github.com/michimani/gotwi/resources"
	"github.com/michimani/gotwi/tweet/managetweet"
	managetweettypes "github.com/michimani/gotwi/tweet/managetweet/types"
	"github.com/michimani/gotwi/user/userlookup"
	userlookuptypes "github.com/michimani/gotwi/user/userlookup/types"
)

const twitterPlatform = "twitter"

// TwitterConfig carries both credential sets for Twitter. The four
// OAuth 1.0a values form the direct set; Broker is the fallback.
type TwitterConfig struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string

	Broker BrokerConfig
}

func (c TwitterConfig) directComplete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// Twitter publishes to X/Twitter in exactly one auth mode chosen at
// construction. Instances are immutable and safe for concurrent use.
type Twitter struct {
	mode   AuthMode
	api    *gotwi.Client
	broker *brokerClient
}

// NewTwitter selects an auth mode from whichever credential set is
// complete, direct first. With neither complete it returns a
// MissingEnvError naming the keys that would finish either set.
func NewTwitter(cfg TwitterConfig) (*Twitter, error) {
	switch {
	case cfg.directComplete():
		client, err := gotwi.NewClient(&gotwi.NewClientInput{
			HTTPClient:           &http.Client{Timeout: 30 * time.Second},
			AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
			OAuthToken:           cfg.AccessToken,
			OAuthTokenSecret:     cfg.AccessSecret,
			APIKey:               cfg.APIKey,
			APIKeySecret:         cfg.APISecret,
		})
		if err != nil {
			return nil, fmt.Errorf("create twitter client: %w", err)
		}
		return &Twitter{mode: ModeDirect, api: client}, nil

	case cfg.Broker.Complete():
		return &Twitter{mode: ModeBroker, broker: newBrokerClient(cfg.Broker)}, nil

	default:
		return nil, MissingEnvError{
			Provider: twitterPlatform,
			Variables: []string{
				"TWITTER_API_KEY", "TWITTER_API_SECRET",
				"TWITTER_ACCESS_TOKEN", "TWITTER_ACCESS_SECRET",
				"BROKER_API_KEY", "BROKER_USER_ID",
			},
		}
	}
}

// Platform returns the platform identifier.
func (t *Twitter) Platform() string { return twitterPlatform }

// Mode returns the auth mode selected at construction.
func (t *Twitter) Mode() AuthMode { return t.mode }

// Publish posts text with an optional image. All failures are folded
// into the Result.
func (t *Twitter) Publish(ctx context.Context, text string, image *Image) Result {
	if t.mode == ModeBroker {
		return t.publishViaBroker(ctx, text, image)
	}
	return t.publishDirect(ctx, text, image)
}

func (t *Twitter) publishDirect(ctx context.Context, text string, image *Image) Result {
	var mediaIDs []string
	if image != nil {
		mediaID, err := t.uploadMedia(ctx, image)
		if err != nil {
			return failed(twitterPlatform, fmt.Errorf("upload media: %w", err))
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	input := &managetweettypes.CreateInput{
		Text: gotwi.String(text),
	}
	if len(mediaIDs) > 0 {
		input.Media = &managetweettypes.CreateInputMedia{MediaIDs: mediaIDs}
	}

	res, err := managetweet.Create(ctx, t.api, input)
	if err != nil {
		return failed(twitterPlatform, fmt.Errorf("create tweet: %w", err))
	}

	postID := gotwi.StringValue(res.Data.ID)
	if postID == "" {
		return failed(twitterPlatform, fmt.Errorf("create tweet: response missing post id"))
	}
	slog.Info("published tweet", "post_id", postID, "media_count", len(mediaIDs))
	return succeeded(twitterPlatform, postID, "https://x.com/i/web/status/"+postID)
}

func (t *Twitter) publishViaBroker(ctx context.Context, text string, image *Image) Result {
	if image != nil {
		// The broker's action descriptor is text-only.
		slog.Warn("image attachment not supported via broker, posting text only", "platform", twitterPlatform)
	}

	postID, postURL, err := t.broker.execute(ctx, twitterPlatform, "create_post", text)
	if err != nil {
		return failed(twitterPlatform, err)
	}
	return succeeded(twitterPlatform, postID, postURL)
}

// uploadMedia pushes image bytes through the three-step v2 media
// upload (initialize, append, finalize) and returns the media id.
func (t *Twitter) uploadMedia(ctx context.Context, image *Image) (string, error) {
	data, mimeType, err := loadImage(image)
	if err != nil {
		return "", err
	}

	mediaType, category, err := twitterMediaType(mimeType)
	if err != nil {
		return "", err
	}

	initRes, err := upload.Initialize(ctx, t.api, &uploadtypes.InitializeInput{
		MediaType:     mediaType,
		TotalBytes:    len(data),
		MediaCategory: category,
	})
	if err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}
	mediaID := initRes.Data.MediaID

	appendIn := &uploadtypes.AppendInput{
		MediaID:      mediaID,
		Media:        bytes.NewReader(data),
		SegmentIndex: 0,
	}
	appendIn.GenerateBoundary()
	if _, err := upload.Append(ctx, t.api, appendIn); err != nil {
		return "", fmt.Errorf("append upload: %w", err)
	}

	finalizeRes, err := upload.Finalize(ctx, t.api, &uploadtypes.FinalizeInput{MediaID: mediaID})
	if err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	cur := mediaProcessing{
		state:      finalizeRes.Data.ProcessingInfo.State,
		checkAfter: time.Duration(finalizeRes.Data.ProcessingInfo.CheckAfterSecs) * time.Second,
	}
	err = awaitMediaProcessing(ctx, cur, func(ctx context.Context) (mediaProcessing, error) {
		res, err := upload.Finalize(ctx, t.api, &uploadtypes.FinalizeInput{MediaID: mediaID})
		if err != nil {
			return mediaProcessing{}, err
		}
		return mediaProcessing{
			state:      res.Data.ProcessingInfo.State,
			checkAfter: time.Duration(res.Data.ProcessingInfo.CheckAfterSecs) * time.Second,
		}, nil
	})
	if err != nil {
		return "", err
	}

	return mediaID, nil
}

// maxProcessingChecks bounds how many times a pending media upload is
// re-checked before giving up.
const maxProcessingChecks = 5

type mediaProcessing struct {
	state      resources.ProcessingInfoState
	checkAfter time.Duration
}

// awaitMediaProcessing waits out a pending media upload, re-checking
// the processing state after each suggested delay until it reaches a
// terminal state or the check budget runs out.
func awaitMediaProcessing(ctx context.Context, cur mediaProcessing, check func(ctx context.Context) (mediaProcessing, error)) error {
	for i := 0; ; i++ {
		switch cur.state {
		case "", resources.ProcessingInfoStateSucceeded:
			return nil
		case resources.ProcessingInfoStateInProgress, resources.ProcessingInfoStatePending:
			if i == maxProcessingChecks {
				return fmt.Errorf("media processing did not finish: state=%s", cur.state)
			}
			wait := cur.checkAfter
			if wait <= 0 {
				wait = time.Second
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			var err error
			cur, err = check(ctx)
			if err != nil {
				return fmt.Errorf("check media processing: %w", err)
			}
		default:
			return fmt.Errorf("media processing failed: state=%s", cur.state)
		}
	}
}

// VerifyCredentials checks that the selected auth mode can act as a
// real account.
func (t *Twitter) VerifyCredentials(ctx context.Context) VerifyResult {
	if t.mode == ModeBroker {
		return verifyViaBroker(ctx, t.broker, twitterPlatform)
	}

	res, err := userlookup.GetMe(ctx, t.api, &userlookuptypes.GetMeInput{})
	if err != nil {
		return VerifyResult{Platform: twitterPlatform, Authorized: false, Error: err.Error()}
	}
	return VerifyResult{
		Platform:   twitterPlatform,
		Authorized: true,
		Identity:   "@" + gotwi.StringValue(res.Data.Username),
	}
}

func twitterMediaType(mimeType string) (uploadtypes.MediaType, uploadtypes.MediaCategory, error) {
	switch mimeType {
	case "image/jpeg":
		return uploadtypes.MediaTypeJPEG, uploadtypes.MediaCategoryTweetImage, nil
	case "image/png":
		return uploadtypes.MediaTypePNG, uploadtypes.MediaCategoryTweetImage, nil
	case "image/gif":
		return uploadtypes.MediaTypeGIF, uploadtypes.MediaCategoryTweetGIF, nil
	case "image/webp":
		return uploadtypes.MediaTypeWebP, uploadtypes.MediaCategoryTweetImage, nil
	}
	return "", "", fmt.Errorf("unsupported media type %q", mimeType)
}
