package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env and restore after test
	origEnv := os.Environ()
	t.Cleanup(func() {
		os.Clearenv()
		for _, e := range origEnv {
			for i := 0; i < len(e); i++ {
				if e[i] == '=' {
					os.Setenv(e[:i], e[i+1:])
					break
				}
			}
		}
	})

	t.Run("defaults", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "data/postpilot.db", cfg.DatabasePath)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 2*time.Second, cfg.ImageGenPollInterval)
		assert.Equal(t, 60, cfg.ImageGenMaxAttempts)
		assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
		assert.Equal(t, 2, cfg.FetchMaxRetries)
		assert.Equal(t, 4, cfg.ExtractConcurrency)
	})

	t.Run("custom values", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("DATABASE_PATH", "/custom/path.db")
		os.Setenv("IMAGEGEN_API_KEY", "ig-test")
		os.Setenv("IMAGEGEN_POLL_INTERVAL", "500ms")
		os.Setenv("IMAGEGEN_MAX_ATTEMPTS", "10")
		os.Setenv("TWITTER_API_KEY", "tk")
		os.Setenv("BROKER_API_KEY", "bk")
		os.Setenv("BROKER_USER_ID", "user-1")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "/custom/path.db", cfg.DatabasePath)
		assert.Equal(t, "ig-test", cfg.ImageGenAPIKey)
		assert.Equal(t, 500*time.Millisecond, cfg.ImageGenPollInterval)
		assert.Equal(t, 10, cfg.ImageGenMaxAttempts)
		assert.Equal(t, "tk", cfg.TwitterAPIKey)
		assert.True(t, cfg.HasBroker())
	})

	t.Run("invalid duration", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("IMAGEGEN_POLL_INTERVAL", "invalid")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "IMAGEGEN_POLL_INTERVAL")
	})

	t.Run("invalid integer", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("IMAGEGEN_MAX_ATTEMPTS", "notanumber")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "IMAGEGEN_MAX_ATTEMPTS")
	})
}

func TestConfig_CredentialSets(t *testing.T) {
	t.Run("twitter direct requires all four", func(t *testing.T) {
		cfg := &Config{TwitterAPIKey: "k", TwitterAPISecret: "s", TwitterAccessToken: "t"}
		assert.False(t, cfg.HasTwitterDirect())
		cfg.TwitterAccessSecret = "ts"
		assert.True(t, cfg.HasTwitterDirect())
	})

	t.Run("linkedin direct requires token and urn", func(t *testing.T) {
		cfg := &Config{LinkedInAccessToken: "tok"}
		assert.False(t, cfg.HasLinkedInDirect())
		cfg.LinkedInAuthorURN = "urn:li:person:abc"
		assert.True(t, cfg.HasLinkedInDirect())
	})

	t.Run("broker requires key and user", func(t *testing.T) {
		cfg := &Config{BrokerAPIKey: "k"}
		assert.False(t, cfg.HasBroker())
		cfg.BrokerUserID = "u"
		assert.True(t, cfg.HasBroker())
	})
}

func TestConfig_ValidateForPublish(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.ValidateForPublish("twitter")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TWITTER_API_KEY")
		assert.Contains(t, err.Error(), "BROKER_API_KEY")
	})

	t.Run("broker satisfies both platforms", func(t *testing.T) {
		cfg := &Config{BrokerAPIKey: "k", BrokerUserID: "u"}
		assert.NoError(t, cfg.ValidateForPublish("twitter"))
		assert.NoError(t, cfg.ValidateForPublish("linkedin"))
	})

	t.Run("direct linkedin", func(t *testing.T) {
		cfg := &Config{LinkedInAccessToken: "t", LinkedInAuthorURN: "urn"}
		assert.NoError(t, cfg.ValidateForPublish("linkedin"))
		assert.Error(t, cfg.ValidateForPublish("twitter"))
	})

	t.Run("unknown platform", func(t *testing.T) {
		cfg := &Config{BrokerAPIKey: "k", BrokerUserID: "u"}
		err := cfg.ValidateForPublish("myspace")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "myspace")
	})
}

func TestConfig_ValidateForImageGen(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateForImageGen())

	cfg.ImageGenAPIKey = "key"
	assert.NoError(t, cfg.ValidateForImageGen())
}
