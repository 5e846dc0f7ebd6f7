package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		AttemptTimeout: 2 * time.Second,
		MaxRetries:     2,
		BackoffBase:    10 * time.Millisecond,
	}
}

func TestFetch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		}))
		defer server.Close()

		body, err := Fetch(context.Background(), server.URL, testOptions())
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), body)
	})

	t.Run("empty body is success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		body, err := Fetch(context.Background(), server.URL, testOptions())
		require.NoError(t, err)
		assert.Empty(t, body)
	})

	t.Run("malformed URL fails without network call", func(t *testing.T) {
		_, err := Fetch(context.Background(), "://not-a-url", testOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid URL")
	})

	t.Run("non-http scheme rejected", func(t *testing.T) {
		_, err := Fetch(context.Background(), "ftp://example.com/file", testOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheme")
	})
}

func TestFetch_RetryBound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	opts := testOptions()
	opts.BackoffBase = 50 * time.Millisecond

	start := time.Now()
	_, err := Fetch(context.Background(), server.URL, opts)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load(), "maxRetries=2 means exactly 3 attempts")
	// Backoff of 50ms then 100ms must have elapsed between attempts.
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestFetch_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), server.URL, testOptions())

	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load(), "404 must not be retried")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetch_RetryOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := Fetch(context.Background(), server.URL, testOptions())
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), body)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetch_AttemptTimeoutIsRetryable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	opts := testOptions()
	opts.AttemptTimeout = 50 * time.Millisecond
	opts.MaxRetries = 1

	_, err := Fetch(context.Background(), server.URL, opts)
	require.Error(t, err)
	assert.EqualValues(t, 2, calls.Load(), "a hung attempt must be aborted and retried")
}

func TestFetch_CallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	opts := testOptions()
	opts.BackoffBase = 5 * time.Second

	done := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, server.URL, opts)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("fetch did not unwind promptly after cancellation")
	}
}

func TestDo_RebuildsBodyPerAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body), "each attempt must carry the full body")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("done"))
	}))
	defer server.Close()

	body, err := Do(context.Background(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, server.URL, strings.NewReader("payload"))
	}, testOptions())

	require.NoError(t, err)
	assert.Equal(t, []byte("done"), body)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetch_CustomClassifier(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	opts := testOptions()
	opts.Classify = func(code int) bool { return false }

	_, err := Fetch(context.Background(), server.URL, opts)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load(), "classifier marked 502 fatal")
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(http.StatusTooManyRequests))
	assert.True(t, RetryableStatus(http.StatusInternalServerError))
	assert.True(t, RetryableStatus(http.StatusServiceUnavailable))
	assert.False(t, RetryableStatus(http.StatusNotFound))
	assert.False(t, RetryableStatus(http.StatusForbidden))
	assert.False(t, RetryableStatus(http.StatusOK))
}
