package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilot-bot/postpilot/internal/httpx"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Test Article</title></head>
<body>
  <h1>Big Headline</h1>
  <p>First paragraph of the article.</p>
  <p>Second paragraph with a <a href="/related">related link</a>.</p>
  <ul>
    <li>Point one</li>
    <li>Point two</li>
  </ul>
  <a href="https://other.example.com/page">External</a>
  <a href="#section">Anchor only</a>
  <a href="javascript:void(0)">JS</a>
  <img src="/images/hero.png" alt="hero">
  <img src="https://cdn.example.com/photo.jpg">
  <img src="data:image/png;base64,xyz">
</body>
</html>`

func fastOptions() httpx.Options {
	return httpx.Options{
		AttemptTimeout: 2 * time.Second,
		MaxRetries:     0,
		BackoffBase:    time.Millisecond,
	}
}

func TestExtractor_ExtractPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, samplePage)
	}))
	defer server.Close()

	e := New(Config{Fetch: fastOptions()})
	content, links, images, err := e.ExtractPage(context.Background(), server.URL+"/article")
	require.NoError(t, err)

	assert.Equal(t, "Test Article", content.Title)
	assert.Contains(t, content.Text, "Big Headline")
	assert.Contains(t, content.Text, "First paragraph of the article.")
	assert.Contains(t, content.Text, "Point one")

	assert.Contains(t, links, server.URL+"/related")
	assert.Contains(t, links, "https://other.example.com/page")
	for _, link := range links {
		assert.NotContains(t, link, "javascript:")
		assert.NotContains(t, link, "#")
	}

	assert.Contains(t, images, server.URL+"/images/hero.png")
	assert.Contains(t, images, "https://cdn.example.com/photo.jpg")
	assert.Len(t, images, 2, "data: URIs are not usable image options")
}

func TestExtractor_ExtractBatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>A</title></head><body><p>alpha</p></body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>C</title></head><body><p>gamma</p></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := New(Config{Concurrency: 3, Fetch: fastOptions()})
	batch := e.ExtractBatch(context.Background(), []string{
		server.URL + "/a",
		server.URL + "/b",
		server.URL + "/c",
	})

	require.Len(t, batch.Pages, 2, "one permanent failure must not sink the batch")
	assert.Equal(t, "A", batch.Pages[0].Title, "pages keep input order")
	assert.Equal(t, "C", batch.Pages[1].Title)

	require.Len(t, batch.Failed, 1)
	assert.Equal(t, server.URL+"/b", batch.Failed[0].URL)
	assert.NotEmpty(t, batch.Failed[0].Error)
}

func TestExtractor_ExtractBatch_AllFail(t *testing.T) {
	e := New(Config{Fetch: fastOptions()})
	batch := e.ExtractBatch(context.Background(), []string{
		"://broken",
		"http://127.0.0.1:1/unreachable",
	})

	assert.Empty(t, batch.Pages)
	assert.Len(t, batch.Failed, 2)
}

func TestExtractor_ExtractBatch_Empty(t *testing.T) {
	e := New(Config{Fetch: fastOptions()})
	batch := e.ExtractBatch(context.Background(), nil)
	assert.Empty(t, batch.Pages)
	assert.Empty(t, batch.Failed)
}

func TestExtractor_DeduplicatesAcrossPages(t *testing.T) {
	page := `<html><body><p>x</p><a href="https://shared.example.com/">s</a><img src="https://cdn.example.com/i.png"></body></html>`
	mux := http.NewServeMux()
	for _, p := range []string{"/one", "/two"} {
		mux.HandleFunc(p, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, page)
		})
	}
	server := httptest.NewServer(mux)
	defer server.Close()

	e := New(Config{Fetch: fastOptions()})
	batch := e.ExtractBatch(context.Background(), []string{server.URL + "/one", server.URL + "/two"})

	require.Len(t, batch.Pages, 2)
	assert.Equal(t, []string{"https://shared.example.com/"}, batch.Links)
	assert.Equal(t, []string{"https://cdn.example.com/i.png"}, batch.Images)
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://example.com/articles/post")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/related", resolveURL(base, "/related"))
	assert.Equal(t, "https://example.com/articles/sibling", resolveURL(base, "sibling"))
	assert.Equal(t, "https://other.com/x", resolveURL(base, "https://other.com/x"))
	assert.Empty(t, resolveURL(base, "#anchor"))
	assert.Empty(t, resolveURL(base, "javascript:void(0)"))
	assert.Empty(t, resolveURL(base, "data:image/png;base64,abc"))
	assert.Empty(t, resolveURL(base, "mailto:someone@example.com"))
	assert.Empty(t, resolveURL(base, ""))
}

func TestNew_PartialFetchOptionsPreserved(t *testing.T) {
	t.Run("zero config gets defaults", func(t *testing.T) {
		e := New(Config{})
		assert.Equal(t, httpx.Default(), e.fetchOpts)
		assert.Equal(t, defaultConcurrency, e.concurrency)
	})

	t.Run("retry count survives without a timeout", func(t *testing.T) {
		e := New(Config{Fetch: httpx.Options{MaxRetries: 5}})
		assert.Equal(t, 5, e.fetchOpts.MaxRetries)
		assert.Equal(t, httpx.Default().AttemptTimeout, e.fetchOpts.AttemptTimeout)
		assert.Equal(t, httpx.Default().BackoffBase, e.fetchOpts.BackoffBase)
	})

	t.Run("explicit values kept as-is", func(t *testing.T) {
		opts := fastOptions()
		e := New(Config{Concurrency: 2, Fetch: opts})
		assert.Equal(t, opts.AttemptTimeout, e.fetchOpts.AttemptTimeout)
		assert.Equal(t, opts.MaxRetries, e.fetchOpts.MaxRetries)
		assert.Equal(t, 2, e.concurrency)
	})
}
