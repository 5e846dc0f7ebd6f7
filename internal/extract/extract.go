// Package extract fetches web pages and pulls out readable text,
// outbound links, and candidate images.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/postpilot-bot/postpilot/internal/httpx"
)

const (
	defaultConcurrency = 4
	maxTextRunes       = 20000
)

// PageContent is the readable text of one fetched page.
type PageContent struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// FailedURL records one URL that could not be fetched or parsed.
type FailedURL struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// BatchResult aggregates a batch extraction. Pages keeps the input
// order of the URLs that succeeded.
type BatchResult struct {
	Pages  []PageContent `json:"pageContents"`
	Links  []string      `json:"relevantLinks"`
	Images []string      `json:"imageOptions"`
	Failed []FailedURL   `json:"failedUrls"`
}

// Config holds extractor settings.
type Config struct {
	Concurrency int
	Fetch       httpx.Options
}

// Extractor fetches and parses pages. Safe for concurrent use.
type Extractor struct {
	concurrency int
	fetchOpts   httpx.Options
}

// New creates an Extractor, falling back to default fetch options and
// a concurrency of 4.
func New(cfg Config) *Extractor {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	fetchOpts := cfg.Fetch
	if zeroFetchOptions(fetchOpts) {
		fetchOpts = httpx.Default()
	} else {
		// Partially-set options keep what the caller chose; only the
		// unset knobs fall back.
		def := httpx.Default()
		if fetchOpts.AttemptTimeout <= 0 {
			fetchOpts.AttemptTimeout = def.AttemptTimeout
		}
		if fetchOpts.BackoffBase <= 0 {
			fetchOpts.BackoffBase = def.BackoffBase
		}
	}
	return &Extractor{concurrency: concurrency, fetchOpts: fetchOpts}
}

func zeroFetchOptions(o httpx.Options) bool {
	return o.Client == nil && o.AttemptTimeout == 0 && o.MaxRetries == 0 &&
		o.BackoffBase == 0 && o.Classify == nil
}

// ExtractPage fetches one URL and parses it.
func (e *Extractor) ExtractPage(ctx context.Context, pageURL string) (PageContent, []string, []string, error) {
	body, err := httpx.Fetch(ctx, pageURL, e.fetchOpts)
	if err != nil {
		return PageContent{}, nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return PageContent{}, nil, nil, fmt.Errorf("parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return PageContent{}, nil, nil, fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}

	content := PageContent{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  extractText(doc),
	}

	return content, extractLinks(doc, base), extractImages(doc, base), nil
}

// extractText walks headings, paragraphs and list items in document
// order, the selector strategy that works on most article-shaped pages.
func extractText(doc *goquery.Document) string {
	var parts []string
	total := 0

	doc.Find("h1, h2, h3, h4, h5, h6, p, li").Each(func(i int, s *goquery.Selection) {
		if total >= maxTextRunes {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		// Skip containers whose text is just their children repeated.
		if s.Children().Length() > 0 && s.Is("li") {
			if s.ChildrenFiltered("ul, ol").Length() > 0 {
				return
			}
		}
		parts = append(parts, text)
		total += len([]rune(text))
	})

	text := strings.Join(parts, "\n")
	runes := []rune(text)
	if len(runes) > maxTextRunes {
		text = string(runes[:maxTextRunes])
	}
	return text
}

func extractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := resolveURL(base, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})

	return links
}

func extractImages(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	var images []string

	doc.Find("img[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		abs := resolveURL(base, src)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		images = append(images, abs)
	})

	return images
}

// resolveURL turns a possibly-relative reference into an absolute
// http(s) URL, or "" when it is not a usable web reference.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "javascript:") || strings.HasPrefix(ref, "data:") {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(parsed)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}
