package extract

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ExtractBatch fetches every URL concurrently, bounded by the
// configured concurrency. A URL that fails is recorded in Failed and
// never fails the batch; successful pages come back in input order.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string) BatchResult {
	type pageResult struct {
		content PageContent
		links   []string
		images  []string
	}

	results := make([]*pageResult, len(urls))
	failures := make([]*FailedURL, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	var mu sync.Mutex
	for i, pageURL := range urls {
		g.Go(func() error {
			content, links, images, err := e.ExtractPage(gctx, pageURL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("page extraction failed", "url", pageURL, "error", err)
				failures[i] = &FailedURL{URL: pageURL, Error: err.Error()}
				return nil
			}
			results[i] = &pageResult{content: content, links: links, images: images}
			return nil
		})
	}

	// Workers record failures instead of returning errors, so Wait
	// only reflects context cancellation.
	_ = g.Wait()

	var batch BatchResult
	seenLinks := make(map[string]bool)
	seenImages := make(map[string]bool)

	for i := range urls {
		if f := failures[i]; f != nil {
			batch.Failed = append(batch.Failed, *f)
			continue
		}
		r := results[i]
		if r == nil {
			// Cancelled before this URL was attempted.
			msg := "cancelled"
			if cause := context.Cause(ctx); cause != nil {
				msg = cause.Error()
			}
			batch.Failed = append(batch.Failed, FailedURL{URL: urls[i], Error: msg})
			continue
		}
		batch.Pages = append(batch.Pages, r.content)
		for _, link := range r.links {
			if !seenLinks[link] {
				seenLinks[link] = true
				batch.Links = append(batch.Links, link)
			}
		}
		for _, img := range r.images {
			if !seenImages[img] {
				seenImages[img] = true
				batch.Images = append(batch.Images, img)
			}
		}
	}

	slog.Debug("batch extraction finished",
		"requested", len(urls), "succeeded", len(batch.Pages), "failed", len(batch.Failed))
	return batch
}
