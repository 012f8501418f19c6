package enrich

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the page-fetch retries. Only the fetch is retried;
// extraction runs once on whatever the fetch returned.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2.0,
		MaxInterval:     10 * time.Second,
	}
}

// Fetcher retrieves a post's linked page and extracts a preview-image URL
// from its Open Graph image meta tag.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	policy     RetryPolicy

	// OnRetry is invoked before each retry with the failure and the delay
	// until the next attempt. Defaults to a warn log.
	OnRetry func(err error, delay time.Duration)
}

func NewFetcher(httpClient *http.Client, userAgent string, policy RetryPolicy) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		policy:     policy,
	}
}

// ThumbnailURL fetches the page and returns the og:image URL, or an empty
// string when the page has no such tag. An empty result is final and valid;
// only the fetch itself can fail.
func (f *Fetcher) ThumbnailURL(ctx context.Context, pageURL string) (string, error) {
	data, err := f.fetchPage(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}

	return extractOpenGraphImage(data), nil
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.policy.InitialInterval
	bo.Multiplier = f.policy.Multiplier
	bo.MaxInterval = f.policy.MaxInterval

	var data []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		return nil
	}

	notify := f.OnRetry
	if notify == nil {
		notify = func(err error, delay time.Duration) {
			slog.Warn("Retrying page fetch", "url", pageURL, "delay", delay.String(), "error", err)
		}
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, f.policy.MaxRetries), ctx),
		notify)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func extractOpenGraphImage(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	content, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return content
}
