// Package fetch retrieves listing pages and images with bounded retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"listing-guard/utils"
)

// ErrUnavailable is returned once every attempt for a page has failed.
// Callers treat it as skip-and-continue.
var ErrUnavailable = errors.New("fetch: page unavailable")

const maxBodyBytes = 16 << 20

// Fetcher returns the body of a page, or an error wrapping ErrUnavailable.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options configures the page fetchers.
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	MaxAttempts   int
	MinBodyLength int
	RetryDelayMin time.Duration
	RetryDelayMax time.Duration
	Logger        *utils.Logger

	// Sleep overrides the pause between attempts (tests pass a no-op).
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.MinBodyLength < 0 {
		o.MinBodyLength = 0
	}
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:110.0) Gecko/20100101 Firefox/110.0"
	}
	if o.Logger == nil {
		o.Logger = utils.NewDiscardLogger()
	}
	return o
}

func (o Options) retry() *utils.RetryConfig {
	return &utils.RetryConfig{
		MaxAttempts: o.MaxAttempts,
		MinDelay:    o.RetryDelayMin,
		MaxDelay:    o.RetryDelayMax,
		Logger:      o.Logger,
		Sleep:       o.Sleep,
	}
}

// HTTPFetcher fetches pages over plain HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	minBody   int
	retry     *utils.RetryConfig
}

// NewHTTPFetcher builds an HTTPFetcher from opts.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	opts = opts.withDefaults()
	return &HTTPFetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		minBody:   opts.MinBodyLength,
		retry:     opts.retry(),
	}
}

// Fetch retries until a 200 response with a real page body arrives.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	err := f.retry.Do(ctx, "fetch "+url, func() error {
		b, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		if err := checkBody(b, f.minBody); err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, url, err)
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	setBrowserHeaders(req, f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status code %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

// checkBody rejects bodies too short to be a real page (block pages, stubs).
func checkBody(body string, minLen int) error {
	if n := utf8.RuneCountInString(body); n <= minLen {
		return fmt.Errorf("body too short (%d chars)", n)
	}
	return nil
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ro-RO,ro;q=0.9,en-US;q=0.8")
}
