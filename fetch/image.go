package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxImageBytes = 8 << 20

// ImageFetcher downloads images in a single short attempt.
// Callers degrade on failure instead of retrying.
type ImageFetcher struct {
	client    *http.Client
	userAgent string
}

// NewImageFetcher creates an ImageFetcher; timeout defaults to 2s.
func NewImageFetcher(timeout time.Duration, userAgent string) *ImageFetcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ImageFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// DownloadImage returns the image bytes and the reported content type.
func (f *ImageFetcher) DownloadImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: image request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch: image %s: status code %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("fetch: image %s: %w", url, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
