package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"listing-guard/utils"
)

// BrowserFetcher renders pages in headless Chrome. It gets past
// interstitials that plain HTTP clients are served.
type BrowserFetcher struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	timeout    time.Duration
	settle     time.Duration
	minBody    int
	retry      *utils.RetryConfig
}

// NewBrowserFetcher starts a headless browser. Close must be called to release it.
func NewBrowserFetcher(opts Options, chromeBin string) *BrowserFetcher {
	opts = opts.withDefaults()

	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	opts.Logger.Info("[fetch] Using browser binary: %q", chromeBin)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.UserAgent),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &BrowserFetcher{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		timeout: opts.Timeout + 30*time.Second,
		settle:  3 * time.Second,
		minBody: opts.MinBodyLength,
		retry:   opts.retry(),
	}
}

// Fetch navigates a fresh tab to url and returns the rendered document.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	err := b.retry.Do(ctx, "render "+url, func() error {
		tabCtx, cancel := chromedp.NewContext(b.browserCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
		defer cancelTimeout()

		var html string
		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(b.settle),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("chromedp render: %w", err)
		}
		if err := checkBody(html, b.minBody); err != nil {
			return err
		}
		body = html
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, url, err)
	}
	return body, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.cancel()
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
