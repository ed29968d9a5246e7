// Package crawl walks the paginated listing index, extracts every listing it
// has not stored yet and checkpoints the store after each page.
package crawl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"listing-guard/extract"
	"listing-guard/fetch"
	"listing-guard/models"
	"listing-guard/services"
	"listing-guard/storage"
	"listing-guard/utils"
)

// Config bounds a crawl run.
type Config struct {
	ListURL           string
	ListingPathMarker string
	StartPage         int
	MaxPages          int
	MaxNew            int
	ListingDelayMin   time.Duration
	ListingDelayMax   time.Duration
	PageDelayMin      time.Duration
	PageDelayMax      time.Duration
	SkipFirstImage    bool
	ImagesDir         string
}

// ImageDownloader fetches raw image bytes.
type ImageDownloader interface {
	DownloadImage(ctx context.Context, url string) ([]byte, string, error)
}

// Result summarizes a finished run.
type Result struct {
	Pages       int
	NewListings int
	Committed   int
	Failed      int
}

// Frontier drives a crawl run.
type Frontier struct {
	cfg          Config
	fetcher      fetch.Fetcher
	extractor    *extract.Extractor
	store        storage.CheckpointStore
	images       ImageDownloader
	mirror       storage.ListingWriter
	cleaner      *services.Cleaner
	listingPacer *utils.Pacer
	pagePacer    *utils.Pacer
	logger       *utils.Logger

	state  *CrawlState
	result *Result
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithImageDownloader enables image downloads into Config.ImagesDir.
func WithImageDownloader(d ImageDownloader) Option {
	return func(f *Frontier) { f.images = d }
}

// WithMirror copies every committed batch to w. Mirror failures are logged only.
func WithMirror(w storage.ListingWriter) Option {
	return func(f *Frontier) { f.mirror = w }
}

// WithLogger sets the run logger. A nil logger keeps the discarding default.
func WithLogger(l *utils.Logger) Option {
	return func(f *Frontier) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithSleep replaces the pacing sleep, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Frontier) {
		f.listingPacer.Sleep = sleep
		f.pagePacer.Sleep = sleep
	}
}

// New creates a Frontier. The store must not have been loaded yet.
func New(cfg Config, fetcher fetch.Fetcher, extractor *extract.Extractor, store storage.CheckpointStore, opts ...Option) *Frontier {
	if cfg.StartPage < 1 {
		cfg.StartPage = 1
	}
	f := &Frontier{
		cfg:          cfg,
		fetcher:      fetcher,
		extractor:    extractor,
		store:        store,
		listingPacer: utils.NewPacer(cfg.ListingDelayMin, cfg.ListingDelayMax),
		pagePacer:    utils.NewPacer(cfg.PageDelayMin, cfg.PageDelayMax),
		logger:       utils.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cleaner == nil {
		f.cleaner = services.NewCleaner(f.logger)
	}
	return f
}

// Run crawls until MaxNew listings are staged or MaxPages is passed.
func (f *Frontier) Run(ctx context.Context) (*Result, error) {
	snap, err := f.store.Load()
	if err != nil {
		return nil, fmt.Errorf("crawl: load store: %w", err)
	}
	f.state = NewCrawlState(snap.SeenURLs, snap.MaxID)
	f.result = &Result{}

	if f.images != nil {
		if err := os.MkdirAll(f.cfg.ImagesDir, 0755); err != nil {
			return nil, fmt.Errorf("crawl: create images dir: %w", err)
		}
	}

	f.logger.Info("[crawl] Starting at page %d — %d known listings, next id %d, target %d new",
		f.cfg.StartPage, f.state.SeenCount(), f.state.NextID(), f.cfg.MaxNew)

	for page := f.cfg.StartPage; f.result.NewListings < f.cfg.MaxNew && page <= f.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return f.finish(err)
		}
		f.result.Pages++

		newLinks, ok := f.discover(ctx, page)
		if !ok || len(newLinks) == 0 {
			continue
		}

		for _, link := range newLinks {
			if f.result.NewListings >= f.cfg.MaxNew {
				break
			}
			if f.processListing(ctx, link) {
				f.result.NewListings++
			} else {
				f.result.Failed++
			}
			if err := f.listingPacer.Wait(ctx); err != nil {
				return f.finish(err)
			}
		}

		f.checkpoint()

		f.logger.Info("[crawl] Page %d done — %d new so far, cooling down", page, f.result.NewListings)
		if err := f.pagePacer.Wait(ctx); err != nil {
			return f.finish(err)
		}
	}

	return f.finish(nil)
}

// finish retries any batch still staged after a failed checkpoint.
func (f *Frontier) finish(cause error) (*Result, error) {
	if f.state.PendingCount() > 0 {
		f.checkpoint()
	}
	if n := f.state.PendingCount(); n > 0 {
		f.logger.Error("[crawl] %d staged listings could not be persisted", n)
		if cause == nil {
			cause = fmt.Errorf("crawl: %d staged listings not persisted", n)
		}
	}
	f.logger.Info("[crawl] Run complete — pages: %d | new: %d | committed: %d | failed: %d",
		f.result.Pages, f.result.NewListings, f.result.Committed, f.result.Failed)
	return f.result, cause
}

// discover fetches list page n and returns the links not stored or staged yet.
func (f *Frontier) discover(ctx context.Context, n int) ([]string, bool) {
	pageURL := ListPageURL(f.cfg.ListURL, n)
	f.logger.Info("[crawl] Page %d: %s", n, pageURL)

	body, err := f.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		f.logger.Warn("[crawl] List page %d unavailable, advancing: %v", n, err)
		return nil, false
	}
	page, err := extract.NewPage(pageURL, body)
	if err != nil {
		f.logger.Warn("[crawl] List page %d unparseable, advancing: %v", n, err)
		return nil, false
	}

	var fresh []string
	for _, link := range ExtractListingLinks(page.Doc, pageURL, f.cfg.ListingPathMarker) {
		if !f.state.Known(link) {
			fresh = append(fresh, link)
		}
	}
	f.logger.Info("[crawl] Page %d → %d new links", n, len(fresh))
	return fresh, true
}

// processListing fetches, extracts and stages one listing.
func (f *Frontier) processListing(ctx context.Context, link string) (staged bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("[crawl] Listing %s panicked: %v", link, r)
			staged = false
		}
	}()

	body, err := f.fetcher.Fetch(ctx, link)
	if err != nil {
		f.logger.Warn("[crawl] Listing unavailable, skipping: %v", err)
		return false
	}
	page, err := extract.NewPage(link, body)
	if err != nil {
		f.logger.Warn("[crawl] Listing %s unparseable: %v", link, err)
		return false
	}

	rec := f.extractor.Extract(ctx, page)
	if !f.cleaner.Normalize(rec) {
		return false
	}

	id := f.state.NextID()
	rec.Images = f.downloadImages(ctx, page, id)
	f.state.Stage(rec)

	f.logger.Info("[crawl] [ID %d] %s → %.0f EUR, %d images, seller posts %d",
		id, link, rec.Price, len(rec.Images), rec.Seller.PostCount)
	return true
}

// downloadImages saves up to MaxListingImages candidates as
// anunt_<id>_img_<n>.webp and returns their paths.
func (f *Frontier) downloadImages(ctx context.Context, page *extract.Page, id int64) []string {
	paths := []string{}
	if f.images == nil {
		return paths
	}

	for _, u := range extract.CrawlImageCandidates(page, f.cfg.SkipFirstImage) {
		if len(paths) >= models.MaxListingImages {
			break
		}
		data, _, err := f.images.DownloadImage(ctx, u)
		if err != nil {
			f.logger.Debug("[crawl] Image %s skipped: %v", u, err)
			continue
		}
		name := filepath.Join(f.cfg.ImagesDir, fmt.Sprintf("anunt_%d_img_%d.webp", id, len(paths)+1))
		if err := os.WriteFile(name, data, 0644); err != nil {
			f.logger.Warn("[crawl] Saving %s failed: %v", name, err)
			continue
		}
		paths = append(paths, name)
	}
	return paths
}

// checkpoint persists the staged batch. Only a successful write commits it;
// otherwise the batch stays staged for the next attempt.
func (f *Frontier) checkpoint() {
	batch := f.state.Pending()
	if len(batch) == 0 {
		return
	}

	if err := f.store.Checkpoint(batch); err != nil {
		f.logger.Error("[crawl] Checkpoint failed, keeping %d listings staged: %v", len(batch), err)
		return
	}
	f.state.Commit()
	f.result.Committed += len(batch)

	if f.mirror != nil {
		if err := f.mirror.Write(f.cleaner.Clean(batch)); err != nil {
			f.logger.Warn("[crawl] Mirror write failed: %v", err)
		}
	}
}
