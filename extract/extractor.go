package extract

import (
	"context"
	"net/url"
	"time"

	"listing-guard/fetch"
	"listing-guard/models"
	"listing-guard/utils"
)

// Extractor builds ListingRecords from parsed pages.
type Extractor struct {
	profiles   fetch.Fetcher
	baseURL    *url.URL
	ronDivisor float64
	images     ImageExtractor
	now        func() time.Time
	logger     *utils.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithProfileFetcher enables seller profile lookups through f.
func WithProfileFetcher(f fetch.Fetcher) Option {
	return func(e *Extractor) { e.profiles = f }
}

// WithBaseURL sets the site root that relative profile links resolve against.
func WithBaseURL(base string) Option {
	return func(e *Extractor) {
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			e.baseURL = u
		}
	}
}

// WithRONDivisor sets the RON to EUR divisor. Non-positive values are ignored.
func WithRONDivisor(d float64) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.ronDivisor = d
		}
	}
}

// WithImageExtractor replaces the image tiers.
func WithImageExtractor(x ImageExtractor) Option {
	return func(e *Extractor) { e.images = x }
}

// WithClock sets the time source used for seller account age.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithLogger logs recovered field panics and profile failures to l.
func WithLogger(l *utils.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Extractor with production defaults.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		ronDivisor: models.DefaultRONEURDivisor,
		images:     DefaultImageExtractor(),
		now:        time.Now,
		logger:     utils.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fills a record from p. Fields whose strategies all miss keep their
// defaults; a panicking strategy only costs its own field.
func (e *Extractor) Extract(ctx context.Context, p *Page) *models.ListingRecord {
	rec := models.NewListingRecord(p.URL)

	e.guard(p.URL, "title", func() {
		rec.Title = firstOf(p, models.DefaultTitle, titleFromHeading)
	})
	e.guard(p.URL, "type", func() {
		if t, ok := typeFromTitle(rec.Title); ok {
			rec.Type = t
			return
		}
		rec.Type = firstOf(p, models.ListingSale, typeFromBreadcrumb)
	})
	e.guard(p.URL, "price", func() {
		price := firstOf(p, priceResult{}, e.priceFromElements, priceFromText)
		rec.Price, rec.Currency = price.EUR, price.Currency
	})
	e.guard(p.URL, "surface", func() {
		rec.SurfaceM2 = firstOf(p, models.DefaultSurfaceM2, surfaceFromText)
	})
	e.guard(p.URL, "rooms", func() {
		rec.Rooms = firstOf(p, models.DefaultRooms, roomsFromText)
	})
	e.guard(p.URL, "description", func() {
		rec.Description = firstOf(p, "", descriptionAfterLabel, descriptionFromContainer)
	})
	e.guard(p.URL, "images", func() {
		rec.Images = e.images.Extract(p)
	})
	e.guard(p.URL, "seller", func() {
		rec.Seller = e.seller(ctx, p)
	})

	return rec
}

type strategy[T any] func(p *Page) (T, bool)

func firstOf[T any](p *Page, fallback T, strategies ...strategy[T]) T {
	for _, s := range strategies {
		if v, ok := s(p); ok {
			return v
		}
	}
	return fallback
}

func (e *Extractor) guard(pageURL, field string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("[extract] %s strategy panicked on %s: %v", field, pageURL, r)
		}
	}()
	fn()
}
