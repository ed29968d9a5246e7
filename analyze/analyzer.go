// Package analyze runs the on-demand pipeline for a single listing URL:
// fetch, extract, gate on listing type, fuse price and fraud signals.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"listing-guard/extract"
	"listing-guard/fetch"
	"listing-guard/fusion"
	"listing-guard/models"
	"listing-guard/utils"
)

// ErrInvalidURL is returned before any fetch when the URL is not a listing
// on the configured source domain.
var ErrInvalidURL = errors.New("analyze: invalid listing URL")

// User-facing messages.
const (
	MessageWrongType = "⚠️ STOP! Acest anunț este de ÎNCHIRIERE. Aplicația verifică doar VÂNZĂRI."
	MessageFlagged   = "RISC MARE"
	MessageCleared   = "VERIFICAT"
)

// Result is the outcome of one analysis. When WrongType is set the listing
// was gated out and Price and Fusion are zero.
type Result struct {
	WrongType bool
	Message   string
	Record    *models.ListingRecord
	Price     fusion.PriceOutcome
	Fusion    models.FusionResult
}

// Analyzer wires the pipeline. Price and fraud fusion work without their
// models; only the fetcher and extractor are required.
type Analyzer struct {
	domain    string
	fetcher   fetch.Fetcher
	extractor *extract.Extractor
	price     *fusion.PriceFusion
	fraud     *fusion.FraudFusion
	logger    *utils.Logger
}

// New builds an Analyzer for listings on domain. Nil fusions and logger are
// replaced by model-less fusions and a discarding logger.
func New(domain string, fetcher fetch.Fetcher, extractor *extract.Extractor,
	price *fusion.PriceFusion, fraud *fusion.FraudFusion, logger *utils.Logger) *Analyzer {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	if price == nil {
		price = fusion.NewPriceFusion(nil, nil, nil, logger)
	}
	if fraud == nil {
		fraud = fusion.NewFraudFusion(nil, logger)
	}
	return &Analyzer{
		domain:    strings.ToLower(domain),
		fetcher:   fetcher,
		extractor: extractor,
		price:     price,
		fraud:     fraud,
		logger:    logger,
	}
}

// Analyze scores the listing at rawURL.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("[analyze] Pipeline panicked on %s: %v", rawURL, r)
			res, err = nil, fmt.Errorf("analyze: internal error: %v", r)
		}
	}()

	listingURL, err := a.validate(rawURL)
	if err != nil {
		return nil, err
	}

	body, err := a.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("analyze: fetch: %w", err)
	}
	page, err := extract.NewPage(listingURL, body)
	if err != nil {
		return nil, fmt.Errorf("analyze: parse: %w", err)
	}
	rec := a.extractor.Extract(ctx, page)

	if IsWrongType(rec) {
		a.logger.Info("[analyze] %s gated out (%s, %.0f EUR)", listingURL, rec.Type, rec.Price)
		return &Result{WrongType: true, Message: MessageWrongType, Record: rec}, nil
	}

	price := a.price.Fuse(ctx, rec)
	verdict := a.fraud.Score(ctx, rec, price.Adjusted)

	message := MessageCleared
	if verdict.Verdict == models.VerdictFlagged {
		message = MessageFlagged
	}

	a.logger.Info("[analyze] %s → %s (%.2f%%), adjusted %.0f EUR",
		listingURL, verdict.Verdict, verdict.FraudProbability, price.Adjusted)
	return &Result{Message: message, Record: rec, Price: price, Fusion: verdict}, nil
}

// IsWrongType reports whether rec is outside the sale-only scope: rentals,
// and any positive price under the rental ceiling.
func IsWrongType(rec *models.ListingRecord) bool {
	if rec.Type == models.ListingRent {
		return true
	}
	return rec.Price > 0 && rec.Price < models.WrongTypePriceCeiling
}

func (a *Analyzer) validate(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	host := strings.ToLower(u.Hostname())
	if host != a.domain && !strings.HasSuffix(host, "."+a.domain) {
		return "", fmt.Errorf("%w: %s is not on %s", ErrInvalidURL, host, a.domain)
	}
	return u.String(), nil
}
