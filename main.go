package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"listing-guard/config"
	"listing-guard/crawl"
	"listing-guard/extract"
	"listing-guard/fetch"
	"listing-guard/services"
	"listing-guard/storage"
	"listing-guard/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("Crawl finished with errors: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Listing crawler starting ===")
	logger.Info("Config — list: %s | start page: %d | max new: %d | max pages: %d | fetch: %s",
		cfg.ListURL, cfg.StartPage, cfg.MaxNewListings, cfg.MaxPages, cfg.FetchMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, closeFetcher := newFetcher(cfg, logger)
	defer closeFetcher()

	extractor := extract.New(
		extract.WithProfileFetcher(fetcher),
		extract.WithBaseURL(cfg.SourceBaseURL),
		extract.WithRONDivisor(cfg.RONEURDivisor),
		extract.WithLogger(logger),
	)

	csvStore := storage.NewCSVStore(cfg.CSVPath, logger)
	var reader storage.ListingReader = csvStore

	opts := []crawl.Option{
		crawl.WithLogger(logger),
		crawl.WithImageDownloader(fetch.NewImageFetcher(cfg.ImageTimeout, cfg.UserAgent)),
	}
	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Make sure Docker is running: docker compose up -d")
			return fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		defer pgWriter.Close()
		opts = append(opts, crawl.WithMirror(pgWriter))
		reader = pgWriter
	}

	frontier := crawl.New(crawl.Config{
		ListURL:           cfg.ListURL,
		ListingPathMarker: cfg.ListingPathMarker,
		StartPage:         cfg.StartPage,
		MaxPages:          cfg.MaxPages,
		MaxNew:            cfg.MaxNewListings,
		ListingDelayMin:   cfg.ListingDelayMin,
		ListingDelayMax:   cfg.ListingDelayMax,
		PageDelayMin:      cfg.PageDelayMin,
		PageDelayMax:      cfg.PageDelayMax,
		SkipFirstImage:    cfg.SkipFirstImage,
		ImagesDir:         cfg.ImagesDir,
	}, fetcher, extractor, csvStore, opts...)

	result, err := frontier.Run(ctx)

	newListings := 0
	if result != nil {
		newListings = result.Committed
		logger.Info("Crawl — pages: %d | new: %d | committed: %d | failed: %d",
			result.Pages, result.NewListings, result.Committed, result.Failed)
	}

	stored, ferr := reader.FetchAll()
	if ferr != nil {
		logger.Error("Failed to fetch listings for the report: %v", ferr)
		stored = csvStore.Records()
	}
	reportSvc := services.NewReportService(logger)
	reportSvc.Print(reportSvc.Generate(stored, newListings))

	fmt.Printf("  Done. Listings → %s | Images → %s\n\n", cfg.CSVPath, cfg.ImagesDir)
	return err
}

// newFetcher picks the page fetcher for cfg.FetchMode. The returned func
// releases it.
func newFetcher(cfg *config.Config, logger *utils.Logger) (fetch.Fetcher, func()) {
	opts := fetch.Options{
		Timeout:       cfg.FetchTimeout,
		UserAgent:     cfg.UserAgent,
		MaxAttempts:   cfg.MaxRetries,
		MinBodyLength: cfg.MinBodyLength,
		RetryDelayMin: cfg.RetryDelayMin,
		RetryDelayMax: cfg.RetryDelayMax,
		Logger:        logger,
	}
	if cfg.FetchMode == "browser" {
		b := fetch.NewBrowserFetcher(opts, cfg.ChromeBin)
		return b, b.Close
	}
	return fetch.NewHTTPFetcher(opts), func() {}
}
