package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-guard/analyze"
	"listing-guard/api"
	"listing-guard/config"
	"listing-guard/extract"
	"listing-guard/fetch"
	"listing-guard/fusion"
	"listing-guard/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel)

	logger.Info("=== Listing analysis server starting ===")

	tiers, err := fusion.LoadMarketTiers(cfg.MarketTiersPath)
	if err != nil {
		logger.Error("Failed to load market tiers: %v", err)
		os.Exit(1)
	}

	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		Timeout:       cfg.FetchTimeout,
		UserAgent:     cfg.UserAgent,
		MaxAttempts:   cfg.MaxRetries,
		MinBodyLength: cfg.MinBodyLength,
		RetryDelayMin: cfg.RetryDelayMin,
		RetryDelayMax: cfg.RetryDelayMax,
		Logger:        logger,
	})

	extractor := extract.New(
		extract.WithProfileFetcher(fetcher),
		extract.WithBaseURL(cfg.SourceBaseURL),
		extract.WithRONDivisor(cfg.RONEURDivisor),
		extract.WithLogger(logger),
	)

	var priceModel fusion.PriceModel
	if m := fusion.NewHTTPPriceModel(cfg.PriceModelURL, cfg.FetchTimeout); m != nil {
		priceModel = m
		logger.Info("Price model — %s", cfg.PriceModelURL)
	}
	var fraudModel fusion.FraudModel
	if m := fusion.NewHTTPFraudModel(cfg.FraudModelURL, cfg.FetchTimeout); m != nil {
		fraudModel = m
		logger.Info("Fraud model — %s", cfg.FraudModelURL)
	}

	tensorizer := fusion.NewTensorizer(fetch.NewImageFetcher(cfg.ImageTimeout, cfg.UserAgent), logger)
	analyzer := analyze.New(cfg.SourceDomain, fetcher, extractor,
		fusion.NewPriceFusion(priceModel, tensorizer, tiers, logger),
		fusion.NewFraudFusion(fraudModel, logger),
		logger)

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           api.NewHandler(analyzer, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", cfg.APIAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received %s, shutting down", sig)
	case err := <-errCh:
		logger.Error("Server failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed: %v", err)
	}
}
