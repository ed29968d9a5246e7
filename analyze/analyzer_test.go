package analyze

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"listing-guard/extract"
	"listing-guard/fetch"
	"listing-guard/fusion"
	"listing-guard/models"
	"listing-guard/utils"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

type MockPriceModel struct {
	mock.Mock
}

func (m *MockPriceModel) EstimatePrice(ctx context.Context, f fusion.PriceFeatures) (float64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(float64), args.Error(1)
}

type MockFraudModel struct {
	mock.Mock
}

func (m *MockFraudModel) PredictFraud(ctx context.Context, f fusion.FraudFeatures) (fusion.FraudPrediction, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(fusion.FraudPrediction), args.Error(1)
}

const listingURL = "https://www.publi24.ro/anunturi/imobiliare/de-vanzare/anunt/casa-1.html"

const saleNoImages = `<html><body>
	<h1>Apartament de vânzare, 3 camere, 80 mp</h1>
	<div class="price">85.000 EUR</div>
</body></html>`

type harness struct {
	fetcher    *MockFetcher
	priceModel *MockPriceModel
	fraudModel *MockFraudModel
	analyzer   *Analyzer
}

func newHarness(withModels bool) *harness {
	h := &harness{fetcher: new(MockFetcher), priceModel: new(MockPriceModel), fraudModel: new(MockFraudModel)}
	logger := utils.NewDiscardLogger()

	var (
		pm fusion.PriceModel
		fm fusion.FraudModel
	)
	if withModels {
		pm, fm = h.priceModel, h.fraudModel
	}
	h.analyzer = New("publi24.ro", h.fetcher, extract.New(),
		fusion.NewPriceFusion(pm, nil, nil, logger),
		fusion.NewFraudFusion(fm, logger),
		logger)
	return h
}

func TestAnalyze_SaleWithoutImages(t *testing.T) {
	h := newHarness(true)
	h.fetcher.On("Fetch", mock.Anything, listingURL).Return(saleNoImages, nil)
	h.fraudModel.On("PredictFraud", mock.Anything, mock.Anything).Return(fusion.FraudPrediction{Probability: 0.3}, nil)

	res, err := h.analyzer.Analyze(context.Background(), listingURL)

	require.NoError(t, err)
	assert.False(t, res.WrongType)
	assert.Equal(t, models.ListingSale, res.Record.Type)
	assert.Equal(t, 85000.0, res.Record.Price)
	assert.Equal(t, 3.0, res.Record.Rooms)
	assert.Equal(t, 80.0, res.Record.SurfaceM2)
	assert.Empty(t, res.Record.Images)

	h.priceModel.AssertNotCalled(t, "EstimatePrice", mock.Anything, mock.Anything)
	assert.False(t, res.Price.ModelUsed)
	assert.Equal(t, 128000.0, res.Price.MarketReference)
	assert.Equal(t, 102200.0, res.Price.Adjusted)

	assert.Equal(t, 55.0, res.Fusion.FraudProbability)
	assert.Equal(t, models.VerdictFlagged, res.Fusion.Verdict)
	assert.Equal(t, MessageFlagged, res.Message)
}

func TestAnalyze_NoCollaborators(t *testing.T) {
	h := newHarness(false)
	h.fetcher.On("Fetch", mock.Anything, listingURL).Return(saleNoImages, nil)

	res, err := h.analyzer.Analyze(context.Background(), listingURL)

	require.NoError(t, err)
	assert.Equal(t, 102200.0, res.Fusion.AdjustedPrice)
	assert.Equal(t, 55.0, res.Fusion.FraudProbability)
}

func TestAnalyze_UnderpricedListingIsFlagged(t *testing.T) {
	h := newHarness(false)
	page := `<html><body><h1>Vand casa Cluj, 100 mp</h1><div class="price">40.000 EUR</div>
		<a href="https://cdn.publi24.ro/photos/1.jpg">poza</a></body></html>`
	h.fetcher.On("Fetch", mock.Anything, listingURL).Return(page, nil)

	res, err := h.analyzer.Analyze(context.Background(), listingURL)

	require.NoError(t, err)
	assert.Equal(t, 250000.0, res.Price.MarketReference)
	assert.Equal(t, 187000.0, res.Price.Adjusted)
	assert.Equal(t, fusion.UnderpricedFloor, res.Fusion.FraudProbability)
	assert.Equal(t, models.VerdictFlagged, res.Fusion.Verdict)
}

func TestAnalyze_WrongTypeGate(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"rental title", `<html><body><h1>Închiriez apartament 2 camere</h1><div class="price">450 EUR</div></body></html>`},
		{"rental-sized price", `<html><body><h1>Apartament 2 camere</h1><div class="price">1.500 EUR</div></body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(true)
			h.fetcher.On("Fetch", mock.Anything, listingURL).Return(tt.page, nil)

			res, err := h.analyzer.Analyze(context.Background(), listingURL)

			require.NoError(t, err)
			assert.True(t, res.WrongType)
			assert.Equal(t, MessageWrongType, res.Message)
			assert.Equal(t, models.FusionResult{}, res.Fusion)
			h.priceModel.AssertNotCalled(t, "EstimatePrice", mock.Anything, mock.Anything)
			h.fraudModel.AssertNotCalled(t, "PredictFraud", mock.Anything, mock.Anything)
		})
	}
}

func TestAnalyze_InvalidURLNeverFetches(t *testing.T) {
	for _, raw := range []string{
		"",
		"not a url",
		"https://www.olx.ro/anunt/casa.html",
		"https://publi24.ro.evil.com/anunt/1",
		"ftp://www.publi24.ro/anunt/1",
	} {
		t.Run(raw, func(t *testing.T) {
			h := newHarness(false)

			_, err := h.analyzer.Analyze(context.Background(), raw)

			assert.ErrorIs(t, err, ErrInvalidURL)
			h.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
		})
	}
}

func TestAnalyze_FetchFailure(t *testing.T) {
	h := newHarness(false)
	h.fetcher.On("Fetch", mock.Anything, listingURL).
		Return("", fmt.Errorf("%w: %s: %w", fetch.ErrUnavailable, listingURL, errors.New("timeout")))

	_, err := h.analyzer.Analyze(context.Background(), listingURL)

	assert.ErrorIs(t, err, fetch.ErrUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidURL)
}

type panickingFetcher struct{}

func (panickingFetcher) Fetch(context.Context, string) (string, error) { panic("boom") }

func TestAnalyze_RecoversPanics(t *testing.T) {
	logger := utils.NewDiscardLogger()
	a := New("publi24.ro", panickingFetcher{}, extract.New(),
		fusion.NewPriceFusion(nil, nil, nil, logger), fusion.NewFraudFusion(nil, logger), logger)

	res, err := a.Analyze(context.Background(), listingURL)

	assert.Nil(t, res)
	assert.ErrorContains(t, err, "boom")
}

func TestIsWrongType(t *testing.T) {
	rec := models.NewListingRecord(listingURL)
	assert.False(t, IsWrongType(rec), "unknown price is not gated")

	rec.Price = 1999
	assert.True(t, IsWrongType(rec))

	rec.Price = 2000
	assert.False(t, IsWrongType(rec))

	rec.Type = models.ListingRent
	assert.True(t, IsWrongType(rec))
}
