package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"listing-guard/analyze"
	"listing-guard/models"
	"listing-guard/utils"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, url string) (*analyze.Result, error) {
	args := m.Called(ctx, url)
	res, _ := args.Get(0).(*analyze.Result)
	return res, args.Error(1)
}

const listingURL = "https://www.publi24.ro/anunt/casa-1.html"

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func newRouter(a Analyzer) http.Handler {
	return NewHandler(a, utils.NewDiscardLogger()).Router()
}

func TestHandleAnalyze_Success(t *testing.T) {
	record := models.NewListingRecord(listingURL)
	record.Title = "Apartament de vânzare, 3 camere, 80 mp"
	record.Price = 85000.4
	record.Rooms = 3
	record.SurfaceM2 = 80

	a := new(MockAnalyzer)
	a.On("Analyze", mock.Anything, listingURL).Return(&analyze.Result{
		Message: analyze.MessageFlagged,
		Record:  record,
		Fusion:  models.FusionResult{AdjustedPrice: 102200, FraudProbability: 55, Verdict: models.VerdictFlagged},
	}, nil)

	rec, out := post(t, newRouter(a), fmt.Sprintf(`{"url": %q}`, listingURL))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, 1.0, out["is_fraud"])
	assert.Equal(t, 55.0, out["confidence"])
	assert.Equal(t, 102200.0, out["ai_price"])
	assert.Equal(t, analyze.MessageFlagged, out["message"])

	details := out["details"].(map[string]any)
	assert.Equal(t, "Apartament de vânzare, 3 camere, 80 mp", details["Titlu"])
	assert.Equal(t, 85000.0, details["Pret"])
	assert.Equal(t, 80.0, details["Suprafata"])
	assert.Equal(t, 3.0, details["Camere"])
	assert.Equal(t, 30.0, details["SellerDays"])
	assert.Equal(t, 0.0, details["SellerPosts"])
	assert.Equal(t, []any{}, details["Images"])
}

func TestHandleAnalyze_WrongType(t *testing.T) {
	a := new(MockAnalyzer)
	a.On("Analyze", mock.Anything, listingURL).Return(&analyze.Result{
		WrongType: true,
		Message:   analyze.MessageWrongType,
		Record:    models.NewListingRecord(listingURL),
	}, nil)

	rec, out := post(t, newRouter(a), fmt.Sprintf(`{"url": %q}`, listingURL))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WRONG_TYPE", out["error_type"])
	assert.Equal(t, analyze.MessageWrongType, out["message"])
	assert.NotContains(t, out, "success")
}

func TestHandleAnalyze_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"url":`},
		{"missing url", `{}`},
		{"empty url", `{"url": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := new(MockAnalyzer)

			rec, out := post(t, newRouter(a), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Link invalid", out["error"])
			a.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleAnalyze_InvalidURL(t *testing.T) {
	a := new(MockAnalyzer)
	a.On("Analyze", mock.Anything, "https://olx.ro/x").
		Return(nil, fmt.Errorf("%w: olx.ro is not on publi24.ro", analyze.ErrInvalidURL))

	rec, out := post(t, newRouter(a), `{"url": "https://olx.ro/x"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Link invalid", out["error"])
}

func TestHandleAnalyze_InternalError(t *testing.T) {
	a := new(MockAnalyzer)
	a.On("Analyze", mock.Anything, listingURL).Return(nil, errors.New("analyze: fetch: page unavailable"))

	rec, out := post(t, newRouter(a), fmt.Sprintf(`{"url": %q}`, listingURL))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "analyze: fetch: page unavailable", out["error"])
}

func TestPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	rec := httptest.NewRecorder()

	newRouter(new(MockAnalyzer)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	newRouter(new(MockAnalyzer)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
