package fusion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrModelUnavailable wraps every failure of a remote model.
var ErrModelUnavailable = errors.New("fusion: model unavailable")

type priceRequest struct {
	Images    [][]float32 `json:"images"`
	Rooms     float64     `json:"rooms"`
	SurfaceM2 float64     `json:"surface_m2"`
}

type priceResponse struct {
	Price float64 `json:"price"`
}

type fraudRequest struct {
	Description   string  `json:"description"`
	SellerAgeDays int     `json:"seller_age_days"`
	SellerPosts   int     `json:"seller_posts"`
	PriceDelta    float64 `json:"price_delta"`
}

type fraudResponse struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

// HTTPPriceModel calls a price model served over HTTP.
type HTTPPriceModel struct {
	endpoint string
	client   *http.Client
}

// NewHTTPPriceModel returns nil when endpoint is empty, meaning no model.
func NewHTTPPriceModel(endpoint string, timeout time.Duration) *HTTPPriceModel {
	if endpoint == "" {
		return nil
	}
	return &HTTPPriceModel{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// EstimatePrice posts the features and returns the predicted EUR price.
func (m *HTTPPriceModel) EstimatePrice(ctx context.Context, features PriceFeatures) (float64, error) {
	if m == nil {
		return 0, ErrModelUnavailable
	}
	req := priceRequest{Rooms: features.Rooms, SurfaceM2: features.SurfaceM2}
	for _, t := range features.Images {
		req.Images = append(req.Images, t)
	}

	var resp priceResponse
	if err := postJSON(ctx, m.client, m.endpoint, req, &resp); err != nil {
		return 0, err
	}
	return resp.Price, nil
}

// HTTPFraudModel calls a fraud classifier served over HTTP.
type HTTPFraudModel struct {
	endpoint string
	client   *http.Client
}

// NewHTTPFraudModel returns nil when endpoint is empty, meaning no model.
func NewHTTPFraudModel(endpoint string, timeout time.Duration) *HTTPFraudModel {
	if endpoint == "" {
		return nil
	}
	return &HTTPFraudModel{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// PredictFraud posts the features. Probabilities outside [0, 1] are rejected.
func (m *HTTPFraudModel) PredictFraud(ctx context.Context, features FraudFeatures) (FraudPrediction, error) {
	if m == nil {
		return FraudPrediction{}, ErrModelUnavailable
	}
	req := fraudRequest{
		Description:   features.Description,
		SellerAgeDays: features.SellerAgeDays,
		SellerPosts:   features.SellerPosts,
		PriceDelta:    features.PriceDelta,
	}

	var resp fraudResponse
	if err := postJSON(ctx, m.client, m.endpoint, req, &resp); err != nil {
		return FraudPrediction{}, err
	}
	if resp.Probability < 0 || resp.Probability > 1 {
		return FraudPrediction{}, fmt.Errorf("%w: probability %v out of range", ErrModelUnavailable, resp.Probability)
	}
	return FraudPrediction{Label: resp.Label, Probability: resp.Probability}, nil
}

func postJSON(ctx context.Context, client *http.Client, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: encode request: %w", ErrModelUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrModelUnavailable, endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrModelUnavailable, err)
	}
	return nil
}
