package fusion

import (
	"context"
	"math"

	"listing-guard/models"
	"listing-guard/utils"
)

// Fraud scoring constants, in percent.
const (
	BaseFraudProbability = 30.0
	UnderpricedFloor     = 85.0
	NoImagesPenalty      = 25.0
	MaxFraudProbability  = 99.0
	FlagThreshold        = 50.0
	underpricedRatio     = 0.5
)

// FraudFeatures is the input of a fraud model. The model owns its text
// vectorizer.
type FraudFeatures struct {
	Description   string
	SellerAgeDays int
	SellerPosts   int
	PriceDelta    float64
}

// FraudPrediction is a fraud model's answer; Probability is in [0, 1].
type FraudPrediction struct {
	Label       int
	Probability float64
}

// FraudModel classifies a listing.
type FraudModel interface {
	PredictFraud(ctx context.Context, features FraudFeatures) (FraudPrediction, error)
}

// ApplyFraudRules raises base with the rule overrides and caps the result.
// A listing scraped below half its fused price scores at least
// UnderpricedFloor; a listing without images gets NoImagesPenalty on top.
func ApplyFraudRules(base, scraped, fused float64, imageCount int) models.FusionResult {
	p := base
	if scraped < fused*underpricedRatio {
		p = math.Max(p, UnderpricedFloor)
	}
	if imageCount == 0 {
		p += NoImagesPenalty
	}
	p = math.Min(p, MaxFraudProbability)

	verdict := models.VerdictCleared
	if p > FlagThreshold {
		verdict = models.VerdictFlagged
	}
	return models.FusionResult{AdjustedPrice: fused, FraudProbability: p, Verdict: verdict}
}

// FraudFusion scores a listing against its adjusted price.
type FraudFusion struct {
	model  FraudModel
	logger *utils.Logger
}

// NewFraudFusion builds a FraudFusion. A nil model scores with the base
// probability only.
func NewFraudFusion(model FraudModel, logger *utils.Logger) *FraudFusion {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &FraudFusion{model: model, logger: logger}
}

// Score returns the final fraud probability and verdict for rec.
func (f *FraudFusion) Score(ctx context.Context, rec *models.ListingRecord, fused float64) models.FusionResult {
	base := BaseFraudProbability
	if f.model != nil {
		pred, err := f.model.PredictFraud(ctx, FraudFeatures{
			Description:   rec.Description,
			SellerAgeDays: rec.Seller.AccountAgeDays,
			SellerPosts:   rec.Seller.PostCount,
			PriceDelta:    rec.Price - fused,
		})
		if err != nil {
			f.logger.Warn("[fusion] Fraud model failed, using base probability: %v", err)
		} else {
			base = math.Round(pred.Probability*100*100) / 100
		}
	}
	return ApplyFraudRules(base, rec.Price, fused, len(rec.Images))
}
