package fusion

import (
	"context"
	"math"

	"listing-guard/models"
	"listing-guard/utils"
)

// Blend weights for FusePrice. When the estimate strays more than
// deviationLimit from the market reference, the reference dominates.
const (
	deviationLimit    = 0.5
	outlierEstimateW  = 0.3
	outlierReferenceW = 0.7
	normalEstimateW   = 0.6
	normalReferenceW  = 0.4
)

// PriceFeatures is the input of a price model.
type PriceFeatures struct {
	Images    [ImageSlots]ImageTensor
	Rooms     float64
	SurfaceM2 float64
}

// PriceModel estimates a listing's EUR value.
type PriceModel interface {
	EstimatePrice(ctx context.Context, features PriceFeatures) (float64, error)
}

// PriceOutcome records how the adjusted price was reached.
type PriceOutcome struct {
	Estimate        float64
	MarketReference float64
	Adjusted        float64
	ModelUsed       bool
}

// FusePrice blends an estimate with the market reference and rounds to the
// nearest euro.
func FusePrice(estimate, marketRef float64) float64 {
	if math.Abs(estimate-marketRef) > marketRef*deviationLimit {
		return math.Round(estimate*outlierEstimateW + marketRef*outlierReferenceW)
	}
	return math.Round(estimate*normalEstimateW + marketRef*normalReferenceW)
}

// PriceFusion produces the adjusted price of a listing. The model and the
// tensorizer are optional; without them the scraped price is the estimate.
type PriceFusion struct {
	model      PriceModel
	tensorizer *Tensorizer
	tiers      *MarketTiers
	logger     *utils.Logger
}

// NewPriceFusion builds a PriceFusion. model and tensorizer may be nil; nil
// tiers and logger fall back to DefaultMarketTiers and a discarding logger.
func NewPriceFusion(model PriceModel, tensorizer *Tensorizer, tiers *MarketTiers, logger *utils.Logger) *PriceFusion {
	if tiers == nil {
		tiers = DefaultMarketTiers()
	}
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &PriceFusion{model: model, tensorizer: tensorizer, tiers: tiers, logger: logger}
}

// Fuse estimates rec's value and blends it with the market reference. The
// title serves as the location hint.
func (f *PriceFusion) Fuse(ctx context.Context, rec *models.ListingRecord) PriceOutcome {
	out := PriceOutcome{
		Estimate:        rec.Price,
		MarketReference: f.tiers.Reference(rec.SurfaceM2, rec.Title),
	}

	if f.model != nil && len(rec.Images) > 0 {
		features := PriceFeatures{Rooms: rec.Rooms, SurfaceM2: rec.SurfaceM2}
		if f.tensorizer != nil {
			features.Images = f.tensorizer.Tensorize(ctx, rec.Images)
		} else {
			for i := range features.Images {
				features.Images[i] = ZeroTensor()
			}
		}

		estimate, err := f.model.EstimatePrice(ctx, features)
		if err != nil {
			f.logger.Warn("[fusion] Price model failed, using scraped price: %v", err)
		} else {
			out.Estimate = estimate
			out.ModelUsed = true
		}
	}

	out.Adjusted = FusePrice(out.Estimate, out.MarketReference)
	return out
}
