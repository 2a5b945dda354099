package analysis

import (
	"github.com/shopspring/decimal"

	"github.com/guarzo/sellerpulse/internal/model"
)

const (
	StrategyCompetitive = "competitive_pricing"
	StrategyValue       = "value_positioning"
	StrategyMaintain    = "maintain_position"
)

// PricingPolicy positions a price against the competitor average. Above
// average*HighFactor the price is cut to average*Undercut; below
// average*LowFactor it is raised to average*Premium.
type PricingPolicy struct {
	HighFactor float64
	LowFactor  float64
	Undercut   float64
	Premium    float64
}

// DefaultPricingPolicy returns the stock policy
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		HighFactor: 1.1,
		LowFactor:  0.9,
		Undercut:   0.95,
		Premium:    1.02,
	}
}

// OptimizePricing compares currentPrice against competitor total costs
func OptimizePricing(currentPrice float64, competitors []model.CompetitorListing, policy PricingPolicy) model.PricingRecommendation {
	rec := model.PricingRecommendation{
		CurrentPrice:     currentPrice,
		RecommendedPrice: currentPrice,
		Strategy:         StrategyMaintain,
		Reasoning:        "No competitor data available; keeping the current price.",
		Competitors:      make([]model.CompetitorPosition, 0, len(competitors)),
	}

	if len(competitors) == 0 {
		return rec
	}

	var sum float64
	for _, comp := range competitors {
		sum += comp.TotalCost
		rec.Competitors = append(rec.Competitors, model.CompetitorPosition{
			SellerID:  comp.SellerID,
			Price:     comp.Price,
			TotalCost: comp.TotalCost,
		})
	}
	avg := sum / float64(len(competitors))
	rec.MarketAverage = Round(avg, 2)

	switch {
	case currentPrice > avg*policy.HighFactor:
		rec.Strategy = StrategyCompetitive
		rec.RecommendedPrice = Round(avg*policy.Undercut, 2)
		rec.Reasoning = "Current price is above market average. Reduce to gain competitive advantage."
	case currentPrice < avg*policy.LowFactor:
		rec.Strategy = StrategyValue
		rec.RecommendedPrice = Round(avg*policy.Premium, 2)
		rec.Reasoning = "Current price is below market. Slight increase can improve perceived value."
	default:
		rec.Reasoning = "Current price is well-positioned within market range."
	}

	return rec
}

// Round rounds half away from zero to the given number of decimal places
func Round(value float64, places int32) float64 {
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}
