package analysis

import (
	"github.com/guarzo/sellerpulse/internal/model"
)

// Thresholds are the policy coefficients applied to the dataset averages. A
// listing is flagged when its value falls below average * factor.
type Thresholds struct {
	CTRFactor        float64
	ConversionFactor float64
	ViewsFactor      float64
}

// DefaultThresholds returns the stock policy
func DefaultThresholds() Thresholds {
	return Thresholds{
		CTRFactor:        0.9,
		ConversionFactor: 0.8,
		ViewsFactor:      0.8,
	}
}

// Analyzer flags listings that trail the dataset averages
type Analyzer struct {
	thresholds Thresholds
}

// NewAnalyzer creates an analyzer with the given thresholds
func NewAnalyzer(thresholds Thresholds) *Analyzer {
	return &Analyzer{thresholds: thresholds}
}

// Thresholds returns the analyzer's policy
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// IdentifyOptimizations returns opportunities in listing order. Listings
// without a performance record are skipped.
func (a *Analyzer) IdentifyOptimizations(dataset *model.CollectedDataset, metrics model.AggregateMetrics) []model.OptimizationOpportunity {
	var opportunities []model.OptimizationOpportunity

	ctrFloor := metrics.AverageCTR * a.thresholds.CTRFactor
	conversionFloor := metrics.AverageConversionRate * a.thresholds.ConversionFactor
	viewsFloor := metrics.AverageViews() * a.thresholds.ViewsFactor

	for _, listing := range dataset.Listings {
		perf, ok := dataset.Performance[listing.ItemID]
		if !ok {
			continue
		}

		if perf.Metrics.ClickThroughRate < ctrFloor {
			opportunities = append(opportunities, model.OptimizationOpportunity{
				ItemID:      listing.ItemID,
				Type:        model.OpportunityTitle,
				Priority:    model.PriorityHigh,
				Description: "Low click-through rate suggests title needs improvement",
				Impact:      "increase_visibility",
			})
		}

		if perf.Metrics.ConversionRate < conversionFloor {
			opportunities = append(opportunities, model.OptimizationOpportunity{
				ItemID:      listing.ItemID,
				Type:        model.OpportunityPricing,
				Priority:    model.PriorityMedium,
				Description: "Low conversion rate may indicate pricing issues",
				Impact:      "increase_sales",
			})
		}

		if float64(listing.Views) < viewsFloor {
			opportunities = append(opportunities, model.OptimizationOpportunity{
				ItemID:      listing.ItemID,
				Type:        model.OpportunityVisibility,
				Priority:    model.PriorityMedium,
				Description: "Below-average views suggest need for better visibility",
				Impact:      "increase_traffic",
			})
		}
	}

	return opportunities
}

// CountByPriority tallies opportunities at the given priority
func CountByPriority(opportunities []model.OptimizationOpportunity, priority model.Priority) int {
	count := 0
	for _, opp := range opportunities {
		if opp.Priority == priority {
			count++
		}
	}
	return count
}
