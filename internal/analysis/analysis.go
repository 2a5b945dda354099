package analysis

import (
	"github.com/guarzo/sellerpulse/internal/model"
)

// CalculateMetrics reduces a dataset to its aggregate metrics.
//
// AveragePrice is the mean over every listing. AverageCTR and
// AverageConversionRate are unweighted means over listings that have a
// performance record; listings without one are excluded rather than counted as
// zero. Callers needing impression-weighted rates must recompute from raw sums.
//
// TopPerformer is the record with the highest conversion rate. Records are
// visited in listing order and the first one wins a tie.
func CalculateMetrics(dataset *model.CollectedDataset) model.AggregateMetrics {
	metrics := model.AggregateMetrics{
		Platform:      dataset.Platform,
		TotalListings: len(dataset.Listings),
	}

	var priceSum float64
	for _, listing := range dataset.Listings {
		metrics.TotalViews += listing.Views
		metrics.TotalWatchers += listing.Watchers
		priceSum += listing.Price
	}
	if metrics.TotalListings > 0 {
		metrics.AveragePrice = priceSum / float64(metrics.TotalListings)
	}

	records := dataset.PerformanceInOrder()
	metrics.PerformanceCount = len(records)
	if len(records) == 0 {
		return metrics
	}

	var ctrSum, conversionSum float64
	var top *model.PerformanceRecord
	for i := range records {
		record := &records[i]
		ctrSum += record.Metrics.ClickThroughRate
		conversionSum += record.Metrics.ConversionRate

		if top == nil || record.Metrics.ConversionRate > top.Metrics.ConversionRate {
			top = record
		}
	}

	metrics.AverageCTR = ctrSum / float64(len(records))
	metrics.AverageConversionRate = conversionSum / float64(len(records))
	metrics.TopPerformer = &model.TopPerformer{
		ItemID:         top.ItemID,
		ConversionRate: top.Metrics.ConversionRate,
	}
	return metrics
}
