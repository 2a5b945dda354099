package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guarzo/sellerpulse/internal/analysis"
	"github.com/guarzo/sellerpulse/internal/model"
)

// Section titles, in the order they appear
const (
	SectionExecutiveSummary   = "Executive Summary"
	SectionListingPerformance = "Listing Performance"
	SectionRecommendations    = "Optimization Recommendations"
	SectionMarketAnalysis     = "Market Analysis"
)

// DefaultMaxRecommendations caps the recommendations section
const DefaultMaxRecommendations = 5

// Config selects what a report contains
type Config struct {
	ReportType             string `json:"reportType"`
	IncludeRecommendations bool   `json:"includeRecommendations"`
	IncludeCharts          bool   `json:"includeCharts"`
}

// Report is a generated performance report
type Report struct {
	ReportID    string    `json:"reportId"`
	ReportType  string    `json:"reportType"`
	GeneratedAt time.Time `json:"generatedAt"`
	Summary     Summary   `json:"summary"`
	Sections    []Section `json:"sections"`
	Metadata    Metadata  `json:"metadata"`
}

type Summary struct {
	TotalListings int        `json:"totalListings"`
	KeyMetrics    KeyMetrics `json:"keyMetrics"`
	ReportPeriod  string     `json:"reportPeriod"`
	DataFreshness time.Time  `json:"dataFreshness"`
}

type KeyMetrics struct {
	AverageCTR            float64 `json:"averageCTR"`
	AverageConversionRate float64 `json:"averageConversionRate"`
	TotalViews            int     `json:"totalViews"`
	TotalWatchers         int     `json:"totalWatchers"`
}

type Metadata struct {
	IncludeCharts          bool   `json:"includeCharts"`
	IncludeRecommendations bool   `json:"includeRecommendations"`
	Platform               string `json:"platform"`
}

// Section is one titled block of a report. Exactly one content field is set,
// matching the title.
type Section struct {
	Title           string            `json:"title"`
	Executive       *ExecutiveSummary `json:"executive,omitempty"`
	Listings        []ListingRow      `json:"listings,omitempty"`
	Recommendations *Recommendations  `json:"recommendations,omitempty"`
	Market          *MarketAnalysis   `json:"market,omitempty"`
}

type ExecutiveSummary struct {
	Overview      string              `json:"overview"`
	Highlights    []string            `json:"highlights"`
	TopPerformer  *model.TopPerformer `json:"topPerformer,omitempty"`
	TotalViews    int                 `json:"totalViews"`
	TotalWatchers int                 `json:"totalWatchers"`
}

// ListingRow joins a listing with its performance. Performance is nil when
// the listing's fetch failed.
type ListingRow struct {
	ItemID      string                    `json:"itemId"`
	Title       string                    `json:"title"`
	Views       int                       `json:"views"`
	Watchers    int                       `json:"watchers"`
	Price       float64                   `json:"price"`
	Performance *model.PerformanceMetrics `json:"performance,omitempty"`
}

type Recommendations struct {
	OpportunityCount  int                             `json:"opportunityCount"`
	HighPriorityItems int                             `json:"highPriorityItems"`
	Items             []model.OptimizationOpportunity `json:"recommendations"`
}

type MarketAnalysis struct {
	AverageMarketPrice  float64 `json:"averageMarketPrice"`
	CompetitivePosition string  `json:"competitivePosition"`
	MarketTrends        string  `json:"marketTrends"`
}

// Section returns the first section with the given title
func (r *Report) Section(title string) (*Section, bool) {
	for i := range r.Sections {
		if r.Sections[i].Title == title {
			return &r.Sections[i], true
		}
	}
	return nil, false
}

// PreviousFunc looks up the previous cycle's metrics for a platform
type PreviousFunc func(platform string) (model.AggregateMetrics, bool)

// Options configures a Generator
type Options struct {
	MaxRecommendations int
	// Previous feeds the market trend text. Nil means no trend comparison.
	Previous PreviousFunc
	Now      func() time.Time
}

// Generator builds reports from a dataset and its metrics
type Generator struct {
	analyzer           *analysis.Analyzer
	maxRecommendations int
	previous           PreviousFunc
	now                func() time.Time
}

// NewGenerator creates a generator that uses analyzer for recommendations
func NewGenerator(analyzer *analysis.Analyzer, opts Options) *Generator {
	if opts.MaxRecommendations <= 0 {
		opts.MaxRecommendations = DefaultMaxRecommendations
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{
		analyzer:           analyzer,
		maxRecommendations: opts.MaxRecommendations,
		previous:           opts.Previous,
		now:                opts.Now,
	}
}

// GenerateReport builds a report. Sections always come in the same order:
// executive summary, listing performance, recommendations when requested,
// market analysis.
func (g *Generator) GenerateReport(cfg Config, dataset *model.CollectedDataset, metrics model.AggregateMetrics) *Report {
	reportType := cfg.ReportType
	if reportType == "" {
		reportType = "performance"
	}

	r := &Report{
		ReportID:    "report_" + uuid.NewString(),
		ReportType:  reportType,
		GeneratedAt: g.now().UTC(),
		Summary: Summary{
			TotalListings: metrics.TotalListings,
			KeyMetrics: KeyMetrics{
				AverageCTR:            metrics.AverageCTR,
				AverageConversionRate: metrics.AverageConversionRate,
				TotalViews:            metrics.TotalViews,
				TotalWatchers:         metrics.TotalWatchers,
			},
			ReportPeriod:  "Current snapshot",
			DataFreshness: dataset.Timestamp,
		},
		Metadata: Metadata{
			IncludeCharts:          cfg.IncludeCharts,
			IncludeRecommendations: cfg.IncludeRecommendations,
			Platform:               dataset.Platform,
		},
	}

	r.Sections = append(r.Sections,
		Section{Title: SectionExecutiveSummary, Executive: executiveSummary(metrics)},
		Section{Title: SectionListingPerformance, Listings: listingRows(dataset)},
	)

	if cfg.IncludeRecommendations {
		opportunities := g.analyzer.IdentifyOptimizations(dataset, metrics)
		top := opportunities
		if len(top) > g.maxRecommendations {
			top = top[:g.maxRecommendations]
		}
		r.Sections = append(r.Sections, Section{
			Title: SectionRecommendations,
			Recommendations: &Recommendations{
				OpportunityCount:  len(opportunities),
				HighPriorityItems: analysis.CountByPriority(opportunities, model.PriorityHigh),
				Items:             append([]model.OptimizationOpportunity{}, top...),
			},
		})
	}

	r.Sections = append(r.Sections, Section{Title: SectionMarketAnalysis, Market: g.marketAnalysis(dataset.Platform, metrics)})
	return r
}

func executiveSummary(m model.AggregateMetrics) *ExecutiveSummary {
	highlights := []string{
		fmt.Sprintf("Average CTR: %.2f%%", m.AverageCTR*100),
		fmt.Sprintf("Average conversion rate: %.2f%%", m.AverageConversionRate*100),
	}
	if m.TopPerformer != nil {
		highlights = append(highlights, fmt.Sprintf("Top performer: Item %s with %.2f%% conversion",
			m.TopPerformer.ItemID, m.TopPerformer.ConversionRate*100))
	} else {
		highlights = append(highlights, "Top performer: no performance data collected")
	}

	return &ExecutiveSummary{
		Overview:      fmt.Sprintf("Performance analysis for %d active listings", m.TotalListings),
		Highlights:    highlights,
		TopPerformer:  m.TopPerformer,
		TotalViews:    m.TotalViews,
		TotalWatchers: m.TotalWatchers,
	}
}

func listingRows(dataset *model.CollectedDataset) []ListingRow {
	rows := make([]ListingRow, 0, len(dataset.Listings))
	for _, listing := range dataset.Listings {
		row := ListingRow{
			ItemID:   listing.ItemID,
			Title:    listing.Title,
			Views:    listing.Views,
			Watchers: listing.Watchers,
			Price:    listing.Price,
		}
		if perf, ok := dataset.Performance[listing.ItemID]; ok {
			metrics := perf.Metrics
			row.Performance = &metrics
		}
		rows = append(rows, row)
	}
	return rows
}

func (g *Generator) marketAnalysis(platformName string, m model.AggregateMetrics) *MarketAnalysis {
	market := &MarketAnalysis{
		AverageMarketPrice:  m.AveragePrice,
		CompetitivePosition: "Analyzed based on current market data",
		MarketTrends:        "Stable demand with seasonal variations expected",
	}
	if g.previous == nil {
		return market
	}

	prev, ok := g.previous(platformName)
	if !ok || prev.AveragePrice <= 0 {
		return market
	}

	change := (m.AveragePrice - prev.AveragePrice) / prev.AveragePrice * 100
	switch {
	case change >= 5:
		market.MarketTrends = fmt.Sprintf("Average price up %.1f%% since the previous cycle", change)
	case change <= -5:
		market.MarketTrends = fmt.Sprintf("Average price down %.1f%% since the previous cycle", -change)
	default:
		market.MarketTrends = fmt.Sprintf("Average price stable (%+.1f%%) since the previous cycle", change)
	}
	return market
}
