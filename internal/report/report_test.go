package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/sellerpulse/internal/analysis"
	"github.com/guarzo/sellerpulse/internal/model"
)

var collectedAt = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func fixture(n int) (*model.CollectedDataset, model.AggregateMetrics) {
	d := &model.CollectedDataset{
		Platform:    "ebay",
		Timestamp:   collectedAt,
		Performance: map[string]model.PerformanceRecord{},
	}
	for i := 0; i < n; i++ {
		id := string(rune('A' + i))
		d.Listings = append(d.Listings, model.Listing{ItemID: id, Title: "Listing " + id, Price: 10 * float64(i+1), Views: 100})
		// every other listing trails the average CTR
		ctr := 0.05
		if i%2 == 1 {
			ctr = 0.005
		}
		d.Performance[id] = model.PerformanceRecord{ItemID: id, Metrics: model.PerformanceMetrics{ClickThroughRate: ctr, ConversionRate: 0.02}}
	}
	// one listing without performance data
	d.Listings = append(d.Listings, model.Listing{ItemID: "Z", Title: "=cmd|' /C calc'!A0", Price: 5, Views: 100})
	return d, analysis.CalculateMetrics(d)
}

func newGenerator(opts Options) *Generator {
	opts.Now = func() time.Time { return collectedAt.Add(time.Hour) }
	return NewGenerator(analysis.NewAnalyzer(analysis.DefaultThresholds()), opts)
}

func titles(r *Report) []string {
	out := make([]string, len(r.Sections))
	for i, s := range r.Sections {
		out[i] = s.Title
	}
	return out
}

func TestGenerateReportSections(t *testing.T) {
	d, m := fixture(4)
	g := newGenerator(Options{})

	withRecs := g.GenerateReport(Config{ReportType: "weekly", IncludeRecommendations: true}, d, m)
	assert.Equal(t, []string{
		SectionExecutiveSummary, SectionListingPerformance, SectionRecommendations, SectionMarketAnalysis,
	}, titles(withRecs))

	without := g.GenerateReport(Config{ReportType: "weekly"}, d, m)
	assert.Equal(t, []string{
		SectionExecutiveSummary, SectionListingPerformance, SectionMarketAnalysis,
	}, titles(without))

	again := g.GenerateReport(Config{ReportType: "weekly", IncludeRecommendations: true}, d, m)
	assert.Equal(t, titles(withRecs), titles(again))
	assert.NotEqual(t, withRecs.ReportID, again.ReportID)
}

func TestGenerateReportContent(t *testing.T) {
	d, m := fixture(4)
	r := newGenerator(Options{}).GenerateReport(Config{IncludeCharts: true}, d, m)

	assert.Contains(t, r.ReportID, "report_")
	assert.Equal(t, "performance", r.ReportType)
	assert.Equal(t, collectedAt.Add(time.Hour), r.GeneratedAt)
	assert.Equal(t, 5, r.Summary.TotalListings)
	assert.Equal(t, "Current snapshot", r.Summary.ReportPeriod)
	assert.Equal(t, collectedAt, r.Summary.DataFreshness)
	assert.Equal(t, Metadata{IncludeCharts: true, Platform: "ebay"}, r.Metadata)

	exec, ok := r.Section(SectionExecutiveSummary)
	require.True(t, ok)
	assert.Equal(t, "Performance analysis for 5 active listings", exec.Executive.Overview)
	require.Len(t, exec.Executive.Highlights, 3)
	assert.Equal(t, "Top performer: Item A with 2.00% conversion", exec.Executive.Highlights[2])

	listings, ok := r.Section(SectionListingPerformance)
	require.True(t, ok)
	require.Len(t, listings.Listings, 5)
	assert.NotNil(t, listings.Listings[0].Performance)
	assert.Nil(t, listings.Listings[4].Performance, "listing without data stays unjoined")

	market, ok := r.Section(SectionMarketAnalysis)
	require.True(t, ok)
	assert.Equal(t, m.AveragePrice, market.Market.AverageMarketPrice)
}

func TestGenerateReportCapsRecommendations(t *testing.T) {
	d, m := fixture(16)
	r := newGenerator(Options{}).GenerateReport(Config{IncludeRecommendations: true}, d, m)

	recs, ok := r.Section(SectionRecommendations)
	require.True(t, ok)
	assert.Equal(t, 8, recs.Recommendations.OpportunityCount)
	assert.Equal(t, 8, recs.Recommendations.HighPriorityItems)
	assert.Len(t, recs.Recommendations.Items, DefaultMaxRecommendations)

	small := newGenerator(Options{MaxRecommendations: 2}).GenerateReport(Config{IncludeRecommendations: true}, d, m)
	recs, _ = small.Section(SectionRecommendations)
	assert.Len(t, recs.Recommendations.Items, 2)
}

func TestGenerateReportEmptyDataset(t *testing.T) {
	d := &model.CollectedDataset{Platform: "walmart"}
	r := newGenerator(Options{}).GenerateReport(Config{IncludeRecommendations: true}, d, analysis.CalculateMetrics(d))

	exec, _ := r.Section(SectionExecutiveSummary)
	assert.Contains(t, exec.Executive.Highlights[2], "no performance data")
	recs, _ := r.Section(SectionRecommendations)
	assert.Zero(t, recs.Recommendations.OpportunityCount)
	assert.NotNil(t, recs.Recommendations.Items)
}

func TestMarketTrend(t *testing.T) {
	d, m := fixture(2)
	tests := []struct {
		name     string
		previous float64
		want     string
	}{
		{"up", m.AveragePrice / 1.2, "Average price up 20.0%"},
		{"down", m.AveragePrice * 2, "Average price down 50.0%"},
		{"stable", m.AveragePrice, "Average price stable (+0.0%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(Options{Previous: func(platform string) (model.AggregateMetrics, bool) {
				return model.AggregateMetrics{AveragePrice: tt.previous}, platform == "ebay"
			}})
			market, _ := g.GenerateReport(Config{}, d, m).Section(SectionMarketAnalysis)
			assert.True(t, strings.HasPrefix(market.Market.MarketTrends, tt.want), market.Market.MarketTrends)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	d, m := fixture(2)
	r := newGenerator(Options{}).GenerateReport(Config{IncludeRecommendations: true}, d, m)

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))

	parts := strings.SplitN(buf.String(), "\n\n", 2)
	require.Len(t, parts, 2, buf.String())

	metricRows, err := csv.NewReader(strings.NewReader(parts[0])).ReadAll()
	require.NoError(t, err)
	values := map[string]string{}
	for _, row := range metricRows {
		require.Len(t, row, 2)
		values[row[0]] = row[1]
	}
	assert.Equal(t, "value", values["metric"])
	assert.Equal(t, "3", values["total_listings"])
	assert.Equal(t, "1", values["opportunity_count"])

	listingRows, err := csv.NewReader(strings.NewReader(parts[1])).ReadAll()
	require.NoError(t, err)
	require.Len(t, listingRows, 4)
	assert.Equal(t, "item_id", listingRows[0][0])
	assert.Equal(t, []string{"A", "Listing A", "10.00", "100", "0", "0.0500", "0.0200", "0"}, listingRows[1])
	assert.Equal(t, "'=cmd|' /C calc'!A0", listingRows[3][1])
	assert.Equal(t, "", listingRows[3][5])
}

func TestTextSummary(t *testing.T) {
	d, m := fixture(2)
	text := newGenerator(Options{}).GenerateReport(Config{ReportType: "weekly", IncludeRecommendations: true}, d, m).Text()

	assert.True(t, strings.HasPrefix(text, "Weekly report for ebay\n"))
	for _, title := range []string{SectionExecutiveSummary, SectionListingPerformance, SectionRecommendations, SectionMarketAnalysis} {
		assert.Contains(t, text, title)
	}
	assert.Contains(t, text, "no performance data")
	assert.Contains(t, text, "1 opportunities, 1 high priority")
}

func TestJSONRoundTrip(t *testing.T) {
	d, m := fixture(3)
	r := newGenerator(Options{}).GenerateReport(Config{IncludeRecommendations: true}, d, m)

	var plain bytes.Buffer
	require.NoError(t, r.WriteJSON(&plain))
	assert.Contains(t, plain.String(), `"reportPeriod": "Current snapshot"`)

	var compressed bytes.Buffer
	require.NoError(t, r.WriteJSONBrotli(&compressed))
	assert.Less(t, compressed.Len(), plain.Len())

	decoded, err := ReadJSONBrotli(&compressed)
	require.NoError(t, err)
	assert.Equal(t, r.ReportID, decoded.ReportID)
	assert.Equal(t, titles(r), titles(decoded))
	assert.True(t, r.GeneratedAt.Equal(decoded.GeneratedAt))
}
