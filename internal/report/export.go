package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/goccy/go-json"
)

// WriteCSV writes flat metric,value rows, a blank line, then one row per
// listing.
func (r *Report) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	rows := [][]string{
		{"metric", "value"},
		{"report_id", r.ReportID},
		{"report_type", r.ReportType},
		{"platform", r.Metadata.Platform},
		{"generated_at", r.GeneratedAt.Format(time.RFC3339)},
		{"total_listings", strconv.Itoa(r.Summary.TotalListings)},
		{"total_views", strconv.Itoa(r.Summary.KeyMetrics.TotalViews)},
		{"total_watchers", strconv.Itoa(r.Summary.KeyMetrics.TotalWatchers)},
		{"average_ctr", formatRate(r.Summary.KeyMetrics.AverageCTR)},
		{"average_conversion_rate", formatRate(r.Summary.KeyMetrics.AverageConversionRate)},
	}
	if market, ok := r.Section(SectionMarketAnalysis); ok {
		rows = append(rows, []string{"average_price", formatMoney(market.Market.AverageMarketPrice)})
	}
	if recs, ok := r.Section(SectionRecommendations); ok {
		rows = append(rows,
			[]string{"opportunity_count", strconv.Itoa(recs.Recommendations.OpportunityCount)},
			[]string{"high_priority_items", strconv.Itoa(recs.Recommendations.HighPriorityItems)},
		)
	}
	for _, row := range rows {
		if err := writer.Write(EscapeCSVRow(row)); err != nil {
			return fmt.Errorf("writing metric row: %w", err)
		}
	}

	// csv.Writer refuses a zero-field record, so the separator is written raw
	writer.Flush()
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("writing separator: %w", err)
	}

	header := []string{"item_id", "title", "price", "views", "watchers", "ctr", "conversion_rate", "impressions"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing listing header: %w", err)
	}

	if listings, ok := r.Section(SectionListingPerformance); ok {
		for _, row := range listings.Listings {
			record := []string{
				row.ItemID,
				sanitizeText(row.Title),
				formatMoney(row.Price),
				strconv.Itoa(row.Views),
				strconv.Itoa(row.Watchers),
				"", "", "",
			}
			if row.Performance != nil {
				record[5] = formatRate(row.Performance.ClickThroughRate)
				record[6] = formatRate(row.Performance.ConversionRate)
				record[7] = strconv.Itoa(row.Performance.Impressions)
			}
			if err := writer.Write(EscapeCSVRow(record)); err != nil {
				return fmt.Errorf("writing listing row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// Text renders a plain-text summary
func (r *Report) Text() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s report for %s\n", capitalize(r.ReportType), r.Metadata.Platform)
	fmt.Fprintf(&sb, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Period: %s (data from %s)\n", r.Summary.ReportPeriod, r.Summary.DataFreshness.Format("2006-01-02 15:04:05"))

	for _, section := range r.Sections {
		fmt.Fprintf(&sb, "\n%s\n%s\n", section.Title, strings.Repeat("=", len(section.Title)))

		switch {
		case section.Executive != nil:
			fmt.Fprintf(&sb, "%s\n", section.Executive.Overview)
			for _, h := range section.Executive.Highlights {
				fmt.Fprintf(&sb, "  - %s\n", h)
			}
			fmt.Fprintf(&sb, "Views: %d  Watchers: %d\n", section.Executive.TotalViews, section.Executive.TotalWatchers)

		case section.Recommendations != nil:
			recs := section.Recommendations
			fmt.Fprintf(&sb, "%d opportunities, %d high priority\n", recs.OpportunityCount, recs.HighPriorityItems)
			for i, opp := range recs.Items {
				fmt.Fprintf(&sb, "  %d. [%s] %s %s: %s\n", i+1, opp.Priority, opp.ItemID, opp.Type, opp.Description)
			}

		case section.Market != nil:
			fmt.Fprintf(&sb, "Average price: $%.2f\n", section.Market.AverageMarketPrice)
			fmt.Fprintf(&sb, "%s\n%s\n", section.Market.CompetitivePosition, section.Market.MarketTrends)

		case section.Title == SectionListingPerformance:
			for _, row := range section.Listings {
				perf := "no performance data"
				if row.Performance != nil {
					perf = fmt.Sprintf("CTR %.2f%%, conversion %.2f%%",
						row.Performance.ClickThroughRate*100, row.Performance.ConversionRate*100)
				}
				fmt.Fprintf(&sb, "  %-14s $%8.2f  %5d views  %s  %s\n",
					row.ItemID, row.Price, row.Views, perf, sanitizeText(row.Title))
			}
		}
	}

	return sb.String()
}

// WriteJSON writes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// WriteJSONBrotli writes the report as brotli-compressed JSON, for archiving
func (r *Report) WriteJSONBrotli(w io.Writer) error {
	bw := brotli.NewWriterLevel(w, brotli.DefaultCompression)
	if err := json.NewEncoder(bw).Encode(r); err != nil {
		_ = bw.Close()
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("compressing report: %w", err)
	}
	return nil
}

// ReadJSONBrotli decodes a report written by WriteJSONBrotli
func ReadJSONBrotli(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(brotli.NewReader(rd)).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}

func capitalize(s string) string {
	if s == "" {
		return "Performance"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
