// Package factory generates seeded storefront data for tests and benchmarks.
package factory

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/model"
)

var (
	parts      = []string{"brake pads", "rotor set", "oil filter", "spark plugs", "wiper blades"}
	conditions = []string{"New", "Used", "OEM", ""}
)

// Factory produces deterministic data for a given seed
type Factory struct {
	rand *rand.Rand
}

// New creates a factory. A zero seed uses the current time.
func New(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{rand: rand.New(rand.NewSource(seed))}
}

// SearchTerm picks one of the known part names
func (f *Factory) SearchTerm() string {
	return parts[f.rand.Intn(len(parts))]
}

// Listing generates listing number i
func (f *Factory) Listing(i int) model.Listing {
	title := parts[f.rand.Intn(len(parts))]
	if c := conditions[f.rand.Intn(len(conditions))]; c != "" {
		title = c + " " + title
	}
	return model.Listing{
		ItemID:   fmt.Sprintf("item-%04d", i),
		Title:    title,
		Price:    float64(f.rand.Intn(19500)+500) / 100,
		Quantity: f.rand.Intn(10) + 1,
		Views:    f.rand.Intn(500),
		Watchers: f.rand.Intn(20),
		Category: "auto parts",
	}
}

// Performance generates rates for a listing. CTR stays under 10% and
// conversion under 5%.
func (f *Factory) Performance(listing model.Listing) model.PerformanceRecord {
	impressions := listing.Views*10 + f.rand.Intn(1000)
	return model.PerformanceRecord{
		ItemID: listing.ItemID,
		Metrics: model.PerformanceMetrics{
			Views:            listing.Views,
			Watchers:         listing.Watchers,
			Impressions:      impressions,
			ClickThroughRate: f.rand.Float64() * 0.1,
			ConversionRate:   f.rand.Float64() * 0.05,
		},
		SalesData: model.SalesData{
			UnitsSold: f.rand.Intn(5),
			Revenue:   listing.Price * float64(f.rand.Intn(5)),
		},
	}
}

// Competitors generates n competitor listings
func (f *Factory) Competitors(n int) []model.CompetitorListing {
	out := make([]model.CompetitorListing, n)
	for i := range out {
		price := float64(f.rand.Intn(9000)+1000) / 100
		shipping := float64(f.rand.Intn(3)) * 2.5
		out[i] = model.CompetitorListing{
			ItemID:        fmt.Sprintf("comp-%04d", i),
			SellerID:      fmt.Sprintf("seller-%d", f.rand.Intn(50)),
			Title:         parts[f.rand.Intn(len(parts))],
			Price:         price,
			ShippingCost:  shipping,
			TotalCost:     price + shipping,
			Quantity:      f.rand.Intn(20) + 1,
			SellerRating:  90 + f.rand.Float64()*10,
			FeedbackCount: f.rand.Intn(5000),
		}
	}
	return out
}

// Fixture generates n listings, performance for every listing except each
// missingEvery-th one (0 keeps all), and competitors for every part name
func (f *Factory) Fixture(n, missingEvery int) connector.Fixture {
	fixture := connector.Fixture{
		Account:     model.AccountInfo{AccountID: "seller-test", DisplayName: "Test Parts", Marketplace: "EBAY_US"},
		Performance: make(map[string]model.PerformanceRecord, n),
		Competitors: make(map[string][]model.CompetitorListing, len(parts)),
	}
	for i := 0; i < n; i++ {
		listing := f.Listing(i)
		fixture.Listings = append(fixture.Listings, listing)
		if missingEvery > 0 && i%missingEvery == missingEvery-1 {
			continue
		}
		fixture.Performance[listing.ItemID] = f.Performance(listing)
	}
	for _, part := range parts {
		fixture.Competitors[part] = f.Competitors(f.rand.Intn(10) + 1)
	}
	return fixture
}

// Dataset wraps a generated fixture as a collected dataset
func (f *Factory) Dataset(platform string, n, missingEvery int) *model.CollectedDataset {
	fixture := f.Fixture(n, missingEvery)
	return &model.CollectedDataset{
		Platform:    platform,
		Timestamp:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Account:     fixture.Account,
		Listings:    fixture.Listings,
		Performance: fixture.Performance,
	}
}
