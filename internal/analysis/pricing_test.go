package analysis

import (
	"strings"
	"testing"

	"github.com/guarzo/sellerpulse/internal/model"
)

func competitors(costs ...float64) []model.CompetitorListing {
	out := make([]model.CompetitorListing, len(costs))
	for i, c := range costs {
		out[i] = model.CompetitorListing{SellerID: "seller", Price: c - 5, ShippingCost: 5, TotalCost: c}
	}
	return out
}

func TestOptimizePricing(t *testing.T) {
	market := competitors(40, 50, 60)

	tests := []struct {
		name     string
		price    float64
		strategy string
		want     float64
	}{
		{"above market", 60, StrategyCompetitive, 47.5},
		{"below market", 40, StrategyValue, 51},
		{"within range", 50, StrategyMaintain, 50},
		{"upper edge", 55, StrategyMaintain, 55},
		{"lower edge", 45, StrategyMaintain, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := OptimizePricing(tt.price, market, DefaultPricingPolicy())
			if rec.Strategy != tt.strategy {
				t.Errorf("strategy = %s, want %s", rec.Strategy, tt.strategy)
			}
			if rec.RecommendedPrice != tt.want {
				t.Errorf("recommended = %v, want %v", rec.RecommendedPrice, tt.want)
			}
			if rec.MarketAverage != 50 {
				t.Errorf("market average = %v, want 50", rec.MarketAverage)
			}
			if len(rec.Competitors) != 3 {
				t.Errorf("expected 3 competitor positions, got %d", len(rec.Competitors))
			}
		})
	}
}

func TestOptimizePricingNoCompetitors(t *testing.T) {
	rec := OptimizePricing(19.99, nil, DefaultPricingPolicy())
	if rec.Strategy != StrategyMaintain {
		t.Errorf("strategy = %s, want %s", rec.Strategy, StrategyMaintain)
	}
	if rec.RecommendedPrice != 19.99 {
		t.Errorf("recommended = %v, want current price", rec.RecommendedPrice)
	}
}

func TestOptimizePricingRounds(t *testing.T) {
	rec := OptimizePricing(100, competitors(33.33, 33.34, 33.35), DefaultPricingPolicy())
	// avg 33.34 * 0.95 = 31.673
	if rec.RecommendedPrice != 31.67 {
		t.Errorf("recommended = %v, want 31.67", rec.RecommendedPrice)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-10, -10},
		{1.005, 1.01},
		{-2.345, -2.35},
		{12.3449, 12.34},
	}
	for _, tt := range tests {
		if got := Round(tt.in, 2); got != tt.want {
			t.Errorf("Round(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSuggestTitle(t *testing.T) {
	s := SuggestTitle("Honda Civic  Front Brake Pads", "")
	if s == nil {
		t.Fatal("expected a suggestion")
	}
	if want := "Premium Honda Civic Front Brake Pads - Fast Shipping"; s.SuggestedTitle != want {
		t.Errorf("title = %q, want %q", s.SuggestedTitle, want)
	}
	if len(s.Improvements) != 2 {
		t.Errorf("improvements = %v", s.Improvements)
	}

	if s := SuggestTitle("New OEM Brake Pads with Free Shipping", ""); s != nil {
		t.Errorf("expected no suggestion, got %+v", s)
	}
	if s := SuggestTitle("   ", CategoryAutomotiveParts); s != nil {
		t.Errorf("expected no suggestion for empty title, got %+v", s)
	}
}

func TestSuggestTitleAutomotiveFeature(t *testing.T) {
	s := SuggestTitle("Honda Civic Front Brake Pads", CategoryAutomotiveParts)
	if s == nil {
		t.Fatal("expected a suggestion")
	}
	if want := "Premium Honda Civic Front Ceramic Brake Pads - Fast Shipping"; s.SuggestedTitle != want {
		t.Errorf("title = %q, want %q", s.SuggestedTitle, want)
	}
	if len(s.Improvements) != 3 {
		t.Errorf("improvements = %v", s.Improvements)
	}

	// a title that already names a feature is left alone
	s = SuggestTitle("Performance Brake Pads", CategoryAutomotiveParts)
	if s == nil || s.SuggestedTitle != "Premium Performance Brake Pads - Fast Shipping" {
		t.Errorf("unexpected suggestion %+v", s)
	}
}

func TestSuggestTitles(t *testing.T) {
	got := SuggestTitles("Toyota Camry Brake Pads Front Set", CategoryAutomotiveParts)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %+v", got)
	}
	if want := "Toyota Camry Brake Pads Front & Rear Complete Set"; got[1].SuggestedTitle != want {
		t.Errorf("alternative = %q, want %q", got[1].SuggestedTitle, want)
	}

	if got := SuggestTitles("New OEM Rotor with Free Shipping", ""); len(got) != 0 {
		t.Errorf("expected no suggestions, got %+v", got)
	}
}

func TestSuggestDescription(t *testing.T) {
	s := SuggestDescription("Quiet, long lasting pads.\n", "2018 Toyota Camry Brake Pads")

	if !strings.HasPrefix(s.EnhancedDescription, "Quiet, long lasting pads.\n\nTECHNICAL SPECIFICATIONS:") {
		t.Errorf("unexpected description start: %q", s.EnhancedDescription)
	}
	if !strings.Contains(s.EnhancedDescription, "Fits Toyota models 2018") {
		t.Error("expected compatibility block")
	}
	wantElements := []string{"Technical specifications", "Compatibility details", "Warranty information", "Shipping details", "Call to action"}
	if len(s.AddedElements) != len(wantElements) {
		t.Fatalf("added elements = %v", s.AddedElements)
	}
	for i, want := range wantElements {
		if s.AddedElements[i] != want {
			t.Errorf("element %d = %q, want %q", i, s.AddedElements[i], want)
		}
	}
	if len(s.SEOKeywords) != 5 || s.SEOKeywords[3] != "toyota brake pads" {
		t.Errorf("seo keywords = %v", s.SEOKeywords)
	}
	if len(s.TrustSignals) != 3 {
		t.Errorf("trust signals = %v", s.TrustSignals)
	}

	// no brake part, no brand
	s = SuggestDescription("Steel rotor.", "Rotor")
	if len(s.SEOKeywords) != 0 {
		t.Errorf("expected no keywords, got %v", s.SEOKeywords)
	}
	if len(s.AddedElements) != 3 {
		t.Errorf("added elements = %v", s.AddedElements)
	}
}

func TestRecommendCategories(t *testing.T) {
	comps := []model.CompetitorListing{
		{ItemID: "1", Category: "Brake Pads"},
		{ItemID: "2", Category: "Brake Pads"},
		{ItemID: "3"},
	}

	rec := RecommendCategories("Car & Truck Parts > Brakes", "Ford F-150 Front Brake Pads", comps)
	if len(rec.SuggestedCategories) != 3 {
		t.Fatalf("suggested = %+v", rec.SuggestedCategories)
	}
	if want := "Car & Truck Parts > Ford > Brakes"; rec.SuggestedCategories[1].Category != want {
		t.Errorf("brand category = %q, want %q", rec.SuggestedCategories[1].Category, want)
	}
	if rec.Analysis.CurrentCategoryOptimal {
		t.Error("a non-specific category is not optimal")
	}
	if rec.Analysis.CompetitorDistribution["Brake Pads"] != 2 || rec.Analysis.CompetitorDistribution["Unknown"] != 1 {
		t.Errorf("distribution = %v", rec.Analysis.CompetitorDistribution)
	}
	if rec.Analysis.RecommendationStrength != "high" {
		t.Errorf("strength = %q", rec.Analysis.RecommendationStrength)
	}

	rec = RecommendCategories("Car & Truck Parts > Brakes > Brake Pads", "Rear Brake Pads", nil)
	if len(rec.SuggestedCategories) != 0 || !rec.Analysis.CurrentCategoryOptimal || rec.Analysis.RecommendationStrength != "low" {
		t.Errorf("unexpected recommendation %+v", rec)
	}
}
