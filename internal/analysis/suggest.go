package analysis

import (
	"regexp"
	"strings"

	"github.com/guarzo/sellerpulse/internal/model"
)

// MaxTitleLength is the marketplace title limit suggestions stay within.
const MaxTitleLength = 80

// CategoryAutomotiveParts enables the part-specific feature keyword.
const CategoryAutomotiveParts = "automotive_parts"

var (
	conditionPattern = regexp.MustCompile(`(?i)\b(new|used|oem|premium|refurbished)\b`)
	shippingPattern  = regexp.MustCompile(`(?i)\b(free|fast)\s+shipping\b`)
	featurePattern   = regexp.MustCompile(`(?i)\b(ceramic|performance|high quality|premium)\b`)
	brakePadsPattern = regexp.MustCompile(`(?i)\bbrake pads\b`)
	frontSetPattern  = regexp.MustCompile(`(?i)\bfront set\b`)
	brandPattern     = regexp.MustCompile(`(?i)\b(honda|toyota|ford|bmw|mercedes|nissan|hyundai)\b`)
	yearPattern      = regexp.MustCompile(`\b(\d{4}(?:-\d{4})?)\b`)
)

// TitleSuggestion is a rewritten title with the edits that produced it
type TitleSuggestion struct {
	SuggestedTitle string   `json:"suggestedTitle"`
	Improvements   []string `json:"improvements"`
	ExpectedImpact string   `json:"expectedImpact"`
}

// SuggestTitle proposes a title for a listing flagged with title_optimization.
// It adds a condition keyword when none is present, a feature keyword for
// automotive parts and a shipping benefit when the title has room for it. The
// result is nil when nothing applies.
func SuggestTitle(title, category string) *TitleSuggestion {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return nil
	}

	suggested := title
	var improvements []string

	if !conditionPattern.MatchString(title) && len(suggested)+len("Premium ") <= MaxTitleLength {
		suggested = "Premium " + suggested
		improvements = append(improvements, `Added "Premium" condition indicator`)
	}

	if category == CategoryAutomotiveParts && !featurePattern.MatchString(title) && brakePadsPattern.MatchString(suggested) {
		if withFeature := brakePadsPattern.ReplaceAllString(suggested, "Ceramic Brake Pads"); len(withFeature) <= MaxTitleLength {
			suggested = withFeature
			improvements = append(improvements, `Added "Ceramic" feature keyword`)
		}
	}

	const shipping = " - Fast Shipping"
	if len(suggested) < 60 && !shippingPattern.MatchString(suggested) {
		suggested += shipping
		improvements = append(improvements, "Added shipping benefit")
	}

	if len(improvements) == 0 {
		return nil
	}

	return &TitleSuggestion{
		SuggestedTitle: suggested,
		Improvements:   improvements,
		ExpectedImpact: "Improved search visibility and click-through rate",
	}
}

// SuggestTitles returns SuggestTitle's rewrite followed by a scope-expansion
// alternative for front-only sets. Either may be absent.
func SuggestTitles(title, category string) []TitleSuggestion {
	suggestions := []TitleSuggestion{}
	if s := SuggestTitle(title, category); s != nil {
		suggestions = append(suggestions, *s)
	}

	title = strings.Join(strings.Fields(title), " ")
	if frontSetPattern.MatchString(title) {
		expanded := frontSetPattern.ReplaceAllString(title, "Front & Rear Complete Set")
		if len(expanded) <= MaxTitleLength {
			suggestions = append(suggestions, TitleSuggestion{
				SuggestedTitle: expanded,
				Improvements:   []string{"Expanded product scope description", "Better value proposition"},
				ExpectedImpact: "Higher perceived value and conversion rate",
			})
		}
	}
	return suggestions
}

// DescriptionSuggestion is an extended listing description and what was added
type DescriptionSuggestion struct {
	EnhancedDescription string   `json:"enhancedDescription"`
	AddedElements       []string `json:"addedElements"`
	SEOKeywords         []string `json:"seoKeywords"`
	TrustSignals        []string `json:"trustSignals"`
}

// SuggestDescription appends specification, compatibility, warranty and
// call-to-action blocks to a description. Specifications are added for brake
// parts; compatibility needs both a brand and a model year in the title.
func SuggestDescription(description, title string) DescriptionSuggestion {
	var b strings.Builder
	b.WriteString(strings.TrimRight(description, "\n "))

	s := DescriptionSuggestion{
		AddedElements: []string{},
		SEOKeywords:   []string{},
		TrustSignals:  []string{},
	}

	if strings.Contains(strings.ToLower(title), "brake") {
		b.WriteString("\n\nTECHNICAL SPECIFICATIONS:\n")
		b.WriteString("- Premium ceramic compound for superior stopping power\n")
		b.WriteString("- Low dust formula keeps wheels cleaner\n")
		b.WriteString("- Temperature resistant up to 650F\n")
		b.WriteString("- Direct OEM replacement, perfect fit guaranteed\n")
		s.AddedElements = append(s.AddedElements, "Technical specifications")
		s.SEOKeywords = append(s.SEOKeywords, "ceramic brake pads", "low dust", "OEM replacement")
	}

	brand := brandPattern.FindStringSubmatch(title)
	year := yearPattern.FindStringSubmatch(title)
	if brand != nil && year != nil {
		b.WriteString("\n\nCOMPATIBILITY:\n")
		b.WriteString("- Fits " + brand[1] + " models " + year[1] + "\n")
		b.WriteString("- Professional installation recommended\n")
		b.WriteString("- Includes all necessary hardware\n")
		s.AddedElements = append(s.AddedElements, "Compatibility details")
		s.SEOKeywords = append(s.SEOKeywords, strings.ToLower(brand[1])+" brake pads", year[1]+" brake pads")
	}

	b.WriteString("\n\nWARRANTY & SHIPPING:\n")
	b.WriteString("- 2-year manufacturer warranty\n")
	b.WriteString("- Fast shipping, same day processing\n")
	b.WriteString("- 30-day return policy\n")
	b.WriteString("- Professional customer support\n")
	s.AddedElements = append(s.AddedElements, "Warranty information", "Shipping details")
	s.TrustSignals = append(s.TrustSignals, "2-year warranty", "Fast shipping", "30-day returns")

	b.WriteString("\n\nQuestions? Our experts are here to help!\n")
	b.WriteString("Order now for reliable performance and peace of mind.")
	s.AddedElements = append(s.AddedElements, "Call to action")

	s.EnhancedDescription = b.String()
	return s
}

// CategorySuggestion is one alternative category for a listing
type CategorySuggestion struct {
	Category        string `json:"category"`
	Reason          string `json:"reason"`
	ExpectedBenefit string `json:"expectedBenefit"`
}

// CategoryAnalysis summarises how the current category compares
type CategoryAnalysis struct {
	CurrentCategoryOptimal bool           `json:"currentCategoryOptimal"`
	CompetitorDistribution map[string]int `json:"competitorDistribution"`
	RecommendationStrength string         `json:"recommendationStrength"`
}

// CategoryRecommendation is the result of RecommendCategories
type CategoryRecommendation struct {
	CurrentCategory     string               `json:"currentCategory"`
	SuggestedCategories []CategorySuggestion `json:"suggestedCategories"`
	Analysis            CategoryAnalysis     `json:"analysis"`
}

// RecommendCategories suggests more specific categories for a brake pad
// listing and counts the categories competitors list under. Competitors
// without a category count as "Unknown".
func RecommendCategories(currentCategory, title string, competitors []model.CompetitorListing) CategoryRecommendation {
	lower := strings.ToLower(title)
	isBrakePads := strings.Contains(lower, "brake pad")
	isSpecific := strings.Contains(currentCategory, "Brake Pads")
	inBrakes := strings.Contains(currentCategory, "Brakes")

	suggested := []CategorySuggestion{}
	if isBrakePads && !isSpecific {
		suggested = append(suggested, CategorySuggestion{
			Category:        "Car & Truck Parts > Brakes > Brake Pads",
			Reason:          "More specific brake pads category for better targeting",
			ExpectedBenefit: "Higher visibility in specific searches",
		})
	}
	if brand := brandPattern.FindStringSubmatch(title); brand != nil && isBrakePads {
		suggested = append(suggested, CategorySuggestion{
			Category:        "Car & Truck Parts > " + brand[1] + " > Brakes",
			Reason:          "Brand-specific category for targeted buyers",
			ExpectedBenefit: "Better conversion from brand-loyal customers",
		})
	}
	if isBrakePads && strings.Contains(lower, "front") {
		suggested = append(suggested, CategorySuggestion{
			Category:        "Car & Truck Parts > Brakes > Brake Pads > Front",
			Reason:          "Position-specific category for precise targeting",
			ExpectedBenefit: "More qualified leads and higher conversion",
		})
	}

	distribution := make(map[string]int)
	for _, comp := range competitors {
		category := comp.Category
		if category == "" {
			category = "Unknown"
		}
		distribution[category]++
	}

	strength := "low"
	if len(suggested) > 0 {
		strength = "high"
	}

	return CategoryRecommendation{
		CurrentCategory:     currentCategory,
		SuggestedCategories: suggested,
		Analysis: CategoryAnalysis{
			CurrentCategoryOptimal: isSpecific && inBrakes,
			CompetitorDistribution: distribution,
			RecommendationStrength: strength,
		},
	}
}
