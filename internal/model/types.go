package model

import "time"

// AccountInfo is whatever the platform reports about the seller account.
type AccountInfo struct {
	AccountID   string            `json:"accountId"`
	DisplayName string            `json:"displayName"`
	Marketplace string            `json:"marketplace"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Listing is one of the seller's own listings on a platform.
type Listing struct {
	ItemID   string  `json:"itemId"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Views    int     `json:"views"`
	Watchers int     `json:"watchers"`
	Category string  `json:"category"`
}

// PerformanceMetrics are the rates a connector reports for a listing.
type PerformanceMetrics struct {
	Views            int     `json:"views"`
	Watchers         int     `json:"watchers"`
	Impressions      int     `json:"impressions"`
	ClickThroughRate float64 `json:"clickThroughRate"`
	ConversionRate   float64 `json:"conversionRate"`
	WatchToSaleRate  float64 `json:"watchToSaleRate"`
}

// SalesData summarises completed sales for a listing.
type SalesData struct {
	UnitsSold int     `json:"unitsSold"`
	Revenue   float64 `json:"revenue"`
}

// PerformanceRecord is the per-listing performance fetched from a connector.
type PerformanceRecord struct {
	ItemID    string             `json:"itemId"`
	Metrics   PerformanceMetrics `json:"metrics"`
	SalesData SalesData          `json:"salesData"`
}

// CollectedDataset is one platform's collection cycle.
//
// Every key of Performance is an item id present in Listings. A listing may have
// no performance entry when its fetch failed.
type CollectedDataset struct {
	ID          string                       `json:"id,omitempty"`
	Platform    string                       `json:"platform"`
	Timestamp   time.Time                    `json:"timestamp"`
	Account     AccountInfo                  `json:"account"`
	Listings    []Listing                    `json:"listings"`
	Performance map[string]PerformanceRecord `json:"performance"`
}

// PerformanceInOrder returns the performance records in listing order. This is
// the iteration order used everywhere a tie-break depends on order.
func (d *CollectedDataset) PerformanceInOrder() []PerformanceRecord {
	records := make([]PerformanceRecord, 0, len(d.Performance))
	for _, listing := range d.Listings {
		if perf, ok := d.Performance[listing.ItemID]; ok {
			records = append(records, perf)
		}
	}
	return records
}

// Orphans returns performance keys that do not reference a listing.
func (d *CollectedDataset) Orphans() []string {
	known := make(map[string]struct{}, len(d.Listings))
	for _, listing := range d.Listings {
		known[listing.ItemID] = struct{}{}
	}

	var orphans []string
	for id := range d.Performance {
		if _, ok := known[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	return orphans
}

// TopPerformer identifies the listing with the best conversion rate.
type TopPerformer struct {
	ItemID         string  `json:"itemId"`
	ConversionRate float64 `json:"conversionRate"`
}

// AggregateMetrics is derived from a CollectedDataset.
type AggregateMetrics struct {
	Platform              string        `json:"platform,omitempty"`
	TotalListings         int           `json:"totalListings"`
	TotalViews            int           `json:"totalViews"`
	TotalWatchers         int           `json:"totalWatchers"`
	AveragePrice          float64       `json:"averagePrice"`
	AverageCTR            float64       `json:"averageCTR"`
	AverageConversionRate float64       `json:"averageConversionRate"`
	PerformanceCount      int           `json:"performanceCount"`
	TopPerformer          *TopPerformer `json:"topPerformer,omitempty"`
}

// AverageViews is the per-listing mean of views, zero for an empty set.
func (m AggregateMetrics) AverageViews() float64 {
	if m.TotalListings == 0 {
		return 0
	}
	return float64(m.TotalViews) / float64(m.TotalListings)
}

type OpportunityType string

const (
	OpportunityTitle      OpportunityType = "title_optimization"
	OpportunityPricing    OpportunityType = "pricing_optimization"
	OpportunityVisibility OpportunityType = "visibility_boost"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// OptimizationOpportunity flags a listing that may benefit from a change.
type OptimizationOpportunity struct {
	ItemID      string          `json:"itemId"`
	Type        OpportunityType `json:"type"`
	Priority    Priority        `json:"priority"`
	Description string          `json:"description"`
	Impact      string          `json:"impact"`
}

// CompetitorListing is a listing by another seller for a search term.
type CompetitorListing struct {
	ItemID        string  `json:"itemId"`
	SellerID      string  `json:"sellerId"`
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	ShippingCost  float64 `json:"shippingCost"`
	TotalCost     float64 `json:"totalCost"`
	Quantity      int     `json:"quantity"`
	SellerRating  float64 `json:"sellerRating"`
	FeedbackCount int     `json:"feedbackCount"`
	Category      string  `json:"category,omitempty"`
}

// CompetitorSnapshot is an immutable capture of competitors for one search term.
type CompetitorSnapshot struct {
	SnapshotID  string              `json:"snapshotId"`
	Platform    string              `json:"platform,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	SearchTerm  string              `json:"searchTerm"`
	Competitors []CompetitorListing `json:"competitors"`
}

type ChangeType string

const (
	ChangePrice             ChangeType = "price_change"
	ChangeQuantity          ChangeType = "quantity_change"
	ChangeNewCompetitor     ChangeType = "new_competitor"
	ChangeCompetitorRemoved ChangeType = "competitor_removed"
)

// CompetitorChange is one classified difference between two snapshots.
//
// Price fields are set for price_change, quantity fields for quantity_change.
// New and removed competitors carry Title and Price (their total cost).
type CompetitorChange struct {
	Type           ChangeType `json:"type"`
	ItemID         string     `json:"itemId"`
	SellerID       string     `json:"sellerId"`
	Title          string     `json:"title,omitempty"`
	Price          float64    `json:"price,omitempty"`
	OldPrice       float64    `json:"oldPrice"`
	NewPrice       float64    `json:"newPrice"`
	Change         float64    `json:"change"`
	ChangePercent  float64    `json:"changePercent"`
	OldQuantity    int        `json:"oldQuantity,omitempty"`
	NewQuantity    int        `json:"newQuantity,omitempty"`
	QuantityChange int        `json:"quantityChange,omitempty"`
}

type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStopped SessionStatus = "stopped"
)

// MonitoringSession is a recurring competitor-monitoring intent.
type MonitoringSession struct {
	SessionID  string        `json:"sessionId"`
	Platform   string        `json:"platform"`
	SearchTerm string        `json:"searchTerm"`
	Interval   time.Duration `json:"interval"`
	Status     SessionStatus `json:"status"`
	StartedAt  time.Time     `json:"startedAt"`
	LastCheck  time.Time     `json:"lastCheck"`
	// BaselineID is the snapshot the next check is diffed against.
	BaselineID string `json:"baselineId,omitempty"`
}

// Due reports whether the next check is owed at now.
func (s MonitoringSession) Due(now time.Time) bool {
	return s.Status == SessionActive && !now.Before(s.LastCheck.Add(s.Interval))
}

type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleExecuted  ScheduleStatus = "executed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// ScheduledUpdate is a deferred listing update intent.
type ScheduledUpdate struct {
	ScheduleID    string                 `json:"scheduleId"`
	ItemID        string                 `json:"itemId"`
	UpdateType    string                 `json:"updateType"`
	ScheduledTime time.Time              `json:"scheduledTime"`
	UpdateData    map[string]interface{} `json:"updateData,omitempty"`
	Status        ScheduleStatus         `json:"status"`
	CreatedAt     time.Time              `json:"createdAt"`
	Reason        string                 `json:"reason,omitempty"`
}

type AlertType string

const (
	AlertLowCTR AlertType = "low_ctr"
	// AlertPriceDrop is a static floor: averagePrice below the threshold.
	AlertPriceDrop AlertType = "price_drop"
	// AlertPriceDropPct compares averagePrice with the previous cycle's.
	AlertPriceDropPct AlertType = "price_drop_pct"
)

// AlertRule is an operator-configured rule.
type AlertRule struct {
	RuleID    string    `json:"ruleId"`
	AlertType AlertType `json:"alertType" validate:"required,oneof=low_ctr price_drop price_drop_pct"`
	Threshold float64   `json:"threshold" validate:"gte=0"`
	Action    string    `json:"action"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// TriggeredAlert is the outcome of a rule firing.
type TriggeredAlert struct {
	AlertID     string                 `json:"alertId"`
	RuleID      string                 `json:"ruleId"`
	AlertType   AlertType              `json:"alertType"`
	Severity    Severity               `json:"severity"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data"`
	TriggeredAt time.Time              `json:"triggeredAt"`
}

// PricingRecommendation is the result of comparing a price against competitors.
type PricingRecommendation struct {
	CurrentPrice     float64              `json:"currentPrice"`
	RecommendedPrice float64              `json:"recommendedPrice"`
	MarketAverage    float64              `json:"marketAverage"`
	Strategy         string               `json:"strategy"`
	Reasoning        string               `json:"reasoning"`
	Competitors      []CompetitorPosition `json:"competitorAnalysis"`
}

// CompetitorPosition is one competitor's price point used in a recommendation.
type CompetitorPosition struct {
	SellerID  string  `json:"seller"`
	Price     float64 `json:"price"`
	TotalCost float64 `json:"totalCost"`
}
