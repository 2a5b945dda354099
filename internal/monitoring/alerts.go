package monitoring

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guarzo/sellerpulse/internal/errs"
	"github.com/guarzo/sellerpulse/internal/logging"
	"github.com/guarzo/sellerpulse/internal/metrics"
	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/store"
)

// RuleSpec is an alert rule as an operator configures it
type RuleSpec struct {
	AlertType model.AlertType
	Threshold float64
	Action    string
}

// AlertConfig contains alert engine parameters
type AlertConfig struct {
	// MinSeverity drops alerts below this severity. Empty keeps everything.
	MinSeverity model.Severity
}

// AlertEngine evaluates configured rules against a collection cycle
type AlertEngine struct {
	config   AlertConfig
	rules    store.Store[model.AlertRule]
	history  *History
	validate *validator.Validate
	now      func() time.Time
	log      zerolog.Logger
}

// NewAlertEngine creates an alert engine. history backs price_drop_pct rules
// and may be nil, in which case those rules never fire.
func NewAlertEngine(config AlertConfig, rules store.Store[model.AlertRule], history *History) *AlertEngine {
	if rules == nil {
		rules = store.NewMemory[model.AlertRule]()
	}
	return &AlertEngine{
		config:   config,
		rules:    rules,
		history:  history,
		validate: validator.New(),
		now:      time.Now,
		log:      logging.Component("alerts"),
	}
}

// ConfigureAlertRules stores the rules, enabled, and returns their ids in
// order. Nothing is stored if any rule is invalid.
func (ae *AlertEngine) ConfigureAlertRules(specs []RuleSpec) ([]string, error) {
	now := ae.now().UTC()
	rules := make([]model.AlertRule, 0, len(specs))
	for i, spec := range specs {
		rule := model.AlertRule{
			RuleID:    "rule_" + uuid.NewString(),
			AlertType: spec.AlertType,
			Threshold: spec.Threshold,
			Action:    spec.Action,
			Enabled:   true,
			CreatedAt: now,
		}
		if err := ae.validate.Struct(rule); err != nil {
			return nil, errs.Wrap(errs.Validation, fmt.Sprintf("alert rule %d", i), err)
		}
		rules = append(rules, rule)
	}

	ids := make([]string, 0, len(rules))
	for _, rule := range rules {
		ae.rules.Put(rule.RuleID, rule)
		ids = append(ids, rule.RuleID)
	}
	return ids, nil
}

// RemoveRule deletes a rule
func (ae *AlertEngine) RemoveRule(id string) error {
	if !ae.rules.Delete(id) {
		return errs.New(errs.NotFound, "alert rule", "rule %s not found", id)
	}
	return nil
}

// SetRuleEnabled toggles whether CheckAlerts evaluates a rule
func (ae *AlertEngine) SetRuleEnabled(id string, enabled bool) error {
	_, ok := ae.rules.Update(id, func(r *model.AlertRule) bool {
		r.Enabled = enabled
		return true
	})
	if !ok {
		return errs.New(errs.NotFound, "alert rule", "rule %s not found", id)
	}
	return nil
}

// ListRules returns every rule in configuration order
func (ae *AlertEngine) ListRules() []model.AlertRule {
	return ae.rules.List()
}

// ClearRules drops every rule
func (ae *AlertEngine) ClearRules() {
	ae.rules.Clear()
}

// CheckAlerts evaluates enabled rules, in configuration order, against a
// dataset and its metrics.
func (ae *AlertEngine) CheckAlerts(dataset *model.CollectedDataset, agg model.AggregateMetrics) []model.TriggeredAlert {
	alerts := []model.TriggeredAlert{}

	for _, rule := range ae.rules.List() {
		if !rule.Enabled {
			continue
		}

		switch rule.AlertType {
		case model.AlertLowCTR:
			alerts = append(alerts, ae.checkLowCTR(rule, dataset)...)
		case model.AlertPriceDrop:
			if alert, ok := ae.checkPriceFloor(rule, agg); ok {
				alerts = append(alerts, alert)
			}
		case model.AlertPriceDropPct:
			if alert, ok := ae.checkPriceDropPct(rule, dataset.Platform, agg); ok {
				alerts = append(alerts, alert)
			}
		}
	}

	alerts = ae.filterBySeverity(alerts)
	for _, alert := range alerts {
		metrics.AlertsTriggered.WithLabelValues(string(alert.AlertType), string(alert.Severity)).Inc()
		ae.log.Info().
			Str("alert_id", alert.AlertID).
			Str("rule_id", alert.RuleID).
			Str("alert_type", string(alert.AlertType)).
			Str("severity", string(alert.Severity)).
			Msg(alert.Message)
	}
	return alerts
}

func (ae *AlertEngine) checkLowCTR(rule model.AlertRule, dataset *model.CollectedDataset) []model.TriggeredAlert {
	var alerts []model.TriggeredAlert
	for _, listing := range dataset.Listings {
		perf, ok := dataset.Performance[listing.ItemID]
		if !ok || perf.Metrics.ClickThroughRate >= rule.Threshold {
			continue
		}
		alerts = append(alerts, ae.newAlert(rule, model.SeverityMedium,
			fmt.Sprintf("Low CTR detected for listing %s: %.2f%%", listing.ItemID, perf.Metrics.ClickThroughRate*100),
			map[string]interface{}{
				"itemId":     listing.ItemID,
				"currentCTR": perf.Metrics.ClickThroughRate,
				"threshold":  rule.Threshold,
				"title":      listing.Title,
			}))
	}
	return alerts
}

// checkPriceFloor is a static floor on the aggregate average price. It looks
// at no prior period; price_drop_pct is the historical check.
func (ae *AlertEngine) checkPriceFloor(rule model.AlertRule, agg model.AggregateMetrics) (model.TriggeredAlert, bool) {
	if agg.TotalListings == 0 || agg.AveragePrice >= rule.Threshold {
		return model.TriggeredAlert{}, false
	}
	return ae.newAlert(rule, model.SeverityHigh,
		fmt.Sprintf("Average price $%.2f is below the $%.2f floor", agg.AveragePrice, rule.Threshold),
		map[string]interface{}{
			"currentAverage": agg.AveragePrice,
			"threshold":      rule.Threshold,
			"totalListings":  agg.TotalListings,
		}), true
}

// checkPriceDropPct compares the average price against the platform's
// previous recorded cycle. The threshold is a percentage.
func (ae *AlertEngine) checkPriceDropPct(rule model.AlertRule, platformName string, agg model.AggregateMetrics) (model.TriggeredAlert, bool) {
	if ae.history == nil || agg.TotalListings == 0 {
		return model.TriggeredAlert{}, false
	}
	previous, ok := ae.history.Latest(platformName)
	if !ok || previous.Metrics.AveragePrice <= 0 {
		return model.TriggeredAlert{}, false
	}

	prevAvg := previous.Metrics.AveragePrice
	dropPct := (prevAvg - agg.AveragePrice) / prevAvg * 100
	if dropPct <= 0 || dropPct < rule.Threshold {
		return model.TriggeredAlert{}, false
	}

	return ae.newAlert(rule, dropSeverity(dropPct),
		fmt.Sprintf("Average price dropped %.1f%% since %s ($%.2f to $%.2f)",
			dropPct, previous.RecordedAt.Format(time.RFC3339), prevAvg, agg.AveragePrice),
		map[string]interface{}{
			"previousAverage": prevAvg,
			"currentAverage":  agg.AveragePrice,
			"dropPercent":     dropPct,
			"threshold":       rule.Threshold,
			"previousAt":      previous.RecordedAt,
		}), true
}

func (ae *AlertEngine) newAlert(rule model.AlertRule, severity model.Severity, message string, data map[string]interface{}) model.TriggeredAlert {
	return model.TriggeredAlert{
		AlertID:     "alert_" + uuid.NewString(),
		RuleID:      rule.RuleID,
		AlertType:   rule.AlertType,
		Severity:    severity,
		Message:     message,
		Data:        data,
		TriggeredAt: ae.now().UTC(),
	}
}

// filterBySeverity removes alerts below the configured minimum severity
func (ae *AlertEngine) filterBySeverity(alerts []model.TriggeredAlert) []model.TriggeredAlert {
	minRank := SeverityRank(ae.config.MinSeverity)
	if minRank == 0 {
		return alerts
	}

	filtered := []model.TriggeredAlert{}
	for _, alert := range alerts {
		if SeverityRank(alert.Severity) >= minRank {
			filtered = append(filtered, alert)
		}
	}
	return filtered
}

func dropSeverity(dropPct float64) model.Severity {
	if dropPct >= 30 {
		return model.SeverityHigh
	} else if dropPct >= 15 {
		return model.SeverityMedium
	}
	return model.SeverityLow
}
