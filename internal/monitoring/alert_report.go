package monitoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guarzo/sellerpulse/internal/model"
)

// SeverityRank orders severities, high first. Unknown severities rank 0.
func SeverityRank(severity model.Severity) int {
	switch severity {
	case model.SeverityHigh:
		return 3
	case model.SeverityMedium:
		return 2
	case model.SeverityLow:
		return 1
	default:
		return 0
	}
}

// SortBySeverity orders alerts high first, keeping trigger order within a
// severity
func SortBySeverity(alerts []model.TriggeredAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return SeverityRank(alerts[i].Severity) > SeverityRank(alerts[j].Severity)
	})
}

// SeverityCounts tallies alerts per severity
func SeverityCounts(alerts []model.TriggeredAlert) map[model.Severity]int {
	counts := make(map[model.Severity]int, 3)
	for _, alert := range alerts {
		counts[alert.Severity]++
	}
	return counts
}

// FormatAlert creates a human-readable representation of an alert
func FormatAlert(alert model.TriggeredAlert) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n[%s] %s\n", strings.ToUpper(string(alert.Severity)), alert.AlertType)
	if itemID, ok := alert.Data["itemId"].(string); ok && itemID != "" {
		fmt.Fprintf(&sb, "Listing: %s\n", itemID)
	}
	fmt.Fprintf(&sb, "Message: %s\n", alert.Message)
	fmt.Fprintf(&sb, "Rule: %s at %s\n", alert.RuleID, alert.TriggeredAt.Format("2006-01-02 15:04:05"))
	return sb.String()
}

// FormatAlerts renders a severity summary followed by every alert, highest
// severity first
func FormatAlerts(alerts []model.TriggeredAlert) string {
	if len(alerts) == 0 {
		return "No alerts triggered.\n"
	}

	sorted := append([]model.TriggeredAlert(nil), alerts...)
	SortBySeverity(sorted)

	counts := SeverityCounts(sorted)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d alerts (%d high, %d medium, %d low)\n", len(sorted),
		counts[model.SeverityHigh], counts[model.SeverityMedium], counts[model.SeverityLow])
	for _, alert := range sorted {
		sb.WriteString(FormatAlert(alert))
	}
	return sb.String()
}
