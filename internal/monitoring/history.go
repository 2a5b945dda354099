package monitoring

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/report"
)

// DefaultHistoryDepth is how many cycles History keeps per platform
const DefaultHistoryDepth = 50

// HistoryEntry is one platform's aggregate metrics at the end of a cycle
type HistoryEntry struct {
	RecordedAt time.Time
	Metrics    model.AggregateMetrics
}

// History keeps the most recent aggregate metrics per platform. It is what
// makes period-over-period alert rules possible.
type History struct {
	mu      sync.RWMutex
	depth   int
	entries map[string][]HistoryEntry
}

// NewHistory creates a history keeping depth cycles per platform
func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{
		depth:   depth,
		entries: make(map[string][]HistoryEntry),
	}
}

// Record appends metrics for platform, dropping the oldest entry past depth
func (h *History) Record(platformName string, metrics model.AggregateMetrics, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.entries[platformName], HistoryEntry{RecordedAt: at, Metrics: metrics})
	if len(entries) > h.depth {
		entries = entries[len(entries)-h.depth:]
	}
	h.entries[platformName] = entries
}

// Latest returns the most recent entry for platform
func (h *History) Latest(platformName string) (HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.entries[platformName]
	if len(entries) == 0 {
		return HistoryEntry{}, false
	}
	return entries[len(entries)-1], true
}

// Entries returns platform's entries, oldest first
func (h *History) Entries(platformName string) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, len(h.entries[platformName]))
	copy(out, h.entries[platformName])
	return out
}

// Clear forgets everything
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make(map[string][]HistoryEntry)
}

// AppendCSV appends platform's entries to a CSV file, writing a header when
// the file is new.
func (h *History) AppendCSV(path, platformName string) error {
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if needsHeader {
		header := []string{
			"Timestamp", "Platform", "TotalListings", "TotalViews",
			"AveragePrice", "AverageCTR", "AverageConversionRate",
		}
		if err := writer.Write(report.EscapeCSVRow(header)); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for _, entry := range h.Entries(platformName) {
		m := entry.Metrics
		record := []string{
			entry.RecordedAt.Format(time.RFC3339),
			platformName,
			strconv.Itoa(m.TotalListings),
			strconv.Itoa(m.TotalViews),
			fmt.Sprintf("%.2f", m.AveragePrice),
			strconv.FormatFloat(m.AverageCTR, 'f', 4, 64),
			strconv.FormatFloat(m.AverageConversionRate, 'f', 4, 64),
		}
		if err := writer.Write(report.EscapeCSVRow(record)); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
