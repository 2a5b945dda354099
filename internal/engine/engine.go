// Package engine wires the registry, collection, analysis, monitoring and
// reporting components into one service object. Every Engine owns its state,
// so independent instances can coexist.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/guarzo/sellerpulse/internal/analysis"
	"github.com/guarzo/sellerpulse/internal/collect"
	"github.com/guarzo/sellerpulse/internal/concurrent"
	"github.com/guarzo/sellerpulse/internal/config"
	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/logging"
	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/monitoring"
	"github.com/guarzo/sellerpulse/internal/platform"
	"github.com/guarzo/sellerpulse/internal/report"
	"github.com/guarzo/sellerpulse/internal/store"
)

// Stores are the storage backends an Engine keeps its state in. Nil fields
// get in-memory stores.
type Stores struct {
	Datasets  store.Store[model.CollectedDataset]
	Snapshots store.Store[model.CompetitorSnapshot]
	Updates   store.Store[model.ScheduledUpdate]
	Sessions  store.Store[model.MonitoringSession]
	Rules     store.Store[model.AlertRule]
}

// Engine is the seller analytics service
type Engine struct {
	cfg          config.Config
	registry     *platform.Registry
	fetcher      *concurrent.Fetcher
	orchestrator *collect.Orchestrator
	analyzer     *analysis.Analyzer
	pricing      analysis.PricingPolicy
	snapshots    *monitoring.SnapshotEngine
	scheduler    *monitoring.Scheduler
	alerts       *monitoring.AlertEngine
	history      *monitoring.History
	reports      *report.Generator
	log          zerolog.Logger
}

// New creates an engine from configuration
func New(cfg config.Config, stores Stores) *Engine {
	registry := platform.NewRegistry(platform.Options{
		CallTimeout:     cfg.Collect.CallTimeout,
		BreakerFailures: cfg.Collect.BreakerFailures,
		BreakerTimeout:  cfg.Collect.BreakerTimeout,
	})

	limit := rate.Limit(cfg.Collect.RatePerSecond)
	fetcher := concurrent.NewFetcher(concurrent.FetcherConfig{
		Workers:   cfg.Collect.Workers,
		RateLimit: limit,
		Burst:     cfg.Collect.Burst,
		Timeout:   cfg.Collect.CallTimeout,
	})

	analyzer := analysis.NewAnalyzer(Thresholds(cfg.Optimize))
	history := monitoring.NewHistory(0)

	return &Engine{
		cfg:          cfg,
		registry:     registry,
		fetcher:      fetcher,
		orchestrator: collect.NewOrchestrator(registry, fetcher, stores.Datasets, collect.Options{CallTimeout: cfg.Collect.CallTimeout}),
		analyzer:     analyzer,
		pricing:      PricingPolicy(cfg.Optimize),
		snapshots:    monitoring.NewSnapshotEngine(registry, stores.Snapshots),
		scheduler: monitoring.NewScheduler(monitoring.SchedulerOptions{
			Updates:         stores.Updates,
			Sessions:        stores.Sessions,
			DefaultInterval: cfg.Monitor.DefaultInterval,
			DefaultPlatform: cfg.Monitor.DefaultPlatform,
		}),
		alerts:  monitoring.NewAlertEngine(monitoring.AlertConfig{}, stores.Rules, history),
		history: history,
		reports: report.NewGenerator(analyzer, report.Options{
			MaxRecommendations: cfg.Report.MaxRecommendations,
			Previous: func(platformName string) (model.AggregateMetrics, bool) {
				entry, ok := history.Latest(platformName)
				return entry.Metrics, ok
			},
		}),
		log: logging.Component("engine"),
	}
}

// Thresholds converts the optimize section into analyzer thresholds
func Thresholds(c config.OptimizeConfig) analysis.Thresholds {
	return analysis.Thresholds{
		CTRFactor:        c.CTRFactor,
		ConversionFactor: c.ConversionFactor,
		ViewsFactor:      c.ViewsFactor,
	}
}

// PricingPolicy converts the optimize section into a pricing policy
func PricingPolicy(c config.OptimizeConfig) analysis.PricingPolicy {
	policy := analysis.DefaultPricingPolicy()
	policy.HighFactor = c.PricingHighFactor
	policy.LowFactor = c.PricingLowFactor
	return policy
}

// Registry exposes the platform registry
func (e *Engine) Registry() *platform.Registry { return e.registry }

// Scheduler exposes the intent store the pump polls
func (e *Engine) Scheduler() *monitoring.Scheduler { return e.scheduler }

// Snapshots exposes the snapshot engine
func (e *Engine) Snapshots() *monitoring.SnapshotEngine { return e.snapshots }

// History exposes the per-platform metrics history
func (e *Engine) History() *monitoring.History { return e.history }

// FetcherMetrics reports the per-listing fetch pool counters
func (e *Engine) FetcherMetrics() concurrent.MetricsSnapshot { return e.fetcher.GetMetrics() }

// AddPlatform registers a connector under name, disconnected
func (e *Engine) AddPlatform(name string, conn connector.Connector) error {
	if err := e.registry.AddPlatform(name, conn); err != nil {
		return err
	}
	e.log.Info().Str("platform", name).Msg("platform registered")
	return nil
}

// ConnectPlatform connects a registered platform. A refused connection
// returns false without an error.
func (e *Engine) ConnectPlatform(ctx context.Context, name string) (bool, error) {
	return e.registry.Connect(ctx, name)
}

// IsConnected reports the last recorded connection state
func (e *Engine) IsConnected(name string) bool { return e.registry.IsConnected(name) }

// ListPlatforms returns platform names in registration order
func (e *Engine) ListPlatforms() []string { return e.registry.ListPlatforms() }

// CollectAll runs one collection cycle against a platform
func (e *Engine) CollectAll(ctx context.Context, platformName string) (*model.CollectedDataset, error) {
	return e.orchestrator.CollectAll(ctx, platformName)
}

// StoreData keeps a dataset and returns its id
func (e *Engine) StoreData(dataset *model.CollectedDataset) string {
	return e.orchestrator.Store(dataset)
}

// Dataset returns a stored dataset
func (e *Engine) Dataset(id string) (*model.CollectedDataset, error) {
	return e.orchestrator.Get(id)
}

// CalculateMetrics aggregates a dataset
func (e *Engine) CalculateMetrics(dataset *model.CollectedDataset) model.AggregateMetrics {
	return analysis.CalculateMetrics(dataset)
}

// IdentifyOptimizations flags listings that trail the dataset averages
func (e *Engine) IdentifyOptimizations(dataset *model.CollectedDataset, metrics model.AggregateMetrics) []model.OptimizationOpportunity {
	return e.analyzer.IdentifyOptimizations(dataset, metrics)
}

// TitleSuggestions proposes titles for listings flagged with
// title_optimization, keyed by item id. Listings with nothing to suggest are
// left out.
func (e *Engine) TitleSuggestions(dataset *model.CollectedDataset, opportunities []model.OptimizationOpportunity) map[string][]analysis.TitleSuggestion {
	byID := make(map[string]model.Listing, len(dataset.Listings))
	for _, listing := range dataset.Listings {
		byID[listing.ItemID] = listing
	}

	suggestions := make(map[string][]analysis.TitleSuggestion)
	for _, opp := range opportunities {
		if opp.Type != model.OpportunityTitle {
			continue
		}
		listing := byID[opp.ItemID]
		if s := analysis.SuggestTitles(listing.Title, listing.Category); len(s) > 0 {
			suggestions[opp.ItemID] = s
		}
	}
	return suggestions
}

// SuggestDescriptionImprovements extends a listing description with
// specification, compatibility and trust blocks derived from its title
func (e *Engine) SuggestDescriptionImprovements(description, title string) analysis.DescriptionSuggestion {
	return analysis.SuggestDescription(description, title)
}

// RecommendCategoryChanges suggests alternative categories for a listing,
// using the competitor listings the platform returns for searchTerm
func (e *Engine) RecommendCategoryChanges(ctx context.Context, platformName, currentCategory, title, searchTerm string) (*analysis.CategoryRecommendation, error) {
	snapshot, err := e.snapshots.CreateSnapshot(ctx, platformName, searchTerm)
	if err != nil {
		return nil, err
	}
	rec := analysis.RecommendCategories(currentCategory, title, snapshot.Competitors)
	return &rec, nil
}

// OptimizePricing compares currentPrice with the competitor listings the
// platform returns for searchTerm
func (e *Engine) OptimizePricing(ctx context.Context, platformName string, currentPrice float64, searchTerm string) (*model.PricingRecommendation, error) {
	snapshot, err := e.snapshots.CreateSnapshot(ctx, platformName, searchTerm)
	if err != nil {
		return nil, err
	}
	rec := analysis.OptimizePricing(currentPrice, snapshot.Competitors, e.pricing)
	return &rec, nil
}

// CreateSnapshot captures and stores the competitor listings for searchTerm
func (e *Engine) CreateSnapshot(ctx context.Context, platformName, searchTerm string) (*model.CompetitorSnapshot, error) {
	return e.snapshots.CreateSnapshot(ctx, platformName, searchTerm)
}

// DetectChanges diffs two snapshots. Mismatched search terms yield no changes.
func (e *Engine) DetectChanges(baseline, current *model.CompetitorSnapshot) []model.CompetitorChange {
	return monitoring.Diff(baseline, current)
}

// ScheduleUpdate stores a deferred listing update. Nothing is applied until
// the pump finds it due.
func (e *Engine) ScheduleUpdate(spec monitoring.UpdateSpec) (*model.ScheduledUpdate, error) {
	return e.scheduler.ScheduleUpdate(spec)
}

// GetActiveSchedules returns scheduled updates whose time is still ahead
func (e *Engine) GetActiveSchedules() []model.ScheduledUpdate {
	return e.scheduler.GetActiveSchedules()
}

// CancelUpdate cancels a scheduled update
func (e *Engine) CancelUpdate(id, reason string) (*model.ScheduledUpdate, error) {
	return e.scheduler.CancelUpdate(id, reason)
}

// StartCompetitorMonitoring registers a new monitoring session for searchTerm
func (e *Engine) StartCompetitorMonitoring(searchTerm string, opts monitoring.MonitoringOptions) (*model.MonitoringSession, error) {
	return e.scheduler.StartCompetitorMonitoring(searchTerm, opts)
}

// ResumeCompetitorMonitoring reuses the active session for the platform and
// search term, or starts one
func (e *Engine) ResumeCompetitorMonitoring(searchTerm string, opts monitoring.MonitoringOptions) (*model.MonitoringSession, bool, error) {
	return e.scheduler.ResumeCompetitorMonitoring(searchTerm, opts)
}

// StopMonitoring stops a monitoring session
func (e *Engine) StopMonitoring(id string) (*model.MonitoringSession, error) {
	return e.scheduler.StopMonitoring(id)
}

// ConfigureAlertRules adds enabled alert rules and returns their ids
func (e *Engine) ConfigureAlertRules(rules []monitoring.RuleSpec) ([]string, error) {
	return e.alerts.ConfigureAlertRules(rules)
}

// RemoveRule deletes one alert rule
func (e *Engine) RemoveRule(id string) error { return e.alerts.RemoveRule(id) }

// SetRuleEnabled enables or disables one alert rule
func (e *Engine) SetRuleEnabled(id string, enabled bool) error {
	return e.alerts.SetRuleEnabled(id, enabled)
}

// ListRules returns the configured alert rules
func (e *Engine) ListRules() []model.AlertRule { return e.alerts.ListRules() }

// CheckAlerts evaluates enabled rules. It does not record the metrics in the
// history; RecordMetrics does, once a cycle is complete.
func (e *Engine) CheckAlerts(dataset *model.CollectedDataset, metrics model.AggregateMetrics) []model.TriggeredAlert {
	return e.alerts.CheckAlerts(dataset, metrics)
}

// RecordMetrics makes metrics the baseline for the next cycle's
// period-over-period checks
func (e *Engine) RecordMetrics(platformName string, metrics model.AggregateMetrics, at time.Time) {
	e.history.Record(platformName, metrics, at)
}

// GenerateReport builds a report for one collected dataset
func (e *Engine) GenerateReport(cfg report.Config, dataset *model.CollectedDataset, metrics model.AggregateMetrics) *report.Report {
	return e.reports.GenerateReport(cfg, dataset, metrics)
}

// Cycle is the outcome of RunCycle
type Cycle struct {
	DatasetID     string
	Dataset       *model.CollectedDataset
	Metrics       model.AggregateMetrics
	Opportunities []model.OptimizationOpportunity
	Alerts        []model.TriggeredAlert
	Report        *report.Report
}

// RunCycle collects from a platform, stores the dataset, evaluates alerts
// against the previous cycle, builds a report and then records this cycle's
// metrics as the new baseline.
func (e *Engine) RunCycle(ctx context.Context, platformName string, cfg report.Config) (*Cycle, error) {
	dataset, err := e.CollectAll(ctx, platformName)
	if err != nil {
		return nil, err
	}

	cycle := &Cycle{Dataset: dataset}
	cycle.DatasetID = e.StoreData(dataset)
	cycle.Metrics = e.CalculateMetrics(dataset)
	cycle.Opportunities = e.IdentifyOptimizations(dataset, cycle.Metrics)
	cycle.Alerts = e.CheckAlerts(dataset, cycle.Metrics)
	cycle.Report = e.GenerateReport(cfg, dataset, cycle.Metrics)
	e.RecordMetrics(platformName, cycle.Metrics, dataset.Timestamp)

	e.log.Info().
		Str("platform", platformName).
		Str("dataset_id", cycle.DatasetID).
		Int("opportunities", len(cycle.Opportunities)).
		Int("alerts", len(cycle.Alerts)).
		Msg("cycle complete")
	return cycle, nil
}

// Close disconnects every connector and clears all engine state
func (e *Engine) Close() error {
	err := e.registry.Close()
	e.snapshots.Clear()
	e.scheduler.Clear()
	e.alerts.ClearRules()
	e.history.Clear()

	if err != nil {
		e.log.Warn().Err(err).Msg("disconnect failed during close")
		return err
	}
	e.log.Info().Msg("engine closed")
	return nil
}
