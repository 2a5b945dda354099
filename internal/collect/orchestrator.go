package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guarzo/sellerpulse/internal/concurrent"
	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/errs"
	"github.com/guarzo/sellerpulse/internal/logging"
	"github.com/guarzo/sellerpulse/internal/metrics"
	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/platform"
	"github.com/guarzo/sellerpulse/internal/store"
)

// Orchestrator pulls account, listing and performance data from one platform
type Orchestrator struct {
	registry    *platform.Registry
	fetcher     *concurrent.Fetcher
	datasets    store.Store[model.CollectedDataset]
	callTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// Options tunes the orchestrator
type Options struct {
	// CallTimeout bounds the connect, account and listing calls. Per-listing
	// calls are bounded by the fetcher's own timeout.
	CallTimeout time.Duration
	// Now overrides the clock, for tests
	Now func() time.Time
}

// NewOrchestrator creates an orchestrator over the registry's connectors
func NewOrchestrator(registry *platform.Registry, fetcher *concurrent.Fetcher, datasets store.Store[model.CollectedDataset], opts Options) *Orchestrator {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if datasets == nil {
		datasets = store.NewMemory[model.CollectedDataset]()
	}
	return &Orchestrator{
		registry:    registry,
		fetcher:     fetcher,
		datasets:    datasets,
		callTimeout: opts.CallTimeout,
		now:         opts.Now,
		log:         logging.Component("collect"),
	}
}

// CollectAll connects if needed, then fetches account data, the listing set and
// one performance record per listing. A failed performance fetch only leaves
// that item out of the performance map. Connection problems and account or
// listing failures abort the collection.
func (o *Orchestrator) CollectAll(ctx context.Context, platformName string) (*model.CollectedDataset, error) {
	start := o.now()

	dataset, err := o.collect(ctx, platformName)
	if err != nil {
		metrics.CollectionsTotal.WithLabelValues(platformName, errs.KindOf(err).String()).Inc()
		o.log.Error().Err(err).Str("platform", platformName).Msg("collection failed")
		return nil, err
	}

	metrics.CollectionsTotal.WithLabelValues(platformName, "success").Inc()
	metrics.CollectionDuration.WithLabelValues(platformName).Observe(o.now().Sub(start).Seconds())
	o.log.Info().
		Str("platform", platformName).
		Int("listings", len(dataset.Listings)).
		Int("performance", len(dataset.Performance)).
		Msg("collection complete")
	return dataset, nil
}

func (o *Orchestrator) collect(ctx context.Context, name string) (*model.CollectedDataset, error) {
	op := "collect " + name

	conn, err := o.registry.Connector(name)
	if err != nil {
		return nil, err
	}

	if !o.registry.IsConnected(name) {
		connectCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		connected, err := o.registry.Connect(connectCtx, name)
		cancel()
		if err != nil {
			return nil, err
		}
		if !connected {
			return nil, errs.New(errs.Connection, op, "connector refused connection")
		}
	}

	account, err := callWithTimeout(ctx, o, name, conn.GetAccountData)
	if err != nil {
		return nil, batchError(op+": account", err)
	}

	listings, err := callWithTimeout(ctx, o, name, conn.GetListings)
	if err != nil {
		return nil, batchError(op+": listings", err)
	}

	performance, err := o.fetchPerformance(ctx, name, conn, listings)
	if err != nil {
		return nil, err
	}

	return &model.CollectedDataset{
		Platform:    name,
		Timestamp:   o.now().UTC(),
		Account:     account,
		Listings:    listings,
		Performance: performance,
	}, nil
}

// fetchPerformance fans the per-listing calls out over the fetcher. They bypass
// the platform breaker; a run of failing items is reported per item.
func (o *Orchestrator) fetchPerformance(ctx context.Context, name string, conn connector.Connector, listings []model.Listing) (map[string]model.PerformanceRecord, error) {
	ids := make([]string, 0, len(listings))
	seen := make(map[string]bool, len(listings))
	for _, listing := range listings {
		if listing.ItemID == "" || seen[listing.ItemID] {
			continue
		}
		seen[listing.ItemID] = true
		ids = append(ids, listing.ItemID)
	}

	results := concurrent.FetchAll[model.PerformanceRecord](ctx, o.fetcher, ids, conn.GetListingPerformance)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect %s aborted: %w", name, err)
	}

	performance := make(map[string]model.PerformanceRecord, len(results))
	for _, result := range results {
		if result.Err != nil {
			if errs.Is(result.Err, errs.ReadOnlyViolation) {
				return nil, result.Err
			}
			partial := errs.Wrap(errs.PartialFetch, "performance "+result.Key, result.Err)
			metrics.ListingFetchFailures.WithLabelValues(name).Inc()
			o.log.Warn().
				Err(partial).
				Str("platform", name).
				Str("item_id", result.Key).
				Msg("performance fetch failed, listing excluded from aggregates")
			continue
		}

		record := result.Value
		record.ItemID = result.Key
		performance[result.Key] = record
	}
	return performance, nil
}

func callWithTimeout[T any](ctx context.Context, o *Orchestrator, name string, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return platform.Execute(callCtx, o.registry, name, fn)
}

// batchError classifies an account or listing failure. Read-only violations
// pass through untouched.
func batchError(op string, err error) error {
	if errs.Is(err, errs.ReadOnlyViolation) || errs.KindOf(err) == errs.Connection {
		return err
	}
	return errs.Wrap(errs.Connection, op, err)
}

// Store assigns the dataset an id and keeps it in the dataset store
func (o *Orchestrator) Store(dataset *model.CollectedDataset) string {
	dataset.ID = fmt.Sprintf("%s_%s", dataset.Platform, uuid.NewString())
	o.datasets.Put(dataset.ID, *dataset)
	return dataset.ID
}

// Get returns a stored dataset
func (o *Orchestrator) Get(id string) (*model.CollectedDataset, error) {
	dataset, ok := o.datasets.Get(id)
	if !ok {
		return nil, errs.New(errs.NotFound, "dataset", "dataset %s not found", id)
	}
	return &dataset, nil
}
