package monitoring

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/guarzo/sellerpulse/internal/errs"
	"github.com/guarzo/sellerpulse/internal/logging"
	"github.com/guarzo/sellerpulse/internal/metrics"
	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/platform"
	"github.com/guarzo/sellerpulse/internal/store"
)

// SnapshotEngine captures competitor listings and diffs captures
type SnapshotEngine struct {
	registry  *platform.Registry
	snapshots store.Store[model.CompetitorSnapshot]
	now       func() time.Time
	log       zerolog.Logger
}

// NewSnapshotEngine creates a snapshot engine. A nil store gets an in-memory one.
func NewSnapshotEngine(registry *platform.Registry, snapshots store.Store[model.CompetitorSnapshot]) *SnapshotEngine {
	if snapshots == nil {
		snapshots = store.NewMemory[model.CompetitorSnapshot]()
	}
	return &SnapshotEngine{
		registry:  registry,
		snapshots: snapshots,
		now:       time.Now,
		log:       logging.Component("snapshot"),
	}
}

// CreateSnapshot fetches the current competitor listings for searchTerm from
// the named platform and stores them as a new snapshot.
func (e *SnapshotEngine) CreateSnapshot(ctx context.Context, platformName, searchTerm string) (*model.CompetitorSnapshot, error) {
	conn, err := e.registry.Connector(platformName)
	if err != nil {
		return nil, err
	}

	competitors, err := platform.Execute(ctx, e.registry, platformName, func(ctx context.Context) ([]model.CompetitorListing, error) {
		return conn.GetCompetitorListings(ctx, searchTerm)
	})
	if err != nil {
		if errs.Is(err, errs.ReadOnlyViolation) || errs.KindOf(err) == errs.Connection {
			return nil, err
		}
		return nil, errs.Wrap(errs.Connection, "snapshot "+searchTerm, err)
	}

	snapshot := model.CompetitorSnapshot{
		SnapshotID:  "snap_" + uuid.NewString(),
		Platform:    platformName,
		Timestamp:   e.now().UTC(),
		SearchTerm:  searchTerm,
		Competitors: append([]model.CompetitorListing(nil), competitors...),
	}
	e.snapshots.Put(snapshot.SnapshotID, snapshot)

	e.log.Debug().
		Str("platform", platformName).
		Str("search_term", searchTerm).
		Int("competitors", len(competitors)).
		Msg("snapshot created")
	return &snapshot, nil
}

// Snapshot returns a stored snapshot
func (e *SnapshotEngine) Snapshot(id string) (*model.CompetitorSnapshot, error) {
	snapshot, ok := e.snapshots.Get(id)
	if !ok {
		return nil, errs.New(errs.NotFound, "snapshot", "snapshot %s not found", id)
	}
	return &snapshot, nil
}

// Snapshots returns every stored snapshot in creation order
func (e *SnapshotEngine) Snapshots() []model.CompetitorSnapshot {
	return e.snapshots.List()
}

// DeleteSnapshot drops a stored snapshot and reports whether it existed
func (e *SnapshotEngine) DeleteSnapshot(id string) bool {
	return e.snapshots.Delete(id)
}

// Clear drops every stored snapshot
func (e *SnapshotEngine) Clear() {
	e.snapshots.Clear()
}

// Diff classifies the differences between two snapshots of the same search
// term. Snapshots of different search terms are not comparable and yield no
// changes; use DiffStrict to get an error instead.
//
// Each side is keyed by item id, the last entry winning for repeated ids.
// Changes for competitors in current come first, in current's first-seen id
// order, followed by competitor_removed entries in baseline's order.
func Diff(baseline, current *model.CompetitorSnapshot) []model.CompetitorChange {
	changes := []model.CompetitorChange{}
	if baseline.SearchTerm != current.SearchTerm {
		return changes
	}

	baselineByID, baselineOrder := indexCompetitors(baseline.Competitors)
	currentByID, currentOrder := indexCompetitors(current.Competitors)

	for _, id := range currentOrder {
		comp := currentByID[id]

		old, ok := baselineByID[id]
		if !ok {
			changes = append(changes, model.CompetitorChange{
				Type:     model.ChangeNewCompetitor,
				ItemID:   comp.ItemID,
				SellerID: comp.SellerID,
				Title:    comp.Title,
				Price:    comp.TotalCost,
			})
			continue
		}

		if old.TotalCost != comp.TotalCost {
			change := model.CompetitorChange{
				Type:     model.ChangePrice,
				ItemID:   comp.ItemID,
				SellerID: comp.SellerID,
				OldPrice: old.TotalCost,
				NewPrice: comp.TotalCost,
			}
			change.Change, change.ChangePercent = priceDelta(old.TotalCost, comp.TotalCost)
			changes = append(changes, change)
		}

		if old.Quantity != comp.Quantity {
			changes = append(changes, model.CompetitorChange{
				Type:           model.ChangeQuantity,
				ItemID:         comp.ItemID,
				SellerID:       comp.SellerID,
				OldQuantity:    old.Quantity,
				NewQuantity:    comp.Quantity,
				QuantityChange: comp.Quantity - old.Quantity,
			})
		}
	}

	for _, id := range baselineOrder {
		if _, ok := currentByID[id]; ok {
			continue
		}
		comp := baselineByID[id]
		changes = append(changes, model.CompetitorChange{
			Type:     model.ChangeCompetitorRemoved,
			ItemID:   comp.ItemID,
			SellerID: comp.SellerID,
			Title:    comp.Title,
			Price:    comp.TotalCost,
		})
	}

	for _, change := range changes {
		metrics.CompetitorChanges.WithLabelValues(string(change.Type)).Inc()
	}
	return changes
}

// indexCompetitors keys listings by item id, last entry wins, and returns the
// ids in first-seen order
func indexCompetitors(competitors []model.CompetitorListing) (map[string]model.CompetitorListing, []string) {
	byID := make(map[string]model.CompetitorListing, len(competitors))
	order := make([]string, 0, len(competitors))
	for _, comp := range competitors {
		if _, seen := byID[comp.ItemID]; !seen {
			order = append(order, comp.ItemID)
		}
		byID[comp.ItemID] = comp
	}
	return byID, order
}

// DiffStrict is Diff, but a search term mismatch is a DiffMismatch error
func DiffStrict(baseline, current *model.CompetitorSnapshot) ([]model.CompetitorChange, error) {
	if baseline.SearchTerm != current.SearchTerm {
		return nil, errs.New(errs.DiffMismatch, "diff",
			"baseline %s is for %q, current %s is for %q",
			baseline.SnapshotID, baseline.SearchTerm, current.SnapshotID, current.SearchTerm)
	}
	return Diff(baseline, current), nil
}

// priceDelta returns the absolute change and the percent change rounded to two
// places. A zero baseline has no defined percent and reports 0.
func priceDelta(oldCost, newCost float64) (float64, float64) {
	oldDec := decimal.NewFromFloat(oldCost)
	delta := decimal.NewFromFloat(newCost).Sub(oldDec)
	if oldDec.IsZero() {
		return delta.InexactFloat64(), 0
	}
	pct := delta.Div(oldDec).Mul(decimal.NewFromInt(100)).Round(2)
	return delta.InexactFloat64(), pct.InexactFloat64()
}

// SaveSnapshot writes a snapshot to a JSON file
func SaveSnapshot(path string, snapshot *model.CompetitorSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot
func LoadSnapshot(path string) (*model.CompetitorSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot model.CompetitorSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	return &snapshot, nil
}
