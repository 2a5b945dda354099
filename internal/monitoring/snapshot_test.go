package monitoring

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/errs"
	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/platform"
	"github.com/guarzo/sellerpulse/internal/testdata/mockconnector"
)

func snap(term string, comps ...model.CompetitorListing) *model.CompetitorSnapshot {
	return &model.CompetitorSnapshot{SnapshotID: "snap_" + term, SearchTerm: term, Competitors: comps}
}

func comp(id string, cost float64, qty int) model.CompetitorListing {
	return model.CompetitorListing{ItemID: id, SellerID: "seller-" + id, Title: "Item " + id, TotalCost: cost, Quantity: qty}
}

func TestDiffPriceChange(t *testing.T) {
	changes := Diff(snap("brake pads", comp("1", 50, 3)), snap("brake pads", comp("1", 45, 3)))

	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, model.ChangePrice, c.Type)
	assert.Equal(t, "1", c.ItemID)
	assert.Equal(t, 50.0, c.OldPrice)
	assert.Equal(t, 45.0, c.NewPrice)
	assert.Equal(t, -5.0, c.Change)
	assert.Equal(t, -10.0, c.ChangePercent)
}

func TestDiffClassifiesEveryChange(t *testing.T) {
	baseline := snap("rotors", comp("1", 20, 5), comp("2", 30, 1), comp("3", 40, 2))
	current := snap("rotors", comp("1", 20, 4), comp("2", 33.333, 1), comp("4", 25, 9))

	changes := Diff(baseline, current)

	var types []model.ChangeType
	for _, c := range changes {
		types = append(types, c.Type)
	}
	assert.Equal(t, []model.ChangeType{
		model.ChangeQuantity,
		model.ChangePrice,
		model.ChangeNewCompetitor,
		model.ChangeCompetitorRemoved,
	}, types)

	assert.Equal(t, -1, changes[0].QuantityChange)
	assert.Equal(t, 11.11, changes[1].ChangePercent)
	assert.Equal(t, "4", changes[2].ItemID)
	assert.Equal(t, 25.0, changes[2].Price)
	assert.Equal(t, "3", changes[3].ItemID)
	assert.Equal(t, "Item 3", changes[3].Title)
}

func TestDiffPriceAndQuantity(t *testing.T) {
	changes := Diff(snap("x", comp("1", 10, 1)), snap("x", comp("1", 12, 2)))
	require.Len(t, changes, 2)
	assert.Equal(t, model.ChangePrice, changes[0].Type)
	assert.Equal(t, 20.0, changes[0].ChangePercent)
	assert.Equal(t, model.ChangeQuantity, changes[1].Type)
}

func TestDiffSelfIsEmpty(t *testing.T) {
	s := snap("calipers", comp("1", 10, 1), comp("2", 20, 2))
	changes := Diff(s, s)
	assert.Empty(t, changes)
	assert.NotNil(t, changes)
}

func TestDiffRepeatedItemIDs(t *testing.T) {
	// the same listing can come back twice in one search
	s := snap("calipers", comp("C1", 50, 3), comp("C1", 55, 4), comp("C2", 20, 1))
	assert.Empty(t, Diff(s, s))

	// the last entry for an id is the one compared
	changes := Diff(s, snap("calipers", comp("C1", 55, 4), comp("C2", 20, 1)))
	assert.Empty(t, changes)

	changes = Diff(snap("calipers", comp("C2", 20, 1)), s)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeNewCompetitor, changes[0].Type)
	assert.Equal(t, 55.0, changes[0].Price)
}

func TestDiffSearchTermMismatch(t *testing.T) {
	baseline := snap("brake pads", comp("1", 50, 1))
	current := snap("rotors", comp("2", 45, 1))

	assert.Empty(t, Diff(baseline, current))

	_, err := DiffStrict(baseline, current)
	assert.True(t, errs.Is(err, errs.DiffMismatch), "expected diff mismatch, got %v", err)

	changes, err := DiffStrict(baseline, snap("brake pads", comp("1", 50, 1)))
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiffZeroBaselinePrice(t *testing.T) {
	changes := Diff(snap("x", comp("1", 0, 1)), snap("x", comp("1", 5, 1)))
	require.Len(t, changes, 1)
	assert.Equal(t, 5.0, changes[0].Change)
	assert.Zero(t, changes[0].ChangePercent)
}

func TestDiffTinyPriceChangeKeepsPercent(t *testing.T) {
	changes := Diff(snap("x", comp("1", 100, 1)), snap("x", comp("1", 100.001, 1)))
	require.Len(t, changes, 1)
	assert.Zero(t, changes[0].ChangePercent)

	data, err := json.Marshal(changes[0])
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "changePercent")
	assert.Contains(t, fields, "change")
	assert.Equal(t, 100.0, fields["oldPrice"])
}

func TestCreateSnapshot(t *testing.T) {
	static := connector.NewStatic(connector.Fixture{})
	static.SetCompetitors("brake pads", []model.CompetitorListing{comp("1", 50, 3), comp("2", 45, 1)})

	registry := platform.NewRegistry(platform.Options{})
	require.NoError(t, registry.AddPlatform("ebay", static))
	engine := NewSnapshotEngine(registry, nil)

	s, err := engine.CreateSnapshot(context.Background(), "ebay", "brake pads")
	require.NoError(t, err)

	assert.Contains(t, s.SnapshotID, "snap_")
	assert.Equal(t, "ebay", s.Platform)
	assert.Equal(t, "brake pads", s.SearchTerm)
	assert.Len(t, s.Competitors, 2)
	assert.False(t, s.Timestamp.IsZero())

	stored, err := engine.Snapshot(s.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, s.SnapshotID, stored.SnapshotID)
	assert.Len(t, engine.Snapshots(), 1)

	_, err = engine.Snapshot("snap_missing")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestCreateSnapshotFailures(t *testing.T) {
	conn := new(mockconnector.Connector)
	conn.On("GetCompetitorListings", mock.Anything, "fail").Return(nil, errors.New("search endpoint down"))
	conn.On("GetCompetitorListings", mock.Anything, "write").Return(nil, connector.RefuseWrite("AddWatch"))

	registry := platform.NewRegistry(platform.Options{})
	require.NoError(t, registry.AddPlatform("ebay", conn))
	engine := NewSnapshotEngine(registry, nil)

	_, err := engine.CreateSnapshot(context.Background(), "ebay", "fail")
	assert.Equal(t, errs.Connection, errs.KindOf(err))

	_, err = engine.CreateSnapshot(context.Background(), "ebay", "write")
	assert.True(t, errs.Is(err, errs.ReadOnlyViolation))

	_, err = engine.CreateSnapshot(context.Background(), "amazon", "fail")
	assert.Equal(t, errs.Configuration, errs.KindOf(err))

	assert.Empty(t, engine.Snapshots())
}

func TestCreateSnapshotBoundedByCallTimeout(t *testing.T) {
	static := connector.NewStatic(connector.Fixture{})
	static.SetCompetitors("brake pads", []model.CompetitorListing{comp("1", 50, 3)})
	static.Delay = time.Second

	registry := platform.NewRegistry(platform.Options{CallTimeout: 20 * time.Millisecond})
	require.NoError(t, registry.AddPlatform("ebay", static))
	engine := NewSnapshotEngine(registry, nil)

	begin := time.Now()
	_, err := engine.CreateSnapshot(context.Background(), "ebay", "brake pads")
	assert.Equal(t, errs.Connection, errs.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), 500*time.Millisecond)
	assert.Empty(t, engine.Snapshots())
}

func TestSaveLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	original := snap("brake pads", comp("1", 50, 3))

	require.NoError(t, SaveSnapshot(path, original))
	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)

	assert.Empty(t, Diff(original, loaded))
	assert.Equal(t, original.SnapshotID, loaded.SnapshotID)

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
