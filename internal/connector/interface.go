package connector

import (
	"context"

	"github.com/guarzo/sellerpulse/internal/model"
)

// Connector is the read surface a marketplace integration exposes to the engine.
// Authentication, request shaping and retry live behind it; a returned error
// means the connector has already given up.
type Connector interface {
	Connect(ctx context.Context) (bool, error)
	GetAccountData(ctx context.Context) (model.AccountInfo, error)
	GetListings(ctx context.Context) ([]model.Listing, error)
	GetListingPerformance(ctx context.Context, itemID string) (model.PerformanceRecord, error)
	GetCompetitorListings(ctx context.Context, searchTerm string) ([]model.CompetitorListing, error)
	Disconnect() error
}

// Ensure Static implements Connector
var _ Connector = (*Static)(nil)
