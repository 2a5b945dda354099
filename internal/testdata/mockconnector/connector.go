package mockconnector

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/model"
)

type Connector struct {
	mock.Mock
}

// Interface compliance check
var _ connector.Connector = &Connector{}

func (m *Connector) Connect(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *Connector) GetAccountData(ctx context.Context) (model.AccountInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.AccountInfo), args.Error(1)
}

func (m *Connector) GetListings(ctx context.Context) ([]model.Listing, error) {
	args := m.Called(ctx)
	// Return type casting requires caution; a nil first value means no listings
	listings, _ := args.Get(0).([]model.Listing)
	return listings, args.Error(1)
}

func (m *Connector) GetListingPerformance(ctx context.Context, itemID string) (model.PerformanceRecord, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(model.PerformanceRecord), args.Error(1)
}

func (m *Connector) GetCompetitorListings(ctx context.Context, searchTerm string) ([]model.CompetitorListing, error) {
	args := m.Called(ctx, searchTerm)
	competitors, _ := args.Get(0).([]model.CompetitorListing)
	return competitors, args.Error(1)
}

func (m *Connector) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}
