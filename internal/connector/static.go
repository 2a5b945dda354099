package connector

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/guarzo/sellerpulse/internal/model"
)

// Fixture is the on-disk shape a Static connector can be loaded from.
type Fixture struct {
	Account     model.AccountInfo                    `json:"account"`
	Listings    []model.Listing                      `json:"listings"`
	Performance map[string]model.PerformanceRecord   `json:"performance"`
	Competitors map[string][]model.CompetitorListing `json:"competitors"`
}

// Static serves fixed data from memory. It backs the CLI demo mode and tests
// that need a well-behaved connector; failures can be injected per item.
type Static struct {
	fixture Fixture

	// Delay is applied to every call to simulate network latency.
	Delay time.Duration
	// RefuseConnect makes Connect report false.
	RefuseConnect bool
	// ListingsErr is returned from GetListings when set.
	ListingsErr error

	mu        sync.RWMutex
	failItems map[string]error
	connected bool

	calls atomic.Int64
}

// NewStatic creates a connector serving the given fixture.
func NewStatic(f Fixture) *Static {
	if f.Performance == nil {
		f.Performance = make(map[string]model.PerformanceRecord)
	}
	if f.Competitors == nil {
		f.Competitors = make(map[string][]model.CompetitorListing)
	}
	return &Static{
		fixture:   f,
		failItems: make(map[string]error),
	}
}

// LoadFixture reads a JSON fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("reading fixture: %w", err)
	}

	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parsing fixture: %w", err)
	}
	return f, nil
}

// FailItem makes GetListingPerformance fail for itemID.
func (s *Static) FailItem(itemID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failItems[itemID] = err
}

// SetCompetitors replaces the competitor listings served for searchTerm.
func (s *Static) SetCompetitors(searchTerm string, competitors []model.CompetitorListing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Competitors[searchTerm] = competitors
}

// Calls returns how many connector methods have been invoked.
func (s *Static) Calls() int64 {
	return s.calls.Load()
}

// Connected reports whether Connect succeeded and Disconnect has not been called.
func (s *Static) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Static) wait(ctx context.Context) error {
	s.calls.Add(1)
	if s.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Static) Connect(ctx context.Context) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = !s.RefuseConnect
	return s.connected, nil
}

func (s *Static) GetAccountData(ctx context.Context) (model.AccountInfo, error) {
	if err := s.wait(ctx); err != nil {
		return model.AccountInfo{}, err
	}
	return s.fixture.Account, nil
}

func (s *Static) GetListings(ctx context.Context) ([]model.Listing, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.ListingsErr != nil {
		return nil, s.ListingsErr
	}
	listings := make([]model.Listing, len(s.fixture.Listings))
	copy(listings, s.fixture.Listings)
	return listings, nil
}

func (s *Static) GetListingPerformance(ctx context.Context, itemID string) (model.PerformanceRecord, error) {
	if err := s.wait(ctx); err != nil {
		return model.PerformanceRecord{}, err
	}

	s.mu.RLock()
	failErr := s.failItems[itemID]
	s.mu.RUnlock()
	if failErr != nil {
		return model.PerformanceRecord{}, failErr
	}

	perf, ok := s.fixture.Performance[itemID]
	if !ok {
		return model.PerformanceRecord{}, fmt.Errorf("no performance data for item %s", itemID)
	}
	return perf, nil
}

func (s *Static) GetCompetitorListings(ctx context.Context, searchTerm string) ([]model.CompetitorListing, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	competitors := make([]model.CompetitorListing, len(s.fixture.Competitors[searchTerm]))
	copy(competitors, s.fixture.Competitors[searchTerm])
	return competitors, nil
}

func (s *Static) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// ReviseListing is the write a full marketplace client would expose. Static is
// read-only like every connector the engine talks to.
func (s *Static) ReviseListing(ctx context.Context, itemID string, fields map[string]interface{}) error {
	return RefuseWrite("ReviseListing")
}
