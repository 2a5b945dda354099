package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/errs"
)

func TestAddPlatformValidation(t *testing.T) {
	r := NewRegistry(Options{})

	if err := r.AddPlatform("", connector.NewStatic(connector.Fixture{})); !errs.Is(err, errs.Configuration) {
		t.Errorf("expected configuration error for empty name, got %v", err)
	}
	if err := r.AddPlatform("ebay", nil); !errs.Is(err, errs.Configuration) {
		t.Errorf("expected configuration error for nil connector, got %v", err)
	}
	if err := r.AddPlatform("ebay", connector.NewStatic(connector.Fixture{})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.IsConnected("ebay") {
		t.Error("new platforms start disconnected")
	}
}

func TestConnect(t *testing.T) {
	r := NewRegistry(Options{})
	ctx := context.Background()

	if _, err := r.Connect(ctx, "amazon"); !errs.Is(err, errs.Configuration) {
		t.Errorf("expected configuration error for unknown platform, got %v", err)
	}

	ebay := connector.NewStatic(connector.Fixture{})
	walmart := connector.NewStatic(connector.Fixture{})
	walmart.RefuseConnect = true
	_ = r.AddPlatform("ebay", ebay)
	_ = r.AddPlatform("walmart", walmart)

	for i := 0; i < 2; i++ {
		ok, err := r.Connect(ctx, "ebay")
		if err != nil || !ok {
			t.Fatalf("connect attempt %d: expected success, got %v %v", i, ok, err)
		}
	}
	if !r.IsConnected("ebay") {
		t.Error("expected ebay to be connected")
	}

	ok, err := r.Connect(ctx, "walmart")
	if err != nil || ok {
		t.Errorf("expected refused connect to return false without error, got %v %v", ok, err)
	}
	if r.IsConnected("walmart") {
		t.Error("expected walmart to stay disconnected")
	}

	names := r.ListPlatforms()
	if len(names) != 2 || names[0] != "ebay" || names[1] != "walmart" {
		t.Errorf("expected registration order, got %v", names)
	}
}

type flakyConnector struct {
	*connector.Static
	calls int
}

func (f *flakyConnector) Connect(ctx context.Context) (bool, error) {
	f.calls++
	return false, errors.New("oauth token rejected")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	r := NewRegistry(Options{BreakerFailures: 2, BreakerTimeout: time.Hour})
	flaky := &flakyConnector{Static: connector.NewStatic(connector.Fixture{})}
	_ = r.AddPlatform("channeladvisor", flaky)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := r.Connect(ctx, "channeladvisor"); !errs.Is(err, errs.Connection) {
			t.Fatalf("attempt %d: expected connection error, got %v", i, err)
		}
	}

	_, err := r.Connect(ctx, "channeladvisor")
	if !errs.Is(err, errs.Connection) {
		t.Fatalf("expected connection error from open breaker, got %v", err)
	}
	if flaky.calls != 2 {
		t.Errorf("expected open breaker to skip the connector, got %d calls", flaky.calls)
	}
}

func TestConnectBoundedByCallTimeout(t *testing.T) {
	r := NewRegistry(Options{CallTimeout: 20 * time.Millisecond})
	slow := connector.NewStatic(connector.Fixture{})
	slow.Delay = time.Second
	_ = r.AddPlatform("ebay", slow)

	begin := time.Now()
	_, err := r.Connect(context.Background(), "ebay")
	if !errs.Is(err, errs.Connection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(begin); elapsed > 500*time.Millisecond {
		t.Errorf("connect took %v", elapsed)
	}
	if r.IsConnected("ebay") {
		t.Error("timed out connect must not mark the platform connected")
	}
}

func TestClose(t *testing.T) {
	r := NewRegistry(Options{})
	ebay := connector.NewStatic(connector.Fixture{})
	_ = r.AddPlatform("ebay", ebay)
	_, _ = r.Connect(context.Background(), "ebay")

	if err := r.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ebay.Connected() {
		t.Error("expected connector to be disconnected")
	}
	if len(r.ListPlatforms()) != 0 {
		t.Error("expected registry to be empty after close")
	}
}
