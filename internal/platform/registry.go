package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/errs"
	"github.com/guarzo/sellerpulse/internal/logging"
	"github.com/guarzo/sellerpulse/internal/metrics"
)

// Options configures the per-platform circuit breaker and call bound.
type Options struct {
	// CallTimeout bounds every call made through Execute, Connect included.
	// Zero leaves calls bounded only by the caller's context.
	CallTimeout time.Duration
	// BreakerFailures is the number of consecutive connector failures that opens
	// the breaker. Zero disables tripping.
	BreakerFailures uint32
	// BreakerTimeout is how long an open breaker waits before probing again.
	BreakerTimeout time.Duration
}

type entry struct {
	name      string
	conn      connector.Connector
	connected bool
	breaker   *gobreaker.CircuitBreaker[any]
}

// Registry holds the named connectors and their connection state.
type Registry struct {
	opts    Options
	entries map[string]*entry
	order   []string
	mu      sync.RWMutex
	log     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}
	return &Registry{
		opts:    opts,
		entries: make(map[string]*entry),
		log:     logging.Component("platform"),
	}
}

// AddPlatform registers conn under name with connection state false.
// Re-registering a name replaces its connector.
func (r *Registry) AddPlatform(name string, conn connector.Connector) error {
	if name == "" {
		return errs.New(errs.Configuration, "addPlatform", "platform name is required")
	}
	if conn == nil {
		return errs.New(errs.Configuration, "addPlatform", "connector is required for platform %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = &entry{
		name:    name,
		conn:    conn,
		breaker: r.newBreaker(name),
	}
	return nil
}

func (r *Registry) newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	failures := r.opts.BreakerFailures
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    name,
		Timeout: r.opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		// A caller abandoning the call says nothing about the platform.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn().
				Str("platform", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("connector circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (r *Registry) lookup(op, name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, errs.New(errs.Configuration, op, "platform %s not found", name)
	}
	return e, nil
}

// Connect invokes the connector's connect and records the outcome. Safe to
// call repeatedly.
func (r *Registry) Connect(ctx context.Context, name string) (bool, error) {
	e, err := r.lookup("connect", name)
	if err != nil {
		return false, err
	}

	connected, err := Execute(ctx, r, name, e.conn.Connect)

	r.mu.Lock()
	e.connected = err == nil && connected
	r.mu.Unlock()

	if err != nil {
		return false, errs.Wrap(errs.Connection, "connect "+name, err)
	}
	return connected, nil
}

// IsConnected reports the last recorded connection state. Unknown names are
// not connected.
func (r *Registry) IsConnected(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return ok && e.connected
}

// ListPlatforms returns platform names in registration order.
func (r *Registry) ListPlatforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Connector returns the connector registered under name.
func (r *Registry) Connector(name string) (connector.Connector, error) {
	e, err := r.lookup("connector", name)
	if err != nil {
		return nil, err
	}
	return e.conn, nil
}

// Execute runs a batch-level connector call for platform name through its
// circuit breaker, bounded by the registry's call timeout. An open breaker is
// reported as a connection error without calling fn. Per-item calls must not
// go through Execute.
func Execute[T any](ctx context.Context, r *Registry, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	e, err := r.lookup("execute", name)
	if err != nil {
		return zero, err
	}

	if r.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
	}

	result, err := e.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, errs.Wrap(errs.Connection, "circuit breaker "+name, err)
		}
		return zero, err
	}

	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, errs.New(errs.Connection, "execute "+name, "unexpected result type %T", result)
	}
	return typed, nil
}

// Close disconnects every connector and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errList []error
	for _, name := range r.order {
		if err := r.entries[name].conn.Disconnect(); err != nil {
			errList = append(errList, errs.Wrap(errs.Connection, "disconnect "+name, err))
		}
	}

	r.entries = make(map[string]*entry)
	r.order = nil
	return errors.Join(errList...)
}
