package concurrent

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result is the outcome of fetching one key
type Result[T any] struct {
	Key     string
	Value   T
	Err     error
	Latency time.Duration
}

// FetchFunc fetches the value for a single key
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// Fetcher fans calls out over a bounded set of workers
type Fetcher struct {
	workers   int
	rateLimit *rate.Limiter
	timeout   time.Duration
	metrics   *FetchMetrics
}

// FetcherConfig holds configuration for the concurrent fetcher
type FetcherConfig struct {
	Workers   int           // Number of concurrent workers
	RateLimit rate.Limit    // Calls per second, 0 means unlimited
	Burst     int           // Limiter bucket size, defaults to Workers
	Timeout   time.Duration // Timeout per call
}

// FetchMetrics tracks call outcomes across every FetchAll on a Fetcher
type FetchMetrics struct {
	TotalRequests  int
	SuccessfulReqs int
	FailedRequests int
	TotalLatency   time.Duration
	mu             sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of FetchMetrics
type MetricsSnapshot struct {
	TotalRequests  int
	SuccessfulReqs int
	FailedRequests int
	AverageLatency time.Duration
}

// NewFetcher creates a new bounded fetcher
func NewFetcher(config FetcherConfig) *Fetcher {
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 10 {
			workers = 10 // Cap at 10 to be respectful to APIs
		}
	}

	limit := config.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}

	burst := config.Burst
	if burst <= 0 {
		burst = workers
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		workers:   workers,
		rateLimit: rate.NewLimiter(limit, burst),
		timeout:   timeout,
		metrics:   &FetchMetrics{},
	}
}

// Workers returns the concurrency cap
func (f *Fetcher) Workers() int {
	return f.workers
}

// FetchAll calls fn once per key with at most Workers calls in flight. Every key
// yields exactly one Result; a failing call never affects its siblings. Results
// arrive in completion order.
func FetchAll[T any](ctx context.Context, f *Fetcher, keys []string, fn FetchFunc[T]) []Result[T] {
	if len(keys) == 0 {
		return nil
	}

	jobs := make(chan string, len(keys))
	for _, key := range keys {
		jobs <- key
	}
	close(jobs)

	results := make(chan Result[T], len(keys))

	workers := f.workers
	if workers > len(keys) {
		workers = len(keys)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				result := fetchOne(ctx, f, key, fn)
				f.updateMetrics(result.Err, result.Latency)
				results <- result
			}
		}()
	}

	wg.Wait()
	close(results)

	all := make([]Result[T], 0, len(keys))
	for result := range results {
		all = append(all, result)
	}
	return all
}

// fetchOne runs a single call under the rate limiter and per-call timeout
func fetchOne[T any](ctx context.Context, f *Fetcher, key string, fn FetchFunc[T]) (result Result[T]) {
	result.Key = key

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	if err := f.rateLimit.Wait(ctx); err != nil {
		result.Err = fmt.Errorf("rate limiter: %w", err)
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		result.Latency = time.Since(start)
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("fetch %s panicked: %v", key, r)
		}
	}()

	result.Value, result.Err = fn(callCtx, key)
	if result.Err == nil && callCtx.Err() != nil {
		// The call returned after its deadline; treat it like a connector error.
		result.Err = callCtx.Err()
	}
	return result
}

// GetMetrics returns current performance metrics
func (f *Fetcher) GetMetrics() MetricsSnapshot {
	f.metrics.mu.RLock()
	defer f.metrics.mu.RUnlock()

	snapshot := MetricsSnapshot{
		TotalRequests:  f.metrics.TotalRequests,
		SuccessfulReqs: f.metrics.SuccessfulReqs,
		FailedRequests: f.metrics.FailedRequests,
	}
	if f.metrics.TotalRequests > 0 {
		snapshot.AverageLatency = f.metrics.TotalLatency / time.Duration(f.metrics.TotalRequests)
	}
	return snapshot
}

// updateMetrics updates performance metrics
func (f *Fetcher) updateMetrics(err error, latency time.Duration) {
	f.metrics.mu.Lock()
	defer f.metrics.mu.Unlock()

	f.metrics.TotalRequests++
	f.metrics.TotalLatency += latency
	if err != nil {
		f.metrics.FailedRequests++
	} else {
		f.metrics.SuccessfulReqs++
	}
}
