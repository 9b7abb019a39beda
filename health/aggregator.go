package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds one Run.
const DefaultTimeout = 5 * time.Second

// Aggregator runs the cache and store checks side by side under a single
// deadline and folds them into a Report.
//
// Contract:
//   - Concurrency: Register and Run are safe for concurrent use.
//   - Context: every check shares one deadline derived from the caller's ctx.
type Aggregator struct {
	timeout  time.Duration
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewAggregator creates an Aggregator whose runs give up after timeout.
// A non-positive timeout means DefaultTimeout.
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{timeout: timeout, checkers: make(map[string]Checker)}
}

// Register adds checker under name, replacing any previous one.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	a.checkers[name] = checker
	a.mu.Unlock()
}

// Report is the JSON document the health command prints.
type Report struct {
	Status Status            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

// Run executes every registered check and reports the worst status.
// With nothing registered the report is healthy and empty.
func (a *Aggregator) Run(ctx context.Context) Report {
	a.mu.RLock()
	checkers := make(map[string]Checker, len(a.checkers))
	for name, c := range a.checkers {
		checkers[name] = c
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	checks := make(map[string]Result, len(checkers))
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for name, c := range checkers {
		g.Go(func() error {
			r := runCheck(ctx, c)
			mu.Lock()
			checks[name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: Worst(checks), Checks: checks}
}

// Worst returns the most severe status in results, StatusHealthy when empty.
func Worst(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		worst = max(worst, r.Status)
	}
	return worst
}

// runCheck stamps the check's duration. A checker still running when ctx
// ends is left behind and reported unhealthy with ErrCheckTimeout.
func runCheck(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- c.Check(ctx) }()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	r.Duration = time.Since(start)
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}
