// Package resilience guards calls to the record store.
//
// It provides a circuit breaker, retry with backoff and a per-attempt
// timeout, composed by an Executor:
//
//	exec := resilience.NewExecutorFromConfig(resilience.Config{
//	    Timeout:         5 * time.Second,
//	    MaxAttempts:     3,
//	    BreakerFailures: 5,
//	    BreakerReset:    30 * time.Second,
//	})
//
//	res, err := resilience.Do(ctx, exec, func(ctx context.Context) (store.FetchResult, error) {
//	    return records.Fetch(ctx, req)
//	})
//
// Errors that retrying cannot fix, such as a rejected filter, should be
// wrapped with Permanent so they neither retry nor trip the breaker.
package resilience
