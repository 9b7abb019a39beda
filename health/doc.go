// Package health runs readiness checks for the chatquery components.
//
// A Checker reports one component as healthy, degraded or unhealthy. The
// Aggregator runs a set of checkers under a shared deadline and folds them
// into one status:
//
//	agg := health.NewAggregator(health.DefaultTimeout)
//	agg.Register("cache", health.NewCacheChecker(c))
//	agg.Register("store", health.NewPingChecker("store", st))
//	report := agg.Run(ctx)
package health
