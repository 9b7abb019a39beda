package cli

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/chatquery/access"
	"github.com/jonwraymond/chatquery/cache"
	"github.com/jonwraymond/chatquery/config"
	"github.com/jonwraymond/chatquery/health"
	"github.com/jonwraymond/chatquery/observe"
	"github.com/jonwraymond/chatquery/query"
	"github.com/jonwraymond/chatquery/resilience"
	"github.com/jonwraymond/chatquery/store"
)

// app is one process worth of wired components.
type app struct {
	cfg      config.Config
	observer observe.Observer
	gauges   metric.Registration
	cache    *cache.HotColdCache
	store    store.Store
	service  *query.Service
}

// newApp wires telemetry, the cache, the record store and the query service
// from cfg. The caller must Close the result.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a := &app{cfg: cfg, observer: obs}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("observe: %w", err)
	}

	cacheCfg := cfg.CacheConfig()
	cacheCfg.Logger = obs.Logger()
	if a.cache, err = cache.New(cacheCfg); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("cache: %w", err)
	}

	a.gauges, err = observe.RegisterCacheGauges(obs.Meter(), func() (int, int) {
		s := a.cache.Stats()
		return s.HotCount, s.ColdCount
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("observe: %w", err)
	}

	if a.store, err = store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.service, err = query.New(query.Options{
		Cache:      a.cache,
		Store:      a.store,
		Authorizer: access.NewScopeAuthorizer(cfg.Superusers...),
		Executor:   resilience.NewExecutorFromConfig(cfg.ResilienceConfig()),
		Middleware: mw,
		Location:   loc,
		FetchLimit: cfg.Cache.MaxMessagesPerEntry,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// healthReport checks the cache and the record store.
func (a *app) healthReport(ctx context.Context) health.Report {
	agg := health.NewAggregator(health.DefaultTimeout)
	agg.Register("cache", health.NewCacheChecker(a.cache))
	agg.Register("store", health.NewPingChecker("store", a.store))
	return agg.Run(ctx)
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	if a.gauges != nil {
		if err := a.gauges.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("gauges unregister: %w", err))
		}
	}
	if a.observer != nil {
		if err := a.observer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
