// Package cache provides named, independently configured cache-aside namespaces.
//
// Each Namespace combines:
//   - LRU ordering bounded by Policy.MaxEntries
//   - fixed expiry from insertion (Policy.TTL)
//   - single-flight loading, so concurrent misses on one key run the loader once
//   - generation-checked stores, so evictions win over loads already in flight
//
// Statistics are always collected. Prometheus export is enabled by passing a
// Metrics instance to the Manager.
//
// Usage:
//
//	manager := cache.NewManager(logger, metrics)
//	byID, err := cache.Register[*domain.Photographer](manager, "byId", cache.DefaultPolicy())
//	p, hit, err := byID.GetOrLoad(ctx, cache.IDKey(id), func(ctx context.Context) (*domain.Photographer, error) {
//		return store.FindByID(ctx, id)
//	})
//
// Time spent in GetOrLoad is recorded as cache time on the request's timing
// tracker, minus any database time the loader recorded itself.
package cache
