// Package cache provides an optional Redis-backed cache for upstream
// platform responses.
//
// Export runs against the same store and date range tend to repeat within
// minutes (a user re-downloading the CSV after checking the table). The cache
// keeps successful GET bodies for a short, fixed TTL so those repeats do not
// walk every order's detail, line item and shipment endpoints again.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Store:       "acme",
//		Endpoint:    "orders/1001/shipments",
//		QueryParams: url.Values{"page": []string{"1"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from upstream, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(body, 200, 5*time.Minute))
//	}
//
// Store tokens never become part of a key; see CacheKey.String.
//
// # Purging
//
// Set records each key in a per-store index set. PurgeStore drops every
// response cached for one store, which is how a refreshed export bypasses
// earlier results:
//
//	n, err := manager.PurgeStore(ctx, "acme")
//
// # Metrics
//
//   - export_cache_hits_total{layer="redis"} - Cache hits
//   - export_cache_misses_total - Cache misses
//   - export_cache_size_bytes{layer="redis"} - Bytes written to the cache
//   - export_cache_errors_total{operation} - Cache operation errors
package cache
