package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a cached upstream response.
type CacheKey struct {
	// Store is the store subdomain the response belongs to
	Store string

	// Endpoint is the resource path relative to the API root (e.g. "orders/1001")
	Endpoint string

	// QueryParams are the request query parameters
	QueryParams url.Values
}

// excludedParams never take part in a key.
var excludedParams = map[string]bool{
	"token": true,
}

// String generates a deterministic cache key string.
// Format: export:store:endpoint:query1=val1:query2=val2
//
// Example:
//
//	export:acme:orders:page=1:per_page=100:status=shipped
func (k CacheKey) String() string {
	parts := []string{"export"}

	if k.Store != "" {
		parts = append(parts, k.Store)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			if excludedParams[key] {
				continue
			}
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
