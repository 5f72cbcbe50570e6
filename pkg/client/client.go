// Package client provides the retrying HTTP executor for the upstream
// commerce platform API, with optional response caching.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/order-export/pkg/cache"
	"github.com/Sternrassler/order-export/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "export_upstream_requests_total",
		Help: "Total upstream requests by resource and status",
	}, []string{"resource", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "export_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by resource, including retries",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})
)

// maxResponseSize caps how much of a response body is read (32MB).
const maxResponseSize = 32 << 20

// Client executes requests against the platform API.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Host is the platform domain; stores live at https://{subdomain}.{Host}
	Host string

	// APIVersion is the path segment after /api/ (e.g. "v2")
	APIVersion string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout bounds a single attempt
	Timeout time.Duration

	// Retry
	MaxRetries int
	RetryDelay time.Duration

	// Caching (disabled when Redis is nil or CacheTTL <= 0)
	Redis    *redis.Client
	CacheTTL time.Duration

	// ChromeTLS dials upstream with a Chrome TLS fingerprint
	ChromeTLS bool
}

// DefaultConfig returns a default configuration for the given platform host.
func DefaultConfig(host string) Config {
	return Config{
		Host:       host,
		APIVersion: "v2",
		UserAgent:  "order-export/1.0",
		Timeout:    30 * time.Second,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Request describes a single upstream call.
type Request struct {
	Method string
	URL    string

	// Resource labels metrics and logs (orders, order, line_items, shipments)
	Resource string

	// CacheKey enables response caching for GETs when non-zero
	CacheKey cache.CacheKey
}

// Response is a fully-read upstream response.
type Response struct {
	StatusCode int
	Body       []byte
	Cached     bool
}

// New creates a new platform client.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("platform host is required")
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("api version is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "platform-client").Logger()

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.ChromeTLS {
		httpClient.Transport = transport.NewChromeTransport(cfg.Timeout)
	}

	var cacheManager *cache.Manager
	if cfg.Redis != nil && cfg.CacheTTL > 0 {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: httpClient,
		cache:      cacheManager,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Get performs a GET against a store resource path such as "orders" or
// "orders/1001/shipments".
func (c *Client) Get(ctx context.Context, store Store, path string, query url.Values) (*Response, error) {
	if err := store.Validate(); err != nil {
		return nil, err
	}

	req := Request{
		Method:   http.MethodGet,
		URL:      buildURL(store.Origin(c.config.Host), c.config.APIVersion, path, query, store.Token),
		Resource: resourceLabel(path),
	}
	if c.cache != nil {
		req.CacheKey = cache.CacheKey{
			Store:       store.cacheScope(),
			Endpoint:    path,
			QueryParams: query,
		}
	}

	return c.Execute(ctx, req)
}

// Execute performs the request, retrying transport failures and non-2xx
// statuses with a constant delay. After the last attempt it returns a
// *RequestError.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	resource := req.Resource
	if resource == "" {
		resource = "unknown"
	}
	safeURL := redactURL(req.URL)
	logger := c.logger.With().Str("resource", resource).Str("url", safeURL).Logger()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	useCache := c.cache != nil && req.Method == http.MethodGet && req.CacheKey.Endpoint != ""
	if useCache {
		entry, err := c.cache.Get(ctx, req.CacheKey)
		switch {
		case err == nil:
			logger.Debug().Dur("age", entry.Age()).Msg("Serving upstream response from cache")
			requestsTotal.WithLabelValues(resource, "cached").Inc()
			return &Response{StatusCode: entry.StatusCode, Body: entry.Data, Cached: true}, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	var result *Response
	retryCfg := RetryConfig{MaxRetries: c.config.MaxRetries, Delay: c.config.RetryDelay}

	err := retryWithDelay(ctx, retryCfg, logger, func(attempt int) error {
		logger.Debug().Int("attempt", attempt).Str("method", req.Method).Msg("Executing upstream request")

		resp, err := c.attempt(ctx, req)
		if err != nil {
			requestsTotal.WithLabelValues(resource, "network_error").Inc()
			return &RequestError{
				Method:     req.Method,
				URL:        safeURL,
				ErrorClass: ErrorClassNetwork,
				Attempts:   attempt,
				Err:        err,
			}
		}

		requestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &RequestError{
				Method:     req.Method,
				URL:        safeURL,
				StatusCode: resp.StatusCode,
				Status:     statusText(resp),
				ErrorClass: classifyStatus(resp.StatusCode),
				Attempts:   attempt,
			}
		}

		result = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		entry := cache.NewEntry(result.Body, result.StatusCode, c.config.CacheTTL)
		if err := c.cache.Set(ctx, req.CacheKey, entry); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return result, nil
}

// attempt performs one HTTP round trip and reads the body.
func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactURL(urlErr.URL)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// statusText returns "404 Not Found" plus a short body excerpt when present.
func statusText(resp *Response) string {
	text := fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	excerpt := strings.TrimSpace(string(resp.Body))
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}
	if excerpt != "" {
		text += ": " + excerpt
	}
	return text
}

// resourceLabel maps a resource path to a low-cardinality metric label:
// "orders" -> orders, "orders/17" -> order, "orders/17/shipments" -> shipments.
func resourceLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "unknown"
	}
	segments := strings.Split(trimmed, "/")
	if len(segments) == 2 {
		return strings.TrimSuffix(segments[0], "s")
	}
	return segments[len(segments)-1]
}

// Purge drops every cached response for store. It is a no-op when caching
// is disabled.
func (c *Client) Purge(ctx context.Context, store Store) error {
	if c.cache == nil {
		return nil
	}
	n, err := c.cache.PurgeStore(ctx, store.cacheScope())
	if err != nil {
		return fmt.Errorf("purge cache for %s: %w", store.Key, err)
	}
	c.logger.Debug().Str("store", store.Key).Int("keys", n).Msg("Purged cached responses")
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
