package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/order-export/pkg/client"
	"github.com/Sternrassler/order-export/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "export_pages_fetched_total",
	Help: "Total collection pages fetched by resource path",
}, []string{"resource"})

// ErrPartial marks a walk that stopped on a failed request. Items returned
// alongside it are valid.
var ErrPartial = errors.New("pagination stopped early")

// Getter is the single-request capability the fetcher needs.
// *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, store client.Store, path string, query url.Values) (*client.Response, error)
}

// Config holds fetcher configuration.
type Config struct {
	// PageSize is sent as per_page and is the short-page threshold
	PageSize int

	// MaxPages stops walks on upstreams that ignore per_page
	MaxPages int
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: 100,
		MaxPages: 1000,
	}
}

// Fetcher walks paginated collection endpoints.
type Fetcher struct {
	getter Getter
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher. Non-positive settings fall back to defaults.
func NewFetcher(getter Getter, config Config) *Fetcher {
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.MaxPages <= 0 {
		config.MaxPages = defaults.MaxPages
	}

	return &Fetcher{
		getter: getter,
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// PageSize returns the configured per_page value.
func (f *Fetcher) PageSize() int {
	return f.config.PageSize
}

// FetchAll requests every page of path and returns the accumulated records.
// On a failed request it returns what was collected so far together with an
// error wrapping ErrPartial and the underlying request error.
func (f *Fetcher) FetchAll(ctx context.Context, store client.Store, path string, params url.Values) ([]record.Record, error) {
	start := time.Now()
	logger := f.logger.With().Str("store", store.Key).Str("path", path).Logger()

	var all []record.Record
	for page := 1; page <= f.config.MaxPages; page++ {
		query := url.Values{}
		for k, v := range params {
			query[k] = v
		}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(f.config.PageSize))

		resp, err := f.getter.Get(ctx, store, path, query)
		if err != nil {
			logger.Warn().
				Err(err).
				Int("page", page).
				Int("items", len(all)).
				Msg("Page fetch failed - returning partial results")
			return all, fmt.Errorf("%w at page %d of %s: %w", ErrPartial, page, path, err)
		}
		pagesFetchedTotal.WithLabelValues(resourceName(path)).Inc()

		body, err := record.Decode(resp.Body)
		if err != nil {
			logger.Warn().Err(err).Int("page", page).Msg("Undecodable page - returning partial results")
			return all, fmt.Errorf("%w at page %d of %s: %w", ErrPartial, page, path, err)
		}

		list, ok := itemList(body)
		if !ok || len(list) == 0 {
			logger.Debug().Int("page", page).Msg("Empty page - stopping")
			break
		}
		all = append(all, record.Records(list)...)

		logger.Debug().
			Int("page", page).
			Int("page_items", len(list)).
			Int("total", len(all)).
			Msg("Fetched page")

		if len(list) < f.config.PageSize {
			break
		}
		if page == f.config.MaxPages {
			logger.Warn().Int("max_pages", f.config.MaxPages).Msg("Page cap reached")
		}
	}

	logger.Debug().
		Int("items", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return all, nil
}

// resourceName keeps the metric label free of order ids.
func resourceName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
