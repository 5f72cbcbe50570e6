// Package enrich loads the full detail, line items and shipments for each
// order of a list snapshot using a bounded worker pool.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/order-export/pkg/client"
	"github.com/Sternrassler/order-export/pkg/pagination"
	"github.com/Sternrassler/order-export/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	enrichFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "export_enrichment_failures_total",
		Help: "Total orders whose enrichment failed",
	})

	enrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "export_enrichment_order_duration_seconds",
		Help:    "Time to enrich a single order (detail, line items, shipments)",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
)

// ErrMissingOrderID is recorded for snapshot entries without an id.
var ErrMissingOrderID = errors.New("order has no id")

// OrderIDKeys are the aliases holding an order's id.
var OrderIDKeys = []string{"order_id", "id"}

// DetailKeys are the envelope keys a single-order response may wrap the order in.
var DetailKeys = []string{"order", "data"}

// DefaultConcurrency is the number of orders enriched at once.
const DefaultConcurrency = 5

// Getter performs a single upstream GET. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, store client.Store, path string, query url.Values) (*client.Response, error)
}

// Lister walks a paginated collection. *pagination.Fetcher implements it.
type Lister interface {
	FetchAll(ctx context.Context, store client.Store, path string, params url.Values) ([]record.Record, error)
}

// Result is the enrichment outcome for one snapshot order.
// When Err is set, Order holds the unmerged snapshot.
type Result struct {
	Index     int
	OrderID   string
	Order     record.Record
	LineItems []record.Record
	Shipments []record.Record

	// Partial lists non-fatal pagination errors (line items or shipments
	// truncated by an upstream failure).
	Partial []error

	Err error
}

// Enricher runs the per-order enrichment pool.
type Enricher struct {
	getter      Getter
	lister      Lister
	concurrency int
	logger      zerolog.Logger
}

// New creates an Enricher. concurrency <= 0 uses DefaultConcurrency.
func New(getter Getter, lister Lister, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Enricher{
		getter:      getter,
		lister:      lister,
		concurrency: concurrency,
		logger:      log.With().Str("component", "enrich").Logger(),
	}
}

// Enrich returns one Result per input order, in input order. A failure for
// one order is recorded in its Result and never aborts the others.
func (e *Enricher) Enrich(ctx context.Context, store client.Store, orders []record.Record) []Result {
	results := make([]Result, len(orders))
	if len(orders) == 0 {
		return results
	}

	start := time.Now()
	workers := e.concurrency
	if workers > len(orders) {
		workers = len(orders)
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processed := 0
			for {
				i := int(next.Add(1) - 1)
				if i >= len(orders) {
					break
				}
				results[i] = e.enrichOne(ctx, store, i, orders[i])
				processed++
			}
			e.logger.Debug().
				Int("worker_id", workerID).
				Int("orders_processed", processed).
				Msg("Worker completed")
		}(w)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Info().
		Str("store", store.Key).
		Int("orders", len(orders)).
		Int("failed", failed).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Enrichment complete")

	return results
}

// enrichOne loads detail, line items and shipments concurrently.
func (e *Enricher) enrichOne(ctx context.Context, store client.Store, index int, snapshot record.Record) Result {
	start := time.Now()
	defer func() {
		enrichDuration.Observe(time.Since(start).Seconds())
	}()

	result := Result{Index: index, Order: snapshot}

	orderID, ok := record.Lookup(snapshot, OrderIDKeys...).Get()
	if !ok {
		enrichFailuresTotal.Inc()
		result.Err = ErrMissingOrderID
		e.logger.Warn().Int("index", index).Msg("Skipping order without id")
		return result
	}
	result.OrderID = orderID
	logger := e.logger.With().Str("store", store.Key).Str("order_id", orderID).Logger()

	base := "orders/" + url.PathEscape(orderID)

	var (
		detail    record.Record
		lineItems []record.Record
		shipments []record.Record
		itemsErr  error
		shipErr   error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = e.fetchDetail(gCtx, store, base)
		return err
	})
	g.Go(func() error {
		lineItems, itemsErr = e.lister.FetchAll(gCtx, store, base+"/line_items", nil)
		return nil
	})
	g.Go(func() error {
		shipments, shipErr = e.lister.FetchAll(gCtx, store, base+"/shipments", nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		enrichFailuresTotal.Inc()
		logger.Warn().Err(err).Msg("Order enrichment failed")
		result.Err = fmt.Errorf("enrich order %s: %w", orderID, err)
		return result
	}

	for _, err := range []error{itemsErr, shipErr} {
		if err != nil {
			logger.Warn().Err(err).Msg("Using partial enrichment data")
			result.Partial = append(result.Partial, err)
		}
	}

	result.Order = record.Merge(snapshot, detail)
	result.LineItems = lineItems
	result.Shipments = shipments

	logger.Debug().
		Int("line_items", len(lineItems)).
		Int("shipments", len(shipments)).
		Msg("Order enriched")

	return result
}

// fetchDetail loads the full order, unwrapping {"order": {...}} envelopes.
func (e *Enricher) fetchDetail(ctx context.Context, store client.Store, path string) (record.Record, error) {
	resp, err := e.getter.Get(ctx, store, path, nil)
	if err != nil {
		return nil, err
	}

	body, err := record.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("order detail: %w", err)
	}

	obj, ok := record.AsRecord(body)
	if !ok {
		return nil, fmt.Errorf("order detail: expected object, got %T", body)
	}
	if inner, ok := record.LookupRecord(obj, DetailKeys...); ok {
		return inner, nil
	}
	return obj, nil
}

var _ Lister = (*pagination.Fetcher)(nil)
var _ Getter = (*client.Client)(nil)
