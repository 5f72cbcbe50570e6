// Package report assembles export rows and runs complete export requests:
// list orders, enrich them, reconcile fields and emit the fixed schema.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/order-export/pkg/client"
	"github.com/Sternrassler/order-export/pkg/enrich"
	"github.com/Sternrassler/order-export/pkg/pagination"
	"github.com/Sternrassler/order-export/pkg/record"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for export runs.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "export_runs_total",
		Help: "Total export runs by report mode and outcome",
	}, []string{"report_type", "outcome"})

	rowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "export_rows_total",
		Help: "Total rows produced by export runs",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "export_run_duration_seconds",
		Help:    "Export run duration in seconds by report mode",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"report_type"})
)

// Run outcomes used as metric labels.
const (
	outcomeSuccess = "success"
	outcomePartial = "partial"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// OrdersPath is the order collection resource.
const OrdersPath = "orders"

// StoreResolver maps a store key to credentials. config.Stores implements it.
type StoreResolver interface {
	Lookup(key string) (client.Store, error)
}

// OrderEnricher loads detail, line items and shipments per order.
// *enrich.Enricher implements it.
type OrderEnricher interface {
	Enrich(ctx context.Context, store client.Store, orders []record.Record) []enrich.Result
}

// CachePurger drops cached upstream responses for a store. *client.Client
// implements it.
type CachePurger interface {
	Purge(ctx context.Context, store client.Store) error
}

// Request is a single export request.
type Request struct {
	StoreKey       string `json:"storeKey"`
	ReportType     string `json:"reportType"`
	DateFilterType string `json:"dateFilterType"`
	Status         string `json:"status"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Debug          bool   `json:"debug,omitempty"`

	// Refresh drops the store's cached upstream responses before fetching.
	Refresh bool `json:"refresh,omitempty"`
}

// Result is the tabular export output.
type Result struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Meta    Meta     `json:"meta"`
}

// Meta summarizes a run.
type Meta struct {
	Orders int    `json:"orders"`
	Rows   int    `json:"rows"`
	Debug  *Debug `json:"debug,omitempty"`
}

// Debug carries run diagnostics, returned when the request asks for them.
type Debug struct {
	RunID        string            `json:"runId"`
	Mode         Mode              `json:"mode"`
	Query        map[string]string `json:"query"`
	DurationMS   int64             `json:"durationMs"`
	FailedOrders []OrderFailure    `json:"failedOrders,omitempty"`
	Partial      []string          `json:"partial,omitempty"`
}

// OrderFailure is an order left out of the rows because enrichment failed.
type OrderFailure struct {
	Index   int    `json:"index"`
	OrderID string `json:"orderId,omitempty"`
	Error   string `json:"error"`
}

// Exporter runs export requests end to end.
type Exporter struct {
	stores    StoreResolver
	lister    enrich.Lister
	enricher  OrderEnricher
	assembler *Assembler
	purger    CachePurger
	logger    zerolog.Logger
}

// NewExporter wires an exporter from its collaborators.
func NewExporter(stores StoreResolver, lister enrich.Lister, enricher OrderEnricher, assembler *Assembler) *Exporter {
	return &Exporter{
		stores:    stores,
		lister:    lister,
		enricher:  enricher,
		assembler: assembler,
		logger:    log.With().Str("component", "exporter").Logger(),
	}
}

// SetCachePurger enables Request.Refresh. Without a purger the flag is
// ignored.
func (e *Exporter) SetCachePurger(p CachePurger) {
	e.purger = p
}

// Run executes one export. Store and request validation failures return
// *config.ConfigurationError or *ValidationError. Upstream failures never
// fail the run: they shrink the result and are listed in the debug meta.
func (e *Exporter) Run(ctx context.Context, req Request) (result *Result, err error) {
	start := time.Now()
	mode := ModeFor(req.ReportType)
	runID := uuid.NewString()
	logger := e.logger.With().
		Str("run_id", runID).
		Str("store", req.StoreKey).
		Str("mode", string(mode)).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Export run panicked")
			result, err = nil, fmt.Errorf("export run %s failed: %v", runID, r)
			runsTotal.WithLabelValues(string(mode), outcomeError).Inc()
		}
	}()

	store, err := e.stores.Lookup(req.StoreKey)
	if err != nil {
		runsTotal.WithLabelValues(string(mode), outcomeInvalid).Inc()
		return nil, err
	}
	query, err := BuildQuery(req)
	if err != nil {
		runsTotal.WithLabelValues(string(mode), outcomeInvalid).Inc()
		return nil, err
	}

	logger.Info().Str("query", query.Encode()).Msg("Export run started")

	if req.Refresh && e.purger != nil {
		if err := e.purger.Purge(ctx, store); err != nil {
			logger.Warn().Err(err).Msg("Cache purge failed, continuing with cached responses")
		}
	}

	debug := &Debug{RunID: runID, Mode: mode, Query: flatten(query)}

	orders, err := e.lister.FetchAll(ctx, store, OrdersPath, query)
	if err != nil {
		if !errors.Is(err, pagination.ErrPartial) {
			runsTotal.WithLabelValues(string(mode), outcomeError).Inc()
			return nil, fmt.Errorf("listing orders: %w", err)
		}
		logger.Warn().Err(err).Int("orders", len(orders)).Msg("Order list is incomplete")
		debug.Partial = append(debug.Partial, err.Error())
	}

	results := e.enricher.Enrich(ctx, store, orders)
	for _, res := range results {
		if res.Err != nil {
			debug.FailedOrders = append(debug.FailedOrders, OrderFailure{
				Index:   res.Index,
				OrderID: res.OrderID,
				Error:   res.Err.Error(),
			})
		}
		for _, p := range res.Partial {
			debug.Partial = append(debug.Partial, p.Error())
		}
	}

	rows := e.assembler.Rows(mode, results)

	elapsed := time.Since(start)
	debug.DurationMS = elapsed.Milliseconds()

	outcome := outcomeSuccess
	if len(debug.FailedOrders) > 0 || len(debug.Partial) > 0 {
		outcome = outcomePartial
	}
	runsTotal.WithLabelValues(string(mode), outcome).Inc()
	rowsTotal.Add(float64(len(rows)))
	runDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())

	logger.Info().
		Int("orders", len(orders)).
		Int("rows", len(rows)).
		Int("failed_orders", len(debug.FailedOrders)).
		Int("partial", len(debug.Partial)).
		Dur("duration", elapsed).
		Msg("Export run complete")

	result = &Result{
		Columns: Columns,
		Rows:    rows,
		Meta:    Meta{Orders: len(orders), Rows: len(rows)},
	}
	if req.Debug {
		result.Meta.Debug = debug
	}
	return result, nil
}

func flatten(q map[string][]string) map[string]string {
	out := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

var (
	_ OrderEnricher = (*enrich.Enricher)(nil)
	_ CachePurger   = (*client.Client)(nil)
)
