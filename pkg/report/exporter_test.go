package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/Sternrassler/order-export/internal/testutil"
	"github.com/Sternrassler/order-export/pkg/client"
	"github.com/Sternrassler/order-export/pkg/config"
	"github.com/Sternrassler/order-export/pkg/enrich"
	"github.com/Sternrassler/order-export/pkg/pagination"
	"github.com/Sternrassler/order-export/pkg/reconcile"
	"github.com/Sternrassler/order-export/pkg/record"
)

type fakeLister struct {
	orders []record.Record
	err    error
	calls  int
}

func (f *fakeLister) FetchAll(_ context.Context, _ client.Store, _ string, _ url.Values) ([]record.Record, error) {
	f.calls++
	return f.orders, f.err
}

type fakeEnricher struct {
	results []enrich.Result
	panic   bool
}

func (f *fakeEnricher) Enrich(_ context.Context, _ client.Store, orders []record.Record) []enrich.Result {
	if f.panic {
		panic("boom")
	}
	if f.results != nil {
		return f.results
	}
	out := make([]enrich.Result, len(orders))
	for i, o := range orders {
		out[i] = enrich.Result{Index: i, Order: o}
	}
	return out
}

var testStores = config.Stores{
	"acme": {Key: "acme", Label: "Acme", Subdomain: "acme", Token: "t"},
}

func newTestExporter(lister enrich.Lister, enricher OrderEnricher) *Exporter {
	return NewExporter(testStores, lister, enricher, NewAssembler(reconcile.New(reconcile.DefaultOptions())))
}

func TestRun_UnknownStore(t *testing.T) {
	lister := &fakeLister{}
	e := newTestExporter(lister, &fakeEnricher{})

	for _, key := range []string{"", "missing"} {
		_, err := e.Run(context.Background(), Request{StoreKey: key})
		var cfgErr *config.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("store %q: expected *config.ConfigurationError, got %v", key, err)
		}
	}
	if lister.calls != 0 {
		t.Errorf("lister called %d times for invalid stores", lister.calls)
	}
}

func TestRun_InvalidDates(t *testing.T) {
	lister := &fakeLister{}
	e := newTestExporter(lister, &fakeEnricher{})

	_, err := e.Run(context.Background(), Request{StoreKey: "acme", Start: "soon"})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if lister.calls != 0 {
		t.Error("no upstream call expected for an invalid request")
	}
}

func TestRun_PartialOrderList(t *testing.T) {
	lister := &fakeLister{
		orders: []record.Record{{"id": "1"}},
		err:    fmt.Errorf("%w at page 2 of orders: upstream down", pagination.ErrPartial),
	}
	e := newTestExporter(lister, &fakeEnricher{})

	res, err := e.Run(context.Background(), Request{StoreKey: "acme", Debug: true})
	if err != nil {
		t.Fatalf("partial listing must not fail the run: %v", err)
	}
	if res.Meta.Orders != 1 || res.Meta.Rows != 1 {
		t.Errorf("meta = %+v, want 1 order / 1 summary row", res.Meta)
	}
	if res.Meta.Debug == nil || len(res.Meta.Debug.Partial) != 1 {
		t.Fatalf("expected one partial note, got %+v", res.Meta.Debug)
	}
	if res.Meta.Debug.RunID == "" {
		t.Error("expected a run id")
	}
}

type fakePurger struct {
	stores []string
	err    error
}

func (f *fakePurger) Purge(_ context.Context, store client.Store) error {
	f.stores = append(f.stores, store.Key)
	return f.err
}

func TestRun_Refresh(t *testing.T) {
	tests := []struct {
		name       string
		refresh    bool
		purgeErr   error
		wantPurged int
	}{
		{"no refresh", false, nil, 0},
		{"refresh purges store", true, nil, 1},
		{"purge failure is not fatal", true, errors.New("redis down"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purger := &fakePurger{err: tt.purgeErr}
			e := newTestExporter(&fakeLister{orders: []record.Record{{"id": "1"}}}, &fakeEnricher{})
			e.SetCachePurger(purger)

			res, err := e.Run(context.Background(), Request{StoreKey: "acme", Refresh: tt.refresh})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if res.Meta.Rows != 1 {
				t.Errorf("rows = %d, want 1", res.Meta.Rows)
			}
			if len(purger.stores) != tt.wantPurged {
				t.Fatalf("purged %v, want %d call(s)", purger.stores, tt.wantPurged)
			}
			if tt.wantPurged > 0 && purger.stores[0] != "acme" {
				t.Errorf("purged store %q, want acme", purger.stores[0])
			}
		})
	}
}

func TestRun_ListError(t *testing.T) {
	e := newTestExporter(&fakeLister{err: errors.New("misconfigured")}, &fakeEnricher{})

	if _, err := e.Run(context.Background(), Request{StoreKey: "acme"}); err == nil {
		t.Error("expected error for a non-partial listing failure")
	}
}

func TestRun_RecoversPanics(t *testing.T) {
	e := newTestExporter(&fakeLister{orders: []record.Record{{"id": "1"}}}, &fakeEnricher{panic: true})

	res, err := e.Run(context.Background(), Request{StoreKey: "acme"})
	if err == nil || res != nil {
		t.Fatalf("expected error from panicking run, got res=%v err=%v", res, err)
	}
}

func TestRun_DebugOnlyWhenRequested(t *testing.T) {
	e := newTestExporter(&fakeLister{}, &fakeEnricher{})

	res, err := e.Run(context.Background(), Request{StoreKey: "acme"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Meta.Debug != nil {
		t.Error("debug meta should be omitted by default")
	}
	if res.Rows == nil {
		t.Error("Rows must be non-nil so it encodes as []")
	}
	if len(res.Columns) != len(Columns) {
		t.Errorf("columns = %d", len(res.Columns))
	}
}

func TestRun_AgainstMockPlatform(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	mock.SetPaginated("orders", "orders", []map[string]any{
		{"id": 1, "status": "open"},
		{"id": 2},
		{"id": 3},
	})
	mock.SetJSON("orders/1", 200, map[string]any{"order": map[string]any{
		"id":         1,
		"status":     "shipped",
		"date_added": "2024-03-02T09:00:00Z",
		"billing_address": map[string]any{
			"first_name": "Jo", "last_name": "Doe", "city": "Springfield", "state": "IL", "zip": "62701",
		},
		"shipping_address": map[string]any{
			"name": "Sam Roe", "address1": "2 Side St", "city": "Austin", "state": "TX", "zip": "73301",
		},
	}})
	mock.SetPaginated("orders/1/line_items", "items", []map[string]any{
		{"id": 11, "product_name": "Mug", "quantity": 2, "product_options": []any{map[string]any{"option_name": "Size", "sub_option_name": "L"}}},
		{"id": 12, "product_name": "Cup", "quantity": 1},
	})
	mock.SetPaginated("orders/1/shipments", "", []map[string]any{
		{"line_item_ids": []any{11}, "tracking_number": "1Z1", "shipping_method": "UPS", "landed_cost": "4.50"},
		{"line_item_ids": []any{12}, "tracking_number": "1Z2", "shipping_method": "USPS"},
	})
	mock.SetFailing("orders/2", 500, -1, nil)
	mock.SetJSON("orders/3", 200, map[string]any{"id": 3, "status": "open"})

	cfg := client.DefaultConfig("example-commerce.test")
	cfg.RetryDelay = time.Millisecond
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	fetcher := pagination.NewFetcher(c, pagination.Config{PageSize: 2})
	stores := config.Stores{"acme": {Key: "acme", Token: "t", BaseURL: mock.URL()}}
	e := NewExporter(stores, fetcher, enrich.New(c, fetcher, 2), NewAssembler(reconcile.New(reconcile.DefaultOptions())))

	req := Request{StoreKey: "acme", ReportType: "detailed", Status: "shipped", Start: "2024-03-01", End: "2024-03-31", Debug: true}
	res, err := e.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Meta.Orders != 3 {
		t.Errorf("orders = %d, want 3", res.Meta.Orders)
	}
	if res.Meta.Rows != 2 || len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}

	first := res.Rows[0]
	want := map[int]string{
		0:  "1",
		1:  "2024-03-02T09:00:00Z",
		2:  "shipped",
		3:  "11",
		4:  "1Z1",
		5:  "4.50",
		6:  "UPS",
		9:  "2",
		10: "Mug",
		11: "Size: L",
		12: "Jo Doe | Springfield, IL 62701",
		13: "Sam Roe | 2 Side St | Austin, TX 73301",
	}
	for i, v := range want {
		if first[i] != v {
			t.Errorf("%s = %q, want %q", Columns[i], first[i], v)
		}
	}
	if res.Rows[1][4] != "1Z2" || res.Rows[1][6] != "USPS" {
		t.Errorf("row 2 tracking/method = %q/%q", res.Rows[1][4], res.Rows[1][6])
	}

	dbg := res.Meta.Debug
	if dbg == nil || len(dbg.FailedOrders) != 1 || dbg.FailedOrders[0].OrderID != "2" {
		t.Fatalf("expected order 2 reported as failed, got %+v", dbg)
	}

	q, err := url.ParseQuery(mock.LastQuery("orders"))
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	if q.Get("status") != "shipped" || q.Get("date_added_from") != "2024-03-01T00:00:00Z" || q.Get("date_added_to") != "2024-03-31T23:59:59Z" {
		t.Errorf("unexpected order list query: %v", q)
	}
	// Three orders at page size 2: pages [2, 1].
	if n := mock.PathCount("orders"); n != 2 {
		t.Errorf("order list requests = %d, want 2", n)
	}

	summary, err := e.Run(context.Background(), Request{StoreKey: "acme", ReportType: "summary"})
	if err != nil {
		t.Fatalf("summary Run failed: %v", err)
	}
	if len(summary.Rows) != 2 {
		t.Errorf("summary rows = %d, want 2 (orders 1 and 3)", len(summary.Rows))
	}
}
