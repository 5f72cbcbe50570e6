package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/order-export/internal/testutil"
	"github.com/Sternrassler/order-export/pkg/client"
	"github.com/Sternrassler/order-export/pkg/pagination"
	"github.com/Sternrassler/order-export/pkg/record"
)

var testStore = client.Store{Key: "acme", Subdomain: "acme", Token: "t"}

// fakePlatform implements Getter and Lister from in-memory fixtures.
type fakePlatform struct {
	details    map[string]any // path -> detail body
	failDetail map[string]bool
	lists      map[string][]record.Record
	listErr    map[string]error
	delay      time.Duration

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	mu          sync.Mutex
	calls       []string
}

func (f *fakePlatform) track() func() {
	n := f.inFlight.Add(1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakePlatform) note(path string) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
}

func (f *fakePlatform) Get(_ context.Context, _ client.Store, path string, _ url.Values) (*client.Response, error) {
	done := f.track()
	defer done()
	f.note(path)
	time.Sleep(f.delay)

	if f.failDetail[path] {
		return nil, &client.RequestError{Method: "GET", URL: path, StatusCode: 500, Status: "500 Internal Server Error", Attempts: 3}
	}
	data, _ := json.Marshal(f.details[path])
	return &client.Response{StatusCode: 200, Body: data}, nil
}

func (f *fakePlatform) FetchAll(_ context.Context, _ client.Store, path string, _ url.Values) ([]record.Record, error) {
	f.note(path)
	return f.lists[path], f.listErr[path]
}

func TestEnrich_IsolatesFailures(t *testing.T) {
	fake := &fakePlatform{
		details: map[string]any{
			"orders/1": map[string]any{"id": 1, "status": "shipped"},
			"orders/3": map[string]any{"order": map[string]any{"id": 3, "status": "open"}},
		},
		failDetail: map[string]bool{"orders/2": true},
		lists: map[string][]record.Record{
			"orders/1/line_items": {{"id": "11"}},
			"orders/1/shipments":  {{"id": "s1", "tracking_number": "T1"}},
			"orders/3/line_items": {{"id": "31"}, {"id": "32"}},
		},
	}

	orders := []record.Record{{"id": "1"}, {"id": "2"}, {"id": "3"}}
	results := New(fake, fake, 5).Enrich(context.Background(), testStore, orders)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("orders 1 and 3 should succeed: %v / %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Fatal("order 2 should carry an error marker")
	}
	var reqErr *client.RequestError
	if !errors.As(results[1].Err, &reqErr) {
		t.Errorf("order 2 error should wrap RequestError, got %v", results[1].Err)
	}

	if got := record.Lookup(results[0].Order, "status").String(); got != "shipped" {
		t.Errorf("order 1 status = %q, want shipped", got)
	}
	if len(results[0].LineItems) != 1 || len(results[0].Shipments) != 1 {
		t.Errorf("order 1 enrichment incomplete: %+v", results[0])
	}
	if got := record.Lookup(results[2].Order, "status").String(); got != "open" {
		t.Errorf("order 3 status = %q, want open (unwrapped from envelope)", got)
	}
	if len(results[2].LineItems) != 2 {
		t.Errorf("order 3 line items = %d, want 2", len(results[2].LineItems))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has Index %d", i, r.Index)
		}
	}
}

func TestEnrich_MergeDetailOverSnapshot(t *testing.T) {
	fake := &fakePlatform{
		details: map[string]any{
			"orders/9": map[string]any{"id": 9, "status": "shipped", "billing": map[string]any{"city": "Paris"}},
		},
	}
	snapshot := record.Record{"id": "9", "status": "pending", "list_only": "kept"}

	results := New(fake, fake, 1).Enrich(context.Background(), testStore, []record.Record{snapshot})
	order := results[0].Order

	if got := record.Lookup(order, "status").String(); got != "shipped" {
		t.Errorf("status = %q, detail should win", got)
	}
	if got := record.Lookup(order, "list_only").String(); got != "kept" {
		t.Errorf("list_only = %q, snapshot-only field should survive", got)
	}
	if _, ok := record.LookupRecord(order, "billing"); !ok {
		t.Error("detail-only nested object missing")
	}
}

func TestEnrich_MissingOrderID(t *testing.T) {
	fake := &fakePlatform{}
	results := New(fake, fake, 2).Enrich(context.Background(), testStore, []record.Record{{"status": "x"}})

	if !errors.Is(results[0].Err, ErrMissingOrderID) {
		t.Errorf("Err = %v, want ErrMissingOrderID", results[0].Err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("no upstream calls expected, got %v", fake.calls)
	}
}

func TestEnrich_PartialListsKept(t *testing.T) {
	partial := errors.New("pagination stopped early")
	fake := &fakePlatform{
		details: map[string]any{"orders/4": map[string]any{"id": 4}},
		lists: map[string][]record.Record{
			"orders/4/line_items": {{"id": "41"}},
		},
		listErr: map[string]error{"orders/4/line_items": partial},
	}

	results := New(fake, fake, 1).Enrich(context.Background(), testStore, []record.Record{{"order_id": "4"}})

	if results[0].Err != nil {
		t.Fatalf("partial pagination must not fail the order: %v", results[0].Err)
	}
	if len(results[0].LineItems) != 1 {
		t.Errorf("line items = %d, want partial 1", len(results[0].LineItems))
	}
	if len(results[0].Partial) != 1 || !errors.Is(results[0].Partial[0], partial) {
		t.Errorf("Partial = %v, want the pagination error", results[0].Partial)
	}
}

func TestEnrich_ConcurrencyBound(t *testing.T) {
	details := map[string]any{}
	var orders []record.Record
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		details["orders/"+id] = map[string]any{"id": id}
		orders = append(orders, record.Record{"id": id})
	}
	fake := &fakePlatform{details: details, delay: 10 * time.Millisecond}

	results := New(fake, fake, 3).Enrich(context.Background(), testStore, orders)

	if len(results) != 20 {
		t.Fatalf("results = %d, want 20", len(results))
	}
	// Only detail fetches are tracked, one per in-flight order.
	if peak := fake.maxInFlight.Load(); peak > 3 {
		t.Errorf("max in-flight orders = %d, want <= 3", peak)
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("order %d failed: %v", i, r.Err)
		}
	}
}

func TestEnrich_Empty(t *testing.T) {
	fake := &fakePlatform{}
	if got := New(fake, fake, 0).Enrich(context.Background(), testStore, nil); len(got) != 0 {
		t.Errorf("results = %d, want 0", len(got))
	}
}

func TestEnrich_AgainstMockPlatform(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	mock.SetJSON("orders/100", 200, map[string]any{"order": map[string]any{"id": 100, "status": "complete"}})
	mock.SetPaginated("orders/100/line_items", "items", []map[string]any{{"id": 1}, {"id": 2}})
	mock.SetPaginated("orders/100/shipments", "", []map[string]any{{"id": 5, "line_item_ids": []any{1}}})
	mock.SetFailing("orders/200", 503, -1, nil)

	cfg := client.DefaultConfig("example-commerce.test")
	cfg.RetryDelay = time.Millisecond
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	fetcher := pagination.NewFetcher(c, pagination.Config{PageSize: 50})
	store := client.Store{Key: "acme", Token: "t", BaseURL: mock.URL()}

	results := New(c, fetcher, 2).Enrich(context.Background(), store, []record.Record{{"id": 100}, {"id": 200}})

	if results[0].Err != nil {
		t.Fatalf("order 100 failed: %v", results[0].Err)
	}
	if len(results[0].LineItems) != 2 || len(results[0].Shipments) != 1 {
		t.Errorf("order 100: %d line items, %d shipments", len(results[0].LineItems), len(results[0].Shipments))
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "200") {
		t.Errorf("order 200 should fail, got %v", results[1].Err)
	}
	if n := mock.PathCount("orders/200"); n != 3 {
		t.Errorf("order 200 detail attempts = %d, want 3", n)
	}
}
