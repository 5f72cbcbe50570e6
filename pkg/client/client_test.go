package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/order-export/internal/testutil"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := DefaultConfig("example-commerce.test")
	cfg.RetryDelay = time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("example-commerce.test"),
		},
		{
			name:     "missing host",
			config:   Config{APIVersion: "v2"},
			errorMsg: "platform host is required",
		},
		{
			name:     "missing api version",
			config:   Config{Host: "example-commerce.test"},
			errorMsg: "api version is required",
		},
		{
			name:     "negative retries",
			config:   Config{Host: "example-commerce.test", APIVersion: "v2", MaxRetries: -1},
			errorMsg: "max_retries must be >= 0 (got -1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.errorMsg != "" {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c.cache != nil {
				t.Error("cache should be disabled without redis")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("example-commerce.test")

	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Errorf("RetryDelay = %v, want 500ms", cfg.RetryDelay)
	}
	if cfg.APIVersion != "v2" {
		t.Errorf("APIVersion = %q, want v2", cfg.APIVersion)
	}
}

func TestGet_BuildsURLWithToken(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetJSON("orders", http.StatusOK, []any{})

	c := newTestClient(t)
	store := Store{Key: "acme", Token: "tok-123", BaseURL: mock.URL()}

	resp, err := c.Get(context.Background(), store, "orders", url.Values{"page": []string{"1"}})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}

	q, _ := url.ParseQuery(mock.LastQuery("orders"))
	if q.Get("token") != "tok-123" {
		t.Errorf("token = %q, want tok-123", q.Get("token"))
	}
	if q.Get("page") != "1" {
		t.Errorf("page = %q, want 1", q.Get("page"))
	}
}

func TestGet_RejectsIncompleteStore(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Get(context.Background(), Store{Subdomain: "acme"}, "orders", nil)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials, got %v", err)
	}
}

func TestPurge_NoCache(t *testing.T) {
	c := newTestClient(t)

	if err := c.Purge(context.Background(), Store{Key: "acme", Subdomain: "acme", Token: "t"}); err != nil {
		t.Errorf("Purge without cache = %v, want nil", err)
	}
}

func TestExecute_RetryOnServerError(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetFailing("orders/7", http.StatusInternalServerError, 2, map[string]any{"id": 7})

	c := newTestClient(t)
	store := Store{Token: "t", BaseURL: mock.URL()}

	resp, err := c.Get(context.Background(), store, "orders/7", nil)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if !strings.Contains(string(resp.Body), `"id":7`) {
		t.Errorf("unexpected body %s", resp.Body)
	}
	if got := mock.PathCount("orders/7"); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestExecute_RetriesClientErrorsThenFails(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetFailing("orders/8", http.StatusNotFound, -1, nil)

	c := newTestClient(t)
	store := Store{Token: "secret-token", BaseURL: mock.URL()}

	_, err := c.Get(context.Background(), store, "orders/8", nil)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", reqErr.StatusCode)
	}
	if reqErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", reqErr.Attempts)
	}
	if reqErr.ErrorClass != ErrorClassClient {
		t.Errorf("ErrorClass = %q, want client", reqErr.ErrorClass)
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Errorf("error leaks token: %v", err)
	}
	if got := mock.PathCount("orders/8"); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestExecute_TransportFailure(t *testing.T) {
	mock := testutil.NewMockPlatform()
	baseURL := mock.URL()
	mock.Close()

	c := newTestClient(t)
	store := Store{Token: "secret-token", BaseURL: baseURL}

	_, err := c.Get(context.Background(), store, "orders", nil)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %v", err)
	}
	if reqErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want network", reqErr.ErrorClass)
	}
	if reqErr.Err == nil {
		t.Error("transport error should be wrapped")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Errorf("error leaks token: %v", err)
	}
}

func TestStore_Origin(t *testing.T) {
	tests := []struct {
		name  string
		store Store
		want  string
	}{
		{"subdomain", Store{Subdomain: "acme"}, "https://acme.example-commerce.test"},
		{"base url override", Store{Subdomain: "acme", BaseURL: "http://127.0.0.1:9000/"}, "http://127.0.0.1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.store.Origin("example-commerce.test"); got != tt.want {
				t.Errorf("Origin() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	got := buildURL("https://acme.example-commerce.test", "v2", "/orders/5/shipments/", url.Values{"page": []string{"2"}}, "tok")
	want := "https://acme.example-commerce.test/api/v2/orders/5/shipments?page=2&token=tok"
	if got != want {
		t.Errorf("buildURL() = %q, want %q", got, want)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://acme.example-commerce.test/api/v2/orders?page=1&token=abc")
	if strings.Contains(got, "abc") {
		t.Errorf("redactURL() = %q still contains token", got)
	}
	if !strings.Contains(got, "token=REDACTED") {
		t.Errorf("redactURL() = %q, want token=REDACTED", got)
	}
}

func TestResourceLabel(t *testing.T) {
	tests := map[string]string{
		"orders":                "orders",
		"orders/17":             "order",
		"orders/17/line_items":  "line_items",
		"/orders/17/shipments/": "shipments",
		"":                      "unknown",
	}

	for path, want := range tests {
		if got := resourceLabel(path); got != want {
			t.Errorf("resourceLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
