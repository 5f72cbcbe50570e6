// Package testutil provides testing utilities for the order export service.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// APIPrefix is the path prefix the mock serves (API version v2).
const APIPrefix = "/api/v2/"

// MockPlatform is a configurable mock of the commerce platform API.
type MockPlatform struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount int
	pathCounts   map[string]int
	lastQuery    map[string]string
}

// NewMockPlatform creates and starts a mock platform server.
func NewMockPlatform() *MockPlatform {
	mock := &MockPlatform{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
		lastQuery:  make(map[string]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, APIPrefix)

		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[path]++
		mock.lastQuery[path] = r.URL.RawQuery
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if r.URL.Query().Get("token") == "" {
			WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
			return
		}

		if exists {
			handler(w, r)
			return
		}

		// Unknown resources look like empty collections
		WriteJSON(w, http.StatusOK, []any{})
	}))

	return mock
}

// URL returns the mock server URL, suitable as a store BaseURL.
func (m *MockPlatform) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPlatform) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a resource path such as "orders/1".
func (m *MockPlatform) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetJSON serves a fixed JSON document for a resource path.
func (m *MockPlatform) SetJSON(path string, status int, body any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// SetPaginated serves items page by page honouring page and per_page,
// wrapped under envelopeKey (bare array when empty).
func (m *MockPlatform) SetPaginated(path, envelopeKey string, items []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 {
			perPage = len(items)
		}

		start := (page - 1) * perPage
		end := start + perPage
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		if envelopeKey == "" {
			WriteJSON(w, http.StatusOK, chunk)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{envelopeKey: chunk})
	})
}

// SetFailing makes a path fail with status for the first failures requests,
// then serve body with 200. failures < 0 fails forever.
func (m *MockPlatform) SetFailing(path string, status, failures int, body any) {
	var mu sync.Mutex
	count := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		n := count
		mu.Unlock()

		if failures < 0 || n <= failures {
			WriteJSON(w, status, map[string]string{"error": "upstream failure"})
			return
		}
		WriteJSON(w, http.StatusOK, body)
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockPlatform) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to a resource path.
func (m *MockPlatform) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastQuery returns the raw query string of the last request to a path.
func (m *MockPlatform) LastQuery(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery[path]
}

// WriteJSON writes body as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
