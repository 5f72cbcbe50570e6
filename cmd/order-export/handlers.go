package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/order-export/pkg/config"
	"github.com/Sternrassler/order-export/pkg/logging"
	"github.com/Sternrassler/order-export/pkg/metrics"
	"github.com/Sternrassler/order-export/pkg/report"
	"github.com/rs/zerolog"
)

// maxRequestBody caps a JSON report request (1MB).
const maxRequestBody = 1 << 20

// Exporter runs a report. *report.Exporter implements it.
type Exporter interface {
	Run(ctx context.Context, req report.Request) (*report.Result, error)
}

// StoreLister lists configured stores. config.Stores implements it.
type StoreLister interface {
	List() []config.StoreInfo
}

type server struct {
	exporter  Exporter
	stores    StoreLister
	staticDir string
	logger    zerolog.Logger
}

func newServer(exporter Exporter, stores StoreLister, staticDir string) *server {
	return &server{
		exporter:  exporter,
		stores:    stores,
		staticDir: staticDir,
		logger:    logging.NewLogger("http"),
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/stores", s.handleStores)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("POST /api/report", s.handleReport)
	mux.HandleFunc("GET /api/report.csv", s.handleReportCSV)
	if s.staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) handleStores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stores.List())
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.exporter.Run(r.Context(), req)
	if err != nil {
		s.writeRunError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.exporter.Run(r.Context(), req)
	if err != nil {
		s.writeRunError(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(req)))
	if err := report.WriteCSV(w, res); err != nil {
		s.logger.Error().Err(err).Str("store", req.StoreKey).Msg("Failed to write CSV response")
	}
}

// writeRunError maps typed request errors to 400 and everything else to 500.
func (s *server) writeRunError(w http.ResponseWriter, req report.Request, err error) {
	var cfgErr *config.ConfigurationError
	var valErr *report.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Error().Err(err).Str("store", req.StoreKey).Msg("Export run failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

// decodeRequest reads a report request from a JSON body (POST) or from
// query parameters (GET).
func decodeRequest(r *http.Request) (report.Request, error) {
	var req report.Request

	if r.Method == http.MethodPost {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("invalid request body: %w", err)
		}
		return req, nil
	}

	q := r.URL.Query()
	req = report.Request{
		StoreKey:       q.Get("storeKey"),
		ReportType:     q.Get("reportType"),
		DateFilterType: q.Get("dateFilterType"),
		Status:         q.Get("status"),
		Start:          q.Get("start"),
		End:            q.Get("end"),
	}
	var err error
	if req.Debug, err = boolParam(q, "debug"); err != nil {
		return req, err
	}
	if req.Refresh, err = boolParam(q, "refresh"); err != nil {
		return req, err
	}
	return req, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s flag %q", name, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
