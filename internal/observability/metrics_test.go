package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/logistica-inteligente/logistica/internal/observability"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	metrics := observability.NewMetrics()
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	srv := httptest.NewServer(r)
	defer srv.Close()

	if _, err := http.Get(srv.URL + "/health"); err != nil {
		t.Fatalf("get health: %v", err)
	}
	metrics.TokenIssued()

	res, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, "logistica_idp_http_requests_total") {
		t.Fatalf("request counter missing from exposition")
	}
	if !strings.Contains(body, `logistica_idp_tokens_issued_total 1`) {
		t.Fatalf("token counter missing from exposition")
	}
}

func TestNilMetricsAreInert(t *testing.T) {
	var metrics *observability.Metrics
	metrics.TokenIssued()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	metrics.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("nil metrics middleware must pass through, got %d", rec.Code)
	}
}
