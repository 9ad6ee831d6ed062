package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	return string(body)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/things/42", nil))

	out := scrape(t, m)
	want := `suggestionbox_http_requests_total{method="GET",path="/api/things/{id}",status="418"} 1`
	if !strings.Contains(out, want) {
		t.Errorf("expected %q in:\n%s", want, out)
	}
}

func TestPipelineCounters(t *testing.T) {
	m := New()
	m.ObserveSubmission("success")
	m.ObserveSubmission("success")
	m.ObserveSubmission("validation_error")
	m.ObserveNotification("skipped")
	m.ObserveUpload(2048)

	out := scrape(t, m)
	for _, want := range []string{
		`suggestionbox_reports_submissions_total{outcome="success"} 2`,
		`suggestionbox_reports_submissions_total{outcome="validation_error"} 1`,
		`suggestionbox_mailer_notifications_total{result="skipped"} 1`,
		`suggestionbox_uploads_file_size_bytes_count 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSubmission("success")
	m.ObserveNotification("delivered")
	m.ObserveUpload(1)

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("nil middleware should pass through")
	}
}
