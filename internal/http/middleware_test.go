package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

func contextWithPastDeadline() (context.Context, context.CancelFunc) {
	return context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
}

func TestMiddleware_CorrelationIDGenerated(t *testing.T) {
	h := NewHandler(scenarioSource(), Page{}, nil, nil)
	w := serve(t, h, RouterConfig{}, "/health")

	if w.Header().Get(CorrelationIDHeader) == "" {
		t.Error("X-Correlation-ID header missing")
	}
}

func TestMiddleware_CorrelationIDPropagated(t *testing.T) {
	router := NewRouter(NewHandler(scenarioSource(), Page{}, nil, nil), zap.NewNop(), RouterConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/view?country=Atlantis", nil)
	req.Header.Set(CorrelationIDHeader, "client-provided-id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get(CorrelationIDHeader); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
	var body errorBody
	decode(t, w, &body)
	if body.Error.RequestID != "client-provided-id" {
		t.Errorf("requestId = %q, want client-provided-id", body.Error.RequestID)
	}
}

func TestMiddleware_RequestLoggerCarriesCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mw := CorrelationIDMiddleware(zap.New(core))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggerFrom(r).Debug("inside")
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc")

	mw(next).ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("inside").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["correlation_id"]; got != "abc" {
		t.Errorf("correlation_id = %v, want abc", got)
	}
}

func TestMiddleware_MetricsUseRouteTemplate(t *testing.T) {
	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/view", "2xx")
	before := testutil.ToFloat64(counter)

	h := NewHandler(scenarioSource(), Page{}, nil, nil)
	serve(t, h, RouterConfig{}, "/api/view?country=US")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("httpRequestsTotal{/api/view,2xx} delta = %v, want 1", got)
	}
}

func TestMiddleware_MetricsRecordsNonOK(t *testing.T) {
	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/view", "4xx")
	before := testutil.ToFloat64(counter)

	h := NewHandler(scenarioSource(), Page{}, nil, nil)
	serve(t, h, RouterConfig{}, "/api/view?start=nope")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("httpRequestsTotal{/api/view,4xx} delta = %v, want 1", got)
	}
}

func TestGetRoute_Unmatched(t *testing.T) {
	tests := map[string]string{
		"/health":       "/health",
		"/api/records":  "/api/records",
		"/weather/oslo": "other",
	}
	for path, want := range tests {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if got := getRoute(req); got != want {
			t.Errorf("getRoute(%s) = %q, want %q", path, got, want)
		}
	}
}

func TestMiddleware_TracksInFlight(t *testing.T) {
	var during int64
	router := mux.NewRouter()
	router.Use(MetricsMiddleware)
	router.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		during = InFlightCount()
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))

	if during < 1 {
		t.Errorf("InFlightCount() during request = %d, want >= 1", during)
	}
	if got := InFlightCount(); got != 0 {
		t.Errorf("InFlightCount() after request = %d, want 0", got)
	}
}

func TestRateLimitMiddleware_DeniesOverBurst(t *testing.T) {
	before := testutil.ToFloat64(observability.RateLimitDeniedTotal)
	h := NewHandler(scenarioSource(), Page{}, nil, nil)
	router := NewRouter(h, zap.NewNop(), RouterConfig{Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)})

	do := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	if w := do("/api/options"); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}
	w := do("/api/options")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	var body errorBody
	decode(t, w, &body)
	if body.Error.Code != "RATE_LIMITED" {
		t.Errorf("code = %q, want RATE_LIMITED", body.Error.Code)
	}
	if got := testutil.ToFloat64(observability.RateLimitDeniedTotal) - before; got != 1 {
		t.Errorf("rateLimitDeniedTotal delta = %v, want 1", got)
	}
	if w := do("/health"); w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200 (not rate limited)", w.Code)
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	RateLimitMiddleware(nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("next handler not called with nil limiter")
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	})

	start := time.Now()
	TimeoutMiddleware(2*time.Second)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok {
		t.Fatal("request context has no deadline")
	}
	if d := deadline.Sub(start); d <= 0 || d > 2*time.Second+100*time.Millisecond {
		t.Errorf("deadline offset = %v, want about 2s", d)
	}
}

func TestTimeoutMiddleware_ZeroDisables(t *testing.T) {
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = r.Context().Deadline()
	})
	TimeoutMiddleware(0)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if ok {
		t.Error("deadline set with zero timeout")
	}
}
