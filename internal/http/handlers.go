package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/filter"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
	"github.com/kjstillabower/weather-dashboard/internal/views"
)

// DatasetSource returns the loaded dataset. *dataset.Memo satisfies it.
type DatasetSource interface {
	Get() (*models.Dataset, error)
}

// Page holds the static parts of the dashboard page.
type Page struct {
	Title    string
	Subtitle string
	Findings template.HTML
}

// HealthConfig holds the thresholds /health evaluates over recent traffic. A zero
// percentage disables that check.
type HealthConfig struct {
	Window            time.Duration
	OverloadDenialPct int // share of requests denied by the rate limiter
	DegradedErrorPct  int // share of requests answered with 5xx
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	source DatasetSource
	page   Page
	health *HealthConfig
	logger *zap.Logger

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. health and logger may be nil; without health only
// shutdown and dataset availability are checked.
func NewHandler(source DatasetSource, page Page, health *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{source: source, page: page, health: health, logger: logger}
}

// recordsResponse is the body of GET /api/records.
type recordsResponse struct {
	Selection validation.Selection `json:"selection"`
	Count     int                  `json:"count"`
	Records   []views.MonthRecord  `json:"records"`
}

// GetDashboard handles GET /. It renders the full page for the query's selection.
// A rejected query still renders the page, with the error shown and status 400.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dataset(w, r)
	if !ok {
		return
	}
	data := &views.DashboardData{
		Title:    h.page.Title,
		Subtitle: h.page.Subtitle,
		Findings: h.page.Findings,
	}
	status := http.StatusOK

	params, sel, err := validation.ParseViewQuery(r.URL.Query(), d)
	if err != nil {
		observability.RecordView(0, err)
		status = http.StatusBadRequest
		data.Error = queryErrorMessage(err)
		data.Options = filter.OptionsFor(d, filter.All)
		data.View = views.View{Selection: validation.Selection{Country: filter.All, City: filter.All}}
	} else {
		view := filter.Apply(d, params)
		observability.RecordView(view.Len(), nil)
		data.Options = filter.OptionsFor(d, sel.Country)
		data.View = views.BuildView(sel, view)
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, data); err != nil {
		loggerFrom(r).Error("render dashboard", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render dashboard")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// GetOptions handles GET /api/options. Cities are scoped to the country query parameter.
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dataset(w, r)
	if !ok {
		return
	}
	country := r.URL.Query().Get("country")
	if err := validation.ValidateSelection(country); err != nil {
		writeQueryError(w, r, err)
		return
	}
	if country == "" {
		country = filter.All
	}
	if !filter.HasCountry(d, country) {
		writeQueryError(w, r, validation.ErrUnknownCountry)
		return
	}
	writeJSON(w, http.StatusOK, filter.OptionsFor(d, country))
}

// GetView handles GET /api/view. The response carries the effective selection, the row
// count, and either chart traces or the no-data notice.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dataset(w, r)
	if !ok {
		return
	}
	params, sel, err := validation.ParseViewQuery(r.URL.Query(), d)
	if err != nil {
		observability.RecordView(0, err)
		writeQueryError(w, r, err)
		return
	}
	view := filter.Apply(d, params)
	if !checkDeadline(w, r) {
		return
	}
	observability.RecordView(view.Len(), nil)
	loggerFrom(r).Debug("view built",
		zap.String("country", sel.Country),
		zap.String("city", sel.City),
		zap.Int("rows", view.Len()))
	writeJSON(w, http.StatusOK, views.BuildView(sel, view))
}

// GetRecords handles GET /api/records. It returns the filtered rows with the derived month.
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dataset(w, r)
	if !ok {
		return
	}
	params, sel, err := validation.ParseViewQuery(r.URL.Query(), d)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	view := filter.Apply(d, params)
	if !checkDeadline(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{
		Selection: sel,
		Count:     view.Len(),
		Records:   views.WithMonth(view),
	})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	rows       int // -1 when the dataset is unavailable
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	if prev := h.healthStatusPrev; prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"dataset": "healthy"}
	rows := result.rows
	if rows < 0 {
		checks["dataset"] = "unhealthy"
		rows = 0
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-dashboard",
		"version":   "dev",
		"checks":    checks,
		"rows":      rows,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if since := lifecycle.ShuttingDownSince(); !since.IsZero() {
		resp["drainingSince"] = since.Format(time.RFC3339)
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in priority order: shutting-down > dataset unavailable >
// overloaded > degraded > healthy. The traffic checks need a HealthConfig.
func (h *Handler) computeHealthStatus() healthResult {
	rows := -1
	d, err := h.source.Get()
	if err == nil {
		rows = d.Len()
	}
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", rows}
	}
	if err != nil {
		return healthResult{"unavailable", http.StatusServiceUnavailable, "dataset_load_failed", rows}
	}
	if h.health == nil || h.health.Window <= 0 {
		return healthResult{"healthy", http.StatusOK, "", rows}
	}
	counts := traffic.Window(h.health.Window)
	if pct := h.health.OverloadDenialPct; pct > 0 && counts.Pct(counts.Denied) >= float64(pct) {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "rate_limit_denials", rows}
	}
	if pct := h.health.DegradedErrorPct; pct > 0 && counts.Pct(counts.Failed) >= float64(pct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach", rows}
	}
	return healthResult{"healthy", http.StatusOK, "", rows}
}

// dataset fetches the dataset, writing a 503 when it cannot be loaded.
func (h *Handler) dataset(w http.ResponseWriter, r *http.Request) (*models.Dataset, bool) {
	d, err := h.source.Get()
	if err != nil {
		loggerFrom(r).Error("dataset unavailable", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "Weather data is not available")
		return nil, false
	}
	return d, true
}

// checkDeadline writes a 503 when the request context is already done.
func checkDeadline(w http.ResponseWriter, r *http.Request) bool {
	err := r.Context().Err()
	if err == nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, r, http.StatusServiceUnavailable, "TIMEOUT", "Request timed out")
	}
	return false
}

func queryErrorMessage(err error) string {
	if errors.Is(err, validation.ErrUnknownCountry) {
		return "Unknown country"
	}
	return "Invalid filter parameters"
}

// writeQueryError maps validation errors to 400 responses.
func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	loggerFrom(r).Debug("rejected query", zap.Error(err))
	code := "INVALID_QUERY"
	if errors.Is(err, validation.ErrUnknownCountry) {
		code = "UNKNOWN_COUNTRY"
	}
	writeError(w, r, http.StatusBadRequest, code, err.Error())
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": CorrelationID(r.Context()),
		},
	})
}
