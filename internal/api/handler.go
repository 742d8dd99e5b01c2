package api

import (
	"countrydash/internal/chart"
	"countrydash/internal/domain"
	"countrydash/internal/export"
	"countrydash/internal/query"
	"countrydash/internal/service"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// CountryHandler handles HTTP requests for the country table.
type CountryHandler struct {
	service service.TableService
	logger  *zap.Logger
	pages   *pageSet
	opts    PageOptions
}

// PageOptions tunes the HTML dashboard.
type PageOptions struct {
	PreviewRows  int
	DefaultChart string
	SourceURL    string
}

// NewCountryHandler creates a new handler with a given service.
func NewCountryHandler(s service.TableService, logger *zap.Logger, opts PageOptions) *CountryHandler {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if _, err := chart.ParseType(opts.DefaultChart); err != nil {
		opts.DefaultChart = string(chart.Bar)
	}
	return &CountryHandler{
		service: s,
		logger:  logger,
		pages:   mustParsePages(),
		opts:    opts,
	}
}

type tableResponse struct {
	Version string              `json:"version,omitempty"`
	Columns []domain.Column     `json:"columns"`
	Rows    []domain.CountryRow `json:"rows"`
	Error   string              `json:"error,omitempty"`
}

func newTableResponse(t *domain.CountryTable, err error) tableResponse {
	resp := tableResponse{
		Version: t.Version(),
		Columns: t.Columns(),
		Rows:    t.Rows(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// ListCountries is the handler for GET /api/countries.
func (h *CountryHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	view, err := query.Apply(table, opts)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	etag := viewETag(view, r)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.respondJSON(w, http.StatusOK, newTableResponse(view, nil))
}

// ExportCSV is the handler for GET /api/countries/export.csv.
func (h *CountryHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	view, err := query.Apply(table, opts)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFilename))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, view); err != nil {
		h.logger.Error("Failed to write csv export", zap.Error(err))
	}
}

type statsResponse struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Error  string   `json:"error,omitempty"`
}

// Stats is the handler for GET /api/countries/stats?column=.
func (h *CountryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	if column == "" {
		h.respondError(w, http.StatusBadRequest, "Query parameter 'column' is required")
		return
	}

	table, fetchErr := h.service.Table(r.Context())
	s, err := query.Describe(table, column)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	resp := statsResponse{
		Column: s.Column,
		Count:  s.Count,
		Mean:   nullable(s.Mean),
		Median: nullable(s.Median),
		Std:    nullable(s.Std),
		Min:    nullable(s.Min),
		Max:    nullable(s.Max),
	}
	status := http.StatusOK
	if fetchErr != nil {
		resp.Error = fetchErr.Error()
		status = http.StatusBadGateway
	}
	h.respondJSON(w, status, resp)
}

type chartResponse struct {
	*chart.Chart
	Error string `json:"error,omitempty"`
}

// Chart is the handler for GET /api/countries/chart?type=&x=&y=.
func (h *CountryHandler) Chart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, err := chart.ParseType(q.Get("type"))
	if err != nil {
		h.badRequest(w, err)
		return
	}

	table, fetchErr := h.service.Table(r.Context())
	c, err := chart.Build(table, typ, q.Get("x"), q.Get("y"))
	if err != nil {
		h.badRequest(w, err)
		return
	}

	resp := chartResponse{Chart: c}
	status := http.StatusOK
	if fetchErr != nil {
		resp.Error = fetchErr.Error()
		status = http.StatusBadGateway
	}
	h.respondJSON(w, status, resp)
}

// Columns is the handler for GET /api/columns.
func (h *CountryHandler) Columns(w http.ResponseWriter, r *http.Request) {
	cols := domain.Columns()
	if numeric, _ := strconv.ParseBool(r.URL.Query().Get("numeric")); numeric {
		cols = domain.NumericColumns()
	}
	h.respondJSON(w, http.StatusOK, cols)
}

// InvalidateCache is the handler for POST /api/cache/invalidate.
func (h *CountryHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// Health is the handler for GET /healthz.
func (h *CountryHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Status())
}

// table loads the country table. On a fetch failure it writes a 502 carrying
// the empty, fully-shaped table and returns false.
func (h *CountryHandler) table(w http.ResponseWriter, r *http.Request) (*domain.CountryTable, bool) {
	table, err := h.service.Table(r.Context())
	if err != nil {
		h.respondJSON(w, http.StatusBadGateway, newTableResponse(table, err))
		return nil, false
	}
	return table, true
}

func parseOptions(r *http.Request) (query.Options, error) {
	q := r.URL.Query()
	opts := query.Options{
		Name:   q.Get("name"),
		Column: q.Get("column"),
		SortBy: q.Get("sort"),
	}

	order, err := query.ParseOrder(q.Get("order"))
	if err != nil {
		return opts, err
	}
	opts.Order = order

	if opts.Min, err = parseBound(q.Get("min"), "min"); err != nil {
		return opts, err
	}
	if opts.Max, err = parseBound(q.Get("max"), "max"); err != nil {
		return opts, err
	}
	if (opts.Min != nil || opts.Max != nil) && opts.Column == "" {
		return opts, errors.New("'min' and 'max' require 'column'")
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid limit %q", raw)
		}
		opts.Limit = n
	}
	return opts, nil
}

func parseBound(raw, name string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &v, nil
}

// viewETag changes whenever the upstream payload or the requested view does.
func viewETag(view *domain.CountryTable, r *http.Request) string {
	return fmt.Sprintf(`"%s-%016x"`, view.Version(), xxh3.HashString(r.URL.RawQuery))
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (h *CountryHandler) badRequest(w http.ResponseWriter, err error) {
	h.logger.Debug("Rejected request", zap.Error(err))
	h.respondError(w, http.StatusBadRequest, err.Error())
}

func (h *CountryHandler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}

func (h *CountryHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, `{"error": "Failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		h.logger.Warn("Failed to write response", zap.Error(err))
	}
}
