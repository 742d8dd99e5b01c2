package api

import (
	"net/http"

	"go.uber.org/zap"
)

// NewRouter creates and configures a new HTTP router.
func NewRouter(h *CountryHandler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.DescriptionPage)
	mux.HandleFunc("GET /explore", h.ExplorePage)
	mux.HandleFunc("GET /charts", h.ChartsPage)

	mux.HandleFunc("GET /api/countries", h.ListCountries)
	mux.HandleFunc("GET /api/countries/export.csv", h.ExportCSV)
	mux.HandleFunc("GET /api/countries/stats", h.Stats)
	mux.HandleFunc("GET /api/countries/chart", h.Chart)
	mux.HandleFunc("GET /api/columns", h.Columns)
	mux.HandleFunc("POST /api/cache/invalidate", h.InvalidateCache)
	mux.HandleFunc("GET /healthz", h.Health)

	return withRequestLog(mux, logger)
}
