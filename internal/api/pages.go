package api

import (
	"bytes"
	"countrydash/internal/chart"
	"countrydash/internal/domain"
	"countrydash/internal/query"
	"embed"
	"encoding/base64"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	chartWidth  = 900
	chartHeight = 480
)

type pageSet struct {
	byName map[string]*template.Template
}

var pageFuncs = template.FuncMap{
	"comma": humanize.Comma,
	"area": func(v float64) string {
		return humanize.CommafWithDigits(v, 2)
	},
	"stat": func(v float64) string {
		if math.IsNaN(v) {
			return "undefined"
		}
		return humanize.CommafWithDigits(v, 2)
	},
	"pt": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 1, 64)
	},
}

func mustParsePages() *pageSet {
	ps := &pageSet{byName: make(map[string]*template.Template)}
	for _, name := range []string{"description.html", "explore.html", "charts.html"} {
		t := template.Must(template.New("layout.html").Funcs(pageFuncs).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
		ps.byName[name] = t
	}
	return ps
}

// pageBase is shared by every page.
type pageBase struct {
	Title  string
	Active string
	Error  string
	Rows   int
}

type descriptionPage struct {
	pageBase
	Preview   []domain.CountryRow
	SourceURL string
}

type explorePage struct {
	pageBase
	All            []domain.CountryRow
	Columns        []domain.Column
	NumericColumns []domain.Column

	StatColumn string
	Stats      query.Summary

	SortColumn string
	Descending bool
	Sorted     []domain.CountryRow

	FilterColumn string
	FilterMin    float64
	FilterMax    float64
	RangeMin     float64
	RangeMax     float64
	HasRange     bool
	Filtered     []domain.CountryRow
	DownloadURL  string
}

type chartsPage struct {
	pageBase
	Types          []chart.Type
	NumericColumns []domain.Column
	Type           chart.Type
	X, Y           string
	Figure         *chart.Figure
	// Image is the rendered SVG as a data URI.
	Image template.URL
}

// DescriptionPage is the handler for GET /.
func (h *CountryHandler) DescriptionPage(w http.ResponseWriter, r *http.Request) {
	table, fetchErr := h.service.Table(r.Context())
	data := descriptionPage{
		pageBase:  h.base("Project description", "description", table, fetchErr),
		Preview:   query.Head(table, h.opts.PreviewRows).Rows(),
		SourceURL: h.opts.SourceURL,
	}
	h.render(w, "description.html", data)
}

// ExplorePage is the handler for GET /explore.
func (h *CountryHandler) ExplorePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	table, fetchErr := h.service.Table(r.Context())
	numeric := domain.NumericColumns()

	data := explorePage{
		pageBase:       h.base("Interact with the data", "explore", table, fetchErr),
		All:            table.Rows(),
		Columns:        domain.Columns(),
		NumericColumns: numeric,
		StatColumn:     pick(q.Get("stat"), numeric),
		SortColumn:     pick(q.Get("sort"), domain.Columns()),
		FilterColumn:   pick(q.Get("filter"), numeric),
	}

	var err error
	if data.Stats, err = query.Describe(table, data.StatColumn); err != nil {
		h.renderError(w, err)
		return
	}

	order, err := query.ParseOrder(q.Get("order"))
	if err != nil {
		h.renderError(w, err)
		return
	}
	data.Descending = order == query.Descending
	sorted, err := query.Sort(table, data.SortColumn, order)
	if err != nil {
		h.renderError(w, err)
		return
	}
	data.Sorted = sorted.Rows()

	lo, hi, ok, err := query.Bounds(table, data.FilterColumn)
	if err != nil {
		h.renderError(w, err)
		return
	}
	data.RangeMin, data.RangeMax, data.HasRange = lo, hi, ok
	data.FilterMin, data.FilterMax = lo, hi
	// Bounds submitted for a different column reset to the new column's range.
	if prev := q.Get("filter_prev"); prev == "" || prev == data.FilterColumn {
		if v, err := parseBound(q.Get("min"), "min"); err != nil {
			h.renderError(w, err)
			return
		} else if v != nil {
			data.FilterMin = *v
		}
		if v, err := parseBound(q.Get("max"), "max"); err != nil {
			h.renderError(w, err)
			return
		} else if v != nil {
			data.FilterMax = *v
		}
	}

	filtered, err := query.FilterRange(table, data.FilterColumn, data.FilterMin, data.FilterMax)
	if err != nil {
		h.renderError(w, err)
		return
	}
	data.Filtered = filtered.Rows()
	data.DownloadURL = "/api/countries/export.csv?" + url.Values{
		"column": {data.FilterColumn},
		"min":    {strconv.FormatFloat(data.FilterMin, 'f', -1, 64)},
		"max":    {strconv.FormatFloat(data.FilterMax, 'f', -1, 64)},
	}.Encode()

	h.render(w, "explore.html", data)
}

// ChartsPage is the handler for GET /charts.
func (h *CountryHandler) ChartsPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	table, fetchErr := h.service.Table(r.Context())
	numeric := domain.NumericColumns()

	typName := q.Get("type")
	if typName == "" {
		typName = h.opts.DefaultChart
	}
	typ, err := chart.ParseType(typName)
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := chartsPage{
		pageBase:       h.base("Data visualization", "charts", table, fetchErr),
		Types:          chart.Types,
		NumericColumns: numeric,
		Type:           typ,
		X:              pickOr(q.Get("x"), numeric, domain.ColAreaKm2),
		Y:              pickOr(q.Get("y"), numeric, domain.ColTotalPopulation),
	}
	c, err := chart.Build(table, typ, data.X, data.Y)
	if err != nil {
		h.renderError(w, err)
		return
	}
	fig, err := chart.Render(c, vg.Points(chartWidth), vg.Points(chartHeight))
	if err != nil {
		h.logger.Error("Failed to render chart", zap.String("type", string(typ)), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data.Figure = fig
	if !fig.Empty {
		data.Image = template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(fig.SVG))
	}

	h.render(w, "charts.html", data)
}

func (h *CountryHandler) base(title, active string, table *domain.CountryTable, fetchErr error) pageBase {
	b := pageBase{Title: title, Active: active, Rows: table.Len()}
	if fetchErr != nil {
		b.Error = "Could not load data from the countries API."
	}
	return b
}

func (h *CountryHandler) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.pages.byName[name].Execute(&buf, data); err != nil {
		h.logger.Error("Failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *CountryHandler) renderError(w http.ResponseWriter, err error) {
	h.logger.Debug("Rejected page request", zap.Error(err))
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// pick returns name when it is one of cols, else the first column.
func pick(name string, cols []domain.Column) string {
	return pickOr(name, cols, cols[0].Name)
}

func pickOr(name string, cols []domain.Column, def string) string {
	for _, c := range cols {
		if c.Name == name {
			return name
		}
	}
	return def
}
