package api

import (
	"countrydash/internal/domain"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptionPage(t *testing.T) {
	rr := serve(newTestHandler(okService()), http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "Project description")
	assert.Contains(t, body, "https://restcountries.com/v3.1/all")
	assert.Contains(t, body, "83,240,525")
	assert.Contains(t, body, "Brazil")
	assert.NotContains(t, body, `role="alert"`)
}

func TestDescriptionPage_PreviewRows(t *testing.T) {
	h := newTestHandler(okService())
	h.opts.PreviewRows = 1

	rr := serve(h, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Germany")
	assert.NotContains(t, rr.Body.String(), "Fiji")
}

func TestDescriptionPage_FetchFailureBanner(t *testing.T) {
	rr := serve(newTestHandler(failingService()), http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `role="alert"`)
	assert.Contains(t, rr.Body.String(), "No rows.")
}

func TestExplorePage(t *testing.T) {
	rr := serve(newTestHandler(okService()), http.MethodGet,
		"/explore?stat=border_count&sort=total_population&order=desc&filter=area_km2&min=0&max=400000")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "6.33")
	assert.Contains(t, body, `value="desc" checked`)
	assert.Contains(t, body, "2 rows match.")
	assert.Contains(t, body, "/api/countries/export.csv?column=area_km2&amp;max=400000&amp;min=0")
}

func TestExplorePage_DefaultRangeIsFullRange(t *testing.T) {
	rr := serve(newTestHandler(okService()), http.MethodGet, "/explore?filter=total_population")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "3 rows match.")
}

func TestExplorePage_EmptyTableShowsUndefined(t *testing.T) {
	rr := serve(newTestHandler(failingService()), http.MethodGet, "/explore")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "undefined")
	assert.Contains(t, body, "0 rows match.")
	assert.Contains(t, body, `role="alert"`)
}

func TestExplorePage_BadInput(t *testing.T) {
	h := newTestHandler(okService())

	rr := serve(h, http.MethodGet, "/explore?order=sideways")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, http.MethodGet, "/explore?min=lots")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChartsPage(t *testing.T) {
	tests := []string{"", "?type=scatter", "?type=line&x=border_count&y=language_count"}
	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			rr := serve(newTestHandler(okService()), http.MethodGet, "/charts"+query)

			require.Equal(t, http.StatusOK, rr.Code)
			body := rr.Body.String()
			assert.Contains(t, body, `src="data:image/svg+xml;base64,`)
			// One hover marker per country.
			assert.Equal(t, 3, strings.Count(body, `class="point"`))
		})
	}
}

func TestChartsPage_ImageIsSVG(t *testing.T) {
	rr := serve(newTestHandler(okService()), http.MethodGet, "/charts?type=bar")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	const prefix = `src="data:image/svg+xml;base64,`
	start := strings.Index(body, prefix)
	require.NotEqual(t, -1, start)
	encoded := body[start+len(prefix):]
	encoded = encoded[:strings.Index(encoded, `"`)]

	svg, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), domain.ColAreaKm2)
}

func TestChartsPage_ScatterTooltip(t *testing.T) {
	rr := serve(newTestHandler(okService()), http.MethodGet, "/charts?type=scatter")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<title>Fiji</title>")
}

func TestChartsPage_Empty(t *testing.T) {
	rr := serve(newTestHandler(failingService()), http.MethodGet, "/charts")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No data to plot.")
	assert.NotContains(t, rr.Body.String(), "data:image/svg+xml")
}

func TestChartsPage_BadInput(t *testing.T) {
	h := newTestHandler(okService())

	rr := serve(h, http.MethodGet, "/charts?type=pie")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExplorePage_SwitchingFilterColumnResetsRange(t *testing.T) {
	h := newTestHandler(okService())

	rr := serve(h, http.MethodGet, "/explore?filter=border_count&filter_prev=area_km2&min=18272&max=400000")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "3 rows match.")
	assert.Contains(t, body, `name="min" value="0"`)
	assert.Contains(t, body, `name="max" value="10"`)
	assert.Contains(t, body, `name="filter_prev" value="border_count"`)

	rr = serve(h, http.MethodGet, "/explore?filter=border_count&filter_prev=border_count&min=5&max=10")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2 rows match.")
	assert.Contains(t, rr.Body.String(), `name="min" value="5"`)
}

func TestExplorePage_OneFormKeepsEverySection(t *testing.T) {
	rr := serve(newTestHandler(okService()), http.MethodGet,
		"/explore?stat=border_count&sort=country_name&order=desc&filter=area_km2&filter_prev=area_km2&min=0&max=400000")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Equal(t, 1, strings.Count(body, "<form"))
	assert.Contains(t, body, `<option value="border_count" selected>`)
	assert.Contains(t, body, `<option value="country_name" selected>`)
	assert.Contains(t, body, `<option value="area_km2" selected>`)
	assert.Contains(t, body, `value="desc" checked`)
	assert.Contains(t, body, `name="max" value="400000"`)
	assert.Contains(t, body, "6.33")
	assert.Contains(t, body, "2 rows match.")
}
