package domain

import (
	"strconv"
	"time"
)

// Kind is the semantic type of a table column.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
)

// Column names of the shaped table. Downstream selection, sorting, filtering and
// charting are keyed by these exact strings.
const (
	ColCountryName     = "country_name"
	ColGeoRegion       = "geo_region"
	ColTotalPopulation = "total_population"
	ColAreaKm2         = "area_km2"
	ColBorderCount     = "border_count"
	ColLanguageCount   = "language_count"
	ColTimezoneCount   = "timezone_count"
)

// Column describes one column of a CountryTable.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Numeric reports whether the column holds integers or floats.
func (c Column) Numeric() bool {
	return c.Kind == KindInt || c.Kind == KindFloat
}

var columns = []Column{
	{Name: ColCountryName, Kind: KindString},
	{Name: ColGeoRegion, Kind: KindString},
	{Name: ColTotalPopulation, Kind: KindInt},
	{Name: ColAreaKm2, Kind: KindFloat},
	{Name: ColBorderCount, Kind: KindInt},
	{Name: ColLanguageCount, Kind: KindInt},
	{Name: ColTimezoneCount, Kind: KindInt},
}

// Columns returns the fixed column schema in display order.
func Columns() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

// NumericColumns returns only the int and float columns, in display order.
func NumericColumns() []Column {
	var out []Column
	for _, c := range columns {
		if c.Numeric() {
			out = append(out, c)
		}
	}
	return out
}

// ColumnNames returns the column names in display order.
func ColumnNames() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// LookupColumn finds a column by its exact name.
func LookupColumn(name string) (Column, bool) {
	for _, c := range columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Number returns the numeric value of the named column. ok is false for
// text columns and unknown names.
func (r CountryRow) Number(name string) (v float64, ok bool) {
	switch name {
	case ColTotalPopulation:
		return float64(r.TotalPopulation), true
	case ColAreaKm2:
		return r.AreaKm2, true
	case ColBorderCount:
		return float64(r.BorderCount), true
	case ColLanguageCount:
		return float64(r.LanguageCount), true
	case ColTimezoneCount:
		return float64(r.TimezoneCount), true
	}
	return 0, false
}

// Text returns the string value of the named text column.
func (r CountryRow) Text(name string) (string, bool) {
	switch name {
	case ColCountryName:
		return r.CountryName, true
	case ColGeoRegion:
		return r.GeoRegion, true
	}
	return "", false
}

// Record formats the row as strings in column order.
func (r CountryRow) Record() []string {
	return []string{
		r.CountryName,
		r.GeoRegion,
		strconv.FormatInt(r.TotalPopulation, 10),
		strconv.FormatFloat(r.AreaKm2, 'f', -1, 64),
		strconv.FormatInt(r.BorderCount, 10),
		strconv.FormatInt(r.LanguageCount, 10),
		strconv.FormatInt(r.TimezoneCount, 10),
	}
}

// CountryTable is an ordered, immutable collection of CountryRow.
// Views derived from it (sorted, filtered) share its version stamp.
type CountryTable struct {
	rows      []CountryRow
	version   string
	fetchedAt time.Time
}

// NewCountryTable builds a table from rows. The slice is copied.
func NewCountryTable(rows []CountryRow) *CountryTable {
	cp := make([]CountryRow, len(rows))
	copy(cp, rows)
	return &CountryTable{rows: cp}
}

// EmptyTable returns a table with zero rows and the fixed schema.
func EmptyTable() *CountryTable {
	return &CountryTable{rows: []CountryRow{}}
}

// Stamp returns a copy of t carrying the given content version and fetch time.
func (t *CountryTable) Stamp(version string, fetchedAt time.Time) *CountryTable {
	return &CountryTable{rows: t.rows, version: version, fetchedAt: fetchedAt}
}

// Derive returns a new table holding rows with t's version stamp.
func (t *CountryTable) Derive(rows []CountryRow) *CountryTable {
	d := NewCountryTable(rows)
	d.version = t.version
	d.fetchedAt = t.fetchedAt
	return d
}

// Len returns the number of rows.
func (t *CountryTable) Len() int { return len(t.rows) }

// Row returns the i-th row.
func (t *CountryTable) Row(i int) CountryRow { return t.rows[i] }

// Rows returns a copy of the rows.
func (t *CountryTable) Rows() []CountryRow {
	out := make([]CountryRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Columns returns the fixed schema.
func (t *CountryTable) Columns() []Column { return Columns() }

// Version identifies the upstream payload the table was built from.
// Empty for tables that did not come from a fetch.
func (t *CountryTable) Version() string { return t.version }

// FetchedAt is when the upstream payload was retrieved.
func (t *CountryTable) FetchedAt() time.Time { return t.fetchedAt }
