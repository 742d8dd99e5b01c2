package domain

import (
	"encoding/json"
	"math"
)

// Placeholder used for text fields missing from the upstream record.
const NotAvailable = "N/A"

// Shape projects raw records into a CountryTable, one row per record, in input
// order. It never fails: missing or null fields fall back to their defaults.
func Shape(records []RawCountryRecord) *CountryTable {
	rows := make([]CountryRow, len(records))
	for i, rec := range records {
		rows[i] = ShapeRecord(rec)
	}
	return &CountryTable{rows: rows}
}

// ShapeRecord projects a single raw record into a CountryRow.
func ShapeRecord(rec RawCountryRecord) CountryRow {
	return CountryRow{
		CountryName:     commonName(rec),
		GeoRegion:       stringField(rec, "region", NotAvailable),
		TotalPopulation: intField(rec, "population", 0),
		AreaKm2:         floatField(rec, "area", 0.0),
		BorderCount:     sizeOf(rec, "borders"),
		LanguageCount:   sizeOf(rec, "languages"),
		TimezoneCount:   sizeOf(rec, "timezones"),
	}
}

// commonName reads name.common.
func commonName(rec RawCountryRecord) string {
	name, ok := rec["name"].(map[string]interface{})
	if !ok {
		return NotAvailable
	}
	return stringField(name, "common", NotAvailable)
}

func stringField(m map[string]interface{}, key, def string) string {
	s, ok := m[key].(string)
	if !ok {
		return def
	}
	return s
}

func intField(m map[string]interface{}, key string, def int64) int64 {
	f, ok := number(m[key])
	// NaN fails both comparisons; 2^63 itself does not fit in an int64.
	if !ok || !(f >= math.MinInt64 && f < math.MaxInt64) {
		return def
	}
	return int64(f)
}

func floatField(m map[string]interface{}, key string, def float64) float64 {
	f, ok := number(m[key])
	if !ok {
		return def
	}
	return f
}

// number accepts the numeric representations a JSON decoder may produce.
func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// sizeOf is the cardinality of a sequence or mapping field; 0 for anything else.
func sizeOf(m map[string]interface{}, key string) int64 {
	switch c := m[key].(type) {
	case []interface{}:
		return int64(len(c))
	case map[string]interface{}:
		return int64(len(c))
	case []string:
		return int64(len(c))
	case map[string]string:
		return int64(len(c))
	}
	return 0
}
