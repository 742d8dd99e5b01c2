package domain

import "time"

// RawCountryRecord is one country object exactly as the upstream API returned it.
// No schema is enforced; every consumed field may be absent or null.
type RawCountryRecord map[string]interface{}

// CountryRow is the flat, shaped view of a country that the dashboard serves.
type CountryRow struct {
	CountryName     string  `json:"country_name"`
	GeoRegion       string  `json:"geo_region"`
	TotalPopulation int64   `json:"total_population"`
	AreaKm2         float64 `json:"area_km2"`
	BorderCount     int64   `json:"border_count"`
	LanguageCount   int64   `json:"language_count"`
	TimezoneCount   int64   `json:"timezone_count"`
}

// Snapshot is one decoded upstream response.
type Snapshot struct {
	Records   []RawCountryRecord
	Version   string
	FetchedAt time.Time
}
