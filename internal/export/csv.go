// Package export serializes country tables to CSV and reads them back.
package export

import (
	"countrydash/internal/domain"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// DefaultFilename is offered to browsers downloading a filtered table.
const DefaultFilename = "filtered_countries.csv"

// ErrHeaderMismatch is returned when a CSV header does not match the table schema.
var ErrHeaderMismatch = errors.New("csv header does not match table columns")

// WriteCSV writes a header row with the column names followed by one record per row.
func WriteCSV(w io.Writer, t *domain.CountryTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(t.Row(i).Record()); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses CSV produced by WriteCSV back into a table.
func ReadCSV(r io.Reader) (*domain.CountryTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(domain.ColumnNames())

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, name := range domain.ColumnNames() {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrHeaderMismatch, i, header[i], name)
		}
	}

	var rows []domain.CountryRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return domain.NewCountryTable(rows), nil
}

func parseRecord(rec []string) (domain.CountryRow, error) {
	row := domain.CountryRow{CountryName: rec[0], GeoRegion: rec[1]}
	ints := []struct {
		dst  *int64
		name string
		raw  string
	}{
		{&row.TotalPopulation, domain.ColTotalPopulation, rec[2]},
		{&row.BorderCount, domain.ColBorderCount, rec[4]},
		{&row.LanguageCount, domain.ColLanguageCount, rec[5]},
		{&row.TimezoneCount, domain.ColTimezoneCount, rec[6]},
	}
	for _, f := range ints {
		v, err := strconv.ParseInt(f.raw, 10, 64)
		if err != nil {
			return row, fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}
	area, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return row, fmt.Errorf("invalid %s %q: %w", domain.ColAreaKm2, rec[3], err)
	}
	row.AreaKm2 = area
	return row, nil
}
