// Package query derives views of a CountryTable: sorted, filtered and truncated
// tables plus per-column summary statistics.
package query

import (
	"cmp"
	"countrydash/internal/domain"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotNumeric    = errors.New("column is not numeric")
	ErrInvalidOrder  = errors.New("invalid sort order")
)

// Order is a sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseOrder accepts asc/desc and their long forms. Empty means ascending.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
}

// Options describes a view of the table. Zero values disable each step.
type Options struct {
	// Name keeps rows whose country name matches, see MatchName.
	Name string
	// Column with Min/Max keeps rows whose numeric value lies in [Min, Max].
	// A nil bound is open.
	Column string
	Min    *float64
	Max    *float64
	SortBy string
	Order  Order
	// Limit keeps the first rows after sorting. Zero keeps all.
	Limit int
}

// Apply runs name filter, range filter, sort and limit, in that order.
func Apply(t *domain.CountryTable, opts Options) (*domain.CountryTable, error) {
	out := t
	if opts.Name != "" {
		out = MatchName(out, opts.Name)
	}
	if opts.Column != "" {
		lo, hi := math.Inf(-1), math.Inf(1)
		if opts.Min != nil {
			lo = *opts.Min
		}
		if opts.Max != nil {
			hi = *opts.Max
		}
		var err error
		if out, err = FilterRange(out, opts.Column, lo, hi); err != nil {
			return nil, err
		}
	}
	if opts.SortBy != "" {
		var err error
		if out, err = Sort(out, opts.SortBy, opts.Order); err != nil {
			return nil, err
		}
	}
	if opts.Limit > 0 {
		out = Head(out, opts.Limit)
	}
	return out, nil
}

// Sort returns a stably sorted copy of t ordered by column.
func Sort(t *domain.CountryTable, column string, order Order) (*domain.CountryTable, error) {
	col, ok := domain.LookupColumn(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	var compare func(a, b domain.CountryRow) int
	if col.Numeric() {
		compare = func(a, b domain.CountryRow) int {
			x, _ := a.Number(col.Name)
			y, _ := b.Number(col.Name)
			return cmp.Compare(x, y)
		}
	} else {
		compare = func(a, b domain.CountryRow) int {
			x, _ := a.Text(col.Name)
			y, _ := b.Text(col.Name)
			return strings.Compare(x, y)
		}
	}
	if order == Descending {
		asc := compare
		compare = func(a, b domain.CountryRow) int { return asc(b, a) }
	}

	rows := t.Rows()
	slices.SortStableFunc(rows, compare)
	return t.Derive(rows), nil
}

// FilterRange keeps rows whose numeric column value lies in [min, max].
func FilterRange(t *domain.CountryTable, column string, min, max float64) (*domain.CountryTable, error) {
	col, err := numericColumn(column)
	if err != nil {
		return nil, err
	}
	var rows []domain.CountryRow
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		v, _ := r.Number(col.Name)
		if v >= min && v <= max {
			rows = append(rows, r)
		}
	}
	return t.Derive(rows), nil
}

// MatchName keeps rows whose country name contains q (case-insensitive) or is
// within min(len(q)/4, 2) edits of it, so "Germny" still finds Germany while
// short queries match only as substrings.
func MatchName(t *domain.CountryTable, q string) *domain.CountryTable {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return t
	}
	maxDist := min(utf8.RuneCountInString(q)/4, 2)

	var rows []domain.CountryRow
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		name := strings.ToLower(r.CountryName)
		if strings.Contains(name, q) || (maxDist > 0 && levenshtein.ComputeDistance(q, name) <= maxDist) {
			rows = append(rows, r)
		}
	}
	return t.Derive(rows)
}

// Head returns the first n rows.
func Head(t *domain.CountryTable, n int) *domain.CountryTable {
	rows := t.Rows()
	if n < len(rows) {
		rows = rows[:max(n, 0)]
	}
	return t.Derive(rows)
}

func numericColumn(name string) (domain.Column, error) {
	col, ok := domain.LookupColumn(name)
	if !ok {
		return domain.Column{}, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	if !col.Numeric() {
		return domain.Column{}, fmt.Errorf("%w: %s", ErrNotNumeric, name)
	}
	return col, nil
}

// Values extracts a numeric column in row order.
func Values(t *domain.CountryTable, column string) ([]float64, error) {
	col, err := numericColumn(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, t.Len())
	for i := range out {
		out[i], _ = t.Row(i).Number(col.Name)
	}
	return out, nil
}
