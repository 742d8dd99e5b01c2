// Package chart turns two numeric table columns into bar, line and scatter
// chart models and renders them as SVG.
package chart

import (
	"cmp"
	"countrydash/internal/domain"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Type is a chart kind.
type Type string

const (
	Bar     Type = "bar"
	Line    Type = "line"
	Scatter Type = "scatter"
)

// Types lists the supported chart kinds in menu order.
var Types = []Type{Bar, Line, Scatter}

var (
	ErrUnknownType = errors.New("unknown chart type")
	ErrBadAxis     = errors.New("chart axes must be numeric columns")
)

// ParseType validates a chart type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Types, t) {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Point is one plotted value. Label is the country name.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// Chart is a plot of column Y against column X.
type Chart struct {
	Type   Type    `json:"type"`
	X      string  `json:"x"`
	Y      string  `json:"y"`
	Points []Point `json:"points"`
	// ZeroBased is true when the value axis starts at zero.
	ZeroBased bool `json:"zero_based"`
}

// Build creates a chart from two numeric columns. Bar and line charts are
// indexed by X, so their points are ordered by X; scatter keeps row order.
func Build(t *domain.CountryTable, typ Type, x, y string) (*Chart, error) {
	if _, err := ParseType(string(typ)); err != nil {
		return nil, err
	}
	for _, name := range []string{x, y} {
		col, ok := domain.LookupColumn(name)
		if !ok || !col.Numeric() {
			return nil, fmt.Errorf("%w: %q", ErrBadAxis, name)
		}
	}

	points := make([]Point, t.Len())
	for i := range points {
		r := t.Row(i)
		px, _ := r.Number(x)
		py, _ := r.Number(y)
		points[i] = Point{X: px, Y: py, Label: r.CountryName}
	}
	if typ != Scatter {
		slices.SortStableFunc(points, func(a, b Point) int { return cmp.Compare(a.X, b.X) })
	}

	return &Chart{
		Type:      typ,
		X:         x,
		Y:         y,
		Points:    points,
		ZeroBased: typ != Scatter,
	}, nil
}
