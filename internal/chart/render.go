package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

var (
	barColor   = color.RGBA{R: 0x4c, G: 0x78, B: 0xa8, A: 0xff}
	lineColor  = color.RGBA{R: 0x4c, G: 0x78, B: 0xa8, A: 0xff}
	pointColor = color.RGBA{R: 0xf5, G: 0x85, B: 0x18, A: 0xb4}
)

const (
	barWidth     = vg.Length(3)
	lineWidth    = vg.Length(1.5)
	pointRadius  = vg.Length(3)
	markerRadius = 5.0
)

// Marker locates one plotted point on the rendered figure, in points from
// the top-left corner, so pages can attach hover labels.
type Marker struct {
	X, Y  float64
	R     float64
	Label string
}

// Figure is a chart rendered as SVG.
type Figure struct {
	Width, Height float64
	SVG           []byte
	Markers       []Marker
	// Empty is set when there are no points; SVG is nil then.
	Empty bool
}

// Render draws c as a width x height SVG.
func Render(c *Chart, width, height vg.Length) (*Figure, error) {
	fig := &Figure{Width: width.Points(), Height: height.Points()}
	if len(c.Points) == 0 {
		fig.Empty = true
		return fig, nil
	}

	p, err := newPlot(c)
	if err != nil {
		return nil, err
	}

	canvas := vgsvg.New(width, height)
	dc := draw.New(canvas)
	p.Draw(dc)

	data := p.DataCanvas(dc)
	trX, trY := p.Transforms(&data)
	fig.Markers = make([]Marker, len(c.Points))
	for i, pt := range c.Points {
		fig.Markers[i] = Marker{
			X:     trX(pt.X).Points(),
			Y:     fig.Height - trY(pt.Y).Points(),
			R:     markerRadius,
			Label: pt.Label,
		}
	}

	var buf bytes.Buffer
	if _, err := canvas.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write svg: %w", err)
	}
	fig.SVG = buf.Bytes()
	return fig, nil
}

// newPlot builds the gonum plot for c. Bars stand at their X value; the value
// axis of bar and line charts includes zero.
func newPlot(c *Chart) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = c.X
	p.Y.Label.Text = c.Y
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(c.Points))
	for i, pt := range c.Points {
		xys[i].X, xys[i].Y = pt.X, pt.Y
	}

	switch c.Type {
	case Bar:
		for _, pt := range c.Points {
			bar, err := plotter.NewBarChart(plotter.Values{pt.Y}, barWidth)
			if err != nil {
				return nil, fmt.Errorf("failed to build bar for %s: %w", pt.Label, err)
			}
			bar.XMin = pt.X
			bar.Color = barColor
			bar.LineStyle.Width = 0
			p.Add(bar)
		}
	case Line:
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build line: %w", err)
		}
		line.LineStyle.Color = lineColor
		line.LineStyle.Width = lineWidth
		p.Add(line)
	case Scatter:
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build scatter: %w", err)
		}
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = pointRadius
		scatter.GlyphStyle.Color = pointColor
		p.Add(scatter)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, c.Type)
	}

	if c.ZeroBased {
		p.Y.Min = math.Min(p.Y.Min, 0)
		p.Y.Max = math.Max(p.Y.Max, 0)
	}
	widen(&p.X)
	widen(&p.Y)
	return p, nil
}

// widen gives a single-valued axis a unit range around its value.
func widen(a *plot.Axis) {
	if a.Min == a.Max {
		a.Min--
		a.Max++
	}
}
