// internal/service/render/png.go

package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"mediaintel/internal/domain/dashboard"
)

// ErrEmptyChart is returned when a chart has nothing to draw
var ErrEmptyChart = errors.New("chart has no data")

// Default image size
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

const (
	maxTickLabels  = 12
	maxLabelLength = 24
)

// PNG draws a chart as a PNG image. Pie charts are drawn as labelled bars.
func PNG(chart dashboard.Chart, w io.Writer, width, height vg.Length) error {
	if chart.Empty || !hasPoints(chart.Series) {
		return ErrEmptyChart
	}
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}

	p := plot.New()
	p.Title.Text = chart.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = chart.XLabel
	p.Y.Label.Text = chart.YLabel

	var err error
	switch chart.Kind {
	case dashboard.KindLine, dashboard.KindStackedLine:
		err = drawLines(p, chart)
	case dashboard.KindScatter:
		err = drawScatter(p, chart)
	default:
		err = drawBars(p, chart)
	}
	if err != nil {
		return fmt.Errorf("error drawing %s chart %s: %w", chart.Kind, chart.ID, err)
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("error encoding chart %s: %w", chart.ID, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("error writing chart %s: %w", chart.ID, err)
	}

	return nil
}

func drawBars(p *plot.Plot, chart dashboard.Chart) error {
	points := chart.Series[0].Points

	values := make(plotter.Values, len(points))
	labels := make([]string, len(points))
	for i, pt := range points {
		values[i] = pt.Value
		labels[i] = shorten(pt.Label)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.Add(plotter.NewGrid())
	p.NominalX(labels...)
	if len(labels) > 4 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	if chart.Kind == dashboard.KindPie {
		for i, pt := range points {
			label, err := plotter.NewLabels(plotter.XYLabels{
				XYs:    []plotter.XY{{X: float64(i), Y: pt.Value}},
				Labels: []string{fmt.Sprintf("%.1f%%", pt.Share*100)},
			})
			if err != nil {
				return err
			}
			p.Add(label)
		}
	}

	return nil
}

// drawLines plots each series over the same nominal days. Stacked charts
// accumulate the series in order.
func drawLines(p *plot.Plot, chart dashboard.Chart) error {
	days := chart.Series[0].Points
	running := make([]float64, len(days))

	for i, s := range chart.Series {
		xys := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			y := pt.Value
			if chart.Kind == dashboard.KindStackedLine && j < len(running) {
				running[j] += pt.Value
				y = running[j]
			}
			xys[j] = plotter.XY{X: float64(j), Y: y}
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)

		if len(chart.Series) > 1 {
			p.Legend.Add(s.Name, line)
		}
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	step := 1
	if len(days) > maxTickLabels {
		step = (len(days) + maxTickLabels - 1) / maxTickLabels
	}
	labels := make([]string, len(days))
	for i, pt := range days {
		if i%step == 0 {
			labels[i] = pt.Label
		}
	}
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return nil
}

func drawScatter(p *plot.Plot, chart dashboard.Chart) error {
	points := chart.Series[0].Points
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(4)
	scatter.GlyphStyle.Color = plotutil.Color(1)

	p.Add(scatter)
	p.Add(plotter.NewGrid())

	if e := chart.Extent; e != nil {
		padLng := math.Max((e.MaxLongitude-e.MinLongitude)*0.1, 0.5)
		padLat := math.Max((e.MaxLatitude-e.MinLatitude)*0.1, 0.5)
		p.X.Min, p.X.Max = e.MinLongitude-padLng, e.MaxLongitude+padLng
		p.Y.Min, p.Y.Max = e.MinLatitude-padLat, e.MaxLatitude+padLat
	}

	return nil
}

func hasPoints(series []dashboard.Series) bool {
	for _, s := range series {
		if len(s.Points) > 0 {
			return true
		}
	}
	return false
}

func shorten(label string) string {
	if utf8.RuneCountInString(label) <= maxLabelLength {
		return label
	}
	runes := []rune(label)
	return string(runes[:maxLabelLength-1]) + "…"
}
