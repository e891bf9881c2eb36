// Package chart renders dashboard series as PNG line charts.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"StockDash/internal/model"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no points to plot")

const (
	width  = 10 * vg.Inch
	height = 4 * vg.Inch
)

var (
	seriesColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	forecastColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	volumeColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Series is one line on a chart.
type Series struct {
	Label  string
	Points []model.Point
	Color  color.Color
	Dashed bool
}

// TickFormat returns the time axis label layout for a bar interval.
func TickFormat(interval string) string {
	switch interval {
	case "1m", "5m", "15m", "30m", "1h":
		return "2006-01-02 15:04"
	}
	return model.DateLayout
}

// Render draws every non-empty series on a shared time axis and writes a PNG.
// tickFormat is a time layout for the X axis labels.
func Render(w io.Writer, title, yLabel, tickFormat string, series ...Series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: tickFormat}
	p.Add(plotter.NewGrid())

	drawn := 0
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		line, err := plotter.NewLine(toXYs(s.Points))
		if err != nil {
			return fmt.Errorf("line %q: %w", s.Label, err)
		}
		if s.Color != nil {
			line.Color = s.Color
		}
		if s.Dashed {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(line)
		if s.Label != "" {
			p.Legend.Add(s.Label, line)
		}
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}
	p.Legend.Top = true
	p.Legend.Left = true

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// Price draws the selected column and, when present, a dashed forecast overlay.
func Price(w io.Writer, ticker, column, interval string, points []model.Point, fc *model.Forecast) error {
	series := []Series{{Label: column, Points: points, Color: seriesColor}}
	if fc != nil && len(fc.Points) > 0 && len(points) > 0 {
		// Start the overlay at the last observed point so the lines join.
		overlay := append([]model.Point{points[len(points)-1]}, fc.Points...)
		series = append(series, Series{
			Label:  "Forecast (" + fc.Method + ")",
			Points: overlay,
			Color:  forecastColor,
			Dashed: true,
		})
	}
	return Render(w, ticker, column, TickFormat(interval), series...)
}

// Volume draws traded volume over time.
func Volume(w io.Writer, ticker, interval string, points []model.Point) error {
	return Render(w, ticker+" volume", "Volume", TickFormat(interval), Series{Label: "Volume", Points: points, Color: volumeColor})
}

func toXYs(points []model.Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.Time.Unix())
		xys[i].Y = pt.Value
	}
	return xys
}
