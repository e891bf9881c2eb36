// Package forecast produces the optional projection drawn over a price
// series: a one-step forecast from a model loaded at start, or an
// illustrative seeded random walk.
package forecast

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"StockDash/internal/calculator"
	"StockDash/internal/model"
)

var (
	// ErrModelUnavailable is returned when the model path is requested without a loaded model.
	ErrModelUnavailable = errors.New("forecast model not configured")
	// ErrInsufficientData is returned when the series is shorter than the model window.
	ErrInsufficientData = errors.New("not enough data for model forecast")
)

// Method names reported in model.Forecast.
const (
	MethodModel      = "model"
	MethodRandomWalk = "random_walk"
)

// WalkParams shapes the synthetic random walk.
type WalkParams struct {
	Drift      float64
	Volatility float64
}

// Projector runs either projection path. It is safe for concurrent use once built.
type Projector struct {
	Model  Model
	Scaler *MinMaxScaler
	Walk   WalkParams
}

// NewProjector creates a Projector. model may be nil to disable the model path.
func NewProjector(m Model, scaler *MinMaxScaler, walk WalkParams) *Projector {
	return &Projector{Model: m, Scaler: scaler, Walk: walk}
}

// HasModel reports whether the model path is available.
func (p *Projector) HasModel() bool { return p != nil && p.Model != nil }

// ModelForecast scales the most recent window of values, runs the model and
// returns one forward point dated one interval after the last observation.
func (p *Projector) ModelForecast(points []model.Point, interval string) (*model.Forecast, error) {
	if !p.HasModel() {
		return nil, ErrModelUnavailable
	}
	n := p.Model.WindowSize()
	if len(points) < n {
		return nil, fmt.Errorf("%w: need %d points, have %d", ErrInsufficientData, n, len(points))
	}
	window := p.Scaler.Transform(calculator.PointValues(points[len(points)-n:]))
	scaled, err := p.Model.Predict(window)
	if err != nil {
		return nil, err
	}
	last := points[len(points)-1].Time
	return &model.Forecast{
		Method: MethodModel,
		Points: []model.Point{{Time: NextTime(last, interval), Value: p.Scaler.InverseTransform(scaled)}},
	}, nil
}

// RandomWalkForecast continues the series with a seeded random walk over horizon business days.
func (p *Projector) RandomWalkForecast(points []model.Point, horizon int, seed int64) (*model.Forecast, error) {
	if len(points) == 0 {
		return nil, errors.New("random walk needs at least one point")
	}
	if horizon <= 0 {
		return nil, errors.New("horizon must be positive")
	}
	last := points[len(points)-1]
	return &model.Forecast{
		Method: MethodRandomWalk,
		Points: RandomWalk(last.Value, last.Time, horizon, seed, p.Walk),
	}, nil
}

// RandomWalk generates horizon points after from, one per business day:
// p[i+1] = p[i] * (1 + drift + volatility*Z) with Z standard normal.
// The same inputs always produce the same points.
func RandomWalk(lastValue float64, from time.Time, horizon int, seed int64, params WalkParams) []model.Point {
	rng := rand.New(rand.NewSource(seed))
	points := make([]model.Point, horizon)
	t, v := from, lastValue
	for i := range points {
		t = NextBusinessDay(t)
		v *= 1 + params.Drift + params.Volatility*rng.NormFloat64()
		points[i] = model.Point{Time: t, Value: v}
	}
	return points
}

// NextBusinessDay returns the next Monday-to-Friday calendar day after t, at the same clock time.
func NextBusinessDay(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// NextTime returns the timestamp one bar after t for the given interval.
func NextTime(t time.Time, interval string) time.Time {
	switch interval {
	case "1m":
		return t.Add(time.Minute)
	case "5m":
		return t.Add(5 * time.Minute)
	case "15m":
		return t.Add(15 * time.Minute)
	case "30m":
		return t.Add(30 * time.Minute)
	case "1h":
		return t.Add(time.Hour)
	case "1wk":
		return t.AddDate(0, 0, 7)
	case "1mo":
		return t.AddDate(0, 1, 0)
	}
	return NextBusinessDay(t)
}
