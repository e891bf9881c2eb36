// Package dashboard runs one interaction of the stock dashboard: validate the
// query, fetch and normalize the table, select a series, summarize it and
// optionally project it forward.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"StockDash/internal/calculator"
	"StockDash/internal/collector"
	"StockDash/internal/forecast"
	"StockDash/internal/frame"
	"StockDash/internal/model"
	"StockDash/internal/recorder"
)

// Warning texts shown above the chart area.
const (
	WarnNoData    = "No data found for the selected ticker and date range."
	WarnNoNumeric = "No numeric columns available to plot."
)

// View is everything the UI needs to render one interaction.
type View struct {
	RequestID string          `json:"request_id"`
	Query     model.Query     `json:"query"`
	Columns   []string        `json:"columns"`
	Numeric   []string        `json:"numeric_columns"`
	Selected  string          `json:"selected,omitempty"`
	Rows      []model.Row     `json:"rows"`
	Points    []model.Point   `json:"points"`
	Volume    []model.Point   `json:"volume,omitempty"`
	Forecast  *model.Forecast `json:"forecast,omitempty"`
	Summary   *model.Summary  `json:"summary,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Error     string          `json:"error,omitempty"`

	// Frame is the normalized table, kept for export.
	Frame *frame.Frame `json:"-"`
}

// HasChart reports whether there is a series to draw.
func (v *View) HasChart() bool { return len(v.Points) > 0 }

func (v *View) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[WARN] %s: %s", v.Query.Ticker, msg)
	v.Warnings = append(v.Warnings, msg)
}

// Service wires a collector, a projector and a recorder into the update loop.
type Service struct {
	Collector *collector.Collector
	Projector *forecast.Projector
	Recorder  recorder.Recorder
}

// NewService creates a Service. A nil projector allows only the random walk
// with default parameters; a nil recorder disables history.
func NewService(c *collector.Collector, p *forecast.Projector, r recorder.Recorder) *Service {
	if p == nil {
		p = forecast.NewProjector(nil, nil, forecast.WalkParams{Volatility: 0.02})
	}
	if r == nil {
		r = recorder.NewNoopRecorder()
	}
	return &Service{Collector: c, Projector: p, Recorder: r}
}

// Run executes one interaction. Invalid input yields a view with Error set
// and a nil error; provider failures are returned as errors.
func (s *Service) Run(ctx context.Context, q model.Query) (*View, error) {
	view := &View{RequestID: uuid.NewString(), Query: q}

	if err := Validate(&q); err != nil {
		view.Query = q
		view.Error = err.Error()
		s.record(view, err)
		return view, nil
	}
	view.Query = q

	f, err := s.Collector.Collect(ctx, q)
	if err != nil {
		log.Printf("[ERROR] %s: %v", q.Ticker, err)
		s.record(view, err)
		return nil, err
	}
	if f.Empty() {
		view.warn(WarnNoData)
		s.record(view, nil)
		return view, nil
	}

	f.Flatten().Normalize()
	view.Frame = f
	view.Columns = f.Names()
	view.Numeric = f.NumericColumns()
	view.Rows = f.Rows(q.Tail)
	if len(view.Rows) == 0 {
		view.warn(WarnNoData)
		s.record(view, nil)
		return view, nil
	}
	if len(view.Numeric) == 0 {
		view.warn(WarnNoNumeric)
		s.record(view, nil)
		return view, nil
	}

	view.Selected = s.selectColumn(view, f, q.Column)
	if view.Points, err = f.Select(view.Selected); err != nil {
		return nil, fmt.Errorf("select %s: %w", view.Selected, err)
	}
	if name, ok := f.FieldColumn(frame.FieldVolume); ok {
		view.Volume, _ = f.Select(name)
	}
	view.Summary = calculator.Summarize(view.Points)

	s.project(view)
	s.record(view, nil)
	return view, nil
}

func (s *Service) selectColumn(view *View, f *frame.Frame, requested string) string {
	def, _ := f.DefaultColumn()
	if requested == "" {
		return def
	}
	for _, name := range view.Numeric {
		if name == requested {
			return name
		}
	}
	view.warn("Column %q is not available, showing %q.", requested, def)
	return def
}

func (s *Service) project(view *View) {
	q := view.Query
	var (
		fc  *model.Forecast
		err error
	)
	switch q.Projection {
	case model.ProjectionModel:
		fc, err = s.Projector.ModelForecast(view.Points, q.Interval)
	case model.ProjectionRandom:
		fc, err = s.Projector.RandomWalkForecast(view.Points, q.Horizon, q.Seed)
	default:
		return
	}
	if err != nil {
		view.warn("Projection unavailable: %v", err)
		return
	}
	view.Forecast = fc
}

// record writes the interaction to history. Failures are logged, never returned.
func (s *Service) record(view *View, runErr error) {
	if s.Recorder == nil {
		return
	}
	q := view.Query
	evt := &recorder.QueryEvent{
		ID:         view.RequestID,
		Timestamp:  time.Now(),
		Ticker:     q.Ticker,
		Interval:   q.Interval,
		Column:     view.Selected,
		Projection: string(q.Projection),
		Rows:       len(view.Rows),
	}
	if !q.Start.IsZero() {
		evt.Start = q.Start.Format(model.DateLayout)
	}
	if !q.End.IsZero() {
		evt.End = q.End.Format(model.DateLayout)
	}
	if view.Forecast != nil && len(view.Forecast.Points) > 0 {
		last := view.Forecast.Last()
		evt.Forecast = &last
	}
	switch {
	case runErr != nil:
		evt.Error = runErr.Error()
	case len(view.Warnings) > 0:
		evt.Error = view.Warnings[0]
	}
	if err := s.Recorder.RecordQuery(evt); err != nil {
		log.Printf("[WARN] record query %s: %v", view.RequestID, err)
	}
}

// IsInvalid reports whether err is a user input problem.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalidQuery) }
