package dashboard

import (
	"context"
	"errors"
	"math"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"StockDash/internal/collector"
	"StockDash/internal/forecast"
	"StockDash/internal/model"
	"StockDash/internal/recorder"
)

type memRecorder struct {
	recorder.NoopRecorder
	mu     sync.Mutex
	events []recorder.QueryEvent
}

func (m *memRecorder) RecordQuery(evt *recorder.QueryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *evt)
	return nil
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func relianceQuery() model.Query {
	return model.Query{
		Ticker:   "RELIANCE.BO",
		Start:    date(2022, 1, 1),
		End:      date(2022, 1, 10),
		Interval: "1d",
		Seed:     42,
		Horizon:  30,
	}
}

func newService(f *collector.MockFetcher, p *forecast.Projector) (*Service, *memRecorder) {
	rec := &memRecorder{}
	return NewService(collector.NewCollector(f, time.Second), p, rec), rec
}

func TestRunStartAfterEndSkipsFetch(t *testing.T) {
	mock := &collector.MockFetcher{Price: 2400}
	svc, rec := newService(mock, nil)

	q := relianceQuery()
	q.Start, q.End = q.End, q.Start
	view, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run returned error for invalid input: %v", err)
	}
	if view.Error == "" {
		t.Fatal("expected a validation error in the view")
	}
	if mock.Calls() != 0 {
		t.Errorf("fetcher called %d times, want 0", mock.Calls())
	}
	if view.HasChart() || len(view.Rows) != 0 {
		t.Error("invalid query should not produce a chart or table")
	}
	if len(rec.events) != 1 || rec.events[0].Error == "" {
		t.Errorf("recorded events = %+v", rec.events)
	}
}

func TestRunEqualDatesIsInvalid(t *testing.T) {
	mock := &collector.MockFetcher{}
	svc, _ := newService(mock, nil)
	q := relianceQuery()
	q.End = q.Start
	view, err := svc.Run(context.Background(), q)
	if err != nil || view.Error == "" {
		t.Fatalf("Run = %+v, %v; want validation error", view, err)
	}
	if mock.Calls() != 0 {
		t.Errorf("fetcher called %d times", mock.Calls())
	}
}

func TestRunEmptyTicker(t *testing.T) {
	mock := &collector.MockFetcher{}
	svc, _ := newService(mock, nil)
	q := relianceQuery()
	q.Ticker = "   "
	view, err := svc.Run(context.Background(), q)
	if err != nil || view.Error == "" {
		t.Fatalf("Run = %+v, %v; want validation error", view, err)
	}
	if mock.Calls() != 0 {
		t.Errorf("fetcher called %d times", mock.Calls())
	}
}

func TestRunEmptyResult(t *testing.T) {
	svc, _ := newService(&collector.MockFetcher{Bars: []model.OHLCV{}}, nil)
	view, err := svc.Run(context.Background(), relianceQuery())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(view.Warnings, []string{WarnNoData}) {
		t.Errorf("Warnings = %v", view.Warnings)
	}
	if view.HasChart() || view.Forecast != nil || view.Error != "" {
		t.Errorf("empty result view = %+v", view)
	}
}

func TestRunReliance(t *testing.T) {
	mock := &collector.MockFetcher{Price: 2400}
	svc, rec := newService(mock, nil)

	view, err := svc.Run(context.Background(), relianceQuery())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(view.Rows) != 5 {
		t.Errorf("rows = %d, want 5", len(view.Rows))
	}
	if len(view.Points) != 5 {
		t.Errorf("points = %d, want 5", len(view.Points))
	}
	if view.Forecast != nil {
		t.Errorf("forecast = %+v, want none", view.Forecast)
	}
	if view.Selected != "Close RELIANCE.BO" {
		t.Errorf("Selected = %q", view.Selected)
	}
	wantCols := []string{"Open RELIANCE.BO", "High RELIANCE.BO", "Low RELIANCE.BO", "Close RELIANCE.BO", "Volume RELIANCE.BO"}
	if !reflect.DeepEqual(view.Columns, wantCols) {
		t.Errorf("Columns = %v", view.Columns)
	}
	if len(view.Volume) != 5 {
		t.Errorf("volume points = %d", len(view.Volume))
	}
	if view.Summary == nil || view.Summary.Last != view.Points[4].Value {
		t.Errorf("Summary = %+v", view.Summary)
	}
	if len(view.Warnings) != 0 {
		t.Errorf("Warnings = %v", view.Warnings)
	}
	if mock.Calls() != 1 {
		t.Errorf("fetcher calls = %d, want 1", mock.Calls())
	}
	if len(rec.events) != 1 || rec.events[0].Rows != 5 || rec.events[0].ID != view.RequestID {
		t.Errorf("recorded = %+v", rec.events)
	}
}

func TestRunNormalizesTicker(t *testing.T) {
	svc, _ := newService(&collector.MockFetcher{}, nil)
	q := relianceQuery()
	q.Ticker = "  reliance.bo "
	view, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Query.Ticker != "RELIANCE.BO" || view.Selected != "Close RELIANCE.BO" {
		t.Errorf("ticker = %q, selected = %q", view.Query.Ticker, view.Selected)
	}
}

func TestRunRandomProjectionDeterministic(t *testing.T) {
	svc, _ := newService(&collector.MockFetcher{Price: 2400}, nil)
	q := relianceQuery()
	q.Projection = model.ProjectionRandom

	a, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.Forecast == nil || len(a.Forecast.Points) != 30 {
		t.Fatalf("forecast = %+v, want 30 points", a.Forecast)
	}
	if !reflect.DeepEqual(a.Forecast, b.Forecast) {
		t.Error("same seed produced different forecasts")
	}
	if !a.Forecast.Points[0].Time.After(a.Points[len(a.Points)-1].Time) {
		t.Error("forecast should start after the last observation")
	}
	if a.RequestID == b.RequestID {
		t.Error("request ids should differ")
	}
}

func TestRunModelProjectionWithoutModel(t *testing.T) {
	svc, _ := newService(&collector.MockFetcher{}, nil)
	q := relianceQuery()
	q.Projection = model.ProjectionModel
	view, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Forecast != nil {
		t.Error("forecast without a model")
	}
	if len(view.Warnings) != 1 || !strings.Contains(view.Warnings[0], "not configured") {
		t.Errorf("Warnings = %v", view.Warnings)
	}
	if !view.HasChart() {
		t.Error("chart should still render")
	}
}

func TestRunModelProjectionShortWindow(t *testing.T) {
	m := &forecast.WindowModel{Window: 10, Weights: make([]float64, 10)}
	svc, _ := newService(&collector.MockFetcher{}, forecast.NewProjector(m, nil, forecast.WalkParams{}))
	q := relianceQuery()
	q.Projection = model.ProjectionModel
	view, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Forecast != nil || len(view.Warnings) != 1 {
		t.Errorf("forecast = %+v, warnings = %v", view.Forecast, view.Warnings)
	}
}

func TestRunModelProjection(t *testing.T) {
	m := &forecast.WindowModel{Window: 3, Weights: []float64{0, 0, 1}}
	svc, _ := newService(&collector.MockFetcher{Price: 100}, forecast.NewProjector(m, nil, forecast.WalkParams{}))
	q := relianceQuery()
	q.Projection = model.ProjectionModel
	view, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Forecast == nil || len(view.Forecast.Points) != 1 {
		t.Fatalf("forecast = %+v", view.Forecast)
	}
	last := view.Points[len(view.Points)-1]
	if got := view.Forecast.Points[0]; math.Abs(got.Value-last.Value) > 1e-9 || !got.Time.Equal(date(2022, 1, 10)) {
		t.Errorf("forecast point = %+v, want %v on 2022-01-10", got, last.Value)
	}
}

func TestRunUnknownColumnFallsBack(t *testing.T) {
	svc, _ := newService(&collector.MockFetcher{}, nil)
	q := relianceQuery()
	q.Column = "Adj Close RELIANCE.BO"
	view, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Selected != "Close RELIANCE.BO" || len(view.Warnings) != 1 {
		t.Errorf("Selected = %q, Warnings = %v", view.Selected, view.Warnings)
	}
}

func TestRunRequestedColumn(t *testing.T) {
	svc, _ := newService(&collector.MockFetcher{}, nil)
	q := relianceQuery()
	q.Column = "High RELIANCE.BO"
	view, err := svc.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Selected != q.Column || len(view.Warnings) != 0 {
		t.Errorf("Selected = %q, Warnings = %v", view.Selected, view.Warnings)
	}
}

func TestRunNoNumericColumns(t *testing.T) {
	nan := math.NaN()
	bars := []model.OHLCV{
		{Time: date(2022, 1, 3), Open: nan, High: nan, Low: nan, Close: nan, Volume: nan},
		{Time: date(2022, 1, 4), Open: nan, High: nan, Low: nan, Close: nan, Volume: nan},
	}
	svc, _ := newService(&collector.MockFetcher{Bars: bars}, nil)
	view, err := svc.Run(context.Background(), relianceQuery())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(view.Warnings, []string{WarnNoNumeric}) {
		t.Errorf("Warnings = %v", view.Warnings)
	}
	if view.HasChart() {
		t.Error("no chart expected")
	}
}

func TestRunFiltersInvalidRows(t *testing.T) {
	bars := []model.OHLCV{
		{Time: date(2022, 1, 4), Open: 1, High: 1, Low: 1, Close: 11, Volume: 5},
		{Time: date(2022, 1, 3), Open: 1, High: 1, Low: 1, Close: 10, Volume: 5},
		{Time: time.Time{}, Open: 1, High: 1, Low: 1, Close: 99, Volume: 5},
		{Time: date(2022, 1, 5), Open: 1, High: 1, Low: 1, Close: math.NaN(), Volume: 5},
	}
	svc, _ := newService(&collector.MockFetcher{Bars: bars}, nil)
	view, err := svc.Run(context.Background(), relianceQuery())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(view.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(view.Rows))
	}
	if len(view.Points) != 2 || view.Points[0].Value != 10 || view.Points[1].Value != 11 {
		t.Errorf("points = %+v", view.Points)
	}
}

func TestRunProviderError(t *testing.T) {
	boom := errors.New("connection reset")
	svc, rec := newService(&collector.MockFetcher{Err: boom}, nil)
	view, err := svc.Run(context.Background(), relianceQuery())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if view != nil {
		t.Errorf("view = %+v, want nil", view)
	}
	if IsInvalid(err) {
		t.Error("provider error must not be reported as invalid input")
	}
	if len(rec.events) != 1 || !strings.Contains(rec.events[0].Error, "connection reset") {
		t.Errorf("recorded = %+v", rec.events)
	}
}

func TestValidate(t *testing.T) {
	q := relianceQuery()
	q.Interval, q.Projection = "", ""
	if err := Validate(&q); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if q.Interval != "1d" || q.Projection != model.ProjectionNone {
		t.Errorf("defaults not applied: %+v", q)
	}

	bad := relianceQuery()
	bad.Interval = "2d"
	if err := Validate(&bad); !IsInvalid(err) {
		t.Errorf("Validate(2d) = %v", err)
	}
	bad = relianceQuery()
	bad.Projection = "lstm"
	if err := Validate(&bad); !IsInvalid(err) {
		t.Errorf("Validate(lstm) = %v", err)
	}
}

func TestParseQuery(t *testing.T) {
	d := Defaults{
		Ticker:     "RELIANCE.BO",
		Start:      date(2022, 1, 1),
		Interval:   "1d",
		Projection: model.ProjectionNone,
		Seed:       42,
		Horizon:    30,
	}
	now := time.Date(2024, 5, 6, 15, 30, 0, 0, time.UTC)

	q, err := ParseQuery(url.Values{}, d, now)
	if err != nil {
		t.Fatalf("ParseQuery defaults: %v", err)
	}
	if q.Ticker != "RELIANCE.BO" || !q.Start.Equal(d.Start) || !q.End.Equal(date(2024, 5, 7)) {
		t.Errorf("defaults = %+v", q)
	}
	if q.Seed != 42 || q.Horizon != 30 || q.Interval != "1d" {
		t.Errorf("defaults = %+v", q)
	}

	v := url.Values{
		"ticker":     {"aapl"},
		"start":      {"2023-01-01"},
		"end":        {"2023-02-01"},
		"interval":   {"1wk"},
		"column":     {"Open AAPL"},
		"projection": {"random"},
		"seed":       {"7"},
		"horizon":    {"5"},
		"tail":       {"10"},
	}
	q, err = ParseQuery(v, d, now)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	want := model.Query{
		Ticker: "aapl", Start: date(2023, 1, 1), End: date(2023, 2, 1), Interval: "1wk",
		Column: "Open AAPL", Projection: model.ProjectionRandom, Seed: 7, Horizon: 5, Tail: 10,
	}
	if !reflect.DeepEqual(q, want) {
		t.Errorf("ParseQuery = %+v, want %+v", q, want)
	}

	for _, bad := range []url.Values{
		{"start": {"01/02/2023"}},
		{"end": {"tomorrow"}},
		{"seed": {"x"}},
		{"horizon": {"0"}},
		{"tail": {"-1"}},
	} {
		if _, err := ParseQuery(bad, d, now); !IsInvalid(err) {
			t.Errorf("ParseQuery(%v) = %v, want invalid", bad, err)
		}
	}

	q, _ = ParseQuery(url.Values{"ticker": {""}}, d, now)
	if q.Ticker != "" {
		t.Errorf("explicit empty ticker replaced by default: %q", q.Ticker)
	}
}
