package collector

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"StockDash/internal/frame"
	"StockDash/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV // returned as-is when non-nil
	Err   error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many times FetchBars has been invoked.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, start, end time.Time, interval string) ([]model.OHLCV, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	price := m.Price
	if price == 0 {
		price = 100
	}
	return generateMockBars(price, mockTimes(start, end, interval)), nil
}

const maxMockBars = 5000

// mockTimes lists bar times in [start, end) at the given interval, skipping weekends.
func mockTimes(start, end time.Time, interval string) []time.Time {
	next := func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	switch interval {
	case "1m":
		next = func(t time.Time) time.Time { return t.Add(time.Minute) }
	case "5m":
		next = func(t time.Time) time.Time { return t.Add(5 * time.Minute) }
	case "15m":
		next = func(t time.Time) time.Time { return t.Add(15 * time.Minute) }
	case "30m":
		next = func(t time.Time) time.Time { return t.Add(30 * time.Minute) }
	case "1h":
		next = func(t time.Time) time.Time { return t.Add(time.Hour) }
	case "1wk":
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case "1mo":
		next = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	}
	var times []time.Time
	for t := start; t.Before(end) && len(times) < maxMockBars; t = next(t) {
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		times = append(times, t)
	}
	return times
}

func generateMockBars(basePrice float64, times []time.Time) []model.OHLCV {
	count := len(times)
	bars := make([]model.OHLCV, count)
	for i, ts := range times {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   ts,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector runs one provider fetch per query and shapes the result as a
// provider-style table.
type Collector struct {
	Fetcher Fetcher
	Timeout time.Duration
}

// NewCollector creates a new Collector. A zero timeout disables the per-fetch deadline.
func NewCollector(fetcher Fetcher, timeout time.Duration) *Collector {
	return &Collector{Fetcher: fetcher, Timeout: timeout}
}

func (c *Collector) fetch(ctx context.Context, symbol string, start, end time.Time, interval string) ([]model.OHLCV, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	bars, err := c.Fetcher.FetchBars(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s bars from %s: %w", symbol, interval, c.Fetcher.Name(), err)
	}
	log.Printf("[INFO] fetched %d %s bars for %s from %s", len(bars), interval, symbol, c.Fetcher.Name())
	return bars, nil
}

// Collect fetches the bars a query asks for and returns them with nested
// (field, ticker) column names. An empty result is an empty frame, not an error.
func (c *Collector) Collect(ctx context.Context, q model.Query) (*frame.Frame, error) {
	bars, err := c.fetch(ctx, q.Ticker, q.Start, q.End, q.Interval)
	if err != nil {
		return nil, err
	}
	return frame.FromBars(q.Ticker, bars), nil
}

// LatestSession returns the bars of the most recent trading day at the given interval.
func (c *Collector) LatestSession(ctx context.Context, symbol, interval string, now time.Time) ([]model.OHLCV, error) {
	bars, err := c.fetch(ctx, symbol, now.AddDate(0, 0, -5), now.Add(time.Minute), interval)
	if err != nil || len(bars) == 0 {
		return bars, err
	}
	last := bars[len(bars)-1].Time
	y, m, d := last.Date()
	i := len(bars) - 1
	for i > 0 {
		py, pm, pd := bars[i-1].Time.In(last.Location()).Date()
		if py != y || pm != m || pd != d {
			break
		}
		i--
	}
	return bars[i:], nil
}
