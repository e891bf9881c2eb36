package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"StockDash/internal/collector"
	"StockDash/internal/dashboard"
	"StockDash/internal/forecast"
	"StockDash/internal/model"
	"StockDash/internal/recorder"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

type memRecorder struct {
	recorder.NoopRecorder
	snaps []recorder.Snapshot
}

func (m *memRecorder) RecordSnapshot(s *recorder.Snapshot) error {
	m.snaps = append(m.snaps, *s)
	return nil
}

var fixedNow = time.Date(2024, 5, 7, 15, 0, 0, 0, time.UTC)

func sessionBars() []model.OHLCV {
	var bars []model.OHLCV
	for _, day := range []int{6, 7} {
		for m := 0; m < 3; m++ {
			ts := time.Date(2024, 5, day, 14, m, 0, 0, time.UTC)
			p := float64(day*10 + m)
			bars = append(bars, model.OHLCV{Time: ts, Open: p, High: p, Low: p, Close: p, Volume: 100})
		}
	}
	return bars
}

func newTestScheduler(f *collector.MockFetcher, proj *forecast.Projector, watchlist []string) (*Scheduler, *fakeSender, *memRecorder) {
	sender := &fakeSender{}
	rec := &memRecorder{}
	svc := dashboard.NewService(collector.NewCollector(f, time.Second), proj, nil)
	s := NewScheduler(context.Background(), svc, sender, rec, watchlist, "1m")
	s.now = func() time.Time { return fixedNow }
	return s, sender, rec
}

func TestSnapshotTaskRandomWalk(t *testing.T) {
	s, sender, rec := newTestScheduler(&collector.MockFetcher{Bars: sessionBars()}, nil, []string{"aapl", "msft"})
	s.RunSnapshotNow()

	if len(rec.snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(rec.snaps))
	}
	snap := rec.snaps[0]
	if snap.Ticker != "AAPL" || snap.LastPrice != 72 || snap.Method != forecast.MethodRandomWalk {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Forecast <= 0 {
		t.Errorf("forecast = %v", snap.Forecast)
	}
	if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "AAPL: 72.00") {
		t.Errorf("sent = %v", sender.texts)
	}
}

func TestSnapshotUsesModel(t *testing.T) {
	m := &forecast.WindowModel{Window: 3, Weights: []float64{0, 0, 1}, Bias: 1}
	proj := forecast.NewProjector(m, nil, forecast.WalkParams{})
	s, _, rec := newTestScheduler(&collector.MockFetcher{Bars: sessionBars()}, proj, []string{"AAPL"})

	snaps, failed := s.Snapshot(context.Background())
	if len(failed) != 0 || len(snaps) != 1 {
		t.Fatalf("snaps = %v, failed = %v", snaps, failed)
	}
	if snaps[0].Method != forecast.MethodModel || snaps[0].Forecast != 73 {
		t.Errorf("snapshot = %+v, want model forecast 73", snaps[0])
	}
	if len(rec.snaps) != 1 {
		t.Errorf("recorded = %d", len(rec.snaps))
	}
}

func TestSnapshotFailures(t *testing.T) {
	s, _, _ := newTestScheduler(&collector.MockFetcher{Bars: []model.OHLCV{}}, nil, []string{"AAPL"})
	snaps, failed := s.Snapshot(context.Background())
	if len(snaps) != 0 || len(failed) != 1 || failed[0] != "AAPL" {
		t.Errorf("snaps = %v, failed = %v", snaps, failed)
	}

	s, _, _ = newTestScheduler(&collector.MockFetcher{Err: errors.New("down")}, nil, []string{"AAPL"})
	if _, failed := s.Snapshot(context.Background()); len(failed) != 1 {
		t.Errorf("failed = %v", failed)
	}
}

func TestRegister(t *testing.T) {
	s, _, _ := newTestScheduler(&collector.MockFetcher{}, nil, nil)
	if err := s.Register("0 */5 * * * *"); err != nil {
		t.Fatalf("Register empty watchlist: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}

	s, _, _ = newTestScheduler(&collector.MockFetcher{}, nil, []string{"AAPL"})
	if err := s.Register("0 */5 * * * *"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
	if err := s.Register("not a cron"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newTestScheduler(&collector.MockFetcher{Price: 150}, nil, []string{"AAPL"})
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/forecast aapl")
	if !strings.Contains(reply, "<b>AAPL</b>") || !strings.Contains(reply, "random_walk") {
		t.Errorf("/forecast reply = %s", reply)
	}

	if reply := s.HandleCommand(ctx, "/forecast@StockDashBot"); !strings.Contains(reply, "Usage") {
		t.Errorf("/forecast without ticker = %s", reply)
	}

	if reply := s.HandleCommand(ctx, "/snapshot"); !strings.Contains(reply, "snapshot") {
		t.Errorf("/snapshot reply = %s", reply)
	}

	for _, cmd := range []string{"", "hello", "/help"} {
		if reply := s.HandleCommand(ctx, cmd); !strings.Contains(reply, "/forecast") {
			t.Errorf("HandleCommand(%q) = %s, want help", cmd, reply)
		}
	}
}

func TestHandleCommandProviderError(t *testing.T) {
	s, _, _ := newTestScheduler(&collector.MockFetcher{Err: errors.New("down")}, nil, nil)
	if reply := s.HandleCommand(context.Background(), "/forecast tsla"); !strings.Contains(reply, "TSLA: data provider error") {
		t.Errorf("reply = %s", reply)
	}
}

func TestHandleCommandEscapesTicker(t *testing.T) {
	s, _, _ := newTestScheduler(&collector.MockFetcher{Err: errors.New("down")}, nil, nil)
	reply := s.HandleCommand(context.Background(), "/forecast <b>&x")
	if strings.Contains(reply, "<B>") {
		t.Errorf("reply carries raw markup: %s", reply)
	}
	if !strings.Contains(reply, "&lt;B&gt;&amp;X: data provider error") {
		t.Errorf("reply = %s", reply)
	}
}
