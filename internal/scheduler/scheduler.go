package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"math"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"StockDash/internal/calculator"
	"StockDash/internal/dashboard"
	"StockDash/internal/model"
	"StockDash/internal/notifier"
	"StockDash/internal/recorder"
)

// errNoData is returned when a watchlist ticker has no recent session.
var errNoData = errors.New("no recent bars")

// Sender delivers notification text.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the periodic watchlist snapshot and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Dashboard *dashboard.Service
	Notifier  Sender // nil disables notifications
	Recorder  recorder.Recorder
	Watchlist []string
	Interval  string
	Defaults  dashboard.Defaults
	Ctx       context.Context

	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *dashboard.Service, tn Sender, rec recorder.Recorder, watchlist []string, interval string) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Dashboard: svc,
		Notifier:  tn,
		Recorder:  rec,
		Watchlist: watchlist,
		Interval:  interval,
		Defaults:  dashboard.Defaults{Seed: 42, Horizon: 5},
		Ctx:       ctx,
		now:       time.Now,
	}
}

// Register adds the snapshot job. An empty watchlist registers nothing.
func (s *Scheduler) Register(snapshotCron string) error {
	if len(s.Watchlist) == 0 {
		log.Println("[INFO] watchlist empty, snapshot job not registered")
		return nil
	}
	if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	log.Printf("[INFO] snapshot job registered (%s) for %s", snapshotCron, strings.Join(s.Watchlist, ","))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunSnapshotNow executes the snapshot job immediately.
func (s *Scheduler) RunSnapshotNow() {
	s.snapshotTask()
}

func (s *Scheduler) snapshotTask() {
	log.Println("[INFO] running watchlist snapshot")
	snaps, failed := s.Snapshot(s.Ctx)
	if len(snaps) == 0 && len(failed) == 0 {
		return
	}
	s.trySend(notifier.FormatSnapshots(snaps, failed, s.now()))
}

// Snapshot evaluates every watchlist ticker, records the results and returns
// them with the tickers that produced no data.
func (s *Scheduler) Snapshot(ctx context.Context) ([]recorder.Snapshot, []string) {
	var (
		snaps  []recorder.Snapshot
		failed []string
	)
	for _, ticker := range s.Watchlist {
		if ctx.Err() != nil {
			break
		}
		snap, err := s.snapshotTicker(ctx, ticker)
		if err != nil {
			log.Printf("[WARN] snapshot %s: %v", ticker, err)
			failed = append(failed, ticker)
			continue
		}
		if err := s.Recorder.RecordSnapshot(snap); err != nil {
			log.Printf("[ERROR] record snapshot %s: %v", ticker, err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, failed
}

func (s *Scheduler) snapshotTicker(ctx context.Context, ticker string) (*recorder.Snapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	bars, err := s.Dashboard.Collector.LatestSession(ctx, ticker, s.Interval, s.now())
	if err != nil {
		return nil, err
	}
	points := barPoints(bars)
	if len(points) == 0 {
		return nil, errNoData
	}

	proj := s.Dashboard.Projector
	var fc *model.Forecast
	if proj.HasModel() {
		fc, err = proj.ModelForecast(points, s.Interval)
		if err != nil {
			log.Printf("[WARN] snapshot %s: model forecast: %v, using random walk", ticker, err)
		}
	}
	if fc == nil {
		if fc, err = proj.RandomWalkForecast(points, 1, s.Defaults.Seed); err != nil {
			return nil, err
		}
	}

	return &recorder.Snapshot{
		Timestamp: s.now(),
		Ticker:    ticker,
		LastPrice: points[len(points)-1].Value,
		Forecast:  fc.Last(),
		Method:    fc.Method,
	}, nil
}

func barPoints(bars []model.OHLCV) []model.Point {
	closes := calculator.ExtractCloses(bars)
	points := make([]model.Point, 0, len(bars))
	for i, c := range closes {
		if bars[i].Time.IsZero() || math.IsNaN(c) {
			continue
		}
		points = append(points, model.Point{Time: bars[i].Time, Value: c})
	}
	return points
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Commands in groups arrive as /cmd@botname.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch name {
	case "/forecast":
		if len(fields) < 2 {
			return "Usage: /forecast &lt;TICKER&gt;"
		}
		return s.forecastReply(ctx, fields[1])
	case "/snapshot":
		snaps, failed := s.Snapshot(ctx)
		return notifier.FormatSnapshots(snaps, failed, s.now())
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) forecastReply(ctx context.Context, ticker string) string {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	mode := model.ProjectionRandom
	if s.Dashboard.Projector.HasModel() {
		mode = model.ProjectionModel
	}
	q := model.Query{
		Ticker:     ticker,
		Start:      today.AddDate(0, -6, 0),
		End:        today.AddDate(0, 0, 1),
		Interval:   "1d",
		Projection: mode,
		Seed:       s.Defaults.Seed,
		Horizon:    s.Defaults.Horizon,
	}
	view, err := s.Dashboard.Run(ctx, q)
	if err != nil {
		return fmt.Sprintf("❌ %s: data provider error", html.EscapeString(strings.ToUpper(ticker)))
	}
	if view.Error != "" {
		return "❌ " + html.EscapeString(view.Error)
	}
	return notifier.FormatForecast(view.Query.Ticker, view.Summary, view.Forecast, view.Warnings, now)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

var _ Sender = (*notifier.TelegramNotifier)(nil)
