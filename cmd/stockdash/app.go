package main

import (
	"fmt"
	"log"

	"StockDash/internal/collector"
	"StockDash/internal/config"
	"StockDash/internal/dashboard"
	"StockDash/internal/forecast"
	"StockDash/internal/model"
	"StockDash/internal/recorder"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	fetcher  collector.Fetcher
	rec      recorder.Recorder
	svc      *dashboard.Service
	defaults dashboard.Defaults
}

func newApp(cfg *config.Config, withHistory bool) (*app, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if withHistory && cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			rec = sr
		}
	}

	col := collector.NewCollector(fetcher, cfg.FetchTimeout())
	proj := loadProjector(cfg)
	defaults, err := newDefaults(cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		fetcher:  fetcher,
		rec:      rec,
		svc:      dashboard.NewService(col, proj, rec),
		defaults: defaults,
	}, nil
}

func (a *app) Close() error { return a.rec.Close() }

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Proxy), nil
	case "rest":
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy), nil
	case "alpaca":
		return collector.NewAlpacaFetcher(ds.Alpaca.APIKey, ds.Alpaca.APISecret, ds.Alpaca.DataURL, ds.Alpaca.Feed), nil
	case "mock":
		return &collector.MockFetcher{}, nil
	}
	return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
}

// loadProjector loads the model and scaler once. Load failures disable the
// model path; the random walk stays available.
func loadProjector(cfg *config.Config) *forecast.Projector {
	walk := forecast.WalkParams{Drift: cfg.Forecast.Drift, Volatility: cfg.Forecast.Volatility}

	var m forecast.Model
	if path := cfg.Forecast.ModelPath; path != "" {
		wm, err := forecast.LoadModel(path)
		if err != nil {
			log.Printf("[WARN] load model %s: %v, model projection disabled", path, err)
		} else {
			m = wm
			log.Printf("[INFO] model loaded: %s (window %d)", path, wm.WindowSize())
		}
	}

	var scaler *forecast.MinMaxScaler
	if path := cfg.Forecast.ScalerPath; path != "" && m != nil {
		s, err := forecast.LoadScaler(path)
		if err != nil {
			log.Printf("[WARN] load scaler %s: %v, model projection disabled", path, err)
			m = nil
		} else {
			scaler = s
		}
	}
	return forecast.NewProjector(m, scaler, walk)
}

func newDefaults(cfg *config.Config) (dashboard.Defaults, error) {
	start, err := parseDate(cfg.Defaults.Start)
	if err != nil {
		return dashboard.Defaults{}, fmt.Errorf("defaults.start: %w", err)
	}
	return dashboard.Defaults{
		Ticker:     cfg.Defaults.Ticker,
		Start:      start,
		Interval:   cfg.Defaults.Interval,
		Projection: model.ProjectionMode(cfg.Defaults.Projection),
		Seed:       cfg.Defaults.Seed,
		Horizon:    cfg.Defaults.Horizon,
		Tail:       cfg.Defaults.TableRows,
	}, nil
}
