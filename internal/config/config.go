package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"StockDash/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr         string   `yaml:"addr"`
		GinMode      string   `yaml:"gin_mode"`
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"server"`
	DataSource struct {
		Provider       string `yaml:"provider"` // yahoo | alpaca | rest | mock
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Alpaca         struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
			DataURL   string `yaml:"data_url"`
			Feed      string `yaml:"feed"`
		} `yaml:"alpaca"`
	} `yaml:"data_source"`
	Defaults struct {
		Ticker     string `yaml:"ticker"`
		Start      string `yaml:"start"`
		Interval   string `yaml:"interval"`
		Projection string `yaml:"projection"`
		Horizon    int    `yaml:"horizon"`
		Seed       int64  `yaml:"seed"`
		TableRows  int    `yaml:"table_rows"`
	} `yaml:"defaults"`
	Forecast struct {
		ModelPath  string  `yaml:"model_path"`
		ScalerPath string  `yaml:"scaler_path"`
		Drift      float64 `yaml:"drift"`
		Volatility float64 `yaml:"volatility"`
	} `yaml:"forecast"`
	Schedule struct {
		SnapshotCron string   `yaml:"snapshot_cron"`
		Interval     string   `yaml:"interval"`
		Watchlist    []string `yaml:"watchlist"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("REST_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("REST_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.DataSource.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.DataSource.Alpaca.APISecret = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.Forecast.ModelPath = v
	}
	if v := os.Getenv("SCALER_PATH"); v != "" {
		cfg.Forecast.ScalerPath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("CRON_SNAPSHOT"); v != "" {
		cfg.Schedule.SnapshotCron = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Schedule.Watchlist = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Schedule.Watchlist = append(cfg.Schedule.Watchlist, s)
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8501"
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = "release"
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.TimeoutSeconds == 0 {
		cfg.DataSource.TimeoutSeconds = 30
	}
	if cfg.Defaults.Ticker == "" {
		cfg.Defaults.Ticker = "RELIANCE.BO"
	}
	if cfg.Defaults.Start == "" {
		cfg.Defaults.Start = "2022-01-01"
	}
	if cfg.Defaults.Interval == "" {
		cfg.Defaults.Interval = "1d"
	}
	if cfg.Defaults.Projection == "" {
		cfg.Defaults.Projection = string(model.ProjectionNone)
	}
	if cfg.Defaults.Horizon == 0 {
		cfg.Defaults.Horizon = 30
	}
	if cfg.Defaults.Seed == 0 {
		cfg.Defaults.Seed = 42
	}
	if cfg.Forecast.Volatility == 0 {
		cfg.Forecast.Volatility = 0.02
	}
	if cfg.Schedule.SnapshotCron == "" {
		cfg.Schedule.SnapshotCron = "0 */5 * * * *"
	}
	if cfg.Schedule.Interval == "" {
		cfg.Schedule.Interval = "1m"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stockdash.db"
	}
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	case "alpaca":
		if c.DataSource.Alpaca.APIKey == "" || c.DataSource.Alpaca.APISecret == "" {
			return fmt.Errorf("data_source.alpaca.api_key and api_secret are required for the alpaca provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, alpaca, rest, mock", c.DataSource.Provider)
	}
	if c.DataSource.TimeoutSeconds < 0 {
		return fmt.Errorf("data_source.timeout_seconds must be >= 0")
	}
	if _, err := time.Parse(model.DateLayout, c.Defaults.Start); err != nil {
		return fmt.Errorf("defaults.start must be YYYY-MM-DD: %w", err)
	}
	if !model.ValidInterval(c.Defaults.Interval) {
		return fmt.Errorf("defaults.interval %q is not supported", c.Defaults.Interval)
	}
	if !model.ValidInterval(c.Schedule.Interval) {
		return fmt.Errorf("schedule.interval %q is not supported", c.Schedule.Interval)
	}
	switch model.ProjectionMode(c.Defaults.Projection) {
	case model.ProjectionNone, model.ProjectionModel, model.ProjectionRandom:
	default:
		return fmt.Errorf("defaults.projection %q is not one of none, model, random", c.Defaults.Projection)
	}
	if c.Defaults.Horizon <= 0 {
		return fmt.Errorf("defaults.horizon must be positive")
	}
	if c.Defaults.TableRows < 0 {
		return fmt.Errorf("defaults.table_rows must be >= 0")
	}
	if c.Forecast.Volatility < 0 {
		return fmt.Errorf("forecast.volatility must be >= 0")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// FetchTimeout returns the per-fetch deadline.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSeconds) * time.Second
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
