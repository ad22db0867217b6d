package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ForecastChart/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Inference  InferenceConfig  `yaml:"inference"`
	Prediction PredictionConfig `yaml:"prediction"`
	Chart      ChartConfig      `yaml:"chart"`
	Server     ServerConfig     `yaml:"server"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Database   DatabaseConfig   `yaml:"database"`
	Session    SessionConfig    `yaml:"session"`
	Log        LogConfig        `yaml:"log"`
	Proxy      string           `yaml:"proxy"`
}

type InferenceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PredictionConfig holds the defaults for one prediction cycle.
type PredictionConfig struct {
	Ticker       string        `yaml:"ticker"`
	Scenario     string        `yaml:"scenario"`
	Model        string        `yaml:"model"`
	ReturnType   string        `yaml:"return_type"`
	LookbackDays int           `yaml:"lookback_days"`
	MinLatency   time.Duration `yaml:"min_latency"`
}

type ChartConfig struct {
	Width       float64       `yaml:"width"`
	Height      float64       `yaml:"height"`
	PixelRatio  float64       `yaml:"pixel_ratio"`
	CandleWidth float64       `yaml:"candle_width"`
	Mode        model.Mode    `yaml:"mode"`
	Format      string        `yaml:"format"`
	Padding     model.Padding `yaml:"padding"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSAllowOrigin string        `yaml:"cors_allow_origin"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Enabled reports whether both the token and the chat are configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type ScheduleConfig struct {
	ForecastCron string   `yaml:"forecast_cron"`
	Tickers      []string `yaml:"tickers"`
}

// DatabaseConfig selects the prediction history backend: sqlite, postgres or none.
type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type SessionConfig struct {
	StateFile string `yaml:"state_file"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	OutputFile  string `yaml:"output_file"`
	Environment string `yaml:"environment"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

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

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("INFERENCE_BASE_URL"); v != "" {
		c.Inference.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CORS_ALLOW_ORIGIN"); v != "" {
		c.Server.CORSAllowOrigin = v
	}
	if v := os.Getenv("DEFAULT_TICKER"); v != "" {
		c.Prediction.Ticker = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Prediction.LookbackDays = n
		}
	}
	if v := os.Getenv("CANDLE_WIDTH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Chart.CandleWidth = f
		}
	}
	if v := os.Getenv("CRON_FORECAST"); v != "" {
		c.Schedule.ForecastCron = v
	}
	if v := os.Getenv("FORECAST_TICKERS"); v != "" {
		c.Schedule.Tickers = splitList(v)
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.PostgresDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Log.Environment = v
	}
}

func (c *Config) applyDefaults() {
	if c.Inference.Timeout == 0 {
		c.Inference.Timeout = 30 * time.Second
	}
	if c.Prediction.Ticker == "" {
		c.Prediction.Ticker = "AAPL"
	}
	if c.Prediction.Scenario == "" {
		c.Prediction.Scenario = "baseline"
	}
	if c.Prediction.Model == "" {
		c.Prediction.Model = "lstm"
	}
	if c.Prediction.ReturnType == "" {
		c.Prediction.ReturnType = "close"
	}
	if c.Prediction.LookbackDays == 0 {
		c.Prediction.LookbackDays = 30
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = 900
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = 420
	}
	if c.Chart.PixelRatio == 0 {
		c.Chart.PixelRatio = 1
	}
	if c.Chart.CandleWidth == 0 {
		c.Chart.CandleWidth = 6
	}
	if c.Chart.Mode == "" {
		c.Chart.Mode = model.ModeCandlestick
	}
	if c.Chart.Format == "" {
		c.Chart.Format = "png"
	}
	if c.Chart.Padding == (model.Padding{}) {
		c.Chart.Padding = model.Padding{Top: 20, Right: 20, Bottom: 30, Left: 50}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.CORSAllowOrigin == "" {
		c.Server.CORSAllowOrigin = "*"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Schedule.ForecastCron == "" {
		c.Schedule.ForecastCron = "0 30 22 * * 1-5"
	}
	if len(c.Schedule.Tickers) == 0 {
		c.Schedule.Tickers = []string{c.Prediction.Ticker}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/forecast_chart.db"
	}
	if c.Session.StateFile == "" {
		c.Session.StateFile = "data/session_state.json"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Inference.BaseURL == "" {
		return fmt.Errorf("inference.base_url is required")
	}
	if c.Prediction.LookbackDays < 1 {
		return fmt.Errorf("prediction.lookback_days must be positive")
	}
	if c.Prediction.MinLatency < 0 {
		return fmt.Errorf("prediction.min_latency must not be negative")
	}
	if !c.Chart.Mode.Valid() {
		return fmt.Errorf("chart.mode %q is invalid", c.Chart.Mode)
	}
	if c.Chart.Format != "png" && c.Chart.Format != "svg" {
		return fmt.Errorf("chart.format %q is invalid", c.Chart.Format)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart.width and chart.height must be positive")
	}
	if c.Chart.CandleWidth <= 0 {
		return fmt.Errorf("chart.candle_width must be positive")
	}
	switch c.Database.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is invalid", c.Database.Driver)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
