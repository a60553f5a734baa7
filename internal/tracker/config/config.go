package config

import (
	"fmt"
	"strings"
	"time"

	"golang-microcap-tracker/internal/engine"
	"golang-microcap-tracker/pkg/common"
	"golang-microcap-tracker/pkg/config"

	"github.com/shopspring/decimal"
)

// Storage selects where the portfolio, trades and equity curve live.
type Storage struct {
	Driver     string `mapstructure:"driver"`
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Market selects the price provider.
type Market struct {
	Provider string        `mapstructure:"provider"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Polygon holds the configuration for the Polygon.io daily open/close API.
type Polygon struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// Stooq holds the configuration for the Stooq CSV endpoint.
type Stooq struct {
	BaseURL string `mapstructure:"base_url"`
}

// Alpaca holds the configuration for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Feed      string `mapstructure:"feed"`
}

// AI holds configuration for the decision provider.
type AI struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"`
}

// OpenAI holds the configuration for the OpenAI chat completions API.
type OpenAI struct {
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// News holds the RSS feeds whose headlines are handed to the decision provider.
type News struct {
	Enabled  bool     `mapstructure:"enabled"`
	Feeds    []string `mapstructure:"feeds"`
	MaxItems int      `mapstructure:"max_items"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Engine tunes the portfolio engine.
type Engine struct {
	ZeroPricePolicy      string  `mapstructure:"zero_price_policy"`
	MicroCapThresholdUsd float64 `mapstructure:"micro_cap_threshold_usd"`
	StartingCash         float64 `mapstructure:"starting_cash"`
	RefreshAllPrices     bool    `mapstructure:"refresh_all_prices"`
}

// Options converts the engine section into engine options.
func (e Engine) Options() (engine.Options, error) {
	policy, err := engine.ParseZeroPricePolicy(e.ZeroPricePolicy)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		ZeroPricePolicy:      policy,
		MicroCapThresholdUsd: decimal.NewFromFloat(e.MicroCapThresholdUsd),
		RefreshAllPrices:     e.RefreshAllPrices,
	}, nil
}

// StartingCashDecimal is the cash of a portfolio that has never been saved.
func (e Engine) StartingCashDecimal() decimal.Decimal {
	return decimal.NewFromFloat(e.StartingCash)
}

// Scheduler holds the cron settings used by `serve`.
type Scheduler struct {
	Enabled             bool   `mapstructure:"enabled"`
	Cron                string `mapstructure:"cron"`
	TimeZone            string `mapstructure:"time_zone"`
	DeepResearchWeekday string `mapstructure:"deep_research_weekday"`
}

// Weekday parses DeepResearchWeekday. ok is false when weekly runs are disabled.
func (s Scheduler) Weekday() (day time.Weekday, ok bool, err error) {
	name := strings.TrimSpace(s.DeepResearchWeekday)
	if name == "" || strings.EqualFold(name, "none") {
		return 0, false, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) || strings.EqualFold(d.String()[:3], name) {
			return d, true, nil
		}
	}
	return 0, false, fmt.Errorf("unknown weekday %q", s.DeepResearchWeekday)
}

// Config holds the full configuration for the tracker.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Storage   Storage         `mapstructure:"storage"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	API       config.API      `mapstructure:"api"`
	Market    Market          `mapstructure:"market"`
	Polygon   Polygon         `mapstructure:"polygon"`
	Stooq     Stooq           `mapstructure:"stooq"`
	Alpaca    Alpaca          `mapstructure:"alpaca"`
	AI        AI              `mapstructure:"ai"`
	OpenAI    OpenAI          `mapstructure:"openai"`
	Gemini    Gemini          `mapstructure:"gemini"`
	News      News            `mapstructure:"news"`
	Telegram  Telegram        `mapstructure:"telegram"`
	Engine    Engine          `mapstructure:"engine"`
	Scheduler Scheduler       `mapstructure:"scheduler"`
}

// Defaults are registered before loading so every key can be set through the
// environment alone, e.g. OPENAI_API_KEY or STORAGE_DRIVER.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"app.name":    "microcap-tracker",
		"app.env":     "development",
		"app.version": "0.1.0",

		"logger.level":    "info",
		"logger.encoding": "console",

		"storage.driver":      "csv",
		"storage.data_dir":    "data",
		"storage.sqlite_path": "data/tracker.db",

		"database.host":              "localhost",
		"database.port":              5432,
		"database.user":              "postgres",
		"database.password":          "",
		"database.name":              "microcap_tracker",
		"database.ssl_mode":          "disable",
		"database.time_zone":         "UTC",
		"database.max_idle_conns":    5,
		"database.max_open_conns":    10,
		"database.conn_max_lifetime": "1h",

		"redis.enabled":   false,
		"redis.host":      "localhost",
		"redis.port":      6379,
		"redis.password":  "",
		"redis.db":        0,
		"redis.pool_size": 10,

		"api.host": "0.0.0.0",
		"api.port": 8080,

		"market.provider":  "polygon",
		"market.cache_ttl": "12h",

		"polygon.api_key":                "",
		"polygon.base_url":               "https://api.polygon.io",
		"polygon.max_request_per_minute": 5,

		"stooq.base_url": "https://stooq.com",

		"alpaca.api_key":    "",
		"alpaca.api_secret": "",
		"alpaca.base_url":   "",
		"alpaca.feed":       "iex",

		"ai.enabled":  true,
		"ai.provider": "openai",

		"openai.api_key":                "",
		"openai.model":                  "gpt-4o-mini",
		"openai.base_url":               "https://api.openai.com/v1",
		"openai.timeout":                "90s",
		"openai.max_request_per_minute": 20,
		"openai.max_token_per_minute":   200000,

		"gemini.api_key":                "",
		"gemini.model":                  "gemini-2.0-flash",
		"gemini.base_url":               "",
		"gemini.max_request_per_minute": 10,
		"gemini.max_token_per_minute":   250000,

		"news.enabled":   false,
		"news.feeds":     []string{},
		"news.max_items": 15,

		"telegram.enabled":   false,
		"telegram.bot_token": "",
		"telegram.chat_id":   0,

		"engine.zero_price_policy":       string(engine.ZeroPriceAccept),
		"engine.micro_cap_threshold_usd": float64(common.DefaultMicroCapThresholdUsd),
		"engine.starting_cash":           float64(common.DefaultStartingCash),
		"engine.refresh_all_prices":      true,

		"scheduler.enabled":               true,
		"scheduler.cron":                  "0 6 * * 2-6",
		"scheduler.time_zone":             "America/New_York",
		"scheduler.deep_research_weekday": "friday",
	}
}

// Load loads the tracker configuration from the given path, falling back to
// defaults and environment variables.
func Load(path string) (*Config, error) {
	config.SetDefaults(Defaults())

	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the tracker cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "csv", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.Market.Provider {
	case "polygon", "stooq", "alpaca":
	default:
		return fmt.Errorf("unsupported market provider %q", c.Market.Provider)
	}
	switch c.AI.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported ai provider %q", c.AI.Provider)
	}
	if _, err := c.Engine.Options(); err != nil {
		return err
	}
	if c.Engine.StartingCash < 0 {
		return fmt.Errorf("starting_cash must not be negative")
	}
	if _, _, err := c.Scheduler.Weekday(); err != nil {
		return err
	}
	return nil
}
