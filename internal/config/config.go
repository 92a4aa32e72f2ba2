package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"TailHedge/internal/logging"
	"TailHedge/internal/market"
	"TailHedge/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Provider market.Config      `yaml:"provider"`
	Retry    market.RetryConfig `yaml:"retry"`
	Cache    struct {
		Dir        string `yaml:"dir"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	Upstream struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"upstream"`
	Portfolio struct {
		Value          float64  `yaml:"value"`
		InsuranceRatio float64  `yaml:"insurance_ratio"`
		Regimes        []string `yaml:"regimes"`
	} `yaml:"portfolio"`
	Comparison struct {
		MinRatio   float64 `yaml:"min_ratio"`
		MaxRatio   float64 `yaml:"max_ratio"`
		Steps      int     `yaml:"steps"`
		Iterations int     `yaml:"iterations"`
	} `yaml:"comparison"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Status struct {
		Addr string `yaml:"addr"` // empty disables the status server
	} `yaml:"status"`
	Logging logging.Config `yaml:"logging"`
	Proxy   string         `yaml:"proxy"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Provider: market.DefaultConfig(),
		Retry:    market.DefaultRetryConfig(),
		Logging:  logging.DefaultConfig(),
	}
	cfg.Provider.Seed = 42
	cfg.Cache.Dir = "data/cache"
	cfg.Cache.TTLSeconds = 86400
	cfg.Upstream.RequestsPerSecond = 10
	cfg.Portfolio.Value = 100000
	cfg.Portfolio.InsuranceRatio = 0.01
	cfg.Portfolio.Regimes = []string{string(model.RegimeStable), string(model.RegimeCrash)}
	cfg.Comparison.MinRatio = 0.01
	cfg.Comparison.MaxRatio = 0.03
	cfg.Comparison.Steps = 5
	cfg.Comparison.Iterations = 10
	cfg.Schedule.DailyCron = "0 30 22 * * 1-5"
	cfg.Database.SQLitePath = "data/tail_hedge.db"
	cfg.Status.Addr = "127.0.0.1:9108"
	return cfg
}

// Load reads config from a YAML file on top of the defaults, then applies
// .env and environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	loadDotenv()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotenv reads ENV_FILE, or .env in the working directory. Variables
// already set in the environment win.
func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = godotenv.Load(envFile)
		return
	}
	_ = godotenv.Load(".env")
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HEDGE_TICKER"); v != "" {
		c.Provider.Ticker = v
	}
	if v := os.Getenv("HEDGE_SEED"); v == "random" {
		c.Provider.RandomSeed = true
	} else if v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HEDGE_SEED: %w", err)
		}
		c.Provider.Seed, c.Provider.RandomSeed = seed, false
	}
	if v := os.Getenv("HEDGE_CACHE_TTL"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HEDGE_CACHE_TTL: %w", err)
		}
		c.Cache.TTLSeconds = ttl
	}
	if v := os.Getenv("HEDGE_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("HEDGE_STATUS_ADDR"); ok {
		c.Status.Addr = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	return nil
}

// TelegramEnabled reports whether reports should be sent to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// CacheTTL returns the cache time-to-live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Regimes parses the configured regimes.
func (c *Config) Regimes() ([]model.Regime, error) {
	out := make([]model.Regime, 0, len(c.Portfolio.Regimes))
	for _, s := range c.Portfolio.Regimes {
		r, err := model.ParseRegime(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	if c.Provider.Ticker == "" {
		return fmt.Errorf("provider.ticker is required")
	}
	if c.Provider.RiskFreeRate < 0 {
		return fmt.Errorf("provider.risk_free_rate cannot be negative")
	}
	if c.Provider.TimeToExpiry <= 0 {
		return fmt.Errorf("provider.time_to_expiry must be positive")
	}
	if err := c.Provider.Synthetic.Validate(); err != nil {
		return fmt.Errorf("provider.synthetic: %w", err)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive")
	}
	if c.Retry.MaxRetries < 0 || c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry settings cannot be negative")
	}
	if c.Portfolio.Value < 0 {
		return fmt.Errorf("portfolio.value cannot be negative")
	}
	if c.Portfolio.InsuranceRatio < 0 {
		return fmt.Errorf("portfolio.insurance_ratio cannot be negative")
	}
	if len(c.Portfolio.Regimes) == 0 {
		return fmt.Errorf("portfolio.regimes must list at least one regime")
	}
	if _, err := c.Regimes(); err != nil {
		return fmt.Errorf("portfolio.regimes: %w", err)
	}
	if c.Comparison.MinRatio < 0 || c.Comparison.MaxRatio < 0 {
		return fmt.Errorf("comparison ratios cannot be negative")
	}
	if c.Comparison.MinRatio > c.Comparison.MaxRatio {
		return fmt.Errorf("comparison.min_ratio must not exceed comparison.max_ratio")
	}
	if c.Comparison.Steps < 1 {
		return fmt.Errorf("comparison.steps must be positive")
	}
	if c.Comparison.Iterations < 1 {
		return fmt.Errorf("comparison.iterations must be positive")
	}
	return nil
}
