// Package config loads the watcher configuration.
//
// Values are resolved in this order, later sources winning:
//
//   - built-in defaults
//   - a .env file (ENV_FILE, default ".env")
//   - a YAML file named by CONFIG_FILE
//   - environment variables
//
// # Environment Variables
//
// ## Source
//   - SOURCE_URL: listing page to watch (default: Maltepe University announcements)
//   - BASE_URL: base for resolving relative links (default: scheme+host of SOURCE_URL)
//   - FETCH_STRATEGY: static, flaresolverr or browser (default: static)
//   - FETCH_TIMEOUT: per-attempt timeout (default: 20s)
//   - FETCH_RETRIES: attempts before giving up (default: 3)
//   - FETCH_RETRY_DELAY: base delay, multiplied by the attempt number (default: 2s)
//   - FLARESOLVERR_URL: FlareSolverr v1 endpoint (default: http://localhost:8191/v1)
//   - BROWSER_HEADLESS: run the browser fetcher headless (default: true)
//
// ## State
//   - SNAPSHOT_PATH: last-seen snapshot file (default: last_announcements.json)
//   - DEBUG_PAGE_PATH: raw page dump on parse failure (default: debug_page.html)
//   - IDENTITY_KEY: title or link (default: title)
//
// ## Matching
//   - KEYWORDS: comma-separated keywords (default: alınacaktır)
//   - KEYWORD_LANGUAGE: BCP 47 tag used for case folding (default: tr)
//
// ## Logging
//   - LOG_LEVEL: zerolog level (default: info)
//   - LOG_FILE: additional JSON log file, empty disables (default: duyuru.log)
//
// ## Notification
//   - EMAIL_ENABLED, SMTP_SERVER, SMTP_PORT, SMTP_USER, SMTP_PASS, FROM_EMAIL, TO_EMAIL
//   - TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID
//   - GEMINI_API_KEY, GEMINI_MODEL
//
// ## Integrations
//   - REDIS_ADDR, REDIS_DB, REDIS_STREAM: publish new announcements to a stream
//   - MEMCACHE_ADDR, RATE_LIMIT_BLOCK: skip runs while the source is rate limiting us
//   - TRACING_ENABLED, TRACING_ENDPOINT: OTLP gRPC trace export
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/annwatch/internal/filter"
	"github.com/shanehull/annwatch/internal/types"
)

const (
	DefaultSourceURL = "https://www.maltepe.edu.tr/tr/duyuru-listesi"
	DefaultKeyword   = "alınacaktır"
)

type Config struct {
	SourceURL       string               `yaml:"source_url" validate:"required,url"`
	BaseURL         string               `yaml:"base_url" validate:"omitempty,url"`
	SnapshotPath    string               `yaml:"snapshot_path" validate:"required"`
	DebugPagePath   string               `yaml:"debug_page_path"`
	IdentityKey     types.IdentityKey    `yaml:"identity_key" validate:"oneof=title link"`
	Keywords        []string             `yaml:"keywords"`
	KeywordLanguage string               `yaml:"keyword_language" validate:"required,bcp47_language_tag"`
	Selectors       []types.SelectorRule `yaml:"selectors" validate:"min=1,dive"`
	LogLevel        string               `yaml:"log_level"`
	LogFile         string               `yaml:"log_file"`
	DryRun          bool                 `yaml:"dry_run"`

	Fetch    FetchConfig    `yaml:"fetch"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
	AI       AIConfig       `yaml:"ai"`
	Redis    RedisConfig    `yaml:"redis"`
	Memcache MemcacheConfig `yaml:"memcache"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type FetchConfig struct {
	Strategy        string        `yaml:"strategy" validate:"oneof=static flaresolverr browser"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	Retries         int           `yaml:"retries" validate:"min=1,max=10"`
	RetryDelay      time.Duration `yaml:"retry_delay" validate:"gte=0"`
	UserAgent       string        `yaml:"user_agent"`
	FlareSolverrURL string        `yaml:"flaresolverr_url" validate:"omitempty,url"`
	BrowserHeadless bool          `yaml:"browser_headless"`
}

// EmailConfig holds SMTP configuration for sending emails.
type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server" validate:"required_if=Enabled true"`
	SMTPPort   int    `yaml:"smtp_port" validate:"min=0,max=65535"`
	SMTPUser   string `yaml:"smtp_user" validate:"required_if=Enabled true"`
	SMTPPass   string `yaml:"smtp_pass" validate:"required_if=Enabled true"`
	FromEmail  string `yaml:"from_email" validate:"omitempty,email"`
	ToEmail    string `yaml:"to_email" validate:"required_if=Enabled true"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type AIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

func (a AIConfig) Enabled() bool {
	return a.APIKey != ""
}

type RedisConfig struct {
	Addr   string `yaml:"addr"`
	DB     int    `yaml:"db" validate:"min=0"`
	Stream string `yaml:"stream"`
}

type MemcacheConfig struct {
	Addr      string        `yaml:"addr"`
	BlockTime time.Duration `yaml:"block_time" validate:"gte=0"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"`
}

// DefaultSelectors is the fallback chain tried against the listing page, in order.
func DefaultSelectors() []types.SelectorRule {
	return []types.SelectorRule{
		{Item: "div.page-announcement-list div.item", Title: ".has-title", Link: "a"},
		{Item: "div.page-announcement-list div.announcement-item", Title: "h3", Link: "a"},
		{Item: "div.announcement-list div.announcement-item", Title: "h3", Link: "a"},
		{Item: "a.announcement-item-link", Title: "h3"},
	}
}

func Default() *Config {
	return &Config{
		SourceURL:       DefaultSourceURL,
		SnapshotPath:    "last_announcements.json",
		DebugPagePath:   "debug_page.html",
		IdentityKey:     types.IdentityTitle,
		Keywords:        []string{DefaultKeyword},
		KeywordLanguage: "tr",
		Selectors:       DefaultSelectors(),
		LogLevel:        "info",
		LogFile:         "duyuru.log",
		Fetch: FetchConfig{
			Strategy:        "static",
			Timeout:         20 * time.Second,
			Retries:         3,
			RetryDelay:      2 * time.Second,
			FlareSolverrURL: "http://localhost:8191/v1",
			BrowserHeadless: true,
		},
		Email: EmailConfig{
			SMTPServer: "smtp.gmail.com",
			SMTPPort:   587,
		},
		AI: AIConfig{
			Model: "gemini-2.5-flash",
		},
		Redis: RedisConfig{
			Stream: "annwatch:new",
		},
		Memcache: MemcacheConfig{
			BlockTime: 10 * time.Minute,
		},
		Tracing: TracingConfig{
			Endpoint: "localhost:4317",
		},
	}
}

// Load resolves the configuration from .env, the optional YAML file named by
// CONFIG_FILE and the environment, then validates it. overrides run after the
// environment is applied, which is where command line flags come in.
func Load(overrides ...func(*Config)) (*Config, error) {
	return LoadFile("", overrides...)
}

// LoadFile is Load with an explicit YAML path. An empty path falls back to
// CONFIG_FILE.
func LoadFile(path string, overrides ...func(*Config)) (*Config, error) {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	cfg.Finalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.SourceURL = getEnv("SOURCE_URL", c.SourceURL)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.SnapshotPath = getEnv("SNAPSHOT_PATH", c.SnapshotPath)
	c.DebugPagePath = getEnv("DEBUG_PAGE_PATH", c.DebugPagePath)
	c.KeywordLanguage = getEnv("KEYWORD_LANGUAGE", c.KeywordLanguage)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvAllowEmpty("LOG_FILE", c.LogFile)
	c.DryRun = getEnvAsBool("DRY_RUN", c.DryRun)

	if v := os.Getenv("KEYWORDS"); v != "" {
		c.Keywords = filter.ParseKeywords(v)
	}
	if v := os.Getenv("IDENTITY_KEY"); v != "" {
		key, err := types.ParseIdentityKey(v)
		if err != nil {
			return fmt.Errorf("invalid IDENTITY_KEY: %w", err)
		}
		c.IdentityKey = key
	}

	c.Fetch.Strategy = strings.ToLower(getEnv("FETCH_STRATEGY", c.Fetch.Strategy))
	c.Fetch.Timeout = getEnvAsDuration("FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.Retries = getEnvAsInt("FETCH_RETRIES", c.Fetch.Retries)
	c.Fetch.RetryDelay = getEnvAsDuration("FETCH_RETRY_DELAY", c.Fetch.RetryDelay)
	c.Fetch.UserAgent = getEnv("FETCH_USER_AGENT", c.Fetch.UserAgent)
	c.Fetch.FlareSolverrURL = getEnv("FLARESOLVERR_URL", c.Fetch.FlareSolverrURL)
	c.Fetch.BrowserHeadless = getEnvAsBool("BROWSER_HEADLESS", c.Fetch.BrowserHeadless)

	c.Email.Enabled = getEnvAsBool("EMAIL_ENABLED", c.Email.Enabled)
	c.Email.SMTPServer = getEnv("SMTP_SERVER", c.Email.SMTPServer)
	c.Email.SMTPPort = getEnvAsInt("SMTP_PORT", c.Email.SMTPPort)
	c.Email.SMTPUser = getEnv("SMTP_USER", c.Email.SMTPUser)
	c.Email.SMTPPass = getEnv("SMTP_PASS", c.Email.SMTPPass)
	c.Email.FromEmail = getEnv("FROM_EMAIL", c.Email.FromEmail)
	c.Email.ToEmail = getEnv("TO_EMAIL", c.Email.ToEmail)

	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}

	c.AI.APIKey = getEnv("GEMINI_API_KEY", c.AI.APIKey)
	c.AI.Model = getEnv("GEMINI_MODEL", c.AI.Model)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Stream = getEnv("REDIS_STREAM", c.Redis.Stream)

	c.Memcache.Addr = getEnv("MEMCACHE_ADDR", c.Memcache.Addr)
	c.Memcache.BlockTime = getEnvAsDuration("RATE_LIMIT_BLOCK", c.Memcache.BlockTime)

	c.Tracing.Enabled = getEnvAsBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("TRACING_ENDPOINT", c.Tracing.Endpoint)

	return nil
}

// Finalize fills values derived from other fields. It is safe to call more than once.
func (c *Config) Finalize() {
	if c.BaseURL == "" {
		if u, err := url.Parse(c.SourceURL); err == nil && u.Scheme != "" && u.Host != "" {
			c.BaseURL = u.Scheme + "://" + u.Host
		}
	}
	if c.Email.FromEmail == "" && c.Email.SMTPUser != "" {
		c.Email.FromEmail = c.Email.SMTPUser
	}
	if len(c.Selectors) == 0 {
		c.Selectors = DefaultSelectors()
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty lets a variable that is set but empty clear the default.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
