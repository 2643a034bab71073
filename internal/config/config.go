// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values
// Validate config

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

var webhookSecretRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"

	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"
)

var (
	ErrMissingToken         = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingChatID        = errors.New("TELEGRAM_CHAT_ID is required")
	ErrMissingWebhookURL    = errors.New("TELEGRAM_WEBHOOK_URL is required in webhook mode")
	ErrMissingWebhookSecret = errors.New("TELEGRAM_WEBHOOK_SECRET is required in webhook mode")
)

type Config struct {
	TelegramToken  string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
	TelegramMode   string `yaml:"telegram_mode"`
	WebhookURL     string `yaml:"webhook_url" env:"TELEGRAM_WEBHOOK_URL"`
	WebhookSecret  string `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET"`

	//Matching
	GroqAPIKey string `yaml:"groq_api_key" env:"GROQ_API_KEY"`
	GroqModel  string `yaml:"groq_model"`
	Profile    string `yaml:"profile"`
	MinScore   int    `yaml:"min_score"`
	Prefilter  bool   `yaml:"prefilter"`

	//Feed
	FeedURL           string        `yaml:"feed_url"`
	FeedCount         int           `yaml:"feed_count"`
	FetchMode         string        `yaml:"fetch_mode"`
	Headless          bool          `yaml:"headless"`
	KeepUnknownAuthor bool          `yaml:"keep_unknown_author"`
	Interval          time.Duration `yaml:"interval"`
	SendInterval      time.Duration `yaml:"send_interval"`

	//Storage
	DatabasePath  string        `yaml:"database_path" env:"DATABASE_PATH"`
	DatabaseURL   string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"`
	DisableDedup  bool          `yaml:"disable_dedup"`
	SeenTTL       time.Duration `yaml:"seen_ttl"`

	//Paths
	CookiesPath string `yaml:"cookies_path"`
	CachePath   string `yaml:"cache_path"`
	ResultsDir  string `yaml:"results_dir"`

	//Server and logs
	Port      string `yaml:"port" env:"PORT"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format"`
}

// Load reads .env, then the YAML file at path (CONFIG_PATH or DefaultPath
// when empty), then environment overrides. A missing YAML file is not an
// error; Warnings lists it instead.
func Load(path string) (*Config, []string, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	//Load yaml config
	cfg := &Config{}
	var warnings []string

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		warnings = append(warnings, fmt.Sprintf("could not read %s: %v", path, err))
	case err != nil:
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, warnings, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TELEGRAM_BOT_TOKEN":      &c.TelegramToken,
		"TELEGRAM_WEBHOOK_URL":    &c.WebhookURL,
		"TELEGRAM_WEBHOOK_SECRET": &c.WebhookSecret,
		"GROQ_API_KEY":            &c.GroqAPIKey,
		"DATABASE_PATH":           &c.DatabasePath,
		"DATABASE_URL":            &c.DatabaseURL,
		"REDIS_ADDR":              &c.RedisAddr,
		"REDIS_PASSWORD":          &c.RedisPassword,
		"PORT":                    &c.Port,
		"LOG_LEVEL":               &c.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.TelegramMode == "" {
		c.TelegramMode = TelegramModePolling
	}
	if c.GroqModel == "" {
		c.GroqModel = "llama-3.3-70b-versatile"
	}
	if c.MinScore == 0 {
		c.MinScore = 5
	}
	if c.FeedCount == 0 {
		c.FeedCount = 50
	}
	if c.FetchMode == "" {
		c.FetchMode = FetchModeHTTP
	}
	if c.Interval == 0 {
		c.Interval = 30 * time.Minute
	}
	if c.SendInterval == 0 {
		c.SendInterval = time.Second
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "jobs.db"
	}
	if c.SeenTTL == 0 {
		c.SeenTTL = 30 * 24 * time.Hour
	}
	if c.CookiesPath == "" {
		c.CookiesPath = "cookies.json"
	}
	if c.CachePath == "" {
		c.CachePath = ".cache"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	//Validate required fields
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	if c.TelegramChatID == 0 {
		return ErrMissingChatID
	}

	switch c.FetchMode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		return fmt.Errorf("unknown fetch_mode %q", c.FetchMode)
	}

	switch c.TelegramMode {
	case TelegramModePolling:
	case TelegramModeWebhook:
		if c.WebhookURL == "" {
			return ErrMissingWebhookURL
		}
		if c.WebhookSecret == "" {
			return ErrMissingWebhookSecret
		}
		//Telegram accepts 1-256 characters of A-Z, a-z, 0-9, _ and -
		if !webhookSecretRegex.MatchString(c.WebhookSecret) {
			return errors.New("webhook_secret must be 1-256 characters of A-Z, a-z, 0-9, _ or -")
		}
	default:
		return fmt.Errorf("unknown telegram_mode %q", c.TelegramMode)
	}

	if c.FeedCount < 0 {
		return fmt.Errorf("feed_count must be positive, got %d", c.FeedCount)
	}
	return nil
}
