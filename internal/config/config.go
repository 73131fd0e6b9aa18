package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries every knob the pipeline, store, and API server need.
// Resolution order: built-in defaults, then the YAML file (if present),
// then environment variables. A `.env` file is loaded into the environment
// first so local development matches production wiring.
type Config struct {
	DBPath          string        `yaml:"db_path"`
	Addr            string        `yaml:"addr"`
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	SlackWebhookURL string        `yaml:"slack_webhook_url"`
	SlackBotToken   string        `yaml:"slack_bot_token"`
	SlackChannel    string        `yaml:"slack_channel"`
	TopItems        int           `yaml:"top_items"`
	MaxAttempts     int           `yaml:"max_attempts"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	FallbackLogPath string        `yaml:"fallback_log_path"`
}

// DefaultFile is looked up in the working directory when no explicit path
// is given.
const DefaultFile = "surf.yaml"

func defaults() Config {
	return Config{
		DBPath:          "surf.db",
		Addr:            ":8080",
		SlackChannel:    "#customer-feedback",
		TopItems:        3,
		MaxAttempts:     3,
		HTTPTimeout:     10 * time.Second,
		FallbackLogPath: "slack_fallback.log",
	}
}

// Load builds a Config. path may be empty, in which case DefaultFile is
// read only if it exists.
func Load(path string) (*Config, error) {
	// best effort; a missing .env is not an error
	_ = godotenv.Load()

	cfg := defaults()

	explicit := path != ""
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// defaults + env only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)

	if cfg.TopItems <= 0 {
		cfg.TopItems = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.DBPath, "SURF_DB_PATH")
	setString(&cfg.Addr, "SURF_ADDR")
	setString(&cfg.Provider, "LLM_PROVIDER")
	setString(&cfg.Model, "LLM_MODEL")
	setString(&cfg.SlackWebhookURL, "SLACK_WEBHOOK_URL")
	setString(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	setString(&cfg.SlackChannel, "SLACK_CHANNEL")
	setString(&cfg.FallbackLogPath, "SURF_FALLBACK_LOG")
	setInt(&cfg.TopItems, "SURF_TOP_ITEMS")
	setInt(&cfg.MaxAttempts, "SURF_MAX_ATTEMPTS")
	if v := os.Getenv("SURF_HTTP_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPTimeout = time.Duration(n) * time.Millisecond
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
