package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	GenAI   GenAIConfig
	Catalog CatalogConfig
	Matcher MatcherConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type GenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout string
}

type CatalogConfig struct {
	Path        string
	FallbackTag string
}

type MatcherConfig struct {
	Cutoff float64
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 5000,
		},
		GenAI: GenAIConfig{
			Model:   "gemini-2.0-flash",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: "30s",
		},
		Catalog: CatalogConfig{
			Path:        "intents.json",
			FallbackTag: "unrecognized",
		},
		Matcher: MatcherConfig{
			Cutoff: 0.6,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/intentd/config.json, then applies INTENTD_*
// environment overrides on top.
//
// The API key is never stored in the config file; it comes from
// INTENTD_GENAI_API_KEY, or from the legacy GENAI_API_KEY variable
// when the former is unset. A missing key is not an error: the
// server starts with the generative fallback disabled.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.GenAI.APIKey == "" {
		if key := os.Getenv("GENAI_API_KEY"); key != "" {
			cfg.GenAI.APIKey = key
		}
	}

	return cfg, nil
}

// GenAITimeout parses the configured request timeout, falling back to
// 30 seconds when the value does not parse.
func (c Config) GenAITimeout() time.Duration {
	d, err := time.ParseDuration(c.GenAI.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SlogLevel maps the configured log level name to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
