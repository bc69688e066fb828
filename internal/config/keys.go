package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "INTENTD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "genai.api_key", typ: kString, env: "INTENTD_GENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.GenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.APIKey },
	},
	{
		key: "genai.model", typ: kString, env: "INTENTD_GENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.GenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.Model },
	},
	{
		key: "genai.base_url", typ: kString, env: "INTENTD_GENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.GenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.BaseURL },
	},
	{
		key: "genai.timeout", typ: kString, env: "INTENTD_GENAI_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.GenAI.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.Timeout },
	},
	{
		key: "catalog.path", typ: kString, env: "INTENTD_CATALOG_PATH",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.Path },
	},
	{
		key: "catalog.fallback_tag", typ: kString, env: "INTENTD_CATALOG_FALLBACK_TAG",
		apply:   func(cfg *Config, v any) { cfg.Catalog.FallbackTag = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.FallbackTag },
	},
	{
		key: "matcher.cutoff", typ: kFloat, env: "INTENTD_MATCHER_CUTOFF",
		apply:   func(cfg *Config, v any) { cfg.Matcher.Cutoff = v.(float64) },
		extract: func(cfg Config) any { return cfg.Matcher.Cutoff },
	},
	{
		key: "storage.data_dir", typ: kString, env: "INTENTD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "INTENTD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
