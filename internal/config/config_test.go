package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mapBackend is a test double for ConfigBackend.
type mapBackend struct {
	data map[string]any
}

func (b mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, nil
	}
	return s, true, nil
}

func (b mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, isInt := v.(int)
	if !isInt {
		return 0, true, nil
	}
	return i, true, nil
}

func (b mapBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b mapBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }
func (b mapBackend) Delete(key string) error          { delete(b.data, key); return nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
	t.Setenv("GENAI_API_KEY", "")
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.GenAI.Model != "gemini-2.0-flash" {
		t.Errorf("GenAI.Model = %q, want %q", cfg.GenAI.Model, "gemini-2.0-flash")
	}
	if cfg.GenAI.BaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("GenAI.BaseURL = %q", cfg.GenAI.BaseURL)
	}
	if cfg.GenAI.APIKey != "" {
		t.Errorf("GenAI.APIKey = %q, want empty", cfg.GenAI.APIKey)
	}
	if cfg.Catalog.Path != "intents.json" {
		t.Errorf("Catalog.Path = %q, want %q", cfg.Catalog.Path, "intents.json")
	}
	if cfg.Catalog.FallbackTag != "unrecognized" {
		t.Errorf("Catalog.FallbackTag = %q, want %q", cfg.Catalog.FallbackTag, "unrecognized")
	}
	if cfg.Matcher.Cutoff != 0.6 {
		t.Errorf("Matcher.Cutoff = %v, want 0.6", cfg.Matcher.Cutoff)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := mapBackend{data: map[string]any{
		"server.port":          8080,
		"genai.model":          "gemini-1.5-pro",
		"catalog.path":         "/etc/intentd/intents.json",
		"catalog.fallback_tag": "noanswer",
		"matcher.cutoff":       "0.75",
		"log.level":            "debug",
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.GenAI.Model != "gemini-1.5-pro" {
		t.Errorf("GenAI.Model = %q", cfg.GenAI.Model)
	}
	if cfg.Catalog.Path != "/etc/intentd/intents.json" {
		t.Errorf("Catalog.Path = %q", cfg.Catalog.Path)
	}
	if cfg.Catalog.FallbackTag != "noanswer" {
		t.Errorf("Catalog.FallbackTag = %q", cfg.Catalog.FallbackTag)
	}
	if cfg.Matcher.Cutoff != 0.75 {
		t.Errorf("Matcher.Cutoff = %v, want 0.75", cfg.Matcher.Cutoff)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTENTD_SERVER_PORT", "9000")
	t.Setenv("INTENTD_MATCHER_CUTOFF", "0.8")
	t.Setenv("INTENTD_GENAI_API_KEY", "env-key")

	b := mapBackend{data: map[string]any{
		"server.port": 8080,
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000 (env over backend)", cfg.Server.Port)
	}
	if cfg.Matcher.Cutoff != 0.8 {
		t.Errorf("Matcher.Cutoff = %v, want 0.8", cfg.Matcher.Cutoff)
	}
	if cfg.GenAI.APIKey != "env-key" {
		t.Errorf("GenAI.APIKey = %q, want %q", cfg.GenAI.APIKey, "env-key")
	}
}

func TestLegacyAPIKeyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENAI_API_KEY", "legacy-key")

	cfg, err := loadWith(mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GenAI.APIKey != "legacy-key" {
		t.Errorf("GenAI.APIKey = %q, want %q", cfg.GenAI.APIKey, "legacy-key")
	}

	// The namespaced variable wins over the legacy one.
	t.Setenv("INTENTD_GENAI_API_KEY", "new-key")
	cfg, err = loadWith(mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GenAI.APIKey != "new-key" {
		t.Errorf("GenAI.APIKey = %q, want %q", cfg.GenAI.APIKey, "new-key")
	}
}

func TestMissingAPIKeyIsNotFatal(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GenAI.APIKey != "" {
		t.Errorf("GenAI.APIKey = %q, want empty", cfg.GenAI.APIKey)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	b := &fileBackend{path: path, data: make(map[string]any)}

	if err := b.SetString("genai.model", "gemini-1.5-flash"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 7000); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	// Reload from disk.
	b2 := &fileBackend{path: path, data: make(map[string]any)}
	b2.load()

	s, ok, err := b2.GetString("genai.model")
	if err != nil || !ok || s != "gemini-1.5-flash" {
		t.Errorf("GetString = (%q, %v, %v), want (%q, true, nil)", s, ok, err, "gemini-1.5-flash")
	}
	i, ok, err := b2.GetInt("server.port")
	if err != nil || !ok || i != 7000 {
		t.Errorf("GetInt = (%d, %v, %v), want (7000, true, nil)", i, ok, err)
	}

	if err := b2.Delete("server.port"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b2.GetInt("server.port"); ok {
		t.Error("key still present after Delete")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config file: %v", err)
	}
	if !strings.Contains(string(data), "gemini-1.5-flash") {
		t.Errorf("config file does not contain written value: %s", data)
	}
}

func TestGenAITimeout(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"garbage", 30 * time.Second},
		{"", 30 * time.Second},
		{"-5s", 30 * time.Second},
	}
	for _, tc := range cases {
		cfg := Config{GenAI: GenAIConfig{Timeout: tc.raw}}
		if got := cfg.GenAITimeout(); got != tc.want {
			t.Errorf("GenAITimeout(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		cfg := Config{Log: LogConfig{Level: tc.raw}}
		if got := cfg.SlogLevel(); got != tc.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestShowAllOmitsSecrets(t *testing.T) {
	cfg := defaults()
	cfg.GenAI.APIKey = "super-secret"

	for _, info := range ShowAll(cfg) {
		if info.Key == "genai.api_key" {
			t.Error("ShowAll includes the secret key")
		}
		if info.Value == "super-secret" {
			t.Errorf("ShowAll leaks the secret via %s", info.Key)
		}
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	if len(keys) == 0 {
		t.Fatal("ValidKeys returned nothing")
	}
	for _, k := range keys {
		if k == "genai.api_key" {
			t.Error("ValidKeys includes the secret key")
		}
	}
}
