package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{Backend: BackendConfig{BaseURL: "http://localhost:8000"}}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.HTTP.Port != 8765 || cfg.HTTP.ClientIdleSec != 1800 {
		t.Errorf("http defaults = %+v", cfg.HTTP)
	}
	if cfg.Backend.SearchPath != "/api/search/natural" ||
		cfg.Backend.RAGPath != "/api/rag/stream" ||
		cfg.Backend.AgentPath != "/api/agent/stream" {
		t.Errorf("backend defaults = %+v", cfg.Backend)
	}
	if cfg.Search.PageSize != 20 || cfg.Search.SearchTimeout() != 30*time.Second || cfg.Search.CacheTTL() != 5*time.Minute {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if cfg.History.Capacity != 10 || cfg.History.Slot != "docassist:search_history" || cfg.History.Driver != DriverFile {
		t.Errorf("history defaults = %+v", cfg.History)
	}
	if cfg.Chat.HistoryTurns != 10 || cfg.Chat.StreamTimeout() != 2*time.Minute {
		t.Errorf("chat defaults = %+v", cfg.Chat)
	}
	if cfg.HTTP.WriteTimeoutSec != 0 {
		t.Errorf("write timeout defaulted to %d, want 0", cfg.HTTP.WriteTimeoutSec)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing base url", func(c *Config) { c.Backend.BaseURL = "" }, "backend.base_url is required"},
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "localhost:8000" }, "absolute URL"},
		{"bad path", func(c *Config) { c.Backend.RAGPath = "api/rag" }, "backend.rag_path must start with /"},
		{"port out of range", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"page size too large", func(c *Config) { c.Search.PageSize = 500 }, "search.page_size"},
		{"unknown driver", func(c *Config) { c.History.Driver = "sqlite" }, "history.driver"},
		{"redis without addrs", func(c *Config) { c.History.Driver = DriverRedis }, "history.addrs is required"},
		{"redis with addrs", func(c *Config) {
			c.History.Driver = DriverRedis
			c.History.Addrs = []string{"localhost:6379"}
		}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCASSIST_TEST_URL", "http://backend:9000")
	t.Setenv("DOCASSIST_TEST_EMPTY", "")

	got := string(expandEnvVars([]byte("a: ${DOCASSIST_TEST_URL}\nb: ${DOCASSIST_TEST_EMPTY:-fallback}\nc: ${DOCASSIST_TEST_UNSET}\n")))
	want := "a: http://backend:9000\nb: fallback\nc: \n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("DOCASSIST_TEST_TOKEN", "secret")

	cfg, err := Parse([]byte(`
backend:
  base_url: ${DOCASSIST_TEST_BACKEND:-http://localhost:8000}
  token: ${DOCASSIST_TEST_TOKEN}
search:
  page_size: 50
history:
  driver: memory
auth:
  api_keys: ["k1", "k2"]
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" || cfg.Backend.Token != "secret" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Search.PageSize != 50 || cfg.History.Driver != DriverMemory || len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("backend: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error for missing base_url")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DOCASSIST_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCASSIST_TEST_DOTENV", "")
	os.Unsetenv("DOCASSIST_TEST_DOTENV") //nolint:errcheck // restored by t.Setenv

	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("DOCASSIST_TEST_DOTENV"); got != "from-file" {
		t.Errorf("env = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env: %v", err)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := LoadFile(findConfigPath("local"))
	if err != nil {
		t.Fatalf("config/local.yaml: %v", err)
	}
	if cfg.Backend.BaseURL == "" {
		t.Error("local config has no backend url")
	}
}
