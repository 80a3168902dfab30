package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// History storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config holds the docassist configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Backend BackendConfig `yaml:"backend"`
	Search  SearchConfig  `yaml:"search"`
	History HistoryConfig `yaml:"history"`
	Chat    ChatConfig    `yaml:"chat"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File  string `yaml:"file"`  // optional rotating log file
}

// AuthConfig holds gateway authentication settings. Empty disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds gateway server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // 0 keeps chat streams open
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	ClientIdleSec   int `yaml:"client_idle_sec"`
}

// BackendConfig points at the document backend.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	SearchPath string `yaml:"search_path"`
	RAGPath    string `yaml:"rag_path"`
	AgentPath  string `yaml:"agent_path"`
	Token      string `yaml:"token"`
	TokenFile  string `yaml:"token_file"`
	// DialTimeoutSec bounds connection setup; request deadlines live in search and chat.
	DialTimeoutSec int `yaml:"dial_timeout_sec"`
}

// SearchConfig holds search orchestrator settings.
type SearchConfig struct {
	PageSize           int  `yaml:"page_size"`
	TimeoutSec         int  `yaml:"timeout_sec"`
	CacheTTLSec        int  `yaml:"cache_ttl_sec"`
	IncludeAttachments bool `yaml:"include_attachments"`
}

// HistoryConfig selects where recent queries are persisted.
type HistoryConfig struct {
	Capacity         int      `yaml:"capacity"`
	Slot             string   `yaml:"slot"`
	Driver           string   `yaml:"driver"` // memory, file, redis (default: file)
	File             string   `yaml:"file"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ChatConfig holds chat panel settings.
type ChatConfig struct {
	HistoryTurns int `yaml:"history_turns"`
	TimeoutSec   int `yaml:"timeout_sec"`
}

// SearchTimeout returns the per-request search deadline.
func (c SearchConfig) SearchTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// CacheTTL returns the result cache lifetime.
func (c SearchConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// StreamTimeout returns the chat stream deadline.
func (c ChatConfig) StreamTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if any, is loaded into the process environment first.
func Load(env string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables in data, decodes it and applies defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads path into the environment without overriding variables already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8765
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.ClientIdleSec <= 0 {
		c.HTTP.ClientIdleSec = 1800
	}
	if c.Backend.SearchPath == "" {
		c.Backend.SearchPath = "/api/search/natural"
	}
	if c.Backend.RAGPath == "" {
		c.Backend.RAGPath = "/api/rag/stream"
	}
	if c.Backend.AgentPath == "" {
		c.Backend.AgentPath = "/api/agent/stream"
	}
	if c.Backend.DialTimeoutSec <= 0 {
		c.Backend.DialTimeoutSec = 5
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 20
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 30
	}
	if c.Search.CacheTTLSec <= 0 {
		c.Search.CacheTTLSec = 300
	}
	if c.History.Capacity <= 0 {
		c.History.Capacity = 10
	}
	if c.History.Slot == "" {
		c.History.Slot = "docassist:search_history"
	}
	if c.History.Driver == "" {
		c.History.Driver = DriverFile
	}
	if c.History.ReadinessTimeout <= 0 {
		c.History.ReadinessTimeout = 10
	}
	if c.Chat.HistoryTurns <= 0 {
		c.Chat.HistoryTurns = 10
	}
	if c.Chat.TimeoutSec <= 0 {
		c.Chat.TimeoutSec = 120
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	for name, p := range map[string]string{
		"search_path": c.Backend.SearchPath,
		"rag_path":    c.Backend.RAGPath,
		"agent_path":  c.Backend.AgentPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("backend.%s must start with /, got %q", name, p)
		}
	}
	if c.Search.PageSize > 100 {
		return fmt.Errorf("search.page_size must be at most 100, got %d", c.Search.PageSize)
	}
	switch c.History.Driver {
	case DriverMemory, DriverFile:
	case DriverRedis:
		if len(c.History.Addrs) == 0 {
			return fmt.Errorf("history.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf(
			"history.driver must be %q, %q or %q, got %q",
			DriverMemory, DriverFile, DriverRedis, c.History.Driver,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
