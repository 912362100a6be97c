package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Remote backends
const (
	RemoteDrive = "drive"
	RemoteDir   = "dir"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	FrontendURL     string
	EnableHSTS      bool
	ServerDebugMode bool
	LogFile         string

	StoreBackend string
	StoreDSN     string
	RedisURL     string
	RateLimit    string

	AIProvider      string
	OpenAIKey       string
	AnthropicKey    string
	AIModel         string
	AIBaseURL       string
	AIAssistTimeout time.Duration

	RemoteBackend      string
	RemoteDir          string
	DriveFileName      string
	GoogleClientSecret string

	SyncDebounce       time.Duration
	SyncSuccessDisplay time.Duration
	SyncTimeout        time.Duration

	OTELEnabled  bool
	OTELEndpoint string
}

// AIKey returns the API key of the configured provider
func (c *Config) AIKey() string {
	if c.AIProvider == "anthropic" {
		return c.AnthropicKey
	}
	return c.OpenAIKey
}

// Load loads configuration from environment variables. When WORKFLOW_CONFIG_FILE
// names a YAML file, its values are used for every variable the environment leaves unset.
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv("WORKFLOW_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	src := source{file: file}

	cfg := &Config{
		ServerPort:      src.getEnv("SERVER_PORT", "8080"),
		FrontendURL:     src.getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:      src.getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode: src.getEnvBool("SERVER_DEBUG_MODE", false),
		LogFile:         src.getEnv("LOG_FILE", ""),

		StoreBackend: strings.ToLower(src.getEnv("STORE_BACKEND", "sqlite")),
		StoreDSN:     src.getEnv("STORE_DSN", ""),
		RedisURL:     src.getEnv("REDIS_URL", ""),
		RateLimit:    src.getEnv("RATE_LIMIT", "20-S"),

		AIProvider:      strings.ToLower(src.getEnv("AI_PROVIDER", "openai")),
		OpenAIKey:       src.getEnv("OPENAI_API_KEY", ""),
		AnthropicKey:    src.getEnv("ANTHROPIC_API_KEY", ""),
		AIModel:         src.getEnv("AI_MODEL", ""),
		AIBaseURL:       src.getEnv("AI_BASE_URL", ""),
		AIAssistTimeout: src.getEnvDuration("AI_ASSIST_TIMEOUT", 45*time.Second),

		RemoteBackend:      strings.ToLower(src.getEnv("REMOTE_BACKEND", RemoteDrive)),
		RemoteDir:          src.getEnv("REMOTE_DIR", ""),
		DriveFileName:      src.getEnv("DRIVE_FILE_NAME", "workflow_data.json"),
		GoogleClientSecret: src.getEnv("GOOGLE_CLIENT_SECRET", ""),

		SyncDebounce:       src.getEnvDuration("SYNC_DEBOUNCE", 5*time.Second),
		SyncSuccessDisplay: src.getEnvDuration("SYNC_SUCCESS_DISPLAY", 3*time.Second),
		SyncTimeout:        src.getEnvDuration("SYNC_TIMEOUT", 60*time.Second),

		OTELEnabled:  src.getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint: src.getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	switch cfg.RemoteBackend {
	case RemoteDrive:
	case RemoteDir:
		if cfg.RemoteDir == "" {
			return nil, fmt.Errorf("REMOTE_DIR is required when REMOTE_BACKEND is %q", RemoteDir)
		}
	default:
		return nil, fmt.Errorf("unknown REMOTE_BACKEND %q (expected %q or %q)", cfg.RemoteBackend, RemoteDrive, RemoteDir)
	}

	if cfg.AIProvider != "openai" && cfg.AIProvider != "anthropic" {
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}

	return cfg, nil
}

// loadFile reads a flat YAML mapping of variable names to values
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

// source resolves a variable from the environment first, then the config file
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) getEnvBool(key string, defaultValue bool) bool {
	if value := s.lookup(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (s source) getEnvInt(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") and plain seconds ("5")
func (s source) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs := s.getEnvInt(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
