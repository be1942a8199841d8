package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
	LogLevel    string `json:"log_level"`

	// Protocol
	ServerName      string `json:"server_name"`
	ServerVersion   string `json:"server_version"`
	ProtocolVersion string `json:"protocol_version"`
	DiscoveryPath   string `json:"discovery_path"`
	LegacyPath      string `json:"legacy_path"` // older clients discover and post here
	RPCPath         string `json:"rpc_path"`
	AdvertiseHost   string `json:"advertise_host"`

	KeepAliveInterval int   `json:"keepalive_interval"` // seconds
	ToolCallTimeout   int   `json:"tool_call_timeout"`  // seconds
	MaxBodyBytes      int64 `json:"max_body_bytes"`

	// CORS
	CORSOrigins []string `json:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	// Policies
	PolicyFile         string `json:"policy_file"`
	WatchPolicies      bool   `json:"watch_policies"`
	EnableAuditLogging bool   `json:"enable_audit_logging"`

	// Alerts
	AlertWebhookURL string `json:"alert_webhook_url"`
	AlertQueueSize  int    `json:"alert_queue_size"`
	AlertWorkers    int    `json:"alert_workers"`
	AlertMaxRetries int    `json:"alert_max_retries"`
	AlertTimeout    int    `json:"alert_timeout"` // seconds

	// Elasticsearch alert index
	ElasticsearchEnabled     bool   `json:"elasticsearch_enabled"`
	ElasticsearchHost        string `json:"elasticsearch_host"`
	ElasticsearchPort        int    `json:"elasticsearch_port"`
	ElasticsearchScheme      string `json:"elasticsearch_scheme"`
	ElasticsearchUser        string `json:"elasticsearch_user"`
	ElasticsearchPassword    string `json:"elasticsearch_password"`
	ElasticsearchVerifyCerts bool   `json:"elasticsearch_verify_certs"`
	ElasticsearchMaxRetries  int    `json:"elasticsearch_max_retries"`
	ElasticsearchAlertIndex  string `json:"elasticsearch_alert_index"`

	// Tool side effects
	DatabaseURL string `json:"database_url"` // empty selects the in-memory store
	ConsoleURL  string `json:"console_url"`  // world console; empty logs only
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:                     DefaultHost,
		Port:                     DefaultPort,
		Environment:              DefaultEnvironment,
		LogLevel:                 DefaultLogLevel,
		ServerName:               DefaultServerName,
		ServerVersion:            DefaultServerVersion,
		ProtocolVersion:          DefaultProtocolVersion,
		DiscoveryPath:            DefaultDiscoveryPath,
		LegacyPath:               DefaultLegacyPath,
		RPCPath:                  DefaultRPCPath,
		AdvertiseHost:            DefaultAdvertiseHost,
		KeepAliveInterval:        DefaultKeepAliveInterval,
		ToolCallTimeout:          DefaultToolCallTimeout,
		MaxBodyBytes:             DefaultMaxBodyBytes,
		CORSOrigins:              DefaultCORSOrigins,
		APIKeyHeader:             "X-API-Key",
		RateLimitPerMinute:       DefaultRateLimitPerMinute,
		WatchPolicies:            true,
		EnableAuditLogging:       true,
		AlertQueueSize:           DefaultAlertQueueSize,
		AlertWorkers:             DefaultAlertWorkers,
		AlertMaxRetries:          DefaultAlertMaxRetries,
		AlertTimeout:             DefaultAlertTimeout,
		ElasticsearchPort:        DefaultElasticsearchPort,
		ElasticsearchScheme:      DefaultElasticsearchScheme,
		ElasticsearchVerifyCerts: true,
		ElasticsearchMaxRetries:  DefaultElasticsearchMaxRetries,
		ElasticsearchAlertIndex:  DefaultElasticsearchAlertIndex,
	}

	// Load from JSON config file if specified
	if path := getEnv("AGENTKERNEL_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// Environment overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	for name, p := range map[string]string{
		"discovery_path": c.DiscoveryPath,
		"rpc_path":       c.RPCPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with '/': %q", name, p)
		}
	}
	if c.ToolCallTimeout <= 0 {
		return fmt.Errorf("tool_call_timeout must be positive, got %d", c.ToolCallTimeout)
	}
	if c.KeepAliveInterval <= 0 {
		return fmt.Errorf("keepalive_interval must be positive, got %d", c.KeepAliveInterval)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) ToolCallDeadline() time.Duration {
	return time.Duration(c.ToolCallTimeout) * time.Second
}

func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.KeepAliveInterval) * time.Second
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("AGENTKERNEL_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("AGENTKERNEL_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("AGENTKERNEL_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("AGENTKERNEL_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("AGENTKERNEL_ADVERTISE_HOST", ""); v != "" {
		cfg.AdvertiseHost = v
	}
	if v := getEnv("AGENTKERNEL_TOOL_TIMEOUT", ""); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			cfg.ToolCallTimeout = t
		}
	}
	if v := getEnv("AGENTKERNEL_POLICY_FILE", ""); v != "" {
		cfg.PolicyFile = v
	}
	if v := getEnv("AGENTKERNEL_WATCH_POLICIES", ""); v != "" {
		cfg.WatchPolicies = v == "true" || v == "1"
	}
	if v := getEnv("AGENTKERNEL_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
	if v := getEnv("ENABLE_AUTH", ""); v != "" {
		cfg.EnableAuth = v == "true" || v == "1"
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = r
		}
	}
	if v := getEnv("ALERT_WEBHOOK_URL", ""); v != "" {
		cfg.AlertWebhookURL = v
	}
	if v := getEnv("DATABASE_URL", ""); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getEnv("CONSOLE_URL", ""); v != "" {
		cfg.ConsoleURL = v
	}
	if v := getEnv("ELASTICSEARCH_ENABLED", ""); v != "" {
		cfg.ElasticsearchEnabled = v == "true" || v == "1"
	}
	if v := getEnv("ELASTICSEARCH_HOST", ""); v != "" {
		cfg.ElasticsearchHost = v
	}
	if v := getEnv("ELASTICSEARCH_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ElasticsearchPort = p
		}
	}
	if v := getEnv("ELASTICSEARCH_SCHEME", ""); v != "" {
		cfg.ElasticsearchScheme = v
	}
	if v := getEnv("ELASTICSEARCH_USER", ""); v != "" {
		cfg.ElasticsearchUser = v
	}
	if v := getEnv("ELASTICSEARCH_PASSWORD", ""); v != "" {
		cfg.ElasticsearchPassword = v
	}
	if v := getEnv("ELASTICSEARCH_ALERT_INDEX", ""); v != "" {
		cfg.ElasticsearchAlertIndex = v
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
