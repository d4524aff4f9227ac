// Package config loads service configuration from config.yaml, SYMPTOM_RISK_*
// environment variables and built-in defaults, in that order of precedence
// (environment first).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/symptom-risk-server/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g. SYMPTOM_RISK_SERVER_PORT.
const EnvPrefix = "SYMPTOM_RISK"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// Option configures a Manager
type Option func(*Manager)

// WithConfigFile loads an explicit file instead of searching the default paths.
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.configFile = path
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/symptom-risk-server/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The config file is optional when searching; an explicit file must exist
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.tls_enabled", false)
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "symptom_risk")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "30m")
	v.SetDefault("database.run_migrations", true)

	// Feedback store defaults
	v.SetDefault("feedback.backend", "sqlite")
	v.SetDefault("feedback.sqlite_path", "./data/feedback.db")
	v.SetDefault("feedback.export_dir", "./data/exports")

	// Session defaults
	v.SetDefault("sessions.max_sessions", 1000)
	v.SetDefault("sessions.ttl", "30m")

	// Schema catalog overlay
	v.SetDefault("schemas.dir", "")

	// Rate limiting defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// MCP defaults
	v.SetDefault("mcp.server_name", "symptom-risk-server")
	v.SetDefault("mcp.server_version", "1.0.0")
	v.SetDefault("mcp.transport_type", "stdio")
	v.SetDefault("mcp.http_host", "127.0.0.1")
	v.SetDefault("mcp.http_port", 8081)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetLoggingConfig returns logging configuration
func (m *Manager) GetLoggingConfig() *domain.LoggingConfig {
	return &m.config.Logging
}

// ConfigFileUsed returns the path of the loaded config file, empty when none was found.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "fatal": true, "panic": true,
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a configuration independently of how it was loaded.
func Validate(config *domain.Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.TLSEnabled && (config.Server.CertFile == "" || config.Server.KeyFile == "") {
		return fmt.Errorf("TLS is enabled but cert_file or key_file is missing")
	}

	switch strings.ToLower(config.Feedback.Backend) {
	case "none":
	case "sqlite":
		if config.Feedback.SQLitePath == "" {
			return fmt.Errorf("feedback sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
		if config.Database.Port <= 0 || config.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", config.Database.Port)
		}
	default:
		return fmt.Errorf("invalid feedback backend: %q", config.Feedback.Backend)
	}

	if config.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("sessions.max_sessions must be positive, got %d", config.Sessions.MaxSessions)
	}
	if config.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions.ttl must be positive, got %s", config.Sessions.TTL)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	switch strings.ToLower(config.MCP.TransportType) {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid MCP transport: %s", config.MCP.TransportType)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.EqualFold(m.config.Environment, "production")
}

var _ domain.ConfigManager = (*Manager)(nil)
