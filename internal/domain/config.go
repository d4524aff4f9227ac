package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Feedback    FeedbackConfig  `mapstructure:"feedback"`
	Sessions    SessionConfig   `mapstructure:"sessions"`
	Schemas     SchemaConfig    `mapstructure:"schemas"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	MCP         MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
}

// DatabaseConfig represents PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	RunMigrations   bool          `mapstructure:"run_migrations"`
}

// FeedbackConfig selects the tier feedback store
type FeedbackConfig struct {
	Backend    string `mapstructure:"backend"` // "sqlite", "postgres" or "none"
	SQLitePath string `mapstructure:"sqlite_path"`
	ExportDir  string `mapstructure:"export_dir"`
}

// SessionConfig bounds the in-memory assessment sessions
type SessionConfig struct {
	MaxSessions int           `mapstructure:"max_sessions"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// SchemaConfig points at an optional directory of operator-supplied schemas
type SchemaConfig struct {
	Dir string `mapstructure:"dir"`
}

// RateLimitConfig represents per-client request rate limiting
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
	TransportType string `mapstructure:"transport_type"` // "stdio", "http"
	HTTPHost      string `mapstructure:"http_host"`
	HTTPPort      int    `mapstructure:"http_port"`
}
