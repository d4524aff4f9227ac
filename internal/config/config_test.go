package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-risk-server/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewManager_Defaults(t *testing.T) {
	// Search from an empty directory so no config.yaml is found
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Feedback.Backend)
	assert.Equal(t, 1000, cfg.Sessions.MaxSessions)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, "stdio", cfg.MCP.TransportType)
	assert.Empty(t, m.ConfigFileUsed())
	assert.NoError(t, m.Validate())
	assert.False(t, m.IsProduction())
}

func TestNewManager_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
feedback:
  backend: postgres
database:
  host: db.internal
  database: risk
sessions:
  max_sessions: 50
  ttl: 5m
logging:
  level: debug
  format: text
`)

	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, 9090, m.GetServerConfig().Port)
	assert.Equal(t, "db.internal", m.GetDatabaseConfig().Host)
	assert.Equal(t, "debug", m.GetLoggingConfig().Level)
	assert.Equal(t, 50, m.GetConfig().Sessions.MaxSessions)
	assert.Equal(t, 5*time.Minute, m.GetConfig().Sessions.TTL)
	assert.Equal(t, path, m.ConfigFileUsed())
	assert.True(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("SYMPTOM_RISK_SERVER_PORT", "7070")
	t.Setenv("SYMPTOM_RISK_FEEDBACK_BACKEND", "none")
	t.Setenv("SYMPTOM_RISK_SESSIONS_TTL", "90s")

	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, 7070, m.GetServerConfig().Port)
	assert.Equal(t, "none", m.GetConfig().Feedback.Backend)
	assert.Equal(t, 90*time.Second, m.GetConfig().Sessions.TTL)
}

func TestNewManager_MissingExplicitFile(t *testing.T) {
	_, err := NewManager(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}

func TestManager_Reload(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))
	require.NoError(t, m.Reload())

	assert.Equal(t, 9191, m.GetServerConfig().Port)
}

func validConfig() *domain.Config {
	return &domain.Config{
		Server:    domain.ServerConfig{Port: 8080},
		Feedback:  domain.FeedbackConfig{Backend: "sqlite", SQLitePath: "fb.db"},
		Database:  domain.DatabaseConfig{Host: "localhost", Port: 5432, Database: "risk", Username: "svc"},
		Sessions:  domain.SessionConfig{MaxSessions: 10, TTL: time.Minute},
		RateLimit: domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 10},
		Logging:   domain.LoggingConfig{Level: "info", Format: "json"},
		MCP:       domain.MCPConfig{TransportType: "stdio"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr bool
	}{
		{"Valid", func(*domain.Config) {}, false},
		{"Port zero", func(c *domain.Config) { c.Server.Port = 0 }, true},
		{"Port too large", func(c *domain.Config) { c.Server.Port = 70000 }, true},
		{"TLS without cert", func(c *domain.Config) { c.Server.TLSEnabled = true }, true},
		{"Unknown backend", func(c *domain.Config) { c.Feedback.Backend = "mongo" }, true},
		{"SQLite without path", func(c *domain.Config) { c.Feedback.SQLitePath = "" }, true},
		{"Disabled feedback", func(c *domain.Config) { c.Feedback = domain.FeedbackConfig{Backend: "none"} }, false},
		{"Postgres without host", func(c *domain.Config) {
			c.Feedback.Backend = "postgres"
			c.Database.Host = ""
		}, true},
		{"Postgres valid", func(c *domain.Config) { c.Feedback.Backend = "postgres" }, false},
		{"No sessions", func(c *domain.Config) { c.Sessions.MaxSessions = 0 }, true},
		{"No TTL", func(c *domain.Config) { c.Sessions.TTL = 0 }, true},
		{"Zero rate", func(c *domain.Config) { c.RateLimit.RequestsPerSecond = 0 }, true},
		{"Zero rate when disabled", func(c *domain.Config) {
			c.RateLimit = domain.RateLimitConfig{Enabled: false}
		}, false},
		{"Bad log level", func(c *domain.Config) { c.Logging.Level = "verbose" }, true},
		{"Bad log format", func(c *domain.Config) { c.Logging.Format = "xml" }, true},
		{"Bad transport", func(c *domain.Config) { c.MCP.TransportType = "websocket" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(domain.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stderr, logger.Out)

	logger = NewLogger(domain.LoggingConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stdout, logger.Out)
}
