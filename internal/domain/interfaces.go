package domain

// SchemaLoader resolves a disease id to its assessment schema
type SchemaLoader interface {
	Load(diseaseID string) (*AssessmentSchema, error)
	List() []SchemaSummary
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetLoggingConfig() *LoggingConfig
	Validate() error
}
