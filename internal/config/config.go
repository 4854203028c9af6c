package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	RabbitMQ   RabbitMQConfig
	SMSGateway SMSGatewayConfig
	Resend     ResendConfig
	Storage    StorageConfig
	Env        string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RabbitMQConfig holds failure telemetry broker configuration
type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Enabled  bool
}

// SMSGatewayConfig holds SMS provider configuration. An empty APIKey selects
// the mock provider.
type SMSGatewayConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
}

// ResendConfig holds email provider configuration. An empty APIKey selects
// the mock provider.
type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// StorageConfig holds attachment storage configuration
type StorageConfig struct {
	Backend     string // "fs" or "s3"
	LocalDir    string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
	S3PathStyle bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "covermsg"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "covermsg_db"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_DEFAULT_USER", "guest"),
			Password: getEnv("RABBITMQ_DEFAULT_PASS", "guest"),
			Enabled:  getEnvAsBool("TELEMETRY_ENABLED", false),
		},
		SMSGateway: SMSGatewayConfig{
			BaseURL:  getEnv("SMS_GATEWAY_URL", ""),
			APIKey:   getEnv("SMS_GATEWAY_API_KEY", ""),
			SenderID: getEnv("SMS_SENDER_ID", ""),
		},
		Resend: ResendConfig{
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:  getEnv("EMAIL_FROM_NAME", ""),
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "fs"),
			LocalDir:    getEnv("STORAGE_LOCAL_DIR", "./data/attachments"),
			S3Region:    getEnv("S3_REGION", ""),
			S3Bucket:    getEnv("S3_BUCKET", ""),
			S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("S3_SECRET_KEY", ""),
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			S3PathStyle: getEnvAsBool("S3_PATH_STYLE", false),
		},
		Env: getEnv("ENV", "development"),
	}

	// Validate required fields
	if config.Database.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if config.Storage.Backend != "fs" && config.Storage.Backend != "s3" {
		return nil, fmt.Errorf("STORAGE_BACKEND must be 'fs' or 's3'")
	}

	return config, nil
}

// GetDatabaseDSN returns PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GetRabbitMQURL returns RabbitMQ connection URL
func (c *Config) GetRabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv gets environment variable or returns default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets environment variable as boolean or returns default
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
