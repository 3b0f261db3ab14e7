package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"chatlytics-server/pkg/analytics"
	"chatlytics-server/pkg/errors"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents the complete application configuration
type Config struct {
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Messaging MessagingConfig `json:"messaging" yaml:"messaging"`
	Analysis  AnalysisConfig  `json:"analysis" yaml:"analysis"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	// HTTP port
	Port int `json:"port" yaml:"port" env:"HTTP_PORT" default:"8080"`

	// Whether the HTTP server is enabled
	Enabled bool `json:"enabled" yaml:"enabled" env:"HTTP_ENABLED" default:"true"`

	// Whether the Prometheus metrics endpoint is exposed
	EnableMetrics bool `json:"enable_metrics" yaml:"enable_metrics" env:"HTTP_ENABLE_METRICS" default:"true"`

	// Whether the analysis API endpoints are exposed
	EnableAPI bool `json:"enable_api" yaml:"enable_api" env:"HTTP_ENABLE_API" default:"true"`

	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `json:"level" yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Log format (json or text)
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT" default:"json"`

	// Log file path (empty = stdout)
	OutputFile string `json:"output_file" yaml:"output_file" env:"LOG_OUTPUT_FILE"`
}

// DatabaseConfig controls MySQL result persistence. When disabled, results
// are kept in process memory only.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" env:"DATABASE_ENABLED" default:"false"`
	Host     string `json:"host" yaml:"host" env:"DATABASE_HOST" default:"localhost"`
	Port     int    `json:"port" yaml:"port" env:"DATABASE_PORT" default:"3306"`
	Database string `json:"database" yaml:"database" env:"DATABASE_NAME" default:"chatlytics"`
	Username string `json:"username" yaml:"username" env:"DATABASE_USER" default:"chatlytics"`
	Password string `json:"password" yaml:"password" env:"DATABASE_PASSWORD"`

	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME" default:"5m"`
}

// MessagingConfig holds AMQP event publishing configuration. Both URL and
// queue name must be set for publishing to be enabled.
type MessagingConfig struct {
	AMQPUrl       string `json:"amqp_url" yaml:"amqp_url" env:"AMQP_URL"`
	AMQPQueueName string `json:"amqp_queue_name" yaml:"amqp_queue_name" env:"AMQP_QUEUE_NAME"`
	ExchangeName  string `json:"exchange_name" yaml:"exchange_name" env:"AMQP_EXCHANGE_NAME"`
	RoutingKey    string `json:"routing_key" yaml:"routing_key" env:"AMQP_ROUTING_KEY"`
}

// AnalysisConfig holds the tunables of the analysis pipeline. Each analyzer
// keeps its own named gap so one can be tuned without shifting the others.
type AnalysisConfig struct {
	SessionGap             time.Duration `json:"session_gap" yaml:"session_gap" env:"ANALYSIS_SESSION_GAP" default:"30m"`
	RelationshipSessionGap time.Duration `json:"relationship_session_gap" yaml:"relationship_session_gap" env:"ANALYSIS_RELATIONSHIP_SESSION_GAP" default:"30m"`
	RapidFireGap           time.Duration `json:"rapid_fire_gap" yaml:"rapid_fire_gap" env:"ANALYSIS_RAPID_FIRE_GAP" default:"10s"`
	ReciprocityWindow      time.Duration `json:"reciprocity_window" yaml:"reciprocity_window" env:"ANALYSIS_RECIPROCITY_WINDOW" default:"2h"`
	ResponseCeiling        time.Duration `json:"response_ceiling" yaml:"response_ceiling" env:"ANALYSIS_RESPONSE_CEILING" default:"24h"`
	ResponseProfileCeiling time.Duration `json:"response_profile_ceiling" yaml:"response_profile_ceiling" env:"ANALYSIS_RESPONSE_PROFILE_CEILING" default:"48h"`
	TopN                   int           `json:"top_n" yaml:"top_n" env:"ANALYSIS_TOP_N" default:"20"`
	LargeInputThreshold    int           `json:"large_input_threshold" yaml:"large_input_threshold" env:"ANALYSIS_LARGE_INPUT_THRESHOLD" default:"10000"`
	ChunkSize              int           `json:"chunk_size" yaml:"chunk_size" env:"ANALYSIS_CHUNK_SIZE" default:"2500"`

	// Directory the serve command reads <conversation-id>.json snapshots from
	SnapshotDir string `json:"snapshot_dir" yaml:"snapshot_dir" env:"ANALYSIS_SNAPSHOT_DIR" default:"snapshots"`
}

// ToAnalytics converts the section into the pipeline's own config type.
func (a AnalysisConfig) ToAnalytics() analytics.Config {
	return analytics.Config{
		SessionGap:             a.SessionGap,
		RelationshipSessionGap: a.RelationshipSessionGap,
		RapidFireGap:           a.RapidFireGap,
		ReciprocityWindow:      a.ReciprocityWindow,
		ResponseCeiling:        a.ResponseCeiling,
		ResponseProfileCeiling: a.ResponseProfileCeiling,
		TopN:                   a.TopN,
		LargeInputThreshold:    a.LargeInputThreshold,
		ChunkSize:              a.ChunkSize,
	}
}

// Load builds the configuration from the environment, loading a .env file
// first when one is present, then applying an optional YAML file named by
// CONFIG_FILE on top.
func Load(logger *logrus.Logger) (*Config, error) {
	// Get current working directory
	wd, err := os.Getwd()
	if err != nil {
		logger.WithError(err).Warn("Failed to get current working directory")
		wd = "unknown"
	}

	// Define possible locations for .env file
	possibleEnvFiles := []string{
		".env",                    // Current directory
		"../.env",                 // Parent directory
		filepath.Join(wd, ".env"), // Absolute path
	}

	// Try loading .env file from each possible location
	var loadedFrom string
	var loadErr error

	for _, envFile := range possibleEnvFiles {
		if _, statErr := os.Stat(envFile); statErr == nil {
			absPath, _ := filepath.Abs(envFile)
			logger.WithField("path", absPath).Debug("Attempting to load .env file")

			if loadErr = godotenv.Load(envFile); loadErr == nil {
				loadedFrom = absPath
				break
			}
		}
	}

	// If all attempts failed, try default Load() which uses working directory
	if loadedFrom == "" {
		if loadErr = godotenv.Load(); loadErr == nil {
			if _, statErr := os.Stat(".env"); statErr == nil {
				loadedFrom, _ = filepath.Abs(".env")
			}
		}
	}

	if loadedFrom != "" {
		logger.WithFields(logrus.Fields{
			"working_dir": wd,
			"path":        loadedFrom,
		}).Info("Successfully loaded .env file")
	} else {
		logger.WithField("working_dir", wd).Debug("No .env file found, using environment variables only")
	}

	config := &Config{}

	if err := loadHTTPConfig(logger, &config.HTTP); err != nil {
		return nil, errors.Wrap(err, "failed to load HTTP configuration")
	}

	if err := loadLoggingConfig(logger, &config.Logging); err != nil {
		return nil, errors.Wrap(err, "failed to load logging configuration")
	}

	if err := loadDatabaseConfig(logger, &config.Database); err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}

	if err := loadMessagingConfig(logger, &config.Messaging); err != nil {
		return nil, errors.Wrap(err, "failed to load messaging configuration")
	}

	if err := loadAnalysisConfig(logger, &config.Analysis); err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}

	// A YAML file named by CONFIG_FILE overrides environment values
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := applyFile(logger, config, path); err != nil {
			return nil, errors.Wrap(err, "failed to apply configuration file")
		}
	}

	if err := validateConfig(logger, config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// loadHTTPConfig loads the HTTP configuration section
func loadHTTPConfig(logger *logrus.Logger, config *HTTPConfig) error {
	config.Port = getEnvInt("HTTP_PORT", 8080)
	config.Enabled = getEnvBool("HTTP_ENABLED", true)
	config.EnableMetrics = getEnvBool("HTTP_ENABLE_METRICS", true)
	config.EnableAPI = getEnvBool("HTTP_ENABLE_API", true)
	config.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	config.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	config.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 5*time.Second)
	return nil
}

// loadLoggingConfig loads the logging configuration section
func loadLoggingConfig(logger *logrus.Logger, config *LoggingConfig) error {
	config.Level = getEnv("LOG_LEVEL", "info")

	// Validate log level
	_, err := logrus.ParseLevel(config.Level)
	if err != nil {
		logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to 'info'", config.Level)
		config.Level = "info"
	}

	config.Format = getEnv("LOG_FORMAT", "json")
	if config.Format != "json" && config.Format != "text" {
		logger.Warn("Invalid LOG_FORMAT, must be 'json' or 'text', defaulting to 'json'")
		config.Format = "json"
	}

	config.OutputFile = getEnv("LOG_OUTPUT_FILE", "")

	return nil
}

// loadDatabaseConfig loads the database configuration section
func loadDatabaseConfig(logger *logrus.Logger, config *DatabaseConfig) error {
	config.Enabled = getEnvBool("DATABASE_ENABLED", false)
	config.Host = getEnv("DATABASE_HOST", "localhost")
	config.Port = getEnvInt("DATABASE_PORT", 3306)
	config.Database = getEnv("DATABASE_NAME", "chatlytics")
	config.Username = getEnv("DATABASE_USER", "chatlytics")
	config.Password = getEnv("DATABASE_PASSWORD", "")
	config.MaxOpenConns = getEnvInt("DATABASE_MAX_OPEN_CONNS", 25)
	config.MaxIdleConns = getEnvInt("DATABASE_MAX_IDLE_CONNS", 5)
	config.ConnMaxLifetime = getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute)
	return nil
}

// loadMessagingConfig loads the messaging configuration section
func loadMessagingConfig(logger *logrus.Logger, config *MessagingConfig) error {
	config.AMQPUrl = getEnv("AMQP_URL", "")
	config.AMQPQueueName = getEnv("AMQP_QUEUE_NAME", "")
	config.ExchangeName = getEnv("AMQP_EXCHANGE_NAME", "")
	config.RoutingKey = getEnv("AMQP_ROUTING_KEY", "")

	if (config.AMQPUrl != "" && config.AMQPQueueName == "") || (config.AMQPUrl == "" && config.AMQPQueueName != "") {
		logger.Warn("Incomplete AMQP configuration: both AMQP_URL and AMQP_QUEUE_NAME must be provided")
	}

	return nil
}

// loadAnalysisConfig loads the analysis configuration section
func loadAnalysisConfig(logger *logrus.Logger, config *AnalysisConfig) error {
	config.SessionGap = getEnvDuration("ANALYSIS_SESSION_GAP", 30*time.Minute)
	config.RelationshipSessionGap = getEnvDuration("ANALYSIS_RELATIONSHIP_SESSION_GAP", 30*time.Minute)
	config.RapidFireGap = getEnvDuration("ANALYSIS_RAPID_FIRE_GAP", 10*time.Second)
	config.ReciprocityWindow = getEnvDuration("ANALYSIS_RECIPROCITY_WINDOW", 2*time.Hour)
	config.ResponseCeiling = getEnvDuration("ANALYSIS_RESPONSE_CEILING", 24*time.Hour)
	config.ResponseProfileCeiling = getEnvDuration("ANALYSIS_RESPONSE_PROFILE_CEILING", 48*time.Hour)
	config.TopN = getEnvInt("ANALYSIS_TOP_N", 20)
	config.LargeInputThreshold = getEnvInt("ANALYSIS_LARGE_INPUT_THRESHOLD", 10000)
	config.ChunkSize = getEnvInt("ANALYSIS_CHUNK_SIZE", 2500)
	config.SnapshotDir = getEnv("ANALYSIS_SNAPSHOT_DIR", "snapshots")
	return nil
}

// validateConfig validates the complete configuration
func validateConfig(logger *logrus.Logger, config *Config) error {
	if config.HTTP.Port <= 0 || config.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", config.HTTP.Port)
	}

	if config.Database.Enabled {
		if config.Database.Host == "" || config.Database.Database == "" {
			return fmt.Errorf("database enabled but host or database name missing")
		}
		if config.Database.Port <= 0 || config.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", config.Database.Port)
		}
	}

	if config.Analysis.TopN <= 0 {
		logger.Warn("ANALYSIS_TOP_N must be positive, defaulting to 20")
		config.Analysis.TopN = 20
	}
	if config.Analysis.LargeInputThreshold <= 0 {
		logger.Warn("ANALYSIS_LARGE_INPUT_THRESHOLD must be positive, defaulting to 10000")
		config.Analysis.LargeInputThreshold = 10000
	}
	if config.Analysis.ChunkSize <= 0 {
		logger.Warn("ANALYSIS_CHUNK_SIZE must be positive, defaulting to 2500")
		config.Analysis.ChunkSize = 2500
	}
	if config.Analysis.SessionGap <= 0 {
		return fmt.Errorf("invalid ANALYSIS_SESSION_GAP: %s", config.Analysis.SessionGap)
	}
	if config.Analysis.SnapshotDir == "" {
		logger.Warn("ANALYSIS_SNAPSHOT_DIR must not be empty, defaulting to 'snapshots'")
		config.Analysis.SnapshotDir = "snapshots"
	}

	return nil
}

// ApplyLogging configures the logger per the logging section
func (c *Config) ApplyLogging(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return errors.Wrap(err, "invalid log level").WithField("level", c.Logging.Level)
	}
	logger.SetLevel(level)

	if c.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if c.Logging.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.OutputFile), 0o755); err != nil {
			return errors.Wrap(err, "failed to create log directory")
		}
		file, err := os.OpenFile(c.Logging.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "failed to open log file").WithField("path", c.Logging.OutputFile)
		}
		logger.SetOutput(file)
	}

	return nil
}

// Environment variable helpers

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
