package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(LevelForEnvironment(GetEnvWithDefault("APP_ENV", "development")))
}

// Supported values for AuthScheme
const (
	AuthSchemeToken  = "token"
	AuthSchemeHeader = "header"
)

// Development defaults, rejected when APP_ENV=production
const (
	defaultJWTSecret     = "secret"
	defaultSessionSecret = "session-secret"
	defaultAdminPassword = "admin123"
)

// Supported values for DeletePolicy
const (
	DeletePolicyAdmin         = "admin"
	DeletePolicyAuthenticated = "authenticated"
)

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Environment string `json:"environment"`
	Port        int    `json:"port"`
	Host        string `json:"host"`
	CORSOrigin  string `json:"cors_origin"`

	// Database configuration
	DBDriver   string `json:"db_driver"`
	DBHost     string `json:"db_host"`
	DBPort     string `json:"db_port"`
	DBName     string `json:"db_name"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBSSLMode  string `json:"db_sslmode"`
	DBPath     string `json:"db_path"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
	// TokenPurgeInterval is how often expired OAuth tokens are deleted
	TokenPurgeInterval time.Duration `json:"token_purge_interval"`
	AuthScheme         string        `json:"auth_scheme"`
	DeletePolicy       string        `json:"delete_policy"`
	SessionSecret      string        `json:"session_secret"`

	// Bootstrap admin, created when no admin exists
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %d, Host: %s, CORSOrigin: %s, DBDriver: %s, DBHost: %s, DBPort: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], DBPath: %s, LogLevel: %s, JWTSecret: [REDACTED], TokenTTL: %s, TokenPurgeInterval: %s, AuthScheme: %s, DeletePolicy: %s, SessionSecret: [REDACTED], AdminEmail: %s}",
		c.Environment, c.Port, c.Host, c.CORSOrigin, c.DBDriver, c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPath,
		c.LogLevel, c.TokenTTL, c.TokenPurgeInterval, c.AuthScheme, c.DeletePolicy, c.AdminEmail)
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// Returns an error if any variable is present but invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	environment := GetEnvWithDefault("APP_ENV", "development")

	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	ttl, err := time.ParseDuration(GetEnvWithDefault("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, errors.New("TOKEN_TTL must be positive")
	}

	purgeInterval := GetEnvAsType("TOKEN_PURGE_INTERVAL", time.Hour)
	if purgeInterval <= 0 {
		return nil, errors.New("TOKEN_PURGE_INTERVAL must be positive")
	}

	driver := strings.ToLower(GetEnvWithDefault("DB_DRIVER", "sqlite"))
	switch driver {
	case "sqlite", "postgres", "postgresql", "mysql":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres, mysql)", driver)
	}

	scheme := strings.ToLower(GetEnvWithDefault("AUTH_SCHEME", AuthSchemeToken))
	if scheme != AuthSchemeToken && scheme != AuthSchemeHeader {
		return nil, fmt.Errorf("invalid AUTH_SCHEME %q (supported: %s, %s)", scheme, AuthSchemeToken, AuthSchemeHeader)
	}

	policy := strings.ToLower(GetEnvWithDefault("DELETE_POLICY", DeletePolicyAdmin))
	if policy != DeletePolicyAdmin && policy != DeletePolicyAuthenticated {
		return nil, fmt.Errorf("invalid DELETE_POLICY %q (supported: %s, %s)", policy, DeletePolicyAdmin, DeletePolicyAuthenticated)
	}

	config := &Config{
		Environment:        environment,
		Port:               port,
		Host:               GetEnvWithDefault("APP_HOST", "localhost"),
		CORSOrigin:         GetEnvWithDefault("CORS_ORIGIN", "http://localhost:3000"),
		DBDriver:           driver,
		DBHost:             GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:             GetEnvWithDefault("DB_PORT", defaultDBPort(driver)),
		DBName:             GetEnvWithDefault("DB_NAME", "user_management"),
		DBUser:             GetEnvWithDefault("DB_USER", "user"),
		DBPassword:         GetEnvWithDefault("DB_PASSWORD", "password"),
		DBSSLMode:          GetEnvWithDefault("DB_SSLMODE", "disable"),
		DBPath:             GetEnvWithDefault("DB_PATH", "users.sqlite"),
		LogLevel:           GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret:          GetEnvWithDefault("JWT_SECRET", defaultJWTSecret),
		TokenTTL:           ttl,
		TokenPurgeInterval: purgeInterval,
		AuthScheme:         scheme,
		DeletePolicy:       policy,
		SessionSecret:      GetEnvWithDefault("SESSION_SECRET", defaultSessionSecret),
		AdminEmail:         GetEnvWithDefault("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:      GetEnvWithDefault("ADMIN_PASSWORD", defaultAdminPassword),
	}
	if environment == "production" {
		if err := config.checkProductionSecrets(); err != nil {
			return nil, err
		}
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// checkProductionSecrets refuses the development defaults for secrets
func (c *Config) checkProductionSecrets() error {
	var defaulted []string
	if c.JWTSecret == defaultJWTSecret {
		defaulted = append(defaulted, "JWT_SECRET")
	}
	if c.SessionSecret == defaultSessionSecret {
		defaulted = append(defaulted, "SESSION_SECRET")
	}
	if c.AdminPassword == defaultAdminPassword {
		defaulted = append(defaulted, "ADMIN_PASSWORD")
	}
	if len(defaulted) > 0 {
		return fmt.Errorf("%s must be set in production", strings.Join(defaulted, ", "))
	}
	return nil
}

func defaultDBPort(driver string) string {
	switch driver {
	case "postgres", "postgresql":
		return "5432"
	case "mysql":
		return "3306"
	}
	return ""
}

// LevelForEnvironment maps APP_ENV to a log level
func LevelForEnvironment(environment string) logrus.Level {
	switch environment {
	case "development":
		return logrus.DebugLevel
	case "production":
		return logrus.ErrorLevel
	default:
		// Default to info level for other environments
		return logrus.InfoLevel
	}
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default", key)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return any(d).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
