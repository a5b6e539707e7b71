package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// retryDelays is the backoff between connection attempts
var retryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}

// InitDatabase initializes the database connection based on the provided configuration
// It supports PostgreSQL, MySQL and SQLite drivers with automatic retry logic and connection pooling
func InitDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	driver := strings.ToLower(cfg.Driver)

	log.WithFields(logrus.Fields{
		"db_driver": driver,
		"db_host":   cfg.Host,
		"db_name":   cfg.Name,
		"db_path":   cfg.Path,
	}).Info("Initializing database connection")

	maxRetries := len(retryDelays)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": maxRetries,
		}).Info("Attempting database connection")

		db, err = Open(cfg)
		if errors.Is(err, errUnsupportedDriver) {
			return nil, err
		}

		if err == nil {
			var sqlDB *sql.DB
			sqlDB, err = db.DB()
			if err == nil {
				err = sqlDB.Ping()
			}
			if err == nil {
				configureConnectionPool(sqlDB)

				log.WithFields(logrus.Fields{
					"db_driver": driver,
					"attempt":   attempt,
				}).Info("Database initialized successfully")

				return db, nil
			}
		}

		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Database connection attempt failed")

		// Don't wait after the last attempt
		if attempt < maxRetries {
			delay := retryDelays[attempt-1]
			log.WithField("delay", delay).Info("Retrying database connection")
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

var errUnsupportedDriver = errors.New("unsupported database driver")

// Open opens a gorm handle for the configured driver without retrying.
// Driver errors such as unique violations are translated to gorm errors.
func Open(cfg DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{TranslateError: true}
	dsn := cfg.DSN()

	switch strings.ToLower(cfg.Driver) {
	case "postgres", "postgresql":
		log.WithField("dsn_host", cfg.Host).Debug("Connecting to PostgreSQL")
		return gorm.Open(postgres.Open(dsn), gormConfig)
	case "mysql":
		log.WithField("dsn_host", cfg.Host).Debug("Connecting to MySQL")
		return gorm.Open(mysql.Open(dsn), gormConfig)
	case "sqlite", "":
		log.WithField("db_path", cfg.Path).Debug("Connecting to SQLite")
		return gorm.Open(sqlite.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("%w: %s (supported: postgres, mysql, sqlite)", errUnsupportedDriver, cfg.Driver)
	}
}

// Migrate creates or updates the schema for every persisted model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.OAuthClient{}, &models.OAuthToken{})
}

// SeedAdmin creates an admin account when no admin exists yet.
// It reports whether a user was created. An email already taken by another
// account leaves the database unchanged.
func SeedAdmin(db *gorm.DB, email, password string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	admin := &models.User{
		Name:     "Administrator",
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
		Role:     models.RoleAdmin,
	}
	if err := admin.HashPassword(); err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	if err := db.Create(admin).Error; err != nil {
		// A regular account owns the address; it is never promoted implicitly
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.WithField("email", admin.Email).Warn("No admin exists and ADMIN_EMAIL belongs to a non-admin account; skipping admin seed")
			return false, nil
		}
		return false, fmt.Errorf("create admin user: %w", err)
	}

	log.WithField("email", admin.Email).Info("Default admin user created")
	return true, nil
}

// configureConnectionPool sets up connection pool parameters for optimal performance
func configureConnectionPool(sqlDB *sql.DB) {
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	log.WithFields(logrus.Fields{
		"max_open_conns":    25,
		"max_idle_conns":    5,
		"conn_max_lifetime": "5m",
	}).Debug("Connection pool configured")
}
