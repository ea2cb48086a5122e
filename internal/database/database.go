package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection pool configuration
const (
	DefaultMaxIdleConns    = 10
	DefaultMaxOpenConns    = 100
	DefaultConnMaxLifetime = time.Hour
	DefaultConnMaxIdleTime = 10 * time.Minute
)

// SlowQueryThreshold is the duration above which queries are logged at WARN
const SlowQueryThreshold = 200 * time.Millisecond

// Supported dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Connect opens the database named by databaseURL. postgres:// and
// postgresql:// URLs (or key=value DSNs) select PostgreSQL; sqlite://path
// and file: URLs select SQLite. In production sslmode=disable is refused.
func Connect(databaseURL string, production bool) (*gorm.DB, error) {
	dialect, dsn := ParseURL(databaseURL)

	if production && dialect == DialectPostgres {
		if err := validateSSLMode(databaseURL); err != nil {
			return nil, err
		}
	}

	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(slog.Default()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := configureConnectionPool(db, dialect); err != nil {
		return nil, err
	}

	slog.Info("Connected to database successfully", slog.String("dialect", dialect))
	return db, nil
}

// NewGormLogger routes gorm's query log into log. Lookups that find no row
// are an expected outcome and are not logged.
func NewGormLogger(log *slog.Logger) logger.Interface {
	return logger.NewSlogLogger(log, logger.Config{
		SlowThreshold:             SlowQueryThreshold,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		LogLevel:                  logger.Warn,
	})
}

// ParseURL splits a DATABASE_URL into its dialect and the DSN handed to the
// gorm driver.
func ParseURL(databaseURL string) (dialect, dsn string) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return DialectSQLite, withSQLiteDefaults(strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "file:"):
		return DialectSQLite, withSQLiteDefaults(databaseURL)
	default:
		return DialectPostgres, databaseURL
	}
}

// withSQLiteDefaults adds a busy timeout so the single writer waits instead
// of failing with SQLITE_BUSY.
func withSQLiteDefaults(dsn string) string {
	if strings.Contains(dsn, "_busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_busy_timeout=5000"
}

// validateSSLMode ensures SSL is enabled in production
func validateSSLMode(databaseURL string) error {
	// Check if sslmode is explicitly disabled
	if strings.Contains(databaseURL, "sslmode=disable") {
		return fmt.Errorf("SSL mode cannot be disabled in production")
	}

	// If no sslmode specified, it's okay (defaults to prefer/require depending on server)
	return nil
}

// configureConnectionPool sets up connection pool limits.
// SQLite gets a single connection: one writer at a time.
func configureConnectionPool(db *gorm.DB, dialect string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if dialect == DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return nil
	}

	sqlDB.SetMaxIdleConns(DefaultMaxIdleConns)
	sqlDB.SetMaxOpenConns(DefaultMaxOpenConns)
	sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	return nil
}

// Migrate runs auto-migration for all models
func Migrate(db *gorm.DB) error {
	slog.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.RateLimitEntry{},
		&models.ContactLogEntry{},
		&models.ContactMessage{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Database migrations completed successfully")
	return nil
}

// Ping checks that the database answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
