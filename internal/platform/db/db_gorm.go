package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	gpostgres "gorm.io/driver/postgres"
	gsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stock_pipeline/internal/feature/prices/adapters"
)

// Config holds the connection settings for the primary Postgres store.
type Config struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     string
	// URL overrides the individual fields when set (DATABASE_URL style)
	URL string
}

// LoadConfigFromEnv reads the database configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		URL:      os.Getenv("DATABASE_URL"),
	}
}

// BuildDSN assembles a Postgres DSN from the configuration.
// A full connection URL takes precedence over the individual fields.
func BuildDSN(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)
}

// Opener opens a gorm DB for a DSN. Injectable for testing.
type Opener func(dsn string) (*gorm.DB, error)

// ConnectWithRetry keeps trying to connect until the timeout elapses.
// Containerized Postgres may not be ready when the process starts.
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("db connect failed after %v: %w", timeout, err)
		}
		log.Printf("DB connect failed, retrying...: %v", err)
		time.Sleep(3 * time.Second)
	}
}

// OpenPostgres connects to the primary store using environment configuration.
// It terminates the process on failure, so it is meant for main functions only.
func OpenPostgres() *gorm.DB {
	dsn := BuildDSN(LoadConfigFromEnv())

	db, err := ConnectWithRetry(dsn, 60*time.Second, func(dsn string) (*gorm.DB, error) {
		return gorm.Open(gpostgres.Open(dsn), &gorm.Config{})
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		if err := db.AutoMigrate(&adapters.StockModel{}); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	return db
}

// OpenSQLite opens the embedded mirror database, creating the parent
// directory if needed. The mirror table itself is recreated on every
// replace, so no migration runs here.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(gsqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}
