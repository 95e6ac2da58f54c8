package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pharmetrics/internal/bookings"
	"pharmetrics/internal/config"
	"pharmetrics/internal/pharmacies"
)

// Manager owns the SQLite connection used by the facts queries.
type Manager struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *slog.Logger
}

// NewManager creates a database manager for the configured store.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// Connect opens the database with WAL journaling and the configured
// connection limits.
func (m *Manager) Connect() error {
	if dir := filepath.Dir(m.cfg.DatabaseName); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating storage directory: %w", err)
		}
	}

	dsn := m.cfg.DatabaseName + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("accessing underlying connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(m.cfg.GetMaxOpenConns())
	sqlDB.SetMaxIdleConns(m.cfg.GetMaxIdleConns())

	m.db = db
	return nil
}

// GetConnection returns the active gorm handle, nil before Connect.
func (m *Manager) GetConnection() *gorm.DB {
	return m.db
}

// Migrate runs the schema migrations for the booking facts store.
func (m *Manager) Migrate() error {
	if m.db == nil {
		return gorm.ErrInvalidDB
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&bookings.Booking{},
			&pharmacies.Pharmacy{},
			&pharmacies.PharmacyTag{},
		)
	})
	if err != nil {
		m.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	m.logger.Info("Database migration completed successfully")
	return nil
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
