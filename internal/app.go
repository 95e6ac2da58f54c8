// Package internal contains core application functionality
package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"pharmetrics/internal/config"
	"pharmetrics/internal/database"
	"pharmetrics/internal/http"
	"pharmetrics/internal/logging"
)

// Application bundles the configured server, store and logger.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.Manager
	Fiber     *fiber.App
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)

	dbManager := database.NewManager(cfg, logger)
	if err := dbManager.Connect(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	fiberApp := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsTest(),
	})

	handler := &http.Handler{
		DB:     dbManager.GetConnection(),
		Logger: logger,
		Region: cfg.GetRegionConfig(),
		Policy: cfg.GetFailurePolicy(),
	}
	MountAppRoutes(fiberApp, handler)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		Fiber:     fiberApp,
	}, nil
}

// StartAsync begins serving in a background goroutine. Listen errors after
// startup surface through the logger.
func (a *Application) StartAsync() error {
	go func() {
		if err := a.Fiber.Listen(":" + a.Config.AppPort); err != nil {
			a.Logger.Error("Server stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (a *Application) Shutdown(ctx context.Context) error {
	if err := a.Fiber.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return a.DBManager.Close()
}
