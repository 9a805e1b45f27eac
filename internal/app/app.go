// Package app wires the engine together: an isolated logger, the schema
// registry, the validator, the configurator registry and a driver factory,
// behind one RunEstimate entry point shared by the CLI and the HTTP server.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/calcforge/calcforge/internal/configurator"
	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/driver"
	"github.com/calcforge/calcforge/internal/schema"
	"github.com/calcforge/calcforge/internal/validate"
)

// Config holds everything an App needs to start.
type Config struct {
	// SchemaPaths overrides the embedded schema manifests. Each entry is an
	// .hcl file or a directory of them.
	SchemaPaths []string

	LogLevel  string
	LogFormat string

	// OpTimeout bounds each individual page operation.
	OpTimeout time.Duration
}

// App encapsulates the engine's dependencies and lifecycle.
type App struct {
	outW          io.Writer
	logger        *slog.Logger
	schemas       *schema.Registry
	validator     *validate.Validator
	configurators *configurator.Registry

	// DriverFactory creates the browser driver for a run. Overridable so
	// tests can substitute a scripted driver.
	DriverFactory func(ctx context.Context, headless bool) (driver.Driver, error)
}

// NewApp constructs a fully initialized App with its own isolated logger.
// Schema manifests are loaded eagerly; a bad manifest is a startup error,
// not something to discover mid-run.
func NewApp(outW io.Writer, cfg Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var (
		schemas *schema.Registry
		err     error
	)
	if len(cfg.SchemaPaths) > 0 {
		schemas, err = schema.Load(ctx, cfg.SchemaPaths...)
	} else {
		schemas, err = schema.LoadBuiltin(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("loading schemas: %w", err)
	}
	logger.Debug("Schema registry loaded.", "services", schemas.Len())

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 15 * time.Second
	}

	return &App{
		outW:          outW,
		logger:        logger,
		schemas:       schemas,
		validator:     validate.New(schemas),
		configurators: configurator.NewDefault(),
		DriverFactory: func(ctx context.Context, headless bool) (driver.Driver, error) {
			return driver.NewChrome(ctx, driver.ChromeOptions{
				Headless:  headless,
				OpTimeout: opTimeout,
			})
		},
	}, nil
}

// Logger returns the app's isolated logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Schemas returns the loaded schema registry.
func (a *App) Schemas() *schema.Registry {
	return a.schemas
}

// Configurators returns the configurator registry.
func (a *App) Configurators() *configurator.Registry {
	return a.configurators
}
