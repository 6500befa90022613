// Package app provides the application context and dependency management
// for the starsolve CLI. It centralizes configuration, logging, and preset
// loading behind one struct handed to commands.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/astrolab/starsolve/pkg/presets"
)

// App represents the starsolve application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Presets (lazy-loaded, singleton)
	mu         sync.Mutex
	presets    *presets.Set
	presetsErr error
	loaded     bool
}

// New creates a new App instance with the given version information.
func New(version, commit, date string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version string.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// CatalogDir returns the directory searched for raw star catalogs.
func (a *App) CatalogDir() string {
	return a.config.CatalogDir
}

// Presets returns the preset set, loading it on first use.
func (a *App) Presets() (*presets.Set, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		a.presets, a.presetsErr = presets.Embedded()
		a.loaded = true
	}
	return a.presets, a.presetsErr
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithPresets sets a custom preset set (useful for testing).
func WithPresets(s *presets.Set) Option {
	return func(a *App) error {
		a.presets = s
		a.loaded = true
		return nil
	}
}
