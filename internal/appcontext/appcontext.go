// Package appcontext defines the application context interface handed to
// starsolve commands.
//
// Commands accept this interface rather than the concrete App type, which
// keeps them testable with mock implementations.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/astrolab/starsolve/pkg/presets"
)

// Interface provides the application context that commands need.
//
// Thread safety: all methods must be safe for concurrent access.
type Interface interface {
	// Logger returns the configured logger instance. Commands should use
	// this for all logging.
	Logger() *zerolog.Logger

	// Presets returns the loaded preset set.
	Presets() (*presets.Set, error)

	// CatalogDir returns the directory searched for raw star catalogs.
	CatalogDir() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string
}
