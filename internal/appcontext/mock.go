package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/astrolab/starsolve/pkg/presets"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	LoggerFunc     func() *zerolog.Logger
	PresetsFunc    func() (*presets.Set, error)
	CatalogDirFunc func() string
	VersionFunc    func() string
	CommitFunc     func() string
	DateFunc       func() string
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// Presets returns a preset set using the mock function or the embedded set.
func (m *Mock) Presets() (*presets.Set, error) {
	if m.PresetsFunc != nil {
		return m.PresetsFunc()
	}
	return presets.Embedded()
}

// CatalogDir returns the catalog directory using the mock function or ".".
func (m *Mock) CatalogDir() string {
	if m.CatalogDirFunc != nil {
		return m.CatalogDirFunc()
	}
	return "."
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
