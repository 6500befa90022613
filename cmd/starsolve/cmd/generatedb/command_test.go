package generatedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrolab/starsolve/internal/appcontext"
	"github.com/astrolab/starsolve/pkg/errors"
)

func TestRejectsInvertedFOV(t *testing.T) {
	cmd := NewCommand(&appcontext.Mock{})
	cmd.SetArgs([]string{"--min-fov", "30", "--max-fov", "20"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestDefaultFOVFlags(t *testing.T) {
	// A bare generate-db should carry a usable FOV range out of the box.
	cmd := NewCommand(&appcontext.Mock{})
	assert.Equal(t, "30", cmd.Flags().Lookup("min-fov").DefValue)
	assert.Equal(t, "36", cmd.Flags().Lookup("max-fov").DefValue)
}

func TestRejectsUnknownCatalog(t *testing.T) {
	cmd := NewCommand(&appcontext.Mock{})
	cmd.SetArgs([]string{"--star-catalog", "gaia", "--min-fov", "8", "--max-fov", "16"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "hip_main")
}

func TestMissingCatalogFile(t *testing.T) {
	dir := t.TempDir()
	cmd := NewCommand(&appcontext.Mock{
		CatalogDirFunc: func() string { return dir },
	})
	cmd.SetArgs([]string{"--min-fov", "8", "--max-fov", "16"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "hip_main.dat")
}

func TestUnknownPreset(t *testing.T) {
	cmd := NewCommand(&appcontext.Mock{})
	cmd.SetArgs([]string{"--preset", "hubble"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestPresetFillsUnsetFlags(t *testing.T) {
	// The preset supplies the FOV range; the catalog file is still missing,
	// so validation must pass and resolution must fail afterwards.
	dir := t.TempDir()
	cmd := NewCommand(&appcontext.Mock{
		CatalogDirFunc: func() string { return dir },
	})
	cmd.SetArgs([]string{"--preset", "rpi-hq-16mm"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "expected the missing catalog error, got: %v", err)
}

func TestExplicitFlagsWinOverPreset(t *testing.T) {
	cmd := NewCommand(&appcontext.Mock{})
	// Preset would supply a valid range, but the explicit flags invert it.
	cmd.SetArgs([]string{"--preset", "rpi-hq-16mm", "--min-fov", "30", "--max-fov", "20"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
