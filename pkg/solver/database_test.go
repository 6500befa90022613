package solver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrolab/starsolve/pkg/catalog"
	"github.com/astrolab/starsolve/pkg/errors"
)

func testStars() []catalog.Star {
	return []catalog.Star{
		{ID: 101, RA: 180.0, Dec: 30.0, Mag: 2.1},
		{ID: 102, RA: 182.3, Dec: 31.4, Mag: 2.8},
		{ID: 103, RA: 178.9, Dec: 28.7, Mag: 3.3},
		{ID: 104, RA: 181.6, Dec: 29.1, Mag: 3.9},
		{ID: 105, RA: 179.4, Dec: 31.9, Mag: 4.4},
		{ID: 106, RA: 183.1, Dec: 29.8, Mag: 4.9},
		{ID: 107, RA: 177.8, Dec: 30.6, Mag: 5.2},
		{ID: 108, RA: 180.9, Dec: 32.5, Mag: 5.8},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db, err := Generate(testStars(), GenerateOptions{
		MinFOV:       8,
		MaxFOV:       14,
		MaxMagnitude: 7,
		Catalog:      "hip_main",
	})
	require.NoError(t, err)
	require.NotEmpty(t, db.Patterns)

	path := filepath.Join(t.TempDir(), "nested", "stars.npz")
	require.NoError(t, db.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, db.Props, loaded.Props)
	assert.Equal(t, db.Mags, loaded.Mags)
	assert.Equal(t, db.IDs, loaded.IDs)
	require.Len(t, loaded.Vectors, len(db.Vectors))
	for i := range db.Vectors {
		for k := 0; k < 3; k++ {
			assert.InDelta(t, db.Vectors[i][k], loaded.Vectors[i][k], 1e-15)
		}
	}

	require.Len(t, loaded.Patterns, len(db.Patterns))
	for key, quads := range db.Patterns {
		assert.ElementsMatch(t, quads, loaded.Patterns[key], "patterns for key %d", key)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.npz"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "generate-db")
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.npz")
	require.NoError(t, os.WriteFile(path, []byte("not a zip archive"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, errors.IsNotFound(err))
}

func TestGenerateValidation(t *testing.T) {
	_, err := Generate(testStars(), GenerateOptions{MinFOV: 20, MaxFOV: 10, MaxMagnitude: 7})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = Generate(testStars(), GenerateOptions{MinFOV: 0, MaxFOV: 10, MaxMagnitude: 7})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestGenerateTooFewStars(t *testing.T) {
	_, err := Generate(testStars(), GenerateOptions{MinFOV: 8, MaxFOV: 14, MaxMagnitude: 2.5})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestGenerateSortsBrightestFirst(t *testing.T) {
	stars := testStars()
	// Feed the table in reverse brightness order.
	for i, j := 0, len(stars)-1; i < j; i, j = i+1, j-1 {
		stars[i], stars[j] = stars[j], stars[i]
	}

	db, err := Generate(stars, GenerateOptions{MinFOV: 8, MaxFOV: 14, MaxMagnitude: 7, Catalog: "hip_main"})
	require.NoError(t, err)

	assert.Equal(t, int64(101), db.IDs[0])
	for i := 1; i < len(db.Mags); i++ {
		assert.LessOrEqual(t, db.Mags[i-1], db.Mags[i])
	}
}
