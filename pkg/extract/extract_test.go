package extract

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOptions avoids the blur so synthetic pixel sums are exact-ish.
func testOptions() Options {
	return Options{
		MinSum:         50,
		MaxAxisRatio:   3,
		MinDistance:    6,
		SigmaThreshold: 3,
		BlurRadius:     0,
	}
}

func gray(v uint8) color.Gray {
	return color.Gray{Y: v}
}

// square paints a (2r+1)-sided square of constant value centered at (cx, cy).
func square(img *image.Gray, cx, cy, r int, v uint8) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			img.SetGray(x, y, gray(v))
		}
	}
}

func TestFromImageFindsCentroids(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	square(img, 20, 20, 1, 255)
	square(img, 40, 40, 1, 250)

	field := FromImage(img, testOptions())

	require.Len(t, field.Centroids, 2)
	assert.Equal(t, 64, field.Width)
	assert.Equal(t, 64, field.Height)

	// Brightest first.
	assert.InDelta(t, 20, field.Centroids[0].X, 0.3)
	assert.InDelta(t, 20, field.Centroids[0].Y, 0.3)
	assert.InDelta(t, 40, field.Centroids[1].X, 0.3)
	assert.InDelta(t, 40, field.Centroids[1].Y, 0.3)
	assert.Greater(t, field.Centroids[0].Sum, field.Centroids[1].Sum)
}

func TestMinSumRejectsDimBlobs(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	square(img, 20, 20, 1, 255)

	opts := testOptions()
	opts.MinSum = 5000 // more than a 3x3 saturated blob can carry

	field := FromImage(img, opts)
	assert.Empty(t, field.Centroids)
}

func TestMaxAxisRatioRejectsTrails(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	square(img, 20, 20, 1, 255)
	// A 1x9 horizontal streak, the shape of a satellite trail.
	for x := 30; x <= 38; x++ {
		img.SetGray(x, 50, gray(255))
	}

	field := FromImage(img, testOptions())

	require.Len(t, field.Centroids, 1)
	assert.InDelta(t, 20, field.Centroids[0].X, 0.3)
}

func TestMinDistanceKeepsBrighter(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	square(img, 40, 40, 1, 250)
	img.SetGray(44, 40, gray(200)) // 4 px away, inside the 6 px exclusion

	field := FromImage(img, testOptions())

	require.Len(t, field.Centroids, 1)
	assert.InDelta(t, 40, field.Centroids[0].X, 0.3)
}

func TestFromFile(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	square(img, 16, 16, 1, 255)

	path := filepath.Join(t.TempDir(), "field.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	field, err := FromFile(path, testOptions())
	require.NoError(t, err)
	require.Len(t, field.Centroids, 1)
	assert.InDelta(t, 16, field.Centroids[0].X, 0.3)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.png"), DefaultOptions())
	assert.Error(t, err)
}
