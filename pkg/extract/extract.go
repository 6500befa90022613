// Package extract finds star centroids in sky images. Images are converted
// to grayscale, lightly blurred to suppress hot pixels, thresholded against
// the background statistics, and grouped into connected blobs whose weighted
// centroids become star positions.
package extract

import (
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"

	"github.com/astrolab/starsolve/pkg/errors"
)

// Options control centroid extraction. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// MinSum is the minimum background-subtracted pixel sum for a blob to
	// count as a star. Filters noise and dim sources.
	MinSum float64

	// MaxAxisRatio is the maximum major/minor axis ratio. Elongated blobs
	// (satellite trails, smeared stars) are rejected.
	MaxAxisRatio float64

	// MinDistance is the minimum pixel separation between accepted
	// centroids. When two are closer, the dimmer one is dropped.
	MinDistance int

	// SigmaThreshold sets the detection threshold at
	// background mean + SigmaThreshold * stddev.
	SigmaThreshold float64

	// BlurRadius is the Gaussian pre-blur radius in pixels. Zero disables.
	BlurRadius float64

	// MaxCentroids caps the number of returned centroids (brightest first).
	// Zero means no cap.
	MaxCentroids int
}

// DefaultOptions returns the extraction defaults, tuned for small-sensor
// astro cameras.
func DefaultOptions() Options {
	return Options{
		MinSum:         500,
		MaxAxisRatio:   1.5,
		MinDistance:    4,
		SigmaThreshold: 3,
		BlurRadius:     1,
	}
}

// Centroid is one detected star.
type Centroid struct {
	X, Y      float64 // weighted centroid, pixel coordinates
	Sum       float64 // background-subtracted pixel sum
	AxisRatio float64 // major/minor axis ratio of the blob
	Area      int     // blob size in pixels
}

// Field is the extraction result for one image.
type Field struct {
	Centroids []Centroid // sorted by Sum, brightest first
	Width     int
	Height    int
}

// FromFile loads an image (JPEG, PNG, TIFF, BMP or GIF) and extracts star
// centroids from it.
func FromFile(path string, opts Options) (*Field, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	return FromImage(img, opts), nil
}

// FromImage extracts star centroids from a decoded image.
func FromImage(img image.Image, opts Options) *Field {
	gray := imaging.Grayscale(img)
	var src image.Image = gray
	if opts.BlurRadius > 0 {
		src = blur.Gaussian(gray, opts.BlurRadius)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Pixel values as float64, and the background statistics.
	vals := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := src.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			vals[y*width+x] = float64(r >> 8)
		}
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if math.IsNaN(std) {
		std = 0
	}
	threshold := mean + opts.SigmaThreshold*std

	centroids := findBlobs(vals, width, height, mean, threshold, opts)

	sort.Slice(centroids, func(i, j int) bool {
		return centroids[i].Sum > centroids[j].Sum
	})
	centroids = enforceMinDistance(centroids, float64(opts.MinDistance))
	if opts.MaxCentroids > 0 && len(centroids) > opts.MaxCentroids {
		centroids = centroids[:opts.MaxCentroids]
	}

	return &Field{Centroids: centroids, Width: width, Height: height}
}

type point struct{ x, y int }

// findBlobs groups above-threshold pixels into 8-connected components and
// reduces each to a weighted centroid with second-moment shape statistics.
func findBlobs(vals []float64, width, height int, background, threshold float64, opts Options) []Centroid {
	visited := make([]bool, width*height)
	var centroids []Centroid

	for start := 0; start < len(vals); start++ {
		if visited[start] || vals[start] <= threshold {
			continue
		}

		// Iterative flood fill; recursion would overflow on big blobs.
		stack := []point{{start % width, start / width}}
		var sum, sx, sy float64
		var pixels []point
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if p.x < 0 || p.x >= width || p.y < 0 || p.y >= height {
				continue
			}
			idx := p.y*width + p.x
			if visited[idx] || vals[idx] <= threshold {
				continue
			}
			visited[idx] = true

			w := vals[idx] - background
			sum += w
			sx += w * float64(p.x)
			sy += w * float64(p.y)
			pixels = append(pixels, p)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					stack = append(stack, point{p.x + dx, p.y + dy})
				}
			}
		}

		if sum < opts.MinSum || sum <= 0 {
			continue
		}

		cx, cy := sx/sum, sy/sum
		ratio := axisRatio(vals, pixels, width, background, sum, cx, cy)
		if opts.MaxAxisRatio > 0 && ratio > opts.MaxAxisRatio {
			continue
		}

		centroids = append(centroids, Centroid{
			X: cx, Y: cy, Sum: sum, AxisRatio: ratio, Area: len(pixels),
		})
	}

	return centroids
}

// axisRatio computes the major/minor axis ratio from the blob's weighted
// second moments. A 1/12 pixel variance term keeps single-pixel blobs from
// producing a degenerate minor axis.
func axisRatio(vals []float64, pixels []point, width int, background, sum, cx, cy float64) float64 {
	var mxx, myy, mxy float64
	for _, p := range pixels {
		w := (vals[p.y*width+p.x] - background) / sum
		dx := float64(p.x) - cx
		dy := float64(p.y) - cy
		mxx += w * dx * dx
		myy += w * dy * dy
		mxy += w * dx * dy
	}
	mxx += 1.0 / 12
	myy += 1.0 / 12

	tr := mxx + myy
	det := math.Sqrt((mxx-myy)*(mxx-myy) + 4*mxy*mxy)
	major := (tr + det) / 2
	minor := (tr - det) / 2
	if minor <= 0 {
		return math.Inf(1)
	}
	return math.Sqrt(major / minor)
}

// enforceMinDistance drops the dimmer of any centroid pair closer than the
// minimum separation. Input must be sorted brightest first.
func enforceMinDistance(centroids []Centroid, minDist float64) []Centroid {
	if minDist <= 0 || len(centroids) == 0 {
		return centroids
	}

	kept := centroids[:0:0]
	for _, c := range centroids {
		ok := true
		for _, k := range kept {
			dx, dy := c.X-k.X, c.Y-k.Y
			if math.Hypot(dx, dy) < minDist {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	return kept
}
