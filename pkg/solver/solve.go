package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/astrolab/starsolve/pkg/errors"
	"github.com/astrolab/starsolve/pkg/extract"
)

// SolveOptions control plate solving.
type SolveOptions struct {
	// FOVEstimate is the expected horizontal field of view in degrees.
	FOVEstimate float64

	// FOVMaxError is the allowed deviation, in degrees, between the
	// estimate and the field of view recovered from the match. Zero
	// disables the check.
	FOVMaxError float64

	// PatternCentroids is how many of the brightest centroids are combined
	// into candidate quads. Zero uses the default.
	PatternCentroids int

	// MatchRadius is the verification tolerance in pixels. Zero uses the
	// default.
	MatchRadius float64

	// MinMatches is the number of star-centroid pairs required to accept
	// a solution. Zero uses the default.
	MinMatches int
}

const (
	defaultPatternCentroids = 8
	defaultMatchRadius      = 6.0
	defaultMinMatches       = 5

	arcsecPerRad = 206264.806
)

// Validate checks the option invariants shared with the CLI layer.
func (o *SolveOptions) Validate() error {
	if o.FOVEstimate <= 0 {
		return errors.NewValidationError("fov-estimate", o.FOVEstimate, "fov-estimate must be positive")
	}
	if o.FOVMaxError < 0 {
		return errors.NewValidationError("fov-max-error", o.FOVMaxError, "fov-max-error cannot be negative")
	}
	return nil
}

// Solution is a successful plate solve.
type Solution struct {
	RA         float64 // boresight right ascension, degrees
	Dec        float64 // boresight declination, degrees
	Roll       float64 // position angle of image up, degrees
	FOV        float64 // recovered horizontal field of view, degrees
	RMSEArcsec float64 // residual of matched stars, arcseconds
	Matches    int     // matched star-centroid pairs
}

// SolveImage extracts centroids from the image at path and solves them.
// Failures are wrapped in a SolveError naming the image.
func (db *Database) SolveImage(path string, eopts extract.Options, sopts SolveOptions) (*Solution, error) {
	field, err := extract.FromFile(path, eopts)
	if err != nil {
		return nil, errors.NewSolveError(path, err)
	}
	sol, err := db.Solve(field, sopts)
	if err != nil {
		return nil, errors.NewSolveError(path, err)
	}
	return sol, nil
}

// Solve attempts to find the sky orientation of an extracted centroid field.
// It returns an error wrapping ErrNoSolution when no database pattern both
// matches a centroid quad and survives verification.
func (db *Database) Solve(field *extract.Field, opts SolveOptions) (*Solution, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.PatternCentroids == 0 {
		opts.PatternCentroids = defaultPatternCentroids
	}
	if opts.MatchRadius == 0 {
		opts.MatchRadius = defaultMatchRadius
	}
	if opts.MinMatches == 0 {
		opts.MinMatches = defaultMinMatches
	}

	cents := field.Centroids
	if len(cents) < patternSize {
		return nil, fmt.Errorf("%w: only %d centroids extracted, need at least %d",
			errors.ErrNoSolution, len(cents), patternSize)
	}

	focal := focalLength(field.Width, opts.FOVEstimate)
	n := opts.PatternCentroids
	if n > len(cents) {
		n = len(cents)
	}
	camVecs := make([]vec3, n)
	for i := 0; i < n; i++ {
		camVecs[i] = centroidVec(cents[i], field.Width, field.Height, focal)
	}

	skyVecs := make([]vec3, len(db.Vectors))
	for i, v := range db.Vectors {
		skyVecs[i] = vec3(v)
	}

	bins := db.Props.HashBins
	if bins == 0 {
		bins = hashBins
	}

	var best *Solution
	combinations(n, patternSize, func(idx []int) bool {
		var qv [patternSize]vec3
		for k, i := range idx {
			qv[k] = camVecs[i]
		}
		d := quadDistances(qv)
		camOrder := canonicalOrder(d)

		for _, key := range probeKeys(d, bins) {
			for _, quad := range db.Patterns[key] {
				var sq [patternSize]vec3
				for k, star := range quad {
					sq[k] = skyVecs[star]
				}
				skyOrder := canonicalOrder(quadDistances(sq))

				camera := make([]vec3, patternSize)
				sky := make([]vec3, patternSize)
				for k := 0; k < patternSize; k++ {
					camera[k] = qv[camOrder[k]]
					sky[k] = sq[skyOrder[k]]
				}

				r := kabsch(camera, sky)
				if r == nil {
					continue
				}
				if sol := db.verify(r, field, skyVecs, focal, opts); sol != nil {
					best = sol
					return false
				}
			}
		}
		return true
	})

	if best == nil {
		return nil, fmt.Errorf("%w: no pattern match survived verification", errors.ErrNoSolution)
	}
	return best, nil
}

// focalLength converts a horizontal FOV in degrees to a focal length in
// pixels for the given image width.
func focalLength(width int, fovDeg float64) float64 {
	return float64(width) / 2 / math.Tan(fovDeg*math.Pi/360)
}

// centroidVec maps a pixel centroid to a unit vector in the camera frame
// (pinhole model, +z along the boresight, +y down the image).
func centroidVec(c extract.Centroid, width, height int, focal float64) vec3 {
	return normalize(vec3{
		(c.X - float64(width)/2) / focal,
		(c.Y - float64(height)/2) / focal,
		1,
	})
}

// verify checks a candidate attitude by reprojecting database stars into the
// image and pairing them with extracted centroids. On success it refines the
// attitude with all pairs and returns the solution.
func (db *Database) verify(r *mat.Dense, field *extract.Field, skyVecs []vec3, focal float64, opts SolveOptions) *Solution {
	width, height := float64(field.Width), float64(field.Height)
	boresight := rotate(r, vec3{0, 0, 1})
	halfDiag := math.Atan(math.Hypot(width, height) / 2 / focal)
	margin := halfDiag * 0.1

	type pair struct {
		centroid int
		star     int
		dist     float64
	}
	bestForCentroid := make(map[int]pair)

	for star, s := range skyVecs {
		if angle(s, boresight) > halfDiag+margin {
			continue
		}
		c := derotate(r, s)
		if c[2] <= 0 {
			continue
		}
		px := width/2 + focal*c[0]/c[2]
		py := height/2 + focal*c[1]/c[2]
		if px < 0 || px >= width || py < 0 || py >= height {
			continue
		}

		for ci, cent := range field.Centroids {
			d := math.Hypot(cent.X-px, cent.Y-py)
			if d > opts.MatchRadius {
				continue
			}
			if prev, ok := bestForCentroid[ci]; !ok || d < prev.dist {
				bestForCentroid[ci] = pair{centroid: ci, star: star, dist: d}
			}
		}
	}

	if len(bestForCentroid) < opts.MinMatches {
		return nil
	}

	camera := make([]vec3, 0, len(bestForCentroid))
	sky := make([]vec3, 0, len(bestForCentroid))
	for _, p := range bestForCentroid {
		cent := field.Centroids[p.centroid]
		camera = append(camera, centroidVec(cent, field.Width, field.Height, focal))
		sky = append(sky, skyVecs[p.star])
	}

	refined := kabsch(camera, sky)
	if refined == nil {
		return nil
	}

	// Recover the focal length (and so the FOV) from the matched pairs.
	refBore := rotate(refined, vec3{0, 0, 1})
	var focalSum float64
	var focalCount int
	for _, p := range bestForCentroid {
		cent := field.Centroids[p.centroid]
		theta := angle(skyVecs[p.star], refBore)
		if theta < 1e-4 {
			continue
		}
		rp := math.Hypot(cent.X-width/2, cent.Y-height/2)
		focalSum += rp / math.Tan(theta)
		focalCount++
	}
	fov := opts.FOVEstimate
	if focalCount > 0 {
		fov = 2 * math.Atan(width/2/(focalSum/float64(focalCount))) * 180 / math.Pi
	}
	if opts.FOVMaxError > 0 && math.Abs(fov-opts.FOVEstimate) > opts.FOVMaxError {
		return nil
	}

	var sumSq float64
	for k := range camera {
		e := angle(rotate(refined, camera[k]), sky[k])
		sumSq += e * e
	}
	rmse := math.Sqrt(sumSq/float64(len(camera))) * arcsecPerRad

	ra, dec, roll := attitudeAngles(refined)
	return &Solution{
		RA:         ra,
		Dec:        dec,
		Roll:       roll,
		FOV:        fov,
		RMSEArcsec: rmse,
		Matches:    len(camera),
	}
}
