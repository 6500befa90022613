package solver

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/agentstation/utc"

	"github.com/astrolab/starsolve/pkg/catalog"
	"github.com/astrolab/starsolve/pkg/errors"
)

// GenerateOptions control database generation.
type GenerateOptions struct {
	// MinFOV and MaxFOV bound the field of view, in degrees, the database
	// is built for. Patterns are indexed up to MaxFOV; MinFOV is recorded
	// for solve-time validation. MinFOV must be less than MaxFOV.
	MinFOV float64
	MaxFOV float64

	// MaxMagnitude is the dimmest star included. Larger values index more
	// stars and produce a bigger, slower database.
	MaxMagnitude float64

	// Catalog names the source catalog, recorded in the artifact props.
	Catalog string

	// MaxPatternStars caps how many of the brightest stars anchor
	// patterns. Zero uses the default.
	MaxPatternStars int

	// NeighborLimit is how many neighbors per anchor star are combined
	// into quads. Zero uses the default.
	NeighborLimit int
}

const (
	defaultMaxPatternStars = 10000
	defaultNeighborLimit   = 7
)

// Validate checks the option invariants shared with the CLI layer.
func (o *GenerateOptions) Validate() error {
	if o.MinFOV <= 0 {
		return errors.NewValidationError("min-fov", o.MinFOV, "min-fov must be positive")
	}
	if o.MinFOV >= o.MaxFOV {
		return errors.NewValidationError("min-fov", o.MinFOV,
			fmt.Sprintf("min-fov (%g) must be less than max-fov (%g)", o.MinFOV, o.MaxFOV))
	}
	return nil
}

// Generate builds a pattern database from a loaded star table.
func Generate(stars []catalog.Star, opts GenerateOptions) (*Database, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxPatternStars == 0 {
		opts.MaxPatternStars = defaultMaxPatternStars
	}
	if opts.NeighborLimit == 0 {
		opts.NeighborLimit = defaultNeighborLimit
	}

	// Keep stars at or above the magnitude cutoff, brightest first.
	kept := make([]catalog.Star, 0, len(stars))
	for _, s := range stars {
		if s.Mag <= opts.MaxMagnitude {
			kept = append(kept, s)
		}
	}
	if len(kept) < patternSize {
		return nil, errors.NewValidationError("star-max-magnitude", opts.MaxMagnitude,
			fmt.Sprintf("only %d stars at or brighter than magnitude %g, need at least %d",
				len(kept), opts.MaxMagnitude, patternSize))
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Mag < kept[j].Mag })

	db := &Database{
		Vectors:  make([][3]float64, len(kept)),
		Mags:     make([]float64, len(kept)),
		IDs:      make([]int64, len(kept)),
		Patterns: make(map[uint64][]Quad),
	}
	vecs := make([]vec3, len(kept))
	for i, s := range kept {
		v := raDecToVec(s.RA, s.Dec)
		vecs[i] = v
		db.Vectors[i] = [3]float64(v)
		db.Mags[i] = s.Mag
		db.IDs[i] = int64(s.ID)
	}

	maxFovRad := opts.MaxFOV * math.Pi / 180
	numPatterns := indexPatterns(db, vecs, maxFovRad, opts)

	db.Props = Props{
		Catalog:      opts.Catalog,
		MinFOV:       opts.MinFOV,
		MaxFOV:       opts.MaxFOV,
		MaxMagnitude: opts.MaxMagnitude,
		PatternSize:  patternSize,
		HashBins:     hashBins,
		NumStars:     len(kept),
		NumPatterns:  numPatterns,
		GeneratedAt:  utc.Now().Format(time.RFC3339),
	}

	return db, nil
}

// indexPatterns builds quads anchored on each pattern star and inserts them
// into the hash table. Anchors only combine with dimmer stars, so each quad
// is generated exactly once, from its brightest member.
func indexPatterns(db *Database, vecs []vec3, maxFovRad float64, opts GenerateOptions) int {
	anchors := len(vecs)
	if anchors > opts.MaxPatternStars {
		anchors = opts.MaxPatternStars
	}

	// Sort star indices by declination so the neighbor scan can reject
	// candidates outside the FOV band cheaply.
	decs := make([]float64, len(vecs))
	for i, v := range vecs {
		decs[i] = math.Asin(v[2])
	}
	byDec := make([]int, len(vecs))
	for i := range byDec {
		byDec[i] = i
	}
	sort.Slice(byDec, func(a, b int) bool { return decs[byDec[a]] < decs[byDec[b]] })
	sortedDecs := make([]float64, len(byDec))
	for i, idx := range byDec {
		sortedDecs[i] = decs[idx]
	}

	count := 0
	for i := 0; i < anchors; i++ {
		neighbors := nearestDimmer(i, vecs, byDec, sortedDecs, decs[i], maxFovRad, opts)

		combinations(len(neighbors), patternSize-1, func(idx []int) bool {
			var quad Quad
			var qv [patternSize]vec3
			quad[0] = int32(i)
			qv[0] = vecs[i]
			for k, n := range idx {
				quad[k+1] = int32(neighbors[n])
				qv[k+1] = vecs[neighbors[n]]
			}

			d := quadDistances(qv)
			for _, dist := range d {
				if dist > maxFovRad {
					return true // skip, keep enumerating
				}
			}
			key, ok := hashKey(d, hashBins)
			if !ok {
				return true
			}
			db.Patterns[key] = append(db.Patterns[key], quad)
			count++
			return true
		})
	}
	return count
}

// nearestDimmer finds the brightest stars dimmer than the anchor within the
// FOV radius, capped at the neighbor limit.
func nearestDimmer(anchor int, vecs []vec3, byDec []int, sortedDecs []float64, anchorDec, maxFovRad float64, opts GenerateOptions) []int {
	lo := sort.SearchFloat64s(sortedDecs, anchorDec-maxFovRad)
	hi := sort.SearchFloat64s(sortedDecs, anchorDec+maxFovRad)

	members := len(vecs)
	if members > opts.MaxPatternStars {
		members = opts.MaxPatternStars
	}

	var candidates []int
	for p := lo; p < hi && p < len(byDec); p++ {
		j := byDec[p]
		// Star indices are in brightness order; only dimmer members join.
		if j <= anchor || j >= members {
			continue
		}
		if angle(vecs[anchor], vecs[j]) <= maxFovRad {
			candidates = append(candidates, j)
		}
	}
	sort.Ints(candidates) // brightness order
	if len(candidates) > opts.NeighborLimit {
		candidates = candidates[:opts.NeighborLimit]
	}
	return candidates
}
