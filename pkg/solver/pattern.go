package solver

import (
	"math"
	"sort"
)

// Pattern geometry constants. A pattern is a quad of stars reduced to the
// five smaller pairwise angular distances divided by the largest one. The
// ratios are invariant under rotation and, to first order, under focal
// length error, which is what makes the lost-in-space lookup work.
const (
	patternSize = 4
	numRatios   = 5 // C(4,2) distances, largest excluded
	hashBins    = 25
)

// Quad holds the star-table indices of one indexed pattern.
type Quad [patternSize]int32

type vec3 [3]float64

func raDecToVec(raDeg, decDeg float64) vec3 {
	ra := raDeg * math.Pi / 180
	dec := decDeg * math.Pi / 180
	cd := math.Cos(dec)
	return vec3{cd * math.Cos(ra), cd * math.Sin(ra), math.Sin(dec)}
}

func dot(a, b vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b vec3) vec3 {
	return vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v vec3) vec3 {
	n := math.Sqrt(dot(v, v))
	if n == 0 {
		return v
	}
	return vec3{v[0] / n, v[1] / n, v[2] / n}
}

// angle returns the angular separation of two unit vectors in radians.
func angle(a, b vec3) float64 {
	d := dot(a, b)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}

// quadDistances returns the six pairwise angular distances of a quad in a
// fixed order: (0,1) (0,2) (0,3) (1,2) (1,3) (2,3).
func quadDistances(vs [patternSize]vec3) [6]float64 {
	var d [6]float64
	k := 0
	for i := 0; i < patternSize; i++ {
		for j := i + 1; j < patternSize; j++ {
			d[k] = angle(vs[i], vs[j])
			k++
		}
	}
	return d
}

// quadRatios reduces the six distances to the five sorted edge ratios.
// Returns false for degenerate quads (coincident stars).
func quadRatios(d [6]float64) ([numRatios]float64, float64, bool) {
	var ratios [numRatios]float64

	dmax := d[0]
	maxIdx := 0
	for i, v := range d {
		if v > dmax {
			dmax = v
			maxIdx = i
		}
	}
	if dmax <= 0 {
		return ratios, 0, false
	}

	k := 0
	for i, v := range d {
		if i == maxIdx {
			continue
		}
		ratios[k] = v / dmax
		k++
	}
	sort.Float64s(ratios[:])
	return ratios, dmax, true
}

func ratioBin(r float64, bins int) int {
	b := int(r * float64(bins))
	if b < 0 {
		b = 0
	}
	if b >= bins {
		b = bins - 1
	}
	return b
}

func keyFromBins(b [numRatios]int, bins int) uint64 {
	var key uint64
	for i := numRatios - 1; i >= 0; i-- {
		key = key*uint64(bins) + uint64(b[i])
	}
	return key
}

// hashKey computes the pattern hash for a quad's distance set.
func hashKey(d [6]float64, bins int) (uint64, bool) {
	ratios, _, ok := quadRatios(d)
	if !ok {
		return 0, false
	}
	var b [numRatios]int
	for i, r := range ratios {
		b[i] = ratioBin(r, bins)
	}
	return keyFromBins(b, bins), true
}

// probeKeys returns the hash keys of the quad's bin and all neighboring bins
// (each ratio ±1). Centroiding noise and focal length error move ratios
// across bin boundaries; probing the neighborhood recovers those lookups.
func probeKeys(d [6]float64, bins int) []uint64 {
	ratios, _, ok := quadRatios(d)
	if !ok {
		return nil
	}

	choices := make([][]int, numRatios)
	for i, r := range ratios {
		b := ratioBin(r, bins)
		c := []int{b}
		if b > 0 {
			c = append(c, b-1)
		}
		if b < bins-1 {
			c = append(c, b+1)
		}
		choices[i] = c
	}

	seen := make(map[uint64]struct{})
	keys := make([]uint64, 0, 3*3*3*3*3)
	var b [numRatios]int
	var walk func(i int)
	walk = func(i int) {
		if i == numRatios {
			key := keyFromBins(b, bins)
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
			return
		}
		for _, c := range choices[i] {
			b[i] = c
			walk(i + 1)
		}
	}
	walk(0)
	return keys
}

// canonicalOrder returns the quad's member positions sorted by each member's
// summed distance to the other three. The same geometric quad seen in the
// sky and on the sensor sorts the same way, which fixes the correspondence
// for the attitude fit.
func canonicalOrder(d [6]float64) [patternSize]int {
	var sums [patternSize]float64
	k := 0
	for i := 0; i < patternSize; i++ {
		for j := i + 1; j < patternSize; j++ {
			sums[i] += d[k]
			sums[j] += d[k]
			k++
		}
	}

	order := [patternSize]int{0, 1, 2, 3}
	sort.Slice(order[:], func(a, b int) bool {
		if sums[order[a]] != sums[order[b]] {
			return sums[order[a]] < sums[order[b]]
		}
		return order[a] < order[b]
	})
	return order
}

// combinations invokes fn for every k-subset of [0, n). fn returning false
// stops the enumeration.
func combinations(n, k int, fn func(idx []int) bool) {
	if k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(idx) {
			return
		}
		// Advance to the next combination.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
