package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuad() [patternSize]vec3 {
	return [patternSize]vec3{
		raDecToVec(180.0, 30.0),
		raDecToVec(182.5, 31.2),
		raDecToVec(179.1, 28.4),
		raDecToVec(181.7, 29.3),
	}
}

func TestHashKeyInvariantUnderReordering(t *testing.T) {
	vs := testQuad()
	d1 := quadDistances(vs)
	key1, ok := hashKey(d1, hashBins)
	require.True(t, ok)

	// Same quad, different member order.
	shuffled := [patternSize]vec3{vs[2], vs[0], vs[3], vs[1]}
	d2 := quadDistances(shuffled)
	key2, ok := hashKey(d2, hashBins)
	require.True(t, ok)

	assert.Equal(t, key1, key2)
}

func TestHashKeyInvariantUnderRotation(t *testing.T) {
	vs := testQuad()
	key1, ok := hashKey(quadDistances(vs), hashBins)
	require.True(t, ok)

	// Rotate the whole quad 90 degrees in RA; angular distances are
	// unchanged, so the hash must be too.
	var rotated [patternSize]vec3
	for i, v := range vs {
		rotated[i] = vec3{-v[1], v[0], v[2]}
	}
	key2, ok := hashKey(quadDistances(rotated), hashBins)
	require.True(t, ok)

	assert.Equal(t, key1, key2)
}

func TestHashKeyDegenerateQuad(t *testing.T) {
	v := raDecToVec(10, 10)
	_, ok := hashKey(quadDistances([patternSize]vec3{v, v, v, v}), hashBins)
	assert.False(t, ok)
}

func TestProbeKeysContainsExactKey(t *testing.T) {
	d := quadDistances(testQuad())
	key, ok := hashKey(d, hashBins)
	require.True(t, ok)

	keys := probeKeys(d, hashBins)
	assert.Contains(t, keys, key)
	// Every key distinct.
	seen := map[uint64]bool{}
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate probe key %d", k)
		seen[k] = true
	}
}

func TestCanonicalOrderStableAcrossReordering(t *testing.T) {
	vs := testQuad()
	order1 := canonicalOrder(quadDistances(vs))

	shuffled := [patternSize]vec3{vs[3], vs[1], vs[0], vs[2]}
	order2 := canonicalOrder(quadDistances(shuffled))

	// The members picked out by the two orderings must be the same stars.
	perm := [patternSize]int{3, 1, 0, 2} // shuffled[i] == vs[perm[i]]
	for k := 0; k < patternSize; k++ {
		assert.Equal(t, order1[k], perm[order2[k]],
			"canonical slot %d picks different members", k)
	}
}

func TestCombinations(t *testing.T) {
	var got [][]int
	combinations(4, 3, func(idx []int) bool {
		got = append(got, append([]int(nil), idx...))
		return true
	})
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}, got)
}

func TestCombinationsEarlyStop(t *testing.T) {
	calls := 0
	combinations(5, 2, func([]int) bool {
		calls++
		return calls < 3
	})
	assert.Equal(t, 3, calls)
}

func TestAngle(t *testing.T) {
	a := raDecToVec(0, 0)
	b := raDecToVec(90, 0)
	assert.InDelta(t, math.Pi/2, angle(a, b), 1e-12)
	assert.InDelta(t, 0, angle(a, a), 1e-6)
}
