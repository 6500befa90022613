package solver

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// axisAngleRotation builds a rotation matrix from a unit axis and an angle.
func axisAngleRotation(axis vec3, theta float64) *mat.Dense {
	axis = normalize(axis)
	c, s := math.Cos(theta), math.Sin(theta)
	x, y, z := axis[0], axis[1], axis[2]
	return mat.NewDense(3, 3, []float64{
		c + x*x*(1-c), x*y*(1-c) - z*s, x*z*(1-c) + y*s,
		y*x*(1-c) + z*s, c + y*y*(1-c), y*z*(1-c) - x*s,
		z*x*(1-c) - y*s, z*y*(1-c) + x*s, c + z*z*(1-c),
	})
}

func TestKabschRecoversKnownRotation(t *testing.T) {
	r0 := axisAngleRotation(vec3{0.3, -0.7, 0.65}, 1.234)

	rng := rand.New(rand.NewSource(42))
	camera := make([]vec3, 12)
	sky := make([]vec3, 12)
	for i := range camera {
		v := normalize(vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()})
		camera[i] = v
		sky[i] = rotate(r0, v)
	}

	r := kabsch(camera, sky)
	require.NotNil(t, r)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, r0.At(i, j), r.At(i, j), 1e-9)
		}
	}
}

func TestKabschProperRotation(t *testing.T) {
	// Even with noisy pairs the result must be a proper rotation, not a
	// reflection.
	rng := rand.New(rand.NewSource(7))
	camera := make([]vec3, 8)
	sky := make([]vec3, 8)
	r0 := axisAngleRotation(vec3{1, 2, 3}, 0.4)
	for i := range camera {
		v := normalize(vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()})
		camera[i] = v
		s := rotate(r0, v)
		s[0] += rng.NormFloat64() * 1e-3
		s[1] += rng.NormFloat64() * 1e-3
		s[2] += rng.NormFloat64() * 1e-3
		sky[i] = normalize(s)
	}

	r := kabsch(camera, sky)
	require.NotNil(t, r)
	assert.InDelta(t, 1.0, mat.Det(r), 1e-9)
}

func TestRotateDerotateRoundTrip(t *testing.T) {
	r := axisAngleRotation(vec3{-0.2, 0.9, 0.1}, 2.1)
	v := normalize(vec3{0.5, -0.3, 0.8})
	back := derotate(r, rotate(r, v))
	for i := 0; i < 3; i++ {
		assert.InDelta(t, v[i], back[i], 1e-12)
	}
}

func TestAttitudeAngles(t *testing.T) {
	r := cameraToSky(180, 30)
	ra, dec, roll := attitudeAngles(r)
	assert.InDelta(t, 180.0, ra, 1e-9)
	assert.InDelta(t, 30.0, dec, 1e-9)
	assert.InDelta(t, 0.0, math.Min(roll, 360-roll), 1e-9)
}

func TestAttitudeAnglesWithRoll(t *testing.T) {
	// Spin the camera 90 degrees about its boresight so image up swings
	// from north toward east.
	base := cameraToSky(120, -45)
	spin := axisAngleRotation(vec3{0, 0, 1}, -math.Pi/2)
	var r mat.Dense
	r.Mul(base, spin)

	ra, dec, roll := attitudeAngles(&r)
	assert.InDelta(t, 120.0, ra, 1e-9)
	assert.InDelta(t, -45.0, dec, 1e-9)
	assert.InDelta(t, 90.0, roll, 1e-9)
}

func TestCameraToSkyIsProperRotation(t *testing.T) {
	for _, c := range [][2]float64{{180, 30}, {120, -45}, {0, 0}, {310, 80}} {
		r := cameraToSky(c[0], c[1])
		assert.InDelta(t, 1.0, mat.Det(r), 1e-12,
			"determinant at ra=%g dec=%g", c[0], c[1])
	}

	// A star to the right of center sits west of the boresight, so its
	// right ascension is smaller.
	r := cameraToSky(180, 0)
	right := rotate(r, normalize(vec3{0.1, 0, 1}))
	ra := math.Atan2(right[1], right[0]) * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}
	assert.Less(t, ra, 180.0)
}

// cameraToSky builds the camera-to-sky rotation that points the boresight at
// (ra, dec) with zero roll: image up along celestial north.
func cameraToSky(raDeg, decDeg float64) *mat.Dense {
	b := raDecToVec(raDeg, decDeg)
	north := vec3{0, 0, 1}
	tv := vec3{
		north[0] - b[2]*b[0],
		north[1] - b[2]*b[1],
		north[2] - b[2]*b[2],
	}
	tv = normalize(tv)
	e := cross(tv, b)

	// Columns are the sky images of the camera axes: +z boresight, +y
	// image down (anti-north), +x anti-east. Looking out at the sky with
	// north up, east is to the LEFT of the image; mapping +x to east
	// instead yields a reflection (det -1) no attitude fit can match.
	return mat.NewDense(3, 3, []float64{
		-e[0], -tv[0], b[0],
		-e[1], -tv[1], b[1],
		-e[2], -tv[2], b[2],
	})
}
