package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// kabsch finds the rotation matrix R minimizing sum |sky_i - R*camera_i|^2
// over paired unit vectors (the orthogonal Procrustes solution, via SVD of
// the correlation matrix).
func kabsch(camera, sky []vec3) *mat.Dense {
	b := mat.NewDense(3, 3, nil)
	for k := range camera {
		c, s := camera[k], sky[k]
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				b.Set(i, j, b.At(i, j)+s[i]*c[j])
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(b, mat.SVDFull); !ok {
		return nil
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// Correct for a possible reflection.
	d := mat.Det(&u) * mat.Det(&v)
	diag := mat.NewDiagDense(3, []float64{1, 1, d})

	var r mat.Dense
	r.Product(&u, diag, v.T())
	return &r
}

// rotate applies R to a camera-frame vector, yielding sky coordinates.
func rotate(r *mat.Dense, v vec3) vec3 {
	var out vec3
	for i := 0; i < 3; i++ {
		out[i] = r.At(i, 0)*v[0] + r.At(i, 1)*v[1] + r.At(i, 2)*v[2]
	}
	return out
}

// derotate applies R transposed, mapping a sky vector into the camera frame.
func derotate(r *mat.Dense, v vec3) vec3 {
	var out vec3
	for i := 0; i < 3; i++ {
		out[i] = r.At(0, i)*v[0] + r.At(1, i)*v[1] + r.At(2, i)*v[2]
	}
	return out
}

// attitudeAngles converts a camera-to-sky rotation into the pointing right
// ascension and declination of the boresight, and the roll angle: the
// position angle of the image "up" direction measured from celestial north
// toward east. All angles in degrees; RA and roll normalized to [0, 360).
func attitudeAngles(r *mat.Dense) (ra, dec, roll float64) {
	boresight := rotate(r, vec3{0, 0, 1})

	ra = math.Atan2(boresight[1], boresight[0]) * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}
	z := boresight[2]
	if z > 1 {
		z = 1
	} else if z < -1 {
		z = -1
	}
	dec = math.Asin(z) * 180 / math.Pi

	// Tangent basis at the boresight: t points to celestial north,
	// e = t x b points east.
	north := vec3{0, 0, 1}
	t := vec3{
		north[0] - z*boresight[0],
		north[1] - z*boresight[1],
		north[2] - z*boresight[2],
	}
	if math.Sqrt(dot(t, t)) < 1e-12 {
		// Pointing at a pole; roll is measured from the RA=0 meridian.
		t = vec3{1, 0, 0}
	}
	t = normalize(t)
	e := cross(t, boresight)

	// Image up is -y in the camera frame (pixel y grows downward).
	up := rotate(r, vec3{0, -1, 0})
	roll = math.Atan2(dot(up, e), dot(up, t)) * 180 / math.Pi
	if roll < 0 {
		roll += 360
	}
	return ra, dec, roll
}
