package scene

import (
	"math"
	"testing"

	"github.com/SebastianRueClausen/rendinator-sub000/linear"
	"github.com/stretchr/testify/assert"
)

// Scenario 1: vertex at (1,2,3) in a sphere centered at
// the origin with radius 10 decodes within ±10/32768 per axis.
func TestQuantizationRoundTripScenario(t *testing.T) {
	sphere := Sphere{Center: linear.V3{0, 0, 0}, Radius: 10}
	pos := linear.V3{1, 2, 3}
	enc := EncodePosition(pos, sphere)
	dec := DecodePosition(enc, sphere)
	tol := float32(10.0 / 32768.0)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, pos[i], dec[i], float64(tol))
	}
}

func TestOctahedronRoundTripWithinOneDegree(t *testing.T) {
	dirs := []linear.V3{
		{0, 0, 1}, {0, 0, -1}, {1, 0, 0}, {0, 1, 0},
		{0.577, 0.577, 0.577}, {-0.577, -0.577, 0.577},
		{0.2, -0.9, 0.4},
	}
	for _, d := range dirs {
		var n linear.V3
		n.Norm(&d)
		enc := EncodeOctahedron(n)
		dec := DecodeOctahedron(enc)
		cos := n.Dot(&dec)
		if cos > 1 {
			cos = 1
		}
		angle := math.Acos(float64(cos)) * 180 / math.Pi
		assert.LessOrEqual(t, angle, 1.0)
	}
}

func TestTexcoordRoundTrip(t *testing.T) {
	uv := [2]float32{0.25, 0.75}
	enc := EncodeTexcoord(uv)
	dec := DecodeTexcoord(enc)
	assert.InDelta(t, uv[0], dec[0], 1e-3)
	assert.InDelta(t, uv[1], dec[1], 1e-3)
}

func TestBoundingSphereContainsBox(t *testing.T) {
	pts := []linear.V3{{-1, -2, -3}, {4, 5, 6}, {0, 0, 0}}
	sp := BoundingSphere(pts)
	for _, p := range pts {
		var d linear.V3
		d.Sub(&p, &sp.Center)
		assert.LessOrEqual(t, d.Len(), sp.Radius+1e-4)
	}
}
