package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestV3Ops(t *testing.T) {
	a := V3{1, 2, 4}
	b := V3{0, -1, 2}

	var v V3
	v.Add(&a, &b)
	assert.Equal(t, V3{1, 1, 6}, v)
	v.Sub(&a, &b)
	assert.Equal(t, V3{1, 3, 2}, v)
	v.Scale(2, &b)
	assert.Equal(t, V3{0, -2, 4}, v)

	assert.InDelta(t, 6, a.Dot(&b), 1e-6)
	assert.InDelta(t, math.Sqrt(21), a.Len(), 1e-6)

	v.Norm(&V3{0, 0, -2})
	assert.Equal(t, V3{0, 0, -1}, v)

	x, y := V3{0, 0, -1}, V3{0, 1, 0}
	v.Cross(&x, &y)
	assert.Equal(t, V3{1, 0, 0}, v)
	v.Cross(&y, &x)
	assert.Equal(t, V3{-1, 0, 0}, v)
}

func TestM4MulAgainstIdentity(t *testing.T) {
	var id, m, out M4
	id.I()
	m = M4{{2, 0, 0, 0}, {0, 3, 0, 0}, {0, 0, 4, 0}, {5, 6, 7, 1}}

	out.Mul(&id, &m)
	assert.Equal(t, m, out)
	out.Mul(&m, &id)
	assert.Equal(t, m, out)

	// Aliasing the output with an operand is allowed.
	out = m
	out.Mul(&out, &id)
	assert.Equal(t, m, out)
}

func TestM4InvertRoundTrip(t *testing.T) {
	// An affine transform with rotation, scale and translation
	// parts; inverting twice must recover it.
	m := M4{
		{0, 2, 0, 0},
		{-2, 0, 0, 0},
		{0, 0, 3, 0},
		{1, -4, 2, 1},
	}
	var inv, back, prod, id M4
	inv.Invert(&m)
	back.Invert(&inv)
	id.I()
	prod.Mul(&m, &inv)
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			assert.InDelta(t, id[c][r], prod[c][r], 1e-5, "m*inv at [%d][%d]", c, r)
			assert.InDelta(t, m[c][r], back[c][r], 1e-5, "double inverse at [%d][%d]", c, r)
		}
	}
}

func TestM3InvertRoundTrip(t *testing.T) {
	m := M3{{0, 1, 0}, {-2, 0, 0}, {0, 0, 5}}
	var inv, prod, id M3
	inv.Invert(&m)
	prod.Mul(&m, &inv)
	id.I()
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			assert.InDelta(t, id[c][r], prod[c][r], 1e-5, "at [%d][%d]", c, r)
		}
	}
}

func TestQuaternionRotation(t *testing.T) {
	// A quarter turn around +Z maps +X to +Y.
	s := float32(math.Sqrt(0.5))
	q := Q{V: V3{0, 0, s}, R: s}
	var m M3
	q.Mat(&m)
	var v V3
	v.Mul(&m, &V3{1, 0, 0})
	assert.InDelta(t, 0, v[0], 1e-6)
	assert.InDelta(t, 1, v[1], 1e-6)
	assert.InDelta(t, 0, v[2], 1e-6)

	// Composing the turn with itself yields a half turn.
	var qq Q
	qq.Mul(&q, &q)
	qq.Mat(&m)
	v.Mul(&m, &V3{1, 0, 0})
	assert.InDelta(t, -1, v[0], 1e-5)
	assert.InDelta(t, 0, v[1], 1e-5)
}

func TestTRSComposition(t *testing.T) {
	scale := V3{2, 2, 2}
	translation := V3{10, 0, 0}
	var rot Q
	rot.I()
	var m M4
	TRS(&scale, &translation, &rot, &m)

	var p V4
	p.Mul(&m, &V4{1, 1, 1, 1})
	assert.Equal(t, V4{12, 2, 2, 1}, p)
}

func TestQNormRecoversUnitLength(t *testing.T) {
	q := Q{V: V3{1, 2, 3}, R: 4}
	q.Norm()
	require.InDelta(t, 1, float64(q.R*q.R+q.V.Dot(&q.V)), 1e-6)

	zero := Q{}
	zero.Norm()
	assert.Equal(t, Q{}, zero)
}

func BenchmarkM4Mul(b *testing.B) {
	var m, l, r M4
	l.I()
	r = M4{{0, 2, 0, 0}, {-2, 0, 0, 0}, {0, 0, 3, 0}, {1, -4, 2, 1}}
	for i := 0; i < b.N; i++ {
		m.Mul(&l, &r)
	}
}

func BenchmarkFlattenStep(b *testing.B) {
	scale := V3{1, 1, 1}
	translation := V3{0, 1, 0}
	var rot Q
	rot.I()
	var local, world M4
	world.I()
	for i := 0; i < b.N; i++ {
		TRS(&scale, &translation, &rot, &local)
		world.Mul(&world, &local)
	}
}
