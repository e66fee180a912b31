package linear

import "math"

// Q is a rotation quaternion: V holds the imaginary part, R the
// real part. The instance tree stores node rotations this way and
// converts to a matrix only while flattening.
type Q struct {
	V V3
	R float32
}

// I resets q to the identity rotation.
func (q *Q) I() { *q = Q{R: 1} }

// Mul stores the Hamilton product l * r in q, composing r's
// rotation followed by l's. q may alias either operand.
func (q *Q) Mul(l, r *Q) {
	x := l.R*r.V[0] + l.V[0]*r.R + l.V[1]*r.V[2] - l.V[2]*r.V[1]
	y := l.R*r.V[1] - l.V[0]*r.V[2] + l.V[1]*r.R + l.V[2]*r.V[0]
	z := l.R*r.V[2] + l.V[0]*r.V[1] - l.V[1]*r.V[0] + l.V[2]*r.R
	w := l.R*r.R - l.V[0]*r.V[0] - l.V[1]*r.V[1] - l.V[2]*r.V[2]
	q.V, q.R = V3{x, y, z}, w
}

// Norm normalizes q in place; a zero quaternion is left unchanged.
func (q *Q) Norm() {
	sq := q.R*q.R + q.V.Dot(&q.V)
	if sq == 0 {
		return
	}
	inv := 1 / float32(math.Sqrt(float64(sq)))
	q.R *= inv
	q.V.Scale(inv, &q.V)
}

// Mat stores q's rotation in m. q must be normalized.
func (q *Q) Mat(m *M3) {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.R
	m[0] = V3{1 - 2*(y*y+z*z), 2 * (x*y + w*z), 2 * (x*z - w*y)}
	m[1] = V3{2 * (x*y - w*z), 1 - 2*(x*x+z*z), 2 * (y*z + w*x)}
	m[2] = V3{2 * (x*z + w*y), 2 * (y*z - w*x), 1 - 2*(x*x+y*y)}
}

// TRS composes a node's decomposed scale, rotation and translation
// into the affine transform the flattening walk multiplies down the
// instance tree: scale first, then rotation, then translation.
func TRS(scale, translation *V3, rot *Q, m *M4) {
	var r M3
	rot.Mat(&r)
	for c := 0; c < 3; c++ {
		m[c] = V4{r[c][0] * scale[c], r[c][1] * scale[c], r[c][2] * scale[c], 0}
	}
	m[3] = V4{translation[0], translation[1], translation[2], 1}
}
