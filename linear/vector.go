// Package linear provides the fixed-size float32 vector, matrix and
// quaternion types the asset pipeline and frame loop work in.
// Operations write through a pointer receiver rather than returning
// values, so the hot paths (normal synthesis, bounding-sphere fits,
// instance-tree flattening) run without per-call copies; an output
// may alias any input.
package linear

import "math"

// V3 is a three-component vector.
type V3 [3]float32

// Add stores l + r in v.
func (v *V3) Add(l, r *V3) {
	v[0] = l[0] + r[0]
	v[1] = l[1] + r[1]
	v[2] = l[2] + r[2]
}

// Sub stores l - r in v.
func (v *V3) Sub(l, r *V3) {
	v[0] = l[0] - r[0]
	v[1] = l[1] - r[1]
	v[2] = l[2] - r[2]
}

// Scale stores w scaled by s in v.
func (v *V3) Scale(s float32, w *V3) {
	v[0] = s * w[0]
	v[1] = s * w[1]
	v[2] = s * w[2]
}

// Dot returns the dot product of v and w.
func (v *V3) Dot(w *V3) float32 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Len returns v's Euclidean length.
func (v *V3) Len() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Norm stores w normalized in v. w must not be zero.
func (v *V3) Norm(w *V3) {
	v.Scale(1/w.Len(), w)
}

// Cross stores the cross product of l and r in v.
func (v *V3) Cross(l, r *V3) {
	x := l[1]*r[2] - l[2]*r[1]
	y := l[2]*r[0] - l[0]*r[2]
	z := l[0]*r[1] - l[1]*r[0]
	v[0], v[1], v[2] = x, y, z
}

// Mul stores the matrix-vector product m * w in v.
func (v *V3) Mul(m *M3, w *V3) {
	x := m[0][0]*w[0] + m[1][0]*w[1] + m[2][0]*w[2]
	y := m[0][1]*w[0] + m[1][1]*w[1] + m[2][1]*w[2]
	z := m[0][2]*w[0] + m[1][2]*w[1] + m[2][2]*w[2]
	v[0], v[1], v[2] = x, y, z
}

// V4 is a four-component vector. The scene pipeline uses it both as
// a homogeneous position and as a matrix column.
type V4 [4]float32

// Add stores l + r in v.
func (v *V4) Add(l, r *V4) {
	v[0] = l[0] + r[0]
	v[1] = l[1] + r[1]
	v[2] = l[2] + r[2]
	v[3] = l[3] + r[3]
}

// Sub stores l - r in v.
func (v *V4) Sub(l, r *V4) {
	v[0] = l[0] - r[0]
	v[1] = l[1] - r[1]
	v[2] = l[2] - r[2]
	v[3] = l[3] - r[3]
}

// Scale stores w scaled by s in v.
func (v *V4) Scale(s float32, w *V4) {
	v[0] = s * w[0]
	v[1] = s * w[1]
	v[2] = s * w[2]
	v[3] = s * w[3]
}

// Dot returns the dot product of v and w.
func (v *V4) Dot(w *V4) float32 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] + v[3]*w[3]
}

// Len returns v's Euclidean length.
func (v *V4) Len() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Norm stores w normalized in v. w must not be zero.
func (v *V4) Norm(w *V4) {
	v.Scale(1/w.Len(), w)
}

// Mul stores the matrix-vector product m * w in v.
func (v *V4) Mul(m *M4, w *V4) {
	var out V4
	for c := 0; c < 4; c++ {
		out[0] += m[c][0] * w[c]
		out[1] += m[c][1] * w[c]
		out[2] += m[c][2] * w[c]
		out[3] += m[c][3] * w[c]
	}
	*v = out
}
