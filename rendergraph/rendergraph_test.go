package rendergraph

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

func readF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func TestWriteCameraLayout(t *testing.T) {
	var cam Camera
	cam.View.I()
	cam.Proj.I()
	cam.Proj[0][0] = 2
	cam.Position = linear.V3{7, 8, 9}
	cam.Znear = 0.1

	b := make([]byte, UniformSize)
	writeCamera(b, &cam, 800, 600, 256, 256)

	// View identity diagonal.
	assert.InDelta(t, 1, readF32(b[0:]), 1e-6)
	assert.InDelta(t, 1, readF32(b[(1*4+1)*4:]), 1e-6)
	// Proj at offset 64 carries the scaled X.
	assert.InDelta(t, 2, readF32(b[64:]), 1e-6)
	// ViewProj = Proj * View = Proj for an identity view.
	assert.InDelta(t, 2, readF32(b[128:]), 1e-6)
	assert.InDelta(t, 7, readF32(b[192:]), 1e-6)
	assert.InDelta(t, 8, readF32(b[196:]), 1e-6)
	assert.InDelta(t, 9, readF32(b[200:]), 1e-6)
	assert.InDelta(t, 0.1, readF32(b[204:]), 1e-6)
	assert.InDelta(t, 800, readF32(b[208:]), 1e-6)
	assert.InDelta(t, 600, readF32(b[212:]), 1e-6)
	assert.InDelta(t, 256, readF32(b[216:]), 1e-6)
	assert.InDelta(t, 256, readF32(b[220:]), 1e-6)
}
