package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStagingBuffer is a minimal driver.Buffer backed by a plain Go
// slice, enough to exercise Arena without a real device.
type fakeStagingBuffer struct {
	data []byte
}

func (b *fakeStagingBuffer) Destroy()      {}
func (b *fakeStagingBuffer) Visible() bool { return true }
func (b *fakeStagingBuffer) Bytes() []byte { return b.data }
func (b *fakeStagingBuffer) Cap() int64    { return int64(len(b.data)) }

func testArena(nblocks int) *Arena {
	return &Arena{
		buf: &fakeStagingBuffer{data: make([]byte, nblocks*blockSize)},
		bm:  newSpanBitmap(nblocks),
	}
}

func TestArenaReserveBlockGranular(t *testing.T) {
	a := testArena(4)

	s1, off1, err := a.reserve(10, 1)
	require.NoError(t, err)
	assert.Len(t, s1, 10)
	assert.Equal(t, int64(0), off1)

	// A second span never shares the first one's block.
	s2, off2, err := a.reserve(10, 4)
	require.NoError(t, err)
	assert.Len(t, s2, 10)
	assert.Equal(t, int64(blockSize), off2)

	// Block starts satisfy the image-copy alignment too.
	_, off3, err := a.reserve(blockSize+1, imageAlign)
	require.NoError(t, err)
	assert.Zero(t, off3%imageAlign)
}

func TestArenaReserveFailsWhenExhausted(t *testing.T) {
	a := testArena(2)

	_, _, err := a.reserve(2*blockSize, 1)
	require.NoError(t, err)
	_, _, err = a.reserve(1, 1)
	assert.Error(t, err)
}

func TestArenaReleaseRecyclesSpans(t *testing.T) {
	a := testArena(2)

	_, off, err := a.reserve(blockSize, 1)
	require.NoError(t, err)
	_, _, err = a.reserve(blockSize, 1)
	require.NoError(t, err)
	_, _, err = a.reserve(1, 1)
	require.Error(t, err)

	a.release(off, blockSize)
	_, again, err := a.reserve(blockSize, 1)
	require.NoError(t, err)
	assert.Equal(t, off, again)
}

func TestSpanBitmapRuns(t *testing.T) {
	m := newSpanBitmap(128)

	first, ok := m.alloc(3)
	require.True(t, ok)
	assert.Equal(t, 0, first)

	second, ok := m.alloc(2)
	require.True(t, ok)
	assert.Equal(t, 3, second)

	// Freeing the middle span opens a hole a fitting run reuses.
	m.free(second, 2)
	reused, ok := m.alloc(2)
	require.True(t, ok)
	assert.Equal(t, 3, reused)

	// A longer run extends past the hole into untouched blocks.
	m.free(reused, 2)
	long, ok := m.alloc(4)
	require.True(t, ok)
	assert.Equal(t, 3, long)

	// Runs never exceed the bitmap.
	_, ok = m.alloc(129)
	assert.False(t, ok)
}
