package hiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrevPow2(t *testing.T) {
	cases := []struct{ n, want int }{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 2},
		{400, 256},
		{512, 512},
		{800, 512},
		{1023, 512},
		{1024, 1024},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, PrevPow2(c.n), "PrevPow2(%d)", c.n)
	}
}

func TestLevelCount(t *testing.T) {
	cases := []struct {
		w, h, want int
	}{
		{1, 1, 1},
		{2, 2, 2},
		{4, 4, 3},
		{256, 128, 9},
		{1024, 1024, 11},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, levelCount(c.w, c.h), "levelCount(%d, %d)", c.w, c.h)
	}
}

// The pyramid base must shrink with the render extent the way the
// cull pass expects: half the extent, rounded down to a power of
// two, so a 800x600 target yields a 256x256 base and 1600x1200
// yields 512x512.
func TestPyramidExtent(t *testing.T) {
	cases := []struct {
		w, h   int
		pw, ph int
	}{
		{800, 600, 256, 256},
		{1600, 1200, 512, 512},
		{1920, 1080, 512, 512},
		{640, 480, 256, 128},
	}
	for _, c := range cases {
		pw, ph := PrevPow2(c.w/2), PrevPow2(c.h/2)
		assert.Equal(t, c.pw, pw, "base width for %dx%d", c.w, c.h)
		assert.Equal(t, c.ph, ph, "base height for %dx%d", c.w, c.h)
	}
}
