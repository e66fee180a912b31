package texcompress

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCompressMipCountAndSizes(t *testing.T) {
	img := solidImage(64, 64, color.RGBA{255, 0, 0, 255})
	tex, err := Compress(img, KindAlbedo)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(tex.Mips), 1)

	w, h := tex.Width, tex.Height
	for _, mip := range tex.Mips {
		expect := CompressedSize(BC1, w, h)
		assert.Equal(t, expect, len(mip))
		w, h = w/2, h/2
		if w < 4 {
			w = 4
		}
		if h < 4 {
			h = 4
		}
	}
}

func TestMipCountClampedToOne(t *testing.T) {
	assert.Equal(t, 1, MipCount(4, 4))
	assert.Equal(t, 1, MipCount(1, 1))
}

func TestBlockFormatPerKind(t *testing.T) {
	assert.Equal(t, BC1, KindAlbedo.BlockFormat())
	assert.Equal(t, BC1, KindEmissive.BlockFormat())
	assert.Equal(t, BC5, KindNormal.BlockFormat())
	assert.Equal(t, BC5, KindSpecular.BlockFormat())
}

func TestCompressedSizeMatchesBlockGrid(t *testing.T) {
	// 8x8 = 2x2 blocks; BC1 is 8 bytes/block, BC5 is 16.
	assert.Equal(t, 32, CompressedSize(BC1, 8, 8))
	assert.Equal(t, 64, CompressedSize(BC5, 8, 8))
}
