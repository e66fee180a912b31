package texcompress

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/SebastianRueClausen/rendinator-sub000/errs"
)

// Texture is a compressed, mip-chained texture.
type Texture struct {
	Kind   Kind
	Width  int
	Height int
	Mips   [][]byte
}

// alignUp4 rounds n up to a multiple of 4 (block alignment).
func alignUp4(n int) int {
	if r := n % 4; r != 0 {
		return n + (4 - r)
	}
	return n
}

// MipCount computes floor(log2(min(w,h))) - 1, clamped to at least
// 1.
func MipCount(w, h int) int {
	m := w
	if h < m {
		m = h
	}
	if m < 1 {
		m = 1
	}
	n := int(math.Floor(math.Log2(float64(m)))) - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Compress conditions a decoded RGBA image into a block-compressed
// Texture: block-align dimensions, generate a Lanczos-3 mip chain,
// apply the kind's channel remap, and BC1/BC5-compress each level.
func Compress(src *image.RGBA, kind Kind) (*Texture, error) {
	b := src.Bounds()
	w, h := alignUp4(b.Dx()), alignUp4(b.Dy())
	base := image.NewRGBA(image.Rect(0, 0, w, h))
	lanczos3 := &draw.Kernel{Support: 3, At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		x := math.Pi * t
		return 3 * math.Sin(x) * math.Sin(x/3) / (x * x)
	}}
	lanczos3.Scale(base, base.Bounds(), src, b, draw.Over, nil)

	n := MipCount(w, h)
	format := kind.BlockFormat()
	t := &Texture{Kind: kind, Width: w, Height: h, Mips: make([][]byte, n)}

	level := base
	for i := 0; i < n; i++ {
		if i > 0 {
			lw, lh := alignUp4(level.Bounds().Dx()/2), alignUp4(level.Bounds().Dy()/2)
			if lw < 4 {
				lw = 4
			}
			if lh < 4 {
				lh = 4
			}
			next := image.NewRGBA(image.Rect(0, 0, lw, lh))
			lanczos3.Scale(next, next.Bounds(), level, level.Bounds(), draw.Over, nil)
			level = next
		}
		remapped := remap(level, kind)
		block, err := encodeBlock(remapped, format)
		if err != nil {
			return nil, errs.New(errs.KindValidation, "texcompress.Compress", err)
		}
		t.Mips[i] = block
	}
	return t, nil
}

// CompressedSize returns the expected byte size of a mip at
// (w, h) in the given format.
func CompressedSize(f Format, w, h int) int {
	bw, bh := alignUp4(w)/4, alignUp4(h)/4
	if bw < 1 {
		bw = 1
	}
	if bh < 1 {
		bh = 1
	}
	return bw * bh * f.BlockBytes()
}

func remap(img *image.RGBA, kind Kind) *image.RGBA {
	switch kind {
	case KindNormal:
		return remapNormal(img)
	case KindSpecular:
		return remapSpecular(img)
	default:
		return img
	}
}

// remapNormal maps (R,G,B) in [0,255] to a unit vector, encodes it
// to octahedron UV, and quantizes each axis to 8 bits, writing the
// result into the first two channels.
func remapNormal(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			nx := float64(uint8(r>>8))/127.5 - 1
			ny := float64(uint8(g>>8))/127.5 - 1
			nz := float64(uint8(bl>>8))/127.5 - 1
			l := math.Sqrt(nx*nx + ny*ny + nz*nz)
			if l == 0 {
				l = 1
			}
			nx, ny, nz = nx/l, ny/l, nz/l
			ox, oy := octEncode(nx, ny, nz)
			out.SetRGBA(x, y, color.RGBA{
				R: uint8(math.Round((ox+1)*127.5)),
				G: uint8(math.Round((oy+1)*127.5)),
				B: 0, A: uint8(a>>8),
			})
		}
	}
	return out
}

// remapSpecular relocates metallic from source blue to output red
// so the two significant channels (metallic, roughness) occupy the
// first two bytes ahead of BC5 compression.
func remapSpecular(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, g, bl, a := img.At(x, y).RGBA()
			out.SetRGBA(x, y, color.RGBA{R: uint8(bl >> 8), G: uint8(g >> 8), B: 0, A: uint8(a >> 8)})
		}
	}
	return out
}

func octEncode(x, y, z float64) (float64, float64) {
	l1 := math.Abs(x) + math.Abs(y) + math.Abs(z)
	if l1 == 0 {
		l1 = 1
	}
	ox, oy := x/l1, y/l1
	if z < 0 {
		ox, oy = octWrap(ox, oy)
	}
	return ox, oy
}

func octWrap(x, y float64) (float64, float64) {
	sx, sy := 1.0, 1.0
	if x < 0 {
		sx = -1
	}
	if y < 0 {
		sy = -1
	}
	return (1 - math.Abs(y)) * sx, (1 - math.Abs(x)) * sy
}

type rgbaColor struct{ r, g, b, a uint8 }

func (c rgbaColor) RGBA() (r, g, b, a uint32) {
	return uint32(c.r) * 0x101, uint32(c.g) * 0x101, uint32(c.b) * 0x101, uint32(c.a) * 0x101
}

func rgba8(r, g, b, a uint8) rgbaColor { return rgbaColor{r, g, b, a} }

func encodeBlock(img *image.RGBA, format Format) ([]byte, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w%4 != 0 || h%4 != 0 {
		return nil, fmt.Errorf("dimensions %dx%d are not block-aligned", w, h)
	}
	size := CompressedSize(format, w, h)
	out := make([]byte, 0, size)
	for by := 0; by < h; by += 4 {
		for bx := 0; bx < w; bx += 4 {
			var block [16]rgbaColor
			for j := 0; j < 4; j++ {
				for i := 0; i < 4; i++ {
					r, g, b, a := img.At(bx+i, by+j).RGBA()
					block[j*4+i] = rgbaColor{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
				}
			}
			switch format {
			case BC1:
				out = append(out, encodeBC1Block(block)...)
			case BC5:
				out = append(out, encodeBC5Block(block)...)
			}
		}
	}
	return out, nil
}
