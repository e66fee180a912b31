// Package fontatlas rasterizes a TrueType/OpenType font's glyphs
// into a single block-compressed atlas texture plus a per-glyph
// metrics table, reusing the texture conditioning pipeline's BC1
// compressor. This is the CLI's "font" asset kind; the renderer
// package does not consume it.
package fontatlas

import (
	"fmt"
	"image"
	"image/draw"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/texcompress"
)

// Glyph locates one rune's bitmap within the atlas and carries the
// metrics a text layout pass needs.
type Glyph struct {
	Rune    rune
	X, Y    int
	W, H    int
	Advance float32
	BearingX float32
	BearingY float32
}

// Atlas is a rasterized, BC1-compressed glyph sheet ready for
// upload alongside a scene's material textures.
type Atlas struct {
	Texture    *texcompress.Texture
	Glyphs     []Glyph
	LineHeight float32
}

// Options configures rasterization. Size is in points; DPI defaults
// to 72 when zero.
type Options struct {
	Size    float64
	DPI     float64
	Runes   []rune
	Padding int
}

// DefaultRunes covers printable ASCII, the common case for a debug
// overlay or UI atlas.
func DefaultRunes() []rune {
	var rs []rune
	for r := rune('!'); r <= rune('~'); r++ {
		rs = append(rs, r)
	}
	return append(rs, ' ')
}

// Build parses an OpenType/TrueType font from data and rasterizes
// opts.Runes (or DefaultRunes if empty) into a single atlas.
func Build(data []byte, opts Options) (*Atlas, error) {
	if opts.DPI == 0 {
		opts.DPI = 72
	}
	if opts.Size == 0 {
		opts.Size = 24
	}
	runes := opts.Runes
	if len(runes) == 0 {
		runes = DefaultRunes()
	}
	padding := opts.Padding
	if padding == 0 {
		padding = 1
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, errs.New(errs.KindParse, "fontatlas.Build", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    opts.Size,
		DPI:     opts.DPI,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, errs.New(errs.KindParse, "fontatlas.Build", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := float32(metrics.Height) / 64

	type raster struct {
		r       rune
		mask    image.Image
		maskp   image.Point
		bounds  image.Rectangle
		advance fixed.Int26_6
	}
	var rasters []raster
	rowH, cellW := 0, 0
	for _, r := range runes {
		dr, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		rasters = append(rasters, raster{r: r, mask: mask, maskp: maskp, bounds: dr, advance: adv})
		if h := dr.Dy(); h > rowH {
			rowH = h
		}
		if w := dr.Dx(); w > cellW {
			cellW = w
		}
	}
	if len(rasters) == 0 {
		return nil, errs.New(errs.KindValidation, "fontatlas.Build", fmt.Errorf("no rasterizable glyphs in requested rune set"))
	}

	cols := 16
	rows := (len(rasters) + cols - 1) / cols
	cellW += padding
	rowH += padding
	width := cols * cellW
	height := rows * rowH

	atlas := image.NewRGBA(image.Rect(0, 0, width, height))
	var glyphs []Glyph
	for i, rs := range rasters {
		col, row := i%cols, i/cols
		x, y := col*cellW, row*rowH
		dst := image.Rect(x, y, x+rs.bounds.Dx(), y+rs.bounds.Dy())
		draw.Draw(atlas, dst, rs.mask, rs.maskp, draw.Src)
		glyphs = append(glyphs, Glyph{
			Rune:     rs.r,
			X:        x,
			Y:        y,
			W:        rs.bounds.Dx(),
			H:        rs.bounds.Dy(),
			Advance:  float32(rs.advance) / 64,
			BearingX: float32(rs.bounds.Min.X) / 64,
			BearingY: float32(rs.bounds.Min.Y) / 64,
		})
	}

	tex, err := texcompress.Compress(atlas, texcompress.KindAlbedo)
	if err != nil {
		return nil, err
	}
	return &Atlas{Texture: tex, Glyphs: glyphs, LineHeight: lineHeight}, nil
}
