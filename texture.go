package scene

import (
	"image"
	"image/color"

	"github.com/SebastianRueClausen/rendinator-sub000/texcompress"
)

// Texture is a block-compressed, mip-chained texture.
type Texture struct {
	Kind   texcompress.Kind
	Width  int
	Height int
	Mips   [][]byte
}

// fallbackByte is the kind-specific constant fill value for the
// 4x4 fallback tiles: albedo/specular/emissive are
// fully lit (0xFF), normal is 0x80, an octahedron-encoded +Z.
func fallbackByte(kind texcompress.Kind) uint8 {
	if kind == texcompress.KindNormal {
		return 0x80
	}
	return 0xff
}

// Fallbacks holds the four 4x4 fallback textures (one per
// TextureKind). NewFallbacks creates all four up front, whether or
// not a material uses them, and appends them to a Scene's Textures
// array once; every material missing a channel reuses them.
type Fallbacks struct {
	index [4]int32
}

// NewFallbacks compresses the four fallback tiles and appends them
// to s.Textures, returning a Fallbacks that materials can resolve
// against via ResolveFallbacks.
func NewFallbacks(s *Scene) (*Fallbacks, error) {
	f := &Fallbacks{}
	kinds := [4]texcompress.Kind{
		texcompress.KindAlbedo, texcompress.KindNormal,
		texcompress.KindSpecular, texcompress.KindEmissive,
	}
	for i, k := range kinds {
		v := fallbackByte(k)
		px := color.RGBA{v, v, v, v}
		if k == texcompress.KindNormal {
			// Compress remaps normal tiles from an RGB vector; a full
			// blue channel makes that vector +Z, which encodes to the
			// 0x80 octahedron UV.
			px = color.RGBA{v, v, 0xff, 0xff}
		}
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				img.SetRGBA(x, y, px)
			}
		}
		tex, err := texcompress.Compress(img, k)
		if err != nil {
			return nil, err
		}
		f.index[i] = int32(len(s.Textures))
		s.Textures = append(s.Textures, Texture{Kind: tex.Kind, Width: tex.Width, Height: tex.Height, Mips: tex.Mips})
	}
	return f, nil
}

// Index returns the scene texture index of the fallback for kind.
func (f *Fallbacks) Index(kind texcompress.Kind) int32 {
	switch kind {
	case texcompress.KindAlbedo:
		return f.index[0]
	case texcompress.KindNormal:
		return f.index[1]
	case texcompress.KindSpecular:
		return f.index[2]
	default:
		return f.index[3]
	}
}
