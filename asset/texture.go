package asset

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"

	// PNG and JPEG are the two image formats the input format
	// admits; registering them lets image.Decode dispatch on the
	// actual byte stream rather than the declared MIME type.
	_ "image/jpeg"
	_ "image/png"

	scene "github.com/SebastianRueClausen/rendinator-sub000"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/gltf"
	"github.com/SebastianRueClausen/rendinator-sub000/texcompress"
)

// conditioner decodes and block-compresses glTF images on demand,
// caching by (source image, kind) since one image may back
// differently-remapped channels in different materials.
type conditioner struct {
	doc   *gltf.GLTF
	bin   []byte
	dir   string
	s     *scene.Scene
	cache map[condKey]int32
}

type condKey struct {
	image int64
	kind  texcompress.Kind
}

func newConditioner(doc *gltf.GLTF, bin []byte, dir string, s *scene.Scene) *conditioner {
	return &conditioner{doc: doc, bin: bin, dir: dir, s: s, cache: make(map[condKey]int32)}
}

// texture conditions the image behind texture index tex for the
// given channel kind and returns its scene texture index, or -1 when
// the texture has no source image.
func (c *conditioner) texture(tex int64, kind texcompress.Kind) (int32, error) {
	if tex < 0 || int(tex) >= len(c.doc.Textures) {
		return -1, errs.New(errs.KindValidation, "asset.texture",
			fmt.Errorf("texture index %d out of range", tex))
	}
	src := c.doc.Textures[tex].Source
	if src == nil {
		return -1, nil
	}
	key := condKey{image: *src, kind: kind}
	if idx, ok := c.cache[key]; ok {
		return idx, nil
	}
	rgba, err := c.decodeImage(*src)
	if err != nil {
		return -1, err
	}
	t, err := texcompress.Compress(rgba, kind)
	if err != nil {
		return -1, err
	}
	idx := int32(len(c.s.Textures))
	c.s.Textures = append(c.s.Textures, scene.Texture{
		Kind: t.Kind, Width: t.Width, Height: t.Height, Mips: t.Mips,
	})
	c.cache[key] = idx
	return idx, nil
}

// decodeImage loads image idx's bytes — from the embedded binary
// chunk or from a URI resolved against the asset's directory — and
// decodes them into RGBA.
func (c *conditioner) decodeImage(idx int64) (*image.RGBA, error) {
	img := &c.doc.Images[idx]
	var data []byte
	switch {
	case img.BufferView != nil:
		view := &c.doc.BufferViews[*img.BufferView]
		end := view.ByteOffset + view.ByteLength
		if end > int64(len(c.bin)) {
			return nil, errs.New(errs.KindValidation, "asset.decodeImage",
				fmt.Errorf("image %d bufferView [%d,%d) exceeds binary chunk length %d",
					idx, view.ByteOffset, end, len(c.bin)))
		}
		data = c.bin[view.ByteOffset:end]
	case img.URI != "":
		if c.dir == "" {
			return nil, errs.New(errs.KindIO, "asset.decodeImage",
				fmt.Errorf("image %d references URI %q but no base directory is known", idx, img.URI))
		}
		var err error
		data, err = os.ReadFile(filepath.Join(c.dir, img.URI))
		if err != nil {
			return nil, errs.New(errs.KindIO, "asset.decodeImage", err)
		}
	default:
		return nil, errs.New(errs.KindValidation, "asset.decodeImage",
			fmt.Errorf("image %d has neither bufferView nor URI", idx))
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.New(errs.KindParse, "asset.decodeImage",
			fmt.Errorf("image %d (%s): %w", idx, img.MimeType, err))
	}
	if format != "png" && format != "jpeg" {
		return nil, errs.New(errs.KindParse, "asset.decodeImage",
			fmt.Errorf("image %d: unsupported format %q", idx, format))
	}
	if rgba, ok := decoded.(*image.RGBA); ok {
		return rgba, nil
	}
	b := decoded.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), decoded, b.Min, draw.Src)
	return rgba, nil
}

// material copies the PBR metallic-roughness factors out of gm,
// conditions its texture references, and applies the IOR and
// emissive-strength extensions when present.
func (c *conditioner) material(gm *gltf.Material) (scene.Material, error) {
	m := scene.NewMaterial()
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			m.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			m.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			m.Roughness = *pbr.RoughnessFactor
		}
		var err error
		if pbr.BaseColorTexture != nil {
			if m.Albedo, err = c.texture(pbr.BaseColorTexture.Index, texcompress.KindAlbedo); err != nil {
				return m, err
			}
		}
		if pbr.MetallicRoughnessTexture != nil {
			if m.Specular, err = c.texture(pbr.MetallicRoughnessTexture.Index, texcompress.KindSpecular); err != nil {
				return m, err
			}
		}
	}
	if gm.NormalTexture != nil {
		var err error
		if m.Normal, err = c.texture(gm.NormalTexture.Index, texcompress.KindNormal); err != nil {
			return m, err
		}
	}
	if gm.EmissiveTexture != nil {
		var err error
		if m.Emissive, err = c.texture(gm.EmissiveTexture.Index, texcompress.KindEmissive); err != nil {
			return m, err
		}
	}
	if gm.EmissiveFactor != nil {
		m.EmissiveFactor = *gm.EmissiveFactor
	}
	if ior, ok := extensionFloat(gm.Extensions, "KHR_materials_ior", "ior"); ok {
		m.IOR = ior
	}
	if strength, ok := extensionFloat(gm.Extensions, "KHR_materials_emissive_strength", "emissiveStrength"); ok {
		for i := range m.EmissiveFactor {
			m.EmissiveFactor[i] *= strength
		}
	}
	return m, nil
}

// extensionFloat digs a single float field out of a material
// extension block, which json unmarshals as nested maps.
func extensionFloat(exts any, ext, field string) (float32, bool) {
	m, ok := exts.(map[string]any)
	if !ok {
		return 0, false
	}
	e, ok := m[ext].(map[string]any)
	if !ok {
		return 0, false
	}
	f, ok := e[field].(float64)
	if !ok {
		return 0, false
	}
	return float32(f), true
}
