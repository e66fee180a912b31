package scene

import (
	"fmt"

	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/texcompress"
)

// Material carries texture references and factors for the PBR
// metallic-roughness model.
type Material struct {
	Albedo   int32 // texture index, -1 until fallback resolution runs
	Normal   int32
	Specular int32 // packed metallic (R) / roughness (G)
	Emissive int32

	BaseColor      [4]float32 // RGBA
	EmissiveFactor [3]float32 // RGB, pre-multiplied by EmissiveStrength
	Metallic       float32
	Roughness      float32
	IOR            float32
}

// defaultIOR matches the glTF IOR extension's default.
const defaultIOR = 1.4

// NewMaterial returns a Material with the factor defaults a source
// material omitting every field would produce:
// base color (1,1,1,1), metallic 0, roughness 1, IOR 1.4, and every
// texture index left unresolved (-1) for ResolveFallbacks to fill in.
func NewMaterial() Material {
	return Material{
		Albedo:    -1,
		Normal:    -1,
		Specular:  -1,
		Emissive:  -1,
		BaseColor: [4]float32{1, 1, 1, 1},
		Metallic:  0,
		Roughness: 1,
		IOR:       defaultIOR,
	}
}

// Validate checks that every factor is within its documented
// range. Texture indices are checked against the scene's texture
// count by Scene.Validate, since Material alone does not know it.
func (m *Material) Validate() error {
	for i, c := range m.BaseColor {
		if c < 0 || c > 1 {
			return errs.New(errs.KindValidation, "Material.Validate",
				fmt.Errorf("base color channel %d out of [0,1]: %f", i, c))
		}
	}
	if m.Metallic < 0 || m.Metallic > 1 {
		return errs.New(errs.KindValidation, "Material.Validate",
			fmt.Errorf("metallic out of [0,1]: %f", m.Metallic))
	}
	if m.Roughness < 0 || m.Roughness > 1 {
		return errs.New(errs.KindValidation, "Material.Validate",
			fmt.Errorf("roughness out of [0,1]: %f", m.Roughness))
	}
	if m.IOR <= 0 {
		return errs.New(errs.KindValidation, "Material.Validate",
			fmt.Errorf("IOR must be positive: %f", m.IOR))
	}
	return nil
}

// ResolveFallbacks assigns any -1 texture index on m to the
// fallback texture index fallback.Index(kind) returns for that
// channel, so that every material resolves to four valid texture
// indices.
func (m *Material) ResolveFallbacks(fallback *Fallbacks) {
	if m.Albedo < 0 {
		m.Albedo = fallback.Index(texcompress.KindAlbedo)
	}
	if m.Normal < 0 {
		m.Normal = fallback.Index(texcompress.KindNormal)
	}
	if m.Specular < 0 {
		m.Specular = fallback.Index(texcompress.KindSpecular)
	}
	if m.Emissive < 0 {
		m.Emissive = fallback.Index(texcompress.KindEmissive)
	}
}
