// Package gbuffer resolves the visibility buffer into deferred
// shading inputs: a compute pass reconstructs each pixel's
// primitive/triangle ID into barycentric-interpolated attributes,
// samples the primitive's material textures, and writes three
// gbuffer targets.
package gbuffer

import (
	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/gpu"
)

// groupSize is the resolve shader's workgroup width and height.
const groupSize = 32

// Target identifies one of the resolve outputs.
type Target int

const (
	// TAlbedo holds albedo in RGB and metallic in A.
	TAlbedo Target = iota
	// TNormal holds the world normal in RGB and roughness in A.
	TNormal
	// TEmissive holds emissive in RGB and IOR in A.
	TEmissive

	numTargets
)

// Pass owns the three resolve targets and the compute pipeline that
// fills them from a visibility-ID image.
type Pass struct {
	width, height int
	imgs          [numTargets]driver.Image
	views         [numTargets]driver.ImageView
	pipeline      driver.Pipeline
	table         driver.DescTable
}

// New builds the resolve targets and compute pipeline.
func New(width, height int, code driver.ShaderCode, table driver.DescTable) (*Pass, error) {
	p := &Pass{width: width, height: height, table: table}
	ok := false
	defer func() {
		if !ok {
			p.Destroy()
		}
	}()
	for i := range p.imgs {
		img, err := gpu.GPU().NewImage(driver.RGBA16f, driver.Dim3D{Width: width, Height: height, Depth: 1}, 1, 1, 1,
			driver.UShaderWrite|driver.UShaderSample)
		if err != nil {
			return nil, err
		}
		p.imgs[i] = img
		if p.views[i], err = img.NewView(driver.IView2D, 0, 1, 0, 1); err != nil {
			return nil, err
		}
	}
	pl, err := gpu.GPU().NewPipeline(&driver.CompState{Func: driver.ShaderFunc{Code: code}, Desc: table})
	if err != nil {
		return nil, err
	}
	p.pipeline = pl
	ok = true
	return p, nil
}

// View returns one resolve target.
func (p *Pass) View(t Target) driver.ImageView { return p.views[t] }

// Record dispatches the resolve shader over the full target
// resolution, one thread per pixel in 32x32 groups.
func (p *Pass) Record(cb driver.CmdBuffer, heapCopy []int) {
	cb.SetPipeline(p.pipeline)
	cb.SetDescTableComp(p.table, 0, heapCopy)
	gx := (p.width + groupSize - 1) / groupSize
	gy := (p.height + groupSize - 1) / groupSize
	cb.Dispatch(gx, gy, 1)
}

// Destroy releases the pass's device resources.
func (p *Pass) Destroy() {
	for i := range p.views {
		if p.views[i] != nil {
			p.views[i].Destroy()
		}
	}
	for i := range p.imgs {
		if p.imgs[i] != nil {
			p.imgs[i].Destroy()
		}
	}
	if p.pipeline != nil {
		p.pipeline.Destroy()
	}
}
