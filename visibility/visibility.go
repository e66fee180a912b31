// Package visibility implements the raster pass that draws the cull
// pass's surviving geometry into a color target, a packed
// primitive/triangle ID target, and a reverse-Z depth attachment,
// deferring material evaluation to the gbuffer resolve compute pass.
package visibility

import (
	"github.com/SebastianRueClausen/rendinator-sub000/cull"
	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/gpu"
)

// Pass owns the color, visibility-ID and depth targets, plus two
// render-pass variants over them: the early phase clears all three,
// the late phase loads them so its draws accumulate over what the
// early phase produced.
type Pass struct {
	width, height int

	color  driver.Image
	colorV driver.ImageView
	vis    driver.Image
	visV   driver.ImageView
	depth  driver.Image
	depthV driver.ImageView

	clearPass driver.RenderPass
	loadPass  driver.RenderPass
	clearFB   driver.Framebuf
	loadFB    driver.Framebuf
	pipeline  driver.Pipeline
	table     driver.DescTable

	indexBuf driver.Buffer
}

// attachments returns the pass's attachment list with the given
// load op applied to every aspect that survives a phase boundary.
func attachments(load driver.LoadOp) []driver.Attachment {
	return []driver.Attachment{
		{Format: driver.RGBA8un, Samples: 1, Load: [2]driver.LoadOp{load, driver.LDontCare}, Store: [2]driver.StoreOp{driver.SStore, driver.SDontCare}},
		{Format: driver.R32ui, Samples: 1, Load: [2]driver.LoadOp{load, driver.LDontCare}, Store: [2]driver.StoreOp{driver.SStore, driver.SDontCare}},
		{Format: driver.D32f, Samples: 1, Load: [2]driver.LoadOp{load, driver.LDontCare}, Store: [2]driver.StoreOp{driver.SStore, driver.SDontCare}},
	}
}

// New builds the render targets at the given resolution and the
// graphics pipeline that writes them. vertFunc decodes quantized
// vertices against each draw's bounding sphere (vertex pulling; the
// vertex buffer is a storage descriptor, not a vertex-input
// binding); fragFunc packs the primitive/triangle IDs.
func New(width, height int, vertFunc, fragFunc driver.ShaderFunc, table driver.DescTable) (*Pass, error) {
	p := &Pass{width: width, height: height, table: table}
	ok := false
	defer func() {
		if !ok {
			p.Destroy()
		}
	}()

	var err error
	if p.color, err = gpu.GPU().NewImage(driver.RGBA8un, driver.Dim3D{Width: width, Height: height, Depth: 1}, 1, 1, 1,
		driver.URenderTarget|driver.UCopySrc); err != nil {
		return nil, err
	}
	if p.colorV, err = p.color.NewView(driver.IView2D, 0, 1, 0, 1); err != nil {
		return nil, err
	}
	if p.vis, err = gpu.GPU().NewImage(driver.R32ui, driver.Dim3D{Width: width, Height: height, Depth: 1}, 1, 1, 1,
		driver.URenderTarget|driver.UShaderRead); err != nil {
		return nil, err
	}
	if p.visV, err = p.vis.NewView(driver.IView2D, 0, 1, 0, 1); err != nil {
		return nil, err
	}
	if p.depth, err = gpu.GPU().NewImage(driver.D32f, driver.Dim3D{Width: width, Height: height, Depth: 1}, 1, 1, 1,
		driver.UDepthStencil|driver.UShaderSample); err != nil {
		return nil, err
	}
	if p.depthV, err = p.depth.NewView(driver.IView2D, 0, 1, 0, 1); err != nil {
		return nil, err
	}

	sub := []driver.Subpass{{Color: []int{0, 1}, DS: 2, Wait: true}}
	if p.clearPass, err = gpu.GPU().NewRenderPass(attachments(driver.LClear), sub); err != nil {
		return nil, err
	}
	if p.loadPass, err = gpu.GPU().NewRenderPass(attachments(driver.LLoad), sub); err != nil {
		return nil, err
	}
	views := []driver.ImageView{p.colorV, p.visV, p.depthV}
	if p.clearFB, err = p.clearPass.NewFB(views, width, height, 1); err != nil {
		return nil, err
	}
	if p.loadFB, err = p.loadPass.NewFB(views, width, height, 1); err != nil {
		return nil, err
	}

	state := driver.GraphState{
		VertFunc: vertFunc,
		FragFunc: fragFunc,
		Desc:     table,
		Topology: driver.TTriangle,
		Raster:   driver.RasterState{Cull: driver.CBack},
		Samples:  1,
		// Reverse-Z: clear to 0, keep the greatest depth.
		DS: driver.DSState{DepthTest: true, DepthWrite: true, DepthCmp: driver.CGreaterEqual},
		Blend: driver.BlendState{Color: []driver.ColorBlend{
			{WriteMask: driver.CAll},
			{WriteMask: driver.CAll},
		}},
		Pass:    p.clearPass,
		Subpass: 0,
	}
	if p.pipeline, err = gpu.GPU().NewPipeline(&state); err != nil {
		return nil, err
	}
	ok = true
	return p, nil
}

// SetGeometry sets the index buffer draws read from; the vertex
// data itself is pulled through the descriptor table.
func (p *Pass) SetGeometry(indexBuf driver.Buffer) { p.indexBuf = indexBuf }

// IndexBuf returns the bound index buffer.
func (p *Pass) IndexBuf() driver.Buffer { return p.indexBuf }

// ColorView returns the color render target.
func (p *Pass) ColorView() driver.ImageView { return p.colorV }

// ColorImage returns the color target image, copied to the
// swapchain at presentation.
func (p *Pass) ColorImage() driver.Image { return p.color }

// View returns the visibility-ID target, consumed by the gbuffer
// resolve pass.
func (p *Pass) View() driver.ImageView { return p.visV }

// DepthView returns the depth attachment, reduced by hiz after the
// early phase completes.
func (p *Pass) DepthView() driver.ImageView { return p.depthV }

// Record draws cp's surviving geometry: the early phase clears all
// targets, the late phase loads them and accumulates the draws the
// refreshed pyramid newly exposed. The viewport is flipped to keep
// a Y-up clip convention.
func (p *Pass) Record(cb driver.CmdBuffer, cp *cull.Culler, phase cull.Phase, heapCopy []int) {
	pass, fb := p.loadPass, p.loadFB
	if phase == cull.PhaseEarly {
		pass, fb = p.clearPass, p.clearFB
	}
	cb.BeginPass(pass, fb, []driver.ClearValue{
		{},
		{},
		{Depth: 0},
	})
	cb.SetPipeline(p.pipeline)
	cb.SetViewport([]driver.Viewport{{
		X: 0, Y: float32(p.height),
		Width: float32(p.width), Height: -float32(p.height),
		Znear: 0, Zfar: 1,
	}})
	cb.SetScissor([]driver.Scissor{{Width: p.width, Height: p.height}})
	cb.SetDescTableGraph(p.table, 0, heapCopy)
	cb.SetIndexBuf(driver.Index32, p.indexBuf, 0)
	cp.DrawCall(cb)
	cb.EndPass()
}

// Destroy releases the pass's device resources.
func (p *Pass) Destroy() {
	for _, d := range []driver.Destroyer{
		p.pipeline, p.clearFB, p.loadFB, p.clearPass, p.loadPass,
		p.colorV, p.color, p.visV, p.vis, p.depthV, p.depth,
	} {
		if d != nil {
			d.Destroy()
		}
	}
}
