// Package hiz builds and reduces the hierarchical-Z depth pyramid
// the two-phase cull pass samples for occlusion testing.
package hiz

import (
	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/gpu"
)

// Pyramid is a single-aspect mip chain reduced from the depth
// buffer with a min filter so a conservative (never-too-near, under
// reverse-Z) depth bound is available at every level. Its base level
// is sized to the previous power of two of half the render extent,
// so every 2x2 reduction maps exactly four source texels to one.
type Pyramid struct {
	img           driver.Image
	views         []driver.ImageView
	levels        int
	width, height int
	reduce        driver.Pipeline
	heap          driver.DescHeap
	table         driver.DescTable
	sampler       driver.Sampler
}

// PrevPow2 returns the largest power of two less than or equal to n,
// or 1 when n < 1.
func PrevPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// levelCount is the full chain length for a power-of-two base:
// log2(max(w,h)) + 1, down to a 1x1 top.
func levelCount(w, h int) int {
	n := 1
	for w > 1 || h > 1 {
		w = max(w/2, 1)
		h = max(h/2, 1)
		n++
	}
	return n
}

// New allocates the pyramid image and per-level views for a render
// target of width x height, and builds the compute pipeline (sampled
// source, storage destination and sampler descriptors) that reduces
// each level from the one below it (or from the depth buffer into
// level 0).
func New(width, height int, reduceCode driver.ShaderCode) (*Pyramid, error) {
	pw, ph := PrevPow2(width/2), PrevPow2(height/2)
	levels := levelCount(pw, ph)
	img, err := gpu.GPU().NewImage(driver.R32f, driver.Dim3D{Width: pw, Height: ph, Depth: 1}, 1, levels, 1,
		driver.UShaderRead|driver.UShaderWrite|driver.UShaderSample)
	if err != nil {
		return nil, err
	}
	p := &Pyramid{img: img, levels: levels, width: pw, height: ph}
	for l := 0; l < levels; l++ {
		v, err := img.NewView(driver.IView2D, 0, 1, l, 1)
		if err != nil {
			p.Destroy()
			return nil, err
		}
		p.views = append(p.views, v)
	}
	heap, err := gpu.GPU().NewDescHeap([]driver.Descriptor{
		{Type: driver.DTexture, Stages: driver.SCompute, Nr: 0, Len: 1},
		{Type: driver.DImage, Stages: driver.SCompute, Nr: 1, Len: 1},
		{Type: driver.DSampler, Stages: driver.SCompute, Nr: 2, Len: 1},
	})
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.heap = heap
	if err := heap.New(levels); err != nil {
		p.Destroy()
		return nil, err
	}
	p.sampler, err = gpu.GPU().NewSampler(&driver.Sampling{
		Min: driver.FNearest, Mag: driver.FNearest, Mipmap: driver.FNoMipmap,
		AddrU: driver.AClamp, AddrV: driver.AClamp, AddrW: driver.AClamp,
	})
	if err != nil {
		p.Destroy()
		return nil, err
	}
	table, err := gpu.GPU().NewDescTable([]driver.DescHeap{heap})
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.table = table
	pl, err := gpu.GPU().NewPipeline(&driver.CompState{Func: driver.ShaderFunc{Code: reduceCode}, Desc: table})
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.reduce = pl
	return p, nil
}

// Bind writes the per-level source/destination descriptors: heap
// copy l samples level l-1 (or the depth buffer, for l = 0) and
// writes level l as a storage image. It must be called once after
// New, and again whenever depth is replaced (a resize rebuilds
// both).
func (p *Pyramid) Bind(depth driver.ImageView) {
	src := depth
	for l := 0; l < p.levels; l++ {
		p.heap.SetImage(l, 0, 0, []driver.ImageView{src})
		p.heap.SetImage(l, 1, 0, []driver.ImageView{p.views[l]})
		p.heap.SetSampler(l, 2, 0, []driver.Sampler{p.sampler})
		src = p.views[l]
	}
}

// View returns the image view for a given mip level.
func (p *Pyramid) View(level int) driver.ImageView { return p.views[level] }

// FullView returns a view over the whole chain, as sampled by the
// cull pass.
func (p *Pyramid) FullView() (driver.ImageView, error) {
	return p.img.NewView(driver.IView2D, 0, 1, 0, p.levels)
}

// Levels reports the number of mip levels in the pyramid.
func (p *Pyramid) Levels() int { return p.levels }

// Extent reports the base level's dimensions.
func (p *Pyramid) Extent() (int, int) { return p.width, p.height }

// Reduce dispatches one compute pass per mip level: level 0 samples
// the resolved depth buffer, each further level reads a 2x2
// neighborhood of the previous one and writes the scalar min, which
// under reverse-Z keeps the farthest-from-camera bound of the four,
// the conservative value an occlusion test must compare against.
// Each mip moves through a write layout for its own dispatch and a
// sampled-read layout for the next one, which also leaves the full
// chain readable by the late cull pass (and by the next frame's
// early pass). Stale contents are discarded; the early cull that
// needed them ran before Reduce was recorded.
func (p *Pyramid) Reduce(cb driver.CmdBuffer) {
	cb.SetPipeline(p.reduce)
	w, h := p.width, p.height
	for l := 0; l < p.levels; l++ {
		if l > 0 {
			w, h = max(w/2, 1), max(h/2, 1)
		}
		cb.Transition([]driver.Transition{{
			Barrier: driver.Barrier{
				SyncBefore: driver.SComputeShading, SyncAfter: driver.SComputeShading,
				AccessBefore: driver.AShaderRead, AccessAfter: driver.AShaderWrite,
			},
			LayoutBefore: driver.LUndefined, LayoutAfter: driver.LCommon,
			IView: p.views[l],
		}})
		cb.SetDescTableComp(p.table, 0, []int{l})
		cb.Dispatch((w+7)/8, (h+7)/8, 1)
		cb.Transition([]driver.Transition{{
			Barrier: driver.Barrier{
				SyncBefore: driver.SComputeShading, SyncAfter: driver.SComputeShading,
				AccessBefore: driver.AShaderWrite, AccessAfter: driver.AShaderRead,
			},
			LayoutBefore: driver.LCommon, LayoutAfter: driver.LShaderRead,
			IView: p.views[l],
		}})
	}
}

// Destroy releases the pyramid's device resources.
func (p *Pyramid) Destroy() {
	for _, v := range p.views {
		v.Destroy()
	}
	p.views = nil
	if p.reduce != nil {
		p.reduce.Destroy()
	}
	if p.table != nil {
		p.table.Destroy()
	}
	if p.heap != nil {
		p.heap.Destroy()
	}
	if p.sampler != nil {
		p.sampler.Destroy()
	}
	p.img.Destroy()
}
