// Package rendergraph drives one frame of the two-phase renderer:
// early cull against the previous frame's depth pyramid, the first
// visibility raster, the HiZ reduce, late cull against the refreshed
// pyramid, the second visibility raster, and the gbuffer resolve,
// closed by an optional swapchain present. Frames
// are recorded into a small ring of command buffers with matching
// per-frame uniform buffers; a slot is reused only after its
// previous submission's completion is observed, which is the frame
// loop's only CPU-side wait.
package rendergraph

import (
	"encoding/binary"
	"math"

	"github.com/SebastianRueClausen/rendinator-sub000/cull"
	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/gbuffer"
	"github.com/SebastianRueClausen/rendinator-sub000/gpu"
	"github.com/SebastianRueClausen/rendinator-sub000/hiz"
	"github.com/SebastianRueClausen/rendinator-sub000/linear"
	"github.com/SebastianRueClausen/rendinator-sub000/logging"
	"github.com/SebastianRueClausen/rendinator-sub000/visibility"
)

var log = logging.Named("rendergraph")

// UniformSize is the byte size of one frame's camera/screen
// constants.
const UniformSize = 256

// Camera is the per-frame view state written into the uniform ring.
type Camera struct {
	View     linear.M4
	Proj     linear.M4
	Position linear.V3
	Znear    float32
}

// frame is one ring slot: a command buffer, the uniform buffer the
// GPU reads during that frame, and the pending-completion channel of
// the slot's last submission.
type frame struct {
	cb      driver.CmdBuffer
	uniform driver.Buffer
	pend    chan error
}

// Config collects the shader code and descriptor tables the passes
// need; callers build these once at load time from their compiled
// shader binaries. The tables' heaps must hold FrameRing copies,
// one per ring slot.
type Config struct {
	FrameRing     int
	Width, Height int
	MaxDraws      int

	HizReduce           driver.ShaderCode
	CullEarly, CullLate driver.ShaderCode
	CullTable           driver.DescTable
	VisVert, VisFrag    driver.ShaderFunc
	VisTable            driver.DescTable
	ResolveCode         driver.ShaderCode
	ResolveTable        driver.DescTable

	// Swapchain, when set, receives each frame's color output.
	// Without one the graph renders offscreen.
	Swapchain driver.Swapchain

	// OnRebuild runs after the graph replaces its size-dependent
	// targets (resize or out-of-date surface), so the owner can
	// rewrite descriptors that referenced the old views.
	OnRebuild func() error
}

// Graph owns the frame ring plus one instance of each pass.
type Graph struct {
	cfg    Config
	frames []frame
	cur    int
	// frameIdx advances exactly once per Frame call.
	frameIdx uint64

	pyramid *hiz.Pyramid
	culler  *cull.Culler
	vis     *visibility.Pass
	resolve *gbuffer.Pass

	draws int
}

// New builds the frame ring and every pass in cfg.
func New(cfg Config) (*Graph, error) {
	g := &Graph{cfg: cfg}
	for i := 0; i < cfg.FrameRing; i++ {
		cb, err := gpu.GPU().NewCmdBuffer()
		if err != nil {
			g.Destroy()
			return nil, err
		}
		ub, err := gpu.GPU().NewBuffer(UniformSize, true, driver.UShaderConst)
		if err != nil {
			cb.Destroy()
			g.Destroy()
			return nil, err
		}
		g.frames = append(g.frames, frame{cb: cb, uniform: ub})
	}
	if err := g.buildPasses(); err != nil {
		g.Destroy()
		return nil, err
	}
	return g, nil
}

func (g *Graph) buildPasses() error {
	var err error
	if g.pyramid, err = hiz.New(g.cfg.Width, g.cfg.Height, g.cfg.HizReduce); err != nil {
		return err
	}
	// The culler's buffers are sized by MaxDraws, not the surface
	// extent, so it survives resizes.
	if g.culler == nil {
		if g.culler, err = cull.New(g.cfg.MaxDraws, g.cfg.CullEarly, g.cfg.CullLate, g.cfg.CullTable); err != nil {
			return err
		}
	}
	if g.vis, err = visibility.New(g.cfg.Width, g.cfg.Height, g.cfg.VisVert, g.cfg.VisFrag, g.cfg.VisTable); err != nil {
		return err
	}
	if g.resolve, err = gbuffer.New(g.cfg.Width, g.cfg.Height, g.cfg.ResolveCode, g.cfg.ResolveTable); err != nil {
		return err
	}
	g.pyramid.Bind(g.vis.DepthView())
	return nil
}

// Pyramid exposes the depth pyramid for descriptor wiring.
func (g *Graph) Pyramid() *hiz.Pyramid { return g.pyramid }

// Culler exposes the cull pass for descriptor wiring.
func (g *Graph) Culler() *cull.Culler { return g.culler }

// Visibility exposes the raster pass for descriptor wiring.
func (g *Graph) Visibility() *visibility.Pass { return g.vis }

// Resolve exposes the gbuffer pass for descriptor wiring.
func (g *Graph) Resolve() *gbuffer.Pass { return g.resolve }

// UniformBuf returns ring slot i's uniform buffer, for descriptor
// wiring against heap copy i.
func (g *Graph) UniformBuf(i int) driver.Buffer { return g.frames[i].uniform }

// FrameIndex reports how many frames have been recorded.
func (g *Graph) FrameIndex() uint64 { return g.frameIdx }

// SetDrawCount sets the number of potential draws the cull phases
// dispatch over: one per (instance, mesh) pair of the uploaded
// scene.
func (g *Graph) SetDrawCount(n int) { g.draws = n }

// SetGeometry forwards the uploaded index buffer to the raster
// pass.
func (g *Graph) SetGeometry(indexBuf driver.Buffer) { g.vis.SetGeometry(indexBuf) }

// writeCamera packs cam and the target extents into the 256-byte
// uniform layout the shaders consume: view, proj, view*proj, then
// position/znear and the render and pyramid extents.
func writeCamera(b []byte, cam *Camera, w, h, pw, ph int) {
	putM4 := func(off int, m *linear.M4) {
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				binary.LittleEndian.PutUint32(b[off+(c*4+r)*4:], math.Float32bits(m[c][r]))
			}
		}
	}
	putM4(0, &cam.View)
	putM4(64, &cam.Proj)
	var vp linear.M4
	vp.Mul(&cam.Proj, &cam.View)
	putM4(128, &vp)
	for i, f := range cam.Position {
		binary.LittleEndian.PutUint32(b[192+i*4:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(b[204:], math.Float32bits(cam.Znear))
	binary.LittleEndian.PutUint32(b[208:], math.Float32bits(float32(w)))
	binary.LittleEndian.PutUint32(b[212:], math.Float32bits(float32(h)))
	binary.LittleEndian.PutUint32(b[216:], math.Float32bits(float32(pw)))
	binary.LittleEndian.PutUint32(b[220:], math.Float32bits(float32(ph)))
}

// Frame records and commits one frame. The call blocks only on the
// ring slot's previous submission and, when presenting, on swapchain
// acquisition; the recorded work itself completes asynchronously.
func (g *Graph) Frame(cam *Camera) error {
	slot := g.cur
	g.cur = (g.cur + 1) % len(g.frames)
	g.frameIdx++
	f := &g.frames[slot]

	if f.pend != nil {
		if err := <-f.pend; err != nil {
			f.pend = nil
			if err != errs.ErrSuboptimal {
				return err
			}
			log.Warnw("suboptimal surface", "frame", g.frameIdx)
		}
		f.pend = nil
	}

	pw, ph := g.pyramid.Extent()
	writeCamera(f.uniform.Bytes(), cam, g.cfg.Width, g.cfg.Height, pw, ph)

	cb := f.cb
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(); err != nil {
		return err
	}

	presIdx := -1
	if g.cfg.Swapchain != nil {
		idx, err := g.cfg.Swapchain.Next(cb)
		if err == driver.ErrSwapchain {
			if err = g.rebuildSurface(); err != nil {
				return err
			}
			if idx, err = g.cfg.Swapchain.Next(cb); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		presIdx = idx
	}

	hc := []int{slot}

	// Phase one: cull against the previous frame's pyramid, then
	// draw with cleared targets.
	g.culler.Dispatch(cb, cull.PhaseEarly, g.draws, hc)
	g.vis.Record(cb, g.culler, cull.PhaseEarly, hc)

	// Refresh the pyramid from phase one's depth.
	cb.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore: driver.SDSOutput, SyncAfter: driver.SComputeShading,
			AccessBefore: driver.ADSWrite, AccessAfter: driver.AShaderRead,
		},
		LayoutBefore: driver.LDSTarget, LayoutAfter: driver.LShaderRead,
		IView: g.vis.DepthView(),
	}})
	cb.BeginWork(false)
	g.pyramid.Reduce(cb)
	cb.EndWork()
	cb.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore: driver.SComputeShading, SyncAfter: driver.SDSOutput,
			AccessBefore: driver.AShaderRead, AccessAfter: driver.ADSRead | driver.ADSWrite,
		},
		LayoutBefore: driver.LShaderRead, LayoutAfter: driver.LDSTarget,
		IView: g.vis.DepthView(),
	}})

	// Phase two: cull against the fresh pyramid, emitting only
	// draws phase one rejected, then draw with loaded targets.
	g.culler.Dispatch(cb, cull.PhaseLate, g.draws, hc)
	g.vis.Record(cb, g.culler, cull.PhaseLate, hc)

	// Resolve: visibility and depth become shader reads, gbuffer
	// targets become storage writes.
	cb.Transition([]driver.Transition{
		{
			Barrier: driver.Barrier{
				SyncBefore: driver.SColorOutput, SyncAfter: driver.SComputeShading,
				AccessBefore: driver.AColorWrite, AccessAfter: driver.AShaderRead,
			},
			LayoutBefore: driver.LColorTarget, LayoutAfter: driver.LShaderRead,
			IView: g.vis.View(),
		},
		{
			Barrier: driver.Barrier{
				SyncBefore: driver.SDSOutput, SyncAfter: driver.SComputeShading,
				AccessBefore: driver.ADSWrite, AccessAfter: driver.AShaderRead,
			},
			LayoutBefore: driver.LDSTarget, LayoutAfter: driver.LShaderRead,
			IView: g.vis.DepthView(),
		},
		{
			Barrier: driver.Barrier{
				SyncBefore: driver.SComputeShading, SyncAfter: driver.SComputeShading,
				AccessBefore: driver.AShaderRead, AccessAfter: driver.AShaderWrite,
			},
			LayoutBefore: driver.LUndefined, LayoutAfter: driver.LCommon,
			IView: g.resolve.View(gbuffer.TAlbedo),
		},
		{
			Barrier: driver.Barrier{
				SyncBefore: driver.SComputeShading, SyncAfter: driver.SComputeShading,
				AccessBefore: driver.AShaderRead, AccessAfter: driver.AShaderWrite,
			},
			LayoutBefore: driver.LUndefined, LayoutAfter: driver.LCommon,
			IView: g.resolve.View(gbuffer.TNormal),
		},
		{
			Barrier: driver.Barrier{
				SyncBefore: driver.SComputeShading, SyncAfter: driver.SComputeShading,
				AccessBefore: driver.AShaderRead, AccessAfter: driver.AShaderWrite,
			},
			LayoutBefore: driver.LUndefined, LayoutAfter: driver.LCommon,
			IView: g.resolve.View(gbuffer.TEmissive),
		},
	})
	cb.BeginWork(false)
	g.resolve.Record(cb, hc)
	cb.EndWork()

	if presIdx >= 0 {
		g.recordPresent(cb, presIdx)
	}

	if err := cb.End(); err != nil {
		return err
	}
	f.pend = make(chan error, 1)
	gpu.GPU().Commit([]driver.CmdBuffer{cb}, f.pend)
	return nil
}

// recordPresent copies the color target to the acquired swapchain
// image and queues the present request.
func (g *Graph) recordPresent(cb driver.CmdBuffer, idx int) {
	scView := g.cfg.Swapchain.Views()[idx]
	cb.Transition([]driver.Transition{
		{
			Barrier: driver.Barrier{
				SyncBefore: driver.SColorOutput, SyncAfter: driver.SCopy,
				AccessBefore: driver.AColorWrite, AccessAfter: driver.ACopyRead,
			},
			LayoutBefore: driver.LColorTarget, LayoutAfter: driver.LCopySrc,
			IView: g.vis.ColorView(),
		},
		{
			Barrier: driver.Barrier{
				SyncBefore: driver.SColorOutput, SyncAfter: driver.SCopy,
				AccessBefore: driver.ANone, AccessAfter: driver.ACopyWrite,
			},
			LayoutBefore: driver.LUndefined, LayoutAfter: driver.LCopyDst,
			IView: scView,
		},
	})
	cb.BeginBlit(false)
	cb.CopyImage(&driver.ImageCopy{
		From:   g.vis.ColorImage(),
		To:     scView.Image(),
		Size:   driver.Dim3D{Width: g.cfg.Width, Height: g.cfg.Height, Depth: 1},
		Layers: 1,
	})
	cb.EndBlit()
	cb.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore: driver.SCopy, SyncAfter: driver.SNone,
			AccessBefore: driver.ACopyWrite, AccessAfter: driver.ANone,
		},
		LayoutBefore: driver.LCopyDst, LayoutAfter: driver.LPresent,
		IView: scView,
	}})
	if err := g.cfg.Swapchain.Present(idx, cb); err != nil {
		log.Warnw("present request failed", "error", err)
	}
}

// rebuildSurface recreates the swapchain after an out-of-date
// result and resizes the graph to the surface's new extent.
func (g *Graph) rebuildSurface() error {
	if err := g.cfg.Swapchain.Recreate(); err != nil {
		return err
	}
	view := g.cfg.Swapchain.Views()[0]
	w, h := g.cfg.Width, g.cfg.Height
	if img, ok := view.Image().(interface{ Extent() (int, int) }); ok {
		w, h = img.Extent()
	}
	return g.Resize(w, h)
}

// Resize drains in-flight frames, destroys every size-dependent
// resource (depth, visibility, gbuffers, pyramid), and rebuilds
// them at the new extent. Descriptors that referenced the old
// targets must be rewritten by the caller afterwards; UniformBuf
// and the pass accessors return the new resources.
func (g *Graph) Resize(width, height int) error {
	g.wait()
	indexBuf := g.vis.IndexBuf()
	g.vis.Destroy()
	g.resolve.Destroy()
	g.pyramid.Destroy()
	g.vis, g.resolve, g.pyramid = nil, nil, nil
	g.cfg.Width, g.cfg.Height = width, height
	if err := g.buildPasses(); err != nil {
		return err
	}
	g.vis.SetGeometry(indexBuf)
	if g.cfg.OnRebuild != nil {
		return g.cfg.OnRebuild()
	}
	return nil
}

// wait drains every slot's pending submission.
func (g *Graph) wait() {
	for i := range g.frames {
		if g.frames[i].pend != nil {
			<-g.frames[i].pend
			g.frames[i].pend = nil
		}
	}
}

// Destroy releases the graph's device resources after draining
// in-flight frames.
func (g *Graph) Destroy() {
	g.wait()
	for _, f := range g.frames {
		if f.cb != nil {
			f.cb.Destroy()
		}
		if f.uniform != nil {
			f.uniform.Destroy()
		}
	}
	g.frames = nil
	if g.vis != nil {
		g.vis.Destroy()
	}
	if g.resolve != nil {
		g.resolve.Destroy()
	}
	if g.pyramid != nil {
		g.pyramid.Destroy()
	}
	if g.culler != nil {
		g.culler.Destroy()
	}
}
