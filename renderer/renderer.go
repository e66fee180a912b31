// Package renderer assembles the device-side pipeline: it uploads a
// conditioned scene, builds the descriptor heaps and tables every
// pass binds (including the bindless texture array), and drives the
// per-frame render graph. Initialization failures propagate up from
// here and are fatal; per-frame surface losses are handled by
// rebuilding size-dependent state.
package renderer

import (
	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/gpu"
	"github.com/SebastianRueClausen/rendinator-sub000/logging"
	"github.com/SebastianRueClausen/rendinator-sub000/rendergraph"
	scene "github.com/SebastianRueClausen/rendinator-sub000"
	"github.com/SebastianRueClausen/rendinator-sub000/upload"
)

var log = logging.Named("renderer")

// MaxTextures is the bindless texture array's slot count.
const MaxTextures = 1024

// stagingSlack pads the staging arena beyond the packed scene size
// to absorb per-write alignment.
const stagingSlack = 1 << 20

// Shaders carries the compiled shader binaries the passes execute.
// The cull shader comes as two binaries, one per phase, with the
// phase fixed when the shader is compiled; no specialization
// constant is set when the pipelines are created.
type Shaders struct {
	HizReduce []byte
	CullEarly []byte
	CullLate  []byte
	VisVert   []byte
	VisFrag   []byte
	Resolve   []byte
}

// Config sizes the renderer.
type Config struct {
	Width, Height int
	FrameRing     int
	MaxDraws      int
	// Swapchain, when set, receives each frame's output.
	Swapchain driver.Swapchain
}

// Renderer owns the uploaded scene, the descriptor layer, and the
// render graph.
type Renderer struct {
	cfg Config
	scn *upload.Scene

	codes   []driver.ShaderCode
	sampler driver.Sampler

	cullHeap, visHeap, resolveHeap    driver.DescHeap
	cullTable, visTable, resolveTable driver.DescTable

	// pyramidView spans the full mip chain; rebuilt on resize.
	pyramidView driver.ImageView

	graph *rendergraph.Graph
}

// New uploads s and builds the full frame pipeline.
func New(s *scene.Scene, sh Shaders, cfg Config) (*Renderer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			r.Destroy()
		}
	}()

	if err := r.uploadScene(s); err != nil {
		return nil, errs.New(errs.KindDevice, "renderer.New", err)
	}
	if err := r.buildDescriptors(); err != nil {
		return nil, errs.New(errs.KindDevice, "renderer.New", err)
	}

	code := func(data []byte) (driver.ShaderCode, error) {
		c, err := gpu.GPU().NewShaderCode(data)
		if err == nil {
			r.codes = append(r.codes, c)
		}
		return c, err
	}
	hizCode, err := code(sh.HizReduce)
	if err != nil {
		return nil, err
	}
	earlyCode, err := code(sh.CullEarly)
	if err != nil {
		return nil, err
	}
	lateCode, err := code(sh.CullLate)
	if err != nil {
		return nil, err
	}
	visVert, err := code(sh.VisVert)
	if err != nil {
		return nil, err
	}
	visFrag, err := code(sh.VisFrag)
	if err != nil {
		return nil, err
	}
	resolveCode, err := code(sh.Resolve)
	if err != nil {
		return nil, err
	}

	r.graph, err = rendergraph.New(rendergraph.Config{
		FrameRing: cfg.FrameRing,
		Width:     cfg.Width, Height: cfg.Height,
		MaxDraws:  cfg.MaxDraws,
		HizReduce: hizCode,
		CullEarly: earlyCode, CullLate: lateCode,
		CullTable: r.cullTable,
		VisVert:   driver.ShaderFunc{Code: visVert},
		VisFrag:   driver.ShaderFunc{Code: visFrag},
		VisTable:  r.visTable,
		ResolveCode:  resolveCode,
		ResolveTable: r.resolveTable,
		Swapchain:    cfg.Swapchain,
		OnRebuild:    func() error { return r.wire() },
	})
	if err != nil {
		return nil, err
	}
	r.graph.SetDrawCount(r.scn.DrawCount)
	r.graph.SetGeometry(r.scn.Indices)
	if err := r.wire(); err != nil {
		return nil, err
	}
	log.Infow("renderer ready",
		"draws", r.scn.DrawCount,
		"textures", len(r.scn.Textures),
		"extent", []int{cfg.Width, cfg.Height})
	ok = true
	return r, nil
}

// uploadScene stages s onto the device through one transient
// command buffer, then drops the staging arena.
func (r *Renderer) uploadScene(s *scene.Scene) error {
	arena, err := upload.NewArena(upload.SceneSize(s) + stagingSlack)
	if err != nil {
		return err
	}
	defer arena.Destroy()
	return gpu.Transient(func(cb driver.CmdBuffer) error {
		cb.BeginBlit(false)
		scn, err := upload.Upload(s, cb, arena)
		if err != nil {
			return err
		}
		cb.EndBlit()
		r.scn = scn
		return nil
	})
}

// buildDescriptors creates the three pass heaps and tables. Every
// heap holds FrameRing copies so each ring slot binds its own
// uniform buffer; the non-uniform bindings are written identically
// into every copy.
func (r *Renderer) buildDescriptors() error {
	var err error
	r.cullHeap, err = gpu.GPU().NewDescHeap([]driver.Descriptor{
		{Type: driver.DConstant, Stages: driver.SCompute, Nr: 0, Len: 1},
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 1, Len: 1}, // draws
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 2, Len: 1}, // meshes
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 3, Len: 1}, // instances
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 4, Len: 1}, // draw commands
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 5, Len: 1}, // draw count
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 6, Len: 1}, // early-phase bits
		{Type: driver.DTexture, Stages: driver.SCompute, Nr: 7, Len: 1},
		{Type: driver.DSampler, Stages: driver.SCompute, Nr: 8, Len: 1},
		{Type: driver.DAccelStruct, Stages: driver.SCompute, Nr: 9, Len: 1},
	})
	if err != nil {
		return err
	}
	r.visHeap, err = gpu.GPU().NewDescHeap([]driver.Descriptor{
		{Type: driver.DConstant, Stages: driver.SVertex | driver.SFragment, Nr: 0, Len: 1},
		{Type: driver.DBuffer, Stages: driver.SVertex, Nr: 1, Len: 1}, // vertices
		{Type: driver.DBuffer, Stages: driver.SVertex, Nr: 2, Len: 1}, // draws
		{Type: driver.DBuffer, Stages: driver.SVertex, Nr: 3, Len: 1}, // instances
		{Type: driver.DBuffer, Stages: driver.SVertex, Nr: 4, Len: 1}, // meshes
	})
	if err != nil {
		return err
	}
	r.resolveHeap, err = gpu.GPU().NewDescHeap([]driver.Descriptor{
		{Type: driver.DConstant, Stages: driver.SCompute, Nr: 0, Len: 1},
		{Type: driver.DTexture, Stages: driver.SCompute, Nr: 1, Len: 1}, // visibility IDs
		{Type: driver.DTexture, Stages: driver.SCompute, Nr: 2, Len: 1}, // depth
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 3, Len: 1},  // vertices
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 4, Len: 1},  // indices
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 5, Len: 1},  // meshes
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 6, Len: 1},  // draws
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 7, Len: 1},  // instances
		{Type: driver.DBuffer, Stages: driver.SCompute, Nr: 8, Len: 1},  // materials
		{Type: driver.DImage, Stages: driver.SCompute, Nr: 9, Len: 3},   // gbuffer targets
		{Type: driver.DSampler, Stages: driver.SCompute, Nr: 10, Len: 1},
		// Bindless material textures; populated up to the
		// uploaded count, the rest alias slot zero.
		{Type: driver.DTexture, Stages: driver.SCompute, Nr: 11, Len: MaxTextures},
	})
	if err != nil {
		return err
	}
	for _, h := range []driver.DescHeap{r.cullHeap, r.visHeap, r.resolveHeap} {
		if err := h.New(r.cfg.FrameRing); err != nil {
			return err
		}
	}
	if r.cullTable, err = gpu.GPU().NewDescTable([]driver.DescHeap{r.cullHeap}); err != nil {
		return err
	}
	if r.visTable, err = gpu.GPU().NewDescTable([]driver.DescHeap{r.visHeap}); err != nil {
		return err
	}
	if r.resolveTable, err = gpu.GPU().NewDescTable([]driver.DescHeap{r.resolveHeap}); err != nil {
		return err
	}
	r.sampler, err = gpu.GPU().NewSampler(&driver.Sampling{
		Min: driver.FLinear, Mag: driver.FLinear, Mipmap: driver.FLinear,
		AddrU: driver.AWrap, AddrV: driver.AWrap, AddrW: driver.AWrap,
		MaxLOD: 16,
	})
	return err
}

// wire writes every descriptor: the scene buffers once per ring
// copy, the per-slot uniform buffers, and the size-dependent image
// views. It runs at initialization and again after every resize.
func (r *Renderer) wire() error {
	if r.pyramidView != nil {
		r.pyramidView.Destroy()
	}
	var err error
	if r.pyramidView, err = r.graph.Pyramid().FullView(); err != nil {
		return err
	}

	whole := func(b driver.Buffer) ([]driver.Buffer, []int64, []int64) {
		return []driver.Buffer{b}, []int64{0}, []int64{b.Cap()}
	}
	culler := r.graph.Culler()
	vis := r.graph.Visibility()
	resolve := r.graph.Resolve()
	for i := 0; i < r.cfg.FrameRing; i++ {
		ub, uo, us := whole(r.graph.UniformBuf(i))

		r.cullHeap.SetBuffer(i, 0, 0, ub, uo, us)
		for nr, b := range map[int]driver.Buffer{
			1: r.scn.Draws,
			2: r.scn.Meshes,
			3: r.scn.Instances,
			4: culler.DrawBuf(),
			5: culler.CountBuf(),
			6: culler.StateBuf(),
		} {
			bs, off, sz := whole(b)
			r.cullHeap.SetBuffer(i, nr, 0, bs, off, sz)
		}
		r.cullHeap.SetImage(i, 7, 0, []driver.ImageView{r.pyramidView})
		r.cullHeap.SetSampler(i, 8, 0, []driver.Sampler{r.sampler})
		r.cullHeap.SetAccelStruct(i, 9, 0, []driver.AccelStruct{r.scn.Tlas})

		r.visHeap.SetBuffer(i, 0, 0, ub, uo, us)
		for nr, b := range map[int]driver.Buffer{
			1: r.scn.Vertices,
			2: r.scn.Draws,
			3: r.scn.Instances,
			4: r.scn.Meshes,
		} {
			bs, off, sz := whole(b)
			r.visHeap.SetBuffer(i, nr, 0, bs, off, sz)
		}

		r.resolveHeap.SetBuffer(i, 0, 0, ub, uo, us)
		r.resolveHeap.SetImage(i, 1, 0, []driver.ImageView{vis.View()})
		r.resolveHeap.SetImage(i, 2, 0, []driver.ImageView{vis.DepthView()})
		for nr, b := range map[int]driver.Buffer{
			3: r.scn.Vertices,
			4: r.scn.Indices,
			5: r.scn.Meshes,
			6: r.scn.Draws,
			7: r.scn.Instances,
			8: r.scn.Materials,
		} {
			bs, off, sz := whole(b)
			r.resolveHeap.SetBuffer(i, nr, 0, bs, off, sz)
		}
		r.resolveHeap.SetImage(i, 9, 0, []driver.ImageView{
			resolve.View(0), resolve.View(1), resolve.View(2),
		})
		r.resolveHeap.SetSampler(i, 10, 0, []driver.Sampler{r.sampler})
		if len(r.scn.TextureViews) > 0 {
			r.resolveHeap.SetImage(i, 11, 0, r.scn.TextureViews)
			// Alias the tail so out-of-range material indices
			// stay valid reads.
			fill := make([]driver.ImageView, MaxTextures-len(r.scn.TextureViews))
			for j := range fill {
				fill[j] = r.scn.TextureViews[0]
			}
			r.resolveHeap.SetImage(i, 11, len(r.scn.TextureViews), fill)
		}
	}
	return nil
}

// Frame records and commits one frame.
func (r *Renderer) Frame(cam *rendergraph.Camera) error {
	return r.graph.Frame(cam)
}

// Resize rebuilds the size-dependent render targets; the graph's
// rebuild hook rewires the descriptors that referenced them.
func (r *Renderer) Resize(width, height int) error {
	r.cfg.Width, r.cfg.Height = width, height
	return r.graph.Resize(width, height)
}

// Destroy releases every device resource the renderer owns.
func (r *Renderer) Destroy() {
	if r.graph != nil {
		r.graph.Destroy()
	}
	if r.pyramidView != nil {
		r.pyramidView.Destroy()
	}
	for _, t := range []driver.DescTable{r.cullTable, r.visTable, r.resolveTable} {
		if t != nil {
			t.Destroy()
		}
	}
	for _, h := range []driver.DescHeap{r.cullHeap, r.visHeap, r.resolveHeap} {
		if h != nil {
			h.Destroy()
		}
	}
	for _, c := range r.codes {
		c.Destroy()
	}
	if r.sampler != nil {
		r.sampler.Destroy()
	}
	if r.scn != nil {
		r.scn.Destroy()
	}
}
