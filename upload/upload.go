// Package upload moves a scene.Scene onto the device: vertex, index,
// meshlet, meshlet-data, material, mesh, draw and instance buffers,
// conditioned textures, and the bottom/top-level acceleration
// structures built over the uploaded geometry.
package upload

import (
	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	scene "github.com/SebastianRueClausen/rendinator-sub000"
	"github.com/SebastianRueClausen/rendinator-sub000/texcompress"
)

// imageAlign is the staging-offset alignment buffer-to-image copies
// require.
const imageAlign = 512

// Arena hands out staging spans from one host-visible buffer,
// tracked at block granularity by a spanBitmap. A scene upload
// allocates in one burst and tears the arena down after the copies
// complete, but spans can also be released individually so a
// longer-lived arena (incremental texture streaming, per-frame
// uniform staging) reuses the holes earlier writes leave.
type Arena struct {
	buf driver.Buffer
	bm  *spanBitmap
}

// NewArena creates a staging arena of at least the given capacity,
// rounded up to whole blocks.
func NewArena(capBytes int64) (*Arena, error) {
	nblocks := int((capBytes + blockSize - 1) / blockSize)
	buf, err := gpuNewBuffer(int64(nblocks)*blockSize, true, driver.UCopySrc)
	if err != nil {
		return nil, err
	}
	return &Arena{buf: buf, bm: newSpanBitmap(nblocks)}, nil
}

// reserve carves out n bytes at the given alignment, returning the
// backing slice and the byte offset it starts at. Spans start on
// block boundaries, which satisfy every alignment a staged write
// can ask for.
func (a *Arena) reserve(n, align int64) ([]byte, int64, error) {
	if align > blockSize {
		return nil, 0, errs.New(errs.KindDevice, "Arena.reserve", errArenaAlign)
	}
	blocks := int((n + blockSize - 1) / blockSize)
	first, ok := a.bm.alloc(blocks)
	if !ok {
		return nil, 0, errs.New(errs.KindDevice, "Arena.reserve", errArenaFull)
	}
	off := int64(first) * blockSize
	return a.buf.Bytes()[off : off+n], off, nil
}

// release returns a span obtained from reserve once the copy that
// read it has completed.
func (a *Arena) release(off, n int64) {
	a.bm.free(int(off/blockSize), int((n+blockSize-1)/blockSize))
}

// Destroy releases the staging buffer. Call only after the copies
// recorded against it have completed.
func (a *Arena) Destroy() { a.buf.Destroy() }

// Scene is the device-resident form of a scene.Scene: one buffer per
// array, a conditioned-texture image array, and the acceleration
// structures built over its geometry. Draw commands and the draw
// count live with the cull pass; this type carries everything the
// cull and raster shaders read.
type Scene struct {
	Vertices     driver.Buffer
	Indices      driver.Buffer
	Meshlets     driver.Buffer
	MeshletData  driver.Buffer
	Materials    driver.Buffer
	Meshes       driver.Buffer
	Draws        driver.Buffer
	Instances    driver.Buffer
	Textures     []driver.Image
	TextureViews []driver.ImageView
	Blas         []driver.AccelStruct
	Tlas         driver.AccelStruct

	// DrawCount is the number of potential draws uploaded to
	// Draws: one per (instance, mesh) pair after flattening.
	DrawCount int
}

// Upload copies s onto the device using cb for the transfer and
// arena for staging. Callers must call cb.Begin/cb.BeginBlit before
// Upload, and cb.EndBlit/cb.End plus a commit-and-wait after; the
// arena may be destroyed once the commit completes.
func Upload(s *scene.Scene, cb driver.CmdBuffer, arena *Arena) (*Scene, error) {
	out := &Scene{}

	flats := s.Flatten()

	for _, part := range []struct {
		data []byte
		usg  driver.Usage
		dst  *driver.Buffer
	}{
		{vertexBytes(s.Vertices), driver.UShaderRead, &out.Vertices},
		{u32Bytes(s.Indices), driver.UIndexData | driver.UShaderRead, &out.Indices},
		{meshletBytes(s.Meshlets), driver.UShaderRead, &out.Meshlets},
		{u32Bytes(s.MeshletData), driver.UShaderRead, &out.MeshletData},
		{materialBytes(s.Materials), driver.UShaderRead | driver.UShaderConst, &out.Materials},
		{meshBytes(s.Meshes), driver.UShaderRead, &out.Meshes},
		{drawBytes(s, flats), driver.UShaderRead, &out.Draws},
		{instanceBytes(flats), driver.UShaderRead, &out.Instances},
	} {
		if err := stageBuffer(cb, arena, part.data, part.usg, part.dst); err != nil {
			return nil, err
		}
	}
	out.DrawCount = drawCount(s, flats)

	for _, tex := range s.Textures {
		ctex := texcompress.Texture(tex)
		img, view, err := uploadTexture(cb, arena, &ctex)
		if err != nil {
			return nil, err
		}
		out.Textures = append(out.Textures, img)
		out.TextureViews = append(out.TextureViews, view)
	}

	blas, tlas, err := buildAccel(out.Vertices, out.Indices, out.Instances, s, flats)
	if err != nil {
		return nil, err
	}
	out.Blas, out.Tlas = blas, tlas
	return out, nil
}

// SceneSize reports the staging bytes needed to upload s, with each
// staged write rounded up to the arena's block granularity; callers
// size the staging arena from it.
func SceneSize(s *scene.Scene) int64 {
	blocks := func(n int64) int64 {
		if n == 0 {
			// stageBuffer stages one zeroed word for an empty array.
			n = 4
		}
		return (n + blockSize - 1) / blockSize * blockSize
	}
	flats := s.Flatten()
	n := blocks(int64(len(s.Vertices)*vertexStride)) +
		blocks(int64(len(s.Indices)*4)) +
		blocks(int64(len(s.Meshlets)*28)) +
		blocks(int64(len(s.MeshletData)*4)) +
		blocks(int64(len(s.Materials)*56)) +
		blocks(int64(len(s.Meshes)*160)) +
		blocks(int64(drawCount(s, flats)*8)) +
		blocks(int64(len(flats)*80))
	for _, t := range s.Textures {
		for _, m := range t.Mips {
			n += blocks(int64(len(m)))
		}
	}
	return n
}

// Destroy releases every device resource the upload owns: buffers,
// images, views, and the acceleration structures. The TLAS goes
// before the BLASes it references.
func (s *Scene) Destroy() {
	if s.Tlas != nil {
		s.Tlas.Destroy()
	}
	for _, b := range s.Blas {
		b.Destroy()
	}
	for _, v := range s.TextureViews {
		v.Destroy()
	}
	for _, img := range s.Textures {
		img.Destroy()
	}
	for _, b := range []driver.Buffer{
		s.Vertices, s.Indices, s.Meshlets, s.MeshletData,
		s.Materials, s.Meshes, s.Draws, s.Instances,
	} {
		if b != nil {
			b.Destroy()
		}
	}
}

func stageBuffer(cb driver.CmdBuffer, arena *Arena, data []byte, usg driver.Usage, dst *driver.Buffer) error {
	size := int64(len(data))
	if size == 0 {
		// Descriptors reject empty ranges; keep one zeroed word.
		size = 4
		data = make([]byte, 4)
	}
	staged, off, err := arena.reserve(size, 4)
	if err != nil {
		return err
	}
	copy(staged, data)
	buf, err := gpuNewBuffer(size, false, usg|driver.UCopyDst)
	if err != nil {
		return err
	}
	cb.CopyBuffer(&driver.BufferCopy{From: arena.buf, FromOff: off, To: buf, Size: size})
	*dst = buf
	return nil
}

func uploadTexture(cb driver.CmdBuffer, arena *Arena, tex *texcompress.Texture) (driver.Image, driver.ImageView, error) {
	pf := driver.BC1RGBun
	if tex.Kind.BlockFormat() == texcompress.BC5 {
		pf = driver.BC5un
	}
	img, err := gpuNewImage(pf, driver.Dim3D{Width: tex.Width, Height: tex.Height, Depth: 1}, 1, len(tex.Mips), 1, driver.UShaderSample|driver.UCopyDst)
	if err != nil {
		return nil, nil, err
	}
	view, err := img.NewView(driver.IView2D, 0, 1, 0, len(tex.Mips))
	if err != nil {
		img.Destroy()
		return nil, nil, err
	}
	cb.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore: driver.SNone, SyncAfter: driver.SCopy,
			AccessBefore: driver.ANone, AccessAfter: driver.ACopyWrite,
		},
		LayoutBefore: driver.LUndefined, LayoutAfter: driver.LCopyDst,
		IView: view,
	}})
	w, h := tex.Width, tex.Height
	for level, mip := range tex.Mips {
		staged, off, err := arena.reserve(int64(len(mip)), imageAlign)
		if err != nil {
			view.Destroy()
			img.Destroy()
			return nil, nil, err
		}
		copy(staged, mip)
		cb.CopyBufToImg(&driver.BufImgCopy{
			Buf: arena.buf, BufOff: off,
			Img: img, Level: level,
			Size: driver.Dim3D{Width: w, Height: h, Depth: 1},
		})
		w, h = max(w/2, 1), max(h/2, 1)
	}
	cb.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore: driver.SCopy, SyncAfter: driver.SFragmentShading | driver.SComputeShading,
			AccessBefore: driver.ACopyWrite, AccessAfter: driver.AShaderRead,
		},
		LayoutBefore: driver.LCopyDst, LayoutAfter: driver.LShaderRead,
		IView: view,
	}})
	return img, view, nil
}

// buildAccel creates one BLAS per mesh over its LOD 0 index range
// and a TLAS over the flattened instance transforms.
func buildAccel(vtx, idx, inst driver.Buffer, s *scene.Scene, flats []scene.Flat) ([]driver.AccelStruct, driver.AccelStruct, error) {
	var blas []driver.AccelStruct
	for _, m := range s.Meshes {
		lod := m.LODs[0]
		geom := driver.AccelGeometry{
			VertexBuf: vtx, VertexOff: int64(m.VertexOffset) * vertexStride,
			VertexStride: vertexStride, VertexCount: int(m.VertexCount), VertexFmt: driver.Int16x3,
			IndexBuf: idx, IndexOff: int64(lod.IndexOffset) * 4, IndexCount: int(lod.IndexCount),
		}
		as, err := gpuGPU().NewAccelStruct(driver.AccelBottom, []driver.AccelGeometry{geom})
		if err != nil {
			return nil, nil, err
		}
		blas = append(blas, as)
	}
	tlas, err := gpuGPU().NewAccelStruct(driver.AccelTop, []driver.AccelGeometry{{
		TransformBuf: inst,
		VertexCount:  len(flats),
	}})
	if err != nil {
		return nil, nil, err
	}
	return blas, tlas, nil
}
