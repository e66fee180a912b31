package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// CmdBuffer implements driver.CmdBuffer.
type CmdBuffer struct {
	d    *Driver
	pool vk.CommandPool
	cb   vk.CommandBuffer

	// Semaphores the enclosing Commit must wait on/signal, and the
	// presentation request, if any, to flush after submission.
	// Swapchain.Next and Swapchain.Present fill these in.
	waitSems []vk.Semaphore
	sigSems  []vk.Semaphore
	pres     *presentOp
}

// NewCmdBuffer implements driver.GPU.
func (d *Driver) NewCmdBuffer() (driver.CmdBuffer, error) {
	if len(d.ques) == 0 {
		return nil, driver.ErrNoDevice
	}
	pinfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.qfam,
	}
	var pool vk.CommandPool
	if r := vk.CreateCommandPool(d.dev, &pinfo, nil, &pool); r != vk.Success {
		return nil, checkResult(r)
	}
	ainfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if r := vk.AllocateCommandBuffers(d.dev, &ainfo, cbs); r != vk.Success {
		vk.DestroyCommandPool(d.dev, pool, nil)
		return nil, checkResult(r)
	}
	return &CmdBuffer{d: d, pool: pool, cb: cbs[0]}, nil
}

// Begin implements driver.CmdBuffer.
func (c *CmdBuffer) Begin() error {
	c.waitSems = c.waitSems[:0]
	c.sigSems = c.sigSems[:0]
	c.pres = nil
	info := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	return checkResult(vk.BeginCommandBuffer(c.cb, &info))
}

// BeginPass implements driver.CmdBuffer.
func (c *CmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear []driver.ClearValue) {
	rp := pass.(*RenderPass)
	f := fb.(*Framebuf)
	clears := make([]vk.ClearValue, len(clear))
	for i, cv := range clear {
		if rp.ds[i] {
			clears[i].SetDepthStencil(cv.Depth, cv.Stencil)
		} else {
			clears[i].SetColor(cv.Color[:])
		}
	}
	info := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.pass,
		Framebuffer:     f.fb,
		RenderArea:      vk.Rect2D{Extent: vk.Extent2D{Width: uint32(f.width), Height: uint32(f.height)}},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(c.cb, &info, vk.SubpassContentsInline)
}

// NextSubpass implements driver.CmdBuffer.
func (c *CmdBuffer) NextSubpass() { vk.CmdNextSubpass(c.cb, vk.SubpassContentsInline) }

// EndPass implements driver.CmdBuffer.
func (c *CmdBuffer) EndPass() { vk.CmdEndRenderPass(c.cb) }

// BeginWork implements driver.CmdBuffer. Vulkan command buffers have
// no notion of a compute "scope"; wait is honored through a pipeline
// barrier instead.
func (c *CmdBuffer) BeginWork(wait bool) {
	if wait {
		c.Barrier([]driver.Barrier{{SyncBefore: driver.SAll, SyncAfter: driver.SComputeShading, AccessBefore: driver.AAnyWrite, AccessAfter: driver.AAnyRead}})
	}
}

// EndWork implements driver.CmdBuffer.
func (c *CmdBuffer) EndWork() {}

// BeginBlit implements driver.CmdBuffer.
func (c *CmdBuffer) BeginBlit(wait bool) {
	if wait {
		c.Barrier([]driver.Barrier{{SyncBefore: driver.SAll, SyncAfter: driver.SCopy, AccessBefore: driver.AAnyWrite, AccessAfter: driver.ACopyRead}})
	}
}

// EndBlit implements driver.CmdBuffer.
func (c *CmdBuffer) EndBlit() {}

// SetPipeline implements driver.CmdBuffer.
func (c *CmdBuffer) SetPipeline(pl driver.Pipeline) {
	p := pl.(*Pipeline)
	vk.CmdBindPipeline(c.cb, p.bindPoint, p.pipeline)
}

// SetViewport implements driver.CmdBuffer.
func (c *CmdBuffer) SetViewport(vp []driver.Viewport) {
	vs := make([]vk.Viewport, len(vp))
	for i, v := range vp {
		vs[i] = vk.Viewport{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height, MinDepth: v.Znear, MaxDepth: v.Zfar}
	}
	vk.CmdSetViewport(c.cb, 0, uint32(len(vs)), vs)
}

// SetScissor implements driver.CmdBuffer.
func (c *CmdBuffer) SetScissor(sciss []driver.Scissor) {
	ss := make([]vk.Rect2D, len(sciss))
	for i, s := range sciss {
		ss[i] = vk.Rect2D{Offset: vk.Offset2D{X: int32(s.X), Y: int32(s.Y)}, Extent: vk.Extent2D{Width: uint32(s.Width), Height: uint32(s.Height)}}
	}
	vk.CmdSetScissor(c.cb, 0, uint32(len(ss)), ss)
}

// SetBlendColor implements driver.CmdBuffer.
func (c *CmdBuffer) SetBlendColor(r, g, b, a float32) {
	constants := [4]float32{r, g, b, a}
	vk.CmdSetBlendConstants(c.cb, &constants)
}

// SetStencilRef implements driver.CmdBuffer.
func (c *CmdBuffer) SetStencilRef(value uint32) {
	vk.CmdSetStencilReference(c.cb, vk.StencilFaceFlags(vk.StencilFrontAndBack), value)
}

// SetVertexBuf implements driver.CmdBuffer.
func (c *CmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64) {
	bufs := make([]vk.Buffer, len(buf))
	offs := make([]vk.DeviceSize, len(off))
	for i, b := range buf {
		bufs[i] = b.(*Buffer).buf
		offs[i] = vk.DeviceSize(off[i])
	}
	vk.CmdBindVertexBuffers(c.cb, uint32(start), uint32(len(bufs)), bufs, offs)
}

// SetIndexBuf implements driver.CmdBuffer.
func (c *CmdBuffer) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64) {
	it := vk.IndexTypeUint16
	if format == driver.Index32 {
		it = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(c.cb, buf.(*Buffer).buf, vk.DeviceSize(off), it)
}

// SetDescTableGraph implements driver.CmdBuffer: heapCopy[i] selects
// which copy of heap start+i to bind as descriptor set start+i.
func (c *CmdBuffer) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int) {
	c.bindDescTable(table, start, heapCopy, vk.PipelineBindPointGraphics)
}

// SetDescTableComp implements driver.CmdBuffer.
func (c *CmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	c.bindDescTable(table, start, heapCopy, vk.PipelineBindPointCompute)
}

func (c *CmdBuffer) bindDescTable(table driver.DescTable, start int, heapCopy []int, bp vk.PipelineBindPoint) {
	t := table.(*DescTable)
	sets := make([]vk.DescriptorSet, len(heapCopy))
	for i, cp := range heapCopy {
		sets[i] = t.heaps[start+i].sets[cp]
	}
	vk.CmdBindDescriptorSets(c.cb, bp, t.layout, uint32(start), uint32(len(sets)), sets, 0, nil)
}

// Draw implements driver.CmdBuffer.
func (c *CmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	vk.CmdDraw(c.cb, uint32(vertCount), uint32(instCount), uint32(baseVert), uint32(baseInst))
}

// DrawIndexed implements driver.CmdBuffer.
func (c *CmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {
	vk.CmdDrawIndexed(c.cb, uint32(idxCount), uint32(instCount), uint32(baseIdx), int32(vertOff), uint32(baseInst))
}

// DrawIndexedIndirectCount implements driver.CmdBuffer, dispatching
// the two-phase cull pass's surviving draw batches via
// VK_KHR_draw_indirect_count: the actual draw count is read from
// GPU memory, so the CPU never needs to know how many draws the
// compute cull pass produced.
func (c *CmdBuffer) DrawIndexedIndirectCount(drawBuf driver.Buffer, drawOff int64, countBuf driver.Buffer, countOff int64, maxDraws int, stride int64) {
	vk.CmdDrawIndexedIndirectCountKHR(
		c.cb,
		drawBuf.(*Buffer).buf, vk.DeviceSize(drawOff),
		countBuf.(*Buffer).buf, vk.DeviceSize(countOff),
		uint32(maxDraws), uint32(stride),
	)
}

// Dispatch implements driver.CmdBuffer.
func (c *CmdBuffer) Dispatch(x, y, z int) {
	vk.CmdDispatch(c.cb, uint32(x), uint32(y), uint32(z))
}

// CopyBuffer implements driver.CmdBuffer.
func (c *CmdBuffer) CopyBuffer(p *driver.BufferCopy) {
	region := vk.BufferCopy{SrcOffset: vk.DeviceSize(p.FromOff), DstOffset: vk.DeviceSize(p.ToOff), Size: vk.DeviceSize(p.Size)}
	vk.CmdCopyBuffer(c.cb, p.From.(*Buffer).buf, p.To.(*Buffer).buf, 1, []vk.BufferCopy{region})
}

// CopyImage implements driver.CmdBuffer.
func (c *CmdBuffer) CopyImage(p *driver.ImageCopy) {
	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), MipLevel: uint32(p.FromLevel), BaseArrayLayer: uint32(p.FromLayer), LayerCount: uint32(p.Layers)},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), MipLevel: uint32(p.ToLevel), BaseArrayLayer: uint32(p.ToLayer), LayerCount: uint32(p.Layers)},
		Extent:         vk.Extent3D{Width: uint32(p.Size.Width), Height: uint32(p.Size.Height), Depth: uint32(max1(p.Size.Depth))},
	}
	vk.CmdCopyImage(c.cb, p.From.(*Image).img, vk.ImageLayoutTransferSrcOptimal, p.To.(*Image).img, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageCopy{region})
}

// CopyBufToImg implements driver.CmdBuffer.
func (c *CmdBuffer) CopyBufToImg(p *driver.BufImgCopy) {
	region := vk.BufferImageCopy{
		BufferOffset:      vk.DeviceSize(p.BufOff),
		BufferRowLength:   uint32(p.Stride[0]),
		BufferImageHeight: uint32(p.Stride[1]),
		ImageSubresource:  vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), MipLevel: uint32(p.Level), BaseArrayLayer: uint32(p.Layer), LayerCount: 1},
		ImageExtent:       vk.Extent3D{Width: uint32(p.Size.Width), Height: uint32(p.Size.Height), Depth: uint32(max1(p.Size.Depth))},
	}
	vk.CmdCopyBufferToImage(c.cb, p.Buf.(*Buffer).buf, p.Img.(*Image).img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// CopyImgToBuf implements driver.CmdBuffer.
func (c *CmdBuffer) CopyImgToBuf(p *driver.BufImgCopy) {
	region := vk.BufferImageCopy{
		BufferOffset:      vk.DeviceSize(p.BufOff),
		BufferRowLength:   uint32(p.Stride[0]),
		BufferImageHeight: uint32(p.Stride[1]),
		ImageSubresource:  vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), MipLevel: uint32(p.Level), BaseArrayLayer: uint32(p.Layer), LayerCount: 1},
		ImageExtent:       vk.Extent3D{Width: uint32(p.Size.Width), Height: uint32(p.Size.Height), Depth: uint32(max1(p.Size.Depth))},
	}
	vk.CmdCopyImageToBuffer(c.cb, p.Img.(*Image).img, vk.ImageLayoutTransferSrcOptimal, p.Buf.(*Buffer).buf, 1, []vk.BufferImageCopy{region})
}

// Fill implements driver.CmdBuffer.
func (c *CmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	word := uint32(value) | uint32(value)<<8 | uint32(value)<<16 | uint32(value)<<24
	vk.CmdFillBuffer(c.cb, buf.(*Buffer).buf, vk.DeviceSize(off), vk.DeviceSize(size), word)
}

// Barrier implements driver.CmdBuffer.
func (c *CmdBuffer) Barrier(bs []driver.Barrier) {
	for _, b := range bs {
		mb := vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: accessFlags(b.AccessBefore),
			DstAccessMask: accessFlags(b.AccessAfter),
		}
		vk.CmdPipelineBarrier(c.cb, syncStage(b.SyncBefore), syncStage(b.SyncAfter), 0, 1, []vk.MemoryBarrier{mb}, 0, nil, 0, nil)
	}
}

// Transition implements driver.CmdBuffer.
func (c *CmdBuffer) Transition(ts []driver.Transition) {
	for _, t := range ts {
		iv := t.IView.(*ImageView)
		ib := vk.ImageMemoryBarrier{
			SType:         vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask: accessFlags(t.AccessBefore),
			DstAccessMask: accessFlags(t.AccessAfter),
			OldLayout:     imageLayout(t.LayoutBefore),
			NewLayout:     imageLayout(t.LayoutAfter),
			Image:         iv.img.img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(aspectMask(iv.img.format)),
				BaseMipLevel:   uint32(iv.level),
				LevelCount:     uint32(iv.levels),
				BaseArrayLayer: uint32(iv.layer),
				LayerCount:     uint32(iv.layers),
			},
		}
		vk.CmdPipelineBarrier(c.cb, syncStage(t.SyncBefore), syncStage(t.SyncAfter), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{ib})
	}
}

// End implements driver.CmdBuffer.
func (c *CmdBuffer) End() error { return checkResult(vk.EndCommandBuffer(c.cb)) }

// Reset implements driver.CmdBuffer.
func (c *CmdBuffer) Reset() error {
	return checkResult(vk.ResetCommandBuffer(c.cb, 0))
}

// Destroy implements driver.Destroyer.
func (c *CmdBuffer) Destroy() { vk.DestroyCommandPool(c.d.dev, c.pool, nil) }

func syncStage(s driver.Sync) vk.PipelineStageFlags {
	var f vk.PipelineStageFlagBits
	if s&driver.SVertexInput != 0 {
		f |= vk.PipelineStageVertexInputBit
	}
	if s&driver.SVertexShading != 0 {
		f |= vk.PipelineStageVertexShaderBit
	}
	if s&driver.SFragmentShading != 0 {
		f |= vk.PipelineStageFragmentShaderBit
	}
	if s&driver.SComputeShading != 0 {
		f |= vk.PipelineStageComputeShaderBit
	}
	if s&driver.SColorOutput != 0 {
		f |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&driver.SDSOutput != 0 {
		f |= vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit
	}
	if s&driver.SDraw != 0 {
		f |= vk.PipelineStageDrawIndirectBit | vk.PipelineStageAllGraphicsBit
	}
	if s&driver.SResolve != 0 {
		f |= vk.PipelineStageTransferBit
	}
	if s&driver.SCopy != 0 {
		f |= vk.PipelineStageTransferBit
	}
	if s&driver.SAll != 0 {
		f = vk.PipelineStageAllCommandsBit
	}
	if f == 0 {
		f = vk.PipelineStageTopOfPipeBit
	}
	return vk.PipelineStageFlags(f)
}

func accessFlags(a driver.Access) vk.AccessFlags {
	var f vk.AccessFlagBits
	if a&driver.AVertexBufRead != 0 {
		f |= vk.AccessVertexAttributeReadBit
	}
	if a&driver.AIndexBufRead != 0 {
		f |= vk.AccessIndexReadBit
	}
	if a&driver.AShaderRead != 0 {
		f |= vk.AccessShaderReadBit
	}
	if a&driver.AShaderWrite != 0 {
		f |= vk.AccessShaderWriteBit
	}
	if a&driver.AColorRead != 0 {
		f |= vk.AccessColorAttachmentReadBit
	}
	if a&driver.AColorWrite != 0 {
		f |= vk.AccessColorAttachmentWriteBit
	}
	if a&driver.ADSRead != 0 {
		f |= vk.AccessDepthStencilAttachmentReadBit
	}
	if a&driver.ADSWrite != 0 {
		f |= vk.AccessDepthStencilAttachmentWriteBit
	}
	if a&driver.ACopyRead != 0 || a&driver.AResolveRead != 0 {
		f |= vk.AccessTransferReadBit
	}
	if a&driver.ACopyWrite != 0 || a&driver.AResolveWrite != 0 {
		f |= vk.AccessTransferWriteBit
	}
	if a&driver.AIndirectRead != 0 {
		f |= vk.AccessIndirectCommandReadBit
	}
	if a&driver.AAnyRead != 0 {
		f |= vk.AccessMemoryReadBit
	}
	if a&driver.AAnyWrite != 0 {
		f |= vk.AccessMemoryWriteBit
	}
	return vk.AccessFlags(f)
}

func imageLayout(l driver.Layout) vk.ImageLayout {
	switch l {
	case driver.LColorTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case driver.LDSTarget:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case driver.LDSRead:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case driver.LCopySrc:
		return vk.ImageLayoutTransferSrcOptimal
	case driver.LCopyDst:
		return vk.ImageLayoutTransferDstOptimal
	case driver.LShaderRead:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case driver.LPresent:
		return vk.ImageLayoutPresentSrcKhr
	default:
		return vk.ImageLayoutGeneral
	}
}
