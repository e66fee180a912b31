// Package cull drives the two-phase GPU occlusion cull: a compute
// pass tests every draw's world-space bounding sphere against the
// frustum and the previous frame's HiZ pyramid, appending surviving
// draws to an indirect-with-count buffer, and a second pass re-tests
// the draws the first one rejected against the pyramid rebuilt from
// this frame's own depth, emitting only what the first pass missed.
package cull

import (
	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/gpu"
)

// DrawStride is the byte size of one indexed indirect draw command:
// index_count, instance_count, first_index, vertex_offset,
// first_instance, one u32 each.
const DrawStride = 20

// GroupSize is the cull shader's workgroup width; dispatches cover
// one thread per potential draw.
const GroupSize = 64

// Phase identifies which half of the two-phase cull is running.
type Phase int

const (
	// PhaseEarly tests every draw against the previous frame's
	// HiZ pyramid and records, per draw, whether it was emitted.
	PhaseEarly Phase = iota
	// PhaseLate re-tests the draws PhaseEarly rejected against
	// the pyramid rebuilt from this frame's depth, emitting only
	// draws whose early-phase bit is unset.
	PhaseLate
)

// Culler owns the indirect draw buffer, the atomic draw count, and
// the per-draw early-phase bits shared by both cull pipelines. The
// two pipelines are built from two shader binaries, one per phase,
// with the phase fixed when the shader is compiled; no
// specialization constant is set at pipeline creation, so each
// phase is its own ShaderCode.
type Culler struct {
	maxDraws int

	drawBuf  driver.Buffer
	countBuf driver.Buffer
	// stateBuf holds one u32 per potential draw: nonzero when the
	// early phase emitted it this frame. Written by PhaseEarly,
	// read by PhaseLate.
	stateBuf driver.Buffer

	early driver.Pipeline
	late  driver.Pipeline
	table driver.DescTable
}

// New allocates the shared buffers and builds both phase pipelines
// against the caller's descriptor table.
func New(maxDraws int, earlyCode, lateCode driver.ShaderCode, table driver.DescTable) (*Culler, error) {
	c := &Culler{maxDraws: maxDraws, table: table}
	var err error
	if c.drawBuf, err = gpu.GPU().NewBuffer(int64(maxDraws*DrawStride), false, driver.UShaderWrite|driver.UShaderRead); err != nil {
		return nil, err
	}
	if c.countBuf, err = gpu.GPU().NewBuffer(4, false, driver.UShaderWrite|driver.UShaderRead|driver.UCopyDst); err != nil {
		c.Destroy()
		return nil, err
	}
	if c.stateBuf, err = gpu.GPU().NewBuffer(int64(maxDraws*4), false, driver.UShaderWrite|driver.UShaderRead); err != nil {
		c.Destroy()
		return nil, err
	}
	if c.early, err = gpu.GPU().NewPipeline(&driver.CompState{Func: driver.ShaderFunc{Code: earlyCode}, Desc: table}); err != nil {
		c.Destroy()
		return nil, err
	}
	if c.late, err = gpu.GPU().NewPipeline(&driver.CompState{Func: driver.ShaderFunc{Code: lateCode}, Desc: table}); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

// MaxDraws reports the draw-list capacity.
func (c *Culler) MaxDraws() int { return c.maxDraws }

// DrawBuf returns the indirect draw-command buffer, for descriptor
// wiring.
func (c *Culler) DrawBuf() driver.Buffer { return c.drawBuf }

// CountBuf returns the draw-count buffer, for descriptor wiring.
func (c *Culler) CountBuf() driver.Buffer { return c.countBuf }

// StateBuf returns the per-draw early-phase bit buffer, for
// descriptor wiring.
func (c *Culler) StateBuf() driver.Buffer { return c.stateBuf }

// Dispatch records one cull phase over drawCount potential draws:
// the count buffer is zeroed in a transfer scope that waits for any
// prior consumer of it, then the phase pipeline runs with heapCopy
// selecting the frame's descriptor copies, and the results are made
// visible to the indirect draw that follows.
func (c *Culler) Dispatch(cb driver.CmdBuffer, phase Phase, drawCount int, heapCopy []int) {
	cb.BeginBlit(true)
	cb.Barrier([]driver.Barrier{{
		SyncBefore: driver.SDraw, SyncAfter: driver.SCopy,
		AccessBefore: driver.AIndirectRead, AccessAfter: driver.ACopyWrite,
	}})
	cb.Fill(c.countBuf, 0, 0, 4)
	cb.EndBlit()

	cb.BeginWork(false)
	cb.Barrier([]driver.Barrier{{
		SyncBefore: driver.SCopy, SyncAfter: driver.SComputeShading,
		AccessBefore: driver.ACopyWrite, AccessAfter: driver.AShaderRead | driver.AShaderWrite,
	}})
	switch phase {
	case PhaseEarly:
		cb.SetPipeline(c.early)
	case PhaseLate:
		cb.SetPipeline(c.late)
	}
	cb.SetDescTableComp(c.table, 0, heapCopy)
	cb.Dispatch((drawCount+GroupSize-1)/GroupSize, 1, 1)
	cb.Barrier([]driver.Barrier{{
		SyncBefore: driver.SComputeShading, SyncAfter: driver.SDraw,
		AccessBefore: driver.AShaderWrite, AccessAfter: driver.AIndirectRead,
	}})
	cb.EndWork()
}

// DrawCall issues the indirect-count draw consuming this frame's
// surviving draws. It must be called inside a render pass.
func (c *Culler) DrawCall(cb driver.CmdBuffer) {
	cb.DrawIndexedIndirectCount(c.drawBuf, 0, c.countBuf, 0, c.maxDraws, DrawStride)
}

// Destroy releases the culler's device resources.
func (c *Culler) Destroy() {
	for _, b := range []driver.Buffer{c.drawBuf, c.countBuf, c.stateBuf} {
		if b != nil {
			b.Destroy()
		}
	}
	if c.early != nil {
		c.early.Destroy()
	}
	if c.late != nil {
		c.late.Destroy()
	}
}
