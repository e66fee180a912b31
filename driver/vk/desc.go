package vk

import (
	"errors"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// descType translates a driver.DescType into the matching Vulkan
// descriptor type.
func descType(t driver.DescType) vk.DescriptorType {
	switch t {
	case driver.DBuffer:
		return vk.DescriptorTypeStorageBuffer
	case driver.DImage:
		return vk.DescriptorTypeStorageImage
	case driver.DConstant:
		return vk.DescriptorTypeUniformBuffer
	case driver.DTexture:
		return vk.DescriptorTypeSampledImage
	case driver.DSampler:
		return vk.DescriptorTypeSampler
	case driver.DAccelStruct:
		return vk.DescriptorTypeAccelerationStructureKhr
	default:
		return vk.DescriptorTypeStorageBuffer
	}
}

// DescHeap implements driver.DescHeap. Each heap owns one set layout
// and n copies of it allocated from a private pool. A binding whose
// Len is greater than one is an array binding; the bindless texture
// set uses a single DTexture binding with Len up to 1024.
type DescHeap struct {
	d      *Driver
	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	sets   []vk.DescriptorSet
	descs  []driver.Descriptor

	// Per-type descriptor totals for one copy, computed once so
	// New does not rescan descs on every resize.
	counts map[vk.DescriptorType]int
}

// NewDescHeap implements driver.GPU.
func (d *Driver) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	binds := make([]vk.DescriptorSetLayoutBinding, len(ds))
	counts := make(map[vk.DescriptorType]int)
	for i := range ds {
		for j := i + 1; j < len(ds); j++ {
			if ds[i].Nr == ds[j].Nr {
				return nil, errors.New("vk: descriptor number is not unique")
			}
		}
		typ := descType(ds[i].Type)
		counts[typ] += ds[i].Len
		binds[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(ds[i].Nr),
			DescriptorType:  typ,
			DescriptorCount: uint32(ds[i].Len),
			StageFlags:      vk.ShaderStageFlags(stageFlags(ds[i].Stages)),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(binds)),
		PBindings:    binds,
	}
	var layout vk.DescriptorSetLayout
	if r := vk.CreateDescriptorSetLayout(d.dev, &info, nil, &layout); r != vk.Success {
		return nil, checkResult(r)
	}
	// Pool creation and set allocation is deferred to New so a
	// heap that is never populated costs only the layout.
	return &DescHeap{d: d, layout: layout, descs: ds, counts: counts}, nil
}

// New implements driver.DescHeap.
func (h *DescHeap) New(n int) error {
	switch {
	case n == len(h.sets):
		return nil
	case len(h.sets) != 0:
		vk.DestroyDescriptorPool(h.d.dev, h.pool, nil)
		h.pool = vk.NullDescriptorPool
		h.sets = nil
	}
	if n == 0 {
		return nil
	}

	var sizes []vk.DescriptorPoolSize
	for typ, cnt := range h.counts {
		if cnt == 0 {
			continue
		}
		sizes = append(sizes, vk.DescriptorPoolSize{Type: typ, DescriptorCount: uint32(cnt * n)})
	}
	pinfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(n),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if r := vk.CreateDescriptorPool(h.d.dev, &pinfo, nil, &pool); r != vk.Success {
		return checkResult(r)
	}

	layouts := make([]vk.DescriptorSetLayout, n)
	for i := range layouts {
		layouts[i] = h.layout
	}
	ainfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(n),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, n)
	if r := vk.AllocateDescriptorSets(h.d.dev, &ainfo, &sets[0]); r != vk.Success {
		vk.DestroyDescriptorPool(h.d.dev, pool, nil)
		return checkResult(r)
	}
	h.pool = pool
	h.sets = sets
	return nil
}

// typeOf returns the descriptor type registered for binding nr.
func (h *DescHeap) typeOf(nr int) vk.DescriptorType {
	for _, d := range h.descs {
		if d.Nr == nr {
			return descType(d.Type)
		}
	}
	return vk.DescriptorTypeStorageBuffer
}

// SetBuffer implements driver.DescHeap.
func (h *DescHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64) {
	infos := make([]vk.DescriptorBufferInfo, len(buf))
	for i := range buf {
		infos[i] = vk.DescriptorBufferInfo{
			Buffer: buf[i].(*Buffer).buf,
			Offset: vk.DeviceSize(off[i]),
			Range:  vk.DeviceSize(size[i]),
		}
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          h.sets[cpy],
		DstBinding:      uint32(nr),
		DstArrayElement: uint32(start),
		DescriptorCount: uint32(len(buf)),
		DescriptorType:  h.typeOf(nr),
		PBufferInfo:     infos,
	}
	vk.UpdateDescriptorSets(h.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// SetImage implements driver.DescHeap.
func (h *DescHeap) SetImage(cpy, nr, start int, iv []driver.ImageView) {
	typ := h.typeOf(nr)
	lay := vk.ImageLayoutGeneral
	if typ == vk.DescriptorTypeSampledImage {
		lay = vk.ImageLayoutShaderReadOnlyOptimal
	}
	infos := make([]vk.DescriptorImageInfo, len(iv))
	for i := range iv {
		infos[i] = vk.DescriptorImageInfo{
			ImageView:   iv[i].(*ImageView).view,
			ImageLayout: lay,
		}
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          h.sets[cpy],
		DstBinding:      uint32(nr),
		DstArrayElement: uint32(start),
		DescriptorCount: uint32(len(iv)),
		DescriptorType:  typ,
		PImageInfo:      infos,
	}
	vk.UpdateDescriptorSets(h.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// SetSampler implements driver.DescHeap.
func (h *DescHeap) SetSampler(cpy, nr, start int, splr []driver.Sampler) {
	infos := make([]vk.DescriptorImageInfo, len(splr))
	for i := range splr {
		infos[i] = vk.DescriptorImageInfo{Sampler: splr[i].(*Sampler).spl}
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          h.sets[cpy],
		DstBinding:      uint32(nr),
		DstArrayElement: uint32(start),
		DescriptorCount: uint32(len(splr)),
		DescriptorType:  vk.DescriptorTypeSampler,
		PImageInfo:      infos,
	}
	vk.UpdateDescriptorSets(h.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// SetAccelStruct implements driver.DescHeap.
func (h *DescHeap) SetAccelStruct(cpy, nr, start int, as []driver.AccelStruct) {
	structs := make([]vk.AccelerationStructureKHR, len(as))
	for i := range as {
		structs[i] = as[i].(*AccelStruct).as
	}
	asWrite := vk.WriteDescriptorSetAccelerationStructureKHR{
		SType:                      vk.StructureTypeWriteDescriptorSetAccelerationStructureKhr,
		AccelerationStructureCount: uint32(len(structs)),
		PAccelerationStructures:    structs,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		PNext:           unsafe.Pointer(asWrite.Ref()),
		DstSet:          h.sets[cpy],
		DstBinding:      uint32(nr),
		DstArrayElement: uint32(start),
		DescriptorCount: uint32(len(structs)),
		DescriptorType:  vk.DescriptorTypeAccelerationStructureKhr,
	}
	vk.UpdateDescriptorSets(h.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// Count implements driver.DescHeap.
func (h *DescHeap) Count() int { return len(h.sets) }

// Destroy implements driver.Destroyer.
func (h *DescHeap) Destroy() {
	if h == nil {
		return
	}
	if len(h.sets) != 0 {
		vk.DestroyDescriptorPool(h.d.dev, h.pool, nil)
	}
	vk.DestroyDescriptorSetLayout(h.d.dev, h.layout, nil)
	*h = DescHeap{}
}

// DescTable implements driver.DescTable. It owns the pipeline layout
// built from its heaps' set layouts; pipelines created with this
// table share that layout, and SetDescTable* binds against it.
type DescTable struct {
	d      *Driver
	heaps  []*DescHeap
	layout vk.PipelineLayout
}

// NewDescTable implements driver.GPU.
func (d *Driver) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	t := &DescTable{d: d}
	layouts := make([]vk.DescriptorSetLayout, len(dh))
	for i, h := range dh {
		t.heaps = append(t.heaps, h.(*DescHeap))
		layouts[i] = h.(*DescHeap).layout
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}
	var layout vk.PipelineLayout
	if r := vk.CreatePipelineLayout(d.dev, &info, nil, &layout); r != vk.Success {
		return nil, checkResult(r)
	}
	t.layout = layout
	return t, nil
}

// Destroy implements driver.Destroyer.
func (t *DescTable) Destroy() {
	if t == nil || t.d == nil {
		return
	}
	vk.DestroyPipelineLayout(t.d.dev, t.layout, nil)
	*t = DescTable{}
}

// stageFlags converts a driver.Stage mask to Vulkan shader stages.
func stageFlags(stg driver.Stage) (flags vk.ShaderStageFlagBits) {
	if stg&driver.SVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if stg&driver.SFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	if stg&driver.SCompute != 0 {
		flags |= vk.ShaderStageComputeBit
	}
	return
}
