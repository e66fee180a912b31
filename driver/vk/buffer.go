package vk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// Buffer implements driver.Buffer.
type Buffer struct {
	d       *Driver
	buf     vk.Buffer
	mem     vk.DeviceMemory
	size    int64
	visible bool
	mapped  unsafeMapping
}

type unsafeMapping struct {
	ptr  []byte
	live bool
}

func usageFlags(usg driver.Usage) vk.BufferUsageFlagBits {
	var f vk.BufferUsageFlagBits
	if usg&driver.UVertexData != 0 {
		f |= vk.BufferUsageVertexBufferBit
	}
	if usg&driver.UIndexData != 0 {
		f |= vk.BufferUsageIndexBufferBit
	}
	if usg&driver.UShaderConst != 0 {
		f |= vk.BufferUsageUniformBufferBit
	}
	if usg&driver.UShaderRead != 0 || usg&driver.UShaderWrite != 0 {
		f |= vk.BufferUsageStorageBufferBit
	}
	if usg&driver.UCopySrc != 0 {
		f |= vk.BufferUsageTransferSrcBit
	}
	if usg&driver.UCopyDst != 0 {
		f |= vk.BufferUsageTransferDstBit
	}
	f |= vk.BufferUsageFlagBits(vk.BufferUsageShaderDeviceAddressBit)
	return f
}

// NewBuffer implements driver.GPU.
func (d *Driver) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	info := vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  vk.DeviceSize(size),
		Usage: vk.BufferUsageFlags(usageFlags(usg)),
	}
	var buf vk.Buffer
	if r := vk.CreateBuffer(d.dev, &info, nil, &buf); r != vk.Success {
		return nil, checkResult(r)
	}
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf, &req)
	req.Deref()

	flags := vk.MemoryPropertyDeviceLocalBit
	if visible {
		flags = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	idx, ok := d.memoryTypeIndex(req.MemoryTypeBits, vk.MemoryPropertyFlags(flags))
	if !ok {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, driver.ErrNoDeviceMemory
	}
	mi := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: idx,
	}
	var mem vk.DeviceMemory
	if r := vk.AllocateMemory(d.dev, &mi, nil, &mem); r != vk.Success {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, checkResult(r)
	}
	if r := vk.BindBufferMemory(d.dev, buf, mem, 0); r != vk.Success {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, checkResult(r)
	}
	return &Buffer{d: d, buf: buf, mem: mem, size: size, visible: visible}, nil
}

// Bytes implements driver.Buffer: it returns a host-visible view of
// the buffer's memory, valid only when the buffer was created with
// visible set.
func (b *Buffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	if !b.mapped.live {
		var ptr unsafe.Pointer
		vk.MapMemory(b.d.dev, b.mem, 0, vk.DeviceSize(b.size), 0, &ptr)
		b.mapped = unsafeMapping{ptr: unsafe.Slice((*byte)(ptr), int(b.size)), live: true}
	}
	return b.mapped.ptr
}

// Visible implements driver.Buffer.
func (b *Buffer) Visible() bool { return b.visible }

// Cap implements driver.Buffer.
func (b *Buffer) Cap() int64 { return b.size }

// Destroy implements driver.Destroyer.
func (b *Buffer) Destroy() {
	if b.mapped.live {
		vk.UnmapMemory(b.d.dev, b.mem)
	}
	vk.DestroyBuffer(b.d.dev, b.buf, nil)
	vk.FreeMemory(b.d.dev, b.mem, nil)
}
