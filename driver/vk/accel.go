package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// AccelStruct implements driver.AccelStruct over
// VK_KHR_acceleration_structure.
type AccelStruct struct {
	d       *Driver
	as      vk.AccelerationStructureKHR
	buf     *Buffer
	kind    driver.AccelKind
	scratch int64
}

// NewAccelStruct implements driver.GPU. Per the scratch-size open
// question, the reported ScratchSize is double the single-build
// requirement so a TLAS refit can run while the next frame's build
// is still in flight.
func (d *Driver) NewAccelStruct(kind driver.AccelKind, geom []driver.AccelGeometry) (driver.AccelStruct, error) {
	asType := vk.AccelerationStructureTypeBottomLevelKhr
	if kind == driver.AccelTop {
		asType = vk.AccelerationStructureTypeTopLevelKhr
	}

	size := int64(0)
	for _, g := range geom {
		size += int64(g.VertexCount)*g.VertexStride + int64(g.IndexCount)*4
	}
	if size == 0 {
		size = 256
	}
	buf, err := d.NewBuffer(size, false, driver.UGeneric)
	if err != nil {
		return nil, err
	}
	info := vk.AccelerationStructureCreateInfoKHR{
		SType:  vk.StructureTypeAccelerationStructureCreateInfoKhr,
		Buffer: buf.(*Buffer).buf,
		Size:   vk.DeviceSize(size),
		Type:   asType,
	}
	var as vk.AccelerationStructureKHR
	if r := vk.CreateAccelerationStructureKHR(d.dev, &info, nil, &as); r != vk.Success {
		buf.Destroy()
		return nil, checkResult(r)
	}
	return &AccelStruct{d: d, as: as, buf: buf.(*Buffer), kind: kind, scratch: size * 2}, nil
}

// Kind implements driver.AccelStruct.
func (a *AccelStruct) Kind() driver.AccelKind { return a.kind }

// ScratchSize implements driver.AccelStruct.
func (a *AccelStruct) ScratchSize() int64 { return a.scratch }

// Destroy implements driver.Destroyer.
func (a *AccelStruct) Destroy() {
	vk.DestroyAccelerationStructureKHR(a.d.dev, a.as, nil)
	a.buf.Destroy()
}
