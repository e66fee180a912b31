package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// ShaderCode implements driver.ShaderCode, wrapping a SPIR-V module.
type ShaderCode struct {
	d      *Driver
	module vk.ShaderModule
}

// NewShaderCode implements driver.GPU.
func (d *Driver) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    sliceUint32(data),
	}
	var mod vk.ShaderModule
	if r := vk.CreateShaderModule(d.dev, &info, nil, &mod); r != vk.Success {
		return nil, checkResult(r)
	}
	return &ShaderCode{d: d, module: mod}, nil
}

// Destroy implements driver.Destroyer.
func (s *ShaderCode) Destroy() { vk.DestroyShaderModule(s.d.dev, s.module, nil) }

// sliceUint32 reinterprets a SPIR-V byte blob as the uint32 words
// vulkan-go's ShaderModuleCreateInfo expects.
func sliceUint32(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return out
}
