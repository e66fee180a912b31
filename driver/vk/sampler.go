package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// Sampler implements driver.Sampler.
type Sampler struct {
	d   *Driver
	spl vk.Sampler
}

func filter(f driver.Filter) vk.Filter {
	if f == driver.FLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func mipmapMode(f driver.Filter) vk.SamplerMipmapMode {
	if f == driver.FLinear {
		return vk.SamplerMipmapModeLinear
	}
	return vk.SamplerMipmapModeNearest
}

func addrMode(m driver.AddrMode) vk.SamplerAddressMode {
	switch m {
	case driver.AMirror:
		return vk.SamplerAddressModeMirroredRepeat
	case driver.AClamp:
		return vk.SamplerAddressModeClampToEdge
	default:
		return vk.SamplerAddressModeRepeat
	}
}

// NewSampler implements driver.GPU.
func (d *Driver) NewSampler(s *driver.Sampling) (driver.Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filter(s.Mag),
		MinFilter:    filter(s.Min),
		MipmapMode:   mipmapMode(s.Mipmap),
		AddressModeU: addrMode(s.AddrU),
		AddressModeV: addrMode(s.AddrV),
		AddressModeW: addrMode(s.AddrW),
		MinLod:       s.MinLOD,
		MaxLod:       s.MaxLOD,
	}
	if s.Mipmap == driver.FNoMipmap {
		info.MipmapMode = vk.SamplerMipmapModeNearest
		info.MaxLod = 0.25
	}
	if s.MaxAniso > 1 {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = float32(s.MaxAniso)
	}
	if s.Cmp != driver.CNever {
		info.CompareEnable = vk.True
		info.CompareOp = cmpFunc(s.Cmp)
	}
	var spl vk.Sampler
	if r := vk.CreateSampler(d.dev, &info, nil, &spl); r != vk.Success {
		return nil, checkResult(r)
	}
	return &Sampler{d: d, spl: spl}, nil
}

// Destroy implements driver.Destroyer.
func (s *Sampler) Destroy() { vk.DestroySampler(s.d.dev, s.spl, nil) }
