package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// Image implements driver.Image.
type Image struct {
	d      *Driver
	img    vk.Image
	mem    vk.DeviceMemory
	format vk.Format
	dim    driver.Dim3D
	layers int
	levels int
}

// ImageView implements driver.ImageView.
type ImageView struct {
	d      *Driver
	view   vk.ImageView
	img    *Image
	level  int
	levels int
	layer  int
	layers int
}

func pixelFormat(pf driver.PixelFmt) vk.Format {
	switch pf {
	case driver.RGBA8un:
		return vk.FormatR8g8b8a8Unorm
	case driver.RGBA8n:
		return vk.FormatR8g8b8a8Snorm
	case driver.RGBA8sRGB:
		return vk.FormatR8g8b8a8Srgb
	case driver.BGRA8un:
		return vk.FormatB8g8r8a8Unorm
	case driver.BGRA8sRGB:
		return vk.FormatB8g8r8a8Srgb
	case driver.RG8un:
		return vk.FormatR8g8Unorm
	case driver.RG8n:
		return vk.FormatR8g8Snorm
	case driver.R8un:
		return vk.FormatR8Unorm
	case driver.R8n:
		return vk.FormatR8Snorm
	case driver.RGBA16f:
		return vk.FormatR16g16b16a16Sfloat
	case driver.RG16f:
		return vk.FormatR16g16Sfloat
	case driver.R16f:
		return vk.FormatR16Sfloat
	case driver.RGBA32f:
		return vk.FormatR32g32b32a32Sfloat
	case driver.RG32f:
		return vk.FormatR32g32Sfloat
	case driver.R32f:
		return vk.FormatR32Sfloat
	case driver.R32ui:
		return vk.FormatR32Uint
	case driver.D16un:
		return vk.FormatD16Unorm
	case driver.D32f:
		return vk.FormatD32Sfloat
	case driver.S8ui:
		return vk.FormatS8Uint
	case driver.D24unS8ui:
		return vk.FormatD24UnormS8Uint
	case driver.D32fS8ui:
		return vk.FormatD32SfloatS8Uint
	case driver.BC1RGBun:
		return vk.FormatBc1RgbUnormBlock
	case driver.BC1RGBAun:
		return vk.FormatBc1RgbaUnormBlock
	case driver.BC5un:
		return vk.FormatBc5UnormBlock
	default:
		return vk.FormatR8g8b8a8Unorm
	}
}

// NewImage implements driver.GPU.
func (d *Driver) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	var usageFlags vk.ImageUsageFlagBits
	if usg&driver.UShaderSample != 0 {
		usageFlags |= vk.ImageUsageSampledBit
	}
	if usg&driver.UShaderRead != 0 || usg&driver.UShaderWrite != 0 {
		usageFlags |= vk.ImageUsageStorageBit
	}
	if usg&driver.UCopySrc != 0 {
		usageFlags |= vk.ImageUsageTransferSrcBit
	}
	if usg&driver.UCopyDst != 0 {
		usageFlags |= vk.ImageUsageTransferDstBit
	}
	if usg&driver.URenderTarget != 0 {
		usageFlags |= vk.ImageUsageColorAttachmentBit
	}
	if usg&driver.UDepthStencil != 0 {
		usageFlags |= vk.ImageUsageDepthStencilAttachmentBit
	}

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    pixelFormat(pf),
		Extent:    vk.Extent3D{Width: uint32(size.Width), Height: uint32(size.Height), Depth: uint32(max1(size.Depth))},
		MipLevels: uint32(max1(levels)),
		ArrayLayers: uint32(max1(layers)),
		Samples:   vk.SampleCountFlagBits(samples),
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(usageFlags),
	}
	var img vk.Image
	if r := vk.CreateImage(d.dev, &info, nil, &img); r != vk.Success {
		return nil, checkResult(r)
	}
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, img, &req)
	req.Deref()
	idx, ok := d.memoryTypeIndex(req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if !ok {
		vk.DestroyImage(d.dev, img, nil)
		return nil, driver.ErrNoDeviceMemory
	}
	mi := vk.MemoryAllocateInfo{SType: vk.StructureTypeMemoryAllocateInfo, AllocationSize: req.Size, MemoryTypeIndex: idx}
	var mem vk.DeviceMemory
	if r := vk.AllocateMemory(d.dev, &mi, nil, &mem); r != vk.Success {
		vk.DestroyImage(d.dev, img, nil)
		return nil, checkResult(r)
	}
	vk.BindImageMemory(d.dev, img, mem, 0)
	return &Image{d: d, img: img, mem: mem, format: pixelFormat(pf), dim: size, layers: max1(layers), levels: max1(levels)}, nil
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func viewType(typ driver.ViewType) vk.ImageViewType {
	switch typ {
	case driver.IView1D:
		return vk.ImageViewType1d
	case driver.IView3D:
		return vk.ImageViewType3d
	case driver.IViewCube, driver.IViewCubeArray:
		return vk.ImageViewTypeCube
	case driver.IView1DArray:
		return vk.ImageViewType1dArray
	case driver.IView2DArray, driver.IView2DMSArray:
		return vk.ImageViewType2dArray
	default:
		return vk.ImageViewType2d
	}
}

func aspectMask(format vk.Format) vk.ImageAspectFlagBits {
	switch format {
	case vk.FormatD32Sfloat, vk.FormatD16Unorm:
		return vk.ImageAspectDepthBit
	case vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return vk.ImageAspectDepthBit | vk.ImageAspectStencilBit
	default:
		return vk.ImageAspectColorBit
	}
}

// NewView implements driver.Image.
func (i *Image) NewView(typ driver.ViewType, layer, layerCount, level, levelCount int) (driver.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.img,
		ViewType: viewType(typ),
		Format:   i.format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspectMask(i.format)),
			BaseMipLevel:   uint32(level),
			LevelCount:     uint32(levelCount),
			BaseArrayLayer: uint32(layer),
			LayerCount:     uint32(layerCount),
		},
	}
	var view vk.ImageView
	if r := vk.CreateImageView(i.d.dev, &info, nil, &view); r != vk.Success {
		return nil, checkResult(r)
	}
	return &ImageView{d: i.d, view: view, img: i, level: level, levels: levelCount, layer: layer, layers: layerCount}, nil
}

// Image implements driver.ImageView.
func (v *ImageView) Image() driver.Image { return v.img }

// Extent reports the image's width and height.
func (i *Image) Extent() (int, int) { return i.dim.Width, i.dim.Height }

// Destroy implements driver.Destroyer.
func (i *Image) Destroy() {
	vk.DestroyImage(i.d.dev, i.img, nil)
	vk.FreeMemory(i.d.dev, i.mem, nil)
}

// Destroy implements driver.Destroyer.
func (v *ImageView) Destroy() { vk.DestroyImageView(v.d.dev, v.view, nil) }
