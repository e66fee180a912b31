package vk

import (
	"fmt"
	"os"
	"strconv"

	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
)

// checkResult translates a Vulkan result code into an error,
// returning nil for vk.Success.
func checkResult(r vk.Result) error {
	if r == vk.Success {
		return nil
	}
	switch r {
	case vk.ErrorOutOfDateKhr:
		return errs.ErrOutOfDate
	case vk.Suboptimal:
		return errs.ErrSuboptimal
	case vk.ErrorDeviceLost:
		return fmt.Errorf("vk: device lost")
	default:
		return fmt.Errorf("vk: result %d", r)
	}
}

// validationEnabled parses the environment toggle that controls
// validation-layer enablement. Any value strconv.ParseBool accepts
// as true turns the layer on; unset or unparsable means off.
func validationEnabled() bool {
	v, err := strconv.ParseBool(os.Getenv("RENDINATOR_VALIDATION"))
	return err == nil && v
}

// setInstanceExts fills in the extension/layer names used when
// creating the instance. The returned func releases any backing
// storage and must be deferred by the caller.
func (d *Driver) setInstanceExts(info *vk.InstanceCreateInfo) (func(), error) {
	exts := []string{"VK_KHR_surface"}
	exts = append(exts, platformSurfaceExts...)
	info.EnabledExtensionCount = uint32(len(exts))
	info.PpEnabledExtensionNames = exts
	if validationEnabled() {
		layers := []string{"VK_LAYER_KHRONOS_validation"}
		info.EnabledLayerCount = uint32(len(layers))
		info.PpEnabledLayerNames = layers
	}
	return func() {}, nil
}

// setDeviceExts returns the device extensions this driver requires:
// a swapchain plus acceleration structures and indirect-count draws
// for the two-phase cull and visibility raster passes.
func (d *Driver) setDeviceExts() (func(), []string, error) {
	exts := []string{
		"VK_KHR_swapchain",
		"VK_KHR_acceleration_structure",
		"VK_KHR_deferred_host_operations",
		"VK_KHR_draw_indirect_count",
	}
	return func() {}, exts, nil
}

// limitsFromProperties converts the physical device's reported
// limits into a driver.Limits.
func limitsFromProperties(props *vk.PhysicalDeviceProperties) driver.Limits {
	l := props.Limits
	l.Deref()
	return driver.Limits{
		MaxImage2D:   int(l.MaxImageDimension2D),
		MaxImageCube: int(l.MaxImageDimensionCube),
		MaxImage3D:   int(l.MaxImageDimension3D),
		MaxImage1D:   int(l.MaxImageDimension1D),
		MaxLayers:    int(l.MaxImageArrayLayers),
	}
}

// memoryTypeIndex picks the first memory type satisfying reqBits
// and the requested property flags.
func (d *Driver) memoryTypeIndex(reqBits uint32, flags vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < d.mprop.MemoryTypeCount; i++ {
		t := d.mprop.MemoryTypes[i]
		t.Deref()
		if reqBits&(1<<i) == 0 {
			continue
		}
		if vk.MemoryPropertyFlags(t.PropertyFlags)&flags == flags {
			return i, true
		}
	}
	return 0, false
}
