package vk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// platformSurfaceExts lists the WSI instance extensions requested at
// instance creation so that a platform surface handed to newSurface
// can be consumed. vulkan-go resolves the concrete platform loader
// at init time, so the names can be requested unconditionally.
var platformSurfaceExts = []string{
	"VK_KHR_xcb_surface",
	"VK_KHR_wayland_surface",
	"VK_KHR_win32_surface",
}

// vulkanSurfacer is the seam between this backend and the
// window-system glue: a driver.Window whose platform layer can
// create a VkSurfaceKHR for a given VkInstance exposes the raw
// handle here. Surface creation itself stays outside the driver;
// the driver consumes only the handle and the window's extent.
type vulkanSurfacer interface {
	VulkanSurface(instance uintptr) (uintptr, error)
}

// newSurface obtains a surface for win, or ErrCannotPresent when the
// window's platform glue does not provide one.
func (d *Driver) newSurface(win driver.Window) (vk.Surface, error) {
	vs, ok := win.(vulkanSurfacer)
	if !ok {
		return vk.NullSurface, driver.ErrCannotPresent
	}
	h, err := vs.VulkanSurface(uintptr(unsafe.Pointer(d.inst)))
	if err != nil {
		return vk.NullSurface, driver.ErrWindow
	}
	return vk.SurfaceFromPointer(h), nil
}
