package vk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
)

// acquireTimeout bounds swapchain image acquisition. The wait is not
// cancellable; exceeding the bound is treated as fatal by callers.
const acquireTimeout = uint64(10e9)

// Swapchain implements driver.Swapchain.
type Swapchain struct {
	d   *Driver
	win driver.Window
	sf  vk.Surface
	sc  vk.Swapchain
	pf  driver.PixelFmt

	imgs  []vk.Image
	views []driver.ImageView

	// One acquire semaphore per potentially-outstanding Next and
	// one present semaphore per image. Acquire semaphores rotate;
	// present semaphores are keyed by the image they guard since
	// presentation completion is never waited for on Commit.
	acqSems  []vk.Semaphore
	presSems []vk.Semaphore
	acqNext  int

	// broken is set on out-of-date results; Recreate clears it.
	broken bool
	mu     sync.Mutex
}

// NewSwapchain implements driver.Presenter.
func (d *Driver) NewSwapchain(win driver.Window, imageCount int) (driver.Swapchain, error) {
	sf, err := d.newSurface(win)
	if err != nil {
		return nil, err
	}
	var supported vk.Bool32
	if r := vk.GetPhysicalDeviceSurfaceSupport(d.pdev, d.qfam, sf, &supported); r != vk.Success || supported != vk.True {
		vk.DestroySurface(d.inst, sf, nil)
		return nil, driver.ErrCannotPresent
	}
	s := &Swapchain{d: d, win: win, sf: sf}
	if err := s.initSwapchain(imageCount, vk.NullSwapchain); err != nil {
		vk.DestroySurface(d.inst, sf, nil)
		return nil, err
	}
	if err := s.initSync(); err != nil {
		s.destroySwapchain()
		vk.DestroySurface(d.inst, sf, nil)
		return nil, err
	}
	return s, nil
}

// initSwapchain creates the swapchain, fetches its images, and
// builds one full view per image. old, when valid, is handed to the
// driver for reuse and destroyed afterwards.
func (s *Swapchain) initSwapchain(imageCount int, old vk.Swapchain) error {
	var capab vk.SurfaceCapabilities
	if r := vk.GetPhysicalDeviceSurfaceCapabilities(s.d.pdev, s.sf, &capab); r != vk.Success {
		return checkResult(r)
	}
	capab.Deref()

	nimg := uint32(imageCount)
	if capab.MinImageCount > nimg {
		nimg = capab.MinImageCount
	} else if capab.MaxImageCount != 0 && capab.MaxImageCount < nimg {
		nimg = capab.MaxImageCount
	}

	extent := capab.CurrentExtent
	if extent.Width == ^uint32(0) {
		extent = vk.Extent2D{Width: uint32(s.win.Width()), Height: uint32(s.win.Height())}
	}
	if extent.Width == 0 || extent.Height == 0 {
		return driver.ErrWindow
	}

	var calpha vk.CompositeAlphaFlagBits
	switch ca := vk.CompositeAlphaFlagBits(capab.SupportedCompositeAlpha); {
	case ca&vk.CompositeAlphaInheritBit != 0:
		calpha = vk.CompositeAlphaInheritBit
	case ca&vk.CompositeAlphaOpaqueBit != 0:
		calpha = vk.CompositeAlphaOpaqueBit
	default:
		return driver.ErrCompositor
	}

	format, colorSpace, pf, err := s.pickFormat()
	if err != nil {
		return err
	}
	s.pf = pf

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.sf,
		MinImageCount:    nimg,
		ImageFormat:      format,
		ImageColorSpace:  colorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capab.CurrentTransform,
		CompositeAlpha:   calpha,
		// FIFO is the one mode every conformant driver provides.
		PresentMode:  vk.PresentModeFifo,
		Clipped:      vk.True,
		OldSwapchain: old,
	}
	var sc vk.Swapchain
	if r := vk.CreateSwapchain(s.d.dev, &info, nil, &sc); r != vk.Success {
		return checkResult(r)
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(s.d.dev, old, nil)
	}
	s.sc = sc

	var n uint32
	if r := vk.GetSwapchainImages(s.d.dev, sc, &n, nil); r != vk.Success {
		return checkResult(r)
	}
	s.imgs = make([]vk.Image, n)
	if r := vk.GetSwapchainImages(s.d.dev, sc, &n, s.imgs); r != vk.Success {
		return checkResult(r)
	}
	s.views = make([]driver.ImageView, n)
	for i, img := range s.imgs {
		wrap := &Image{
			d:      s.d,
			img:    img,
			format: format,
			dim:    driver.Dim3D{Width: int(extent.Width), Height: int(extent.Height), Depth: 1},
			layers: 1,
			levels: 1,
		}
		v, err := wrap.NewView(driver.IView2D, 0, 1, 0, 1)
		if err != nil {
			for _, pv := range s.views[:i] {
				pv.Destroy()
			}
			return err
		}
		s.views[i] = v
	}
	return nil
}

// pickFormat chooses the first supported format from the preferred
// list, mirroring the ordering the surface layer has always used.
func (s *Swapchain) pickFormat() (vk.Format, vk.ColorSpace, driver.PixelFmt, error) {
	var n uint32
	if r := vk.GetPhysicalDeviceSurfaceFormats(s.d.pdev, s.sf, &n, nil); r != vk.Success {
		return 0, 0, 0, checkResult(r)
	}
	fmts := make([]vk.SurfaceFormat, n)
	if r := vk.GetPhysicalDeviceSurfaceFormats(s.d.pdev, s.sf, &n, fmts); r != vk.Success {
		return 0, 0, 0, checkResult(r)
	}
	pref := []struct {
		pf  driver.PixelFmt
		fmt vk.Format
	}{
		{driver.RGBA8sRGB, vk.FormatR8g8b8a8Srgb},
		{driver.BGRA8sRGB, vk.FormatB8g8r8a8Srgb},
		{driver.RGBA8un, vk.FormatR8g8b8a8Unorm},
		{driver.BGRA8un, vk.FormatB8g8r8a8Unorm},
		{driver.RGBA16f, vk.FormatR16g16b16a16Sfloat},
	}
	for _, p := range pref {
		for j := range fmts {
			fmts[j].Deref()
			if fmts[j].Format == p.fmt {
				return p.fmt, fmts[j].ColorSpace, p.pf, nil
			}
		}
	}
	return 0, 0, 0, driver.ErrCannotPresent
}

// initSync creates the acquire/present semaphore rings.
func (s *Swapchain) initSync() error {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	n := len(s.views)
	s.acqSems = make([]vk.Semaphore, n)
	s.presSems = make([]vk.Semaphore, n)
	for i := 0; i < n; i++ {
		if r := vk.CreateSemaphore(s.d.dev, &info, nil, &s.acqSems[i]); r != vk.Success {
			return checkResult(r)
		}
		if r := vk.CreateSemaphore(s.d.dev, &info, nil, &s.presSems[i]); r != vk.Success {
			return checkResult(r)
		}
	}
	return nil
}

// Views implements driver.Swapchain.
func (s *Swapchain) Views() []driver.ImageView { return s.views }

// Format implements driver.Swapchain.
func (s *Swapchain) Format() driver.PixelFmt { return s.pf }

// Next implements driver.Swapchain.
func (s *Swapchain) Next(cb driver.CmdBuffer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return -1, driver.ErrSwapchain
	}
	sem := s.acqSems[s.acqNext]
	var idx uint32
	switch r := vk.AcquireNextImage(s.d.dev, s.sc, acquireTimeout, sem, vk.NullFence, &idx); r {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDateKhr:
		s.broken = true
		return -1, driver.ErrSwapchain
	case vk.NotReady, vk.Timeout:
		return -1, driver.ErrNoBackbuffer
	default:
		return -1, checkResult(r)
	}
	s.acqNext = (s.acqNext + 1) % len(s.acqSems)
	cc := cb.(*CmdBuffer)
	cc.waitSems = append(cc.waitSems, sem)
	return int(idx), nil
}

// Present implements driver.Swapchain. The request is recorded on cb
// and flushed by Commit after queue submission.
func (s *Swapchain) Present(index int, cb driver.CmdBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return driver.ErrSwapchain
	}
	cc := cb.(*CmdBuffer)
	cc.sigSems = append(cc.sigSems, s.presSems[index])
	cc.pres = &presentOp{sc: s, index: uint32(index)}
	return nil
}

// presentOp is a pending presentation flushed by Driver.Commit.
type presentOp struct {
	sc    *Swapchain
	index uint32
}

// flush issues the queue-present request. The caller holds the
// queue mutex.
func (op *presentOp) flush(d *Driver) error {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{op.sc.presSems[op.index]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{op.sc.sc},
		PImageIndices:      []uint32{op.index},
	}
	err := checkResult(vk.QueuePresent(d.ques[0], &info))
	if err == errs.ErrOutOfDate {
		op.sc.mu.Lock()
		op.sc.broken = true
		op.sc.mu.Unlock()
	}
	return err
}

// Recreate implements driver.Swapchain. It drains the device, drops
// the size-dependent image views, and rebuilds the swapchain at the
// surface's current extent.
func (s *Swapchain) Recreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vk.DeviceWaitIdle(s.d.dev)
	for _, v := range s.views {
		v.Destroy()
	}
	s.views = nil
	s.imgs = nil
	old := s.sc
	s.sc = vk.NullSwapchain
	if err := s.initSwapchain(len(s.acqSems), old); err != nil {
		return err
	}
	s.broken = false
	s.acqNext = 0
	return nil
}

// destroySwapchain releases views and the swapchain handle.
func (s *Swapchain) destroySwapchain() {
	for _, v := range s.views {
		v.Destroy()
	}
	if s.sc != vk.NullSwapchain {
		vk.DestroySwapchain(s.d.dev, s.sc, nil)
	}
}

// Destroy implements driver.Destroyer.
func (s *Swapchain) Destroy() {
	vk.DeviceWaitIdle(s.d.dev)
	for _, sem := range s.acqSems {
		vk.DestroySemaphore(s.d.dev, sem, nil)
	}
	for _, sem := range s.presSems {
		vk.DestroySemaphore(s.d.dev, sem, nil)
	}
	s.destroySwapchain()
	vk.DestroySurface(s.d.inst, s.sf, nil)
	*s = Swapchain{}
}
