// Package vk implements driver interfaces using the Vulkan API,
// through the github.com/vulkan-go/vulkan bindings rather than
// direct cgo against the Vulkan headers.
package vk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

const driverName = "vulkan"

// Driver implements driver.Driver and driver.GPU.
type Driver struct {
	inst  vk.Instance
	pdev  vk.PhysicalDevice
	dname string
	dev   vk.Device
	ques  []vk.Queue
	qfam  uint32

	// Mutexes for ques synchronization.
	// Queue submission requires that the queue handle be
	// externally synchronized, thus this is needed to allow
	// Commit calls to run concurrently.
	qmus []sync.Mutex

	// Used device memory, indexed by heap indices.
	mused []int64
	mprop vk.PhysicalDeviceMemoryProperties

	lim driver.Limits
}

func init() {
	driver.Register(&Driver{})
}

// initInstance initializes the Vulkan instance.
func (d *Driver) initInstance() error {
	if err := vk.Init(); err != nil {
		return driver.ErrNoDevice
	}
	appInfo := &vk.ApplicationInfo{
		SType:      vk.StructureTypeApplicationInfo,
		ApiVersion: vk.ApiVersion11,
	}
	info := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	free, err := d.setInstanceExts(&info)
	defer free()
	if err != nil {
		return err
	}
	var inst vk.Instance
	if r := vk.CreateInstance(&info, nil, &inst); r != vk.Success {
		return checkResult(r)
	}
	d.inst = inst
	vk.InitInstance(inst)
	return nil
}

// initDevice selects a physical device and creates the logical
// device and queues used for rendering and compute dispatch.
func (d *Driver) initDevice() error {
	var n uint32
	if r := vk.EnumeratePhysicalDevices(d.inst, &n, nil); r != vk.Success {
		return checkResult(r)
	}
	if n == 0 {
		return driver.ErrNoDevice
	}
	pdevs := make([]vk.PhysicalDevice, n)
	if r := vk.EnumeratePhysicalDevices(d.inst, &n, pdevs); r != vk.Success {
		return checkResult(r)
	}

	// Prefer a discrete GPU, fall back to the first device that
	// exposes a graphics+compute queue family.
	best := -1
	bestScore := -1
	var qfam uint32
	for i, pd := range pdevs {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		fam, ok := graphicsQueueFamily(pd)
		if !ok {
			continue
		}
		score := 0
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			score = 1
		}
		if score > bestScore {
			best, bestScore, qfam = i, score, fam
		}
	}
	if best < 0 {
		return driver.ErrNoDevice
	}
	d.pdev = pdevs[best]
	d.qfam = qfam

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.pdev, &props)
	props.Deref()
	d.dname = vk.ToString(props.DeviceName[:])

	vk.GetPhysicalDeviceMemoryProperties(d.pdev, &d.mprop)
	d.mprop.Deref()
	d.mused = make([]int64, d.mprop.MemoryHeapCount)

	queuePriority := float32(1)
	qinfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: qfam,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}
	free, exts, err := d.setDeviceExts()
	defer free()
	if err != nil {
		return err
	}
	dinfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{qinfo},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
	}
	var dev vk.Device
	if r := vk.CreateDevice(d.pdev, &dinfo, nil, &dev); r != vk.Success {
		return checkResult(r)
	}
	d.dev = dev

	var q vk.Queue
	vk.GetDeviceQueue(dev, qfam, 0, &q)
	d.ques = []vk.Queue{q}
	d.qmus = make([]sync.Mutex, 1)

	d.lim = limitsFromProperties(&props)
	return nil
}

// graphicsQueueFamily returns the index of the first queue family
// on pd that supports both graphics and compute.
func graphicsQueueFamily(pd vk.PhysicalDevice) (uint32, bool) {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &n, nil)
	fams := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &n, fams)
	need := vk.QueueFlags(vk.QueueGraphicsBit) | vk.QueueFlags(vk.QueueComputeBit)
	for i, f := range fams {
		f.Deref()
		if vk.QueueFlags(f.QueueFlags)&need == need {
			return uint32(i), true
		}
	}
	return 0, false
}

// Open implements driver.Driver.
func (d *Driver) Open() (driver.GPU, error) {
	if err := d.initInstance(); err != nil {
		return nil, err
	}
	if err := d.initDevice(); err != nil {
		return nil, err
	}
	return d, nil
}

// Name implements driver.Driver.
func (d *Driver) Name() string { return driverName }

// Driver implements driver.GPU: this type plays both roles, so it
// returns itself.
func (d *Driver) Driver() driver.Driver { return d }

// commitTimeout bounds the fence wait for a committed batch.
// Exceeding it is treated as a lost device.
const commitTimeout = uint64(10e9)

// Commit implements driver.GPU. The batch's wait/signal semaphores
// and presentation request, recorded into the command buffers by
// Swapchain.Next/Present, are consumed here: presentation is flushed
// right after submission, and completion is reported through ch once
// the submission fence signals.
func (d *Driver) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	bufs := make([]vk.CommandBuffer, len(cb))
	var waits, sigs []vk.Semaphore
	var pres *presentOp
	for i, c := range cb {
		cc := c.(*CmdBuffer)
		bufs[i] = cc.cb
		waits = append(waits, cc.waitSems...)
		sigs = append(sigs, cc.sigSems...)
		if cc.pres != nil {
			pres = cc.pres
			cc.pres = nil
		}
		cc.waitSems = cc.waitSems[:0]
		cc.sigSems = cc.sigSems[:0]
	}
	stages := make([]vk.PipelineStageFlags, len(waits))
	for i := range stages {
		stages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	finfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var fence vk.Fence
	if r := vk.CreateFence(d.dev, &finfo, nil, &fence); r != vk.Success {
		if ch != nil {
			ch <- checkResult(r)
		}
		return
	}
	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(bufs)),
		PCommandBuffers:      bufs,
		SignalSemaphoreCount: uint32(len(sigs)),
		PSignalSemaphores:    sigs,
	}
	d.qmus[0].Lock()
	r := vk.QueueSubmit(d.ques[0], 1, []vk.SubmitInfo{info}, fence)
	var perr error
	if r == vk.Success && pres != nil {
		perr = pres.flush(d)
	}
	d.qmus[0].Unlock()
	if r != vk.Success {
		vk.DestroyFence(d.dev, fence, nil)
		if ch != nil {
			ch <- checkResult(r)
		}
		return
	}
	go func() {
		res := vk.WaitForFences(d.dev, 1, []vk.Fence{fence}, vk.True, commitTimeout)
		vk.DestroyFence(d.dev, fence, nil)
		if ch == nil {
			return
		}
		if err := checkResult(res); err != nil {
			ch <- err
			return
		}
		ch <- perr
	}()
}

// Limits implements driver.GPU.
func (d *Driver) Limits() driver.Limits { return d.lim }

// Close implements driver.Driver.
func (d *Driver) Close() {
	if d.dev != vk.NullDevice {
		vk.DeviceWaitIdle(d.dev)
		vk.DestroyDevice(d.dev, nil)
	}
	if d.inst != vk.NullInstance {
		vk.DestroyInstance(d.inst, nil)
	}
}
