package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// RenderPass implements driver.RenderPass.
type RenderPass struct {
	d    *Driver
	pass vk.RenderPass
	// ds marks which attachment indices are depth/stencil, so
	// BeginPass can pick the right clear-value union member.
	ds map[int]bool
}

// NewRenderPass implements driver.GPU.
func (d *Driver) NewRenderPass(att []driver.Attachment, subp []driver.Subpass) (driver.RenderPass, error) {
	dsAtt := make(map[int]bool)
	for _, s := range subp {
		if s.DS >= 0 {
			dsAtt[s.DS] = true
		}
	}
	var atts []vk.AttachmentDescription
	for i, a := range att {
		layout := vk.ImageLayoutColorAttachmentOptimal
		if dsAtt[i] {
			layout = vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		atts = append(atts, attachmentDesc(a, layout))
	}

	var subpasses []vk.SubpassDescription
	for _, s := range subp {
		var refs []vk.AttachmentReference
		for _, c := range s.Color {
			refs = append(refs, vk.AttachmentReference{Attachment: uint32(c), Layout: vk.ImageLayoutColorAttachmentOptimal})
		}
		sd := vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(refs)),
			PColorAttachments:    refs,
		}
		if s.DS >= 0 {
			dsRef := vk.AttachmentReference{Attachment: uint32(s.DS), Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
			sd.PDepthStencilAttachment = &dsRef
		}
		subpasses = append(subpasses, sd)
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
	}
	var pass vk.RenderPass
	if r := vk.CreateRenderPass(d.dev, &info, nil, &pass); r != vk.Success {
		return nil, checkResult(r)
	}
	return &RenderPass{d: d, pass: pass, ds: dsAtt}, nil
}

func attachmentDesc(a driver.Attachment, finalLayout vk.ImageLayout) vk.AttachmentDescription {
	d := vk.AttachmentDescription{
		Format:         pixelFormat(a.Format),
		Samples:        vk.SampleCountFlagBits(max1(a.Samples)),
		LoadOp:         loadOp(a.Load[0]),
		StoreOp:        storeOp(a.Store[0]),
		StencilLoadOp:  loadOp(a.Load[1]),
		StencilStoreOp: storeOp(a.Store[1]),
		FinalLayout:    finalLayout,
	}
	// Loaded contents must enter in the layout the previous pass
	// left them in; cleared/don't-care contents may be discarded.
	if a.Load[0] == driver.LLoad {
		d.InitialLayout = finalLayout
	}
	return d
}

func loadOp(o driver.LoadOp) vk.AttachmentLoadOp {
	switch o {
	case driver.LClear:
		return vk.AttachmentLoadOpClear
	case driver.LLoad:
		return vk.AttachmentLoadOpLoad
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

func storeOp(o driver.StoreOp) vk.AttachmentStoreOp {
	if o == driver.SStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

// NewFB implements driver.RenderPass.
func (p *RenderPass) NewFB(iv []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	views := make([]vk.ImageView, len(iv))
	for i, v := range iv {
		views[i] = v.(*ImageView).view
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      p.pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           uint32(width),
		Height:          uint32(height),
		Layers:          uint32(max1(layers)),
	}
	var fb vk.Framebuffer
	if r := vk.CreateFramebuffer(p.d.dev, &info, nil, &fb); r != vk.Success {
		return nil, checkResult(r)
	}
	return &Framebuf{d: p.d, fb: fb, width: width, height: height}, nil
}

// Destroy implements driver.Destroyer.
func (p *RenderPass) Destroy() { vk.DestroyRenderPass(p.d.dev, p.pass, nil) }

// Framebuf implements driver.Framebuf.
type Framebuf struct {
	d             *Driver
	fb            vk.Framebuffer
	width, height int
}

// Destroy implements driver.Destroyer.
func (f *Framebuf) Destroy() { vk.DestroyFramebuffer(f.d.dev, f.fb, nil) }
