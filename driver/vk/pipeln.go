package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
)

// Pipeline implements driver.Pipeline for both graphics and compute
// state objects. The pipeline layout is owned by the DescTable the
// state was created with; a pipeline created without a table gets an
// empty layout of its own.
type Pipeline struct {
	d         *Driver
	pipeline  vk.Pipeline
	layout    vk.PipelineLayout
	ownLayout bool
	bindPoint vk.PipelineBindPoint
}

// NewPipeline implements driver.GPU.
func (d *Driver) NewPipeline(state any) (driver.Pipeline, error) {
	switch s := state.(type) {
	case *driver.CompState:
		return d.newCompPipeline(s)
	case *driver.GraphState:
		return d.newGraphPipeline(s)
	default:
		return nil, checkResult(vk.ErrorInitializationFailed)
	}
}

func (d *Driver) newCompPipeline(s *driver.CompState) (driver.Pipeline, error) {
	layout, own, err := d.pipelineLayout(s.Desc)
	if err != nil {
		return nil, err
	}
	info := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  shaderStage(vk.ShaderStageComputeBit, s.Func),
		Layout: layout,
	}
	pls := make([]vk.Pipeline, 1)
	if r := vk.CreateComputePipelines(d.dev, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{info}, nil, pls); r != vk.Success {
		if own {
			vk.DestroyPipelineLayout(d.dev, layout, nil)
		}
		return nil, checkResult(r)
	}
	return &Pipeline{d: d, pipeline: pls[0], layout: layout, ownLayout: own, bindPoint: vk.PipelineBindPointCompute}, nil
}

func (d *Driver) newGraphPipeline(s *driver.GraphState) (driver.Pipeline, error) {
	layout, own, err := d.pipelineLayout(s.Desc)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, s.VertFunc),
		shaderStage(vk.ShaderStageFragmentBit, s.FragFunc),
	}

	// One binding per vertex input; interleaving is not supported
	// at the driver interface level.
	binds := make([]vk.VertexInputBindingDescription, len(s.Input))
	attrs := make([]vk.VertexInputAttributeDescription, len(s.Input))
	for i, in := range s.Input {
		binds[i] = vk.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    uint32(in.Stride),
			InputRate: vk.VertexInputRateVertex,
		}
		attrs[i] = vk.VertexInputAttributeDescription{
			Location: uint32(in.Nr),
			Binding:  uint32(i),
			Format:   vertexFormat(in.Format),
		}
	}
	vin := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(binds)),
		PVertexBindingDescriptions:      binds,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	ia := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology(s.Topology),
	}

	// Viewport/scissor are dynamic; only the counts matter here.
	vp := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	front := vk.FrontFaceCounterClockwise
	if s.Raster.Clockwise {
		front = vk.FrontFaceClockwise
	}
	rs := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: polygonMode(s.Raster.Fill),
		CullMode:    vk.CullModeFlags(cullMode(s.Raster.Cull)),
		FrontFace:   front,
		LineWidth:   1,
	}
	if s.Raster.DepthBias {
		rs.DepthBiasEnable = vk.True
		rs.DepthBiasConstantFactor = s.Raster.BiasValue
		rs.DepthBiasSlopeFactor = s.Raster.BiasSlope
		rs.DepthBiasClamp = s.Raster.BiasClamp
	}

	ms := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCountFlagBits(max1(s.Samples)),
	}

	ds := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp:   cmpFunc(s.DS.DepthCmp),
		Front:            stencilState(s.DS.Front),
		Back:             stencilState(s.DS.Back),
	}
	if s.DS.DepthTest {
		ds.DepthTestEnable = vk.True
	}
	if s.DS.DepthWrite {
		ds.DepthWriteEnable = vk.True
	}
	if s.DS.StencilTest {
		ds.StencilTestEnable = vk.True
	}

	ncolor := len(s.Blend.Color)
	if ncolor == 0 {
		ncolor = 1
	}
	blends := make([]vk.PipelineColorBlendAttachmentState, ncolor)
	for i := range blends {
		cb := driver.ColorBlend{WriteMask: driver.CAll}
		if s.Blend.IndependentBlend && i < len(s.Blend.Color) {
			cb = s.Blend.Color[i]
		} else if len(s.Blend.Color) > 0 {
			cb = s.Blend.Color[0]
		}
		blends[i] = colorBlend(cb)
	}
	bs := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blends)),
		PAttachments:    blends,
	}

	dyn := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: 4,
		PDynamicStates: []vk.DynamicState{
			vk.DynamicStateViewport,
			vk.DynamicStateScissor,
			vk.DynamicStateBlendConstants,
			vk.DynamicStateStencilReference,
		},
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vin,
		PInputAssemblyState: &ia,
		PViewportState:      &vp,
		PRasterizationState: &rs,
		PMultisampleState:   &ms,
		PDepthStencilState:  &ds,
		PColorBlendState:    &bs,
		PDynamicState:       &dyn,
		Layout:              layout,
		RenderPass:          s.Pass.(*RenderPass).pass,
		Subpass:             uint32(s.Subpass),
	}
	pls := make([]vk.Pipeline, 1)
	if r := vk.CreateGraphicsPipelines(d.dev, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pls); r != vk.Success {
		if own {
			vk.DestroyPipelineLayout(d.dev, layout, nil)
		}
		return nil, checkResult(r)
	}
	return &Pipeline{d: d, pipeline: pls[0], layout: layout, ownLayout: own, bindPoint: vk.PipelineBindPointGraphics}, nil
}

// pipelineLayout resolves a state's layout: the DescTable's when one
// is set, or a new empty layout the pipeline owns otherwise.
func (d *Driver) pipelineLayout(desc driver.DescTable) (vk.PipelineLayout, bool, error) {
	if desc != nil {
		return desc.(*DescTable).layout, false, nil
	}
	info := vk.PipelineLayoutCreateInfo{SType: vk.StructureTypePipelineLayoutCreateInfo}
	var layout vk.PipelineLayout
	if r := vk.CreatePipelineLayout(d.dev, &info, nil, &layout); r != vk.Success {
		return vk.NullPipelineLayout, false, checkResult(r)
	}
	return layout, true, nil
}

func shaderStage(stage vk.ShaderStageFlagBits, fn driver.ShaderFunc) vk.PipelineShaderStageCreateInfo {
	name := fn.Name
	if name == "" {
		name = "main"
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: fn.Code.(*ShaderCode).module,
		PName:  name + "\x00",
	}
}

func vertexFormat(f driver.VertexFmt) vk.Format {
	switch f {
	case driver.Int8:
		return vk.FormatR8Sint
	case driver.Int8x2:
		return vk.FormatR8g8Sint
	case driver.Int8x4:
		return vk.FormatR8g8b8a8Sint
	case driver.Int16:
		return vk.FormatR16Sint
	case driver.Int16x2:
		return vk.FormatR16g16Sint
	case driver.Int16x3:
		return vk.FormatR16g16b16Sint
	case driver.Int16x4:
		return vk.FormatR16g16b16a16Sint
	case driver.Int32:
		return vk.FormatR32Sint
	case driver.Int32x2:
		return vk.FormatR32g32Sint
	case driver.Int32x3:
		return vk.FormatR32g32b32Sint
	case driver.Int32x4:
		return vk.FormatR32g32b32a32Sint
	case driver.UInt8:
		return vk.FormatR8Uint
	case driver.UInt8x2:
		return vk.FormatR8g8Uint
	case driver.UInt8x4:
		return vk.FormatR8g8b8a8Uint
	case driver.UInt16:
		return vk.FormatR16Uint
	case driver.UInt16x2:
		return vk.FormatR16g16Uint
	case driver.UInt16x4:
		return vk.FormatR16g16b16a16Uint
	case driver.UInt32:
		return vk.FormatR32Uint
	case driver.UInt32x2:
		return vk.FormatR32g32Uint
	case driver.UInt32x3:
		return vk.FormatR32g32b32Uint
	case driver.UInt32x4:
		return vk.FormatR32g32b32a32Uint
	case driver.Float32:
		return vk.FormatR32Sfloat
	case driver.Float32x2:
		return vk.FormatR32g32Sfloat
	case driver.Float32x3:
		return vk.FormatR32g32b32Sfloat
	case driver.Float32x4:
		return vk.FormatR32g32b32a32Sfloat
	default:
		return vk.FormatR32g32b32Sfloat
	}
}

func topology(t driver.Topology) vk.PrimitiveTopology {
	switch t {
	case driver.TPoint:
		return vk.PrimitiveTopologyPointList
	case driver.TLine:
		return vk.PrimitiveTopologyLineList
	case driver.TLnStrip:
		return vk.PrimitiveTopologyLineStrip
	case driver.TTriStrip:
		return vk.PrimitiveTopologyTriangleStrip
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func cullMode(c driver.CullMode) vk.CullModeFlagBits {
	switch c {
	case driver.CFront:
		return vk.CullModeFrontBit
	case driver.CBack:
		return vk.CullModeBackBit
	default:
		return vk.CullModeNone
	}
}

func polygonMode(f driver.FillMode) vk.PolygonMode {
	if f == driver.FLines {
		return vk.PolygonModeLine
	}
	return vk.PolygonModeFill
}

func cmpFunc(c driver.CmpFunc) vk.CompareOp {
	switch c {
	case driver.CLess:
		return vk.CompareOpLess
	case driver.CEqual:
		return vk.CompareOpEqual
	case driver.CLessEqual:
		return vk.CompareOpLessOrEqual
	case driver.CGreater:
		return vk.CompareOpGreater
	case driver.CNotEqual:
		return vk.CompareOpNotEqual
	case driver.CGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	case driver.CAlways:
		return vk.CompareOpAlways
	default:
		return vk.CompareOpNever
	}
}

func stencilOp(op driver.StencilOp) vk.StencilOp {
	switch op {
	case driver.SZero:
		return vk.StencilOpZero
	case driver.SReplace:
		return vk.StencilOpReplace
	case driver.SIncClamp:
		return vk.StencilOpIncrementAndClamp
	case driver.SDecClamp:
		return vk.StencilOpDecrementAndClamp
	case driver.SInvert:
		return vk.StencilOpInvert
	case driver.SIncWrap:
		return vk.StencilOpIncrementAndWrap
	case driver.SDecWrap:
		return vk.StencilOpDecrementAndWrap
	default:
		return vk.StencilOpKeep
	}
}

func stencilState(s driver.StencilT) vk.StencilOpState {
	return vk.StencilOpState{
		FailOp:      stencilOp(s.DSFail[0]),
		DepthFailOp: stencilOp(s.DSFail[1]),
		PassOp:      stencilOp(s.Pass),
		CompareOp:   cmpFunc(s.Cmp),
		CompareMask: s.ReadMask,
		WriteMask:   s.WriteMask,
	}
}

func blendOp(op driver.BlendOp) vk.BlendOp {
	switch op {
	case driver.BSubtract:
		return vk.BlendOpSubtract
	case driver.BRevSubtract:
		return vk.BlendOpReverseSubtract
	case driver.BMin:
		return vk.BlendOpMin
	case driver.BMax:
		return vk.BlendOpMax
	default:
		return vk.BlendOpAdd
	}
}

func blendFac(f driver.BlendFac) vk.BlendFactor {
	switch f {
	case driver.BOne:
		return vk.BlendFactorOne
	case driver.BSrcColor:
		return vk.BlendFactorSrcColor
	case driver.BInvSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case driver.BSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case driver.BInvSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case driver.BDstColor:
		return vk.BlendFactorDstColor
	case driver.BInvDstColor:
		return vk.BlendFactorOneMinusDstColor
	case driver.BDstAlpha:
		return vk.BlendFactorDstAlpha
	case driver.BInvDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	case driver.BSrcAlphaSaturated:
		return vk.BlendFactorSrcAlphaSaturate
	case driver.BBlendColor:
		return vk.BlendFactorConstantColor
	case driver.BInvBlendColor:
		return vk.BlendFactorOneMinusConstantColor
	default:
		return vk.BlendFactorZero
	}
}

func colorBlend(cb driver.ColorBlend) vk.PipelineColorBlendAttachmentState {
	s := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(colorMask(cb.WriteMask)),
	}
	if cb.Blend {
		s.BlendEnable = vk.True
		s.ColorBlendOp = blendOp(cb.Op[0])
		s.AlphaBlendOp = blendOp(cb.Op[1])
		s.SrcColorBlendFactor = blendFac(cb.SrcFac[0])
		s.SrcAlphaBlendFactor = blendFac(cb.SrcFac[1])
		s.DstColorBlendFactor = blendFac(cb.DstFac[0])
		s.DstAlphaBlendFactor = blendFac(cb.DstFac[1])
	}
	return s
}

func colorMask(m driver.ColorMask) (flags vk.ColorComponentFlagBits) {
	if m == 0 {
		m = driver.CAll
	}
	if m&driver.CRed != 0 {
		flags |= vk.ColorComponentRBit
	}
	if m&driver.CGreen != 0 {
		flags |= vk.ColorComponentGBit
	}
	if m&driver.CBlue != 0 {
		flags |= vk.ColorComponentBBit
	}
	if m&driver.CAlpha != 0 {
		flags |= vk.ColorComponentABit
	}
	return
}

// Destroy implements driver.Destroyer.
func (p *Pipeline) Destroy() {
	vk.DestroyPipeline(p.d.dev, p.pipeline, nil)
	if p.ownLayout {
		vk.DestroyPipelineLayout(p.d.dev, p.layout, nil)
	}
}
