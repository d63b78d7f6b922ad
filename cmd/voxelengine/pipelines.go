package main

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
	"github.com/LLLida/lidaEngine-sub000/internal/rendergraph"
)

// Shaders are SPIR-V input loaded from disk; compiling shader source to
// SPIR-V is a separate, out-of-process build step this package never does.
// There is no pack example that builds real Vulkan pipelines, so
// the state objects below follow the Vulkan API directly rather than a
// grounded helper; internal/gpu.Caches still supplies every cached
// sub-object (shader modules, descriptor-set/pipeline layouts, samplers)
// the way lida_render.c's own pipeline builders pull from its caches.
const (
	shaderReduceComp = "reduce.comp.spv"
	shaderBlitVert   = "blit.vert.spv"
	shaderBlitFrag   = "blit.frag.spv"
	shaderVoxelVert  = "voxel.vert.spv"
	shaderVoxelFrag  = "voxel.frag.spv"
)

// reducePushConstants mirrors the reduce compute shader's push-constant
// block: the source mip's texel dimensions, needed because the linear
// sampler the descriptor set binds samples by texel centre rather than by
// an explicit footprint.
type reducePushConstants struct {
	srcWidth, srcHeight uint32
}

// voxelPushConstants mirrors the voxel vertex shader's push-constant
// block: the active camera's combined projection*view matrix. Per-instance
// placement comes from the storage-buffer transform ring
// (drawer.Drawer.Transforms) indexed by gl_InstanceIndex, not the push
// constant, so one pipeline serves every entity in a draw call.
type voxelPushConstants struct {
	viewProj [16]float32
}

// Pipelines owns every vk.Pipeline/vk.PipelineLayout the engine draws
// with: the depth-pyramid reduce compute pipeline, the swapchain blit
// pipeline (installed directly into the SwapchainPass it belongs to), and
// the shared voxel pipeline used (with different render passes and
// depth/color state) for both the shadow and forward passes.
type Pipelines struct {
	device *gpu.Device
	caches *gpu.Caches

	ReduceLayout   vk.DescriptorSetLayout
	ReducePipeLayout vk.PipelineLayout
	ReducePipeline vk.Pipeline

	VoxelSetLayout   vk.DescriptorSetLayout
	VoxelPipeLayout  vk.PipelineLayout
	ShadowPipeline   vk.Pipeline
	ForwardPipeline  vk.Pipeline

	// BlitPipeline duplicates graph.Swapchain.Pipeline (installed there
	// for SwapchainPass.Blit to bind) so Destroy can release it without
	// reaching back into the render graph.
	BlitPipeline vk.Pipeline
}

// NewPipelines loads every shader module under shaderDir and builds the
// engine's fixed set of pipelines against graph's already-created render
// passes.
func NewPipelines(d *gpu.Device, caches *gpu.Caches, graph *rendergraph.Graph, shaderDir string) (*Pipelines, error) {
	p := &Pipelines{device: d, caches: caches}

	if err := p.buildReducePipeline(shaderDir); err != nil {
		return nil, fmt.Errorf("voxelengine: reduce pipeline: %w", err)
	}
	if err := p.buildVoxelPipelines(shaderDir, graph); err != nil {
		return nil, fmt.Errorf("voxelengine: voxel pipelines: %w", err)
	}
	if err := p.buildBlitPipeline(shaderDir, graph); err != nil {
		return nil, fmt.Errorf("voxelengine: blit pipeline: %w", err)
	}
	return p, nil
}

// loadModule reads name from shaderDir and loads it into caches, keyed by
// its full path so a later hot-reload can call this again with fresh
// bytes under the same key.
func (p *Pipelines) loadModule(shaderDir, name string) (vk.ShaderModule, error) {
	path := filepath.Join(shaderDir, name)
	spv, err := os.ReadFile(path)
	if err != nil {
		return vk.ShaderModule(vk.NullHandle), fmt.Errorf("read %s: %w", path, err)
	}
	return p.caches.LoadShaderModule(path, spv)
}

func shaderStage(stage vk.ShaderStageFlagBits, module vk.ShaderModule) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  "main\x00",
	}
}

func (p *Pipelines) buildReducePipeline(shaderDir string) error {
	layout, err := rendergraph.ReduceSetLayout(p.caches)
	if err != nil {
		return err
	}
	p.ReduceLayout = layout

	pushRange := gpu.PushConstantRange{Offset: 0, Size: uint32(unsafe.Sizeof(reducePushConstants{})), Stage: vk.ShaderStageFlagBits(vk.ShaderStageComputeBit)}
	pipeLayout, err := p.caches.PipelineLayout([]vk.DescriptorSetLayout{layout}, []gpu.PushConstantRange{pushRange})
	if err != nil {
		return err
	}
	p.ReducePipeLayout = pipeLayout

	module, err := p.loadModule(shaderDir, shaderReduceComp)
	if err != nil {
		return err
	}

	info := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  shaderStage(vk.ShaderStageComputeBit, module),
		Layout: pipeLayout,
	}
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(p.device.Handle, vk.PipelineCache(vk.NullHandle), 1, []vk.ComputePipelineCreateInfo{info}, nil, pipelines); res != vk.Success {
		return fmt.Errorf("vkCreateComputePipelines(reduce) failed: %d", res)
	}
	p.ReducePipeline = pipelines[0]
	return nil
}

// voxelVertexInput describes voxel.Vertex{Pos [3]float32; Color uint32}:
// one binding, 16-byte stride, location 0 a vec3 position and location 1
// an unsigned 32-bit colour the fragment shader unpacks into RGBA.
func voxelVertexInput() (vk.PipelineVertexInputStateCreateInfo, []vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	bindings := []vk.VertexInputBindingDescription{
		{Binding: 0, Stride: 16, InputRate: vk.VertexInputRateVertex},
	}
	attrs := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32Uint, Offset: 12},
	}
	info := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}
	return info, bindings, attrs
}

func dynamicViewportScissor() vk.PipelineDynamicStateCreateInfo {
	states := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	return vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(states)),
		PDynamicStates:    states,
	}
}

func emptyViewportState() vk.PipelineViewportStateCreateInfo {
	// Viewport/scissor are dynamic (ForwardPass.Begin/ShadowPass.Begin call
	// vkCmdSetViewport/vkCmdSetScissor each frame, since the render extent
	// changes on resize); only the counts matter here.
	return vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
}

// buildVoxelPipelines builds the shared voxel vertex/fragment stage pair
// once and links it into two graphics pipelines: a colour+depth one for
// ForwardPass, and a depth-only one (no fragment stage, no colour
// attachment, front-face culled to reduce peter-panning) for ShadowPass.
// Both draws share one pipeline layout: set 0 the transform storage
// buffer, set 1 the shadow map (read by the forward fragment stage only;
// the shadow pipeline never samples it, but sharing one layout means one
// vkCmdBindDescriptorSets call pattern for both).
func (p *Pipelines) buildVoxelPipelines(shaderDir string, graph *rendergraph.Graph) error {
	setLayout, err := p.caches.DescriptorSetLayout([]gpu.Binding{
		{Set: 0, Binding: 0, Kind: gpu.KindStorageBuffer, Stage: vk.ShaderStageFlagBits(vk.ShaderStageVertexBit)},
	})
	if err != nil {
		return err
	}
	p.VoxelSetLayout = setLayout

	pushRange := gpu.PushConstantRange{Offset: 0, Size: uint32(unsafe.Sizeof(voxelPushConstants{})), Stage: vk.ShaderStageFlagBits(vk.ShaderStageVertexBit)}
	pipeLayout, err := p.caches.PipelineLayout([]vk.DescriptorSetLayout{setLayout, graph.Shadow.SetLayout()}, []gpu.PushConstantRange{pushRange})
	if err != nil {
		return err
	}
	p.VoxelPipeLayout = pipeLayout

	vertModule, err := p.loadModule(shaderDir, shaderVoxelVert)
	if err != nil {
		return err
	}
	fragModule, err := p.loadModule(shaderDir, shaderVoxelFrag)
	if err != nil {
		return err
	}

	vertexInput, _, _ := voxelVertexInput()
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:      vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}
	depthStateOn := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		// Reversed depth (near=1, far=0): a fragment passes the test when
		// its depth is >= what's already stored.
		DepthCompareOp: vk.CompareOpGreaterOrEqual,
	}
	dynamicState := dynamicViewportScissor()
	viewportState := emptyViewportState()

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	forwardInfo := vk.GraphicsPipelineCreateInfo{
		SType: vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{
			shaderStage(vk.ShaderStageVertexBit, vertModule),
			shaderStage(vk.ShaderStageFragmentBit, fragModule),
		},
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: graph.Forward.Samples,
		},
		PDepthStencilState: &depthStateOn,
		PColorBlendState:   &colorBlendState,
		PDynamicState:      &dynamicState,
		Layout:             pipeLayout,
		RenderPass:         graph.Forward.RenderPass,
		Subpass:            0,
	}

	shadowRasterState := rasterState
	shadowRasterState.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	shadowInfo := vk.GraphicsPipelineCreateInfo{
		SType: vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 1,
		PStages: []vk.PipelineShaderStageCreateInfo{
			shaderStage(vk.ShaderStageVertexBit, vertModule),
		},
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &shadowRasterState,
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PDepthStencilState: &depthStateOn,
		PDynamicState:      &dynamicState,
		Layout:             pipeLayout,
		RenderPass:         graph.Shadow.RenderPass,
		Subpass:            0,
	}

	infos := []vk.GraphicsPipelineCreateInfo{forwardInfo, shadowInfo}
	out := make([]vk.Pipeline, len(infos))
	if res := vk.CreateGraphicsPipelines(p.device.Handle, vk.PipelineCache(vk.NullHandle), uint32(len(infos)), infos, nil, out); res != vk.Success {
		return fmt.Errorf("vkCreateGraphicsPipelines(voxel) failed: %d", res)
	}
	p.ForwardPipeline = out[0]
	p.ShadowPipeline = out[1]
	return nil
}

// buildBlitPipeline builds the fullscreen-triangle-strip pipeline that
// samples ForwardPass.ResultingImageSet and installs it directly into
// graph.Swapchain, the fields SwapchainPass.Blit assumes are already
// populated.
func (p *Pipelines) buildBlitPipeline(shaderDir string, graph *rendergraph.Graph) error {
	layout := graph.Forward.ResultSetLayout()
	pipeLayout, err := p.caches.PipelineLayout([]vk.DescriptorSetLayout{layout}, nil)
	if err != nil {
		return err
	}

	vertModule, err := p.loadModule(shaderDir, shaderBlitVert)
	if err != nil {
		return err
	}
	fragModule, err := p.loadModule(shaderDir, shaderBlitFrag)
	if err != nil {
		return err
	}

	// No vertex buffer: the vertex shader derives the 4-corner triangle
	// strip from gl_VertexIndex, the standard fullscreen-blit trick.
	emptyVertexInput := vk.PipelineVertexInputStateCreateInfo{SType: vk.StructureTypePipelineVertexInputStateCreateInfo}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleStrip,
	}
	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}
	dynamicState := dynamicViewportScissor()
	viewportState := emptyViewportState()
	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType: vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{
			shaderStage(vk.ShaderStageVertexBit, vertModule),
			shaderStage(vk.ShaderStageFragmentBit, fragModule),
		},
		PVertexInputState:   &emptyVertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &colorBlendState,
		PDynamicState:    &dynamicState,
		Layout:           pipeLayout,
		RenderPass:       graph.Swapchain.RenderPass,
		Subpass:          0,
	}
	out := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(p.device.Handle, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, out); res != vk.Success {
		return fmt.Errorf("vkCreateGraphicsPipelines(blit) failed: %d", res)
	}
	graph.Swapchain.Pipeline = out[0]
	graph.Swapchain.PipelineLayout = pipeLayout
	p.BlitPipeline = out[0]
	return nil
}

// Destroy releases every pipeline this type owns. Pipeline layouts and
// descriptor-set layouts live in the shared gpu.Caches and outlive this
// call, since those caches are process-lifetime.
func (p *Pipelines) Destroy() {
	vk.DestroyPipeline(p.device.Handle, p.ReducePipeline, nil)
	vk.DestroyPipeline(p.device.Handle, p.ForwardPipeline, nil)
	vk.DestroyPipeline(p.device.Handle, p.ShadowPipeline, nil)
	vk.DestroyPipeline(p.device.Handle, p.BlitPipeline, nil)
}
