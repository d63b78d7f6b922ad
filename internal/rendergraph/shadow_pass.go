package rendergraph

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
)

// ShadowPass is the depth-only pass: one
// depth attachment stored for later sampling, cleared to 0 (reversed
// depth), one subpass, two external dependencies ordering its depth
// writes before the forward pass's fragment shader samples the result.
// Grounded on lida_render.c's Shadow_Pass and its SH_CreateRenderPass/
// SH_CreateAttachments/SH_AllocateDescriptorSets functions.
type ShadowPass struct {
	device *gpu.Device
	caches *gpu.Caches
	region *gpu.Region

	Image      vk.Image
	ImageView  vk.ImageView
	Framebuffer vk.Framebuffer
	RenderPass vk.RenderPass
	Extent     vk.Extent2D
	Format     vk.Format

	// DescriptorSet is the combined-image-sampler the forward pass's
	// fragment shader binds to read the shadow map.
	DescriptorSet vk.DescriptorSet
	setLayout     vk.DescriptorSetLayout
}

// NewShadowPass creates a dim x dim depth-only render pass, attachment,
// framebuffer and the descriptor set the forward pass's fragment shader
// samples it through.
func NewShadowPass(d *gpu.Device, caches *gpu.Caches, region *gpu.Region, dim uint32) (*ShadowPass, error) {
	format := vk.FormatD32Sfloat
	p := &ShadowPass{device: d, caches: caches, region: region, Extent: vk.Extent2D{Width: dim, Height: dim}, Format: format}

	if err := p.createRenderPass(); err != nil {
		return nil, err
	}
	if err := p.createAttachment(); err != nil {
		return nil, err
	}
	if err := p.allocateDescriptorSet(); err != nil {
		return nil, err
	}
	return p, nil
}

// SetLayout is the descriptor-set layout DescriptorSet was allocated from,
// exposed so the voxel forward pipeline's layout can be built to match it.
func (p *ShadowPass) SetLayout() vk.DescriptorSetLayout { return p.setLayout }

func (p *ShadowPass) allocateDescriptorSet() error {
	layout, err := p.caches.DescriptorSetLayout([]gpu.Binding{
		{Set: 0, Binding: 0, Kind: gpu.KindSampledImage, Stage: vk.ShaderStageFlagBits(vk.ShaderStageFragmentBit)},
	})
	if err != nil {
		return err
	}
	p.setLayout = layout

	set, err := p.caches.AllocateSet(layout)
	if err != nil {
		return fmt.Errorf("rendergraph: shadow/descriptor-set: %w", err)
	}
	p.DescriptorSet = set

	sampler, err := p.caches.Sampler(vk.FilterLinear, vk.SamplerAddressModeClampToEdge, vk.BorderColorFloatOpaqueWhite)
	if err != nil {
		return err
	}
	imageInfo := vk.DescriptorImageInfo{
		ImageView:   p.ImageView,
		ImageLayout: vk.ImageLayoutDepthStencilReadOnlyOptimal,
		Sampler:     sampler,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(p.device.Handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

func (p *ShadowPass) createRenderPass() error {
	attachment := vk.AttachmentDescription{
		Format:         p.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilReadOnlyOptimal,
	}
	ref := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		PDepthStencilAttachment: &ref,
	}
	// Two external dependencies: depth writes must complete before the
	// forward pass's fragment shader samples this attachment, in both
	// the "enter" and "exit" direction.
	deps := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			DstAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
		},
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{attachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}
	var rp vk.RenderPass
	if res := vk.CreateRenderPass(p.device.Handle, &info, nil, &rp); res != vk.Success {
		return fmt.Errorf("rendergraph: vkCreateRenderPass(shadow) failed: %d", res)
	}
	p.RenderPass = rp
	return nil
}

func (p *ShadowPass) createAttachment() error {
	imageInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        p.Format,
		Extent:        vk.Extent3D{Width: p.Extent.Width, Height: p.Extent.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if res := vk.CreateImage(p.device.Handle, &imageInfo, nil, &image); res != vk.Success {
		return fmt.Errorf("rendergraph: vkCreateImage(shadow) failed: %d", res)
	}
	p.region.BindImage(image)
	p.Image = image

	view, err := createImageView(p.device, image, p.Format, vk.ImageAspectFlags(vk.ImageAspectDepthBit), 0, 1)
	if err != nil {
		return err
	}
	p.ImageView = view

	fbInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      p.RenderPass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{view},
		Width:           p.Extent.Width,
		Height:          p.Extent.Height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(p.device.Handle, &fbInfo, nil, &fb); res != vk.Success {
		return fmt.Errorf("rendergraph: vkCreateFramebuffer(shadow) failed: %d", res)
	}
	p.Framebuffer = fb
	return nil
}

// Begin records vkCmdBeginRenderPass for the shadow pass, clearing depth
// to 0 (reversed) and setting the viewport to the shadow-map extent.
func (p *ShadowPass) Begin(cmd vk.CommandBuffer) {
	clear := vk.NewClearDepthStencil(0, 0) // reversed depth: 0 is the far clear value
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  p.RenderPass,
		Framebuffer: p.Framebuffer,
		RenderArea:  vk.Rect2D{Offset: vk.Offset2D{}, Extent: p.Extent},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clear},
	}
	vk.CmdBeginRenderPass(cmd, &beginInfo, vk.SubpassContentsInline)

	viewport := vk.Viewport{X: 0, Y: 0, Width: float32(p.Extent.Width), Height: float32(p.Extent.Height), MinDepth: 0, MaxDepth: 1}
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{Offset: vk.Offset2D{}, Extent: p.Extent}
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})
}

func (p *ShadowPass) End(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

// Destroy releases the pass's framebuffer, image view, image and render
// pass, in reverse dependency order.
func (p *ShadowPass) Destroy() {
	vk.DestroyFramebuffer(p.device.Handle, p.Framebuffer, nil)
	vk.DestroyImageView(p.device.Handle, p.ImageView, nil)
	vk.DestroyImage(p.device.Handle, p.Image, nil)
	vk.DestroyRenderPass(p.device.Handle, p.RenderPass, nil)
}
