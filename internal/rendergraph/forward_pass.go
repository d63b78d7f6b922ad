package rendergraph

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
)

// ForwardPass is the MSAA colour+depth pass, with
// an optional resolve attachment when samples > 1; its resolved (or
// single-sample) colour image is exposed through ResultingImageSet for
// the swapchain pass's fullscreen blit. Grounded on lida_render.c's
// Forward_Pass and its FWD_CreateRenderPass/FWD_CreateAttachments/
// FWD_AllocateDescriptorSets/ResizeForwardPass functions, rewritten
// against internal/gpu's Region/Caches instead of Video_Memory and the
// hand-rolled descriptor allocator.
type ForwardPass struct {
	device *gpu.Device
	caches *gpu.Caches
	region *gpu.Region

	ColorImage   vk.Image
	DepthImage   vk.Image
	ResolveImage vk.Image // zero handle when Samples == 1

	ColorView   vk.ImageView
	DepthView   vk.ImageView
	ResolveView vk.ImageView

	Framebuffer vk.Framebuffer
	RenderPass  vk.RenderPass

	ColorFormat vk.Format
	DepthFormat vk.Format
	Samples     vk.SampleCountFlagBits
	Extent      vk.Extent2D

	// ResultingImageSet is the combined-image-sampler the swapchain pass
	// binds to sample this pass's output (the resolve image, or the
	// colour image directly at Samples == 1).
	ResultingImageSet vk.DescriptorSet
	resultSetLayout   vk.DescriptorSetLayout
}

// NewForwardPass creates a width x height forward render pass at the
// given MSAA sample count.
func NewForwardPass(d *gpu.Device, caches *gpu.Caches, width, height uint32, samples vk.SampleCountFlagBits) (*ForwardPass, error) {
	p := &ForwardPass{
		device:      d,
		caches:      caches,
		ColorFormat: vk.FormatR8g8b8a8Unorm,
		DepthFormat: vk.FormatD32Sfloat,
		Samples:     samples,
		Extent:      vk.Extent2D{Width: width, Height: height},
	}
	if err := p.createRenderPass(); err != nil {
		return nil, err
	}
	if err := p.createAttachments(width, height); err != nil {
		return nil, err
	}
	if err := p.allocateResultingImageSet(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ForwardPass) createRenderPass() error {
	resolving := p.Samples != vk.SampleCount1Bit

	color := vk.AttachmentDescription{
		Format:         p.ColorFormat,
		Samples:        p.Samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}
	depth := vk.AttachmentDescription{
		Format:         p.DepthFormat,
		Samples:        p.Samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	attachments := []vk.AttachmentDescription{color, depth}
	colorRef := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}
	depthRef := vk.AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorRef},
		PDepthStencilAttachment: &depthRef,
	}

	var resolveRef vk.AttachmentReference
	if resolving {
		resolve := vk.AttachmentDescription{
			Format:         p.ColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
		}
		attachments = append(attachments, resolve)
		resolveRef = vk.AttachmentReference{Attachment: 2, Layout: vk.ImageLayoutColorAttachmentOptimal}
		subpass.PResolveAttachments = []vk.AttachmentReference{resolveRef}
	}

	// External dependencies order this pass's depth/colour writes before
	// the depth-pyramid reduce pass and the swapchain blit read them.
	deps := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: 0,
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageLateFragmentTestsBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit | vk.PipelineStageFragmentShaderBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
		},
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}
	var rp vk.RenderPass
	if res := vk.CreateRenderPass(p.device.Handle, &info, nil, &rp); res != vk.Success {
		return fmt.Errorf("rendergraph: vkCreateRenderPass(forward) failed: %d", res)
	}
	p.RenderPass = rp
	return nil
}

func (p *ForwardPass) createAttachments(width, height uint32) error {
	resolving := p.Samples != vk.SampleCount1Bit

	colorImg, err := p.createImage(p.ColorFormat, width, height, p.Samples,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransientAttachmentBit))
	if err != nil {
		return err
	}
	depthImg, err := p.createImage(p.DepthFormat, width, height, p.Samples,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit))
	if err != nil {
		return err
	}

	var resolveImg vk.Image
	if resolving {
		resolveImg, err = p.createImage(p.ColorFormat, width, height, vk.SampleCount1Bit,
			vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageSampledBit))
		if err != nil {
			return err
		}
	}

	// Size and allocate one device-local region for the three images
	// together (lida_render.c's pass->gpu_memory), then bind each image
	// into it in order.
	region, err := p.allocateRegion(colorImg, depthImg, resolveImg, resolving)
	if err != nil {
		return err
	}
	p.region = region
	region.BindImage(colorImg)
	region.BindImage(depthImg)
	if resolving {
		region.BindImage(resolveImg)
	}
	p.ColorImage, p.DepthImage, p.ResolveImage = colorImg, depthImg, resolveImg

	if p.ColorView, err = createImageView(p.device, colorImg, p.ColorFormat, vk.ImageAspectFlags(vk.ImageAspectColorBit), 0, 1); err != nil {
		return err
	}
	if p.DepthView, err = createImageView(p.device, depthImg, p.DepthFormat, vk.ImageAspectFlags(vk.ImageAspectDepthBit), 0, 1); err != nil {
		return err
	}
	attachmentViews := []vk.ImageView{p.ColorView, p.DepthView}
	if resolving {
		if p.ResolveView, err = createImageView(p.device, resolveImg, p.ColorFormat, vk.ImageAspectFlags(vk.ImageAspectColorBit), 0, 1); err != nil {
			return err
		}
		attachmentViews = append(attachmentViews, p.ResolveView)
	}

	fbInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      p.RenderPass,
		AttachmentCount: uint32(len(attachmentViews)),
		PAttachments:    attachmentViews,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(p.device.Handle, &fbInfo, nil, &fb); res != vk.Success {
		return fmt.Errorf("rendergraph: vkCreateFramebuffer(forward) failed: %d", res)
	}
	p.Framebuffer = fb
	p.Extent = vk.Extent2D{Width: width, Height: height}
	return nil
}

func (p *ForwardPass) createImage(format vk.Format, width, height uint32, samples vk.SampleCountFlagBits, usage vk.ImageUsageFlags) (vk.Image, error) {
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if res := vk.CreateImage(p.device.Handle, &info, nil, &image); res != vk.Success {
		return vk.Image(vk.NullHandle), fmt.Errorf("rendergraph: vkCreateImage(forward) failed: %d", res)
	}
	return image, nil
}

func (p *ForwardPass) allocateRegion(color, depth, resolve vk.Image, resolving bool) (*gpu.Region, error) {
	var total vk.DeviceSize
	var typeBits uint32

	add := func(img vk.Image) {
		var req vk.MemoryRequirements
		vk.GetImageMemoryRequirements(p.device.Handle, img, &req)
		req.Deref()
		total = alignUp(total, req.Alignment) + req.Size
		typeBits |= req.MemoryTypeBits
	}
	add(color)
	add(depth)
	if resolving {
		add(resolve)
	}
	return gpu.NewRegion(p.device, total, typeBits, vk.MemoryPropertyFlagBits(vk.MemoryPropertyDeviceLocalBit))
}

func alignUp(v, align vk.DeviceSize) vk.DeviceSize {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}

func (p *ForwardPass) allocateResultingImageSet() error {
	layout, err := p.caches.DescriptorSetLayout([]gpu.Binding{
		{Set: 0, Binding: 0, Kind: gpu.KindSampledImage, Stage: vk.ShaderStageFlagBits(vk.ShaderStageFragmentBit)},
	})
	if err != nil {
		return err
	}
	p.resultSetLayout = layout

	set, err := p.caches.AllocateSet(layout)
	if err != nil {
		return fmt.Errorf("rendergraph: forward/resulting-image: %w", err)
	}
	p.ResultingImageSet = set

	sampler, err := p.caches.Sampler(vk.FilterNearest, vk.SamplerAddressModeClampToEdge, vk.BorderColorFloatOpaqueBlack)
	if err != nil {
		return err
	}
	imageInfo := vk.DescriptorImageInfo{
		ImageView:   p.resultView(),
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		Sampler:     sampler,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          p.ResultingImageSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(p.device.Handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// ResultSetLayout is the descriptor-set layout ResultingImageSet was
// allocated from, exposed so the swapchain blit pipeline's layout can be
// built to match it.
func (p *ForwardPass) ResultSetLayout() vk.DescriptorSetLayout { return p.resultSetLayout }

// resultView is the view the swapchain pass should sample: the resolve
// view at Samples > 1, the colour view directly otherwise.
func (p *ForwardPass) resultView() vk.ImageView {
	if p.Samples == vk.SampleCount1Bit {
		return p.ColorView
	}
	return p.ResolveView
}

// Begin records vkCmdBeginRenderPass, clearing colour to clearColor and
// depth to 0 (reversed).
func (p *ForwardPass) Begin(cmd vk.CommandBuffer, clearColor [4]float32) {
	clears := []vk.ClearValue{
		vk.NewClearValue([]float32{clearColor[0], clearColor[1], clearColor[2], clearColor[3]}),
		vk.NewClearDepthStencil(0, 0),
	}
	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      p.RenderPass,
		Framebuffer:     p.Framebuffer,
		RenderArea:      vk.Rect2D{Offset: vk.Offset2D{}, Extent: p.Extent},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(cmd, &beginInfo, vk.SubpassContentsInline)

	viewport := vk.Viewport{X: 0, Y: 0, Width: float32(p.Extent.Width), Height: float32(p.Extent.Height), MinDepth: 0, MaxDepth: 1}
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{{Offset: vk.Offset2D{}, Extent: p.Extent}})
}

func (p *ForwardPass) End(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

func (p *ForwardPass) destroyAttachments() {
	vk.DestroyFramebuffer(p.device.Handle, p.Framebuffer, nil)
	vk.DestroyImageView(p.device.Handle, p.DepthView, nil)
	vk.DestroyImageView(p.device.Handle, p.ColorView, nil)
	if p.Samples != vk.SampleCount1Bit {
		vk.DestroyImageView(p.device.Handle, p.ResolveView, nil)
	}
	vk.DestroyImage(p.device.Handle, p.DepthImage, nil)
	vk.DestroyImage(p.device.Handle, p.ColorImage, nil)
	if p.Samples != vk.SampleCount1Bit {
		vk.DestroyImage(p.device.Handle, p.ResolveImage, nil)
	}
	if p.region != nil {
		p.region.Free()
	}
}

// Resize rebuilds the pass's attachments and framebuffer at a new extent,
// as part of the resize-on-suboptimal sequence. The old resources are
// enqueued on dq rather than destroyed immediately, since the in-flight
// frame may still reference them; a new resulting-image descriptor set is
// allocated and pointed at the new colour/resolve view.
func (p *ForwardPass) Resize(dq *gpu.DeletionQueue, width, height uint32) error {
	oldColor, oldDepth, oldResolve := p.ColorImage, p.DepthImage, p.ResolveImage
	oldColorView, oldDepthView, oldResolveView := p.ColorView, p.DepthView, p.ResolveView
	oldFramebuffer := p.Framebuffer
	oldRegion := p.region
	samples := p.Samples

	dq.Push(func() {
		vk.DestroyFramebuffer(p.device.Handle, oldFramebuffer, nil)
		vk.DestroyImageView(p.device.Handle, oldDepthView, nil)
		vk.DestroyImageView(p.device.Handle, oldColorView, nil)
		if samples != vk.SampleCount1Bit {
			vk.DestroyImageView(p.device.Handle, oldResolveView, nil)
		}
		vk.DestroyImage(p.device.Handle, oldDepth, nil)
		vk.DestroyImage(p.device.Handle, oldColor, nil)
		if samples != vk.SampleCount1Bit {
			vk.DestroyImage(p.device.Handle, oldResolve, nil)
		}
		if oldRegion != nil {
			oldRegion.Free()
		}
	})

	if err := p.createAttachments(width, height); err != nil {
		return err
	}
	return p.allocateResultingImageSet()
}

// Destroy releases the pass's attachments and render pass. Its
// resulting-image descriptor set layout comes from gpu.Caches and is not
// destroyed here.
func (p *ForwardPass) Destroy() {
	p.destroyAttachments()
	vk.DestroyRenderPass(p.device.Handle, p.RenderPass, nil)
}
