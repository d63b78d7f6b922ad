package rendergraph

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
)

// SwapchainPass is the single-subpass, store-only colour pass:
// a fullscreen triangle strip samples the forward pass's
// resolved colour image; no other draws are recorded. One framebuffer per
// swapchain image, rebuilt by Resize when the swapchain is recreated.
type SwapchainPass struct {
	device *gpu.Device
	caches *gpu.Caches

	RenderPass   vk.RenderPass
	Framebuffers []vk.Framebuffer
	Extent       vk.Extent2D
	Format       vk.Format

	Pipeline       vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// NewSwapchainPass creates the blit render pass and one framebuffer per
// swapchain image view.
func NewSwapchainPass(d *gpu.Device, caches *gpu.Caches, format vk.Format, imageViews []vk.ImageView, extent vk.Extent2D) (*SwapchainPass, error) {
	p := &SwapchainPass{device: d, caches: caches, Format: format, Extent: extent}
	if err := p.createRenderPass(); err != nil {
		return nil, err
	}
	if err := p.createFramebuffers(imageViews); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SwapchainPass) createRenderPass() error {
	attachment := vk.AttachmentDescription{
		Format:         p.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	ref := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{ref},
	}
	dep := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit | vk.PipelineStageComputeShaderBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{attachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dep},
	}
	var rp vk.RenderPass
	if res := vk.CreateRenderPass(p.device.Handle, &info, nil, &rp); res != vk.Success {
		return fmt.Errorf("rendergraph: vkCreateRenderPass(swapchain) failed: %d", res)
	}
	p.RenderPass = rp
	return nil
}

func (p *SwapchainPass) createFramebuffers(imageViews []vk.ImageView) error {
	p.Framebuffers = make([]vk.Framebuffer, len(imageViews))
	for i, view := range imageViews {
		info := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      p.RenderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           p.Extent.Width,
			Height:          p.Extent.Height,
			Layers:          1,
		}
		var fb vk.Framebuffer
		if res := vk.CreateFramebuffer(p.device.Handle, &info, nil, &fb); res != vk.Success {
			return fmt.Errorf("rendergraph: vkCreateFramebuffer(swapchain[%d]) failed: %d", i, res)
		}
		p.Framebuffers[i] = fb
	}
	return nil
}

// Begin records vkCmdBeginRenderPass for the given swapchain image index.
// No clear value is supplied: the fullscreen blit overwrites every texel.
func (p *SwapchainPass) Begin(cmd vk.CommandBuffer, imageIndex uint32) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  p.RenderPass,
		Framebuffer: p.Framebuffers[imageIndex],
		RenderArea:  vk.Rect2D{Offset: vk.Offset2D{}, Extent: p.Extent},
	}
	vk.CmdBeginRenderPass(cmd, &beginInfo, vk.SubpassContentsInline)
	viewport := vk.Viewport{X: 0, Y: 0, Width: float32(p.Extent.Width), Height: float32(p.Extent.Height), MinDepth: 0, MaxDepth: 1}
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{{Offset: vk.Offset2D{}, Extent: p.Extent}})
}

// Blit binds the fullscreen blit pipeline and the forward pass's
// resulting-image descriptor set, and draws the 4-vertex triangle strip
// that covers the whole viewport (no vertex buffer: positions are derived
// from gl_VertexIndex in the vertex shader, the same trick a fullscreen
// triangle pass always uses).
func (p *SwapchainPass) Blit(cmd vk.CommandBuffer, resultingImageSet vk.DescriptorSet) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, p.Pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, p.PipelineLayout, 0, 1, []vk.DescriptorSet{resultingImageSet}, 0, nil)
	vk.CmdDraw(cmd, 4, 1, 0, 0)
}

func (p *SwapchainPass) End(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

// Resize destroys the per-image framebuffers (the render pass itself is
// format-dependent only, and the swapchain format never changes across a
// resize) and rebuilds them against the new image views and extent.
func (p *SwapchainPass) Resize(imageViews []vk.ImageView, extent vk.Extent2D) error {
	for _, fb := range p.Framebuffers {
		vk.DestroyFramebuffer(p.device.Handle, fb, nil)
	}
	p.Extent = extent
	return p.createFramebuffers(imageViews)
}

func (p *SwapchainPass) Destroy() {
	for _, fb := range p.Framebuffers {
		vk.DestroyFramebuffer(p.device.Handle, fb, nil)
	}
	vk.DestroyRenderPass(p.device.Handle, p.RenderPass, nil)
}
