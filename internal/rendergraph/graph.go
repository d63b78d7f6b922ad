package rendergraph

import (
	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
	"github.com/LLLida/lidaEngine-sub000/internal/logx"
)

// Config is Graph's construction-time parameters: initial render extent,
// shadow-map dimension, and MSAA sample count, all exposed as
// internal/config dotted keys (Render.shadow_map_dim, Render.msaa, …) by
// the caller.
type Config struct {
	Width, Height     uint32
	ShadowMapDim      uint32
	Samples           vk.SampleCountFlagBits
	SwapchainFormat   vk.Format
	SwapchainViews    []vk.ImageView
	SwapchainExtent   vk.Extent2D
}

// Graph is the complete per-frame render-pass pipeline: shadow pass,
// forward pass, depth-pyramid reduction, swapchain blit, and the
// resize-on-suboptimal sequence that rebuilds the extent-dependent passes.
// Grounded on lida_render.c's pass lifecycle functions,
// tied together the way internal/gpu.Device/Caches/DeletionQueue already
// compose.
type Graph struct {
	device *gpu.Device
	caches *gpu.Caches
	dq     *gpu.DeletionQueue
	log    *logx.Logger

	Shadow   *ShadowPass
	Forward  *ForwardPass
	Pyramid  *DepthPyramid
	Swapchain *SwapchainPass

	frameCounter uint64
}

// New brings up all four passes at cfg's initial extent.
func New(d *gpu.Device, caches *gpu.Caches, dq *gpu.DeletionQueue, log *logx.Logger, cfg Config) (*Graph, error) {
	forward, err := NewForwardPass(d, caches, cfg.Width, cfg.Height, cfg.Samples)
	if err != nil {
		return nil, err
	}

	// typeBits 0xFFFFFFFF accepts any memory type index; FindMemoryType
	// still narrows the choice to one whose property flags are device-local,
	// so this only defers to the property check rather than skipping it.
	shadowRegion, err := gpu.NewRegion(d, shadowRegionSize(cfg.ShadowMapDim), 0xFFFFFFFF, vk.MemoryPropertyFlagBits(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	shadow, err := NewShadowPass(d, caches, shadowRegion, cfg.ShadowMapDim)
	if err != nil {
		return nil, err
	}

	pyramidRegion, err := gpu.NewRegion(d, pyramidRegionSize(int(cfg.Width), int(cfg.Height)), 0xFFFFFFFF, vk.MemoryPropertyFlagBits(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	pyramid, err := NewDepthPyramid(d, pyramidRegion, int(cfg.Width), int(cfg.Height))
	if err != nil {
		return nil, err
	}

	swapchain, err := NewSwapchainPass(d, caches, cfg.SwapchainFormat, cfg.SwapchainViews, cfg.SwapchainExtent)
	if err != nil {
		return nil, err
	}

	log.Info("render graph ready", "width", cfg.Width, "height", cfg.Height, "shadow_map_dim", cfg.ShadowMapDim, "samples", cfg.Samples)
	return &Graph{
		device:    d,
		caches:    caches,
		dq:        dq,
		log:       log,
		Shadow:    shadow,
		Forward:   forward,
		Pyramid:   pyramid,
		Swapchain: swapchain,
	}, nil
}

// shadowRegionSize and pyramidRegionSize are coarse upper-bound estimates
// used only to size the one-shot device-local regions these passes'
// single image lives in; ForwardPass computes its own exact size from
// vkGetImageMemoryRequirements instead, since it owns three images of
// different formats.
func shadowRegionSize(dim uint32) vk.DeviceSize {
	return vk.DeviceSize(dim) * vk.DeviceSize(dim) * 4
}

func pyramidRegionSize(width, height int) vk.DeviceSize {
	// A full mip chain is at most 4/3 of the base level (geometric series),
	// 4 bytes/texel (R32_SFLOAT).
	return vk.DeviceSize(width) * vk.DeviceSize(height) * 4 * 4 / 3
}

// BeginFrame advances the deletion queue and returns the current frame
// counter, which the depth-pyramid reduce pass uses to decide whether to
// dispatch or only transition layouts, on the first frame.
func (g *Graph) BeginFrame() uint64 {
	g.dq.Advance()
	counter := g.frameCounter
	g.frameCounter++
	return counter
}

// ReduceDepthPyramid records the per-mip compute dispatch sequence against
// this frame's forward-pass depth attachment.
func (g *Graph) ReduceDepthPyramid(cmd vk.CommandBuffer, pipeline vk.Pipeline, layout vk.PipelineLayout, frameCounter uint64) {
	g.Pyramid.Reduce(cmd, pipeline, layout, frameCounter, int(g.Forward.Extent.Width), int(g.Forward.Extent.Height))
}

// Resize is the resize-on-suboptimal sequence: idle the device,
// recreate the swapchain-dependent framebuffers and the extent-dependent
// forward pass and depth pyramid at the new size. The shadow pass is
// extent-independent (it tracks the shadow-map dimension, not the window)
// and is left untouched. Callers recreate the swapchain itself (with
// oldSwapchain set) before calling Resize.
func (g *Graph) Resize(width, height uint32, swapchainViews []vk.ImageView, swapchainExtent vk.Extent2D) error {
	vk.DeviceWaitIdle(g.device.Handle)

	if err := g.Forward.Resize(g.dq, width, height); err != nil {
		return err
	}

	oldPyramid := g.Pyramid
	g.dq.Push(oldPyramid.Destroy)

	pyramidRegion, err := gpu.NewRegion(g.device, pyramidRegionSize(int(width), int(height)), 0xFFFFFFFF, vk.MemoryPropertyFlagBits(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return err
	}
	pyramid, err := NewDepthPyramid(g.device, pyramidRegion, int(width), int(height))
	if err != nil {
		return err
	}
	g.Pyramid = pyramid

	if err := g.Swapchain.Resize(swapchainViews, swapchainExtent); err != nil {
		return err
	}

	g.log.Info("render graph resized", "width", width, "height", height)
	return nil
}

// Destroy tears down every pass. The caller must ensure the device is
// idle first.
func (g *Graph) Destroy() {
	g.Swapchain.Destroy()
	g.Pyramid.Destroy()
	g.Forward.Destroy()
	g.Shadow.Destroy()
}
