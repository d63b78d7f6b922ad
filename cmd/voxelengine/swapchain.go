package main

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
)

// Swapchain owns the presentation chain the render graph's swapchain
// pass blits into: the VkSwapchainKHR itself, its images, and one image
// view per image. Window/surface creation is the platform collaborator's
// own job; this is the thin layer above it that the engine core assumes
// already exists when it asks for a Graph's SwapchainViews.
type Swapchain struct {
	device  *gpu.Device
	surface vk.Surface

	Handle vk.Swapchain
	Format vk.Format
	Extent vk.Extent2D
	Images []vk.Image
	Views  []vk.ImageView
}

// NewSwapchain creates the swapchain at the surface's current extent,
// preferring B8G8R8A8_UNORM with the SRGB-nonlinear colour space (else the
// surface's first format) and MAILBOX present mode, falling back to FIFO
// (vsync), which is always supported.
func NewSwapchain(d *gpu.Device, surface vk.Surface, width, height uint32, old vk.Swapchain) (*Swapchain, error) {
	s := &Swapchain{device: d, surface: surface}
	if err := s.create(width, height, old); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Swapchain) create(width, height uint32, old vk.Swapchain) error {
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(s.device.PhysicalDevice, s.surface, &caps); res != vk.Success {
		return fmt.Errorf("voxelengine: vkGetPhysicalDeviceSurfaceCapabilities failed: %d", res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	extent := vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != 0xFFFFFFFF {
		extent = caps.CurrentExtent
	}

	format, err := s.chooseFormat()
	if err != nil {
		return err
	}
	presentMode := s.choosePresentMode()

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface,
		MinImageCount:    imageCount,
		ImageFormat:      format,
		ImageColorSpace:  vk.ColorSpaceSrgbNonlinear,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(s.device.Handle, &createInfo, nil, &handle); res != vk.Success {
		return fmt.Errorf("voxelengine: vkCreateSwapchainKHR failed: %d", res)
	}
	s.Handle = handle
	s.Format = format
	s.Extent = extent

	var count uint32
	vk.GetSwapchainImages(s.device.Handle, handle, &count, nil)
	images := make([]vk.Image, count)
	vk.GetSwapchainImages(s.device.Handle, handle, &count, images)
	s.Images = images

	views := make([]vk.ImageView, count)
	for i, img := range images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount:     1,
				LayerCount:     1,
			},
		}
		var view vk.ImageView
		if res := vk.CreateImageView(s.device.Handle, &viewInfo, nil, &view); res != vk.Success {
			return fmt.Errorf("voxelengine: vkCreateImageView(swapchain %d) failed: %d", i, res)
		}
		views[i] = view
	}
	s.Views = views
	return nil
}

func (s *Swapchain) chooseFormat() (vk.Format, error) {
	var count uint32
	vk.GetPhysicalDeviceSurfaceFormats(s.device.PhysicalDevice, s.surface, &count, nil)
	if count == 0 {
		return 0, fmt.Errorf("voxelengine: surface exposes no formats")
	}
	formats := make([]vk.SurfaceFormat, count)
	vk.GetPhysicalDeviceSurfaceFormats(s.device.PhysicalDevice, s.surface, &count, formats)

	for _, f := range formats {
		f.Deref()
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f.Format, nil
		}
	}
	formats[0].Deref()
	return formats[0].Format, nil
}

func (s *Swapchain) choosePresentMode() vk.PresentMode {
	var count uint32
	vk.GetPhysicalDeviceSurfacePresentModes(s.device.PhysicalDevice, s.surface, &count, nil)
	modes := make([]vk.PresentMode, count)
	vk.GetPhysicalDeviceSurfacePresentModes(s.device.PhysicalDevice, s.surface, &count, modes)
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo // always supported
}

// Recreate rebuilds the swapchain at a new extent, passing the old handle
// as OldSwapchain, the way a resize-on-suboptimal sequence must. The caller is
// responsible for vkDeviceWaitIdle beforehand; Recreate itself destroys
// the old image views and swapchain.
func (s *Swapchain) Recreate(width, height uint32) error {
	oldHandle := s.Handle
	oldViews := s.Views
	if err := s.create(width, height, oldHandle); err != nil {
		return err
	}
	for _, v := range oldViews {
		vk.DestroyImageView(s.device.Handle, v, nil)
	}
	if oldHandle != vk.Swapchain(vk.NullHandle) {
		vk.DestroySwapchain(s.device.Handle, oldHandle, nil)
	}
	return nil
}

func (s *Swapchain) Destroy() {
	for _, v := range s.Views {
		vk.DestroyImageView(s.device.Handle, v, nil)
	}
	if s.Handle != vk.Swapchain(vk.NullHandle) {
		vk.DestroySwapchain(s.device.Handle, s.Handle, nil)
	}
}
