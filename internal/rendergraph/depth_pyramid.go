// Package rendergraph owns the shadow, forward and swapchain render passes
// and the depth-pyramid reduction pass that feeds internal/cull's
// occlusion test, plus the resize-on-suboptimal
// sequence that rebuilds all of them at a new extent. Grounded on
// lida_render.c's Forward_Pass/Shadow_Pass/Depth_Pyramid structures and
// their Create*/Resize*/Begin* functions, rewritten against goki/vulkan and
// wired to internal/gpu's Region/DeletionQueue/Caches instead of the
// original's hand-rolled Video_Memory/Deletion_Queue.
package rendergraph

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
)

// minMipExtent is the tail clamp: dispatch extents never
// shrink below 16 texels per side, matching lida_render.c's
// DepthReductionPass clamp.
const minMipExtent = 16

// nearestPow2 rounds v up to the next power of two, giving the pow2_width/
// pow2_height the reduce dispatch sizes mips against (lida_render.c's
// NearestPow2).
func nearestPow2(v int) int {
	if v <= 1 {
		return 1
	}
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

// log2u32 is the integer log2 lida_render.c's Log2_u32 computes, used to
// size the mip chain: numMips = log2(max(width,height)) + 1.
func log2u32(v int) int {
	n := 0
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// numMips returns the depth pyramid's mip-chain length for a width x
// height depth attachment.
func numMips(width, height int) int {
	m := width
	if height > m {
		m = height
	}
	return log2u32(m) + 1
}

// mipExtent halves the previous level's pow2 extent, clamped to
// minMipExtent, mirroring DepthReductionPass's per-level level_width/
// level_height update.
func mipExtent(prev int) int {
	next := prev / 2
	if next < minMipExtent {
		next = minMipExtent
	}
	return next
}

// ceilDiv16 is the ⌈x / 16⌉ the reduce dispatch needs for its workgroups
// (16x16 local size).
func ceilDiv16(x int) uint32 {
	return uint32((x + 15) / 16)
}

// dispatchGroups returns the compute-dispatch group count for one mip
// level's extent: ⌈pow2_width/16⌉ × ⌈pow2_height/16⌉,
// both clamped to ≥16 at the tail — the clamp already lives in the extent
// mipExtent produces, so this only ceil-divides.
func dispatchGroups(levelWidth, levelHeight int) (uint32, uint32) {
	return ceilDiv16(levelWidth), ceilDiv16(levelHeight)
}

// DepthPyramid is the GPU-side mip chain the cull_pass compute shader
// samples, mirroring lida_render.c's Depth_Pyramid. One R32_SFLOAT
// storage image with numMips levels; mip 0 is populated by copying/
// downsampling the forward pass's depth attachment, each further level by
// a min-reduction of the previous level (general layout throughout, so the
// same image view can be both read and written across dispatches).
type DepthPyramid struct {
	device *gpu.Device
	region *gpu.Region

	Image    vk.Image
	FullView vk.ImageView // whole mip range, for the barrier lida_render.c issues on frame 0
	Mips     []vk.ImageView
	ReduceSets []vk.DescriptorSet // one per mip, bound when writing that level

	Width, Height int
	NumMips       int
}

// NewDepthPyramid creates the pyramid image and its per-mip views at
// width x height (the forward pass's render extent). Descriptor-set
// allocation is left to the caller (it depends on the compute pipeline's
// layout, built once by internal/gpu.Caches) via AllocateReduceSets.
func NewDepthPyramid(d *gpu.Device, region *gpu.Region, width, height int) (*DepthPyramid, error) {
	mips := numMips(width, height)
	if mips > 15 {
		mips = 15 // lida_render.c's Depth_Pyramid.mips array bound
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.FormatR32Sfloat,
		Extent:    vk.Extent3D{Width: uint32(width), Height: uint32(height), Depth: 1},
		MipLevels: uint32(mips),
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageStorageBit | vk.ImageUsageSampledBit),
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if res := vk.CreateImage(d.Handle, &imageInfo, nil, &image); res != vk.Success {
		return nil, fmt.Errorf("rendergraph: vkCreateImage(depth-pyramid) failed: %d", res)
	}
	region.BindImage(image)

	p := &DepthPyramid{device: d, region: region, Image: image, Width: width, Height: height, NumMips: mips}

	fullView, err := createImageView(d, image, vk.FormatR32Sfloat, vk.ImageAspectFlags(vk.ImageAspectColorBit), 0, uint32(mips))
	if err != nil {
		return nil, err
	}
	p.FullView = fullView

	p.Mips = make([]vk.ImageView, mips)
	for i := 0; i < mips; i++ {
		v, err := createImageView(d, image, vk.FormatR32Sfloat, vk.ImageAspectFlags(vk.ImageAspectColorBit), uint32(i), 1)
		if err != nil {
			return nil, err
		}
		p.Mips[i] = v
	}
	return p, nil
}

// ReduceSetLayout returns the descriptor-set layout AllocateReduceSets
// expects: binding 0 a combined-image-sampler source (the previous mip, or
// the forward pass's depth attachment for mip 0), binding 1 the
// destination mip as a storage image, both compute-stage.
func ReduceSetLayout(caches *gpu.Caches) (vk.DescriptorSetLayout, error) {
	return caches.DescriptorSetLayout([]gpu.Binding{
		{Set: 0, Binding: 0, Kind: gpu.KindSampledImage, Stage: vk.ShaderStageFlagBits(vk.ShaderStageComputeBit)},
		{Set: 0, Binding: 1, Kind: gpu.KindStorageImage, Stage: vk.ShaderStageFlagBits(vk.ShaderStageComputeBit)},
	})
}

// AllocateReduceSets allocates and writes one descriptor set per mip
// level: mip 0 samples depthView (the forward pass's resolved depth
// attachment) with a linear, clamp-to-edge sampler (no sampler reduction
// mode is set), every further mip
// samples the previous mip's own view, and each set's storage-image
// binding targets that same mip for the dispatch to write into.
func (p *DepthPyramid) AllocateReduceSets(caches *gpu.Caches, layout vk.DescriptorSetLayout, depthView vk.ImageView) error {
	sampler, err := caches.Sampler(vk.FilterLinear, vk.SamplerAddressModeClampToEdge, vk.BorderColorFloatOpaqueBlack)
	if err != nil {
		return err
	}

	p.ReduceSets = make([]vk.DescriptorSet, p.NumMips)
	for i := 0; i < p.NumMips; i++ {
		set, err := caches.AllocateSet(layout)
		if err != nil {
			return fmt.Errorf("rendergraph: depth-pyramid reduce set %d: %w", i, err)
		}

		source := depthView
		if i > 0 {
			source = p.Mips[i-1]
		}

		imageInfo := vk.DescriptorImageInfo{
			Sampler:     sampler,
			ImageView:   source,
			ImageLayout: vk.ImageLayoutGeneral,
		}
		storageInfo := vk.DescriptorImageInfo{
			ImageView:   p.Mips[i],
			ImageLayout: vk.ImageLayoutGeneral,
		}
		writes := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      0,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      1,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeStorageImage,
				PImageInfo:      []vk.DescriptorImageInfo{storageInfo},
			},
		}
		vk.UpdateDescriptorSets(p.device.Handle, uint32(len(writes)), writes, 0, nil)
		p.ReduceSets[i] = set
	}
	return nil
}

func createImageView(d *gpu.Device, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, baseMip, mipCount uint32) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(d.Handle, &info, nil, &view); res != vk.Success {
		return vk.ImageView(vk.NullHandle), fmt.Errorf("rendergraph: vkCreateImageView failed: %d", res)
	}
	return view, nil
}

// Reduce records the per-mip compute dispatch sequence, mirroring
// lida_render.c's DepthReductionPass: on the very first frame
// it only transitions the whole mip range UNDEFINED → GENERAL and skips
// dispatching, so the first cull pass reads an empty pyramid (reports
// nothing occluded — the conservative, correct result); on every later
// frame it dispatches one compute pass per mip, level 0 reading the
// forward pass's depth attachment and each further level reading the
// previous mip, serialized by a per-mip SHADER_WRITE → SHADER_READ image
// barrier.
func (p *DepthPyramid) Reduce(cmd vk.CommandBuffer, pipeline vk.Pipeline, layout vk.PipelineLayout, frameCounter uint64, renderWidth, renderHeight int) {
	if frameCounter == 0 {
		barrier := vk.ImageMemoryBarrier{
			SType:         vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask: 0,
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			OldLayout:     vk.ImageLayoutUndefined,
			NewLayout:     vk.ImageLayoutGeneral,
			Image:         p.Image,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     uint32(p.NumMips),
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
		return
	}

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pipeline)

	levelW, levelH := mipExtent(nearestPow2(renderWidth)), mipExtent(nearestPow2(renderHeight))
	for i := 0; i < p.NumMips; i++ {
		if i < len(p.ReduceSets) {
			set := p.ReduceSets[i]
			vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointCompute, layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
		}
		gx, gy := dispatchGroups(levelW, levelH)
		vk.CmdDispatch(cmd, gx, gy, 1)

		barrier := vk.ImageMemoryBarrier{
			SType:         vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			OldLayout:     vk.ImageLayoutGeneral,
			NewLayout:     vk.ImageLayoutGeneral,
			Image:         p.Image,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   uint32(i),
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})

		levelW, levelH = mipExtent(levelW), mipExtent(levelH)
	}
}

// Destroy releases the pyramid's image views and image. The backing
// region was passed in by the caller, which owns it; it is not freed here.
func (p *DepthPyramid) Destroy() {
	for _, v := range p.Mips {
		vk.DestroyImageView(p.device.Handle, v, nil)
	}
	vk.DestroyImageView(p.device.Handle, p.FullView, nil)
	vk.DestroyImage(p.device.Handle, p.Image, nil)
}
