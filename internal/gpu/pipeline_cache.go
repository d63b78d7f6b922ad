package gpu

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"
)

// samplerKey is the (filter, address-mode, border-colour) tuple used as
// the sampler cache's key.
type samplerKey struct {
	filter      vk.Filter
	addressMode vk.SamplerAddressMode
	borderColor vk.BorderColor
}

// descriptorSetLayoutKey is a descriptor-set layout's sorted binding
// array, serialized to a comparable string so it can key a Go map.
type descriptorSetLayoutKey string

// pipelineLayoutKey is the ordered set of descriptor-set layouts plus
// push-constant ranges, serialized the same way.
type pipelineLayoutKey string

// Caches are the content-addressed shader/pipeline caches the render
// graph shares across passes: shader modules keyed by path, descriptor-set
// layouts keyed by their sorted binding array, samplers by
// (filter,address,border), and pipeline layouts by the ordered set of
// descriptor-set layouts plus push-constant ranges. Grounded on
// internal/openglhelper/shader.go's program/uniform cache shape,
// generalized from a single GL program cache to these four Vulkan object
// caches.
type Caches struct {
	device *Device

	shaderModules  map[string]vk.ShaderModule
	setLayouts     map[descriptorSetLayoutKey]vk.DescriptorSetLayout
	samplers       map[samplerKey]vk.Sampler
	pipelineLayout map[pipelineLayoutKey]vk.PipelineLayout

	descriptorPool vk.DescriptorPool
}

// descriptorPoolCapacity bounds the handful of descriptor sets the engine
// ever allocates at once (one per depth-pyramid mip plus the forward
// pass's resulting-image set); a descriptor-pool exhaustion failure
// becomes a real concern once per-material/per-frame descriptor traffic is
// added on top of this.
const descriptorPoolCapacity = 64

func NewCaches(d *Device) (*Caches, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorPoolCapacity},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: descriptorPoolCapacity},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: descriptorPoolCapacity},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorPoolCapacity},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       descriptorPoolCapacity,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.Handle, &poolInfo, nil, &pool); res != vk.Success {
		return nil, fmt.Errorf("gpu: vkCreateDescriptorPool failed: %d", res)
	}

	return &Caches{
		device:         d,
		shaderModules:  make(map[string]vk.ShaderModule),
		setLayouts:     make(map[descriptorSetLayoutKey]vk.DescriptorSetLayout),
		samplers:       make(map[samplerKey]vk.Sampler),
		pipelineLayout: make(map[pipelineLayoutKey]vk.PipelineLayout),
		descriptorPool: pool,
	}, nil
}

// AllocateSet allocates one descriptor set of the given layout from the
// caches' shared pool. A pool-exhaustion failure is the
// caller's to log and abort the higher-level operation on, not fatal to
// the process.
func (c *Caches) AllocateSet(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     c.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(c.device.Handle, &allocInfo, &set); res != vk.Success {
		return vk.DescriptorSet(vk.NullHandle), fmt.Errorf("gpu: vkAllocateDescriptorSets failed: %d", res)
	}
	return set, nil
}

// Destroy releases the shared descriptor pool (and with it every set
// allocated from it). Shader modules, layouts, samplers, and pipeline
// layouts outlive the caches' own lifetime expectations in this engine
// (they are process-lifetime caches) and are not destroyed here.
func (c *Caches) Destroy() {
	vk.DestroyDescriptorPool(c.device.Handle, c.descriptorPool, nil)
}

// LoadShaderModule creates a module from spv and caches it under path,
// replacing any earlier entry for that path. Reloading in place (hot-reload)
// calls LoadShaderModule again with new bytes,
// which creates a *new* module and replaces the cache entry; the old
// module's destruction is the caller's job via the deletion queue so any
// pipeline still referencing it keeps working until retired.
func (c *Caches) LoadShaderModule(path string, spv []byte) (vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spv)),
		PCode:    bytesToUint32Ptr(spv),
	}
	var mod vk.ShaderModule
	if res := vk.CreateShaderModule(c.device.Handle, &info, nil, &mod); res != vk.Success {
		return vk.ShaderModule(vk.NullHandle), fmt.Errorf("gpu: vkCreateShaderModule(%s) failed: %d", path, res)
	}
	c.shaderModules[path] = mod
	return mod, nil
}

func (c *Caches) ShaderModule(path string) (vk.ShaderModule, bool) {
	m, ok := c.shaderModules[path]
	return m, ok
}

// DescriptorSetLayout returns the cached layout for this exact sorted
// binding set, creating it on first use.
func (c *Caches) DescriptorSetLayout(bindings []Binding) (vk.DescriptorSetLayout, error) {
	sorted := append([]Binding(nil), bindings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Binding < sorted[j].Binding })

	key := descriptorSetLayoutKey(fmt.Sprint(sorted))
	if l, ok := c.setLayouts[key]; ok {
		return l, nil
	}

	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(sorted))
	for i, b := range sorted {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Kind),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(b.Stage),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(c.device.Handle, &info, nil, &layout); res != vk.Success {
		return vk.DescriptorSetLayout(vk.NullHandle), fmt.Errorf("gpu: vkCreateDescriptorSetLayout failed: %d", res)
	}
	c.setLayouts[key] = layout
	return layout, nil
}

// Sampler returns the cached sampler for (filter, addressMode,
// borderColor), creating it on first use.
func (c *Caches) Sampler(filter vk.Filter, addressMode vk.SamplerAddressMode, border vk.BorderColor) (vk.Sampler, error) {
	key := samplerKey{filter, addressMode, border}
	if s, ok := c.samplers[key]; ok {
		return s, nil
	}
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filter,
		MinFilter:    filter,
		AddressModeU: addressMode,
		AddressModeV: addressMode,
		AddressModeW: addressMode,
		BorderColor:  border,
	}
	var s vk.Sampler
	if res := vk.CreateSampler(c.device.Handle, &info, nil, &s); res != vk.Success {
		return vk.Sampler(vk.NullHandle), fmt.Errorf("gpu: vkCreateSampler failed: %d", res)
	}
	c.samplers[key] = s
	return s, nil
}

// PipelineLayout returns the cached layout for this exact ordered set of
// descriptor-set layouts plus push-constant ranges, creating it on first
// use.
func (c *Caches) PipelineLayout(setLayouts []vk.DescriptorSetLayout, pushConstants []PushConstantRange) (vk.PipelineLayout, error) {
	key := pipelineLayoutKey(fmt.Sprintf("%v|%v", setLayouts, pushConstants))
	if l, ok := c.pipelineLayout[key]; ok {
		return l, nil
	}

	ranges := make([]vk.PushConstantRange, len(pushConstants))
	for i, pc := range pushConstants {
		ranges[i] = vk.PushConstantRange{
			StageFlags: vk.ShaderStageFlags(pc.Stage),
			Offset:     pc.Offset,
			Size:       pc.Size,
		}
	}

	info := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(c.device.Handle, &info, nil, &layout); res != vk.Success {
		return vk.PipelineLayout(vk.NullHandle), fmt.Errorf("gpu: vkCreatePipelineLayout failed: %d", res)
	}
	c.pipelineLayout[key] = layout
	return layout, nil
}

func descriptorType(k DescriptorKind) vk.DescriptorType {
	switch k {
	case KindUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case KindStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case KindStorageImage:
		return vk.DescriptorTypeStorageImage
	case KindSampledImage:
		return vk.DescriptorTypeCombinedImageSampler
	case KindInputAttachment:
		return vk.DescriptorTypeInputAttachment
	default:
		return vk.DescriptorTypeSampler
	}
}

// bytesToUint32Ptr reinterprets a SPIR-V byte blob as the []uint32 slice
// vk.ShaderModuleCreateInfo.PCode expects, assuming 4-byte alignment and a
// whole number of words (true for any well-formed .spv file).
func bytesToUint32Ptr(spv []byte) []uint32 {
	out := make([]uint32, len(spv)/4)
	for i := range out {
		out[i] = uint32(spv[i*4]) | uint32(spv[i*4+1])<<8 | uint32(spv[i*4+2])<<16 | uint32(spv[i*4+3])<<24
	}
	return out
}
