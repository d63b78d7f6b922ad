package gpu

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Region is a manual video-memory bump suballocator: one vkDeviceMemory
// block that buffers and images are bound into at increasing offsets.
// General-purpose allocation is explicitly out of scope; this
// is the single fixed-size arena the drawer's vertex buffer and the GPU
// cull pass's working buffers are carved from, grounded on
// internal/openglhelper/buffer.go's persistent-mapped BufferObject idiom
// rewritten against vkAllocateMemory/vkBindBufferMemory.
type Region struct {
	device *Device
	memory vk.DeviceMemory
	size   vk.DeviceSize
	cursor vk.DeviceSize

	mapped uintptr // 0 when the region is not host-visible
}

// NewRegion allocates one vkDeviceMemory block of size bytes satisfying
// typeBits and properties, and persistently maps it if it is host-visible.
func NewRegion(d *Device, size vk.DeviceSize, typeBits uint32, properties vk.MemoryPropertyFlagBits) (*Region, error) {
	memType, err := d.FindMemoryType(typeBits, properties)
	if err != nil {
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: memType,
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(d.Handle, &allocInfo, nil, &mem); res != vk.Success {
		return nil, fmt.Errorf("gpu: vkAllocateMemory failed: %d", res)
	}

	r := &Region{device: d, memory: mem, size: size}

	if properties&vk.MemoryPropertyHostVisibleBit != 0 {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(d.Handle, mem, 0, size, 0, &mapped); res != vk.Success {
			vk.FreeMemory(d.Handle, mem, nil)
			return nil, fmt.Errorf("gpu: vkMapMemory failed: %d", res)
		}
		r.mapped = uintptr(mapped)
	}
	return r, nil
}

// BindBuffer places buf at the region's current cursor, advances the
// cursor to the next alignment-satisfying offset, and returns the bound
// offset. Panics if the region is out of space — callers size regions from
// known worst-case capacities (the drawer's fixed vertex-buffer capacity
// is exactly this pattern).
func (r *Region) BindBuffer(buf vk.Buffer) vk.DeviceSize {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(r.device.Handle, buf, &req)
	req.Deref()

	offset := alignUp(r.cursor, req.Alignment)
	if offset+req.Size > r.size {
		panic(fmt.Sprintf("gpu: region out of space: need %d at %d, capacity %d", req.Size, offset, r.size))
	}
	if res := vk.BindBufferMemory(r.device.Handle, buf, r.memory, offset); res != vk.Success {
		panic(fmt.Sprintf("gpu: vkBindBufferMemory failed: %d", res))
	}
	r.cursor = offset + req.Size
	return offset
}

// BindImage is BindBuffer's counterpart for images (used by the depth
// pyramid's mip chain).
func (r *Region) BindImage(img vk.Image) vk.DeviceSize {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(r.device.Handle, img, &req)
	req.Deref()

	offset := alignUp(r.cursor, req.Alignment)
	if offset+req.Size > r.size {
		panic(fmt.Sprintf("gpu: region out of space: need %d at %d, capacity %d", req.Size, offset, r.size))
	}
	if res := vk.BindImageMemory(r.device.Handle, img, r.memory, offset); res != vk.Success {
		panic(fmt.Sprintf("gpu: vkBindImageMemory failed: %d", res))
	}
	r.cursor = offset + req.Size
	return offset
}

// Reset rewinds the cursor to zero without freeing the underlying
// allocation, letting per-frame scratch regions (e.g. the cull pass's
// readback staging buffer) be reused across frames.
func (r *Region) Reset() { r.cursor = 0 }

// MappedAt returns a byte slice over the region's persistently-mapped
// memory starting at offset, for host-visible regions only.
func (r *Region) MappedAt(offset, length vk.DeviceSize) []byte {
	if r.mapped == 0 {
		panic("gpu: region is not host-visible/mapped")
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(r.mapped+uintptr(offset))), length)
}

func (r *Region) Free() {
	if r.mapped != 0 {
		vk.UnmapMemory(r.device.Handle, r.memory)
	}
	vk.FreeMemory(r.device.Handle, r.memory, nil)
}

func alignUp(v, align vk.DeviceSize) vk.DeviceSize {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}
