package main

import (
	"encoding/binary"
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/drawer"
	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
	"github.com/LLLida/lidaEngine-sub000/internal/voxel"
)

// vertexSize, transformSize and indirectCommandSize are the GPU-side byte
// layouts this file writes: voxel.Vertex{Pos [3]float32; Color uint32} (16
// bytes), a packed quat+position+scale transform (32 bytes, the same field
// order internal/sceneio's wire format uses), and VkDrawIndexedIndirectCommand
// (5 uint32 fields, 20 bytes).
const (
	vertexSize           = 16
	transformSize        = 32
	indirectCommandSize  = 20
	maxIndirectCameras   = drawer.MaxActiveCameras
)

// FrameBuffers owns every host-visible GPU buffer the engine's draw loop
// writes each frame: the vertex/index buffers backing drawer.Drawer's mesh
// cache, the double-buffered transform ring its storage-buffer descriptor
// set points at, and (only used by the indirect backend) the
// vkCmdDrawIndexedIndirect source buffer. All four are carved from a single
// persistently-mapped region, the same "one region, many buffers bound at
// increasing offsets" idiom internal/gpu.Region documents for
// ForwardPass's attachments.
type FrameBuffers struct {
	device *gpu.Device
	region *gpu.Region

	VertexBuffer vk.Buffer
	IndexBuffer  vk.Buffer
	TransformBuffer vk.Buffer
	IndirectBuffer  vk.Buffer

	vertexOffset    vk.DeviceSize
	indexOffset     vk.DeviceSize
	transformOffset vk.DeviceSize
	indirectOffset  vk.DeviceSize

	maxVertices int
	maxDraws    int
	indexCount  int
}

// NewFrameBuffers sizes and allocates every buffer a Drawer of this
// capacity can ever need: the vertex buffer at maxVertices*16 bytes, the
// index buffer at the drawer's fixed repeating-pattern length, the
// transform ring at 2*maxDraws*32 bytes, and the indirect-command buffer
// at maxIndirectCameras*3*maxDraws*20 bytes, matching drawer.Indirect's own
// output capacity.
func NewFrameBuffers(d *gpu.Device, maxVertices, maxDraws int) (*FrameBuffers, error) {
	indexCount := (maxVertices / 4) * 6

	vertexBytes := vk.DeviceSize(maxVertices * vertexSize)
	indexBytes := vk.DeviceSize(indexCount * 4)
	transformBytes := vk.DeviceSize(2 * maxDraws * transformSize)
	indirectBytes := vk.DeviceSize(maxIndirectCameras * 3 * maxDraws * indirectCommandSize)

	vertexBuf, err := createBuffer(d, vertexBytes, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	indexBuf, err := createBuffer(d, indexBytes, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		return nil, err
	}
	transformBuf, err := createBuffer(d, transformBytes, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit))
	if err != nil {
		return nil, err
	}
	indirectBuf, err := createBuffer(d, indirectBytes, vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit))
	if err != nil {
		return nil, err
	}

	total := vertexBytes + indexBytes + transformBytes + indirectBytes
	// typeBits 0xFFFFFFFF accepts any memory type index, the same
	// deferral ForwardPass.allocateRegion uses when binding several
	// differently-typed resources into one region; host-visible+coherent
	// so the draw loop can write through MappedAt without an explicit
	// flush.
	region, err := gpu.NewRegion(d, total, 0xFFFFFFFF,
		vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	fb := &FrameBuffers{
		device: d, region: region,
		VertexBuffer: vertexBuf, IndexBuffer: indexBuf,
		TransformBuffer: transformBuf, IndirectBuffer: indirectBuf,
		maxVertices: maxVertices, maxDraws: maxDraws, indexCount: indexCount,
	}
	fb.vertexOffset = region.BindBuffer(vertexBuf)
	fb.indexOffset = region.BindBuffer(indexBuf)
	fb.transformOffset = region.BindBuffer(transformBuf)
	fb.indirectOffset = region.BindBuffer(indirectBuf)
	return fb, nil
}

func createBuffer(d *gpu.Device, size vk.DeviceSize, usage vk.BufferUsageFlags) (vk.Buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if res := vk.CreateBuffer(d.Handle, &info, nil, &buf); res != vk.Success {
		return vk.Buffer(vk.NullHandle), fmt.Errorf("voxelengine: vkCreateBuffer failed: %d", res)
	}
	return buf, nil
}

// UploadIndices writes the drawer's shared repeating index pattern once;
// the pattern never changes across the drawer's lifetime.
func (fb *FrameBuffers) UploadIndices(indices []uint32) {
	dst := fb.region.MappedAt(fb.indexOffset, vk.DeviceSize(len(indices)*4))
	for i, v := range indices {
		binary.LittleEndian.PutUint32(dst[i*4:], v)
	}
}

// UploadVertices writes this frame's vertex range [0, len(vertices)). The
// drawer's watermark grows between ClearCache calls; ClearCache resets it
// to zero.
func (fb *FrameBuffers) UploadVertices(vertices []voxel.Vertex) {
	dst := fb.region.MappedAt(fb.vertexOffset, vk.DeviceSize(len(vertices)*vertexSize))
	for i, v := range vertices {
		o := i * vertexSize
		binary.LittleEndian.PutUint32(dst[o:], math.Float32bits(v.Pos[0]))
		binary.LittleEndian.PutUint32(dst[o+4:], math.Float32bits(v.Pos[1]))
		binary.LittleEndian.PutUint32(dst[o+8:], math.Float32bits(v.Pos[2]))
		binary.LittleEndian.PutUint32(dst[o+12:], v.Color)
	}
}

// UploadTransforms writes the drawer's whole double-buffered ring; only
// the half NewFrame most recently swapped into differs from last frame; a
// straight overwrite of both halves each frame keeps this simple and is
// cheap compared to the vertex re-mesh cost it rides alongside.
func (fb *FrameBuffers) UploadTransforms(transforms []mathx.Transform) {
	dst := fb.region.MappedAt(fb.transformOffset, vk.DeviceSize(len(transforms)*transformSize))
	for i, t := range transforms {
		o := i * transformSize
		binary.LittleEndian.PutUint32(dst[o:], math.Float32bits(t.Rotation.W))
		binary.LittleEndian.PutUint32(dst[o+4:], math.Float32bits(t.Rotation.V.X()))
		binary.LittleEndian.PutUint32(dst[o+8:], math.Float32bits(t.Rotation.V.Y()))
		binary.LittleEndian.PutUint32(dst[o+12:], math.Float32bits(t.Rotation.V.Z()))
		binary.LittleEndian.PutUint32(dst[o+16:], math.Float32bits(t.Position.X()))
		binary.LittleEndian.PutUint32(dst[o+20:], math.Float32bits(t.Position.Y()))
		binary.LittleEndian.PutUint32(dst[o+24:], math.Float32bits(t.Position.Z()))
		binary.LittleEndian.PutUint32(dst[o+28:], math.Float32bits(t.Scale))
	}
}

// UploadIndirectCommands writes one camera's surviving
// drawer.IndexedIndirectCommand slice at slot-th camera region (the
// per-camera output partition) and returns the byte offset
// vkCmdDrawIndexedIndirect should read from, plus the command count.
func (fb *FrameBuffers) UploadIndirectCommands(slot int, commands []drawer.IndexedIndirectCommand) (vk.DeviceSize, uint32) {
	regionStart := vk.DeviceSize(slot*3*fb.maxDraws*indirectCommandSize) + fb.indirectOffset
	dst := fb.region.MappedAt(regionStart, vk.DeviceSize(len(commands)*indirectCommandSize))
	for i, c := range commands {
		o := i * indirectCommandSize
		binary.LittleEndian.PutUint32(dst[o:], c.IndexCount)
		binary.LittleEndian.PutUint32(dst[o+4:], c.InstanceCount)
		binary.LittleEndian.PutUint32(dst[o+8:], c.FirstIndex)
		binary.LittleEndian.PutUint32(dst[o+12:], c.VertexOffset)
		binary.LittleEndian.PutUint32(dst[o+16:], c.FirstInstance)
	}
	return regionStart, uint32(len(commands))
}

// IndexCount is the fixed index-buffer length every vkCmdDrawIndexed call
// (direct backend) draws a sub-range of.
func (fb *FrameBuffers) IndexCount() int { return fb.indexCount }

func (fb *FrameBuffers) Destroy() {
	vk.DestroyBuffer(fb.device.Handle, fb.IndirectBuffer, nil)
	vk.DestroyBuffer(fb.device.Handle, fb.TransformBuffer, nil)
	vk.DestroyBuffer(fb.device.Handle, fb.IndexBuffer, nil)
	vk.DestroyBuffer(fb.device.Handle, fb.VertexBuffer, nil)
	fb.region.Free()
}
