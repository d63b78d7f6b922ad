package drawer

import (
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/LLLida/lidaEngine-sub000/internal/cull"
	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
)

// MaxActiveCameras bounds the per-camera output-buffer regions: at most 8
// active cameras contribute to culling in one frame (CullMask is a
// single byte's worth of bits).
const MaxActiveCameras = 8

// indirectCommandStride is the 32-byte stride assigned to each output
// slot (culling.h's Draw_Command).
const indirectCommandStride = 32

// DrawData mirrors the GPU-visible per-instance record the cull_pass
// compute shader reads (culling.h's Draw_Data): half-size,
// first vertex, first instance (= transform-ring index), the six
// per-face vertex counts, and the instance's cull mask.
type DrawData struct {
	HalfSize      [3]float32
	FirstVertex   uint32
	FirstInstance uint32
	Offsets       [6]uint32
	CullMask      uint32
}

// IndexedIndirectCommand mirrors VkDrawIndexedIndirectCommand, the record
// cull_pass writes into the output buffer.
type IndexedIndirectCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  uint32
	FirstInstance uint32
}

// Indirect is the backend used when multiDrawIndirect is available: it
// replaces the direct backend's CPU draw list with a
// GPU Draw_Data buffer and an output indirect-draw buffer, capacity
// MaxActiveCameras*3*maxDraws, stride 32. Grounded on
// ChunkBufferManager's DrawElementsIndirectCommand/
// MultiDrawElementsIndirect path and CullPass_Indirect's push-constant
// shape; CullPass here is the CPU mirror of that compute dispatch (used
// by this package's tests, and as the reference the embedded
// cull.CullPassComputeShader is translated from).
type Indirect struct {
	drawer   *Drawer
	maxDraws int
	useCount bool // VK_KHR_draw_indirect_count present

	drawData []DrawData
	output   []IndexedIndirectCommand // capacity MaxActiveCameras*3*maxDraws
	counts   []uint32                 // per-camera write cursor, used whether or not useCount
}

func NewIndirect(d *Drawer, maxDraws int, useDrawIndirectCount bool) *Indirect {
	return &Indirect{
		drawer:   d,
		maxDraws: maxDraws,
		useCount: useDrawIndirectCount,
		output:   make([]IndexedIndirectCommand, MaxActiveCameras*3*maxDraws),
		counts:   make([]uint32, MaxActiveCameras),
	}
}

// BuildDrawData converts this frame's pushed instances into the Draw_Data
// records the cull_pass compute shader consumes; callers upload the
// returned slice to the GPU buffer once per frame.
func (b *Indirect) BuildDrawData() []DrawData {
	instances := b.drawer.Instances()
	b.drawData = b.drawData[:0]
	for _, inst := range instances {
		b.drawData = append(b.drawData, DrawData{
			HalfSize:      inst.HalfSize,
			FirstVertex:   inst.FirstVertex,
			FirstInstance: inst.TransformIdx,
			Offsets:       inst.Offsets,
			CullMask:      inst.CullMask,
		})
	}
	return b.drawData
}

// cameraSlot is Log2_u32(cullMaskBit): CullMask carries exactly one set
// bit per camera, so its bit index is both the camera's output-buffer
// region and its counts-buffer slot.
func cameraSlot(cullMaskBit uint32) int {
	return bits.TrailingZeros32(cullMaskBit)
}

// CullPassInput bundles one camera's cull_pass dispatch parameters,
// mirroring the compute shader's push-constant list.
type CullPassInput struct {
	Camera       *mathx.Camera
	DepthPyramid *cull.DepthPyramid // nil for orthographic cameras (no occlusion test)
}

// CullPass is the CPU-side mirror of the per-camera compute dispatch:
// for each Draw_Data record, test the cull mask,
// then the frustum, then (perspective only) occlusion, then per-face
// backface culling, writing one IndexedIndirectCommand per surviving
// face into this camera's output region. It resets that camera's write
// counter first (the region itself is not cleared), mirroring the count-buffer zero-fill
// CullPass_Indirect issues before dispatching.
func (b *Indirect) CullPass(in CullPassInput) {
	cam := in.Camera
	slot := cameraSlot(cam.CullMask)
	regionStart := slot * 3 * b.maxDraws
	b.counts[slot] = 0

	transforms := b.drawer.Transforms()
	projView := cam.ProjView()

	for _, d := range b.drawData {
		if d.CullMask&cam.CullMask == 0 {
			continue
		}
		t := transforms[d.FirstInstance]

		obb := mathx.BuildOBB(mgl32.Vec3{d.HalfSize[0], d.HalfSize[1], d.HalfSize[2]}, t)
		if cull.FrustumCull(projView, obb) {
			continue
		}

		if cam.Type() == mathx.Perspective && in.DepthPyramid != nil {
			occluded := cull.OcclusionCull(cull.OcclusionParams{
				HalfSize:       d.HalfSize,
				Transform:      t,
				CameraPosition: cam.Position(),
				ProjView:       projView,
				Pyramid:        in.DepthPyramid,
			})
			if occluded {
				continue
			}
		}

		firstVertex := d.FirstVertex
		for face := 0; face < 6; face++ {
			count := d.Offsets[face]
			fv := firstVertex
			firstVertex += count
			if count == 0 {
				continue
			}

			normal := t.Rotation.Rotate(faceNormals[face])
			var viewDir mgl32.Vec3
			if cam.Type() == mathx.Perspective {
				group := faceCornerGroups[face]
				center := mgl32.Vec3{}
				for _, ci := range group {
					center = center.Add(obb.Corners[ci])
				}
				viewDir = center.Mul(0.25).Sub(cam.Position())
			} else {
				viewDir = cam.Front()
			}
			if viewDir.Dot(normal) > 0 {
				continue
			}

			if int(b.counts[slot]) >= 3*b.maxDraws {
				break // output region exhausted
			}
			out := regionStart + int(b.counts[slot])
			b.output[out] = IndexedIndirectCommand{
				IndexCount:    count * 3 / 2,
				InstanceCount: 1,
				FirstIndex:    fv * 3 / 2,
				VertexOffset:  fv,
				FirstInstance: d.FirstInstance,
			}
			b.counts[slot]++
		}
	}
}

// Commands returns camera's surviving indirect-draw commands after
// CullPass has run for it.
func (b *Indirect) Commands(cam *mathx.Camera) []IndexedIndirectCommand {
	slot := cameraSlot(cam.CullMask)
	regionStart := slot * 3 * b.maxDraws
	return b.output[regionStart : regionStart+int(b.counts[slot])]
}

// UsesDrawIndirectCount reports whether this backend was configured to
// use VK_KHR_draw_indirect_count; when false, the caller
// must submit exactly num_draws*3 indirect commands per camera and rely
// on zero-sized commands being no-ops, since no count buffer exists to
// tell the driver how many were actually written.
func (b *Indirect) UsesDrawIndirectCount() bool { return b.useCount }
