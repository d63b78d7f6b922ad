package drawer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
)

// DrawCommand is one CPU-built indexed draw: (vertex_count, first_vertex,
// first_instance), expressed in vertex units — Build's
// caller converts to index units (`*3/2`) when recording the real
// vkCmdDrawIndexed call, same as RenderVoxels_Slow does at the call site.
type DrawCommand struct {
	VertexCount   uint32
	FirstVertex   uint32
	FirstInstance uint32 // index into Drawer.Transforms()
}

// faceNormals is the fixed outward normal per face, in Face order
// (−X,+X,−Y,+Y,−Z,+Z), mirroring lida_voxel.c's f_vox_normals table.
var faceNormals = [6]mgl32.Vec3{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// faceCornerGroups names, for each face, the four mathx.OBB.Corners
// indices whose average is that face's centroid — derived from OBB's own
// canonical sign order (mathx.cornerSigns), not lida_voxel.c's `points`
// table, whose corner indexing does not match this package's OBB layout.
var faceCornerGroups = [6][4]int{
	{0, 1, 2, 3}, // -X: sx = -1
	{4, 5, 6, 7}, // +X: sx = +1
	{0, 1, 4, 5}, // -Y: sy = -1
	{2, 3, 6, 7}, // +Y: sy = +1
	{0, 2, 4, 6}, // -Z: sz = -1
	{1, 3, 5, 7}, // +Z: sz = +1
}

// Direct is the backend used when multiDrawIndirect is unavailable. It
// performs CPU backface culling and contiguous-face merging directly off
// the drawer's pushed instances, grounded on
// RenderVoxels_Slow.
type Direct struct {
	drawer   *Drawer
	commands []DrawCommand
}

func NewDirect(d *Drawer) *Direct { return &Direct{drawer: d} }

// Build produces this camera's indexed draw list: for every pushed
// instance whose cull mask intersects the camera's, test each of the six
// faces for backface visibility, then merge contiguous surviving faces
// (faces whose vertex ranges abut) into a single draw command.
func (b *Direct) Build(camera *mathx.Camera) []DrawCommand {
	b.commands = b.commands[:0]
	transforms := b.drawer.Transforms()

	for _, inst := range b.drawer.Instances() {
		if inst.CullMask&camera.CullMask == 0 {
			continue
		}
		t := transforms[inst.TransformIdx]
		obb := mathx.BuildOBB(mgl32.Vec3{inst.HalfSize[0], inst.HalfSize[1], inst.HalfSize[2]}, t)

		firstVertex := inst.FirstVertex
		var lastWritten uint32 = ^uint32(0)

		for face := 0; face < 6; face++ {
			count := inst.Offsets[face]
			fv := firstVertex
			firstVertex += count
			if count == 0 {
				continue
			}

			var viewDir mgl32.Vec3
			if camera.Type() == mathx.Perspective {
				group := faceCornerGroups[face]
				center := mgl32.Vec3{}
				for _, ci := range group {
					center = center.Add(obb.Corners[ci])
				}
				center = center.Mul(0.25)
				viewDir = center.Sub(camera.Position())
			} else {
				viewDir = camera.Front()
			}

			normal := t.Rotation.Rotate(faceNormals[face])
			if viewDir.Dot(normal) > 0 {
				continue // backface
			}

			if lastWritten == fv && len(b.commands) > 0 {
				b.commands[len(b.commands)-1].VertexCount += count
				lastWritten += count
			} else {
				b.commands = append(b.commands, DrawCommand{
					VertexCount:   count,
					FirstVertex:   fv,
					FirstInstance: inst.TransformIdx,
				})
				lastWritten = fv + count
			}
		}
	}
	return b.commands
}
