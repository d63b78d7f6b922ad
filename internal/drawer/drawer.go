// Package drawer implements the voxel drawer: the shared vertex/index/
// transform storage and mesh cache, plus the two backends (direct,
// indirect) that turn a frame's pushed instances into draw commands.
//
// It uses one shared vertex/index buffer region per *grid*, addressed by
// a watermark rather than a slot map, since here an instance is an
// arbitrary voxel model rather than a fixed chunk grid.
package drawer

import (
	"github.com/LLLida/lidaEngine-sub000/internal/ecs"
	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
	"github.com/LLLida/lidaEngine-sub000/internal/voxel"
)

// VoxelView is the per-entity component push_mesh(entity) reads: the grid
// to mesh, its placement, and which cameras may draw it.
type VoxelView struct {
	Grid      *voxel.Grid
	Transform mathx.Transform
	CullMask  uint32
}

// VoxelVertexThreshold is the soft per-frame meshing budget (~8Ki
// vertices/frame): once exhausted, PushMesh leaves any
// remaining cache-miss entities unmeshed (and undrawn) for this frame
// rather than stalling to remesh everything at once.
const VoxelVertexThreshold = 8 * 1024

// PushedInstance is one entity pushed into the current frame, in
// submission order. Both backends read this slice to build their draw
// commands; Drawer itself never renders anything.
type PushedInstance struct {
	Entity       ecs.ID
	FirstVertex  uint32
	Offsets      [6]uint32 // per-face vertex counts, fixed face order
	HalfSize     [3]float32
	CullMask     uint32
	TransformIdx uint32 // index into Drawer.Transforms()
}

// Drawer owns the vertex buffer (capacity maxVertices), the index buffer
// (capacity 1.5*maxVertices, the shared repeating [0,1,2,2,3,0] pattern),
// and the double-buffered transform ring (capacity 2*maxDraws). It
// decides, per pushed entity, whether the cached mesh is still valid;
// backends never touch the cache.
type Drawer struct {
	views *ecs.Table[VoxelView]

	maxVertices int
	maxDraws    int

	vertices        []voxel.Vertex
	indices         []uint32
	vertexWatermark uint32

	// Double-buffered transform ring: two slots, each owning half of the
	// ring; new_frame swaps slots and resets the incoming one. Slot 0 covers
	// [0, maxDraws), slot 1 covers [maxDraws, 2*maxDraws); the slot not
	// being written this frame keeps last frame's data live for the GPU.
	transforms []mathx.Transform
	slot       int
	slotCount  int

	instances    []PushedInstance
	vertexBudget int

	// hashCache maps a content hash to the vertex range a grid with that
	// hash last meshed into, so two distinct grid objects with identical
	// content share one cached range instead of
	// each re-meshing independently.
	hashCache map[uint64]cachedMesh
}

type cachedMesh struct {
	firstVertex uint32
	offsets     [6]uint32
}

// NewDrawer allocates the drawer's buffers. maxVertices and maxDraws are
// fixed for the drawer's lifetime: its buffers never grow, so a
// caller that needs more headroom creates a new drawer and deletion-queues
// the old one.
func NewDrawer(views *ecs.Table[VoxelView], maxVertices, maxDraws int) *Drawer {
	return &Drawer{
		views:       views,
		maxVertices: maxVertices,
		maxDraws:    maxDraws,
		vertices:    make([]voxel.Vertex, 0, maxVertices),
		indices:     generateSharedIndexPattern(maxVertices),
		transforms:  make([]mathx.Transform, 2*maxDraws),
		hashCache:   make(map[uint64]cachedMesh),
	}
}

// generateSharedIndexPattern builds the repeating [0,1,2, 2,3,0] index
// pattern for up to maxVertices/4 quads, grounded on
// ChunkBufferManager.generateSharedIndexPattern, generalized from a
// per-chunk quad cap to the drawer's global vertex capacity.
func generateSharedIndexPattern(maxVertices int) []uint32 {
	maxQuads := maxVertices / 4
	indices := make([]uint32, 0, maxQuads*6)
	for q := 0; q < maxQuads; q++ {
		base := uint32(q * 4)
		indices = append(indices,
			base+0, base+1, base+2,
			base+2, base+3, base+0,
		)
	}
	return indices
}

// NewFrame begins a frame: swaps the transform ring's active slot and
// resets its write cursor, and refills the per-frame meshing budget.
func (d *Drawer) NewFrame() {
	d.slot = 1 - d.slot
	d.slotCount = 0
	d.instances = d.instances[:0]
	d.vertexBudget = VoxelVertexThreshold
}

// ClearCache resets the vertex watermark to zero, invalidating every
// cached mesh; the next PushMesh for any grid will remesh
// it regardless of hash.
func (d *Drawer) ClearCache() {
	d.vertexWatermark = 0
	d.hashCache = make(map[uint64]cachedMesh)
}

// PushMesh looks up entity's Voxel_View, reuses its grid's cached mesh
// when the content hash has not changed and the cached range is still
// within the valid (non-cleared) vertex region, otherwise re-meshes it
// into the watermark, and appends the entity's transform to the ring. A
// cache miss that would exceed this frame's
// VoxelVertexThreshold budget is skipped entirely (not drawn) rather than
// stalling; it is retried on the next frame.
func (d *Drawer) PushMesh(entity ecs.ID) {
	view, ok := d.views.Get(entity)
	if !ok {
		return
	}
	g := view.Grid
	hash := g.Hash()

	if !d.cacheValid(g) {
		if cached, ok := d.hashCache[hash]; ok && cached.firstVertex < d.vertexWatermark {
			g.FirstVertex = cached.firstVertex
			g.Offsets = cached.offsets
			g.LastHash = hash
		} else {
			meshed := voxel.GreedyMesh(g)
			if len(meshed.Vertices) > d.vertexBudget {
				return
			}
			if int(d.vertexWatermark)+len(meshed.Vertices) > d.maxVertices {
				return // out of vertex-buffer room; drop the instance this frame
			}
			d.vertices = append(d.vertices[:d.vertexWatermark], meshed.Vertices...)
			g.FirstVertex = d.vertexWatermark
			g.Offsets = meshed.Offsets
			g.LastHash = hash

			d.vertexWatermark += uint32(len(meshed.Vertices))
			d.vertexBudget -= len(meshed.Vertices)
			d.hashCache[hash] = cachedMesh{firstVertex: g.FirstVertex, offsets: g.Offsets}
		}
	}

	if d.slotCount >= d.maxDraws {
		return // transform ring full for this frame
	}
	idx := uint32(d.slot*d.maxDraws + d.slotCount)
	d.transforms[idx] = view.Transform
	d.slotCount++

	d.instances = append(d.instances, PushedInstance{
		Entity:       entity,
		FirstVertex:  g.FirstVertex,
		Offsets:      g.Offsets,
		HalfSize:     voxel.HalfSize(g),
		CullMask:     view.CullMask,
		TransformIdx: idx,
	})
}

func (d *Drawer) cacheValid(g *voxel.Grid) bool {
	return g.Hash() == g.LastHash && g.FirstVertex < d.vertexWatermark
}

func (d *Drawer) Vertices() []voxel.Vertex      { return d.vertices }
func (d *Drawer) Indices() []uint32             { return d.indices }
func (d *Drawer) Transforms() []mathx.Transform { return d.transforms }
func (d *Drawer) Instances() []PushedInstance   { return d.instances }
func (d *Drawer) MaxDraws() int                 { return d.maxDraws }
