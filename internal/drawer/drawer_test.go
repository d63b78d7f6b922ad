package drawer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/LLLida/lidaEngine-sub000/internal/ecs"
	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
	"github.com/LLLida/lidaEngine-sub000/internal/voxel"
)

func solidGrid(w, h, d int, v voxel.Voxel) *voxel.Grid {
	g := voxel.NewGrid(w, h, d)
	g.Fill(v)
	return g
}

func TestPushMeshCachesUnchangedGrid(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()

	g := solidGrid(2, 2, 2, 7)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 1})

	d := NewDrawer(views, 4096, 16)

	d.NewFrame()
	d.PushMesh(e)
	firstVertex := g.FirstVertex
	watermarkAfterFirst := len(d.Vertices())

	d.NewFrame()
	d.PushMesh(e)
	if g.FirstVertex != firstVertex {
		t.Fatalf("PushMesh re-meshed an unchanged grid: first_vertex moved from %d to %d", firstVertex, g.FirstVertex)
	}
	if len(d.Vertices()) != watermarkAfterFirst {
		t.Fatalf("PushMesh appended new vertices for a cache hit: watermark %d -> %d", watermarkAfterFirst, len(d.Vertices()))
	}
}

func TestPushMeshRemeshesAfterMutation(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()

	g := solidGrid(2, 2, 2, 7)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 1})

	d := NewDrawer(views, 4096, 16)
	d.NewFrame()
	d.PushMesh(e)
	before := g.FirstVertex

	g.Set(0, 0, 0, voxel.Air) // punch a hole, changes the hash
	d.NewFrame()
	d.PushMesh(e)
	if g.FirstVertex == before && g.Hash() == g.LastHash {
		t.Fatal("expected a mutated grid to be re-meshed")
	}
}

// TestPushMeshSharesCacheAcrossIdenticalGrids checks that
// two distinct grid objects with identical content (same hash) pushed in
// the same frame share one cached vertex range.
func TestPushMeshSharesCacheAcrossIdenticalGrids(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()

	g1 := solidGrid(2, 2, 2, 7)
	g2 := solidGrid(2, 2, 2, 7)
	if g1.Hash() != g2.Hash() {
		t.Fatal("two identically-filled grids should hash equal")
	}

	e1 := world.CreateEntity()
	e2 := world.CreateEntity()
	views.Add(e1, VoxelView{Grid: g1, Transform: mathx.Identity(), CullMask: 1})
	views.Add(e2, VoxelView{Grid: g2, Transform: mathx.Identity(), CullMask: 1})

	d := NewDrawer(views, 4096, 16)
	d.NewFrame()
	d.PushMesh(e1)
	d.PushMesh(e2)

	if g1.FirstVertex != g2.FirstVertex {
		t.Fatalf("expected shared cached range, got first_vertex %d vs %d", g1.FirstVertex, g2.FirstVertex)
	}
	if len(d.Instances()) != 2 {
		t.Fatalf("expected two pushed instances (one per entity), got %d", len(d.Instances()))
	}
	watermark := len(d.Vertices())
	if watermark != 24 {
		t.Fatalf("expected exactly one mesh's worth of vertices (24) in the buffer, got %d", watermark)
	}
}

func TestClearCacheForcesRemesh(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()

	g := solidGrid(2, 2, 2, 7)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 1})

	d := NewDrawer(views, 4096, 16)
	d.NewFrame()
	d.PushMesh(e)

	d.ClearCache()
	d.NewFrame()
	d.PushMesh(e)
	if g.FirstVertex != 0 {
		t.Fatalf("expected ClearCache to force a remesh at watermark 0, got first_vertex %d", g.FirstVertex)
	}
}

func TestNewFrameAlternatesTransformSlots(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()
	g := solidGrid(1, 1, 1, 1)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 1})

	d := NewDrawer(views, 4096, 4)
	d.NewFrame()
	d.PushMesh(e)
	firstFrameIdx := d.Instances()[0].TransformIdx

	d.NewFrame()
	d.PushMesh(e)
	secondFrameIdx := d.Instances()[0].TransformIdx

	if firstFrameIdx == secondFrameIdx {
		t.Fatal("expected consecutive frames to write into different transform-ring slots")
	}
	if (firstFrameIdx < 4) == (secondFrameIdx < 4) {
		t.Fatal("expected the two frames' slots to straddle the maxDraws=4 midpoint")
	}
}

func TestDirectBackfaceCullsOppositeSideFaces(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()
	g := solidGrid(2, 2, 2, 7)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 1})

	d := NewDrawer(views, 4096, 4)
	d.NewFrame()
	d.PushMesh(e)

	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 10}, 1)
	cam.SetViewport(800, 600)

	direct := NewDirect(d)
	commands := direct.Build(cam)
	if len(commands) == 0 {
		t.Fatal("expected at least one surviving face toward the camera")
	}
	total := uint32(0)
	for _, c := range commands {
		total += c.VertexCount
	}
	if total >= 24 {
		t.Fatalf("expected backface culling to drop at least the far side's faces, got %d/24 vertices", total)
	}
}

func TestDirectSkipsInstancesOutsideCullMask(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()
	g := solidGrid(2, 2, 2, 7)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 2}) // bit 1, not bit 0

	d := NewDrawer(views, 4096, 4)
	d.NewFrame()
	d.PushMesh(e)

	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 10}, 1) // cull mask bit 0 = 1
	cam.SetViewport(800, 600)

	if cmds := NewDirect(d).Build(cam); len(cmds) != 0 {
		t.Fatalf("expected an instance outside the camera's cull mask to be dropped, got %d commands", len(cmds))
	}
}
