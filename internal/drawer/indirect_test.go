package drawer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/LLLida/lidaEngine-sub000/internal/ecs"
	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
)

func TestIndirectCullPassWritesCommandsForVisibleInstance(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()
	g := solidGrid(2, 2, 2, 7)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 1})

	d := NewDrawer(views, 4096, 4)
	d.NewFrame()
	d.PushMesh(e)

	ind := NewIndirect(d, 4, false)
	ind.BuildDrawData()

	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 10}, 1)
	cam.SetViewport(800, 600)

	ind.CullPass(CullPassInput{Camera: cam})
	cmds := ind.Commands(cam)
	if len(cmds) == 0 {
		t.Fatal("expected at least one surviving face for a visible instance")
	}
	for _, c := range cmds {
		if c.IndexCount == 0 {
			t.Fatal("indirect command has zero index_count")
		}
		if c.IndexCount%3 != 0 {
			t.Fatalf("index_count %d is not a whole number of triangles", c.IndexCount)
		}
	}
}

func TestIndirectCullPassDropsInstanceOutsideCullMask(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()
	g := solidGrid(2, 2, 2, 7)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 2})

	d := NewDrawer(views, 4096, 4)
	d.NewFrame()
	d.PushMesh(e)

	ind := NewIndirect(d, 4, false)
	ind.BuildDrawData()

	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 10}, 1) // cull mask bit 0
	cam.SetViewport(800, 600)

	ind.CullPass(CullPassInput{Camera: cam})
	if cmds := ind.Commands(cam); len(cmds) != 0 {
		t.Fatalf("expected zero commands for an instance outside the camera's cull mask, got %d", len(cmds))
	}
}

func TestIndirectCullPassResetsPerCameraRegionEachCall(t *testing.T) {
	views := ecs.NewTable[VoxelView]()
	world := ecs.NewWorld()
	g := solidGrid(2, 2, 2, 7)
	e := world.CreateEntity()
	views.Add(e, VoxelView{Grid: g, Transform: mathx.Identity(), CullMask: 1})

	d := NewDrawer(views, 4096, 4)
	d.NewFrame()
	d.PushMesh(e)

	ind := NewIndirect(d, 4, false)
	ind.BuildDrawData()

	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 10}, 1)
	cam.SetViewport(800, 600)

	ind.CullPass(CullPassInput{Camera: cam})
	first := len(ind.Commands(cam))

	ind.CullPass(CullPassInput{Camera: cam})
	second := len(ind.Commands(cam))

	if first != second {
		t.Fatalf("expected repeated CullPass calls for the same unchanged scene to write the same command count, got %d then %d", first, second)
	}
}
