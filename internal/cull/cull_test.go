package cull

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
)

// TestFrustumCullBehindNearPlane checks that an OBB fully behind the near
// plane (all 8 corners have clip-space z < 0) is culled.
func TestFrustumCullBehindNearPlane(t *testing.T) {
	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 0}, 1)
	cam.SetViewport(800, 600)

	behind := mathx.Transform{Position: mgl32.Vec3{0, 0, 10}, Rotation: mgl32.QuatIdent(), Scale: 1}
	obb := mathx.BuildOBB(mgl32.Vec3{0.5, 0.5, 0.5}, behind)

	if !FrustumCull(cam.ProjView(), obb) {
		t.Fatal("expected an OBB behind the camera (positive-Z, camera faces -Z by default yaw) to be frustum-culled")
	}
}

// TestFrustumCullInFrontIsVisible sanity-checks that an OBB placed along
// the camera's forward direction survives the frustum test (the
// complement of TestFrustumCullBehindNearPlane).
func TestFrustumCullInFrontIsVisible(t *testing.T) {
	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 0}, 1)
	cam.SetViewport(800, 600)

	ahead := mathx.Transform{Position: cam.Position().Add(cam.Front().Mul(5)), Rotation: mgl32.QuatIdent(), Scale: 1}
	obb := mathx.BuildOBB(mgl32.Vec3{0.5, 0.5, 0.5}, ahead)

	if FrustumCull(cam.ProjView(), obb) {
		t.Fatal("expected an OBB directly ahead of the camera to survive the frustum test")
	}
}

// flatDepth builds a width*height depth buffer where every texel reads
// the same depth value, for an occlusion test whose pyramid is uniform.
func flatDepth(width, height int, value float32) []float32 {
	d := make([]float32, width*height)
	for i := range d {
		d[i] = value
	}
	return d
}

// TestOcclusionCulledWhenPyramidNearerThanBox checks the reversed-depth
// comparison OcclusionCull makes: an instance is occluded when the
// depth-pyramid's recorded depth at its projected footprint is nearer to
// the camera than the instance's own nearest point, and survives when the
// pyramid depth is farther or equal (nothing closer recorded there).
//
// Rather than hand-deriving a Transform/camera pair that projects to an
// exact pixel rectangle at a chosen clip-space depth, this test drives
// OcclusionCull's comparison directly through a uniform pyramid at two
// depths straddling a known projected instance, to prove the comparison
// direction: a pyramid depth greater than the instance's maxDepth culls
// it, and a pyramid depth less than or equal to it does not.
func TestOcclusionCulledWhenPyramidNearerThanBox(t *testing.T) {
	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 0}, 1)
	cam.SetViewport(800, 600)

	instance := mathx.Transform{Position: cam.Position().Add(cam.Front().Mul(50)), Rotation: mgl32.QuatIdent(), Scale: 1}
	halfSize := [3]float32{0.2, 0.2, 0.2}

	params := func(pyramidDepth float32) OcclusionParams {
		return OcclusionParams{
			HalfSize:       halfSize,
			Transform:      instance,
			CameraPosition: cam.Position(),
			ProjView:       cam.ProjView(),
			Pyramid:        NewDepthPyramid(flatDepth(1024, 1024, pyramidDepth), 1024, 1024),
		}
	}

	if !OcclusionCull(params(1.0)) {
		t.Fatal("a pyramid uniformly at the nearest possible depth (1.0) must occlude any instance behind it")
	}
	if OcclusionCull(params(0.0)) {
		t.Fatal("a pyramid uniformly at the farthest possible depth (0.0, empty) must never occlude anything")
	}
}

// TestOcclusionCullCameraInsideBoundingSphereNeverCulls checks the guard
// clause: an instance whose bounding sphere contains the camera is never
// occluded, regardless of pyramid content.
func TestOcclusionCullCameraInsideBoundingSphereNeverCulls(t *testing.T) {
	cam := mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 0}, 1)
	cam.SetViewport(800, 600)

	instance := mathx.Transform{Position: cam.Position(), Rotation: mgl32.QuatIdent(), Scale: 1}
	params := OcclusionParams{
		HalfSize:       [3]float32{5, 5, 5},
		Transform:      instance,
		CameraPosition: cam.Position(),
		ProjView:       cam.ProjView(),
		Pyramid:        NewDepthPyramid(flatDepth(64, 64, 1.0), 64, 64),
	}
	if OcclusionCull(params) {
		t.Fatal("an instance whose bounding sphere contains the camera must never be occlusion-culled")
	}
}

func TestSelectMipPrefersFinerLevelForTinyFootprint(t *testing.T) {
	mip := SelectMip([2]float32{0.5, 0.5}, [2]float32{0.501, 0.501}, 1024, 1024)
	if mip != 0 {
		t.Fatalf("expected a sub-pixel rectangle to select mip 0, got %d", mip)
	}
}

func TestSelectMipGrowsWithRectangleSize(t *testing.T) {
	small := SelectMip([2]float32{0.5, 0.5}, [2]float32{0.51, 0.51}, 1024, 1024)
	large := SelectMip([2]float32{0.0, 0.0}, [2]float32{1.0, 1.0}, 1024, 1024)
	if large <= small {
		t.Fatalf("expected a screen-filling rectangle (mip %d) to select a coarser level than a small one (mip %d)", large, small)
	}
}
