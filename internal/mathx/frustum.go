package mathx

import "github.com/go-gl/mathgl/mgl32"

// TestFrustumOBB projects all 8 OBB corners through projView and runs the
// 5-half-space rejection test: left, right, bottom, top,
// near. There is no far plane (the projection is infinite-far); the near
// test is `z >= 0` because depth is reversed. An early accept fires as soon
// as any single corner lands strictly inside the clip region — the same
// early-out original_source/src/lida_algebra.c's TestFrustumOBB takes
// before falling back to the per-plane rejection.
func TestFrustumOBB(projView mgl32.Mat4, obb OBB) bool {
	var points [8]mgl32.Vec4
	for i, c := range obb.Corners {
		points[i] = projView.Mul4x1(mgl32.Vec4{c.X(), c.Y(), c.Z(), 1})
		if -points[i].W() <= points[i].X() && points[i].X() <= points[i].W() &&
			-points[i].W() <= points[i].Y() && points[i].Y() <= points[i].W() &&
			points[i].Z() >= 0 {
			return true
		}
	}

	allOutside := func(test func(p mgl32.Vec4) bool) bool {
		for _, p := range points {
			if !test(p) {
				return false
			}
		}
		return true
	}

	if allOutside(func(p mgl32.Vec4) bool { return p.X() > p.W() }) {
		return false
	}
	if allOutside(func(p mgl32.Vec4) bool { return p.X() < -p.W() }) {
		return false
	}
	if allOutside(func(p mgl32.Vec4) bool { return p.Y() > p.W() }) {
		return false
	}
	if allOutside(func(p mgl32.Vec4) bool { return p.Y() < -p.W() }) {
		return false
	}
	if allOutside(func(p mgl32.Vec4) bool { return p.Z() < 0 }) {
		return false
	}
	return true
}
