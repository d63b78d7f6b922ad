package cull

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
)

// FrustumCull reports whether obb is entirely outside camProjView's
// frustum: a thin re-export of mathx.TestFrustumOBB (already the exact
// corner/half-space algorithm
// this package's compute-shader counterpart runs), named here so
// cull_pass's step sequence (mask, frustum, occlusion, backface) reads as
// one pipeline instead of reaching into mathx mid-sequence.
func FrustumCull(camProjView mgl32.Mat4, obb mathx.OBB) bool {
	return !mathx.TestFrustumOBB(camProjView, obb)
}
