// Package mathx implements the transform, OBB, frustum-test, and camera
// math the voxel drawer and GPU cull pass share.
package mathx

import "github.com/go-gl/mathgl/mgl32"

// Transform is a per-entity position/rotation/uniform-scale triple.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    float32
}

// Identity returns a Transform with no rotation, no translation, unit
// scale.
func Identity() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: 1}
}

// Matrix builds the 4x4 model matrix: scale, then rotate, then translate.
func (t Transform) Matrix() mgl32.Mat4 {
	m := t.Rotation.Mat4()
	m = m.Mul4(mgl32.Scale3D(t.Scale, t.Scale, t.Scale))
	m[12] = t.Position.X()
	m[13] = t.Position.Y()
	m[14] = t.Position.Z()
	return m
}
