package mathx

import "github.com/go-gl/mathgl/mgl32"

// cornerEps is added to the transform's scale, pushing each OBB corner
// slightly outward along the rotated half-extent axes so float rounding
// does not cull a box that touches the frustum. An axis whose half-extent
// is zero stays zero.
const cornerEps = 0.01

// OBB is an oriented bounding box stored as its eight world-space corners,
// in the canonical sign order the frustum test and debug drawing share:
// (-,-,-) (-,-,+) (-,+,-) (-,+,+) (+,-,-) (+,-,+) (+,+,-) (+,+,+).
type OBB struct {
	Corners [8]mgl32.Vec3
}

var cornerSigns = [8]mgl32.Vec3{
	{-1, -1, -1}, {-1, -1, 1}, {-1, 1, -1}, {-1, 1, 1},
	{1, -1, -1}, {1, -1, 1}, {1, 1, -1}, {1, 1, 1},
}

// BuildOBB rotates the three axis-aligned half-extent basis vectors by the
// transform's rotation, then for each of the eight sign combinations sets
// corner = rotated_basis . signs . (scale+eps) + position.
func BuildOBB(halfSize mgl32.Vec3, t Transform) OBB {
	basis := [3]mgl32.Vec3{
		t.Rotation.Rotate(mgl32.Vec3{halfSize.X(), 0, 0}),
		t.Rotation.Rotate(mgl32.Vec3{0, halfSize.Y(), 0}),
		t.Rotation.Rotate(mgl32.Vec3{0, 0, halfSize.Z()}),
	}

	scale := t.Scale + cornerEps

	var obb OBB
	for i, signs := range cornerSigns {
		c := basis[0].Mul(signs.X() * scale).
			Add(basis[1].Mul(signs.Y() * scale)).
			Add(basis[2].Mul(signs.Z() * scale)).
			Add(t.Position)
		obb.Corners[i] = c
	}
	return obb
}

// Center is the average of the two diagonally opposite corners.
func (o OBB) Center() mgl32.Vec3 {
	return o.Corners[0].Add(o.Corners[7]).Mul(0.5)
}
