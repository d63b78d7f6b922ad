package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Default camera tunables.
const (
	DefaultMoveSpeed   = 10.0
	DefaultRotateSpeed = 0.1
	DefaultYaw         = -90.0
	DefaultPitch       = 0.0
	DefaultFOV         = 45.0
	MaxPitch           = 89.0
	MinPitch           = -89.0
	DefaultNear        = 0.1
)

// CameraType distinguishes the two projection kinds a camera can carry.
type CameraType int

const (
	Perspective CameraType = iota
	Orthographic
)

// Camera holds the projection/view matrices (lazily recomputed), their
// composite, position, front/up vectors, Euler rotation, movement/rotation
// speed, a cull-mask bit, and a projection type. At most 8 active cameras
// may contribute to culling in one frame, since CullMask is a
// single-bit-per-camera field in a 32-bit word shared by the cull shaders.
type Camera struct {
	position mgl32.Vec3
	worldUp  mgl32.Vec3
	front    mgl32.Vec3
	up       mgl32.Vec3
	right    mgl32.Vec3

	yaw, pitch float32

	kind        CameraType
	fov         float32 // perspective only
	orthoHalfH  float32 // orthographic only; half-height, aspect scales width
	orthoFar    float32 // orthographic only; finite far plane
	near        float32
	moveSpeed   float32
	rotateSpeed float32

	width, height int

	// CullMask's bit index identifies this camera's slot when the cull
	// compute shaders write per-camera output buffers. It is written during
	// rendering but read during culling: a camera whose cull pass runs
	// before its render pass in the same frame consumes the *previous*
	// frame's mask.
	CullMask uint32

	projDirty bool
	viewDirty bool
	projection mgl32.Mat4
	view       mgl32.Mat4
}

// NewPerspectiveCamera creates a camera using the infinite-far,
// reversed-depth projection this renderer's depth test assumes throughout.
func NewPerspectiveCamera(position mgl32.Vec3, cullMaskBit uint32) *Camera {
	c := &Camera{
		position:    position,
		worldUp:     mgl32.Vec3{0, 1, 0},
		yaw:         DefaultYaw,
		pitch:       DefaultPitch,
		kind:        Perspective,
		fov:         DefaultFOV,
		near:        DefaultNear,
		moveSpeed:   DefaultMoveSpeed,
		rotateSpeed: DefaultRotateSpeed,
		width:       800,
		height:      600,
		CullMask:    cullMaskBit,
	}
	c.updateVectors()
	c.projDirty = true
	return c
}

// NewOrthographicCamera creates a camera using a reversed-depth parallel
// projection with finite near/far (infinite far has no meaning for a
// parallel projection).
func NewOrthographicCamera(position mgl32.Vec3, halfHeight, near, far float32, cullMaskBit uint32) *Camera {
	c := &Camera{
		position:    position,
		worldUp:     mgl32.Vec3{0, 1, 0},
		yaw:         DefaultYaw,
		pitch:       DefaultPitch,
		kind:        Orthographic,
		orthoHalfH:  halfHeight,
		near:        near,
		moveSpeed:   DefaultMoveSpeed,
		rotateSpeed: DefaultRotateSpeed,
		width:       800,
		height:      600,
		CullMask:    cullMaskBit,
	}
	c.orthoFar = far
	c.updateVectors()
	c.projDirty = true
	return c
}

func (c *Camera) updateVectors() {
	yawRad := mgl32.DegToRad(c.yaw)
	pitchRad := mgl32.DegToRad(c.pitch)
	front := mgl32.Vec3{
		float32(math.Cos(float64(yawRad)) * math.Cos(float64(pitchRad))),
		float32(math.Sin(float64(pitchRad))),
		float32(math.Sin(float64(yawRad)) * math.Cos(float64(pitchRad))),
	}
	c.front = front.Normalize()
	c.right = c.front.Cross(c.worldUp).Normalize()
	c.up = c.right.Cross(c.front).Normalize()
	c.viewDirty = true
}

// Move translates the camera by a world-space offset.
func (c *Camera) Move(delta mgl32.Vec3) {
	c.position = c.position.Add(delta)
	c.viewDirty = true
}

// Rotate adjusts yaw/pitch by the given degrees, clamping pitch to avoid
// gimbal lock, and recomputes the derived basis vectors.
func (c *Camera) Rotate(deltaYaw, deltaPitch float32) {
	c.yaw += deltaYaw * c.rotateSpeed
	c.pitch += deltaPitch * c.rotateSpeed
	if c.pitch > MaxPitch {
		c.pitch = MaxPitch
	}
	if c.pitch < MinPitch {
		c.pitch = MinPitch
	}
	c.updateVectors()
}

// SetViewport marks the projection dirty so it recomputes with the new
// aspect ratio on next access.
func (c *Camera) SetViewport(width, height int) {
	c.width, c.height = width, height
	c.projDirty = true
}

func (c *Camera) Position() mgl32.Vec3 { return c.position }
func (c *Camera) Front() mgl32.Vec3    { return c.front }
func (c *Camera) Up() mgl32.Vec3       { return c.up }
func (c *Camera) Type() CameraType     { return c.kind }

// ViewMatrix lazily recomputes the look-at matrix.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	if c.viewDirty {
		c.view = mgl32.LookAtV(c.position, c.position.Add(c.front), c.up)
		c.viewDirty = false
	}
	return c.view
}

// ProjectionMatrix lazily recomputes the projection matrix appropriate for
// the camera's type.
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.projDirty {
		aspect := float32(c.width) / float32(c.height)
		if c.kind == Perspective {
			c.projection = infiniteReversedPerspective(mgl32.DegToRad(c.fov), aspect, c.near)
		} else {
			c.projection = reversedOrtho(c.orthoHalfH*aspect, c.orthoHalfH, c.near, c.orthoFar)
		}
		c.projDirty = false
	}
	return c.projection
}

// ProjView returns the composite projection*view matrix the cull shaders
// and the frustum test consume.
func (c *Camera) ProjView() mgl32.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

// infiniteReversedPerspective builds the "infinite far plane, reversed
// depth" projection: near maps to clip-z=1, and the far
// plane recedes to infinity mapping to clip-z=0, so z >= 0 is always true
// and the near test alone determines the near-plane rejection. Derivation:
// the w component carries -z_view, and the (row2,col3) entry alone (no z
// term) yields z_ndc = near / -z_view after the perspective divide.
func infiniteReversedPerspective(fovy, aspect, near float32) mgl32.Mat4 {
	f := float32(1.0 / math.Tan(float64(fovy)/2.0))
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, 0, -1,
		0, 0, near, 0,
	}
}

// reversedOrtho builds a reversed-depth orthographic projection with finite
// near/far bounds, mapping near->1 and far->0.
func reversedOrtho(halfW, halfH, near, far float32) mgl32.Mat4 {
	return mgl32.Mat4{
		1 / halfW, 0, 0, 0,
		0, 1 / halfH, 0, 0,
		0, 0, 1 / (near - far), 0,
		0, 0, far / (near - far), 1,
	}
}
