package cull

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
)

// OcclusionParams bundles one instance/camera pair's occlusion-test
// inputs, mirroring culling.h's occlussion_cull arguments.
type OcclusionParams struct {
	HalfSize       [3]float32
	Transform      mathx.Transform
	CameraPosition mgl32.Vec3
	ProjView       mgl32.Mat4
	Pyramid        *DepthPyramid
}

// OcclusionCull reports whether the instance is fully hidden behind
// already-recorded depth at its projected screen rectangle, mirroring
// culling.h's occlussion_cull. An instance
// whose bounding sphere contains the camera position is never culled —
// that guard also avoids testing degenerate (behind-camera) projections.
// Reversed depth: a sampled depth *greater* than the instance's nearest
// projected depth means something closer is already recorded, so the
// instance is occluded.
func OcclusionCull(p OcclusionParams) bool {
	radius := p.Transform.Scale * p.Transform.Scale * maxPairSquareSum(p.HalfSize)
	diff := p.Transform.Position.Sub(p.CameraPosition)
	dist := diff.Dot(diff)
	if dist <= radius {
		return false
	}

	obb := mathx.BuildOBB(mgl32.Vec3{p.HalfSize[0], p.HalfSize[1], p.HalfSize[2]}, p.Transform)

	aabbMin := [2]float32{1, 1}
	aabbMax := [2]float32{-1, -1}
	var maxDepth float32

	for _, corner := range obb.Corners {
		clip := p.ProjView.Mul4x1(mgl32.Vec4{corner.X(), corner.Y(), corner.Z(), 1})
		ndcX := clip.X() / clip.W()
		ndcY := clip.Y() / clip.W()
		ndcZ := clip.Z() / clip.W()
		if ndcX < aabbMin[0] {
			aabbMin[0] = ndcX
		}
		if ndcY < aabbMin[1] {
			aabbMin[1] = ndcY
		}
		if ndcX > aabbMax[0] {
			aabbMax[0] = ndcX
		}
		if ndcY > aabbMax[1] {
			aabbMax[1] = ndcY
		}
		if ndcZ > maxDepth {
			maxDepth = ndcZ
		}
	}

	uvMin := [2]float32{aabbMin[0]*0.5 + 0.5, aabbMin[1]*0.5 + 0.5}
	uvMax := [2]float32{aabbMax[0]*0.5 + 0.5, aabbMax[1]*0.5 + 0.5}

	pw, ph := p.Pyramid.Size(0)
	mip := SelectMip(uvMin, uvMax, pw, ph)

	depth := min4(
		p.Pyramid.Sample(mip, uvMin[0], uvMin[1]),
		p.Pyramid.Sample(mip, uvMin[0], uvMax[1]),
		p.Pyramid.Sample(mip, uvMax[0], uvMax[1]),
		p.Pyramid.Sample(mip, uvMax[0], uvMin[1]),
	)

	return depth > maxDepth
}

func maxPairSquareSum(h [3]float32) float32 {
	xy := h[0]*h[0] + h[1]*h[1]
	xz := h[0]*h[0] + h[2]*h[2]
	zy := h[2]*h[2] + h[1]*h[1]
	m := xy
	if xz > m {
		m = xz
	}
	if zy > m {
		m = zy
	}
	return m
}

func min4(a, b, c, d float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if d < m {
		m = d
	}
	return m
}
