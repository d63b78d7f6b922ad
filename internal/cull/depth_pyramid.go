// Package cull implements the CPU-mirrored oracles for the indirect
// backend's cull_pass compute dispatch: frustum
// testing, the depth-pyramid mip-select formula, and hierarchical-Z
// occlusion testing. The real engine runs these tests on the GPU (the
// embedded compute shader in cull_pass.go); this package exists so the
// same decisions can be made, and tested, on the CPU — by the indirect
// backend's CPU CullPass (internal/drawer), and by this package's own unit
// tests.
package cull

import "math"

// DepthPyramid is a CPU-side mip chain mirroring the GPU hierarchical-Z
// texture occlussion_cull samples (culling.h): mip 0 is full resolution,
// each further mip halves both dimensions (rounding up), holding the
// *minimum* depth of its 2x2 footprint in the finer mip (reversed depth:
// min = farthest, so a coarse texel never claims more occlusion than any
// of the texels it covers).
type DepthPyramid struct {
	mips          [][]float32
	widths, heights []int
}

// NewDepthPyramid builds every mip level from a full-resolution depth
// buffer (row-major, reversed depth: 1.0 = near, 0.0 = far/empty).
func NewDepthPyramid(depth []float32, width, height int) *DepthPyramid {
	p := &DepthPyramid{}
	p.mips = append(p.mips, append([]float32(nil), depth...))
	p.widths = append(p.widths, width)
	p.heights = append(p.heights, height)

	w, h := width, height
	for w > 1 || h > 1 {
		nw, nh := (w+1)/2, (h+1)/2
		cur := p.mips[len(p.mips)-1]
		next := make([]float32, nw*nh)
		for y := 0; y < nh; y++ {
			for x := 0; x < nw; x++ {
				next[y*nw+x] = minFootprint(cur, w, h, x*2, y*2)
			}
		}
		p.mips = append(p.mips, next)
		p.widths = append(p.widths, nw)
		p.heights = append(p.heights, nh)
		w, h = nw, nh
	}
	return p
}

func minFootprint(mip []float32, w, h, x0, y0 int) float32 {
	best := float32(math.Inf(1))
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			x, y := x0+dx, y0+dy
			if x >= w || y >= h {
				continue
			}
			v := mip[y*w+x]
			if v < best {
				best = v
			}
		}
	}
	return best
}

// NumMips is the number of levels NewDepthPyramid built.
func (p *DepthPyramid) NumMips() int { return len(p.mips) }

// Size returns level's dimensions; level 0 is full screen resolution.
func (p *DepthPyramid) Size(level int) (w, h int) { return p.widths[level], p.heights[level] }

// Sample reads the depth at normalized UV coordinates (0..1) at level,
// clamping to the level's edge.
func (p *DepthPyramid) Sample(level int, u, v float32) float32 {
	w, h := p.widths[level], p.heights[level]
	x := int(u * float32(w))
	y := int(v * float32(h))
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	return p.mips[level][y*w+x]
}

// SelectMip implements culling.h's mip-selection formula: the base level
// is `ceil(log2(max(rect_w_pixels, rect_h_pixels)))`, refined down to the
// next-finer level if the rectangle's footprint at that finer level
// touches at most 2 texels in both dimensions (so a small but nearby
// occluder doesn't get over-conservatively tested against a too-coarse
// mip). aabbMin/aabbMax are UV-space (0..1) bounds of the instance's
// projected rect; pyramidW/pyramidH are level-0 dimensions.
func SelectMip(aabbMin, aabbMax [2]float32, pyramidW, pyramidH int) int {
	width := (aabbMax[0] - aabbMin[0]) * float32(pyramidW)
	height := (aabbMax[1] - aabbMin[1]) * float32(pyramidH)
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= 0 {
		return 0
	}
	level := math.Ceil(math.Log2(float64(longest)))

	levelLower := level - 1
	if levelLower < 0 {
		levelLower = 0
	}
	scale := math.Exp2(-levelLower)
	ax := math.Floor(float64(aabbMin[0]) * scale * float64(pyramidW))
	ay := math.Floor(float64(aabbMin[1]) * scale * float64(pyramidH))
	bx := math.Ceil(float64(aabbMax[0]) * scale * float64(pyramidW))
	by := math.Ceil(float64(aabbMax[1]) * scale * float64(pyramidH))
	dimsX, dimsY := bx-ax, by-ay

	mip := level
	if dimsX <= 2 && dimsY <= 2 {
		mip = levelLower
	}

	maxLevel := 0
	if pyramidW > pyramidH {
		maxLevel = int(math.Ceil(math.Log2(float64(pyramidW))))
	} else {
		maxLevel = int(math.Ceil(math.Log2(float64(pyramidH))))
	}
	m := int(mip)
	if m < 0 {
		m = 0
	}
	if m > maxLevel {
		m = maxLevel
	}
	return m
}
