// Package voxel implements the voxel grid container and the meshers that
// turn a grid's content into triangle data.
package voxel

import "fmt"

// Voxel is an 8-bit palette index. 0 means air.
type Voxel = uint8

// Air is the reserved empty voxel value.
const Air Voxel = 0

// Palette is a 256-entry RGBA colour table owned per grid. Colours are
// packed 0xAABBGGRR to match the little-endian layout a fragment shader
// reads as a plain uint.
type Palette [256]uint32

// Grid owns a contiguous block of W*H*D voxels in x-fastest order, a
// 256-entry palette, a content hash, and the memo fields the drawer uses to
// decide whether a cached mesh is still valid.
type Grid struct {
	W, H, D int

	voxels  []Voxel
	palette Palette
	hash    uint64

	// Drawer memo fields.
	LastHash    uint64
	FirstVertex uint32
	Offsets     [6]uint32 // per-face vertex counts, fixed face order
}

// NewGrid allocates a zero-initialized grid of the given dimensions. A real
// engine pulls this storage from a voxel allocator; tests
// and this implementation use a plain slice, which is the
// allocator's eventual backing store either way.
func NewGrid(w, h, d int) *Grid {
	if w <= 0 || h <= 0 || d <= 0 {
		panic(fmt.Sprintf("voxel: invalid grid dimensions %dx%dx%d", w, h, d))
	}
	return &Grid{
		W:      w,
		H:      h,
		D:      d,
		voxels: make([]Voxel, w*h*d),
	}
}

// Free returns the grid's storage to the caller. In the full engine this
// hands the slice back to the voxel allocator; here it simply releases the
// reference so an out-of-scope allocator can do so.
func (g *Grid) Free() {
	g.voxels = nil
}

func (g *Grid) index(x, y, z int) int {
	return x + y*g.W + z*g.W*g.H
}

// InBounds reports whether (x,y,z) addresses a real voxel.
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.W && y < g.H && z < g.D
}

// At is the unchecked reader: out-of-range coordinates are undefined
// behaviour in release builds.
// This Go port always bounds-checks internally (slices panic on bad index
// otherwise), but callers must not rely on any particular result for
// out-of-range input.
func (g *Grid) At(x, y, z int) Voxel {
	return g.voxels[g.index(x, y, z)]
}

// AtChecked is the bounds-checked reader the mesher uses at grid edges; it
// returns Air for out-of-range coordinates.
func (g *Grid) AtChecked(x, y, z int) Voxel {
	if !g.InBounds(x, y, z) {
		return Air
	}
	return g.At(x, y, z)
}

// Set writes the voxel and updates the grid's content hash by XOR-ing out
// the cell's old (coordinate, value) term and XOR-ing in the new one, so
// the hash depends on the cells' values and not on the order of Set
// calls. This is the only mutator that must keep the hash live.
func (g *Grid) Set(x, y, z int, v Voxel) {
	idx := g.index(x, y, z)
	old := g.voxels[idx]
	g.voxels[idx] = v
	g.hash ^= combineHash(0, x, y, z, old) ^ combineHash(0, x, y, z, v)
}

// Hash returns the grid's current content hash.
func (g *Grid) Hash() uint64 { return g.hash }

// Palette returns the grid's colour table.
func (g *Grid) Palette() *Palette { return &g.palette }

// SetPalette overwrites the whole 256-entry palette.
func (g *Grid) SetPalette(p Palette) { g.palette = p }

// Fill sets every voxel to v in one pass and recomputes the hash from
// scratch, matching the bulk-load contract.
func (g *Grid) Fill(v Voxel) {
	for i := range g.voxels {
		g.voxels[i] = v
	}
	g.rehash()
}

// LoadBulk copies palette + voxel data from an external decoder
// and recomputes the hash over the whole buffer. voxels must already be
// in the grid's own x-fastest, y, z order; the caller (the .vox loader) is
// responsible for the axis reorder.
func (g *Grid) LoadBulk(voxels []Voxel, palette Palette) {
	if len(voxels) != g.W*g.H*g.D {
		panic(fmt.Sprintf("voxel: LoadBulk size mismatch: got %d want %d", len(voxels), g.W*g.H*g.D))
	}
	copy(g.voxels, voxels)
	g.palette = palette
	g.rehash()
}

func (g *Grid) rehash() {
	g.hash = murmurBytes(seedHash, g.voxels)
}

// Bytes returns the raw voxel backing slice. Used by the persisted-scene
// writer and by tests; callers must not retain it across a Free.
func (g *Grid) Bytes() []Voxel { return g.voxels }
