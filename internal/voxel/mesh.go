package voxel

// Face indexes the mesher's fixed face order: −X, +X, −Y, +Y, −Z, +Z.
type Face int

const (
	FaceNegX Face = iota
	FacePosX
	FaceNegY
	FacePosY
	FaceNegZ
	FacePosZ
	numFaces = 6
)

// Vertex is one mesher output vertex: a world-offset position, centred on
// the grid and scaled so the longest axis is unit length, and an unsigned
// colour sampled from the grid's palette.
type Vertex struct {
	Pos   [3]float32
	Color uint32
}

// Mesh is the vertex+index stream the greedy/naive meshers produce.
// Vertices are laid out face-contiguous, in Face order, so Offsets[f] gives
// the vertex count of face f directly.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Offsets  [numFaces]uint32
}

// maxVerticesFor is the upper bound a mesh must never exceed: 3*W*H*D.
func maxVerticesFor(g *Grid) int { return 3 * g.W * g.H * g.D }

// axisOf returns the axis index (0=x,1=y,2=z) a Face sweeps along, and its
// sign (-1 or +1).
func axisOf(f Face) (axis int, sign int) {
	return int(f) / 2, map[bool]int{true: 1, false: -1}[int(f)%2 == 1]
}

// crossAxes returns the two axes orthogonal to d, in the cyclic order that
// keeps (d, u, v) a right-handed basis: axisVec(d) x axisVec(u) = axisVec(v).
func crossAxes(d int) (u, v int) {
	return (d + 1) % 3, (d + 2) % 3
}

func dims3(g *Grid) [3]int { return [3]int{g.W, g.H, g.D} }

// coordAt builds the (x,y,z) grid coordinate for a face sweep: the layer
// coordinate `apos` goes on axis d, and (i,j) go on axes u,v.
func coordAt(d, u, v, apos, i, j int) [3]int {
	var c [3]int
	c[d] = apos
	c[u] = i
	c[v] = j
	return c
}

// vertexPos converts a raw grid-space coordinate to the centred,
// unit-scaled world-offset position the mesher emits.
func vertexPos(g *Grid, raw [3]int, invSize float32, halfExtent [3]float32) [3]float32 {
	return [3]float32{
		(float32(raw[0]) - halfExtent[0]) * invSize,
		(float32(raw[1]) - halfExtent[1]) * invSize,
		(float32(raw[2]) - halfExtent[2]) * invSize,
	}
}

// invSizeAndHalfExtent returns the mesher's shared scale/centring
// parameters for a grid: the same invSize and halfExtent also feed
// HalfSize's half_size = halfExtent*invSize for OBB construction.
func invSizeAndHalfExtent(g *Grid) (invSize float32, halfExtent [3]float32) {
	longest := g.W
	if g.H > longest {
		longest = g.H
	}
	if g.D > longest {
		longest = g.D
	}
	invSize = 1.0 / float32(longest)
	halfExtent = [3]float32{float32(g.W) / 2, float32(g.H) / 2, float32(g.D) / 2}
	return
}

// HalfSize returns the grid's half-extent in world-offset units
// (half_size = halfExtent*invSize, used to build a per-instance OBB).
func HalfSize(g *Grid) [3]float32 {
	invSize, half := invSizeAndHalfExtent(g)
	return [3]float32{half[0] * invSize, half[1] * invSize, half[2] * invSize}
}

// emitQuad appends one quad's 4 vertices (ordered so winding matches the
// face's outward normal) and its 6 local indices to mesh.
func emitQuad(mesh *Mesh, g *Grid, d, sign, u, v, apos, i0, i1, j0, j1 int, val Voxel, invSize float32, halfExtent [3]float32) {
	color := g.palette[val]

	raw00 := coordAt(d, u, v, apos, i0, j0)
	raw10 := coordAt(d, u, v, apos, i1, j0)
	raw11 := coordAt(d, u, v, apos, i1, j1)
	raw01 := coordAt(d, u, v, apos, i0, j1)

	p00 := vertexPos(g, raw00, invSize, halfExtent)
	p10 := vertexPos(g, raw10, invSize, halfExtent)
	p11 := vertexPos(g, raw11, invSize, halfExtent)
	p01 := vertexPos(g, raw01, invSize, halfExtent)

	base := uint32(len(mesh.Vertices))

	var quad [4][3]float32
	if sign > 0 {
		quad = [4][3]float32{p00, p10, p11, p01}
	} else {
		quad = [4][3]float32{p00, p01, p11, p10}
	}
	for _, p := range quad {
		mesh.Vertices = append(mesh.Vertices, Vertex{Pos: p, Color: color})
	}
	mesh.Indices = append(mesh.Indices,
		base+0, base+1, base+2,
		base+2, base+3, base+0,
	)
}
