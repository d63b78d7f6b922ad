package voxel

// GreedyMesh sweeps the grid's six faces and merges coplanar same-value,
// air-adjacent voxels into the fewest possible rectangles. It is the
// production mesher: the drawer caches its output per grid and only
// re-runs it when the grid's content hash changes.
func GreedyMesh(g *Grid) *Mesh {
	mesh := &Mesh{}
	invSize, halfExtent := invSizeAndHalfExtent(g)
	dims := dims3(g)

	for face := Face(0); face < numFaces; face++ {
		d, sign := axisOf(face)
		u, v := crossAxes(d)
		start := len(mesh.Vertices)

		layers := dims[d]
		uLen, vLen := dims[u], dims[v]

		visited := make([][]bool, uLen)
		for i := range visited {
			visited[i] = make([]bool, vLen)
		}

		for l := 0; l < layers; l++ {
			for i := range visited {
				for j := range visited[i] {
					visited[i][j] = false
				}
			}

			apos := l
			if sign > 0 {
				apos = l + 1
			}

			for i := 0; i < uLen; i++ {
				for j := 0; j < vLen; j++ {
					if visited[i][j] {
						continue
					}
					c := coordAt(d, u, v, l, i, j)
					val := g.At(c[0], c[1], c[2])
					if val == Air {
						continue
					}
					if !faceVisible(g, d, u, v, sign, l, i, j) {
						continue
					}

					iMax := i + 1
					for iMax < uLen && !visited[iMax][j] && sameVisibleVoxel(g, d, u, v, sign, l, iMax, j, val) {
						iMax++
					}

					// Grow jMax one row at a time. A later row need not match
					// all the way out to iMax: the rectangle's width is
					// clamped to however far the match extends from i, so a
					// row that falls short still joins the merge instead of
					// stopping it outright. Growth only stops once a row
					// fails to match even at column i itself.
					jMax := j + 1
					for jMax < vLen {
						rowIMax := i
						for rowIMax < iMax && !visited[rowIMax][jMax] && sameVisibleVoxel(g, d, u, v, sign, l, rowIMax, jMax, val) {
							rowIMax++
						}
						if rowIMax == i {
							break
						}
						iMax = rowIMax
						jMax++
					}

					for ii := i; ii < iMax; ii++ {
						for jj := j; jj < jMax; jj++ {
							visited[ii][jj] = true
						}
					}

					emitQuad(mesh, g, d, sign, u, v, apos, i, iMax, j, jMax, val, invSize, halfExtent)
				}
			}
		}

		mesh.Offsets[face] = uint32(len(mesh.Vertices) - start)
	}

	if max := maxVerticesFor(g); len(mesh.Vertices) > max {
		panic("voxel: greedy mesher exceeded the 3*W*H*D vertex upper bound")
	}
	return mesh
}

// faceVisible reports whether the voxel at (l,i,j) on axis d has an air
// neighbour in direction sign — the condition that makes its face visible.
func faceVisible(g *Grid, d, u, v, sign, l, i, j int) bool {
	c := coordAt(d, u, v, l, i, j)
	n := c
	n[d] += sign
	return g.AtChecked(n[0], n[1], n[2]) == Air
}

// sameVisibleVoxel reports whether (l,i,j) holds val and is itself visible,
// the joint condition the rectangle-growth loop advances on.
func sameVisibleVoxel(g *Grid, d, u, v, sign, l, i, j int, val Voxel) bool {
	c := coordAt(d, u, v, l, i, j)
	if g.At(c[0], c[1], c[2]) != val {
		return false
	}
	return faceVisible(g, d, u, v, sign, l, i, j)
}
