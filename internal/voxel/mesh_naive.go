package voxel

// NaiveMesh emits one quad per exposed voxel face with no merging: a
// diagnostic mesher kept around to cross-check the greedy mesher's vertex
// counts and to bisect mesher bugs.
func NaiveMesh(g *Grid) *Mesh {
	mesh := &Mesh{}
	invSize, halfExtent := invSizeAndHalfExtent(g)
	dims := dims3(g)

	for face := Face(0); face < numFaces; face++ {
		d, sign := axisOf(face)
		u, v := crossAxes(d)
		start := len(mesh.Vertices)

		for l := 0; l < dims[d]; l++ {
			apos := l
			if sign > 0 {
				apos = l + 1
			}
			for i := 0; i < dims[u]; i++ {
				for j := 0; j < dims[v]; j++ {
					c := coordAt(d, u, v, l, i, j)
					val := g.At(c[0], c[1], c[2])
					if val == Air {
						continue
					}
					if !faceVisible(g, d, u, v, sign, l, i, j) {
						continue
					}
					emitQuad(mesh, g, d, sign, u, v, apos, i, i+1, j, j+1, val, invSize, halfExtent)
				}
			}
		}

		mesh.Offsets[face] = uint32(len(mesh.Vertices) - start)
	}

	if max := maxVerticesFor(g); len(mesh.Vertices) > max {
		panic("voxel: naive mesher exceeded the 3*W*H*D vertex upper bound")
	}
	return mesh
}
