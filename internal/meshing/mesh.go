package meshing

// TextureIndexMapper resolves a voxel material id to indices into an
// external array texture, for the top, sides and bottom of the voxel in
// that order. Supplied by the rendering collaborator.
type TextureIndexMapper func(material uint8) [3]uint32

// Mesh holds the vertex buffers for one chunk. Positions are
// chunk-local: the renderer offsets the mesh by the chunk origin at
// placement time, so identical content can be instanced across chunks.
type Mesh struct {
	// Positions holds 3 floats per vertex.
	Positions []float32
	// Normals holds 3 floats per vertex.
	Normals []float32
	// UVs holds 2 floats per vertex, face-local.
	UVs []float32
	// Colors holds 4 floats per vertex and carries the baked ambient
	// occlusion as a grayscale tint.
	Colors []float32
	// TextureIndices holds 3 values per vertex: array-texture indices
	// for the top, sides and bottom of the voxel.
	TextureIndices []uint32
	// Indices holds 6 values per quad (two triangles).
	Indices []uint32
}

func (m *Mesh) VertexCount() int { return len(m.Positions) / 3 }

// FaceCount returns the number of emitted quads.
func (m *Mesh) FaceCount() int { return len(m.Indices) / 6 }

func (m *Mesh) addVertex(pos [3]float32, normal [3]float32, uv [2]float32, ao float32, tex [3]uint32) {
	m.Positions = append(m.Positions, pos[0], pos[1], pos[2])
	m.Normals = append(m.Normals, normal[0], normal[1], normal[2])
	m.UVs = append(m.UVs, uv[0], uv[1])
	m.Colors = append(m.Colors, ao, ao, ao, 1)
	m.TextureIndices = append(m.TextureIndices, tex[0], tex[1], tex[2])
}

// addQuad appends one face: four vertices and two triangles. Vertices
// must be given in winding order so that v1-v0 × v3-v0 points along the
// face normal.
func (m *Mesh) addQuad(verts [4][3]float32, normal [3]float32, aos [4]float32, tex [3]uint32) {
	base := uint32(m.VertexCount())
	uvs := [4][2]float32{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	for i := 0; i < 4; i++ {
		m.addVertex(verts[i], normal, uvs[i], aos[i], tex)
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}
