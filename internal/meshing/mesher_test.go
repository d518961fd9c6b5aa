package meshing

import (
	"testing"

	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

func uniformMapper(mat uint8) [3]uint32 {
	i := uint32(mat)
	return [3]uint32{i, i, i}
}

func TestLoneVoxelEmitsSixFaces(t *testing.T) {
	buf := voxel.NewBuffer(4)
	if err := buf.Set(1, 1, 1, voxel.Solid(2)); err != nil {
		t.Fatalf("set: %v", err)
	}

	mesh := BuildMesh(buf, uniformMapper)
	if got := mesh.FaceCount(); got != 6 {
		t.Fatalf("face count = %d, want 6", got)
	}
	if got := mesh.VertexCount(); got != 24 {
		t.Fatalf("vertex count = %d, want 24", got)
	}
	if got := len(mesh.Indices); got != 36 {
		t.Fatalf("index count = %d, want 36", got)
	}

	// Isolated voxel: nothing occludes, every vertex fully lit.
	for i := 0; i < len(mesh.Colors); i += 4 {
		if mesh.Colors[i] != 1.0 {
			t.Fatalf("vertex %d brightness = %v, want 1.0", i/4, mesh.Colors[i])
		}
	}
}

func TestSharedFacesAreCulled(t *testing.T) {
	buf := voxel.NewBuffer(4)
	if err := buf.Set(1, 1, 1, voxel.Solid(1)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := buf.Set(2, 1, 1, voxel.Solid(1)); err != nil {
		t.Fatalf("set: %v", err)
	}

	mesh := BuildMesh(buf, uniformMapper)
	// Two cubes sharing one face: 12 faces minus the 2 hidden ones.
	if got := mesh.FaceCount(); got != 10 {
		t.Fatalf("face count = %d, want 10", got)
	}
}

func TestSolidApronCullsBoundaryFaces(t *testing.T) {
	buf := voxel.NewBuffer(4)
	buf.Fill(func(voxel.Coord) voxel.Voxel { return voxel.Solid(1) })

	mesh := BuildMesh(buf, uniformMapper)
	if got := mesh.FaceCount(); got != 0 {
		t.Fatalf("fully enclosed chunk emitted %d faces", got)
	}
}

func TestUnsetApronCountsAsEmpty(t *testing.T) {
	size := 4
	buf := voxel.NewBuffer(size)
	// Solid interior, untouched apron: boundary faces must be emitted
	// so a chunk at the edge of the known world over-draws instead of
	// leaving holes.
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				if err := buf.Set(x, y, z, voxel.Solid(1)); err != nil {
					t.Fatalf("set: %v", err)
				}
			}
		}
	}

	mesh := BuildMesh(buf, uniformMapper)
	if got, want := mesh.FaceCount(), 6*size*size; got != want {
		t.Fatalf("face count = %d, want %d", got, want)
	}
}

func TestAmbientOcclusionDarkensCorners(t *testing.T) {
	buf := voxel.NewBuffer(4)
	// A floor tile with a block beside it: the floor's top face
	// vertices next to the block are occluded.
	if err := buf.Set(1, 1, 1, voxel.Solid(1)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := buf.Set(2, 2, 1, voxel.Solid(1)); err != nil {
		t.Fatalf("set: %v", err)
	}

	mesh := BuildMesh(buf, uniformMapper)
	darkened := 0
	lit := 0
	for i := 0; i < len(mesh.Colors); i += 4 {
		switch {
		case mesh.Colors[i] < 1.0:
			darkened++
		default:
			lit++
		}
	}
	if darkened == 0 {
		t.Fatalf("no vertex was darkened by the adjacent block")
	}
	if lit == 0 {
		t.Fatalf("every vertex darkened, kernel too aggressive")
	}
}

func TestTextureIndicesFollowMapper(t *testing.T) {
	buf := voxel.NewBuffer(2)
	if err := buf.Set(0, 0, 0, voxel.Solid(7)); err != nil {
		t.Fatalf("set: %v", err)
	}

	mapper := func(mat uint8) [3]uint32 {
		return [3]uint32{uint32(mat) * 10, uint32(mat) * 10 + 1, uint32(mat) * 10 + 2}
	}
	mesh := BuildMesh(buf, mapper)
	if mesh.VertexCount() == 0 {
		t.Fatalf("no vertices emitted")
	}
	for i := 0; i < len(mesh.TextureIndices); i += 3 {
		if mesh.TextureIndices[i] != 70 || mesh.TextureIndices[i+1] != 71 || mesh.TextureIndices[i+2] != 72 {
			t.Fatalf("vertex %d texture indices = %v", i/3, mesh.TextureIndices[i:i+3])
		}
	}
}

func TestQuadWindingMatchesNormal(t *testing.T) {
	buf := voxel.NewBuffer(2)
	if err := buf.Set(0, 0, 0, voxel.Solid(1)); err != nil {
		t.Fatalf("set: %v", err)
	}

	mesh := BuildMesh(buf, uniformMapper)
	for q := 0; q < mesh.FaceCount(); q++ {
		base := q * 4
		v0 := vertexAt(mesh, base)
		v1 := vertexAt(mesh, base+1)
		v3 := vertexAt(mesh, base+3)
		n := [3]float32{
			mesh.Normals[base*3], mesh.Normals[base*3+1], mesh.Normals[base*3+2],
		}
		e1 := sub(v1, v0)
		e2 := sub(v3, v0)
		cr := cross(e1, e2)
		if dot(cr, n) <= 0 {
			t.Fatalf("quad %d winding opposes its normal %v", q, n)
		}
	}
}

func vertexAt(m *Mesh, i int) [3]float32 {
	return [3]float32{m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2]}
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
