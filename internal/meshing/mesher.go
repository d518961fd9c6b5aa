package meshing

import (
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// faceGeometry describes one of the six quad orientations. The quad
// spans origin, origin+e1, origin+e1+e2, origin+e2 with e1 × e2 equal to
// the face normal, so the winding is consistent for all faces.
type faceGeometry struct {
	face   voxel.Face
	normal voxel.Coord
	origin voxel.Coord
	e1     voxel.Coord
	e2     voxel.Coord
}

var faceTable = [6]faceGeometry{
	{voxel.FaceTop, voxel.Coord{Y: 1}, voxel.Coord{Y: 1}, voxel.Coord{Z: 1}, voxel.Coord{X: 1}},
	{voxel.FaceBottom, voxel.Coord{Y: -1}, voxel.Coord{}, voxel.Coord{X: 1}, voxel.Coord{Z: 1}},
	{voxel.FaceRight, voxel.Coord{X: 1}, voxel.Coord{X: 1}, voxel.Coord{Y: 1}, voxel.Coord{Z: 1}},
	{voxel.FaceLeft, voxel.Coord{X: -1}, voxel.Coord{}, voxel.Coord{Z: 1}, voxel.Coord{Y: 1}},
	{voxel.FaceForward, voxel.Coord{Z: 1}, voxel.Coord{Z: 1}, voxel.Coord{X: 1}, voxel.Coord{Y: 1}},
	{voxel.FaceBack, voxel.Coord{Z: -1}, voxel.Coord{}, voxel.Coord{Y: 1}, voxel.Coord{X: 1}},
}

// BuildMesh converts a voxel buffer into a renderable mesh using simple
// per-voxel face culling. A face is emitted when the adjacent voxel is
// not solid. Adjacency at chunk boundaries is resolved against the
// buffer's apron, which was sampled through the lookup layer when the
// buffer was generated; an Unset apron voxel counts as empty, so faces
// at the edge of the known world are emitted rather than dropped.
func BuildMesh(buf *voxel.Buffer, mapper TextureIndexMapper) *Mesh {
	mesh := &Mesh{}
	size := buf.Size()

	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v := buf.At(x, y, z)
				if !v.IsSolid() {
					continue
				}
				tex := mapper(v.Material)
				for _, fg := range faceTable {
					n := fg.normal
					if buf.At(x+n.X, y+n.Y, z+n.Z).IsSolid() {
						continue
					}
					emitFace(mesh, buf, voxel.Coord{X: x, Y: y, Z: z}, fg, tex)
				}
			}
		}
	}
	return mesh
}

// aoLevels maps the occlusion kernel output to vertex brightness. More
// occluding neighbors means a darker vertex.
var aoLevels = [4]float32{0.1, 0.3, 0.5, 1.0}

func emitFace(mesh *Mesh, buf *voxel.Buffer, p voxel.Coord, fg faceGeometry, tex [3]uint32) {
	corner := func(c voxel.Coord) [3]float32 {
		return [3]float32{float32(c.X), float32(c.Y), float32(c.Z)}
	}

	v0 := p.Add(fg.origin)
	v1 := v0.Add(fg.e1)
	v2 := v1.Add(fg.e2)
	v3 := v0.Add(fg.e2)

	// The cell on the open side of the face; occlusion is produced by
	// its edge and corner neighbors along the quad's tangent axes.
	open := p.Add(fg.normal)
	aoAt := func(s1, s2 int) float32 {
		side1 := buf.At(open.X+fg.e1.X*s1, open.Y+fg.e1.Y*s1, open.Z+fg.e1.Z*s1).IsSolid()
		side2 := buf.At(open.X+fg.e2.X*s2, open.Y+fg.e2.Y*s2, open.Z+fg.e2.Z*s2).IsSolid()
		diag := buf.At(open.X+fg.e1.X*s1+fg.e2.X*s2, open.Y+fg.e1.Y*s1+fg.e2.Y*s2, open.Z+fg.e1.Z*s1+fg.e2.Z*s2).IsSolid()
		return aoLevels[aoValue(side1, diag, side2)]
	}

	aos := [4]float32{
		aoAt(-1, -1),
		aoAt(1, -1),
		aoAt(1, 1),
		aoAt(-1, 1),
	}

	normal := [3]float32{float32(fg.normal.X), float32(fg.normal.Y), float32(fg.normal.Z)}
	mesh.addQuad([4][3]float32{corner(v0), corner(v1), corner(v2), corner(v3)}, normal, aos, tex)
}

// aoValue implements the classic 0-3 corner occlusion kernel: both
// sides solid fully darkens the vertex regardless of the diagonal.
func aoValue(side1, diag, side2 bool) int {
	switch {
	case side1 && side2:
		return 0
	case (side1 && diag) || (side2 && diag):
		return 1
	case !side1 && !diag && !side2:
		return 3
	default:
		return 2
	}
}
