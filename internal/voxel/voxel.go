package voxel

import "github.com/go-gl/mathgl/mgl64"

// Kind discriminates the three voxel variants.
type Kind uint8

const (
	// KindUnset means no information: lookups fall through to the
	// procedural layer, and meshing treats the voxel as empty.
	KindUnset Kind = iota
	KindAir
	KindSolid
)

// Voxel is a single grid cell value. Material is only meaningful for
// solid voxels.
type Voxel struct {
	Kind     Kind
	Material uint8
}

func Unset() Voxel          { return Voxel{Kind: KindUnset} }
func Air() Voxel            { return Voxel{Kind: KindAir} }
func Solid(mat uint8) Voxel { return Voxel{Kind: KindSolid, Material: mat} }

func (v Voxel) IsUnset() bool { return v.Kind == KindUnset }
func (v Voxel) IsAir() bool   { return v.Kind == KindAir }
func (v Voxel) IsSolid() bool { return v.Kind == KindSolid }

// Empty reports whether the voxel occludes nothing when meshing.
func (v Voxel) Empty() bool { return v.Kind != KindSolid }

// Face identifies one of the six voxel faces, or none.
type Face int

const (
	FaceNone Face = iota
	FaceBottom
	FaceTop
	FaceLeft
	FaceRight
	FaceBack
	FaceForward
)

var faceNormals = [...]Coord{
	FaceNone:    {},
	FaceBottom:  {Y: -1},
	FaceTop:     {Y: 1},
	FaceLeft:    {X: -1},
	FaceRight:   {X: 1},
	FaceBack:    {Z: -1},
	FaceForward: {Z: 1},
}

// Normal returns the outward unit normal of the face in voxel steps.
// FaceNone returns the zero coordinate.
func (f Face) Normal() Coord {
	return faceNormals[f]
}

func (f Face) Vec3() mgl64.Vec3 {
	n := faceNormals[f]
	return mgl64.Vec3{float64(n.X), float64(n.Y), float64(n.Z)}
}

func (f Face) String() string {
	switch f {
	case FaceBottom:
		return "bottom"
	case FaceTop:
		return "top"
	case FaceLeft:
		return "left"
	case FaceRight:
		return "right"
	case FaceBack:
		return "back"
	case FaceForward:
		return "forward"
	default:
		return "none"
	}
}
