package voxel

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Coord is a position in global voxel space.
type Coord struct {
	X int
	Y int
	Z int
}

func (c Coord) Add(o Coord) Coord {
	return Coord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

func (c Coord) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{float64(c.X), float64(c.Y), float64(c.Z)}
}

// Center returns the world-space center of the voxel cell.
func (c Coord) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(c.X) + 0.5, float64(c.Y) + 0.5, float64(c.Z) + 0.5}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// CoordOf converts a world-space point to the voxel cell containing it.
func CoordOf(p mgl64.Vec3) Coord {
	return Coord{
		X: floorInt(p.X()),
		Y: floorInt(p.Y()),
		Z: floorInt(p.Z()),
	}
}

// ChunkCoord identifies a chunk in chunk space.
type ChunkCoord struct {
	X int
	Y int
	Z int
}

func (c ChunkCoord) Add(o ChunkCoord) ChunkCoord {
	return ChunkCoord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

// Origin returns the voxel-space coordinate of the chunk's minimum corner.
func (c ChunkCoord) Origin(size int) Coord {
	return Coord{X: c.X * size, Y: c.Y * size, Z: c.Z * size}
}

// Center returns the world-space center of the chunk.
func (c ChunkCoord) Center(size int) mgl64.Vec3 {
	h := float64(size) / 2
	o := c.Origin(size)
	return mgl64.Vec3{float64(o.X) + h, float64(o.Y) + h, float64(o.Z) + h}
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("[%d,%d,%d]", c.X, c.Y, c.Z)
}

// DistSq returns the squared distance to another chunk coordinate, in
// chunk units.
func (c ChunkCoord) DistSq(o ChunkCoord) int {
	dx := c.X - o.X
	dy := c.Y - o.Y
	dz := c.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// ChunkOf returns the chunk containing the given voxel along with the
// voxel's local coordinates inside that chunk.
func ChunkOf(c Coord, size int) (ChunkCoord, Coord) {
	chunk := ChunkCoord{
		X: floorDiv(c.X, size),
		Y: floorDiv(c.Y, size),
		Z: floorDiv(c.Z, size),
	}
	local := Coord{
		X: mod(c.X, size),
		Y: mod(c.Y, size),
		Z: mod(c.Z, size),
	}
	return chunk, local
}

// ChunkAt returns the chunk containing the given world-space point.
func ChunkAt(p mgl64.Vec3, size int) ChunkCoord {
	chunk, _ := ChunkOf(CoordOf(p), size)
	return chunk
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func floorInt(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}
