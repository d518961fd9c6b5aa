package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// VisitFunc is called for every voxel a traversal passes through. t is
// the normalized time along the segment when the voxel was entered, and
// face is the face through which it was entered (FaceNone for the first
// voxel). Return false to stop the traversal.
type VisitFunc func(c Coord, t float64, face Face) bool

// CartesianTraversal walks the grid from start (included) to end
// (excluded) along a single axis. Exactly one component of end-start
// must be non-zero.
func CartesianTraversal(start, end Coord, visit func(Coord) bool) {
	dx := sign(end.X - start.X)
	dy := sign(end.Y - start.Y)
	dz := sign(end.Z - start.Z)
	if abs(dx)+abs(dy)+abs(dz) != 1 {
		panic("voxel: cartesian traversal requires a single-axis direction")
	}
	dist := max3(abs(end.X-start.X), abs(end.Y-start.Y), abs(end.Z-start.Z))
	for d := 0; d < dist; d++ {
		c := Coord{X: start.X + dx*d, Y: start.Y + dy*d, Z: start.Z + dz*d}
		if !visit(c) {
			break
		}
	}
}

// LineTraversal visits every voxel intersected by the segment from start
// to end (both included), each exactly once, in order. Implementation of
// Amanatides & Woo, "A Fast Voxel Traversal Algorithm for Ray Tracing".
func LineTraversal(start, end mgl64.Vec3, visit VisitFunc) {
	ray := end.Sub(start)
	endT := ray.Len()
	if endT == 0 {
		visit(CoordOf(start), 0, FaceNone)
		return
	}
	dir := ray.Mul(1 / endT)

	step := Coord{X: sign(signF(dir.X())), Y: sign(signF(dir.Y())), Z: sign(signF(dir.Z()))}

	startVoxel := CoordOf(start)
	endVoxel := CoordOf(end)

	// Per-axis time to cross one cell, and time of the first boundary
	// crossing. Axes the ray never crosses are pinned past the end.
	var deltaT, maxT [3]float64
	axisSetup := func(i int, s int, startC float64, voxelC int) {
		if s == 0 {
			deltaT[i] = math.Inf(1)
			maxT[i] = endT
			return
		}
		rdir := 1 / dir[i]
		deltaT[i] = math.Abs(rdir)
		o := 0
		if s > 0 {
			o = 1
		}
		plane := float64(voxelC + o)
		maxT[i] = (plane - startC) * rdir
	}
	axisSetup(0, step.X, start.X(), startVoxel.X)
	axisSetup(1, step.Y, start.Y(), startVoxel.Y)
	axisSetup(2, step.Z, start.Z(), startVoxel.Z)

	xFace, yFace, zFace := FaceRight, FaceTop, FaceForward
	if step.X > 0 {
		xFace = FaceLeft
	}
	if step.Y > 0 {
		yFace = FaceBottom
	}
	if step.Z > 0 {
		zFace = FaceBack
	}

	voxel := startVoxel
	outOfBounds := endVoxel.Add(Coord{X: step.X, Y: step.Y, Z: step.Z})
	rEndT := 1 / endT

	time := minF(maxT[0], minF(maxT[1], maxT[2])) * rEndT
	reachedEnd := voxel == endVoxel
	keepGoing := visit(voxel, time, FaceNone)

	for keepGoing && !reachedEnd {
		var face Face
		if maxT[0] < maxT[1] && maxT[0] < maxT[2] {
			time = maxT[0] * rEndT
			face = xFace
			voxel.X += step.X
			maxT[0] += deltaT[0]
			reachedEnd = voxel.X == outOfBounds.X
		} else if maxT[1] < maxT[2] {
			time = maxT[1] * rEndT
			face = yFace
			voxel.Y += step.Y
			maxT[1] += deltaT[1]
			reachedEnd = voxel.Y == outOfBounds.Y
		} else {
			time = maxT[2] * rEndT
			face = zFace
			voxel.Z += step.Z
			maxT[2] += deltaT[2]
			reachedEnd = voxel.Z == outOfBounds.Z
		}
		if !reachedEnd {
			keepGoing = visit(voxel, time, face)
		}
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func signF(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c int) int {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
