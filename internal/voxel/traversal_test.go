package voxel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestCartesianTraversal(t *testing.T) {
	var visited []Coord
	CartesianTraversal(Coord{X: 0, Y: 2, Z: 0}, Coord{X: 4, Y: 2, Z: 0}, func(c Coord) bool {
		visited = append(visited, c)
		return true
	})

	want := []Coord{{0, 2, 0}, {1, 2, 0}, {2, 2, 0}, {3, 2, 0}}
	if len(visited) != len(want) {
		t.Fatalf("visited %d voxels, want %d", len(visited), len(want))
	}
	for i, c := range want {
		if visited[i] != c {
			t.Fatalf("step %d: got %v, want %v", i, visited[i], c)
		}
	}
}

func TestCartesianTraversalRejectsDiagonal(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("diagonal direction did not panic")
		}
	}()
	CartesianTraversal(Coord{}, Coord{X: 1, Y: 1, Z: 0}, func(Coord) bool { return true })
}

func TestLineTraversalStraight(t *testing.T) {
	var visited []Coord
	LineTraversal(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{3.5, 0.5, 0.5}, func(c Coord, _ float64, _ Face) bool {
		visited = append(visited, c)
		return true
	})

	want := []Coord{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("step %d: got %v, want %v", i, visited[i], want[i])
		}
	}
}

func TestLineTraversalEntryFaces(t *testing.T) {
	var faces []Face
	LineTraversal(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{2.5, 0.5, 0.5}, func(_ Coord, _ float64, f Face) bool {
		faces = append(faces, f)
		return true
	})

	if len(faces) != 3 {
		t.Fatalf("visited %d voxels, want 3", len(faces))
	}
	if faces[0] != FaceNone {
		t.Fatalf("start face = %v, want FaceNone", faces[0])
	}
	// Moving in +X, each subsequent voxel is entered through its left
	// face.
	for i := 1; i < len(faces); i++ {
		if faces[i] != FaceLeft {
			t.Fatalf("face %d = %v, want FaceLeft", i, faces[i])
		}
	}
}

func TestLineTraversalMonotonicTime(t *testing.T) {
	last := -1.0
	LineTraversal(mgl64.Vec3{0.2, 0.7, 0.1}, mgl64.Vec3{5.9, 3.3, 4.4}, func(_ Coord, tm float64, _ Face) bool {
		if tm < last {
			t.Fatalf("time went backwards: %v after %v", tm, last)
		}
		if tm < 0 || tm > 1 {
			t.Fatalf("time %v outside [0,1]", tm)
		}
		last = tm
		return true
	})
}

func TestLineTraversalVisitsEachOnce(t *testing.T) {
	seen := make(map[Coord]int)
	LineTraversal(mgl64.Vec3{0.1, 0.1, 0.1}, mgl64.Vec3{7.8, 5.2, 3.9}, func(c Coord, _ float64, _ Face) bool {
		seen[c]++
		return true
	})
	for c, n := range seen {
		if n != 1 {
			t.Fatalf("voxel %v visited %d times", c, n)
		}
	}
	if len(seen) < 8 {
		t.Fatalf("diagonal traversal visited only %d voxels", len(seen))
	}
}

func TestLineTraversalDegenerate(t *testing.T) {
	count := 0
	LineTraversal(mgl64.Vec3{1.5, 1.5, 1.5}, mgl64.Vec3{1.5, 1.5, 1.5}, func(c Coord, _ float64, f Face) bool {
		count++
		if c != (Coord{X: 1, Y: 1, Z: 1}) || f != FaceNone {
			t.Fatalf("degenerate visit: %v %v", c, f)
		}
		return true
	})
	if count != 1 {
		t.Fatalf("degenerate segment visited %d voxels, want 1", count)
	}
}
