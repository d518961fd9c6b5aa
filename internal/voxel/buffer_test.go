package voxel

import (
	"errors"
	"testing"
)

func TestBufferBoundsChecks(t *testing.T) {
	buf := NewBuffer(4)

	if err := buf.Set(0, 0, 0, Solid(1)); err != nil {
		t.Fatalf("set in range: %v", err)
	}
	if err := buf.Set(4, 0, 0, Solid(1)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("set out of range: want ErrOutOfRange, got %v", err)
	}
	if _, err := buf.Get(-1, 0, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("get out of range: want ErrOutOfRange, got %v", err)
	}

	v, err := buf.Get(0, 0, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !v.IsSolid() || v.Material != 1 {
		t.Fatalf("got %+v, want solid material 1", v)
	}
}

func TestBufferApron(t *testing.T) {
	buf := NewBuffer(4)

	// Fresh cells, apron included, are unset.
	if v := buf.At(-1, -1, -1); !v.IsUnset() {
		t.Fatalf("fresh apron cell: got %+v", v)
	}
	if err := buf.SetAt(-1, 0, 0, Solid(7)); err != nil {
		t.Fatalf("set apron: %v", err)
	}
	if v := buf.At(-1, 0, 0); !v.IsSolid() || v.Material != 7 {
		t.Fatalf("apron readback: got %+v", v)
	}
	// Beyond the apron reads as unset and rejects writes.
	if v := buf.At(-2, 0, 0); !v.IsUnset() {
		t.Fatalf("outside apron: got %+v", v)
	}
	if err := buf.SetAt(5, 0, 0, Solid(1)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("set beyond apron: want ErrOutOfRange, got %v", err)
	}
}

func TestBufferNeighborValue(t *testing.T) {
	buf := NewBuffer(4)
	if err := buf.SetAt(4, 1, 1, Solid(3)); err != nil {
		t.Fatalf("seed apron: %v", err)
	}

	v, err := buf.NeighborValue(3, 1, 1, FaceRight)
	if err != nil {
		t.Fatalf("neighbor: %v", err)
	}
	if !v.IsSolid() || v.Material != 3 {
		t.Fatalf("neighbor across boundary: got %+v", v)
	}

	if _, err := buf.NeighborValue(4, 1, 1, FaceRight); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("neighbor of apron cell: want ErrOutOfRange, got %v", err)
	}
}

func TestBufferFillCoversApron(t *testing.T) {
	buf := NewBuffer(2)
	seen := make(map[Coord]bool)
	buf.Fill(func(off Coord) Voxel {
		seen[off] = true
		return Air()
	})

	want := 4 * 4 * 4
	if len(seen) != want {
		t.Fatalf("fill visited %d offsets, want %d", len(seen), want)
	}
	if !seen[Coord{X: -1, Y: -1, Z: -1}] || !seen[Coord{X: 2, Y: 2, Z: 2}] {
		t.Fatalf("fill missed apron corners")
	}
}

func TestBufferHash(t *testing.T) {
	a := NewBuffer(4)
	b := NewBuffer(4)
	if a.Hash() != b.Hash() {
		t.Fatalf("identical buffers hash differently")
	}

	if err := a.Set(1, 2, 3, Solid(1)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if a.Hash() == b.Hash() {
		t.Fatalf("differing buffers share a hash")
	}

	// Material alone must change the hash.
	if err := b.Set(1, 2, 3, Solid(2)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if a.Hash() == b.Hash() {
		t.Fatalf("material difference not reflected in hash")
	}

	// Apron contents are part of the digest.
	c := a.Clone()
	if a.Hash() != c.Hash() {
		t.Fatalf("clone hash differs")
	}
	if err := c.SetAt(-1, 0, 0, Solid(1)); err != nil {
		t.Fatalf("set apron: %v", err)
	}
	if a.Hash() == c.Hash() {
		t.Fatalf("apron difference not reflected in hash")
	}
}

func TestBufferClassification(t *testing.T) {
	buf := NewBuffer(2)
	if buf.SolidCount() != 0 {
		t.Fatalf("fresh buffer solid count %d", buf.SolidCount())
	}
	if _, ok := buf.UniformMaterial(); ok {
		t.Fatalf("empty buffer reported uniform")
	}

	buf.Fill(func(Coord) Voxel { return Solid(5) })
	if got := buf.SolidCount(); got != 8 {
		t.Fatalf("solid count %d, want 8", got)
	}
	mat, ok := buf.UniformMaterial()
	if !ok || mat != 5 {
		t.Fatalf("uniform = (%d, %v), want (5, true)", mat, ok)
	}

	if err := buf.Set(0, 0, 0, Solid(6)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok := buf.UniformMaterial(); ok {
		t.Fatalf("mixed materials reported uniform")
	}
}
