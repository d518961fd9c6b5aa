package voxel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrOutOfRange reports a local coordinate outside the buffer interior.
var ErrOutOfRange = errors.New("local coordinate out of range")

// ContentHash is a digest of a buffer's full ordered contents. A strong
// digest is required here because the mesh cache is keyed by it: a
// collision would silently reuse the wrong geometry. With sha256 that
// risk is negligible.
type ContentHash [32]byte

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:8])
}

// Buffer is a dense voxel array for one chunk. The interior spans
// [0,size)³ in local coordinates. A one voxel apron on every side holds
// neighbor data sampled at generation time, so face culling at chunk
// boundaries does not depend on the neighbor chunk being loaded.
type Buffer struct {
	size   int
	padded int
	voxels []Voxel
}

func NewBuffer(size int) *Buffer {
	if size < 1 {
		panic(fmt.Sprintf("voxel: invalid buffer size %d", size))
	}
	p := size + 2
	return &Buffer{
		size:   size,
		padded: p,
		voxels: make([]Voxel, p*p*p),
	}
}

func (b *Buffer) Size() int { return b.size }

// index linearizes padded coordinates, x fastest.
func (b *Buffer) index(x, y, z int) int {
	return x + y*b.padded + z*b.padded*b.padded
}

func (b *Buffer) inInterior(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < b.size && y < b.size && z < b.size
}

// Get returns the voxel at interior local coordinates.
func (b *Buffer) Get(x, y, z int) (Voxel, error) {
	if !b.inInterior(x, y, z) {
		return Voxel{}, fmt.Errorf("get (%d,%d,%d) in [0,%d)³: %w", x, y, z, b.size, ErrOutOfRange)
	}
	return b.voxels[b.index(x+1, y+1, z+1)], nil
}

// Set writes the voxel at interior local coordinates.
func (b *Buffer) Set(x, y, z int, v Voxel) error {
	if !b.inInterior(x, y, z) {
		return fmt.Errorf("set (%d,%d,%d) in [0,%d)³: %w", x, y, z, b.size, ErrOutOfRange)
	}
	b.voxels[b.index(x+1, y+1, z+1)] = v
	return nil
}

// At returns the voxel at local coordinates in [-1,size], which includes
// the apron. Out of that range it returns Unset.
func (b *Buffer) At(x, y, z int) Voxel {
	if x < -1 || y < -1 || z < -1 || x > b.size || y > b.size || z > b.size {
		return Unset()
	}
	return b.voxels[b.index(x+1, y+1, z+1)]
}

// SetAt writes the voxel at local coordinates in [-1,size], which
// includes the apron.
func (b *Buffer) SetAt(x, y, z int, v Voxel) error {
	if x < -1 || y < -1 || z < -1 || x > b.size || y > b.size || z > b.size {
		return fmt.Errorf("set (%d,%d,%d) in [-1,%d]³: %w", x, y, z, b.size, ErrOutOfRange)
	}
	b.voxels[b.index(x+1, y+1, z+1)] = v
	return nil
}

// NeighborValue resolves the voxel adjacent to the given interior
// coordinate across the given face. The neighbor may lie in the apron.
func (b *Buffer) NeighborValue(x, y, z int, f Face) (Voxel, error) {
	if !b.inInterior(x, y, z) {
		return Voxel{}, fmt.Errorf("neighbor of (%d,%d,%d): %w", x, y, z, ErrOutOfRange)
	}
	n := f.Normal()
	return b.At(x+n.X, y+n.Y, z+n.Z), nil
}

// Fill populates the whole buffer, apron included. The callback receives
// offsets relative to the chunk origin, ranging over [-1,size]³.
func (b *Buffer) Fill(fn func(offset Coord) Voxel) {
	for z := 0; z < b.padded; z++ {
		for y := 0; y < b.padded; y++ {
			for x := 0; x < b.padded; x++ {
				b.voxels[b.index(x, y, z)] = fn(Coord{X: x - 1, Y: y - 1, Z: z - 1})
			}
		}
	}
}

// SolidCount returns the number of solid voxels in the interior.
func (b *Buffer) SolidCount() int {
	n := 0
	for z := 1; z <= b.size; z++ {
		for y := 1; y <= b.size; y++ {
			for x := 1; x <= b.size; x++ {
				if b.voxels[b.index(x, y, z)].IsSolid() {
					n++
				}
			}
		}
	}
	return n
}

// UniformMaterial reports whether every interior voxel is solid with the
// same material, and that material.
func (b *Buffer) UniformMaterial() (uint8, bool) {
	first := b.voxels[b.index(1, 1, 1)]
	if !first.IsSolid() {
		return 0, false
	}
	for z := 1; z <= b.size; z++ {
		for y := 1; y <= b.size; y++ {
			for x := 1; x <= b.size; x++ {
				v := b.voxels[b.index(x, y, z)]
				if !v.IsSolid() || v.Material != first.Material {
					return 0, false
				}
			}
		}
	}
	return first.Material, true
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{
		size:   b.size,
		padded: b.padded,
		voxels: make([]Voxel, len(b.voxels)),
	}
	copy(c.voxels, b.voxels)
	return c
}

// Hash digests the buffer dimensions and full ordered contents. The
// result is deterministic and stable across runs.
func (b *Buffer) Hash() ContentHash {
	h := sha256.New()
	var dim [4]byte
	binary.LittleEndian.PutUint32(dim[:], uint32(b.size))
	h.Write(dim[:])
	cell := make([]byte, 2)
	for _, v := range b.voxels {
		cell[0] = byte(v.Kind)
		cell[1] = v.Material
		h.Write(cell)
	}
	var out ContentHash
	copy(out[:], h.Sum(nil))
	return out
}
