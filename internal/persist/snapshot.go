package persist

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// Chunk snapshot file layout, zstd over the whole payload:
//
//	magic "VWSN", version byte
//	varint chunk x, y, z (zigzag)
//	varint side length
//	(cell, run) varint pairs over the interior, x fastest
//
// A cell packs kind<<8 | material. Only the interior is stored; the
// apron is resampled on load.
const (
	snapshotMagic   = "VWSN"
	snapshotVersion = 1
)

// SnapshotPath returns the file name used for a chunk coordinate.
func SnapshotPath(dir string, coord voxel.ChunkCoord) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%d_%d_%d.vwsn", coord.X, coord.Y, coord.Z))
}

// WriteChunkSnapshot stores a buffer's interior at the conventional
// path under dir.
func WriteChunkSnapshot(dir string, coord voxel.ChunkCoord, buf *voxel.Buffer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := SnapshotPath(dir, coord)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriter(enc)
	defer bw.Flush()

	if _, err := bw.WriteString(snapshotMagic); err != nil {
		return err
	}
	if err := bw.WriteByte(snapshotVersion); err != nil {
		return err
	}

	var tmp [binary.MaxVarintLen64]byte
	putVarint := func(v int64) error {
		n := binary.PutVarint(tmp[:], v)
		_, err := bw.Write(tmp[:n])
		return err
	}
	putUvarint := func(v uint64) error {
		n := binary.PutUvarint(tmp[:], v)
		_, err := bw.Write(tmp[:n])
		return err
	}

	for _, v := range []int64{int64(coord.X), int64(coord.Y), int64(coord.Z)} {
		if err := putVarint(v); err != nil {
			return err
		}
	}
	size := buf.Size()
	if err := putUvarint(uint64(size)); err != nil {
		return err
	}

	cells := interiorCells(buf)
	i := 0
	for i < len(cells) {
		c := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == c; j++ {
			run++
		}
		if err := putUvarint(uint64(c)); err != nil {
			return err
		}
		if err := putUvarint(uint64(run)); err != nil {
			return err
		}
		i += run
	}
	return nil
}

// ReadChunkSnapshot loads a snapshot file back into a buffer. The
// apron comes back unset.
func ReadChunkSnapshot(path string) (voxel.ChunkCoord, *voxel.Buffer, error) {
	var coord voxel.ChunkCoord

	f, err := os.Open(path)
	if err != nil {
		return coord, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return coord, nil, err
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return coord, nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(raw) < len(snapshotMagic)+1 || string(raw[:len(snapshotMagic)]) != snapshotMagic {
		return coord, nil, fmt.Errorf("not a chunk snapshot: %s", path)
	}
	if v := raw[len(snapshotMagic)]; v != snapshotVersion {
		return coord, nil, fmt.Errorf("unsupported snapshot version %d", v)
	}
	r := bytes.NewReader(raw[len(snapshotMagic)+1:])

	readVarint := func() (int64, error) { return binary.ReadVarint(r) }
	readUvarint := func() (uint64, error) { return binary.ReadUvarint(r) }

	var xyz [3]int64
	for i := range xyz {
		v, err := readVarint()
		if err != nil {
			return coord, nil, fmt.Errorf("snapshot coord: %w", err)
		}
		xyz[i] = v
	}
	coord = voxel.ChunkCoord{X: int(xyz[0]), Y: int(xyz[1]), Z: int(xyz[2])}

	size64, err := readUvarint()
	if err != nil {
		return coord, nil, fmt.Errorf("snapshot size: %w", err)
	}
	size := int(size64)
	if size < 1 || size > 1024 {
		return coord, nil, fmt.Errorf("implausible snapshot size %d", size)
	}

	buf := voxel.NewBuffer(size)
	total := size * size * size
	idx := 0
	for idx < total {
		cell, err := readUvarint()
		if err != nil {
			return coord, nil, fmt.Errorf("snapshot cell: %w", err)
		}
		run, err := readUvarint()
		if err != nil {
			return coord, nil, fmt.Errorf("snapshot run: %w", err)
		}
		if cell > 0xFFFF || run == 0 || idx+int(run) > total {
			return coord, nil, fmt.Errorf("corrupt snapshot run at cell %d", idx)
		}
		v := voxel.Voxel{Kind: voxel.Kind(cell >> 8), Material: uint8(cell & 0xFF)}
		for k := 0; k < int(run); k++ {
			x := idx % size
			y := (idx / size) % size
			z := idx / (size * size)
			if err := buf.Set(x, y, z, v); err != nil {
				return coord, nil, err
			}
			idx++
		}
	}
	return coord, buf, nil
}

func interiorCells(buf *voxel.Buffer) []uint16 {
	size := buf.Size()
	cells := make([]uint16, 0, size*size*size)
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v, err := buf.Get(x, y, z)
				if err != nil {
					v = voxel.Unset()
				}
				cells = append(cells, uint16(v.Kind)<<8|uint16(v.Material))
			}
		}
	}
	return cells
}
