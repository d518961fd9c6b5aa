package main

import (
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
	"github.com/splashdust/bevy-voxel-world/internal/world"
)

// Materials produced by the terrain generator.
const (
	matStone = 1
	matDirt  = 2
	matGrass = 3
	matOre   = 4
)

// terrainGenerator builds rolling hills from hashed column noise, with
// ore pockets scattered below the surface. Deterministic per seed.
type terrainGenerator struct {
	seed int64
}

func newTerrainGenerator(seed int64) world.Generator {
	return &terrainGenerator{seed: seed}
}

func (g *terrainGenerator) Generate(c voxel.Coord) voxel.Voxel {
	height := g.surfaceHeight(c.X, c.Z)
	switch {
	case c.Y > height:
		return voxel.Air()
	case c.Y == height:
		return voxel.Solid(matGrass)
	case c.Y > height-4:
		return voxel.Solid(matDirt)
	default:
		if hash3(g.seed, c.X, c.Y, c.Z)%97 == 0 {
			return voxel.Solid(matOre)
		}
		return voxel.Solid(matStone)
	}
}

// surfaceHeight blends hashed noise at two scales into a height in
// roughly [0, 24].
func (g *terrainGenerator) surfaceHeight(x, z int) int {
	coarse := int(hash2(g.seed, floorDiv(x, 32), floorDiv(z, 32)) % 16)
	fine := int(hash2(g.seed+1, floorDiv(x, 8), floorDiv(z, 8)) % 8)
	return coarse + fine
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9))
}

func hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0x94d049bb133111eb) ^ (uz * 0xbf58476d1ce4e5b9))
}

func floorDiv(a, b int) int {
	q := a / b
	if r := a % b; r < 0 {
		q--
	}
	return q
}
