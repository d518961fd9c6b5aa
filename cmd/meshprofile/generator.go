package main

import (
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

const (
	matStone = 1
	matDirt  = 2
	matGrass = 3
)

// terrainGenerator mirrors the worldsim terrain so profile numbers are
// representative of a real session.
type terrainGenerator struct {
	seed int64
}

func newTerrainGenerator(seed int64) *terrainGenerator {
	return &terrainGenerator{seed: seed}
}

func (g *terrainGenerator) Generate(c voxel.Coord) voxel.Voxel {
	coarse := int(hash2(g.seed, floorDiv(c.X, 32), floorDiv(c.Z, 32)) % 16)
	fine := int(hash2(g.seed+1, floorDiv(c.X, 8), floorDiv(c.Z, 8)) % 8)
	height := coarse + fine
	switch {
	case c.Y > height:
		return voxel.Air()
	case c.Y == height:
		return voxel.Solid(matGrass)
	case c.Y > height-4:
		return voxel.Solid(matDirt)
	default:
		return voxel.Solid(matStone)
	}
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

func floorDiv(a, b int) int {
	q := a / b
	if r := a % b; r < 0 {
		q--
	}
	return q
}
