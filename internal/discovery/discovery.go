// Package discovery decides which chunks should exist around a moving
// observer. The ray-cast strategy samples lines of sight through the
// observer's view cone and walks them in chunk-sized steps, then fills
// the gaps between rays with a bounded flood fill. The close strategy
// flood fills alone, which is cheaper for small radii but O(R³) as the
// radius grows.
package discovery

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

type Strategy int

const (
	// StrategyRayCast samples rays through the view cone and gap-fills
	// with a bounded flood fill.
	StrategyRayCast Strategy = iota
	// StrategyClose flood fills outward from the observer's chunk.
	StrategyClose
)

type DespawnStrategy int

const (
	// DespawnFarAway retires chunks outside the spawn radius.
	DespawnFarAway DespawnStrategy = iota
	// DespawnOutOfView additionally retires chunks outside the view
	// cone, even inside the spawn radius.
	DespawnOutOfView
)

// Observer is the camera state sampled once per discovery run.
type Observer struct {
	Position mgl64.Vec3
	// Forward is the view direction. A zero vector means no view
	// information: rays are sampled over the full sphere and the
	// out-of-view despawn test never matches.
	Forward mgl64.Vec3
	// FOV is the diagonal field of view in radians. Ignored when
	// Forward is zero.
	FOV float64
}

func (o Observer) hasView() bool {
	return o.Forward.Len() > 1e-9
}

// ChunkIndex is the read-only view of the chunk map that discovery
// diffs against.
type ChunkIndex interface {
	// Contains reports whether the coordinate has a live entry.
	Contains(voxel.ChunkCoord) bool
	// IsFull reports whether the chunk is known to be entirely solid.
	// Rays and fill do not propagate through full chunks.
	IsFull(voxel.ChunkCoord) bool
	// Spawned lists coordinates currently spawned, for despawn checks.
	Spawned() []voxel.ChunkCoord
}

type Options struct {
	ChunkSize       int
	SpawnRadius     int
	MinSpawnRadius  int
	Strategy        Strategy
	DespawnStrategy DespawnStrategy
	SpawningRays    int
	RayMargin       float64
	MaxSpawn        int
}

// Diff is the outcome of one discovery run, measured against the chunk
// index: coordinates that should be created, and spawned coordinates no
// longer desired under the despawn policy.
type Diff struct {
	ToSpawn   []voxel.ChunkCoord
	ToDespawn []voxel.ChunkCoord
}

// Run performs one discovery pass. rnd drives ray sampling; passing a
// seeded source makes a run reproducible.
func Run(obs Observer, index ChunkIndex, opts Options, rnd *rand.Rand) Diff {
	var diff Diff
	center := voxel.ChunkAt(obs.Position, opts.ChunkSize)
	radiusSq := opts.SpawnRadius * opts.SpawnRadius

	visited := make(map[voxel.ChunkCoord]struct{})
	var frontier []voxel.ChunkCoord

	enqueue := func(c voxel.ChunkCoord) {
		if _, seen := visited[c]; seen {
			return
		}
		if c.DistSq(center) > radiusSq {
			return
		}
		visited[c] = struct{}{}
		frontier = append(frontier, c)
	}

	// The cube closest to the observer is always desired, so the ground
	// under the camera never depends on ray luck.
	for x := -opts.MinSpawnRadius; x <= opts.MinSpawnRadius; x++ {
		for y := -opts.MinSpawnRadius; y <= opts.MinSpawnRadius; y++ {
			for z := -opts.MinSpawnRadius; z <= opts.MinSpawnRadius; z++ {
				enqueue(center.Add(voxel.ChunkCoord{X: x, Y: y, Z: z}))
			}
		}
	}

	if opts.Strategy == StrategyRayCast {
		for i := 0; i < opts.SpawningRays; i++ {
			castSpawnRay(obs, index, opts, rnd, enqueue)
		}
	}

	// Flood fill. Every visited in-radius coordinate expands to its 26
	// neighbors unless the chunk is known full; this fills the gaps the
	// rays did not sample, and for StrategyClose it is the whole
	// algorithm. Visited-set dedup guarantees termination.
	for head := 0; head < len(frontier); head++ {
		c := frontier[head]
		if !index.Contains(c) {
			diff.ToSpawn = append(diff.ToSpawn, c)
			if opts.MaxSpawn > 0 && len(diff.ToSpawn) >= opts.MaxSpawn {
				break
			}
		}
		if index.IsFull(c) {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					enqueue(c.Add(voxel.ChunkCoord{X: dx, Y: dy, Z: dz}))
				}
			}
		}
	}

	diff.ToDespawn = retire(obs, index, opts, center)
	return diff
}

// castSpawnRay walks one sampled direction outward in chunk-sized steps
// and queues every traversed coordinate. Hitting a known-full chunk
// terminates the ray early, so occluded volume costs nothing.
func castSpawnRay(obs Observer, index ChunkIndex, opts Options, rnd *rand.Rand, enqueue func(voxel.ChunkCoord)) {
	dir := sampleDirection(obs, opts.RayMargin, rnd)
	step := float64(opts.ChunkSize)
	maxDist := float64(opts.SpawnRadius) * step

	for t := 0.0; t <= maxDist; t += step {
		p := obs.Position.Add(dir.Mul(t))
		c := voxel.ChunkAt(p, opts.ChunkSize)
		if index.IsFull(c) {
			break
		}
		enqueue(c)
	}
}

// sampleDirection picks a uniform direction within the observer's view
// cone widened by margin, or over the whole sphere when the observer
// carries no view information.
func sampleDirection(obs Observer, margin float64, rnd *rand.Rand) mgl64.Vec3 {
	if !obs.hasView() {
		return sampleSphere(rnd)
	}
	half := obs.FOV/2 + margin
	if half >= math.Pi {
		return sampleSphere(rnd)
	}

	// Uniform over the spherical cap around +Z, rotated onto Forward.
	cosHalf := math.Cos(half)
	z := 1 - rnd.Float64()*(1-cosHalf)
	phi := 2 * math.Pi * rnd.Float64()
	r := math.Sqrt(1 - z*z)
	local := mgl64.Vec3{r * math.Cos(phi), r * math.Sin(phi), z}

	forward := obs.Forward.Normalize()
	rot := mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, forward)
	return rot.Rotate(local)
}

func sampleSphere(rnd *rand.Rand) mgl64.Vec3 {
	for {
		v := mgl64.Vec3{
			rnd.Float64()*2 - 1,
			rnd.Float64()*2 - 1,
			rnd.Float64()*2 - 1,
		}
		if l := v.Len(); l > 1e-6 && l <= 1 {
			return v.Mul(1 / l)
		}
	}
}

// retire selects spawned chunks to despawn. FarAway retires anything
// outside the spawn radius (with one chunk of hysteresis so borderline
// chunks do not flap); OutOfView additionally retires chunks outside
// the view cone unless they sit in the minimum-radius cube.
func retire(obs Observer, index ChunkIndex, opts Options, center voxel.ChunkCoord) []voxel.ChunkCoord {
	var out []voxel.ChunkCoord
	radiusSq := opts.SpawnRadius*opts.SpawnRadius + 1
	minSq := opts.MinSpawnRadius * opts.MinSpawnRadius

	for _, c := range index.Spawned() {
		distSq := c.DistSq(center)
		if distSq > radiusSq {
			out = append(out, c)
			continue
		}
		if opts.DespawnStrategy != DespawnOutOfView || !obs.hasView() {
			continue
		}
		if distSq <= minSq {
			continue
		}
		if !inViewCone(obs, c, opts) {
			out = append(out, c)
		}
	}
	return out
}

// inViewCone approximates the frustum test with a cone around the view
// direction, widened by the ray margin so despawn is strictly laxer
// than spawn sampling.
func inViewCone(obs Observer, c voxel.ChunkCoord, opts Options) bool {
	to := c.Center(opts.ChunkSize).Sub(obs.Position)
	dist := to.Len()
	if dist < float64(opts.ChunkSize) {
		return true
	}
	cosAngle := to.Mul(1 / dist).Dot(obs.Forward.Normalize())
	half := obs.FOV/2 + opts.RayMargin
	if half >= math.Pi {
		return true
	}
	return cosAngle >= math.Cos(half)
}
