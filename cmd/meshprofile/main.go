package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/splashdust/bevy-voxel-world/internal/meshcache"
	"github.com/splashdust/bevy-voxel-world/internal/meshing"
	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// meshprofile measures meshing throughput: it generates a grid of
// chunk buffers from hashed terrain, then meshes them through the
// content-addressed cache with a configurable number of workers.

func main() {
	var (
		chunksPerAxis = flag.Int("chunks", 8, "chunks per axis in the profiled grid")
		chunkSize     = flag.Int("chunkSize", 32, "chunk side length in voxels")
		concurrency   = flag.Int("concurrency", runtime.NumCPU(), "number of meshing workers")
		repeats       = flag.Int("repeats", 1, "times to mesh the full grid (repeats exercise the cache)")
		seed          = flag.Int64("seed", 1337, "terrain seed")
	)
	flag.Parse()

	if *chunksPerAxis <= 0 || *chunkSize <= 0 || *concurrency <= 0 || *repeats <= 0 {
		fmt.Fprintln(os.Stderr, "chunks, chunkSize, concurrency and repeats must be positive")
		os.Exit(1)
	}

	gen := newTerrainGenerator(*seed)

	fmt.Printf("generating %d chunks of %d³ voxels\n",
		(*chunksPerAxis)*(*chunksPerAxis), *chunkSize)
	genStart := time.Now()
	buffers := make([]*voxel.Buffer, 0, (*chunksPerAxis)*(*chunksPerAxis))
	hashes := make([]voxel.ContentHash, 0, cap(buffers))
	for cx := 0; cx < *chunksPerAxis; cx++ {
		for cz := 0; cz < *chunksPerAxis; cz++ {
			coord := voxel.ChunkCoord{X: cx, Y: 0, Z: cz}
			origin := coord.Origin(*chunkSize)
			buf := voxel.NewBuffer(*chunkSize)
			buf.Fill(func(off voxel.Coord) voxel.Voxel {
				return gen.Generate(origin.Add(off))
			})
			buffers = append(buffers, buf)
			hashes = append(hashes, buf.Hash())
		}
	}
	genElapsed := time.Since(genStart)

	mapper := func(mat uint8) [3]uint32 {
		i := uint32(mat)
		return [3]uint32{i, i, i}
	}
	cache := meshcache.New()

	type meshJob struct {
		buf  *voxel.Buffer
		hash voxel.ContentHash
	}
	jobs := make(chan meshJob)
	var (
		wg       sync.WaitGroup
		vertices atomic.Int64
		faces    atomic.Int64
	)

	meshStart := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				h, err := cache.GetOrBuild(j.hash, func() (*meshing.Mesh, error) {
					return meshing.BuildMesh(j.buf, mapper), nil
				})
				if err != nil {
					continue
				}
				vertices.Add(int64(h.Mesh().VertexCount()))
				faces.Add(int64(h.Mesh().FaceCount()))
				h.Release()
			}
		}()
	}

	total := 0
	for r := 0; r < *repeats; r++ {
		for i, buf := range buffers {
			jobs <- meshJob{buf: buf, hash: hashes[i]}
			total++
		}
	}
	close(jobs)
	wg.Wait()
	meshElapsed := time.Since(meshStart)

	hits, builds := cache.Stats()
	fmt.Printf("generation: %d chunks in %v (%.1f chunks/s)\n",
		len(buffers), genElapsed.Round(time.Millisecond),
		float64(len(buffers))/genElapsed.Seconds())
	fmt.Printf("meshing:    %d jobs in %v (%.1f meshes/s) across %d workers\n",
		total, meshElapsed.Round(time.Millisecond),
		float64(total)/meshElapsed.Seconds(), *concurrency)
	fmt.Printf("geometry:   %d vertices, %d faces\n", vertices.Load(), faces.Load())
	fmt.Printf("cache:      %d builds, %d hits\n", builds, hits)
}
